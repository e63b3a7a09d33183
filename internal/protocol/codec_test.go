package protocol

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ncerr "hivechat/internal/errors"
)

// TestRoundTrip checks deserialize(serialize(r)) == r for every type.
func TestRoundTrip(t *testing.T) {
	stamp := time.Unix(1700000000, 123456789)
	tests := []Request{
		{Type: Msg, Name: "alice", Extra: "hello there, how are you?"},
		{Type: Msg, Name: "alice", Extra: ""},
		{Type: Msg, Name: "bob", Extra: "  leading and trailing  "},
		{Type: Srv, Extra: "User 'alice' has issued a challenge.\nType '/challenge' to accept!\n"},
		{Type: Srv, Extra: ""},
		{Type: Sun, Name: "Player2"},
		{Type: Join, Name: "Anon"},
		{Type: Leave, Name: "carol"},
		{Type: Kick, Name: "mallory"},
		{Type: GameChallenge},
		{Type: GameMove, Extra: "wQ -wA1"},
		{Type: GameReset},
		{Type: Srv, Extra: strings.Repeat("z", MaxExtraLen)},
		{Type: Sun, Name: strings.Repeat("n", MaxNameLen-1)},
	}

	for _, want := range tests {
		want.Time = stamp
		t.Run(want.String(), func(t *testing.T) {
			line, err := Serialize(want)
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			if line[len(line)-1] != Terminator {
				t.Fatalf("line %q not terminated", line)
			}
			if bytes.IndexByte(line[:len(line)-1], Terminator) >= 0 {
				t.Fatalf("line %q contains an inner terminator", line)
			}

			got, err := Deserialize(line)
			if err != nil {
				t.Fatalf("Deserialize(%q): %v", line, err)
			}
			if got.Type != want.Type || got.Name != want.Name || got.Extra != want.Extra {
				t.Errorf("got %+v, want %+v", got, want)
			}
			if !got.Time.Equal(want.Time) {
				t.Errorf("time = %v, want %v", got.Time, want.Time)
			}
		})
	}
}

func TestSerialize_Format(t *testing.T) {
	req := Request{Time: time.Unix(12, 5), Type: Msg, Name: "alice", Extra: "hi there"}
	line, err := Serialize(req)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(line), "12.000000005 MSG:alice hi there\r"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	line, err = Serialize(Request{Time: time.Unix(1, 0), Type: GameChallenge})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(line), "1.000000000 CHL:\r"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSerialize_Errors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"none", Request{Type: None}, ncerr.ErrUnknownType},
		{"out of range type", Request{Type: Type(42)}, ncerr.ErrUnknownType},
		{"terminator in payload", Request{Type: Srv, Extra: "a\rb"}, ncerr.ErrMalformed},
		{"oversized payload", Request{Type: GameMove, Extra: strings.Repeat("m", MaxExtraLen+1)}, ncerr.ErrFieldTooLong},
		{"oversized name", Request{Type: Sun, Name: strings.Repeat("n", MaxNameLen)}, ncerr.ErrInvalidName},
		{"name on nameless type", Request{Type: Srv, Name: "alice"}, ncerr.ErrMalformed},
		{"payload on empty type", Request{Type: GameReset, Extra: "x"}, ncerr.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Serialize(tt.req)
			if !ncerr.Is(err, tt.want) {
				t.Errorf("Serialize() err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDeserialize_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"empty", "", ncerr.ErrMalformed},
		{"no type separator", "1.0 MSG alice hi\r", ncerr.ErrMalformed},
		{"no timestamp separator", "1.0\r", ncerr.ErrMalformed},
		{"non-numeric seconds", "x.0 SRV:hi\r", ncerr.ErrMalformed},
		{"non-numeric nanoseconds", "1.y SRV:hi\r", ncerr.ErrMalformed},
		{"nanoseconds overflow", "1.1000000000 SRV:hi\r", ncerr.ErrMalformed},
		{"missing dot", "1 SRV:hi\r", ncerr.ErrMalformed},
		{"unknown tag", "1.0 FOO:bar\r", ncerr.ErrUnknownType},
		{"none tag", "1.0 NON:\r", ncerr.ErrUnknownType},
		{"missing name", "1.0 SUN:\r", ncerr.ErrInvalidName},
		{"invalid name", "1.0 SUN:a-b\r", ncerr.ErrInvalidName},
		{"oversized name", "1.0 SUN:" + strings.Repeat("a", 40) + "\r", ncerr.ErrFieldTooLong},
		{"oversized payload", "1.0 SRV:" + strings.Repeat("a", MaxExtraLen+1) + "\r", ncerr.ErrFieldTooLong},
		{"missing move", "1.0 MOV:\r", ncerr.ErrMalformed},
		{"fields on challenge", "1.0 CHL:extra\r", ncerr.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize([]byte(tt.line))
			if err == nil {
				t.Fatalf("Deserialize(%q) should fail", tt.line)
			}
			if !ncerr.IsProtocol(err) {
				t.Errorf("error %v should be a ProtocolError", err)
			}
			if !ncerr.Is(err, tt.want) {
				t.Errorf("Deserialize(%q) err = %v, want %v", tt.line, err, tt.want)
			}
		})
	}
}

func TestDeserialize_Lenient(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Request
	}{
		{"no terminator", "5.0 SUN:alice", Request{Type: Sun, Name: "alice"}},
		{"crlf leftover", "\n5.0 SRV:hello", Request{Type: Srv, Extra: "hello"}},
		{"msg without text", "5.0 MSG:alice\r", Request{Type: Msg, Name: "alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Deserialize([]byte(tt.line))
			if err != nil {
				t.Fatalf("Deserialize(%q): %v", tt.line, err)
			}
			if got.Type != tt.want.Type || got.Name != tt.want.Name || got.Extra != tt.want.Extra {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
