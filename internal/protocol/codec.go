package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	ncerr "hivechat/internal/errors"
)

// Serialize renders req as one terminated wire line.
func Serialize(req Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var b bytes.Buffer
	b.Grow(32 + len(req.Name) + len(req.Extra))

	ts := req.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(strconv.FormatInt(ts.Unix(), 10))
	b.WriteByte('.')
	b.WriteString(fmt.Sprintf("%09d", ts.Nanosecond()))
	b.WriteByte(' ')
	b.WriteString(req.Type.String())
	b.WriteByte(':')

	l := req.Type.layout()
	if l.name {
		b.WriteString(req.Name)
		if l.extra {
			b.WriteByte(' ')
		}
	}
	if l.extra {
		b.WriteString(req.Extra)
	}
	b.WriteByte(Terminator)
	return b.Bytes(), nil
}

// Deserialize parses one wire line.  The trailing terminator is
// optional; a single leading newline left over from a "\r\n" peer is
// ignored.  Any failure is a *errors.ProtocolError.
func Deserialize(line []byte) (Request, error) {
	s := string(line)
	s = strings.TrimPrefix(s, "\n")
	s = strings.TrimSuffix(s, string(Terminator))

	stamp, rest, ok := strings.Cut(s, " ")
	if !ok {
		return Request{}, ncerr.Protocol(s, fmt.Errorf("%w: missing timestamp separator", ncerr.ErrMalformed))
	}
	ts, err := parseStamp(stamp)
	if err != nil {
		return Request{}, ncerr.Protocol(s, err)
	}

	tag, body, ok := strings.Cut(rest, ":")
	if !ok {
		return Request{}, ncerr.Protocol(s, fmt.Errorf("%w: missing type separator", ncerr.ErrMalformed))
	}
	t, err := ParseType(tag)
	if err != nil {
		return Request{}, ncerr.Protocol(s, err)
	}

	req := Request{Time: ts, Type: t}
	l := t.layout()
	switch {
	case l.name && l.extra:
		name, text, _ := strings.Cut(body, " ")
		req.Name, req.Extra = name, text
	case l.name:
		req.Name = body
	case l.extra:
		req.Extra = body
	default:
		if body != "" {
			return Request{}, ncerr.Protocol(s, fmt.Errorf("%w: %s carries no fields", ncerr.ErrMalformed, t))
		}
	}

	if l.name && len(req.Name) >= MaxNameLen {
		return Request{}, ncerr.Protocol(s, ncerr.ErrFieldTooLong)
	}
	if err := req.Validate(); err != nil {
		var pe *ncerr.ProtocolError
		if ncerr.As(err, &pe) {
			pe.Line = s
		}
		return Request{}, err
	}
	return req, nil
}

// parseStamp reads "<seconds>.<nanoseconds>".
func parseStamp(stamp string) (time.Time, error) {
	secStr, nsecStr, ok := strings.Cut(stamp, ".")
	if !ok {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", ncerr.ErrMalformed, stamp)
	}
	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp seconds %q", ncerr.ErrMalformed, secStr)
	}
	nsec, err := strconv.ParseInt(nsecStr, 10, 64)
	if err != nil || nsec < 0 || nsec >= int64(time.Second) {
		return time.Time{}, fmt.Errorf("%w: timestamp nanoseconds %q", ncerr.ErrMalformed, nsecStr)
	}
	return time.Unix(sec, nsec), nil
}
