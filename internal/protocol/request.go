// Package protocol implements the hivechat wire format.
//
// Every request travels as one ASCII line terminated by a carriage
// return:
//
//	<seconds>.<nanoseconds> <TAG>:<fields>\r
//
// The field layout depends on the request type:
//
//	MSG  name text      chat message (text may contain spaces)
//	SRV  text           server notice
//	SUN  name           set user name
//	JIN  name           join announcement
//	LVE  name           leave announcement
//	KCK  name           kick announcement
//	CHL                 game challenge
//	MOV  move           encoded game move
//	RST                 game reset
package protocol

import (
	"fmt"
	"time"

	ncerr "hivechat/internal/errors"
)

// ── Bounds ───────────────────────────────────────────────────────────

const (
	// Terminator ends every request line.
	Terminator = '\r'

	// MinNameLen is inclusive, MaxNameLen exclusive.
	MinNameLen = 3
	MaxNameLen = 32

	// MaxExtraLen is the largest payload (message body or move).
	MaxExtraLen = 511
)

// ── Types ────────────────────────────────────────────────────────────

// Type identifies the kind of a request.
type Type int

const (
	// None means "no request this cycle"; it is never put on the wire.
	None Type = iota
	Msg
	Srv
	Sun
	Join
	Leave
	Kick
	GameChallenge
	GameMove
	GameReset
)

var typeTags = [...]string{
	None:          "NON",
	Msg:           "MSG",
	Srv:           "SRV",
	Sun:           "SUN",
	Join:          "JIN",
	Leave:         "LVE",
	Kick:          "KCK",
	GameChallenge: "CHL",
	GameMove:      "MOV",
	GameReset:     "RST",
}

// String returns the wire tag of t.
func (t Type) String() string {
	if t < 0 || int(t) >= len(typeTags) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeTags[t]
}

// ParseType maps a wire tag back to its Type.  None is not a valid tag.
func ParseType(tag string) (Type, error) {
	for t := Msg; int(t) < len(typeTags); t++ {
		if typeTags[t] == tag {
			return t, nil
		}
	}
	return None, ncerr.ErrUnknownType
}

// layout describes which fields a type carries.
type layout struct {
	name  bool // carries a name
	extra bool // carries a payload
	need  bool // payload must be non-empty
}

func (t Type) layout() layout {
	switch t {
	case Msg:
		return layout{name: true, extra: true}
	case Srv:
		return layout{extra: true}
	case Sun, Join, Leave, Kick:
		return layout{name: true}
	case GameMove:
		return layout{extra: true, need: true}
	default:
		return layout{}
	}
}

// HasName reports whether requests of type t carry a name field.
func (t Type) HasName() bool { return t.layout().name }

// ── Request ──────────────────────────────────────────────────────────

// Request is one protocol message.  It is a value: received requests
// are never modified, handlers build new ones.
type Request struct {
	Time  time.Time // informational only
	Type  Type
	Name  string
	Extra string
}

// New builds a request of type t from positional fields and stamps it
// with the current time:
//
//	New(Msg, name, text)
//	New(Srv, text)
//	New(Sun|Join|Leave|Kick, name)
//	New(GameMove, move)
//	New(GameChallenge|GameReset)
func New(t Type, fields ...string) (Request, error) {
	req := Request{Time: time.Now(), Type: t}
	l := t.layout()

	want := 0
	if l.name {
		want++
	}
	if l.extra {
		want++
	}
	if t == None || int(t) >= len(typeTags) || t < 0 {
		return Request{}, ncerr.Protocol("", fmt.Errorf("%w: %v", ncerr.ErrUnknownType, t))
	}
	if len(fields) != want {
		return Request{}, ncerr.Protocol("",
			fmt.Errorf("%w: %s takes %d field(s), got %d", ncerr.ErrMalformed, t, want, len(fields)))
	}

	i := 0
	if l.name {
		req.Name = fields[i]
		i++
	}
	if l.extra {
		req.Extra = fields[i]
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks the field invariants for the request's type.
func (r Request) Validate() error {
	l := r.Type.layout()
	if r.Type == None || r.Type < 0 || int(r.Type) >= len(typeTags) {
		return ncerr.Protocol("", fmt.Errorf("%w: %v", ncerr.ErrUnknownType, r.Type))
	}
	if l.name {
		if !IsValidName(r.Name) {
			return ncerr.Protocol(r.Name, ncerr.ErrInvalidName)
		}
	} else if r.Name != "" {
		return ncerr.Protocol(r.Name, fmt.Errorf("%w: %s carries no name", ncerr.ErrMalformed, r.Type))
	}
	if !l.extra && r.Extra != "" {
		return ncerr.Protocol(r.Extra, fmt.Errorf("%w: %s carries no payload", ncerr.ErrMalformed, r.Type))
	}
	if len(r.Extra) > MaxExtraLen {
		return ncerr.Protocol(r.Extra, ncerr.ErrFieldTooLong)
	}
	for i := 0; i < len(r.Extra); i++ {
		if r.Extra[i] == Terminator {
			return ncerr.Protocol(r.Extra, fmt.Errorf("%w: payload contains the terminator", ncerr.ErrMalformed))
		}
	}
	if l.need && r.Extra == "" {
		return ncerr.Protocol("", fmt.Errorf("%w: %s needs a payload", ncerr.ErrMalformed, r.Type))
	}
	return nil
}

// String renders the request for logs.
func (r Request) String() string {
	switch l := r.Type.layout(); {
	case l.name && l.extra:
		return fmt.Sprintf("%s(%s %q)", r.Type, r.Name, r.Extra)
	case l.name:
		return fmt.Sprintf("%s(%s)", r.Type, r.Name)
	case l.extra:
		return fmt.Sprintf("%s(%q)", r.Type, r.Extra)
	default:
		return r.Type.String()
	}
}

// IsValidName reports whether name is usable as a user or server name:
// between MinNameLen and MaxNameLen-1 characters, ASCII letters and
// digits only.
func IsValidName(name string) bool {
	if len(name) < MinNameLen || len(name) >= MaxNameLen {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
