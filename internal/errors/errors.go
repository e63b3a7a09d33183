// Package errors provides domain-specific error types for hivechat.
//
// Errors fall into four groups: setup errors (socket creation, bind,
// listen, resolve, connect), protocol errors (malformed or oversized
// wire lines), validation errors (bad command arguments) and resource
// exhaustion (no free job slot).  None of them is fatal to the process.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// receiver lifecycle
	ErrReceiverClosed = errors.New("receiver is closed")
	ErrNotActive      = errors.New("receiver is not active")
	ErrAlreadyActive  = errors.New("receiver is already initialised")
	ErrUnknownEntry   = errors.New("no such connection")

	// session state
	ErrAlreadyNetworked = errors.New("already part of a network")
	ErrNotNetworked     = errors.New("not part of a network")

	// dispatcher
	ErrTooManyJobs    = errors.New("too many jobs are already running")
	ErrNotCommand     = errors.New("input is not a command")
	ErrUnknownCommand = errors.New("unknown command")

	// wire protocol
	ErrMalformed    = errors.New("malformed request")
	ErrUnknownType  = errors.New("unknown request type")
	ErrFieldTooLong = errors.New("field exceeds its bound")
	ErrInvalidName  = errors.New("invalid name")
	ErrLineTooLong  = errors.New("line exceeds receive buffer")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError is a setup failure of a socket operation.
type NetworkError struct {
	Op   string // "resolve", "listen", "dial", "accept", "write", "read"
	Addr string
	Err  error
}

func (e *NetworkError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError reports a wire line that could not be decoded or a
// request that could not be encoded.
type ProtocolError struct {
	Line string // offending line, may be truncated
	Err  error
}

// maxQuoted bounds how much of a bad line ends up in messages.
const maxQuoted = 64

func (e *ProtocolError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("protocol: %v", e.Err)
	}
	line := e.Line
	if len(line) > maxQuoted {
		line = line[:maxQuoted] + "..."
	}
	return fmt.Sprintf("protocol: %v: %q", e.Err, line)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// UsageError is a command invocation with bad arguments.
type UsageError struct {
	Command string
	Usage   string // e.g. "/join [ip/domain] [port]"
	Err     error  // optional cause (invalid name, bad port, ...)
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v (usage: %s)", e.Command, e.Err, e.Usage)
	}
	return "usage: " + e.Usage
}

func (e *UsageError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err}
}

// Protocol creates a ProtocolError for line.
func Protocol(line string, err error) *ProtocolError {
	return &ProtocolError{Line: line, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsSetup reports whether err came from socket setup (a NetworkError).
func IsSetup(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsProtocol reports whether err is a wire-level decoding problem.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsClosed reports whether err is the expected result of tearing a
// connection or listener down.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, ErrReceiverClosed) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// Cause returns the innermost error, which is what the user wants to
// see in a one-line report ("connection refused" rather than the full
// op chain).
func Cause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }
