// Package ui is the front-end layer.  It turns a Config into a running
// chat session with either a full-screen terminal interface or a plain
// line-oriented one.
//
// Architecture layers (bottom → top):
//
//	transport  →  receiver  →  chat  →  ui  →  cmd (CLI)
package ui

import "context"

// Mode is a complete front-end.  It owns the session from startup to
// teardown and returns when the user quits or ctx ends.
type Mode interface {
	Run(ctx context.Context) error
}
