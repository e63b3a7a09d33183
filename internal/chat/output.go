package chat

import (
	"io"
	"strings"
	"sync"
)

// Style selects how a piece of output text is rendered.
type Style int

const (
	StyleNormal Style = iota
	StyleCommand
	StyleArgument
	StyleError
	StyleInfo
)

// ansi maps styles to terminal colour sequences.
var ansi = [...]string{
	StyleNormal:   "",
	StyleCommand:  "\x1b[1;36m",
	StyleArgument: "\x1b[33m",
	StyleError:    "\x1b[31m",
	StyleInfo:     "\x1b[32m",
}

const ansiReset = "\x1b[0m"

// Sink receives everything the chat prints.  Implementations must be
// safe for concurrent use: handlers append from their own goroutines.
type Sink interface {
	Append(text string, style Style)
}

// Segment is a run of text in one style.
type Segment struct {
	Text  string
	Style Style
}

// MaxSegments bounds the Output history; the oldest segments are
// dropped first.
const MaxSegments = 4096

// Output is the default Sink: an append-only, bounded, styled text
// buffer that UIs render from.
type Output struct {
	mu       sync.Mutex
	segs     []Segment
	onChange func()
}

// NewOutput returns an empty Output.
func NewOutput() *Output { return &Output{} }

// Append adds text in the given style.
func (o *Output) Append(text string, style Style) {
	if text == "" {
		return
	}
	o.mu.Lock()
	o.segs = append(o.segs, Segment{Text: text, Style: style})
	if over := len(o.segs) - MaxSegments; over > 0 {
		o.segs = append(o.segs[:0], o.segs[over:]...)
	}
	fn := o.onChange
	o.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Clear drops everything printed so far.
func (o *Output) Clear() {
	o.mu.Lock()
	o.segs = nil
	fn := o.onChange
	o.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// OnChange registers fn to run after every Append or Clear.  fn runs on
// the appending goroutine, outside the buffer lock.
func (o *Output) OnChange(fn func()) {
	o.mu.Lock()
	o.onChange = fn
	o.mu.Unlock()
}

// Segments returns a copy of the buffer.
func (o *Output) Segments() []Segment {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Segment(nil), o.segs...)
}

// String returns the buffer as plain text.
func (o *Output) String() string {
	var b strings.Builder
	for _, s := range o.Segments() {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Lines returns the plain text split into lines, without a trailing
// empty line.
func (o *Output) Lines() []string {
	s := strings.TrimSuffix(o.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Render writes the buffer to w, with ANSI colours when colour is set.
func (o *Output) Render(w io.Writer, colour bool) error {
	for _, s := range o.Segments() {
		if err := renderSegment(w, s, colour); err != nil {
			return err
		}
	}
	return nil
}

func renderSegment(w io.Writer, s Segment, colour bool) error {
	code := ""
	if colour && int(s.Style) < len(ansi) {
		code = ansi[s.Style]
	}
	if code == "" {
		_, err := io.WriteString(w, s.Text)
		return err
	}
	_, err := io.WriteString(w, code+s.Text+ansiReset)
	return err
}

// ── Stream ───────────────────────────────────────────────────────────

// Stream is a Sink that writes each segment straight to an io.Writer.
// It suits front-ends that print and never redraw.
type Stream struct {
	mu     sync.Mutex
	w      io.Writer
	colour bool
}

// NewStream returns a Stream writing to w.
func NewStream(w io.Writer, colour bool) *Stream {
	return &Stream{w: w, colour: colour}
}

func (s *Stream) Append(text string, style Style) {
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	renderSegment(s.w, Segment{Text: text, Style: style}, s.colour) //nolint:errcheck
}
