// Package chat ties the protocol to the user: it owns the session
// state, parses commands and runs the handlers that host, join and
// talk on a network.
package chat

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"hivechat/config"
	ncerr "hivechat/internal/errors"
	"hivechat/internal/metrics"
	"hivechat/internal/protocol"
	"hivechat/internal/receiver"
	"hivechat/internal/transport"
	"hivechat/util"
)

// Options configures a Session.  Zero fields get defaults.
type Options struct {
	Name        string
	BindAddress string
	MaxJobs     int

	Sink     Sink
	Game     Game
	Dialer   transport.Dialer
	Listener transport.Listener
	Logger   *util.Logger
	Metrics  *metrics.Collector
}

// Session is the state of one chat participant: identity, the network
// it is part of (if any), the job pool and the line being typed.
type Session struct {
	log      *util.Logger
	metrics  *metrics.Collector
	sink     Sink
	game     Game
	dialer   transport.Dialer
	listener transport.Listener
	bind     string
	pool     *JobPool
	cmds     *Dispatcher

	mu   sync.Mutex
	name string
	rcv  *receiver.Receiver

	inMu  sync.Mutex
	input []rune
}

// NewSession builds a session and registers the default commands.
func NewSession(opts Options) *Session {
	s := &Session{
		log:      util.OrDiscard(opts.Logger),
		metrics:  opts.Metrics,
		sink:     opts.Sink,
		game:     opts.Game,
		dialer:   opts.Dialer,
		listener: opts.Listener,
		bind:     opts.BindAddress,
		name:     opts.Name,
	}
	if s.sink == nil {
		s.sink = NewOutput()
	}
	if s.game == nil {
		s.game = NewMoveLog(s.sink)
	}
	if s.dialer == nil {
		s.dialer = &transport.TCPDialer{}
	}
	if s.listener == nil {
		s.listener = transport.TCPListener{}
	}
	if s.bind == "" {
		s.bind = config.DefaultBindAddress
	}
	if s.name == "" {
		s.name = config.DefaultName
	}
	if opts.MaxJobs < 1 {
		opts.MaxJobs = config.DefaultMaxJobs
	}
	s.pool = NewJobPool(opts.MaxJobs, s.metrics)
	s.cmds = NewDispatcher(s.sink, s.pool, s.log)
	s.registerCommands()
	return s
}

// ── Accessors ────────────────────────────────────────────────────────

// Name returns the current identity.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Session) setName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// Networked reports whether the session hosts or joined a network.
func (s *Session) Networked() bool {
	return s.receiver() != nil
}

// Sink returns where the session prints.
func (s *Session) Sink() Sink { return s.sink }

// Game returns the game collaborator.
func (s *Session) Game() Game { return s.game }

// Dispatcher returns the command table.
func (s *Session) Dispatcher() *Dispatcher { return s.cmds }

// Jobs returns the async job pool.
func (s *Session) Jobs() *JobPool { return s.pool }

func (s *Session) receiver() *receiver.Receiver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rcv
}

// attach makes r the session's network.  It fails when one is already
// attached.
func (s *Session) attach(r *receiver.Receiver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rcv != nil {
		return ncerr.ErrAlreadyNetworked
	}
	s.rcv = r
	return nil
}

// detach forgets r if it is still the session's network.
func (s *Session) detach(r *receiver.Receiver) {
	s.mu.Lock()
	if s.rcv == r {
		s.rcv = nil
	}
	s.mu.Unlock()
}

// detachAny forgets and returns the current network, if any.
func (s *Session) detachAny() *receiver.Receiver {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rcv
	s.rcv = nil
	return r
}

// ── Input ────────────────────────────────────────────────────────────

// Submit handles one complete input line: a command when it starts
// with '/', a chat message otherwise.
func (s *Session) Submit(ctx context.Context, line string) error {
	err := s.cmds.Exec(ctx, line)
	if ncerr.Is(err, ncerr.ErrNotCommand) {
		return s.Post(line)
	}
	return err
}

// Post prints line as the user's own message and sends it to the
// network when there is one.  Blank lines are ignored.
func (s *Session) Post(line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if len(line) > protocol.MaxExtraLen {
		s.println(StyleError, "Message too long (%d bytes, at most %d).", len(line), protocol.MaxExtraLen)
		return ncerr.Protocol(line, ncerr.ErrFieldTooLong)
	}
	if strings.ContainsRune(line, protocol.Terminator) {
		s.println(StyleError, "Messages cannot contain carriage returns.")
		return ncerr.Protocol(line, ncerr.ErrMalformed)
	}

	name := s.Name()
	s.chatLine(name, line)

	rcv := s.receiver()
	if rcv == nil {
		return nil
	}
	if err := rcv.SendAny(receiver.Broadcast, protocol.Msg, name, line); err != nil {
		s.log.Warn("sending message: %v", err)
		return err
	}
	return nil
}

// HandleInputChar edits the input line.  Enter submits and clears it,
// backspace deletes the last character, control characters are
// ignored.
func (s *Session) HandleInputChar(ctx context.Context, r rune) {
	switch {
	case r == '\r' || r == '\n':
		s.inMu.Lock()
		line := string(s.input)
		s.input = s.input[:0]
		s.inMu.Unlock()
		s.Submit(ctx, line) //nolint:errcheck
	case r == '\b' || r == 0x7f:
		s.inMu.Lock()
		if n := len(s.input); n > 0 {
			s.input = s.input[:n-1]
		}
		s.inMu.Unlock()
	case r < ' ' || r == utf8.RuneError:
	default:
		s.inMu.Lock()
		if len(string(s.input))+utf8.RuneLen(r) <= protocol.MaxExtraLen {
			s.input = append(s.input, r)
		}
		s.inMu.Unlock()
	}
}

// Input returns the line being typed.
func (s *Session) Input() string {
	s.inMu.Lock()
	defer s.inMu.Unlock()
	return string(s.input)
}

// ── Output ───────────────────────────────────────────────────────────

// Render writes the session's output to w when the sink can render
// itself.
func (s *Session) Render(w io.Writer, colour bool) error {
	r, ok := s.sink.(interface {
		Render(io.Writer, bool) error
	})
	if !ok {
		return nil
	}
	return r.Render(w, colour)
}

func (s *Session) println(style Style, format string, args ...interface{}) {
	s.sink.Append(fmt.Sprintf(format, args...)+"\n", style)
}

// setupFailed reports a failed listen or dial.  Socket errors are shown
// by their cause ("connection refused"), anything else in full.
func (s *Session) setupFailed(err error, format string, args ...interface{}) {
	s.metrics.RecordError(err.Error())
	shown := err
	if ncerr.IsSetup(err) {
		shown = ncerr.Cause(err)
	}
	s.println(StyleError, format+": %v", append(args, shown)...)
}

func (s *Session) chatLine(name, text string) {
	s.sink.Append(name+"> ", StyleCommand)
	s.sink.Append(text+"\n", StyleNormal)
}

// ── Lifecycle ────────────────────────────────────────────────────────

// Close leaves the network, if any, and waits for running jobs.  Jobs
// blocked on anything but the network (a pending dial) finish when the
// context they were started with is cancelled.
func (s *Session) Close() error {
	if r := s.detachAny(); r != nil {
		r.Close()
	}
	s.pool.Wait()
	return nil
}

// watch closes r when ctx is cancelled before r ends on its own.
func (s *Session) watch(ctx context.Context, r *receiver.Receiver) {
	select {
	case <-ctx.Done():
		s.log.Verbose("context done, closing network")
		r.Close()
	case <-r.Done():
	}
}
