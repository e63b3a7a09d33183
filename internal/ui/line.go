package ui

import (
	"bufio"
	"context"
	"io"
	"os"

	"hivechat/internal/chat"
	"hivechat/util"
)

// LineMode reads commands and messages line by line and prints output
// as it arrives.  It is used when stdin or stdout is not a terminal,
// or with --no-ui.
type LineMode struct {
	Options chat.Options
	Startup []string
	Colour  bool
	Logger  *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *LineMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *LineMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run submits every input line to the session.  At end of input it
// returns, unless the session is part of a network, in which case it
// stays until ctx ends or the network goes away.
func (m *LineMode) Run(ctx context.Context) error {
	log := util.OrDiscard(m.Logger).Named("ui")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := m.Options
	opts.Sink = chat.NewStream(m.stdout(), m.Colour)
	s := chat.NewSession(opts)
	defer func() {
		cancel()
		s.Close()
	}()

	for _, line := range m.Startup {
		s.Submit(ctx, line) //nolint:errcheck
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(m.stdin())
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-lines:
			s.Submit(ctx, line) //nolint:errcheck
		case err := <-readErr:
			if err != nil {
				return err
			}
			// A host or join job lasts as long as its network.
			log.Verbose("end of input, waiting for %d job(s)", s.Jobs().Running())
			s.Jobs().Wait()
			return nil
		}
	}
}
