package ui

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jroimartin/gocui"

	"hivechat/internal/chat"
	"hivechat/util"
)

const (
	outputView = "output"
	inputView  = "input"
)

// TerminalMode is the full-screen interface: a scrolling output pane
// above a one-line input pane.
type TerminalMode struct {
	Options chat.Options
	Startup []string
	Logger  *util.Logger
}

// Run takes over the terminal until Ctrl-C or until ctx ends.
func (m *TerminalMode) Run(ctx context.Context) error {
	log := util.OrDiscard(m.Logger).Named("ui")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	defer g.Close()
	g.Cursor = true

	out := chat.NewOutput()
	opts := m.Options
	opts.Sink = out
	s := chat.NewSession(opts)
	defer func() {
		cancel()
		s.Close()
	}()

	t := &terminal{ctx: ctx, s: s}
	g.SetManagerFunc(t.layout)
	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		return err
	}
	out.OnChange(func() { g.Update(t.redraw) })

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			g.Update(func(*gocui.Gui) error { return gocui.ErrQuit })
		case <-stopped:
		}
	}()

	for _, line := range m.Startup {
		s.Submit(ctx, line) //nolint:errcheck
	}

	log.Verbose("terminal interface started")
	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

func quit(*gocui.Gui, *gocui.View) error { return gocui.ErrQuit }

// ── Views ────────────────────────────────────────────────────────────

type terminal struct {
	ctx context.Context
	s   *chat.Session
}

func (t *terminal) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	if maxX < 2 || maxY < 4 {
		return nil
	}

	if v, err := g.SetView(outputView, 0, 0, maxX-1, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "hivechat"
		v.Wrap = true
		v.Autoscroll = true
		t.s.Render(v, true) //nolint:errcheck
	}

	if v, err := g.SetView(inputView, 0, maxY-3, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Editable = true
		v.Editor = gocui.EditorFunc(t.edit)
		if _, err := g.SetCurrentView(inputView); err != nil {
			return err
		}
	}
	return nil
}

func (t *terminal) redraw(g *gocui.Gui) error {
	v, err := g.View(outputView)
	if err != nil {
		return nil // not laid out yet
	}
	v.Clear()
	return t.s.Render(v, true)
}

// edit feeds key presses into the session and redraws the input line.
func (t *terminal) edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	r, ok := keyRune(key, ch, mod)
	if !ok {
		return
	}
	t.s.HandleInputChar(t.ctx, r)
	drawInput(v, t.s.Input())
}

// drawInput shows the tail of line that fits and puts the cursor after
// it.
func drawInput(v *gocui.View, line string) {
	v.Clear()
	width, _ := v.Size()
	n := utf8.RuneCountInString(line)
	origin := 0
	if width > 0 && n >= width {
		origin = n - width + 1
	}
	fmt.Fprint(v, line)
	v.SetOrigin(origin, 0)   //nolint:errcheck
	v.SetCursor(n-origin, 0) //nolint:errcheck
}

// keyRune maps a gocui key event to the character the session's line
// editor understands.
func keyRune(key gocui.Key, ch rune, mod gocui.Modifier) (rune, bool) {
	switch {
	case ch != 0 && mod == gocui.ModNone:
		return ch, true
	case key == gocui.KeySpace:
		return ' ', true
	case key == gocui.KeyEnter:
		return '\r', true
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		return '\b', true
	}
	return 0, false
}
