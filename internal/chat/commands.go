package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"hivechat/config"
	ncerr "hivechat/internal/errors"
	"hivechat/internal/protocol"
	"hivechat/util"
)

// ── Command table ────────────────────────────────────────────────────

// ArgKind says how an argument is validated before the command runs.
type ArgKind int

const (
	ArgText ArgKind = iota // anything
	ArgName                // a valid user or server name
	ArgPort                // a port number or a name to derive one from
	ArgRest                // the rest of the line, blanks included; last only
)

// Arg describes one positional argument.
type Arg struct {
	Placeholder string // shown in usage, e.g. "[port]"
	Kind        ArgKind
}

// Command is one entry of the command table.
type Command struct {
	Name        string
	Args        []Arg
	Description string
	// Async commands run on their own goroutine and hold a job slot;
	// the others run inline on the caller's goroutine.
	Async bool
	// Run receives exactly len(Args) validated arguments.  An ArgRest
	// argument is the remaining tokens joined by single spaces.
	Run func(ctx context.Context, args []string)
}

// ArgString renders the placeholders, e.g. "[ip/domain] [port]".
func (c *Command) ArgString() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.Placeholder
	}
	return strings.Join(parts, " ")
}

// Usage renders the full invocation, e.g. "/join [ip/domain] [port]".
func (c *Command) Usage() string {
	if len(c.Args) == 0 {
		return "/" + c.Name
	}
	return "/" + c.Name + " " + c.ArgString()
}

// ── Dispatcher ───────────────────────────────────────────────────────

// Dispatcher parses input lines and runs the matching command.
type Dispatcher struct {
	sink Sink
	pool *JobPool
	log  *util.Logger

	syncMu sync.Mutex // the single slot for inline commands

	mu    sync.RWMutex
	cmds  map[string]*Command
	order []*Command
}

// NewDispatcher returns a dispatcher with an empty command table.
func NewDispatcher(sink Sink, pool *JobPool, log *util.Logger) *Dispatcher {
	return &Dispatcher{
		sink: sink,
		pool: pool,
		log:  util.OrDiscard(log).Named("commands"),
		cmds: make(map[string]*Command),
	}
}

// Register adds cmd to the table, replacing a command of the same name.
func (d *Dispatcher) Register(cmd Command) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &cmd
	if _, exists := d.cmds[c.Name]; !exists {
		d.order = append(d.order, c)
	} else {
		for i, old := range d.order {
			if old.Name == c.Name {
				d.order[i] = c
			}
		}
	}
	d.cmds[c.Name] = c
}

// Commands returns the table in registration order.
func (d *Dispatcher) Commands() []Command {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Command, len(d.order))
	for i, c := range d.order {
		out[i] = *c
	}
	return out
}

func (d *Dispatcher) lookup(name string) (*Command, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.cmds[name]
	return c, ok
}

// Exec runs line as a command.
//
// Lines that do not start with '/' (after leading blanks) return
// errors.ErrNotCommand and print nothing, so the caller can post them
// as chat.  Every other failure prints one explanatory line to the
// sink and is returned.  A nil return means the command ran (sync) or
// was started (async).
func (d *Dispatcher) Exec(ctx context.Context, line string) error {
	rest := strings.TrimLeftFunc(line, unicode.IsSpace)
	if !strings.HasPrefix(rest, "/") {
		return ncerr.ErrNotCommand
	}
	rest = rest[1:]

	n := 0
	for n < len(rest) && isAlnum(rest[n]) {
		n++
	}
	if n == 0 {
		d.println(StyleError, "Missing command name. Type '/help' to list all commands.")
		return &ncerr.UsageError{Command: "", Usage: "/[command] [arguments]"}
	}
	name := rest[:n]

	cmd, ok := d.lookup(name)
	if !ok {
		d.println(StyleError, "Command '%s' does not exist.", name)
		return fmt.Errorf("%w: %s", ncerr.ErrUnknownCommand, name)
	}
	args := splitArgs(cmd, rest[n:])

	var slot *Slot
	if cmd.Async {
		var err error
		if slot, err = d.pool.Reserve(); err != nil {
			d.println(StyleError, "Too many jobs are already running!")
			return err
		}
	} else {
		d.syncMu.Lock()
	}

	if err := d.validate(cmd, args); err != nil {
		if slot != nil {
			slot.Release()
		} else {
			d.syncMu.Unlock()
		}
		d.printUsage(cmd)
		return err
	}

	d.log.Debug("running /%s %q", cmd.Name, args)
	if slot != nil {
		slot.Go(func() { cmd.Run(ctx, args) })
		return nil
	}
	defer d.syncMu.Unlock()
	cmd.Run(ctx, args)
	return nil
}

func (d *Dispatcher) validate(cmd *Command, args []string) error {
	if len(args) != len(cmd.Args) {
		return &ncerr.UsageError{Command: cmd.Name, Usage: cmd.Usage()}
	}
	for i, a := range cmd.Args {
		switch a.Kind {
		case ArgName:
			if !protocol.IsValidName(args[i]) {
				d.println(StyleError, "Invalid name '%s'. Only use letters and numbers and between 3 and 31 characters", args[i])
				return &ncerr.UsageError{Command: cmd.Name, Usage: cmd.Usage(), Err: ncerr.ErrInvalidName}
			}
		case ArgPort:
			if _, err := config.ResolvePort(args[i]); err != nil {
				d.println(StyleError, "Invalid port '%s'. Use a number between 1 and 65535 or a name of 3 to 31 letters and numbers", args[i])
				return &ncerr.UsageError{Command: cmd.Name, Usage: cmd.Usage(), Err: err}
			}
		}
	}
	return nil
}

func (d *Dispatcher) printUsage(cmd *Command) {
	d.sink.Append("usage: ", StyleNormal)
	d.sink.Append("/"+cmd.Name+" ", StyleCommand)
	d.sink.Append(cmd.ArgString()+"\n", StyleArgument)
}

func (d *Dispatcher) println(style Style, format string, args ...interface{}) {
	d.sink.Append(fmt.Sprintf(format, args...)+"\n", style)
}

// splitArgs tokenizes on blanks.  When the command ends with an
// ArgRest argument, surplus tokens are folded into it.
func splitArgs(cmd *Command, s string) []string {
	args := strings.Fields(s)
	k := len(cmd.Args)
	if k == 0 || cmd.Args[k-1].Kind != ArgRest || len(args) <= k {
		return args
	}
	return append(args[:k-1], strings.Join(args[k-1:], " "))
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
