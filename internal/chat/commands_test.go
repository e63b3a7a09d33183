package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	ncerr "hivechat/internal/errors"
)

// recorder collects the arguments commands were run with.
type recorder struct {
	mu   sync.Mutex
	runs map[string][][]string
}

func (r *recorder) cmd(name string, async bool, args ...Arg) Command {
	return Command{
		Name:  name,
		Args:  args,
		Async: async,
		Run: func(ctx context.Context, a []string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.runs == nil {
				r.runs = make(map[string][][]string)
			}
			r.runs[name] = append(r.runs[name], a)
		},
	}
}

func (r *recorder) get(name string) [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[name]
}

func newTestDispatcher(size int) (*Dispatcher, *Output, *recorder) {
	out := NewOutput()
	d := NewDispatcher(out, NewJobPool(size, nil), nil)
	rec := &recorder{}
	d.Register(rec.cmd("help", false))
	d.Register(rec.cmd("setname", false, Arg{"[name]", ArgName}))
	d.Register(rec.cmd("join", false, Arg{"[ip/domain]", ArgText}, Arg{"[port]", ArgPort}))
	d.Register(rec.cmd("move", false, Arg{"[move]", ArgRest}))
	return d, out, rec
}

func TestExec_Parsing(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantErr  error // nil = success
		wantCmd  string
		wantArgs []string
		wantOut  []string
	}{
		{name: "chat line", line: "hello there", wantErr: ncerr.ErrNotCommand},
		{name: "blank", line: "   ", wantErr: ncerr.ErrNotCommand},
		{name: "leading blanks", line: "  \t/help", wantCmd: "help", wantArgs: []string{}},
		{name: "join by name", line: "/join 127.0.0.1 myname", wantCmd: "join", wantArgs: []string{"127.0.0.1", "myname"}},
		{name: "extra blanks", line: "/join   10.0.0.5\t\t4000  ", wantCmd: "join", wantArgs: []string{"10.0.0.5", "4000"}},
		{name: "rest argument", line: "/move wQ  -wA1", wantCmd: "move", wantArgs: []string{"wQ -wA1"}},
		{
			name:    "unknown",
			line:    "/nope",
			wantErr: ncerr.ErrUnknownCommand,
			wantOut: []string{"Command 'nope' does not exist."},
		},
		{
			name:    "case sensitive",
			line:    "/Help",
			wantErr: ncerr.ErrUnknownCommand,
			wantOut: []string{"Command 'Help' does not exist."},
		},
		{
			name:    "name too short",
			line:    "/setname ab",
			wantErr: ncerr.ErrInvalidName,
			wantOut: []string{
				"Invalid name 'ab'. Only use letters and numbers and between 3 and 31 characters",
				"usage: /setname [name]",
			},
		},
		{
			name:    "too many args",
			line:    "/setname abc def",
			wantOut: []string{"usage: /setname [name]"},
		},
		{
			name:    "missing args",
			line:    "/join 127.0.0.1",
			wantOut: []string{"usage: /join [ip/domain] [port]"},
		},
		{
			name:    "bad port",
			line:    "/join 127.0.0.1 99999",
			wantOut: []string{"Invalid port '99999'", "usage: /join [ip/domain] [port]"},
		},
		{
			name:    "punctuation after command",
			line:    "/help!",
			wantOut: []string{"usage: /help"},
		},
		{
			name:    "slash only",
			line:    "/",
			wantOut: []string{"Missing command name."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, out, rec := newTestDispatcher(10)
			err := d.Exec(context.Background(), tt.line)

			switch {
			case tt.wantCmd != "":
				if err != nil {
					t.Fatalf("Exec(%q) = %v", tt.line, err)
				}
				runs := rec.get(tt.wantCmd)
				if len(runs) != 1 {
					t.Fatalf("%s ran %d times", tt.wantCmd, len(runs))
				}
				if strings.Join(runs[0], "|") != strings.Join(tt.wantArgs, "|") || len(runs[0]) != len(tt.wantArgs) {
					t.Errorf("args = %q, want %q", runs[0], tt.wantArgs)
				}
			case tt.wantErr != nil:
				if !ncerr.Is(err, tt.wantErr) {
					t.Errorf("Exec(%q) err = %v, want %v", tt.line, err, tt.wantErr)
				}
			default:
				if err == nil {
					t.Errorf("Exec(%q) should fail", tt.line)
				}
			}

			text := out.String()
			for _, w := range tt.wantOut {
				if !strings.Contains(text, w) {
					t.Errorf("output %q missing %q", text, w)
				}
			}
			if tt.wantErr == ncerr.ErrNotCommand && text != "" {
				t.Errorf("non-command printed %q", text)
			}
		})
	}
}

func TestExec_InvalidArgsDoNotRun(t *testing.T) {
	d, _, rec := newTestDispatcher(10)
	d.Exec(context.Background(), "/setname ab")
	d.Exec(context.Background(), "/join onlyone")
	if len(rec.get("setname")) != 0 || len(rec.get("join")) != 0 {
		t.Error("commands with invalid arguments must not run")
	}
}

func TestExec_JobLimit(t *testing.T) {
	d, out, _ := newTestDispatcher(10)

	gate := make(chan struct{})
	var started sync.WaitGroup
	d.Register(Command{
		Name:  "block",
		Async: true,
		Run: func(ctx context.Context, args []string) {
			started.Done()
			<-gate
		},
	})

	ctx := context.Background()
	started.Add(10)
	for i := 0; i < 10; i++ {
		if err := d.Exec(ctx, "/block"); err != nil {
			t.Fatalf("job %d: %v", i, err)
		}
	}
	started.Wait()

	if err := d.Exec(ctx, "/block"); !ncerr.Is(err, ncerr.ErrTooManyJobs) {
		t.Fatalf("11th job err = %v, want ErrTooManyJobs", err)
	}
	if !strings.Contains(out.String(), "Too many jobs are already running!") {
		t.Errorf("output = %q", out.String())
	}

	// Let one job finish; its slot becomes available again.
	gate <- struct{}{}
	deadline := time.Now().Add(2 * time.Second)
	for d.pool.Running() != 9 {
		if time.Now().After(deadline) {
			t.Fatalf("Running = %d, want 9", d.pool.Running())
		}
		time.Sleep(5 * time.Millisecond)
	}

	started.Add(1)
	if err := d.Exec(ctx, "/block"); err != nil {
		t.Fatalf("job after release: %v", err)
	}
	started.Wait()

	close(gate)
	d.pool.Wait()
}

func TestExec_ValidationReleasesSlot(t *testing.T) {
	d, _, _ := newTestDispatcher(1)
	d.Register(Command{
		Name:  "rename",
		Args:  []Arg{{"[name]", ArgName}},
		Async: true,
		Run:   func(ctx context.Context, args []string) {},
	})

	for i := 0; i < 3; i++ {
		if err := d.Exec(context.Background(), "/rename x"); ncerr.Is(err, ncerr.ErrTooManyJobs) {
			t.Fatalf("attempt %d: slot leaked", i)
		}
	}
	if d.pool.Running() != 0 {
		t.Errorf("Running = %d, want 0", d.pool.Running())
	}
}

func TestCommand_Usage(t *testing.T) {
	c := Command{Name: "join", Args: []Arg{{"[ip/domain]", ArgText}, {"[port]", ArgPort}}}
	if got := c.Usage(); got != "/join [ip/domain] [port]" {
		t.Errorf("Usage() = %q", got)
	}
	if got := (&Command{Name: "leave"}).Usage(); got != "/leave" {
		t.Errorf("Usage() = %q", got)
	}
}

func TestExec_UsageStyles(t *testing.T) {
	d, out, _ := newTestDispatcher(10)
	d.Exec(context.Background(), "/join onlyone") //nolint:errcheck

	segs := out.Segments()
	want := []Segment{
		{"usage: ", StyleNormal},
		{"/join ", StyleCommand},
		{"[ip/domain] [port]\n", StyleArgument},
	}
	if len(segs) != len(want) {
		t.Fatalf("segments = %+v", segs)
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, segs[i], want[i])
		}
	}
}
