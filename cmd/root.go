// Package cmd wires up the CLI flags and starts the chat front-end.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"hivechat/config"
	"hivechat/internal/ui"
	"hivechat/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X hivechat/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the chat.  Values come from defaults,
// then HIVECHAT_* environment variables, then flags.
func Execute(ctx context.Context, args []string) error {
	cfg := config.Defaults()
	config.LoadFromEnv(&cfg)
	fs := flag.NewFlagSet("hivechat", flag.ContinueOnError)

	// ── identity ─────────────────────────────────────────────────
	fs.StringVarP(&cfg.Name, "name", "n", cfg.Name, "User name (3-31 letters and numbers)")

	// ── network ──────────────────────────────────────────────────
	fs.StringVarP(&cfg.Host, "host", "H", cfg.Host, "Host a server on start, on a port number or server name")
	fs.StringVarP(&cfg.Join, "join", "j", cfg.Join, "Join the server at this address on start")
	fs.StringVarP(&cfg.Port, "port", "p", cfg.Port, "Port number or server name to join (with -j)")
	fs.StringVarP(&cfg.BindAddress, "bind", "b", cfg.BindAddress, "Address to listen on when hosting")

	timeoutSec := int(cfg.DialTimeout / time.Second)
	fs.IntVar(&timeoutSec, "timeout", timeoutSec, "Connect timeout in seconds (0 = OS default)")
	fs.IntVar(&cfg.DialRetries, "retries", cfg.DialRetries, "Retry a failed join this many times, with backoff")
	fs.IntVar(&cfg.MaxJobs, "jobs", cfg.MaxJobs, "Maximum number of commands running at once")

	// ── output ───────────────────────────────────────────────────
	fs.BoolVar(&cfg.NoUI, "no-ui", cfg.NoUI, "Plain line-oriented input and output")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Append log messages to this file")
	envVerbose := cfg.Verbose
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate the configuration and exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("hivechat %s\n", version)
		return nil
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q (use --help for usage)", fs.Arg(0))
	}

	if !fs.Changed("verbose") {
		cfg.Verbose = envVerbose
	}
	if fs.Changed("timeout") {
		cfg.DialTimeout = time.Duration(timeoutSec) * time.Second
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.DryRun {
		printSummary(os.Stdout, &cfg)
		return nil
	}

	// ── build components ─────────────────────────────────────────
	logger, closeLog, err := buildLogger(&cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	mode, err := ui.Build(&cfg, logger)
	if err != nil {
		return err
	}
	logger.Verbose("starting as %q", cfg.Name)
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

// buildLogger routes the log to --log-file when set.  Without one, the
// full-screen interface gets a silent logger.
func buildLogger(cfg *config.Config) (*util.Logger, func(), error) {
	logger := util.NewLogger(cfg.Verbose)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("log file: %w", err)
		}
		logger.SetOutput(f)
		logger.SetTimestamps(true)
		return logger, func() { f.Close() }, nil
	}
	if ui.Interactive(cfg) {
		logger.SetOutput(io.Discard)
	}
	return logger, func() {}, nil
}

func printSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "name:    %s\n", cfg.Name)
	switch {
	case cfg.Host != "":
		port, _ := cfg.HostPort()
		fmt.Fprintf(w, "host:    %s (port %d) on %s\n", cfg.Host, port, cfg.BindAddress)
	case cfg.Join != "":
		port, _ := cfg.JoinPort()
		fmt.Fprintf(w, "join:    %s port %d (%s)\n", cfg.Join, port, cfg.Port)
	default:
		fmt.Fprintln(w, "network: none")
	}
	fmt.Fprintf(w, "jobs:    %d\n", cfg.MaxJobs)
	if cfg.DialTimeout > 0 {
		fmt.Fprintf(w, "timeout: %s\n", cfg.DialTimeout)
	}
	if cfg.DialRetries > 0 {
		fmt.Fprintf(w, "retries: %d\n", cfg.DialRetries)
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `hivechat – terminal chat with a board game on the side v%s

Usage:
  hivechat [options]                          Start offline
  hivechat -H <port|name> [options]           Host a server
  hivechat -j <address> -p <port|name>        Join a server

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  hivechat -n alice -H lobby                  Host "lobby" (port derived from the name)
  hivechat -n bob -j 10.0.0.5 -p lobby        Join it from another machine
  hivechat -H 4000 --no-ui < /dev/null        Headless server on port 4000

Inside the chat, type /help for the list of commands.
`)
}
