package ui

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"hivechat/config"
	"hivechat/internal/chat"
	"hivechat/internal/metrics"
	"hivechat/internal/transport"
	"hivechat/util"
)

// Build constructs the front-end for cfg.  The full-screen interface is
// used only when both stdin and stdout are terminals and --no-ui was
// not given.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	opts := sessionOptions(cfg, logger)
	startup, err := startupCommands(cfg)
	if err != nil {
		return nil, err
	}

	if Interactive(cfg) {
		return &TerminalMode{Options: opts, Startup: startup, Logger: logger}, nil
	}
	return &LineMode{
		Options: opts,
		Startup: startup,
		Colour:  isTerminal(os.Stdout),
		Logger:  logger,
	}, nil
}

// Interactive reports whether Build would pick the full-screen
// interface.  Anything written to stderr would corrupt it.
func Interactive(cfg *config.Config) bool {
	return !cfg.NoUI && isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

// ── helpers ──────────────────────────────────────────────────────────

func sessionOptions(cfg *config.Config, logger *util.Logger) chat.Options {
	var dialer transport.Dialer = &transport.TCPDialer{Timeout: cfg.DialTimeout}
	if cfg.DialRetries > 0 {
		dialer = &transport.RetryDialer{
			Dialer:  dialer,
			Retries: cfg.DialRetries,
			Jitter:  true,
			Logger:  util.OrDiscard(logger).Named("dial"),
		}
	}
	return chat.Options{
		Name:        cfg.Name,
		BindAddress: cfg.BindAddress,
		MaxJobs:     cfg.MaxJobs,
		Dialer:      dialer,
		Listener:    transport.TCPListener{},
		Logger:      logger,
		Metrics:     metrics.New(),
	}
}

// startupCommands turns --host and --join into the commands a user
// would have typed.
func startupCommands(cfg *config.Config) ([]string, error) {
	switch {
	case cfg.Host != "" && cfg.Join != "":
		return nil, fmt.Errorf("cannot host and join at the same time")
	case cfg.Host != "":
		return []string{"/host " + cfg.Host}, nil
	case cfg.Join != "":
		return []string{fmt.Sprintf("/join %s %s", cfg.Join, cfg.Port)}, nil
	}
	return nil, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
