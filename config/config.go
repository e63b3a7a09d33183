// Package config defines the runtime configuration for hivechat and
// provides helpers for parsing and deriving ports.
package config

import (
	"time"

	ncerr "hivechat/internal/errors"
	"hivechat/internal/protocol"
)

// Config holds every tuneable for a single hivechat process.
type Config struct {
	// ── Identity ─────────────────────────────────────────────────────
	Name string

	// ── Networking ───────────────────────────────────────────────────
	Host        string // port spec to host on start, "" = don't
	Join        string // address to join on start, "" = don't
	Port        string // port spec used with Join
	BindAddress string
	DialTimeout time.Duration
	DialRetries int

	// ── Jobs ─────────────────────────────────────────────────────────
	MaxJobs int

	// ── Output ───────────────────────────────────────────────────────
	NoUI    bool
	LogFile string
	Verbose int
	DryRun  bool
}

// HostPort resolves the Host spec.
func (c *Config) HostPort() (int, error) { return ResolvePort(c.Host) }

// JoinPort resolves the Port spec.
func (c *Config) JoinPort() (int, error) { return ResolvePort(c.Port) }

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Every failure is a *errors.ConfigError carrying a hint.
func (c *Config) Validate() error {
	if !protocol.IsValidName(c.Name) {
		return &ncerr.ConfigError{
			Field:   "name",
			Value:   c.Name,
			Message: "invalid name",
			Hint:    "only use letters and numbers, between 3 and 31 characters",
		}
	}

	if c.Host != "" && c.Join != "" {
		return &ncerr.ConfigError{
			Field:   "host",
			Value:   c.Host,
			Message: "cannot host and join at the same time",
			Hint:    "drop either --host or --join",
		}
	}

	if c.Host != "" {
		if _, err := c.HostPort(); err != nil {
			return &ncerr.ConfigError{
				Field:   "host",
				Value:   c.Host,
				Message: err.Error(),
				Hint:    "pass a port number (e.g. --host 4000) or a server name (e.g. --host lobby)",
			}
		}
	}

	if c.Join != "" {
		if c.Port == "" {
			return &ncerr.ConfigError{
				Field:   "port",
				Message: "joining requires a port",
				Hint:    "add -p <port-or-name>, matching what the host used",
			}
		}
		if _, err := c.JoinPort(); err != nil {
			return &ncerr.ConfigError{
				Field:   "port",
				Value:   c.Port,
				Message: err.Error(),
				Hint:    "use the number or name the host used with --host",
			}
		}
	} else if c.Port != "" {
		return &ncerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "port given without --join",
			Hint:    "use --host <port> to host, or add --join <address>",
		}
	}

	if c.BindAddress == "" {
		return &ncerr.ConfigError{
			Field:   "bind",
			Message: "bind address is empty",
			Hint:    "use " + DefaultBindAddress + " to listen on every interface",
		}
	}

	if c.MaxJobs < 1 {
		return &ncerr.ConfigError{
			Field:   "jobs",
			Value:   c.MaxJobs,
			Message: "at least one job slot is required",
			Hint:    "the default is 10",
		}
	}

	if c.DialTimeout < 0 {
		return &ncerr.ConfigError{
			Field:   "timeout",
			Value:   c.DialTimeout,
			Message: "negative timeout",
			Hint:    "use 0 to leave connect timeouts to the OS",
		}
	}

	if c.DialRetries < 0 {
		return &ncerr.ConfigError{
			Field:   "retries",
			Value:   c.DialRetries,
			Message: "negative retry count",
			Hint:    "use 0 to connect only once",
		}
	}

	return nil
}
