package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultName is the identity used until /setname is run.
	DefaultName = "Anon"

	// DefaultBindAddress is where /host listens.
	DefaultBindAddress = "0.0.0.0"

	// DefaultMaxJobs bounds concurrently running async commands.
	DefaultMaxJobs = 10

	// DefaultDialTimeout is the connect timeout for /join.  Zero leaves
	// it to the operating system.
	DefaultDialTimeout time.Duration = 0

	// DefaultDialRetries is how many times a failed /join connect is
	// retried, with backoff.
	DefaultDialRetries = 0

	// DerivedPortMin and DerivedPortMax delimit the dynamic port range
	// that name-derived ports are hashed into.
	DerivedPortMin = 49152
	DerivedPortMax = 65535
)

// Defaults returns a Config populated with every default value.
func Defaults() Config {
	return Config{
		Name:        DefaultName,
		BindAddress: DefaultBindAddress,
		MaxJobs:     DefaultMaxJobs,
		DialTimeout: DefaultDialTimeout,
		DialRetries: DefaultDialRetries,
	}
}
