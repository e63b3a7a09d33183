package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the HIVECHAT_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("HIVECHAT_NAME"); v != "" {
		cfg.Name = v
	}
	if v := os.Getenv("HIVECHAT_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("HIVECHAT_JOIN"); v != "" {
		cfg.Join = v
	}
	if v := os.Getenv("HIVECHAT_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("HIVECHAT_BIND"); v != "" {
		cfg.BindAddress = v
	}
	if v := envInt("HIVECHAT_TIMEOUT"); v > 0 {
		cfg.DialTimeout = secondsDuration(v)
	}
	if v := envInt("HIVECHAT_RETRIES"); v > 0 {
		cfg.DialRetries = v
	}
	if v := envInt("HIVECHAT_JOBS"); v > 0 {
		cfg.MaxJobs = v
	}

	// Output
	if envBool("HIVECHAT_NO_UI") {
		cfg.NoUI = true
	}
	if v := os.Getenv("HIVECHAT_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := envInt("HIVECHAT_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
