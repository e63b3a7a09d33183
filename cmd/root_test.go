package cmd

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"hivechat/config"
	ncerr "hivechat/internal/errors"
)

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	if err := Execute(context.Background(), []string{"--version"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestExecute_Help verifies --help returns without error.
func TestExecute_Help(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {"-h"}} {
		t.Run(args[0], func(t *testing.T) {
			if err := Execute(context.Background(), args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// TestExecute_DryRun verifies --dry-run validates and exits cleanly.
func TestExecute_DryRun(t *testing.T) {
	for _, args := range [][]string{
		{"--dry-run"},
		{"-n", "alice", "-H", "lobby", "--dry-run"},
		{"-n", "bob", "-j", "127.0.0.1", "-p", "4000", "--timeout", "5", "--retries", "3", "--dry-run"},
		{"-vv", "--jobs", "3", "--no-ui", "--dry-run"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if err := Execute(context.Background(), args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// TestExecute_DryRunInvalid verifies --dry-run still catches bad configs.
func TestExecute_DryRunInvalid(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{"short name", []string{"-n", "ab", "--dry-run"}, "name"},
		{"host and join", []string{"-H", "4000", "-j", "10.0.0.1", "-p", "4000", "--dry-run"}, "host"},
		{"join without port", []string{"-j", "10.0.0.1", "--dry-run"}, "port"},
		{"port without join", []string{"-p", "4000", "--dry-run"}, "port"},
		{"bad host port", []string{"-H", "70000", "--dry-run"}, "host"},
		{"no jobs", []string{"--jobs", "0", "--dry-run"}, "jobs"},
		{"negative timeout", []string{"--timeout=-1", "--dry-run"}, "timeout"},
		{"negative retries", []string{"--retries=-2", "--dry-run"}, "retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Execute(context.Background(), tt.args)
			var ce *ncerr.ConfigError
			if !ncerr.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

// TestExecute_InvalidFlags verifies unknown flags and stray arguments
// produce an error.
func TestExecute_InvalidFlags(t *testing.T) {
	for _, args := range [][]string{{"--nonexistent-flag"}, {"stray"}} {
		if err := Execute(context.Background(), args); err == nil {
			t.Errorf("Execute(%q): expected error", args)
		}
	}
}

// TestExecute_EnvThenFlags verifies flags override the environment.
func TestExecute_EnvThenFlags(t *testing.T) {
	t.Setenv("HIVECHAT_NAME", "x") // invalid on its own
	if err := Execute(context.Background(), []string{"--dry-run"}); err == nil {
		t.Fatal("expected the invalid env name to be rejected")
	}
	if err := Execute(context.Background(), []string{"-n", "alice", "--dry-run"}); err != nil {
		t.Fatalf("flag should override env: %v", err)
	}
}

func TestPrintSummary(t *testing.T) {
	cfg := config.Defaults()
	cfg.Name = "alice"
	cfg.Host = "lobby"
	var buf bytes.Buffer
	printSummary(&buf, &cfg)

	port, _ := config.ResolvePort("lobby")
	want := fmt.Sprintf("(port %d)", port)
	if !strings.Contains(buf.String(), want) || !strings.Contains(buf.String(), "name:    alice") {
		t.Errorf("summary = %q", buf.String())
	}
}
