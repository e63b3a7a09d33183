package transport

import (
	"context"
	"math/rand"
	"net"
	"time"

	"hivechat/util"
)

// ── Retrying dialer ──────────────────────────────────────────────────

const (
	defaultRetryDelay    = 500 * time.Millisecond
	defaultMaxRetryDelay = 8 * time.Second
)

// RetryDialer wraps a Dialer and retries failed dials with exponential
// backoff.  The last dial error is returned once the retries run out
// or ctx ends.
type RetryDialer struct {
	Dialer   Dialer
	Retries  int           // attempts after the first; 0 = dial once
	Delay    time.Duration // before the first retry (default 500ms), doubling
	MaxDelay time.Duration // cap on the delay (default 8s)
	Jitter   bool          // ±25% on every delay
	Logger   *util.Logger
}

func (d *RetryDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	log := util.OrDiscard(d.Logger)
	delay := d.Delay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	maxDelay := d.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxRetryDelay
	}

	for attempt := 0; ; attempt++ {
		conn, err := d.Dialer.Dial(ctx, network, address)
		if err == nil {
			return conn, nil
		}
		if attempt >= d.Retries || ctx.Err() != nil {
			return nil, err
		}

		wait := delay
		if d.Jitter {
			wait = addJitter(delay)
		}
		log.Verbose("dial %s failed (attempt %d of %d), retrying in %s: %v",
			address, attempt+1, d.Retries+1, wait.Round(time.Millisecond), err)

		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(wait):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func (d *RetryDialer) Close() error { return d.Dialer.Close() }

func addJitter(d time.Duration) time.Duration {
	quarter := float64(d) / 4
	j := time.Duration(float64(d) + rand.Float64()*2*quarter - quarter)
	if j < time.Millisecond {
		return time.Millisecond
	}
	return j
}
