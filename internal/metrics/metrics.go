// Package metrics provides lightweight, lock-free counters and gauges
// for tracking runtime statistics of a chat session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a chat session.
// A nil Collector is safe to use — all methods become no-ops.
type Collector struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	bytesIn           atomic.Int64
	bytesOut          atomic.Int64
	requestsIn        atomic.Int64
	requestsOut       atomic.Int64
	requestsDropped   atomic.Int64
	jobsActive        atomic.Int64
	jobsTotal         atomic.Int64
	jobsRejected      atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Request metrics ──────────────────────────────────────────────────

// RequestReceived records one successfully decoded request.
func (c *Collector) RequestReceived() {
	if c == nil {
		return
	}
	c.requestsIn.Add(1)
}

// RequestSent records one request written to a peer.
func (c *Collector) RequestSent() {
	if c == nil {
		return
	}
	c.requestsOut.Add(1)
}

// RequestDropped records a line that was discarded: malformed, unknown
// or overflowing the receive buffer.
func (c *Collector) RequestDropped() {
	if c == nil {
		return
	}
	c.requestsDropped.Add(1)
}

// RequestsReceived returns the number of decoded requests.
func (c *Collector) RequestsReceived() int64 {
	if c == nil {
		return 0
	}
	return c.requestsIn.Load()
}

// RequestsSent returns the number of requests written.
func (c *Collector) RequestsSent() int64 {
	if c == nil {
		return 0
	}
	return c.requestsOut.Load()
}

// RequestsDropped returns the number of discarded lines.
func (c *Collector) RequestsDropped() int64 {
	if c == nil {
		return 0
	}
	return c.requestsDropped.Load()
}

// ── Job metrics ──────────────────────────────────────────────────────

// JobStarted increments the running and total job counters.
func (c *Collector) JobStarted() {
	if c == nil {
		return
	}
	c.jobsActive.Add(1)
	c.jobsTotal.Add(1)
}

// JobFinished decrements the running job counter.
func (c *Collector) JobFinished() {
	if c == nil {
		return
	}
	c.jobsActive.Add(-1)
}

// JobRejected records a command refused because the pool was full.
func (c *Collector) JobRejected() {
	if c == nil {
		return
	}
	c.jobsRejected.Add(1)
}

// ActiveJobs returns the number of jobs currently running.
func (c *Collector) ActiveJobs() int64 {
	if c == nil {
		return 0
	}
	return c.jobsActive.Load()
}

// RejectedJobs returns how many commands were refused for lack of a slot.
func (c *Collector) RejectedJobs() int64 {
	if c == nil {
		return 0
	}
	return c.jobsRejected.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string `json:"uptime"`
	ConnectionsActive int64  `json:"connections_active"`
	ConnectionsTotal  int64  `json:"connections_total"`
	BytesIn           int64  `json:"bytes_in"`
	BytesOut          int64  `json:"bytes_out"`
	RequestsIn        int64  `json:"requests_in"`
	RequestsOut       int64  `json:"requests_out"`
	RequestsDropped   int64  `json:"requests_dropped"`
	JobsActive        int64  `json:"jobs_active"`
	JobsTotal         int64  `json:"jobs_total"`
	JobsRejected      int64  `json:"jobs_rejected"`
	ErrorsTotal       int64  `json:"errors_total"`
	LastError         string `json:"last_error,omitempty"`
	LastErrorMessage  string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsActive: c.connectionsActive.Load(),
		ConnectionsTotal:  c.connectionsTotal.Load(),
		BytesIn:           c.bytesIn.Load(),
		BytesOut:          c.bytesOut.Load(),
		RequestsIn:        c.requestsIn.Load(),
		RequestsOut:       c.requestsOut.Load(),
		RequestsDropped:   c.requestsDropped.Load(),
		JobsActive:        c.jobsActive.Load(),
		JobsTotal:         c.jobsTotal.Load(),
		JobsRejected:      c.jobsRejected.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
