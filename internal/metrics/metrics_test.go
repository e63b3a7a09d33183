package metrics

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestCollector_Connections(t *testing.T) {
	c := New()

	c.ConnectionOpened()
	c.ConnectionOpened()
	if c.ActiveConnections() != 2 {
		t.Errorf("active = %d, want 2", c.ActiveConnections())
	}

	c.ConnectionClosed()
	if c.ActiveConnections() != 1 {
		t.Errorf("active = %d, want 1", c.ActiveConnections())
	}
	if c.TotalConnections() != 2 {
		t.Errorf("total should remain 2, got %d", c.TotalConnections())
	}
}

func TestCollector_Bytes(t *testing.T) {
	c := New()

	c.BytesReceived(1024)
	c.BytesSent(512)
	c.BytesReceived(100)

	if c.TotalBytesIn() != 1124 {
		t.Errorf("bytes in = %d, want 1124", c.TotalBytesIn())
	}
	if c.TotalBytesOut() != 512 {
		t.Errorf("bytes out = %d, want 512", c.TotalBytesOut())
	}
}

func TestCollector_Requests(t *testing.T) {
	c := New()

	c.RequestReceived()
	c.RequestReceived()
	c.RequestSent()
	c.RequestDropped()

	if c.RequestsReceived() != 2 {
		t.Errorf("received = %d, want 2", c.RequestsReceived())
	}
	if c.RequestsSent() != 1 {
		t.Errorf("sent = %d, want 1", c.RequestsSent())
	}
	if c.RequestsDropped() != 1 {
		t.Errorf("dropped = %d, want 1", c.RequestsDropped())
	}
}

func TestCollector_Jobs(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.JobStarted()
		}()
	}
	wg.Wait()
	c.JobRejected()
	c.JobFinished()

	if c.ActiveJobs() != 9 {
		t.Errorf("active jobs = %d, want 9", c.ActiveJobs())
	}
	if c.RejectedJobs() != 1 {
		t.Errorf("rejected = %d, want 1", c.RejectedJobs())
	}
	if snap := c.Snapshot(); snap.JobsTotal != 10 {
		t.Errorf("jobs total = %d, want 10", snap.JobsTotal)
	}
}

func TestCollector_Errors(t *testing.T) {
	c := New()

	c.RecordError("first error")
	c.RecordError("second error")

	if c.ErrorCount() != 2 {
		t.Errorf("errors = %d, want 2", c.ErrorCount())
	}
	if msg := c.Snapshot().LastErrorMessage; msg != "second error" {
		t.Errorf("last error = %q", msg)
	}
}

func TestCollector_JSON(t *testing.T) {
	c := New()
	c.ConnectionOpened()
	c.BytesSent(42)
	c.RequestDropped()

	raw := c.JSON()
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("JSON parse error: %v", err)
	}
	if snap.ConnectionsActive != 1 {
		t.Errorf("JSON active = %d", snap.ConnectionsActive)
	}
	if snap.BytesOut != 42 {
		t.Errorf("JSON bytes out = %d", snap.BytesOut)
	}
	if snap.RequestsDropped != 1 {
		t.Errorf("JSON dropped = %d", snap.RequestsDropped)
	}
}

func TestNilCollector_NoOps(t *testing.T) {
	var c *Collector

	// None of these should panic.
	c.ConnectionOpened()
	c.ConnectionClosed()
	c.BytesReceived(100)
	c.BytesSent(100)
	c.RequestReceived()
	c.RequestSent()
	c.RequestDropped()
	c.JobStarted()
	c.JobFinished()
	c.JobRejected()
	c.RecordError("test")

	if c.ActiveConnections() != 0 || c.TotalBytesIn() != 0 || c.ActiveJobs() != 0 {
		t.Error("nil collector should return 0")
	}
	if snap := c.Snapshot(); snap.ConnectionsActive != 0 {
		t.Error("nil snapshot should be zero")
	}
	if c.JSON() == "" {
		t.Error("nil JSON should return valid JSON")
	}
}
