package chat

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	ncerr "hivechat/internal/errors"
	"hivechat/internal/metrics"
)

// JobPool bounds how many asynchronous commands run at once.
type JobPool struct {
	sem     *semaphore.Weighted
	size    int
	running atomic.Int64
	wg      sync.WaitGroup
	metrics *metrics.Collector
}

// NewJobPool returns a pool with size slots.  m may be nil.
func NewJobPool(size int, m *metrics.Collector) *JobPool {
	if size < 1 {
		size = 1
	}
	return &JobPool{
		sem:     semaphore.NewWeighted(int64(size)),
		size:    size,
		metrics: m,
	}
}

// Slot is a reserved place in the pool.  It must be released exactly
// once, either explicitly or by Go when the job returns.
type Slot struct {
	pool *JobPool
	once sync.Once
}

// Reserve takes a slot without blocking.  It fails with
// errors.ErrTooManyJobs when every slot is taken.
func (p *JobPool) Reserve() (*Slot, error) {
	if !p.sem.TryAcquire(1) {
		p.metrics.JobRejected()
		return nil, ncerr.ErrTooManyJobs
	}
	p.running.Add(1)
	p.wg.Add(1)
	p.metrics.JobStarted()
	return &Slot{pool: p}, nil
}

// Release frees the slot.  Further calls do nothing.
func (s *Slot) Release() {
	s.once.Do(func() {
		p := s.pool
		p.running.Add(-1)
		p.metrics.JobFinished()
		p.sem.Release(1)
		p.wg.Done()
	})
}

// Go runs fn on a new goroutine and releases the slot when it returns.
func (s *Slot) Go(fn func()) {
	go func() {
		defer s.Release()
		fn()
	}()
}

// Running returns the number of reserved slots.
func (p *JobPool) Running() int { return int(p.running.Load()) }

// Size returns the pool capacity.
func (p *JobPool) Size() int { return p.size }

// Wait blocks until every slot is released.
func (p *JobPool) Wait() { p.wg.Wait() }
