// Package cooldown suppresses repeated acceptance of the same identity
// within a time window.
package cooldown

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rollcall/pkg/metrics"
)

const defaultShards = 32

// Result is the outcome of TryAccept.
type Result struct {
	Accepted  bool
	Remaining time.Duration // > 0 when suppressed
}

// SecondsRemaining rounds Remaining up to whole seconds.
func (r Result) SecondsRemaining() int {
	if r.Accepted || r.Remaining <= 0 {
		return 0
	}
	return int(math.Ceil(r.Remaining.Seconds()))
}

type shard struct {
	mu   sync.Mutex
	last map[int64]time.Time // internal id -> last accepted at
}

// Cache tracks the last accepted time per identity.
// Check-and-set is atomic per identity; identities in different shards never
// contend.
type Cache struct {
	shards     []shard
	shardCount int
	size       atomic.Int64
	clock      Clock

	janitorMu sync.Mutex
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		shardCount: defaultShards,
		clock:      SystemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.shards = make([]shard, c.shardCount)
	for i := range c.shards {
		c.shards[i].last = make(map[int64]time.Time)
	}
	return c
}

func (c *Cache) shardFor(id int64) *shard {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(id))
	h := fnv.New64a()
	_, _ = h.Write(b[:])
	return &c.shards[h.Sum64()%uint64(len(c.shards))]
}

// TryAccept records now as the last acceptance for id unless an earlier
// acceptance is still inside window. The boundary is inclusive: an attempt
// exactly window after the last acceptance is accepted, so a suppressed
// Result always has Remaining > 0. A window <= 0 disables suppression.
func (c *Cache) TryAccept(id int64, now time.Time, window time.Duration) Result {
	s := c.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	last, exists := s.last[id]
	if exists && window > 0 {
		if elapsed := now.Sub(last); elapsed < window {
			remaining := window - elapsed
			if remaining > window {
				// now is before last (clock stepped back); never report more than a full window.
				remaining = window
			}
			return Result{Remaining: remaining}
		}
	}

	s.last[id] = now
	if !exists {
		metrics.UpdateCooldownEntries(int(c.size.Add(1)))
	}
	return Result{Accepted: true}
}

// LastAccepted returns the last acceptance time for id.
func (c *Cache) LastAccepted(id int64) (time.Time, bool) {
	s := c.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.last[id]
	return t, ok
}

// Sweep evicts entries whose window has fully elapsed at now and returns how
// many were removed. Evicted entries would have been accepted anyway.
func (c *Cache) Sweep(now time.Time, window time.Duration) int {
	removed := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		for id, last := range s.last {
			if now.Sub(last) >= window {
				delete(s.last, id)
				removed++
			}
		}
		s.mu.Unlock()
	}
	if removed > 0 {
		metrics.RecordCooldownEvictions(removed)
		metrics.UpdateCooldownEntries(int(c.size.Add(int64(-removed))))
	}
	return removed
}

// Len returns the number of tracked identities.
func (c *Cache) Len() int {
	return int(c.size.Load())
}

// StartJanitor sweeps every interval until ctx is done or Close is called.
// Calling it while a janitor is running is a no-op.
func (c *Cache) StartJanitor(ctx context.Context, interval, window time.Duration) {
	if interval <= 0 {
		return
	}

	c.janitorMu.Lock()
	defer c.janitorMu.Unlock()
	if c.stopCh != nil {
		return
	}
	stop := make(chan struct{})
	c.stopCh = stop

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				c.Sweep(c.clock.Now(), window)
			}
		}
	}()
}

// Close stops the janitor and waits for it to exit.
func (c *Cache) Close() error {
	c.janitorMu.Lock()
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
	c.janitorMu.Unlock()
	c.wg.Wait()
	return nil
}
