package emotion

import (
	"sync"
	"time"
)

// LastValid remembers the most recent successfully fused distribution so a
// failed detection can still serve something. It is shared across requests:
// a value served from it may belong to an unrelated earlier image.
type LastValid struct {
	mu        sync.RWMutex
	sample    Sample
	updatedAt time.Time
}

// NewLastValid creates a cache seeded with the neutral distribution.
func NewLastValid() *LastValid {
	return &LastValid{sample: NeutralSample()}
}

// Get returns a copy of the cached distribution and when it was stored. The
// zero time means the neutral seed is being served.
func (c *LastValid) Get() (Sample, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sample.Clone(), c.updatedAt
}

// Set replaces the cached distribution. Empty samples are ignored.
func (c *LastValid) Set(s Sample) {
	if s.Empty() {
		return
	}
	c.mu.Lock()
	c.sample = s.Clone()
	c.updatedAt = time.Now()
	c.mu.Unlock()
}
