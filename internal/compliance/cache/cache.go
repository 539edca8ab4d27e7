// Package cache keeps generated compliance reports in memory for a short TTL. Entries are keyed
// per organization so any write to an organization's data can drop all of its reports at once.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "compliance",
	Subsystem: "report_cache",
	Name:      "lookups_total",
	Help:      "Report cache lookups broken down by result.",
}, []string{"result"})

// ReportCache is a TTL cache of computed reports
type ReportCache struct {
	data    map[string]*entry
	ttl     time.Duration
	mu      sync.RWMutex
	now     func() time.Time
	cleanup *time.Ticker
	done    chan struct{}
	stop    sync.Once

	statsMu sync.Mutex
	hits    int64
	misses  int64
}

type entry struct {
	value      any
	expiration time.Time
}

// Stats is a snapshot of cache usage
type Stats struct {
	Size    int     `json:"size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// New creates a report cache and starts its expiry sweep
func New(ttl, sweepInterval time.Duration) *ReportCache {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	c := &ReportCache{
		data:    make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
		cleanup: time.NewTicker(sweepInterval),
		done:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Key builds the cache key of a report
func Key(kind string, organizationID uuid.UUID, year int) string {
	return fmt.Sprintf("%s%s:%d", OrganizationPrefix(organizationID), kind, year)
}

// OrganizationPrefix is the key prefix shared by every report of an organization
func OrganizationPrefix(organizationID uuid.UUID) string {
	return "org:" + organizationID.String() + ":"
}

// Get returns a live entry
func (c *ReportCache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.data[key]
	live := ok && c.now().Before(e.expiration)
	c.mu.RUnlock()

	c.statsMu.Lock()
	if live {
		c.hits++
	} else {
		c.misses++
	}
	c.statsMu.Unlock()

	if !live {
		lookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	lookups.WithLabelValues("hit").Inc()
	return e.value, true
}

// Set stores a value for the default TTL
func (c *ReportCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = &entry{value: value, expiration: c.now().Add(c.ttl)}
}

// Delete removes one entry
func (c *ReportCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
}

// DeleteByPrefix removes every entry whose key starts with prefix and returns how many were removed
func (c *ReportCache) DeleteByPrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
			removed++
		}
	}
	return removed
}

// InvalidateOrganization drops every cached report of an organization
func (c *ReportCache) InvalidateOrganization(organizationID uuid.UUID) int {
	return c.DeleteByPrefix(OrganizationPrefix(organizationID))
}

// Size returns the number of stored entries, including expired ones not yet swept
func (c *ReportCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data)
}

// Stats returns hit and miss counters
func (c *ReportCache) Stats() Stats {
	c.statsMu.Lock()
	hits, misses := c.hits, c.misses
	c.statsMu.Unlock()

	s := Stats{Size: c.Size(), Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

// Stop ends the expiry sweep
func (c *ReportCache) Stop() {
	c.stop.Do(func() {
		c.cleanup.Stop()
		close(c.done)
	})
}

func (c *ReportCache) sweepLoop() {
	for {
		select {
		case <-c.cleanup.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

func (c *ReportCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.data {
		if !now.Before(e.expiration) {
			delete(c.data, key)
		}
	}
}

// Fetch returns the cached value of key or computes and stores it. Errors are not cached.
func Fetch[T any](c *ReportCache, key string, compute func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	value, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, value)
	return value, nil
}
