// Package cache memoises day record sets per subject with a TTL and point invalidation.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"example.com/babylog/internal/daily"
	"example.com/babylog/internal/domain"
)

// DefaultTTL bounds how stale a cached day may get without an invalidation.
const DefaultTTL = 5 * time.Minute

// DayFetcher loads a day's attributed records; *daily.Fetcher satisfies it.
type DayFetcher interface {
	Fetch(ctx context.Context, subject domain.Subject, date daily.Date) ([]domain.Activity, error)
}

// Option configures optional behaviour for the DayCache.
type Option func(*DayCache)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *DayCache) {
		c.now = now
	}
}

// WithLocation sets the zone day keys are resolved in. Defaults to process local time.
func WithLocation(loc *time.Location) Option {
	return func(c *DayCache) {
		if loc != nil {
			c.loc = loc
		}
	}
}

type key struct {
	tenantID  string
	subjectID string
	dayStart  int64
}

func (k key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.tenantID, k.subjectID, k.dayStart)
}

func (k key) belongsTo(subject domain.Subject) bool {
	return k.tenantID == subject.TenantID && k.subjectID == subject.ID
}

type entry struct {
	value     []domain.Activity
	expiresAt time.Time
}

// DayCache is safe for concurrent use. Concurrent misses on one key share a single fetch.
type DayCache struct {
	fetcher DayFetcher
	loc     *time.Location
	now     func() time.Time

	mu      sync.Mutex
	entries map[key]entry
	// tokens identifies the fetch allowed to populate a key; invalidation revokes it.
	tokens map[key]uint64
	seq    uint64

	group singleflight.Group
}

// NewDayCache constructs a DayCache in front of fetcher.
func NewDayCache(fetcher DayFetcher, opts ...Option) *DayCache {
	c := &DayCache{
		fetcher: fetcher,
		loc:     time.Local,
		now:     time.Now,
		entries: make(map[key]entry),
		tokens:  make(map[key]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *DayCache) keyFor(subject domain.Subject, date daily.Date) key {
	return key{
		tenantID:  subject.TenantID,
		subjectID: subject.ID,
		dayStart:  date.Window(c.loc).Start.UnixNano(),
	}
}

// GetOrFetch returns the cached record set for the subject's day or loads it. A ttl <= 0
// selects DefaultTTL. When ctx ends first the call returns ctx.Err() while the load keeps
// running and still populates the cache. The returned slice belongs to the caller.
func (c *DayCache) GetOrFetch(ctx context.Context, subject domain.Subject, date daily.Date, ttl time.Duration) ([]domain.Activity, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	k := c.keyFor(subject, date)

	c.mu.Lock()
	if e, ok := c.entries[k]; ok {
		if c.now().Before(e.expiresAt) {
			c.mu.Unlock()
			recordHit()
			return domain.CloneAll(e.value), nil
		}
		delete(c.entries, k)
		entriesGauge.Set(float64(len(c.entries)))
	}
	c.mu.Unlock()
	recordMiss()

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(k.String(), func() (interface{}, error) {
		return c.load(detached, k, subject, date, ttl)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return domain.CloneAll(res.Val.([]domain.Activity)), nil
	}
}

func (c *DayCache) load(ctx context.Context, k key, subject domain.Subject, date daily.Date, ttl time.Duration) ([]domain.Activity, error) {
	c.mu.Lock()
	c.seq++
	token := c.seq
	c.tokens[k] = token
	c.mu.Unlock()

	value, err := c.fetcher.Fetch(ctx, subject, date)

	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.tokens[k]
	if ok && current == token {
		delete(c.tokens, k)
	}
	if err != nil {
		return nil, err
	}
	if ok && current == token {
		c.entries[k] = entry{value: domain.CloneAll(value), expiresAt: c.now().Add(ttl)}
		entriesGauge.Set(float64(len(c.entries)))
	}
	return value, nil
}

// Invalidate removes the subject's entry for date. The next GetOrFetch goes to the store,
// and a load already in flight for that key will not be stored.
func (c *DayCache) Invalidate(subject domain.Subject, date daily.Date) {
	k := c.keyFor(subject, date)

	c.mu.Lock()
	delete(c.entries, k)
	delete(c.tokens, k)
	entriesGauge.Set(float64(len(c.entries)))
	c.mu.Unlock()

	c.group.Forget(k.String())
	recordInvalidation("day")
}

// InvalidateAll removes every entry of the subject.
func (c *DayCache) InvalidateAll(subject domain.Subject) {
	var forget []string

	c.mu.Lock()
	for k := range c.entries {
		if k.belongsTo(subject) {
			delete(c.entries, k)
			forget = append(forget, k.String())
		}
	}
	for k := range c.tokens {
		if k.belongsTo(subject) {
			delete(c.tokens, k)
			forget = append(forget, k.String())
		}
	}
	entriesGauge.Set(float64(len(c.entries)))
	c.mu.Unlock()

	for _, s := range forget {
		c.group.Forget(s)
	}
	recordInvalidation("subject")
}

// Sweep drops expired entries and reports how many were removed.
func (c *DayCache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	entriesGauge.Set(float64(len(c.entries)))
	return removed
}

// Len is the number of stored entries, expired or not.
func (c *DayCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (c *DayCache) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := c.Sweep()
			if onSweep != nil {
				onSweep(removed)
			}
		}
	}
}
