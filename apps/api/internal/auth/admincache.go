package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"rentdash/apps/api/internal/models"
	"rentdash/apps/api/internal/repository"
)

const DefaultAdminCacheTTL = 5 * time.Minute

type AdminRegistry interface {
	FindByUserAndRole(ctx context.Context, userID string, role models.AdminRole) (models.AdminRecord, error)
}

type adminEntry struct {
	record   *models.AdminRecord
	cachedAt time.Time
}

// AdminCache remembers, per user, whether the registry holds an admin record
// for them. Negative answers are cached too. Entries are never trusted past
// the TTL; changes to the registry can take up to one TTL to be seen unless
// the writer calls Invalidate.
//
// Concurrent misses for the same user may each query the registry. A miss
// whose query overlaps an Invalidate of that user does not store its answer.
type AdminCache struct {
	registry AdminRegistry
	ttl      time.Duration
	now      func() time.Time
	observe  func(hit bool)

	mu      sync.RWMutex
	entries map[string]adminEntry
	// gens holds the last Invalidate stamp per user.
	gens    map[string]uint64
	lastGen uint64
}

type AdminCacheOption func(*AdminCache)

func WithClock(now func() time.Time) AdminCacheOption {
	return func(c *AdminCache) { c.now = now }
}

// WithObserver is told about every lookup, hit or miss.
func WithObserver(fn func(hit bool)) AdminCacheOption {
	return func(c *AdminCache) { c.observe = fn }
}

func NewAdminCache(registry AdminRegistry, ttl time.Duration, opts ...AdminCacheOption) *AdminCache {
	if ttl <= 0 {
		ttl = DefaultAdminCacheTTL
	}
	c := &AdminCache{
		registry: registry,
		ttl:      ttl,
		now:      time.Now,
		observe:  func(bool) {},
		entries:  make(map[string]adminEntry),
		gens:     make(map[string]uint64),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// AdminStatus returns the user's admin record, or nil if they are not an
// admin. Only the "admin" role counts. Registry errors are returned and not
// cached.
func (c *AdminCache) AdminStatus(ctx context.Context, userID string) (*models.AdminRecord, error) {
	rec, gen, ok := c.lookup(userID)
	if ok {
		c.observe(true)
		return rec, nil
	}
	c.observe(false)

	found, err := c.registry.FindByUserAndRole(ctx, userID, models.AdminRoleAdmin)
	switch {
	case err == nil:
		rec = &found
	case errors.Is(err, repository.ErrAdminNotFound):
	default:
		return nil, err
	}

	c.mu.Lock()
	if c.gens[userID] == gen {
		c.entries[userID] = adminEntry{record: rec, cachedAt: c.now()}
	}
	c.mu.Unlock()
	return rec, nil
}

// Seed stores rec (nil meaning "not an admin") as of now.
func (c *AdminCache) Seed(userID string, rec *models.AdminRecord) {
	c.mu.Lock()
	c.entries[userID] = adminEntry{record: rec, cachedAt: c.now()}
	c.mu.Unlock()
}

func (c *AdminCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.lastGen++
	c.gens[userID] = c.lastGen
	c.mu.Unlock()
}

// Sweep drops expired entries and returns how many went.
func (c *AdminCache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, e := range c.entries {
		if !c.fresh(e, now) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

func (c *AdminCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *AdminCache) lookup(userID string) (*models.AdminRecord, uint64, bool) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	gen := c.gens[userID]
	c.mu.RUnlock()
	if !ok || !c.fresh(e, c.now()) {
		return nil, gen, false
	}
	return e.record, gen, true
}

func (c *AdminCache) fresh(e adminEntry, now time.Time) bool {
	return now.Sub(e.cachedAt) < c.ttl
}
