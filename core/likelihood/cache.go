package likelihood

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"bifa-core/model"
)

// Source supplies likelihood tables by binder identity.
type Source interface {
	Likelihoods(id model.BinderID) (*Tables, error)
}

// Builder computes the tables for one binder. Returning (nil, nil) means the
// binder has no tables.
type Builder func(id model.BinderID) (*Tables, error)

// Static is a fixed Source; unknown binders yield *model.MissingLikelihoodsError.
type Static map[model.BinderID]*Tables

func (s Static) Likelihoods(id model.BinderID) (*Tables, error) {
	if t, ok := s[id]; ok && t != nil {
		return t, nil
	}
	return nil, &model.MissingLikelihoodsError{Binder: id}
}

type entry struct {
	tables *Tables
	err    error
}

// Cache is a memoising Source. Each key is built at most once, even under
// concurrent lookups; failures are remembered as well.
type Cache struct {
	build Builder

	mu      sync.RWMutex
	entries map[model.BinderID]entry

	group  singleflight.Group
	sem    *semaphore.Weighted // nil if unlimited
	builds atomic.Int64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithMaxConcurrentBuilds bounds how many distinct binders are built at once.
// n <= 0 means unlimited.
func WithMaxConcurrentBuilds(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// NewCache returns a Cache populated lazily by build.
func NewCache(build Builder, opts ...CacheOption) *Cache {
	c := &Cache{build: build, entries: make(map[model.BinderID]entry)}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Store pre-populates tables for id, replacing nothing that is already cached.
func (c *Cache) Store(id model.BinderID, t *Tables) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok {
		c.entries[id] = entry{tables: t}
	}
}

func (c *Cache) lookup(id model.BinderID) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

// Likelihoods returns the tables for id, building them on first use.
func (c *Cache) Likelihoods(id model.BinderID) (*Tables, error) {
	if e, ok := c.lookup(id); ok {
		return e.tables, e.err
	}
	v, _, _ := c.group.Do(strconv.FormatUint(uint64(id), 10), func() (any, error) {
		// A caller that lost the race to the map read above must not rebuild.
		if e, ok := c.lookup(id); ok {
			return e, nil
		}
		e := c.compute(id)
		c.mu.Lock()
		c.entries[id] = e
		c.mu.Unlock()
		return e, nil
	})
	e := v.(entry)
	return e.tables, e.err
}

func (c *Cache) compute(id model.BinderID) entry {
	if c.build == nil {
		return entry{err: &model.MissingLikelihoodsError{Binder: id}}
	}
	c.builds.Add(1)
	if c.sem != nil {
		// Background never cancels, so Acquire cannot fail.
		_ = c.sem.Acquire(context.Background(), 1)
		defer c.sem.Release(1)
	}
	t, err := c.build(id)
	if err != nil {
		return entry{err: err}
	}
	if t == nil || t.Background == nil || t.Binding == nil {
		return entry{err: &model.MissingLikelihoodsError{Binder: id}}
	}
	return entry{tables: t}
}

// Len returns the number of cached keys, failures included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Builds returns how many times the builder has been invoked.
func (c *Cache) Builds() int64 { return c.builds.Load() }

// PSSMBuilder builds tables from the matrix returned by lookup.
func PSSMBuilder(lookup func(model.BinderID) *model.PSSM, resolution int) Builder {
	return func(id model.BinderID) (*Tables, error) {
		p := lookup(id)
		if p == nil {
			return nil, nil
		}
		return Build(p, resolution)
	}
}
