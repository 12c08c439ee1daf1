// Package resource caches the three server-side catalogs (automations,
// users, sectors) and routes every write through invalidation.
//
// A catalog is only ever replaced wholesale by a fresh fetch. Mutations
// never patch cached entries; on success they drop the collection so the
// next read goes back to the server.
package resource

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads a full collection from the server.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Collection is a cached, read-shared list of T.
//
// Concurrent readers of an uncached or refreshing collection share one
// in-flight fetch. Each Invalidate starts a new generation; a fetch that
// began under an older generation never writes to the cache.
type Collection[T any] struct {
	name   string
	fetch  FetchFunc[T]
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	flight singleflight.Group

	mu        sync.Mutex
	items     []T
	loaded    bool
	fetchedAt time.Time
	gen       uint64
	fetches   int
	// refreshing is set while a background refresh is pending.
	refreshing bool
}

// NewCollection creates an empty collection. ttl <= 0 means entries never
// go stale on their own.
func NewCollection[T any](name string, fetch FetchFunc[T], ttl time.Duration, logger *slog.Logger) *Collection[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collection[T]{
		name:   name,
		fetch:  fetch,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Name identifies the collection in logs and errors.
func (c *Collection[T]) Name() string { return c.name }

// List returns the last-known collection. An uncached collection blocks on
// a fetch. A stale one is returned as is while a refresh runs in the
// background.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	if c.loaded {
		items := slices.Clone(c.items)
		stale := c.ttl > 0 && c.now().Sub(c.fetchedAt) >= c.ttl && !c.refreshing
		if stale {
			c.refreshing = true
		}
		c.mu.Unlock()
		if stale {
			go c.refreshInBackground()
		}
		return items, nil
	}
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Refresh fetches the collection now, joining a fetch already in flight
// for the current generation. Cancelling ctx abandons the wait but not the
// shared fetch.
func (c *Collection[T]) Refresh(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	ch := c.flight.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return c.load(context.WithoutCancel(ctx), gen)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]T)), nil
	}
}

func (c *Collection[T]) load(ctx context.Context, gen uint64) ([]T, error) {
	c.mu.Lock()
	c.fetches++
	c.mu.Unlock()

	items, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		c.logger.Debug("discarding fetch from before invalidation", "collection", c.name)
		return items, nil
	}
	c.items = items
	c.loaded = true
	c.fetchedAt = c.now()
	return items, nil
}

func (c *Collection[T]) refreshInBackground() {
	defer func() {
		c.mu.Lock()
		c.refreshing = false
		c.mu.Unlock()
	}()
	if _, err := c.Refresh(context.Background()); err != nil {
		c.logger.Warn("background refresh failed", "collection", c.name, "error", err)
	}
}

// Invalidate drops the cached collection so the next List fetches again.
func (c *Collection[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.items = nil
	c.loaded = false
}

// Peek returns the cached collection without fetching.
func (c *Collection[T]) Peek() ([]T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return nil, false
	}
	return slices.Clone(c.items), true
}

// Loaded reports whether the collection is cached.
func (c *Collection[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Fetches returns how many server fetches the collection has started.
func (c *Collection[T]) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}
