// SPDX-License-Identifier: MPL-2.0

package glibc

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/nodesel/nodesel/pkg/nodeversion"

	"golang.org/x/sync/singleflight"
)

type (
	// Cache holds the process-wide compatibility outcome of each probed runtime.
	// A cell moves from StatusUnknown to a final status once and stays there until Reset.
	// Cache is safe for concurrent use.
	Cache struct {
		prober Prober
		logger *slog.Logger

		mu    sync.RWMutex
		cells map[nodeversion.ID]Status

		group  singleflight.Group
		probes atomic.Int64
	}

	// CacheOption configures a Cache.
	CacheOption func(*Cache)
)

// WithLogger sets the logger used for probe diagnostics.
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCache creates an empty cache backed by prober.
func NewCache(prober Prober, opts ...CacheOption) *Cache {
	c := &Cache{
		prober: prober,
		logger: slog.Default(),
		cells:  make(map[nodeversion.ID]Status),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the compatibility of id, probing on first use. Runtimes that are
// not subject to probing are always compatible.
//
// The probe runs detached from any single caller and is bounded by the prober's
// own timeout, so every caller sees the stored final value. A caller whose ctx
// ends first stops waiting and gets StatusUnknown.
func (c *Cache) Status(ctx context.Context, id nodeversion.ID) Status {
	if !id.Probed() {
		return StatusCompatible
	}
	if s := c.Peek(id); s != StatusUnknown {
		return s
	}
	if ctx.Err() != nil {
		return StatusUnknown
	}

	probeCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(string(id), func() (any, error) {
		// A flight that finished between Peek and DoChan already filled the cell.
		if s := c.Peek(id); s != StatusUnknown {
			return s, nil
		}

		c.probes.Add(1)
		s, err := c.prober.Probe(probeCtx, id)
		if err != nil {
			c.logger.Warn("glibc probe did not complete", "runtime", id, "error", err)
		}
		c.logger.Debug("glibc probe finished", "runtime", id, "status", s)
		return c.store(id, s), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Status)
	case <-ctx.Done():
		return StatusUnknown
	}
}

// Incompatible reports whether id is known not to run against the host C library.
func (c *Cache) Incompatible(ctx context.Context, id nodeversion.ID) bool {
	return c.Status(ctx, id) == StatusIncompatible
}

// Peek returns the cached status of id without probing.
func (c *Cache) Peek(id nodeversion.ID) Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cells[id]
}

// Probes returns how many probes the cache has started.
func (c *Cache) Probes() int64 {
	return c.probes.Load()
}

// Reset clears every cell. Intended for tests and for operators re-running probes.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cells = make(map[nodeversion.ID]Status)
	c.probes.Store(0)
}

// store sets the cell unless another writer got there first, and returns the
// value the cell ends up holding.
func (c *Cache) store(id nodeversion.ID, s Status) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing := c.cells[id]; existing != StatusUnknown {
		return existing
	}
	c.cells[id] = s
	return s
}
