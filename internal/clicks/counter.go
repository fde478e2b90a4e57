// Package clicks decouples click accounting from the redirect hot path.
// Redirect handlers enqueue a code and move on; a single worker folds the
// pending counts into the store in batches.
package clicks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/linkmint/linkmint/internal/config"
	"github.com/linkmint/linkmint/internal/core"
)

// Store is the slice of the datastore the counter needs.
type Store interface {
	AddClicks(ctx context.Context, shortCode string, n int64) error
}

// syncFallbackTimeout bounds the store call made on the caller's goroutine
// when the buffer is saturated.
const syncFallbackTimeout = 2 * time.Second

// Counter buffers click events and flushes per-code totals to the store
// either every FlushInterval or once FlushBatch events are pending,
// whichever comes first. Durable counts therefore trail redirects by at
// most one flush window. Increments are never dropped: when the buffer is
// full, Record degrades to a synchronous store increment.
type Counter struct {
	store  Store
	logger *slog.Logger
	cfg    config.Clicks
	events chan string
}

func NewCounter(logger *slog.Logger, store Store, cfg config.Clicks) *Counter {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.FlushBatch <= 0 {
		cfg.FlushBatch = 64
	}
	return &Counter{
		store:  store,
		logger: logger,
		cfg:    cfg,
		events: make(chan string, cfg.BufferSize),
	}
}

// Record registers one click for the code. It does not block on storage:
// the event goes into the buffer, and only when the buffer is saturated
// does the caller pay for a direct store increment.
func (c *Counter) Record(ctx context.Context, shortCode string) {
	select {
	case c.events <- shortCode:
	default:
		// Buffer full. Degrade to a synchronous increment rather than drop.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), syncFallbackTimeout)
		defer cancel()
		if err := c.store.AddClicks(ctx, shortCode, 1); err != nil && !errors.Is(err, core.ErrNotFound) {
			c.logger.Error("click counter fallback increment failed", "short_code", shortCode, "error", err)
		}
	}
}

// Run consumes the buffer until ctx is done, then drains what is left and
// performs a final flush.
func (c *Counter) Run(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(c.cfg.FlushInterval)
		defer ticker.Stop()

		pending := make(map[string]int64)
		pendingTotal := 0

		for {
			select {
			case code := <-c.events:
				pending[code]++
				pendingTotal++
				if pendingTotal >= c.cfg.FlushBatch {
					c.flush(ctx, pending)
					pendingTotal = c.pendingTotal(pending)
				}
			case <-ticker.C:
				c.flush(ctx, pending)
				pendingTotal = c.pendingTotal(pending)
			case <-ctx.Done():
				c.drain(pending)
				flushCtx, cancel := context.WithTimeout(context.Background(), syncFallbackTimeout)
				c.flush(flushCtx, pending)
				cancel()
				if len(pending) > 0 {
					c.logger.Warn("click counter shut down with unflushed clicks", "codes", len(pending))
				}
				return
			}
		}
	}()
}

// flush writes pending totals to the store. Counts for codes that failed
// with a storage error stay pending and ride along into the next flush;
// counts for deleted codes are discarded.
func (c *Counter) flush(ctx context.Context, pending map[string]int64) {
	for code, n := range pending {
		err := c.store.AddClicks(ctx, code, n)
		switch {
		case err == nil, errors.Is(err, core.ErrNotFound):
			delete(pending, code)
		default:
			c.logger.Error("click flush failed, will retry", "short_code", code, "count", n, "error", err)
		}
	}
}

// drain empties whatever is still buffered without blocking.
func (c *Counter) drain(pending map[string]int64) {
	for {
		select {
		case code := <-c.events:
			pending[code]++
		default:
			return
		}
	}
}

func (c *Counter) pendingTotal(pending map[string]int64) int {
	total := 0
	for _, n := range pending {
		total += int(n)
	}
	return total
}
