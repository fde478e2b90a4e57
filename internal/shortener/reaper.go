package shortener

import (
	"context"
	"sync"
	"time"
)

// RunReaper starts the background loop that removes expired records. Reads
// already treat expired rows as gone; the reaper just frees the storage and
// returns their codes to circulation. Purged codes get their cache entries
// dropped too.
func (s *Service) RunReaper(ctx context.Context, wg *sync.WaitGroup, interval time.Duration) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.reapOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Service) reapOnce(ctx context.Context) {
	codes, err := s.store.PurgeExpired(ctx, s.nowFunc())
	if err != nil {
		s.logger.Error("reaper failed to purge expired urls", "error", err)
		return
	}
	if len(codes) == 0 {
		return
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, codes...); err != nil {
			s.logger.Error("reaper failed to invalidate cache entries", "error", err)
		}
	}
	s.logger.Info("reaped expired urls", "count", len(codes))
}
