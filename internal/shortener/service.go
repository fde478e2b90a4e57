// Package shortener implements the shortening and redirection engine: code
// reservation, alias arbitration, the cached resolve path and record
// lifecycle. Transport and persistence stay outside.
package shortener

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/linkmint/linkmint/internal/cachestore"
	"github.com/linkmint/linkmint/internal/core"
	"github.com/linkmint/linkmint/internal/datastore"
)

const (
	// maxReserveRetries is the number of fresh random codes tried before the
	// code space is declared saturated.
	maxReserveRetries = 5
	// cacheFillTimeout bounds background cache writes.
	cacheFillTimeout = 2 * time.Second
)

// LinkStore is the slice of the datastore the service drives. Reserve must
// be atomic insert-if-absent and fail with datastore.ErrCodeExists on a
// taken code.
type LinkStore interface {
	Reserve(ctx context.Context, link core.Link) (core.Link, error)
	GetLink(ctx context.Context, shortCode string) (core.Link, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]core.Link, error)
	DeleteLink(ctx context.Context, shortCode string, ownerID int64) error
	PurgeExpired(ctx context.Context, now time.Time) ([]string, error)
}

// LinkCache is the read-path cache. A miss is reported as redis.Nil.
type LinkCache interface {
	GetLink(ctx context.Context, shortCode string) (cachestore.Entry, error)
	SetLink(ctx context.Context, shortCode, originalURL string, expiresAt, now time.Time) error
	Invalidate(ctx context.Context, shortCodes ...string) error
}

// ClickRecorder registers visits without blocking the caller.
type ClickRecorder interface {
	Record(ctx context.Context, shortCode string)
}

// ShortenRequest carries the validated-later inputs of a shorten call.
type ShortenRequest struct {
	OriginalURL    string
	CustomAlias    string
	ExpirationDate *time.Time
	ExpiresInDays  *int
}

// Service wires validation, reservation, resolution and cleanup together.
// The cache may be nil; everything then runs against the store alone.
type Service struct {
	store           LinkStore
	cache           LinkCache
	clicks          ClickRecorder
	logger          *slog.Logger
	reservedAliases []string
	nowFunc         func() time.Time

	// resolveGroup dedupes concurrent store reads for the same missing
	// cache key.
	resolveGroup singleflight.Group
}

func NewService(logger *slog.Logger, store LinkStore, cache LinkCache, clicks ClickRecorder, reservedAliases []string) *Service {
	return &Service{
		store:           store,
		cache:           cache,
		clicks:          clicks,
		logger:          logger,
		reservedAliases: reservedAliases,
		nowFunc:         time.Now,
	}
}

// Shorten validates the request, reserves a code (the custom alias, or a
// fresh random one) and returns the stored record. Validation failures
// happen before any store mutation.
func (s *Service) Shorten(ctx context.Context, ownerID int64, req ShortenRequest) (core.Link, error) {
	originalURL, err := core.ValidateURL(req.OriginalURL)
	if err != nil {
		return core.Link{}, err
	}

	now := s.nowFunc()
	expiresAt, err := core.ComputeExpiry(now, req.ExpirationDate, req.ExpiresInDays)
	if err != nil {
		return core.Link{}, err
	}

	link := core.Link{
		OwnerID:     ownerID,
		OriginalURL: originalURL,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}

	if req.CustomAlias != "" {
		if err := core.ValidateAlias(req.CustomAlias, s.reservedAliases); err != nil {
			return core.Link{}, err
		}
		link.ShortCode = req.CustomAlias
		stored, err := s.store.Reserve(ctx, link)
		if err != nil {
			if errors.Is(err, datastore.ErrCodeExists) {
				// Exactly one of the racing callers wins the alias; this one lost.
				return core.Link{}, core.ErrAliasTaken
			}
			return core.Link{}, err
		}
		s.fillCache(ctx, stored)
		return stored, nil
	}

	for i := 0; i < maxReserveRetries; i++ {
		code, err := core.GenerateShortCode()
		if err != nil {
			return core.Link{}, err
		}
		link.ShortCode = code

		stored, err := s.store.Reserve(ctx, link)
		if err == nil {
			s.fillCache(ctx, stored)
			return stored, nil
		}
		if !errors.Is(err, datastore.ErrCodeExists) {
			return core.Link{}, err
		}
		s.logger.Info("collision detected, generating a new short code", "short_code", code)
	}

	// Five straight random collisions means the code space is effectively
	// saturated. Operational alarm, not a user mistake.
	return core.Link{}, core.ErrCapacityExhausted
}

// Resolve maps a short code to its destination. A cache hit is validated
// against the cached expiry without touching the store; a miss reads the
// store once per concurrently-missing code and backfills the cache. Every
// successful resolve registers a click off the critical path.
func (s *Service) Resolve(ctx context.Context, shortCode string) (string, error) {
	now := s.nowFunc()

	if s.cache != nil {
		entry, err := s.cache.GetLink(ctx, shortCode)
		switch {
		case err == nil:
			if !entry.ExpiresAt.After(now) {
				// Record still retained but past expiry.
				return "", core.ErrGone
			}
			s.recordClick(ctx, shortCode)
			return entry.OriginalURL, nil
		case !errors.Is(err, redis.Nil):
			s.logger.Warn("cache lookup failed, falling back to database", "short_code", shortCode, "error", err)
		}
	}

	v, err, _ := s.resolveGroup.Do(shortCode, func() (interface{}, error) {
		return s.store.GetLink(ctx, shortCode)
	})
	if err != nil {
		return "", err
	}
	link := v.(core.Link)

	if core.IsExpired(link, now) {
		return "", core.ErrGone
	}

	s.fillCache(ctx, link)
	s.recordClick(ctx, shortCode)
	return link.OriginalURL, nil
}

// GetLink returns the record for a code regardless of expiry. Callers decide
// how to present expiry status.
func (s *Service) GetLink(ctx context.Context, shortCode string) (core.Link, error) {
	return s.store.GetLink(ctx, shortCode)
}

// ListByOwner returns the owner's records, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]core.Link, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// Delete removes the record if the caller owns it and drops the cache entry
// so the deletion becomes visible to resolvers immediately.
func (s *Service) Delete(ctx context.Context, shortCode string, ownerID int64) error {
	if err := s.store.DeleteLink(ctx, shortCode, ownerID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, shortCode); err != nil {
			s.logger.Error("failed to invalidate cache after delete", "short_code", shortCode, "error", err)
		}
	}
	return nil
}

// fillCache populates the cache in the background so neither the shorten
// nor the resolve path waits on redis.
func (s *Service) fillCache(ctx context.Context, link core.Link) {
	if s.cache == nil {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheFillTimeout)
		defer cancel()
		if err := s.cache.SetLink(bgCtx, link.ShortCode, link.OriginalURL, link.ExpiresAt, s.nowFunc()); err != nil {
			s.logger.Error("failed to update cache in background", "short_code", link.ShortCode, "error", err)
		}
	}()
}

func (s *Service) recordClick(ctx context.Context, shortCode string) {
	if s.clicks != nil {
		s.clicks.Record(ctx, shortCode)
	}
}
