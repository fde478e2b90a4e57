package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/linkmint/linkmint/internal/core"
)

// ErrCodeExists signals a short code reservation conflict. Callers decide
// whether that means "retry with a new code" or "alias taken".
var ErrCodeExists = errors.New("short code already exists")

// dbConnectTimeout is the timeout for establishing a database connection.
const dbConnectTimeout = 15 * time.Second

// Store is the sole owner of link and user records. All mutations of the
// urls table go through it; the single-statement reservation below is what
// the whole uniqueness invariant rests on.
type Store struct {
	db      *pgxpool.Pool
	logger  *slog.Logger
	metrics Metrics
}

// NewStore establishes a database connection, runs migrations and returns
// a new Store.
func NewStore(ctx context.Context, logger *slog.Logger, dbConnStr string) (Store, error) {
	ctx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
	defer cancel()

	db, err := pgxpool.New(ctx, dbConnStr)
	if err != nil {
		return Store{}, fmt.Errorf("store: failed to create connection pool: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(dbConnStr)
	if err != nil {
		db.Close()
		return Store{}, fmt.Errorf("store: failed to parse db config for metrics: %w", err)
	}

	metrics, err := NewMetrics(db, poolCfg.ConnConfig.Database)
	if err != nil {
		db.Close()
		return Store{}, fmt.Errorf("store: failed to register db metrics: %w", err)
	}

	store := Store{
		db:      db,
		logger:  logger,
		metrics: metrics,
	}

	if pingErr := store.Ping(ctx); pingErr != nil {
		db.Close()
		return Store{}, pingErr
	}

	if migrErr := runMigrations(dbConnStr); migrErr != nil {
		db.Close()
		return Store{}, fmt.Errorf("store: failed to run migrations: %w", migrErr)
	}
	logger.Info("successfully connected to db", "addr", dbConnStr)

	return store, nil
}

func runMigrations(connStr string) (err error) {
	migrationDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("store: failed to open migration db: %w", err)
	}
	defer func() {
		err = errors.Join(err, migrationDB.Close())
	}()

	driver, err := pgxv5.WithInstance(migrationDB, &pgxv5.Config{})
	if err != nil {
		return fmt.Errorf("store: failed to create migrate driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(
		"file://.migrations",
		"pgx",
		driver,
	)
	if err != nil {
		return fmt.Errorf("store: failed to create migrate instance: %w", err)
	}
	if runErr := m.Up(); runErr != nil && !errors.Is(runErr, migrate.ErrNoChange) {
		return fmt.Errorf("store: failed to run migrations: %w", runErr)
	}
	return nil
}

// Ping loops until the connection is confirmed or the context ends.
func (s Store) Ping(ctx context.Context) error {
	ticker := time.NewTicker(time.Second * 1)
	defer ticker.Stop()

	for {
		err := s.db.Ping(ctx)
		if err == nil {
			break // Ping successful.
		}

		s.logger.Warn("unable to establish connection, retrying...", "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("db connection timed out or was cancelled: %w (last error: %v)", ctx.Err(), err)
		case <-ticker.C:
		}
	}
	return nil
}

// Reserve atomically creates the record if its short code is free. Exactly
// one of N racing callers succeeds; the rest get ErrCodeExists. The conflict
// target also covers expired-but-retained rows, so a code is never reissued
// while any record still holds it.
func (s Store) Reserve(ctx context.Context, link core.Link) (core.Link, error) {
	const queryName = "Reserve"
	start := time.Now()

	rows, err := s.db.Query(ctx, reserveLink, pgx.NamedArgs{
		"owner_id":     link.OwnerID,
		"short_code":   link.ShortCode,
		"original_url": link.OriginalURL,
		"created_at":   link.CreatedAt,
		"expires_at":   link.ExpiresAt,
	})
	if err != nil {
		s.observe(queryName, start, StatusError)
		return core.Link{}, s.storageErr(queryName, err)
	}

	out, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[core.Link])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The conflict clause swallowed the insert: the code is taken.
			s.observe(queryName, start, StatusCollision)
			return core.Link{}, ErrCodeExists
		}
		s.observe(queryName, start, StatusError)
		return core.Link{}, s.storageErr(queryName, err)
	}

	s.observe(queryName, start, StatusSuccess)
	return out, nil
}

// GetLink retrieves the record for a short code, expired ones included.
func (s Store) GetLink(ctx context.Context, shortCode string) (core.Link, error) {
	const queryName = "GetLink"
	start := time.Now()

	rows, err := s.db.Query(ctx, getLink, shortCode)
	if err != nil {
		s.observe(queryName, start, StatusError)
		return core.Link{}, s.storageErr(queryName, err)
	}

	out, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[core.Link])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The query was successful but found no rows. This is not a DB error.
			s.observe(queryName, start, StatusSuccess)
			return core.Link{}, core.ErrNotFound
		}
		s.observe(queryName, start, StatusError)
		return core.Link{}, s.storageErr(queryName, err)
	}

	s.observe(queryName, start, StatusSuccess)
	return out, nil
}

// ListByOwner returns the owner's records, newest first.
func (s Store) ListByOwner(ctx context.Context, ownerID int64) ([]core.Link, error) {
	const queryName = "ListByOwner"
	start := time.Now()

	rows, err := s.db.Query(ctx, listLinksByOwner, ownerID)
	if err != nil {
		s.observe(queryName, start, StatusError)
		return nil, s.storageErr(queryName, err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[core.Link])
	if err != nil {
		s.observe(queryName, start, StatusError)
		return nil, s.storageErr(queryName, err)
	}

	s.observe(queryName, start, StatusSuccess)
	return out, nil
}

// DeleteLink removes a record if the caller owns it. It distinguishes an
// unknown code from someone else's code.
func (s Store) DeleteLink(ctx context.Context, shortCode string, ownerID int64) error {
	const queryName = "DeleteLink"
	start := time.Now()

	tag, err := s.db.Exec(ctx, deleteLink, shortCode, ownerID)
	if err != nil {
		s.observe(queryName, start, StatusError)
		return s.storageErr(queryName, err)
	}
	if tag.RowsAffected() > 0 {
		s.observe(queryName, start, StatusSuccess)
		return nil
	}

	// Nothing deleted: either the code does not exist or the owner differs.
	rows, err := s.db.Query(ctx, linkOwner, shortCode)
	if err != nil {
		s.observe(queryName, start, StatusError)
		return s.storageErr(queryName, err)
	}
	if _, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int64]); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.observe(queryName, start, StatusSuccess)
			return core.ErrNotFound
		}
		s.observe(queryName, start, StatusError)
		return s.storageErr(queryName, err)
	}

	s.observe(queryName, start, StatusSuccess)
	return core.ErrForbidden
}

// AddClicks folds n visits into a record's click count. A single relative
// UPDATE, so concurrent callers never lose increments.
func (s Store) AddClicks(ctx context.Context, shortCode string, n int64) error {
	const queryName = "AddClicks"
	start := time.Now()

	tag, err := s.db.Exec(ctx, addClicks, shortCode, n)
	if err != nil {
		s.observe(queryName, start, StatusError)
		return s.storageErr(queryName, err)
	}
	s.observe(queryName, start, StatusSuccess)
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// PurgeExpired deletes records whose expiry has passed and returns their
// short codes so callers can drop matching cache entries.
func (s Store) PurgeExpired(ctx context.Context, now time.Time) ([]string, error) {
	const queryName = "PurgeExpired"
	start := time.Now()

	rows, err := s.db.Query(ctx, purgeExpired, now)
	if err != nil {
		s.observe(queryName, start, StatusError)
		return nil, s.storageErr(queryName, err)
	}

	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		s.observe(queryName, start, StatusError)
		return nil, s.storageErr(queryName, err)
	}

	s.observe(queryName, start, StatusSuccess)
	return codes, nil
}

func (s Store) observe(queryName string, start time.Time, status string) {
	s.metrics.QueryDuration.WithLabelValues(queryName).Observe(time.Since(start).Seconds())
	s.metrics.QueryTotal.WithLabelValues(queryName, status).Inc()
}

func (s Store) storageErr(queryName string, err error) error {
	return fmt.Errorf("store: %s: %w (%v)", queryName, core.ErrStorageUnavailable, err)
}

func (s Store) Close() {
	s.db.Close()
}
