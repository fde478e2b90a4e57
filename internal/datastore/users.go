package datastore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linkmint/linkmint/internal/core"
)

// CreateUser inserts a new account, failing with core.ErrUserExists when the
// username is taken. Same insert-if-absent shape as link reservation.
func (s Store) CreateUser(ctx context.Context, username, email, passwordHash string) (core.User, error) {
	const queryName = "CreateUser"
	start := time.Now()

	rows, err := s.db.Query(ctx, insertUser, pgx.NamedArgs{
		"username":      username,
		"email":         email,
		"password_hash": passwordHash,
	})
	if err != nil {
		s.observe(queryName, start, StatusError)
		return core.User{}, s.storageErr(queryName, err)
	}

	out, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[core.User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.observe(queryName, start, StatusCollision)
			return core.User{}, core.ErrUserExists
		}
		s.observe(queryName, start, StatusError)
		return core.User{}, s.storageErr(queryName, err)
	}

	s.observe(queryName, start, StatusSuccess)
	return out, nil
}

// GetUserByUsername looks an account up for login.
func (s Store) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	const queryName = "GetUserByUsername"
	start := time.Now()

	rows, err := s.db.Query(ctx, getUserByUsername, username)
	if err != nil {
		s.observe(queryName, start, StatusError)
		return core.User{}, s.storageErr(queryName, err)
	}

	out, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[core.User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.observe(queryName, start, StatusSuccess)
			return core.User{}, core.ErrInvalidCredentials
		}
		s.observe(queryName, start, StatusError)
		return core.User{}, s.storageErr(queryName, err)
	}

	s.observe(queryName, start, StatusSuccess)
	return out, nil
}
