package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrStorageUnavailable marks failures of the backing store itself (lost
// connection, timeout, closed pool) as opposed to domain outcomes.
var ErrStorageUnavailable = errors.New("storage unavailable")

const uniqueViolation = "23505"

// Classify maps driver errors onto the storage error kinds. Errors that are
// already classified, or that carry a Postgres error other than a unique
// violation, are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrStorageUnavailable):
		return err
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, redis.Nil):
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, pgErr.ConstraintName)
		}
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// Constraint reports the violated constraint name for an ErrAlreadyExists
// produced by Classify from a Postgres error.
func Constraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
