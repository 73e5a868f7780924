package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Domain-level errors I prefer to bubble up from backend implementations.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrConflict      = errors.New("conflict")
	// ErrReauthRequired means the caller's credential is stale or insufficient.
	// It is never absorbed by handlers; the auth middleware deals with it.
	ErrReauthRequired = errors.New("reauthentication required")
	// ErrUnavailable means the backend refused the call without trying (open circuit).
	ErrUnavailable = errors.New("contacts backend unavailable")
)

// MapPgError translates common Postgres error codes to domain errors.
// I only map what I expect to handle explicitly at higher layers; everything else passes through.
func MapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return ErrAlreadyExists
		case pgerrcode.ForeignKeyViolation, pgerrcode.SerializationFailure:
			return ErrConflict
		case pgerrcode.InsufficientPrivilege, pgerrcode.InvalidPassword, pgerrcode.InvalidAuthorizationSpecification:
			return ErrReauthRequired
		}
	}
	return err
}
