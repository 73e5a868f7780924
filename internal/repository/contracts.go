package repository

import (
	"context"

	"github.com/maxviazov/contacts-service/internal/model"
)

// Pinger represents a minimal readiness probe capability.
// I use it to decouple health checks from backend implementation details.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ContactRepository is the contact operations collaborator: one call per handler action.
// Implementations surface the sentinels from errors.go; ErrReauthRequired must never be swallowed.
type ContactRepository interface {
	GetPage(ctx context.Context, p Page) ([]model.Contact, error)
	GetByID(ctx context.Context, id string) (model.Contact, error)
	// Add creates a contact and returns the backend-assigned id.
	Add(ctx context.Context, f model.ContactFields) (string, error)
	Update(ctx context.Context, id string, f model.ContactFields) (model.Contact, error)
	// Delete reports whether a contact was removed. A missing id is ErrNotFound.
	Delete(ctx context.Context, id string) (bool, error)
	// GetAll returns the whole collection, unpaginated.
	GetAll(ctx context.Context) ([]model.Contact, error)
}
