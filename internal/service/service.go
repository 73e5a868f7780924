// Package service holds contact use cases between handlers and the contacts backend.
// Kept intentionally lean: page arithmetic, field normalisation, validation and outcome classification.
package service

import (
	"context"
	"errors"

	"github.com/maxviazov/contacts-service/internal/model"
)

// ErrInvalidInput is the marker error for aggregated validation failures (maps to HTTP 400).
// Field-level details are retrieved via FieldErrors(err).
var ErrInvalidInput = errors.New("invalid input")

// FieldError describes a single invalid field in a client request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// invalidInputError aggregates multiple FieldError instances and unwraps to ErrInvalidInput.
type invalidInputError struct {
	fields []FieldError
}

func (e *invalidInputError) Error() string        { return ErrInvalidInput.Error() }
func (e *invalidInputError) Unwrap() error        { return ErrInvalidInput }
func (e *invalidInputError) Fields() []FieldError { return e.fields }

// NewInvalidInputError builds an aggregated validation error; nil when fe is empty.
func NewInvalidInputError(fe []FieldError) error {
	if len(fe) == 0 {
		return nil
	}
	return &invalidInputError{fields: fe}
}

// FieldErrors extracts field errors from an aggregated validation error.
func FieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}
	type feIface interface{ Fields() []FieldError }
	var v feIface
	if errors.As(err, &v) && errors.Is(err, ErrInvalidInput) {
		return v.Fields()
	}
	return nil
}

// ContactPage is one rendered page of the contact list.
type ContactPage struct {
	Items    []model.Contact `json:"items"`
	Page     int             `json:"page"`
	NextPage int             `json:"next_page"`
	PrevPage int             `json:"prev_page"`
	// LastPage is set when a page past the first comes back empty.
	LastPage bool `json:"last_page"`
	// NoItems is set when the first page comes back empty.
	NoItems bool `json:"no_items"`
}

// ContactService defines contact use cases. Each method makes at most one backend call.
type ContactService interface {
	ListContacts(ctx context.Context, page int) (ContactPage, error)
	GetContact(ctx context.Context, id string) (model.Contact, error)
	CreateContact(ctx context.Context, f model.ContactFields) (string, error)
	UpdateContact(ctx context.Context, id string, f model.ContactFields) (model.Contact, error)
	DeleteContact(ctx context.Context, id string) (bool, error)
	AllContacts(ctx context.Context) ([]model.Contact, error)
}
