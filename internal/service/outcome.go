package service

import (
	"errors"

	"github.com/maxviazov/contacts-service/internal/repository"
)

// Outcome is the handler-facing result kind of a contact operation.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeFailed is any failure the UI absorbs into its failure status.
	OutcomeFailed
	// OutcomeReauthRequired must reach the auth middleware untouched.
	OutcomeReauthRequired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeFailed:
		return "failed"
	case OutcomeReauthRequired:
		return "reauth_required"
	default:
		return "unknown"
	}
}

// Classify maps an operation error to its outcome.
// Everything that is not a credential problem lands in OutcomeFailed, programming errors included.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, repository.ErrReauthRequired):
		return OutcomeReauthRequired
	default:
		return OutcomeFailed
	}
}
