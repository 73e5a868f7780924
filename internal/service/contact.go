package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/maxviazov/contacts-service/internal/model"
	"github.com/maxviazov/contacts-service/internal/repository"
	"github.com/rs/zerolog"
)

// DefaultPageSize is the number of contacts shown on one list page.
const DefaultPageSize = 10

// contactService holds contact use-case logic: validation + orchestration, no transport / wire details.
type contactService struct {
	repo     repository.ContactRepository
	pageSize int
	validate *validator.Validate
	log      zerolog.Logger
}

func NewContactService(repo repository.ContactRepository, pageSize int, logger zerolog.Logger) ContactService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	l := logger.With().Str("module", "service").Str("component", "contact").Logger()
	return &contactService{repo: repo, pageSize: pageSize, validate: validator.New(), log: l}
}

// ListContacts fetches page n. On error the returned page still carries the page numbers,
// so a caller that absorbs the failure can render navigation around an empty list.
func (s *contactService) ListContacts(ctx context.Context, n int) (ContactPage, error) {
	n = normalizePageNumber(n)
	if last := repository.MaxPageNumber(s.pageSize); n > last {
		// no backend can hold that many pages; render the empty last page
		return NewContactPage(last+1, nil), nil
	}
	p := pageOf(n, s.pageSize)
	items, err := s.repo.GetPage(ctx, p)
	if err != nil {
		s.log.Error().Err(err).Int("page", n).Int("limit", p.Limit).Int("offset", p.Offset).Msg("list contacts failed")
		return ContactPage{Items: []model.Contact{}, Page: n, NextPage: n + 1, PrevPage: n - 1}, err
	}
	return NewContactPage(n, items), nil
}

func (s *contactService) GetContact(ctx context.Context, id string) (model.Contact, error) {
	if err := validateID(id); err != nil {
		return model.Contact{}, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *contactService) CreateContact(ctx context.Context, f model.ContactFields) (string, error) {
	start := time.Now()
	f = normalizeFields(f)
	if err := validateFields(s.validate, f); err != nil {
		s.log.Debug().Interface("field_errors", FieldErrors(err)).Msg("contact validation failed")
		return "", err
	}

	id, err := s.repo.Add(ctx, f)
	if err != nil {
		// Backend surfaces domain-level errors already, do not wrap.
		s.log.Error().Err(err).Msg("create contact failed")
		return "", err
	}
	s.log.Info().Dur("took", time.Since(start)).Str("contact_id", id).Msg("contact created")
	return id, nil
}

func (s *contactService) UpdateContact(ctx context.Context, id string, f model.ContactFields) (model.Contact, error) {
	start := time.Now()
	if err := validateID(id); err != nil {
		return model.Contact{}, err
	}
	f = normalizeFields(f)
	if err := validateFields(s.validate, f); err != nil {
		s.log.Debug().Str("contact_id", id).Interface("field_errors", FieldErrors(err)).Msg("contact validation failed")
		return model.Contact{}, err
	}

	out, err := s.repo.Update(ctx, id, f)
	if err != nil {
		s.log.Error().Err(err).Str("contact_id", id).Msg("update contact failed")
		return model.Contact{}, err
	}
	s.log.Info().Dur("took", time.Since(start)).Str("contact_id", id).Msg("contact updated")
	return out, nil
}

func (s *contactService) DeleteContact(ctx context.Context, id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("contact_id", id).Msg("delete contact failed")
		return false, err
	}
	s.log.Info().Str("contact_id", id).Bool("deleted", ok).Msg("contact deleted")
	return ok, nil
}

func (s *contactService) AllContacts(ctx context.Context) ([]model.Contact, error) {
	items, err := s.repo.GetAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("get all contacts failed")
		return []model.Contact{}, err
	}
	if items == nil {
		items = []model.Contact{}
	}
	return items, nil
}
