package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/maxviazov/contacts-service/internal/model"
	"github.com/maxviazov/contacts-service/internal/repository"
)

// normalizePageNumber treats anything below 1 as the first page.
func normalizePageNumber(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// NewContactPage fills in the page arithmetic for items returned for page number n.
func NewContactPage(n int, items []model.Contact) ContactPage {
	n = normalizePageNumber(n)
	if items == nil {
		items = []model.Contact{}
	}
	return ContactPage{
		Items:    items,
		Page:     n,
		NextPage: n + 1,
		PrevPage: n - 1,
		LastPage: len(items) == 0 && n > 1,
		NoItems:  len(items) == 0 && n == 1,
	}
}

func pageOf(n, size int) repository.Page {
	return repository.PageOf(normalizePageNumber(n), size)
}

func normalizeFields(f model.ContactFields) model.ContactFields {
	return model.ContactFields{
		FileAs:        strings.TrimSpace(f.FileAs),
		GivenName:     strings.TrimSpace(f.GivenName),
		Surname:       strings.TrimSpace(f.Surname),
		JobTitle:      strings.TrimSpace(f.JobTitle),
		Email:         strings.TrimSpace(f.Email),
		MobilePhone:   strings.TrimSpace(f.MobilePhone),
		BusinessPhone: strings.TrimSpace(f.BusinessPhone),
	}
}

// validateFields runs the struct tags of model.ContactFields and reshapes violations into FieldErrors.
// A contact needs at least something to file it under.
func validateFields(v *validator.Validate, f model.ContactFields) error {
	var ferrs []FieldError
	if f.FileAs == "" && f.GivenName == "" && f.Surname == "" {
		ferrs = append(ferrs, FieldError{Field: "FileAs", Message: "one of FileAs, GivenName or Surname is required"})
	}
	if err := v.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			ferrs = append(ferrs, FieldError{Field: fe.Field(), Message: ruleMessage(fe)})
		}
	}
	return NewInvalidInputError(ferrs)
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("length must be <= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q rule", fe.Tag())
	}
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return NewInvalidInputError([]FieldError{{Field: "id", Message: "must not be empty"}})
	}
	return nil
}
