// Package contract holds behaviour suites every ContactRepository backend must pass.
package contract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/maxviazov/contacts-service/internal/model"
	"github.com/maxviazov/contacts-service/internal/repository"
)

// ContactFactory returns a repository over an empty collection and its cleanup.
type ContactFactory func(t *testing.T) (repository.ContactRepository, func())

func sample(n int) model.ContactFields {
	return model.ContactFields{
		FileAs:        fmt.Sprintf("Person %02d", n),
		GivenName:     "Given",
		Surname:       fmt.Sprintf("Surname%02d", n),
		JobTitle:      "Engineer",
		Email:         fmt.Sprintf("person%02d@example.com", n),
		MobilePhone:   "+1 555 0100",
		BusinessPhone: "+1 555 0199",
	}
}

func RunContactRepositoryContract(t *testing.T, makeRepo ContactFactory) {
	t.Helper()

	t.Run("add_and_get", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		id, err := repo.Add(ctx, sample(1))
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if id == "" {
			t.Fatalf("add returned empty id")
		}
		got, err := repo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.ID != id || got.Fields() != sample(1) {
			t.Fatalf("mismatch: %+v", got)
		}
	})

	t.Run("get_not_found", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		_, err := repo.GetByID(context.Background(), "missing-contact")
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("update_replaces_fields", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		id, err := repo.Add(ctx, sample(2))
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		changed := sample(2)
		changed.JobTitle = "Manager"
		changed.Email = ""
		updated, err := repo.Update(ctx, id, changed)
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if updated.ID != id || updated.JobTitle != "Manager" || updated.Email != "" {
			t.Fatalf("unexpected update result: %+v", updated)
		}
		got, err := repo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Fields() != changed {
			t.Fatalf("update not persisted: %+v", got)
		}
	})

	t.Run("update_not_found", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		_, err := repo.Update(context.Background(), "missing-contact", sample(3))
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		id, err := repo.Add(ctx, sample(4))
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		ok, err := repo.Delete(ctx, id)
		if err != nil || !ok {
			t.Fatalf("delete failed: ok=%v err=%v", ok, err)
		}
		if _, err := repo.GetByID(ctx, id); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		ok, err = repo.Delete(ctx, id)
		if ok || !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("second delete: ok=%v err=%v", ok, err)
		}
	})

	t.Run("page_windows", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		for i := 0; i < 12; i++ {
			if _, err := repo.Add(ctx, sample(i)); err != nil {
				t.Fatalf("seed: %v", err)
			}
		}
		seen := map[string]bool{}
		for number, want := range map[int]int{1: 5, 2: 5, 3: 2, 4: 0} {
			items, err := repo.GetPage(ctx, repository.PageOf(number, 5))
			if err != nil {
				t.Fatalf("page %d: %v", number, err)
			}
			if len(items) != want {
				t.Fatalf("page %d: expected %d items, got %d", number, want, len(items))
			}
			for _, c := range items {
				if seen[c.ID] {
					t.Fatalf("contact %s returned on two pages", c.ID)
				}
				seen[c.ID] = true
			}
		}
		if len(seen) != 12 {
			t.Fatalf("expected 12 distinct contacts across pages, got %d", len(seen))
		}
	})

	t.Run("get_all", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		all, err := repo.GetAll(ctx)
		if err != nil {
			t.Fatalf("get all on empty: %v", err)
		}
		if len(all) != 0 {
			t.Fatalf("expected empty collection, got %d", len(all))
		}
		for i := 0; i < 7; i++ {
			if _, err := repo.Add(ctx, sample(i)); err != nil {
				t.Fatalf("seed: %v", err)
			}
		}
		all, err = repo.GetAll(ctx)
		if err != nil {
			t.Fatalf("get all: %v", err)
		}
		if len(all) != 7 {
			t.Fatalf("expected 7 contacts, got %d", len(all))
		}
	})
}
