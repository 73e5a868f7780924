package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/maxviazov/contacts-service/internal/model"
	"github.com/maxviazov/contacts-service/internal/repository"
)

const contactColumns = `id, file_as, given_name, surname, job_title, email, mobile_phone, business_phone`

type contactRepository struct{ pool *pgxpool.Pool }

// NewContactRepository is the local contacts backend, used when contacts.backend=postgres.
func NewContactRepository(pool *pgxpool.Pool) repository.ContactRepository {
	return &contactRepository{pool: pool}
}

func scanContact(row pgx.Row) (model.Contact, error) {
	var c model.Contact
	err := row.Scan(&c.ID, &c.FileAs, &c.GivenName, &c.Surname, &c.JobTitle, &c.Email, &c.MobilePhone, &c.BusinessPhone)
	return c, err
}

func (r *contactRepository) collect(ctx context.Context, sql string, args ...any) ([]model.Contact, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	defer rows.Close()
	out := make([]model.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, repository.MapPgError(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.MapPgError(err)
	}
	return out, nil
}

func (r *contactRepository) GetPage(ctx context.Context, p repository.Page) ([]model.Contact, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	limit, offset := sanitizeLimitOffset(p.Limit, p.Offset)
	return r.collect(ctx,
		`SELECT `+contactColumns+` FROM contacts
		 ORDER BY file_as, id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
}

func (r *contactRepository) GetByID(ctx context.Context, id string) (model.Contact, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Contact{}, err
	}
	c, err := scanContact(r.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Contact{}, repository.ErrNotFound
		}
		return model.Contact{}, repository.MapPgError(err)
	}
	return c, nil
}

func (r *contactRepository) Add(ctx context.Context, f model.ContactFields) (string, error) {
	if err := ensurePool(r.pool); err != nil {
		return "", err
	}
	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contacts (`+contactColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		uuid.NewString(), f.FileAs, f.GivenName, f.Surname, f.JobTitle, f.Email, f.MobilePhone, f.BusinessPhone,
	).Scan(&id)
	if err != nil {
		return "", repository.MapPgError(err)
	}
	return id, nil
}

func (r *contactRepository) Update(ctx context.Context, id string, f model.ContactFields) (model.Contact, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Contact{}, err
	}
	c, err := scanContact(r.pool.QueryRow(ctx,
		`UPDATE contacts
		 SET file_as = $2, given_name = $3, surname = $4, job_title = $5,
		     email = $6, mobile_phone = $7, business_phone = $8, updated_at = now()
		 WHERE id = $1
		 RETURNING `+contactColumns,
		id, f.FileAs, f.GivenName, f.Surname, f.JobTitle, f.Email, f.MobilePhone, f.BusinessPhone,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Contact{}, repository.ErrNotFound
		}
		return model.Contact{}, repository.MapPgError(err)
	}
	return c, nil
}

func (r *contactRepository) Delete(ctx context.Context, id string) (bool, error) {
	if err := ensurePool(r.pool); err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return false, repository.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return false, repository.ErrNotFound
	}
	return true, nil
}

func (r *contactRepository) GetAll(ctx context.Context) ([]model.Contact, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	return r.collect(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY file_as, id`)
}

var _ repository.ContactRepository = (*contactRepository)(nil)
