package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/maxviazov/contacts-service/internal/model"
	"github.com/maxviazov/contacts-service/internal/repository"
)

// allPageSize is the $top used while walking the whole collection.
const allPageSize = 100

func (c *Client) contactsURL(id string, q url.Values) string {
	u := c.baseURL + c.owner + "/contacts"
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func listQuery(top, skip int) url.Values {
	q := url.Values{}
	q.Set("$top", strconv.Itoa(top))
	if skip > 0 {
		q.Set("$skip", strconv.Itoa(skip))
	}
	q.Set("$orderby", "displayName")
	q.Set("$select", selectFields)
	return q
}

func (c *Client) GetPage(ctx context.Context, p repository.Page) ([]model.Contact, error) {
	var coll contactCollection
	if err := c.call(ctx, "get_page", http.MethodGet, c.contactsURL("", listQuery(p.Limit, p.Offset)), nil, &coll); err != nil {
		return nil, err
	}
	return toModels(coll.Value), nil
}

func (c *Client) GetByID(ctx context.Context, id string) (model.Contact, error) {
	if id == "" {
		return model.Contact{}, repository.ErrNotFound
	}
	q := url.Values{}
	q.Set("$select", selectFields)
	var out contact
	if err := c.call(ctx, "get", http.MethodGet, c.contactsURL(id, q), nil, &out); err != nil {
		return model.Contact{}, err
	}
	return out.toModel(), nil
}

func (c *Client) Add(ctx context.Context, f model.ContactFields) (string, error) {
	var out contact
	if err := c.call(ctx, "add", http.MethodPost, c.contactsURL("", nil), fromFields(f), &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("graph: created contact has no id")
	}
	return out.ID, nil
}

func (c *Client) Update(ctx context.Context, id string, f model.ContactFields) (model.Contact, error) {
	if id == "" {
		return model.Contact{}, repository.ErrNotFound
	}
	// the form edits only the first address and phone; read the rest so the PATCH keeps them
	q := url.Values{}
	q.Set("$select", "emailAddresses,businessPhones")
	var current contact
	if err := c.call(ctx, "get", http.MethodGet, c.contactsURL(id, q), nil, &current); err != nil {
		return model.Contact{}, err
	}
	var out contact
	if err := c.call(ctx, "update", http.MethodPatch, c.contactsURL(id, nil), fromFields(f).keepSecondary(current), &out); err != nil {
		return model.Contact{}, err
	}
	return out.toModel(), nil
}

func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, repository.ErrNotFound
	}
	if err := c.call(ctx, "delete", http.MethodDelete, c.contactsURL(id, nil), nil, nil); err != nil {
		return false, err
	}
	return true, nil
}

// GetAll follows @odata.nextLink until the collection is exhausted.
func (c *Client) GetAll(ctx context.Context) ([]model.Contact, error) {
	all := make([]model.Contact, 0, allPageSize)
	next := c.contactsURL("", listQuery(allPageSize, 0))
	for next != "" {
		// never hand the bearer token to a host we were not configured for
		if !strings.HasPrefix(next, c.baseURL+"/") {
			return nil, fmt.Errorf("graph: unexpected next link %q", next)
		}
		var coll contactCollection
		if err := c.call(ctx, "get_all", http.MethodGet, next, nil, &coll); err != nil {
			return nil, err
		}
		all = append(all, toModels(coll.Value)...)
		next = coll.NextLink
	}
	return all, nil
}

var _ repository.ContactRepository = (*Client)(nil)
