package graph

import "github.com/maxviazov/contacts-service/internal/model"

// selectFields keeps list payloads down to what the views show.
const selectFields = "id,fileAs,givenName,surname,jobTitle,emailAddresses,mobilePhone,businessPhones"

type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// contact is the Graph wire shape of a personal contact.
// Slices are always sent non-nil so a PATCH clears fields the user emptied.
type contact struct {
	ID             string         `json:"id,omitempty"`
	FileAs         string         `json:"fileAs"`
	GivenName      string         `json:"givenName"`
	Surname        string         `json:"surname"`
	JobTitle       string         `json:"jobTitle"`
	EmailAddresses []emailAddress `json:"emailAddresses"`
	MobilePhone    string         `json:"mobilePhone"`
	BusinessPhones []string       `json:"businessPhones"`
}

type contactCollection struct {
	Value    []contact `json:"value"`
	NextLink string    `json:"@odata.nextLink,omitempty"`
}

// errorEnvelope is the body Graph sends with 4xx/5xx responses.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func fromFields(f model.ContactFields) contact {
	c := contact{
		FileAs:         f.FileAs,
		GivenName:      f.GivenName,
		Surname:        f.Surname,
		JobTitle:       f.JobTitle,
		EmailAddresses: []emailAddress{},
		MobilePhone:    f.MobilePhone,
		BusinessPhones: []string{},
	}
	if f.Email != "" {
		c.EmailAddresses = append(c.EmailAddresses, emailAddress{Address: f.Email, Name: f.FileAs})
	}
	if f.BusinessPhone != "" {
		c.BusinessPhones = append(c.BusinessPhones, f.BusinessPhone)
	}
	return c
}

// keepSecondary appends the addresses and phones past the first one held by current.
func (c contact) keepSecondary(current contact) contact {
	if len(current.EmailAddresses) > 1 {
		c.EmailAddresses = append(c.EmailAddresses, current.EmailAddresses[1:]...)
	}
	if len(current.BusinessPhones) > 1 {
		c.BusinessPhones = append(c.BusinessPhones, current.BusinessPhones[1:]...)
	}
	return c
}

func (c contact) toModel() model.Contact {
	out := model.Contact{
		ID:          c.ID,
		FileAs:      c.FileAs,
		GivenName:   c.GivenName,
		Surname:     c.Surname,
		JobTitle:    c.JobTitle,
		MobilePhone: c.MobilePhone,
	}
	if len(c.EmailAddresses) > 0 {
		out.Email = c.EmailAddresses[0].Address
	}
	if len(c.BusinessPhones) > 0 {
		out.BusinessPhone = c.BusinessPhones[0]
	}
	return out
}

func toModels(in []contact) []model.Contact {
	out := make([]model.Contact, 0, len(in))
	for _, c := range in {
		out = append(out, c.toModel())
	}
	return out
}
