// Package model contains domain entities and DTOs used across layers.
// I keep it lean and focused on data shapes without behavior.
package model

// Contact is a transient copy of a contact owned by the contacts backend.
type Contact struct {
	ID            string `json:"id"`
	FileAs        string `json:"file_as"`
	GivenName     string `json:"given_name"`
	Surname       string `json:"surname"`
	JobTitle      string `json:"job_title"`
	Email         string `json:"email"`
	MobilePhone   string `json:"mobile_phone"`
	BusinessPhone string `json:"business_phone"`
}

// ContactFields is the editable part of a contact as submitted by the create and edit forms.
// Form keys follow the field names used by the HTML views.
type ContactFields struct {
	FileAs        string `form:"FileAs" json:"file_as" validate:"max=255"`
	GivenName     string `form:"GivenName" json:"given_name" validate:"max=255"`
	Surname       string `form:"Surname" json:"surname" validate:"max=255"`
	JobTitle      string `form:"JobTitle" json:"job_title" validate:"max=255"`
	Email         string `form:"Email" json:"email" validate:"omitempty,email,max=320"`
	MobilePhone   string `form:"MobilePhone" json:"mobile_phone" validate:"max=64"`
	BusinessPhone string `form:"BusinessPhone" json:"business_phone" validate:"max=64"`
}

// Fields returns the editable part of c.
func (c Contact) Fields() ContactFields {
	return ContactFields{
		FileAs:        c.FileAs,
		GivenName:     c.GivenName,
		Surname:       c.Surname,
		JobTitle:      c.JobTitle,
		Email:         c.Email,
		MobilePhone:   c.MobilePhone,
		BusinessPhone: c.BusinessPhone,
	}
}

// WithID returns a contact with the given id and field values.
func (f ContactFields) WithID(id string) Contact {
	return Contact{
		ID:            id,
		FileAs:        f.FileAs,
		GivenName:     f.GivenName,
		Surname:       f.Surname,
		JobTitle:      f.JobTitle,
		Email:         f.Email,
		MobilePhone:   f.MobilePhone,
		BusinessPhone: f.BusinessPhone,
	}
}
