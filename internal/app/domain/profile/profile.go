// Package profile defines the user profile records exchanged with the
// hosted row store.
package profile

import (
	"errors"
	"strings"
)

// Profile is the identity and health record for a user. The JSON tags mirror
// the columns of the DatasUser table; the ID is assigned by the row store on
// creation and immutable afterwards.
type Profile struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Age           string `json:"age,omitempty"`
	BloodPressure string `json:"bp,omitempty"`
	Sugar         string `json:"sugar,omitempty"`
	HbA1c         string `json:"hba1c,omitempty"`
	GlycemicIndex string `json:"glycemicIndex,omitempty"`
	Cholesterol   string `json:"cholesterol,omitempty"`
	Image         string `json:"image,omitempty"`
}

// Persisted reports whether the profile has been assigned an ID by the row
// store. A profile without an ID only exists as local form state.
func (p Profile) Persisted() bool {
	return p.ID != ""
}

// Draft is a not-yet-persisted profile. Health fields entered during
// registration travel with the draft so a created row carries them from the
// start.
type Draft struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Age           string `json:"age,omitempty"`
	BloodPressure string `json:"bp,omitempty"`
	Sugar         string `json:"sugar,omitempty"`
	HbA1c         string `json:"hba1c,omitempty"`
	GlycemicIndex string `json:"glycemicIndex,omitempty"`
	Cholesterol   string `json:"cholesterol,omitempty"`
}

// Validate checks the required draft fields before any network access.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.Email) == "" {
		return ErrValidation
	}
	return nil
}

var (
	// ErrValidation marks empty required input, detected before any I/O.
	ErrValidation = errors.New("name and email are required")

	// ErrNotRegistered is the no-match outcome of authentication. It is a
	// terminal result, not a fault: the caller redirects to registration.
	ErrNotRegistered = errors.New("no account found for email")

	// ErrCreationFailed marks a failed insert or an insert that returned an
	// unexpected row count.
	ErrCreationFailed = errors.New("profile creation failed")

	// ErrNoSession marks an operation that needs an active session while the
	// local slot is empty.
	ErrNoSession = errors.New("no active session")

	// ErrUnknownField marks a partial update naming a column outside
	// UpdatableFields.
	ErrUnknownField = errors.New("unknown profile field")
)

// UpdatableFields lists the columns a partial update may touch. The email is
// deliberately absent: it is the reconciliation key and never edited in
// place.
var UpdatableFields = map[string]struct{}{
	"name":          {},
	"age":           {},
	"bp":            {},
	"sugar":         {},
	"hba1c":         {},
	"glycemicIndex": {},
	"cholesterol":   {},
	"image":         {},
}

// Apply sets a single named field on the profile. Unknown fields are
// rejected with ErrUnknownField.
func (p *Profile) Apply(field, value string) error {
	switch field {
	case "name":
		p.Name = value
	case "age":
		p.Age = value
	case "bp":
		p.BloodPressure = value
	case "sugar":
		p.Sugar = value
	case "hba1c":
		p.HbA1c = value
	case "glycemicIndex":
		p.GlycemicIndex = value
	case "cholesterol":
		p.Cholesterol = value
	case "image":
		p.Image = value
	default:
		return ErrUnknownField
	}
	return nil
}
