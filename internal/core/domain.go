package core

import (
	"errors"
	"strings"
)

const (
	OnSite Format = "onsite"
	Remote Format = "remote"
)

type (
	// Format is how the consulting session was delivered.
	Format string

	// Client is a billable customer. TaxID is optional.
	Client struct {
		ID    string
		Name  string
		TaxID string
	}

	// Project belongs to at most one client; an empty ClientID means the
	// project is unassociated.
	Project struct {
		ID       string
		Name     string
		ClientID string
	}

	Consultant struct {
		ID   string
		Name string
	}

	// ServiceNote records one consulting session: who, where, when, what,
	// signed by both parties. Signatures are PNG blobs captured by the UI.
	ServiceNote struct {
		ID                   string
		ClientID             string
		ProjectID            string
		ConsultantID         string
		Format               Format
		Date                 Date
		Start                Clock
		End                  Clock
		ClientRepresentative string
		Description          string
		ConsultantSignature  []byte
		ClientSignature      []byte
	}
)

var (
	ErrEmptyName           = errors.New("empty name")
	ErrMissingClient       = errors.New("missing client")
	ErrMissingProject      = errors.New("missing project")
	ErrMissingConsultant   = errors.New("missing consultant")
	ErrInvalidFormat       = errors.New("invalid format")
	ErrEmptyRepresentative = errors.New("empty client representative")
	ErrEmptyDescription    = errors.New("empty description")
	ErrMissingSignature    = errors.New("missing signature")
)

func (f Format) Valid() bool {
	switch f {
	case OnSite, Remote:
		return true
	default:
		return false
	}
}

func (c Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c Consultant) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Validate checks that a draft note is complete enough to commit. Every
// field is required, including both signatures.
func (n ServiceNote) Validate() error {
	if n.ClientID == "" {
		return ErrMissingClient
	}
	if n.ProjectID == "" {
		return ErrMissingProject
	}
	if n.ConsultantID == "" {
		return ErrMissingConsultant
	}
	if !n.Format.Valid() {
		return ErrInvalidFormat
	}
	if err := n.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(n.ClientRepresentative) == "" {
		return ErrEmptyRepresentative
	}
	if strings.TrimSpace(n.Description) == "" {
		return ErrEmptyDescription
	}
	if len(n.Description) > 4000 {
		return errors.New("description too long (max 4000 characters)")
	}
	if len(n.ConsultantSignature) == 0 || len(n.ClientSignature) == 0 {
		return ErrMissingSignature
	}
	return nil
}

// Hours returns the session duration in hours, overnight shifts included.
func (n ServiceNote) Hours() float64 {
	return Duration(n.Start, n.End)
}
