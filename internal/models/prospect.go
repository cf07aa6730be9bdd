package models

import (
	"time"

	"github.com/google/uuid"
)

// Prospect represents a single outreach recipient. A prospect belongs to at
// most one sequence at a time; reassigning it purges its pending schedule.
type Prospect struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Company      *string   `json:"company"`
	Title        *string   `json:"title"`
	SequenceID   *string   `json:"sequence_id"`
	Unsubscribed bool      `json:"unsubscribed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewProspect creates a new Prospect with a generated UUID
func NewProspect(name, email string) *Prospect {
	now := time.Now()
	return &Prospect{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RenderContext builds the placeholder substitution context for this
// prospect, with empty-string defaults for the optional fields.
func (p *Prospect) RenderContext() map[string]string {
	ctx := map[string]string{
		"name":    p.Name,
		"email":   p.Email,
		"company": "",
		"title":   "",
	}
	if p.Company != nil {
		ctx["company"] = *p.Company
	}
	if p.Title != nil {
		ctx["title"] = *p.Title
	}
	return ctx
}
