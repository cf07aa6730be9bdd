package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailTemplate holds a subject and body with {{placeholder}} tokens that
// are resolved against a prospect's context at send time.
type EmailTemplate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEmailTemplate creates a new EmailTemplate with a generated UUID
func NewEmailTemplate(name, subject, body string) *EmailTemplate {
	now := time.Now()
	return &EmailTemplate{
		ID:        uuid.New().String(),
		Name:      name,
		Subject:   subject,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
