package models

import (
	"time"

	"github.com/google/uuid"
)

// SentStatus represents the outcome recorded on an audit row
type SentStatus string

const (
	SentStatusSent   SentStatus = "sent"
	SentStatusFailed SentStatus = "failed"
	SentStatusOpened SentStatus = "opened"
)

// SentEmail is the append-only audit record written at dispatch time.
// It carries the rendered subject and body plus denormalized ids for
// reporting, and is never updated except for the open-tracking pixel
// flipping sent to opened.
type SentEmail struct {
	ID         string     `json:"id"`
	Recipient  string     `json:"recipient"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	SentAt     time.Time  `json:"sent_at"`
	Status     SentStatus `json:"status"`
	ProspectID *string    `json:"prospect_id"`
	TemplateID *string    `json:"template_id"`
	SequenceID *string    `json:"sequence_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewSentEmail creates a new SentEmail audit row with a generated UUID
func NewSentEmail(recipient, subject, body string, sentAt time.Time, status SentStatus) *SentEmail {
	return &SentEmail{
		ID:        uuid.New().String(),
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		SentAt:    sentAt,
		Status:    status,
		CreatedAt: time.Now(),
	}
}

// WasOpened checks if the open-tracking pixel has fired for this email
func (s *SentEmail) WasOpened() bool {
	return s.Status == SentStatusOpened
}
