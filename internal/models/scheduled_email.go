package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleStatus represents the lifecycle state of a scheduled email
type ScheduleStatus string

const (
	ScheduleStatusPending ScheduleStatus = "pending"
	// ScheduleStatusSending marks a row claimed by a dispatch sweep. The
	// claim is the guard against two overlapping sweeps sending the same
	// row twice.
	ScheduleStatusSending ScheduleStatus = "sending"
	ScheduleStatusSent    ScheduleStatus = "sent"
	ScheduleStatusFailed  ScheduleStatus = "failed"
)

// ScheduledEmail is the central work item: one planned send for one
// prospect and one template. Pending is the only non-terminal state; once a
// row leaves pending it is never updated again.
type ScheduledEmail struct {
	ID         string         `json:"id"`
	ProspectID string         `json:"prospect_id"`
	TemplateID string         `json:"template_id"`
	SequenceID *string        `json:"sequence_id"`
	SendAt     time.Time      `json:"send_at"`
	SentAt     *time.Time     `json:"sent_at"`
	Status     ScheduleStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewScheduledEmail creates a pending ScheduledEmail with a generated UUID
func NewScheduledEmail(prospectID, templateID string, sequenceID *string, sendAt time.Time) *ScheduledEmail {
	now := time.Now()
	return &ScheduledEmail{
		ID:         uuid.New().String(),
		ProspectID: prospectID,
		TemplateID: templateID,
		SequenceID: sequenceID,
		SendAt:     sendAt,
		Status:     ScheduleStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsPending checks if the email is still waiting to be dispatched
func (s *ScheduledEmail) IsPending() bool {
	return s.Status == ScheduleStatusPending
}

// MarkSent records a successful dispatch at the given time
func (s *ScheduledEmail) MarkSent(at time.Time) {
	s.Status = ScheduleStatusSent
	s.SentAt = &at
}

// MarkFailed records a failed dispatch attempt at the given time
func (s *ScheduledEmail) MarkFailed(at time.Time) {
	s.Status = ScheduleStatusFailed
	s.SentAt = &at
}
