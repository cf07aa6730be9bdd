package models

import (
	"time"

	"github.com/google/uuid"
)

// Sequence is an ordered set of steps. Step order is defined by delay_days,
// with creation time and then id as the tie-break for equal delays.
type Sequence struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BCC       *string   `json:"bcc"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSequence creates a new Sequence with a generated UUID
func NewSequence(name string) *Sequence {
	now := time.Now()
	return &Sequence{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SequenceStep schedules one template delay_days after a prospect's
// first-touch day.
type SequenceStep struct {
	ID         string    `json:"id"`
	SequenceID string    `json:"sequence_id"`
	TemplateID string    `json:"template_id"`
	DelayDays  int       `json:"delay_days"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewSequenceStep creates a new SequenceStep with a generated UUID
func NewSequenceStep(sequenceID, templateID string, delayDays int) *SequenceStep {
	return &SequenceStep{
		ID:         uuid.New().String(),
		SequenceID: sequenceID,
		TemplateID: templateID,
		DelayDays:  delayDays,
		CreatedAt:  time.Now(),
	}
}
