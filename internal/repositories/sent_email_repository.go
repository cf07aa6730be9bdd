package repositories

import (
	"database/sql"
	"sync"
	"time"

	"coldreach/internal/models"
)

// SentEmailRepository handles database operations for the sent-email audit log
type SentEmailRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSentEmailRepository creates a new SentEmailRepository
func NewSentEmailRepository(db *sql.DB) *SentEmailRepository {
	return &SentEmailRepository{db: db}
}

// GetByID retrieves a sent email by ID
func (r *SentEmailRepository) GetByID(id string) (*models.SentEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, recipient, subject, body, sent_at, status, prospect_id, template_id, sequence_id, created_at
		FROM sent_emails WHERE id = ?
	`

	e := &models.SentEmail{}
	err := r.db.QueryRow(query, id).Scan(
		&e.ID,
		&e.Recipient,
		&e.Subject,
		&e.Body,
		&e.SentAt,
		&e.Status,
		&e.ProspectID,
		&e.TemplateID,
		&e.SequenceID,
		&e.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return e, nil
}

// GetAll retrieves all sent emails, most recent first
func (r *SentEmailRepository) GetAll() ([]*models.SentEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, recipient, subject, body, sent_at, status, prospect_id, template_id, sequence_id, created_at
		FROM sent_emails
		ORDER BY sent_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []*models.SentEmail
	for rows.Next() {
		e := &models.SentEmail{}
		err := rows.Scan(
			&e.ID,
			&e.Recipient,
			&e.Subject,
			&e.Body,
			&e.SentAt,
			&e.Status,
			&e.ProspectID,
			&e.TemplateID,
			&e.SequenceID,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}

	return emails, nil
}

// CountSentOn counts successfully sent emails on the calendar day of day,
// in day's location. Opened rows still count: they were sent first.
func (r *SentEmailRepository) CountSentOn(day time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var count int
	query := `SELECT COUNT(*) FROM sent_emails WHERE sent_at >= ? AND sent_at < ? AND status IN (?, ?)`
	err := r.db.QueryRow(query, start.UTC(), end.UTC(), models.SentStatusSent, models.SentStatusOpened).Scan(&count)
	return count, err
}

// CountByStatus counts audit rows with the given status
func (r *SentEmailRepository) CountByStatus(status models.SentStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int
	query := `SELECT COUNT(*) FROM sent_emails WHERE status = ?`
	err := r.db.QueryRow(query, status).Scan(&count)
	return count, err
}

// CountAll counts all audit rows
func (r *SentEmailRepository) CountAll() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sent_emails`).Scan(&count)
	return count, err
}

// MarkOpened flips a sent row to opened. Rows in any other state are left
// alone, so a failed send can never become opened.
func (r *SentEmailRepository) MarkOpened(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `UPDATE sent_emails SET status = ? WHERE id = ? AND status = ?`
	res, err := r.db.Exec(query, models.SentStatusOpened, id, models.SentStatusSent)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// DeleteByProspect removes all audit rows for a prospect
func (r *SentEmailRepository) DeleteByProspect(prospectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `DELETE FROM sent_emails WHERE prospect_id = ?`
	_, err := r.db.Exec(query, prospectID)
	return err
}
