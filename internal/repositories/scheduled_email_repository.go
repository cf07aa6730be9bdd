package repositories

import (
	"database/sql"
	"sync"
	"time"

	"coldreach/internal/models"
)

// ScheduledEmailRepository handles database operations for scheduled emails
type ScheduledEmailRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewScheduledEmailRepository creates a new ScheduledEmailRepository
func NewScheduledEmailRepository(db *sql.DB) *ScheduledEmailRepository {
	return &ScheduledEmailRepository{db: db}
}

// Create creates a new scheduled email
func (r *ScheduledEmailRepository) Create(e *models.ScheduledEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO scheduled_emails (id, prospect_id, template_id, sequence_id, send_at, sent_at, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		e.ID,
		e.ProspectID,
		e.TemplateID,
		e.SequenceID,
		e.SendAt.UTC(),
		nullableTime(e.SentAt),
		e.Status,
		e.CreatedAt.UTC(),
		e.UpdatedAt.UTC(),
	)
	return err
}

// GetByID retrieves a scheduled email by ID
func (r *ScheduledEmailRepository) GetByID(id string) (*models.ScheduledEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, prospect_id, template_id, sequence_id, send_at, sent_at, status, created_at, updated_at
		FROM scheduled_emails WHERE id = ?
	`

	e := &models.ScheduledEmail{}
	err := r.db.QueryRow(query, id).Scan(
		&e.ID,
		&e.ProspectID,
		&e.TemplateID,
		&e.SequenceID,
		&e.SendAt,
		&e.SentAt,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return e, nil
}

// GetByProspectID retrieves all scheduled emails for a prospect, send time ascending
func (r *ScheduledEmailRepository) GetByProspectID(prospectID string) ([]*models.ScheduledEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, prospect_id, template_id, sequence_id, send_at, sent_at, status, created_at, updated_at
		FROM scheduled_emails
		WHERE prospect_id = ?
		ORDER BY send_at ASC
	`

	return r.queryEmails(query, prospectID)
}

// GetDue retrieves pending, unsent emails whose send time has passed, in
// send_at ascending order.
func (r *ScheduledEmailRepository) GetDue(now time.Time) ([]*models.ScheduledEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, prospect_id, template_id, sequence_id, send_at, sent_at, status, created_at, updated_at
		FROM scheduled_emails
		WHERE send_at <= ? AND sent_at IS NULL AND status = ?
		ORDER BY send_at ASC
	`

	return r.queryEmails(query, now.UTC(), models.ScheduleStatusPending)
}

// CountOnDay counts scheduled emails of any status whose send_at falls on
// the calendar day of day, in day's location. A count query, not a row scan.
func (r *ScheduledEmailRepository) CountOnDay(day time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var count int
	query := `SELECT COUNT(*) FROM scheduled_emails WHERE send_at >= ? AND send_at < ?`
	err := r.db.QueryRow(query, start.UTC(), end.UTC()).Scan(&count)
	return count, err
}

// CountPendingByProspect counts pending rows for a prospect
func (r *ScheduledEmailRepository) CountPendingByProspect(prospectID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int
	query := `SELECT COUNT(*) FROM scheduled_emails WHERE prospect_id = ? AND status = ?`
	err := r.db.QueryRow(query, prospectID, models.ScheduleStatusPending).Scan(&count)
	return count, err
}

// Claim atomically transitions a row from pending to sending. It returns
// false when another sweep already claimed the row, which is the guard
// against concurrent double-send.
func (r *ScheduledEmailRepository) Claim(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `UPDATE scheduled_emails SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := r.db.Exec(query, models.ScheduleStatusSending, time.Now().UTC(), id, models.ScheduleStatusPending)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Release returns a claimed row to pending. Used when a sweep claims a row
// and then decides not to attempt it.
func (r *ScheduledEmailRepository) Release(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `UPDATE scheduled_emails SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	_, err := r.db.Exec(query, models.ScheduleStatusPending, time.Now().UTC(), id, models.ScheduleStatusSending)
	return err
}

// RecordOutcome writes the dispatch outcome: the scheduled row's terminal
// status and sent_at together with the sent-email audit row, in a single
// transaction. Both commit or both roll back.
func (r *ScheduledEmailRepository) RecordOutcome(e *models.ScheduledEmail, audit *models.SentEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	updateQuery := `UPDATE scheduled_emails SET status = ?, sent_at = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.Exec(updateQuery, e.Status, nullableTime(e.SentAt), time.Now().UTC(), e.ID); err != nil {
		return err
	}

	insertQuery := `
		INSERT INTO sent_emails (id, recipient, subject, body, sent_at, status, prospect_id, template_id, sequence_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.Exec(insertQuery,
		audit.ID,
		audit.Recipient,
		audit.Subject,
		audit.Body,
		audit.SentAt.UTC(),
		audit.Status,
		audit.ProspectID,
		audit.TemplateID,
		audit.SequenceID,
		audit.CreatedAt.UTC(),
	); err != nil {
		return err
	}

	return tx.Commit()
}

// DeletePendingByProspect removes all pending rows for a prospect
func (r *ScheduledEmailRepository) DeletePendingByProspect(prospectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `DELETE FROM scheduled_emails WHERE prospect_id = ? AND status = ?`
	_, err := r.db.Exec(query, prospectID, models.ScheduleStatusPending)
	return err
}

// DeleteByProspect removes all scheduled rows for a prospect
func (r *ScheduledEmailRepository) DeleteByProspect(prospectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `DELETE FROM scheduled_emails WHERE prospect_id = ?`
	_, err := r.db.Exec(query, prospectID)
	return err
}

// DeletePendingBySequence removes all pending rows referencing a sequence
func (r *ScheduledEmailRepository) DeletePendingBySequence(sequenceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `DELETE FROM scheduled_emails WHERE sequence_id = ? AND status = ?`
	_, err := r.db.Exec(query, sequenceID, models.ScheduleStatusPending)
	return err
}

// DeletePendingByTemplate removes all pending rows referencing a template
func (r *ScheduledEmailRepository) DeletePendingByTemplate(templateID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `DELETE FROM scheduled_emails WHERE template_id = ? AND status = ?`
	_, err := r.db.Exec(query, templateID, models.ScheduleStatusPending)
	return err
}

// BeginCohort starts a cohort materialization transaction. All assigns,
// purges, capacity counts and inserts for one cohort happen inside it, so
// capacity checks observe the purges and a failure leaves no half-written
// schedule.
func (r *ScheduledEmailRepository) BeginCohort() (*CohortTx, error) {
	r.mu.Lock()
	tx, err := r.db.Begin()
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	return &CohortTx{tx: tx, repo: r}, nil
}

// CohortTx is a transaction scoped to one materialize operation
type CohortTx struct {
	tx   *sql.Tx
	repo *ScheduledEmailRepository
	done bool
}

// AssignSequence attaches a sequence to a prospect
func (c *CohortTx) AssignSequence(prospectID, sequenceID string) error {
	query := `UPDATE prospects SET sequence_id = ?, updated_at = ? WHERE id = ?`
	_, err := c.tx.Exec(query, sequenceID, time.Now().UTC(), prospectID)
	return err
}

// DeletePending purges a prospect's pending rows before re-creating them
func (c *CohortTx) DeletePending(prospectID string) error {
	query := `DELETE FROM scheduled_emails WHERE prospect_id = ? AND status = ?`
	_, err := c.tx.Exec(query, prospectID, models.ScheduleStatusPending)
	return err
}

// CountOnDay counts scheduled rows on a calendar day as seen inside the
// transaction, so earlier purges and inserts are reflected.
func (c *CohortTx) CountOnDay(day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var count int
	query := `SELECT COUNT(*) FROM scheduled_emails WHERE send_at >= ? AND send_at < ?`
	err := c.tx.QueryRow(query, start.UTC(), end.UTC()).Scan(&count)
	return count, err
}

// Insert adds a scheduled email inside the transaction
func (c *CohortTx) Insert(e *models.ScheduledEmail) error {
	query := `
		INSERT INTO scheduled_emails (id, prospect_id, template_id, sequence_id, send_at, sent_at, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := c.tx.Exec(query,
		e.ID,
		e.ProspectID,
		e.TemplateID,
		e.SequenceID,
		e.SendAt.UTC(),
		nullableTime(e.SentAt),
		e.Status,
		e.CreatedAt.UTC(),
		e.UpdatedAt.UTC(),
	)
	return err
}

// Commit commits the cohort transaction
func (c *CohortTx) Commit() error {
	if c.done {
		return nil
	}
	c.done = true
	defer c.repo.mu.Unlock()
	return c.tx.Commit()
}

// Rollback aborts the cohort transaction. Safe to defer after Commit.
func (c *CohortTx) Rollback() error {
	if c.done {
		return nil
	}
	c.done = true
	defer c.repo.mu.Unlock()
	return c.tx.Rollback()
}

func (r *ScheduledEmailRepository) queryEmails(query string, args ...interface{}) ([]*models.ScheduledEmail, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []*models.ScheduledEmail
	for rows.Next() {
		e := &models.ScheduledEmail{}
		err := rows.Scan(
			&e.ID,
			&e.ProspectID,
			&e.TemplateID,
			&e.SequenceID,
			&e.SendAt,
			&e.SentAt,
			&e.Status,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}

	return emails, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
