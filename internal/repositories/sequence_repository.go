package repositories

import (
	"database/sql"
	"sync"
	"time"

	"coldreach/internal/models"
)

// SequenceRepository handles database operations for sequences and their steps
type SequenceRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSequenceRepository creates a new SequenceRepository
func NewSequenceRepository(db *sql.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Create creates a new sequence
func (r *SequenceRepository) Create(s *models.Sequence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO sequences (id, name, bcc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		s.ID,
		s.Name,
		s.BCC,
		s.CreatedAt.UTC(),
		s.UpdatedAt.UTC(),
	)
	return err
}

// GetByID retrieves a sequence by ID
func (r *SequenceRepository) GetByID(id string) (*models.Sequence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, name, bcc, created_at, updated_at
		FROM sequences WHERE id = ?
	`

	s := &models.Sequence{}
	err := r.db.QueryRow(query, id).Scan(
		&s.ID,
		&s.Name,
		&s.BCC,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return s, nil
}

// GetAll retrieves all sequences
func (r *SequenceRepository) GetAll() ([]*models.Sequence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, name, bcc, created_at, updated_at
		FROM sequences
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sequences []*models.Sequence
	for rows.Next() {
		s := &models.Sequence{}
		err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.BCC,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		sequences = append(sequences, s)
	}

	return sequences, nil
}

// Update updates a sequence
func (r *SequenceRepository) Update(s *models.Sequence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `UPDATE sequences SET name = ?, bcc = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.Exec(query, s.Name, s.BCC, time.Now().UTC(), s.ID)
	return err
}

// Delete deletes a sequence and its steps
func (r *SequenceRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sequence_steps WHERE sequence_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sequences WHERE id = ?`, id); err != nil {
		return err
	}

	return tx.Commit()
}

// CreateStep creates a new sequence step
func (r *SequenceRepository) CreateStep(step *models.SequenceStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO sequence_steps (id, sequence_id, template_id, delay_days, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		step.ID,
		step.SequenceID,
		step.TemplateID,
		step.DelayDays,
		step.CreatedAt.UTC(),
	)
	return err
}

// GetStepByID retrieves a step by ID
func (r *SequenceRepository) GetStepByID(id string) (*models.SequenceStep, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, sequence_id, template_id, delay_days, created_at
		FROM sequence_steps WHERE id = ?
	`

	step := &models.SequenceStep{}
	err := r.db.QueryRow(query, id).Scan(
		&step.ID,
		&step.SequenceID,
		&step.TemplateID,
		&step.DelayDays,
		&step.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return step, nil
}

// GetSteps retrieves the steps of a sequence in canonical order:
// delay ascending, then creation time, then id. Steps sharing a delay keep
// a stable total order instead of relying on storage order.
func (r *SequenceRepository) GetSteps(sequenceID string) ([]*models.SequenceStep, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, sequence_id, template_id, delay_days, created_at
		FROM sequence_steps
		WHERE sequence_id = ?
		ORDER BY delay_days ASC, created_at ASC, id ASC
	`

	rows, err := r.db.Query(query, sequenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []*models.SequenceStep
	for rows.Next() {
		step := &models.SequenceStep{}
		err := rows.Scan(
			&step.ID,
			&step.SequenceID,
			&step.TemplateID,
			&step.DelayDays,
			&step.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	return steps, nil
}

// UpdateStep updates a sequence step
func (r *SequenceRepository) UpdateStep(step *models.SequenceStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `UPDATE sequence_steps SET template_id = ?, delay_days = ? WHERE id = ?`
	_, err := r.db.Exec(query, step.TemplateID, step.DelayDays, step.ID)
	return err
}

// DeleteStep deletes a sequence step by ID
func (r *SequenceRepository) DeleteStep(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `DELETE FROM sequence_steps WHERE id = ?`
	_, err := r.db.Exec(query, id)
	return err
}

// CountStepsByTemplate counts how many steps reference a template
func (r *SequenceRepository) CountStepsByTemplate(templateID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int
	query := `SELECT COUNT(*) FROM sequence_steps WHERE template_id = ?`
	err := r.db.QueryRow(query, templateID).Scan(&count)
	return count, err
}
