package repositories

import (
	"database/sql"
	"sync"
	"time"

	"coldreach/internal/models"
)

// ProspectRepository handles database operations for prospects
type ProspectRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewProspectRepository creates a new ProspectRepository
func NewProspectRepository(db *sql.DB) *ProspectRepository {
	return &ProspectRepository{db: db}
}

// Create creates a new prospect
func (r *ProspectRepository) Create(p *models.Prospect) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO prospects (id, name, email, company, title, sequence_id, unsubscribed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		p.ID,
		p.Name,
		p.Email,
		p.Company,
		p.Title,
		p.SequenceID,
		p.Unsubscribed,
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	return err
}

// GetByID retrieves a prospect by ID
func (r *ProspectRepository) GetByID(id string) (*models.Prospect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, name, email, company, title, sequence_id, unsubscribed, created_at, updated_at
		FROM prospects WHERE id = ?
	`

	p := &models.Prospect{}
	err := r.db.QueryRow(query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Company,
		&p.Title,
		&p.SequenceID,
		&p.Unsubscribed,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return p, nil
}

// GetByEmail retrieves the first prospect with the given email address
func (r *ProspectRepository) GetByEmail(email string) (*models.Prospect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, name, email, company, title, sequence_id, unsubscribed, created_at, updated_at
		FROM prospects WHERE email = ? LIMIT 1
	`

	p := &models.Prospect{}
	err := r.db.QueryRow(query, email).Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Company,
		&p.Title,
		&p.SequenceID,
		&p.Unsubscribed,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return p, nil
}

// GetAll retrieves all prospects. If assigned is non-nil the result is
// filtered on whether a sequence is attached.
func (r *ProspectRepository) GetAll(assigned *bool) ([]*models.Prospect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, name, email, company, title, sequence_id, unsubscribed, created_at, updated_at
		FROM prospects
	`
	if assigned != nil {
		if *assigned {
			query += ` WHERE sequence_id IS NOT NULL`
		} else {
			query += ` WHERE sequence_id IS NULL`
		}
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prospects []*models.Prospect
	for rows.Next() {
		p := &models.Prospect{}
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Email,
			&p.Company,
			&p.Title,
			&p.SequenceID,
			&p.Unsubscribed,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		prospects = append(prospects, p)
	}

	return prospects, nil
}

// Update updates a prospect
func (r *ProspectRepository) Update(p *models.Prospect) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE prospects
		SET name = ?, email = ?, company = ?, title = ?, sequence_id = ?, unsubscribed = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		p.Name,
		p.Email,
		p.Company,
		p.Title,
		p.SequenceID,
		p.Unsubscribed,
		time.Now().UTC(),
		p.ID,
	)
	return err
}

// SetUnsubscribed flips the unsubscribed flag for a prospect
func (r *ProspectRepository) SetUnsubscribed(id string, unsubscribed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `UPDATE prospects SET unsubscribed = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.Exec(query, unsubscribed, time.Now().UTC(), id)
	return err
}

// DetachSequence clears sequence_id for every prospect assigned to it
func (r *ProspectRepository) DetachSequence(sequenceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `UPDATE prospects SET sequence_id = NULL, updated_at = ? WHERE sequence_id = ?`
	_, err := r.db.Exec(query, time.Now().UTC(), sequenceID)
	return err
}

// Delete deletes a prospect by ID
func (r *ProspectRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `DELETE FROM prospects WHERE id = ?`
	_, err := r.db.Exec(query, id)
	return err
}
