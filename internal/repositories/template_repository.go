package repositories

import (
	"database/sql"
	"sync"
	"time"

	"coldreach/internal/models"
)

// TemplateRepository handles database operations for email templates
type TemplateRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create creates a new email template
func (r *TemplateRepository) Create(t *models.EmailTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO email_templates (id, name, subject, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		t.ID,
		t.Name,
		t.Subject,
		t.Body,
		t.CreatedAt.UTC(),
		t.UpdatedAt.UTC(),
	)
	return err
}

// GetByID retrieves a template by ID
func (r *TemplateRepository) GetByID(id string) (*models.EmailTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, name, subject, body, created_at, updated_at
		FROM email_templates WHERE id = ?
	`

	t := &models.EmailTemplate{}
	err := r.db.QueryRow(query, id).Scan(
		&t.ID,
		&t.Name,
		&t.Subject,
		&t.Body,
		&t.CreatedAt,
		&t.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return t, nil
}

// GetAll retrieves all templates
func (r *TemplateRepository) GetAll() ([]*models.EmailTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, name, subject, body, created_at, updated_at
		FROM email_templates
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.EmailTemplate
	for rows.Next() {
		t := &models.EmailTemplate{}
		err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.Subject,
			&t.Body,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	return templates, nil
}

// Update updates a template's content
func (r *TemplateRepository) Update(t *models.EmailTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE email_templates
		SET name = ?, subject = ?, body = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		t.Name,
		t.Subject,
		t.Body,
		time.Now().UTC(),
		t.ID,
	)
	return err
}

// Delete deletes a template by ID
func (r *TemplateRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `DELETE FROM email_templates WHERE id = ?`
	_, err := r.db.Exec(query, id)
	return err
}
