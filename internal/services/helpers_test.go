package services

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"coldreach/internal/models"
	"coldreach/internal/repositories"
)

// testEnv wires real repositories over a throwaway SQLite file, the same
// schema production runs on.
type testEnv struct {
	db            *sql.DB
	prospectRepo  *repositories.ProspectRepository
	templateRepo  *repositories.TemplateRepository
	sequenceRepo  *repositories.SequenceRepository
	scheduledRepo *repositories.ScheduledEmailRepository
	sentRepo      *repositories.SentEmailRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_schema.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return &testEnv{
		db:            db,
		prospectRepo:  repositories.NewProspectRepository(db),
		templateRepo:  repositories.NewTemplateRepository(db),
		sequenceRepo:  repositories.NewSequenceRepository(db),
		scheduledRepo: repositories.NewScheduledEmailRepository(db),
		sentRepo:      repositories.NewSentEmailRepository(db),
	}
}

func (env *testEnv) createProspect(t *testing.T, name, email string) *models.Prospect {
	t.Helper()
	p := models.NewProspect(name, email)
	require.NoError(t, env.prospectRepo.Create(p))
	return p
}

func (env *testEnv) createTemplate(t *testing.T, name string) *models.EmailTemplate {
	t.Helper()
	tmpl := models.NewEmailTemplate(name, "Hello {{name}}", "Hi {{name}} at {{company}}")
	require.NoError(t, env.templateRepo.Create(tmpl))
	return tmpl
}

// createSequence builds a sequence with one step per delay, all using the
// same template.
func (env *testEnv) createSequence(t *testing.T, name string, templateID string, delays ...int) *models.Sequence {
	t.Helper()
	seq := models.NewSequence(name)
	require.NoError(t, env.sequenceRepo.Create(seq))
	for _, delay := range delays {
		step := models.NewSequenceStep(seq.ID, templateID, delay)
		require.NoError(t, env.sequenceRepo.CreateStep(step))
	}
	return seq
}

func (env *testEnv) pendingFor(t *testing.T, prospectID string) []*models.ScheduledEmail {
	t.Helper()
	all, err := env.scheduledRepo.GetByProspectID(prospectID)
	require.NoError(t, err)
	var pending []*models.ScheduledEmail
	for _, e := range all {
		if e.IsPending() {
			pending = append(pending, e)
		}
	}
	return pending
}

// fakeMailer records sends instead of delivering them. With fail set it
// reports every send as failed.
type fakeMailer struct {
	sent []fakeSend
	fail bool
}

type fakeSend struct {
	to      string
	subject string
	body    string
	bcc     string
}

func (m *fakeMailer) Send(to, subject, body, bcc string, context map[string]string) bool {
	if m.fail {
		return false
	}
	m.sent = append(m.sent, fakeSend{to: to, subject: subject, body: body, bcc: bcc})
	return true
}

func dayOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
