package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// recordingMailer counts sends; delivery always succeeds.
type recordingMailer struct {
	sent int
}

func (m *recordingMailer) Send(to, subject, body, bcc string, context map[string]string) bool {
	m.sent++
	return true
}

func TestSendTestValidatesEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mail := &recordingMailer{}
	handler := NewDispatchHandler(nil, mail)

	router := gin.New()
	router.POST("/api/dispatch/test", handler.SendTest)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/dispatch/test", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("Malformed address is rejected before sending", func(t *testing.T) {
		rec := post(`{"email":"not-an-email","subject":"s","body":"b"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, mail.sent)
	})

	t.Run("Valid address goes through the mailer", func(t *testing.T) {
		rec := post(`{"email":"ada@example.com","subject":"s","body":"b"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, mail.sent)
	})
}
