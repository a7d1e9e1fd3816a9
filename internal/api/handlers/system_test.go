package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zeempo/zeempo-gateway/internal/api/handlers"
	"github.com/zeempo/zeempo-gateway/internal/testutil"
)

func TestSystemHandler_Health(t *testing.T) {
	h := handlers.NewSystemHandler("Zeempo", "1.2.3")
	rec := httptest.NewRecorder()

	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp := rec.Result()
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var body handlers.HealthResponse
	testutil.AssertJSONResponse(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "Zeempo", body.Service)
	assert.Equal(t, "1.2.3", body.Version)
	assert.WithinDuration(t, time.Now(), body.Timestamp, time.Minute)
}

func TestSystemHandler_Root(t *testing.T) {
	h := handlers.NewSystemHandler("Zeempo", "1.2.3")
	rec := httptest.NewRecorder()

	h.Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body struct {
		Name      string            `json:"name"`
		Status    string            `json:"status"`
		Endpoints map[string]string `json:"endpoints"`
	}
	testutil.AssertJSONResponse(t, rec.Result(), &body)
	assert.Equal(t, "Zeempo", body.Name)
	assert.Equal(t, "running", body.Status)
	assert.Contains(t, body.Endpoints, "POST /api/text-to-pidgin")
}

func TestVoiceRoutesDisabled(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		detail  string
	}{
		{"voice to voice", handlers.VoiceToVoiceDisabled, "Voice-to-voice feature is temporarily disabled. Please use /api/text-to-pidgin for text-based interactions."},
		{"pidgin to voice", handlers.VoiceOutputDisabled, "Voice output feature is temporarily disabled. Text-to-Pidgin functionality is still available."},
		{"voices", handlers.VoicesDisabled, "Voice features are temporarily disabled."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodPost, "/", nil))
			testutil.AssertDetail(t, rec.Result(), http.StatusServiceUnavailable, tt.detail)
		})
	}
}
