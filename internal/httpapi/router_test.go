package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearrental/pkg/config"
)

// The routes exercised here never reach the database, so no pool is wired.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRouter(Dependencies{
		Cfg: config.Config{
			AppEnv:               "prod",
			Auth:                 config.AuthConfig{TokenSecret: "test_secret"},
			PaymentWebhookSecret: "whsec_test",
		},
		Logger: logger,
	})
}

func TestRouter(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		description  string
		method       string
		path         string
		body         string
		expectedCode int
		expectedBody string
	}{
		{"health check", http.MethodGet, "/healthz", "", http.StatusOK, "ok"},
		{"bookings need a token", http.MethodGet, "/v1/bookings", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"status patch needs a token", http.MethodPatch, "/v1/bookings/x/status", `{"status":"confirmed"}`, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unsigned payment webhook", http.MethodPost, "/v1/webhooks/payments", `{"id":"evt_1"}`, http.StatusUnauthorized, "invalid webhook signature"},
		{"unknown route", http.MethodGet, "/v1/listings", "", http.StatusNotFound, ""},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			req := httptest.NewRequest(test.method, test.path, strings.NewReader(test.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, test.expectedCode, rec.Code)
			assert.Contains(t, rec.Body.String(), test.expectedBody)
		})
	}
}

func TestRouter_StatusCatalogIsPublic(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/booking-statuses", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Items []struct {
			Status   string   `json:"status"`
			Terminal bool     `json:"terminal"`
			Next     []string `json:"next"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Items, 6)
	assert.Equal(t, "pending_owner_approval", out.Items[0].Status)
	assert.ElementsMatch(t, []string{"confirmed", "denied"}, out.Items[0].Next)
	for _, item := range out.Items {
		assert.Equal(t, len(item.Next) == 0, item.Terminal, item.Status)
	}
}
