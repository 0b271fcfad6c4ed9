package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearrental/pkg/authtoken"
	"gearrental/pkg/config"
)

func whoAmI(w http.ResponseWriter, r *http.Request) {
	u := UserFromContext(r.Context())
	if u == nil {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_, _ = w.Write([]byte(u.ID))
}

func testConfig(env string) config.Config {
	return config.Config{
		AppEnv: env,
		Auth:   config.AuthConfig{TokenSecret: "test_secret", TokenAudience: "gear-web"},
	}
}

func TestAuthenticate(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	token, err := authtoken.Sign("owner-1", "gear-web", "test_secret", time.Hour, time.Now())
	require.NoError(t, err)

	tests := []struct {
		description  string
		env          string
		headers      map[string]string
		expectedCode int
		expectedBody string
	}{
		{
			description:  "valid bearer token",
			env:          "prod",
			headers:      map[string]string{"Authorization": "Bearer " + token},
			expectedCode: http.StatusOK,
			expectedBody: "owner-1",
		},
		{
			description:  "garbage bearer token",
			env:          "dev",
			headers:      map[string]string{"Authorization": "Bearer nope", "X-User-Id": "someone"},
			expectedCode: http.StatusUnauthorized,
		},
		{
			description:  "dev header fallback",
			env:          "dev",
			headers:      map[string]string{"X-User-Id": "renter-1"},
			expectedCode: http.StatusOK,
			expectedBody: "renter-1",
		},
		{
			description:  "no fallback in prod",
			env:          "prod",
			headers:      map[string]string{"X-User-Id": "renter-1"},
			expectedCode: http.StatusUnauthorized,
		},
		{
			description:  "uncredentialed",
			env:          "dev",
			expectedCode: http.StatusUnauthorized,
		},
	}

	for _, test := range tests {
		h := Authenticate(testConfig(test.env), logger)(http.HandlerFunc(whoAmI))
		req := httptest.NewRequest(http.MethodGet, "/v1/bookings", nil)
		for k, v := range test.headers {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equalf(t, test.expectedCode, rec.Code, test.description)
		if test.expectedBody != "" {
			assert.Equalf(t, test.expectedBody, rec.Body.String(), test.description)
		}
		if test.expectedCode == http.StatusUnauthorized {
			var env ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), test.description)
			assert.Equalf(t, CodeUnauthorized, env.Error.Code, test.description)
		}
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	h := CORSMiddleware(CORSOptions{AllowedOrigins: []string{"https://gear.example"}})(http.HandlerFunc(whoAmI))

	req := httptest.NewRequest(http.MethodOptions, "/v1/bookings", nil)
	req.Header.Set("Origin", "https://gear.example")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://gear.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORSMiddleware_UnknownOrigin(t *testing.T) {
	h := CORSMiddleware(CORSOptions{AllowedOrigins: []string{"https://gear.example"}})(http.HandlerFunc(whoAmI))

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogger(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	h := middleware.RequestID(RequestLogger(logger)(http.HandlerFunc(whoAmI)))

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "http request", entry.Message)
	assert.Equal(t, http.StatusTeapot, entry.Data["status"])
	assert.Equal(t, "/v1/bookings", entry.Data["path"])
	assert.NotEmpty(t, entry.Data["request_id"])
}
