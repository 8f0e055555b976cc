package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

func TestSecureLogger_RedactsSensitiveQuery(t *testing.T) {
	logger, buf := captureLogger()
	handler := SecureLogger(logger, nil)(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/auth/generate-otp?email=ada@example.com", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	record := decodeRecord(t, buf)
	assert.Equal(t, "http_request", record["msg"])
	assert.Equal(t, "/api/v1/auth/generate-otp?[REDACTED]", record["path"])
	assert.Equal(t, float64(http.StatusOK), record["status"])
	assert.Equal(t, "192.0.2.1", record["client_ip"])
	assert.NotContains(t, buf.String(), "ada@example.com")
}

func TestSecureLogger_KeepsHarmlessQuery(t *testing.T) {
	logger, buf := captureLogger()
	handler := SecureLogger(logger, nil)(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/auth/get-user-roles-permissions?userId=42", nil))

	record := decodeRecord(t, buf)
	assert.Equal(t, "/api/v1/auth/get-user-roles-permissions?userId=42", record["path"])
	assert.Equal(t, "INFO", record["level"])
}

func TestSecureLogger_ServerErrorsLogAtError(t *testing.T) {
	logger, buf := captureLogger()
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	SecureLogger(logger, nil)(failing).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/v1/user", nil))

	record := decodeRecord(t, buf)
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, float64(http.StatusInternalServerError), record["status"])
}
