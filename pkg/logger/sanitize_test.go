package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user@example.com", "u***@*******.com"},
		{"a@mail.example.org", "a@****.*******.org"},
		{"no-at-sign", "[invalid-email]"},
		{"two@at@signs.com", "[invalid-email]"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizedEmail(tt.in))
		})
	}
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("email=a@b.com"))
	assert.True(t, SanitizeQueryString("emailToken=abc"))
	assert.True(t, SanitizeQueryString("OTP=123456"))
	assert.False(t, SanitizeQueryString("pageNo=2"))
	assert.False(t, SanitizeQueryString(""))
}

func TestAuditLogger_LogAuthAttempt_MasksEmail(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.LogAuthAttempt(AuditEvent{
		EventType:     "login_failed",
		Email:         "user@example.com",
		Success:       false,
		FailureReason: "FAILED_3_ATTEMPTS",
		Attempts:      3,
	})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "u***@*******.com", record["email"])
	assert.Equal(t, "FAILED_3_ATTEMPTS", record["failure_reason"])
	assert.EqualValues(t, 3, record["attempts"])
}
