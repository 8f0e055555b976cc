package logger

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	Email         string
	UserID        int64
	Tenant        string
	IPAddress     string
	Success       bool
	FailureReason string
	Attempts      int
	Metadata      map[string]string
}

// AuditLogger writes audit records through slog
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs login, OTP and token events
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.UserID != 0 {
		attrs = append(attrs, slog.Int64("user_id", event.UserID))
	}
	if event.Tenant != "" {
		attrs = append(attrs, slog.String("tenant", event.Tenant))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	if event.Attempts > 0 {
		attrs = append(attrs, slog.Int("attempts", event.Attempts))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

// LogLockout logs an account being locked or unlocked
func (al *AuditLogger) LogLockout(email string, locked bool, attempts int) {
	eventType := "account_unlocked"
	level := slog.LevelInfo
	if locked {
		eventType = "account_locked"
		level = slog.LevelWarn
	}

	al.logger.LogAttrs(context.Background(), level, "audit",
		slog.String("audit_type", "lockout"),
		slog.String("event_type", eventType),
		slog.String("email", SanitizedEmail(email)),
		slog.Int("attempts", attempts),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}

// LogPasswordReset logs password reset events
func (al *AuditLogger) LogPasswordReset(email string, success bool) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}

	al.logger.LogAttrs(context.Background(), level, "audit",
		slog.String("audit_type", "password"),
		slog.String("event_type", "password_reset"),
		slog.Bool("success", success),
		slog.String("email", SanitizedEmail(email)),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}

// LogAccountAction logs general account actions
func (al *AuditLogger) LogAccountAction(eventType, email string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "account"),
		slog.String("event_type", eventType),
		slog.String("email", SanitizedEmail(email)),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}

// LogRoleChange logs grant changes applied to a role
func (al *AuditLogger) LogRoleChange(roleID int64, granted, revoked int, success bool) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}

	al.logger.LogAttrs(context.Background(), level, "audit",
		slog.String("audit_type", "role"),
		slog.String("event_type", "role_grants_updated"),
		slog.String("role_id", strconv.FormatInt(roleID, 10)),
		slog.Int("granted", granted),
		slog.Int("revoked", revoked),
		slog.Bool("success", success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}
