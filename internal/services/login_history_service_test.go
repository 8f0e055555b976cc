package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDevice(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want models.DeviceInfo
	}{
		{
			name: "empty",
			ua:   "",
			want: models.DeviceInfo{Browser: "Other", OS: "Other", Device: "Other", Description: "Other/Other/Other"},
		},
		{
			name: "desktop chrome",
			ua:   "Mozilla/5.0 (Windows NT 6.1; WOW64) AppleWebKit/535.19 (KHTML, like Gecko) Chrome/18.0.1025.168 Safari/535.19",
			want: models.DeviceInfo{Browser: "Chrome", OS: "Windows", Device: "Other", Description: "Chrome 18.0.1025.168/Windows/Other"},
		},
		{
			name: "iphone safari",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 7_0_3 like Mac OS X) AppleWebKit/537.51.1 (KHTML, like Gecko) Version/7.0 Mobile/11B511 Safari/9537.53",
			want: models.DeviceInfo{Browser: "Safari", OS: "iPhone OS", Device: "iPhone", Description: "Safari 7.0/iPhone OS/iPhone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDevice(tt.ua))
		})
	}
}

func TestParseDevice_Crawler(t *testing.T) {
	info := ParseDevice("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")

	assert.Equal(t, "Spider", info.Device)
	assert.Equal(t, "Googlebot", info.Browser)
}

func TestLoginHistoryService_CreateLoginHistory(t *testing.T) {
	acct := NewTestAccount(21, "ada@example.com")
	var stored *models.LoginHistory
	history := &MockLoginHistoryRepository{
		CreateFunc: func(ctx context.Context, entry *models.LoginHistory) (*models.LoginHistory, error) {
			copied := *entry
			copied.ID = 5
			stored = &copied
			return &copied, nil
		},
	}
	svc := NewLoginHistoryService(&MockAccountRepository{GetByEmailFunc: accountByEmail(acct)}, history, &MockIdentityProvider{}, slog.Default())
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	out, err := svc.CreateLoginHistory(context.Background(), models.CreateLoginHistoryInput{
		UserEmail:         "ADA@example.com",
		UserInteractionID: models.InteractionLogin,
	}, models.ClientContext{
		IPAddress: "203.0.113.9",
		UserAgent: "Mozilla/5.0 (Windows NT 6.1; WOW64) AppleWebKit/535.19 (KHTML, like Gecko) Chrome/18.0.1025.168 Safari/535.19",
	})

	require.NoError(t, err)
	assert.Equal(t, models.MsgLoginHistoryCreated, out.Message)
	require.NotNil(t, stored)
	assert.Equal(t, int64(21), stored.UserID)
	assert.Equal(t, models.InteractionLogin, stored.UserInteractionID)
	assert.True(t, stored.Timestamp.Equal(now))
	assert.Equal(t, "Chrome", stored.Browser)
	assert.Equal(t, "203.0.113.9", stored.IPAddress)
	assert.NotEmpty(t, stored.CorrelationID)
}

func TestLoginHistoryService_CreateLoginHistory_KeepsCallerValues(t *testing.T) {
	acct := NewTestAccount(21, "ada@example.com")
	history := &MockLoginHistoryRepository{}
	svc := NewLoginHistoryService(&MockAccountRepository{GetByEmailFunc: accountByEmail(acct)}, history, &MockIdentityProvider{}, slog.Default())

	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.FixedZone("EST", -5*3600))
	out, err := svc.CreateLoginHistory(context.Background(), models.CreateLoginHistoryInput{
		UserEmail:         acct.Email,
		UserInteractionID: models.InteractionLogout,
		Timestamp:         at,
	}, models.ClientContext{CorrelationID: "req-123"})

	require.NoError(t, err)
	entry := out.Data.(*models.LoginHistory)
	assert.Equal(t, "req-123", entry.CorrelationID)
	assert.Equal(t, time.UTC, entry.Timestamp.Location())
	assert.True(t, entry.Timestamp.Equal(at))
}

func TestLoginHistoryService_CreateLoginHistory_UnknownAccount(t *testing.T) {
	acct := NewTestAccount(21, "ada@example.com")

	t.Run("not stored", func(t *testing.T) {
		svc := NewLoginHistoryService(&MockAccountRepository{}, &MockLoginHistoryRepository{}, &MockIdentityProvider{}, slog.Default())
		_, err := svc.CreateLoginHistory(context.Background(), models.CreateLoginHistoryInput{UserEmail: "x@example.com"}, models.ClientContext{})
		assert.Equal(t, models.MsgNoAccountWithEmail, models.CodeOf(err))
	})

	t.Run("not at provider", func(t *testing.T) {
		provider := &MockIdentityProvider{
			GetUserBySignInNameFunc: func(ctx context.Context, email string, tenant models.TenantKind) (*models.ProviderUser, error) {
				return nil, nil
			},
		}
		svc := NewLoginHistoryService(&MockAccountRepository{GetByEmailFunc: accountByEmail(acct)}, &MockLoginHistoryRepository{}, provider, slog.Default())
		_, err := svc.CreateLoginHistory(context.Background(), models.CreateLoginHistoryInput{UserEmail: acct.Email}, models.ClientContext{})
		assert.Equal(t, models.MsgNoAccountWithEmail, models.CodeOf(err))
	})
}
