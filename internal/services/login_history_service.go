package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/google/uuid"
	"github.com/mssola/useragent"
)

const unknownFamily = "Other"

// LoginHistoryService records login interactions with the caller's device details
type LoginHistoryService struct {
	accounts AccountRepository
	history  LoginHistoryRepository
	provider IdentityProvider
	logger   *slog.Logger
	now      func() time.Time
}

func NewLoginHistoryService(accounts AccountRepository, history LoginHistoryRepository, provider IdentityProvider, logger *slog.Logger) *LoginHistoryService {
	return &LoginHistoryService{
		accounts: accounts,
		history:  history,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateLoginHistory appends one record for the account behind input.UserEmail.
func (s *LoginHistoryService) CreateLoginHistory(ctx context.Context, input models.CreateLoginHistoryInput, client models.ClientContext) (*models.Outcome, error) {
	email := models.NormalizeEmail(input.UserEmail)

	acct, err := findAccountByEmail(ctx, s.accounts, email, models.MsgNoAccountWithEmail)
	if err != nil {
		return nil, err
	}
	if err := requireProviderUser(ctx, s.provider, acct, models.MsgNoAccountWithEmail); err != nil {
		return nil, err
	}

	device := ParseDevice(client.UserAgent)

	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = s.now()
	}

	correlationID := client.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	created, err := s.history.Create(ctx, &models.LoginHistory{
		UserInteractionID:   input.UserInteractionID,
		UserID:              acct.UserID,
		Timestamp:           timestamp.UTC(),
		DetailedDescription: device.Description,
		Browser:             device.Browser,
		OS:                  device.OS,
		Device:              device.Device,
		IPAddress:           client.IPAddress,
		CorrelationID:       correlationID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("login history recorded",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.Int("interaction", input.UserInteractionID))

	return models.Succeeded(models.MsgLoginHistoryCreated, created), nil
}

// ParseDevice extracts browser, operating system and device class from a user agent.
// Parts that cannot be recognised are reported as "Other".
func ParseDevice(userAgent string) models.DeviceInfo {
	info := models.DeviceInfo{
		Browser: unknownFamily,
		OS:      unknownFamily,
		Device:  unknownFamily,
	}

	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		info.Description = describeDevice(info, "")
		return info
	}

	ua := useragent.New(userAgent)

	name, version := ua.Browser()
	if name != "" {
		info.Browser = name
	}
	if osName := ua.OSInfo().Name; osName != "" {
		info.OS = osName
	}

	switch {
	case ua.Bot():
		info.Device = "Spider"
	case ua.Mobile():
		if platform := ua.Platform(); platform != "" {
			info.Device = platform
		} else {
			info.Device = "Mobile"
		}
	}

	info.Description = describeDevice(info, version)
	return info
}

func describeDevice(info models.DeviceInfo, browserVersion string) string {
	browser := info.Browser
	if browserVersion != "" {
		browser = fmt.Sprintf("%s %s", info.Browser, browserVersion)
	}
	return fmt.Sprintf("%s/%s/%s", browser, info.OS, info.Device)
}
