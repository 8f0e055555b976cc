package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

const companyUserType = "company"

// UserService registers accounts and serves the user lists
type UserService struct {
	accounts    AccountRepository
	lookups     LookupRepository
	provider    IdentityProvider
	tokens      *auth.TokenIssuer
	settings    AuthSettings
	notifier    OtpNotifier
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

func NewUserService(
	accounts AccountRepository,
	lookups LookupRepository,
	provider IdentityProvider,
	tokens *auth.TokenIssuer,
	settings AuthSettings,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *UserService {
	return &UserService{
		accounts:    accounts,
		lookups:     lookups,
		provider:    provider,
		tokens:      tokens,
		settings:    settings,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// SetNotifier enables delivery of registration codes
func (s *UserService) SetNotifier(n OtpNotifier) {
	s.notifier = n
}

// Register creates a client account.
func (s *UserService) Register(ctx context.Context, input models.RegisterInput) (*models.Outcome, error) {
	return s.register(ctx, input, models.TenantClient)
}

// RegisterAdmin creates an account in the admin directory. User type and agency are not required.
func (s *UserService) RegisterAdmin(ctx context.Context, input models.RegisterInput) (*models.Outcome, error) {
	return s.register(ctx, input, models.TenantAdmin)
}

func (s *UserService) register(ctx context.Context, input models.RegisterInput, tenant models.TenantKind) (*models.Outcome, error) {
	email := models.NormalizeEmail(input.Email)

	providerUser, err := s.provider.GetUserBySignInName(ctx, email, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to look up provider user: %w", err)
	}

	existing, err := s.accounts.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if existing != nil {
		// An unverified registration may be restarted with fresh details
		if !existing.IsEmailVerified {
			return s.restartRegistration(ctx, existing, input)
		}
		return nil, models.Conflict(models.MsgEmailAlreadyUsed)
	}
	if providerUser != nil {
		return nil, models.Conflict(models.MsgEmailAlreadyUsed)
	}

	if !pkgauth.IsStrongPassword(input.Password) {
		return nil, models.Validation(models.MsgWeakPassword)
	}
	if !pkgauth.IsValidMobileNumber(input.MobileNumber) {
		return nil, models.Validation(models.MsgMobileInvalid)
	}
	if tenant == models.TenantClient {
		if err := s.checkUserType(ctx, input); err != nil {
			return nil, err
		}
	}

	created, err := s.provider.CreateNewUser(ctx, models.ProviderRegistration{
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Email:         email,
		Password:      input.Password,
		ContactNumber: pkgauth.NormalizeMobileNumber(input.MobileNumber),
	}, tenant)
	if err != nil {
		return nil, err
	}
	if created == nil {
		s.logger.Error("identity provider returned no user after creation",
			slog.String("email", pkglogger.SanitizedEmail(email)))
		return nil, models.Validation(models.MsgUserCreationFailed)
	}

	code, hash, err := newOtp()
	if err != nil {
		return nil, err
	}

	now := s.now()
	acct, err := s.accounts.Create(ctx, &models.Account{
		Email:          email,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		MobileNumber:   pkgauth.NormalizeMobileNumber(input.MobileNumber),
		LanguageCode:   input.LanguageCode,
		UserTypeID:     input.UserTypeID,
		AgencyID:       input.AgencyID,
		IsAdmin:        tenant == models.TenantAdmin,
		OtpHash:        hash,
		OtpGeneratedOn: &now,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.Conflict(models.MsgEmailAlreadyUsed)
		}
		return nil, err
	}

	s.auditLogger.LogAccountAction("account_registered", email, map[string]string{
		"tenant":  string(tenant),
		"user_id": strconv.FormatInt(acct.UserID, 10),
	})
	s.notify(ctx, acct, code)

	return models.Succeeded(models.MsgUserRegistered, withOtp(acct, code)), nil
}

func (s *UserService) restartRegistration(ctx context.Context, existing *models.Account, input models.RegisterInput) (*models.Outcome, error) {
	code, hash, err := newOtp()
	if err != nil {
		return nil, err
	}

	next := s.settings.Otp.Issue(*existing, s.now(), hash).Next
	next.FirstName = input.FirstName
	next.LastName = input.LastName
	next.LanguageCode = input.LanguageCode
	next.MobileNumber = pkgauth.NormalizeMobileNumber(input.MobileNumber)

	saved, err := saveProfile(ctx, s.accounts, existing, next)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, saved, code)

	return models.Succeeded(models.MsgOtpGenerated, withOtp(saved, code)), nil
}

func (s *UserService) checkUserType(ctx context.Context, input models.RegisterInput) error {
	if input.UserTypeID == nil {
		return models.Validation(models.MsgUserTypeRequired)
	}

	userType, err := s.lookups.GetUserType(ctx, *input.UserTypeID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user type: %w", err)
	}

	if strings.EqualFold(userType.Name, companyUserType) && input.AgencyID == nil {
		return models.Validation(models.MsgAgencyRequired)
	}
	return nil
}

// ValidateOtp completes a registration: the code is checked as in VerifyOtp, then the
// account is marked verified and active.
func (s *UserService) ValidateOtp(ctx context.Context, userID int64, otp int) (*models.Outcome, error) {
	acct, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFound(models.MsgUserNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if err := requireProviderUser(ctx, s.provider, acct, models.MsgUserNotFound); err != nil {
		return nil, err
	}

	acct, err = verifyOtp(ctx, s.accounts, s.settings.Otp, acct, otp, s.now())
	if err != nil {
		return nil, err
	}

	next := *acct
	next.IsEmailVerified = true
	next.IsActive = true
	saved, err := saveProfile(ctx, s.accounts, acct, next)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.IssueEmailToken(saved.Email, s.settings.LoginTokenExpiryHours)
	if err != nil {
		return nil, err
	}

	s.auditLogger.LogAccountAction("email_verified", saved.Email, nil)

	summary := saved.Summary()
	summary.Token = token
	return models.Succeeded(models.MsgOtpVerified, summary), nil
}

// ListUsers returns one page of accounts matching filter, newest change first.
func (s *UserService) ListUsers(ctx context.Context, filter models.UserListFilter, page models.PageRequest) (*models.Outcome, error) {
	page = page.Normalize()

	accounts, err := s.accounts.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}

	total, err := s.accounts.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	entities := make([]*models.AccountSummary, 0, len(accounts))
	for _, acct := range accounts {
		entities = append(entities, acct.Summary())
	}

	return models.Succeeded(models.MsgUsersRetrieved, &models.Page[*models.AccountSummary]{
		Entities:   entities,
		Pagination: models.Pagination{Length: total, PageSize: page.PageSize},
	}), nil
}

// UserTypesAndAgencies returns the registration reference data.
func (s *UserService) UserTypesAndAgencies(ctx context.Context) (*models.Outcome, error) {
	userTypes, err := s.lookups.ListUserTypes(ctx)
	if err != nil {
		return nil, err
	}

	agencies, err := s.lookups.ListAgencies(ctx)
	if err != nil {
		return nil, err
	}

	return models.Succeeded(models.MsgUserTypesAndAgencies, &models.UserTypesAndAgencies{
		UserTypes: userTypes,
		Agencies:  agencies,
	}), nil
}

func (s *UserService) notify(ctx context.Context, acct *models.Account, code int) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendOtp(ctx, acct, code, s.settings.Otp.Expiry); err != nil {
		s.logger.Error("failed to deliver registration otp",
			slog.String("email", pkglogger.SanitizedEmail(acct.Email)),
			slog.Any("error", err))
	}
}

func withOtp(acct *models.Account, code int) *models.AccountSummary {
	summary := acct.Summary()
	summary.Otp = &code
	return summary
}
