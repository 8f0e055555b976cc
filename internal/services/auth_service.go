package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/metrics"
	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// AuthSettings are the policies and token lifetimes the auth flows run under
type AuthSettings struct {
	Lockout                       auth.LockoutPolicy
	Otp                           auth.OtpPolicy
	LoginTokenExpiryHours         int
	ResetPasswordTokenExpiryHours int
}

// AuthService runs the login, OTP, password-reset and token flows
type AuthService struct {
	accounts    AccountRepository
	userRoles   UserRoleRepository
	provider    IdentityProvider
	tokens      *auth.TokenIssuer
	settings    AuthSettings
	notifier    OtpNotifier
	throttle    OtpThrottle
	metrics     *metrics.Metrics
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

func NewAuthService(
	accounts AccountRepository,
	userRoles UserRoleRepository,
	provider IdentityProvider,
	tokens *auth.TokenIssuer,
	settings AuthSettings,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		accounts:    accounts,
		userRoles:   userRoles,
		provider:    provider,
		tokens:      tokens,
		settings:    settings,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// SetNotifier enables delivery of issued codes
func (s *AuthService) SetNotifier(n OtpNotifier) {
	s.notifier = n
}

// SetThrottle enables the per-email limit on code requests
func (s *AuthService) SetThrottle(t OtpThrottle) {
	s.throttle = t
}

// SetMetrics enables the login and OTP counters.
func (s *AuthService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Login checks credentials with the identity provider and, on success, issues the second
// factor. Credential mismatches are counted toward lockout. The call that locks the account
// returns a failed outcome instead of an error so the caller can show who was locked.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Outcome, error) {
	email = models.NormalizeEmail(email)

	acct, err := findAccountByEmail(ctx, s.accounts, email, models.MsgUserNotFound)
	if err != nil {
		s.auditLogin(email, 0, false, models.CodeOf(err), 0)
		return nil, err
	}

	if admitted := s.settings.Lockout.Admit(*acct); admitted.Kind != auth.OutcomeProceed {
		s.metrics.ObserveLogin(admitted.Kind.String())
		s.auditLogin(email, acct.UserID, false, admitted.Code, admitted.Attempts)
		return nil, admitted.Err()
	}

	if err := requireProviderUser(ctx, s.provider, acct, models.MsgUserNotFound); err != nil {
		return nil, err
	}

	now := s.now()
	// A reset that falls due is only written together with the outcome of this attempt
	current := s.settings.Lockout.AutoReset(*acct, now).Next

	token, err := s.provider.InitiateLogin(ctx, email, password, acct.Tenant())
	if err != nil {
		if models.CodeOf(err) != models.MsgEmailPasswordWrong {
			return nil, err
		}
		return s.recordLoginFailure(ctx, acct, current, now)
	}

	code, hash, err := newOtp()
	if err != nil {
		return nil, err
	}

	tr := s.settings.Lockout.RecordSuccess(current, now, hash)
	saved, err := saveLoginState(ctx, s.accounts, acct, tr.Next)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveLogin(tr.Outcome.Kind.String())
	s.auditLogin(email, saved.UserID, true, "", 0)
	s.notify(ctx, saved, code)

	return models.Succeeded(models.MsgOtpGenerated, &models.OtpPayload{
		Email:        saved.Email,
		Otp:          code,
		FirstName:    saved.FirstName,
		LastName:     saved.LastName,
		LanguageCode: saved.LanguageCode,
		AccessToken:  token.AccessToken,
	}), nil
}

func (s *AuthService) recordLoginFailure(ctx context.Context, prev *models.Account, current models.Account, now time.Time) (*models.Outcome, error) {
	tr := s.settings.Lockout.RecordFailure(current, now)

	saved, err := saveLoginState(ctx, s.accounts, prev, tr.Next)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveLogin(tr.Outcome.Kind.String())
	s.auditLogin(saved.Email, saved.UserID, false, tr.Outcome.Code, tr.Outcome.Attempts)

	if tr.Outcome.Kind == auth.OutcomeLocked {
		s.metrics.ObserveLockout()
		s.auditLogger.LogLockout(saved.Email, true, tr.Outcome.Attempts)
		return models.Failed(models.MsgAccountLocked, &models.OtpPayload{
			Email:        saved.Email,
			FirstName:    saved.FirstName,
			LastName:     saved.LastName,
			LanguageCode: saved.LanguageCode,
		}), nil
	}

	return nil, tr.Outcome.Err()
}

// LoginDirect checks credentials without a second factor or failure counting.
func (s *AuthService) LoginDirect(ctx context.Context, email, password string) (*models.Outcome, error) {
	email = models.NormalizeEmail(email)

	acct, err := findAccountByEmail(ctx, s.accounts, email, models.MsgUserNotFound)
	if err != nil {
		return nil, err
	}
	if !acct.IsActive {
		return nil, models.Validation(models.MsgUserNotActive)
	}

	token, err := s.provider.InitiateLogin(ctx, email, password, acct.Tenant())
	if err != nil {
		return nil, err
	}

	return models.Succeeded(models.MsgUserLoginSuccessfully, token), nil
}

// GenerateOtp issues a fresh code and resets the incorrect-code counter.
func (s *AuthService) GenerateOtp(ctx context.Context, email string) (*models.Outcome, error) {
	email = models.NormalizeEmail(email)

	acct, err := findAccountByEmail(ctx, s.accounts, email, models.MsgUserNotFound)
	if err != nil {
		return nil, err
	}
	if err := requireProviderUser(ctx, s.provider, acct, models.MsgUserNotFound); err != nil {
		return nil, err
	}

	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, "otp:"+email)
		if err != nil {
			// Throttle outages do not block sign-in
			s.logger.Warn("otp throttle unavailable", slog.Any("error", err))
		} else if !allowed {
			s.metrics.ObserveThrottled()
			return nil, models.Validation(models.MsgTooManyOtpRequests)
		}
	}

	code, hash, err := newOtp()
	if err != nil {
		return nil, err
	}

	tr := s.settings.Otp.Issue(*acct, s.now(), hash)
	saved, err := saveLoginState(ctx, s.accounts, acct, tr.Next)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, saved, code)

	return models.Succeeded(models.MsgOtpGenerated, &models.OtpPayload{
		Email:        saved.Email,
		Otp:          code,
		FirstName:    saved.FirstName,
		LastName:     saved.LastName,
		LanguageCode: saved.LanguageCode,
	}), nil
}

// VerifyOtp checks a submitted code and returns a login token on success.
func (s *AuthService) VerifyOtp(ctx context.Context, email string, otp int) (*models.Outcome, error) {
	email = models.NormalizeEmail(email)

	acct, err := findAccountByEmail(ctx, s.accounts, email, models.MsgUserNotFound)
	if err != nil {
		return nil, err
	}
	if err := requireProviderUser(ctx, s.provider, acct, models.MsgUserNotFound); err != nil {
		return nil, err
	}

	if _, err := verifyOtp(ctx, s.accounts, s.settings.Otp, acct, otp, s.now()); err != nil {
		s.metrics.ObserveOtp(models.CodeOf(err))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "otp_verification",
			Email:         email,
			UserID:        acct.UserID,
			Success:       false,
			FailureReason: models.CodeOf(err),
		})
		return nil, err
	}

	token, err := s.tokens.IssueEmailToken(acct.Email, s.settings.LoginTokenExpiryHours)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveOtp(models.MsgOtpVerified)
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "otp_verification",
		Email:     email,
		UserID:    acct.UserID,
		Success:   true,
	})

	return models.Succeeded(models.MsgOtpVerified, &models.OtpVerification{
		Email:    acct.Email,
		Token:    token,
		Verified: true,
	}), nil
}

// UnlockAccount clears the lock flag and failure counter of an account.
func (s *AuthService) UnlockAccount(ctx context.Context, email string) (*models.Outcome, error) {
	email = models.NormalizeEmail(email)

	acct, err := findAccountByEmail(ctx, s.accounts, email, models.MsgNoAccountWithEmail)
	if err != nil {
		return nil, err
	}

	tr := s.settings.Lockout.Unlock(*acct, s.now())
	saved := acct
	if tr.Write {
		if saved, err = saveLoginState(ctx, s.accounts, acct, tr.Next); err != nil {
			return nil, err
		}
		s.auditLogger.LogLockout(email, false, acct.LoginFailAttempts)
	}

	return models.Succeeded(models.MsgAccountUnlocked, saved.Summary()), nil
}

// UserCheck reports whether an active account exists for email.
func (s *AuthService) UserCheck(ctx context.Context, email string) (*models.Outcome, error) {
	acct, err := findAccountByEmail(ctx, s.accounts, models.NormalizeEmail(email), models.MsgNoAccountFound)
	if err != nil {
		return nil, err
	}
	if err := requireProviderUser(ctx, s.provider, acct, models.MsgNoAccountFound); err != nil {
		return nil, err
	}
	if !acct.IsActive {
		return nil, models.Validation(models.MsgUserNotActive)
	}

	return models.Succeeded(models.MsgUserExist, acct.Summary()), nil
}

// ResetPassword changes the password at the identity provider, marks the reset link as
// used and signs the account in.
func (s *AuthService) ResetPassword(ctx context.Context, input models.ResetPasswordInput) (*models.Outcome, error) {
	email := models.NormalizeEmail(input.Email)

	acct, err := findAccountByEmail(ctx, s.accounts, email, models.MsgUserNotRegistered)
	if err != nil {
		return nil, err
	}

	next := *acct
	if input.MobileNumber != nil {
		if !pkgauth.IsValidMobileNumber(*input.MobileNumber) {
			return nil, models.Validation(models.MsgMobileNoInvalid)
		}
		next.MobileNumber = pkgauth.NormalizeMobileNumber(*input.MobileNumber)
	}
	next.IsInitialPasswordReset = true
	next.IsResetPasswordLinkUsed = true

	saved, err := saveProfile(ctx, s.accounts, acct, next)
	if err != nil {
		return nil, err
	}

	if err := s.provider.ResetPassword(ctx, email, input.Password, saved.Tenant()); err != nil {
		s.auditLogger.LogPasswordReset(email, false)
		return nil, err
	}
	s.auditLogger.LogPasswordReset(email, true)

	providerToken, err := s.provider.InitiateLogin(ctx, email, input.Password, saved.Tenant())
	if err != nil {
		return nil, err
	}

	loginToken, err := s.tokens.IssueEmailToken(saved.Email, s.settings.LoginTokenExpiryHours)
	if err != nil {
		return nil, err
	}

	return models.Succeeded(models.MsgPasswordChanged, &models.PasswordResetResult{
		User:          saved.Summary(),
		LoginResponse: &models.LoginResponse{ProviderToken: providerToken, LoginToken: loginToken},
	}), nil
}

// InitialPasswordResetCheck reports whether a reset link still applies and whether the
// account must set its first password after migration.
func (s *AuthService) InitialPasswordResetCheck(ctx context.Context, emailToken string) (*models.Outcome, error) {
	if !s.tokens.Validate(emailToken) {
		return nil, models.Validation(models.MsgResetLinkInvalid)
	}

	decoded, err := s.tokens.Decode(emailToken)
	if err != nil {
		return nil, err
	}

	acct, err := findAccountByEmail(ctx, s.accounts, models.NormalizeEmail(decoded.Email), models.MsgUserNotRegistered)
	if err != nil {
		return nil, err
	}
	if acct.IsResetPasswordLinkUsed {
		return nil, models.Validation(models.MsgResetLinkUsed)
	}

	return models.Succeeded(models.MsgInitialResetCheckSucceeded, acct.IsInitialPasswordReset && acct.IsMigratedFromLegacy), nil
}

// GenerateResetPasswordToken issues a reset token and re-arms the reset link.
func (s *AuthService) GenerateResetPasswordToken(ctx context.Context, email string) (*models.Outcome, error) {
	acct, err := s.signInEligible(ctx, email)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.IssueEmailToken(acct.Email, s.settings.ResetPasswordTokenExpiryHours)
	if err != nil {
		return nil, err
	}

	next := *acct
	next.IsResetPasswordLinkUsed = false
	saved, err := saveProfile(ctx, s.accounts, acct, next)
	if err != nil {
		return nil, err
	}

	s.auditLogger.LogAccountAction("reset_token_issued", saved.Email, nil)

	return models.Succeeded(models.MsgTokenGenerated, &models.TokenResult{Token: token, User: saved.Summary()}), nil
}

// GenerateAccessToken issues a token carrying the account profile and its first active role.
func (s *AuthService) GenerateAccessToken(ctx context.Context, email string) (*models.Outcome, error) {
	acct, err := s.signInEligible(ctx, email)
	if err != nil {
		return nil, err
	}

	roles, err := s.userRoles.ActiveUserRoles(ctx, acct.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	var roleID string
	if len(roles) > 0 {
		roleID = strconv.FormatInt(roles[0].RoleID, 10)
	}

	token, err := s.tokens.IssueToken(models.TokenClaims{
		Email:        acct.Email,
		FirstName:    acct.FirstName,
		LastName:     acct.LastName,
		RoleID:       roleID,
		MobileNumber: acct.MobileNumber,
		UserID:       strconv.FormatInt(acct.UserID, 10),
	}, s.settings.LoginTokenExpiryHours)
	if err != nil {
		return nil, err
	}

	return models.Succeeded(models.MsgAccessTokenGenerated, &models.AccessTokenResult{AccessToken: token}), nil
}

// RolesAndPermissions lists the active roles of an account with their granted codes.
func (s *AuthService) RolesAndPermissions(ctx context.Context, userID int64) (*models.Outcome, error) {
	roles, err := userRolesWithPermissions(ctx, s.userRoles, userID)
	if err != nil {
		return nil, err
	}
	return models.Succeeded(models.MsgRolesPermissionsRetrieved, roles), nil
}

func (s *AuthService) signInEligible(ctx context.Context, email string) (*models.Account, error) {
	acct, err := findAccountByEmail(ctx, s.accounts, models.NormalizeEmail(email), models.MsgNoAccountWithEmail)
	if err != nil {
		return nil, err
	}
	if err := requireProviderUser(ctx, s.provider, acct, models.MsgNoAccountWithEmail); err != nil {
		return nil, err
	}
	if !acct.IsActive {
		return nil, models.Validation(models.MsgUserNotActive)
	}
	if acct.IsAccountLocked {
		return nil, models.Validation(models.MsgAccountLockedDefault)
	}
	return acct, nil
}

func (s *AuthService) notify(ctx context.Context, acct *models.Account, code int) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendOtp(ctx, acct, code, s.settings.Otp.Expiry); err != nil {
		s.logger.Error("failed to deliver otp",
			slog.String("email", pkglogger.SanitizedEmail(acct.Email)),
			slog.Any("error", err))
	}
}

func (s *AuthService) auditLogin(email string, userID int64, success bool, reason string, attempts int) {
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login",
		Email:         email,
		UserID:        userID,
		Success:       success,
		FailureReason: reason,
		Attempts:      attempts,
	})
}

func findAccountByEmail(ctx context.Context, accounts AccountRepository, email, notFoundCode string) (*models.Account, error) {
	acct, err := accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFound(notFoundCode)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acct, nil
}

func requireProviderUser(ctx context.Context, provider IdentityProvider, acct *models.Account, notFoundCode string) error {
	user, err := provider.GetUserBySignInName(ctx, acct.Email, acct.Tenant())
	if err != nil {
		return fmt.Errorf("failed to look up provider user: %w", err)
	}
	if user == nil {
		return models.NotFound(notFoundCode)
	}
	return nil
}

func saveLoginState(ctx context.Context, accounts AccountRepository, prev *models.Account, next models.Account) (*models.Account, error) {
	saved, err := accounts.SaveLoginState(ctx, &next, prev.Version)
	return savedOrStale(saved, err)
}

func saveProfile(ctx context.Context, accounts AccountRepository, prev *models.Account, next models.Account) (*models.Account, error) {
	saved, err := accounts.SaveProfile(ctx, &next, prev.Version)
	return savedOrStale(saved, err)
}

func savedOrStale(saved *models.Account, err error) (*models.Account, error) {
	if err != nil {
		if errors.Is(err, models.ErrStaleWrite) {
			return nil, models.StaleWrite()
		}
		return nil, fmt.Errorf("failed to save account: %w", err)
	}
	return saved, nil
}

// verifyOtp runs the code check and persists a counted mismatch before reporting it.
func verifyOtp(ctx context.Context, accounts AccountRepository, policy auth.OtpPolicy, acct *models.Account, otp int, now time.Time) (*models.Account, error) {
	tr, verifyErr := policy.Verify(*acct, otp, now, pkgauth.CodeMatches)
	if tr.Write {
		saved, err := saveLoginState(ctx, accounts, acct, tr.Next)
		if err != nil {
			return nil, err
		}
		acct = saved
	}
	if verifyErr != nil {
		return nil, verifyErr
	}
	return acct, nil
}

func newOtp() (int, string, error) {
	code, err := auth.GenerateOTP()
	if err != nil {
		return 0, "", err
	}
	hash, err := pkgauth.HashCode(code)
	if err != nil {
		return 0, "", err
	}
	return code, hash, nil
}

func userRolesWithPermissions(ctx context.Context, userRoles UserRoleRepository, userID int64) ([]models.UserRoleWithPermissions, error) {
	roles, err := userRoles.ActiveUserRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	result := make([]models.UserRoleWithPermissions, 0, len(roles))
	for _, ur := range roles {
		codes, err := userRoles.RoleGrantedCodes(ctx, ur.RoleID)
		if err != nil {
			return nil, fmt.Errorf("failed to get role permissions: %w", err)
		}

		entry := models.UserRoleWithPermissions{RoleID: ur.RoleID, Permissions: codes}
		if ur.Role != nil {
			entry.Code = ur.Role.Code
			entry.Name = ur.Role.Name
			entry.Description = ur.Role.Description
		}
		result = append(result, entry)
	}

	return result, nil
}
