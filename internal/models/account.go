package models

import (
	"strings"
	"time"
)

// TenantKind selects which identity-provider directory an operation targets
type TenantKind string

const (
	TenantClient TenantKind = "client"
	TenantAdmin  TenantKind = "admin"
)

// LoginState is the derived position of an account in the login flow
type LoginState string

const (
	LoginStateActive     LoginState = "active"
	LoginStatePendingOtp LoginState = "pending_otp"
	LoginStateLocked     LoginState = "locked"
)

// Account is the identity record owned by this service. Credentials live with the
// identity provider; the account holds lockout and OTP sub-state.
type Account struct {
	UserID       int64
	Email        string
	FirstName    string
	LastName     string
	MobileNumber string
	LanguageCode string
	UserTypeID   *int64
	AgencyID     *int64

	IsActive                bool
	IsAdmin                 bool
	IsAccountLocked         bool
	LastAccountLockTime     *time.Time
	LoginFailAttempts       int
	LoginCount              int
	OtpHash                 string
	OtpGeneratedOn          *time.Time
	OtpIncorrectCount       int
	IsMigratedFromLegacy    bool
	IsInitialPasswordReset  bool
	IsEmailVerified         bool
	IsResetPasswordLinkUsed bool

	Version    int64
	CreatedAt  time.Time
	ModifiedAt *time.Time
}

// Tenant returns the identity-provider directory this account belongs to.
func (a *Account) Tenant() TenantKind {
	if a.IsAdmin {
		return TenantAdmin
	}
	return TenantClient
}

// LoginState derives the account's current login position. An OTP counts as pending
// until it is older than otpExpiry.
func (a *Account) LoginState(now time.Time, otpExpiry time.Duration) LoginState {
	if a.IsAccountLocked {
		return LoginStateLocked
	}
	if a.OtpHash != "" && a.OtpGeneratedOn != nil && now.Sub(*a.OtpGeneratedOn) <= otpExpiry {
		return LoginStatePendingOtp
	}
	return LoginStateActive
}

// NormalizeEmail lowercases and trims an address for case-insensitive lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountSummary is the public projection of an account
type AccountSummary struct {
	UserID          int64  `json:"userId"`
	Email           string `json:"email"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	MobileNumber    string `json:"mobileNumber,omitempty"`
	LanguageCode    string `json:"languageCode,omitempty"`
	UserTypeID      *int64 `json:"userTypeId,omitempty"`
	AgencyID        *int64 `json:"agencyId,omitempty"`
	IsActive        bool   `json:"isActive"`
	IsAdmin         bool   `json:"isAdmin"`
	IsEmailVerified bool   `json:"isEmailVerified"`
	Otp             *int   `json:"otp,omitempty"`
	Token           string `json:"token,omitempty"`
}

// Summary projects the account for responses.
func (a *Account) Summary() *AccountSummary {
	return &AccountSummary{
		UserID:          a.UserID,
		Email:           a.Email,
		FirstName:       a.FirstName,
		LastName:        a.LastName,
		MobileNumber:    a.MobileNumber,
		LanguageCode:    a.LanguageCode,
		UserTypeID:      a.UserTypeID,
		AgencyID:        a.AgencyID,
		IsActive:        a.IsActive,
		IsAdmin:         a.IsAdmin,
		IsEmailVerified: a.IsEmailVerified,
	}
}

// UserType classifies registrants (e.g. individual, company)
type UserType struct {
	UserTypeID int64  `json:"userTypeId"`
	Name       string `json:"userTypeName"`
}

// Agency is an organisation company-type users belong to
type Agency struct {
	AgencyID   int64  `json:"agencyId"`
	AgencyCode string `json:"agencyCode"`
	AgencyName string `json:"agencyName"`
}

// UserTypesAndAgencies is the registration lookup payload
type UserTypesAndAgencies struct {
	UserTypes []UserType `json:"userTypes"`
	Agencies  []Agency   `json:"agencies"`
}

// UserListFilter narrows the paginated user list
type UserListFilter struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
