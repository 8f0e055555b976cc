package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims carries identity and optional role claims. Claim names match what
// downstream services read, hence the mixed casing.
type TokenClaims struct {
	Email        string `json:"email"`
	FirstName    string `json:"FirstName,omitempty"`
	LastName     string `json:"LastName,omitempty"`
	RoleID       string `json:"RoleId,omitempty"`
	MobileNumber string `json:"MobileNumber,omitempty"`
	UserID       string `json:"UserId,omitempty"`
	jwt.RegisteredClaims
}

// DecodedToken is what an unverified parse exposes. Timestamps are Unix seconds.
type DecodedToken struct {
	Email string `json:"email"`
	Nbf   int64  `json:"nbf"`
	Exp   int64  `json:"exp"`
	Iat   int64  `json:"iat"`
}

// ProviderToken is the token bundle returned by the identity provider on login
type ProviderToken struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// ProviderUser is a directory entry at the identity provider
type ProviderUser struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	GivenName      string `json:"givenName"`
	Surname        string `json:"surname"`
	AccountEnabled bool   `json:"accountEnabled"`
}

// ProviderRegistration is what the identity provider needs to create a user
type ProviderRegistration struct {
	FirstName     string
	LastName      string
	Email         string
	Password      string
	ContactNumber string
}

// OtpPayload is returned whenever a second-factor code is issued
type OtpPayload struct {
	Email        string `json:"email"`
	Otp          int    `json:"otp,omitempty"`
	FirstName    string `json:"firstname"`
	LastName     string `json:"lastname"`
	LanguageCode string `json:"languagecode"`
	AccessToken  string `json:"accessToken,omitempty"`
}

// OtpVerification is returned by a successful code check
type OtpVerification struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Verified bool   `json:"verified"`
}

// LoginResponse is a provider login plus the service's own login token
type LoginResponse struct {
	*ProviderToken
	LoginToken string `json:"loginToken"`
}

// PasswordResetResult is returned after a password change
type PasswordResetResult struct {
	User          *AccountSummary `json:"user"`
	LoginResponse *LoginResponse  `json:"loginResponse"`
}

// TokenResult carries a reset-password token and the account it belongs to
type TokenResult struct {
	Token string          `json:"token"`
	User  *AccountSummary `json:"user"`
}

// AccessTokenResult carries a full-claims access token
type AccessTokenResult struct {
	AccessToken string `json:"accessToken"`
}

// ResetPasswordInput changes a password, optionally updating the mobile number
type ResetPasswordInput struct {
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required"`
	MobileNumber *string `json:"mobileNumber,omitempty"`
}

// RegisterInput creates an account here and at the identity provider
type RegisterInput struct {
	Email        string `json:"emailaddress" validate:"required,email"`
	FirstName    string `json:"firstname" validate:"required,max=100"`
	LastName     string `json:"lastname" validate:"required,max=100"`
	Password     string `json:"password" validate:"required"`
	MobileNumber string `json:"mobilenumber" validate:"required"`
	LanguageCode string `json:"languagecode" validate:"omitempty,max=10"`
	UserTypeID   *int64 `json:"userTypeId,omitempty"`
	AgencyID     *int64 `json:"agencyId,omitempty"`
}

// CreateLoginHistoryInput records one login interaction
type CreateLoginHistoryInput struct {
	UserEmail         string    `json:"userEmail" validate:"required,email"`
	UserInteractionID int       `json:"userIntractionId" validate:"required,gt=0"`
	Timestamp         time.Time `json:"timestamp"`
}
