package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// AuthServiceInterface defines the sign-in, OTP, password-reset and token flows
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*models.Outcome, error)
	LoginDirect(ctx context.Context, email, password string) (*models.Outcome, error)
	GenerateOtp(ctx context.Context, email string) (*models.Outcome, error)
	VerifyOtp(ctx context.Context, email string, otp int) (*models.Outcome, error)
	UnlockAccount(ctx context.Context, email string) (*models.Outcome, error)
	UserCheck(ctx context.Context, email string) (*models.Outcome, error)
	ResetPassword(ctx context.Context, input models.ResetPasswordInput) (*models.Outcome, error)
	InitialPasswordResetCheck(ctx context.Context, emailToken string) (*models.Outcome, error)
	GenerateResetPasswordToken(ctx context.Context, email string) (*models.Outcome, error)
	GenerateAccessToken(ctx context.Context, email string) (*models.Outcome, error)
	RolesAndPermissions(ctx context.Context, userID int64) (*models.Outcome, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service AuthServiceInterface
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// LoginRequest represents the request body for both login flows
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyOtpRequest represents the request body for OTP verification
type VerifyOtpRequest struct {
	Email string `json:"email" validate:"required,email"`
	Otp   int    `json:"otp" validate:"required"`
}

// UnlockRequest names the account an operator unlocks
type UnlockRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Login handles POST /auth/login-v2, the lockout-counted sign-in that issues the second factor
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.service.Login(r.Context(), req.Email, req.Password)
	writeOutcome(w, r, h.logger, out, err)
}

// LoginDirect handles POST /auth/login, sign-in without the second factor
func (h *AuthHandler) LoginDirect(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.service.LoginDirect(r.Context(), req.Email, req.Password)
	writeOutcome(w, r, h.logger, out, err)
}

// ResetPassword handles POST /auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordInput
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.service.ResetPassword(r.Context(), req)
	writeOutcome(w, r, h.logger, out, err)
}

// UserCheck handles GET /auth/user-check?email=
func (h *AuthHandler) UserCheck(w http.ResponseWriter, r *http.Request) {
	email, ok := h.emailParam(w, r)
	if !ok {
		return
	}

	out, err := h.service.UserCheck(r.Context(), email)
	writeOutcome(w, r, h.logger, out, err)
}

// UserResetCheck handles GET /auth/user-reset-check?emailToken=
func (h *AuthHandler) UserResetCheck(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("emailToken")
	if token == "" {
		pkghttp.WriteBadRequest(w, "emailToken is required")
		return
	}

	out, err := h.service.InitialPasswordResetCheck(r.Context(), token)
	writeOutcome(w, r, h.logger, out, err)
}

// GenerateOtp handles GET /auth/generate-otp?email=
func (h *AuthHandler) GenerateOtp(w http.ResponseWriter, r *http.Request) {
	email, ok := h.emailParam(w, r)
	if !ok {
		return
	}

	out, err := h.service.GenerateOtp(r.Context(), email)
	writeOutcome(w, r, h.logger, out, err)
}

// VerifyOtp handles POST /auth/verify-otp
func (h *AuthHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req VerifyOtpRequest
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.service.VerifyOtp(r.Context(), req.Email, req.Otp)
	writeOutcome(w, r, h.logger, out, err)
}

// GetResetPasswordToken handles GET /auth/get-reset-password-token?email=
func (h *AuthHandler) GetResetPasswordToken(w http.ResponseWriter, r *http.Request) {
	email, ok := h.emailParam(w, r)
	if !ok {
		return
	}

	out, err := h.service.GenerateResetPasswordToken(r.Context(), email)
	writeOutcome(w, r, h.logger, out, err)
}

// GetAccessToken handles GET /auth/get-access-token?email=
func (h *AuthHandler) GetAccessToken(w http.ResponseWriter, r *http.Request) {
	email, ok := h.emailParam(w, r)
	if !ok {
		return
	}

	out, err := h.service.GenerateAccessToken(r.Context(), email)
	writeOutcome(w, r, h.logger, out, err)
}

// GetUserRolesPermissions handles GET /auth/get-user-roles-permissions?userId=
func (h *AuthHandler) GetUserRolesPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryInt64(r, "userId")
	if !ok {
		pkghttp.WriteBadRequest(w, "userId must be a positive integer")
		return
	}

	out, err := h.service.RolesAndPermissions(r.Context(), userID)
	writeOutcome(w, r, h.logger, out, err)
}

// Unlock handles POST /auth/unlock. Requires a bearer token.
func (h *AuthHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.service.UnlockAccount(r.Context(), req.Email)
	writeOutcome(w, r, h.logger, out, err)
}

func (h *AuthHandler) emailParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	email := r.URL.Query().Get("email")
	if err := validate.Var(email, "required,email"); err != nil {
		pkghttp.WriteBadRequest(w, "email must be a valid email address")
		return "", false
	}
	return email, true
}
