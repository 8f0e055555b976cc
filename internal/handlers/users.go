package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// UserServiceInterface defines registration and user listing
type UserServiceInterface interface {
	Register(ctx context.Context, input models.RegisterInput) (*models.Outcome, error)
	RegisterAdmin(ctx context.Context, input models.RegisterInput) (*models.Outcome, error)
	ValidateOtp(ctx context.Context, userID int64, otp int) (*models.Outcome, error)
	ListUsers(ctx context.Context, filter models.UserListFilter, page models.PageRequest) (*models.Outcome, error)
	UserTypesAndAgencies(ctx context.Context) (*models.Outcome, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	service UserServiceInterface
	logger  *slog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserServiceInterface, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

// ValidateOtpRequest confirms a registration with the code sent to the new user
type ValidateOtpRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
	Otp    int   `json:"otp" validate:"required"`
}

// UserPageRequest selects one page of users
type UserPageRequest struct {
	models.PageRequest
	Filters models.UserListFilter `json:"filters"`
}

// Register handles POST /user
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.service.Register(r.Context(), req)
	writeOutcome(w, r, h.logger, out, err)
}

// RegisterAdmin handles POST /user/admin. Requires a bearer token.
func (h *UserHandler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.service.RegisterAdmin(r.Context(), req)
	writeOutcome(w, r, h.logger, out, err)
}

// ValidateOtp handles POST /user/validate-otp
func (h *UserHandler) ValidateOtp(w http.ResponseWriter, r *http.Request) {
	var req ValidateOtpRequest
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.service.ValidateOtp(r.Context(), req.UserID, req.Otp)
	writeOutcome(w, r, h.logger, out, err)
}

// ListUsers handles POST /user/paginated
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var req UserPageRequest
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.service.ListUsers(r.Context(), req.Filters, req.PageRequest)
	writeOutcome(w, r, h.logger, out, err)
}

// UserTypesAndAgencies handles GET /user/get-user-types-and-agencies
func (h *UserHandler) UserTypesAndAgencies(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.UserTypesAndAgencies(r.Context())
	writeOutcome(w, r, h.logger, out, err)
}
