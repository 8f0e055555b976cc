package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/chi/v5/middleware"
)

// LoginHistoryServiceInterface records login interactions
type LoginHistoryServiceInterface interface {
	CreateLoginHistory(ctx context.Context, input models.CreateLoginHistoryInput, client models.ClientContext) (*models.Outcome, error)
}

// LoginHistoryHandler handles login history requests
type LoginHistoryHandler struct {
	service  LoginHistoryServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewLoginHistoryHandler creates a new LoginHistoryHandler
func NewLoginHistoryHandler(service LoginHistoryServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *LoginHistoryHandler {
	return &LoginHistoryHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Create handles POST /LoginHistory/create-login-history
func (h *LoginHistoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLoginHistoryInput
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	client := pkghttp.ExtractClient(r, h.ipConfig)
	out, err := h.service.CreateLoginHistory(r.Context(), req, models.ClientContext{
		IPAddress:     client.IP,
		UserAgent:     client.UserAgent,
		CorrelationID: middleware.GetReqID(r.Context()),
	})
	writeOutcome(w, r, h.logger, out, err)
}
