package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/chi/v5"
)

// PermissionServiceInterface defines role and catalog management
type PermissionServiceInterface interface {
	AssembleRoleView(ctx context.Context, roleID int64) (*models.Outcome, error)
	UpdateRoleGrants(ctx context.Context, roleID int64, input models.UpdateRoleInput) (*models.Outcome, error)
	CreateModuleInterfacePermission(ctx context.Context, input models.CreateCatalogEntryInput) (*models.Outcome, error)
	NextRoleCode(ctx context.Context) (*models.Outcome, error)
	CreateRole(ctx context.Context, input models.CreateRoleInput) (*models.Outcome, error)
	ListRoles(ctx context.Context, filter models.RoleListFilter, page models.PageRequest) (*models.Outcome, error)
	ListUserGroups(ctx context.Context) (*models.Outcome, error)
	ListModules(ctx context.Context) (*models.Outcome, error)
}

// RoleHandler handles role and permission catalog requests
type RoleHandler struct {
	service PermissionServiceInterface
	logger  *slog.Logger
}

// NewRoleHandler creates a new RoleHandler
func NewRoleHandler(service PermissionServiceInterface, logger *slog.Logger) *RoleHandler {
	return &RoleHandler{
		service: service,
		logger:  logger,
	}
}

// RolePageRequest selects one page of roles
type RolePageRequest struct {
	models.PageRequest
	Filters models.RoleListFilter `json:"filters"`
}

// ListUserGroups handles GET /RolePermissions/user-group/simple
func (h *RoleHandler) ListUserGroups(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListUserGroups(r.Context())
	writeOutcome(w, r, h.logger, out, err)
}

// CreateModulePermission handles POST /RolePermissions/module-permissions
func (h *RoleHandler) CreateModulePermission(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCatalogEntryInput
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.service.CreateModuleInterfacePermission(r.Context(), req)
	writeOutcome(w, r, h.logger, out, err)
}

// ListModules handles GET /RolePermissions/modules
func (h *RoleHandler) ListModules(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListModules(r.Context())
	writeOutcome(w, r, h.logger, out, err)
}

// NextRoleCode handles GET /RolePermissions/role/next-code
func (h *RoleHandler) NextRoleCode(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.NextRoleCode(r.Context())
	writeOutcome(w, r, h.logger, out, err)
}

// CreateRole handles POST /RolePermissions
func (h *RoleHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoleInput
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.service.CreateRole(r.Context(), req)
	writeOutcome(w, r, h.logger, out, err)
}

// GetRole handles GET /RolePermissions/{id}
func (h *RoleHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := roleIDParam(w, r)
	if !ok {
		return
	}

	out, err := h.service.AssembleRoleView(r.Context(), roleID)
	writeOutcome(w, r, h.logger, out, err)
}

// UpdateRole handles PUT /RolePermissions/{id}
func (h *RoleHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := roleIDParam(w, r)
	if !ok {
		return
	}

	var req models.UpdateRoleInput
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.service.UpdateRoleGrants(r.Context(), roleID, req)
	writeOutcome(w, r, h.logger, out, err)
}

// ListRoles handles POST /RolePermissions/role/paginated
func (h *RoleHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	var req RolePageRequest
	if err := decodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.service.ListRoles(r.Context(), req.Filters, req.PageRequest)
	writeOutcome(w, r, h.logger, out, err)
}

func roleIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || roleID <= 0 {
		pkghttp.WriteBadRequest(w, "INVALID_ROLE_ID")
		return 0, false
	}
	return roleID, true
}
