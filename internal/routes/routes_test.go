package routes

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/middleware"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct{}

func (stubVerifier) Claims(token string) (*models.TokenClaims, error) {
	switch token {
	case "admin-token":
		return &models.TokenClaims{Email: "admin@example.com", UserID: "1"}, nil
	case "clerk-token":
		return &models.TokenClaims{Email: "clerk@example.com", UserID: "2"}, nil
	case "grantee-token":
		return &models.TokenClaims{Email: "grantee@example.com", UserID: "3"}, nil
	}
	return nil, errors.New("invalid token")
}

type stubGrants struct{}

func (stubGrants) GrantedCodes(ctx context.Context, email string) ([]string, error) {
	if email == "admin@example.com" || email == "grantee@example.com" {
		return []string{"ADMIN_ROLES_UPDATE"}, nil
	}
	return []string{"PERMITS_APPLICATIONS_READ"}, nil
}

type stubAccounts struct{}

func (stubAccounts) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return &models.Account{Email: email, IsActive: true, IsAdmin: email == "admin@example.com"}, nil
}

func ok(message string) (*models.Outcome, error) {
	return models.Succeeded(message, nil), nil
}

func newTestRouter() http.Handler {
	logger := slog.Default()
	authSvc := &handlers.MockAuthService{
		UserCheckFunc:     func(ctx context.Context, email string) (*models.Outcome, error) { return ok(models.MsgUserExist) },
		UnlockAccountFunc: func(ctx context.Context, email string) (*models.Outcome, error) { return ok(models.MsgAccountUnlocked) },
		LoginFunc: func(ctx context.Context, email, password string) (*models.Outcome, error) {
			return ok(models.MsgOtpGenerated)
		},
		LoginDirectFunc: func(ctx context.Context, email, password string) (*models.Outcome, error) {
			return ok(models.MsgUserLoginSuccessfully)
		},
	}
	userSvc := &handlers.MockUserService{
		UserTypesAndAgenciesFunc: func(ctx context.Context) (*models.Outcome, error) { return ok(models.MsgUserTypesAndAgencies) },
	}
	permSvc := &handlers.MockPermissionService{
		NextRoleCodeFunc:     func(ctx context.Context) (*models.Outcome, error) { return ok(models.MsgNextRoleCode) },
		AssembleRoleViewFunc: func(ctx context.Context, roleID int64) (*models.Outcome, error) { return ok(models.MsgRoleRetrieved) },
	}

	router := chi.NewRouter()
	RegisterRoutes(router, Dependencies{
		Auth:            handlers.NewAuthHandler(authSvc, logger),
		Users:           handlers.NewUserHandler(userSvc, logger),
		Roles:           handlers.NewRoleHandler(permSvc, logger),
		LoginHistory:    handlers.NewLoginHistoryHandler(&handlers.MockLoginHistoryService{}, nil, logger),
		Tokens:          stubVerifier{},
		Grants:          stubGrants{},
		Accounts:        stubAccounts{},
		AdminPermission: "ADMIN_ROLES_UPDATE",
		AuthRateLimit:   middleware.RateLimitConfig{RequestsPerMinute: 100},
		CallerRateLimit: middleware.RateLimitConfig{RequestsPerMinute: 100},
	})
	return router
}

func TestRoutes(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"public auth route", "GET", "/api/v1/auth/user-check?email=ada@example.com", "", http.StatusOK},
		{"public user route", "GET", "/api/v1/user/get-user-types-and-agencies", "", http.StatusOK},
		{"role route needs bearer", "GET", "/api/v1/RolePermissions/role/next-code", "", http.StatusUnauthorized},
		{"role route rejects bad token", "GET", "/api/v1/RolePermissions/role/next-code", "forged", http.StatusUnauthorized},
		{"role route needs permission", "GET", "/api/v1/RolePermissions/role/next-code", "clerk-token", http.StatusForbidden},
		{"role route with permission", "GET", "/api/v1/RolePermissions/role/next-code", "admin-token", http.StatusOK},
		{"role by id", "GET", "/api/v1/RolePermissions/7", "admin-token", http.StatusOK},
		{"unlock needs bearer", "POST", "/api/v1/auth/unlock", "", http.StatusUnauthorized},
		{"user list needs bearer", "POST", "/api/v1/user/paginated", "", http.StatusUnauthorized},
		{"admin registration needs permission", "POST", "/api/v1/user/admin", "clerk-token", http.StatusForbidden},
		{"admin registration needs admin account", "POST", "/api/v1/user/admin", "grantee-token", http.StatusForbidden},
		{"admin registration reaches handler", "POST", "/api/v1/user/admin", "admin-token", http.StatusBadRequest},
		{"grantee manages roles", "GET", "/api/v1/RolePermissions/role/next-code", "grantee-token", http.StatusOK},
		{"unknown route", "GET", "/api/v1/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRoutes_NotFoundIsJSON(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "route not found")
}

func TestRoutes_LoginVersions(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		path        string
		wantMessage string
	}{
		{"/api/v1/auth/login", models.MsgUserLoginSuccessfully},
		{"/api/v1/auth/login-v2", models.MsgOtpGenerated},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			body := strings.NewReader(`{"email":"ada@example.com","password":"Secret#123"}`)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("POST", tt.path, body))

			require.Equal(t, http.StatusOK, w.Code)
			var out models.Outcome
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
			assert.Equal(t, tt.wantMessage, out.Message)
		})
	}
}
