package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds token claims to the request context for authenticated endpoints
func WithAuthContext(req *http.Request, userID, email string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithChiRouteContext sets chi URL parameters on the request
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertOutcome checks status and content type, then decodes the outcome envelope
func AssertOutcome(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) models.Outcome {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var out models.Outcome
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "Failed to decode response JSON")
	return out
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

func unimplemented() (*models.Outcome, error) {
	return nil, models.ErrInternalServer
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc                      func(ctx context.Context, email, password string) (*models.Outcome, error)
	LoginDirectFunc                func(ctx context.Context, email, password string) (*models.Outcome, error)
	GenerateOtpFunc                func(ctx context.Context, email string) (*models.Outcome, error)
	VerifyOtpFunc                  func(ctx context.Context, email string, otp int) (*models.Outcome, error)
	UnlockAccountFunc              func(ctx context.Context, email string) (*models.Outcome, error)
	UserCheckFunc                  func(ctx context.Context, email string) (*models.Outcome, error)
	ResetPasswordFunc              func(ctx context.Context, input models.ResetPasswordInput) (*models.Outcome, error)
	InitialPasswordResetCheckFunc  func(ctx context.Context, emailToken string) (*models.Outcome, error)
	GenerateResetPasswordTokenFunc func(ctx context.Context, email string) (*models.Outcome, error)
	GenerateAccessTokenFunc        func(ctx context.Context, email string) (*models.Outcome, error)
	RolesAndPermissionsFunc        func(ctx context.Context, userID int64) (*models.Outcome, error)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*models.Outcome, error) {
	if m.LoginFunc == nil {
		return unimplemented()
	}
	return m.LoginFunc(ctx, email, password)
}

func (m *MockAuthService) LoginDirect(ctx context.Context, email, password string) (*models.Outcome, error) {
	if m.LoginDirectFunc == nil {
		return unimplemented()
	}
	return m.LoginDirectFunc(ctx, email, password)
}

func (m *MockAuthService) GenerateOtp(ctx context.Context, email string) (*models.Outcome, error) {
	if m.GenerateOtpFunc == nil {
		return unimplemented()
	}
	return m.GenerateOtpFunc(ctx, email)
}

func (m *MockAuthService) VerifyOtp(ctx context.Context, email string, otp int) (*models.Outcome, error) {
	if m.VerifyOtpFunc == nil {
		return unimplemented()
	}
	return m.VerifyOtpFunc(ctx, email, otp)
}

func (m *MockAuthService) UnlockAccount(ctx context.Context, email string) (*models.Outcome, error) {
	if m.UnlockAccountFunc == nil {
		return unimplemented()
	}
	return m.UnlockAccountFunc(ctx, email)
}

func (m *MockAuthService) UserCheck(ctx context.Context, email string) (*models.Outcome, error) {
	if m.UserCheckFunc == nil {
		return unimplemented()
	}
	return m.UserCheckFunc(ctx, email)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, input models.ResetPasswordInput) (*models.Outcome, error) {
	if m.ResetPasswordFunc == nil {
		return unimplemented()
	}
	return m.ResetPasswordFunc(ctx, input)
}

func (m *MockAuthService) InitialPasswordResetCheck(ctx context.Context, emailToken string) (*models.Outcome, error) {
	if m.InitialPasswordResetCheckFunc == nil {
		return unimplemented()
	}
	return m.InitialPasswordResetCheckFunc(ctx, emailToken)
}

func (m *MockAuthService) GenerateResetPasswordToken(ctx context.Context, email string) (*models.Outcome, error) {
	if m.GenerateResetPasswordTokenFunc == nil {
		return unimplemented()
	}
	return m.GenerateResetPasswordTokenFunc(ctx, email)
}

func (m *MockAuthService) GenerateAccessToken(ctx context.Context, email string) (*models.Outcome, error) {
	if m.GenerateAccessTokenFunc == nil {
		return unimplemented()
	}
	return m.GenerateAccessTokenFunc(ctx, email)
}

func (m *MockAuthService) RolesAndPermissions(ctx context.Context, userID int64) (*models.Outcome, error) {
	if m.RolesAndPermissionsFunc == nil {
		return unimplemented()
	}
	return m.RolesAndPermissionsFunc(ctx, userID)
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	RegisterFunc             func(ctx context.Context, input models.RegisterInput) (*models.Outcome, error)
	RegisterAdminFunc        func(ctx context.Context, input models.RegisterInput) (*models.Outcome, error)
	ValidateOtpFunc          func(ctx context.Context, userID int64, otp int) (*models.Outcome, error)
	ListUsersFunc            func(ctx context.Context, filter models.UserListFilter, page models.PageRequest) (*models.Outcome, error)
	UserTypesAndAgenciesFunc func(ctx context.Context) (*models.Outcome, error)
}

func (m *MockUserService) Register(ctx context.Context, input models.RegisterInput) (*models.Outcome, error) {
	if m.RegisterFunc == nil {
		return unimplemented()
	}
	return m.RegisterFunc(ctx, input)
}

func (m *MockUserService) RegisterAdmin(ctx context.Context, input models.RegisterInput) (*models.Outcome, error) {
	if m.RegisterAdminFunc == nil {
		return unimplemented()
	}
	return m.RegisterAdminFunc(ctx, input)
}

func (m *MockUserService) ValidateOtp(ctx context.Context, userID int64, otp int) (*models.Outcome, error) {
	if m.ValidateOtpFunc == nil {
		return unimplemented()
	}
	return m.ValidateOtpFunc(ctx, userID, otp)
}

func (m *MockUserService) ListUsers(ctx context.Context, filter models.UserListFilter, page models.PageRequest) (*models.Outcome, error) {
	if m.ListUsersFunc == nil {
		return unimplemented()
	}
	return m.ListUsersFunc(ctx, filter, page)
}

func (m *MockUserService) UserTypesAndAgencies(ctx context.Context) (*models.Outcome, error) {
	if m.UserTypesAndAgenciesFunc == nil {
		return unimplemented()
	}
	return m.UserTypesAndAgenciesFunc(ctx)
}

// MockPermissionService implements PermissionServiceInterface for testing
type MockPermissionService struct {
	AssembleRoleViewFunc                func(ctx context.Context, roleID int64) (*models.Outcome, error)
	UpdateRoleGrantsFunc                func(ctx context.Context, roleID int64, input models.UpdateRoleInput) (*models.Outcome, error)
	CreateModuleInterfacePermissionFunc func(ctx context.Context, input models.CreateCatalogEntryInput) (*models.Outcome, error)
	NextRoleCodeFunc                    func(ctx context.Context) (*models.Outcome, error)
	CreateRoleFunc                      func(ctx context.Context, input models.CreateRoleInput) (*models.Outcome, error)
	ListRolesFunc                       func(ctx context.Context, filter models.RoleListFilter, page models.PageRequest) (*models.Outcome, error)
	ListUserGroupsFunc                  func(ctx context.Context) (*models.Outcome, error)
	ListModulesFunc                     func(ctx context.Context) (*models.Outcome, error)
}

func (m *MockPermissionService) AssembleRoleView(ctx context.Context, roleID int64) (*models.Outcome, error) {
	if m.AssembleRoleViewFunc == nil {
		return unimplemented()
	}
	return m.AssembleRoleViewFunc(ctx, roleID)
}

func (m *MockPermissionService) UpdateRoleGrants(ctx context.Context, roleID int64, input models.UpdateRoleInput) (*models.Outcome, error) {
	if m.UpdateRoleGrantsFunc == nil {
		return unimplemented()
	}
	return m.UpdateRoleGrantsFunc(ctx, roleID, input)
}

func (m *MockPermissionService) CreateModuleInterfacePermission(ctx context.Context, input models.CreateCatalogEntryInput) (*models.Outcome, error) {
	if m.CreateModuleInterfacePermissionFunc == nil {
		return unimplemented()
	}
	return m.CreateModuleInterfacePermissionFunc(ctx, input)
}

func (m *MockPermissionService) NextRoleCode(ctx context.Context) (*models.Outcome, error) {
	if m.NextRoleCodeFunc == nil {
		return unimplemented()
	}
	return m.NextRoleCodeFunc(ctx)
}

func (m *MockPermissionService) CreateRole(ctx context.Context, input models.CreateRoleInput) (*models.Outcome, error) {
	if m.CreateRoleFunc == nil {
		return unimplemented()
	}
	return m.CreateRoleFunc(ctx, input)
}

func (m *MockPermissionService) ListRoles(ctx context.Context, filter models.RoleListFilter, page models.PageRequest) (*models.Outcome, error) {
	if m.ListRolesFunc == nil {
		return unimplemented()
	}
	return m.ListRolesFunc(ctx, filter, page)
}

func (m *MockPermissionService) ListUserGroups(ctx context.Context) (*models.Outcome, error) {
	if m.ListUserGroupsFunc == nil {
		return unimplemented()
	}
	return m.ListUserGroupsFunc(ctx)
}

func (m *MockPermissionService) ListModules(ctx context.Context) (*models.Outcome, error) {
	if m.ListModulesFunc == nil {
		return unimplemented()
	}
	return m.ListModulesFunc(ctx)
}

// MockLoginHistoryService implements LoginHistoryServiceInterface for testing
type MockLoginHistoryService struct {
	CreateLoginHistoryFunc func(ctx context.Context, input models.CreateLoginHistoryInput, client models.ClientContext) (*models.Outcome, error)
}

func (m *MockLoginHistoryService) CreateLoginHistory(ctx context.Context, input models.CreateLoginHistoryInput, client models.ClientContext) (*models.Outcome, error) {
	if m.CreateLoginHistoryFunc == nil {
		return unimplemented()
	}
	return m.CreateLoginHistoryFunc(ctx, input, client)
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Err
}
