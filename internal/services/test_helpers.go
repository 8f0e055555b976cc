package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

const testJWTSecret = "test-secret-that-is-long-enough-for-hs256-signing"

// MockAccountRepository implements AccountRepository for testing. Saves echo the
// written snapshot with its version bumped unless overridden.
type MockAccountRepository struct {
	GetByEmailFunc     func(ctx context.Context, email string) (*models.Account, error)
	GetByIDFunc        func(ctx context.Context, userID int64) (*models.Account, error)
	CreateFunc         func(ctx context.Context, acct *models.Account) (*models.Account, error)
	SaveLoginStateFunc func(ctx context.Context, next *models.Account, expectedVersion int64) (*models.Account, error)
	SaveProfileFunc    func(ctx context.Context, next *models.Account, expectedVersion int64) (*models.Account, error)
	ListFunc           func(ctx context.Context, filter models.UserListFilter, page models.PageRequest) ([]*models.Account, error)
	CountFunc          func(ctx context.Context, filter models.UserListFilter) (int64, error)

	LoginStateWrites []models.Account
	ProfileWrites    []models.Account
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByID(ctx context.Context, userID int64) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) Create(ctx context.Context, acct *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, acct)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountRepository) SaveLoginState(ctx context.Context, next *models.Account, expectedVersion int64) (*models.Account, error) {
	m.LoginStateWrites = append(m.LoginStateWrites, *next)
	if m.SaveLoginStateFunc != nil {
		return m.SaveLoginStateFunc(ctx, next, expectedVersion)
	}
	saved := *next
	saved.Version = expectedVersion + 1
	return &saved, nil
}

func (m *MockAccountRepository) SaveProfile(ctx context.Context, next *models.Account, expectedVersion int64) (*models.Account, error) {
	m.ProfileWrites = append(m.ProfileWrites, *next)
	if m.SaveProfileFunc != nil {
		return m.SaveProfileFunc(ctx, next, expectedVersion)
	}
	saved := *next
	saved.Version = expectedVersion + 1
	return &saved, nil
}

func (m *MockAccountRepository) List(ctx context.Context, filter models.UserListFilter, page models.PageRequest) ([]*models.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, page)
	}
	return []*models.Account{}, nil
}

func (m *MockAccountRepository) Count(ctx context.Context, filter models.UserListFilter) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, filter)
	}
	return 0, nil
}

// MockRoleStore implements RoleStore for testing
type MockRoleStore struct {
	ActiveUserRolesFunc  func(ctx context.Context, userID int64) ([]models.UserRole, error)
	RoleGrantedCodesFunc func(ctx context.Context, roleID int64) ([]string, error)
	GetByIDFunc          func(ctx context.Context, roleID int64) (*models.Role, error)
	GetByCodeFunc        func(ctx context.Context, code string) (*models.Role, error)
	LatestFunc           func(ctx context.Context) (*models.Role, error)
	CreateFunc           func(ctx context.Context, role *models.Role) (*models.Role, error)
	UpdateFunc           func(ctx context.Context, role *models.Role) error
	ListFunc             func(ctx context.Context, filter models.RoleListFilter, page models.PageRequest) ([]*models.Role, error)
	CountFunc            func(ctx context.Context, filter models.RoleListFilter) (int64, error)
	ListGrantsFunc       func(ctx context.Context, roleID int64) ([]models.RoleGrant, error)
	HasGrantFunc         func(ctx context.Context, roleID, entryID int64) (bool, error)
	InsertGrantFunc      func(ctx context.Context, roleID, entryID int64) error
	DeleteGrantFunc      func(ctx context.Context, roleID, entryID int64) error

	Inserted []int64
	Deleted  []int64
}

func (m *MockRoleStore) ActiveUserRoles(ctx context.Context, userID int64) ([]models.UserRole, error) {
	if m.ActiveUserRolesFunc != nil {
		return m.ActiveUserRolesFunc(ctx, userID)
	}
	return []models.UserRole{}, nil
}

func (m *MockRoleStore) RoleGrantedCodes(ctx context.Context, roleID int64) ([]string, error) {
	if m.RoleGrantedCodesFunc != nil {
		return m.RoleGrantedCodesFunc(ctx, roleID)
	}
	return []string{}, nil
}

func (m *MockRoleStore) GetByID(ctx context.Context, roleID int64) (*models.Role, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, roleID)
	}
	return nil, models.ErrNotFound
}

func (m *MockRoleStore) GetByCode(ctx context.Context, code string) (*models.Role, error) {
	if m.GetByCodeFunc != nil {
		return m.GetByCodeFunc(ctx, code)
	}
	return nil, models.ErrNotFound
}

func (m *MockRoleStore) Latest(ctx context.Context) (*models.Role, error) {
	if m.LatestFunc != nil {
		return m.LatestFunc(ctx)
	}
	return nil, models.ErrNotFound
}

func (m *MockRoleStore) Create(ctx context.Context, role *models.Role) (*models.Role, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, role)
	}
	created := *role
	created.RoleID = 1
	return &created, nil
}

func (m *MockRoleStore) Update(ctx context.Context, role *models.Role) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, role)
	}
	return nil
}

func (m *MockRoleStore) List(ctx context.Context, filter models.RoleListFilter, page models.PageRequest) ([]*models.Role, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, page)
	}
	return []*models.Role{}, nil
}

func (m *MockRoleStore) Count(ctx context.Context, filter models.RoleListFilter) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, filter)
	}
	return 0, nil
}

func (m *MockRoleStore) ListGrants(ctx context.Context, roleID int64) ([]models.RoleGrant, error) {
	if m.ListGrantsFunc != nil {
		return m.ListGrantsFunc(ctx, roleID)
	}
	return []models.RoleGrant{}, nil
}

func (m *MockRoleStore) HasGrant(ctx context.Context, roleID, entryID int64) (bool, error) {
	if m.HasGrantFunc != nil {
		return m.HasGrantFunc(ctx, roleID, entryID)
	}
	return false, nil
}

func (m *MockRoleStore) InsertGrant(ctx context.Context, roleID, entryID int64) error {
	m.Inserted = append(m.Inserted, entryID)
	if m.InsertGrantFunc != nil {
		return m.InsertGrantFunc(ctx, roleID, entryID)
	}
	return nil
}

func (m *MockRoleStore) DeleteGrant(ctx context.Context, roleID, entryID int64) error {
	m.Deleted = append(m.Deleted, entryID)
	if m.DeleteGrantFunc != nil {
		return m.DeleteGrantFunc(ctx, roleID, entryID)
	}
	return nil
}

// MockCatalogStore implements CatalogStore for testing
type MockCatalogStore struct {
	LoadCatalogFunc               func(ctx context.Context) (*models.Catalog, error)
	ListModulesFunc               func(ctx context.Context, activeOnly bool) ([]models.Module, error)
	GetModuleFunc                 func(ctx context.Context, moduleID int64) (*models.Module, error)
	GetInterfaceFunc              func(ctx context.Context, interfaceID int64) (*models.Interface, error)
	GetPermissionFunc             func(ctx context.Context, permissionID int64) (*models.Permission, error)
	FindEntryFunc                 func(ctx context.Context, moduleID int64, interfaceID *int64, permissionID int64) (*models.ModuleInterfacePermission, error)
	FindEntryByPermissionCodeFunc func(ctx context.Context, moduleID int64, interfaceID *int64, permissionCode string) (*models.ModuleInterfacePermission, error)
	CreateEntryFunc               func(ctx context.Context, entry *models.ModuleInterfacePermission) (*models.ModuleInterfacePermission, error)
	ListUserGroupsFunc            func(ctx context.Context) ([]models.UserGroup, error)

	LoadCount int
}

func (m *MockCatalogStore) LoadCatalog(ctx context.Context) (*models.Catalog, error) {
	m.LoadCount++
	if m.LoadCatalogFunc != nil {
		return m.LoadCatalogFunc(ctx)
	}
	return &models.Catalog{Interfaces: map[int64]models.Interface{}, Permissions: map[int64]models.Permission{}}, nil
}

func (m *MockCatalogStore) ListModules(ctx context.Context, activeOnly bool) ([]models.Module, error) {
	if m.ListModulesFunc != nil {
		return m.ListModulesFunc(ctx, activeOnly)
	}
	return []models.Module{}, nil
}

func (m *MockCatalogStore) GetModule(ctx context.Context, moduleID int64) (*models.Module, error) {
	if m.GetModuleFunc != nil {
		return m.GetModuleFunc(ctx, moduleID)
	}
	return nil, models.ErrNotFound
}

func (m *MockCatalogStore) GetInterface(ctx context.Context, interfaceID int64) (*models.Interface, error) {
	if m.GetInterfaceFunc != nil {
		return m.GetInterfaceFunc(ctx, interfaceID)
	}
	return nil, models.ErrNotFound
}

func (m *MockCatalogStore) GetPermission(ctx context.Context, permissionID int64) (*models.Permission, error) {
	if m.GetPermissionFunc != nil {
		return m.GetPermissionFunc(ctx, permissionID)
	}
	return nil, models.ErrNotFound
}

func (m *MockCatalogStore) FindEntry(ctx context.Context, moduleID int64, interfaceID *int64, permissionID int64) (*models.ModuleInterfacePermission, error) {
	if m.FindEntryFunc != nil {
		return m.FindEntryFunc(ctx, moduleID, interfaceID, permissionID)
	}
	return nil, models.ErrNotFound
}

func (m *MockCatalogStore) FindEntryByPermissionCode(ctx context.Context, moduleID int64, interfaceID *int64, permissionCode string) (*models.ModuleInterfacePermission, error) {
	if m.FindEntryByPermissionCodeFunc != nil {
		return m.FindEntryByPermissionCodeFunc(ctx, moduleID, interfaceID, permissionCode)
	}
	return nil, models.ErrNotFound
}

func (m *MockCatalogStore) CreateEntry(ctx context.Context, entry *models.ModuleInterfacePermission) (*models.ModuleInterfacePermission, error) {
	if m.CreateEntryFunc != nil {
		return m.CreateEntryFunc(ctx, entry)
	}
	created := *entry
	created.ID = 1
	return &created, nil
}

func (m *MockCatalogStore) ListUserGroups(ctx context.Context) ([]models.UserGroup, error) {
	if m.ListUserGroupsFunc != nil {
		return m.ListUserGroupsFunc(ctx)
	}
	return []models.UserGroup{}, nil
}

// MockLookupRepository implements LookupRepository for testing
type MockLookupRepository struct {
	GetUserTypeFunc   func(ctx context.Context, userTypeID int64) (*models.UserType, error)
	ListUserTypesFunc func(ctx context.Context) ([]models.UserType, error)
	ListAgenciesFunc  func(ctx context.Context) ([]models.Agency, error)
}

func (m *MockLookupRepository) GetUserType(ctx context.Context, userTypeID int64) (*models.UserType, error) {
	if m.GetUserTypeFunc != nil {
		return m.GetUserTypeFunc(ctx, userTypeID)
	}
	return &models.UserType{UserTypeID: userTypeID, Name: "individual"}, nil
}

func (m *MockLookupRepository) ListUserTypes(ctx context.Context) ([]models.UserType, error) {
	if m.ListUserTypesFunc != nil {
		return m.ListUserTypesFunc(ctx)
	}
	return []models.UserType{}, nil
}

func (m *MockLookupRepository) ListAgencies(ctx context.Context) ([]models.Agency, error) {
	if m.ListAgenciesFunc != nil {
		return m.ListAgenciesFunc(ctx)
	}
	return []models.Agency{}, nil
}

// MockLoginHistoryRepository implements LoginHistoryRepository for testing
type MockLoginHistoryRepository struct {
	CreateFunc func(ctx context.Context, entry *models.LoginHistory) (*models.LoginHistory, error)
}

func (m *MockLoginHistoryRepository) Create(ctx context.Context, entry *models.LoginHistory) (*models.LoginHistory, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	created := *entry
	created.ID = 1
	return &created, nil
}

// MockIdentityProvider implements IdentityProvider for testing. By default every user
// exists and every login succeeds.
type MockIdentityProvider struct {
	GetUserBySignInNameFunc func(ctx context.Context, email string, tenant models.TenantKind) (*models.ProviderUser, error)
	InitiateLoginFunc       func(ctx context.Context, email, password string, tenant models.TenantKind) (*models.ProviderToken, error)
	CreateNewUserFunc       func(ctx context.Context, reg models.ProviderRegistration, tenant models.TenantKind) (*models.ProviderUser, error)
	ResetPasswordFunc       func(ctx context.Context, email, newPassword string, tenant models.TenantKind) error
	DeactivateUserFunc      func(ctx context.Context, email string, tenant models.TenantKind) error

	LoginCalls int
}

func (m *MockIdentityProvider) GetUserBySignInName(ctx context.Context, email string, tenant models.TenantKind) (*models.ProviderUser, error) {
	if m.GetUserBySignInNameFunc != nil {
		return m.GetUserBySignInNameFunc(ctx, email, tenant)
	}
	return &models.ProviderUser{ID: "provider-id", AccountEnabled: true}, nil
}

func (m *MockIdentityProvider) InitiateLogin(ctx context.Context, email, password string, tenant models.TenantKind) (*models.ProviderToken, error) {
	m.LoginCalls++
	if m.InitiateLoginFunc != nil {
		return m.InitiateLoginFunc(ctx, email, password, tenant)
	}
	return &models.ProviderToken{AccessToken: "provider-access-token", TokenType: "Bearer"}, nil
}

func (m *MockIdentityProvider) CreateNewUser(ctx context.Context, reg models.ProviderRegistration, tenant models.TenantKind) (*models.ProviderUser, error) {
	if m.CreateNewUserFunc != nil {
		return m.CreateNewUserFunc(ctx, reg, tenant)
	}
	return &models.ProviderUser{ID: "new-provider-id", AccountEnabled: true}, nil
}

func (m *MockIdentityProvider) ResetPassword(ctx context.Context, email, newPassword string, tenant models.TenantKind) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, email, newPassword, tenant)
	}
	return nil
}

func (m *MockIdentityProvider) DeactivateUser(ctx context.Context, email string, tenant models.TenantKind) error {
	if m.DeactivateUserFunc != nil {
		return m.DeactivateUserFunc(ctx, email, tenant)
	}
	return nil
}

// MockOtpNotifier records delivered codes
type MockOtpNotifier struct {
	SendOtpFunc func(ctx context.Context, acct *models.Account, code int, expiry time.Duration) error
	Sent        []int
}

func (m *MockOtpNotifier) SendOtp(ctx context.Context, acct *models.Account, code int, expiry time.Duration) error {
	m.Sent = append(m.Sent, code)
	if m.SendOtpFunc != nil {
		return m.SendOtpFunc(ctx, acct, code, expiry)
	}
	return nil
}

// MockOtpThrottle implements OtpThrottle for testing
type MockOtpThrottle struct {
	AllowFunc func(ctx context.Context, key string) (bool, error)
}

func (m *MockOtpThrottle) Allow(ctx context.Context, key string) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key)
	}
	return true, nil
}

// MockSESSender implements SESSender for testing
type MockSESSender struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	Inputs        []*ses.SendEmailInput
}

func (m *MockSESSender) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.Inputs = append(m.Inputs, params)
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params, optFns...)
	}
	return &ses.SendEmailOutput{MessageId: aws.String("message-1")}, nil
}

// NewTestAccount creates an active, unlocked client account
func NewTestAccount(userID int64, email string) *models.Account {
	return &models.Account{
		UserID:          userID,
		Email:           email,
		FirstName:       "Ada",
		LastName:        "Lovelace",
		MobileNumber:    "+15555550123",
		LanguageCode:    "en",
		IsActive:        true,
		IsEmailVerified: true,
		Version:         1,
		CreatedAt:       time.Now().Add(-24 * time.Hour),
	}
}

func testAuthSettings() AuthSettings {
	return AuthSettings{
		Lockout:                       auth.DefaultLockoutPolicy(),
		Otp:                           auth.OtpPolicy{Expiry: 5 * time.Minute, MaxIncorrect: 3},
		LoginTokenExpiryHours:         8,
		ResetPasswordTokenExpiryHours: 24,
	}
}

func accountByEmail(acct *models.Account) func(ctx context.Context, email string) (*models.Account, error) {
	return func(ctx context.Context, email string) (*models.Account, error) {
		if acct == nil || email != acct.Email {
			return nil, models.ErrNotFound
		}
		copied := *acct
		return &copied, nil
	}
}

func newTestAuthService(accounts *MockAccountRepository, roles *MockRoleStore, provider *MockIdentityProvider) *AuthService {
	logger := slog.Default()
	if roles == nil {
		roles = &MockRoleStore{}
	}
	if provider == nil {
		provider = &MockIdentityProvider{}
	}
	return NewAuthService(
		accounts,
		roles,
		provider,
		auth.NewTokenIssuer(testJWTSecret),
		testAuthSettings(),
		logger,
		pkglogger.NewAuditLogger(logger),
	)
}

// fakeTx runs fn against the given stores, mimicking a committed transaction
func fakeTx(roles RoleStore, catalog CatalogStore) PermissionTx {
	return func(ctx context.Context, fn func(RoleStore, CatalogStore) error) error {
		return fn(roles, catalog)
	}
}
