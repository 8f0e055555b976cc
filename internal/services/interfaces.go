package services

import (
	"context"
	"time"

	"github.com/BradenHooton/warden/internal/models"
)

// AccountRepository persists accounts. Saves are guarded by the account version and fail
// with models.ErrStaleWrite when another request changed the row first.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, userID int64) (*models.Account, error)
	Create(ctx context.Context, acct *models.Account) (*models.Account, error)
	SaveLoginState(ctx context.Context, next *models.Account, expectedVersion int64) (*models.Account, error)
	SaveProfile(ctx context.Context, next *models.Account, expectedVersion int64) (*models.Account, error)
	List(ctx context.Context, filter models.UserListFilter, page models.PageRequest) ([]*models.Account, error)
	Count(ctx context.Context, filter models.UserListFilter) (int64, error)
}

// UserRoleRepository reads the roles assigned to an account
type UserRoleRepository interface {
	ActiveUserRoles(ctx context.Context, userID int64) ([]models.UserRole, error)
	RoleGrantedCodes(ctx context.Context, roleID int64) ([]string, error)
}

// RoleStore persists roles and their grants
type RoleStore interface {
	UserRoleRepository
	GetByID(ctx context.Context, roleID int64) (*models.Role, error)
	GetByCode(ctx context.Context, code string) (*models.Role, error)
	Latest(ctx context.Context) (*models.Role, error)
	Create(ctx context.Context, role *models.Role) (*models.Role, error)
	Update(ctx context.Context, role *models.Role) error
	List(ctx context.Context, filter models.RoleListFilter, page models.PageRequest) ([]*models.Role, error)
	Count(ctx context.Context, filter models.RoleListFilter) (int64, error)
	ListGrants(ctx context.Context, roleID int64) ([]models.RoleGrant, error)
	HasGrant(ctx context.Context, roleID, entryID int64) (bool, error)
	InsertGrant(ctx context.Context, roleID, entryID int64) error
	DeleteGrant(ctx context.Context, roleID, entryID int64) error
}

// CatalogStore reads and extends the permission catalog
type CatalogStore interface {
	LoadCatalog(ctx context.Context) (*models.Catalog, error)
	ListModules(ctx context.Context, activeOnly bool) ([]models.Module, error)
	GetModule(ctx context.Context, moduleID int64) (*models.Module, error)
	GetInterface(ctx context.Context, interfaceID int64) (*models.Interface, error)
	GetPermission(ctx context.Context, permissionID int64) (*models.Permission, error)
	FindEntry(ctx context.Context, moduleID int64, interfaceID *int64, permissionID int64) (*models.ModuleInterfacePermission, error)
	FindEntryByPermissionCode(ctx context.Context, moduleID int64, interfaceID *int64, permissionCode string) (*models.ModuleInterfacePermission, error)
	CreateEntry(ctx context.Context, entry *models.ModuleInterfacePermission) (*models.ModuleInterfacePermission, error)
	ListUserGroups(ctx context.Context) ([]models.UserGroup, error)
}

// PermissionTx runs fn with role and catalog stores bound to a single transaction. The
// transaction commits when fn returns nil.
type PermissionTx func(ctx context.Context, fn func(roles RoleStore, catalog CatalogStore) error) error

// LookupRepository reads registration reference data
type LookupRepository interface {
	GetUserType(ctx context.Context, userTypeID int64) (*models.UserType, error)
	ListUserTypes(ctx context.Context) ([]models.UserType, error)
	ListAgencies(ctx context.Context) ([]models.Agency, error)
}

// LoginHistoryRepository appends login interactions
type LoginHistoryRepository interface {
	Create(ctx context.Context, entry *models.LoginHistory) (*models.LoginHistory, error)
}

// IdentityProvider is the external directory that owns credentials. Every call names the
// directory (tenant) it targets.
type IdentityProvider interface {
	// GetUserBySignInName returns nil, nil when the directory has no such user.
	GetUserBySignInName(ctx context.Context, email string, tenant models.TenantKind) (*models.ProviderUser, error)
	// InitiateLogin checks credentials. A mismatch fails with EMAIL_PASSWORD_INCORRECT.
	InitiateLogin(ctx context.Context, email, password string, tenant models.TenantKind) (*models.ProviderToken, error)
	CreateNewUser(ctx context.Context, reg models.ProviderRegistration, tenant models.TenantKind) (*models.ProviderUser, error)
	ResetPassword(ctx context.Context, email, newPassword string, tenant models.TenantKind) error
	DeactivateUser(ctx context.Context, email string, tenant models.TenantKind) error
}

// OtpNotifier delivers a second-factor code to the account holder
type OtpNotifier interface {
	SendOtp(ctx context.Context, acct *models.Account, code int, expiry time.Duration) error
}

// OtpThrottle limits how often codes may be requested for one key
type OtpThrottle interface {
	Allow(ctx context.Context, key string) (bool, error)
}
