//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, repo *AccountRepository, email, first, last string) *models.Account {
	t.Helper()
	acct, err := repo.Create(context.Background(), &models.Account{
		Email:     email,
		FirstName: first,
		LastName:  last,
		IsActive:  true,
	})
	require.NoError(t, err)
	return acct
}

func TestAccountRepository_CreateAndGet(t *testing.T) {
	cleanupTables(t)
	ctx := context.Background()
	repo := NewAccountRepository(testDB)

	created := seedAccount(t, repo, "Ada@Example.com", "Ada", "Lovelace")
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, "en", created.LanguageCode)

	byEmail, err := repo.GetByEmail(ctx, "ADA@example.COM")
	require.NoError(t, err)
	assert.Equal(t, created.UserID, byEmail.UserID)

	byID, err := repo.GetByID(ctx, created.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", byID.LastName)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = repo.Create(ctx, &models.Account{Email: "ada@example.com"})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestAccountRepository_SaveLoginState_VersionGuard(t *testing.T) {
	cleanupTables(t)
	ctx := context.Background()
	repo := NewAccountRepository(testDB)
	acct := seedAccount(t, repo, "race@example.com", "Race", "Condition")

	now := time.Now().UTC().Truncate(time.Microsecond)
	next := *acct
	next.LoginFailAttempts = 5
	next.IsAccountLocked = true
	next.LastAccountLockTime = &now

	saved, err := repo.SaveLoginState(ctx, &next, acct.Version)
	require.NoError(t, err)
	assert.Equal(t, acct.Version+1, saved.Version)
	assert.True(t, saved.IsAccountLocked)
	assert.Equal(t, 5, saved.LoginFailAttempts)

	// A second writer still holding the old version loses
	_, err = repo.SaveLoginState(ctx, &next, acct.Version)
	assert.ErrorIs(t, err, models.ErrStaleWrite)

	missing := next
	missing.UserID = 999999
	_, err = repo.SaveLoginState(ctx, &missing, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAccountRepository_SaveProfile(t *testing.T) {
	cleanupTables(t)
	ctx := context.Background()
	repo := NewAccountRepository(testDB)
	acct := seedAccount(t, repo, "profile@example.com", "Old", "Name")

	next := *acct
	next.FirstName = "New"
	next.IsEmailVerified = true
	next.MobileNumber = "5551234567"

	saved, err := repo.SaveProfile(ctx, &next, acct.Version)
	require.NoError(t, err)
	assert.Equal(t, "New", saved.FirstName)
	assert.True(t, saved.IsEmailVerified)
	assert.Equal(t, "5551234567", saved.MobileNumber)
	assert.Equal(t, acct.Version+1, saved.Version)
}

func TestAccountRepository_ListAndCount(t *testing.T) {
	cleanupTables(t)
	ctx := context.Background()
	repo := NewAccountRepository(testDB)

	seedAccount(t, repo, "a@example.com", "Ada", "Lovelace")
	seedAccount(t, repo, "b@example.com", "Adam", "Smith")
	seedAccount(t, repo, "c@example.com", "Grace", "Hopper")

	filter := models.UserListFilter{FirstName: "ADA"}
	accounts, err := repo.List(ctx, filter, models.PageRequest{PageNo: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
	// Newest first
	assert.Equal(t, "Adam", accounts[0].FirstName)

	count, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.Count(ctx, models.UserListFilter{FirstName: "ada", LastName: "hopper"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func seedCatalog(t *testing.T) (moduleID, interfaceID int64) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, testDB.Pool.QueryRow(ctx,
		`INSERT INTO modules (code, name, sort_id) VALUES ('ADM', 'Administration', 1) RETURNING module_id`,
	).Scan(&moduleID))
	require.NoError(t, testDB.Pool.QueryRow(ctx,
		`INSERT INTO interfaces (code, name, sort_id) VALUES ('ROLES', 'Roles', 1) RETURNING interface_id`,
	).Scan(&interfaceID))

	return moduleID, interfaceID
}

func permissionID(t *testing.T, code string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, testDB.Pool.QueryRow(context.Background(),
		`SELECT permission_id FROM permissions WHERE code = $1`, code,
	).Scan(&id))
	return id
}

func TestCatalogRepository_Entries(t *testing.T) {
	cleanupTables(t)
	ctx := context.Background()
	repo := NewCatalogRepository(testDB)
	moduleID, interfaceID := seedCatalog(t)
	readID := permissionID(t, models.PermRead)

	entry, err := repo.CreateEntry(ctx, &models.ModuleInterfacePermission{
		Code:         "ADM_ROLES_READ",
		ModuleID:     moduleID,
		InterfaceID:  &interfaceID,
		PermissionID: readID,
		IsEnabled:    true,
	})
	require.NoError(t, err)
	assert.True(t, entry.HasInterface())

	found, err := repo.FindEntry(ctx, moduleID, &interfaceID, readID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, found.ID)

	byCode, err := repo.FindEntryByPermissionCode(ctx, moduleID, &interfaceID, models.PermRead)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, byCode.ID)

	_, err = repo.FindEntry(ctx, moduleID, nil, readID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Same triple under a different code still collides
	_, err = repo.CreateEntry(ctx, &models.ModuleInterfacePermission{
		Code: "DUPLICATE", ModuleID: moduleID, InterfaceID: &interfaceID, PermissionID: readID, IsEnabled: true,
	})
	assert.ErrorIs(t, err, models.ErrConflict)

	catalog, err := repo.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog.Modules, 1)
	assert.Len(t, catalog.EntriesFor(moduleID), 1)
	assert.Equal(t, "ROLES", catalog.Interfaces[interfaceID].Code)
	assert.True(t, catalog.Permissions[readID].IsCrud)
}

func TestCatalogRepository_LoadCatalog_DropsRetiredEntries(t *testing.T) {
	cleanupTables(t)
	ctx := context.Background()
	repo := NewCatalogRepository(testDB)
	moduleID, interfaceID := seedCatalog(t)

	var approveID, archiveIfaceID int64
	require.NoError(t, testDB.Pool.QueryRow(ctx, `
		INSERT INTO permissions (code, name) VALUES ('APPROVE', 'Approve')
		ON CONFLICT (code) DO UPDATE SET is_active = TRUE
		RETURNING permission_id`,
	).Scan(&approveID))
	require.NoError(t, testDB.Pool.QueryRow(ctx,
		`INSERT INTO interfaces (code, name) VALUES ('ARCHIVE', 'Archive') RETURNING interface_id`,
	).Scan(&archiveIfaceID))

	kept, err := repo.CreateEntry(ctx, &models.ModuleInterfacePermission{
		Code: "ADM_ROLES_READ", ModuleID: moduleID, InterfaceID: &interfaceID,
		PermissionID: permissionID(t, models.PermRead), IsEnabled: true,
	})
	require.NoError(t, err)
	_, err = repo.CreateEntry(ctx, &models.ModuleInterfacePermission{
		Code: "ADM_APPROVE", ModuleID: moduleID, PermissionID: approveID, IsEnabled: true,
	})
	require.NoError(t, err)
	_, err = repo.CreateEntry(ctx, &models.ModuleInterfacePermission{
		Code: "ADM_ARCHIVE_READ", ModuleID: moduleID, InterfaceID: &archiveIfaceID,
		PermissionID: permissionID(t, models.PermRead), IsEnabled: true,
	})
	require.NoError(t, err)

	_, err = testDB.Pool.Exec(ctx, `UPDATE permissions SET is_active = FALSE WHERE permission_id = $1`, approveID)
	require.NoError(t, err)
	_, err = testDB.Pool.Exec(ctx, `UPDATE interfaces SET is_active = FALSE WHERE interface_id = $1`, archiveIfaceID)
	require.NoError(t, err)

	catalog, err := repo.LoadCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog.Entries, 1)
	assert.Equal(t, kept.ID, catalog.Entries[0].ID)
}

func TestRoleRepository_GrantsInTransaction(t *testing.T) {
	cleanupTables(t)
	ctx := context.Background()
	roles := NewRoleRepository(testDB)
	catalog := NewCatalogRepository(testDB)
	accounts := NewAccountRepository(testDB)

	moduleID, interfaceID := seedCatalog(t)
	entry, err := catalog.CreateEntry(ctx, &models.ModuleInterfacePermission{
		Code: "ADM_ROLES_UPDATE", ModuleID: moduleID, InterfaceID: &interfaceID,
		PermissionID: permissionID(t, models.PermUpdate), IsEnabled: true,
	})
	require.NoError(t, err)

	role, err := roles.Create(ctx, &models.Role{Code: "001", Name: "Administrator", IsActive: true})
	require.NoError(t, err)

	latest, err := roles.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, role.RoleID, latest.RoleID)

	err = testDB.WithTransaction(ctx, func(tx pgx.Tx) error {
		txRoles := roles.WithTx(tx)
		role.Name = "Admins"
		if err := txRoles.Update(ctx, role); err != nil {
			return err
		}
		return txRoles.InsertGrant(ctx, role.RoleID, entry.ID)
	})
	require.NoError(t, err)

	has, err := roles.HasGrant(ctx, role.RoleID, entry.ID)
	require.NoError(t, err)
	assert.True(t, has)

	acct := seedAccount(t, accounts, "admin@example.com", "Ad", "Min")
	require.NoError(t, roles.AssignRole(ctx, acct.UserID, role.RoleID))

	codes, err := roles.GrantedCodes(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"ADM_ROLES_UPDATE"}, codes)

	userRoles, err := roles.ActiveUserRoles(ctx, acct.UserID)
	require.NoError(t, err)
	require.Len(t, userRoles, 1)
	assert.Equal(t, "Admins", userRoles[0].Role.Name)

	// A failed transaction leaves no trace
	err = testDB.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := roles.WithTx(tx).DeleteGrant(ctx, role.RoleID, entry.ID); err != nil {
			return err
		}
		return models.ErrValidation
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	has, err = roles.HasGrant(ctx, role.RoleID, entry.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRoleRepository_ListAndCount(t *testing.T) {
	cleanupTables(t)
	ctx := context.Background()
	repo := NewRoleRepository(testDB)

	for _, r := range []models.Role{
		{Code: "001", Name: "Admin", Description: "System administrators", IsActive: true},
		{Code: "002", Name: "Clerk", Description: "Front desk", IsActive: true},
		{Code: "003", Name: "Auditor", Description: "Read-only admin access", IsActive: false},
	} {
		role := r
		_, err := repo.Create(ctx, &role)
		require.NoError(t, err)
	}

	filter := models.RoleListFilter{Description: "ADMIN"}
	roles, err := repo.List(ctx, filter, models.PageRequest{PageNo: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, roles, 2)
	assert.Equal(t, "003", roles[0].Code)

	count, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestLoginHistoryRepository_Append(t *testing.T) {
	cleanupTables(t)
	ctx := context.Background()
	acct := seedAccount(t, NewAccountRepository(testDB), "history@example.com", "His", "Tory")
	repo := NewLoginHistoryRepository(testDB)

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, &models.LoginHistory{
			UserInteractionID: models.InteractionLogin,
			UserID:            acct.UserID,
			Timestamp:         time.Now().Add(time.Duration(i) * time.Minute),
			Browser:           "Firefox",
			CorrelationID:     "corr",
		})
		require.NoError(t, err)
	}

	entries, err := repo.ListByUser(ctx, acct.UserID, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.True(t, entries[0].Timestamp.After(entries[1].Timestamp))
}

func TestLookupRepository(t *testing.T) {
	cleanupTables(t)
	ctx := context.Background()
	repo := NewLookupRepository(testDB)

	_, err := testDB.Pool.Exec(ctx, `INSERT INTO agencies (agency_code, agency_name) VALUES ('DOT', 'Department of Transportation')`)
	require.NoError(t, err)

	types, err := repo.ListUserTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 2)

	agencies, err := repo.ListAgencies(ctx)
	require.NoError(t, err)
	require.Len(t, agencies, 1)
	assert.Equal(t, "DOT", agencies[0].AgencyCode)

	company, err := repo.GetUserType(ctx, types[1].UserTypeID)
	require.NoError(t, err)
	assert.Equal(t, "company", company.Name)
}
