package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var entryColumns = []string{
	"id", "code", "module_id", "interface_id", "permission_id", "is_enabled", "is_active",
}

// CatalogRepository reads and extends the module/interface/permission catalog
type CatalogRepository struct {
	exec database.Querier
}

func NewCatalogRepository(db *database.DB) *CatalogRepository {
	return &CatalogRepository{exec: db.Pool}
}

// WithTx returns a repository that runs inside tx
func (r *CatalogRepository) WithTx(tx pgx.Tx) *CatalogRepository {
	if tx == nil {
		return r
	}
	return &CatalogRepository{exec: tx}
}

func scanEntryRow(scanner rowScanner) (*models.ModuleInterfacePermission, error) {
	var e models.ModuleInterfacePermission
	err := scanner.Scan(&e.ID, &e.Code, &e.ModuleID, &e.InterfaceID, &e.PermissionID, &e.IsEnabled, &e.IsActive)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &e, nil
}

// LoadCatalog reads a snapshot of the active catalog
func (r *CatalogRepository) LoadCatalog(ctx context.Context) (*models.Catalog, error) {
	modules, err := r.ListModules(ctx, true)
	if err != nil {
		return nil, err
	}

	interfaces, err := r.listInterfaces(ctx)
	if err != nil {
		return nil, err
	}

	permissions, err := r.listPermissions(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := r.listEntries(ctx)
	if err != nil {
		return nil, err
	}

	catalog := &models.Catalog{
		Modules:     modules,
		Interfaces:  make(map[int64]models.Interface, len(interfaces)),
		Permissions: make(map[int64]models.Permission, len(permissions)),
		Entries:     entries,
	}
	for _, i := range interfaces {
		catalog.Interfaces[i.InterfaceID] = i
	}
	for _, p := range permissions {
		catalog.Permissions[p.PermissionID] = p
	}

	return catalog, nil
}

// ListModules returns modules in display order, optionally only the active ones
func (r *CatalogRepository) ListModules(ctx context.Context, activeOnly bool) ([]models.Module, error) {
	b := psql.Select("module_id", "code", "name", "description", "sort_id", "is_active", "created_at", "modified_at").
		From("modules").
		OrderBy("sort_id NULLS LAST", "module_id")
	if activeOnly {
		b = b.Where(squirrel.Eq{"is_active": true})
	}

	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build module query: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query modules: %w", err)
	}
	defer rows.Close()

	modules := make([]models.Module, 0)
	for rows.Next() {
		var m models.Module
		if err := rows.Scan(&m.ModuleID, &m.Code, &m.Name, &m.Description, &m.SortID, &m.IsActive, &m.CreatedAt, &m.ModifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		modules = append(modules, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating module rows: %w", err)
	}

	return modules, nil
}

func (r *CatalogRepository) listInterfaces(ctx context.Context) ([]models.Interface, error) {
	rows, err := r.exec.Query(ctx, `
		SELECT interface_id, code, name, description, sort_id, is_active
		FROM interfaces WHERE is_active ORDER BY sort_id NULLS LAST, interface_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query interfaces: %w", err)
	}
	defer rows.Close()

	interfaces := make([]models.Interface, 0)
	for rows.Next() {
		var i models.Interface
		if err := rows.Scan(&i.InterfaceID, &i.Code, &i.Name, &i.Description, &i.SortID, &i.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan interface: %w", err)
		}
		interfaces = append(interfaces, i)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interface rows: %w", err)
	}

	return interfaces, nil
}

func (r *CatalogRepository) listPermissions(ctx context.Context) ([]models.Permission, error) {
	rows, err := r.exec.Query(ctx, `
		SELECT permission_id, code, name, description, is_crud, sort_id, is_active
		FROM permissions WHERE is_active ORDER BY sort_id NULLS LAST, permission_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	permissions := make([]models.Permission, 0)
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.PermissionID, &p.Code, &p.Name, &p.Description, &p.IsCrud, &p.SortID, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permission rows: %w", err)
	}

	return permissions, nil
}

func (r *CatalogRepository) listEntries(ctx context.Context) ([]models.ModuleInterfacePermission, error) {
	cols := make([]string, len(entryColumns))
	for i, c := range entryColumns {
		cols[i] = "mip." + c
	}
	// Entries under an inactive permission or screen are not part of the active catalog
	stmt, args, err := psql.Select(cols...).
		From("module_interface_permissions mip").
		Join("permissions p ON p.permission_id = mip.permission_id AND p.is_active").
		LeftJoin("interfaces i ON i.interface_id = mip.interface_id").
		Where(squirrel.Eq{"mip.is_active": true}).
		Where("(mip.interface_id IS NULL OR i.is_active)").
		OrderBy("mip.module_id", "mip.interface_id NULLS FIRST", "mip.permission_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog entry query: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.ModuleInterfacePermission, 0)
	for rows.Next() {
		e, err := scanEntryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		entries = append(entries, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog entry rows: %w", err)
	}

	return entries, nil
}

func (r *CatalogRepository) GetModule(ctx context.Context, moduleID int64) (*models.Module, error) {
	var m models.Module
	err := r.exec.QueryRow(ctx, `
		SELECT module_id, code, name, description, sort_id, is_active, created_at, modified_at
		FROM modules WHERE module_id = $1
	`, moduleID).Scan(&m.ModuleID, &m.Code, &m.Name, &m.Description, &m.SortID, &m.IsActive, &m.CreatedAt, &m.ModifiedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &m, nil
}

func (r *CatalogRepository) GetInterface(ctx context.Context, interfaceID int64) (*models.Interface, error) {
	var i models.Interface
	err := r.exec.QueryRow(ctx, `
		SELECT interface_id, code, name, description, sort_id, is_active
		FROM interfaces WHERE interface_id = $1
	`, interfaceID).Scan(&i.InterfaceID, &i.Code, &i.Name, &i.Description, &i.SortID, &i.IsActive)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &i, nil
}

func (r *CatalogRepository) GetPermission(ctx context.Context, permissionID int64) (*models.Permission, error) {
	var p models.Permission
	err := r.exec.QueryRow(ctx, `
		SELECT permission_id, code, name, description, is_crud, sort_id, is_active
		FROM permissions WHERE permission_id = $1
	`, permissionID).Scan(&p.PermissionID, &p.Code, &p.Name, &p.Description, &p.IsCrud, &p.SortID, &p.IsActive)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &p, nil
}

// interfaceEq matches a nullable interface column
func interfaceEq(column string, interfaceID *int64) squirrel.Sqlizer {
	if interfaceID == nil {
		return squirrel.Eq{column: nil}
	}
	return squirrel.Eq{column: *interfaceID}
}

// FindEntry returns the catalog entry for a (module, interface, permission) triple.
// A nil interfaceID matches entries without a screen.
func (r *CatalogRepository) FindEntry(ctx context.Context, moduleID int64, interfaceID *int64, permissionID int64) (*models.ModuleInterfacePermission, error) {
	stmt, args, err := psql.Select(entryColumns...).
		From("module_interface_permissions").
		Where(squirrel.Eq{"module_id": moduleID, "permission_id": permissionID}).
		Where(interfaceEq("interface_id", interfaceID)).
		OrderBy("id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog entry query: %w", err)
	}

	return scanEntryRow(r.exec.QueryRow(ctx, stmt, args...))
}

// FindEntryByPermissionCode returns the catalog entry for a module, interface and
// permission code such as READ
func (r *CatalogRepository) FindEntryByPermissionCode(ctx context.Context, moduleID int64, interfaceID *int64, permissionCode string) (*models.ModuleInterfacePermission, error) {
	cols := make([]string, 0, len(entryColumns))
	for _, c := range entryColumns {
		cols = append(cols, "mip."+c)
	}

	stmt, args, err := psql.Select(cols...).
		From("module_interface_permissions mip").
		Join("permissions p ON p.permission_id = mip.permission_id").
		Where(squirrel.Eq{"mip.module_id": moduleID, "p.code": permissionCode}).
		Where(interfaceEq("mip.interface_id", interfaceID)).
		OrderBy("mip.id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog entry query: %w", err)
	}

	return scanEntryRow(r.exec.QueryRow(ctx, stmt, args...))
}

func (r *CatalogRepository) CreateEntry(ctx context.Context, entry *models.ModuleInterfacePermission) (*models.ModuleInterfacePermission, error) {
	stmt, args, err := psql.Insert("module_interface_permissions").
		Columns("code", "module_id", "interface_id", "permission_id", "is_enabled", "is_active", "created_at").
		Values(entry.Code, entry.ModuleID, entry.InterfaceID, entry.PermissionID, entry.IsEnabled, true, time.Now()).
		Suffix("RETURNING " + joinColumns(entryColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert catalog entry query: %w", err)
	}

	created, err := scanEntryRow(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog entry: %w", err)
	}

	return created, nil
}

// ListUserGroups returns the active user groups in display order
func (r *CatalogRepository) ListUserGroups(ctx context.Context) ([]models.UserGroup, error) {
	rows, err := r.exec.Query(ctx, `
		SELECT user_group_id, code, name, description, sort_id, is_active
		FROM user_groups WHERE is_active ORDER BY sort_id NULLS LAST, user_group_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user groups: %w", err)
	}
	defer rows.Close()

	groups := make([]models.UserGroup, 0)
	for rows.Next() {
		var g models.UserGroup
		if err := rows.Scan(&g.UserGroupID, &g.Code, &g.Name, &g.Description, &g.SortID, &g.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan user group: %w", err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user group rows: %w", err)
	}

	return groups, nil
}
