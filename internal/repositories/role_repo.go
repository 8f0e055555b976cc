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

var roleColumns = []string{
	"role_id", "code", "name", "description", "user_group_id", "is_active", "sort_id", "created_at", "modified_at",
}

// RoleRepository persists roles, their grants and user assignments
type RoleRepository struct {
	exec database.Querier
}

func NewRoleRepository(db *database.DB) *RoleRepository {
	return &RoleRepository{exec: db.Pool}
}

// WithTx returns a repository that runs inside tx
func (r *RoleRepository) WithTx(tx pgx.Tx) *RoleRepository {
	if tx == nil {
		return r
	}
	return &RoleRepository{exec: tx}
}

func scanRoleRow(scanner rowScanner) (*models.Role, error) {
	var role models.Role

	err := scanner.Scan(
		&role.RoleID, &role.Code, &role.Name, &role.Description, &role.UserGroupID,
		&role.IsActive, &role.SortID, &role.CreatedAt, &role.ModifiedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &role, nil
}

func scanRoleRows(rows pgx.Rows) ([]*models.Role, error) {
	defer rows.Close()

	roles := make([]*models.Role, 0)

	for rows.Next() {
		role, err := scanRoleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role rows: %w", err)
	}

	return roles, nil
}

func (r *RoleRepository) getOne(ctx context.Context, b squirrel.SelectBuilder) (*models.Role, error) {
	stmt, args, err := b.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build role query: %w", err)
	}
	return scanRoleRow(r.exec.QueryRow(ctx, stmt, args...))
}

func (r *RoleRepository) GetByID(ctx context.Context, roleID int64) (*models.Role, error) {
	return r.getOne(ctx, psql.Select(roleColumns...).From("roles").Where(squirrel.Eq{"role_id": roleID}))
}

func (r *RoleRepository) GetByCode(ctx context.Context, code string) (*models.Role, error) {
	return r.getOne(ctx, psql.Select(roleColumns...).From("roles").Where(squirrel.Eq{"code": code}))
}

// Latest returns the role with the highest id
func (r *RoleRepository) Latest(ctx context.Context) (*models.Role, error) {
	return r.getOne(ctx, psql.Select(roleColumns...).From("roles").OrderBy("role_id DESC"))
}

func (r *RoleRepository) Create(ctx context.Context, role *models.Role) (*models.Role, error) {
	stmt, args, err := psql.Insert("roles").
		Columns("code", "name", "description", "user_group_id", "is_active", "sort_id", "created_at").
		Values(role.Code, role.Name, role.Description, role.UserGroupID, role.IsActive, role.SortID, time.Now()).
		Suffix("RETURNING " + joinColumns(roleColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert role query: %w", err)
	}

	created, err := scanRoleRow(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	return created, nil
}

// Update writes the editable role columns
func (r *RoleRepository) Update(ctx context.Context, role *models.Role) error {
	stmt, args, err := psql.Update("roles").
		Set("name", role.Name).
		Set("user_group_id", role.UserGroupID).
		Set("is_active", role.IsActive).
		Set("modified_at", time.Now()).
		Where(squirrel.Eq{"role_id": role.RoleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update role query: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", database.MapPostgresError(err))
	}
	if res.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func roleFilter(filter models.RoleListFilter) squirrel.And {
	return where(
		containsFilter("code", filter.Code),
		containsFilter("description", filter.Description),
	)
}

func roleListQuery(filter models.RoleListFilter, page models.PageRequest) squirrel.SelectBuilder {
	b := applyWhere(psql.Select(roleColumns...).From("roles"), roleFilter(filter))
	return paginate(b.OrderBy(recencyOrder, "role_id DESC"), page)
}

func roleCountQuery(filter models.RoleListFilter) squirrel.SelectBuilder {
	return applyWhere(psql.Select("COUNT(*)").From("roles"), roleFilter(filter))
}

func (r *RoleRepository) List(ctx context.Context, filter models.RoleListFilter, page models.PageRequest) ([]*models.Role, error) {
	stmt, args, err := roleListQuery(filter, page).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build role list query: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}

	return scanRoleRows(rows)
}

func (r *RoleRepository) Count(ctx context.Context, filter models.RoleListFilter) (int64, error) {
	stmt, args, err := roleCountQuery(filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build role count query: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count roles: %w", err)
	}

	return count, nil
}

// ListGrants returns the active grants of a role
func (r *RoleRepository) ListGrants(ctx context.Context, roleID int64) ([]models.RoleGrant, error) {
	stmt, args, err := psql.Select("id", "role_id", "module_interface_permission_id", "is_active").
		From("role_module_interface_permissions").
		Where(squirrel.Eq{"role_id": roleID, "is_active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build grant query: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	defer rows.Close()

	grants := make([]models.RoleGrant, 0)
	for rows.Next() {
		var g models.RoleGrant
		if err := rows.Scan(&g.ID, &g.RoleID, &g.ModuleInterfacePermissionID, &g.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grant rows: %w", err)
	}

	return grants, nil
}

// HasGrant reports whether a role holds a catalog entry
func (r *RoleRepository) HasGrant(ctx context.Context, roleID, entryID int64) (bool, error) {
	var exists bool
	err := r.exec.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM role_module_interface_permissions WHERE role_id = $1 AND module_interface_permission_id = $2)`,
		roleID, entryID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check grant: %w", err)
	}
	return exists, nil
}

func (r *RoleRepository) InsertGrant(ctx context.Context, roleID, entryID int64) error {
	stmt, args, err := psql.Insert("role_module_interface_permissions").
		Columns("role_id", "module_interface_permission_id", "is_active").
		Values(roleID, entryID, true).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert grant query: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to insert grant: %w", database.MapPostgresError(err))
	}
	return nil
}

func (r *RoleRepository) DeleteGrant(ctx context.Context, roleID, entryID int64) error {
	stmt, args, err := psql.Delete("role_module_interface_permissions").
		Where(squirrel.Eq{"role_id": roleID, "module_interface_permission_id": entryID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete grant query: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	return nil
}

// ActiveUserRoles returns the active roles assigned to a user, oldest assignment first
func (r *RoleRepository) ActiveUserRoles(ctx context.Context, userID int64) ([]models.UserRole, error) {
	cols := make([]string, 0, len(roleColumns))
	for _, c := range roleColumns {
		cols = append(cols, "r."+c)
	}

	stmt, args, err := psql.Select(append([]string{"ur.user_id", "ur.is_active"}, cols...)...).
		From("user_roles ur").
		Join("roles r ON r.role_id = ur.role_id").
		Where(squirrel.Eq{"ur.user_id": userID, "ur.is_active": true, "r.is_active": true}).
		OrderBy("ur.created_at", "r.role_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user role query: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user roles: %w", err)
	}
	defer rows.Close()

	userRoles := make([]models.UserRole, 0)
	for rows.Next() {
		var ur models.UserRole
		var role models.Role
		err := rows.Scan(
			&ur.UserID, &ur.IsActive,
			&role.RoleID, &role.Code, &role.Name, &role.Description, &role.UserGroupID,
			&role.IsActive, &role.SortID, &role.CreatedAt, &role.ModifiedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user role: %w", err)
		}
		ur.RoleID = role.RoleID
		ur.Role = &role
		userRoles = append(userRoles, ur)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user role rows: %w", err)
	}

	return userRoles, nil
}

// AssignRole links a user to a role, reactivating an existing link
func (r *RoleRepository) AssignRole(ctx context.Context, userID, roleID int64) error {
	stmt, args, err := psql.Insert("user_roles").
		Columns("user_id", "role_id", "is_active").
		Values(userID, roleID, true).
		Suffix("ON CONFLICT (user_id, role_id) DO UPDATE SET is_active = TRUE").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build assign role query: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to assign role: %w", database.MapPostgresError(err))
	}
	return nil
}

// RoleGrantedCodes returns the catalog codes a role grants
func (r *RoleRepository) RoleGrantedCodes(ctx context.Context, roleID int64) ([]string, error) {
	stmt, args, err := psql.Select("mip.code").
		From("role_module_interface_permissions g").
		Join("module_interface_permissions mip ON mip.id = g.module_interface_permission_id").
		Where(squirrel.Eq{"g.role_id": roleID, "g.is_active": true, "mip.is_active": true}).
		OrderBy("mip.code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build granted codes query: %w", err)
	}

	return r.queryCodes(ctx, stmt, args)
}

// GrantedCodes returns every catalog code granted to an active account through its active roles
func (r *RoleRepository) GrantedCodes(ctx context.Context, email string) ([]string, error) {
	stmt, args, err := psql.Select("mip.code").Distinct().
		From("accounts a").
		Join("user_roles ur ON ur.user_id = a.user_id AND ur.is_active").
		Join("roles r ON r.role_id = ur.role_id AND r.is_active").
		Join("role_module_interface_permissions g ON g.role_id = r.role_id AND g.is_active").
		Join("module_interface_permissions mip ON mip.id = g.module_interface_permission_id AND mip.is_active AND mip.is_enabled").
		Where("LOWER(a.email) = LOWER(?)", models.NormalizeEmail(email)).
		Where("a.is_active").
		OrderBy("mip.code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build granted codes query: %w", err)
	}

	return r.queryCodes(ctx, stmt, args)
}

func (r *RoleRepository) queryCodes(ctx context.Context, stmt string, args []interface{}) ([]string, error) {
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query granted codes: %w", err)
	}
	defer rows.Close()

	codes := make([]string, 0)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan granted code: %w", err)
		}
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating granted codes: %w", err)
	}

	return codes, nil
}
