package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LookupRepository reads registration reference data
type LookupRepository struct {
	pool *pgxpool.Pool
}

func NewLookupRepository(db *database.DB) *LookupRepository {
	return &LookupRepository{pool: db.Pool}
}

func (r *LookupRepository) GetUserType(ctx context.Context, userTypeID int64) (*models.UserType, error) {
	var ut models.UserType
	err := r.pool.QueryRow(ctx,
		`SELECT user_type_id, name FROM user_types WHERE user_type_id = $1 AND is_active`,
		userTypeID,
	).Scan(&ut.UserTypeID, &ut.Name)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &ut, nil
}

func (r *LookupRepository) ListUserTypes(ctx context.Context) ([]models.UserType, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_type_id, name FROM user_types WHERE is_active ORDER BY user_type_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user types: %w", err)
	}
	defer rows.Close()

	types := make([]models.UserType, 0)
	for rows.Next() {
		var ut models.UserType
		if err := rows.Scan(&ut.UserTypeID, &ut.Name); err != nil {
			return nil, fmt.Errorf("failed to scan user type: %w", err)
		}
		types = append(types, ut)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user type rows: %w", err)
	}

	return types, nil
}

func (r *LookupRepository) ListAgencies(ctx context.Context) ([]models.Agency, error) {
	rows, err := r.pool.Query(ctx, `SELECT agency_id, agency_code, agency_name FROM agencies WHERE is_active ORDER BY agency_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query agencies: %w", err)
	}
	defer rows.Close()

	agencies := make([]models.Agency, 0)
	for rows.Next() {
		var a models.Agency
		if err := rows.Scan(&a.AgencyID, &a.AgencyCode, &a.AgencyName); err != nil {
			return nil, fmt.Errorf("failed to scan agency: %w", err)
		}
		agencies = append(agencies, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agency rows: %w", err)
	}

	return agencies, nil
}
