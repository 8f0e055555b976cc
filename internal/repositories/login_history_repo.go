package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

const loginHistoryColumns = `id, user_interaction_id, user_id, timestamp, detailed_description,
	browser, os, device, ip_address, correlation_id`

// LoginHistoryRepository appends and reads login history. Records are never updated.
type LoginHistoryRepository struct {
	pool *pgxpool.Pool
}

func NewLoginHistoryRepository(db *database.DB) *LoginHistoryRepository {
	return &LoginHistoryRepository{pool: db.Pool}
}

func scanLoginHistoryRow(scanner rowScanner) (*models.LoginHistory, error) {
	var h models.LoginHistory
	err := scanner.Scan(
		&h.ID, &h.UserInteractionID, &h.UserID, &h.Timestamp, &h.DetailedDescription,
		&h.Browser, &h.OS, &h.Device, &h.IPAddress, &h.CorrelationID,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &h, nil
}

func (r *LoginHistoryRepository) Create(ctx context.Context, entry *models.LoginHistory) (*models.LoginHistory, error) {
	query := `
		INSERT INTO login_history (
			user_interaction_id, user_id, timestamp, detailed_description,
			browser, os, device, ip_address, correlation_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + loginHistoryColumns

	created, err := scanLoginHistoryRow(r.pool.QueryRow(ctx, query,
		entry.UserInteractionID, entry.UserID, entry.Timestamp, entry.DetailedDescription,
		entry.Browser, entry.OS, entry.Device, entry.IPAddress, entry.CorrelationID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create login history: %w", err)
	}

	return created, nil
}

// ListByUser returns the most recent records of a user
func (r *LoginHistoryRepository) ListByUser(ctx context.Context, userID int64, limit uint64) ([]*models.LoginHistory, error) {
	stmt, args, err := psql.Select(loginHistoryColumns).
		From("login_history").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("timestamp DESC", "id DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build login history query: %w", err)
	}

	rows, err := r.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query login history: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.LoginHistory, 0)
	for rows.Next() {
		h, err := scanLoginHistoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan login history: %w", err)
		}
		entries = append(entries, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating login history rows: %w", err)
	}

	return entries, nil
}
