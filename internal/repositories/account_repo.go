package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `user_id, email, first_name, last_name, mobile_number, language_code,
	user_type_id, agency_id, is_active, is_admin, is_account_locked, last_account_lock_time,
	login_fail_attempts, login_count, otp_hash, otp_generated_on, otp_incorrect_count,
	is_migrated_from_legacy, is_initial_password_reset, is_email_verified,
	is_reset_password_link_used, version, created_at, modified_at`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// scanAccountRow populates an Account from a row selected with accountColumns
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var acct models.Account

	err := scanner.Scan(
		&acct.UserID, &acct.Email, &acct.FirstName, &acct.LastName, &acct.MobileNumber, &acct.LanguageCode,
		&acct.UserTypeID, &acct.AgencyID, &acct.IsActive, &acct.IsAdmin, &acct.IsAccountLocked, &acct.LastAccountLockTime,
		&acct.LoginFailAttempts, &acct.LoginCount, &acct.OtpHash, &acct.OtpGeneratedOn, &acct.OtpIncorrectCount,
		&acct.IsMigratedFromLegacy, &acct.IsInitialPasswordReset, &acct.IsEmailVerified,
		&acct.IsResetPasswordLinkUsed, &acct.Version, &acct.CreatedAt, &acct.ModifiedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &acct, nil
}

func scanAccountRows(rows pgx.Rows) ([]*models.Account, error) {
	defer rows.Close()

	accounts := make([]*models.Account, 0)

	for rows.Next() {
		acct, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acct)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return accounts, nil
}

// GetByEmail looks an account up case-insensitively
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`

	return scanAccountRow(r.pool.QueryRow(ctx, query, models.NormalizeEmail(email)))
}

func (r *AccountRepository) GetByID(ctx context.Context, userID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1`

	return scanAccountRow(r.pool.QueryRow(ctx, query, userID))
}

func (r *AccountRepository) Create(ctx context.Context, acct *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (
			email, first_name, last_name, mobile_number, language_code, user_type_id, agency_id,
			is_active, is_admin, otp_hash, otp_generated_on, otp_incorrect_count,
			is_migrated_from_legacy, is_initial_password_reset, is_email_verified,
			is_reset_password_link_used, version, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1, $17)
		RETURNING ` + accountColumns

	languageCode := acct.LanguageCode
	if languageCode == "" {
		languageCode = "en"
	}

	created, err := scanAccountRow(r.pool.QueryRow(ctx, query,
		models.NormalizeEmail(acct.Email), acct.FirstName, acct.LastName, acct.MobileNumber, languageCode,
		acct.UserTypeID, acct.AgencyID, acct.IsActive, acct.IsAdmin,
		acct.OtpHash, acct.OtpGeneratedOn, acct.OtpIncorrectCount,
		acct.IsMigratedFromLegacy, acct.IsInitialPasswordReset, acct.IsEmailVerified,
		acct.IsResetPasswordLinkUsed, time.Now(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return created, nil
}

// SaveLoginState writes the lockout and OTP columns of next, provided the stored row is
// still at expectedVersion. A lost race yields models.ErrStaleWrite.
func (r *AccountRepository) SaveLoginState(ctx context.Context, next *models.Account, expectedVersion int64) (*models.Account, error) {
	query := `
		UPDATE accounts SET
			is_account_locked = $1, last_account_lock_time = $2, login_fail_attempts = $3,
			login_count = $4, otp_hash = $5, otp_generated_on = $6, otp_incorrect_count = $7,
			version = version + 1, modified_at = $8
		WHERE user_id = $9 AND version = $10
		RETURNING ` + accountColumns

	saved, err := scanAccountRow(r.pool.QueryRow(ctx, query,
		next.IsAccountLocked, next.LastAccountLockTime, next.LoginFailAttempts,
		next.LoginCount, next.OtpHash, next.OtpGeneratedOn, next.OtpIncorrectCount,
		time.Now(), next.UserID, expectedVersion,
	))
	if err != nil {
		return nil, r.versionConflict(ctx, next.UserID, err)
	}

	return saved, nil
}

// SaveProfile writes the profile and lifecycle flags of next under the same version guard
// as SaveLoginState. OTP state is written too so registration refreshes stay atomic.
func (r *AccountRepository) SaveProfile(ctx context.Context, next *models.Account, expectedVersion int64) (*models.Account, error) {
	query := `
		UPDATE accounts SET
			first_name = $1, last_name = $2, mobile_number = $3, language_code = $4,
			user_type_id = $5, agency_id = $6, is_active = $7, is_email_verified = $8,
			is_initial_password_reset = $9, is_reset_password_link_used = $10,
			otp_hash = $11, otp_generated_on = $12, otp_incorrect_count = $13,
			version = version + 1, modified_at = $14
		WHERE user_id = $15 AND version = $16
		RETURNING ` + accountColumns

	saved, err := scanAccountRow(r.pool.QueryRow(ctx, query,
		next.FirstName, next.LastName, next.MobileNumber, next.LanguageCode,
		next.UserTypeID, next.AgencyID, next.IsActive, next.IsEmailVerified,
		next.IsInitialPasswordReset, next.IsResetPasswordLinkUsed,
		next.OtpHash, next.OtpGeneratedOn, next.OtpIncorrectCount,
		time.Now(), next.UserID, expectedVersion,
	))
	if err != nil {
		return nil, r.versionConflict(ctx, next.UserID, err)
	}

	return saved, nil
}

// versionConflict tells a missing row apart from a stale version after a guarded update
func (r *AccountRepository) versionConflict(ctx context.Context, userID int64, err error) error {
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to update account: %w", err)
	}

	var exists bool
	if qErr := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE user_id = $1)`, userID).Scan(&exists); qErr != nil {
		return fmt.Errorf("failed to check account: %w", qErr)
	}
	if exists {
		return models.ErrStaleWrite
	}
	return models.ErrNotFound
}

func accountFilter(filter models.UserListFilter) squirrel.And {
	return where(
		containsFilter("first_name", filter.FirstName),
		containsFilter("last_name", filter.LastName),
	)
}

func accountListQuery(filter models.UserListFilter, page models.PageRequest) squirrel.SelectBuilder {
	b := psql.Select(accountColumns).From("accounts")
	b = applyWhere(b, accountFilter(filter))
	return paginate(b.OrderBy(recencyOrder, "user_id DESC"), page)
}

func accountCountQuery(filter models.UserListFilter) squirrel.SelectBuilder {
	return applyWhere(psql.Select("COUNT(*)").From("accounts"), accountFilter(filter))
}

// List returns one page of accounts matching filter, most recently modified first
func (r *AccountRepository) List(ctx context.Context, filter models.UserListFilter, page models.PageRequest) ([]*models.Account, error) {
	stmt, args, err := accountListQuery(filter, page).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build account list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}

	return scanAccountRows(rows)
}

// Count returns how many accounts match filter
func (r *AccountRepository) Count(ctx context.Context, filter models.UserListFilter) (int64, error) {
	stmt, args, err := accountCountQuery(filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build account count query: %w", err)
	}

	var count int64
	if err := r.pool.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	return count, nil
}
