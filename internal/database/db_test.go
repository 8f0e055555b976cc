package database

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/config"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPostgresError(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, models.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), models.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, models.ErrConflict},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), models.ErrConflict},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, models.ErrValidation},
		{"not null violation", &pgconn.PgError{Code: "23502"}, models.ErrValidation},
		{"other pg error", &pgconn.PgError{Code: "42P01"}, nil},
		{"other error", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapPostgresError(tt.in)
			switch {
			case tt.in == nil:
				assert.NoError(t, got)
			case tt.want == nil:
				assert.Equal(t, tt.in, got)
			default:
				assert.ErrorIs(t, got, tt.want)
			}
		})
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := embedMigrations.ReadDir("migrations")
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2)
}

func TestPoolConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host: "db.internal", Port: 5433, User: "warden", Password: "secret", Name: "warden", SSLMode: "disable",
		MaxConns: 12, MinConns: 2, MaxConnLifetime: 10 * time.Minute,
	}

	pc, err := poolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
	assert.Equal(t, int32(12), pc.MaxConns)
	assert.Equal(t, int32(2), pc.MinConns)
	assert.Equal(t, 10*time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, "warden", pc.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfig_IgnoresMinAboveMax(t *testing.T) {
	pc, err := poolConfig(&config.DatabaseConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable",
		MaxConns: 2, MinConns: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, int32(2), pc.MaxConns)
	assert.Equal(t, int32(0), pc.MinConns)
}
