//go:build integration

package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/warden/internal/database"
)

var testDB *database.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, db, err := setupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up test database: %v\n", err)
		os.Exit(1)
	}
	testDB = db

	code := m.Run()

	db.Pool.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

// setupTestDatabase starts a PostgreSQL container and applies the embedded migrations
func setupTestDatabase(ctx context.Context) (*postgres.PostgresContainer, *database.DB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("warden"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	db := database.New(pool, logger)

	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return container, db, nil
}

// cleanupTables truncates mutable tables between tests
func cleanupTables(t *testing.T) {
	t.Helper()

	tables := []string{
		"login_history",
		"role_module_interface_permissions",
		"module_interface_permissions",
		"user_roles",
		"roles",
		"user_groups",
		"modules",
		"interfaces",
		"accounts",
		"agencies",
	}

	for _, table := range tables {
		if _, err := testDB.Pool.Exec(context.Background(), fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)); err != nil {
			t.Fatalf("failed to truncate table %s: %v", table, err)
		}
	}
}
