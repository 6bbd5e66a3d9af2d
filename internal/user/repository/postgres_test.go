package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/db"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/db/migrate"
)

func TestPostgresRepository_GetByID(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	if _, err := migrate.Run(dsn, migrate.Up); err != nil {
		t.Skipf("migrations failed (expected in test environment): %v", err)
	}
	conn, err := db.Open(dsn, 2)
	if err != nil {
		t.Skipf("Database connection failed (expected in test environment): %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	email := "repo-test-" + time.Now().UTC().Format("20060102150405.000000000") + "@example.com"
	var id int64
	require.NoError(t, conn.QueryRowContext(ctx,
		`INSERT INTO users (email, name) VALUES ($1, $2) RETURNING id`, email, "Repo Test",
	).Scan(&id))

	repo := NewPostgresRepository(conn)
	u, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, u, "existing user")
	assert.Equal(t, email, u.Email)
	assert.Equal(t, "Repo Test", u.Name)

	missing, err := repo.GetByID(ctx, -1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
