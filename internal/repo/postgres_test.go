package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/auth_service/internal/db"
	"github.com/Skotchmaster/auth_service/internal/models"
)

func newPostgresRepo(t *testing.T) *GormRepo {
	t.Helper()

	dsn := os.Getenv("AUTH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("AUTH_TEST_DATABASE_URL is required for postgres tests")
	}

	gdb, err := db.OpenPostgres(dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		gdb.Exec("TRUNCATE TABLE refresh_tokens, users, tenants RESTART IDENTITY CASCADE")
		_ = db.Close(gdb)
	})
	return New(gdb)
}

func uniqueEmail() string {
	return "u_" + uuid.NewString() + "@example.com"
}

func TestPostgres_DuplicateEmailAndCascade(t *testing.T) {
	r := newPostgresRepo(t)
	ctx := context.Background()
	email := uniqueEmail()

	u := &models.User{FirstName: "A", LastName: "B", Email: email, Password: "h", Role: models.RoleCustomer}
	require.NoError(t, r.CreateUser(ctx, u))

	dup := &models.User{FirstName: "C", LastName: "D", Email: email, Password: "h", Role: models.RoleCustomer}
	require.ErrorIs(t, r.CreateUser(ctx, dup), ErrEmailExists)

	_, err := r.PersistRefreshToken(ctx, u.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, r.DeleteUser(ctx, u.ID))

	n, err := r.CountRefreshTokens(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
