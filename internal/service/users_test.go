package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/auth_service/internal/events"
	authmw "github.com/Skotchmaster/auth_service/internal/middleware/auth"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/util"
)

func createInput(email, role string) CreateUserInput {
	return CreateUserInput{FirstName: "F", LastName: "L", Email: email, Password: "secretpw1", Role: role}
}

func TestUserService_Create(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.users.Create(ctx, createInput("Boss@Corp.com", models.RoleAdmin))
	require.NoError(t, err)

	u, err := f.repo.FindUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "boss@corp.com", u.Email)
	assert.Equal(t, models.RoleAdmin, u.Role)

	_, err = f.users.Create(ctx, createInput("boss@corp.com", models.RoleManager))
	require.ErrorIs(t, err, ErrEmailExists)
}

func TestUserService_Create_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Create(ctx, createInput("x@y.com", "superuser"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "role", verr.Fields[0].Field)

	missing := uint(77)
	in := createInput("x@y.com", models.RoleCustomer)
	in.TenantID = &missing
	_, err = f.users.Create(ctx, in)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "tenantId", verr.Fields[0].Field)

	long := createInput("x@y.com", models.RoleCustomer)
	long.Password = strings.Repeat("x", 100)
	_, err = f.users.Create(ctx, long)
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Fields[0].Field)

	_, err = f.users.Create(ctx, CreateUserInput{})
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 5)
}

func TestUserService_Delete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	owner, err := f.users.Create(ctx, createInput("owner@x.com", models.RoleCustomer))
	require.NoError(t, err)
	other, err := f.users.Create(ctx, createInput("other@x.com", models.RoleManager))
	require.NoError(t, err)
	_, err = f.repo.PersistRefreshToken(ctx, owner, time.Now().Add(time.Hour))
	require.NoError(t, err)

	err = f.users.Delete(ctx, authmw.AuthInfo{Subject: other, Role: models.RoleManager}, owner)
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.users.Delete(ctx, authmw.AuthInfo{Subject: owner, Role: models.RoleCustomer}, owner))
	n, err := f.repo.CountRefreshTokens(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, n, "refresh tokens cascade with the user")

	admin := authmw.AuthInfo{Subject: 999, Role: models.RoleAdmin}
	require.NoError(t, f.users.Delete(ctx, admin, other))
	require.ErrorIs(t, f.users.Delete(ctx, admin, other), ErrNotFound)

	assert.Equal(t, []string{events.UserDeleted, events.UserDeleted}, f.events.types())
}

func TestUserService_List(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	for _, e := range []string{"a@x.com", "b@x.com"} {
		_, err := f.users.Create(ctx, createInput(e, models.RoleCustomer))
		require.NoError(t, err)
	}
	list, err := f.users.List(ctx, util.Page{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.users.List(ctx, util.Page{Number: 1, Size: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a@x.com", list[0].Email)
}

func TestTenantService_Create(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := &TenantService{Tenants: f.repo}
	ctx := context.Background()

	id, err := svc.Create(ctx, " Acme ", "1 Main st")
	require.NoError(t, err)
	assert.NotZero(t, id)

	tests := []struct {
		name, tenant, address, field string
	}{
		{"empty name", "", "addr", "name"},
		{"long name", strings.Repeat("n", 101), "addr", "name"},
		{"empty address", "Acme", " ", "address"},
		{"long address", "Acme", strings.Repeat("a", 256), "address"},
	}
	for _, tt := range tests {
		_, err := svc.Create(ctx, tt.tenant, tt.address)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, tt.name)
		assert.Equal(t, tt.field, verr.Fields[0].Field, tt.name)
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Acme", list[0].Name)
}
