package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/pkg/tokens"
)

var (
	keyOnce sync.Once
	key     *rsa.PrivateKey
)

func signer(t *testing.T) *tokens.Signer {
	t.Helper()
	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		key = k
	})
	s, err := tokens.NewSigner(key, "kid", []byte("refresh-secret"))
	require.NoError(t, err)
	return s
}

type fakeStore struct {
	rows map[uint]uint
	err  error
}

func (f fakeStore) FindActiveRefreshToken(_ context.Context, recordID, userID uint) (*models.RefreshToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	if owner, ok := f.rows[recordID]; ok && owner == userID {
		return &models.RefreshToken{ID: recordID, UserID: userID}, nil
	}
	return nil, repo.ErrNotFound
}

func serve(t *testing.T, mw []echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, *AuthInfo) {
	t.Helper()
	var got *AuthInfo
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		if info, ok := FromContext(c.Request().Context()); ok {
			got = &info
		}
		return c.NoContent(http.StatusOK)
	}, mw...)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, got
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	s := signer(t)
	admin, err := s.IssueAccessToken(1, models.RoleAdmin)
	require.NoError(t, err)
	customer, err := s.IssueAccessToken(2, models.RoleCustomer)
	require.NoError(t, err)

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookie, Value: customer})
		rec, info := serve(t, []echo.MiddlewareFunc{Authenticate(s)}, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, info)
		assert.Equal(t, AuthInfo{Subject: 2, Role: models.RoleCustomer}, *info)
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+admin)
		req.AddCookie(&http.Cookie{Name: AccessCookie, Value: customer})
		_, info := serve(t, []echo.MiddlewareFunc{Authenticate(s)}, req)
		require.NotNil(t, info)
		assert.Equal(t, uint(1), info.Subject)
		assert.Equal(t, models.RoleAdmin, info.Role)
	})

	for name, setup := range map[string]func(*http.Request){
		"missing":        func(*http.Request) {},
		"garbage header": func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer x.y.z") },
		"basic scheme":   func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Basic "+admin) },
		"refresh token as access": func(r *http.Request) {
			raw, _ := s.IssueRefreshToken(1, models.RoleAdmin, 1)
			r.AddCookie(&http.Cookie{Name: AccessCookie, Value: raw})
		},
	} {
		setup := setup
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			setup(req)
			rec, info := serve(t, []echo.MiddlewareFunc{Authenticate(s)}, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, info)
		})
	}
}

func TestAuthenticateRefresh(t *testing.T) {
	t.Parallel()
	s := signer(t)
	raw, err := s.IssueRefreshToken(5, models.RoleCustomer, 40)
	require.NoError(t, err)
	withCookie := func(v string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: v})
		return req
	}

	t.Run("active record", func(t *testing.T) {
		rec, info := serve(t, []echo.MiddlewareFunc{AuthenticateRefresh(s, fakeStore{rows: map[uint]uint{40: 5}})}, withCookie(raw))
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, info)
		assert.Equal(t, AuthInfo{Subject: 5, Role: models.RoleCustomer, TokenID: 40}, *info)
	})

	tests := []struct {
		name  string
		store fakeStore
		req   *http.Request
	}{
		{"revoked", fakeStore{rows: map[uint]uint{}}, withCookie(raw)},
		{"other owner", fakeStore{rows: map[uint]uint{40: 6}}, withCookie(raw)},
		{"storage error fails closed", fakeStore{err: errors.New("db down")}, withCookie(raw)},
		{"bad signature", fakeStore{rows: map[uint]uint{40: 5}}, withCookie(raw + "x")},
		{"no cookie", fakeStore{rows: map[uint]uint{40: 5}}, httptest.NewRequest(http.MethodGet, "/", nil)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec, info := serve(t, []echo.MiddlewareFunc{AuthenticateRefresh(s, tt.store)}, tt.req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, info)
		})
	}
}

func TestAuthorize(t *testing.T) {
	t.Parallel()
	s := signer(t)
	adminOnly := []echo.MiddlewareFunc{Authenticate(s), Authorize(models.RoleAdmin)}

	for role, want := range map[string]int{
		models.RoleAdmin:    http.StatusOK,
		models.RoleManager:  http.StatusForbidden,
		models.RoleCustomer: http.StatusForbidden,
	} {
		raw, err := s.IssueAccessToken(1, role)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+raw)
		rec, _ := serve(t, adminOnly, req)
		assert.Equal(t, want, rec.Code, role)
	}

	rec, _ := serve(t, []echo.MiddlewareFunc{Authorize(models.RoleAdmin)}, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := IntoContext(context.Background(), AuthInfo{Subject: 3, Role: "admin", TokenID: 8})
	info, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, uint(8), info.TokenID)
}
