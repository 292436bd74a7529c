package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/pkg/tokens"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

type AccessVerifier interface {
	VerifyAccessToken(raw string) (*tokens.AccessClaims, error)
}

type RefreshVerifier interface {
	VerifyRefreshToken(raw string) (*tokens.RefreshClaims, error)
}

type RevocationStore interface {
	FindActiveRefreshToken(ctx context.Context, recordID, userID uint) (*models.RefreshToken, error)
}

// Authenticate accepts an access token from the Authorization header or,
// failing that, the accessToken cookie.
func Authenticate(v AccessVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c.Request())
			if raw == "" {
				if ck, err := c.Cookie(AccessCookie); err == nil {
					raw = ck.Value
				}
			}
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}

			claims, err := v.VerifyAccessToken(raw)
			if err != nil {
				logging.FromContext(c.Request().Context()).Debug("access_token_rejected", slog.String("error", err.Error()))
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			sub, err := claims.UserID()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			attach(c, AuthInfo{Subject: sub, Role: claims.Role})
			return next(c)
		}
	}
}

// AuthenticateRefresh verifies the refreshToken cookie and then requires
// its ledger row to exist. Any lookup failure rejects the request.
func AuthenticateRefresh(v RefreshVerifier, store RevocationStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(RefreshCookie)
			if err != nil || ck.Value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
			}

			claims, err := v.VerifyRefreshToken(ck.Value)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			sub, err := claims.UserID()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			recordID, err := claims.RecordID()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			ctx := c.Request().Context()
			if _, err := store.FindActiveRefreshToken(ctx, recordID, sub); err != nil {
				if !errors.Is(err, repo.ErrNotFound) {
					logging.FromContext(ctx).Error("revocation_check_failed",
						slog.Uint64("token_id", uint64(recordID)),
						slog.String("error", err.Error()))
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "refresh token revoked")
			}

			attach(c, AuthInfo{Subject: sub, Role: claims.Role, TokenID: recordID})
			return next(c)
		}
	}
}

// Authorize must run after one of the Authenticate variants.
func Authorize(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			info, ok := FromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			if !slices.Contains(roles, info.Role) {
				return echo.NewHTTPError(http.StatusForbidden, "you don't have enough rights")
			}
			return next(c)
		}
	}
}

func attach(c echo.Context, info AuthInfo) {
	req := c.Request()
	ctx := IntoContext(req.Context(), info)
	l := logging.FromContext(ctx).With(slog.Uint64("user_id", uint64(info.Subject)), slog.String("role", info.Role))
	c.SetRequest(req.WithContext(logging.IntoContext(ctx, l)))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
