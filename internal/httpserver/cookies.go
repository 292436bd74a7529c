package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/auth_service/internal/middleware/auth"
	"github.com/Skotchmaster/auth_service/internal/service"
	"github.com/Skotchmaster/auth_service/pkg/tokens"
)

type CookieConfig struct {
	Domain string
	Secure bool
}

func (cc CookieConfig) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cc.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// setSession gives each cookie the lifetime of the token it carries.
func (cc CookieConfig) setSession(c echo.Context, s *service.Session) {
	c.SetCookie(cc.cookie(authmw.AccessCookie, s.AccessToken, int(tokens.AccessTTL/time.Second)))
	c.SetCookie(cc.cookie(authmw.RefreshCookie, s.RefreshToken, int(tokens.RefreshTTL/time.Second)))
}

func (cc CookieConfig) clearSession(c echo.Context) {
	c.SetCookie(cc.cookie(authmw.AccessCookie, "", -1))
	c.SetCookie(cc.cookie(authmw.RefreshCookie, "", -1))
}
