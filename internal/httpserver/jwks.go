package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/pkg/tokens"
)

type KeyPublisher interface {
	PublicJWKS() tokens.JWKS
}

func jwksHandler(p KeyPublisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=300")
		return c.JSON(http.StatusOK, p.PublicJWKS())
	}
}
