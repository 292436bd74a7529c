package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/service"
	"github.com/Skotchmaster/auth_service/internal/transport"
)

// ErrorHandler renders every failure as {"errors":[...]}. Anything it does
// not recognise becomes a bare 500; the cause is only logged.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, items := classify(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "status", status, "error", err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, transport.ErrorResponse{Errors: items})
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("write_error_response", "error", werr)
	}
}

func classify(err error) (int, []transport.ErrorItem) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		items := make([]transport.ErrorItem, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			items = append(items, transport.ErrorItem{Type: "field", Msg: f.Msg, Path: f.Field, Location: "body"})
		}
		return http.StatusBadRequest, items
	}

	switch {
	case errors.Is(err, service.ErrEmailExists):
		return http.StatusBadRequest, []transport.ErrorItem{{Type: "field", Msg: service.ErrEmailExists.Error(), Path: "email", Location: "body"}}
	case errors.Is(err, service.ErrInvalidCredentials):
		return single(http.StatusBadRequest, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return single(http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, service.ErrForbidden):
		return single(http.StatusForbidden, "you don't have enough rights")
	case errors.Is(err, service.ErrNotFound):
		return single(http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrTooManyAttempts):
		return single(http.StatusTooManyRequests, service.ErrTooManyAttempts.Error())
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			return single(he.Code, "internal server error")
		}
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return single(he.Code, msg)
	}

	return single(http.StatusInternalServerError, "internal server error")
}

func single(status int, msg string) (int, []transport.ErrorItem) {
	return status, []transport.ErrorItem{{Type: errorType(status), Msg: msg}}
}

// errorType names errors the way http-style error classes do:
// 401 -> UnauthorizedError, 500 -> InternalServerError.
func errorType(status int) string {
	name := strings.ReplaceAll(http.StatusText(status), " ", "")
	if name == "" {
		name = "Http"
	}
	if strings.HasSuffix(name, "Error") {
		return name
	}
	return name + "Error"
}
