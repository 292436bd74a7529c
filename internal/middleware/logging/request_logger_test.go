package loggingmw

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/auth_service/internal/logging"
)

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var out map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &out))
	return out
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler echo.HandlerFunc
		status  int
		level   string
	}{
		{"ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, http.StatusOK, "INFO"},
		{"client error", func(c echo.Context) error { return echo.NewHTTPError(http.StatusUnauthorized, "nope") }, http.StatusUnauthorized, "WARN"},
		{"server error", func(c echo.Context) error { return echo.NewHTTPError(http.StatusInternalServerError) }, http.StatusInternalServerError, "ERROR"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			e := echo.New()
			e.Use(RequestLogger(logging.NewWithWriter(&buf, "debug")))
			e.GET("/x", func(c echo.Context) error {
				assert.NotNil(t, logging.FromContext(c.Request().Context()))
				return tt.handler(c)
			})

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Header.Set(echo.HeaderXRequestID, "rid-1")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "rid-1", rec.Header().Get(echo.HeaderXRequestID))

			line := lastLine(t, &buf)
			assert.Equal(t, tt.level, line["level"])
			assert.Equal(t, "request completed", line["msg"])
			assert.Equal(t, "rid-1", line["request_id"])
			assert.Equal(t, "/x", line["path"])
			assert.EqualValues(t, tt.status, line["status"])
		})
	}
}
