package http

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// ClientIP is the first X-Forwarded-For entry, falling back to the connection's address.
func ClientIP(c echo.Context) string {
	if xff := c.Request().Header.Get(echo.HeaderXForwardedFor); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	return c.RealIP()
}
