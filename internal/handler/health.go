package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health verifies that the service is up.  Used by load balancers and
// monitoring; returns plain "ok" with a 200.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
