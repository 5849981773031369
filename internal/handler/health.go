// Package handler contains the HTTP handlers.  Handlers stay thin: bind,
// delegate to a repository or service, map errors onto statuses.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness endpoint used by load balancers and monitoring.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
