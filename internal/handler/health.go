package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports process and database liveness for load
// balancers and monitoring probes.
type HealthHandler struct {
	DB *sql.DB
}

// Health answers 200 while the process is up and the database
// responds to a ping, 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, echo.Map{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
