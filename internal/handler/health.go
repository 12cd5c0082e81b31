package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health answers load-balancer and monitoring probes. It touches no
// stores: a degraded database must not make the process look dead.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}
