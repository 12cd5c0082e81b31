package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/THXDUST/portuga-api/internal/queue"
	queue_publisher "github.com/THXDUST/portuga-api/internal/service"
)

// Every endpoint answers with the same machine-checkable envelope: a
// success flag plus a message, with payload data alongside on success.

func jsonOK(c echo.Context, status int, data echo.Map) error {
	resp := echo.Map{"success": true}
	for k, v := range data {
		resp[k] = v
	}
	return c.JSON(status, resp)
}

func jsonFail(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{"success": false, "message": message})
}

// publishAudit fires a security event at the broker without blocking
// the request; a broker outage must never fail a login or an admin
// mutation. The background context outlives the request on purpose.
func publishAudit(ev queue.SecurityEvent) {
	go func() {
		_ = queue_publisher.PublishSecurityEvent(context.Background(), ev)
	}()
}
