package middleware // middleware provides shared request processing for handlers

import (
    "github.com/labstack/echo/v4" // echo provides middleware chaining and context

    "github.com/THXDUST/portuga-api/internal/auth"
)

// SessionCookieName is the cookie carrying the session token. The
// token also travels as a Bearer Authorization header for API clients.
const SessionCookieName = "session_token"

// sessionContextKey is where the validated SessionInfo lives on the
// echo context for the rest of the request.
const sessionContextKey = "session"

// SessionContext returns middleware that extracts session evidence
// from the request (cookie first, then Authorization header), validates
// it through the session manager and stores the resulting identity on
// the context. It never rejects the request itself: anonymous requests
// simply proceed without a session and the access gate decides later.
func SessionContext(m *auth.SessionManager) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            token := tokenFromRequest(c)
            if token != "" {
                if info, err := m.Validate(c.Request().Context(), token); err == nil {
                    c.Set(sessionContextKey, info)
                }
            }
            return next(c)
        }
    }
}

// CurrentSession returns the validated session for this request, if
// any.
func CurrentSession(c echo.Context) (*auth.SessionInfo, bool) {
    info, ok := c.Get(sessionContextKey).(*auth.SessionInfo)
    return info, ok && info != nil
}

func tokenFromRequest(c echo.Context) string {
    if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
        return cookie.Value
    }
    const prefix = "Bearer "
    authHeader := c.Request().Header.Get("Authorization")
    if len(authHeader) > len(prefix) && authHeader[:len(prefix)] == prefix {
        return authHeader[len(prefix):]
    }
    return ""
}
