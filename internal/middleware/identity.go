package middleware

// identity.go defines helper functions shared across middleware files.
// currentUserID feeds the rate-limit key builder with a stable caller
// identifier: the session's user id when one is loaded, "guest"
// otherwise.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// currentUserID extracts a user identifier from the session stored in
// context. It returns "guest" when no user is authenticated.
func currentUserID(c echo.Context) string {
    if info, ok := CurrentSession(c); ok {
        return strconv.FormatInt(info.UserID, 10)
    }
    return "guest"
}
