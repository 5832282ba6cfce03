package middleware

import "github.com/labstack/echo/v4"

// subject returns the authenticated caller stored by JWTAuth, or "anon".
func subject(c echo.Context) string {
    if s, ok := c.Get("user_id").(string); ok && s != "" {
        return s
    }
    return "anon"
}
