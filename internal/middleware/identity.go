package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"blogcore/internal/lib/jwt"
	"blogcore/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

const staffKey = "blog.staff"

// Identity marks the request as privileged when it carries a valid bearer
// token with a true staff claim. Anything else is an anonymous reader.
func Identity(log *slog.Logger, secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(staffKey, false)

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" || secret == "" {
				return next(c)
			}

			staff, err := jwt.ParseStaff(token, secret)
			if err != nil {
				log.Debug("ignoring bearer token", slog.String("reason", err.Error()))
				return next(c)
			}

			c.Set(staffKey, staff)

			return next(c)
		}
	}
}

// IsStaff reports what Identity decided for this request.
func IsStaff(c echo.Context) bool {
	staff, _ := c.Get(staffKey).(bool)
	return staff
}

// RequireStaff rejects unprivileged callers with 403.
func RequireStaff(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsStaff(c) {
			return c.JSON(http.StatusForbidden, response.ErrForbidden)
		}
		return next(c)
	}
}
