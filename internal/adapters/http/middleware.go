package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kylrix/flow/internal/application/session"
	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/logger"
)

// ResolveUser resolves the request's session cookie into a viewer and
// parks it in the context. Requests without a usable session proceed
// anonymously; route guards decide what anonymous viewers may do.
func ResolveUser(sessions *session.Manager, appLogger *logger.Logger) echo.MiddlewareFunc {
	log := appLogger.WithComponent("session-middleware")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie := c.Request().Header.Get("Cookie")
			if cookie == "" {
				return next(c)
			}

			user, err := sessions.ResolveRequestUser(c.Request().Context(), cookie)
			switch {
			case err == nil:
				c.Set(contextUserKey, user)
			case errors.Is(err, entities.ErrUnauthorized):
				// Expired or invalid session: anonymous.
			default:
				log.Warnw("Session resolution failed", "error", err)
			}
			return next(c)
		}
	}
}

// RequireUser rejects anonymous requests.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := currentUser(c); !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Sign in required")
			}
			return next(c)
		}
	}
}
