package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kylrix/flow/internal/application/session"
	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/config"
	"github.com/kylrix/flow/internal/infrastructure/logger"
)

// contextUserKey is where the session middleware parks the resolved user.
const contextUserKey = "flow.user"

// SessionHandler exposes the session state machine and the ecosystem
// app switcher to the UI shell.
type SessionHandler struct {
	sessions *session.Manager
	auth     config.AuthConfig
	logger   *logger.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Manager, auth config.AuthConfig, logger *logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		auth:     auth,
		logger:   logger,
	}
}

// Status reports the current session state and viewer.
func (h *SessionHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, SessionResponse{
		State:          h.sessions.State().String(),
		User:           h.sessions.User(),
		OverlayVisible: h.sessions.OverlayVisible(),
	})
}

// BeginLogin opens the login flow and starts watching for the session
// the popup will establish.
func (h *SessionHandler) BeginLogin(c echo.Context) error {
	popup := h.sessions.BeginLogin(c.Request().Context())
	return c.JSON(http.StatusOK, LoginResponse{
		URL:    popup.URL,
		Name:   popup.Name,
		Width:  popup.Width,
		Height: popup.Height,
	})
}

// DismissLogin abandons the login flow.
func (h *SessionHandler) DismissLogin(c echo.Context) error {
	h.sessions.DismissLogin()
	return c.JSON(http.StatusOK, MessageResponse{Message: "login dismissed"})
}

// Logout invalidates the provider session.
func (h *SessionHandler) Logout(c echo.Context) error {
	if err := h.sessions.Logout(c.Request().Context()); err != nil {
		h.logger.Errorw("Logout failed", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "Logout failed")
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// Apps returns the ecosystem registry for the app-bar switcher, with
// each sibling's URL built on the configured domain.
func (h *SessionHandler) Apps(c echo.Context) error {
	apps := make([]EcosystemAppResponse, 0, len(config.EcosystemApps))
	for _, app := range config.EcosystemApps {
		apps = append(apps, EcosystemAppResponse{
			ID:          app.ID,
			Label:       app.Label,
			URL:         h.auth.EcosystemURL(app.Subdomain),
			Type:        app.Type,
			Description: app.Description,
			Current:     app.ID == "flow",
		})
	}
	return c.JSON(http.StatusOK, apps)
}

// currentUser returns the viewer the session middleware resolved.
func currentUser(c echo.Context) (*entities.User, bool) {
	user, ok := c.Get(contextUserKey).(*entities.User)
	return user, ok && user != nil
}

// viewerID returns the resolved viewer's id, or "" for anonymous.
func viewerID(c echo.Context) string {
	if user, ok := currentUser(c); ok {
		return user.ID
	}
	return ""
}
