package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kylrix/flow/internal/application/store"
	"github.com/kylrix/flow/internal/infrastructure/logger"
)

// NotificationHandler serves the activity feed with device-local read
// state, plus the layout preferences stored alongside it.
type NotificationHandler struct {
	notifications *store.NotificationStore
	layout        *store.LayoutStore
	logger        *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications *store.NotificationStore, layout *store.LayoutStore, logger *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		layout:        layout,
		logger:        logger,
	}
}

// List reloads and returns the feed.
func (h *NotificationHandler) List(c echo.Context) error {
	user, _ := currentUser(c)

	if err := h.notifications.Load(c.Request().Context(), user.ID); err != nil {
		h.logger.Errorw("Notification load failed", "error", err, "user_id", user.ID)
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"notifications": h.notifications.Notifications(),
		"unread":        h.notifications.UnreadCount(),
	})
}

// MarkRead flags one of the viewer's notifications as read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	user, _ := currentUser(c)
	if err := h.notifications.MarkRead(c.Request().Context(), user.ID, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "marked read"})
}

// MarkAllRead flags the viewer's whole feed as read.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	user, _ := currentUser(c)
	if err := h.notifications.MarkAllRead(c.Request().Context(), user.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "all marked read"})
}

// GetLayout returns the device layout preferences.
func (h *NotificationHandler) GetLayout(c echo.Context) error {
	ctx := c.Request().Context()
	collapsed, err := h.layout.SidebarCollapsed(ctx)
	if err != nil {
		return err
	}
	view, err := h.layout.CalendarView(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"sidebarCollapsed": collapsed,
		"calendarView":     view,
	})
}

// SetSidebar persists the sidebar preference.
func (h *NotificationHandler) SetSidebar(c echo.Context) error {
	var req SidebarRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := h.layout.SetSidebarCollapsed(c.Request().Context(), req.Collapsed); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "saved"})
}

// SetCalendarView persists the calendar view preference.
func (h *NotificationHandler) SetCalendarView(c echo.Context) error {
	var req CalendarViewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.layout.SetCalendarView(c.Request().Context(), req.View); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "saved"})
}
