package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kylrix/flow/internal/application/calendar"
	"github.com/kylrix/flow/internal/application/events"
	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/logger"
	"github.com/kylrix/flow/internal/ports"
)

// EventHandler serves the public event pages, registration and the
// calendar view.
type EventHandler struct {
	service *events.Service
	api     ports.EventAPI
	logger  *logger.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(service *events.Service, api ports.EventAPI, logger *logger.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		api:     api,
		logger:  logger,
	}
}

// GetEvent serves the event page. Anonymous viewers see public events;
// everything else reports the same unavailable outcome.
func (h *EventHandler) GetEvent(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	event, err := h.service.GetEvent(ctx, viewerID(c), id)
	if err != nil {
		return err
	}

	page := EventPageResponse{
		Event:        event,
		CoverPattern: events.CoverPatternFor(event.ID),
	}
	if uid := viewerID(c); uid != "" {
		reg, err := h.service.RegistrationFor(ctx, event.ID, uid)
		if err != nil {
			h.logger.Warnw("Registration lookup failed", "event_id", event.ID, "error", err)
		} else {
			page.Registration = reg
		}
	}
	attendees, err := h.service.Attendees(ctx, event.ID)
	if err != nil {
		return err
	}
	page.Attendees = attendees

	return c.JSON(http.StatusOK, page)
}

// ListEvents returns the viewer's own events.
func (h *EventHandler) ListEvents(c echo.Context) error {
	user, _ := currentUser(c)

	list, err := h.api.List(c.Request().Context(), ports.Equal("userId", user.ID))
	if err != nil {
		h.logger.Errorw("Event list failed", "error", err, "user_id", user.ID)
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// Register adds the viewer to the guest list.
func (h *EventHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	user, _ := currentUser(c)

	event, err := h.service.GetEvent(ctx, user.ID, c.Param("id"))
	if err != nil {
		return err
	}
	guest, err := h.service.Register(ctx, event, user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, guest)
}

// CancelRegistration removes the viewer from the guest list.
func (h *EventHandler) CancelRegistration(c echo.Context) error {
	user, _ := currentUser(c)

	if err := h.service.CancelRegistration(c.Request().Context(), c.Param("id"), user.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "registration cancelled"})
}

// Calendar returns the month grid for the viewer's events.
func (h *EventHandler) Calendar(c echo.Context) error {
	user, _ := currentUser(c)
	now := time.Now()

	year := now.Year()
	if v := c.QueryParam("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1970 || parsed > 9999 {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid year")
		}
		year = parsed
	}
	month := now.Month()
	if v := c.QueryParam("month"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 12 {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid month")
		}
		month = time.Month(parsed)
	}
	weekStart := time.Sunday
	if c.QueryParam("weekStart") == "monday" {
		weekStart = time.Monday
	}

	list, err := h.api.List(c.Request().Context(), ports.Equal("userId", user.ID))
	if err != nil {
		h.logger.Errorw("Calendar load failed", "error", err, "user_id", user.ID)
		return err
	}
	return c.JSON(http.StatusOK, calendar.Grid(year, month, weekStart, list, now))
}

// CreateEvent creates an event owned by the viewer.
func (h *EventHandler) CreateEvent(c echo.Context) error {
	var event entities.Event
	if err := c.Bind(&event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if event.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Title is required")
	}
	if event.StartTime.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "Start time is required")
	}

	user, _ := currentUser(c)
	event.ID = ""
	event.UserID = user.ID
	if event.Visibility == "" {
		event.Visibility = entities.EventVisibilityPrivate
	}
	if event.Status == "" {
		event.Status = entities.EventStatusConfirmed
	}
	event.NormalizeDuration()

	created, err := h.api.Create(c.Request().Context(), &event)
	if err != nil {
		h.logger.Errorw("Create event failed", "error", err, "user_id", user.ID)
		return err
	}
	return c.JSON(http.StatusCreated, created)
}
