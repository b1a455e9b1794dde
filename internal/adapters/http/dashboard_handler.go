package http

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kylrix/flow/internal/application/store"
	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/logger"
	"github.com/kylrix/flow/internal/ports"
)

const upcomingWindow = 7 * 24 * time.Hour

// DashboardHandler aggregates the viewer's working set into the
// landing-page summary.
type DashboardHandler struct {
	tasks         *store.TaskStore
	notes         *store.NoteStore
	events        ports.EventAPI
	notifications *store.NotificationStore
	logger        *logger.Logger
}

func NewDashboardHandler(tasks *store.TaskStore, notes *store.NoteStore, events ports.EventAPI, notifications *store.NotificationStore, logger *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		tasks:         tasks,
		notes:         notes,
		events:        events,
		notifications: notifications,
		logger:        logger,
	}
}

// Summary reloads the viewer's stores and returns counts plus the
// events starting within the next week.
func (h *DashboardHandler) Summary(c echo.Context) error {
	ctx := c.Request().Context()
	user, _ := currentUser(c)

	if err := h.tasks.Load(ctx, user.ID); err != nil {
		h.logger.Errorw("Dashboard task load failed", "error", err, "user_id", user.ID)
		return err
	}
	if err := h.notes.Load(ctx, user.ID); err != nil {
		h.logger.Errorw("Dashboard note load failed", "error", err, "user_id", user.ID)
		return err
	}
	if err := h.notifications.Load(ctx, user.ID); err != nil {
		h.logger.Errorw("Dashboard notification load failed", "error", err, "user_id", user.ID)
		return err
	}

	events, err := h.events.List(ctx, ports.Equal("userId", user.ID))
	if err != nil {
		h.logger.Errorw("Dashboard event load failed", "error", err, "user_id", user.ID)
		return err
	}

	summary := DashboardResponse{
		Tasks:          taskCounts(h.tasks.Tasks()),
		NoteCount:      len(h.notes.Notes()),
		UpcomingEvents: upcomingEvents(events, time.Now()),
		UnreadCount:    h.notifications.UnreadCount(),
	}
	return c.JSON(http.StatusOK, summary)
}

func taskCounts(tasks []*entities.Task) TaskCounts {
	var counts TaskCounts
	for _, t := range tasks {
		counts.Total++
		switch t.Status {
		case entities.TaskStatusTodo:
			counts.Todo++
		case entities.TaskStatusInProgress:
			counts.InProgress++
		case entities.TaskStatusDone:
			counts.Done++
		}
		if t.IsOverdue() {
			counts.Overdue++
		}
	}
	return counts
}

func upcomingEvents(events []*entities.Event, now time.Time) []*entities.Event {
	horizon := now.Add(upcomingWindow)
	upcoming := make([]*entities.Event, 0, len(events))
	for _, e := range events {
		if e.StartTime.Before(now) || e.StartTime.After(horizon) {
			continue
		}
		upcoming = append(upcoming, e)
	}
	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].StartTime.Before(upcoming[j].StartTime)
	})
	return upcoming
}
