package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kylrix/flow/internal/application/store"
	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/logger"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	tasks  *store.TaskStore
	logger *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks *store.TaskStore, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:  tasks,
		logger: logger,
	}
}

// ListTasks returns the viewer's working set, reloading it from the
// backend first.
func (h *TaskHandler) ListTasks(c echo.Context) error {
	user, _ := currentUser(c)

	if err := h.tasks.Load(c.Request().Context(), user.ID); err != nil {
		h.logger.Errorw("Task load failed", "error", err, "user_id", user.ID)
		return err
	}
	return c.JSON(http.StatusOK, h.tasks.Tasks())
}

// GetTask returns one of the viewer's cached tasks.
func (h *TaskHandler) GetTask(c echo.Context) error {
	user, _ := currentUser(c)
	task, err := h.tasks.Get(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// CreateTask handles task creation
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, _ := currentUser(c)
	task := &entities.Task{
		Title:       req.Title,
		Description: req.Description,
		Priority:    entities.Priority(req.Priority),
		Status:      entities.TaskStatus(req.Status),
		DueDate:     req.DueDate,
		AssigneeIDs: req.AssigneeIDs,
		Labels:      req.Labels,
		CreatorID:   user.ID,
	}

	created, err := h.tasks.Create(c.Request().Context(), task)
	if err != nil {
		h.logger.Errorw("Create task failed", "error", err, "user_id", user.ID)
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateTask applies a partial update.
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	var req UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fields := req.Fields()
	if len(fields) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "No fields to update")
	}

	user, _ := currentUser(c)
	updated, err := h.tasks.Update(c.Request().Context(), user.ID, c.Param("id"), fields)
	if err != nil {
		if !errors.Is(err, entities.ErrTaskNotFound) {
			h.logger.Errorw("Update task failed", "error", err, "task_id", c.Param("id"))
		}
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteTask handles task deletion
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	user, _ := currentUser(c)
	if err := h.tasks.Delete(c.Request().Context(), user.ID, c.Param("id")); err != nil {
		h.logger.Errorw("Delete task failed", "error", err, "task_id", c.Param("id"))
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "task deleted"})
}
