package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kylrix/flow/internal/application/store"
	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/logger"
)

// NoteHandler handles note-related requests
type NoteHandler struct {
	notes  *store.NoteStore
	logger *logger.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(notes *store.NoteStore, logger *logger.Logger) *NoteHandler {
	return &NoteHandler{
		notes:  notes,
		logger: logger,
	}
}

// ListNotes reloads and returns the viewer's notes.
func (h *NoteHandler) ListNotes(c echo.Context) error {
	user, _ := currentUser(c)

	if err := h.notes.Load(c.Request().Context(), user.ID); err != nil {
		h.logger.Errorw("Note load failed", "error", err, "user_id", user.ID)
		return err
	}
	return c.JSON(http.StatusOK, h.notes.Notes())
}

// GetNote returns one of the viewer's cached notes.
func (h *NoteHandler) GetNote(c echo.Context) error {
	user, _ := currentUser(c)
	note, err := h.notes.Get(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, note)
}

// CreateNote handles note creation
func (h *NoteHandler) CreateNote(c echo.Context) error {
	var req CreateNoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, _ := currentUser(c)
	note := &entities.Note{
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		IsPublic: req.IsPublic,
		UserID:   user.ID,
	}

	created, err := h.notes.Create(c.Request().Context(), note)
	if err != nil {
		h.logger.Errorw("Create note failed", "error", err, "user_id", user.ID)
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateNote applies a partial update.
func (h *NoteHandler) UpdateNote(c echo.Context) error {
	var req UpdateNoteRequest
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
	updated, err := h.notes.Update(c.Request().Context(), user.ID, c.Param("id"), fields)
	if err != nil {
		if !errors.Is(err, entities.ErrNoteNotFound) {
			h.logger.Errorw("Update note failed", "error", err, "note_id", c.Param("id"))
		}
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteNote handles note deletion
func (h *NoteHandler) DeleteNote(c echo.Context) error {
	user, _ := currentUser(c)
	if err := h.notes.Delete(c.Request().Context(), user.ID, c.Param("id")); err != nil {
		h.logger.Errorw("Delete note failed", "error", err, "note_id", c.Param("id"))
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "note deleted"})
}
