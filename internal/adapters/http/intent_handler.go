package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kylrix/flow/internal/application/intent"
	"github.com/kylrix/flow/internal/infrastructure/logger"
)

// IntentHandler drives the assistant round-trip: analyze a message,
// then execute the confirmed proposal.
type IntentHandler struct {
	analyzer *intent.Analyzer
	logger   *logger.Logger
}

// NewIntentHandler creates a new intent handler
func NewIntentHandler(analyzer *intent.Analyzer, logger *logger.Logger) *IntentHandler {
	return &IntentHandler{
		analyzer: analyzer,
		logger:   logger,
	}
}

// Analyze extracts an intent proposal without creating anything.
func (h *IntentHandler) Analyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	analysis, err := h.analyzer.Analyze(c.Request().Context(), req.Message)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, analysis)
}

// Execute creates the task or event a previous analysis proposed.
func (h *IntentHandler) Execute(c echo.Context) error {
	var req ExecuteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, _ := currentUser(c)
	analysis := &intent.Analysis{
		Intent:  req.Analysis.Intent,
		Summary: req.Analysis.Summary,
		Data: intent.IntentData{
			Title:       req.Analysis.Data.Title,
			Description: req.Analysis.Data.Description,
			Priority:    req.Analysis.Data.Priority,
			DueDate:     req.Analysis.Data.DueDate,
			StartTime:   req.Analysis.Data.StartTime,
			EndTime:     req.Analysis.Data.EndTime,
			Location:    req.Analysis.Data.Location,
		},
	}

	created, err := h.analyzer.Execute(c.Request().Context(), analysis, user)
	if err != nil {
		h.logger.Warnw("Intent execution failed", "intent", analysis.Intent, "error", err)
		return err
	}
	return c.JSON(http.StatusCreated, created)
}
