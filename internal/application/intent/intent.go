package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/logger"
	"github.com/kylrix/flow/internal/ports"
)

// Intents the analyzer may emit.
const (
	IntentCreateTask  = "create_task"
	IntentCreateEvent = "create_event"
)

const instructionTemplate = `You are an intent extractor for a productivity app.
Today's date is %s.

Read the user's message and answer with a single JSON object, nothing else:
{
  "intent": "create_task" | "create_event",
  "summary": "<one sentence describing what will be created>",
  "data": {
    "title": "<required>",
    "description": "<optional>",
    "priority": "low" | "medium" | "high" | "urgent",
    "dueDate": "<RFC 3339, tasks only>",
    "startTime": "<RFC 3339, events only>",
    "endTime": "<RFC 3339, events only>",
    "location": "<optional, events only>"
  }
}

Resolve relative dates ("tomorrow", "next friday") against today's date.
Omit fields the message gives no value for.

User message: %s`

// Analysis is the structured result of one extraction. It describes
// what would be created; nothing is written until Execute.
type Analysis struct {
	Intent  string     `json:"intent"`
	Summary string     `json:"summary"`
	Data    IntentData `json:"data"`
}

// IntentData carries the extracted fields. Task and event intents use
// different subsets.
type IntentData struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Location    string     `json:"location"`
}

// TaskCreator is the slice of the task store Execute needs.
type TaskCreator interface {
	Create(ctx context.Context, task *entities.Task) (*entities.Task, error)
}

// Analyzer turns free-form text into a create_task or create_event
// proposal via the completion endpoint, and executes confirmed
// proposals against the backend.
type Analyzer struct {
	completion ports.CompletionClient
	tasks      TaskCreator
	events     ports.EventAPI
	logger     *logger.Logger
	now        func() time.Time
}

func NewAnalyzer(completion ports.CompletionClient, tasks TaskCreator, events ports.EventAPI, appLogger *logger.Logger) *Analyzer {
	return &Analyzer{
		completion: completion,
		tasks:      tasks,
		events:     events,
		logger:     appLogger.WithComponent("intent"),
		now:        time.Now,
	}
}

// Analyze extracts an intent from the message. A transport failure
// surfaces as a network error; a completion that cannot be understood
// surfaces as ErrAnalysisFailed. Analyze never writes anything.
func (a *Analyzer) Analyze(ctx context.Context, message string) (*Analysis, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: empty message", entities.ErrAnalysisFailed)
	}

	prompt := fmt.Sprintf(instructionTemplate, a.now().Format("Monday, January 2, 2006"), message)
	raw, err := a.completion.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, entities.ErrNetwork) {
			return nil, err
		}
		return nil, fmt.Errorf("completion: %w", err)
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		a.logger.Warnw("Unusable completion", "error", err)
		return nil, err
	}
	return analysis, nil
}

// parseAnalysis decodes the completion text, tolerating the markdown
// code fences models wrap JSON in.
func parseAnalysis(raw string) (*Analysis, error) {
	cleaned := stripCodeFence(raw)

	var analysis Analysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrAnalysisFailed, err)
	}

	switch analysis.Intent {
	case IntentCreateTask, IntentCreateEvent:
	default:
		return nil, fmt.Errorf("%w: intent %q", entities.ErrUnknownIntent, analysis.Intent)
	}
	if strings.TrimSpace(analysis.Data.Title) == "" {
		return nil, fmt.Errorf("%w: missing title", entities.ErrAnalysisFailed)
	}
	if analysis.Intent == IntentCreateEvent && analysis.Data.StartTime == nil {
		return nil, fmt.Errorf("%w: missing start time", entities.ErrAnalysisFailed)
	}
	return &analysis, nil
}

// stripCodeFence unwraps a ```json ... ``` (or plain ```) block.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{}") {
		// Language tag on the fence line.
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Execute creates the proposed task or event for the user. The
// analysis may arrive from outside Analyze, so the required fields are
// re-checked before any dispatch.
func (a *Analyzer) Execute(ctx context.Context, analysis *Analysis, user *entities.User) (any, error) {
	if strings.TrimSpace(analysis.Data.Title) == "" {
		return nil, fmt.Errorf("%w: missing title", entities.ErrAnalysisFailed)
	}
	switch analysis.Intent {
	case IntentCreateTask:
		return a.executeTask(ctx, analysis, user)
	case IntentCreateEvent:
		if analysis.Data.StartTime == nil {
			return nil, fmt.Errorf("%w: missing start time", entities.ErrAnalysisFailed)
		}
		return a.executeEvent(ctx, analysis, user)
	default:
		return nil, fmt.Errorf("%w: intent %q", entities.ErrUnknownIntent, analysis.Intent)
	}
}

func (a *Analyzer) executeTask(ctx context.Context, analysis *Analysis, user *entities.User) (*entities.Task, error) {
	task := &entities.Task{
		Title:       analysis.Data.Title,
		Description: analysis.Data.Description,
		Priority:    entities.Priority(analysis.Data.Priority),
		DueDate:     analysis.Data.DueDate,
		CreatorID:   user.ID,
	}
	if task.Priority != "" && !task.Priority.IsValid() {
		task.Priority = entities.PriorityMedium
	}
	return a.tasks.Create(ctx, task)
}

func (a *Analyzer) executeEvent(ctx context.Context, analysis *Analysis, user *entities.User) (*entities.Event, error) {
	event := &entities.Event{
		Title:       analysis.Data.Title,
		Description: analysis.Data.Description,
		StartTime:   *analysis.Data.StartTime,
		Location:    analysis.Data.Location,
		Visibility:  entities.EventVisibilityPrivate,
		Status:      entities.EventStatusConfirmed,
		UserID:      user.ID,
	}
	if analysis.Data.EndTime != nil {
		event.EndTime = *analysis.Data.EndTime
	}
	event.NormalizeDuration()

	created, err := a.events.Create(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	a.logger.Infow("Event created from intent", "event_id", created.ID, "user_id", user.ID)
	return created, nil
}
