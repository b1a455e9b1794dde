package http

import (
	"time"

	"github.com/kylrix/flow/internal/application/events"
	"github.com/kylrix/flow/internal/domain/entities"
)

// MessageResponse is a simple message response
type MessageResponse struct {
	Message string `json:"message"`
}

// SessionResponse describes the viewer's session to the UI shell.
type SessionResponse struct {
	State          string         `json:"state"`
	User           *entities.User `json:"user,omitempty"`
	OverlayVisible bool           `json:"overlayVisible"`
}

// LoginResponse carries the popup geometry the shell opens.
type LoginResponse struct {
	URL    string `json:"url"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// CreateTaskRequest creates a task row
type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status      string     `json:"status" validate:"omitempty,oneof=todo in_progress done cancelled"`
	DueDate     *time.Time `json:"dueDate"`
	AssigneeIDs []string   `json:"assigneeIds"`
	Labels      []string   `json:"labels"`
}

// UpdateTaskRequest carries a partial task update. Only present fields
// are applied.
type UpdateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status      *string    `json:"status" validate:"omitempty,oneof=todo in_progress done cancelled"`
	DueDate     *time.Time `json:"dueDate"`
	AssigneeIDs []string   `json:"assigneeIds"`
	Labels      []string   `json:"labels"`
	IsArchived  *bool      `json:"isArchived"`
}

// Fields maps the present members to backend update fields.
func (r *UpdateTaskRequest) Fields() map[string]any {
	fields := map[string]any{}
	if r.Title != nil {
		fields["title"] = *r.Title
	}
	if r.Description != nil {
		fields["description"] = *r.Description
	}
	if r.Priority != nil {
		fields["priority"] = *r.Priority
	}
	if r.Status != nil {
		fields["status"] = *r.Status
	}
	if r.DueDate != nil {
		fields["dueDate"] = *r.DueDate
	}
	if r.AssigneeIDs != nil {
		fields["assigneeIds"] = r.AssigneeIDs
	}
	if r.Labels != nil {
		fields["labels"] = r.Labels
	}
	if r.IsArchived != nil {
		fields["isArchived"] = *r.IsArchived
	}
	return fields
}

// CreateNoteRequest creates a note row
type CreateNoteRequest struct {
	Title    string   `json:"title" validate:"required,min=1,max=200"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	IsPublic bool     `json:"isPublic"`
}

// UpdateNoteRequest carries a partial note update.
type UpdateNoteRequest struct {
	Title    *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Content  *string  `json:"content"`
	Tags     []string `json:"tags"`
	Status   *string  `json:"status" validate:"omitempty,oneof=draft published archived"`
	IsPublic *bool    `json:"isPublic"`
}

func (r *UpdateNoteRequest) Fields() map[string]any {
	fields := map[string]any{}
	if r.Title != nil {
		fields["title"] = *r.Title
	}
	if r.Content != nil {
		fields["content"] = *r.Content
	}
	if r.Tags != nil {
		fields["tags"] = r.Tags
	}
	if r.Status != nil {
		fields["status"] = *r.Status
	}
	if r.IsPublic != nil {
		fields["isPublic"] = *r.IsPublic
	}
	return fields
}

// EventPageResponse is the public event page payload.
type EventPageResponse struct {
	Event        *entities.Event     `json:"event"`
	CoverPattern events.CoverPattern `json:"coverPattern"`
	Registration events.Registration `json:"registration"`
	Attendees    []events.Attendee   `json:"attendees"`
}

// VerifyPINRequest unlocks the step-up gate with the device PIN.
type VerifyPINRequest struct {
	PIN string `json:"pin" validate:"required"`
}

// SetPINRequest provisions the device PIN.
type SetPINRequest struct {
	PIN string `json:"pin" validate:"required"`
}

// VerifyPasswordRequest unlocks the step-up gate with the master password.
type VerifyPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// SudoStatusResponse reports the gate state to the UI.
type SudoStatusResponse struct {
	Unlocked      bool   `json:"unlocked"`
	PendingAction string `json:"pendingAction,omitempty"`
	PINConfigured bool   `json:"pinConfigured"`
}

// AnalyzeRequest submits free-form text for intent extraction.
type AnalyzeRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// ExecuteRequest confirms a previously returned analysis.
type ExecuteRequest struct {
	Analysis intentAnalysis `json:"analysis" validate:"required"`
}

// intentAnalysis mirrors the analyzer result on the wire.
type intentAnalysis struct {
	Intent  string `json:"intent" validate:"required"`
	Summary string `json:"summary"`
	Data    struct {
		Title       string     `json:"title" validate:"required"`
		Description string     `json:"description"`
		Priority    string     `json:"priority"`
		DueDate     *time.Time `json:"dueDate"`
		StartTime   *time.Time `json:"startTime"`
		EndTime     *time.Time `json:"endTime"`
		Location    string     `json:"location"`
	} `json:"data"`
}

// SidebarRequest persists the sidebar preference.
type SidebarRequest struct {
	Collapsed bool `json:"collapsed"`
}

// CalendarViewRequest persists the calendar view preference.
type CalendarViewRequest struct {
	View string `json:"view" validate:"required,oneof=month week"`
}

// EcosystemAppResponse is one entry in the app-bar switcher.
type EcosystemAppResponse struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Current     bool   `json:"current"`
}

// TaskCounts breaks the viewer's tasks down by status.
type TaskCounts struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Done       int `json:"done"`
	Overdue    int `json:"overdue"`
}

// DashboardResponse is the landing-page summary payload.
type DashboardResponse struct {
	Tasks          TaskCounts        `json:"tasks"`
	NoteCount      int               `json:"noteCount"`
	UpcomingEvents []*entities.Event `json:"upcomingEvents"`
	UnreadCount    int               `json:"unreadCount"`
}
