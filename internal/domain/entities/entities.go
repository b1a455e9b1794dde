package entities

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrNoteNotFound         = errors.New("note not found")
	ErrEventNotFound        = errors.New("event not found")
	ErrGuestNotFound        = errors.New("event guest not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrEventUnavailable     = errors.New("event is private or does not exist")
	ErrAlreadyRegistered    = errors.New("already registered for event")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrNetwork              = errors.New("network failure")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidPriority      = errors.New("invalid priority")
	ErrInvalidField         = errors.New("invalid field")
	ErrMissingTitle         = errors.New("title is required")
	ErrMissingCreator       = errors.New("creator id is required")
	ErrAnalysisFailed       = errors.New("intent analysis failed")
	ErrUnknownIntent        = errors.New("unknown intent")
	ErrInvalidPIN           = errors.New("pin must be exactly 4 digits")
	ErrIncorrectPIN         = errors.New("incorrect pin")
	ErrPINNotSet            = errors.New("pin is not set up")
	ErrIncorrectPassword    = errors.New("incorrect master password")
	ErrPasswordNotSet       = errors.New("master password not set up")
	ErrPasskeyNotSupported  = errors.New("passkey verification is not available")
)

// Enums and types
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type NoteStatus string

const (
	NoteStatusDraft     NoteStatus = "draft"
	NoteStatusPublished NoteStatus = "published"
	NoteStatusArchived  NoteStatus = "archived"
)

type EventVisibility string

const (
	EventVisibilityPublic  EventVisibility = "public"
	EventVisibilityPrivate EventVisibility = "private"
)

type EventStatus string

const (
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusTentative EventStatus = "tentative"
	EventStatusCancelled EventStatus = "cancelled"
)

type GuestStatus string

const (
	GuestStatusInvited  GuestStatus = "invited"
	GuestStatusAccepted GuestStatus = "accepted"
)

type GuestRole string

const (
	GuestRoleHost     GuestRole = "host"
	GuestRoleAttendee GuestRole = "attendee"
)

// User is owned by the identity provider; this application only reads it.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	ProfilePicID string `json:"profilePicId"`
}

// Task represents a task row in the backend
type Task struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Priority    Priority    `json:"priority"`
	Status      TaskStatus  `json:"status"`
	DueDate     *time.Time  `json:"dueDate"`
	AssigneeIDs []string    `json:"assigneeIds"`
	ProjectID   string      `json:"projectId"`
	Labels      []string    `json:"labels"`
	Subtasks    []Subtask   `json:"subtasks"`
	Comments    []Comment   `json:"comments"`
	Attachments []string    `json:"attachments"`
	Reminders   []time.Time `json:"reminders"`
	TimeEntries []TimeEntry `json:"timeEntries"`
	CreatorID   string      `json:"creatorId"`
	IsArchived  bool        `json:"isArchived"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Subtask is a lightweight child item carried inside a task row
type Subtask struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// Comment is a user comment on a task
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// TimeEntry is a tracked work interval on a task
type TimeEntry struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
}

// Note represents a note row in the backend
type Note struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Tags          []string   `json:"tags"`
	UserID        string     `json:"userId"`
	IsPublic      bool       `json:"isPublic"`
	Status        NoteStatus `json:"status"`
	ParentNoteID  string     `json:"parentNoteId"`
	Collaborators []string   `json:"collaborators"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Event represents an event row in the backend
type Event struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	StartTime      time.Time       `json:"startTime"`
	EndTime        time.Time       `json:"endTime"`
	Location       string          `json:"location"`
	MeetingURL     string          `json:"meetingUrl"`
	Visibility     EventVisibility `json:"visibility"`
	Status         EventStatus     `json:"status"`
	CoverImageID   string          `json:"coverImageId"`
	MaxAttendees   int             `json:"maxAttendees"`
	RecurrenceRule string          `json:"recurrenceRule"`
	CalendarID     string          `json:"calendarId"`
	UserID         string          `json:"userId"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// EventGuest links a user to an event they attend.
// Rows are unique per (eventId, userId) pair.
type EventGuest struct {
	ID      string      `json:"id"`
	EventID string      `json:"eventId"`
	UserID  string      `json:"userId"`
	Email   string      `json:"email"`
	Status  GuestStatus `json:"status"`
	Role    GuestRole   `json:"role"`
}

// Notification is an activity record; read/unread is tracked on this
// device only and never persisted to the backend.
type Notification struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	TargetType string    `json:"targetType"`
	TargetID   string    `json:"targetId"`
	Detail     string    `json:"detail"`
	Timestamp  time.Time `json:"timestamp"`
	Read       bool      `json:"read"`
}

// Secret belongs to the vault application; this client only lists and
// selects entries, it never stores credentials.
type Secret struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type KeychainEntryType string

const (
	KeychainEntryPassword KeychainEntryType = "password"
	KeychainEntryPasskey  KeychainEntryType = "passkey"
	KeychainEntryPIN      KeychainEntryType = "pin"
)

// KeychainEntry is a vault keychain row used by the step-up gate.
// Check holds a verification hash, never the plaintext credential.
type KeychainEntry struct {
	ID     string            `json:"id"`
	UserID string            `json:"userId"`
	Type   KeychainEntryType `json:"type"`
	Check  string            `json:"check"`
}

// Business logic methods for Task

// Normalize fills the defaults a task must carry before submission:
// a non-empty status and priority, and the creator among the assignees.
func (t *Task) Normalize() {
	if t.Status == "" {
		t.Status = TaskStatusTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.CreatorID != "" && len(t.AssigneeIDs) == 0 {
		t.AssigneeIDs = []string{t.CreatorID}
	}
}

// Validate checks the fields that must never be silently defaulted
func (t *Task) Validate() error {
	if t.Title == "" {
		return ErrMissingTitle
	}
	if t.CreatorID == "" {
		return ErrMissingCreator
	}
	if !t.Status.IsValid() {
		return ErrInvalidStatus
	}
	if !t.Priority.IsValid() {
		return ErrInvalidPriority
	}
	return nil
}

func (t *Task) HasAssignee(userID string) bool {
	for _, id := range t.AssigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (t *Task) IsOverdue() bool {
	if t.DueDate == nil {
		return false
	}
	return time.Now().After(*t.DueDate) && t.Status != TaskStatusDone
}

// Business logic methods for Event

// VisibleTo reports whether the viewer may see the event. A private
// event is visible to its owner only; viewerID may be empty for an
// anonymous viewer.
func (e *Event) VisibleTo(viewerID string) bool {
	if e.Visibility != EventVisibilityPrivate {
		return true
	}
	return viewerID != "" && e.UserID == viewerID
}

func (e *Event) IsPast() bool {
	return time.Now().After(e.EndTime)
}

// NormalizeDuration forces the end time to one hour after the start
// when it is missing or not after the start.
func (e *Event) NormalizeDuration() {
	if e.EndTime.IsZero() || !e.EndTime.After(e.StartTime) {
		e.EndTime = e.StartTime.Add(time.Hour)
	}
}

// OverlapsDay reports whether the event touches the given calendar day.
func (e *Event) OverlapsDay(day time.Time) bool {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	return e.StartTime.Before(dayEnd) && e.EndTime.After(dayStart)
}

// Business logic methods for Note

func (n *Note) IsArchived() bool {
	return n.Status == NoteStatusArchived
}

func (n *Note) Validate() error {
	if n.Title == "" {
		return ErrMissingTitle
	}
	if n.UserID == "" {
		return ErrMissingCreator
	}
	if !n.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Utility methods

func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

func (ns NoteStatus) IsValid() bool {
	switch ns {
	case NoteStatusDraft, NoteStatusPublished, NoteStatusArchived:
		return true
	default:
		return false
	}
}

func (v EventVisibility) IsValid() bool {
	switch v {
	case EventVisibilityPublic, EventVisibilityPrivate:
		return true
	default:
		return false
	}
}

func (gs GuestStatus) IsValid() bool {
	switch gs {
	case GuestStatusInvited, GuestStatusAccepted:
		return true
	default:
		return false
	}
}
