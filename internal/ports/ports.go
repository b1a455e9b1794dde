package ports

import (
	"context"

	"github.com/kylrix/flow/internal/domain/entities"
)

// Query is an equality predicate on an indexed backend field.
type Query struct {
	Field string
	Value string
}

// Equal builds an equality query.
func Equal(field, value string) Query {
	return Query{Field: field, Value: value}
}

// TaskAPI defines the backend surface for task rows
type TaskAPI interface {
	List(ctx context.Context, queries ...Query) ([]*entities.Task, error)
	Get(ctx context.Context, id string) (*entities.Task, error)
	Create(ctx context.Context, task *entities.Task) (*entities.Task, error)
	Update(ctx context.Context, id string, fields map[string]any) (*entities.Task, error)
	Delete(ctx context.Context, id string) error
}

// NoteAPI defines the backend surface for note rows
type NoteAPI interface {
	List(ctx context.Context, queries ...Query) ([]*entities.Note, error)
	Get(ctx context.Context, id string) (*entities.Note, error)
	Create(ctx context.Context, note *entities.Note) (*entities.Note, error)
	Update(ctx context.Context, id string, fields map[string]any) (*entities.Note, error)
	Delete(ctx context.Context, id string) error
}

// EventAPI defines the backend surface for event rows
type EventAPI interface {
	List(ctx context.Context, queries ...Query) ([]*entities.Event, error)
	Get(ctx context.Context, id string) (*entities.Event, error)
	Create(ctx context.Context, event *entities.Event) (*entities.Event, error)
	Update(ctx context.Context, id string, fields map[string]any) (*entities.Event, error)
	Delete(ctx context.Context, id string) error
}

// GuestAPI defines the backend surface for event guest rows
type GuestAPI interface {
	List(ctx context.Context, queries ...Query) ([]*entities.EventGuest, error)
	Create(ctx context.Context, guest *entities.EventGuest) (*entities.EventGuest, error)
	Delete(ctx context.Context, id string) error
}

// SecretAPI lists vault secrets. Read-only: the vault app owns them.
type SecretAPI interface {
	List(ctx context.Context, queries ...Query) ([]*entities.Secret, error)
}

// KeychainAPI lists vault keychain entries for step-up verification.
type KeychainAPI interface {
	List(ctx context.Context, queries ...Query) ([]*entities.KeychainEntry, error)
}

// NotificationAPI defines the backend surface for notification rows
type NotificationAPI interface {
	List(ctx context.Context, queries ...Query) ([]*entities.Notification, error)
}

// AccountAPI defines the authentication/session surface of the backend
type AccountAPI interface {
	// CurrentSession returns the user of the process-wide session.
	CurrentSession(ctx context.Context) (*entities.User, error)
	// CurrentSessionWithCookie resolves a user from a forwarded Cookie
	// header, the way server-side requests carry browser sessions.
	CurrentSessionWithCookie(ctx context.Context, cookieHeader string) (*entities.User, error)
	// DeleteCurrentSession invalidates the current session.
	DeleteCurrentSession(ctx context.Context) error
}

// IdentityAPI resolves ecosystem users for display (avatars, names).
type IdentityAPI interface {
	SearchUsers(ctx context.Context, term string, limit int) ([]*entities.User, error)
	ProfilePreviewURL(fileID string, width, height int) string
}

// CompletionClient sends a text prompt to the external language-model
// endpoint and returns the raw completion text.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LocalState is the device-local key-value store backing notification
// read flags, the PIN check value, and user settings.
type LocalState interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
