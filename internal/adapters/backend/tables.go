package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/ports"
)

// Row-level errors produced by the transport layer before they are
// translated into per-entity sentinels.
var (
	ErrRowNotFound = errors.New("row not found")
	ErrRowConflict = errors.New("row conflict")
)

// Table names in the backend project.
const (
	tableTasks         = "tasks"
	tableNotes         = "notes"
	tableEvents        = "events"
	tableEventGuests   = "event_guests"
	tableSecrets       = "secrets"
	tableKeychain      = "keychain_entries"
	tableNotifications = "notifications"
)

func rowsPath(table string) string   { return "/tables/" + table + "/rows" }
func rowPath(table, id string) string { return rowsPath(table) + "/" + id }

func listRows[T any](ctx context.Context, c *Client, table string, queries []ports.Query) ([]*T, error) {
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, rowsPath(table), queryValues(queries), nil, "", &resp); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	rows := make([]*T, 0, len(resp.Rows))
	for _, raw := range resp.Rows {
		row := new(T)
		if err := json.Unmarshal(raw, row); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", table, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func getRow[T any](ctx context.Context, c *Client, table, id string) (*T, error) {
	row := new(T)
	if err := c.do(ctx, http.MethodGet, rowPath(table, id), nil, nil, "", row); err != nil {
		return nil, fmt.Errorf("get %s %s: %w", table, id, err)
	}
	return row, nil
}

func createRow[T any](ctx context.Context, c *Client, table string, row *T) (*T, error) {
	created := new(T)
	if err := c.do(ctx, http.MethodPost, rowsPath(table), nil, row, "", created); err != nil {
		return nil, fmt.Errorf("create %s: %w", table, err)
	}
	return created, nil
}

func updateRow[T any](ctx context.Context, c *Client, table, id string, fields map[string]any) (*T, error) {
	updated := new(T)
	if err := c.do(ctx, http.MethodPatch, rowPath(table, id), nil, fields, "", updated); err != nil {
		return nil, fmt.Errorf("update %s %s: %w", table, id, err)
	}
	return updated, nil
}

func deleteRow(ctx context.Context, c *Client, table, id string) error {
	if err := c.do(ctx, http.MethodDelete, rowPath(table, id), nil, nil, "", nil); err != nil {
		return fmt.Errorf("delete %s %s: %w", table, id, err)
	}
	return nil
}

// translate swaps the transport not-found sentinel for a per-entity one.
func translate(err, notFound error) error {
	if errors.Is(err, ErrRowNotFound) {
		return notFound
	}
	return err
}

// TaskTable implements ports.TaskAPI.
type TaskTable struct{ client *Client }

// Tasks returns the task table adapter.
func (c *Client) Tasks() *TaskTable { return &TaskTable{client: c} }

func (t *TaskTable) List(ctx context.Context, queries ...ports.Query) ([]*entities.Task, error) {
	return listRows[entities.Task](ctx, t.client, tableTasks, queries)
}

func (t *TaskTable) Get(ctx context.Context, id string) (*entities.Task, error) {
	task, err := getRow[entities.Task](ctx, t.client, tableTasks, id)
	if err != nil {
		return nil, translate(err, entities.ErrTaskNotFound)
	}
	return task, nil
}

func (t *TaskTable) Create(ctx context.Context, task *entities.Task) (*entities.Task, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	return createRow(ctx, t.client, tableTasks, task)
}

func (t *TaskTable) Update(ctx context.Context, id string, fields map[string]any) (*entities.Task, error) {
	task, err := updateRow[entities.Task](ctx, t.client, tableTasks, id, fields)
	if err != nil {
		return nil, translate(err, entities.ErrTaskNotFound)
	}
	return task, nil
}

func (t *TaskTable) Delete(ctx context.Context, id string) error {
	if err := deleteRow(ctx, t.client, tableTasks, id); err != nil {
		return translate(err, entities.ErrTaskNotFound)
	}
	return nil
}

// NoteTable implements ports.NoteAPI.
type NoteTable struct{ client *Client }

// Notes returns the note table adapter.
func (c *Client) Notes() *NoteTable { return &NoteTable{client: c} }

func (t *NoteTable) List(ctx context.Context, queries ...ports.Query) ([]*entities.Note, error) {
	return listRows[entities.Note](ctx, t.client, tableNotes, queries)
}

func (t *NoteTable) Get(ctx context.Context, id string) (*entities.Note, error) {
	note, err := getRow[entities.Note](ctx, t.client, tableNotes, id)
	if err != nil {
		return nil, translate(err, entities.ErrNoteNotFound)
	}
	return note, nil
}

func (t *NoteTable) Create(ctx context.Context, note *entities.Note) (*entities.Note, error) {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	return createRow(ctx, t.client, tableNotes, note)
}

func (t *NoteTable) Update(ctx context.Context, id string, fields map[string]any) (*entities.Note, error) {
	note, err := updateRow[entities.Note](ctx, t.client, tableNotes, id, fields)
	if err != nil {
		return nil, translate(err, entities.ErrNoteNotFound)
	}
	return note, nil
}

func (t *NoteTable) Delete(ctx context.Context, id string) error {
	if err := deleteRow(ctx, t.client, tableNotes, id); err != nil {
		return translate(err, entities.ErrNoteNotFound)
	}
	return nil
}

// EventTable implements ports.EventAPI.
type EventTable struct{ client *Client }

// Events returns the event table adapter.
func (c *Client) Events() *EventTable { return &EventTable{client: c} }

func (t *EventTable) List(ctx context.Context, queries ...ports.Query) ([]*entities.Event, error) {
	return listRows[entities.Event](ctx, t.client, tableEvents, queries)
}

func (t *EventTable) Get(ctx context.Context, id string) (*entities.Event, error) {
	event, err := getRow[entities.Event](ctx, t.client, tableEvents, id)
	if err != nil {
		return nil, translate(err, entities.ErrEventNotFound)
	}
	return event, nil
}

func (t *EventTable) Create(ctx context.Context, event *entities.Event) (*entities.Event, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	return createRow(ctx, t.client, tableEvents, event)
}

func (t *EventTable) Update(ctx context.Context, id string, fields map[string]any) (*entities.Event, error) {
	event, err := updateRow[entities.Event](ctx, t.client, tableEvents, id, fields)
	if err != nil {
		return nil, translate(err, entities.ErrEventNotFound)
	}
	return event, nil
}

func (t *EventTable) Delete(ctx context.Context, id string) error {
	if err := deleteRow(ctx, t.client, tableEvents, id); err != nil {
		return translate(err, entities.ErrEventNotFound)
	}
	return nil
}

// GuestTable implements ports.GuestAPI.
type GuestTable struct{ client *Client }

// EventGuests returns the event guest table adapter.
func (c *Client) EventGuests() *GuestTable { return &GuestTable{client: c} }

func (t *GuestTable) List(ctx context.Context, queries ...ports.Query) ([]*entities.EventGuest, error) {
	return listRows[entities.EventGuest](ctx, t.client, tableEventGuests, queries)
}

func (t *GuestTable) Create(ctx context.Context, guest *entities.EventGuest) (*entities.EventGuest, error) {
	if guest.ID == "" {
		guest.ID = uuid.NewString()
	}
	return createRow(ctx, t.client, tableEventGuests, guest)
}

func (t *GuestTable) Delete(ctx context.Context, id string) error {
	if err := deleteRow(ctx, t.client, tableEventGuests, id); err != nil {
		return translate(err, entities.ErrGuestNotFound)
	}
	return nil
}

// SecretTable implements ports.SecretAPI (read-only).
type SecretTable struct{ client *Client }

// Secrets returns the vault secret table adapter.
func (c *Client) Secrets() *SecretTable { return &SecretTable{client: c} }

func (t *SecretTable) List(ctx context.Context, queries ...ports.Query) ([]*entities.Secret, error) {
	return listRows[entities.Secret](ctx, t.client, tableSecrets, queries)
}

// KeychainTable implements ports.KeychainAPI (read-only).
type KeychainTable struct{ client *Client }

// Keychain returns the vault keychain table adapter.
func (c *Client) Keychain() *KeychainTable { return &KeychainTable{client: c} }

func (t *KeychainTable) List(ctx context.Context, queries ...ports.Query) ([]*entities.KeychainEntry, error) {
	return listRows[entities.KeychainEntry](ctx, t.client, tableKeychain, queries)
}

// NotificationTable implements ports.NotificationAPI (read-only).
type NotificationTable struct{ client *Client }

// Notifications returns the notification table adapter.
func (c *Client) Notifications() *NotificationTable { return &NotificationTable{client: c} }

func (t *NotificationTable) List(ctx context.Context, queries ...ports.Query) ([]*entities.Notification, error) {
	return listRows[entities.Notification](ctx, t.client, tableNotifications, queries)
}
