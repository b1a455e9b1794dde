package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/logger"
	"github.com/kylrix/flow/internal/ports"
)

type fakeTaskAPI struct {
	byQuery   map[string][]*entities.Task
	createErr error
	updateErr error
	deleteErr error
	updated   map[string]map[string]any
	deleted   []string
}

func (f *fakeTaskAPI) List(ctx context.Context, queries ...ports.Query) ([]*entities.Task, error) {
	if len(queries) != 1 {
		return nil, errors.New("expected exactly one query")
	}
	return f.byQuery[queries[0].Field+"="+queries[0].Value], nil
}

func (f *fakeTaskAPI) Get(ctx context.Context, id string) (*entities.Task, error) {
	return nil, entities.ErrTaskNotFound
}

func (f *fakeTaskAPI) Create(ctx context.Context, task *entities.Task) (*entities.Task, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	stored := *task
	stored.ID = "stored-id"
	return &stored, nil
}

func (f *fakeTaskAPI) Update(ctx context.Context, id string, fields map[string]any) (*entities.Task, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.updated == nil {
		f.updated = map[string]map[string]any{}
	}
	f.updated[id] = fields
	t := &entities.Task{ID: id, Title: "server copy", Status: entities.TaskStatusTodo, Priority: entities.PriorityMedium, CreatorID: "u1"}
	if v, ok := fields["title"].(string); ok {
		t.Title = v
	}
	if v, ok := fields["status"].(string); ok {
		t.Status = entities.TaskStatus(v)
	}
	return t, nil
}

func (f *fakeTaskAPI) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func task(id, creator string) *entities.Task {
	return &entities.Task{
		ID:        id,
		Title:     "t-" + id,
		Status:    entities.TaskStatusTodo,
		Priority:  entities.PriorityMedium,
		CreatorID: creator,
	}
}

func TestTaskLoadMergesCreatedAndAssigned(t *testing.T) {
	assigned := task("c", "u2")
	assigned.AssigneeIDs = []string{"u1"}
	api := &fakeTaskAPI{byQuery: map[string][]*entities.Task{
		"creatorId=u1":   {task("a", "u1"), task("b", "u1")},
		"assigneeIds=u1": {task("b", "u1"), assigned},
	}}
	s := NewTaskStore(api, logger.NewNop())

	if err := s.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := len(s.Tasks()); got != 3 {
		t.Errorf("len = %d, want 3 (deduped)", got)
	}
	if _, err := s.Get(context.Background(), "u1", "c"); err != nil {
		t.Errorf("assigned-only task missing: %v", err)
	}
}

func TestTaskLoadFailureLeavesEmptyCollection(t *testing.T) {
	api := &fakeTaskAPI{byQuery: map[string][]*entities.Task{
		"creatorId=u1": {task("a", "u1")},
	}}
	s := NewTaskStore(api, logger.NewNop())
	_ = s.Load(context.Background(), "u1")

	// Second load fails outright.
	s.api = &erroringTaskAPI{err: entities.ErrNetwork}

	if err := s.Load(context.Background(), "u1"); !errors.Is(err, entities.ErrNetwork) {
		t.Fatalf("err = %v", err)
	}
	if len(s.Tasks()) != 0 {
		t.Error("failed load must leave an empty collection")
	}
	if !errors.Is(s.Err(), entities.ErrNetwork) {
		t.Errorf("Err() = %v", s.Err())
	}
}

type erroringTaskAPI struct{ err error }

func (e *erroringTaskAPI) List(context.Context, ...ports.Query) ([]*entities.Task, error) {
	return nil, e.err
}
func (e *erroringTaskAPI) Get(context.Context, string) (*entities.Task, error) { return nil, e.err }
func (e *erroringTaskAPI) Create(context.Context, *entities.Task) (*entities.Task, error) {
	return nil, e.err
}
func (e *erroringTaskAPI) Update(context.Context, string, map[string]any) (*entities.Task, error) {
	return nil, e.err
}
func (e *erroringTaskAPI) Delete(context.Context, string) error { return e.err }

func TestTaskCreateNormalizesAndAppends(t *testing.T) {
	api := &fakeTaskAPI{}
	s := NewTaskStore(api, logger.NewNop())

	stored, err := s.Create(context.Background(), &entities.Task{Title: "new", CreatorID: "u1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if stored.Status != entities.TaskStatusTodo || stored.Priority != entities.PriorityMedium {
		t.Errorf("defaults not applied: %s/%s", stored.Status, stored.Priority)
	}
	if len(stored.AssigneeIDs) != 1 || stored.AssigneeIDs[0] != "u1" {
		t.Errorf("creator not self-assigned: %v", stored.AssigneeIDs)
	}
	if len(s.Tasks()) != 1 {
		t.Error("stored row not cached")
	}
}

func TestTaskCreateRejectsInvalid(t *testing.T) {
	s := NewTaskStore(&fakeTaskAPI{}, logger.NewNop())

	if _, err := s.Create(context.Background(), &entities.Task{CreatorID: "u1"}); !errors.Is(err, entities.ErrMissingTitle) {
		t.Errorf("missing title: %v", err)
	}
	if len(s.Tasks()) != 0 {
		t.Error("invalid task cached")
	}
}

func TestTaskCreateFailureCachesNothing(t *testing.T) {
	api := &fakeTaskAPI{createErr: entities.ErrNetwork}
	s := NewTaskStore(api, logger.NewNop())

	if _, err := s.Create(context.Background(), &entities.Task{Title: "x", CreatorID: "u1"}); !errors.Is(err, entities.ErrNetwork) {
		t.Fatalf("err = %v", err)
	}
	if len(s.Tasks()) != 0 {
		t.Error("failed create must not cache")
	}
}

func TestTaskUpdateOptimisticRollback(t *testing.T) {
	api := &fakeTaskAPI{byQuery: map[string][]*entities.Task{
		"creatorId=u1":   {task("a", "u1")},
		"assigneeIds=u1": nil,
	}}
	s := NewTaskStore(api, logger.NewNop())
	_ = s.Load(context.Background(), "u1")

	api.updateErr = entities.ErrNetwork
	_, err := s.Update(context.Background(), "u1", "a", map[string]any{"title": "renamed"})
	if !errors.Is(err, entities.ErrNetwork) {
		t.Fatalf("err = %v", err)
	}
	got, err := s.Get(context.Background(), "u1", "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "t-a" {
		t.Errorf("title = %q, want the original restored", got.Title)
	}
}

func TestTaskUpdateAppliesServerCopy(t *testing.T) {
	api := &fakeTaskAPI{byQuery: map[string][]*entities.Task{
		"creatorId=u1":   {task("a", "u1")},
		"assigneeIds=u1": nil,
	}}
	s := NewTaskStore(api, logger.NewNop())
	_ = s.Load(context.Background(), "u1")

	stored, err := s.Update(context.Background(), "u1", "a", map[string]any{"status": "done"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if stored.Status != entities.TaskStatusDone {
		t.Errorf("status = %s", stored.Status)
	}
	got, err := s.Get(context.Background(), "u1", "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != entities.TaskStatusDone {
		t.Errorf("cache status = %s", got.Status)
	}
}

func TestTaskUpdateRejectsUnknownField(t *testing.T) {
	api := &fakeTaskAPI{byQuery: map[string][]*entities.Task{
		"creatorId=u1":   {task("a", "u1")},
		"assigneeIds=u1": nil,
	}}
	s := NewTaskStore(api, logger.NewNop())
	_ = s.Load(context.Background(), "u1")

	if _, err := s.Update(context.Background(), "u1", "a", map[string]any{"creatorId": "u9"}); !errors.Is(err, entities.ErrInvalidField) {
		t.Fatalf("err = %v", err)
	}
	if api.updated != nil {
		t.Error("rejected update must not reach the backend")
	}
}

func TestTaskDeleteClearsSelection(t *testing.T) {
	api := &fakeTaskAPI{byQuery: map[string][]*entities.Task{
		"creatorId=u1":   {task("a", "u1")},
		"assigneeIds=u1": nil,
	}}
	s := NewTaskStore(api, logger.NewNop())
	_ = s.Load(context.Background(), "u1")
	s.Select("a")

	if err := s.Delete(context.Background(), "u1", "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(s.Tasks()) != 0 {
		t.Error("row still cached")
	}
	if _, ok := s.Selected(); ok {
		t.Error("selection not cleared")
	}
}

func TestTaskDeleteRemoteFirst(t *testing.T) {
	api := &fakeTaskAPI{
		byQuery: map[string][]*entities.Task{
			"creatorId=u1":   {task("a", "u1")},
			"assigneeIds=u1": nil,
		},
		deleteErr: entities.ErrNetwork,
	}
	s := NewTaskStore(api, logger.NewNop())
	_ = s.Load(context.Background(), "u1")

	if err := s.Delete(context.Background(), "u1", "a"); !errors.Is(err, entities.ErrNetwork) {
		t.Fatalf("err = %v", err)
	}
	if len(s.Tasks()) != 1 {
		t.Error("row dropped from cache despite backend failure")
	}
}

func TestTaskCacheScopedToViewer(t *testing.T) {
	api := &fakeTaskAPI{byQuery: map[string][]*entities.Task{
		"creatorId=alice": {task("t-alice", "alice")},
	}}
	s := NewTaskStore(api, logger.NewNop())
	ctx := context.Background()
	_ = s.Load(ctx, "alice")

	// Another viewer's reads and writes against the cached row answer
	// as not found and never reach the backend.
	if _, err := s.Get(ctx, "bob", "t-alice"); !errors.Is(err, entities.ErrTaskNotFound) {
		t.Fatalf("Get = %v, want ErrTaskNotFound", err)
	}
	if _, err := s.Update(ctx, "bob", "t-alice", map[string]any{"title": "x"}); !errors.Is(err, entities.ErrTaskNotFound) {
		t.Fatalf("Update = %v, want ErrTaskNotFound", err)
	}
	if err := s.Delete(ctx, "bob", "t-alice"); !errors.Is(err, entities.ErrTaskNotFound) {
		t.Fatalf("Delete = %v, want ErrTaskNotFound", err)
	}
	if len(api.deleted) != 0 || api.updated != nil {
		t.Error("foreign write reached the backend")
	}

	// The owner's next read reloads their own working set.
	if _, err := s.Get(ctx, "alice", "t-alice"); err != nil {
		t.Errorf("owner read: %v", err)
	}
}

func TestNoteCacheScopedToViewer(t *testing.T) {
	api := &fakeNoteAPI{byQuery: map[string][]*entities.Note{
		"userId=alice": {{ID: "n-alice", Title: "plan", UserID: "alice", Status: entities.NoteStatusDraft}},
	}}
	s := NewNoteStore(api, logger.NewNop())
	ctx := context.Background()
	_ = s.Load(ctx, "alice")

	if _, err := s.Get(ctx, "bob", "n-alice"); !errors.Is(err, entities.ErrNoteNotFound) {
		t.Fatalf("Get = %v, want ErrNoteNotFound", err)
	}
	if err := s.Delete(ctx, "bob", "n-alice"); !errors.Is(err, entities.ErrNoteNotFound) {
		t.Fatalf("Delete = %v, want ErrNoteNotFound", err)
	}

	// A collaborator is not locked out.
	shared := &entities.Note{ID: "n-shared", Title: "shared", UserID: "alice", Collaborators: []string{"bob"}, Status: entities.NoteStatusDraft}
	api.byQuery["userId=bob"] = []*entities.Note{shared}
	if err := s.Load(ctx, "bob"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := s.Get(ctx, "bob", "n-shared"); err != nil {
		t.Errorf("collaborator read: %v", err)
	}
}

type fakeNoteAPI struct {
	byQuery map[string][]*entities.Note
	deleted []string
}

func (f *fakeNoteAPI) List(ctx context.Context, queries ...ports.Query) ([]*entities.Note, error) {
	if len(queries) != 1 {
		return nil, errors.New("expected exactly one query")
	}
	return f.byQuery[queries[0].Field+"="+queries[0].Value], nil
}

func (f *fakeNoteAPI) Get(ctx context.Context, id string) (*entities.Note, error) {
	return nil, entities.ErrNoteNotFound
}

func (f *fakeNoteAPI) Create(ctx context.Context, note *entities.Note) (*entities.Note, error) {
	stored := *note
	stored.ID = "stored-id"
	return &stored, nil
}

func (f *fakeNoteAPI) Update(ctx context.Context, id string, fields map[string]any) (*entities.Note, error) {
	return nil, entities.ErrNoteNotFound
}

func (f *fakeNoteAPI) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeNotificationAPI struct {
	items []*entities.Notification
}

func (f *fakeNotificationAPI) List(ctx context.Context, queries ...ports.Query) ([]*entities.Notification, error) {
	return f.items, nil
}

type memLocal struct{ data map[string]string }

func (m *memLocal) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}
func (m *memLocal) Set(ctx context.Context, key, value string) error {
	if m.data == nil {
		m.data = map[string]string{}
	}
	m.data[key] = value
	return nil
}
func (m *memLocal) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestNotificationReadFlagsAreDeviceLocal(t *testing.T) {
	now := time.Now()
	api := &fakeNotificationAPI{items: []*entities.Notification{
		{ID: "n1", Action: "assigned", Timestamp: now.Add(-time.Hour)},
		{ID: "n2", Action: "commented", Timestamp: now},
	}}
	local := &memLocal{data: map[string]string{readFlagPrefix + "n1": "1"}}
	s := NewNotificationStore(api, local, logger.NewNop())
	ctx := context.Background()

	if err := s.Load(ctx, "u1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	items := s.Notifications()
	if items[0].ID != "n2" {
		t.Errorf("feed not newest-first: %s", items[0].ID)
	}
	if !items[1].Read || items[0].Read {
		t.Errorf("read flags wrong: n1=%v n2=%v", items[1].Read, items[0].Read)
	}
	if s.UnreadCount() != 1 {
		t.Errorf("unread = %d", s.UnreadCount())
	}

	if err := s.MarkRead(ctx, "u1", "n2"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if s.UnreadCount() != 0 {
		t.Errorf("unread after mark = %d", s.UnreadCount())
	}
	if local.data[readFlagPrefix+"n2"] != "1" {
		t.Error("flag not persisted locally")
	}

	if err := s.MarkRead(ctx, "u1", "ghost"); !errors.Is(err, entities.ErrNotificationNotFound) {
		t.Errorf("foreign id: %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	api := &fakeNotificationAPI{items: []*entities.Notification{
		{ID: "n1"}, {ID: "n2"}, {ID: "n3"},
	}}
	local := &memLocal{}
	s := NewNotificationStore(api, local, logger.NewNop())
	ctx := context.Background()
	_ = s.Load(ctx, "u1")

	if err := s.MarkAllRead(ctx, "u1"); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if s.UnreadCount() != 0 {
		t.Errorf("unread = %d", s.UnreadCount())
	}
}

func TestLayoutDefaults(t *testing.T) {
	s := NewLayoutStore(&memLocal{})
	ctx := context.Background()

	collapsed, err := s.SidebarCollapsed(ctx)
	if err != nil || collapsed {
		t.Errorf("sidebar default = %v, %v", collapsed, err)
	}
	view, err := s.CalendarView(ctx)
	if err != nil || view != CalendarViewMonth {
		t.Errorf("view default = %q, %v", view, err)
	}

	if err := s.SetCalendarView(ctx, "year"); err == nil {
		t.Error("unknown view accepted")
	}
	_ = s.SetCalendarView(ctx, CalendarViewWeek)
	if view, _ := s.CalendarView(ctx); view != CalendarViewWeek {
		t.Errorf("view = %q", view)
	}
	_ = s.SetSidebarCollapsed(ctx, true)
	if collapsed, _ := s.SidebarCollapsed(ctx); !collapsed {
		t.Error("sidebar not persisted")
	}
}
