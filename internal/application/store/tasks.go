package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/logger"
	"github.com/kylrix/flow/internal/ports"
)

// TaskStore is the in-memory working set of the user's tasks. The
// backend stays authoritative: creates and deletes go remote-first,
// updates are applied optimistically and rolled back when the backend
// rejects them.
type TaskStore struct {
	api    ports.TaskAPI
	logger *logger.Logger

	mu         sync.RWMutex
	tasks      []*entities.Task
	loadedFor  string
	selectedID string
	loadErr    error
}

// NewTaskStore builds an empty task store.
func NewTaskStore(api ports.TaskAPI, appLogger *logger.Logger) *TaskStore {
	return &TaskStore{
		api:    api,
		logger: appLogger.WithComponent("task-store"),
	}
}

// Load replaces the working set with the user's tasks: rows they
// created plus rows they are assigned to. On failure the collection is
// empty and the error is retained for the caller to surface.
func (s *TaskStore) Load(ctx context.Context, userID string) error {
	created, err := s.api.List(ctx, ports.Equal("creatorId", userID))
	if err != nil {
		s.setLoadError(err)
		return fmt.Errorf("list created tasks: %w", err)
	}
	assigned, err := s.api.List(ctx, ports.Equal("assigneeIds", userID))
	if err != nil {
		s.setLoadError(err)
		return fmt.Errorf("list assigned tasks: %w", err)
	}

	seen := make(map[string]struct{}, len(created))
	merged := make([]*entities.Task, 0, len(created)+len(assigned))
	for _, t := range created {
		seen[t.ID] = struct{}{}
		merged = append(merged, t)
	}
	for _, t := range assigned {
		if _, dup := seen[t.ID]; !dup {
			merged = append(merged, t)
		}
	}

	s.mu.Lock()
	s.tasks = merged
	s.loadedFor = userID
	s.loadErr = nil
	s.mu.Unlock()
	return nil
}

func (s *TaskStore) setLoadError(err error) {
	s.mu.Lock()
	s.tasks = nil
	s.loadedFor = ""
	s.loadErr = err
	s.mu.Unlock()
}

// ensure reloads the working set when it was last loaded for a
// different viewer. The cache belongs to exactly one user at a time.
func (s *TaskStore) ensure(ctx context.Context, userID string) error {
	s.mu.RLock()
	current := s.loadedFor
	s.mu.RUnlock()
	if current == userID {
		return nil
	}
	return s.Load(ctx, userID)
}

// taskVisibleTo reports whether the viewer may operate on the row.
func taskVisibleTo(t *entities.Task, userID string) bool {
	return t.CreatorID == userID || t.HasAssignee(userID)
}

// Err returns the retained load failure, if any.
func (s *TaskStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Tasks returns a snapshot of the working set.
func (s *TaskStore) Tasks() []*entities.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entities.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Get returns the viewer's cached task with the given id, reloading
// the working set first when it belongs to another viewer. Rows the
// viewer neither created nor is assigned to answer as not found.
func (s *TaskStore) Get(ctx context.Context, userID, id string) (*entities.Task, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			if !taskVisibleTo(t, userID) {
				return nil, entities.ErrTaskNotFound
			}
			return t, nil
		}
	}
	return nil, entities.ErrTaskNotFound
}

// Select marks a task as the active one; Selected returns it.
func (s *TaskStore) Select(id string) {
	s.mu.Lock()
	s.selectedID = id
	s.mu.Unlock()
}

func (s *TaskStore) Selected() (*entities.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedID == "" {
		return nil, false
	}
	for _, t := range s.tasks {
		if t.ID == s.selectedID {
			return t, true
		}
	}
	return nil, false
}

// Create validates and normalizes the task, writes it to the backend,
// and appends the stored row to the working set. Nothing is cached on
// failure.
func (s *TaskStore) Create(ctx context.Context, task *entities.Task) (*entities.Task, error) {
	task.Normalize()
	if err := task.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	stored, err := s.api.Create(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, stored)
	s.mu.Unlock()

	s.logger.Infow("Task created", "task_id", stored.ID)
	return stored, nil
}

// Update applies the field changes to the viewer's cached row
// immediately, then persists them. A backend failure restores the
// cached row exactly as it was.
func (s *TaskStore) Update(ctx context.Context, userID, id string, fields map[string]any) (*entities.Task, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	idx := -1
	for i, t := range s.tasks {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 || !taskVisibleTo(s.tasks[idx], userID) {
		s.mu.Unlock()
		return nil, entities.ErrTaskNotFound
	}
	snapshot := *s.tasks[idx]
	working := snapshot
	if err := applyTaskFields(&working, fields); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	working.UpdatedAt = time.Now().UTC()
	s.tasks[idx] = &working
	s.mu.Unlock()

	stored, err := s.api.Update(ctx, id, fields)
	if err != nil {
		s.mu.Lock()
		for i, t := range s.tasks {
			if t.ID == id {
				restored := snapshot
				s.tasks[i] = &restored
				break
			}
		}
		s.mu.Unlock()
		s.logger.Warnw("Task update rolled back", "task_id", id, "error", err)
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.mu.Lock()
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks[i] = stored
			break
		}
	}
	s.mu.Unlock()
	return stored, nil
}

// Delete removes the viewer's row from the backend first, then from
// the working set. A deleted task also loses its selection.
func (s *TaskStore) Delete(ctx context.Context, userID, id string) error {
	if err := s.ensure(ctx, userID); err != nil {
		return err
	}

	s.mu.RLock()
	var target *entities.Task
	for _, t := range s.tasks {
		if t.ID == id {
			target = t
			break
		}
	}
	s.mu.RUnlock()
	if target == nil || !taskVisibleTo(target, userID) {
		return entities.ErrTaskNotFound
	}

	if err := s.api.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	s.mu.Lock()
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			break
		}
	}
	if s.selectedID == id {
		s.selectedID = ""
	}
	s.mu.Unlock()
	return nil
}

// applyTaskFields maps backend update fields onto the cached struct so
// the local copy matches what the backend will store.
func applyTaskFields(t *entities.Task, fields map[string]any) error {
	for key, raw := range fields {
		switch key {
		case "title":
			v, ok := raw.(string)
			if !ok {
				return fmt.Errorf("%w: title must be a string", entities.ErrInvalidField)
			}
			t.Title = v
		case "description":
			v, ok := raw.(string)
			if !ok {
				return fmt.Errorf("%w: description must be a string", entities.ErrInvalidField)
			}
			t.Description = v
		case "status":
			v, ok := raw.(string)
			if !ok || !entities.TaskStatus(v).IsValid() {
				return fmt.Errorf("%w: bad status %v", entities.ErrInvalidField, raw)
			}
			t.Status = entities.TaskStatus(v)
		case "priority":
			v, ok := raw.(string)
			if !ok || !entities.Priority(v).IsValid() {
				return fmt.Errorf("%w: bad priority %v", entities.ErrInvalidField, raw)
			}
			t.Priority = entities.Priority(v)
		case "dueDate":
			switch v := raw.(type) {
			case nil:
				t.DueDate = nil
			case time.Time:
				t.DueDate = &v
			case *time.Time:
				t.DueDate = v
			default:
				return fmt.Errorf("%w: bad dueDate %v", entities.ErrInvalidField, raw)
			}
		case "assigneeIds":
			v, ok := raw.([]string)
			if !ok {
				return fmt.Errorf("%w: assigneeIds must be a string list", entities.ErrInvalidField)
			}
			t.AssigneeIDs = v
		case "labels":
			v, ok := raw.([]string)
			if !ok {
				return fmt.Errorf("%w: labels must be a string list", entities.ErrInvalidField)
			}
			t.Labels = v
		case "isArchived":
			v, ok := raw.(bool)
			if !ok {
				return fmt.Errorf("%w: isArchived must be a bool", entities.ErrInvalidField)
			}
			t.IsArchived = v
		default:
			return fmt.Errorf("%w: unknown field %q", entities.ErrInvalidField, key)
		}
	}
	return nil
}
