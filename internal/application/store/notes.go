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

// NoteStore mirrors TaskStore for note rows: remote-first writes,
// optimistic field updates with rollback.
type NoteStore struct {
	api    ports.NoteAPI
	logger *logger.Logger

	mu         sync.RWMutex
	notes      []*entities.Note
	loadedFor  string
	selectedID string
	loadErr    error
}

func NewNoteStore(api ports.NoteAPI, appLogger *logger.Logger) *NoteStore {
	return &NoteStore{
		api:    api,
		logger: appLogger.WithComponent("note-store"),
	}
}

// Load replaces the working set with the user's own notes. Notes shared
// through collaboration live in the notes application, not here.
func (s *NoteStore) Load(ctx context.Context, userID string) error {
	notes, err := s.api.List(ctx, ports.Equal("userId", userID))
	if err != nil {
		s.mu.Lock()
		s.notes = nil
		s.loadedFor = ""
		s.loadErr = err
		s.mu.Unlock()
		return fmt.Errorf("list notes: %w", err)
	}

	s.mu.Lock()
	s.notes = notes
	s.loadedFor = userID
	s.loadErr = nil
	s.mu.Unlock()
	return nil
}

// ensure reloads the working set when it was last loaded for a
// different viewer.
func (s *NoteStore) ensure(ctx context.Context, userID string) error {
	s.mu.RLock()
	current := s.loadedFor
	s.mu.RUnlock()
	if current == userID {
		return nil
	}
	return s.Load(ctx, userID)
}

// noteVisibleTo reports whether the viewer may operate on the row.
func noteVisibleTo(n *entities.Note, userID string) bool {
	if n.UserID == userID {
		return true
	}
	for _, c := range n.Collaborators {
		if c == userID {
			return true
		}
	}
	return false
}

func (s *NoteStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

func (s *NoteStore) Notes() []*entities.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entities.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

func (s *NoteStore) Get(ctx context.Context, userID, id string) (*entities.Note, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notes {
		if n.ID == id {
			if !noteVisibleTo(n, userID) {
				return nil, entities.ErrNoteNotFound
			}
			return n, nil
		}
	}
	return nil, entities.ErrNoteNotFound
}

func (s *NoteStore) Select(id string) {
	s.mu.Lock()
	s.selectedID = id
	s.mu.Unlock()
}

func (s *NoteStore) Selected() (*entities.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedID == "" {
		return nil, false
	}
	for _, n := range s.notes {
		if n.ID == s.selectedID {
			return n, true
		}
	}
	return nil, false
}

func (s *NoteStore) Create(ctx context.Context, note *entities.Note) (*entities.Note, error) {
	if note.Status == "" {
		note.Status = entities.NoteStatusDraft
	}
	if err := note.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now

	stored, err := s.api.Create(ctx, note)
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	s.mu.Lock()
	s.notes = append(s.notes, stored)
	s.mu.Unlock()

	s.logger.Infow("Note created", "note_id", stored.ID)
	return stored, nil
}

func (s *NoteStore) Update(ctx context.Context, userID, id string, fields map[string]any) (*entities.Note, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	idx := -1
	for i, n := range s.notes {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 || !noteVisibleTo(s.notes[idx], userID) {
		s.mu.Unlock()
		return nil, entities.ErrNoteNotFound
	}
	snapshot := *s.notes[idx]
	working := snapshot
	if err := applyNoteFields(&working, fields); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	working.UpdatedAt = time.Now().UTC()
	s.notes[idx] = &working
	s.mu.Unlock()

	stored, err := s.api.Update(ctx, id, fields)
	if err != nil {
		s.mu.Lock()
		for i, n := range s.notes {
			if n.ID == id {
				restored := snapshot
				s.notes[i] = &restored
				break
			}
		}
		s.mu.Unlock()
		s.logger.Warnw("Note update rolled back", "note_id", id, "error", err)
		return nil, fmt.Errorf("update note: %w", err)
	}

	s.mu.Lock()
	for i, n := range s.notes {
		if n.ID == id {
			s.notes[i] = stored
			break
		}
	}
	s.mu.Unlock()
	return stored, nil
}

func (s *NoteStore) Delete(ctx context.Context, userID, id string) error {
	if err := s.ensure(ctx, userID); err != nil {
		return err
	}

	s.mu.RLock()
	var target *entities.Note
	for _, n := range s.notes {
		if n.ID == id {
			target = n
			break
		}
	}
	s.mu.RUnlock()
	if target == nil || !noteVisibleTo(target, userID) {
		return entities.ErrNoteNotFound
	}

	if err := s.api.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}

	s.mu.Lock()
	for i, n := range s.notes {
		if n.ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			break
		}
	}
	if s.selectedID == id {
		s.selectedID = ""
	}
	s.mu.Unlock()
	return nil
}

func applyNoteFields(n *entities.Note, fields map[string]any) error {
	for key, raw := range fields {
		switch key {
		case "title":
			v, ok := raw.(string)
			if !ok {
				return fmt.Errorf("%w: title must be a string", entities.ErrInvalidField)
			}
			n.Title = v
		case "content":
			v, ok := raw.(string)
			if !ok {
				return fmt.Errorf("%w: content must be a string", entities.ErrInvalidField)
			}
			n.Content = v
		case "tags":
			v, ok := raw.([]string)
			if !ok {
				return fmt.Errorf("%w: tags must be a string list", entities.ErrInvalidField)
			}
			n.Tags = v
		case "status":
			v, ok := raw.(string)
			if !ok || !entities.NoteStatus(v).IsValid() {
				return fmt.Errorf("%w: bad status %v", entities.ErrInvalidField, raw)
			}
			n.Status = entities.NoteStatus(v)
		case "isPublic":
			v, ok := raw.(bool)
			if !ok {
				return fmt.Errorf("%w: isPublic must be a bool", entities.ErrInvalidField)
			}
			n.IsPublic = v
		default:
			return fmt.Errorf("%w: unknown field %q", entities.ErrInvalidField, key)
		}
	}
	return nil
}
