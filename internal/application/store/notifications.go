package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/logger"
	"github.com/kylrix/flow/internal/ports"
)

const readFlagPrefix = "notifications.read."

// NotificationStore lists backend activity records and overlays the
// device-local read flags. Read state never reaches the backend, so
// each device keeps its own.
type NotificationStore struct {
	api    ports.NotificationAPI
	local  ports.LocalState
	logger *logger.Logger

	mu            sync.RWMutex
	notifications []*entities.Notification
	loadedFor     string
}

func NewNotificationStore(api ports.NotificationAPI, local ports.LocalState, appLogger *logger.Logger) *NotificationStore {
	return &NotificationStore{
		api:    api,
		local:  local,
		logger: appLogger.WithComponent("notification-store"),
	}
}

// Load fetches the activity feed newest-first and applies the local
// read flags.
func (s *NotificationStore) Load(ctx context.Context, userID string) error {
	items, err := s.api.List(ctx, ports.Equal("userId", userID))
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}

	for _, n := range items {
		_, read, err := s.local.Get(ctx, readFlagPrefix+n.ID)
		if err != nil {
			return fmt.Errorf("read flag for %s: %w", n.ID, err)
		}
		n.Read = read
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})

	s.mu.Lock()
	s.notifications = items
	s.loadedFor = userID
	s.mu.Unlock()
	return nil
}

// ensure reloads the feed when it was last loaded for a different
// viewer.
func (s *NotificationStore) ensure(ctx context.Context, userID string) error {
	s.mu.RLock()
	current := s.loadedFor
	s.mu.RUnlock()
	if current == userID {
		return nil
	}
	return s.Load(ctx, userID)
}

func (s *NotificationStore) Notifications() []*entities.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entities.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// UnreadCount returns the badge count.
func (s *NotificationStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead flags one of the viewer's notifications as read on this
// device. Ids outside the viewer's feed are rejected.
func (s *NotificationStore) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.ensure(ctx, userID); err != nil {
		return err
	}

	s.mu.RLock()
	var target *entities.Notification
	for _, n := range s.notifications {
		if n.ID == id {
			target = n
			break
		}
	}
	s.mu.RUnlock()
	if target == nil {
		return entities.ErrNotificationNotFound
	}

	if err := s.local.Set(ctx, readFlagPrefix+id, "1"); err != nil {
		return fmt.Errorf("persist read flag: %w", err)
	}

	s.mu.Lock()
	target.Read = true
	s.mu.Unlock()
	return nil
}

// MarkAllRead flags the viewer's whole feed as read.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.ensure(ctx, userID); err != nil {
		return err
	}

	s.mu.RLock()
	ids := make([]string, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.Read {
			ids = append(ids, n.ID)
		}
	}
	s.mu.RUnlock()

	for _, id := range ids {
		if err := s.MarkRead(ctx, userID, id); err != nil {
			return err
		}
	}
	return nil
}
