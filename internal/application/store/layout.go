package store

import (
	"context"
	"fmt"

	"github.com/kylrix/flow/internal/ports"
)

// Layout keys in the device-local store.
const (
	layoutSidebarKey      = "layout.sidebar_collapsed"
	layoutCalendarViewKey = "layout.calendar_view"
)

// Calendar view modes.
const (
	CalendarViewMonth = "month"
	CalendarViewWeek  = "week"
)

// LayoutStore persists per-device UI preferences. Nothing here touches
// the backend.
type LayoutStore struct {
	local ports.LocalState
}

func NewLayoutStore(local ports.LocalState) *LayoutStore {
	return &LayoutStore{local: local}
}

func (s *LayoutStore) SidebarCollapsed(ctx context.Context) (bool, error) {
	v, ok, err := s.local.Get(ctx, layoutSidebarKey)
	if err != nil {
		return false, fmt.Errorf("load sidebar state: %w", err)
	}
	return ok && v == "1", nil
}

func (s *LayoutStore) SetSidebarCollapsed(ctx context.Context, collapsed bool) error {
	v := "0"
	if collapsed {
		v = "1"
	}
	return s.local.Set(ctx, layoutSidebarKey, v)
}

// CalendarView returns the stored view mode, defaulting to month.
func (s *LayoutStore) CalendarView(ctx context.Context) (string, error) {
	v, ok, err := s.local.Get(ctx, layoutCalendarViewKey)
	if err != nil {
		return "", fmt.Errorf("load calendar view: %w", err)
	}
	if !ok || (v != CalendarViewMonth && v != CalendarViewWeek) {
		return CalendarViewMonth, nil
	}
	return v, nil
}

func (s *LayoutStore) SetCalendarView(ctx context.Context, view string) error {
	if view != CalendarViewMonth && view != CalendarViewWeek {
		return fmt.Errorf("unknown calendar view %q", view)
	}
	return s.local.Set(ctx, layoutCalendarViewKey, view)
}
