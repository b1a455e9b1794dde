package calendar

import (
	"sort"
	"time"

	"github.com/kylrix/flow/internal/domain/entities"
)

// Day is one cell of the month grid.
type Day struct {
	Date    time.Time
	InMonth bool
	Today   bool
	Events  []*entities.Event
}

// Week is one row of seven days.
type Week [7]Day

// MonthGrid is the complete month view: full weeks from the first
// week containing day 1 through the last week containing the final
// day, with every event bucketed into each day it touches.
type MonthGrid struct {
	Year  int
	Month time.Month
	Weeks []Week
}

// Grid builds the month view. Weeks start on the given weekday;
// multi-day events appear in every cell they overlap. The now argument
// marks today's cell.
func Grid(year int, month time.Month, weekStart time.Weekday, events []*entities.Event, now time.Time) MonthGrid {
	loc := now.Location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)

	// Walk back to the week boundary before (or on) the 1st.
	cursor := first
	for cursor.Weekday() != weekStart {
		cursor = cursor.AddDate(0, 0, -1)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	grid := MonthGrid{Year: year, Month: month}
	for !cursor.After(last) || cursor.Weekday() != weekStart {
		var week Week
		for i := 0; i < 7; i++ {
			week[i] = Day{
				Date:    cursor,
				InMonth: cursor.Month() == month,
				Today:   cursor.Equal(today),
				Events:  eventsOn(events, cursor),
			}
			cursor = cursor.AddDate(0, 0, 1)
		}
		grid.Weeks = append(grid.Weeks, week)
	}
	return grid
}

// eventsOn returns the events touching the day, earliest start first.
func eventsOn(events []*entities.Event, day time.Time) []*entities.Event {
	var out []*entities.Event
	for _, e := range events {
		if e.OverlapsDay(day) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// WeekRange returns the start (inclusive) and end (exclusive) of the
// week containing the given day.
func WeekRange(day time.Time, weekStart time.Weekday) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	for start.Weekday() != weekStart {
		start = start.AddDate(0, 0, -1)
	}
	return start, start.AddDate(0, 0, 7)
}
