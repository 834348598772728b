package model

import (
	"fmt"
	"time"
)

// Priority levels for items. Stored as plain integers so the store can
// sort on them directly.
const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// Colors is the fixed palette a project color tag must come from.
// The order matters: it is the order color pickers present them in.
var Colors = []string{
	"Pink", "Purple", "Red", "Orange", "Gold",
	"Green", "Teal", "Light Blue", "Dark Blue",
	"Midnight", "Dark Gray", "Gray",
}

// DefaultColor is assigned to projects created without an explicit color.
const DefaultColor = "Light Blue"

// ValidColor reports whether name is part of the palette.
func ValidColor(name string) bool {
	for _, c := range Colors {
		if c == name {
			return true
		}
	}
	return false
}

// Project is a user-created container for items. Deleting a project
// deletes every item it owns.
type Project struct {
	ID      string
	Title   string
	Detail  string
	Color   string
	Closed  bool
	Created time.Time
	// Reminder is the daily alert time, or nil when no reminder is set.
	Reminder *TimeOfDay
}

// Item is a single task belonging to exactly one project for its
// entire lifetime.
type Item struct {
	ID        string
	ProjectID string
	Title     string
	Detail    string
	Priority  int
	Completed bool
	Created   time.Time
}

// SortOrder names the item orderings the app offers.
type SortOrder int

const (
	// SortOptimized puts incomplete items first, then higher priority,
	// then oldest first.
	SortOptimized SortOrder = iota
	// SortCreation orders newest first.
	SortCreation
	// SortTitle orders alphabetically by title.
	SortTitle
)

// TimeOfDay is a wall-clock hour:minute with no date or zone attached.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Validate checks that the time is within a 24-hour day.
func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 {
		return fmt.Errorf("hour %d out of range", t.Hour)
	}
	if t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("minute %d out of range", t.Minute)
	}
	return nil
}

// String renders the time as zero-padded "HH:MM", the form it is
// persisted in.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM" back into a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if err := t.Validate(); err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return t, nil
}

// Equal compares two projects field by field, treating reminder times
// by value. Used by the live query engine to suppress no-op deliveries.
func (p Project) Equal(other Project) bool {
	if p.ID != other.ID || p.Title != other.Title || p.Detail != other.Detail ||
		p.Color != other.Color || p.Closed != other.Closed || !p.Created.Equal(other.Created) {
		return false
	}
	if (p.Reminder == nil) != (other.Reminder == nil) {
		return false
	}
	return p.Reminder == nil || *p.Reminder == *other.Reminder
}

// Equal compares two items field by field.
func (i Item) Equal(other Item) bool {
	return i.ID == other.ID && i.ProjectID == other.ProjectID &&
		i.Title == other.Title && i.Detail == other.Detail &&
		i.Priority == other.Priority && i.Completed == other.Completed &&
		i.Created.Equal(other.Created)
}
