package models

import "time"

// CalendarEventKind distinguishes event spans from activity deadlines.
type CalendarEventKind string

const (
	CalendarEventKindEvent    CalendarEventKind = "event"
	CalendarEventKindDeadline CalendarEventKind = "deadline"
)

// CalendarEvent is a calendar-shaped projection of a post. It is derived on
// demand and never persisted.
type CalendarEvent struct {
	ID        string            `json:"id"`
	PostRef   Post              `json:"post"`
	StartDate time.Time         `json:"start_date"`
	EndDate   time.Time         `json:"end_date"`
	Kind      CalendarEventKind `json:"kind"`
	Title     string            `json:"title"`
}

// CalendarWindow is the half-open interval [Start, End) scoping a derivation.
type CalendarWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies inside the window.
func (w CalendarWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// CalendarFilters refine which derived events are emitted.
type CalendarFilters struct {
	Search         string     `json:"search,omitempty"`
	Types          []PostType `json:"types,omitempty"`
	AuthorIDs      []string   `json:"author_ids,omitempty"`
	ClassIDs       []string   `json:"class_ids,omitempty"`
	HasWeight      bool       `json:"has_weight,omitempty"`
	MinWeight      *float64   `json:"min_weight,omitempty"`
	MaxWeight      *float64   `json:"max_weight,omitempty"`
	HasAttachments bool       `json:"has_attachments,omitempty"`
	ThisWeek       bool       `json:"this_week,omitempty"`
	Upcoming       bool       `json:"upcoming,omitempty"`
	Overdue        bool       `json:"overdue,omitempty"`
	// Now anchors the temporal refinements; zero means wall clock at derivation time.
	Now time.Time `json:"now"`
}
