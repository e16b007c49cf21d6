package service

import (
	"sort"
	"strings"
	"time"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
)

// DeriveCalendarEvents projects posts onto calendar events inside window.
// EVENT posts contribute their span when it overlaps the window and activity
// posts contribute their deadline when it falls inside it. Filters refine the
// result. Temporal filters are relative to filters.Now and are skipped when it
// is zero. Output follows input order and the function has no side effects.
func DeriveCalendarEvents(posts []models.Post, window models.CalendarWindow, filters models.CalendarFilters) []models.CalendarEvent {
	now := filters.Now
	events := make([]models.CalendarEvent, 0)
	for i := range posts {
		post := posts[i]
		event, ok := structuralMatch(post, window)
		if !ok {
			continue
		}
		if !matchesFilters(post, event, filters, now) {
			continue
		}
		event.PostRef = post.Clone()
		events = append(events, event)
	}
	return events
}

func structuralMatch(post models.Post, window models.CalendarWindow) (models.CalendarEvent, bool) {
	if start, end, ok := post.EventInterval(); ok {
		if !spanOverlaps(start, end, window) {
			return models.CalendarEvent{}, false
		}
		return models.CalendarEvent{
			ID:        post.ID,
			StartDate: start,
			EndDate:   end,
			Kind:      models.CalendarEventKindEvent,
			Title:     post.Title,
		}, true
	}
	if due, ok := post.Deadline(); ok {
		if !window.Contains(due) {
			return models.CalendarEvent{}, false
		}
		return models.CalendarEvent{
			ID:        post.ID,
			StartDate: due,
			EndDate:   due,
			Kind:      models.CalendarEventKindDeadline,
			Title:     post.Title,
		}, true
	}
	return models.CalendarEvent{}, false
}

// spanOverlaps reports whether [start, end] touches the window: it starts
// inside, ends inside, or covers the whole window.
func spanOverlaps(start, end time.Time, window models.CalendarWindow) bool {
	startsInside := window.Contains(start)
	endsInside := window.Contains(end)
	spans := start.Before(window.Start) && !end.Before(window.End)
	return startsInside || endsInside || spans
}

func matchesFilters(post models.Post, event models.CalendarEvent, f models.CalendarFilters, now time.Time) bool {
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		haystack := strings.ToLower(post.Title + "\n" + stringValue(post.Body) + "\n" + post.AuthorName)
		if !strings.Contains(haystack, search) {
			return false
		}
	}
	if len(f.Types) > 0 && !containsType(f.Types, post.Type) {
		return false
	}
	if len(f.AuthorIDs) > 0 && !containsString(f.AuthorIDs, post.AuthorID) {
		return false
	}
	if len(f.ClassIDs) > 0 && post.Audience != models.PostAudienceGlobal && !intersects(f.ClassIDs, post.ClassIDs) {
		return false
	}
	if f.HasWeight {
		weight, ok := post.ActivityMeta.Weight()
		if !ok {
			return false
		}
		if f.MinWeight != nil && weight < *f.MinWeight {
			return false
		}
		if f.MaxWeight != nil && weight > *f.MaxWeight {
			return false
		}
	}
	if f.HasAttachments && len(post.Attachments) == 0 {
		return false
	}
	if now.IsZero() {
		return true
	}
	if f.ThisWeek {
		weekStart := startOfWeek(now)
		week := models.CalendarWindow{Start: weekStart, End: weekStart.AddDate(0, 0, 7)}
		if !week.Contains(event.StartDate) {
			return false
		}
	}
	if f.Upcoming && !event.StartDate.After(now) {
		return false
	}
	if f.Overdue && (event.Kind != models.CalendarEventKindDeadline || !event.StartDate.Before(now)) {
		return false
	}
	return true
}

// startOfWeek returns midnight of the Sunday starting the week containing t.
func startOfWeek(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -int(midnight.Weekday()))
}

var relevancePriority = map[models.PostType]int{
	models.PostTypeExam:         0,
	models.PostTypeProject:      1,
	models.PostTypeAssignment:   1,
	models.PostTypeEvent:        2,
	models.PostTypeAnnouncement: 3,
	models.PostTypeNotice:       3,
}

// SortByRelevance orders posts for feeds: exams first, then projects and
// assignments, events, and finally announcements and notices. Ties fall back
// to the earliest relevant date.
func SortByRelevance(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		pi, pj := typePriority(posts[i].Type), typePriority(posts[j].Type)
		if pi != pj {
			return pi < pj
		}
		return posts[i].RelevantDate().Before(posts[j].RelevantDate())
	})
}

func typePriority(t models.PostType) int {
	if p, ok := relevancePriority[t]; ok {
		return p
	}
	return len(relevancePriority)
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func containsType(types []models.PostType, t models.PostType) bool {
	for _, candidate := range types {
		if strings.EqualFold(string(candidate), string(t)) {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func intersects(a []string, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
