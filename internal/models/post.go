package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostType enumerates the categories a post can belong to.
type PostType string

const (
	PostTypeNotice       PostType = "NOTICE"
	PostTypeAnnouncement PostType = "ANNOUNCEMENT"
	PostTypeEvent        PostType = "EVENT"
	PostTypeAssignment   PostType = "ASSIGNMENT"
	PostTypeProject      PostType = "PROJECT"
	PostTypeExam         PostType = "EXAM"
)

// PostTypes lists every known post type.
var PostTypes = []PostType{
	PostTypeNotice,
	PostTypeAnnouncement,
	PostTypeEvent,
	PostTypeAssignment,
	PostTypeProject,
	PostTypeExam,
}

// IsActivity reports whether the type carries due-date semantics.
func (t PostType) IsActivity() bool {
	switch t {
	case PostTypeAssignment, PostTypeProject, PostTypeExam:
		return true
	default:
		return false
	}
}

// Valid reports whether t is a known post type.
func (t PostType) Valid() bool {
	for _, known := range PostTypes {
		if t == known {
			return true
		}
	}
	return false
}

// PostStatus is the lifecycle state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "DRAFT"
	PostStatusScheduled PostStatus = "SCHEDULED"
	PostStatusPublished PostStatus = "PUBLISHED"
	PostStatusArchived  PostStatus = "ARCHIVED"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusScheduled, PostStatusPublished, PostStatusArchived:
		return true
	default:
		return false
	}
}

// PostAudience defines who a post is addressed to.
type PostAudience string

const (
	PostAudienceGlobal PostAudience = "GLOBAL"
	PostAudienceClass  PostAudience = "CLASS"
)

// ActivityMeta holds free-form metadata for activity posts (e.g. weight).
type ActivityMeta map[string]interface{}

// Weight returns the numeric weight stored in the metadata, if any.
func (m ActivityMeta) Weight() (float64, bool) {
	raw, ok := m["weight"]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Value marshals the metadata to JSON for persistence.
func (m ActivityMeta) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, fmt.Errorf("marshal activity meta: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the metadata map.
func (m *ActivityMeta) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ActivityMeta", value)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	decoded := map[string]interface{}{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("unmarshal activity meta: %w", err)
	}
	*m = decoded
	return nil
}

// Post is the central communicable unit persisted in the posts table.
type Post struct {
	ID            string         `db:"id" json:"id"`
	Type          PostType       `db:"type" json:"type"`
	Title         string         `db:"title" json:"title"`
	Body          *string        `db:"body" json:"body,omitempty"`
	Attachments   pq.StringArray `db:"attachments" json:"attachments,omitempty"`
	Audience      PostAudience   `db:"audience" json:"audience"`
	ClassIDs      pq.StringArray `db:"class_ids" json:"class_ids,omitempty"`
	DueAt         *time.Time     `db:"due_at" json:"due_at,omitempty"`
	EventStartAt  *time.Time     `db:"event_start_at" json:"event_start_at,omitempty"`
	EventEndAt    *time.Time     `db:"event_end_at" json:"event_end_at,omitempty"`
	EventLocation *string        `db:"event_location" json:"event_location,omitempty"`
	Status        PostStatus     `db:"status" json:"status"`
	PublishAt     *time.Time     `db:"publish_at" json:"publish_at,omitempty"`
	AuthorID      string         `db:"author_id" json:"author_id"`
	AuthorName    string         `db:"author_name" json:"author_name"`
	AuthorRole    UserRole       `db:"author_role" json:"author_role"`
	ActivityMeta  ActivityMeta   `db:"activity_meta" json:"activity_meta,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy so snapshots are not aliased by later mutations.
func (p Post) Clone() Post {
	cp := p
	cp.Body = cloneString(p.Body)
	cp.EventLocation = cloneString(p.EventLocation)
	cp.DueAt = cloneTime(p.DueAt)
	cp.EventStartAt = cloneTime(p.EventStartAt)
	cp.EventEndAt = cloneTime(p.EventEndAt)
	cp.PublishAt = cloneTime(p.PublishAt)
	if p.Attachments != nil {
		cp.Attachments = append(pq.StringArray{}, p.Attachments...)
	}
	if p.ClassIDs != nil {
		cp.ClassIDs = append(pq.StringArray{}, p.ClassIDs...)
	}
	if p.ActivityMeta != nil {
		cp.ActivityMeta = make(ActivityMeta, len(p.ActivityMeta))
		for k, v := range p.ActivityMeta {
			cp.ActivityMeta[k] = v
		}
	}
	return cp
}

// EventInterval returns the [start, end] span of an event post. A missing end
// collapses the event to a single instant.
func (p Post) EventInterval() (time.Time, time.Time, bool) {
	if p.Type != PostTypeEvent || p.EventStartAt == nil {
		return time.Time{}, time.Time{}, false
	}
	start := *p.EventStartAt
	end := start
	if p.EventEndAt != nil {
		end = *p.EventEndAt
	}
	return start, end, true
}

// Deadline returns the due date of an activity post.
func (p Post) Deadline() (time.Time, bool) {
	if !p.Type.IsActivity() || p.DueAt == nil {
		return time.Time{}, false
	}
	return *p.DueAt, true
}

// RelevantDate is the date used for ordering feeds: due date, then event start, then creation.
func (p Post) RelevantDate() time.Time {
	if p.DueAt != nil {
		return *p.DueAt
	}
	if p.EventStartAt != nil {
		return *p.EventStartAt
	}
	return p.CreatedAt
}

// PostFilter narrows down post listings.
type PostFilter struct {
	Types      []PostType
	Statuses   []PostStatus
	ClassIDs   []string
	AuthorRole *UserRole
	Search     string
	Page       int
	PageSize   int
}

// IncludesStatus reports whether the filter explicitly requests the given status.
func (f PostFilter) IncludesStatus(status PostStatus) bool {
	for _, s := range f.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
