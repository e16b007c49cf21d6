package dto

import (
	"time"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
)

// CreatePostRequest is the creation payload for a post.
type CreatePostRequest struct {
	Type          models.PostType     `json:"type" validate:"required,post_type"`
	Title         string              `json:"title" validate:"required,max=200"`
	Body          *string             `json:"body,omitempty"`
	Attachments   []string            `json:"attachments,omitempty" validate:"omitempty,dive,required"`
	Audience      models.PostAudience `json:"audience" validate:"required,post_audience"`
	ClassIDs      []string            `json:"class_ids,omitempty" validate:"omitempty,dive,required"`
	DueAt         *time.Time          `json:"due_at,omitempty"`
	EventStartAt  *time.Time          `json:"event_start_at,omitempty"`
	EventEndAt    *time.Time          `json:"event_end_at,omitempty"`
	EventLocation *string             `json:"event_location,omitempty"`
	Status        models.PostStatus   `json:"status,omitempty" validate:"omitempty,post_status"`
	PublishAt     *time.Time          `json:"publish_at,omitempty"`
	ActivityMeta  models.ActivityMeta `json:"activity_meta,omitempty"`
}

// Patchable field names accepted in UpdatePostRequest.Clear.
const (
	FieldBody          = "body"
	FieldAttachments   = "attachments"
	FieldDueAt         = "due_at"
	FieldEventStartAt  = "event_start_at"
	FieldEventEndAt    = "event_end_at"
	FieldEventLocation = "event_location"
	FieldPublishAt     = "publish_at"
	FieldActivityMeta  = "activity_meta"
)

// UpdatePostRequest is a partial update; nil fields keep their current value.
// Clear lists optional fields to reset to absent.
type UpdatePostRequest struct {
	Type          *models.PostType     `json:"type,omitempty"`
	Title         *string              `json:"title,omitempty"`
	Body          *string              `json:"body,omitempty"`
	Attachments   *[]string            `json:"attachments,omitempty"`
	Audience      *models.PostAudience `json:"audience,omitempty"`
	ClassIDs      *[]string            `json:"class_ids,omitempty"`
	DueAt         *time.Time           `json:"due_at,omitempty"`
	EventStartAt  *time.Time           `json:"event_start_at,omitempty"`
	EventEndAt    *time.Time           `json:"event_end_at,omitempty"`
	EventLocation *string              `json:"event_location,omitempty"`
	Status        *models.PostStatus   `json:"status,omitempty"`
	PublishAt     *time.Time           `json:"publish_at,omitempty"`
	ActivityMeta  models.ActivityMeta  `json:"activity_meta,omitempty"`
	Clear         []string             `json:"clear,omitempty"`
}

// PostListRequest describes listing filters coming from the API.
type PostListRequest struct {
	Types      []models.PostType   `json:"types"`
	Statuses   []models.PostStatus `json:"statuses"`
	ClassIDs   []string            `json:"class_ids"`
	AuthorRole *models.UserRole    `json:"author_role"`
	Search     string              `json:"search"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	Sort       string              `json:"sort"`
}

// PostSortRelevance orders posts by type priority then relevant date.
const PostSortRelevance = "relevance"

// CalendarRequest describes a calendar derivation query.
type CalendarRequest struct {
	Window  models.CalendarWindow  `json:"window"`
	Filters models.CalendarFilters `json:"filters"`
}
