package models

import (
	"time"

	"github.com/lib/pq"
)

// NotificationAction describes why a notification was generated for a post.
type NotificationAction string

const (
	NotificationActionCreated NotificationAction = "created"
	NotificationActionUpdated NotificationAction = "updated"
)

// Notification is a generated alert row awaiting delivery by another subsystem.
type Notification struct {
	ID        string             `db:"id" json:"id"`
	PostID    string             `db:"post_id" json:"post_id"`
	PostType  PostType           `db:"post_type" json:"post_type"`
	Action    NotificationAction `db:"action" json:"action"`
	Title     string             `db:"title" json:"title"`
	Message   string             `db:"message" json:"message"`
	Audience  PostAudience       `db:"audience" json:"audience"`
	ClassIDs  pq.StringArray     `db:"class_ids" json:"class_ids,omitempty"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
}
