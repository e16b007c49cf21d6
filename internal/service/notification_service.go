package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// NotificationService generates notification rows for post changes. Delivery
// to end users is handled elsewhere.
type NotificationService struct {
	store  notificationStore
	logger *zap.Logger
}

// NewNotificationService constructs the generator.
func NewNotificationService(store notificationStore, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{store: store, logger: logger}
}

// Generate writes one notification for the post change.
func (s *NotificationService) Generate(ctx context.Context, post models.Post, action models.NotificationAction, previous *models.Post) error {
	n := &models.Notification{
		PostID:   post.ID,
		PostType: post.Type,
		Action:   action,
		Title:    post.Title,
		Message:  notificationMessage(post, action, previous),
		Audience: post.Audience,
		ClassIDs: post.ClassIDs,
	}
	if err := s.store.Create(ctx, n); err != nil {
		return err
	}
	s.logger.Debug("notification generated", zap.String("post_id", post.ID), zap.String("action", string(action)))
	return nil
}

func notificationMessage(post models.Post, action models.NotificationAction, previous *models.Post) string {
	label := strings.ToLower(string(post.Type))
	if action != models.NotificationActionUpdated || previous == nil {
		return fmt.Sprintf("New %s: %s", label, post.Title)
	}
	var changes []string
	if previous.Title != post.Title {
		changes = append(changes, fmt.Sprintf("renamed from %q", previous.Title))
	}
	if !sameInstant(previous.DueAt, post.DueAt) {
		if post.DueAt != nil {
			changes = append(changes, "due date moved to "+post.DueAt.Format(time.RFC3339))
		} else {
			changes = append(changes, "due date removed")
		}
	}
	if previous.Status != post.Status {
		changes = append(changes, fmt.Sprintf("status changed to %s", post.Status))
	}
	if len(changes) == 0 {
		return fmt.Sprintf("Updated %s: %s", label, post.Title)
	}
	return fmt.Sprintf("Updated %s: %s (%s)", label, post.Title, strings.Join(changes, ", "))
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
