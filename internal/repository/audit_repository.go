package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
)

// AuditRepository appends audit events.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create stores an audit event. Events are never updated afterwards.
func (r *AuditRepository) Create(ctx context.Context, event *models.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	const query = `INSERT INTO audit_events (id, actor_id, actor_name, actor_email, actor_role, action, entity, entity_id, entity_label, scope, class_name, diff, meta, at)
VALUES (:id, :actor_id, :actor_name, :actor_email, :actor_role, :action, :entity, :entity_id, :entity_label, :scope, :class_name, :diff, :meta, :at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create audit event: %w", err)
	}
	return nil
}

// ListByEntity returns the audit trail of one entity, newest first.
func (r *AuditRepository) ListByEntity(ctx context.Context, entity, entityID string, limit int) ([]models.AuditEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, actor_id, actor_name, actor_email, actor_role, action, entity, entity_id, entity_label, scope, class_name, diff, meta, at
FROM audit_events WHERE entity = $1 AND entity_id = $2 ORDER BY at DESC LIMIT %d`, limit)
	var events []models.AuditEvent
	if err := r.db.SelectContext(ctx, &events, query, entity, entityID); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
