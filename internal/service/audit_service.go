package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
)

// RedactedValue replaces sensitive values in audit diffs.
const RedactedValue = "[REDACTED]"

var sensitiveTerms = []string{"password", "token", "secret", "key"}

// fields never reported in create/delete diffs
var auditIgnoredFields = map[string]struct{}{
	"id":         {},
	"created_at": {},
	"updated_at": {},
}

type auditSink interface {
	Create(ctx context.Context, event *models.AuditEvent) error
}

type classNameResolver interface {
	GetName(ctx context.Context, id string) (string, bool, error)
}

// AuditRequest describes one post mutation to be recorded. Before is nil for
// creations and After is nil for deletions. Keys restricts the diff to the
// changed fields; nil means every field of the available snapshots.
type AuditRequest struct {
	Actor  models.Actor
	Action string
	Before *models.Post
	After  *models.Post
	Keys   []string
	Meta   models.AuditMeta
	At     time.Time
}

// AuditService turns post snapshots into masked, scoped audit events.
type AuditService struct {
	sink    auditSink
	classes classNameResolver
	logger  *zap.Logger
}

// NewAuditService constructs the recorder. The class resolver is optional.
func NewAuditService(sink auditSink, classes classNameResolver, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{sink: sink, classes: classes, logger: logger}
}

// Record builds the audit event for req and persists it.
func (s *AuditService) Record(ctx context.Context, req AuditRequest) error {
	event, err := s.Build(ctx, req)
	if err != nil {
		return err
	}
	if err := s.sink.Create(ctx, event); err != nil {
		return fmt.Errorf("persist audit event: %w", err)
	}
	return nil
}

// Build assembles the audit event without persisting it.
func (s *AuditService) Build(ctx context.Context, req AuditRequest) (*models.AuditEvent, error) {
	subject := req.After
	if subject == nil {
		subject = req.Before
	}
	if subject == nil {
		return nil, fmt.Errorf("audit request for %s has no snapshot", req.Action)
	}

	before, err := postFields(req.Before)
	if err != nil {
		return nil, err
	}
	after, err := postFields(req.After)
	if err != nil {
		return nil, err
	}
	keys := req.Keys
	if keys == nil {
		keys = snapshotKeys(before, after)
	}

	at := req.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	event := &models.AuditEvent{
		ActorID:     req.Actor.ID,
		ActorName:   req.Actor.Name,
		ActorEmail:  req.Actor.Email,
		ActorRole:   req.Actor.Role,
		Action:      req.Action,
		Entity:      models.AuditEntityPost,
		EntityID:    subject.ID,
		EntityLabel: subject.Title,
		Scope:       models.AuditScopeGlobal,
		Diff:        BuildAuditDiff(before, after, keys),
		Meta:        req.Meta,
		At:          at,
	}
	if subject.Audience == models.PostAudienceClass && len(subject.ClassIDs) > 0 {
		classID := subject.ClassIDs[0]
		event.Scope = "CLASS:" + classID
		if name := s.resolveClassName(ctx, classID); name != "" {
			event.ClassName = &name
		}
	}
	return event, nil
}

func (s *AuditService) resolveClassName(ctx context.Context, classID string) string {
	if s.classes == nil {
		return ""
	}
	name, ok, err := s.classes.GetName(ctx, classID)
	if err != nil {
		s.logger.Warn("resolve class name for audit failed", zap.String("class_id", classID), zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return name
}

// BuildAuditDiff returns {field: {before, after}} for every key, masking
// values of sensitive-looking fields.
func BuildAuditDiff(before, after map[string]interface{}, keys []string) models.AuditDiff {
	diff := make(models.AuditDiff, len(keys))
	for _, key := range keys {
		change := models.FieldChange{Before: before[key], After: after[key]}
		if isSensitiveField(key) {
			change = models.FieldChange{Before: RedactedValue, After: RedactedValue}
		}
		diff[key] = change
	}
	return diff
}

func isSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, term := range sensitiveTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// postFields flattens a post into its JSON field map. Activity metadata entries
// are lifted to "activity_meta.<key>" so each one diffs and masks on its own.
func postFields(p *models.Post) (map[string]interface{}, error) {
	if p == nil {
		return map[string]interface{}{}, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal post snapshot: %w", err)
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal post snapshot: %w", err)
	}
	if meta, ok := fields["activity_meta"].(map[string]interface{}); ok {
		delete(fields, "activity_meta")
		for k, v := range meta {
			fields["activity_meta."+k] = v
		}
	}
	return fields, nil
}

func snapshotKeys(before, after map[string]interface{}) []string {
	seen := map[string]struct{}{}
	for k := range before {
		seen[k] = struct{}{}
	}
	for k := range after {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		if _, ignored := auditIgnoredFields[k]; ignored {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
