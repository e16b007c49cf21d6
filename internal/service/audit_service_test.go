package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
)

type auditSinkStub struct {
	events []*models.AuditEvent
	err    error
}

func (s *auditSinkStub) Create(ctx context.Context, event *models.AuditEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type classNamesStub struct {
	names map[string]string
	err   error
}

func (s classNamesStub) GetName(ctx context.Context, id string) (string, bool, error) {
	if s.err != nil {
		return "", false, s.err
	}
	name, ok := s.names[id]
	return name, ok, nil
}

func TestBuildAuditDiffMasksSensitiveFields(t *testing.T) {
	before := map[string]interface{}{"title": "Old", "password": "hunter2", "activity_meta.secretKey": "a"}
	after := map[string]interface{}{"title": "New", "password": "hunter3", "activity_meta.secretKey": "b"}

	diff := BuildAuditDiff(before, after, []string{"title", "password", "activity_meta.secretKey"})

	assert.Equal(t, models.FieldChange{Before: "Old", After: "New"}, diff["title"])
	assert.Equal(t, models.FieldChange{Before: RedactedValue, After: RedactedValue}, diff["password"])
	assert.Equal(t, models.FieldChange{Before: RedactedValue, After: RedactedValue}, diff["activity_meta.secretKey"])
}

func TestAuditServiceRecordScopesClassPosts(t *testing.T) {
	sink := &auditSinkStub{}
	svc := NewAuditService(sink, classNamesStub{names: map[string]string{"7a": "7th grade A"}}, zap.NewNop())
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	before := models.Post{ID: "p1", Title: "Quiz", Type: models.PostTypeExam, Audience: models.PostAudienceClass, ClassIDs: pq.StringArray{"7a", "7b"}, Status: models.PostStatusDraft}
	after := before.Clone()
	after.Status = models.PostStatusPublished

	err := svc.Record(context.Background(), AuditRequest{
		Actor:  teacherActor,
		Action: models.AuditActionUpdate,
		Before: &before,
		After:  &after,
		Keys:   []string{"status"},
		Meta:   models.AuditMeta{"status_before": "DRAFT", "status_after": "PUBLISHED"},
		At:     at,
	})
	require.NoError(t, err)
	require.Len(t, sink.events, 1)

	event := sink.events[0]
	assert.Equal(t, "CLASS:7a", event.Scope)
	require.NotNil(t, event.ClassName)
	assert.Equal(t, "7th grade A", *event.ClassName)
	assert.Equal(t, "p1", event.EntityID)
	assert.Equal(t, "Quiz", event.EntityLabel)
	assert.Equal(t, models.AuditEntityPost, event.Entity)
	assert.Equal(t, "teacher-1", event.ActorID)
	assert.Equal(t, at, event.At)
	assert.Equal(t, []string{"status"}, sortedKeys(event.Diff))
	assert.Equal(t, models.FieldChange{Before: "DRAFT", After: "PUBLISHED"}, event.Diff["status"])
}

func TestAuditServiceClassResolverFailureIsNotFatal(t *testing.T) {
	sink := &auditSinkStub{}
	svc := NewAuditService(sink, classNamesStub{err: errors.New("lookup down")}, zap.NewNop())
	post := models.Post{ID: "p1", Title: "Quiz", Audience: models.PostAudienceClass, ClassIDs: pq.StringArray{"7a"}}

	require.NoError(t, svc.Record(context.Background(), AuditRequest{Action: models.AuditActionCreate, After: &post}))
	require.Len(t, sink.events, 1)
	assert.Equal(t, "CLASS:7a", sink.events[0].Scope)
	assert.Nil(t, sink.events[0].ClassName)
}

func TestAuditServiceCreateDiffCoversSnapshot(t *testing.T) {
	svc := NewAuditService(nil, nil, zap.NewNop())
	post := models.Post{
		ID:           "p1",
		Type:         models.PostTypeAssignment,
		Title:        "Essay",
		Audience:     models.PostAudienceGlobal,
		Status:       models.PostStatusPublished,
		ActivityMeta: models.ActivityMeta{"weight": 2.0},
	}

	event, err := svc.Build(context.Background(), AuditRequest{Action: models.AuditActionCreate, After: &post})
	require.NoError(t, err)
	assert.Equal(t, models.AuditScopeGlobal, event.Scope)
	assert.NotContains(t, event.Diff, "id")
	assert.NotContains(t, event.Diff, "created_at")
	assert.Equal(t, models.FieldChange{Before: nil, After: "Essay"}, event.Diff["title"])
	assert.Equal(t, models.FieldChange{Before: nil, After: 2.0}, event.Diff["activity_meta.weight"])
}

func TestAuditServiceDeleteUsesBeforeSnapshot(t *testing.T) {
	svc := NewAuditService(nil, nil, zap.NewNop())
	post := models.Post{ID: "p9", Title: "Gone", Audience: models.PostAudienceGlobal}

	event, err := svc.Build(context.Background(), AuditRequest{
		Action: models.AuditActionDelete,
		Before: &post,
		Meta:   models.AuditMeta{"deleted": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "p9", event.EntityID)
	assert.Equal(t, models.FieldChange{Before: "Gone", After: nil}, event.Diff["title"])
	assert.Equal(t, true, event.Meta["deleted"])
}

func TestAuditServiceRejectsEmptyRequest(t *testing.T) {
	svc := NewAuditService(nil, nil, zap.NewNop())
	_, err := svc.Build(context.Background(), AuditRequest{Action: models.AuditActionUpdate})
	assert.Error(t, err)
}
