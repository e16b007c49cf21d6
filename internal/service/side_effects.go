package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
	"github.com/projectklase/comunika-nexus-64-78-sub004/pkg/jobs"
)

// Job types carried by the side-effect queue.
const (
	JobTypeAudit        = "post.audit"
	JobTypeNotification = "post.notification"
)

// NotificationIntent asks the notification generator to react to a post change.
type NotificationIntent struct {
	Post     models.Post
	Action   models.NotificationAction
	Previous *models.Post
}

type effectDispatcher interface {
	TryEnqueue(job jobs.Job) error
}

type auditRecorder interface {
	Record(ctx context.Context, req AuditRequest) error
}

type notificationGenerator interface {
	Generate(ctx context.Context, post models.Post, action models.NotificationAction, previous *models.Post) error
}

// SideEffectWorker executes audit and notification jobs pulled from the queue.
// Returning an error lets the queue retry the job.
type SideEffectWorker struct {
	audit    auditRecorder
	notifier notificationGenerator
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewSideEffectWorker constructs the worker.
func NewSideEffectWorker(audit auditRecorder, notifier notificationGenerator, metrics *MetricsService, logger *zap.Logger) *SideEffectWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SideEffectWorker{audit: audit, notifier: notifier, metrics: metrics, logger: logger}
}

// Handle processes one queued job.
func (w *SideEffectWorker) Handle(ctx context.Context, job jobs.Job) error {
	var err error
	switch job.Type {
	case JobTypeAudit:
		req, ok := job.Payload.(AuditRequest)
		if !ok {
			w.logger.Error("discarding malformed audit job", zap.String("job_id", job.ID))
			return nil
		}
		if w.audit == nil {
			return nil
		}
		err = w.audit.Record(ctx, req)
	case JobTypeNotification:
		intent, ok := job.Payload.(NotificationIntent)
		if !ok {
			w.logger.Error("discarding malformed notification job", zap.String("job_id", job.ID))
			return nil
		}
		if w.notifier == nil {
			return nil
		}
		err = w.notifier.Generate(ctx, intent.Post, intent.Action, intent.Previous)
	default:
		w.logger.Warn("unknown side-effect job type", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	if err != nil {
		w.metrics.RecordSideEffectFailure(job.Type)
		return fmt.Errorf("%s: %w", job.Type, err)
	}
	return nil
}

// sideEffects enqueues best-effort work. Failures to enqueue are logged and dropped.
type sideEffects struct {
	dispatcher effectDispatcher
	metrics    *MetricsService
	logger     *zap.Logger
}

func (e sideEffects) audit(req AuditRequest) {
	postID := ""
	if req.After != nil {
		postID = req.After.ID
	} else if req.Before != nil {
		postID = req.Before.ID
	}
	e.enqueue(jobs.Job{ID: uuid.NewString(), Type: JobTypeAudit, Payload: req}, postID, req.Action)
}

func (e sideEffects) notify(post models.Post, action models.NotificationAction, previous *models.Post) {
	intent := NotificationIntent{Post: post, Action: action, Previous: previous}
	e.enqueue(jobs.Job{ID: uuid.NewString(), Type: JobTypeNotification, Payload: intent}, post.ID, string(action))
}

func (e sideEffects) enqueue(job jobs.Job, postID, action string) {
	if e.dispatcher == nil {
		return
	}
	if err := e.dispatcher.TryEnqueue(job); err != nil {
		e.metrics.RecordSideEffectFailure(job.Type)
		e.logger.Warn("side effect dropped",
			zap.String("job_id", job.ID),
			zap.String("type", job.Type),
			zap.String("post_id", postID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
