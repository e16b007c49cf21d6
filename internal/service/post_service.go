package service

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/dto"
	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
	appErrors "github.com/projectklase/comunika-nexus-64-78-sub004/pkg/errors"
)

const (
	maxPostTitleLength = 200
	defaultPostPage    = 20
	maxPostPageSize    = 100
	defaultCopyPrefix  = "Copy of "
	defaultDueBatch    = 500
)

type postRepository interface {
	List(ctx context.Context, filter models.PostFilter) ([]models.Post, int, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	Archive(ctx context.Context, id string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]models.Post, error)
	PromoteScheduled(ctx context.Context, ids []string, now time.Time) ([]string, error)
}

type changeBus interface {
	Subscribe(fn func()) func()
	Watch() (<-chan struct{}, func())
	Notify()
	Close()
}

// PostServiceConfig tunes the post store.
type PostServiceConfig struct {
	CopyPrefix string
	Now        func() time.Time
	// DueBatch caps how many due posts are promoted per statement.
	DueBatch int
}

// SchedulerActor is recorded as the actor of scheduler-driven transitions.
var SchedulerActor = models.Actor{ID: "system:scheduler", Name: "Post scheduler"}

// PostService owns the post lifecycle: validation, persistence, change
// notification and the audit/notification side effects of every mutation.
type PostService struct {
	repo       postRepository
	changes    changeBus
	effects    sideEffects
	validator  *validator.Validate
	metrics    *MetricsService
	logger     *zap.Logger
	copyPrefix string
	dueBatch   int
	now        func() time.Time
}

// NewPostService constructs the post store.
func NewPostService(repo postRepository, changes changeBus, dispatcher effectDispatcher, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg PostServiceConfig) *PostService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CopyPrefix == "" {
		cfg.CopyPrefix = defaultCopyPrefix
	}
	if cfg.DueBatch <= 0 {
		cfg.DueBatch = defaultDueBatch
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	svc := &PostService{
		repo:       repo,
		changes:    changes,
		effects:    sideEffects{dispatcher: dispatcher, metrics: metrics, logger: logger},
		validator:  validate,
		metrics:    metrics,
		logger:     logger,
		copyPrefix: cfg.CopyPrefix,
		dueBatch:   cfg.DueBatch,
		now:        cfg.Now,
	}
	svc.validator.RegisterTagNameFunc(jsonFieldName)
	svc.validator.RegisterValidation("post_type", func(fl validator.FieldLevel) bool {
		return models.PostType(strings.ToUpper(fl.Field().String())).Valid()
	})
	svc.validator.RegisterValidation("post_status", func(fl validator.FieldLevel) bool {
		return models.PostStatus(strings.ToUpper(fl.Field().String())).Valid()
	})
	svc.validator.RegisterValidation("post_audience", func(fl validator.FieldLevel) bool {
		switch models.PostAudience(strings.ToUpper(fl.Field().String())) {
		case models.PostAudienceGlobal, models.PostAudienceClass:
			return true
		default:
			return false
		}
	})
	return svc
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return field.Name
	}
	return name
}

// Subscribe registers a callback invoked after every mutation.
func (s *PostService) Subscribe(fn func()) func() {
	if s.changes == nil {
		return func() {}
	}
	return s.changes.Subscribe(fn)
}

// Watch returns a channel signalled after mutations, coalescing bursts.
func (s *PostService) Watch() (<-chan struct{}, func()) {
	if s.changes == nil {
		ch := make(chan struct{})
		return ch, func() {}
	}
	return s.changes.Watch()
}

// Close releases every subscriber and watcher.
func (s *PostService) Close() {
	if s.changes != nil {
		s.changes.Close()
	}
}

// List returns every post matching the request. SCHEDULED posts are only
// included when explicitly requested.
func (s *PostService) List(ctx context.Context, req dto.PostListRequest) ([]models.Post, error) {
	filter := postFilterFromRequest(req)
	filter.Page, filter.PageSize = 0, 0
	posts, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, classifyStorageError(err, "failed to list posts")
	}
	if req.Sort == dto.PostSortRelevance {
		SortByRelevance(posts)
	}
	return posts, nil
}

// ListPaginated returns one page of posts plus the total match count.
func (s *PostService) ListPaginated(ctx context.Context, req dto.PostListRequest) ([]models.Post, *models.Pagination, error) {
	filter := postFilterFromRequest(req)
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultPostPage
	}
	if filter.PageSize > maxPostPageSize {
		filter.PageSize = maxPostPageSize
	}
	posts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, classifyStorageError(err, "failed to list posts")
	}
	if req.Sort == dto.PostSortRelevance {
		SortByRelevance(posts)
	}
	return posts, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func postFilterFromRequest(req dto.PostListRequest) models.PostFilter {
	filter := models.PostFilter{
		ClassIDs:   req.ClassIDs,
		AuthorRole: req.AuthorRole,
		Search:     strings.TrimSpace(req.Search),
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
	for _, t := range req.Types {
		filter.Types = append(filter.Types, models.PostType(strings.ToUpper(string(t))))
	}
	for _, st := range req.Statuses {
		filter.Statuses = append(filter.Statuses, models.PostStatus(strings.ToUpper(string(st))))
	}
	return filter
}

// GetByID returns a post by id.
func (s *PostService) GetByID(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, classifyStorageError(err, "failed to get post")
	}
	return post, nil
}

// Create validates and persists a new post authored by author. The status
// defaults to PUBLISHED. allowPastOverride permits a SCHEDULED post whose
// publish time is not in the future.
func (s *PostService) Create(ctx context.Context, req dto.CreatePostRequest, author models.Actor, allowPastOverride bool) (*models.Post, error) {
	req.Type = models.PostType(strings.ToUpper(string(req.Type)))
	req.Audience = models.PostAudience(strings.ToUpper(string(req.Audience)))
	req.Status = models.PostStatus(strings.ToUpper(string(req.Status)))
	req.Title = strings.TrimSpace(req.Title)
	if req.Status == "" {
		req.Status = models.PostStatusPublished
	}

	fields := s.structFieldErrors(req)
	post := &models.Post{
		Type:          req.Type,
		Title:         req.Title,
		Body:          req.Body,
		Attachments:   toStringArray(req.Attachments),
		Audience:      req.Audience,
		ClassIDs:      toStringArray(req.ClassIDs),
		DueAt:         req.DueAt,
		EventStartAt:  req.EventStartAt,
		EventEndAt:    req.EventEndAt,
		EventLocation: req.EventLocation,
		Status:        req.Status,
		PublishAt:     req.PublishAt,
		AuthorID:      author.ID,
		AuthorName:    author.Name,
		AuthorRole:    author.Role,
		ActivityMeta:  req.ActivityMeta,
	}
	now := s.now()
	for k, v := range validatePost(post, now, !allowPastOverride) {
		if _, exists := fields[k]; !exists {
			fields[k] = v
		}
	}
	if len(fields) > 0 {
		return nil, appErrors.Validation(fields)
	}

	post.CreatedAt = now
	post.UpdatedAt = now
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, classifyStorageError(err, "failed to create post")
	}
	s.metrics.RecordPostMutation("create")
	s.logger.Info("post created",
		zap.String("post_id", post.ID),
		zap.String("type", string(post.Type)),
		zap.String("status", string(post.Status)),
		zap.String("author_id", post.AuthorID),
	)

	s.notifyChanged()
	snapshot := post.Clone()
	s.effects.audit(AuditRequest{
		Actor:  author,
		Action: models.AuditActionCreate,
		After:  &snapshot,
		Meta:   models.AuditMeta{"post_type": string(post.Type), "status": string(post.Status)},
		At:     now,
	})
	if post.Status == models.PostStatusPublished {
		s.effects.notify(snapshot, models.NotificationActionCreated, nil)
	}
	return post, nil
}

// Update merges the patch over the current post, re-validates and persists it.
func (s *PostService) Update(ctx context.Context, id string, req dto.UpdatePostRequest, actor models.Actor, allowPastOverride bool) (*models.Post, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, classifyStorageError(err, "failed to load post")
	}
	before := current.Clone()
	merged := current.Clone()
	keys, err := applyPostPatch(&merged, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	checkPublishAt := !allowPastOverride && (req.Status != nil || req.PublishAt != nil)
	fields := validatePost(&merged, now, checkPublishAt)
	if req.Status != nil {
		if msg := statusTransitionError(before.Status, merged.Status); msg != "" {
			fields["status"] = msg
		}
	}
	if len(fields) > 0 {
		return nil, appErrors.Validation(fields)
	}

	merged.UpdatedAt = now
	if err := s.repo.Update(ctx, &merged); err != nil {
		return nil, classifyStorageError(err, "failed to update post")
	}
	s.metrics.RecordPostMutation("update")
	s.logger.Info("post updated", zap.String("post_id", merged.ID), zap.Strings("fields", keys))

	s.notifyChanged()
	after := merged.Clone()
	s.effects.audit(AuditRequest{
		Actor:  actor,
		Action: models.AuditActionUpdate,
		Before: &before,
		After:  &after,
		Keys:   auditKeysForPatch(keys, req, before),
		Meta: models.AuditMeta{
			"post_type":     string(after.Type),
			"status_before": string(before.Status),
			"status_after":  string(after.Status),
		},
		At: now,
	})
	if isSignificantChange(before, after) && after.Status == models.PostStatusPublished {
		s.effects.notify(after, models.NotificationActionUpdated, &before)
	}
	return &merged, nil
}

// Archive moves a post to ARCHIVED. Archiving an archived post is a no-op.
func (s *PostService) Archive(ctx context.Context, id string, actor models.Actor) (bool, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, classifyStorageError(err, "failed to load post")
	}
	if current.Status == models.PostStatusArchived {
		return true, nil
	}
	now := s.now()
	changed, err := s.repo.Archive(ctx, id, now)
	if err != nil {
		return false, classifyStorageError(err, "failed to archive post")
	}
	if !changed {
		return true, nil
	}
	s.metrics.RecordPostMutation("archive")
	s.logger.Info("post archived", zap.String("post_id", id), zap.String("status_before", string(current.Status)))

	s.notifyChanged()
	before := current.Clone()
	after := current.Clone()
	after.Status = models.PostStatusArchived
	after.UpdatedAt = now
	s.effects.audit(AuditRequest{
		Actor:  actor,
		Action: models.AuditActionArchive,
		Before: &before,
		After:  &after,
		Keys:   []string{"status"},
		Meta: models.AuditMeta{
			"post_type":     string(before.Type),
			"status_before": string(before.Status),
			"status_after":  string(models.PostStatusArchived),
		},
		At: now,
	})
	return true, nil
}

// Delete hard-removes a post. The audit snapshot is taken before removal.
func (s *PostService) Delete(ctx context.Context, id string, actor models.Actor) (bool, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, classifyStorageError(err, "failed to load post")
	}
	before := current.Clone()
	if err := s.repo.Delete(ctx, id); err != nil {
		return false, classifyStorageError(err, "failed to delete post")
	}
	s.metrics.RecordPostMutation("delete")
	s.logger.Info("post deleted", zap.String("post_id", id))

	s.notifyChanged()
	s.effects.audit(AuditRequest{
		Actor:  actor,
		Action: models.AuditActionDelete,
		Before: &before,
		Meta:   models.AuditMeta{"post_type": string(before.Type), "deleted": true},
		At:     s.now(),
	})
	return true, nil
}

// Duplicate returns a creation payload cloned from an existing post. Identity,
// status and timestamps are left out so the caller creates it explicitly.
func (s *PostService) Duplicate(ctx context.Context, id string) (*dto.CreatePostRequest, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, classifyStorageError(err, "failed to load post")
	}
	src := current.Clone()
	return &dto.CreatePostRequest{
		Type:          src.Type,
		Title:         s.copyPrefix + src.Title,
		Body:          src.Body,
		Attachments:   fromStringArray(src.Attachments),
		Audience:      src.Audience,
		ClassIDs:      fromStringArray(src.ClassIDs),
		DueAt:         src.DueAt,
		EventStartAt:  src.EventStartAt,
		EventEndAt:    src.EventEndAt,
		EventLocation: src.EventLocation,
		ActivityMeta:  src.ActivityMeta,
	}, nil
}

// PublishDue promotes every SCHEDULED post whose publish time has passed,
// one page of dueBatch rows at a time. Rows already promoted elsewhere are
// skipped by the conditional update, so repeated calls never publish or
// notify twice. Subscribers get a single change signal per call.
func (s *PostService) PublishDue(ctx context.Context) ([]models.Post, error) {
	now := s.now()
	var promoted []models.Post
	for {
		page, full, err := s.publishDuePage(ctx, now)
		promoted = append(promoted, page...)
		if err != nil {
			s.finishPublish(promoted)
			return promoted, err
		}
		// An unchanged full page means another writer holds those rows.
		if !full || len(page) == 0 {
			break
		}
	}
	s.finishPublish(promoted)
	return promoted, nil
}

func (s *PostService) publishDuePage(ctx context.Context, now time.Time) ([]models.Post, bool, error) {
	due, err := s.repo.ListDueScheduled(ctx, now, s.dueBatch)
	if err != nil {
		return nil, false, classifyStorageError(err, "failed to list due posts")
	}
	if len(due) == 0 {
		return nil, false, nil
	}
	ids := make([]string, len(due))
	for i, p := range due {
		ids[i] = p.ID
	}
	promotedIDs, err := s.repo.PromoteScheduled(ctx, ids, now)
	if err != nil {
		return nil, false, classifyStorageError(err, "failed to publish due posts")
	}
	promotedSet := make(map[string]struct{}, len(promotedIDs))
	for _, id := range promotedIDs {
		promotedSet[id] = struct{}{}
	}

	promoted := make([]models.Post, 0, len(promotedIDs))
	for _, p := range due {
		if _, ok := promotedSet[p.ID]; !ok {
			continue
		}
		before := p.Clone()
		after := p.Clone()
		after.Status = models.PostStatusPublished
		after.UpdatedAt = now
		promoted = append(promoted, after)

		s.effects.notify(after, models.NotificationActionCreated, nil)
		s.effects.audit(AuditRequest{
			Actor:  SchedulerActor,
			Action: models.AuditActionPublish,
			Before: &before,
			After:  &after,
			Keys:   []string{"status"},
			Meta: models.AuditMeta{
				"post_type":     string(after.Type),
				"status_before": string(models.PostStatusScheduled),
				"status_after":  string(models.PostStatusPublished),
			},
			At: now,
		})
	}
	return promoted, len(due) >= s.dueBatch, nil
}

func (s *PostService) finishPublish(promoted []models.Post) {
	if len(promoted) == 0 {
		return
	}
	s.metrics.RecordPostMutation("publish")
	s.notifyChanged()
}

func (s *PostService) notifyChanged() {
	if s.changes != nil {
		s.changes.Notify()
	}
}

func (s *PostService) structFieldErrors(req dto.CreatePostRequest) map[string]string {
	fields := map[string]string{}
	err := s.validator.Struct(req)
	if err == nil {
		return fields
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		fields["payload"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		fields[fe.Field()] = fieldErrorMessage(fe)
	}
	return fields
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "post_type":
		return "must be one of NOTICE, ANNOUNCEMENT, EVENT, ASSIGNMENT, PROJECT, EXAM"
	case "post_status":
		return "must be one of DRAFT, SCHEDULED, PUBLISHED, ARCHIVED"
	case "post_audience":
		return "must be GLOBAL or CLASS"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// validatePost checks the post invariants and returns one message per
// violated field. checkPublishAt requires a SCHEDULED post to publish in the future.
func validatePost(p *models.Post, now time.Time, checkPublishAt bool) map[string]string {
	fields := map[string]string{}
	if !p.Type.Valid() {
		fields["type"] = "must be one of NOTICE, ANNOUNCEMENT, EVENT, ASSIGNMENT, PROJECT, EXAM"
	}
	switch {
	case p.Title == "":
		fields["title"] = "is required"
	case len([]rune(p.Title)) > maxPostTitleLength:
		fields["title"] = fmt.Sprintf("must be at most %d characters", maxPostTitleLength)
	}
	switch p.Audience {
	case models.PostAudienceClass:
		if len(p.ClassIDs) == 0 {
			fields["class_ids"] = "at least one class is required for CLASS audience"
		}
	case models.PostAudienceGlobal:
		if len(p.ClassIDs) > 0 {
			fields["class_ids"] = "must be empty for GLOBAL audience"
		}
	default:
		fields["audience"] = "must be GLOBAL or CLASS"
	}
	if p.EventStartAt != nil && p.EventEndAt != nil && p.EventEndAt.Before(*p.EventStartAt) {
		fields["event_end_at"] = "must not be before event_start_at"
	}
	if !p.Status.Valid() {
		fields["status"] = "must be one of DRAFT, SCHEDULED, PUBLISHED, ARCHIVED"
	}
	if p.Status == models.PostStatusScheduled {
		switch {
		case p.PublishAt == nil:
			fields["publish_at"] = "is required when status is SCHEDULED"
		case checkPublishAt && !p.PublishAt.After(now):
			fields["publish_at"] = "must be in the future"
		}
	}
	return fields
}

// statusTransitions lists the status changes an update may apply. ARCHIVED is
// reached only through Archive and never left.
var statusTransitions = map[models.PostStatus][]models.PostStatus{
	models.PostStatusDraft:     {models.PostStatusScheduled, models.PostStatusPublished},
	models.PostStatusScheduled: {models.PostStatusDraft, models.PostStatusPublished},
}

func statusTransitionError(from, to models.PostStatus) string {
	switch {
	case from == models.PostStatusArchived:
		return "archived posts cannot change status"
	case from == to || !to.Valid():
		return ""
	case to == models.PostStatusArchived:
		return "use the archive operation"
	}
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return ""
		}
	}
	return fmt.Sprintf("cannot change from %s to %s", from, to)
}

// applyPostPatch merges req over p and returns the touched field names.
func applyPostPatch(p *models.Post, req dto.UpdatePostRequest) ([]string, error) {
	var keys []string
	if req.Type != nil {
		p.Type = models.PostType(strings.ToUpper(string(*req.Type)))
		keys = append(keys, "type")
	}
	if req.Title != nil {
		p.Title = strings.TrimSpace(*req.Title)
		keys = append(keys, "title")
	}
	if req.Body != nil {
		p.Body = req.Body
		keys = append(keys, "body")
	}
	if req.Attachments != nil {
		p.Attachments = toStringArray(*req.Attachments)
		keys = append(keys, "attachments")
	}
	if req.Audience != nil {
		p.Audience = models.PostAudience(strings.ToUpper(string(*req.Audience)))
		keys = append(keys, "audience")
	}
	if req.ClassIDs != nil {
		p.ClassIDs = toStringArray(*req.ClassIDs)
		keys = append(keys, "class_ids")
	}
	if req.DueAt != nil {
		p.DueAt = req.DueAt
		keys = append(keys, "due_at")
	}
	if req.EventStartAt != nil {
		p.EventStartAt = req.EventStartAt
		keys = append(keys, "event_start_at")
	}
	if req.EventEndAt != nil {
		p.EventEndAt = req.EventEndAt
		keys = append(keys, "event_end_at")
	}
	if req.EventLocation != nil {
		p.EventLocation = req.EventLocation
		keys = append(keys, "event_location")
	}
	if req.Status != nil {
		p.Status = models.PostStatus(strings.ToUpper(string(*req.Status)))
		keys = append(keys, "status")
	}
	if req.PublishAt != nil {
		p.PublishAt = req.PublishAt
		keys = append(keys, "publish_at")
	}
	if req.ActivityMeta != nil {
		if p.ActivityMeta == nil {
			p.ActivityMeta = models.ActivityMeta{}
		}
		for k, v := range req.ActivityMeta {
			if v == nil {
				delete(p.ActivityMeta, k)
				continue
			}
			p.ActivityMeta[k] = v
		}
		keys = append(keys, "activity_meta")
	}

	invalid := map[string]string{}
	for _, field := range req.Clear {
		switch field {
		case dto.FieldBody:
			p.Body = nil
		case dto.FieldAttachments:
			p.Attachments = nil
		case dto.FieldDueAt:
			p.DueAt = nil
		case dto.FieldEventStartAt:
			p.EventStartAt = nil
		case dto.FieldEventEndAt:
			p.EventEndAt = nil
		case dto.FieldEventLocation:
			p.EventLocation = nil
		case dto.FieldPublishAt:
			p.PublishAt = nil
		case dto.FieldActivityMeta:
			p.ActivityMeta = nil
		default:
			invalid["clear"] = fmt.Sprintf("field %q cannot be cleared", field)
			continue
		}
		keys = append(keys, field)
	}
	if len(invalid) > 0 {
		return nil, appErrors.Validation(invalid)
	}
	return dedupeStrings(keys), nil
}

// auditKeysForPatch expands activity_meta into its individual entries so each
// one is diffed and masked on its own.
func auditKeysForPatch(keys []string, req dto.UpdatePostRequest, before models.Post) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "activity_meta" {
			out = append(out, key)
			continue
		}
		metaKeys := map[string]struct{}{}
		for k := range req.ActivityMeta {
			metaKeys[k] = struct{}{}
		}
		if req.ActivityMeta == nil {
			for k := range before.ActivityMeta {
				metaKeys[k] = struct{}{}
			}
		}
		expanded := make([]string, 0, len(metaKeys))
		for k := range metaKeys {
			expanded = append(expanded, "activity_meta."+k)
		}
		sort.Strings(expanded)
		out = append(out, expanded...)
	}
	return dedupeStrings(out)
}

func isSignificantChange(before, after models.Post) bool {
	return before.Status != after.Status ||
		before.Title != after.Title ||
		!sameInstant(before.DueAt, after.DueAt)
}

func toStringArray(values []string) pq.StringArray {
	if len(values) == 0 {
		return nil
	}
	return append(pq.StringArray{}, values...)
}

func fromStringArray(values pq.StringArray) []string {
	if len(values) == 0 {
		return nil
	}
	return append([]string{}, values...)
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
