package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/dto"
	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
	appErrors "github.com/projectklase/comunika-nexus-64-78-sub004/pkg/errors"
)

const (
	calendarCachePrefix  = "calendar:"
	calendarInvalidation = 5 * time.Second
)

type postLister interface {
	List(ctx context.Context, req dto.PostListRequest) ([]models.Post, error)
	Subscribe(fn func()) func()
}

// CalendarServiceConfig tunes calendar derivation caching.
type CalendarServiceConfig struct {
	CacheTTL time.Duration
	Now      func() time.Time
}

// CalendarService derives calendar events from the published post set and
// memoizes results per post-set version, window and filters.
type CalendarService struct {
	posts       postLister
	cache       *CacheService
	logger      *zap.Logger
	ttl         time.Duration
	now         func() time.Time
	version     uint64
	unsubscribe func()
}

// NewCalendarService constructs the service and subscribes to post changes so
// memoized results are dropped after every mutation.
func NewCalendarService(posts postLister, cache *CacheService, logger *zap.Logger, cfg CalendarServiceConfig) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	svc := &CalendarService{posts: posts, cache: cache, logger: logger, ttl: cfg.CacheTTL, now: cfg.Now}
	// Entries written by an earlier process never match this one's keys.
	svc.version = uint64(cfg.Now().UnixNano())
	svc.unsubscribe = posts.Subscribe(svc.invalidate)
	return svc
}

// Events returns the calendar events for the request window.
func (s *CalendarService) Events(ctx context.Context, req dto.CalendarRequest) ([]models.CalendarEvent, error) {
	if req.Window.Start.IsZero() || req.Window.End.IsZero() {
		return nil, appErrors.Validation(map[string]string{"window": "start and end are required"})
	}
	if !req.Window.End.After(req.Window.Start) {
		return nil, appErrors.Validation(map[string]string{"end": "must be after start"})
	}
	filters := req.Filters
	temporal := filters.ThisWeek || filters.Upcoming || filters.Overdue
	if temporal && filters.Now.IsZero() {
		filters.Now = s.now().Truncate(time.Minute)
	}
	if !temporal {
		filters.Now = time.Time{}
	}

	key, err := s.cacheKey(req.Window, filters)
	if err != nil {
		return nil, err
	}
	if s.cache.Enabled() {
		var cached []models.CalendarEvent
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return cached, nil
		}
	}

	posts, err := s.posts.List(ctx, dto.PostListRequest{
		Statuses: []models.PostStatus{models.PostStatusPublished},
		ClassIDs: filters.ClassIDs,
		Types:    filters.Types,
	})
	if err != nil {
		return nil, err
	}
	events := DeriveCalendarEvents(posts, req.Window, filters)

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, events, s.ttl); err != nil {
			s.logger.Warn("calendar cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return events, nil
}

// Close stops listening to post changes.
func (s *CalendarService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *CalendarService) cacheKey(window models.CalendarWindow, filters models.CalendarFilters) (string, error) {
	payload, err := json.Marshal(struct {
		Version uint64                 `json:"v"`
		Window  models.CalendarWindow  `json:"w"`
		Filters models.CalendarFilters `json:"f"`
	}{atomic.LoadUint64(&s.version), window, filters})
	if err != nil {
		return "", fmt.Errorf("marshal calendar cache key: %w", err)
	}
	sum := sha256.Sum256(payload)
	return calendarCachePrefix + hex.EncodeToString(sum[:]), nil
}

// invalidate runs inside the change bus. It bumps the version synchronously
// and clears Redis off the emitter's path.
func (s *CalendarService) invalidate() {
	atomic.AddUint64(&s.version, 1)
	if !s.cache.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), calendarInvalidation)
		defer cancel()
		if err := s.cache.InvalidatePrefix(ctx, calendarCachePrefix); err != nil {
			s.logger.Warn("calendar cache invalidation failed", zap.Error(err))
		}
	}()
}
