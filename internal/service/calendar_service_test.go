package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/dto"
	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
	appErrors "github.com/projectklase/comunika-nexus-64-78-sub004/pkg/errors"
)

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted chan string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}, deleted: make(chan string, 8)}
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	raw, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.entries[key] = raw
	r.mu.Unlock()
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	r.mu.Lock()
	for k := range r.entries {
		if strings.HasPrefix(k, prefix) {
			delete(r.entries, k)
		}
	}
	r.mu.Unlock()
	select {
	case r.deleted <- pattern:
	default:
	}
	return nil
}

func (r *memoryCacheRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type postListerStub struct {
	mu       sync.Mutex
	posts    []models.Post
	calls    int
	requests []dto.PostListRequest
	err      error
	fn       func()
}

func (s *postListerStub) List(ctx context.Context, req dto.PostListRequest) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.posts, nil
}

func (s *postListerStub) Subscribe(fn func()) func() {
	s.fn = fn
	return func() { s.fn = nil }
}

func (s *postListerStub) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func marchRequest() dto.CalendarRequest {
	return dto.CalendarRequest{Window: march2024()}
}

func TestCalendarServiceValidatesWindow(t *testing.T) {
	svc := NewCalendarService(&postListerStub{}, nil, zap.NewNop(), CalendarServiceConfig{})

	_, err := svc.Events(context.Background(), dto.CalendarRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Events(context.Background(), dto.CalendarRequest{Window: models.CalendarWindow{Start: day(2024, 3, 2), End: day(2024, 3, 1)}})
	require.Error(t, err)
}

func TestCalendarServiceWithoutCacheDerivesEveryTime(t *testing.T) {
	lister := &postListerStub{posts: []models.Post{eventPost("e1", day(2024, 3, 5), nil)}}
	svc := NewCalendarService(lister, nil, zap.NewNop(), CalendarServiceConfig{})

	for i := 0; i < 2; i++ {
		events, err := svc.Events(context.Background(), marchRequest())
		require.NoError(t, err)
		assert.Equal(t, []string{"e1"}, eventIDs(events))
	}
	assert.Equal(t, 2, lister.callCount())
	assert.Equal(t, []models.PostStatus{models.PostStatusPublished}, lister.requests[0].Statuses)
}

func TestCalendarServiceCachesUntilPostsChange(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop())
	lister := &postListerStub{posts: []models.Post{eventPost("e1", day(2024, 3, 5), nil)}}
	svc := NewCalendarService(lister, cache, zap.NewNop(), CalendarServiceConfig{})
	defer svc.Close()

	first, err := svc.Events(context.Background(), marchRequest())
	require.NoError(t, err)
	second, err := svc.Events(context.Background(), marchRequest())
	require.NoError(t, err)
	assert.Equal(t, eventIDs(first), eventIDs(second))
	assert.Equal(t, 1, lister.callCount(), "second call is served from cache")

	lister.mu.Lock()
	lister.posts = append(lister.posts, eventPost("e2", day(2024, 3, 6), nil))
	lister.mu.Unlock()
	require.NotNil(t, lister.fn)
	lister.fn()

	select {
	case pattern := <-repo.deleted:
		assert.Equal(t, "calendar:*", pattern)
	case <-time.After(2 * time.Second):
		t.Fatal("cache was not invalidated")
	}
	assert.Equal(t, 0, repo.size())

	third, err := svc.Events(context.Background(), marchRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, eventIDs(third))
	assert.Equal(t, 2, lister.callCount())
}

func TestCalendarServiceKeyTracksPostSetVersion(t *testing.T) {
	svc := NewCalendarService(&postListerStub{}, nil, zap.NewNop(), CalendarServiceConfig{})
	window := march2024()

	keyA, err := svc.cacheKey(window, models.CalendarFilters{})
	require.NoError(t, err)
	keyB, err := svc.cacheKey(window, models.CalendarFilters{})
	require.NoError(t, err)
	assert.Equal(t, keyA, keyB)
	assert.True(t, strings.HasPrefix(keyA, "calendar:"))

	svc.invalidate()
	keyC, err := svc.cacheKey(window, models.CalendarFilters{})
	require.NoError(t, err)
	assert.NotEqual(t, keyA, keyC, "version bump changes the key")
}

func TestCalendarServiceIgnoresEntriesFromEarlierProcess(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop())
	started := day(2024, 3, 1)

	stale := &postListerStub{posts: []models.Post{eventPost("stale", day(2024, 3, 5), nil)}}
	first := NewCalendarService(stale, cache, zap.NewNop(), CalendarServiceConfig{Now: func() time.Time { return started }})
	_, err := first.Events(context.Background(), marchRequest())
	require.NoError(t, err)
	require.Equal(t, 1, repo.size())

	fresh := &postListerStub{posts: []models.Post{eventPost("fresh", day(2024, 3, 6), nil)}}
	restarted := NewCalendarService(fresh, cache, zap.NewNop(), CalendarServiceConfig{Now: func() time.Time { return started.Add(time.Second) }})
	events, err := restarted.Events(context.Background(), marchRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, eventIDs(events))
	assert.Equal(t, 1, fresh.callCount())
}

func TestCalendarServicePropagatesListErrors(t *testing.T) {
	svc := NewCalendarService(&postListerStub{err: errors.New("boom")}, nil, zap.NewNop(), CalendarServiceConfig{})
	_, err := svc.Events(context.Background(), marchRequest())
	assert.Error(t, err)
}

func TestCalendarServiceIgnoresClockWithoutTemporalFilters(t *testing.T) {
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, zap.NewNop())
	lister := &postListerStub{}
	svc := NewCalendarService(lister, cache, zap.NewNop(), CalendarServiceConfig{})

	first := marchRequest()
	first.Filters.Now = day(2024, 3, 1)
	second := marchRequest()
	second.Filters.Now = day(2024, 3, 2)

	_, err := svc.Events(context.Background(), first)
	require.NoError(t, err)
	_, err = svc.Events(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, 1, lister.callCount())

	second.Filters.Upcoming = true
	_, err = svc.Events(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, 2, lister.callCount())
}
