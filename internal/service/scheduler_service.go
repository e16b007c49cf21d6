package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
)

const defaultSchedulerInterval = time.Minute

type duePublisher interface {
	PublishDue(ctx context.Context) ([]models.Post, error)
}

// SchedulerConfig tunes the promotion loop.
type SchedulerConfig struct {
	Interval time.Duration
	// Jitter adds a random delay in [0, Jitter) to every wait.
	Jitter time.Duration
}

// SchedulerService periodically promotes due SCHEDULED posts to PUBLISHED.
type SchedulerService struct {
	publisher duePublisher
	metrics   *MetricsService
	logger    *zap.Logger
	interval  time.Duration
	jitter    time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewSchedulerService constructs the scheduler. It does nothing until Start.
func NewSchedulerService(publisher duePublisher, metrics *MetricsService, logger *zap.Logger, cfg SchedulerConfig) *SchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultSchedulerInterval
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	return &SchedulerService{
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		interval:  cfg.Interval,
		jitter:    cfg.Jitter,
	}
}

// Start runs one tick immediately and then keeps ticking until Stop is called
// or ctx is cancelled. Calling Start on a running scheduler is a no-op.
func (s *SchedulerService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(loopCtx, s.done)
	s.logger.Info("post scheduler started", zap.Duration("interval", s.interval), zap.Duration("jitter", s.jitter))
}

func (s *SchedulerService) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	s.Tick(ctx)

	timer := time.NewTimer(s.nextDelay())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.Tick(ctx)
			timer.Reset(s.nextDelay())
		}
	}
}

func (s *SchedulerService) nextDelay() time.Duration {
	if s.jitter <= 0 {
		return s.interval
	}
	return s.interval + time.Duration(rand.Int63n(int64(s.jitter)))
}

// Tick runs one promotion pass and returns the number of posts promoted.
// Failures are logged and left for the next tick.
func (s *SchedulerService) Tick(ctx context.Context) int {
	promoted, err := s.publisher.PublishDue(ctx)
	s.metrics.RecordSchedulerTick(len(promoted), err)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("scheduler tick failed", zap.Int("promoted", len(promoted)), zap.Error(err))
		}
		return len(promoted)
	}
	if len(promoted) > 0 {
		ids := make([]string, len(promoted))
		for i, p := range promoted {
			ids[i] = p.ID
		}
		s.logger.Info("scheduled posts published", zap.Int("count", len(promoted)), zap.Strings("post_ids", ids))
	}
	return len(promoted)
}

// Stop cancels the loop and waits for an in-flight tick to finish. It is safe
// to call more than once.
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("post scheduler stopped")
}

// Running reports whether the loop is active.
func (s *SchedulerService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
