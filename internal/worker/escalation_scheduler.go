package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-escalation/internal/escalation"
	apperrors "github.com/spec-kit/helpdesk-escalation/pkg/util/errorutil"
)

// EscalationRunner runs one escalation pass.
type EscalationRunner interface {
	RunEscalationJob(ctx context.Context, actorID string) (escalation.Result, error)
}

// EscalationScheduler triggers the escalation job on a cron schedule.
type EscalationScheduler struct {
	runner   EscalationRunner
	actorID  string
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	parser   cron.Parser
	logger   *zap.Logger

	mu        sync.Mutex
	entry     cron.EntryID
	rootCtx   context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	stopOnce  sync.Once
}

// SchedulerOption customizes an EscalationScheduler.
type SchedulerOption func(*EscalationScheduler)

// WithCron supplies the cron engine, mostly for tests.
func WithCron(c *cron.Cron) SchedulerOption {
	return func(s *EscalationScheduler) { s.cron = c }
}

// WithRunTimeout bounds a single scheduled run.
func WithRunTimeout(d time.Duration) SchedulerOption {
	return func(s *EscalationScheduler) { s.timeout = d }
}

// NewEscalationScheduler validates the schedule expression and builds the
// scheduler. Standard five-field expressions and descriptors such as
// "@every 5m" are accepted.
func NewEscalationScheduler(runner EscalationRunner, schedule, actorID string, loc *time.Location, logger *zap.Logger, opts ...SchedulerOption) (*EscalationScheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &EscalationScheduler{
		runner:   runner,
		actorID:  actorID,
		schedule: schedule,
		timeout:  time.Minute,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cron == nil {
		s.cron = cron.New(cron.WithLocation(loc), cron.WithParser(s.parser))
	}
	if _, err := s.parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid escalation schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start registers the job and starts the cron loop. Runs stop when ctx is
// cancelled or Stop is called.
func (s *EscalationScheduler) Start(ctx context.Context) error {
	var err error
	s.startOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.rootCtx, s.cancel = context.WithCancel(ctx)
		sched, parseErr := s.parser.Parse(s.schedule)
		if parseErr != nil {
			err = parseErr
			return
		}
		s.entry = s.cron.Schedule(sched, cron.FuncJob(s.RunOnce))
		s.cron.Start()
		s.logger.Info("escalation scheduler started",
			zap.String("schedule", s.schedule),
			zap.String("actor_id", s.actorID))
	})
	return err
}

// Stop halts the cron loop and waits for a running pass to finish.
func (s *EscalationScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		<-s.cron.Stop().Done()
		s.logger.Info("escalation scheduler stopped")
	})
}

// Next reports the next scheduled run, zero before Start.
func (s *EscalationScheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// RunOnce executes a single pass as the scheduler's actor.
func (s *EscalationScheduler) RunOnce() {
	s.mu.Lock()
	parent := s.rootCtx
	s.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	result, err := s.runner.RunEscalationJob(ctx, s.actorID)
	switch {
	case apperrors.Is(err, apperrors.CodeConflict):
		s.logger.Info("scheduled escalation skipped; another run holds the lock")
	case err != nil:
		s.logger.Error("scheduled escalation failed", zap.Error(err))
	case result.EscalatedCount > 0:
		s.logger.Info("scheduled escalation run",
			zap.Int("scanned", result.Scanned),
			zap.Int("escalated", result.EscalatedCount))
	}
}
