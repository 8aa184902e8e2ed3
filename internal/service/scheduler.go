package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nudgelab/reminder-engine/internal/domain"
	"github.com/nudgelab/reminder-engine/internal/observability"
	"github.com/nudgelab/reminder-engine/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTickInterval        = 60 * time.Second
	defaultScanLimit           = 100
	defaultDispatchConcurrency = 8
)

// ReminderDispatcher is the scheduler's outbound port.
type ReminderDispatcher interface {
	Dispatch(ctx context.Context, reminder domain.Reminder) bool
}

// Scheduler drives time-based reminder delivery. Each tick scans the
// store for due active reminders, dispatches them with bounded
// parallelism, then re-arms recurring records or deactivates one-shots.
//
// The scan runs inline in the ticker loop, so ticks are serialized: a
// slow scan delays the next tick instead of overlapping it.
type Scheduler struct {
	reminders   repository.ReminderRepository
	dispatcher  ReminderDispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
	interval    time.Duration
	limit       int
	concurrency int
	now         func() time.Time
}

func NewScheduler(
	reminders repository.ReminderRepository,
	dispatcher ReminderDispatcher,
	interval time.Duration,
	limit int,
	concurrency int,
	logger *zap.Logger,
) (*Scheduler, error) {
	if reminders == nil {
		return nil, fmt.Errorf("reminder repository is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if interval <= 0 {
		interval = defaultTickInterval
	}
	if limit <= 0 {
		limit = defaultScanLimit
	}
	if concurrency <= 0 {
		concurrency = defaultDispatchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		reminders:   reminders,
		dispatcher:  dispatcher,
		logger:      logger,
		interval:    interval,
		limit:       limit,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

func (s *Scheduler) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial scan so already-due reminders do not wait for the
	// first ticker edge.
	if err := s.scanDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("scheduler initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.scanDue(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("scheduler scan failed", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) scanDue(ctx context.Context) error {
	tickStart := s.now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveTickDuration(s.now().Sub(tickStart))
		}
	}()

	due, err := s.reminders.ListDue(ctx, tickStart.UTC(), s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch due reminders: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range due {
		reminder := due[i]
		g.Go(func() error {
			s.processDue(groupCtx, reminder)
			return nil
		})
	}

	return g.Wait()
}

// processDue delivers one due reminder and advances its state. Delivery
// failure and success advance state identically: no retry queue, at most
// one send per due crossing.
func (s *Scheduler) processDue(ctx context.Context, reminder domain.Reminder) {
	delivered := s.dispatcher.Dispatch(ctx, reminder)
	if !delivered {
		s.logger.Warn("reminder delivery did not complete, advancing schedule anyway",
			zap.String("reminderId", reminder.ID),
			zap.String("kind", reminder.Kind.String()),
		)
	}

	if reminder.Recurring {
		// Next fire is computed from the scheduled time, not the actual
		// fire time, so cadence does not drift with scan latency.
		next := reminder.Frequency.Next(reminder.ScheduledFor)
		rearmed, err := s.reminders.Rearm(ctx, reminder.ID, next)
		if err != nil {
			s.logger.Error("failed to re-arm recurring reminder",
				zap.String("reminderId", reminder.ID),
				zap.Error(err),
			)
			return
		}
		if !rearmed {
			s.logger.Info("reminder cancelled before re-arm, leaving inactive",
				zap.String("reminderId", reminder.ID),
			)
			return
		}
		if s.metrics != nil {
			s.metrics.IncRearmed(strings.ToLower(reminder.Kind.String()))
		}
		return
	}

	deactivated, err := s.reminders.Deactivate(ctx, reminder.ID)
	if err != nil {
		s.logger.Error("failed to deactivate one-shot reminder",
			zap.String("reminderId", reminder.ID),
			zap.Error(err),
		)
		return
	}
	if !deactivated {
		s.logger.Info("one-shot reminder already inactive",
			zap.String("reminderId", reminder.ID),
		)
	}
}
