package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nudgelab/reminder-engine/internal/domain"
	"github.com/nudgelab/reminder-engine/internal/observability"
	"github.com/nudgelab/reminder-engine/internal/push"
	"github.com/nudgelab/reminder-engine/internal/ratelimit"
	"github.com/nudgelab/reminder-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultIconPath  = "/icons/notification-icon.png"
	defaultBadgePath = "/icons/notification-badge.png"
)

// MessageResolver produces personalized body text for a reminder kind.
type MessageResolver interface {
	Resolve(ctx context.Context, kind domain.Kind, groupID string) string
}

// Dispatcher delivers a single reminder to its subject's push
// subscription. Delivery is best-effort: every failure is absorbed into
// the boolean result and a log line, never an escaping error, and the
// caller advances record state identically on success and failure.
type Dispatcher struct {
	subscriptions repository.SubscriptionRepository
	preferences   repository.PreferenceRepository
	resolver      MessageResolver
	sink          push.Sink
	rateLimiter   ratelimit.RateLimiter
	logger        *zap.Logger
	metrics       *observability.Metrics
	now           func() time.Time
}

func NewDispatcher(
	subscriptions repository.SubscriptionRepository,
	preferences repository.PreferenceRepository,
	resolver MessageResolver,
	sink push.Sink,
	rateLimiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if subscriptions == nil {
		return nil, errors.New("subscription repository is required")
	}
	if sink == nil {
		return nil, errors.New("push sink is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		subscriptions: subscriptions,
		preferences:   preferences,
		resolver:      resolver,
		sink:          sink,
		rateLimiter:   rateLimiter,
		logger:        logger,
		now:           time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Dispatch sends the reminder once and reports whether delivery reached
// the push service.
func (d *Dispatcher) Dispatch(ctx context.Context, reminder domain.Reminder) bool {
	kindLabel := strings.ToLower(reminder.Kind.String())
	if d.metrics != nil {
		d.metrics.IncDispatchInFlight(kindLabel)
		defer d.metrics.DecDispatchInFlight(kindLabel)
	}

	if !d.subjectAllows(ctx, reminder.SubjectID, reminder.Kind) {
		d.logger.Debug("reminder kind disabled by subject preferences",
			zap.String("reminderId", reminder.ID),
			zap.String("subjectId", reminder.SubjectID),
			zap.String("kind", reminder.Kind.String()),
		)
		d.metrics.IncDispatchFailed(kindLabel, "preference_disabled")
		return false
	}

	sub, err := d.subscriptions.GetBySubject(ctx, reminder.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			d.logger.Info("no push subscription for subject, skipping delivery",
				zap.String("reminderId", reminder.ID),
				zap.String("subjectId", reminder.SubjectID),
			)
			d.metrics.IncDispatchFailed(kindLabel, "no_subscription")
			return false
		}
		d.logger.Error("subscription lookup failed",
			zap.String("reminderId", reminder.ID),
			zap.String("subjectId", reminder.SubjectID),
			zap.Error(err),
		)
		d.metrics.IncDispatchFailed(kindLabel, "subscription_lookup")
		return false
	}

	body := strings.TrimSpace(reminder.Message)
	if body == "" && d.resolver != nil {
		body = d.resolver.Resolve(ctx, reminder.Kind, reminder.GroupID)
	}
	if body == "" {
		body = "You have a new notification."
	}

	if d.rateLimiter != nil {
		if err := d.rateLimiter.Wait(ctx, kindLabel); err != nil {
			d.logger.Warn("rate limiter wait failed",
				zap.String("reminderId", reminder.ID),
				zap.String("kind", reminder.Kind.String()),
				zap.Error(err),
			)
			d.metrics.IncDispatchFailed(kindLabel, "rate_limited")
			return false
		}
	}

	payload := push.Payload{
		Title: reminder.Kind.Title(),
		Body:  body,
		Icon:  defaultIconPath,
		Badge: defaultBadgePath,
		Data: map[string]string{
			"reminderId": reminder.ID,
			"kind":       reminder.Kind.String(),
			"groupId":    reminder.GroupID,
		},
	}

	sendStart := d.now()
	sendErr := d.sink.Send(ctx, *sub, payload)
	if d.metrics != nil {
		d.metrics.ObserveDispatchDuration(kindLabel, d.now().Sub(sendStart))
	}

	if sendErr != nil {
		d.logger.Warn("push delivery failed",
			zap.String("reminderId", reminder.ID),
			zap.String("subjectId", reminder.SubjectID),
			zap.String("kind", reminder.Kind.String()),
			zap.Error(sendErr),
		)
		d.metrics.IncDispatchFailed(kindLabel, failureReason(sendErr))

		// The push service told us this subscription is dead; drop it
		// so future ticks fail fast with no_subscription.
		if push.IsSubscriptionGone(sendErr) {
			if err := d.subscriptions.Delete(ctx, reminder.SubjectID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				d.logger.Error("failed to remove dead subscription",
					zap.String("subjectId", reminder.SubjectID),
					zap.Error(err),
				)
			}
		}
		return false
	}

	d.logger.Info("reminder delivered",
		zap.String("reminderId", reminder.ID),
		zap.String("subjectId", reminder.SubjectID),
		zap.String("kind", reminder.Kind.String()),
	)
	d.metrics.IncDispatched(kindLabel)
	return true
}

func (d *Dispatcher) subjectAllows(ctx context.Context, subjectID string, kind domain.Kind) bool {
	if d.preferences == nil {
		return true
	}

	prefs, err := d.preferences.GetBySubject(ctx, subjectID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			d.logger.Warn("preference lookup failed, allowing delivery",
				zap.String("subjectId", subjectID),
				zap.Error(err),
			)
		}
		return true
	}
	return prefs.Allows(kind)
}

func failureReason(err error) string {
	switch {
	case push.IsSubscriptionGone(err):
		return "subscription_gone"
	case push.IsTransient(err):
		return "transient_error"
	default:
		return "permanent_error"
	}
}
