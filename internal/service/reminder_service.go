package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nudgelab/reminder-engine/internal/domain"
	"github.com/nudgelab/reminder-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	maxSeriesDays   = 30
	testMessageBody = "This is a test notification from your health coach. You're all set up!"
)

// ReminderService implements the operations behind the HTTP surface:
// subscription registration, scheduling, cancellation, preferences, and
// on-demand dispatch.
type ReminderService struct {
	reminders     repository.ReminderRepository
	subscriptions repository.SubscriptionRepository
	preferences   repository.PreferenceRepository
	dispatcher    ReminderDispatcher
	logger        *zap.Logger
	now           func() time.Time
}

func NewReminderService(
	reminders repository.ReminderRepository,
	subscriptions repository.SubscriptionRepository,
	preferences repository.PreferenceRepository,
	dispatcher ReminderDispatcher,
	logger *zap.Logger,
) (*ReminderService, error) {
	if reminders == nil {
		return nil, fmt.Errorf("reminder repository is required")
	}
	if subscriptions == nil {
		return nil, fmt.Errorf("subscription repository is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReminderService{
		reminders:     reminders,
		subscriptions: subscriptions,
		preferences:   preferences,
		dispatcher:    dispatcher,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// RegisterSubscription stores a subject's push subscription, replacing
// any previous one.
func (s *ReminderService) RegisterSubscription(ctx context.Context, sub *domain.Subscription) error {
	if sub == nil {
		return fmt.Errorf("%w: subscription is required", domain.ErrValidation)
	}

	sub.SubjectID = strings.TrimSpace(sub.SubjectID)
	sub.Endpoint = strings.TrimSpace(sub.Endpoint)
	sub.P256dh = strings.TrimSpace(sub.P256dh)
	sub.Auth = strings.TrimSpace(sub.Auth)

	if err := sub.Validate(); err != nil {
		return err
	}
	return s.subscriptions.Put(ctx, sub)
}

// RemoveSubscription drops the subject's push subscription and cancels
// all of their active reminders. Returns the number of cancelled records.
func (s *ReminderService) RemoveSubscription(ctx context.Context, subjectID string) (int64, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return 0, fmt.Errorf("%w: subject id is required", domain.ErrValidation)
	}

	if err := s.subscriptions.Delete(ctx, subjectID); err != nil {
		return 0, err
	}

	cancelled, err := s.reminders.DeactivateBySubject(ctx, subjectID)
	if err != nil {
		return 0, fmt.Errorf("subscription removed but reminder cleanup failed: %w", err)
	}

	s.logger.Info("subscription removed",
		zap.String("subjectId", subjectID),
		zap.Int64("cancelledReminders", cancelled),
	)
	return cancelled, nil
}

// Schedule stores a new reminder, one-shot or recurring.
func (s *ReminderService) Schedule(ctx context.Context, reminder *domain.Reminder) (*domain.Reminder, error) {
	if reminder == nil {
		return nil, fmt.Errorf("%w: reminder is required", domain.ErrValidation)
	}

	prepareReminderForCreate(reminder)
	if err := reminder.Validate(); err != nil {
		return nil, err
	}

	if err := s.reminders.Create(ctx, reminder); err != nil {
		return nil, err
	}

	s.logger.Info("reminder scheduled",
		zap.String("reminderId", reminder.ID),
		zap.String("subjectId", reminder.SubjectID),
		zap.String("kind", reminder.Kind.String()),
		zap.Time("scheduledFor", reminder.ScheduledFor),
		zap.Bool("recurring", reminder.Recurring),
	)
	return reminder, nil
}

// ScheduleTipSeries creates a bounded batch of daily tips: one one-shot
// record per day, each firing exactly once. A bounded series is not a
// recurring reminder; after the last day the subject receives nothing
// further unless a new series is scheduled.
func (s *ReminderService) ScheduleTipSeries(
	ctx context.Context,
	subjectID string,
	groupID string,
	days int,
	startAt time.Time,
) ([]domain.Reminder, error) {
	subjectID = strings.TrimSpace(subjectID)
	groupID = strings.TrimSpace(groupID)
	if subjectID == "" {
		return nil, fmt.Errorf("%w: subject id is required", domain.ErrValidation)
	}
	if groupID == "" {
		return nil, fmt.Errorf("%w: group id is required", domain.ErrValidation)
	}
	if days < 1 {
		return nil, fmt.Errorf("%w: series must cover at least one day", domain.ErrValidation)
	}
	if days > maxSeriesDays {
		return nil, fmt.Errorf("%w: series exceeds %d days", domain.ErrValidation, maxSeriesDays)
	}
	if startAt.IsZero() {
		return nil, fmt.Errorf("%w: start time is required", domain.ErrValidation)
	}

	created := make([]domain.Reminder, days)
	createdPtrs := make([]*domain.Reminder, days)
	for i := 0; i < days; i++ {
		created[i] = domain.Reminder{
			SubjectID:    subjectID,
			GroupID:      groupID,
			Kind:         domain.KindTip,
			ScheduledFor: startAt.AddDate(0, 0, i),
		}
		prepareReminderForCreate(&created[i])
		if err := created[i].Validate(); err != nil {
			return nil, err
		}
		createdPtrs[i] = &created[i]
	}

	if err := s.reminders.CreateBatch(ctx, createdPtrs); err != nil {
		return nil, err
	}

	s.logger.Info("tip series scheduled",
		zap.String("subjectId", subjectID),
		zap.String("groupId", groupID),
		zap.Int("days", days),
		zap.Time("startAt", startAt),
	)
	return created, nil
}

func (s *ReminderService) GetByID(ctx context.Context, id string) (*domain.Reminder, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: reminder id is required", domain.ErrValidation)
	}
	return s.reminders.GetByID(ctx, id)
}

// Cancel deactivates one reminder. Returns ErrNotFound for unknown ids
// and ErrConflict when the record is already inactive.
func (s *ReminderService) Cancel(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: reminder id is required", domain.ErrValidation)
	}

	applied, err := s.reminders.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	if _, err := s.reminders.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: reminder is already inactive", domain.ErrConflict)
}

// CancelAllForSubject deactivates every active reminder for a subject.
func (s *ReminderService) CancelAllForSubject(ctx context.Context, subjectID string) (int64, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return 0, fmt.Errorf("%w: subject id is required", domain.ErrValidation)
	}
	return s.reminders.DeactivateBySubject(ctx, subjectID)
}

// ListActive returns the subject's active reminders ordered by next fire
// time ascending.
func (s *ReminderService) ListActive(ctx context.Context, subjectID string) ([]domain.Reminder, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, fmt.Errorf("%w: subject id is required", domain.ErrValidation)
	}
	return s.reminders.ListActiveBySubject(ctx, subjectID)
}

// SendTest dispatches a fixed test payload to the subject immediately.
// Nothing is stored.
func (s *ReminderService) SendTest(ctx context.Context, subjectID string) error {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return fmt.Errorf("%w: subject id is required", domain.ErrValidation)
	}

	if _, err := s.subscriptions.GetBySubject(ctx, subjectID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNoSubscription
		}
		return err
	}

	delivered := s.dispatcher.Dispatch(ctx, domain.Reminder{
		ID:           uuid.NewString(),
		SubjectID:    subjectID,
		GroupID:      "test",
		Kind:         domain.KindReminder,
		Message:      testMessageBody,
		ScheduledFor: s.now().UTC(),
	})
	if !delivered {
		return fmt.Errorf("test notification could not be delivered")
	}
	return nil
}

// TriggerKind resolves and dispatches one notification of the given kind
// immediately, without storing a record.
func (s *ReminderService) TriggerKind(ctx context.Context, subjectID, groupID string, kind domain.Kind) error {
	subjectID = strings.TrimSpace(subjectID)
	groupID = strings.TrimSpace(groupID)
	if subjectID == "" {
		return fmt.Errorf("%w: subject id is required", domain.ErrValidation)
	}
	if groupID == "" {
		return fmt.Errorf("%w: group id is required", domain.ErrValidation)
	}
	if !kind.IsValid() {
		return fmt.Errorf("%w: invalid kind %q", domain.ErrValidation, kind)
	}

	if _, err := s.subscriptions.GetBySubject(ctx, subjectID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNoSubscription
		}
		return err
	}

	delivered := s.dispatcher.Dispatch(ctx, domain.Reminder{
		ID:           uuid.NewString(),
		SubjectID:    subjectID,
		GroupID:      groupID,
		Kind:         kind,
		ScheduledFor: s.now().UTC(),
	})
	if !delivered {
		return fmt.Errorf("notification could not be delivered")
	}
	return nil
}

// UpdatePreferences stores the subject's per-kind opt-in flags.
func (s *ReminderService) UpdatePreferences(ctx context.Context, prefs *domain.Preferences) error {
	if s.preferences == nil {
		return fmt.Errorf("preference store is not configured")
	}
	if prefs == nil {
		return fmt.Errorf("%w: preferences are required", domain.ErrValidation)
	}

	prefs.SubjectID = strings.TrimSpace(prefs.SubjectID)
	if prefs.SubjectID == "" {
		return fmt.Errorf("%w: subject id is required", domain.ErrValidation)
	}
	for kind := range prefs.Enabled {
		if !kind.IsValid() {
			return fmt.Errorf("%w: invalid kind %q", domain.ErrValidation, kind)
		}
	}

	return s.preferences.Put(ctx, prefs)
}

// GetPreferences returns the subject's stored flags, or the all-enabled
// default when nothing has been stored yet.
func (s *ReminderService) GetPreferences(ctx context.Context, subjectID string) (*domain.Preferences, error) {
	if s.preferences == nil {
		return nil, fmt.Errorf("preference store is not configured")
	}

	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, fmt.Errorf("%w: subject id is required", domain.ErrValidation)
	}

	prefs, err := s.preferences.GetBySubject(ctx, subjectID)
	if errors.Is(err, domain.ErrNotFound) {
		defaults := &domain.Preferences{
			SubjectID: subjectID,
			Enabled:   make(map[domain.Kind]bool, len(domain.Kinds())),
		}
		for _, kind := range domain.Kinds() {
			defaults.Enabled[kind] = true
		}
		return defaults, nil
	}
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

func prepareReminderForCreate(r *domain.Reminder) {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	r.GroupID = strings.TrimSpace(r.GroupID)
	r.Message = strings.TrimSpace(r.Message)
	r.Active = true
	if !r.Recurring {
		r.Frequency = ""
	}
}
