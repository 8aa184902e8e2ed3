package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nudgelab/reminder-engine/internal/domain"
)

var (
	_ ReminderRepository     = (*MemoryReminderRepo)(nil)
	_ SubscriptionRepository = (*MemorySubscriptionRepo)(nil)
	_ PreferenceRepository   = (*MemoryPreferenceRepo)(nil)
)

// MemoryReminderRepo is a mutex-guarded in-memory reminder store. It keeps
// deactivated records for the process lifetime; callers that need bounded
// growth should use the Postgres store instead.
type MemoryReminderRepo struct {
	mu        sync.RWMutex
	reminders map[string]domain.Reminder
}

func NewMemoryReminderRepo() *MemoryReminderRepo {
	return &MemoryReminderRepo{reminders: make(map[string]domain.Reminder)}
}

func (r *MemoryReminderRepo) Create(ctx context.Context, reminder *domain.Reminder) error {
	if reminder == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	reminder.CreatedAt = now
	reminder.UpdatedAt = now
	r.reminders[reminder.ID] = *reminder
	return nil
}

func (r *MemoryReminderRepo) CreateBatch(ctx context.Context, reminders []*domain.Reminder) error {
	for _, reminder := range reminders {
		if err := r.Create(ctx, reminder); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryReminderRepo) GetByID(ctx context.Context, id string) (*domain.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reminder, ok := r.reminders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &reminder, nil
}

func (r *MemoryReminderRepo) ListActiveBySubject(ctx context.Context, subjectID string) ([]domain.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reminders := make([]domain.Reminder, 0)
	for _, reminder := range r.reminders {
		if reminder.Active && reminder.SubjectID == subjectID {
			reminders = append(reminders, reminder)
		}
	}

	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].ScheduledFor.Before(reminders[j].ScheduledFor)
	})
	return reminders, nil
}

func (r *MemoryReminderRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	due := make([]domain.Reminder, 0)
	for _, reminder := range r.reminders {
		if reminder.Active && !reminder.ScheduledFor.After(now) {
			due = append(due, reminder)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduledFor.Before(due[j].ScheduledFor)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *MemoryReminderRepo) Rearm(ctx context.Context, id string, next time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reminder, ok := r.reminders[id]
	if !ok || !reminder.Active {
		return false, nil
	}

	reminder.ScheduledFor = next
	reminder.UpdatedAt = time.Now().UTC()
	r.reminders[id] = reminder
	return true, nil
}

func (r *MemoryReminderRepo) Deactivate(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reminder, ok := r.reminders[id]
	if !ok || !reminder.Active {
		return false, nil
	}

	reminder.Active = false
	reminder.UpdatedAt = time.Now().UTC()
	r.reminders[id] = reminder
	return true, nil
}

func (r *MemoryReminderRepo) DeactivateBySubject(ctx context.Context, subjectID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	now := time.Now().UTC()
	for id, reminder := range r.reminders {
		if reminder.Active && reminder.SubjectID == subjectID {
			reminder.Active = false
			reminder.UpdatedAt = now
			r.reminders[id] = reminder
			count++
		}
	}
	return count, nil
}

// MemorySubscriptionRepo keeps one push subscription per subject.
type MemorySubscriptionRepo struct {
	mu            sync.RWMutex
	subscriptions map[string]domain.Subscription
}

func NewMemorySubscriptionRepo() *MemorySubscriptionRepo {
	return &MemorySubscriptionRepo{subscriptions: make(map[string]domain.Subscription)}
}

func (r *MemorySubscriptionRepo) Put(ctx context.Context, sub *domain.Subscription) error {
	if sub == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := r.subscriptions[sub.SubjectID]; ok {
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	r.subscriptions[sub.SubjectID] = *sub
	return nil
}

func (r *MemorySubscriptionRepo) GetBySubject(ctx context.Context, subjectID string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subscriptions[subjectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sub, nil
}

func (r *MemorySubscriptionRepo) Delete(ctx context.Context, subjectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscriptions[subjectID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.subscriptions, subjectID)
	return nil
}

// MemoryPreferenceRepo keeps per-subject opt-in flags.
type MemoryPreferenceRepo struct {
	mu          sync.RWMutex
	preferences map[string]domain.Preferences
}

func NewMemoryPreferenceRepo() *MemoryPreferenceRepo {
	return &MemoryPreferenceRepo{preferences: make(map[string]domain.Preferences)}
}

func (r *MemoryPreferenceRepo) Put(ctx context.Context, prefs *domain.Preferences) error {
	if prefs == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prefs.UpdatedAt = time.Now().UTC()
	stored := *prefs
	stored.Enabled = make(map[domain.Kind]bool, len(prefs.Enabled))
	for kind, enabled := range prefs.Enabled {
		stored.Enabled[kind] = enabled
	}
	r.preferences[prefs.SubjectID] = stored
	return nil
}

func (r *MemoryPreferenceRepo) GetBySubject(ctx context.Context, subjectID string) (*domain.Preferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefs, ok := r.preferences[subjectID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	copied := prefs
	copied.Enabled = make(map[domain.Kind]bool, len(prefs.Enabled))
	for kind, enabled := range prefs.Enabled {
		copied.Enabled[kind] = enabled
	}
	return &copied, nil
}
