package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nudgelab/reminder-engine/internal/domain"
)

func newTestReminder(id, subjectID string, scheduledFor time.Time) *domain.Reminder {
	return &domain.Reminder{
		ID:           id,
		SubjectID:    subjectID,
		GroupID:      "group-1",
		Kind:         domain.KindTip,
		ScheduledFor: scheduledFor,
		Active:       true,
	}
}

func TestMemoryReminderRepoListActiveBySubjectOrdering(t *testing.T) {
	t.Parallel()

	repo := NewMemoryReminderRepo()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, newTestReminder("r3", "alice", base.AddDate(0, 0, 2))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, newTestReminder("r1", "alice", base)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, newTestReminder("r2", "alice", base.AddDate(0, 0, 1))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, newTestReminder("other", "bob", base)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	reminders, err := repo.ListActiveBySubject(ctx, "alice")
	if err != nil {
		t.Fatalf("ListActiveBySubject() error = %v", err)
	}
	if len(reminders) != 3 {
		t.Fatalf("len = %d, want 3", len(reminders))
	}
	for i, wantID := range []string{"r1", "r2", "r3"} {
		if reminders[i].ID != wantID {
			t.Fatalf("reminders[%d].ID = %s, want %s", i, reminders[i].ID, wantID)
		}
	}
}

func TestMemoryReminderRepoListDueRespectsLimitAndActivity(t *testing.T) {
	t.Parallel()

	repo := NewMemoryReminderRepo()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, newTestReminder("due1", "alice", now.Add(-2*time.Hour))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, newTestReminder("due2", "alice", now.Add(-time.Hour))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, newTestReminder("future", "alice", now.Add(time.Hour))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	inactive := newTestReminder("inactive", "alice", now.Add(-3*time.Hour))
	inactive.Active = false
	if err := repo.Create(ctx, inactive); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	due, err := repo.ListDue(ctx, now, 10)
	if err != nil {
		t.Fatalf("ListDue() error = %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("due count = %d, want 2", len(due))
	}
	if due[0].ID != "due1" || due[1].ID != "due2" {
		t.Fatalf("due order = %s,%s want due1,due2", due[0].ID, due[1].ID)
	}

	limited, err := repo.ListDue(ctx, now, 1)
	if err != nil {
		t.Fatalf("ListDue() error = %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "due1" {
		t.Fatalf("limited due = %v, want [due1]", limited)
	}
}

func TestMemoryReminderRepoRearmOnlyWhileActive(t *testing.T) {
	t.Parallel()

	repo := NewMemoryReminderRepo()
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, newTestReminder("r1", "alice", start)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	next := start.AddDate(0, 0, 1)
	applied, err := repo.Rearm(ctx, "r1", next)
	if err != nil {
		t.Fatalf("Rearm() error = %v", err)
	}
	if !applied {
		t.Fatal("Rearm() should apply on an active record")
	}

	got, err := repo.GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !got.ScheduledFor.Equal(next) {
		t.Fatalf("ScheduledFor = %s, want %s", got.ScheduledFor, next)
	}

	// A cancel landing before the scheduler's re-arm must win.
	if applied, err = repo.Deactivate(ctx, "r1"); err != nil || !applied {
		t.Fatalf("Deactivate() = %v, %v, want true, nil", applied, err)
	}
	applied, err = repo.Rearm(ctx, "r1", next.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("Rearm() error = %v", err)
	}
	if applied {
		t.Fatal("Rearm() must not resurrect a deactivated record")
	}
}

func TestMemoryReminderRepoDeactivateIsIdempotentTerminal(t *testing.T) {
	t.Parallel()

	repo := NewMemoryReminderRepo()
	ctx := context.Background()

	if err := repo.Create(ctx, newTestReminder("r1", "alice", time.Now())); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	applied, err := repo.Deactivate(ctx, "r1")
	if err != nil || !applied {
		t.Fatalf("Deactivate() = %v, %v, want true, nil", applied, err)
	}
	applied, err = repo.Deactivate(ctx, "r1")
	if err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if applied {
		t.Fatal("second Deactivate() should report no change")
	}

	reminders, err := repo.ListActiveBySubject(ctx, "alice")
	if err != nil {
		t.Fatalf("ListActiveBySubject() error = %v", err)
	}
	if len(reminders) != 0 {
		t.Fatalf("active count = %d, want 0", len(reminders))
	}
}

func TestMemoryReminderRepoDeactivateBySubject(t *testing.T) {
	t.Parallel()

	repo := NewMemoryReminderRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"a1", "a2", "a3"} {
		if err := repo.Create(ctx, newTestReminder(id, "alice", now)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if err := repo.Create(ctx, newTestReminder("b1", "bob", now)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	count, err := repo.DeactivateBySubject(ctx, "alice")
	if err != nil {
		t.Fatalf("DeactivateBySubject() error = %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	bobs, err := repo.ListActiveBySubject(ctx, "bob")
	if err != nil {
		t.Fatalf("ListActiveBySubject() error = %v", err)
	}
	if len(bobs) != 1 {
		t.Fatalf("bob active count = %d, want 1", len(bobs))
	}
}

func TestMemorySubscriptionRepoLastWriteWins(t *testing.T) {
	t.Parallel()

	repo := NewMemorySubscriptionRepo()
	ctx := context.Background()

	first := &domain.Subscription{
		SubjectID: "alice",
		Endpoint:  "https://push.example.com/send/old",
		P256dh:    "key-old",
		Auth:      "auth-old",
	}
	if err := repo.Put(ctx, first); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	second := &domain.Subscription{
		SubjectID: "alice",
		Endpoint:  "https://push.example.com/send/new",
		P256dh:    "key-new",
		Auth:      "auth-new",
	}
	if err := repo.Put(ctx, second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := repo.GetBySubject(ctx, "alice")
	if err != nil {
		t.Fatalf("GetBySubject() error = %v", err)
	}
	if got.Endpoint != second.Endpoint {
		t.Fatalf("Endpoint = %s, want %s", got.Endpoint, second.Endpoint)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("CreatedAt should survive overwrite")
	}

	if err := repo.Delete(ctx, "alice"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetBySubject(ctx, "alice"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetBySubject() error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, "alice"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryPreferenceRepoRoundTrip(t *testing.T) {
	t.Parallel()

	repo := NewMemoryPreferenceRepo()
	ctx := context.Background()

	if _, err := repo.GetBySubject(ctx, "alice"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetBySubject() error = %v, want ErrNotFound", err)
	}

	prefs := &domain.Preferences{
		SubjectID: "alice",
		Enabled:   map[domain.Kind]bool{domain.KindTip: false},
	}
	if err := repo.Put(ctx, prefs); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Mutating the caller's map after Put must not leak into the store.
	prefs.Enabled[domain.KindTip] = true

	got, err := repo.GetBySubject(ctx, "alice")
	if err != nil {
		t.Fatalf("GetBySubject() error = %v", err)
	}
	if got.Allows(domain.KindTip) {
		t.Fatal("stored preferences should keep tip disabled")
	}
	if !got.Allows(domain.KindCheckIn) {
		t.Fatal("unlisted kind should default to allowed")
	}
}
