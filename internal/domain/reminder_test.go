package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseKindFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Kind
		wantErr bool
	}{
		{name: "valid uppercase", input: "TIP", want: KindTip},
		{name: "valid lowercase with spaces", input: " check_in ", want: KindCheckIn},
		{name: "invalid", input: "newsletter", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseKindFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseKindFromString() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseKindFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseKindFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestKindTitleCoversAllKinds(t *testing.T) {
	t.Parallel()

	for _, kind := range Kinds() {
		if kind.Title() == "" || kind.Title() == "Notification" {
			t.Fatalf("Kind(%s).Title() = %q, want a dedicated title", kind, kind.Title())
		}
	}
}

func TestReminderValidate(t *testing.T) {
	t.Parallel()

	valid := Reminder{
		SubjectID:    "subject-1",
		GroupID:      "group-1",
		Kind:         KindTip,
		ScheduledFor: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Recurring:    true,
		Frequency:    FrequencyDaily,
	}

	tests := []struct {
		name    string
		mutate  func(r *Reminder)
		wantErr bool
	}{
		{name: "valid recurring", mutate: func(r *Reminder) {}},
		{name: "valid one shot", mutate: func(r *Reminder) {
			r.Recurring = false
			r.Frequency = ""
		}},
		{name: "missing subject", mutate: func(r *Reminder) { r.SubjectID = " " }, wantErr: true},
		{name: "missing group", mutate: func(r *Reminder) { r.GroupID = "" }, wantErr: true},
		{name: "invalid kind", mutate: func(r *Reminder) { r.Kind = "SPAM" }, wantErr: true},
		{name: "zero schedule", mutate: func(r *Reminder) { r.ScheduledFor = time.Time{} }, wantErr: true},
		{name: "recurring without frequency", mutate: func(r *Reminder) { r.Frequency = "" }, wantErr: true},
		{name: "one shot with frequency", mutate: func(r *Reminder) { r.Recurring = false }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := valid
			tt.mutate(&r)

			err := r.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestSubscriptionValidate(t *testing.T) {
	t.Parallel()

	sub := Subscription{
		SubjectID: "subject-1",
		Endpoint:  "https://push.example.com/send/abc",
		P256dh:    "p256dh-key",
		Auth:      "auth-key",
	}
	if err := sub.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}

	missingKeys := sub
	missingKeys.Auth = ""
	if err := missingKeys.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}
}

func TestPreferencesAllows(t *testing.T) {
	t.Parallel()

	var nilPrefs *Preferences
	if !nilPrefs.Allows(KindTip) {
		t.Fatal("nil preferences should allow every kind")
	}

	prefs := &Preferences{
		SubjectID: "subject-1",
		Enabled:   map[Kind]bool{KindTip: false, KindCheckIn: true},
	}
	if prefs.Allows(KindTip) {
		t.Fatal("disabled kind should not be allowed")
	}
	if !prefs.Allows(KindCheckIn) {
		t.Fatal("enabled kind should be allowed")
	}
	if !prefs.Allows(KindEducation) {
		t.Fatal("unlisted kind should default to allowed")
	}
}
