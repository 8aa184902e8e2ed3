package domain

import (
	"fmt"
	"strings"
	"time"
)

// Kind represents the reminder category.
type Kind string

const (
	KindTip       Kind = "TIP"
	KindReminder  Kind = "REMINDER"
	KindCheckIn   Kind = "CHECK_IN"
	KindEducation Kind = "EDUCATION"
)

func (k Kind) String() string { return string(k) }

func (k Kind) IsValid() bool {
	switch k {
	case KindTip, KindReminder, KindCheckIn, KindEducation:
		return true
	}
	return false
}

func ParseKindFromString(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid kind %q", ErrValidation, s)
	}
	return k, nil
}

// Kinds returns all reminder kinds in a stable order.
func Kinds() []Kind {
	return []Kind{KindTip, KindReminder, KindCheckIn, KindEducation}
}

// Title returns the push notification title for a kind.
func (k Kind) Title() string {
	switch k {
	case KindTip:
		return "Daily Health Tip"
	case KindReminder:
		return "Reminder"
	case KindCheckIn:
		return "Time to Check In"
	case KindEducation:
		return "Health Education"
	default:
		return "Notification"
	}
}

// Message length limit for push payload bodies (in characters).
const MaxMessageLen = 1000

// Reminder is the core domain entity: a scheduled push notification for a
// subject, either one-shot or self-re-arming.
type Reminder struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	SubjectID    string    `gorm:"type:varchar(64);not null"`
	GroupID      string    `gorm:"type:varchar(64);not null"`
	Kind         Kind      `gorm:"type:varchar(16);not null"`
	Message      string    `gorm:"type:text"`
	ScheduledFor time.Time `gorm:"not null"`
	Recurring    bool      `gorm:"not null;default:false"`
	Frequency    Frequency `gorm:"type:varchar(10)"`
	Active       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *Reminder) Validate() error {
	if strings.TrimSpace(r.SubjectID) == "" {
		return fmt.Errorf("%w: subject id is required", ErrValidation)
	}
	if strings.TrimSpace(r.GroupID) == "" {
		return fmt.Errorf("%w: group id is required", ErrValidation)
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: invalid kind %q", ErrValidation, r.Kind)
	}
	if r.ScheduledFor.IsZero() {
		return fmt.Errorf("%w: scheduled time is required", ErrValidation)
	}
	if r.Recurring && !r.Frequency.IsValid() {
		return fmt.Errorf("%w: recurring reminder requires a valid frequency, got %q", ErrValidation, r.Frequency)
	}
	if !r.Recurring && r.Frequency != "" {
		return fmt.Errorf("%w: frequency is only allowed on recurring reminders", ErrValidation)
	}
	if len([]rune(r.Message)) > MaxMessageLen {
		return fmt.Errorf("%w: message exceeds %d characters", ErrValidation, MaxMessageLen)
	}
	return nil
}

// Subscription is a subject's browser web-push descriptor. One active
// subscription per subject; re-registering overwrites the previous one.
type Subscription struct {
	SubjectID string `gorm:"type:varchar(64);primaryKey"`
	Endpoint  string `gorm:"type:text;not null"`
	P256dh    string `gorm:"column:p256dh;type:text;not null"`
	Auth      string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Subscription) Validate() error {
	if strings.TrimSpace(s.SubjectID) == "" {
		return fmt.Errorf("%w: subject id is required", ErrValidation)
	}
	if strings.TrimSpace(s.Endpoint) == "" {
		return fmt.Errorf("%w: endpoint is required", ErrValidation)
	}
	if strings.TrimSpace(s.P256dh) == "" || strings.TrimSpace(s.Auth) == "" {
		return fmt.Errorf("%w: subscription keys are required", ErrValidation)
	}
	return nil
}

// Preferences stores per-subject opt-in flags per reminder kind. A kind
// missing from Enabled is treated as enabled.
type Preferences struct {
	SubjectID string        `gorm:"type:varchar(64);primaryKey"`
	Enabled   map[Kind]bool `gorm:"-"`
	UpdatedAt time.Time
}

// Allows reports whether the subject accepts reminders of the given kind.
func (p *Preferences) Allows(kind Kind) bool {
	if p == nil || p.Enabled == nil {
		return true
	}
	enabled, ok := p.Enabled[kind]
	if !ok {
		return true
	}
	return enabled
}
