package repository

import (
	"time"

	"github.com/nudgelab/reminder-engine/internal/domain"
)

// ReminderModel is the persistence model for the reminders table.
type ReminderModel struct {
	ID           string           `gorm:"type:uuid;primaryKey"`
	SubjectID    string           `gorm:"type:varchar(64);not null"`
	GroupID      string           `gorm:"type:varchar(64);not null"`
	Kind         domain.Kind      `gorm:"type:varchar(16);not null"`
	Message      string           `gorm:"type:text"`
	ScheduledFor time.Time        `gorm:"not null"`
	Recurring    bool             `gorm:"not null;default:false"`
	Frequency    domain.Frequency `gorm:"type:varchar(10)"`
	Active       bool             `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ReminderModel) TableName() string { return "reminders" }

func reminderModelFromDomain(r *domain.Reminder) *ReminderModel {
	if r == nil {
		return nil
	}
	return &ReminderModel{
		ID:           r.ID,
		SubjectID:    r.SubjectID,
		GroupID:      r.GroupID,
		Kind:         r.Kind,
		Message:      r.Message,
		ScheduledFor: r.ScheduledFor,
		Recurring:    r.Recurring,
		Frequency:    r.Frequency,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func reminderModelToDomain(m *ReminderModel) *domain.Reminder {
	if m == nil {
		return nil
	}
	return &domain.Reminder{
		ID:           m.ID,
		SubjectID:    m.SubjectID,
		GroupID:      m.GroupID,
		Kind:         m.Kind,
		Message:      m.Message,
		ScheduledFor: m.ScheduledFor,
		Recurring:    m.Recurring,
		Frequency:    m.Frequency,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// SubscriptionModel is the persistence model for push subscriptions.
type SubscriptionModel struct {
	SubjectID string `gorm:"type:varchar(64);primaryKey"`
	Endpoint  string `gorm:"type:text;not null"`
	P256dh    string `gorm:"column:p256dh;type:text;not null"`
	Auth      string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SubscriptionModel) TableName() string { return "push_subscriptions" }

func subscriptionModelFromDomain(s *domain.Subscription) *SubscriptionModel {
	if s == nil {
		return nil
	}
	return &SubscriptionModel{
		SubjectID: s.SubjectID,
		Endpoint:  s.Endpoint,
		P256dh:    s.P256dh,
		Auth:      s.Auth,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func subscriptionModelToDomain(m *SubscriptionModel) *domain.Subscription {
	if m == nil {
		return nil
	}
	return &domain.Subscription{
		SubjectID: m.SubjectID,
		Endpoint:  m.Endpoint,
		P256dh:    m.P256dh,
		Auth:      m.Auth,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// PreferenceModel flattens per-kind opt-in flags into columns.
type PreferenceModel struct {
	SubjectID        string `gorm:"type:varchar(64);primaryKey"`
	TipEnabled       bool   `gorm:"not null;default:true"`
	ReminderEnabled  bool   `gorm:"not null;default:true"`
	CheckInEnabled   bool   `gorm:"not null;default:true"`
	EducationEnabled bool   `gorm:"not null;default:true"`
	UpdatedAt        time.Time
}

func (PreferenceModel) TableName() string { return "reminder_preferences" }

func preferenceModelFromDomain(p *domain.Preferences) *PreferenceModel {
	if p == nil {
		return nil
	}
	return &PreferenceModel{
		SubjectID:        p.SubjectID,
		TipEnabled:       p.Allows(domain.KindTip),
		ReminderEnabled:  p.Allows(domain.KindReminder),
		CheckInEnabled:   p.Allows(domain.KindCheckIn),
		EducationEnabled: p.Allows(domain.KindEducation),
		UpdatedAt:        p.UpdatedAt,
	}
}

func preferenceModelToDomain(m *PreferenceModel) *domain.Preferences {
	if m == nil {
		return nil
	}
	return &domain.Preferences{
		SubjectID: m.SubjectID,
		Enabled: map[domain.Kind]bool{
			domain.KindTip:       m.TipEnabled,
			domain.KindReminder:  m.ReminderEnabled,
			domain.KindCheckIn:   m.CheckInEnabled,
			domain.KindEducation: m.EducationEnabled,
		},
		UpdatedAt: m.UpdatedAt,
	}
}
