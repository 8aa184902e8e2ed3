package repository

import (
	"context"
	"errors"

	"github.com/nudgelab/reminder-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceRepository stores per-subject reminder opt-in flags.
// GetBySubject returns ErrNotFound when no row exists; callers treat that
// as all kinds enabled.
type PreferenceRepository interface {
	Put(ctx context.Context, prefs *domain.Preferences) error
	GetBySubject(ctx context.Context, subjectID string) (*domain.Preferences, error)
}

type GormPreferenceRepo struct {
	db *gorm.DB
}

func NewGormPreferenceRepo(db *gorm.DB) *GormPreferenceRepo {
	return &GormPreferenceRepo{db: db}
}

func (r *GormPreferenceRepo) Put(ctx context.Context, prefs *domain.Preferences) error {
	model := preferenceModelFromDomain(prefs)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "subject_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"tip_enabled", "reminder_enabled", "check_in_enabled", "education_enabled", "updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}
	if prefs != nil {
		*prefs = *preferenceModelToDomain(model)
	}
	return nil
}

func (r *GormPreferenceRepo) GetBySubject(ctx context.Context, subjectID string) (*domain.Preferences, error) {
	var model PreferenceModel
	err := r.db.WithContext(ctx).First(&model, "subject_id = ?", subjectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return preferenceModelToDomain(&model), nil
}
