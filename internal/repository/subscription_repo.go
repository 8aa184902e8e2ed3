package repository

import (
	"context"
	"errors"

	"github.com/nudgelab/reminder-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionRepository stores one push subscription per subject,
// last write wins.
type SubscriptionRepository interface {
	Put(ctx context.Context, sub *domain.Subscription) error
	GetBySubject(ctx context.Context, subjectID string) (*domain.Subscription, error)
	Delete(ctx context.Context, subjectID string) error
}

type GormSubscriptionRepo struct {
	db *gorm.DB
}

func NewGormSubscriptionRepo(db *gorm.DB) *GormSubscriptionRepo {
	return &GormSubscriptionRepo{db: db}
}

func (r *GormSubscriptionRepo) Put(ctx context.Context, sub *domain.Subscription) error {
	model := subscriptionModelFromDomain(sub)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"endpoint", "p256dh", "auth", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}
	if sub != nil {
		*sub = *subscriptionModelToDomain(model)
	}
	return nil
}

func (r *GormSubscriptionRepo) GetBySubject(ctx context.Context, subjectID string) (*domain.Subscription, error) {
	var model SubscriptionModel
	err := r.db.WithContext(ctx).First(&model, "subject_id = ?", subjectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return subscriptionModelToDomain(&model), nil
}

func (r *GormSubscriptionRepo) Delete(ctx context.Context, subjectID string) error {
	result := r.db.WithContext(ctx).Delete(&SubscriptionModel{}, "subject_id = ?", subjectID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
