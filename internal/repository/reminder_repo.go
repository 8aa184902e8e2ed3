package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nudgelab/reminder-engine/internal/domain"
	"gorm.io/gorm"
)

// ReminderRepository is the reminder store port. Rearm and Deactivate are
// compare-and-set operations: they apply only while the record is still
// active, so a cancel landing mid-tick wins over the scheduler's
// read-modify-write (at most one extra delivery, never a resurrection).
type ReminderRepository interface {
	Create(ctx context.Context, r *domain.Reminder) error
	CreateBatch(ctx context.Context, reminders []*domain.Reminder) error
	GetByID(ctx context.Context, id string) (*domain.Reminder, error)
	ListActiveBySubject(ctx context.Context, subjectID string) ([]domain.Reminder, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Reminder, error)
	Rearm(ctx context.Context, id string, next time.Time) (bool, error)
	Deactivate(ctx context.Context, id string) (bool, error)
	DeactivateBySubject(ctx context.Context, subjectID string) (int64, error)
}

type GormReminderRepo struct {
	db *gorm.DB
}

func NewGormReminderRepo(db *gorm.DB) *GormReminderRepo {
	return &GormReminderRepo{db: db}
}

func (r *GormReminderRepo) Create(ctx context.Context, reminder *domain.Reminder) error {
	model := reminderModelFromDomain(reminder)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if reminder != nil {
		*reminder = *reminderModelToDomain(model)
	}
	return nil
}

func (r *GormReminderRepo) CreateBatch(ctx context.Context, reminders []*domain.Reminder) error {
	models := make([]ReminderModel, 0, len(reminders))
	modelIndexes := make([]int, 0, len(reminders))
	for i, reminder := range reminders {
		model := reminderModelFromDomain(reminder)
		if model != nil {
			models = append(models, *model)
			modelIndexes = append(modelIndexes, i)
		}
	}

	if len(models) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).CreateInBatches(&models, 100).Error; err != nil {
		return err
	}

	for i := range models {
		idx := modelIndexes[i]
		if idx < len(reminders) && reminders[idx] != nil {
			*reminders[idx] = *reminderModelToDomain(&models[i])
		}
	}

	return nil
}

func (r *GormReminderRepo) GetByID(ctx context.Context, id string) (*domain.Reminder, error) {
	var model ReminderModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return reminderModelToDomain(&model), nil
}

func (r *GormReminderRepo) ListActiveBySubject(ctx context.Context, subjectID string) ([]domain.Reminder, error) {
	var models []ReminderModel
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND active = ?", subjectID, true).
		Order("scheduled_for ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	reminders := make([]domain.Reminder, 0, len(models))
	for i := range models {
		reminders = append(reminders, *reminderModelToDomain(&models[i]))
	}
	return reminders, nil
}

func (r *GormReminderRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Reminder, error) {
	var models []ReminderModel
	err := r.db.WithContext(ctx).
		Where("active = ? AND scheduled_for <= ?", true, now).
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	reminders := make([]domain.Reminder, 0, len(models))
	for i := range models {
		reminders = append(reminders, *reminderModelToDomain(&models[i]))
	}
	return reminders, nil
}

func (r *GormReminderRepo) Rearm(ctx context.Context, id string, next time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ReminderModel{}).
		Where("id = ? AND active = ?", id, true).
		Update("scheduled_for", next)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormReminderRepo) Deactivate(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ReminderModel{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormReminderRepo) DeactivateBySubject(ctx context.Context, subjectID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&ReminderModel{}).
		Where("subject_id = ? AND active = ?", subjectID, true).
		Update("active", false)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
