package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/nudgelab/reminder-engine/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createRemindersTable(),
		createPushSubscriptionsTable(),
		createReminderPreferencesTable(),
	})

	return m.Migrate()
}

func createRemindersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_reminders",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ReminderModel{}); err != nil {
				return err
			}
			indexes := []string{
				// Partial index backing the due scan: only active rows,
				// ordered by fire time.
				`CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders (scheduled_for) WHERE active`,
				`CREATE INDEX IF NOT EXISTS idx_reminders_subject_active ON reminders (subject_id) WHERE active`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ReminderModel{})
		},
	}
}

func createPushSubscriptionsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_push_subscriptions",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.SubscriptionModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SubscriptionModel{})
		},
	}
}

func createReminderPreferencesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_reminder_preferences",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.PreferenceModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.PreferenceModel{})
		},
	}
}
