package database

import (
	"errors"
	"time"

	"github.com/tenkenlab/tenken/backend/internal/draft"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationRekeyLegacyMarkers = "2026-08-12_rekey_legacy_submitted_markers"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationRekeyLegacyMarkers, apply: rekeyLegacySubmittedMarkers},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Early builds wrote marker keys with a "_submitted" suffix. Rewrite them
// to the current "_submittedAt" form so SubmittedAt lookups find them.
func rekeyLegacySubmittedMarkers(db *gorm.DB) error {
	return db.Model(&draft.SubmitRecord{}).
		Where("record_key LIKE '%_submitted' AND record_key NOT LIKE '%_submittedAt'").
		Update("record_key", gorm.Expr("record_key || 'At'")).Error
}
