package database

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/tenkenlab/tenken/backend/internal/draft"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:tenken_db_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&draft.DraftRecord{}, &draft.SubmitRecord{}, &migrationRecord{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	var count int64
	if err := db.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one ledger row, got %d", count)
	}
}

func TestRekeyLegacySubmittedMarkers(t *testing.T) {
	db := newTestDB(t)

	legacy := draft.SubmitRecord{RecordKey: "draft_c001_b001_br002_S002_submitted", SubmittedAt: "2026-08-01T09:00:00Z"}
	current := draft.SubmitRecord{RecordKey: "draft_c001_b001_br002_S003_submittedAt", SubmittedAt: "2026-08-02T09:00:00Z"}
	if err := db.Create(&legacy).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := db.Create(&current).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	var rekeyed draft.SubmitRecord
	if err := db.Where("record_key = ?", "draft_c001_b001_br002_S002_submittedAt").Take(&rekeyed).Error; err != nil {
		t.Fatalf("legacy marker was not rekeyed: %v", err)
	}
	var untouched draft.SubmitRecord
	if err := db.Where("record_key = ?", current.RecordKey).Take(&untouched).Error; err != nil {
		t.Fatalf("current marker should be untouched: %v", err)
	}
}
