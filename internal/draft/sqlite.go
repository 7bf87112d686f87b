package draft

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/tenkenlab/tenken/backend/internal/checklist"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const siteSelectionRowID = "current"

// DraftRecord persists one serialized draft document.
type DraftRecord struct {
	RecordKey        string `gorm:"column:record_key;primaryKey;size:190;not null"`
	PayloadJSON      string `gorm:"column:payload_json;type:text;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (DraftRecord) TableName() string {
	return "inspection_drafts"
}

// SubmitRecord persists the submitted marker for one draft key.
type SubmitRecord struct {
	RecordKey   string `gorm:"column:record_key;primaryKey;size:190;not null"`
	SubmittedAt string `gorm:"column:submitted_at;size:64;not null"`
}

// TableName provides the explicit table binding for GORM.
func (SubmitRecord) TableName() string {
	return "submission_marks"
}

// SiteSelectionRecord persists the single-row site selection handoff.
type SiteSelectionRecord struct {
	RecordID     string `gorm:"column:record_id;primaryKey;size:32;not null"`
	Organization string `gorm:"column:organization;size:190;not null;default:''"`
	BusinessUnit string `gorm:"column:business_unit;size:190;not null;default:''"`
	Brand        string `gorm:"column:brand;size:190;not null;default:''"`
	SiteID       string `gorm:"column:site_id;size:190;not null;default:''"`
	SiteLabel    string `gorm:"column:site_label;size:190;not null;default:''"`
	BrandLabel   string `gorm:"column:brand_label;size:190;not null;default:''"`
}

// TableName provides the explicit table binding for GORM.
func (SiteSelectionRecord) TableName() string {
	return "site_selections"
}

var noOpLogger = zap.NewNop()

// SQLiteStore implements Store on a GORM SQLite handle.
type SQLiteStore struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// SQLiteStoreConfig configures a SQLiteStore.
type SQLiteStoreConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

var errMissingDatabase = errors.New("database handle is required")

// NewSQLiteStore constructs a Store backed by the provided database handle.
func NewSQLiteStore(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &SQLiteStore{db: cfg.Database, clock: clock, logger: logger}, nil
}

// Load returns the stored draft for key, repairing field-level damage via
// checklist.Draft.Normalize before handing it to the caller.
func (s *SQLiteStore) Load(ctx context.Context, key Key) (checklist.Draft, bool, error) {
	var record DraftRecord
	err := s.db.WithContext(ctx).
		Where("record_key = ?", key.String()).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return checklist.Draft{}, false, nil
	}
	if err != nil {
		return checklist.Draft{}, false, err
	}

	var doc checklist.Draft
	if err := json.Unmarshal([]byte(record.PayloadJSON), &doc); err != nil {
		// An undecodable payload is beyond field-level repair: treat it as
		// absent so the caller reseeds from the template default.
		s.logger.Warn("stored draft payload is not decodable, falling back to default",
			zap.String("record_key", key.String()),
			zap.Error(err))
		return checklist.Draft{}, false, nil
	}
	doc.Normalize()
	return doc, true, nil
}

// Save overwrites the stored draft for key.
func (s *SQLiteStore) Save(ctx context.Context, key Key, doc checklist.Draft) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	record := DraftRecord{
		RecordKey:        key.String(),
		PayloadJSON:      string(payload),
		UpdatedAtSeconds: s.clock().UTC().Unix(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "record_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload_json", "updated_at_s"}),
		}).
		Create(&record).Error
}

// Discard removes both the draft and the submitted marker for key.
func (s *SQLiteStore) Discard(ctx context.Context, key Key) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("record_key = ?", key.String()).
			Delete(&DraftRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("record_key = ?", key.MarkerKey()).
			Delete(&SubmitRecord{}).Error
	})
}

// MarkSubmitted records the completion timestamp. Future draft saves do not
// touch it; only Discard removes it.
func (s *SQLiteStore) MarkSubmitted(ctx context.Context, key Key, at time.Time) error {
	record := SubmitRecord{
		RecordKey:   key.MarkerKey(),
		SubmittedAt: at.UTC().Format(time.RFC3339),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "record_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"submitted_at"}),
		}).
		Create(&record).Error
}

// SubmittedAt returns the completion timestamp for key, if any.
func (s *SQLiteStore) SubmittedAt(ctx context.Context, key Key) (time.Time, bool, error) {
	var record SubmitRecord
	err := s.db.WithContext(ctx).
		Where("record_key = ?", key.MarkerKey()).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	at, err := time.Parse(time.RFC3339, record.SubmittedAt)
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}

// SaveSiteSelection persists the upstream site selection handoff record.
func (s *SQLiteStore) SaveSiteSelection(ctx context.Context, selection SiteSelection) error {
	record := SiteSelectionRecord{
		RecordID:     siteSelectionRowID,
		Organization: selection.Organization,
		BusinessUnit: selection.BusinessUnit,
		Brand:        selection.Brand,
		SiteID:       selection.SiteID,
		SiteLabel:    selection.SiteLabel,
		BrandLabel:   selection.BrandLabel,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "record_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"organization", "business_unit", "brand",
				"site_id", "site_label", "brand_label",
			}),
		}).
		Create(&record).Error
}

// LoadSiteSelection returns the current site selection, if any.
func (s *SQLiteStore) LoadSiteSelection(ctx context.Context) (SiteSelection, bool, error) {
	var record SiteSelectionRecord
	err := s.db.WithContext(ctx).
		Where("record_id = ?", siteSelectionRowID).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SiteSelection{}, false, nil
	}
	if err != nil {
		return SiteSelection{}, false, err
	}
	return SiteSelection{
		Organization: record.Organization,
		BusinessUnit: record.BusinessUnit,
		Brand:        record.Brand,
		SiteID:       record.SiteID,
		SiteLabel:    record.SiteLabel,
		BrandLabel:   record.BrandLabel,
	}, true, nil
}
