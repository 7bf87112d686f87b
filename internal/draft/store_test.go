package draft

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/tenkenlab/tenken/backend/internal/checklist"
	"gorm.io/gorm"
)

func newTestSQLiteStore(t *testing.T) (*SQLiteStore, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:tenken_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&DraftRecord{}, &SubmitRecord{}, &SiteSelectionRecord{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	store, err := NewSQLiteStore(SQLiteStoreConfig{
		Database: db,
		Clock:    func() time.Time { return time.Unix(1700000600, 0).UTC() },
	})
	if err != nil {
		t.Fatalf("failed to construct store: %v", err)
	}
	return store, db
}

func sampleDraft() checklist.Draft {
	return checklist.Draft{Sections: []checklist.Section{
		{
			ID:    "sec-entrance",
			Title: "入口",
			Items: []checklist.CheckItem{
				{
					ID:    "item-1",
					Label: "入口まわりの清掃",
					State: checklist.StateNG,
					Note:  "ゴミが散乱",
					Photos: []checklist.Photo{
						{ID: "p1", Payload: []byte{0xff, 0xd8, 0x01}},
					},
				},
				{ID: "item-2", Label: "看板の点灯", State: checklist.StateHold, HoldNote: "要確認", Photos: []checklist.Photo{}},
			},
		},
	}}
}

func forEachStore(t *testing.T, run func(t *testing.T, store Store)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) {
		store, _ := newTestSQLiteStore(t)
		run(t, store)
	})
	t.Run("memory", func(t *testing.T) {
		run(t, NewMemoryStore())
	})
}

func TestStoreRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		key := Key{Organization: "c001", BusinessUnit: "b001", Brand: "br002", Site: "S002"}

		if _, ok, err := store.Load(ctx, key); err != nil || ok {
			t.Fatalf("expected empty store, ok=%v err=%v", ok, err)
		}

		doc := sampleDraft()
		if err := store.Save(ctx, key, doc); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		// Saving twice must be idempotent: last writer wins, no merge.
		if err := store.Save(ctx, key, doc); err != nil {
			t.Fatalf("second save failed: %v", err)
		}

		loaded, ok, err := store.Load(ctx, key)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if !ok {
			t.Fatalf("expected stored draft")
		}
		if !reflect.DeepEqual(loaded, doc) {
			t.Fatalf("round trip mismatch:\nstored %#v\nloaded %#v", doc, loaded)
		}
	})
}

func TestStoreKeyIsolation(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		keyA := Key{Organization: "c001", BusinessUnit: "b001", Brand: "br002", Site: "S002"}
		keyB := Key{Organization: "c001", BusinessUnit: "b001", Brand: "br002", Site: "S003"}

		if err := store.Save(ctx, keyA, sampleDraft()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if _, ok, err := store.Load(ctx, keyB); err != nil || ok {
			t.Fatalf("sibling key should be empty, ok=%v err=%v", ok, err)
		}
	})
}

func TestStoreSubmittedMarkerLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		key := Key{Organization: "c001", BusinessUnit: "b001", Brand: "br002", Site: "S002"}
		at := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)

		if _, ok, err := store.SubmittedAt(ctx, key); err != nil || ok {
			t.Fatalf("expected no marker, ok=%v err=%v", ok, err)
		}

		if err := store.MarkSubmitted(ctx, key, at); err != nil {
			t.Fatalf("mark failed: %v", err)
		}
		got, ok, err := store.SubmittedAt(ctx, key)
		if err != nil || !ok {
			t.Fatalf("expected marker, ok=%v err=%v", ok, err)
		}
		if !got.Equal(at) {
			t.Fatalf("expected %v, got %v", at, got)
		}

		// Saving the draft again must not disturb the marker.
		if err := store.Save(ctx, key, sampleDraft()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if _, ok, _ := store.SubmittedAt(ctx, key); !ok {
			t.Fatalf("marker should survive draft saves")
		}

		if err := store.Discard(ctx, key); err != nil {
			t.Fatalf("discard failed: %v", err)
		}
		if _, ok, _ := store.Load(ctx, key); ok {
			t.Fatalf("draft should be gone after discard")
		}
		if _, ok, _ := store.SubmittedAt(ctx, key); ok {
			t.Fatalf("marker should be gone after discard")
		}
	})
}

func TestStoreSiteSelectionHandoff(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		if _, ok, err := store.LoadSiteSelection(ctx); err != nil || ok {
			t.Fatalf("expected no selection, ok=%v err=%v", ok, err)
		}

		selection := SiteSelection{
			Organization: "c001",
			BusinessUnit: "b001",
			Brand:        "br002",
			SiteID:       "S002",
			SiteLabel:    "渋谷店",
			BrandLabel:   "ブランドB",
		}
		if err := store.SaveSiteSelection(ctx, selection); err != nil {
			t.Fatalf("save selection failed: %v", err)
		}

		// A later choice replaces the handoff record outright.
		selection.SiteID = "S003"
		selection.SiteLabel = "新宿店"
		if err := store.SaveSiteSelection(ctx, selection); err != nil {
			t.Fatalf("second save failed: %v", err)
		}

		loaded, ok, err := store.LoadSiteSelection(ctx)
		if err != nil || !ok {
			t.Fatalf("expected selection, ok=%v err=%v", ok, err)
		}
		if loaded != selection {
			t.Fatalf("expected %#v, got %#v", selection, loaded)
		}
	})
}

func TestSQLiteStoreRepairsLegacyPayload(t *testing.T) {
	store, db := newTestSQLiteStore(t)
	ctx := context.Background()
	key := Key{Organization: "c001", BusinessUnit: "b001", Brand: "br002", Site: "S002"}

	// Legacy payload predating the holdNote and photos fields.
	legacy := `{"sections":[{"id":"sec-1","title":"入口","items":[{"id":"item-1","label":"清掃","state":"ng"}]}]}`
	record := DraftRecord{RecordKey: key.String(), PayloadJSON: legacy, UpdatedAtSeconds: 1}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	doc, ok, err := store.Load(ctx, key)
	if err != nil || !ok {
		t.Fatalf("load failed, ok=%v err=%v", ok, err)
	}
	item := doc.Sections[0].Items[0]
	if item.Photos == nil {
		t.Fatalf("missing photos field should repair to empty slice")
	}
	if item.Note != "" || item.HoldNote != "" {
		t.Fatalf("missing note fields should default to empty strings")
	}
	if item.State != checklist.StateNG {
		t.Fatalf("stored state should be preserved, got %s", item.State)
	}
}

func TestSQLiteStoreFallsBackOnUndecodablePayload(t *testing.T) {
	store, db := newTestSQLiteStore(t)
	ctx := context.Background()
	key := Key{Organization: "c001", BusinessUnit: "b001", Brand: "br002", Site: "S002"}

	record := DraftRecord{RecordKey: key.String(), PayloadJSON: "{not json", UpdatedAtSeconds: 1}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// A payload beyond repair reads as absent, so the caller reseeds from
	// the template default instead of wedging every operation on the key.
	_, ok, err := store.Load(ctx, key)
	if err != nil {
		t.Fatalf("load should not fail on an undecodable payload: %v", err)
	}
	if ok {
		t.Fatal("undecodable payload must read as absent")
	}

	// The key is still writable afterwards.
	if err := store.Save(ctx, key, sampleDraft()); err != nil {
		t.Fatalf("save after fallback failed: %v", err)
	}
	doc, ok, err := store.Load(ctx, key)
	if err != nil || !ok {
		t.Fatalf("reload failed, ok=%v err=%v", ok, err)
	}
	if len(doc.Sections) == 0 {
		t.Fatal("expected saved draft after fallback")
	}
}
