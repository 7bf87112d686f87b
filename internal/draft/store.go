// Package draft provides the persistence port for inspection run drafts:
// load, save, discard, and the submitted marker, keyed by the composite
// site identity. The core never touches storage directly; it talks to the
// Store interface, backed either by SQLite or an in-memory map.
package draft

import (
	"context"
	"time"

	"github.com/tenkenlab/tenken/backend/internal/checklist"
)

// Store is the persistence port for one client's drafts. Save is a plain
// overwrite: there is exactly one writer per key, last writer wins.
// MarkSubmitted writes an independent record sharing the key prefix; only
// Discard removes it.
type Store interface {
	// Load returns the stored draft for key. The second result is false
	// when no draft exists.
	Load(ctx context.Context, key Key) (checklist.Draft, bool, error)
	// Save overwrites the stored draft for key.
	Save(ctx context.Context, key Key, doc checklist.Draft) error
	// Discard removes the draft and any submitted marker for key.
	Discard(ctx context.Context, key Key) error
	// MarkSubmitted records the completion timestamp for key.
	MarkSubmitted(ctx context.Context, key Key, at time.Time) error
	// SubmittedAt returns the completion timestamp for key, if any.
	SubmittedAt(ctx context.Context, key Key) (time.Time, bool, error)
	// SaveSiteSelection persists the upstream site selection handoff.
	SaveSiteSelection(ctx context.Context, selection SiteSelection) error
	// LoadSiteSelection returns the current site selection, if any.
	LoadSiteSelection(ctx context.Context) (SiteSelection, bool, error)
}
