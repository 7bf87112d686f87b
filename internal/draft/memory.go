package draft

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/tenkenlab/tenken/backend/internal/checklist"
)

// MemoryStore implements Store on an in-process map. It round-trips drafts
// through JSON so callers observe exactly the same serialization behavior
// as the SQLite store.
type MemoryStore struct {
	mu        sync.Mutex
	drafts    map[string]string
	markers   map[string]time.Time
	selection *SiteSelection
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drafts:  map[string]string{},
		markers: map[string]time.Time{},
	}
}

// Load returns the stored draft for key.
func (s *MemoryStore) Load(_ context.Context, key Key) (checklist.Draft, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, ok := s.drafts[key.String()]
	if !ok {
		return checklist.Draft{}, false, nil
	}
	var doc checklist.Draft
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return checklist.Draft{}, false, nil
	}
	doc.Normalize()
	return doc, true, nil
}

// Save overwrites the stored draft for key.
func (s *MemoryStore) Save(_ context.Context, key Key, doc checklist.Draft) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[key.String()] = string(payload)
	return nil
}

// Discard removes both the draft and the submitted marker for key.
func (s *MemoryStore) Discard(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key.String())
	delete(s.markers, key.MarkerKey())
	return nil
}

// MarkSubmitted records the completion timestamp for key.
func (s *MemoryStore) MarkSubmitted(_ context.Context, key Key, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[key.MarkerKey()] = at.UTC().Truncate(time.Second)
	return nil
}

// SubmittedAt returns the completion timestamp for key, if any.
func (s *MemoryStore) SubmittedAt(_ context.Context, key Key) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.markers[key.MarkerKey()]
	return at, ok, nil
}

// SaveSiteSelection persists the site selection handoff.
func (s *MemoryStore) SaveSiteSelection(_ context.Context, selection SiteSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = &selection
	return nil
}

// LoadSiteSelection returns the current site selection, if any.
func (s *MemoryStore) LoadSiteSelection(_ context.Context) (SiteSelection, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		return SiteSelection{}, false, nil
	}
	return *s.selection, true, nil
}
