package checklist

import (
	"errors"
	"fmt"
	"strings"
)

// ItemState enumerates the inspection outcome of a single check item.
type ItemState string

const (
	// StateUnset is the initial state and the result of toggling a state off.
	StateUnset ItemState = "unset"
	// StateOK marks an item as passing.
	StateOK ItemState = "ok"
	// StateHold marks an item as pending a decision; the hold reason lives in HoldNote.
	StateHold ItemState = "hold"
	// StateNG marks an item as failing; Note is required before submission.
	StateNG ItemState = "ng"
	// StateNA marks an item as not applicable to this site.
	StateNA ItemState = "na"
)

// String returns the string representation of the state.
func (s ItemState) String() string {
	return string(s)
}

// IsValid reports whether the state is a recognized value.
func (s ItemState) IsValid() bool {
	switch s {
	case StateUnset, StateOK, StateHold, StateNG, StateNA:
		return true
	}
	return false
}

// ParseItemState validates raw input and returns the matching ItemState.
func ParseItemState(raw string) (ItemState, error) {
	state := ItemState(strings.ToLower(strings.TrimSpace(raw)))
	if !state.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownState, raw)
	}
	return state, nil
}

var (
	// ErrUnknownState indicates a state string outside the enumerated set.
	ErrUnknownState = errors.New("checklist: unknown item state")
	// ErrItemNotFound indicates that no item matches the given section/item ids.
	ErrItemNotFound = errors.New("checklist: item not found")
	// ErrPhotoNotFound indicates that no photo matches the given photo id.
	ErrPhotoNotFound = errors.New("checklist: photo not found")
)

// Photo is one captured evidence image owned by exactly one check item.
// Payload holds the encoded image bytes, annotated or original.
type Photo struct {
	ID      string `json:"id"`
	Payload []byte `json:"dataUrl"`
}

// CheckItem is one leaf entry of the checklist.
//
// Note carries the failure description and is required while State is ng.
// HoldNote carries the hold reason and is only surfaced while State is hold.
// The two fields are mutually exclusive in effect, keyed by the current state.
type CheckItem struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	State    ItemState `json:"state"`
	Note     string    `json:"note"`
	HoldNote string    `json:"holdNote"`
	Photos   []Photo   `json:"photos"`
}

// Section groups check items; slice order is display order.
type Section struct {
	ID    string      `json:"id"`
	Title string      `json:"title"`
	Items []CheckItem `json:"items"`
}

// Draft is the full in-progress state of one inspection run.
type Draft struct {
	Sections []Section `json:"sections"`
}

// Item returns a pointer to the addressed item, or ErrItemNotFound.
func (d *Draft) Item(sectionID, itemID string) (*CheckItem, error) {
	for si := range d.Sections {
		if d.Sections[si].ID != sectionID {
			continue
		}
		for ii := range d.Sections[si].Items {
			if d.Sections[si].Items[ii].ID == itemID {
				return &d.Sections[si].Items[ii], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrItemNotFound, sectionID, itemID)
}

// Clone returns a deep copy of the draft. Mutating the copy never touches
// the receiver, including photo payloads.
func (d Draft) Clone() Draft {
	sections := make([]Section, len(d.Sections))
	for si, section := range d.Sections {
		items := make([]CheckItem, len(section.Items))
		for ii, item := range section.Items {
			photos := make([]Photo, len(item.Photos))
			for pi, photo := range item.Photos {
				payload := make([]byte, len(photo.Payload))
				copy(payload, photo.Payload)
				photos[pi] = Photo{ID: photo.ID, Payload: payload}
			}
			item.Photos = photos
			items[ii] = item
		}
		section.Items = items
		sections[si] = section
	}
	return Draft{Sections: sections}
}

// Normalize repairs a draft deserialized from storage: nil photo slices
// become empty, and unknown state strings fall back to unset. Stored drafts
// may predate added fields, so missing data is defaulted rather than
// rejected.
func (d *Draft) Normalize() {
	for si := range d.Sections {
		section := &d.Sections[si]
		if section.Items == nil {
			section.Items = []CheckItem{}
		}
		for ii := range section.Items {
			item := &section.Items[ii]
			if !item.State.IsValid() {
				item.State = StateUnset
			}
			if item.Photos == nil {
				item.Photos = []Photo{}
			}
		}
	}
}
