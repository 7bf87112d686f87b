package checklist

import "strings"

// ItemRef addresses one item for navigation, carrying its position in
// display order.
type ItemRef struct {
	SectionID    string `json:"section_id"`
	ItemID       string `json:"item_id"`
	SectionIndex int    `json:"section_index"`
	ItemIndex    int    `json:"item_index"`
}

// InvalidItems returns every item violating the required-note rule, in
// section order then item order. An item is invalid iff its state is ng and
// its note is blank. The ordering defines navigation priority: index 0 is
// the jump target after a blocked submit.
func (d Draft) InvalidItems() []ItemRef {
	var refs []ItemRef
	for si, section := range d.Sections {
		for ii, item := range section.Items {
			if item.State == StateNG && strings.TrimSpace(item.Note) == "" {
				refs = append(refs, ItemRef{
					SectionID:    section.ID,
					ItemID:       item.ID,
					SectionIndex: si,
					ItemIndex:    ii,
				})
			}
		}
	}
	return refs
}

// UnsetCount returns how many items are still at unset. Unset items do not
// block submission; they only prompt a confirmation detour.
func (d Draft) UnsetCount() int {
	count := 0
	for _, section := range d.Sections {
		for _, item := range section.Items {
			if item.State == StateUnset {
				count++
			}
		}
	}
	return count
}

// FirstUnset returns a reference to the first unset item in display order,
// or nil when every item has a state.
func (d Draft) FirstUnset() *ItemRef {
	for si, section := range d.Sections {
		for ii, item := range section.Items {
			if item.State == StateUnset {
				return &ItemRef{
					SectionID:    section.ID,
					ItemID:       item.ID,
					SectionIndex: si,
					ItemIndex:    ii,
				}
			}
		}
	}
	return nil
}
