package checklist

// SetState applies the state transition rule to the addressed item: if the
// current state already equals next the item toggles back to unset,
// otherwise it transitions to next. Entering hold clears Note — a hold item
// never carries an NG-style note. HoldNote is never cleared by a
// transition. There are no cross-item effects.
func (d *Draft) SetState(sectionID, itemID string, next ItemState) error {
	item, err := d.Item(sectionID, itemID)
	if err != nil {
		return err
	}

	if item.State == next {
		item.State = StateUnset
		return nil
	}

	item.State = next
	if next == StateHold {
		item.Note = ""
	}
	return nil
}

// SetNote unconditionally replaces the item's NG note.
func (d *Draft) SetNote(sectionID, itemID, note string) error {
	item, err := d.Item(sectionID, itemID)
	if err != nil {
		return err
	}
	item.Note = note
	return nil
}

// SetHoldNote unconditionally replaces the item's hold reason.
func (d *Draft) SetHoldNote(sectionID, itemID, holdNote string) error {
	item, err := d.Item(sectionID, itemID)
	if err != nil {
		return err
	}
	item.HoldNote = holdNote
	return nil
}

// AppendPhoto appends a photo to the addressed item.
func (d *Draft) AppendPhoto(sectionID, itemID string, photo Photo) error {
	item, err := d.Item(sectionID, itemID)
	if err != nil {
		return err
	}
	item.Photos = append(item.Photos, photo)
	return nil
}

// RemovePhoto deletes the addressed photo. Removal is irreversible: the
// payload is owned exclusively by the item and is not retained anywhere
// else.
func (d *Draft) RemovePhoto(sectionID, itemID, photoID string) error {
	item, err := d.Item(sectionID, itemID)
	if err != nil {
		return err
	}
	for pi := range item.Photos {
		if item.Photos[pi].ID == photoID {
			item.Photos = append(item.Photos[:pi], item.Photos[pi+1:]...)
			return nil
		}
	}
	return ErrPhotoNotFound
}
