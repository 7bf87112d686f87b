package checklist

import "testing"

func TestInvalidItemsOrderedByDisplayOrder(t *testing.T) {
	draft := testDraft()
	// item-3 made invalid before item-1 to prove ordering is positional,
	// not chronological.
	if err := draft.SetState("sec-floor", "item-3", StateNG); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if err := draft.SetState("sec-entrance", "item-1", StateNG); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	invalid := draft.InvalidItems()
	if len(invalid) != 2 {
		t.Fatalf("expected 2 invalid items, got %d", len(invalid))
	}
	if invalid[0].ItemID != "item-1" || invalid[0].SectionIndex != 0 {
		t.Fatalf("expected item-1 first, got %#v", invalid[0])
	}
	if invalid[1].ItemID != "item-3" || invalid[1].SectionIndex != 1 {
		t.Fatalf("expected item-3 second, got %#v", invalid[1])
	}
}

func TestInvalidItemsRequiresNonBlankNote(t *testing.T) {
	tests := []struct {
		name        string
		state       ItemState
		note        string
		wantInvalid bool
	}{
		{name: "ng-without-note", state: StateNG, note: "", wantInvalid: true},
		{name: "ng-whitespace-note", state: StateNG, note: "   \t", wantInvalid: true},
		{name: "ng-with-note", state: StateNG, note: "ゴミが散乱", wantInvalid: false},
		{name: "ok-without-note", state: StateOK, note: "", wantInvalid: false},
		{name: "hold-without-note", state: StateHold, note: "", wantInvalid: false},
		{name: "na-without-note", state: StateNA, note: "", wantInvalid: false},
		{name: "unset", state: StateUnset, note: "", wantInvalid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := testDraft()
			if tt.state != StateUnset {
				if err := draft.SetState("sec-entrance", "item-1", tt.state); err != nil {
					t.Fatalf("transition failed: %v", err)
				}
			}
			if err := draft.SetNote("sec-entrance", "item-1", tt.note); err != nil {
				t.Fatalf("set note failed: %v", err)
			}
			invalid := draft.InvalidItems()
			if tt.wantInvalid && len(invalid) != 1 {
				t.Fatalf("expected 1 invalid item, got %d", len(invalid))
			}
			if !tt.wantInvalid && len(invalid) != 0 {
				t.Fatalf("expected no invalid items, got %#v", invalid)
			}
		})
	}
}

func TestUnsetCountAndFirstUnset(t *testing.T) {
	draft := testDraft()
	if draft.UnsetCount() != 3 {
		t.Fatalf("fresh draft should have 3 unset items, got %d", draft.UnsetCount())
	}
	first := draft.FirstUnset()
	if first == nil || first.ItemID != "item-1" {
		t.Fatalf("expected item-1 as first unset, got %#v", first)
	}

	if err := draft.SetState("sec-entrance", "item-1", StateOK); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if draft.UnsetCount() != 2 {
		t.Fatalf("expected 2 unset items, got %d", draft.UnsetCount())
	}
	first = draft.FirstUnset()
	if first == nil || first.ItemID != "item-2" {
		t.Fatalf("expected item-2 as first unset, got %#v", first)
	}

	if err := draft.SetState("sec-entrance", "item-2", StateNA); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if err := draft.SetState("sec-floor", "item-3", StateOK); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if draft.UnsetCount() != 0 {
		t.Fatalf("expected no unset items, got %d", draft.UnsetCount())
	}
	if draft.FirstUnset() != nil {
		t.Fatalf("expected nil first unset on a fully answered draft")
	}
}

func TestParseItemState(t *testing.T) {
	tests := []struct {
		raw     string
		want    ItemState
		wantErr bool
	}{
		{raw: "ok", want: StateOK},
		{raw: " NG ", want: StateNG},
		{raw: "Hold", want: StateHold},
		{raw: "na", want: StateNA},
		{raw: "unset", want: StateUnset},
		{raw: "done", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			state, err := ParseItemState(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if state != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, state)
			}
		})
	}
}
