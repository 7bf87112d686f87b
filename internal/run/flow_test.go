package run

import (
	"errors"
	"testing"

	"github.com/tenkenlab/tenken/backend/internal/checklist"
)

func answeredDraft() checklist.Draft {
	return checklist.Draft{Sections: []checklist.Section{
		{
			ID: "sec-1",
			Items: []checklist.CheckItem{
				{ID: "item-1", State: checklist.StateOK, Photos: []checklist.Photo{}},
				{ID: "item-2", State: checklist.StateNA, Photos: []checklist.Photo{}},
			},
		},
	}}
}

func partiallyAnsweredDraft() checklist.Draft {
	doc := answeredDraft()
	doc.Sections[0].Items[1].State = checklist.StateUnset
	return doc
}

func TestBeginSubmitDetoursThroughUnsetWarning(t *testing.T) {
	flow := BeginSubmit(partiallyAnsweredDraft())
	if flow.State != FlowUnsetCheck {
		t.Fatalf("expected unset check, got %s", flow.State)
	}
	if flow.Sheet.Kind != SheetUnsetWarning {
		t.Fatalf("expected unset warning sheet, got %s", flow.Sheet.Kind)
	}
	if flow.Sheet.UnsetCount != 1 {
		t.Fatalf("expected 1 unset item, got %d", flow.Sheet.UnsetCount)
	}
	if flow.Sheet.FirstUnset == nil || flow.Sheet.FirstUnset.ItemID != "item-2" {
		t.Fatalf("expected first unset item-2, got %#v", flow.Sheet.FirstUnset)
	}
}

func TestBeginSubmitSkipsToNotifyCheckWhenFullyAnswered(t *testing.T) {
	flow := BeginSubmit(answeredDraft())
	if flow.State != FlowNotifyCheck {
		t.Fatalf("expected notify check, got %s", flow.State)
	}
	if flow.Sheet.Kind != SheetNotifyChoice {
		t.Fatalf("expected notify sheet, got %s", flow.Sheet.Kind)
	}
}

func TestAdvanceTransitionTable(t *testing.T) {
	tests := []struct {
		name       string
		from       FlowState
		decision   Decision
		wantState  FlowState
		wantNotify bool
		wantErr    bool
	}{
		{name: "unset-jump", from: FlowUnsetCheck, decision: DecisionJumpToUnset, wantState: FlowIdle},
		{name: "unset-proceed", from: FlowUnsetCheck, decision: DecisionProceed, wantState: FlowNotifyCheck},
		{name: "unset-cancel", from: FlowUnsetCheck, decision: DecisionCancel, wantState: FlowIdle},
		{name: "unset-bad-decision", from: FlowUnsetCheck, decision: DecisionSubmitSilent, wantErr: true},
		{name: "notify-with", from: FlowNotifyCheck, decision: DecisionSubmitWithNotify, wantState: FlowSubmitting, wantNotify: true},
		{name: "notify-silent", from: FlowNotifyCheck, decision: DecisionSubmitSilent, wantState: FlowSubmitting},
		{name: "notify-cancel", from: FlowNotifyCheck, decision: DecisionCancel, wantState: FlowIdle},
		{name: "notify-bad-decision", from: FlowNotifyCheck, decision: DecisionProceed, wantErr: true},
		{name: "idle-rejects-everything", from: FlowIdle, decision: DecisionProceed, wantErr: true},
		{name: "done-rejects-everything", from: FlowDone, decision: DecisionCancel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Flow{State: tt.from}.Advance(tt.decision)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDecision) {
					t.Fatalf("expected ErrInvalidDecision, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if next.State != tt.wantState {
				t.Fatalf("expected state %s, got %s", tt.wantState, next.State)
			}
			if next.Notify != tt.wantNotify {
				t.Fatalf("notify mismatch, want %v got %v", tt.wantNotify, next.Notify)
			}
		})
	}
}

func TestAdvanceJumpCarriesCursor(t *testing.T) {
	flow := BeginSubmit(partiallyAnsweredDraft())
	next, err := flow.Advance(DecisionJumpToUnset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Cursor == nil || next.Cursor.ItemID != "item-2" {
		t.Fatalf("expected cursor on item-2, got %#v", next.Cursor)
	}
	if next.Sheet.Kind != SheetNone {
		t.Fatalf("jump should close the sheet, got %s", next.Sheet.Kind)
	}
}
