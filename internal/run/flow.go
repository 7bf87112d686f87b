package run

import (
	"errors"
	"fmt"

	"github.com/tenkenlab/tenken/backend/internal/checklist"
)

// FlowState enumerates the submission flow's positions.
type FlowState string

const (
	// FlowIdle is the resting state, before a submit attempt or after a
	// cancel or validation failure.
	FlowIdle FlowState = "idle"
	// FlowUnsetCheck presents the soft warning about unanswered items.
	FlowUnsetCheck FlowState = "unset_check"
	// FlowNotifyCheck presents the notification choice.
	FlowNotifyCheck FlowState = "notify_check"
	// FlowSubmitting is the transient commit phase.
	FlowSubmitting FlowState = "submitting"
	// FlowDone is reached after the submitted marker is persisted.
	FlowDone FlowState = "done"
)

// SheetKind discriminates the single pending confirmation sheet. Exactly
// one sheet can be active at a time; nested boolean flags are deliberately
// not modeled.
type SheetKind string

const (
	// SheetNone means no sheet is open.
	SheetNone SheetKind = "none"
	// SheetUnsetWarning offers jump-to-first-unset or proceed-anyway.
	SheetUnsetWarning SheetKind = "unset_warning"
	// SheetNotifyChoice offers submit with/without notification or cancel.
	SheetNotifyChoice SheetKind = "notify_choice"
	// SheetErrorList surfaces the navigable required-note violations.
	SheetErrorList SheetKind = "error_list"
)

// Sheet is the pending-action value: the kind plus whichever payload that
// kind carries.
type Sheet struct {
	Kind       SheetKind           `json:"kind"`
	UnsetCount int                 `json:"unset_count,omitempty"`
	FirstUnset *checklist.ItemRef  `json:"first_unset,omitempty"`
	Invalid    []checklist.ItemRef `json:"invalid,omitempty"`
}

// Decision enumerates the user's answer to the active sheet.
type Decision string

const (
	// DecisionJumpToUnset closes the unset warning and moves the cursor to
	// the first unanswered item.
	DecisionJumpToUnset Decision = "jump_to_unset"
	// DecisionProceed acknowledges the unset warning and continues.
	DecisionProceed Decision = "proceed"
	// DecisionCancel abandons the flow from either check step.
	DecisionCancel Decision = "cancel"
	// DecisionSubmitWithNotify commits and fires the notification.
	DecisionSubmitWithNotify Decision = "submit_with_notify"
	// DecisionSubmitSilent commits without the notification.
	DecisionSubmitSilent Decision = "submit_silent"
)

// Flow is the submission flow value. Cursor, when set, tells the UI where
// to navigate. Notify records the notification choice for the commit phase.
type Flow struct {
	State  FlowState          `json:"state"`
	Sheet  Sheet              `json:"sheet"`
	Cursor *checklist.ItemRef `json:"cursor,omitempty"`
	Notify bool               `json:"notify"`
}

// ErrInvalidDecision indicates a decision that the current flow state does
// not accept.
var ErrInvalidDecision = errors.New("run: decision not valid in current flow state")

// BeginSubmit starts the flow from idle: drafts with unanswered items
// detour through the unset warning, fully answered drafts go straight to
// the notification choice. Validation errors are deliberately not surfaced
// here — they appear only when the commit phase re-validates, so inline
// error indicators stay hidden until a real submit attempt.
func BeginSubmit(d checklist.Draft) Flow {
	if unset := d.UnsetCount(); unset > 0 {
		return Flow{
			State: FlowUnsetCheck,
			Sheet: Sheet{
				Kind:       SheetUnsetWarning,
				UnsetCount: unset,
				FirstUnset: d.FirstUnset(),
			},
		}
	}
	return Flow{State: FlowNotifyCheck, Sheet: Sheet{Kind: SheetNotifyChoice}}
}

// Advance applies one decision to the flow. Reaching FlowSubmitting is the
// caller's cue to run the commit phase (re-validation, optional
// notification, marker write); the reducer itself stays pure.
func (f Flow) Advance(decision Decision) (Flow, error) {
	switch f.State {
	case FlowUnsetCheck:
		switch decision {
		case DecisionJumpToUnset:
			return Flow{State: FlowIdle, Sheet: Sheet{Kind: SheetNone}, Cursor: f.Sheet.FirstUnset}, nil
		case DecisionProceed:
			return Flow{State: FlowNotifyCheck, Sheet: Sheet{Kind: SheetNotifyChoice}}, nil
		case DecisionCancel:
			return Flow{State: FlowIdle, Sheet: Sheet{Kind: SheetNone}}, nil
		}
	case FlowNotifyCheck:
		switch decision {
		case DecisionSubmitWithNotify:
			return Flow{State: FlowSubmitting, Sheet: Sheet{Kind: SheetNone}, Notify: true}, nil
		case DecisionSubmitSilent:
			return Flow{State: FlowSubmitting, Sheet: Sheet{Kind: SheetNone}}, nil
		case DecisionCancel:
			return Flow{State: FlowIdle, Sheet: Sheet{Kind: SheetNone}}, nil
		}
	}
	return Flow{}, fmt.Errorf("%w: %s in %s", ErrInvalidDecision, decision, f.State)
}
