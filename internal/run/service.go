// Package run owns the inspection run session: it mediates every draft
// mutation through the persistence port, routes new photos through an
// annotation pass, and drives the submission flow to the submitted marker.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tenkenlab/tenken/backend/internal/checklist"
	"github.com/tenkenlab/tenken/backend/internal/draft"
	"go.uber.org/zap"
)

var (
	errMissingStore      = errors.New("draft store is required")
	errMissingTemplate   = errors.New("checklist template is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a stable operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the stable error code.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew   = "run.service.new"
	opStartRun     = "run.start"
	opSetState     = "run.set_state"
	opSetNote      = "run.set_note"
	opSetHoldNote  = "run.set_hold_note"
	opAddPhotos    = "run.add_photos"
	opRemovePhoto  = "run.remove_photo"
	opDiscard      = "run.discard"
	opBeginSubmit  = "run.begin_submit"
	opAdvance      = "run.advance_submit"
	opFinalize     = "run.finalize"
	opSelectSite   = "run.select_site"
	opResolveSite  = "run.resolve_site"
	opSubmittedAt  = "run.submitted_at"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues identifiers for new photos.
type IDProvider interface {
	NewID() (string, error)
}

// Annotator runs one photo payload through an annotation pass. The second
// result reports whether the user saved; declining is not an error and
// resolves the pending add as "no photo added".
type Annotator interface {
	Annotate(ctx context.Context, payload []byte) ([]byte, bool, error)
}

// Notifier performs the optional submission notification. Failures are
// logged and never block the submit.
type Notifier interface {
	Notify(ctx context.Context, key draft.Key, d checklist.Draft) error
}

// ServiceConfig wires the service's collaborators.
type ServiceConfig struct {
	Store      draft.Store
	Template   checklist.Template
	Annotator  Annotator
	Notifier   Notifier
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service coordinates one client's inspection runs.
type Service struct {
	store      draft.Store
	template   checklist.Template
	annotator  Annotator
	notifier   Notifier
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, "missing_store", errMissingStore)
	}
	if len(cfg.Template.Sections) == 0 {
		return nil, newServiceError(opServiceNew, "missing_template", errMissingTemplate)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		store:      cfg.Store,
		template:   cfg.Template,
		annotator:  cfg.Annotator,
		notifier:   cfg.Notifier,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// StartRun loads the draft for key, seeding and persisting the template
// default on first visit so a reload immediately after navigation finds the
// same document.
func (s *Service) StartRun(ctx context.Context, key draft.Key) (checklist.Draft, error) {
	doc, ok, err := s.store.Load(ctx, key)
	if err != nil {
		s.logError(opStartRun, "load_failed", err, zap.String("key", key.String()))
		return checklist.Draft{}, newServiceError(opStartRun, "load_failed", err)
	}
	if ok {
		return doc, nil
	}

	doc = s.template.NewDraft()
	if err := s.store.Save(ctx, key, doc); err != nil {
		s.logError(opStartRun, "seed_failed", err, zap.String("key", key.String()))
		return checklist.Draft{}, newServiceError(opStartRun, "seed_failed", err)
	}
	return doc, nil
}

// SetItemState applies the toggle transition and persists the draft.
func (s *Service) SetItemState(ctx context.Context, key draft.Key, sectionID, itemID string, next checklist.ItemState) (checklist.Draft, error) {
	return s.mutate(ctx, opSetState, key, func(doc *checklist.Draft) error {
		return doc.SetState(sectionID, itemID, next)
	})
}

// SetItemNote replaces the item's NG note and persists the draft.
func (s *Service) SetItemNote(ctx context.Context, key draft.Key, sectionID, itemID, note string) (checklist.Draft, error) {
	return s.mutate(ctx, opSetNote, key, func(doc *checklist.Draft) error {
		return doc.SetNote(sectionID, itemID, note)
	})
}

// SetItemHoldNote replaces the item's hold reason and persists the draft.
func (s *Service) SetItemHoldNote(ctx context.Context, key draft.Key, sectionID, itemID, holdNote string) (checklist.Draft, error) {
	return s.mutate(ctx, opSetHoldNote, key, func(doc *checklist.Draft) error {
		return doc.SetHoldNote(sectionID, itemID, holdNote)
	})
}

// PhotoInput is one selected file for AddPhotos.
type PhotoInput struct {
	Name   string
	Reader io.Reader
}

// AddPhotos reads each file fully, routes it through one annotation pass,
// and appends the saved results to the item. Files are processed strictly
// one at a time, so the annotation collaborator never has two photos in
// flight. A per-file read failure skips only that file; a declined
// annotation session adds no photo and is not an error. Returns the number
// of photos appended.
func (s *Service) AddPhotos(ctx context.Context, key draft.Key, sectionID, itemID string, files []PhotoInput) (int, checklist.Draft, error) {
	added := 0
	doc, err := s.mutate(ctx, opAddPhotos, key, func(doc *checklist.Draft) error {
		if _, err := doc.Item(sectionID, itemID); err != nil {
			return err
		}
		for _, file := range files {
			payload, err := io.ReadAll(file.Reader)
			if err != nil {
				s.logger.Warn("photo read failed, skipping file",
					zap.String("file", file.Name),
					zap.Error(err))
				continue
			}

			if s.annotator != nil {
				annotated, saved, err := s.annotator.Annotate(ctx, payload)
				if err != nil {
					return fmt.Errorf("annotate %s: %w", file.Name, err)
				}
				if !saved {
					continue
				}
				payload = annotated
			}

			id, err := s.idProvider.NewID()
			if err != nil {
				return err
			}
			if err := doc.AppendPhoto(sectionID, itemID, checklist.Photo{ID: id, Payload: payload}); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, checklist.Draft{}, err
	}
	return added, doc, nil
}

// RemovePhoto deletes the photo and persists the draft. Irreversible.
func (s *Service) RemovePhoto(ctx context.Context, key draft.Key, sectionID, itemID, photoID string) (checklist.Draft, error) {
	return s.mutate(ctx, opRemovePhoto, key, func(doc *checklist.Draft) error {
		return doc.RemovePhoto(sectionID, itemID, photoID)
	})
}

// Discard removes the draft and any submitted marker, returning the
// template default.
func (s *Service) Discard(ctx context.Context, key draft.Key) (checklist.Draft, error) {
	if err := s.store.Discard(ctx, key); err != nil {
		s.logError(opDiscard, "discard_failed", err, zap.String("key", key.String()))
		return checklist.Draft{}, newServiceError(opDiscard, "discard_failed", err)
	}
	return s.template.NewDraft(), nil
}

// BeginSubmit starts the submission flow over the current draft.
func (s *Service) BeginSubmit(ctx context.Context, key draft.Key) (Flow, error) {
	doc, err := s.StartRun(ctx, key)
	if err != nil {
		return Flow{}, newServiceError(opBeginSubmit, "load_failed", err)
	}
	return BeginSubmit(doc), nil
}

// AdvanceSubmit applies one decision; when the reducer lands on
// FlowSubmitting the commit phase runs immediately: re-validate required
// notes, optionally notify, then persist the submitted marker.
func (s *Service) AdvanceSubmit(ctx context.Context, key draft.Key, flow Flow, decision Decision) (Flow, error) {
	next, err := flow.Advance(decision)
	if err != nil {
		return Flow{}, newServiceError(opAdvance, "invalid_decision", err)
	}
	if next.State != FlowSubmitting {
		return next, nil
	}
	return s.finalize(ctx, key, next.Notify)
}

// finalize is the commit phase. Note edits can happen between the check
// steps and this point, so validation runs again; any violation aborts back
// to idle with the navigable error list.
func (s *Service) finalize(ctx context.Context, key draft.Key, notify bool) (Flow, error) {
	doc, err := s.StartRun(ctx, key)
	if err != nil {
		return Flow{}, newServiceError(opFinalize, "load_failed", err)
	}

	if invalid := doc.InvalidItems(); len(invalid) > 0 {
		return Flow{
			State: FlowIdle,
			Sheet: Sheet{Kind: SheetErrorList, Invalid: invalid},
		}, nil
	}

	if notify && s.notifier != nil {
		if err := s.notifier.Notify(ctx, key, doc); err != nil {
			s.logger.Warn("submission notification failed",
				zap.String("key", key.String()),
				zap.Error(err))
		}
	}

	if err := s.store.MarkSubmitted(ctx, key, s.clock().UTC()); err != nil {
		s.logError(opFinalize, "mark_failed", err, zap.String("key", key.String()))
		return Flow{}, newServiceError(opFinalize, "mark_failed", err)
	}

	return Flow{State: FlowDone, Sheet: Sheet{Kind: SheetNone}, Notify: notify}, nil
}

// SubmittedAt reports the completion timestamp for key, if any.
func (s *Service) SubmittedAt(ctx context.Context, key draft.Key) (time.Time, bool, error) {
	at, ok, err := s.store.SubmittedAt(ctx, key)
	if err != nil {
		s.logError(opSubmittedAt, "load_failed", err, zap.String("key", key.String()))
		return time.Time{}, false, newServiceError(opSubmittedAt, "load_failed", err)
	}
	return at, ok, nil
}

// SelectSite writes the upstream site selection handoff record.
func (s *Service) SelectSite(ctx context.Context, selection draft.SiteSelection) error {
	if err := s.store.SaveSiteSelection(ctx, selection); err != nil {
		s.logError(opSelectSite, "save_failed", err)
		return newServiceError(opSelectSite, "save_failed", err)
	}
	return nil
}

// ResolveSite returns the current site selection, if any.
func (s *Service) ResolveSite(ctx context.Context) (draft.SiteSelection, bool, error) {
	selection, ok, err := s.store.LoadSiteSelection(ctx)
	if err != nil {
		s.logError(opResolveSite, "load_failed", err)
		return draft.SiteSelection{}, false, newServiceError(opResolveSite, "load_failed", err)
	}
	return selection, ok, nil
}

// mutate runs one load-apply-save cycle, seeding from the template when no
// draft exists yet.
func (s *Service) mutate(ctx context.Context, operation string, key draft.Key, apply func(*checklist.Draft) error) (checklist.Draft, error) {
	doc, ok, err := s.store.Load(ctx, key)
	if err != nil {
		s.logError(operation, "load_failed", err, zap.String("key", key.String()))
		return checklist.Draft{}, newServiceError(operation, "load_failed", err)
	}
	if !ok {
		doc = s.template.NewDraft()
	}

	if err := apply(&doc); err != nil {
		s.logError(operation, "apply_failed", err, zap.String("key", key.String()))
		return checklist.Draft{}, newServiceError(operation, "apply_failed", err)
	}

	if err := s.store.Save(ctx, key, doc); err != nil {
		s.logError(operation, "save_failed", err, zap.String("key", key.String()))
		return checklist.Draft{}, newServiceError(operation, "save_failed", err)
	}
	return doc, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("run service error", attrs...)
}
