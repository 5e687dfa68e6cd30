package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"supplierflow/internal/completeness"
	"supplierflow/internal/effects"
	"supplierflow/internal/matcher"
	"supplierflow/internal/review"
	"supplierflow/internal/submission/models"
	"supplierflow/internal/submission/store"
	"supplierflow/internal/workflow"
	id "supplierflow/pkg/domain"
	dErrors "supplierflow/pkg/domain-errors"
	"supplierflow/pkg/requestcontext"
)

// CreateRequest opens a new draft.
type CreateRequest struct {
	SubmittedBy     string
	Fields          models.RequesterFields
	Documents       models.Documents
	AlembaReference string
}

// AmendRequest replaces the requester's answers and uploads.
type AmendRequest struct {
	Fields    models.RequesterFields
	Documents models.Documents
}

// Result is a saved transition.
type Result struct {
	Submission *models.Submission
	Effects    []effects.Effect
	Screening  *matcher.Report
}

// Create stores a new draft. SubmittedBy falls back to the request actor.
func (s *Service) Create(ctx context.Context, req CreateRequest) (sub *models.Submission, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "submission.create")
	defer func() { s.end(span, "create", err, start) }()

	submittedBy := strings.TrimSpace(req.SubmittedBy)
	if submittedBy == "" {
		submittedBy = requestcontext.Actor(ctx)
	}
	fields := req.Fields.Clone()
	fields.Financial.BankFingerprint = ""

	draft, err := models.NewDraft(id.NewSubmissionID(), submittedBy, fields, req.Documents, strings.TrimSpace(req.AlembaReference), requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("submission.id", draft.ID.String()))

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sealed, err := s.sealer.Seal(txCtx, draft)
		if err != nil {
			return err
		}
		if err := s.store.Create(txCtx, sealed); err != nil {
			return err
		}
		return s.store.AppendIndex(txCtx, draft.IndexEntry())
	})
	if err != nil {
		if discardErr := s.sealer.Discard(context.WithoutCancel(ctx), draft.ID); discardErr != nil {
			s.logger.WarnContext(ctx, "failed to discard bank details", "submission_id", draft.ID, "error", discardErr)
		}
		return nil, translate(err, "create submission")
	}

	s.metrics.IncrementStatusEntered(string(draft.Status))
	s.logger.InfoContext(ctx, "submission created",
		"submission_id", draft.ID,
		"submitted_by", draft.SubmittedBy,
		"request_id", requestcontext.RequestID(ctx),
	)
	return draft, nil
}

// Get returns the submission with its bank details restored.
func (s *Service) Get(ctx context.Context, subID id.SubmissionID) (*models.Submission, error) {
	sub, err := s.load(ctx, subID)
	if err != nil {
		return nil, translate(err, "load submission")
	}
	return sub, nil
}

// List returns stored snapshots. Bank details stay redacted.
func (s *Service) List(ctx context.Context, filter store.ListFilter) ([]*models.Submission, error) {
	subs, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, translate(err, "list submissions")
	}
	if subs == nil {
		subs = []*models.Submission{}
	}
	return subs, nil
}

// History returns the index entries of every saved version.
func (s *Service) History(ctx context.Context, subID id.SubmissionID) ([]models.IndexEntry, error) {
	if _, err := s.store.FindByID(ctx, subID); err != nil {
		return nil, translate(err, "load submission")
	}
	entries, err := s.store.Index(ctx, subID)
	if err != nil {
		return nil, translate(err, "load submission history")
	}
	if entries == nil {
		entries = []models.IndexEntry{}
	}
	return entries, nil
}

// Missing lists the unmet requirements of one section, or of the whole
// form for completeness.All.
func (s *Service) Missing(ctx context.Context, subID id.SubmissionID, scope completeness.Scope) (completeness.Missing, error) {
	if !scope.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown scope "+string(scope))
	}
	sub, err := s.load(ctx, subID)
	if err != nil {
		return nil, translate(err, "load submission")
	}
	return completeness.Validate(scope, sub.RequesterFields, sub.Documents), nil
}

// Screen checks an arbitrary name against completed suppliers and the
// watchlist without touching any submission.
func (s *Service) Screen(ctx context.Context, name string) (report matcher.Report, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "submission.screen")
	defer func() { s.end(span, "screen", err, start) }()

	if strings.TrimSpace(name) == "" {
		return matcher.Report{}, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	suppliers, watchlist, err := s.corpus(ctx)
	if err != nil {
		return matcher.Report{}, translate(err, "load screening corpus")
	}
	return s.machine.Screen(name, suppliers, watchlist), nil
}

// Amend replaces the answers of a draft or of a submission waiting on an
// information request.
func (s *Service) Amend(ctx context.Context, subID id.SubmissionID, req AmendRequest) (*Result, error) {
	fields := req.Fields.Clone()
	fields.Financial.BankFingerprint = ""
	return s.transition(ctx, "amend", subID, func(_ context.Context, sub *models.Submission, now time.Time) (workflow.Transition, error) {
		return s.machine.Amend(sub, fields, req.Documents, now)
	})
}

// Submit sends a complete draft to PBP review after duplicate screening.
func (s *Service) Submit(ctx context.Context, subID id.SubmissionID) (*Result, error) {
	suppliers, watchlist, err := s.corpus(ctx)
	if err != nil {
		return nil, translate(err, "load screening corpus")
	}
	return s.transition(ctx, "submit", subID, func(_ context.Context, sub *models.Submission, now time.Time) (workflow.Transition, error) {
		return s.machine.Submit(sub, workflow.SubmitInput{Suppliers: suppliers, Watchlist: watchlist, Now: now})
	})
}

// Resubmit answers an outstanding information request.
func (s *Service) Resubmit(ctx context.Context, subID id.SubmissionID) (*Result, error) {
	return s.transition(ctx, "resubmit", subID, func(_ context.Context, sub *models.Submission, now time.Time) (workflow.Transition, error) {
		return s.machine.Resubmit(sub, now)
	})
}

// Review applies one reviewer decision.
func (s *Service) Review(ctx context.Context, subID id.SubmissionID, req review.Request) (*Result, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "review is required")
	}
	return s.transition(ctx, "review_"+string(req.Role()), subID, func(_ context.Context, sub *models.Submission, now time.Time) (workflow.Transition, error) {
		return s.machine.Review(sub, req, now)
	})
}

// RecordSDSResponse closes an outstanding status determination statement.
func (s *Service) RecordSDSResponse(ctx context.Context, subID id.SubmissionID) (*Result, error) {
	return s.transition(ctx, "sds_response", subID, func(_ context.Context, sub *models.Submission, now time.Time) (workflow.Transition, error) {
		return s.machine.RecordSDSResponse(sub, now)
	})
}

type applyFunc func(ctx context.Context, sub *models.Submission, now time.Time) (workflow.Transition, error)

// transition runs the load, apply, save cycle under the submission lock and
// publishes the effects once the save has committed.
func (s *Service) transition(ctx context.Context, operation string, subID id.SubmissionID, apply applyFunc) (result *Result, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "submission."+operation,
		trace.WithAttributes(attribute.String("submission.id", subID.String())))
	defer func() { s.end(span, operation, err, start) }()

	release, err := s.locker.Lock(ctx, subID.String())
	if err != nil {
		return nil, translate(err, operation)
	}
	defer release()

	now := requestcontext.Now(ctx)
	var tr workflow.Transition
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sub, err := s.load(txCtx, subID)
		if err != nil {
			return err
		}
		tr, err = apply(txCtx, sub, now)
		if err != nil {
			return err
		}
		sealed, err := s.sealer.Seal(txCtx, tr.After)
		if err != nil {
			return err
		}
		if err := s.store.Save(txCtx, sealed, tr.Before.Version); err != nil {
			return err
		}
		return s.store.AppendIndex(txCtx, tr.After.IndexEntry())
	})
	if err != nil {
		if tr.After != nil {
			s.restoreSecrets(ctx, tr.Before)
		}
		return nil, translate(err, operation)
	}

	span.SetAttributes(
		attribute.String("submission.status", string(tr.After.Status)),
		attribute.Int("submission.version", tr.After.Version),
	)
	if tr.StatusChanged() {
		s.metrics.IncrementStatusEntered(string(tr.After.Status))
	}
	if tr.Screening != nil {
		for _, m := range slices.Concat(tr.Screening.Suppliers, tr.Screening.Watchlist) {
			s.metrics.IncrementScreeningMatch(string(m.Classification))
		}
	}
	s.logger.InfoContext(ctx, "submission transition applied",
		"submission_id", subID,
		"operation", operation,
		"from", tr.Before.Status,
		"to", tr.After.Status,
		"version", tr.After.Version,
		"request_id", requestcontext.RequestID(ctx),
	)

	s.dispatch(ctx, tr.After, tr.Effects, now)
	return &Result{Submission: tr.After, Effects: tr.Effects, Screening: tr.Screening}, nil
}

// load reads a snapshot and restores its sealed fields.
func (s *Service) load(ctx context.Context, subID id.SubmissionID) (*models.Submission, error) {
	sub, err := s.store.FindByID(ctx, subID)
	if err != nil {
		return nil, err
	}
	return s.sealer.Open(ctx, sub)
}

// restoreSecrets puts the pre-transition bank details back after a failed
// save so the stored snapshot's fingerprint still matches.
func (s *Service) restoreSecrets(ctx context.Context, before *models.Submission) {
	if _, err := s.sealer.Seal(context.WithoutCancel(ctx), before); err != nil {
		s.logger.ErrorContext(ctx, "failed to restore bank details", "submission_id", before.ID, "error", err)
	}
}

// dispatch publishes effects and records watchlist entries. Failures are
// logged and counted; the transition has already been saved.
func (s *Service) dispatch(ctx context.Context, sub *models.Submission, effs []effects.Effect, now time.Time) {
	if len(effs) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	for _, e := range effs {
		w, ok := e.(effects.WatchlistSupplier)
		if !ok {
			continue
		}
		entry := store.WatchlistEntry{
			Entry:   matcher.Entry{Name: w.Name, Reference: w.SubmissionID.String()},
			Reason:  w.Reason,
			AddedAt: now,
		}
		if err := s.watchlist.Add(ctx, entry); err != nil {
			s.logger.ErrorContext(ctx, "failed to add supplier to watchlist", "submission_id", sub.ID, "error", err)
		}
	}

	envs, err := effects.Seal(ctx, sub.Version, effs)
	if err == nil {
		err = s.publisher.Publish(ctx, envs)
	}
	if err != nil {
		s.metrics.IncrementPublishFailure()
		s.logger.ErrorContext(ctx, "failed to publish effects",
			"submission_id", sub.ID,
			"version", sub.Version,
			"kinds", effects.Kinds(effs),
			"error", err,
		)
		return
	}
	for _, e := range effs {
		s.metrics.IncrementEffectPublished(string(e.Kind()))
	}
}

// corpus gathers completed suppliers and the watchlist concurrently.
func (s *Service) corpus(ctx context.Context) (suppliers, watchlist []matcher.Entry, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		suppliers, err = s.store.CompletedSuppliers(gctx)
		return err
	})
	g.Go(func() error {
		entries, err := s.watchlist.Entries(gctx)
		if err != nil {
			return err
		}
		watchlist = slices.Concat(s.seed, entries)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return suppliers, watchlist, nil
}

func (s *Service) end(span trace.Span, operation string, err error, start time.Time) {
	if err != nil {
		span.RecordError(err)
		var de *dErrors.Error
		if !errors.As(err, &de) || de.Code == dErrors.CodeInternal {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
	s.observe(operation, err, start)
}
