// Package workflow is the submission state machine.
//
// Every operation takes a snapshot and returns a Transition holding a new
// snapshot, the review record it appended (if any) and the side-effect
// requests to publish. The input snapshot is never modified, so a failed or
// retried computation leaves nothing behind.
//
// Error precedence for every operation: terminal state, then integrity
// (out of order or duplicate review), then guard, then validation.
package workflow

import (
	"fmt"
	"time"

	"supplierflow/internal/completeness"
	"supplierflow/internal/effects"
	"supplierflow/internal/matcher"
	"supplierflow/internal/review"
	"supplierflow/internal/submission/models"
	dErrors "supplierflow/pkg/domain-errors"
)

// Transition is the result of one applied operation.
type Transition struct {
	Before    *models.Submission
	After     *models.Submission
	Record    *models.ReviewRecord
	Effects   []effects.Effect
	Screening *matcher.Report
}

// StatusChanged reports whether the transition moved the status.
func (t Transition) StatusChanged() bool {
	return t.Before.Status != t.After.Status
}

// Machine applies workflow operations. It holds no mutable state and is safe
// for concurrent use.
type Machine struct {
	registry   *review.Registry
	thresholds matcher.Thresholds
}

// Option configures a Machine.
type Option func(*Machine)

// WithRegistry replaces the default stage handlers.
func WithRegistry(r *review.Registry) Option {
	return func(m *Machine) {
		m.registry = r
	}
}

// WithThresholds sets the duplicate screening thresholds used at submission.
func WithThresholds(th matcher.Thresholds) Option {
	return func(m *Machine) {
		m.thresholds = th
	}
}

func New(opts ...Option) *Machine {
	m := &Machine{
		registry:   review.DefaultRegistry(),
		thresholds: matcher.DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Screen runs duplicate screening with the machine's thresholds.
func (m *Machine) Screen(name string, suppliers, watchlist []matcher.Entry) matcher.Report {
	return matcher.Screen(name, suppliers, watchlist, m.thresholds)
}

// SubmitInput carries the screening corpora gathered by the caller.
type SubmitInput struct {
	Suppliers []matcher.Entry
	Watchlist []matcher.Entry
	Now       time.Time
}

// Submit moves a complete draft to PBP review and screens the supplier name.
func (m *Machine) Submit(sub *models.Submission, in SubmitInput) (Transition, error) {
	if err := review.CheckOpen(sub); err != nil {
		return Transition{}, err
	}
	if sub.Status != models.StatusDraft {
		return Transition{}, dErrors.New(dErrors.CodeIntegrity, "submission has already been submitted")
	}
	if err := requireComplete(sub); err != nil {
		return Transition{}, err
	}

	report := m.Screen(sub.RequesterFields.SupplierName(), in.Suppliers, in.Watchlist)
	after := next(sub, in.Now)
	after.Status = models.StatusPendingPBP
	after.Stage = models.StagePBP
	submitted := in.Now
	after.SubmittedAt = &submitted
	after.Flags = models.Flags{
		ConflictOfInterest: sub.RequesterFields.PreScreening.SupplierConnection.IsYes(),
		PossibleDuplicate:  report.HasMatches(),
		Watchlisted:        report.Watchlisted(),
	}

	effs := []effects.Effect{
		notifyRequester(after, effects.OutcomeSubmitted, ""),
		notifyDepartment(after, models.DepartmentPBP, "New supplier request awaiting PBP review"),
	}
	if after.Flags.ConflictOfInterest {
		effs = append(effs, effects.FlagConflictOfInterest{
			SubmissionID: after.ID,
			Details:      after.RequesterFields.PreScreening.ConnectionDetails,
		})
	}
	if report.HasMatches() {
		effs = append(effs, effects.FlagPossibleDuplicate{SubmissionID: after.ID, Report: report})
	}
	return m.finish(sub, after, nil, effs, &report)
}

// Amend replaces the requester's answers. It is allowed in draft and while
// PBP is waiting on an information request.
func (m *Machine) Amend(sub *models.Submission, fields models.RequesterFields, docs models.Documents, now time.Time) (Transition, error) {
	if err := review.CheckOpen(sub); err != nil {
		return Transition{}, err
	}
	if !sub.Editable() {
		return Transition{}, dErrors.New(dErrors.CodeGuardViolation, "submission is under review and can no longer be edited")
	}
	after := next(sub, now)
	after.RequesterFields = fields.Clone()
	if docs == nil {
		docs = models.Documents{}
	}
	after.Documents = docs.Clone()
	return m.finish(sub, after, nil, nil, nil)
}

// Resubmit closes an information request and hands the submission back to
// PBP.
func (m *Machine) Resubmit(sub *models.Submission, now time.Time) (Transition, error) {
	if err := review.CheckOpen(sub); err != nil {
		return Transition{}, err
	}
	if !sub.AwaitingRequester() {
		return Transition{}, dErrors.New(dErrors.CodeIntegrity, "no information request is outstanding")
	}
	if err := requireComplete(sub); err != nil {
		return Transition{}, err
	}
	after := next(sub, now)
	after.Stage = models.StagePBP
	effs := []effects.Effect{
		notifyDepartment(after, models.DepartmentPBP, "Requester has responded to the information request"),
	}
	return m.finish(sub, after, nil, effs, nil)
}

// RecordSDSResponse closes an open SDS and completes the payroll route.
func (m *Machine) RecordSDSResponse(sub *models.Submission, receivedAt time.Time) (Transition, error) {
	if sub.IsTerminal() {
		return Transition{}, dErrors.New(dErrors.CodeTerminalState, review.ErrTerminalMessage)
	}
	if sub.Status != models.StatusSDSIssuedAwaitingResponse || sub.SDS == nil {
		return Transition{}, dErrors.New(dErrors.CodeIntegrity, "no SDS is awaiting a response")
	}
	after := next(sub, receivedAt)
	at := receivedAt
	after.SDS.ResponseReceived = true
	after.SDS.ResponseReceivedAt = &at
	after.Status = models.StatusCompletedPayroll
	after.Stage = models.StageNone
	effs := complete(after, fmt.Sprintf("SDS response received after %d days", after.SDS.DaysElapsed(receivedAt)))
	return m.finish(sub, after, nil, effs, nil)
}

// Review applies a reviewer decision.
func (m *Machine) Review(sub *models.Submission, req review.Request, now time.Time) (Transition, error) {
	rec, err := m.registry.Review(sub, req, now)
	if err != nil {
		return Transition{}, err
	}

	after := next(sub, now)
	after.Reviews = append(after.Reviews, rec.Clone())

	var effs []effects.Effect
	if rec.Decision == models.DecisionRejected {
		effs = reject(after, rec.Rationale)
		return m.finish(sub, after, &rec, effs, nil)
	}

	switch p := rec.Payload.(type) {
	case models.PBPPayload:
		effs = applyPBP(after, rec, p)
	case models.ProcurementPayload:
		effs, err = applyProcurement(after, p)
	case models.OPWPayload:
		effs, err = applyOPW(after, p)
	case models.ContractPayload:
		effs = advanceToAP(after, "Signed agreement "+p.SignedAgreementReference+" received")
	case models.APPayload:
		after.Status = models.StatusCompletedOracle
		after.Stage = models.StageNone
		effs = complete(after, "Supplier created as "+p.SupplierNumber)
	default:
		err = dErrors.New(dErrors.CodeInternal, fmt.Sprintf("unhandled review payload %T", rec.Payload))
	}
	if err != nil {
		return Transition{}, err
	}
	return m.finish(sub, after, &rec, effs, nil)
}

func applyPBP(after *models.Submission, rec models.ReviewRecord, p models.PBPPayload) []effects.Effect {
	if rec.Decision == models.DecisionInfoRequired {
		after.Stage = models.StageRequester
		return []effects.Effect{notifyRequester(after, effects.OutcomeInfoRequired, p.RequestedInformation)}
	}
	after.Status = models.StatusPendingProcurement
	after.Stage = models.StageProcurement
	return []effects.Effect{
		notifyDepartment(after, models.DepartmentProcurement, "Approved by PBP, awaiting supplier classification"),
	}
}

func applyProcurement(after *models.Submission, p models.ProcurementPayload) ([]effects.Effect, error) {
	switch p.Classification {
	case models.ClassificationOPWIR35:
		after.Status = models.StatusPendingOPW
		after.Stage = models.StageOPW
		return []effects.Effect{
			notifyDepartment(after, models.DepartmentOPW, "Classified as OPW/IR35, awaiting determination"),
		}, nil
	case models.ClassificationStandard:
		if err := setRoute(after, models.RouteOracleAP); err != nil {
			return nil, err
		}
		return advanceToAP(after, "Classified as a standard supplier"), nil
	}
	return nil, dErrors.New(dErrors.CodeInternal, "unhandled supplier classification "+string(p.Classification))
}

func applyOPW(after *models.Submission, p models.OPWPayload) ([]effects.Effect, error) {
	switch {
	case p.EmploymentStatus == models.EmploymentEmployed:
		if err := setRoute(after, models.RoutePayrollESR); err != nil {
			return nil, err
		}
		after.Status = models.StatusCompletedPayroll
		after.Stage = models.StageNone
		return complete(after, "Worker determined employed, set up in payroll"), nil

	case p.IR35Determination == models.IR35Inside:
		if err := setRoute(after, models.RoutePayrollESR); err != nil {
			return nil, err
		}
		if p.SDS != nil && p.SDS.Issued {
			sds := p.SDS.Clone()
			after.SDS = &sds
			after.Status = models.StatusSDSIssuedAwaitingResponse
			after.Stage = models.StageWorker
			return []effects.Effect{
				notifyRequester(after, effects.OutcomeSDSIssued, ""),
				notifyDepartment(after, models.DepartmentPayroll, "Inside IR35, SDS issued and awaiting the worker's response"),
			}, nil
		}
		after.Status = models.StatusCompletedPayroll
		after.Stage = models.StageNone
		return complete(after, "Inside IR35, set up in payroll"), nil

	case p.EmploymentStatus == models.EmploymentSelfEmployed, p.IR35Determination == models.IR35Outside:
		if err := setRoute(after, models.RouteOracleAP); err != nil {
			return nil, err
		}
		if p.ContractRequired.IsYes() {
			after.Status = models.StatusPendingContract
			after.Stage = models.StageContractDrafter
			return []effects.Effect{
				notifyDepartment(after, models.DepartmentContractDrafter, "Contract required before supplier set-up"),
			}, nil
		}
		return advanceToAP(after, "OPW determination complete, no contract required"), nil
	}
	return nil, dErrors.New(dErrors.CodeInternal, "unhandled OPW determination")
}

func advanceToAP(after *models.Submission, summary string) []effects.Effect {
	after.Status = models.StatusPendingAP
	after.Stage = models.StageAPControl
	return []effects.Effect{notifyDepartment(after, models.DepartmentAPControl, summary)}
}

// setRoute records the outcome route. A route, once set, never changes.
func setRoute(after *models.Submission, route models.OutcomeRoute) error {
	if after.OutcomeRoute != models.RouteNone && after.OutcomeRoute != route {
		return dErrors.New(dErrors.CodeIntegrity,
			fmt.Sprintf("outcome route already set to %s", after.OutcomeRoute))
	}
	after.OutcomeRoute = route
	return nil
}

func reject(after *models.Submission, reason string) []effects.Effect {
	after.Status = models.StatusRejected
	after.Stage = models.StageNone
	effs := []effects.Effect{notifyRequester(after, effects.OutcomeRejected, reason)}
	if t, ok := closeTicket(after, effects.OutcomeRejected, reason); ok {
		effs = append(effs, t)
	}
	if name := after.RequesterFields.SupplierName(); name != "" {
		effs = append(effs, effects.WatchlistSupplier{SubmissionID: after.ID, Name: name, Reason: reason})
	}
	return effs
}

func complete(after *models.Submission, summary string) []effects.Effect {
	effs := []effects.Effect{notifyRequester(after, effects.OutcomeCompleted, "")}
	if after.OutcomeRoute == models.RoutePayrollESR {
		effs = append(effs, notifyDepartment(after, models.DepartmentPayroll, summary))
	}
	if t, ok := closeTicket(after, effects.OutcomeCompleted, summary); ok {
		effs = append(effs, t)
	}
	return effs
}

func notifyRequester(sub *models.Submission, outcome effects.Outcome, reason string) effects.Effect {
	return effects.NotifyRequester{
		SubmissionID: sub.ID,
		Recipient:    sub.SubmittedBy,
		Outcome:      outcome,
		Reason:       reason,
	}
}

func notifyDepartment(sub *models.Submission, dept models.Department, summary string) effects.Effect {
	return effects.NotifyDepartment{
		SubmissionID: sub.ID,
		Department:   dept,
		Payload: effects.DepartmentPayload{
			Status:       sub.Status,
			Stage:        sub.Stage,
			OutcomeRoute: sub.OutcomeRoute,
			SupplierName: sub.RequesterFields.SupplierName(),
			Summary:      summary,
		},
	}
}

func closeTicket(sub *models.Submission, outcome effects.Outcome, summary string) (effects.Effect, bool) {
	if sub.AlembaReference == "" {
		return nil, false
	}
	return effects.CloseExternalTicket{
		SubmissionID: sub.ID,
		Reference:    sub.AlembaReference,
		Outcome:      outcome,
		Summary:      summary,
	}, true
}

func requireComplete(sub *models.Submission) error {
	missing := completeness.Validate(completeness.All, sub.RequesterFields, sub.Documents)
	if missing.Empty() {
		return nil
	}
	return dErrors.NewWithDetails(dErrors.CodeValidation, "submission is incomplete", missing.Descriptions())
}

// next copies sub and bumps its version.
func next(sub *models.Submission, now time.Time) *models.Submission {
	after := sub.Clone()
	after.Version++
	after.UpdatedAt = now
	return after
}

// finish checks the status move against the transition table.
func (m *Machine) finish(before, after *models.Submission, rec *models.ReviewRecord, effs []effects.Effect, report *matcher.Report) (Transition, error) {
	if before.Status != after.Status && !CanTransition(before.Status, after.Status) {
		return Transition{}, dErrors.New(dErrors.CodeIntegrity,
			fmt.Sprintf("transition %s -> %s is not allowed", before.Status, after.Status))
	}
	if effs == nil {
		effs = []effects.Effect{}
	}
	return Transition{Before: before, After: after, Record: rec, Effects: effs, Screening: report}, nil
}
