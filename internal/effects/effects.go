// Package effects defines the side-effect requests raised by workflow
// transitions and the publishers that deliver them.
//
// Effects are plain data. The workflow never performs I/O; the submission
// service hands the effects of a saved transition to a Publisher.
package effects

import (
	"supplierflow/internal/matcher"
	"supplierflow/internal/submission/models"
	id "supplierflow/pkg/domain"
)

// Kind names an effect type on the wire.
type Kind string

const (
	KindNotifyRequester        Kind = "notify_requester"
	KindNotifyDepartment       Kind = "notify_department"
	KindCloseExternalTicket    Kind = "close_external_ticket"
	KindFlagConflictOfInterest Kind = "flag_conflict_of_interest"
	KindFlagPossibleDuplicate  Kind = "flag_possible_duplicate"
	KindWatchlistSupplier      Kind = "watchlist_supplier"
)

// Outcome is what the requester or ticket is told.
type Outcome string

const (
	OutcomeSubmitted    Outcome = "submitted"
	OutcomeResubmitted  Outcome = "resubmitted"
	OutcomeInfoRequired Outcome = "info_required"
	OutcomeApproved     Outcome = "approved"
	OutcomeSDSIssued    Outcome = "sds_issued"
	OutcomeCompleted    Outcome = "completed"
	OutcomeRejected     Outcome = "rejected"
)

// Effect is a side-effect request for an external collaborator.
type Effect interface {
	Kind() Kind
	Submission() id.SubmissionID
}

type NotifyRequester struct {
	SubmissionID id.SubmissionID `json:"submission_id"`
	Recipient    string          `json:"recipient"`
	Outcome      Outcome         `json:"outcome"`
	Reason       string          `json:"reason,omitempty"`
}

// DepartmentPayload is what a department needs to pick up the work.
type DepartmentPayload struct {
	Status       models.Status       `json:"status"`
	Stage        models.Stage        `json:"stage"`
	OutcomeRoute models.OutcomeRoute `json:"outcome_route,omitempty"`
	SupplierName string              `json:"supplier_name"`
	Summary      string              `json:"summary,omitempty"`
}

type NotifyDepartment struct {
	SubmissionID id.SubmissionID   `json:"submission_id"`
	Department   models.Department `json:"department"`
	Payload      DepartmentPayload `json:"payload"`
}

type CloseExternalTicket struct {
	SubmissionID id.SubmissionID `json:"submission_id"`
	Reference    string          `json:"reference"`
	Outcome      Outcome         `json:"outcome"`
	Summary      string          `json:"summary"`
}

type FlagConflictOfInterest struct {
	SubmissionID id.SubmissionID `json:"submission_id"`
	Details      string          `json:"details,omitempty"`
}

type FlagPossibleDuplicate struct {
	SubmissionID id.SubmissionID `json:"submission_id"`
	Report       matcher.Report  `json:"report"`
}

// WatchlistSupplier asks for a rejected supplier name to be screened on
// future submissions.
type WatchlistSupplier struct {
	SubmissionID id.SubmissionID `json:"submission_id"`
	Name         string          `json:"name"`
	Reason       string          `json:"reason"`
}

func (NotifyRequester) Kind() Kind        { return KindNotifyRequester }
func (NotifyDepartment) Kind() Kind       { return KindNotifyDepartment }
func (CloseExternalTicket) Kind() Kind    { return KindCloseExternalTicket }
func (FlagConflictOfInterest) Kind() Kind { return KindFlagConflictOfInterest }
func (FlagPossibleDuplicate) Kind() Kind  { return KindFlagPossibleDuplicate }
func (WatchlistSupplier) Kind() Kind      { return KindWatchlistSupplier }

func (e NotifyRequester) Submission() id.SubmissionID        { return e.SubmissionID }
func (e NotifyDepartment) Submission() id.SubmissionID       { return e.SubmissionID }
func (e CloseExternalTicket) Submission() id.SubmissionID    { return e.SubmissionID }
func (e FlagConflictOfInterest) Submission() id.SubmissionID { return e.SubmissionID }
func (e FlagPossibleDuplicate) Submission() id.SubmissionID  { return e.SubmissionID }
func (e WatchlistSupplier) Submission() id.SubmissionID      { return e.SubmissionID }

// Kinds returns the kind of every effect in order.
func Kinds(effs []Effect) []Kind {
	out := make([]Kind, len(effs))
	for i, e := range effs {
		out[i] = e.Kind()
	}
	return out
}
