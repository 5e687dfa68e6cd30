package handler

import (
	"strings"
	"time"

	"supplierflow/internal/completeness"
	"supplierflow/internal/effects"
	"supplierflow/internal/matcher"
	"supplierflow/internal/submission/models"
	"supplierflow/internal/submission/service"
	dErrors "supplierflow/pkg/domain-errors"
)

// CreateSubmissionRequest opens a draft.
type CreateSubmissionRequest struct {
	SubmittedBy     string                 `json:"submitted_by,omitempty"`
	Fields          models.RequesterFields `json:"fields"`
	Documents       models.Documents       `json:"documents,omitempty"`
	AlembaReference string                 `json:"alemba_reference,omitempty"`
}

func (r *CreateSubmissionRequest) Validate() error {
	r.SubmittedBy = strings.TrimSpace(r.SubmittedBy)
	r.AlembaReference = strings.TrimSpace(r.AlembaReference)
	if len(r.AlembaReference) > 64 {
		return dErrors.New(dErrors.CodeBadRequest, "alemba_reference must be at most 64 characters")
	}
	return nil
}

func (r *CreateSubmissionRequest) toService() service.CreateRequest {
	return service.CreateRequest{
		SubmittedBy:     r.SubmittedBy,
		Fields:          r.Fields,
		Documents:       r.Documents,
		AlembaReference: r.AlembaReference,
	}
}

// AmendSubmissionRequest replaces the requester's answers.
type AmendSubmissionRequest struct {
	Fields    models.RequesterFields `json:"fields"`
	Documents models.Documents       `json:"documents,omitempty"`
}

func (r *AmendSubmissionRequest) Validate() error {
	return nil
}

// ScreeningRequest asks for a duplicate check on a name before a draft
// exists.
type ScreeningRequest struct {
	Name string `json:"name"`
}

func (r *ScreeningRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if len(r.Name) > 512 {
		return dErrors.New(dErrors.CodeInvalidInput, "name must be at most 512 characters")
	}
	return nil
}

// SubmissionResponse is a submission plus the values computed for display at
// request time.
type SubmissionResponse struct {
	*models.Submission
	SDSStatus *SDSStatusResponse `json:"sds_status,omitempty"`
}

// SDSStatusResponse places an issued SDS against the advisory response and
// escalation windows. Nothing transitions when a window passes.
type SDSStatusResponse struct {
	DaysElapsed int              `json:"days_elapsed"`
	Window      models.SDSWindow `json:"window"`
}

func toSubmissionResponse(sub *models.Submission, now time.Time) SubmissionResponse {
	out := SubmissionResponse{Submission: sub}
	if sub.SDS != nil && sub.SDS.Issued {
		out.SDSStatus = &SDSStatusResponse{
			DaysElapsed: sub.SDS.DaysElapsed(now),
			Window:      sub.SDS.Window(now),
		}
	}
	return out
}

// TransitionResponse is returned by every state-changing endpoint.
type TransitionResponse struct {
	Submission SubmissionResponse `json:"submission"`
	Effects    []effects.Kind     `json:"effects"`
	Screening  *matcher.Report    `json:"screening,omitempty"`
}

func toTransitionResponse(res *service.Result, now time.Time) TransitionResponse {
	return TransitionResponse{
		Submission: toSubmissionResponse(res.Submission, now),
		Effects:    effects.Kinds(res.Effects),
		Screening:  res.Screening,
	}
}

// MissingResponse lists what still blocks submission for a scope.
type MissingResponse struct {
	Scope    completeness.Scope                                `json:"scope"`
	Complete bool                                              `json:"complete"`
	Missing  completeness.Missing                              `json:"missing"`
	Sections map[completeness.Scope][]completeness.Requirement `json:"sections,omitempty"`
}

// SubmissionListResponse wraps list results.
type SubmissionListResponse struct {
	Submissions []*models.Submission `json:"submissions"`
	Count       int                  `json:"count"`
}

// HistoryResponse is the append-only index for one submission.
type HistoryResponse struct {
	Entries []models.IndexEntry `json:"entries"`
}
