package models

import (
	"maps"
	"time"

	id "supplierflow/pkg/domain"
	dErrors "supplierflow/pkg/domain-errors"
)

// Logical document names. The engine only tracks presence.
const (
	DocLetterhead           = "letterhead"
	DocCESTForm             = "cest_form"
	DocPassportPhoto        = "passport_photo"
	DocDrivingLicenceFront  = "driving_licence_front"
	DocDrivingLicenceBack   = "driving_licence_back"
	DocInsuranceCertificate = "insurance_certificate"
)

// Document describes an uploaded file. Bytes live elsewhere.
type Document struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Present  bool   `json:"present"`
}

// Documents maps logical document names to descriptors.
type Documents map[string]Document

// Has reports whether the named document is present.
func (d Documents) Has(name string) bool {
	doc, ok := d[name]
	return ok && doc.Present
}

func (d Documents) Clone() Documents {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}

// Flags are raised at submission time for reviewers to see.
type Flags struct {
	ConflictOfInterest bool `json:"conflict_of_interest"`
	PossibleDuplicate  bool `json:"possible_duplicate"`
	Watchlisted        bool `json:"watchlisted"`
}

// Submission is the aggregate root for a supplier onboarding request.
//
// Invariants:
//   - ID and CreatedAt are immutable after construction
//   - Status, Stage and OutcomeRoute change only through workflow transitions
//   - Version increases by one on every applied transition
//   - OutcomeRoute is set at most once
//   - Reviews is append-only
type Submission struct {
	ID              id.SubmissionID `json:"id"`
	Version         int             `json:"version"`
	Status          Status          `json:"status"`
	Stage           Stage           `json:"stage"`
	OutcomeRoute    OutcomeRoute    `json:"outcome_route,omitempty"`
	SubmittedBy     string          `json:"submitted_by"`
	CreatedAt       time.Time       `json:"created_at"`
	SubmittedAt     *time.Time      `json:"submitted_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
	RequesterFields RequesterFields `json:"requester_fields"`
	Documents       Documents       `json:"documents"`
	Reviews         []ReviewRecord  `json:"reviews"`
	AlembaReference string          `json:"alemba_reference,omitempty"`
	Flags           Flags           `json:"flags"`
	SDS             *SDSTracking    `json:"sds_tracking,omitempty"`
}

// NewDraft creates a submission in the draft state.
func NewDraft(subID id.SubmissionID, submittedBy string, fields RequesterFields, docs Documents, alembaRef string, now time.Time) (*Submission, error) {
	if subID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "submission ID required")
	}
	if submittedBy == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "submitted by required")
	}
	if docs == nil {
		docs = Documents{}
	}
	return &Submission{
		ID:              subID,
		Version:         1,
		Status:          StatusDraft,
		Stage:           StageRequester,
		SubmittedBy:     submittedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
		RequesterFields: fields.Clone(),
		Documents:       docs.Clone(),
		Reviews:         []ReviewRecord{},
		AlembaReference: alembaRef,
	}, nil
}

// Clone returns a deep copy that shares no mutable state with s.
func (s *Submission) Clone() *Submission {
	out := *s
	out.RequesterFields = s.RequesterFields.Clone()
	out.Documents = s.Documents.Clone()
	if s.Reviews != nil {
		out.Reviews = make([]ReviewRecord, len(s.Reviews))
		for i, r := range s.Reviews {
			out.Reviews[i] = r.Clone()
		}
	}
	if s.SubmittedAt != nil {
		at := *s.SubmittedAt
		out.SubmittedAt = &at
	}
	if s.SDS != nil {
		sds := s.SDS.Clone()
		out.SDS = &sds
	}
	return &out
}

func (s *Submission) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// AwaitingRequester reports whether PBP has asked for more information and
// the requester has not resubmitted yet.
func (s *Submission) AwaitingRequester() bool {
	return s.Status == StatusPendingPBP && s.Stage == StageRequester
}

// Editable reports whether the requester may still change their answers.
func (s *Submission) Editable() bool {
	return s.Status == StatusDraft || s.AwaitingRequester()
}

// LatestReview returns the most recent record for role.
func (s *Submission) LatestReview(role Role) (ReviewRecord, bool) {
	for i := len(s.Reviews) - 1; i >= 0; i-- {
		if s.Reviews[i].Role == role {
			return s.Reviews[i], true
		}
	}
	return ReviewRecord{}, false
}

// HasDecisiveReview reports whether role has already closed its stage.
func (s *Submission) HasDecisiveReview(role Role) bool {
	for _, r := range s.Reviews {
		if r.Role == role && r.Decision.Decisive() {
			return true
		}
	}
	return false
}

// IndexEntry is the listing summary kept alongside every snapshot.
type IndexEntry struct {
	ID             id.SubmissionID `json:"id"`
	Version        int             `json:"version"`
	Status         Status          `json:"status"`
	Stage          Stage           `json:"stage"`
	SubmittedBy    string          `json:"submitted_by"`
	SubmissionDate *time.Time      `json:"submission_date,omitempty"`
	SupplierName   string          `json:"supplier_name,omitempty"`
	RecordedAt     time.Time       `json:"recorded_at"`
}

// IndexEntry summarises the current snapshot.
func (s *Submission) IndexEntry() IndexEntry {
	entry := IndexEntry{
		ID:           s.ID,
		Version:      s.Version,
		Status:       s.Status,
		Stage:        s.Stage,
		SubmittedBy:  s.SubmittedBy,
		SupplierName: s.RequesterFields.SupplierName(),
		RecordedAt:   s.UpdatedAt,
	}
	if s.SubmittedAt != nil {
		at := *s.SubmittedAt
		entry.SubmissionDate = &at
	}
	return entry
}
