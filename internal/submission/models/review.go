package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Decision is the outcome a reviewer records. PBP may also ask for more
// information; OPW records its sub-decision directly.
type Decision string

const (
	DecisionApproved     Decision = "approved"
	DecisionRejected     Decision = "rejected"
	DecisionInfoRequired Decision = "info_required"
	DecisionEmployed     Decision = "employed"
	DecisionSelfEmployed Decision = "self_employed"
	DecisionInside       Decision = "inside"
	DecisionOutside      Decision = "outside"
)

func (d Decision) IsValid() bool {
	switch d {
	case DecisionApproved, DecisionRejected, DecisionInfoRequired, DecisionEmployed,
		DecisionSelfEmployed, DecisionInside, DecisionOutside:
		return true
	}
	return false
}

// Decisive reports whether the decision closes the reviewer's stage. An
// info-required request hands the submission back to the requester and the
// stage is reviewed again after resubmission.
func (d Decision) Decisive() bool {
	return d != DecisionInfoRequired
}

// SupplierClassification is set by Procurement.
type SupplierClassification string

const (
	ClassificationStandard SupplierClassification = "standard"
	ClassificationOPWIR35  SupplierClassification = "opw_ir35"
)

func (c SupplierClassification) IsValid() bool {
	return c == ClassificationStandard || c == ClassificationOPWIR35
}

// WorkerClassification selects the OPW branch.
type WorkerClassification string

const (
	WorkerSoleTrader   WorkerClassification = "sole_trader"
	WorkerIntermediary WorkerClassification = "intermediary"
)

// EmploymentStatus is the OPW decision for personal-service sole traders.
type EmploymentStatus string

const (
	EmploymentEmployed     EmploymentStatus = "employed"
	EmploymentSelfEmployed EmploymentStatus = "self_employed"
	EmploymentRejected     EmploymentStatus = "rejected"
)

func (e EmploymentStatus) IsValid() bool {
	switch e {
	case EmploymentEmployed, EmploymentSelfEmployed, EmploymentRejected:
		return true
	}
	return false
}

// IR35Determination is the OPW decision for intermediaries.
type IR35Determination string

const (
	IR35Inside   IR35Determination = "inside"
	IR35Outside  IR35Determination = "outside"
	IR35Rejected IR35Determination = "rejected"
)

func (d IR35Determination) IsValid() bool {
	switch d {
	case IR35Inside, IR35Outside, IR35Rejected:
		return true
	}
	return false
}

// ReviewRecord is the immutable result of one reviewer action.
type ReviewRecord struct {
	Role      Role
	Decision  Decision
	Rationale string
	Signer    string
	SignedAt  time.Time
	Payload   ReviewPayload
}

// ReviewPayload is the role-specific part of a review record. Each concrete
// payload belongs to exactly one role.
type ReviewPayload interface {
	Role() Role
	isReviewPayload()
}

type PBPPayload struct {
	// RequestedInformation lists what the requester must supply when the
	// decision is info_required.
	RequestedInformation string `json:"requested_information,omitempty"`
}

type ProcurementPayload struct {
	Classification SupplierClassification `json:"supplier_classification,omitempty"`
}

type OPWPayload struct {
	WorkerClassification WorkerClassification `json:"worker_classification"`
	EmploymentStatus     EmploymentStatus     `json:"employment_status,omitempty"`
	IR35Determination    IR35Determination    `json:"ir35_determination,omitempty"`
	ContractRequired     YesNo                `json:"contract_required,omitempty"`
	SDS                  *SDSTracking         `json:"sds_tracking,omitempty"`
}

type ContractPayload struct {
	SignedAgreementReference string `json:"signed_agreement_reference,omitempty"`
}

type APPayload struct {
	BankDetailsVerified    bool   `json:"bank_details_verified"`
	CompanyDetailsVerified bool   `json:"company_details_verified"`
	SupplierNumber         string `json:"supplier_number,omitempty"`
}

func (PBPPayload) Role() Role         { return RolePBP }
func (ProcurementPayload) Role() Role { return RoleProcurement }
func (OPWPayload) Role() Role         { return RoleOPW }
func (ContractPayload) Role() Role    { return RoleContractDrafter }
func (APPayload) Role() Role          { return RoleAPControl }

func (PBPPayload) isReviewPayload()         {}
func (ProcurementPayload) isReviewPayload() {}
func (OPWPayload) isReviewPayload()         {}
func (ContractPayload) isReviewPayload()    {}
func (APPayload) isReviewPayload()          {}

// Clone copies the record; the OPW payload is the only one holding a pointer.
func (r ReviewRecord) Clone() ReviewRecord {
	if p, ok := r.Payload.(OPWPayload); ok && p.SDS != nil {
		sds := p.SDS.Clone()
		p.SDS = &sds
		r.Payload = p
	}
	return r
}

type reviewRecordJSON struct {
	Role      Role            `json:"role"`
	Decision  Decision        `json:"decision"`
	Rationale string          `json:"rationale,omitempty"`
	Signer    string          `json:"signer"`
	SignedAt  time.Time       `json:"signed_at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (r ReviewRecord) MarshalJSON() ([]byte, error) {
	out := reviewRecordJSON{
		Role:      r.Role,
		Decision:  r.Decision,
		Rationale: r.Rationale,
		Signer:    r.Signer,
		SignedAt:  r.SignedAt,
	}
	if r.Payload != nil {
		payload, err := json.Marshal(r.Payload)
		if err != nil {
			return nil, err
		}
		out.Payload = payload
	}
	return json.Marshal(out)
}

func (r *ReviewRecord) UnmarshalJSON(data []byte) error {
	var in reviewRecordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var payload ReviewPayload
	switch in.Role {
	case RolePBP:
		var p PBPPayload
		if err := unmarshalOptional(in.Payload, &p); err != nil {
			return err
		}
		payload = p
	case RoleProcurement:
		var p ProcurementPayload
		if err := unmarshalOptional(in.Payload, &p); err != nil {
			return err
		}
		payload = p
	case RoleOPW:
		var p OPWPayload
		if err := unmarshalOptional(in.Payload, &p); err != nil {
			return err
		}
		payload = p
	case RoleContractDrafter:
		var p ContractPayload
		if err := unmarshalOptional(in.Payload, &p); err != nil {
			return err
		}
		payload = p
	case RoleAPControl:
		var p APPayload
		if err := unmarshalOptional(in.Payload, &p); err != nil {
			return err
		}
		payload = p
	default:
		return fmt.Errorf("unknown review role %q", in.Role)
	}
	*r = ReviewRecord{
		Role:      in.Role,
		Decision:  in.Decision,
		Rationale: in.Rationale,
		Signer:    in.Signer,
		SignedAt:  in.SignedAt,
		Payload:   payload,
	}
	return nil
}

// Advisory SDS windows in days. They are shown to reviewers and never
// enforced.
const (
	SDSResponseWindowDays   = 14
	SDSEscalationWindowDays = 45
)

// SDSWindow describes where an open SDS sits relative to the advisory windows.
type SDSWindow string

const (
	SDSWithinResponseWindow SDSWindow = "within_response_window"
	SDSResponseOverdue      SDSWindow = "response_overdue"
	SDSEscalationDue        SDSWindow = "escalation_due"
	SDSResponded            SDSWindow = "responded"
)

// SDSTracking follows a Status Determination Statement issued to an inside
// IR35 worker.
type SDSTracking struct {
	Issued             bool       `json:"sds_issued"`
	IssuedAt           time.Time  `json:"issued_at"`
	ResponseReceived   bool       `json:"response_received"`
	ResponseReceivedAt *time.Time `json:"response_received_at,omitempty"`
}

func (s SDSTracking) Clone() SDSTracking {
	if s.ResponseReceivedAt != nil {
		at := *s.ResponseReceivedAt
		s.ResponseReceivedAt = &at
	}
	return s
}

// DaysElapsed counts whole days from issue to the response, or to now while
// the response is outstanding.
func (s SDSTracking) DaysElapsed(now time.Time) int {
	if !s.Issued || s.IssuedAt.IsZero() {
		return 0
	}
	end := now
	if s.ResponseReceived && s.ResponseReceivedAt != nil {
		end = *s.ResponseReceivedAt
	}
	if end.Before(s.IssuedAt) {
		return 0
	}
	return int(end.Sub(s.IssuedAt).Hours() / 24)
}

// Window classifies the SDS against the advisory windows.
func (s SDSTracking) Window(now time.Time) SDSWindow {
	if s.ResponseReceived {
		return SDSResponded
	}
	days := s.DaysElapsed(now)
	switch {
	case days > SDSEscalationWindowDays:
		return SDSEscalationDue
	case days > SDSResponseWindowDays:
		return SDSResponseOverdue
	default:
		return SDSWithinResponseWindow
	}
}
