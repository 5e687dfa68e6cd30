// Package review validates reviewer decisions and turns them into immutable
// review records.
//
// Each role has one Handler. Handlers check the decision payload (guards)
// and, where a decision depends on the form being complete, the
// completeness rules. The Registry runs the checks that come first: a closed
// submission, then a review out of order or already recorded.
package review

import (
	"strings"
	"time"

	"supplierflow/internal/completeness"
	"supplierflow/internal/submission/models"
	dErrors "supplierflow/pkg/domain-errors"
)

// Handler validates one role's decision.
type Handler interface {
	Role() models.Role
	Review(sub *models.Submission, req Request, now time.Time) (models.ReviewRecord, error)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func guard(msg string) error {
	return dErrors.New(dErrors.CodeGuardViolation, msg)
}

func checkSignoff(s Signoff, decision models.Decision) error {
	if blank(s.Signer) {
		return guard("signer identity required")
	}
	if decision == models.DecisionRejected && blank(s.Rationale) {
		return guard("rejection reason required")
	}
	return nil
}

func wrongRequest(role models.Role) error {
	return dErrors.New(dErrors.CodeBadRequest, "request does not belong to the "+string(role)+" stage")
}

func incomplete(scope completeness.Scope, fields models.RequesterFields, docs models.Documents) error {
	missing := completeness.Validate(scope, fields, docs)
	if missing.Empty() {
		return nil
	}
	return dErrors.NewWithDetails(dErrors.CodeValidation, "submission is incomplete", missing.Descriptions())
}

func record(req Request, decision models.Decision, payload models.ReviewPayload, now time.Time) models.ReviewRecord {
	s := req.signoff()
	return models.ReviewRecord{
		Role:      req.Role(),
		Decision:  decision,
		Rationale: strings.TrimSpace(s.Rationale),
		Signer:    strings.TrimSpace(s.Signer),
		SignedAt:  now,
		Payload:   payload,
	}
}

// PBPHandler reviews the business justification.
type PBPHandler struct{}

func (PBPHandler) Role() models.Role { return models.RolePBP }

func (PBPHandler) Review(sub *models.Submission, req Request, now time.Time) (models.ReviewRecord, error) {
	r, ok := req.(PBPRequest)
	if !ok {
		return models.ReviewRecord{}, wrongRequest(models.RolePBP)
	}
	switch r.Decision {
	case models.DecisionApproved, models.DecisionRejected, models.DecisionInfoRequired:
	default:
		return models.ReviewRecord{}, guard("decision must be approved, rejected or info_required")
	}
	if err := checkSignoff(r.Signoff, r.Decision); err != nil {
		return models.ReviewRecord{}, err
	}
	if r.Decision == models.DecisionInfoRequired && blank(r.RequestedInformation) {
		return models.ReviewRecord{}, guard("requested information required")
	}
	if r.Decision == models.DecisionApproved {
		if err := incomplete(completeness.All, sub.RequesterFields, sub.Documents); err != nil {
			return models.ReviewRecord{}, err
		}
	}
	payload := models.PBPPayload{}
	if r.Decision == models.DecisionInfoRequired {
		payload.RequestedInformation = strings.TrimSpace(r.RequestedInformation)
	}
	return record(r, r.Decision, payload, now), nil
}

// ProcurementHandler classifies the supplier as standard or OPW/IR35.
type ProcurementHandler struct{}

func (ProcurementHandler) Role() models.Role { return models.RoleProcurement }

func (ProcurementHandler) Review(_ *models.Submission, req Request, now time.Time) (models.ReviewRecord, error) {
	r, ok := req.(ProcurementRequest)
	if !ok {
		return models.ReviewRecord{}, wrongRequest(models.RoleProcurement)
	}
	if r.Decision != models.DecisionApproved && r.Decision != models.DecisionRejected {
		return models.ReviewRecord{}, guard("decision must be approved or rejected")
	}
	if err := checkSignoff(r.Signoff, r.Decision); err != nil {
		return models.ReviewRecord{}, err
	}
	payload := models.ProcurementPayload{}
	if r.Decision == models.DecisionApproved {
		if !r.Classification.IsValid() {
			return models.ReviewRecord{}, guard("supplier classification must be standard or opw_ir35")
		}
		payload.Classification = r.Classification
	}
	return record(r, r.Decision, payload, now), nil
}

// ContractHandler records the signed agreement.
type ContractHandler struct{}

func (ContractHandler) Role() models.Role { return models.RoleContractDrafter }

func (ContractHandler) Review(_ *models.Submission, req Request, now time.Time) (models.ReviewRecord, error) {
	r, ok := req.(ContractRequest)
	if !ok {
		return models.ReviewRecord{}, wrongRequest(models.RoleContractDrafter)
	}
	if r.Decision != models.DecisionApproved && r.Decision != models.DecisionRejected {
		return models.ReviewRecord{}, guard("decision must be approved or rejected")
	}
	if err := checkSignoff(r.Signoff, r.Decision); err != nil {
		return models.ReviewRecord{}, err
	}
	payload := models.ContractPayload{}
	if r.Decision == models.DecisionApproved {
		if blank(r.SignedAgreementReference) {
			return models.ReviewRecord{}, guard("signed agreement reference required")
		}
		payload.SignedAgreementReference = strings.TrimSpace(r.SignedAgreementReference)
	}
	return record(r, r.Decision, payload, now), nil
}

// APHandler verifies bank and company details before the supplier record is
// created.
type APHandler struct{}

func (APHandler) Role() models.Role { return models.RoleAPControl }

func (APHandler) Review(sub *models.Submission, req Request, now time.Time) (models.ReviewRecord, error) {
	r, ok := req.(APRequest)
	if !ok {
		return models.ReviewRecord{}, wrongRequest(models.RoleAPControl)
	}
	if r.Decision != models.DecisionApproved && r.Decision != models.DecisionRejected {
		return models.ReviewRecord{}, guard("decision must be approved or rejected")
	}
	if err := checkSignoff(r.Signoff, r.Decision); err != nil {
		return models.ReviewRecord{}, err
	}
	payload := models.APPayload{
		BankDetailsVerified:    r.BankDetailsVerified,
		CompanyDetailsVerified: r.CompanyDetailsVerified,
	}
	if r.Decision == models.DecisionApproved {
		if !r.BankDetailsVerified || !r.CompanyDetailsVerified {
			return models.ReviewRecord{}, guard("bank and company details must both be verified")
		}
		if blank(r.SupplierNumber) {
			return models.ReviewRecord{}, guard("supplier number required")
		}
		if err := incomplete(completeness.Section6, sub.RequesterFields, sub.Documents); err != nil {
			return models.ReviewRecord{}, err
		}
		payload.SupplierNumber = strings.TrimSpace(r.SupplierNumber)
	}
	return record(r, r.Decision, payload, now), nil
}
