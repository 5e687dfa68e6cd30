package review

import (
	"time"

	"supplierflow/internal/submission/models"
)

// Signoff is common to every reviewer action. Rationale doubles as the
// rejection reason.
type Signoff struct {
	Signer    string `json:"signer"`
	Rationale string `json:"rationale,omitempty"`
}

// Request is a proposed reviewer decision. Each concrete request belongs to
// exactly one role.
type Request interface {
	Role() models.Role
	signoff() Signoff
}

// PBPRequest is the Procurement Business Partner decision.
type PBPRequest struct {
	Signoff
	Decision             models.Decision `json:"decision"`
	RequestedInformation string          `json:"requested_information,omitempty"`
}

// ProcurementRequest classifies the supplier or rejects it.
type ProcurementRequest struct {
	Signoff
	Decision       models.Decision               `json:"decision"`
	Classification models.SupplierClassification `json:"supplier_classification,omitempty"`
}

// OPWRequest carries either an employment status (sole traders) or an IR35
// determination (intermediaries), never both.
type OPWRequest struct {
	Signoff
	EmploymentStatus  models.EmploymentStatus  `json:"employment_status,omitempty"`
	IR35Determination models.IR35Determination `json:"ir35_determination,omitempty"`
	ContractRequired  models.YesNo             `json:"contract_required,omitempty"`
	SDSIssued         bool                     `json:"sds_issued,omitempty"`
	SDSIssuedAt       time.Time                `json:"sds_issued_at,omitempty"`
}

// ContractRequest is the Contract Drafter decision.
type ContractRequest struct {
	Signoff
	Decision                 models.Decision `json:"decision"`
	SignedAgreementReference string          `json:"signed_agreement_reference,omitempty"`
}

// APRequest is the AP Control decision.
type APRequest struct {
	Signoff
	Decision               models.Decision `json:"decision"`
	BankDetailsVerified    bool            `json:"bank_details_verified"`
	CompanyDetailsVerified bool            `json:"company_details_verified"`
	SupplierNumber         string          `json:"supplier_number,omitempty"`
}

func (PBPRequest) Role() models.Role         { return models.RolePBP }
func (ProcurementRequest) Role() models.Role { return models.RoleProcurement }
func (OPWRequest) Role() models.Role         { return models.RoleOPW }
func (ContractRequest) Role() models.Role    { return models.RoleContractDrafter }
func (APRequest) Role() models.Role          { return models.RoleAPControl }

func (r PBPRequest) signoff() Signoff         { return r.Signoff }
func (r ProcurementRequest) signoff() Signoff { return r.Signoff }
func (r OPWRequest) signoff() Signoff         { return r.Signoff }
func (r ContractRequest) signoff() Signoff    { return r.Signoff }
func (r APRequest) signoff() Signoff          { return r.Signoff }
