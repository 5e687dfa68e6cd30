package review

import (
	"strings"
	"time"

	"supplierflow/internal/submission/models"
)

// DeriveWorkerClassification picks the OPW branch from the requester's
// answers. Anything that is not clearly a personal-service sole trader is
// treated as an intermediary.
func DeriveWorkerClassification(f models.RequesterFields) models.WorkerClassification {
	switch f.Classification.SupplierType() {
	case models.SupplierTypeSoleTrader, models.SupplierTypeUnset:
		if f.PersonalService().IsYes() {
			return models.WorkerSoleTrader
		}
	}
	return models.WorkerIntermediary
}

// OPWHandler makes the employment status or IR35 determination.
type OPWHandler struct{}

func (OPWHandler) Role() models.Role { return models.RoleOPW }

func (OPWHandler) Review(sub *models.Submission, req Request, now time.Time) (models.ReviewRecord, error) {
	r, ok := req.(OPWRequest)
	if !ok {
		return models.ReviewRecord{}, wrongRequest(models.RoleOPW)
	}
	worker := DeriveWorkerClassification(sub.RequesterFields)
	payload := models.OPWPayload{WorkerClassification: worker}

	var decision models.Decision
	var err error
	switch worker {
	case models.WorkerSoleTrader:
		decision, err = soleTraderDecision(r, &payload)
	case models.WorkerIntermediary:
		decision, err = intermediaryDecision(r, &payload)
	}
	if err != nil {
		return models.ReviewRecord{}, err
	}
	if err := checkSignoff(r.Signoff, decision); err != nil {
		return models.ReviewRecord{}, err
	}
	return record(r, decision, payload, now), nil
}

func soleTraderDecision(r OPWRequest, payload *models.OPWPayload) (models.Decision, error) {
	if r.IR35Determination != "" {
		return "", guard("IR35 determination does not apply to a personal-service sole trader")
	}
	if r.SDSIssued || !r.SDSIssuedAt.IsZero() {
		return "", guard("SDS tracking applies only to inside IR35 determinations")
	}
	if !r.EmploymentStatus.IsValid() {
		return "", guard("employment status must be employed, self_employed or rejected")
	}
	payload.EmploymentStatus = r.EmploymentStatus

	switch r.EmploymentStatus {
	case models.EmploymentEmployed:
		return models.DecisionEmployed, nil
	case models.EmploymentSelfEmployed:
		if !r.ContractRequired.Answered() {
			return "", guard("contract required (yes/no) must be answered")
		}
		payload.ContractRequired = r.ContractRequired
		return models.DecisionSelfEmployed, nil
	default:
		return models.DecisionRejected, nil
	}
}

func intermediaryDecision(r OPWRequest, payload *models.OPWPayload) (models.Decision, error) {
	if r.EmploymentStatus != "" {
		return "", guard("employment status does not apply to an intermediary")
	}
	if !r.IR35Determination.IsValid() {
		return "", guard("IR35 determination must be inside, outside or rejected")
	}
	payload.IR35Determination = r.IR35Determination

	if r.IR35Determination != models.IR35Inside && (r.SDSIssued || !r.SDSIssuedAt.IsZero()) {
		return "", guard("SDS tracking applies only to inside IR35 determinations")
	}
	if r.IR35Determination != models.IR35Rejected && strings.TrimSpace(r.Rationale) == "" {
		return "", guard("rationale required for an IR35 determination")
	}

	switch r.IR35Determination {
	case models.IR35Inside:
		if !r.SDSIssued && !r.SDSIssuedAt.IsZero() {
			return "", guard("SDS issue date given but the SDS is not marked as issued")
		}
		if r.SDSIssued {
			if r.SDSIssuedAt.IsZero() {
				return "", guard("SDS issue date required")
			}
			payload.SDS = &models.SDSTracking{Issued: true, IssuedAt: r.SDSIssuedAt}
		}
		return models.DecisionInside, nil
	case models.IR35Outside:
		if !r.ContractRequired.Answered() {
			return "", guard("contract required (yes/no) must be answered")
		}
		payload.ContractRequired = r.ContractRequired
		return models.DecisionOutside, nil
	default:
		return models.DecisionRejected, nil
	}
}
