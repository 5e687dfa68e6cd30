package review

import (
	"time"

	"supplierflow/internal/submission/models"
	dErrors "supplierflow/pkg/domain-errors"
)

// ErrTerminalMessage is reported for any action on a closed submission.
const ErrTerminalMessage = "submission is in a terminal state"

// Registry dispatches requests to the handler for their role.
type Registry struct {
	handlers map[models.Role]Handler
}

// NewRegistry builds a registry. A later handler for the same role replaces
// an earlier one.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[models.Role]Handler, len(handlers))}
	for _, h := range handlers {
		r.handlers[h.Role()] = h
	}
	return r
}

// DefaultRegistry has one handler per reviewer role.
func DefaultRegistry() *Registry {
	return NewRegistry(PBPHandler{}, ProcurementHandler{}, OPWHandler{}, ContractHandler{}, APHandler{})
}

// CheckOpen fails with a terminal-state error when the submission accepts
// no further reviews. An open SDS has already been routed to payroll.
func CheckOpen(sub *models.Submission) error {
	if sub.IsTerminal() || sub.Status == models.StatusSDSIssuedAwaitingResponse {
		return dErrors.New(dErrors.CodeTerminalState, ErrTerminalMessage)
	}
	return nil
}

// CheckOrder fails with an integrity error when role has already closed its
// stage or the submission is not waiting on role.
func CheckOrder(sub *models.Submission, role models.Role) error {
	if sub.HasDecisiveReview(role) {
		return dErrors.New(dErrors.CodeIntegrity, "a "+string(role)+" review has already been recorded")
	}
	if sub.Status != role.PendingStatus() {
		return dErrors.New(dErrors.CodeIntegrity, "submission is not at the "+string(role)+" stage")
	}
	return nil
}

// Review runs the ordering checks and then the role's handler. sub is not
// modified.
func (r *Registry) Review(sub *models.Submission, req Request, now time.Time) (models.ReviewRecord, error) {
	if req == nil {
		return models.ReviewRecord{}, dErrors.New(dErrors.CodeBadRequest, "review request required")
	}
	h, ok := r.handlers[req.Role()]
	if !ok {
		return models.ReviewRecord{}, dErrors.New(dErrors.CodeBadRequest, "no handler for role "+string(req.Role()))
	}
	if err := CheckOpen(sub); err != nil {
		return models.ReviewRecord{}, err
	}
	if err := CheckOrder(sub, req.Role()); err != nil {
		return models.ReviewRecord{}, err
	}
	if sub.AwaitingRequester() {
		return models.ReviewRecord{}, guard("waiting for the requester to respond to an information request")
	}
	return h.Review(sub, req, now)
}
