package workflow_test

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"supplierflow/internal/review"
	"supplierflow/internal/submission/fixtures"
	"supplierflow/internal/submission/models"
	"supplierflow/internal/workflow"
	dErrors "supplierflow/pkg/domain-errors"
)

var closedStatuses = []models.Status{
	models.StatusRejected,
	models.StatusCompletedOracle,
	models.StatusCompletedPayroll,
	models.StatusSDSIssuedAwaitingResponse,
}

type operation func(m *workflow.Machine, sub *models.Submission) (workflow.Transition, error)

var operations = []operation{
	func(m *workflow.Machine, sub *models.Submission) (workflow.Transition, error) {
		return m.Submit(sub, workflow.SubmitInput{Now: fixtures.Now})
	},
	func(m *workflow.Machine, sub *models.Submission) (workflow.Transition, error) {
		return m.Amend(sub, fixtures.LimitedCompanyFields(), nil, fixtures.Now)
	},
	func(m *workflow.Machine, sub *models.Submission) (workflow.Transition, error) {
		return m.Resubmit(sub, fixtures.Now)
	},
	func(m *workflow.Machine, sub *models.Submission) (workflow.Transition, error) {
		return m.Review(sub, review.PBPRequest{Signoff: signoff, Decision: models.DecisionApproved}, fixtures.Now)
	},
	func(m *workflow.Machine, sub *models.Submission) (workflow.Transition, error) {
		return m.Review(sub, review.ProcurementRequest{Signoff: signoff, Decision: models.DecisionRejected}, fixtures.Now)
	},
	func(m *workflow.Machine, sub *models.Submission) (workflow.Transition, error) {
		return m.Review(sub, review.OPWRequest{Signoff: signoff, EmploymentStatus: models.EmploymentEmployed}, fixtures.Now)
	},
	func(m *workflow.Machine, sub *models.Submission) (workflow.Transition, error) {
		return m.Review(sub, review.ContractRequest{Signoff: signoff, Decision: models.DecisionApproved, SignedAgreementReference: "CN-1"}, fixtures.Now)
	},
	func(m *workflow.Machine, sub *models.Submission) (workflow.Transition, error) {
		return m.Review(sub, review.APRequest{Signoff: signoff, Decision: models.DecisionApproved, BankDetailsVerified: true, CompanyDetailsVerified: true, SupplierNumber: "S-9"}, fixtures.Now)
	},
}

// TestClosedSubmissionsRefuseChanges checks that once a submission is closed
// every stage operation fails with a terminal state error and leaves the
// snapshot untouched. Recording an SDS response is the one way out of the
// SDS status and is covered separately.
func TestClosedSubmissionsRefuseChanges(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	machine := workflow.New()

	properties.Property("closed submissions are immutable", prop.ForAll(
		func(statusIdx, opIdx int, soleTrader bool) bool {
			fields := fixtures.LimitedCompanyFields()
			if soleTrader {
				fields = fixtures.SoleTraderFields()
			}
			sub := fixtures.AtStatus(fields, closedStatuses[statusIdx], models.StageNone)
			before := sub.Clone()

			_, err := operations[opIdx](machine, sub)
			return dErrors.HasCode(err, dErrors.CodeTerminalState) && reflect.DeepEqual(before, sub)
		},
		gen.IntRange(0, len(closedStatuses)-1),
		gen.IntRange(0, len(operations)-1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestTransitionsFollowTheTable drives random operation sequences from a
// fresh draft and checks every successful step against the transition table.
func TestTransitionsFollowTheTable(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	machine := workflow.New()

	properties.Property("every applied transition is an edge", prop.ForAll(
		func(steps []int) bool {
			sub := fixtures.Draft(fixtures.LimitedCompanyFields())
			for _, idx := range steps {
				tr, err := operations[idx](machine, sub)
				if err != nil {
					continue
				}
				if tr.StatusChanged() && !workflow.CanTransition(tr.Before.Status, tr.After.Status) {
					return false
				}
				if tr.After.Version != sub.Version+1 {
					return false
				}
				if len(tr.After.Reviews) < len(sub.Reviews) {
					return false
				}
				sub = tr.After
			}
			return true
		},
		gen.SliceOfN(12, gen.IntRange(0, len(operations)-1)),
	))

	properties.TestingRun(t)
}
