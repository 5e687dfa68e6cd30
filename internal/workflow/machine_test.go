package workflow_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"supplierflow/internal/effects"
	"supplierflow/internal/matcher"
	"supplierflow/internal/review"
	"supplierflow/internal/submission/fixtures"
	"supplierflow/internal/submission/models"
	"supplierflow/internal/workflow"
	dErrors "supplierflow/pkg/domain-errors"
	"supplierflow/pkg/testutil"
)

var signoff = review.Signoff{Signer: "reviewer@example.org", Rationale: "reviewed"}

type MachineSuite struct {
	suite.Suite
	machine *workflow.Machine
	now     time.Time
}

func TestMachineSuite(t *testing.T) {
	suite.Run(t, new(MachineSuite))
}

func (s *MachineSuite) SetupTest() {
	s.machine = workflow.New()
	s.now = fixtures.Now
}

func (s *MachineSuite) tick() time.Time {
	s.now = s.now.Add(time.Hour)
	return s.now
}

func (s *MachineSuite) requireCode(err error, code dErrors.Code) {
	s.T().Helper()
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func (s *MachineSuite) submit(sub *models.Submission) *models.Submission {
	s.T().Helper()
	tr, err := s.machine.Submit(sub, workflow.SubmitInput{Now: s.tick()})
	s.Require().NoError(err)
	return tr.After
}

func (s *MachineSuite) review(sub *models.Submission, req review.Request) workflow.Transition {
	s.T().Helper()
	tr, err := s.machine.Review(sub, req, s.tick())
	s.Require().NoError(err)
	return tr
}

// toOPW submits f and takes it through PBP and an opw_ir35 classification.
func (s *MachineSuite) toOPW(f models.RequesterFields) *models.Submission {
	sub := s.submit(fixtures.Draft(f))
	sub = s.review(sub, review.PBPRequest{Signoff: signoff, Decision: models.DecisionApproved}).After
	return s.review(sub, review.ProcurementRequest{Signoff: signoff, Decision: models.DecisionApproved, Classification: models.ClassificationOPWIR35}).After
}

func (s *MachineSuite) TestSubmit() {
	s.Run("complete draft goes to PBP", func() {
		draft := fixtures.Draft(fixtures.LimitedCompanyFields())
		tr, err := s.machine.Submit(draft, workflow.SubmitInput{Now: s.tick()})
		s.Require().NoError(err)

		s.Equal(models.StatusPendingPBP, tr.After.Status)
		s.Equal(models.StagePBP, tr.After.Stage)
		s.Equal(draft.Version+1, tr.After.Version)
		s.Require().NotNil(tr.After.SubmittedAt)
		s.Equal(s.now, *tr.After.SubmittedAt)
		s.Equal([]effects.Kind{effects.KindNotifyRequester, effects.KindNotifyDepartment}, effects.Kinds(tr.Effects))
		s.Equal(models.StatusDraft, draft.Status, "input snapshot untouched")
		s.Nil(tr.Record)
	})

	s.Run("incomplete draft reports what is missing", func() {
		f := fixtures.LimitedCompanyFields()
		f.Acknowledgement.FinalAcknowledgement = false
		f.Supplier.City = ""
		_, err := s.machine.Submit(fixtures.Draft(f), workflow.SubmitInput{Now: s.tick()})
		s.requireCode(err, dErrors.CodeValidation)
		s.Equal([]string{"City", "Final acknowledgement"}, dErrors.DetailsOf(err))
	})

	s.Run("supplier connection raises a conflict of interest flag", func() {
		f := fixtures.LimitedCompanyFields()
		f.PreScreening.SupplierConnection = models.Yes
		f.PreScreening.ConnectionDetails = "Director is a former employee"
		tr, err := s.machine.Submit(fixtures.Draft(f), workflow.SubmitInput{Now: s.tick()})
		s.Require().NoError(err)
		s.True(tr.After.Flags.ConflictOfInterest)
		s.Contains(tr.Effects, effects.Effect(effects.FlagConflictOfInterest{
			SubmissionID: tr.After.ID,
			Details:      "Director is a former employee",
		}))
	})

	s.Run("similar supplier names are flagged", func() {
		tr, err := s.machine.Submit(fixtures.Draft(fixtures.LimitedCompanyFields()), workflow.SubmitInput{
			Suppliers: matcher.EntriesFromNames([]string{"ACME HEALTH", "Northwind"}),
			Watchlist: matcher.EntriesFromNames([]string{"Acme Healthcare"}),
			Now:       s.tick(),
		})
		s.Require().NoError(err)
		s.True(tr.After.Flags.PossibleDuplicate)
		s.True(tr.After.Flags.Watchlisted)
		s.Require().NotNil(tr.Screening)
		s.Len(tr.Screening.Suppliers, 1)
		s.Equal(matcher.ExactMatch, tr.Screening.Suppliers[0].Classification)
		s.Contains(effects.Kinds(tr.Effects), effects.KindFlagPossibleDuplicate)
	})

	s.Run("cannot submit twice", func() {
		sub := s.submit(fixtures.Draft(fixtures.LimitedCompanyFields()))
		_, err := s.machine.Submit(sub, workflow.SubmitInput{Now: s.tick()})
		s.requireCode(err, dErrors.CodeIntegrity)
	})
}

// TestRoutingTable walks the branch scenarios end to end.
func (s *MachineSuite) TestRoutingTable() {
	s.Run("employed sole trader completes in payroll without AP", func() {
		sub := s.toOPW(fixtures.SoleTraderFields())
		tr := s.review(sub, review.OPWRequest{Signoff: signoff, EmploymentStatus: models.EmploymentEmployed})

		s.Equal(models.RoutePayrollESR, tr.After.OutcomeRoute)
		s.Equal(models.StatusCompletedPayroll, tr.After.Status)
		s.Equal(models.StageNone, tr.After.Stage)
		s.Empty(workflow.Reachable(tr.After.Status))
		s.NotContains(tr.Effects, effects.Effect(effects.NotifyDepartment{
			SubmissionID: tr.After.ID,
			Department:   models.DepartmentAPControl,
		}))

		_, err := s.machine.Review(tr.After, review.APRequest{Signoff: signoff, Decision: models.DecisionApproved}, s.tick())
		s.requireCode(err, dErrors.CodeTerminalState)
	})

	s.Run("self-employed sole trader without contract goes to AP", func() {
		sub := s.toOPW(fixtures.SoleTraderFields())
		tr := s.review(sub, review.OPWRequest{Signoff: signoff, EmploymentStatus: models.EmploymentSelfEmployed, ContractRequired: models.No})

		s.Equal(models.StatusPendingAP, tr.After.Status)
		s.Equal(models.StageAPControl, tr.After.Stage)
		s.Equal(models.RouteOracleAP, tr.After.OutcomeRoute)
	})

	s.Run("inside IR35 routes to payroll with no contract or AP reachable", func() {
		sub := s.toOPW(fixtures.LimitedCompanyFields())
		tr := s.review(sub, review.OPWRequest{Signoff: signoff, IR35Determination: models.IR35Inside})

		s.Equal(models.RoutePayrollESR, tr.After.OutcomeRoute)
		s.Equal(models.StatusCompletedPayroll, tr.After.Status)
		s.False(workflow.IsReachable(tr.After.Status, models.StatusPendingContract))
		s.False(workflow.IsReachable(tr.After.Status, models.StatusPendingAP))
	})

	s.Run("outside IR35 with contract waits on the contract drafter", func() {
		sub := s.toOPW(fixtures.LimitedCompanyFields())
		tr := s.review(sub, review.OPWRequest{Signoff: signoff, IR35Determination: models.IR35Outside, ContractRequired: models.Yes})
		s.Equal(models.StatusPendingContract, tr.After.Status)
		s.Equal(models.StageContractDrafter, tr.After.Stage)
		s.Equal(models.RouteOracleAP, tr.After.OutcomeRoute)

		_, err := s.machine.Review(tr.After, review.APRequest{Signoff: signoff, Decision: models.DecisionApproved, BankDetailsVerified: true, CompanyDetailsVerified: true, SupplierNumber: "S-1"}, s.tick())
		s.requireCode(err, dErrors.CodeIntegrity)

		tr = s.review(tr.After, review.ContractRequest{Signoff: signoff, Decision: models.DecisionApproved, SignedAgreementReference: "CN-7"})
		s.Equal(models.StatusPendingAP, tr.After.Status)

		tr = s.review(tr.After, review.APRequest{Signoff: signoff, Decision: models.DecisionApproved, BankDetailsVerified: true, CompanyDetailsVerified: true, SupplierNumber: "S-1"})
		s.Equal(models.StatusCompletedOracle, tr.After.Status)
		s.Len(tr.After.Reviews, 5)
	})

	s.Run("standard classification skips OPW even for a personal service", func() {
		sub := s.submit(fixtures.Draft(fixtures.SoleTraderFields()))
		sub = s.review(sub, review.PBPRequest{Signoff: signoff, Decision: models.DecisionApproved}).After
		tr := s.review(sub, review.ProcurementRequest{Signoff: signoff, Decision: models.DecisionApproved, Classification: models.ClassificationStandard})

		s.Equal(models.StatusPendingAP, tr.After.Status)
		s.Equal(models.RouteOracleAP, tr.After.OutcomeRoute)
		s.False(workflow.IsReachable(tr.After.Status, models.StatusPendingOPW))

		_, err := s.machine.Review(tr.After, review.OPWRequest{Signoff: signoff, EmploymentStatus: models.EmploymentEmployed}, s.tick())
		s.requireCode(err, dErrors.CodeIntegrity)
	})

	s.Run("rejection needs a reason and appends one record", func() {
		sub := s.submit(fixtures.Draft(fixtures.LimitedCompanyFields()))
		_, err := s.machine.Review(sub, review.PBPRequest{Signoff: review.Signoff{Signer: "pbp"}, Decision: models.DecisionRejected}, s.tick())
		s.requireCode(err, dErrors.CodeGuardViolation)

		tr := s.review(sub, review.PBPRequest{Signoff: review.Signoff{Signer: "pbp", Rationale: "Use the framework supplier"}, Decision: models.DecisionRejected})
		s.Equal(models.StatusRejected, tr.After.Status)
		s.Len(tr.After.Reviews, len(sub.Reviews)+1)
		s.Require().NotNil(tr.Record)
		s.Equal(models.DecisionRejected, tr.Record.Decision)
	})
}

func (s *MachineSuite) TestRejectionEffects() {
	f := fixtures.LimitedCompanyFields()
	draft := fixtures.Draft(f)
	draft.AlembaReference = "ALM-991"
	sub := s.submit(draft)

	tr := s.review(sub, review.PBPRequest{Signoff: review.Signoff{Signer: "pbp", Rationale: "Not value for money"}, Decision: models.DecisionRejected})
	s.Equal([]effects.Effect{
		effects.NotifyRequester{SubmissionID: sub.ID, Recipient: sub.SubmittedBy, Outcome: effects.OutcomeRejected, Reason: "Not value for money"},
		effects.CloseExternalTicket{SubmissionID: sub.ID, Reference: "ALM-991", Outcome: effects.OutcomeRejected, Summary: "Not value for money"},
		effects.WatchlistSupplier{SubmissionID: sub.ID, Name: "Acme Health Ltd", Reason: "Not value for money"},
	}, tr.Effects)
}

func (s *MachineSuite) TestInfoRequiredLoop() {
	sub := s.submit(fixtures.Draft(fixtures.LimitedCompanyFields()))

	tr := s.review(sub, review.PBPRequest{Signoff: signoff, Decision: models.DecisionInfoRequired, RequestedInformation: "Second quote"})
	s.Equal(models.StatusPendingPBP, tr.After.Status)
	s.Equal(models.StageRequester, tr.After.Stage)
	s.Equal([]effects.Kind{effects.KindNotifyRequester}, effects.Kinds(tr.Effects))
	sub = tr.After

	_, err := s.machine.Review(sub, review.PBPRequest{Signoff: signoff, Decision: models.DecisionApproved}, s.tick())
	s.requireCode(err, dErrors.CodeGuardViolation)

	fields := sub.RequesterFields
	fields.PreScreening.Justification = "Second quote attached, 20% cheaper"
	amended, err := s.machine.Amend(sub, fields, sub.Documents, s.tick())
	s.Require().NoError(err)
	s.Equal("Second quote attached, 20% cheaper", amended.After.RequesterFields.PreScreening.Justification)
	s.Equal(sub.Version+1, amended.After.Version)

	resub, err := s.machine.Resubmit(amended.After, s.tick())
	s.Require().NoError(err)
	s.Equal(models.StagePBP, resub.After.Stage)

	_, err = s.machine.Resubmit(resub.After, s.tick())
	s.requireCode(err, dErrors.CodeIntegrity)

	tr = s.review(resub.After, review.PBPRequest{Signoff: signoff, Decision: models.DecisionApproved})
	s.Equal(models.StatusPendingProcurement, tr.After.Status)
	s.Len(tr.After.Reviews, 2)
}

func (s *MachineSuite) TestAmend() {
	s.Run("blocked once under review", func() {
		sub := s.submit(fixtures.Draft(fixtures.LimitedCompanyFields()))
		_, err := s.machine.Amend(sub, sub.RequesterFields, sub.Documents, s.tick())
		s.requireCode(err, dErrors.CodeGuardViolation)
	})

	s.Run("draft edits are isolated from the caller", func() {
		draft := fixtures.Draft(fixtures.LimitedCompanyFields())
		docs := models.Documents{}
		tr, err := s.machine.Amend(draft, models.RequesterFields{}, docs, s.tick())
		s.Require().NoError(err)
		docs[models.DocLetterhead] = models.Document{Present: true}
		s.False(tr.After.Documents.Has(models.DocLetterhead))
		s.Empty(tr.Effects)
	})
}

func (s *MachineSuite) TestSDS() {
	sub := s.toOPW(fixtures.LimitedCompanyFields())
	issued := s.tick()
	tr := s.review(sub, review.OPWRequest{Signoff: signoff, IR35Determination: models.IR35Inside, SDSIssued: true, SDSIssuedAt: issued})

	s.Equal(models.StatusSDSIssuedAwaitingResponse, tr.After.Status)
	s.Equal(models.StageWorker, tr.After.Stage)
	s.Equal(models.RoutePayrollESR, tr.After.OutcomeRoute)
	s.Require().NotNil(tr.After.SDS)
	s.Equal(issued, tr.After.SDS.IssuedAt)
	s.Equal([]models.Status{models.StatusCompletedPayroll}, workflow.Reachable(tr.After.Status))

	_, err := s.machine.Review(tr.After, review.ContractRequest{Signoff: signoff, Decision: models.DecisionApproved, SignedAgreementReference: "x"}, s.tick())
	s.requireCode(err, dErrors.CodeTerminalState)

	received := issued.Add(20 * 24 * time.Hour)
	done, err := s.machine.RecordSDSResponse(tr.After, received)
	s.Require().NoError(err)
	s.Equal(models.StatusCompletedPayroll, done.After.Status)
	s.True(done.After.SDS.ResponseReceived)
	s.Equal(20, done.After.SDS.DaysElapsed(received.Add(48*time.Hour)))
	s.False(tr.After.SDS.ResponseReceived, "previous snapshot untouched")

	_, err = s.machine.RecordSDSResponse(done.After, s.tick())
	s.requireCode(err, dErrors.CodeTerminalState)

	_, err = s.machine.RecordSDSResponse(sub, s.tick())
	s.requireCode(err, dErrors.CodeIntegrity)
}

func (s *MachineSuite) TestCustomThresholds() {
	m := workflow.New(workflow.WithThresholds(matcher.Thresholds{Suppliers: 100, Watchlist: 100}))
	tr, err := m.Submit(fixtures.Draft(fixtures.LimitedCompanyFields()), workflow.SubmitInput{
		Suppliers: matcher.EntriesFromNames([]string{"Acme Helth"}),
		Now:       s.tick(),
	})
	s.Require().NoError(err)
	s.False(tr.After.Flags.PossibleDuplicate)
}

func TestGraph(t *testing.T) {
	testutil.Given(t, "the transition table", func(t *testing.T) {
		testutil.Then(t, "terminal statuses have no outgoing edges", func(t *testing.T) {
			for _, st := range models.AllStatuses {
				if st.IsTerminal() && len(workflow.Edges[st]) != 0 {
					t.Errorf("%s has outgoing edges", st)
				}
			}
		})
		testutil.Then(t, "every non-terminal status can reach a terminal one", func(t *testing.T) {
			for _, st := range models.AllStatuses {
				if st.IsTerminal() {
					continue
				}
				found := false
				for _, r := range workflow.Reachable(st) {
					found = found || r.IsTerminal()
				}
				if !found {
					t.Errorf("%s cannot terminate", st)
				}
			}
		})
		testutil.Then(t, "contract approval leads to AP", func(t *testing.T) {
			if !workflow.CanTransition(models.StatusPendingContract, models.StatusPendingAP) ||
				workflow.CanTransition(models.StatusPendingContract, models.StatusCompletedOracle) {
				t.Error("contract must lead to AP, not straight to completion")
			}
		})
		testutil.Then(t, "routes list every edge once", func(t *testing.T) {
			count := 0
			for _, to := range workflow.Edges {
				count += len(to)
			}
			if len(workflow.Routes()) != count {
				t.Errorf("got %d routes, want %d", len(workflow.Routes()), count)
			}
		})
	})
}
