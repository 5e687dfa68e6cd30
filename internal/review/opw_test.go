package review_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplierflow/internal/review"
	"supplierflow/internal/submission/fixtures"
	"supplierflow/internal/submission/models"
	dErrors "supplierflow/pkg/domain-errors"
)

func TestDeriveWorkerClassification(t *testing.T) {
	tests := []struct {
		name     string
		entity   models.Entity
		personal models.YesNo
		want     models.WorkerClassification
	}{
		{"personal-service sole trader", models.SoleTrader{}, models.Yes, models.WorkerSoleTrader},
		{"personal service, type unset", nil, models.Yes, models.WorkerSoleTrader},
		{"sole trader without personal service", models.SoleTrader{}, models.No, models.WorkerIntermediary},
		{"limited company", models.LimitedCompany{}, models.Yes, models.WorkerIntermediary},
		{"partnership", models.Partnership{}, models.No, models.WorkerIntermediary},
		{"charity", models.Charity{}, models.Yes, models.WorkerIntermediary},
		{"public sector", models.PublicSector{}, models.Unanswered, models.WorkerIntermediary},
		{"nothing answered", nil, models.Unanswered, models.WorkerIntermediary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f models.RequesterFields
			f.Classification.Entity = tt.entity
			f.PreScreening.PersonalService = tt.personal
			assert.Equal(t, tt.want, review.DeriveWorkerClassification(f))
		})
	}
}

func opwSubmission(f models.RequesterFields) *models.Submission {
	return fixtures.AtStatus(f, models.StatusPendingOPW, models.StageOPW)
}

func TestOPWSoleTraderBranch(t *testing.T) {
	registry := review.DefaultRegistry()
	sub := opwSubmission(fixtures.SoleTraderFields())

	t.Run("IR35 fields are refused", func(t *testing.T) {
		_, err := registry.Review(sub, review.OPWRequest{Signoff: signed, IR35Determination: models.IR35Inside}, fixtures.Now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeGuardViolation))
	})

	t.Run("employment status required", func(t *testing.T) {
		_, err := registry.Review(sub, review.OPWRequest{Signoff: signed}, fixtures.Now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeGuardViolation))
	})

	t.Run("employed", func(t *testing.T) {
		rec, err := registry.Review(sub, review.OPWRequest{Signoff: review.Signoff{Signer: "opw"}, EmploymentStatus: models.EmploymentEmployed}, fixtures.Now)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionEmployed, rec.Decision)
		assert.Equal(t, models.OPWPayload{
			WorkerClassification: models.WorkerSoleTrader,
			EmploymentStatus:     models.EmploymentEmployed,
		}, rec.Payload)
	})

	t.Run("self employed needs the contract answer", func(t *testing.T) {
		_, err := registry.Review(sub, review.OPWRequest{Signoff: signed, EmploymentStatus: models.EmploymentSelfEmployed}, fixtures.Now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeGuardViolation))

		rec, err := registry.Review(sub, review.OPWRequest{Signoff: signed, EmploymentStatus: models.EmploymentSelfEmployed, ContractRequired: models.No}, fixtures.Now)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionSelfEmployed, rec.Decision)
		assert.Equal(t, models.No, rec.Payload.(models.OPWPayload).ContractRequired)
	})
}

func TestOPWIntermediaryBranch(t *testing.T) {
	registry := review.DefaultRegistry()
	sub := opwSubmission(fixtures.LimitedCompanyFields())

	t.Run("employment status is refused", func(t *testing.T) {
		_, err := registry.Review(sub, review.OPWRequest{Signoff: signed, EmploymentStatus: models.EmploymentEmployed}, fixtures.Now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeGuardViolation))
	})

	t.Run("rationale is mandatory for inside and outside", func(t *testing.T) {
		for _, det := range []models.IR35Determination{models.IR35Inside, models.IR35Outside} {
			_, err := registry.Review(sub, review.OPWRequest{
				Signoff:           review.Signoff{Signer: "opw"},
				IR35Determination: det,
				ContractRequired:  models.Yes,
			}, fixtures.Now)
			require.Error(t, err, det)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeGuardViolation))
		}
	})

	t.Run("SDS issue needs a date", func(t *testing.T) {
		_, err := registry.Review(sub, review.OPWRequest{Signoff: signed, IR35Determination: models.IR35Inside, SDSIssued: true}, fixtures.Now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeGuardViolation))
	})

	t.Run("SDS date without the SDS", func(t *testing.T) {
		_, err := registry.Review(sub, review.OPWRequest{Signoff: signed, IR35Determination: models.IR35Inside, SDSIssuedAt: fixtures.Now}, fixtures.Now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeGuardViolation))
	})

	t.Run("SDS only for inside", func(t *testing.T) {
		_, err := registry.Review(sub, review.OPWRequest{
			Signoff:           signed,
			IR35Determination: models.IR35Outside,
			ContractRequired:  models.No,
			SDSIssued:         true,
			SDSIssuedAt:       fixtures.Now,
		}, fixtures.Now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeGuardViolation))
	})

	t.Run("inside with SDS", func(t *testing.T) {
		rec, err := registry.Review(sub, review.OPWRequest{
			Signoff:           signed,
			IR35Determination: models.IR35Inside,
			SDSIssued:         true,
			SDSIssuedAt:       fixtures.Now,
		}, fixtures.Now)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionInside, rec.Decision)
		p := rec.Payload.(models.OPWPayload)
		assert.Equal(t, models.WorkerIntermediary, p.WorkerClassification)
		require.NotNil(t, p.SDS)
		assert.Equal(t, fixtures.Now, p.SDS.IssuedAt)
	})

	t.Run("outside needs the contract answer", func(t *testing.T) {
		_, err := registry.Review(sub, review.OPWRequest{Signoff: signed, IR35Determination: models.IR35Outside}, fixtures.Now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeGuardViolation))
	})
}
