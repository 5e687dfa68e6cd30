package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"supplierflow/internal/submission/fixtures"
	"supplierflow/internal/submission/models"
	dErrors "supplierflow/pkg/domain-errors"
)

type VaultSuite struct {
	suite.Suite
	store *InMemory
	vault *Vault
	ctx   context.Context
}

func TestVaultSuite(t *testing.T) {
	suite.Run(t, new(VaultSuite))
}

func (s *VaultSuite) SetupTest() {
	s.store = NewInMemory()
	v, err := New(s.store, []byte("test-fingerprint-key"))
	s.Require().NoError(err)
	s.vault = v
	s.ctx = context.Background()
}

func (s *VaultSuite) TestNewRejectsBadKeys() {
	_, err := New(s.store, nil)
	s.Error(err)
	_, err = New(s.store, make([]byte, 65))
	s.Error(err)
}

func (s *VaultSuite) TestSealRedactsAndOpenRestores() {
	sub := fixtures.Draft(fixtures.LimitedCompanyFields())

	sealed, err := s.vault.Seal(s.ctx, sub)
	s.Require().NoError(err)
	s.Equal(models.UKAccount{}, sealed.RequesterFields.Financial.Account)
	s.NotEmpty(sealed.RequesterFields.Financial.BankFingerprint)
	s.Equal(1, s.store.Len())
	s.Equal(models.UKAccount{SortCode: "12-34-56", AccountNumber: "12345678"}, sub.RequesterFields.Financial.Account, "input is not modified")

	opened, err := s.vault.Open(s.ctx, sealed)
	s.Require().NoError(err)
	s.Equal(sub.RequesterFields.Financial.Account, opened.RequesterFields.Financial.Account)

	again, err := s.vault.Seal(s.ctx, opened)
	s.Require().NoError(err)
	s.Equal(sealed.RequesterFields.Financial.BankFingerprint, again.RequesterFields.Financial.BankFingerprint)
}

func (s *VaultSuite) TestOverseasAccount() {
	f := fixtures.LimitedCompanyFields()
	f.Financial.Account = models.OverseasAccount{IBAN: "DE89370400440532013000", SWIFT: "COBADEFFXXX"}
	sub := fixtures.Draft(f)

	sealed, err := s.vault.Seal(s.ctx, sub)
	s.Require().NoError(err)
	s.Equal(models.Yes, sealed.RequesterFields.Financial.Overseas())

	opened, err := s.vault.Open(s.ctx, sealed)
	s.Require().NoError(err)
	s.Equal(f.Financial.Account, opened.RequesterFields.Financial.Account)
}

func (s *VaultSuite) TestSwappedEntryIsIntegrityError() {
	a := fixtures.Draft(fixtures.LimitedCompanyFields())
	other := fixtures.LimitedCompanyFields()
	other.Financial.Account = models.UKAccount{SortCode: "65-43-21", AccountNumber: "87654321"}
	b := fixtures.Draft(other)

	sealedA, err := s.vault.Seal(s.ctx, a)
	s.Require().NoError(err)
	_, err = s.vault.Seal(s.ctx, b)
	s.Require().NoError(err)

	secretsB, err := s.store.Get(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Put(s.ctx, a.ID, secretsB))

	_, err = s.vault.Open(s.ctx, sealedA)
	s.True(dErrors.HasCode(err, dErrors.CodeIntegrity))
}

func (s *VaultSuite) TestMissingEntry() {
	sub := fixtures.Draft(fixtures.LimitedCompanyFields())
	sealed, err := s.vault.Seal(s.ctx, sub)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Delete(s.ctx, sub.ID))

	s.Run("open submission comes back without bank details", func() {
		opened, err := s.vault.Open(s.ctx, sealed)
		s.Require().NoError(err)
		s.Equal(models.UKAccount{}, opened.RequesterFields.Financial.Account)
		s.Empty(opened.RequesterFields.Financial.BankFingerprint)
		s.NotEmpty(sealed.RequesterFields.Financial.BankFingerprint, "input is not modified")

		resealed, err := s.vault.Seal(s.ctx, opened)
		s.Require().NoError(err)
		s.Empty(resealed.RequesterFields.Financial.BankFingerprint)
		s.Equal(0, s.store.Len())
	})

	s.Run("terminal submission stays redacted", func() {
		closed := sealed.Clone()
		closed.Status = models.StatusRejected
		opened, err := s.vault.Open(s.ctx, closed)
		s.Require().NoError(err)
		s.Equal(models.UKAccount{}, opened.RequesterFields.Financial.Account)
	})
}

func (s *VaultSuite) TestTerminalSealDropsSecrets() {
	sub := fixtures.Draft(fixtures.LimitedCompanyFields())
	_, err := s.vault.Seal(s.ctx, sub)
	s.Require().NoError(err)
	s.Equal(1, s.store.Len())

	done := sub.Clone()
	done.Status = models.StatusCompletedOracle
	sealed, err := s.vault.Seal(s.ctx, done)
	s.Require().NoError(err)
	s.Equal(0, s.store.Len())
	s.NotEmpty(sealed.RequesterFields.Financial.BankFingerprint)
	s.Equal(models.UKAccount{}, sealed.RequesterFields.Financial.Account)
}

func (s *VaultSuite) TestNoAccountIsPassThrough() {
	f := fixtures.LimitedCompanyFields()
	f.Financial.Account = nil
	sub := fixtures.Draft(f)

	sealed, err := s.vault.Seal(s.ctx, sub)
	s.Require().NoError(err)
	s.Empty(sealed.RequesterFields.Financial.BankFingerprint)
	s.Equal(0, s.store.Len())

	opened, err := s.vault.Open(s.ctx, sealed)
	s.Require().NoError(err)
	s.Nil(opened.RequesterFields.Financial.Account)
}
