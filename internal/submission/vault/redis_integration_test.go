//go:build integration

package vault_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"supplierflow/internal/submission/models"
	"supplierflow/internal/submission/vault"
	id "supplierflow/pkg/domain"
	"supplierflow/pkg/platform/sentinel"
	"supplierflow/pkg/testutil/containers"
)

type RedisVaultSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *vault.Redis
}

func TestRedisVaultSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisVaultSuite))
}

func (s *RedisVaultSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = vault.NewRedis(s.redis.Client, time.Minute)
}

func (s *RedisVaultSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisVaultSuite) TestPutGetDelete() {
	ctx := context.Background()
	subID := id.NewSubmissionID()
	secrets := models.BankSecrets{SortCode: "12-34-56", AccountNumber: "12345678"}

	s.Require().NoError(s.store.Put(ctx, subID, secrets))
	got, err := s.store.Get(ctx, subID)
	s.Require().NoError(err)
	s.Equal(secrets, got)

	ttl, err := s.redis.Client.TTL(ctx, "supplierflow:bank:"+subID.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))

	s.Require().NoError(s.store.Delete(ctx, subID))
	_, err = s.store.Get(ctx, subID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
