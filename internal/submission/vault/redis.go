package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"supplierflow/internal/submission/models"
	id "supplierflow/pkg/domain"
	"supplierflow/pkg/platform/sentinel"
)

const bankKeyPrefix = "supplierflow:bank:"

// Redis stores secrets as JSON values that expire after ttl. A zero ttl
// keeps them until deleted.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (s *Redis) Put(ctx context.Context, subID id.SubmissionID, secrets models.BankSecrets) error {
	raw, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("encode bank details: %w", err)
	}
	return s.client.Set(ctx, bankKeyPrefix+subID.String(), raw, s.ttl).Err()
}

func (s *Redis) Get(ctx context.Context, subID id.SubmissionID) (models.BankSecrets, error) {
	raw, err := s.client.Get(ctx, bankKeyPrefix+subID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.BankSecrets{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.BankSecrets{}, err
	}
	var secrets models.BankSecrets
	if err := json.Unmarshal(raw, &secrets); err != nil {
		return models.BankSecrets{}, fmt.Errorf("decode bank details: %w", err)
	}
	return secrets, nil
}

func (s *Redis) Delete(ctx context.Context, subID id.SubmissionID) error {
	return s.client.Del(ctx, bankKeyPrefix+subID.String()).Err()
}
