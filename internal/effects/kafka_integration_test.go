//go:build integration

package effects_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"supplierflow/internal/effects"
	"supplierflow/internal/platform/config"
	"supplierflow/internal/platform/kafka"
	id "supplierflow/pkg/domain"
	"supplierflow/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	client   *kgo.Client
	topic    string
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	s.topic = "supplierflow.effects.test"

	cfg := config.Default().Kafka
	cfg.Brokers = []string{s.redpanda.Broker}
	cfg.Topic = s.topic

	ctx := context.Background()
	cl, err := kafka.New(ctx, cfg)
	s.Require().NoError(err)
	s.Require().NoError(kafka.EnsureTopic(ctx, cl, s.topic, 1, 1))
	// Creating twice is not an error.
	s.Require().NoError(kafka.EnsureTopic(ctx, cl, s.topic, 1, 1))
	s.client = cl
}

func (s *KafkaPublisherSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *KafkaPublisherSuite) TestPublishedEnvelopesAreKeyedBySubmission() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	subID := id.NewSubmissionID()
	envs, err := effects.Seal(testContext(), 3, sampleEffects(subID))
	s.Require().NoError(err)

	pub := effects.NewKafkaPublisher(s.client, s.topic)
	s.Require().NoError(pub.Publish(ctx, envs))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var got []effects.Envelope
	for len(got) < len(envs) {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err(), "timed out waiting for records")
		fetches.EachRecord(func(r *kgo.Record) {
			if string(r.Key) != subID.String() {
				return
			}
			var env effects.Envelope
			s.Require().NoError(json.Unmarshal(r.Value, &env))
			s.Equal(string(env.Kind), headerValue(r, "kind"))
			s.Equal(env.ID.String(), headerValue(r, "effect_id"))
			got = append(got, env)
		})
	}

	s.Require().Len(got, len(envs))
	for i := range envs {
		s.Equal(envs[i].ID, got[i].ID)
		s.Equal(envs[i].Kind, got[i].Kind)
		s.Equal(3, got[i].Version)
	}
}

func headerValue(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
