package effects

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"supplierflow/pkg/platform/circuit"
	"supplierflow/pkg/platform/sentinel"
)

// Producer is the part of *kgo.Client the Kafka publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher writes envelopes to a single topic keyed by submission id, so
// every consumer sees a submission's effects in order.
type KafkaPublisher struct {
	producer Producer
	topic    string
	breaker  *circuit.Breaker
}

type KafkaOption func(*KafkaPublisher)

// WithBreaker stops produce attempts while the broker keeps failing.
func WithBreaker(b *circuit.Breaker) KafkaOption {
	return func(p *KafkaPublisher) {
		p.breaker = b
	}
}

func NewKafkaPublisher(producer Producer, topic string, opts ...KafkaOption) *KafkaPublisher {
	p := &KafkaPublisher{producer: producer, topic: topic}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *KafkaPublisher) Publish(ctx context.Context, envs []Envelope) error {
	if len(envs) == 0 {
		return nil
	}
	records, err := p.records(envs)
	if err != nil {
		return err
	}
	if p.breaker != nil && !p.breaker.Allow() {
		return fmt.Errorf("kafka publisher circuit open: %w", sentinel.ErrUnavailable)
	}

	err = p.producer.ProduceSync(ctx, records...).FirstErr()
	if p.breaker != nil {
		if err != nil {
			p.breaker.RecordFailure()
		} else {
			p.breaker.RecordSuccess()
		}
	}
	if err != nil {
		return fmt.Errorf("produce effects: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) records(envs []Envelope) ([]*kgo.Record, error) {
	out := make([]*kgo.Record, 0, len(envs))
	for _, e := range envs {
		value, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal envelope: %w", err)
		}
		out = append(out, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(e.SubmissionID.String()),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "kind", Value: []byte(e.Kind)},
				{Key: "effect_id", Value: []byte(e.ID.String())},
			},
		})
	}
	return out, nil
}
