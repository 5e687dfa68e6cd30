package effects

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
)

// Publisher delivers sealed effects to their collaborators. Delivery is
// at-least-once; consumers dedupe on Envelope.ID.
type Publisher interface {
	Publish(ctx context.Context, envs []Envelope) error
}

// MemoryPublisher keeps every published envelope. Used by tests and the
// in-memory server mode.
type MemoryPublisher struct {
	mu   sync.Mutex
	envs []Envelope
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, envs []Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs = append(p.envs, envs...)
	return nil
}

// Published returns a copy of everything published so far.
func (p *MemoryPublisher) Published() []Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.envs)
}

// Kinds lists the kinds published so far, in order.
func (p *MemoryPublisher) Kinds() []Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Kind, len(p.envs))
	for i, e := range p.envs {
		out[i] = e.Kind
	}
	return out
}

// LogPublisher writes each envelope as a structured log line. It stands in
// for the notification and ticketing integrations in development.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, envs []Envelope) error {
	for _, e := range envs {
		p.logger.InfoContext(ctx, "effect published",
			"effect_id", e.ID.String(),
			"kind", string(e.Kind),
			"submission_id", e.SubmissionID.String(),
			"version", e.Version,
			"request_id", e.RequestID,
		)
	}
	return nil
}

// MultiPublisher fans envelopes out to every publisher. All publishers are
// tried; the returned error joins every failure.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, envs []Envelope) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, envs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
