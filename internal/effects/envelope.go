package effects

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "supplierflow/pkg/domain"
	"supplierflow/pkg/requestcontext"
)

// Envelope is the wire form of an effect. The ID is stable across retries so
// consumers can drop redelivered messages.
type Envelope struct {
	ID           uuid.UUID       `json:"id"`
	Kind         Kind            `json:"kind"`
	SubmissionID id.SubmissionID `json:"submission_id"`
	Version      int             `json:"version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	RequestID    string          `json:"request_id,omitempty"`
	Payload      json.RawMessage `json:"payload"`
}

// Seal wraps effects raised by the transition that produced the given
// submission version.
func Seal(ctx context.Context, version int, effs []Effect) ([]Envelope, error) {
	now := requestcontext.Now(ctx)
	reqID := requestcontext.RequestID(ctx)
	out := make([]Envelope, 0, len(effs))
	for _, e := range effs {
		payload, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal %s effect: %w", e.Kind(), err)
		}
		out = append(out, Envelope{
			ID:           uuid.New(),
			Kind:         e.Kind(),
			SubmissionID: e.Submission(),
			Version:      version,
			OccurredAt:   now,
			RequestID:    reqID,
			Payload:      payload,
		})
	}
	return out, nil
}

// Open decodes the payload back into its effect type.
func (e Envelope) Open() (Effect, error) {
	switch e.Kind {
	case KindNotifyRequester:
		return decode[NotifyRequester](e)
	case KindNotifyDepartment:
		return decode[NotifyDepartment](e)
	case KindCloseExternalTicket:
		return decode[CloseExternalTicket](e)
	case KindFlagConflictOfInterest:
		return decode[FlagConflictOfInterest](e)
	case KindFlagPossibleDuplicate:
		return decode[FlagPossibleDuplicate](e)
	case KindWatchlistSupplier:
		return decode[WatchlistSupplier](e)
	}
	return nil, fmt.Errorf("unknown effect kind %q", e.Kind)
}

func decode[T Effect](e Envelope) (Effect, error) {
	var v T
	if err := json.Unmarshal(e.Payload, &v); err != nil {
		return nil, fmt.Errorf("decode %s effect: %w", e.Kind, err)
	}
	return v, nil
}
