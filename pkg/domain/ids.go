// Package domain holds typed identifiers shared across modules. Parsing
// happens once at trust boundaries (HTTP, CLI) so services never see raw
// strings.
package domain

import (
	"github.com/google/uuid"

	dErrors "supplierflow/pkg/domain-errors"
)

// SubmissionID identifies a supplier onboarding submission.
type SubmissionID uuid.UUID

// NewSubmissionID allocates a fresh random identifier.
func NewSubmissionID() SubmissionID {
	return SubmissionID(uuid.New())
}

// ParseSubmissionID validates s as a non-nil UUID.
func ParseSubmissionID(s string) (SubmissionID, error) {
	u, err := parseUUID(s, "submission")
	if err != nil {
		return SubmissionID{}, err
	}
	return SubmissionID(u), nil
}

func (id SubmissionID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the identifier is the zero UUID.
func (id SubmissionID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id SubmissionID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *SubmissionID) UnmarshalText(data []byte) error {
	u, err := uuid.ParseBytes(data)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid submission id")
	}
	*id = SubmissionID(u)
	return nil
}

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id format")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be nil")
	}
	return u, nil
}
