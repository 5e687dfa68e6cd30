// Package vault keeps bank account numbers out of persisted submission
// snapshots. Snapshots carry a keyed fingerprint of the removed values so a
// tampered or mismatched vault entry is detected when the snapshot is loaded.
package vault

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"supplierflow/internal/submission/models"
	id "supplierflow/pkg/domain"
	dErrors "supplierflow/pkg/domain-errors"
	"supplierflow/pkg/platform/sentinel"
)

// Store holds the secrets of one submission under its id.
type Store interface {
	Put(ctx context.Context, subID id.SubmissionID, secrets models.BankSecrets) error
	Get(ctx context.Context, subID id.SubmissionID) (models.BankSecrets, error)
	Delete(ctx context.Context, subID id.SubmissionID) error
}

// Vault redacts snapshots on the way to storage and restores them on the way
// back.
type Vault struct {
	store Store
	key   []byte
}

// New returns a vault fingerprinting with key. blake2b accepts keys of up to
// 64 bytes.
func New(store Store, key []byte) (*Vault, error) {
	if len(key) == 0 || len(key) > blake2b.Size {
		return nil, fmt.Errorf("fingerprint key must be 1 to %d bytes", blake2b.Size)
	}
	return &Vault{store: store, key: key}, nil
}

// Seal returns the snapshot to persist. The secrets are kept in the store
// while the submission is open and dropped once it is terminal.
func (v *Vault) Seal(ctx context.Context, sub *models.Submission) (*models.Submission, error) {
	redacted, secrets := sub.Redact()
	if secrets.IsZero() {
		if sub.RequesterFields.Financial.BankFingerprint != "" {
			// Already sealed and nothing was rehydrated.
			return redacted, v.dropIfTerminal(ctx, sub)
		}
		return redacted, nil
	}
	fp, err := v.fingerprint(sub.ID, secrets)
	if err != nil {
		return nil, err
	}
	redacted.RequesterFields.Financial.BankFingerprint = fp

	if sub.IsTerminal() {
		return redacted, v.dropIfTerminal(ctx, sub)
	}
	if err := v.store.Put(ctx, sub.ID, secrets); err != nil {
		return nil, fmt.Errorf("store bank details: %w", err)
	}
	return redacted, nil
}

// Open restores the secrets of a sealed snapshot. Terminal submissions stay
// redacted because their secrets have been discarded. An open submission whose
// entry has lapsed comes back with blank account numbers and no fingerprint,
// so the bank details read as missing and must be supplied again.
func (v *Vault) Open(ctx context.Context, sub *models.Submission) (*models.Submission, error) {
	want := sub.RequesterFields.Financial.BankFingerprint
	if want == "" {
		return sub, nil
	}
	secrets, err := v.store.Get(ctx, sub.ID)
	if errors.Is(err, sentinel.ErrNotFound) {
		if sub.IsTerminal() {
			return sub, nil
		}
		lapsed := sub.Clone()
		lapsed.RequesterFields.Financial.BankFingerprint = ""
		return lapsed, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load bank details: %w", err)
	}
	got, err := v.fingerprint(sub.ID, secrets)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return nil, dErrors.New(dErrors.CodeIntegrity, "stored bank details do not match the submission")
	}
	return sub.Rehydrate(secrets), nil
}

// Discard removes whatever is held for subID.
func (v *Vault) Discard(ctx context.Context, subID id.SubmissionID) error {
	if err := v.store.Delete(ctx, subID); err != nil {
		return fmt.Errorf("delete bank details: %w", err)
	}
	return nil
}

func (v *Vault) dropIfTerminal(ctx context.Context, sub *models.Submission) error {
	if !sub.IsTerminal() {
		return nil
	}
	return v.Discard(ctx, sub.ID)
}

// fingerprint binds the secrets to the submission id so entries cannot be
// swapped between submissions.
func (v *Vault) fingerprint(subID id.SubmissionID, secrets models.BankSecrets) (string, error) {
	h, err := blake2b.New256(v.key)
	if err != nil {
		return "", fmt.Errorf("init fingerprint: %w", err)
	}
	raw, err := json.Marshal(secrets)
	if err != nil {
		return "", fmt.Errorf("encode bank details: %w", err)
	}
	h.Write([]byte(subID.String()))
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil)), nil
}
