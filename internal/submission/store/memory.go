// Package store persists submission snapshots, the append-only submission
// index and the supplier watchlist.
//
// Snapshots are stored redacted: bank account numbers live in the vault.
// Every store returns pkg/platform/sentinel errors for missing rows and
// version conflicts; the service translates them.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"supplierflow/internal/matcher"
	"supplierflow/internal/submission/models"
	id "supplierflow/pkg/domain"
	"supplierflow/pkg/platform/sentinel"
)

// ListFilter narrows List. Zero fields match everything.
type ListFilter struct {
	Statuses    []models.Status
	Stage       models.Stage
	SubmittedBy string
	Limit       int
}

func (f ListFilter) matches(sub *models.Submission) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, sub.Status) {
		return false
	}
	if f.Stage != "" && sub.Stage != f.Stage {
		return false
	}
	if f.SubmittedBy != "" && sub.SubmittedBy != f.SubmittedBy {
		return false
	}
	return true
}

// InMemory keeps snapshots in a map. Snapshots are cloned on the way in and
// out so callers never share state with the store.
type InMemory struct {
	mu    sync.RWMutex
	subs  map[id.SubmissionID]*models.Submission
	order []id.SubmissionID
	index []models.IndexEntry
}

func NewInMemory() *InMemory {
	return &InMemory{subs: make(map[id.SubmissionID]*models.Submission)}
}

func (s *InMemory) Create(_ context.Context, sub *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.ID]; ok {
		return fmt.Errorf("submission %s: %w", sub.ID, sentinel.ErrConflict)
	}
	s.subs[sub.ID] = sub.Clone()
	s.order = append(s.order, sub.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, subID id.SubmissionID) (*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[subID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return sub.Clone(), nil
}

// Save replaces the snapshot if the stored version still equals
// expectedVersion.
func (s *InMemory) Save(_ context.Context, sub *models.Submission, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.subs[sub.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("submission %s at version %d, expected %d: %w",
			sub.ID, current.Version, expectedVersion, sentinel.ErrConflict)
	}
	s.subs[sub.ID] = sub.Clone()
	return nil
}

// List returns matching snapshots in creation order.
func (s *InMemory) List(_ context.Context, filter ListFilter) ([]*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Submission
	for _, subID := range s.order {
		sub := s.subs[subID]
		if !filter.matches(sub) {
			continue
		}
		out = append(out, sub.Clone())
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *InMemory) AppendIndex(_ context.Context, entry models.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.index {
		if e.ID == entry.ID && e.Version == entry.Version {
			return nil
		}
	}
	s.index = append(s.index, entry)
	return nil
}

// Index returns the recorded transitions of one submission, oldest first.
func (s *InMemory) Index(_ context.Context, subID id.SubmissionID) ([]models.IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.IndexEntry
	for _, e := range s.index {
		if e.ID == subID {
			out = append(out, e)
		}
	}
	return out, nil
}

// CompletedSuppliers returns the names of suppliers that finished
// onboarding, as a duplicate screening corpus.
func (s *InMemory) CompletedSuppliers(_ context.Context) ([]matcher.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []matcher.Entry
	for _, subID := range s.order {
		sub := s.subs[subID]
		name := sub.RequesterFields.SupplierName()
		if !sub.Status.IsCompleted() || name == "" {
			continue
		}
		out = append(out, matcher.Entry{Name: name, Reference: subID.String()})
	}
	return out, nil
}
