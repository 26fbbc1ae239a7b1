package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"bizdir/internal/listing/models"
	"bizdir/pkg/platform/sentinel"
)

// InMemoryStore keeps listings in a map. Execute holds the write lock for the
// whole read-validate-mutate cycle, which is the in-memory equivalent of the
// row lock taken by PostgresStore.
type InMemoryStore struct {
	mu       sync.RWMutex
	listings map[uuid.UUID]*models.Listing
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{listings: make(map[uuid.UUID]*models.Listing)}
}

func (s *InMemoryStore) Create(_ context.Context, listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.listings[listing.ID]; exists {
		return sentinel.ErrConflict
	}
	s.listings[listing.ID] = listing.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, listingID uuid.UUID) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.listings[listingID]; ok {
		return l.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

// ListPending returns listings that carry receipt evidence, most recent
// submission first.
func (s *InMemoryStore) ListPending(_ context.Context) ([]*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []*models.Listing
	for _, l := range s.listings {
		if l.IsPending() {
			pending = append(pending, l.Clone())
		}
	}
	models.SortBySubmission(pending)
	return pending, nil
}

func (s *InMemoryStore) Execute(_ context.Context, listingID uuid.UUID, validate func(*models.Listing) error, mutate func(*models.Listing)) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.listings[listingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := current.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.listings[listingID] = working
	return working.Clone(), nil
}

func (s *InMemoryStore) Delete(_ context.Context, listingID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[listingID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.listings, listingID)
	return nil
}
