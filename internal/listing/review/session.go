// Package review holds an admin's working view of the confirmation queue: a
// snapshot of the pending listings and a transient overlay of expiry dates
// being edited but not yet saved.
//
// The snapshot is never patched in place. Every successful mutation re-reads
// the queue in full, and every reload drops the overlay.
package review

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"bizdir/internal/listing/models"
	dErrors "bizdir/pkg/domain-errors"
	"bizdir/pkg/requestcontext"
)

// Lifecycle is the subset of the listing service the session drives.
type Lifecycle interface {
	PendingQueue(ctx context.Context) ([]models.QueueEntry, error)
	ConfirmPayment(ctx context.Context, listingID uuid.UUID) (*models.Listing, error)
	OverrideExpiry(ctx context.Context, listingID uuid.UUID, rawDate string) (*models.Listing, error)
	DeleteListing(ctx context.Context, listingID uuid.UUID, req models.DeleteRequest) error
}

// ConfirmFunc asks the admin to confirm a destructive action on entry.
type ConfirmFunc func(entry models.QueueEntry) bool

type Session struct {
	lifecycle Lifecycle

	mu       sync.Mutex
	queue    []models.QueueEntry
	drafts   map[uuid.UUID]string
	loadedAt time.Time
}

func NewSession(lifecycle Lifecycle) *Session {
	return &Session{lifecycle: lifecycle, drafts: make(map[uuid.UUID]string)}
}

// Reload replaces the snapshot with a full read of the work queue and drops
// every unsaved draft. On error the previous snapshot is kept.
func (s *Session) Reload(ctx context.Context) error {
	queue, err := s.lifecycle.PendingQueue(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = queue
	s.drafts = make(map[uuid.UUID]string)
	s.loadedAt = requestcontext.Now(ctx)
	return nil
}

// Queue returns a copy of the current snapshot.
func (s *Session) Queue() []models.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.QueueEntry, len(s.queue))
	copy(out, s.queue)
	return out
}

func (s *Session) LoadedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedAt
}

// SetDraft records an in-progress expiry edit. Drafts are not validated
// until they are saved.
func (s *Session) SetDraft(listingID uuid.UUID, rawDate string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[listingID] = rawDate
}

// DraftFor returns the value to show in the expiry editor: the draft when one
// exists, otherwise the listing's stored expiry from the snapshot.
func (s *Session) DraftFor(listingID uuid.UUID) (value string, drafted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.drafts[listingID]; ok {
		return v, true
	}
	for _, e := range s.queue {
		if e.ID == listingID {
			return e.ListingExpiry, false
		}
	}
	return "", false
}

// SaveExpiry commits the draft for listingID through the manual override.
// A failed save keeps the draft so the admin can correct it.
func (s *Session) SaveExpiry(ctx context.Context, listingID uuid.UUID) error {
	s.mu.Lock()
	raw, ok := s.drafts[listingID]
	s.mu.Unlock()
	if !ok {
		return dErrors.New(dErrors.CodeValidation, "please select a valid date")
	}
	if _, err := s.lifecycle.OverrideExpiry(ctx, listingID, raw); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.drafts, listingID)
	s.mu.Unlock()
	return s.Reload(ctx)
}

// Confirm accepts the listing's pending payment and reloads the queue.
func (s *Session) Confirm(ctx context.Context, listingID uuid.UUID) error {
	if _, err := s.lifecycle.ConfirmPayment(ctx, listingID); err != nil {
		return err
	}
	return s.Reload(ctx)
}

// Delete asks confirm before removing the listing. A declined confirmation
// is passed through as missing intent, so nothing is written.
func (s *Session) Delete(ctx context.Context, listingID uuid.UUID, confirm ConfirmFunc) error {
	entry := s.entry(listingID)
	confirmed := confirm != nil && confirm(entry)
	if err := s.lifecycle.DeleteListing(ctx, listingID, models.DeleteRequest{Confirmed: confirmed}); err != nil {
		return err
	}
	return s.Reload(ctx)
}

func (s *Session) entry(listingID uuid.UUID) models.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.queue {
		if e.ID == listingID {
			return e
		}
	}
	return models.QueueEntry{ID: listingID}
}
