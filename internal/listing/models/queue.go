package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Add-on hints shown in the work queue when no add-on expiry is known yet.
const (
	AddonHintPending = "Will be set on confirm"
	AddonHintNone    = "N/A"
)

// QueueEntry is the admin work-queue read model for one pending listing.
type QueueEntry struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	OwnerEmail    string        `json:"owner_email"`
	ReceiptURL    string        `json:"receipt_url"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	SubmittedAt   *time.Time    `json:"submitted_at,omitempty"`
	ListingExpiry string        `json:"listing_expiry_date"`
	AddonExpiry   string        `json:"addon_expiry_date"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewQueueEntry projects a listing into the work-queue read model.
func NewQueueEntry(l *Listing) QueueEntry {
	e := QueueEntry{
		ID:            l.ID,
		Name:          l.Name,
		OwnerEmail:    l.OwnerEmail,
		ReceiptURL:    l.ReceiptURL,
		PaymentStatus: l.PaymentStatus,
		SubmittedAt:   cloneTime(l.LastPaymentDate),
		ListingExpiry: FormatDate(l.ListingExpiry),
		CreatedAt:     l.CreatedAt,
	}
	switch {
	case l.AddonExpiry != nil:
		e.AddonExpiry = FormatDate(l.AddonExpiry)
	case l.AddonEnabled:
		e.AddonExpiry = AddonHintPending
	default:
		e.AddonExpiry = AddonHintNone
	}
	return e
}

// SortBySubmission orders listings most recent submission first. Ties fall
// back to creation time, then id, so the order is stable across reloads.
func SortBySubmission(listings []*Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i], listings[j]
		at, bt := submittedAt(a), submittedAt(b)
		if !at.Equal(bt) {
			return at.After(bt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

func submittedAt(l *Listing) time.Time {
	if l.LastPaymentDate == nil {
		return time.Time{}
	}
	return *l.LastPaymentDate
}
