package handler

import (
	"time"

	"bizdir/internal/listing/models"
)

// ListingResponse is the HTTP view of a listing's payment state.
type ListingResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	OwnerRef          string    `json:"owner_ref"`
	OwnerEmail        string    `json:"owner_email,omitempty"`
	PaymentStatus     string    `json:"payment_status"`
	ReceiptURL        *string   `json:"receipt_url"`
	LastPaymentDate   *string   `json:"last_payment_date"`
	ListingExpiryDate *string   `json:"listing_expiry_date"`
	AddonEnabled      bool      `json:"addon_enabled"`
	AddonExpiryDate   *string   `json:"addon_expiry_date"`
	CreatedAt         time.Time `json:"created_at"`
}

// PendingQueueResponse is the admin work queue.
type PendingQueueResponse struct {
	Listings []models.QueueEntry `json:"listings"`
	Count    int                 `json:"count"`
}

// MutationResponse pairs a mutated listing with the freshly reloaded queue.
type MutationResponse struct {
	Listing *ListingResponse      `json:"listing,omitempty"`
	Pending *PendingQueueResponse `json:"pending"`
}

func toListingResponse(l *models.Listing) *ListingResponse {
	resp := &ListingResponse{
		ID:                l.ID.String(),
		Name:              l.Name,
		OwnerRef:          l.OwnerRef,
		OwnerEmail:        l.OwnerEmail,
		PaymentStatus:     l.PaymentStatus.String(),
		ListingExpiryDate: optionalDate(l.ListingExpiry),
		AddonEnabled:      l.AddonEnabled,
		AddonExpiryDate:   optionalDate(l.AddonExpiry),
		CreatedAt:         l.CreatedAt,
	}
	if l.ReceiptURL != "" {
		url := l.ReceiptURL
		resp.ReceiptURL = &url
	}
	if l.LastPaymentDate != nil {
		paid := l.LastPaymentDate.UTC().Format(time.RFC3339)
		resp.LastPaymentDate = &paid
	}
	return resp
}

func toQueueResponse(entries []models.QueueEntry) *PendingQueueResponse {
	if entries == nil {
		entries = []models.QueueEntry{}
	}
	return &PendingQueueResponse{Listings: entries, Count: len(entries)}
}

func optionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := models.FormatDate(t)
	return &s
}
