package handler

import (
	"strings"

	"bizdir/internal/listing/models"
)

// OverrideExpiryRequest is the body of PUT /admin/listings/{id}/expiry.
type OverrideExpiryRequest struct {
	ListingExpiryDate string `json:"listing_expiry_date"`
}

func (r *OverrideExpiryRequest) Validate() error {
	r.ListingExpiryDate = strings.TrimSpace(r.ListingExpiryDate)
	_, err := models.ParseDate(r.ListingExpiryDate)
	return err
}
