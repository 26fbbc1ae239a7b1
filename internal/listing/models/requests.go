package models

import (
	"net/mail"
	"strconv"
	"strings"

	dErrors "bizdir/pkg/domain-errors"
)

// DefaultMaxReceiptBytes is the receipt size ceiling (1 MiB).
const DefaultMaxReceiptBytes = 1 << 20

// CreateListingRequest carries the descriptive fields for a new listing.
type CreateListingRequest struct {
	Name         string `json:"name"`
	OwnerRef     string `json:"owner_ref"`
	OwnerEmail   string `json:"owner_email"`
	AddonEnabled bool   `json:"addon_enabled"`
}

// Normalize trims whitespace from all string fields.
func (r *CreateListingRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.OwnerRef = strings.TrimSpace(r.OwnerRef)
	r.OwnerEmail = strings.TrimSpace(r.OwnerEmail)
}

func (r *CreateListingRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Normalize()
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.OwnerRef == "" {
		return dErrors.New(dErrors.CodeValidation, "owner_ref is required")
	}
	if r.OwnerEmail != "" {
		if _, err := mail.ParseAddress(r.OwnerEmail); err != nil {
			return dErrors.New(dErrors.CodeValidation, "owner_email is invalid")
		}
	}
	return nil
}

// Receipt is an uploaded payment-evidence file.
type Receipt struct {
	FileName string
	Data     []byte
}

// PaymentEvidence is what an owner submits for a paid listing period. Amount
// is display-only and never compared against a price table.
type PaymentEvidence struct {
	Amount  string
	Receipt *Receipt
}

// Validate checks presence of both the amount and the file. It performs no I/O.
func (p *PaymentEvidence) Validate(maxBytes int) error {
	p.Amount = strings.TrimSpace(p.Amount)
	if p.Amount == "" || p.Receipt == nil || len(p.Receipt.Data) == 0 {
		return dErrors.New(dErrors.CodeValidation, "please fill in all fields and upload a receipt")
	}
	amount, err := strconv.ParseFloat(p.Amount, 64)
	if err != nil || amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be a positive number")
	}
	if maxBytes > 0 && len(p.Receipt.Data) > maxBytes {
		return dErrors.New(dErrors.CodeValidation, "receipt exceeds the maximum upload size")
	}
	return nil
}

// DeleteRequest carries the caller's explicit destructive intent.
type DeleteRequest struct {
	Confirmed bool
}
