package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "bizdir/pkg/domain-errors"
)

// Listing is the aggregate root for a business-directory listing's payment state.
//
// Invariants:
//   - ReceiptURL is non-empty iff PaymentStatus is pending_confirmation
//   - ListingExpiry is never earlier than the LastPaymentDate that produced it,
//     unless replaced by an admin override
//   - AddonExpiry is only derived when AddonEnabled is true
//   - ID and CreatedAt are immutable after construction
type Listing struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	OwnerRef      string        `json:"owner_ref"`
	OwnerEmail    string        `json:"owner_email"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	ReceiptURL    string        `json:"receipt_url,omitempty"`
	// LastPaymentDate is written by evidence intake only.
	LastPaymentDate *time.Time `json:"last_payment_date,omitempty"`
	ListingExpiry   *time.Time `json:"listing_expiry_date,omitempty"`
	AddonEnabled    bool       `json:"addon_enabled"`
	AddonExpiry     *time.Time `json:"addon_expiry_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewListing constructs a listing in the initial "none" payment state.
func NewListing(listingID uuid.UUID, name, ownerRef, ownerEmail string, addonEnabled bool, now time.Time) (*Listing, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "listing name cannot be empty")
	}
	if len(name) > 200 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "listing name must be 200 characters or less")
	}
	if strings.TrimSpace(ownerRef) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner reference cannot be empty")
	}
	return &Listing{
		ID:            listingID,
		Name:          name,
		OwnerRef:      strings.TrimSpace(ownerRef),
		OwnerEmail:    strings.TrimSpace(ownerEmail),
		PaymentStatus: PaymentStatusNone,
		AddonEnabled:  addonEnabled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsPending reports whether the listing is waiting in the admin work queue.
func (l *Listing) IsPending() bool {
	return l.ReceiptURL != ""
}

// CanSubmitEvidence checks whether new payment evidence may be attached.
// Any state may re-enter pending_confirmation with a new payment event.
func (l *Listing) CanSubmitEvidence() error {
	if !l.PaymentStatus.CanTransitionTo(PaymentStatusPendingConfirmation) {
		return dErrors.New(dErrors.CodeInvalidState, "listing cannot accept payment evidence")
	}
	return nil
}

// ApplyEvidence records a payment event. The receipt reference, status and
// payment date always change together.
func (l *Listing) ApplyEvidence(receiptURL string, paidAt time.Time) {
	l.ReceiptURL = receiptURL
	l.PaymentStatus = PaymentStatusPendingConfirmation
	l.LastPaymentDate = &paidAt
	l.UpdatedAt = paidAt
}

// CanConfirm checks the confirmation preconditions. A listing with no payment
// date on record is blocked; a listing with no pending evidence has nothing
// to confirm.
func (l *Listing) CanConfirm() error {
	if l.LastPaymentDate == nil {
		return dErrors.New(dErrors.CodePrecondition, "no payment date on record")
	}
	if !l.IsPending() || !l.PaymentStatus.CanTransitionTo(PaymentStatusConfirmed) {
		return dErrors.New(dErrors.CodeInvalidState, "listing has no payment evidence awaiting confirmation")
	}
	return nil
}

// ApplyConfirmation accepts the pending evidence and derives expiry dates from
// the recorded payment. Call CanConfirm first. AddonExpiry is left untouched
// when the add-on is disabled.
func (l *Listing) ApplyConfirmation(now time.Time) Expiry {
	exp := ComputeExpiry(*l.LastPaymentDate, l.AddonEnabled)
	l.PaymentStatus = PaymentStatusConfirmed
	l.ReceiptURL = ""
	listingExpiry := exp.ListingExpiry
	l.ListingExpiry = &listingExpiry
	if exp.AddonExpiry != nil {
		addon := *exp.AddonExpiry
		l.AddonExpiry = &addon
	}
	l.UpdatedAt = now
	return exp
}

// ApplyExpiryOverride replaces the listing expiry directly. It bypasses the
// derivation rule and leaves the payment status as it is.
func (l *Listing) ApplyExpiryOverride(date time.Time, now time.Time) {
	d := DateOf(date)
	l.ListingExpiry = &d
	l.UpdatedAt = now
}

// CheckInvariants verifies the receipt/status coupling.
func (l *Listing) CheckInvariants() error {
	if !l.PaymentStatus.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown payment status")
	}
	if l.IsPending() != (l.PaymentStatus == PaymentStatusPendingConfirmation) {
		return dErrors.New(dErrors.CodeInvariantViolation, "receipt reference must be present exactly when payment is pending confirmation")
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	c := *l
	c.LastPaymentDate = cloneTime(l.LastPaymentDate)
	c.ListingExpiry = cloneTime(l.ListingExpiry)
	c.AddonExpiry = cloneTime(l.AddonExpiry)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
