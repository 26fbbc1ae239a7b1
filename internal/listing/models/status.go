package models

import dErrors "bizdir/pkg/domain-errors"

// PaymentStatus is the listing's position in the payment lifecycle.
type PaymentStatus string

const (
	PaymentStatusNone                PaymentStatus = "none"
	PaymentStatusPendingConfirmation PaymentStatus = "pending_confirmation"
	PaymentStatusConfirmed           PaymentStatus = "confirmed"
)

// IsValid reports whether s is a known status.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusNone, PaymentStatusPendingConfirmation, PaymentStatusConfirmed:
		return true
	}
	return false
}

// CanTransitionTo encodes the lifecycle:
//
//	none ──submit──▶ pending_confirmation ──confirm──▶ confirmed
//	confirmed ──submit──▶ pending_confirmation
//	pending_confirmation ──submit──▶ pending_confirmation (resubmission)
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch target {
	case PaymentStatusPendingConfirmation:
		return s.IsValid()
	case PaymentStatusConfirmed:
		return s == PaymentStatusPendingConfirmation
	}
	return false
}

// ParsePaymentStatus validates a stored or user-supplied status value.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	s := PaymentStatus(raw)
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid payment status: "+raw)
	}
	return s, nil
}

func (s PaymentStatus) String() string {
	return string(s)
}
