package models

import (
	"strings"
	"time"

	dErrors "bizdir/pkg/domain-errors"
)

const (
	// ListingTermDays is the paid listing period granted by one confirmed payment.
	ListingTermDays = 365
	// AddonTermDays is the point-of-sale + website entitlement granted by the same payment.
	AddonTermDays = 30

	// DateLayout is the calendar-date wire format (YYYY-MM-DD).
	DateLayout = "2006-01-02"
)

// Expiry is the result of the expiration calculation for one payment event.
// AddonExpiry is nil when the add-on is not enabled.
type Expiry struct {
	ListingExpiry time.Time
	AddonExpiry   *time.Time
}

// ComputeExpiry derives expiry dates from a payment timestamp. It is a pure
// function of its inputs: the payment's UTC calendar date plus the term.
func ComputeExpiry(lastPaymentDate time.Time, addonEnabled bool) Expiry {
	day := DateOf(lastPaymentDate)
	exp := Expiry{ListingExpiry: day.AddDate(0, 0, ListingTermDays)}
	if addonEnabled {
		addon := day.AddDate(0, 0, AddonTermDays)
		exp.AddonExpiry = &addon
	}
	return exp
}

// DateOf truncates t to midnight UTC of its UTC calendar day.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date. Empty or malformed input is a
// validation error.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "please select a valid date")
	}
	d, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "date must be formatted as YYYY-MM-DD")
	}
	return d, nil
}

// FormatDate renders a calendar date, or "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(DateLayout)
}
