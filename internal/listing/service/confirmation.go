package service

import (
	"context"

	"github.com/google/uuid"

	"bizdir/internal/listing/metrics"
	"bizdir/internal/listing/models"
	"bizdir/internal/listing/notify"
	dErrors "bizdir/pkg/domain-errors"
	audit "bizdir/pkg/platform/audit"
	"bizdir/pkg/requestcontext"
)

const (
	actionConfirmPayment = "confirm_payment"
	msgConfirmFailed     = "Failed to confirm payment"
	msgPaymentConfirmed  = "Payment confirmed and listing activated."
)

// PendingQueue returns the admin work queue: every listing carrying receipt
// evidence, most recent submission first. It is always read in full.
func (s *Service) PendingQueue(ctx context.Context) (entries []models.QueueEntry, err error) {
	ctx, end := s.begin(ctx, metrics.OpPendingQueue, uuid.Nil)
	defer func() { end(err) }()

	pending, err := s.listings.ListPending(ctx)
	if err != nil {
		return nil, s.storeError(ctx, err, "failed to load pending listings")
	}
	models.SortBySubmission(pending)
	entries = make([]models.QueueEntry, 0, len(pending))
	for _, l := range pending {
		entries = append(entries, models.NewQueueEntry(l))
	}
	s.metrics.SetPendingQueueSize(len(entries))
	return entries, nil
}

// ConfirmPayment accepts the pending evidence and derives the expiry dates
// from the recorded payment date. The read of the payment date and the write
// of the derived fields happen in one atomic conditional update, so a racing
// resubmission cannot shift which payment the expiry reflects.
func (s *Service) ConfirmPayment(ctx context.Context, listingID uuid.UUID) (listing *models.Listing, err error) {
	ctx, end := s.begin(ctx, metrics.OpConfirm, listingID)
	defer func() { end(err) }()

	now := requestcontext.Now(ctx)
	var expiry models.Expiry
	listing, err = s.listings.Execute(ctx, listingID,
		func(l *models.Listing) error { return l.CanConfirm() },
		func(l *models.Listing) { expiry = l.ApplyConfirmation(now) },
	)
	if err != nil {
		err = s.storeError(ctx, err, "failed to confirm payment")
		s.notifyFailure(ctx, actionConfirmPayment, listingID, err, msgConfirmFailed)
		s.logAudit(ctx, audit.EventPaymentConfirmed, listingID, "failure", string(dErrors.CodeOf(err)))
		return nil, err
	}

	s.notify(ctx, notify.Success(actionConfirmPayment, listingID, msgPaymentConfirmed))
	s.logAudit(ctx, audit.EventPaymentConfirmed, listingID, "success", "",
		"listing_expiry_date", expiry.ListingExpiry.Format(models.DateLayout),
		"addon_expiry_date", models.FormatDate(expiry.AddonExpiry),
	)
	return listing, nil
}
