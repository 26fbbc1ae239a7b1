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
	actionOverrideExpiry = "override_listing_expiry"
	actionDeleteListing  = "delete_listing"

	msgOverrideFailed = "Failed to update listing expired date. Please try again."
	msgExpiryUpdated  = "Listing expired date updated."
	msgDeleteFailed   = "Failed to delete listing"
	msgListingDeleted = "Listing deleted."
)

// OverrideExpiry writes the listing expiry directly from an admin-supplied
// calendar date (YYYY-MM-DD). Payment status and the add-on expiry are left
// as they are. The confirmation engine never calls this.
func (s *Service) OverrideExpiry(ctx context.Context, listingID uuid.UUID, rawDate string) (listing *models.Listing, err error) {
	ctx, end := s.begin(ctx, metrics.OpOverrideExpiry, listingID)
	defer func() { end(err) }()

	date, err := models.ParseDate(rawDate)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var previous string
	listing, err = s.listings.Execute(ctx, listingID,
		func(l *models.Listing) error {
			previous = models.FormatDate(l.ListingExpiry)
			return nil
		},
		func(l *models.Listing) { l.ApplyExpiryOverride(date, now) },
	)
	if err != nil {
		err = s.storeError(ctx, err, "failed to update listing expiry")
		s.notifyFailure(ctx, actionOverrideExpiry, listingID, err, msgOverrideFailed)
		s.logAudit(ctx, audit.EventListingExpiryOverridden, listingID, "failure", string(dErrors.CodeOf(err)))
		return nil, err
	}

	s.notify(ctx, notify.Success(actionOverrideExpiry, listingID, msgExpiryUpdated))
	s.logAudit(ctx, audit.EventListingExpiryOverridden, listingID, "success", "",
		"previous_expiry_date", previous,
		"listing_expiry_date", date.Format(models.DateLayout),
	)
	return listing, nil
}

// DeleteListing removes the record unconditionally once the caller has
// confirmed the destructive intent. Nothing is written without that intent.
func (s *Service) DeleteListing(ctx context.Context, listingID uuid.UUID, req models.DeleteRequest) (err error) {
	ctx, end := s.begin(ctx, metrics.OpDelete, listingID)
	defer func() { end(err) }()

	if !req.Confirmed {
		return dErrors.New(dErrors.CodeValidation, "deletion must be explicitly confirmed")
	}

	if err := s.listings.Delete(ctx, listingID); err != nil {
		err = s.storeError(ctx, err, "failed to delete listing")
		s.notifyFailure(ctx, actionDeleteListing, listingID, err, msgDeleteFailed)
		s.logAudit(ctx, audit.EventListingDeleted, listingID, "failure", string(dErrors.CodeOf(err)))
		return err
	}

	s.notify(ctx, notify.Success(actionDeleteListing, listingID, msgListingDeleted))
	s.logAudit(ctx, audit.EventListingDeleted, listingID, "success", "")
	return nil
}
