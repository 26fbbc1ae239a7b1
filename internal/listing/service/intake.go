package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"bizdir/internal/listing/metrics"
	"bizdir/internal/listing/models"
	"bizdir/internal/listing/notify"
	dErrors "bizdir/pkg/domain-errors"
	audit "bizdir/pkg/platform/audit"
	"bizdir/pkg/requestcontext"
)

const (
	actionSubmitEvidence = "submit_payment_evidence"
	msgUploadFailed      = "Failed to upload receipt. Please try again."
	msgEvidenceSubmitted = "Payment evidence submitted. An admin will confirm it shortly."
)

// SubmitPaymentEvidence uploads the receipt and moves the listing into
// pending_confirmation in one write. Validation happens before any remote
// call; an upload or write failure leaves the record untouched.
func (s *Service) SubmitPaymentEvidence(ctx context.Context, listingID uuid.UUID, evidence *models.PaymentEvidence) (listing *models.Listing, err error) {
	ctx, end := s.begin(ctx, metrics.OpSubmitEvidence, listingID)
	defer func() { end(err) }()

	if evidence == nil {
		evidence = &models.PaymentEvidence{}
	}
	if err := evidence.Validate(s.maxReceiptBytes); err != nil {
		return nil, err
	}
	contentType, ext, err := sniffReceipt(evidence.Receipt)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveReceiptSize(len(evidence.Receipt.Data))

	// Refuse unknown listings before the upload so no orphan receipt is stored.
	current, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		err = s.storeError(ctx, err, "failed to load listing")
		s.notifyFailure(ctx, actionSubmitEvidence, listingID, err, msgUploadFailed)
		return nil, err
	}
	if err := current.CanSubmitEvidence(); err != nil {
		s.notifyFailure(ctx, actionSubmitEvidence, listingID, err, msgUploadFailed)
		return nil, err
	}

	now := requestcontext.Now(ctx)
	key := ReceiptKey(listingID, now.UnixMilli(), ext)
	receiptURL, err := s.blobs.Put(ctx, key, contentType, evidence.Receipt.Data)
	if err != nil {
		s.logger.ErrorContext(ctx, "receipt upload failed",
			"listing_id", listingID,
			"key", key,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to upload receipt")
		s.notifyFailure(ctx, actionSubmitEvidence, listingID, err, msgUploadFailed)
		s.logAudit(ctx, audit.EventPaymentEvidenceSubmitted, listingID, "failure", "upload_failed")
		return nil, err
	}

	listing, err = s.listings.Execute(ctx, listingID,
		func(l *models.Listing) error { return l.CanSubmitEvidence() },
		func(l *models.Listing) { l.ApplyEvidence(receiptURL, now) },
	)
	if err != nil {
		err = s.storeError(ctx, err, "failed to record payment evidence")
		s.notifyFailure(ctx, actionSubmitEvidence, listingID, err, msgUploadFailed)
		s.logAudit(ctx, audit.EventPaymentEvidenceSubmitted, listingID, "failure", string(dErrors.CodeOf(err)))
		return nil, err
	}

	s.notify(ctx, notify.Success(actionSubmitEvidence, listingID, msgEvidenceSubmitted))
	s.logAudit(ctx, audit.EventPaymentEvidenceSubmitted, listingID, "success", "",
		"amount", evidence.Amount,
		"receipt_url", receiptURL,
		"content_type", contentType,
	)
	return listing, nil
}

// ReceiptKey names an uploaded receipt. The millisecond timestamp keeps
// repeated submissions for the same listing from colliding.
func ReceiptKey(listingID uuid.UUID, unixMillis int64, ext string) string {
	return fmt.Sprintf("receipts/%s-%d%s", listingID, unixMillis, ext)
}

// sniffReceipt detects the receipt's content type from its bytes and picks
// the object extension: the uploaded file's own extension when it has one,
// otherwise the detected type's.
func sniffReceipt(r *models.Receipt) (contentType, ext string, err error) {
	mt := mimetype.Detect(r.Data)
	if !isAllowedReceiptType(mt) {
		return "", "", dErrors.New(dErrors.CodeValidation, "receipt must be an image or a PDF document")
	}
	ext = strings.ToLower(path.Ext(r.FileName))
	if ext == "" || ext == "." {
		ext = mt.Extension()
	}
	return mt.String(), ext, nil
}

func isAllowedReceiptType(mt *mimetype.MIME) bool {
	if mt.Is("application/pdf") {
		return true
	}
	return strings.HasPrefix(mt.String(), "image/")
}
