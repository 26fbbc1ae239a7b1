package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,BlobStore,Notifier,AuditPublisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"bizdir/internal/listing/models"
	"bizdir/internal/listing/notify"
	"bizdir/internal/listing/service/mocks"
	dErrors "bizdir/pkg/domain-errors"
	audit "bizdir/pkg/platform/audit"
	"bizdir/pkg/requestcontext"
)

// Remote I/O failures are injected through mocks: the operation must abort
// with an internal error, send a failure notification naming the attempted
// action, and never reach the write that would follow.

type fixture struct {
	store    *mocks.MockStore
	blobs    *mocks.MockBlobStore
	notifier *mocks.MockNotifier
	audit    *mocks.MockAuditPublisher
	service  *Service
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		store:    mocks.NewMockStore(ctrl),
		blobs:    mocks.NewMockBlobStore(ctrl),
		notifier: mocks.NewMockNotifier(ctrl),
		audit:    mocks.NewMockAuditPublisher(ctrl),
	}
	f.service = New(f.store, f.blobs, f.notifier,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(f.audit),
	)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	f.ctx = requestcontext.WithActor(requestcontext.WithTime(context.Background(), now), "admin")
	return f
}

// expectNotification captures the single notification the operation sends.
func (f *fixture) expectNotification() *notify.Notification {
	var got notify.Notification
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n notify.Notification) error {
			got = n
			return nil
		})
	return &got
}

func validEvidence() *models.PaymentEvidence {
	return &models.PaymentEvidence{
		Amount:  "49.99",
		Receipt: &models.Receipt{FileName: "receipt.png", Data: pngReceipt},
	}
}

func TestSubmitPaymentEvidence_ValidationPerformsNoIO(t *testing.T) {
	f := newFixture(t)
	// No expectations: any store, blob, notifier or audit call fails the test.
	_, err := f.service.SubmitPaymentEvidence(f.ctx, uuid.New(), &models.PaymentEvidence{Amount: "10"})
	require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = f.service.SubmitPaymentEvidence(f.ctx, uuid.New(), nil)
	require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestSubmitPaymentEvidence_UploadFailureAbortsBeforeWrite(t *testing.T) {
	f := newFixture(t)
	listingID := uuid.New()
	listing, err := models.NewListing(listingID, "Shop", "owner-1", "", false, time.Now())
	require.NoError(t, err)

	f.store.EXPECT().FindByID(gomock.Any(), listingID).Return(listing, nil)
	f.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), "image/png", pngReceipt).
		Return("", errors.New("bucket unreachable"))
	f.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e audit.Event) error {
			assert.Equal(t, "failure", e.Outcome)
			assert.Equal(t, "upload_failed", e.Reason)
			return nil
		})
	n := f.expectNotification()

	_, err = f.service.SubmitPaymentEvidence(f.ctx, listingID, validEvidence())

	require.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.Equal(t, notify.KindFailure, n.Kind)
	assert.Equal(t, "Error", n.Title)
	assert.Equal(t, "Failed to upload receipt. Please try again.", n.Description)
}

func TestSubmitPaymentEvidence_WriteFailureAfterUpload(t *testing.T) {
	f := newFixture(t)
	listingID := uuid.New()
	listing, err := models.NewListing(listingID, "Shop", "owner-1", "", false, time.Now())
	require.NoError(t, err)

	f.store.EXPECT().FindByID(gomock.Any(), listingID).Return(listing, nil)
	f.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, key, _ string, _ []byte) (string, error) {
			assert.Equal(t, ReceiptKey(listingID, requestcontext.Now(f.ctx).UnixMilli(), ".png"), key)
			return "https://storage.test/" + key, nil
		})
	f.store.EXPECT().Execute(gomock.Any(), listingID, gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection reset"))
	f.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	n := f.expectNotification()

	_, err = f.service.SubmitPaymentEvidence(f.ctx, listingID, validEvidence())

	require.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.Equal(t, "Failed to upload receipt. Please try again.", n.Description)
}

func TestConfirmPayment_StoreFailure(t *testing.T) {
	f := newFixture(t)
	listingID := uuid.New()

	f.store.EXPECT().Execute(gomock.Any(), listingID, gomock.Any(), gomock.Any()).
		Return(nil, errors.New("write timeout"))
	f.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e audit.Event) error {
			assert.Equal(t, string(audit.EventPaymentConfirmed), e.Action)
			assert.Equal(t, "admin", e.ActorID)
			assert.Equal(t, string(dErrors.CodeInternal), e.Reason)
			return nil
		})
	n := f.expectNotification()

	_, err := f.service.ConfirmPayment(f.ctx, listingID)

	require.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.Equal(t, "Failed to confirm payment", n.Description)
	assert.NotContains(t, n.Description, "write timeout")
}

func TestConfirmPayment_ComputesFromRecordReadInsideUpdate(t *testing.T) {
	f := newFixture(t)
	listingID := uuid.New()
	paid := time.Date(2024, 1, 1, 18, 45, 0, 0, time.UTC)

	f.store.EXPECT().Execute(gomock.Any(), listingID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, validate func(*models.Listing) error, mutate func(*models.Listing)) (*models.Listing, error) {
			current := &models.Listing{
				ID:              listingID,
				PaymentStatus:   models.PaymentStatusPendingConfirmation,
				ReceiptURL:      "https://storage.test/receipts/x.png",
				LastPaymentDate: &paid,
				AddonEnabled:    true,
			}
			if err := validate(current); err != nil {
				return nil, err
			}
			mutate(current)
			return current, nil
		})
	f.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e audit.Event) error {
			assert.Equal(t, "2024-12-31", e.Details["listing_expiry_date"])
			assert.Equal(t, "2024-01-31", e.Details["addon_expiry_date"])
			return nil
		})
	n := f.expectNotification()

	listing, err := f.service.ConfirmPayment(f.ctx, listingID)

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusConfirmed, listing.PaymentStatus)
	assert.Empty(t, listing.ReceiptURL)
	assert.Equal(t, notify.KindSuccess, n.Kind)
}

func TestOverrideExpiry_StoreFailure(t *testing.T) {
	f := newFixture(t)
	listingID := uuid.New()

	f.store.EXPECT().Execute(gomock.Any(), listingID, gomock.Any(), gomock.Any()).
		Return(nil, errors.New("db down"))
	f.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	n := f.expectNotification()

	_, err := f.service.OverrideExpiry(f.ctx, listingID, "2025-02-01")

	require.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.Equal(t, "Failed to update listing expired date. Please try again.", n.Description)
}

func TestOverrideExpiry_EmptyDatePerformsNoIO(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.OverrideExpiry(f.ctx, uuid.New(), "")
	require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, "please select a valid date", dErrors.MessageOf(err))
}

func TestDeleteListing_StoreFailure(t *testing.T) {
	f := newFixture(t)
	listingID := uuid.New()

	f.store.EXPECT().Delete(gomock.Any(), listingID).Return(errors.New("db down"))
	f.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	n := f.expectNotification()

	err := f.service.DeleteListing(f.ctx, listingID, models.DeleteRequest{Confirmed: true})

	require.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.Equal(t, "Failed to delete listing", n.Description)
}

func TestDeleteListing_WithoutIntentPerformsNoIO(t *testing.T) {
	f := newFixture(t)
	err := f.service.DeleteListing(f.ctx, uuid.New(), models.DeleteRequest{Confirmed: false})
	require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestNotificationAndAuditFailuresDoNotFailTheOperation(t *testing.T) {
	f := newFixture(t)
	listingID := uuid.New()

	f.store.EXPECT().Delete(gomock.Any(), listingID).Return(nil)
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))
	f.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("kafka down"))

	err := f.service.DeleteListing(f.ctx, listingID, models.DeleteRequest{Confirmed: true})
	require.NoError(t, err)
}

func TestPendingQueue_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.EXPECT().ListPending(gomock.Any()).Return(nil, errors.New("db down"))

	_, err := f.service.PendingQueue(f.ctx)
	require.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
