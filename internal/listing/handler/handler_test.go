package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdir/internal/listing/models"
	"bizdir/internal/listing/notify"
	"bizdir/internal/listing/service"
	"bizdir/internal/listing/store"
	"bizdir/internal/platform/blob"
	"bizdir/internal/platform/middleware"
	"bizdir/pkg/testutil"
)

const adminToken = "secret-token"

var pngReceipt = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

type testRouter struct {
	http.Handler
	blobs *blob.MemoryStore
}

func newListingRouter(t *testing.T, maxReceiptBytes int) *testRouter {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	blobs := blob.NewMemoryStore("https://storage.test/business-assets")
	svc := service.New(store.NewInMemoryStore(), blobs, notify.NewRecorder(), service.WithLogger(logger))
	h := New(svc, logger, maxReceiptBytes)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	h.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(adminToken, logger))
		h.RegisterAdmin(r)
	})
	return &testRouter{Handler: r, blobs: blobs}
}

func createListing(t *testing.T, router http.Handler, addon bool) *ListingResponse {
	t.Helper()
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/listings", map[string]any{
		"name":          "Harbor Books",
		"owner_ref":     "owner-42",
		"owner_email":   "books@example.com",
		"addon_enabled": addon,
	}))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[ListingResponse](t, rr)
}

func submitEvidence(t *testing.T, router http.Handler, listingID string) *http.Response {
	t.Helper()
	req := testutil.NewMultipartRequest(t, http.MethodPost, "/listings/"+listingID+"/payment-evidence",
		map[string]string{"amount": "120.00"},
		testutil.FilePart{Field: "receipt", FileName: "receipt.png", Data: pngReceipt},
	)
	return testutil.DoRequest(router, req).Result()
}

func TestCreateAndGetListing(t *testing.T) {
	router := newListingRouter(t, 0)
	created := createListing(t, router, true)

	assert.Equal(t, "none", created.PaymentStatus)
	assert.Nil(t, created.ReceiptURL)
	assert.True(t, created.AddonEnabled)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/listings/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	got := testutil.UnmarshalResponse[ListingResponse](t, rr)
	assert.Equal(t, created.ID, got.ID)

	t.Run("invalid body", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/listings", map[string]any{"name": ""}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("malformed id", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/listings/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/listings/"+uuid.NewString(), nil))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})
}

func TestSubmitPaymentEvidence(t *testing.T) {
	router := newListingRouter(t, 0)
	created := createListing(t, router, false)

	t.Run("accepts amount and receipt", func(t *testing.T) {
		resp := submitEvidence(t, router, created.ID)
		defer resp.Body.Close()
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
		assert.Equal(t, 1, router.blobs.Len())
	})

	t.Run("missing file is a validation error and nothing is uploaded", func(t *testing.T) {
		before := router.blobs.Len()
		req := testutil.NewMultipartRequest(t, http.MethodPost, "/listings/"+created.ID+"/payment-evidence",
			map[string]string{"amount": "120.00"})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
		assert.Equal(t, before, router.blobs.Len())
	})

	t.Run("non multipart body is rejected", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/listings/"+created.ID+"/payment-evidence", map[string]string{"amount": "1"}))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSubmitPaymentEvidence_ReceiptTooLarge(t *testing.T) {
	router := newListingRouter(t, 16)
	created := createListing(t, router, false)

	resp := submitEvidence(t, router, created.ID)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, router.blobs.Len())
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router := newListingRouter(t, 0)
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/admin/listings/pending", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdminWorkflow(t *testing.T) {
	router := newListingRouter(t, 0)
	first := createListing(t, router, true)
	second := createListing(t, router, false)
	for _, id := range []string{first.ID, second.ID} {
		resp := submitEvidence(t, router, id)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
		resp.Body.Close()
	}

	admin := func(t *testing.T, method, path string, body any) *PendingQueueResponse {
		t.Helper()
		req := testutil.WithAdminToken(testutil.NewJSONRequest(t, method, path, body), adminToken)
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		if method == http.MethodGet {
			return testutil.UnmarshalResponse[PendingQueueResponse](t, rr)
		}
		return testutil.UnmarshalResponse[MutationResponse](t, rr).Pending
	}

	queue := admin(t, http.MethodGet, "/admin/listings/pending", nil)
	require.Equal(t, 2, queue.Count)
	assert.Equal(t, models.AddonHintPending, queueEntry(queue, first.ID).AddonExpiry)

	t.Run("confirm removes the listing from the returned queue", func(t *testing.T) {
		req := testutil.WithAdminToken(testutil.NewJSONRequest(t, http.MethodPost, "/admin/listings/"+first.ID+"/confirm", nil), adminToken)
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code)

		resp := testutil.UnmarshalResponse[MutationResponse](t, rr)
		require.NotNil(t, resp.Listing)
		assert.Equal(t, "confirmed", resp.Listing.PaymentStatus)
		assert.Nil(t, resp.Listing.ReceiptURL)
		require.NotNil(t, resp.Listing.ListingExpiryDate)
		require.NotNil(t, resp.Listing.AddonExpiryDate)
		assert.Equal(t, 1, resp.Pending.Count)
		assert.Nil(t, queueEntry(resp.Pending, first.ID))
	})

	t.Run("confirming again conflicts", func(t *testing.T) {
		req := testutil.WithAdminToken(testutil.NewJSONRequest(t, http.MethodPost, "/admin/listings/"+first.ID+"/confirm", nil), adminToken)
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusConflict, "invalid_state")
	})

	t.Run("override writes the expiry date", func(t *testing.T) {
		req := testutil.WithAdminToken(testutil.NewJSONRequest(t, http.MethodPut, "/admin/listings/"+second.ID+"/expiry",
			map[string]string{"listing_expiry_date": "2030-02-28"}), adminToken)
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code)

		resp := testutil.UnmarshalResponse[MutationResponse](t, rr)
		assert.Equal(t, "2030-02-28", *resp.Listing.ListingExpiryDate)
		assert.Equal(t, "pending_confirmation", resp.Listing.PaymentStatus)
	})

	t.Run("override with an empty date is a validation error", func(t *testing.T) {
		req := testutil.WithAdminToken(testutil.NewJSONRequest(t, http.MethodPut, "/admin/listings/"+second.ID+"/expiry",
			map[string]string{"listing_expiry_date": ""}), adminToken)
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusBadRequest, "validation_error")
	})

	t.Run("delete without confirm is refused", func(t *testing.T) {
		req := testutil.WithAdminToken(testutil.NewJSONRequest(t, http.MethodDelete, "/admin/listings/"+second.ID, nil), adminToken)
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusBadRequest, "validation_error")
	})

	t.Run("confirmed delete empties the queue", func(t *testing.T) {
		queue := admin(t, http.MethodDelete, "/admin/listings/"+second.ID+"?confirm=true", nil)
		assert.Equal(t, 0, queue.Count)
		assert.NotNil(t, queue.Listings)

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/listings/"+second.ID, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func queueEntry(q *PendingQueueResponse, id string) *models.QueueEntry {
	for i := range q.Listings {
		if strings.EqualFold(q.Listings[i].ID.String(), id) {
			return &q.Listings[i]
		}
	}
	return nil
}
