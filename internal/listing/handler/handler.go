package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bizdir/internal/listing/models"
	dErrors "bizdir/pkg/domain-errors"
	"bizdir/pkg/platform/httputil"
	"bizdir/pkg/requestcontext"
)

// Service defines the listing lifecycle operations exposed over HTTP.
type Service interface {
	CreateListing(ctx context.Context, req *models.CreateListingRequest) (*models.Listing, error)
	GetListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error)
	SubmitPaymentEvidence(ctx context.Context, listingID uuid.UUID, evidence *models.PaymentEvidence) (*models.Listing, error)
	PendingQueue(ctx context.Context) ([]models.QueueEntry, error)
	ConfirmPayment(ctx context.Context, listingID uuid.UUID) (*models.Listing, error)
	OverrideExpiry(ctx context.Context, listingID uuid.UUID, rawDate string) (*models.Listing, error)
	DeleteListing(ctx context.Context, listingID uuid.UUID, req models.DeleteRequest) error
}

// multipartOverhead is the allowance for form fields and part headers on top
// of the receipt itself.
const multipartOverhead = 64 << 10

// Handler wires listing endpoints to the listing service.
type Handler struct {
	service         Service
	logger          *slog.Logger
	maxReceiptBytes int
}

// New constructs a listing handler.
func New(service Service, logger *slog.Logger, maxReceiptBytes int) *Handler {
	if maxReceiptBytes <= 0 {
		maxReceiptBytes = models.DefaultMaxReceiptBytes
	}
	return &Handler{service: service, logger: logger, maxReceiptBytes: maxReceiptBytes}
}

// Register mounts the owner-facing endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/listings", h.HandleCreate)
	r.Get("/listings/{id}", h.HandleGet)
	r.Post("/listings/{id}/payment-evidence", h.HandleSubmitEvidence)
}

// RegisterAdmin mounts the admin endpoints. The caller is responsible for
// putting them behind the admin token gate.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/listings/pending", h.HandlePendingQueue)
	r.Post("/admin/listings/{id}/confirm", h.HandleConfirm)
	r.Put("/admin/listings/{id}/expiry", h.HandleOverrideExpiry)
	r.Delete("/admin/listings/{id}", h.HandleDelete)
}

// HandleCreate handles POST /listings.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateListingRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	listing, err := h.service.CreateListing(ctx, req)
	if err != nil {
		h.fail(ctx, w, "create listing failed", uuid.Nil, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toListingResponse(listing))
}

// HandleGet handles GET /listings/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	listingID, ok := h.listingID(w, r)
	if !ok {
		return
	}
	listing, err := h.service.GetListing(r.Context(), listingID)
	if err != nil {
		h.fail(r.Context(), w, "get listing failed", listingID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListingResponse(listing))
}

// HandleSubmitEvidence handles POST /listings/{id}/payment-evidence with a
// multipart body carrying "amount" and the "receipt" file.
func (h *Handler) HandleSubmitEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	listingID, ok := h.listingID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxReceiptBytes+multipartOverhead))
	if err := r.ParseMultipartForm(int64(h.maxReceiptBytes + multipartOverhead)); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "receipt exceeds the maximum upload size"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form"))
		return
	}

	evidence := &models.PaymentEvidence{Amount: r.FormValue("amount")}
	file, header, err := r.FormFile("receipt")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid receipt upload"))
		return
	default:
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, int64(h.maxReceiptBytes)+1))
		if err != nil {
			h.fail(ctx, w, "read receipt failed", listingID, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read receipt"))
			return
		}
		if len(data) > h.maxReceiptBytes {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "receipt exceeds the maximum upload size"))
			return
		}
		evidence.Receipt = &models.Receipt{FileName: header.Filename, Data: data}
	}

	listing, err := h.service.SubmitPaymentEvidence(ctx, listingID, evidence)
	if err != nil {
		h.fail(ctx, w, "submit payment evidence failed", listingID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, toListingResponse(listing))
}

// HandlePendingQueue handles GET /admin/listings/pending.
func (h *Handler) HandlePendingQueue(w http.ResponseWriter, r *http.Request) {
	queue, err := h.service.PendingQueue(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "load pending queue failed", uuid.Nil, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toQueueResponse(queue))
}

// HandleConfirm handles POST /admin/listings/{id}/confirm.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	listingID, ok := h.listingID(w, r)
	if !ok {
		return
	}
	listing, err := h.service.ConfirmPayment(r.Context(), listingID)
	if err != nil {
		h.fail(r.Context(), w, "confirm payment failed", listingID, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, listing)
}

// HandleOverrideExpiry handles PUT /admin/listings/{id}/expiry.
func (h *Handler) HandleOverrideExpiry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	listingID, ok := h.listingID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[OverrideExpiryRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	listing, err := h.service.OverrideExpiry(ctx, listingID, req.ListingExpiryDate)
	if err != nil {
		h.fail(ctx, w, "override expiry failed", listingID, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, listing)
}

// HandleDelete handles DELETE /admin/listings/{id}?confirm=true.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	listingID, ok := h.listingID(w, r)
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := h.service.DeleteListing(r.Context(), listingID, models.DeleteRequest{Confirmed: confirmed}); err != nil {
		h.fail(r.Context(), w, "delete listing failed", listingID, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, nil)
}

// writeMutation re-reads the whole work queue after a successful mutation so
// the caller never patches its view incrementally.
func (h *Handler) writeMutation(w http.ResponseWriter, r *http.Request, status int, listing *models.Listing) {
	resp := MutationResponse{}
	if listing != nil {
		resp.Listing = toListingResponse(listing)
	}
	queue, err := h.service.PendingQueue(r.Context())
	if err != nil {
		// The mutation is committed; report it and leave the queue for the next reload.
		h.logger.WarnContext(r.Context(), "queue reload after mutation failed",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
	} else {
		resp.Pending = toQueueResponse(queue)
	}
	httputil.WriteJSON(w, status, resp)
}

func (h *Handler) listingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	listingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid listing id"))
		return uuid.Nil, false
	}
	return listingID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, listingID uuid.UUID, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"listing_id", listingID,
		"error", err,
	)
	httputil.WriteError(w, err)
}
