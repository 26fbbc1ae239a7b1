package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bizdir/internal/listing/metrics"
	"bizdir/internal/listing/models"
	"bizdir/internal/listing/notify"
	dErrors "bizdir/pkg/domain-errors"
	audit "bizdir/pkg/platform/audit"
	"bizdir/pkg/platform/sentinel"
	"bizdir/pkg/requestcontext"
)

// Store is the Record Store. Execute runs validate and mutate against the
// current record as one atomic conditional update; nothing is written when
// validate fails.
type Store interface {
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, listingID uuid.UUID) (*models.Listing, error)
	ListPending(ctx context.Context) ([]*models.Listing, error)
	Execute(ctx context.Context, listingID uuid.UUID, validate func(*models.Listing) error, mutate func(*models.Listing)) (*models.Listing, error)
	Delete(ctx context.Context, listingID uuid.UUID) error
}

// BlobStore uploads receipt files and returns a public reference.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, n notify.Notification) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service implements the listing payment lifecycle: evidence intake, the
// admin confirmation engine, manual expiry override and deletion.
type Service struct {
	listings        Store
	blobs           BlobStore
	notifier        Notifier
	logger          *slog.Logger
	auditPublisher  AuditPublisher
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	maxReceiptBytes int
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// WithMaxReceiptBytes overrides the receipt size ceiling.
func WithMaxReceiptBytes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxReceiptBytes = n
		}
	}
}

const tracerName = "bizdir/internal/listing/service"

// New constructs a Service. A nil notifier drops notifications.
func New(listings Store, blobs BlobStore, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		listings:        listings,
		blobs:           blobs,
		notifier:        notifier,
		logger:          slog.Default(),
		tracer:          otel.Tracer(tracerName),
		maxReceiptBytes: models.DefaultMaxReceiptBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateListing registers a listing in the initial "none" payment state.
func (s *Service) CreateListing(ctx context.Context, req *models.CreateListingRequest) (listing *models.Listing, err error) {
	ctx, end := s.begin(ctx, metrics.OpCreate, uuid.Nil)
	defer func() { end(err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	listing, err = models.NewListing(uuid.New(), req.Name, req.OwnerRef, req.OwnerEmail, req.AddonEnabled, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, s.storeError(ctx, err, "failed to create listing")
	}

	s.logAudit(ctx, audit.EventListingCreated, listing.ID, "success", "",
		"owner_ref", listing.OwnerRef)
	return listing, nil
}

// GetListing returns the current record.
func (s *Service) GetListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, s.storeError(ctx, err, "failed to load listing")
	}
	return listing, nil
}

// begin opens a span and returns the function that closes it and records
// the outcome.
func (s *Service) begin(ctx context.Context, op string, listingID uuid.UUID) (context.Context, func(error)) {
	start := time.Now()
	attrs := []attribute.KeyValue{attribute.String("listing.operation", op)}
	if listingID != uuid.Nil {
		attrs = append(attrs, attribute.String("listing.id", listingID.String()))
	}
	ctx, span := s.tracer.Start(ctx, "listing."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		span.End()
		s.metrics.IncrementOutcome(op, err)
		s.metrics.ObserveLatency(op, time.Since(start))
	}
}

// storeError translates a Record Store error into a coded error. Remote I/O
// failures are logged with their cause and reported as internal.
func (s *Service) storeError(ctx context.Context, err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "listing not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "listing already exists")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "listing changed concurrently")
	}
	s.logger.ErrorContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// notify sends a fire-and-forget notification. Delivery failures are logged
// and never change the operation's outcome.
func (s *Service) notify(ctx context.Context, n notify.Notification) {
	if s.notifier == nil {
		return
	}
	if n.At.IsZero() {
		n.At = requestcontext.Now(ctx)
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "failed to deliver notification",
			"action", n.Action,
			"listing_id", n.ListingID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// notifyFailure reports err to the caller. Internal errors are replaced by
// the generic description naming the attempted action.
func (s *Service) notifyFailure(ctx context.Context, action string, listingID uuid.UUID, err error, generic string) {
	description := generic
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		description = dErrors.MessageOf(err)
	}
	s.notify(ctx, notify.Failure(action, listingID, description))
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, listingID uuid.UUID, outcome, reason string, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	args := append(attributes,
		"event", string(event),
		"log_type", "audit",
		"listing_id", listingID,
		"outcome", outcome,
	)
	if requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, string(event), args...)

	if s.auditPublisher == nil {
		return
	}
	details := make(map[string]string)
	for i := 0; i+1 < len(attributes); i += 2 {
		if k, ok := attributes[i].(string); ok {
			if v, ok := attributes[i+1].(string); ok {
				details[k] = v
			}
		}
	}
	if len(details) == 0 {
		details = nil
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		ListingID: listingID,
		Action:    string(event),
		Outcome:   outcome,
		Reason:    reason,
		ActorID:   requestcontext.Actor(ctx),
		RequestID: requestID,
		Details:   details,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"event", string(event),
			"error", err,
		)
	}
}
