package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"bizdir/internal/listing/models"
	"bizdir/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

const listingColumns = `id, name, owner_ref, owner_email, payment_status, receipt_url,
	last_payment_date, listing_expiry_date, addon_enabled, addon_expiry_date, created_at, updated_at`

// PostgresStore persists listings in PostgreSQL.
// This store is pure I/O; lifecycle rules live on models.Listing and the service.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed listing store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, l *models.Listing) error {
	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		l.ID, l.Name, l.OwnerRef, l.OwnerEmail, string(l.PaymentStatus), nullString(l.ReceiptURL),
		l.LastPaymentDate, dateParam(l.ListingExpiry), l.AddonEnabled, dateParam(l.AddonExpiry), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("create listing: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	l, err := scanListing(s.db.QueryRowContext(ctx, query, listingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find listing by id: %w", err)
	}
	return l, nil
}

// ListPending returns the admin work queue: every listing with receipt
// evidence, most recent submission first.
func (s *PostgresStore) ListPending(ctx context.Context) ([]*models.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE receipt_url IS NOT NULL
		ORDER BY last_payment_date DESC NULLS LAST, created_at DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending listings: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending listings: %w", err)
	}
	return listings, nil
}

// Execute locks the row, hands the current state to validate and mutate, and
// writes every mutable column back in the same transaction. A concurrent
// evidence submission blocks on the row lock instead of interleaving with the
// read of last_payment_date.
func (s *PostgresStore) Execute(ctx context.Context, listingID uuid.UUID, validate func(*models.Listing) error, mutate func(*models.Listing)) (*models.Listing, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin listing tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1 FOR UPDATE`
	l, err := scanListing(tx.QueryRowContext(ctx, query, listingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock listing: %w", err)
	}
	if err := validate(l); err != nil {
		return nil, err
	}
	mutate(l)

	update := `
		UPDATE listings SET
			payment_status = $2,
			receipt_url = $3,
			last_payment_date = $4,
			listing_expiry_date = $5,
			addon_expiry_date = $6,
			updated_at = $7
		WHERE id = $1
	`
	res, err := tx.ExecContext(ctx, update,
		l.ID, string(l.PaymentStatus), nullString(l.ReceiptURL),
		l.LastPaymentDate, dateParam(l.ListingExpiry), dateParam(l.AddonExpiry), l.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update listing: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, sentinel.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit listing tx: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) Delete(ctx context.Context, listingID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, listingID)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete listing rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*models.Listing, error) {
	var (
		l             models.Listing
		status        string
		receiptURL    sql.NullString
		lastPayment   sql.NullTime
		listingExpiry sql.NullTime
		addonExpiry   sql.NullTime
	)
	err := row.Scan(
		&l.ID, &l.Name, &l.OwnerRef, &l.OwnerEmail, &status, &receiptURL,
		&lastPayment, &listingExpiry, &l.AddonEnabled, &addonExpiry, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	parsed, err := models.ParsePaymentStatus(status)
	if err != nil {
		return nil, fmt.Errorf("stored payment status: %w", err)
	}
	l.PaymentStatus = parsed
	l.ReceiptURL = receiptURL.String
	l.LastPaymentDate = timePtr(lastPayment)
	l.ListingExpiry = datePtr(listingExpiry)
	l.AddonExpiry = datePtr(addonExpiry)
	return &l, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// dateParam sends DATE columns as YYYY-MM-DD so the session time zone cannot
// shift the calendar day.
func dateParam(t *time.Time) any {
	if t == nil {
		return nil
	}
	return models.FormatDate(t)
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func datePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := models.DateOf(t.Time)
	return &v
}
