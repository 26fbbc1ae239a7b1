package store

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS listings (
	id                  UUID PRIMARY KEY,
	name                TEXT        NOT NULL,
	owner_ref           TEXT        NOT NULL,
	owner_email         TEXT        NOT NULL DEFAULT '',
	payment_status      TEXT        NOT NULL DEFAULT 'none',
	receipt_url         TEXT,
	last_payment_date   TIMESTAMPTZ,
	listing_expiry_date DATE,
	addon_enabled       BOOLEAN     NOT NULL DEFAULT FALSE,
	addon_expiry_date   DATE,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	CONSTRAINT listings_receipt_iff_pending CHECK (
		(receipt_url IS NOT NULL) = (payment_status = 'pending_confirmation')
	)
);

CREATE INDEX IF NOT EXISTS idx_listings_pending
	ON listings (last_payment_date DESC, created_at DESC)
	WHERE receipt_url IS NOT NULL;
`

// Migrate creates the listings table and indexes if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate listings schema: %w", err)
	}
	return nil
}
