// Package markers is the local idempotency ledger: durable "already submitted"
// markers keyed by person identity and calendar day.
//
// Markers are written only after the remote ledger has acknowledged an append.
// Only the current day is ever queried; older markers are inert and may be
// purged at any time.
package markers

import (
	"context"

	"github.com/dmitrijs2005/attendkeeper/internal/models"
)

// Repository stores idempotency markers. personKey is expected to be the
// normalized identity (models.IdentityKey); personID is kept for display.
type Repository interface {
	// Mark records a marker. Marking twice is not an error.
	Mark(ctx context.Context, personKey, personID string, day models.Date) error

	// Has reports whether a marker exists for the person on day.
	Has(ctx context.Context, personKey string, day models.Date) (bool, error)

	// ListDay returns the person keys marked on day.
	ListDay(ctx context.Context, day models.Date) ([]string, error)

	// Purge removes markers for days strictly before the given day and
	// returns how many were removed.
	Purge(ctx context.Context, before models.Date) (int64, error)
}
