// Package guard decides whether a check-in for a person and day may be
// submitted. Two checks must both pass: no local idempotency marker, and no
// matching record in a snapshot fetched from the remote ledger during the
// check itself. Cached snapshots are never consulted.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/ledger"
	"github.com/dmitrijs2005/attendkeeper/internal/models"
	"github.com/dmitrijs2005/attendkeeper/internal/repositories/markers"
)

// Reasons a candidate is not admissible.
const (
	ReasonLocalMarker      = "already submitted from this device today"
	ReasonRemoteRecord     = "ledger already has a record for today"
	ReasonUnreadableRecord = "ledger has a record with an unreadable date"
)

// Verdict carries the decision and the snapshot it was based on.
type Verdict struct {
	Admissible bool
	Reason     string
	// Records is the fresh remote snapshot for the day; nil when the local
	// marker alone decided.
	Records   []models.CheckIn
	FetchedAt time.Time
}

type Guard struct {
	markers markers.Repository
	ledger  ledger.Client
	now     func() time.Time
}

func New(m markers.Repository, l ledger.Client) *Guard {
	return &Guard{markers: m, ledger: l, now: time.Now}
}

// Check evaluates admissibility of personID on day. Errors mean the decision
// could not be made; callers must not submit in that case.
func (g *Guard) Check(ctx context.Context, personID string, day models.Date) (Verdict, error) {
	key := models.IdentityKey(personID)

	marked, err := g.markers.Has(ctx, key, day)
	if err != nil {
		return Verdict{}, fmt.Errorf("checking local marker: %w", err)
	}
	if marked {
		return Verdict{Reason: ReasonLocalMarker}, nil
	}

	fetchedAt := g.now()
	records, err := g.ledger.FetchRecords(ctx, ledger.Day(day))
	if err != nil {
		return Verdict{}, fmt.Errorf("fetching remote snapshot: %w", err)
	}

	v := Verdict{Admissible: true, Records: records, FetchedAt: fetchedAt}
	switch {
	case HasRecord(records, personID, day):
		v.Admissible = false
		v.Reason = ReasonRemoteRecord
	case HasUndatedRecord(records, personID):
		// the row may well be today's
		v.Admissible = false
		v.Reason = ReasonUnreadableRecord
	}
	return v, nil
}

// IsAdmissible is Check reduced to a boolean.
func (g *Guard) IsAdmissible(ctx context.Context, personID string, day models.Date) (bool, error) {
	v, err := g.Check(ctx, personID, day)
	if err != nil {
		return false, err
	}
	return v.Admissible, nil
}

// HasRecord reports whether records contain personID on day, comparing
// identities with models.IdentityKey.
func HasRecord(records []models.CheckIn, personID string, day models.Date) bool {
	key := models.IdentityKey(personID)
	for _, rec := range records {
		if rec.Date == day && models.IdentityKey(rec.PersonID) == key {
			return true
		}
	}
	return false
}

// HasUndatedRecord reports whether records contain an undated row for personID.
func HasUndatedRecord(records []models.CheckIn, personID string) bool {
	key := models.IdentityKey(personID)
	for _, rec := range records {
		if rec.Undated() && models.IdentityKey(rec.PersonID) == key {
			return true
		}
	}
	return false
}
