// Package ledger talks to the remote attendance ledger.
//
// The ledger is a weakly consistent append-only log: reads may lag writes and
// appends perform no duplicate check. Callers enforce at-most-one-per-day
// themselves, or use ConditionalAppender when the implementation offers it.
package ledger

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/attendkeeper/internal/models"
)

var (
	// ErrUnavailable covers transport failures, timeouts, throttling and 5xx
	// responses: the outcome of a write is unknown.
	ErrUnavailable = errors.New("ledger unavailable")

	// ErrRejected means the ledger refused the request outright.
	ErrRejected = errors.New("ledger rejected request")
)

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From models.Date
	To   models.Date
}

// Day is the single-day range.
func Day(d models.Date) DateRange {
	return DateRange{From: d, To: d}
}

// Contains reports whether d falls inside r.
func (r DateRange) Contains(d models.Date) bool {
	return d >= r.From && d <= r.To
}

// Client is the remote ledger contract the engine depends on.
type Client interface {
	// FetchRecords returns the records whose date lies in r, in ledger order.
	// A row the ledger holds but whose day cannot be read comes back undated
	// (see models.CheckIn.Undated) and may belong to any day, r included.
	FetchRecords(ctx context.Context, r DateRange) ([]models.CheckIn, error)

	// AppendRecord appends rec without any server-side duplicate check.
	AppendRecord(ctx context.Context, rec models.CheckIn) error
}

// ConditionalAppender is implemented by ledgers that can append atomically
// only when no record exists for the same person and day.
type ConditionalAppender interface {
	// AppendIfAbsent reports false, with no write, when a record for
	// (rec.PersonID, rec.Date) already exists.
	AppendIfAbsent(ctx context.Context, rec models.CheckIn) (bool, error)
}

// RosterSource lists the people allowed to check in.
type RosterSource interface {
	FetchRoster(ctx context.Context) ([]models.Person, error)
}
