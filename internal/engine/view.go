package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/guard"
	"github.com/dmitrijs2005/attendkeeper/internal/ledger"
	"github.com/dmitrijs2005/attendkeeper/internal/models"
	"golang.org/x/sync/errgroup"
)

// view is the engine's last-known picture of the remote ledger for one day.
// records is confirmed (seen in a fetch); provisional holds commits not yet
// observed, keyed by identity key.
type view struct {
	day         models.Date
	records     []models.CheckIn
	fetchedAt   time.Time
	stale       bool
	provisional map[string]models.CheckIn
	conflicts   []models.Conflict
	roster      []models.Person
}

// reset moves the view to day, keeping only the roster.
func (v *view) reset(day models.Date) {
	*v = view{day: day, provisional: map[string]models.CheckIn{}, roster: v.roster}
}

// applyRecords installs a fetch of day taken at fetchedAt. Fetches for an
// earlier day, or older than the current view, are ignored.
func (e *Engine) applyRecords(ctx context.Context, day models.Date, records []models.CheckIn, fetchedAt time.Time) {
	e.viewMu.Lock()
	v := &e.view
	switch {
	case v.day != "" && day < v.day:
		e.viewMu.Unlock()
		return
	case day != v.day:
		v.reset(day)
	case fetchedAt.Before(v.fetchedAt):
		e.viewMu.Unlock()
		return
	}

	prevConflicts := len(v.conflicts)
	v.records = records
	v.fetchedAt = fetchedAt
	v.stale = false
	for key, rec := range v.provisional {
		if guard.HasRecord(records, rec.PersonID, day) {
			delete(v.provisional, key)
		}
	}
	v.conflicts = ledger.FindConflicts(records)
	conflicts := len(v.conflicts)
	e.viewMu.Unlock()

	if conflicts > prevConflicts {
		e.log.Warn(ctx, "ledger holds duplicate check-ins", "date", string(day), "conflicts", conflicts)
	}
	if n := countUndated(records); n > 0 {
		e.log.Warn(ctx, "ledger rows with unreadable dates", "date", string(day), "rows", n)
	}
	if e.cache != nil {
		if err := e.cache.SaveRecords(ctx, day, records, fetchedAt); err != nil {
			e.log.Warn(ctx, "failed to cache snapshot", "error", err)
		}
	}
}

func (e *Engine) addProvisional(rec models.CheckIn) {
	e.viewMu.Lock()
	defer e.viewMu.Unlock()
	if e.view.day != rec.Date {
		if e.view.day > rec.Date {
			return
		}
		e.view.reset(rec.Date)
	}
	e.view.provisional[models.IdentityKey(rec.PersonID)] = rec
}

func (e *Engine) hasProvisional(key string, day models.Date) bool {
	e.viewMu.RLock()
	defer e.viewMu.RUnlock()
	if e.view.day != day {
		return false
	}
	_, ok := e.view.provisional[key]
	return ok
}

func (e *Engine) conflictFor(key string, day models.Date) (models.Conflict, bool) {
	e.viewMu.RLock()
	defer e.viewMu.RUnlock()
	for _, c := range e.view.conflicts {
		if c.Key.PersonID == key && c.Key.Date == day {
			return c, true
		}
	}
	return models.Conflict{}, false
}

// Roster returns the last fetched roster.
func (e *Engine) Roster() []models.Person {
	e.viewMu.RLock()
	defer e.viewMu.RUnlock()
	return append([]models.Person(nil), e.view.roster...)
}

// Refresh re-reads today's records and the roster. Concurrent calls share
// one round trip.
func (e *Engine) Refresh(ctx context.Context) error {
	_, err, _ := e.refreshGroup.Do("refresh", func() (any, error) {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return e.refreshRecords(gctx, e.Today())
		})
		if e.roster != nil {
			g.Go(func() error {
				return e.refreshRoster(gctx)
			})
		}
		return nil, g.Wait()
	})
	return err
}

func (e *Engine) refreshRecords(ctx context.Context, day models.Date) error {
	fetchedAt := e.opts.Now()
	rctx, cancel := e.withTimeout(ctx)
	defer cancel()

	records, err := e.ledger.FetchRecords(rctx, ledger.Day(day))
	if err != nil {
		return fmt.Errorf("fetching records for %s: %w", day, err)
	}
	e.applyRecords(ctx, day, records, fetchedAt)
	return nil
}

func (e *Engine) refreshRoster(ctx context.Context) error {
	rctx, cancel := e.withTimeout(ctx)
	defer cancel()

	people, err := e.roster.FetchRoster(rctx)
	if err != nil {
		return fmt.Errorf("fetching roster: %w", err)
	}

	e.viewMu.Lock()
	e.view.roster = people
	e.viewMu.Unlock()

	if e.cache != nil {
		if err := e.cache.SaveRoster(ctx, people); err != nil {
			e.log.Warn(ctx, "failed to cache roster", "error", err)
		}
	}
	return nil
}

// loadCache seeds an empty view from the persisted snapshot, marked stale.
func (e *Engine) loadCache(ctx context.Context) {
	if e.cache == nil {
		return
	}
	s, err := e.cache.Load(ctx)
	if err != nil {
		e.log.Warn(ctx, "failed to load cached snapshot", "error", err)
		return
	}

	e.viewMu.Lock()
	defer e.viewMu.Unlock()
	if len(e.view.roster) == 0 {
		e.view.roster = s.Roster
	}
	if !e.view.fetchedAt.IsZero() || s.Day == "" {
		return
	}
	if e.view.day != "" && e.view.day != s.Day {
		return
	}
	e.view.day = s.Day
	e.view.records = s.Records
	e.view.fetchedAt = s.FetchedAt
	e.view.stale = true
	e.view.conflicts = ledger.FindConflicts(s.Records)
}

func countUndated(records []models.CheckIn) int {
	n := 0
	for _, rec := range records {
		if rec.Undated() {
			n++
		}
	}
	return n
}
