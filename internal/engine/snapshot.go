package engine

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/common"
	"github.com/dmitrijs2005/attendkeeper/internal/guard"
	"github.com/dmitrijs2005/attendkeeper/internal/ledger"
	"github.com/dmitrijs2005/attendkeeper/internal/models"
)

// Admissibility answers whether a person may submit right now.
type Admissibility struct {
	Admissible bool
	Reason     string
	InProgress bool
}

// QueryAdmissibility runs the duplicate guard for personID today, including
// a fresh remote read. It does not reserve anything: a later submission
// checks again.
func (e *Engine) QueryAdmissibility(ctx context.Context, personID string) (Admissibility, error) {
	if e.inFlight(personID) {
		return Admissibility{Reason: reasonInProgress, InProgress: true}, nil
	}

	day := e.Today()
	if e.hasProvisional(models.IdentityKey(personID), day) {
		return Admissibility{Reason: reasonProvisional}, nil
	}

	fetchedAt := e.opts.Now()
	gctx, cancel := e.withTimeout(ctx)
	defer cancel()
	v, err := e.guard.Check(gctx, personID, day)
	if err != nil {
		return Admissibility{}, fmt.Errorf("checking admissibility of %q: %w", personID, err)
	}
	if !v.FetchedAt.IsZero() {
		e.applyRecords(ctx, day, v.Records, fetchedAt)
	}
	return Admissibility{Admissible: v.Admissible, Reason: v.Reason}, nil
}

// GetTodaySnapshot returns the presentation view for the current site day.
// It never touches the network.
func (e *Engine) GetTodaySnapshot() models.TodaySnapshot {
	today := e.Today()

	e.viewMu.RLock()
	v := e.view
	snap := models.TodaySnapshot{
		Date:      today,
		Counts:    emptyCounts(),
		FetchedAt: v.fetchedAt,
		Stale:     v.stale,
	}
	var confirmed, provisional []models.CheckIn
	if v.day == today {
		for _, rec := range v.records {
			if rec.Undated() {
				snap.Unreadable++
				continue
			}
			confirmed = append(confirmed, rec)
		}
		for _, rec := range v.provisional {
			provisional = append(provisional, rec)
		}
		for _, c := range v.conflicts {
			snap.Conflicts = append(snap.Conflicts, models.Conflict{Key: c.Key, Records: slices.Clone(c.Records)})
		}
	} else if !v.fetchedAt.IsZero() {
		snap.Stale = true
	}
	roster := slices.Clone(v.roster)
	e.viewMu.RUnlock()

	sort.Slice(provisional, func(i, j int) bool {
		return provisional[i].SubmittedAt.Before(provisional[j].SubmittedAt)
	})

	// First record per person wins, in ledger order.
	submitted := map[string]models.Status{}
	for _, rec := range append(slices.Clone(confirmed), provisional...) {
		if rec.Status.Valid() {
			snap.Counts[rec.Status]++
		} else {
			snap.Unrecognized++
		}
		key := models.IdentityKey(rec.PersonID)
		if _, seen := submitted[key]; !seen {
			submitted[key] = rec.Status
		}
	}
	for _, status := range submitted {
		if status == models.StatusPresent {
			snap.PresentCount++
		} else {
			snap.OtherCount++
		}
	}

	for _, p := range roster {
		status, ok := submitted[models.IdentityKey(p.ID)]
		snap.Roster = append(snap.Roster, models.RosterState{Person: p, Submitted: ok, Status: status})
	}

	sort.SliceStable(confirmed, func(i, j int) bool {
		return confirmed[i].SubmittedAt.After(confirmed[j].SubmittedAt)
	})
	snap.Confirmed = confirmed
	snap.Provisional = provisional
	return snap
}

// MonthSummary counts statuses over one calendar month from a fresh read.
func (e *Engine) MonthSummary(ctx context.Context, year int, month time.Month) (models.MonthSummary, error) {
	if month < time.January || month > time.December {
		return models.MonthSummary{}, fmt.Errorf("%w: month %d", common.ErrValidation, month)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, e.opts.Location)
	r := ledger.DateRange{
		From: models.DateOf(first, e.opts.Location),
		To:   models.DateOf(first.AddDate(0, 1, -1), e.opts.Location),
	}

	rctx, cancel := e.withTimeout(ctx)
	defer cancel()
	records, err := e.ledger.FetchRecords(rctx, r)
	if err != nil {
		return models.MonthSummary{}, fmt.Errorf("fetching %04d-%02d: %w", year, int(month), err)
	}

	s := models.MonthSummary{Year: year, Month: month, Counts: emptyCounts()}
	for _, rec := range records {
		if rec.Undated() {
			s.Unreadable++
			continue
		}
		s.Records = append(s.Records, rec)
		if rec.Status.Valid() {
			s.Counts[rec.Status]++
		} else {
			s.Unrecognized++
		}
	}
	return s, nil
}

// Submitted reports whether the current view shows personID as checked in
// today, confirmed or provisional. It never touches the network.
func (e *Engine) Submitted(personID string) bool {
	day := e.Today()
	key := models.IdentityKey(personID)

	e.viewMu.RLock()
	defer e.viewMu.RUnlock()
	if e.view.day != day {
		return false
	}
	if _, ok := e.view.provisional[key]; ok {
		return true
	}
	return guard.HasRecord(e.view.records, personID, day)
}

// MarkedToday lists the identity keys this device has marked as submitted
// today, sorted.
func (e *Engine) MarkedToday(ctx context.Context) ([]string, error) {
	day := e.Today()
	keys, err := e.markers.ListDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("listing markers for %s: %w", day, err)
	}
	slices.Sort(keys)
	return keys, nil
}

func emptyCounts() map[models.Status]int {
	counts := make(map[models.Status]int, len(models.Statuses))
	for _, s := range models.Statuses {
		counts[s] = 0
	}
	return counts
}
