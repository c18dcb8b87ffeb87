package engine

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/attendkeeper/internal/common"
	"github.com/dmitrijs2005/attendkeeper/internal/geo"
	"github.com/dmitrijs2005/attendkeeper/internal/geolocation"
	"github.com/dmitrijs2005/attendkeeper/internal/guard"
	"github.com/dmitrijs2005/attendkeeper/internal/lateness"
	"github.com/dmitrijs2005/attendkeeper/internal/ledger"
	"github.com/dmitrijs2005/attendkeeper/internal/logging"
	"github.com/dmitrijs2005/attendkeeper/internal/models"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// MaxLocationDescription is the longest accepted location text, in runes.
const MaxLocationDescription = 500

const (
	reasonInProgress  = "another submission for this person is in flight"
	reasonProvisional = "a submission was accepted today and awaits confirmation"
)

// InitiateSubmission runs one check-in attempt for personID to a terminal
// state. The returned error is Result.Err and is nil only for Committed.
//
// ctx may abandon the attempt while the location is being acquired. From the
// duplicate check on, the attempt ignores ctx cancellation and finishes on
// its own timeouts.
func (e *Engine) InitiateSubmission(ctx context.Context, personID string, c Candidate) (*Result, error) {
	personID = strings.Join(strings.Fields(personID), " ")
	a := &attempt{
		id:        uuid.NewString(),
		personID:  personID,
		key:       models.IdentityKey(personID),
		state:     StateIdle,
		history:   []State{StateIdle},
		startedAt: e.opts.Now(),
	}
	a.log = e.log.With("attempt_id", a.id, "person", personID)

	rec, err := e.validate(personID, c)
	if err != nil {
		return e.finish(ctx, a, StateRejected, err)
	}
	a.record = rec
	if err := ctx.Err(); err != nil {
		return e.finish(ctx, a, StateFailed, canceled(err))
	}

	if !e.claim(a) {
		return e.finish(ctx, a, StateRejected, common.Rejected(common.ErrSubmissionInProgress, reasonInProgress))
	}
	defer e.release(a)

	a.transition(ctx, StateAcquiringContext)
	if err := e.annotate(ctx, a, c); err != nil {
		return e.finish(ctx, a, StateFailed, canceled(err))
	}
	a.log = a.log.With("date", string(a.record.Date))

	// Past this point the attempt must reach a terminal state.
	ctx = context.WithoutCancel(ctx)

	a.transition(ctx, StateCheckingDuplicate)
	if e.hasProvisional(a.key, a.record.Date) {
		return e.finish(ctx, a, StateRejected, common.Rejected(common.ErrDuplicateSubmission, reasonProvisional))
	}
	fetchedAt := e.opts.Now()
	gctx, cancel := e.withTimeout(ctx)
	verdict, err := e.guard.Check(gctx, personID, a.record.Date)
	cancel()
	if err != nil {
		return e.finish(ctx, a, StateFailed, common.Failed(common.ErrNetwork, err))
	}
	if !verdict.FetchedAt.IsZero() {
		e.applyRecords(ctx, a.record.Date, verdict.Records, fetchedAt)
	}
	if !verdict.Admissible {
		return e.finish(ctx, a, StateRejected, common.Rejected(common.ErrDuplicateSubmission, verdict.Reason))
	}

	a.transition(ctx, StateSubmitting)
	appended, err := e.appendRecord(ctx, a.record)
	switch {
	case errors.Is(err, ledger.ErrRejected):
		return e.finish(ctx, a, StateFailed, &common.SubmissionError{
			Kind:   common.ErrNetwork,
			Reason: "ledger refused the record",
			Err:    err,
		})
	case err != nil:
		// only an unconfirmed write leaves a retry worth making
		se := common.Failed(common.ErrNetwork, err)
		se.Retryable = ledger.IsUnavailable(err)
		return e.finish(ctx, a, StateFailed, se)
	case !appended:
		return e.finish(ctx, a, StateRejected, common.Rejected(common.ErrDuplicateSubmission, guard.ReasonRemoteRecord))
	}

	a.transition(ctx, StateReconciling)
	e.reconcile(ctx, a)

	return e.finish(ctx, a, StateCommitted, nil)
}

// validate builds the candidate record from caller input. It performs no I/O.
func (e *Engine) validate(personID string, c Candidate) (models.CheckIn, error) {
	if personID == "" {
		return models.CheckIn{}, common.Rejected(common.ErrValidation, "person id is required")
	}

	status, err := models.ParseStatus(c.Status)
	if err != nil {
		return models.CheckIn{}, &common.SubmissionError{Kind: common.ErrValidation, Reason: "invalid status", Err: err}
	}

	location := strings.TrimSpace(html.UnescapeString(e.sanitizer.Sanitize(c.LocationDescription)))
	if n := utf8.RuneCountInString(location); n > MaxLocationDescription {
		return models.CheckIn{}, common.Rejected(common.ErrValidation,
			fmt.Sprintf("location description is %d characters, limit is %d", n, MaxLocationDescription))
	}

	if p := c.Coordinates; p != nil {
		if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			return models.CheckIn{}, common.Rejected(common.ErrValidation,
				fmt.Sprintf("coordinates out of bounds: %f,%f", p.Lat, p.Lon))
		}
	}

	if roster := e.Roster(); len(roster) > 0 {
		person, ok := findPerson(roster, personID)
		if !ok {
			return models.CheckIn{}, common.Rejected(common.ErrValidation, fmt.Sprintf("%q is not on the roster", personID))
		}
		personID = person.ID
	}

	return models.CheckIn{
		ID:                  uuid.NewString(),
		PersonID:            personID,
		Status:              status,
		RawStatus:           status.Wire(),
		LocationDescription: location,
	}, nil
}

// annotate fills in the time, date, distance and lateness of the record.
func (e *Engine) annotate(ctx context.Context, a *attempt, c Candidate) error {
	observed := c.Coordinates
	if observed == nil {
		fix, err := geolocation.Acquire(ctx, e.geo, e.opts.LocationTimeout)
		if err != nil {
			return err
		}
		if fix != nil {
			observed = &fix.Coordinates
		} else {
			a.log.Debug(ctx, "no location fix")
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := e.opts.Now()
	a.record.SubmittedAt = now
	a.record.Date = models.DateOf(now, e.opts.Location)
	a.record.LatenessMinutes = lateness.Compute(now, e.opts.Cutoff, e.opts.Location)

	v := geo.Validate(observed, e.opts.Site, e.opts.RadiusMeters)
	a.record.DistanceFromSiteMeters = v.DistanceMeters
	if v.OutOfRange() {
		a.warn(WarningOutOfRange, fmt.Sprintf("%d m from site, radius is %.0f m", *v.DistanceMeters, e.opts.RadiusMeters))
	}
	return nil
}

func (e *Engine) appendRecord(ctx context.Context, rec models.CheckIn) (bool, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if ca, ok := e.ledger.(ledger.ConditionalAppender); ok {
		return ca.AppendIfAbsent(ctx, rec)
	}
	if err := e.ledger.AppendRecord(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

// reconcile records the acknowledged append locally. Failures never undo the
// commit; they are retried in the background.
func (e *Engine) reconcile(ctx context.Context, a *attempt) {
	rec := a.record
	e.addProvisional(rec)

	mark := func(ctx context.Context) error {
		return e.markers.Mark(ctx, a.key, rec.PersonID, rec.Date)
	}
	if err := mark(ctx); err != nil {
		a.log.Error(ctx, "failed to write idempotency marker", "error", err)
		a.warn(WarningReconciliation, "local marker not written, retrying in background")
		e.retryInBackground(a.log, "mark", mark)
	}

	refresh := func(ctx context.Context) error {
		return e.refreshRecords(ctx, rec.Date)
	}
	if err := refresh(ctx); err != nil {
		a.log.Warn(ctx, "post-commit refresh failed", "error", err)
		a.warn(WarningReconciliation, "remote view not refreshed, retrying in background")
		e.retryInBackground(a.log, "refresh", refresh)
	}

	if c, ok := e.conflictFor(a.key, rec.Date); ok {
		a.log.Warn(ctx, "ledger holds more than one check-in for this person today", "records", len(c.Records))
		a.warn(WarningConsistencyGap, fmt.Sprintf("ledger holds %d records for this person today", len(c.Records)))
	}
}

// retryInBackground retries fn with exponential backoff until it succeeds,
// the retry budget runs out or the engine is closed.
func (e *Engine) retryInBackground(log logging.Logger, op string, fn func(context.Context) error) {
	select {
	case <-e.done:
		return
	default:
	}

	e.bg.Add(1)
	go func() {
		defer e.bg.Done()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-e.done:
				cancel()
			case <-ctx.Done():
			}
		}()

		b := retry.WithMaxRetries(e.opts.ReconcileRetries, retry.NewExponential(e.opts.ReconcileBackoff))
		err := retry.Do(ctx, b, func(ctx context.Context) error {
			if err := fn(ctx); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			log.Error(ctx, "reconciliation abandoned", "op", op, "error", fmt.Errorf("%w: %w", common.ErrReconciliation, err))
			return
		}
		log.Info(ctx, "reconciliation recovered", "op", op)
	}()
}

func (e *Engine) finish(ctx context.Context, a *attempt, to State, err error) (*Result, error) {
	a.transition(ctx, to)

	args := []any{"state", to.String(), "elapsed", e.opts.Now().Sub(a.startedAt)}
	switch to {
	case StateCommitted:
		args = append(args, "status", a.record.Status.String(), "lateness_min", a.record.LatenessMinutes)
		if d := a.record.DistanceFromSiteMeters; d != nil {
			args = append(args, "distance_m", *d)
		}
		if len(a.warnings) > 0 {
			args = append(args, "warnings", len(a.warnings))
		}
		a.log.Info(ctx, "check-in committed", args...)
	case StateRejected:
		a.log.Info(ctx, "check-in rejected", append(args, "error", err)...)
	default:
		a.log.Warn(ctx, "check-in failed", append(args, "error", err)...)
	}

	return a.result(err), err
}

func canceled(err error) error {
	return &common.SubmissionError{Kind: common.ErrAttemptCanceled, Retryable: true, Err: err}
}

func findPerson(roster []models.Person, personID string) (models.Person, bool) {
	key := models.IdentityKey(personID)
	for _, p := range roster {
		if models.IdentityKey(p.ID) == key {
			return p, true
		}
	}
	return models.Person{}, false
}
