package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/geolocation"
	"github.com/dmitrijs2005/attendkeeper/internal/guard"
	"github.com/dmitrijs2005/attendkeeper/internal/lateness"
	"github.com/dmitrijs2005/attendkeeper/internal/ledger"
	"github.com/dmitrijs2005/attendkeeper/internal/logging"
	"github.com/dmitrijs2005/attendkeeper/internal/models"
	"github.com/dmitrijs2005/attendkeeper/internal/repositories/markers"
	"github.com/dmitrijs2005/attendkeeper/internal/repositories/metadata"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/singleflight"
)

// Options tunes the engine. Zero values fall back to the defaults below.
type Options struct {
	Site         models.Coordinates
	RadiusMeters float64
	// Location is the site time zone; it defines the calendar day.
	Location *time.Location
	Cutoff   lateness.Cutoff

	LocationTimeout time.Duration
	RequestTimeout  time.Duration
	RefreshInterval time.Duration

	ReconcileRetries uint64
	ReconcileBackoff time.Duration
	// MarkerRetentionDays keeps this many past days of markers before purging.
	MarkerRetentionDays int

	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.RadiusMeters <= 0 {
		o.RadiusMeters = 100
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.LocationTimeout <= 0 {
		o.LocationTimeout = 8 * time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 15 * time.Second
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = 45 * time.Second
	}
	if o.ReconcileRetries == 0 {
		o.ReconcileRetries = 5
	}
	if o.ReconcileBackoff <= 0 {
		o.ReconcileBackoff = time.Second
	}
	if o.MarkerRetentionDays <= 0 {
		o.MarkerRetentionDays = 7
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// SnapshotCache persists the last confirmed view for offline display.
type SnapshotCache interface {
	SaveRecords(ctx context.Context, day models.Date, records []models.CheckIn, fetchedAt time.Time) error
	SaveRoster(ctx context.Context, roster []models.Person) error
	Load(ctx context.Context) (metadata.Snapshot, error)
}

// Deps are the collaborators of the engine. Roster, Cache and Geolocation
// are optional.
type Deps struct {
	Ledger      ledger.Client
	Roster      ledger.RosterSource
	Markers     markers.Repository
	Cache       SnapshotCache
	Geolocation geolocation.Provider
	Logger      logging.Logger
}

// Engine owns the idempotency ledger, the last-known remote view and the
// set of attempts in flight. Build one per process and Close it on shutdown.
type Engine struct {
	opts      Options
	ledger    ledger.Client
	roster    ledger.RosterSource
	markers   markers.Repository
	cache     SnapshotCache
	geo       geolocation.Provider
	guard     *guard.Guard
	log       logging.Logger
	sanitizer *bluemonday.Policy

	mu     sync.Mutex
	active map[string]*attempt

	viewMu sync.RWMutex
	view   view

	refreshGroup singleflight.Group

	bg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

func New(deps Deps, opts Options) (*Engine, error) {
	if deps.Ledger == nil {
		return nil, errors.New("engine: ledger client is required")
	}
	if deps.Markers == nil {
		return nil, errors.New("engine: marker repository is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	opts.applyDefaults()

	return &Engine{
		opts:      opts,
		ledger:    deps.Ledger,
		roster:    deps.Roster,
		markers:   deps.Markers,
		cache:     deps.Cache,
		geo:       deps.Geolocation,
		guard:     guard.New(deps.Markers, deps.Ledger),
		log:       deps.Logger,
		sanitizer: bluemonday.StrictPolicy(),
		active:    map[string]*attempt{},
		view:      view{provisional: map[string]models.CheckIn{}},
		done:      make(chan struct{}),
	}, nil
}

// Today is the current calendar day at the site.
func (e *Engine) Today() models.Date {
	return models.DateOf(e.opts.Now(), e.opts.Location)
}

// Prime seeds the view from the snapshot cache, purges old markers and
// performs a first refresh. A refresh error leaves the cached view in place,
// marked stale.
func (e *Engine) Prime(ctx context.Context) error {
	e.loadCache(ctx)
	if _, err := e.PurgeMarkers(ctx); err != nil {
		e.log.Warn(ctx, "marker purge failed", "error", err)
	}
	return e.Refresh(ctx)
}

// Run primes the engine and refreshes the remote view every RefreshInterval
// until ctx is done or the engine is closed.
func (e *Engine) Run(ctx context.Context) {
	if err := e.Prime(ctx); err != nil {
		e.log.Warn(ctx, "initial refresh failed", "error", err)
	}

	ticker := time.NewTicker(e.opts.RefreshInterval)
	defer ticker.Stop()

	lastDay := e.Today()
	for {
		select {
		case <-ticker.C:
			if day := e.Today(); day != lastDay {
				lastDay = day
				if _, err := e.PurgeMarkers(ctx); err != nil {
					e.log.Warn(ctx, "marker purge failed", "error", err)
				}
			}
			if err := e.Refresh(ctx); err != nil {
				e.log.Warn(ctx, "background refresh failed", "error", err)
			}
		case <-ctx.Done():
			return
		case <-e.done:
			return
		}
	}
}

// Close stops background work and waits for pending reconciliation retries
// to give up.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() { close(e.done) })
	e.bg.Wait()
	return nil
}

// PurgeMarkers removes markers older than the retention window and returns
// how many were removed.
func (e *Engine) PurgeMarkers(ctx context.Context) (int64, error) {
	today, err := e.Today().Time(e.opts.Location)
	if err != nil {
		return 0, err
	}
	before := models.DateOf(today.AddDate(0, 0, -e.opts.MarkerRetentionDays), e.opts.Location)
	n, err := e.markers.Purge(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("purging markers before %s: %w", before, err)
	}
	if n > 0 {
		e.log.Info(ctx, "purged old markers", "count", n, "before", string(before))
	}
	return n, nil
}

// claim registers a as the in-flight attempt for its person. It fails when
// another attempt for the same person is still running.
func (e *Engine) claim(a *attempt) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.active[a.key]; busy {
		return false
	}
	e.active[a.key] = a
	return true
}

func (e *Engine) release(a *attempt) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active[a.key] == a {
		delete(e.active, a.key)
	}
}

func (e *Engine) inFlight(personID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, busy := e.active[models.IdentityKey(personID)]
	return busy
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.opts.RequestTimeout)
}

func (e *Engine) String() string {
	return fmt.Sprintf("engine(site=%v radius=%.0fm cutoff=%s tz=%s)", e.opts.Site, e.opts.RadiusMeters, e.opts.Cutoff, e.opts.Location)
}
