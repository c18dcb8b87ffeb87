package engine

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/common"
	"github.com/dmitrijs2005/attendkeeper/internal/geolocation"
	"github.com/dmitrijs2005/attendkeeper/internal/lateness"
	"github.com/dmitrijs2005/attendkeeper/internal/ledger"
	"github.com/dmitrijs2005/attendkeeper/internal/models"
	"github.com/dmitrijs2005/attendkeeper/internal/repositories/markers"
	"github.com/dmitrijs2005/attendkeeper/internal/storage"
	"github.com/stretchr/testify/require"
)

var (
	wib  = time.FixedZone("WIB", 7*60*60)
	site = models.Coordinates{Lat: -6.2088, Lon: 106.8456}
)

func at(hour, minute int) time.Time {
	return time.Date(2026, time.October, 15, hour, minute, 0, 0, wib)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func openDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	db, err := storage.InitDatabase(context.Background(), filepath.Join(t.TempDir(), name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMarkers(t *testing.T) *markers.SQLiteRepository {
	t.Helper()
	return markers.NewSQLiteRepository(openDB(t, "markers.db"))
}

func testOptions(clk *clock) Options {
	return Options{
		Site:             site,
		RadiusMeters:     100,
		Location:         wib,
		Cutoff:           lateness.Cutoff{Hour: 7, Minute: 30},
		LocationTimeout:  200 * time.Millisecond,
		RequestTimeout:   2 * time.Second,
		RefreshInterval:  10 * time.Millisecond,
		ReconcileRetries: 5,
		ReconcileBackoff: 5 * time.Millisecond,
		Now:              clk.Now,
	}
}

func newEngine(t *testing.T, deps Deps, opts Options) *Engine {
	t.Helper()
	if deps.Markers == nil {
		deps.Markers = newMarkers(t)
	}
	if deps.Geolocation == nil {
		deps.Geolocation = geolocation.Static{Fix: models.Fix{Coordinates: site, Accuracy: 10}}
	}
	e, err := New(deps, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// newSheetLedger serves the ledger script from h.
func newSheetLedger(t *testing.T, h http.HandlerFunc) *ledger.HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := ledger.NewHTTPClient(context.Background(), ledger.HTTPOptions{
		Endpoint: srv.URL + "/exec",
		Timeout:  2 * time.Second,
		Location: wib,
	})
	require.NoError(t, err)
	return c
}

func present() Candidate {
	return Candidate{Status: "Hadir", LocationDescription: "Gerbang utama"}
}

func submissionError(t *testing.T, err error) *common.SubmissionError {
	t.Helper()
	var se *common.SubmissionError
	require.True(t, errors.As(err, &se), "expected *common.SubmissionError, got %v", err)
	return se
}

func record(person string, status models.Status, submittedAt time.Time) models.CheckIn {
	return models.CheckIn{
		PersonID:    person,
		Date:        models.DateOf(submittedAt, wib),
		SubmittedAt: submittedAt,
		Status:      status,
		RawStatus:   status.Wire(),
	}
}

// flakyLedger hides any ConditionalAppender of the wrapped client and can
// fail reads and appends on demand.
type flakyLedger struct {
	ledger.Client

	mu        sync.Mutex
	fetchErr  error
	appendErr error
	// persist makes a failing append still land, like a lost acknowledgment.
	persist bool
	fetches int
	appends int
}

func (f *flakyLedger) setFetchErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr = err
}

func (f *flakyLedger) setAppendErr(err error, persist bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendErr, f.persist = err, persist
}

func (f *flakyLedger) counts() (fetches, appends int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches, f.appends
}

func (f *flakyLedger) FetchRecords(ctx context.Context, r ledger.DateRange) ([]models.CheckIn, error) {
	f.mu.Lock()
	f.fetches++
	err := f.fetchErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Client.FetchRecords(ctx, r)
}

func (f *flakyLedger) AppendRecord(ctx context.Context, rec models.CheckIn) error {
	f.mu.Lock()
	f.appends++
	err, persist := f.appendErr, f.persist
	f.mu.Unlock()
	if err != nil {
		if persist {
			_ = f.Client.AppendRecord(ctx, rec)
		}
		return err
	}
	return f.Client.AppendRecord(ctx, rec)
}

// laggingLedger accepts appends but only shows them to readers after flush.
type laggingLedger struct {
	*ledger.Memory

	mu      sync.Mutex
	pending []models.CheckIn
}

func (l *laggingLedger) AppendRecord(ctx context.Context, rec models.CheckIn) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, rec)
	return nil
}

func (l *laggingLedger) AppendIfAbsent(ctx context.Context, rec models.CheckIn) (bool, error) {
	return true, l.AppendRecord(ctx, rec)
}

func (l *laggingLedger) flush(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range l.pending {
		_ = l.Memory.AppendRecord(ctx, rec)
	}
	l.pending = nil
}

// flakyMarkers fails the first n Mark calls.
type flakyMarkers struct {
	markers.Repository

	mu       sync.Mutex
	failures int
}

func (m *flakyMarkers) Mark(ctx context.Context, personKey, personID string, day models.Date) error {
	m.mu.Lock()
	fail := m.failures > 0
	if fail {
		m.failures--
	}
	m.mu.Unlock()
	if fail {
		return errors.New("disk I/O error")
	}
	return m.Repository.Mark(ctx, personKey, personID, day)
}

// barrier holds every device at the append until all of them have passed
// their duplicate check.
type barrier struct {
	mem     *ledger.Memory
	checked sync.WaitGroup
	landed  sync.WaitGroup
}

func newBarrier(mem *ledger.Memory, devices int) *barrier {
	b := &barrier{mem: mem}
	b.checked.Add(devices)
	b.landed.Add(devices)
	return b
}

// dumbDevice appends without any duplicate check, then waits for the other
// devices to append too.
type dumbDevice struct {
	ledger.Client
	b *barrier
}

func (d dumbDevice) AppendRecord(ctx context.Context, rec models.CheckIn) error {
	d.b.checked.Done()
	d.b.checked.Wait()
	err := d.b.mem.AppendRecord(ctx, rec)
	d.b.landed.Done()
	d.b.landed.Wait()
	return err
}

// conditionalDevice uses the ledger's atomic append.
type conditionalDevice struct {
	ledger.Client
	b *barrier
}

func (d conditionalDevice) AppendIfAbsent(ctx context.Context, rec models.CheckIn) (bool, error) {
	d.b.checked.Done()
	d.b.checked.Wait()
	return d.b.mem.AppendIfAbsent(ctx, rec)
}

// blockingLedger parks the first append until release is closed.
type blockingLedger struct {
	ledger.Client

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newBlockingLedger(c ledger.Client) *blockingLedger {
	return &blockingLedger{Client: c, entered: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingLedger) AppendRecord(ctx context.Context, rec models.CheckIn) error {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.entered)
		<-b.release
	}
	return b.Client.AppendRecord(ctx, rec)
}
