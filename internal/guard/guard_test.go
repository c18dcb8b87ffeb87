package guard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/attendkeeper/internal/ledger"
	"github.com/dmitrijs2005/attendkeeper/internal/models"
	"github.com/dmitrijs2005/attendkeeper/internal/repositories/markers"
	"github.com/dmitrijs2005/attendkeeper/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const today = models.Date("2026-10-15")

func newMarkers(t *testing.T) *markers.SQLiteRepository {
	t.Helper()
	db, err := storage.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "guard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return markers.NewSQLiteRepository(db)
}

type countingLedger struct {
	ledger.Client
	fetches int
	err     error
}

func (c *countingLedger) FetchRecords(ctx context.Context, r ledger.DateRange) ([]models.CheckIn, error) {
	c.fetches++
	if c.err != nil {
		return nil, c.err
	}
	return c.Client.FetchRecords(ctx, r)
}

func TestCheck_AdmissibleWhenNothingRecorded(t *testing.T) {
	l := &countingLedger{Client: ledger.NewMemory()}
	g := New(newMarkers(t), l)

	v, err := g.Check(context.Background(), "Ani", today)
	require.NoError(t, err)
	assert.True(t, v.Admissible)
	assert.Equal(t, 1, l.fetches)
	assert.False(t, v.FetchedAt.IsZero())
}

func TestCheck_LocalMarkerRejectsWithoutFetching(t *testing.T) {
	m := newMarkers(t)
	require.NoError(t, m.Mark(context.Background(), "ani", "Ani", today))

	l := &countingLedger{Client: ledger.NewMemory()}
	v, err := New(m, l).Check(context.Background(), "  ANI ", today)
	require.NoError(t, err)
	assert.False(t, v.Admissible)
	assert.Equal(t, ReasonLocalMarker, v.Reason)
	assert.Equal(t, 0, l.fetches)
}

func TestCheck_RemoteRecordRejects_NormalizedIdentity(t *testing.T) {
	mem := ledger.NewMemory()
	require.NoError(t, mem.AppendRecord(context.Background(), models.CheckIn{PersonID: "Budi  Santoso", Date: today}))

	g := New(newMarkers(t), mem)
	ok, err := g.IsAdmissible(context.Background(), "budi santoso", today)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := g.Check(context.Background(), "budi santoso", today)
	require.NoError(t, err)
	assert.Equal(t, ReasonRemoteRecord, v.Reason)
	assert.Len(t, v.Records, 1)
}

func TestCheck_OtherDayDoesNotBlock(t *testing.T) {
	mem := ledger.NewMemory()
	require.NoError(t, mem.AppendRecord(context.Background(), models.CheckIn{PersonID: "Ani", Date: "2026-10-14"}))
	m := newMarkers(t)
	require.NoError(t, m.Mark(context.Background(), "ani", "Ani", "2026-10-14"))

	ok, err := New(m, mem).IsAdmissible(context.Background(), "Ani", today)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheck_FetchFailureIsAnError(t *testing.T) {
	l := &countingLedger{Client: ledger.NewMemory(), err: ledger.ErrUnavailable}
	_, err := New(newMarkers(t), l).Check(context.Background(), "Ani", today)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrUnavailable))
}

func TestCheck_EveryCallRefetches(t *testing.T) {
	l := &countingLedger{Client: ledger.NewMemory()}
	g := New(newMarkers(t), l)
	for i := 0; i < 3; i++ {
		_, err := g.Check(context.Background(), "Ani", today)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, l.fetches)
}

type staticLedger struct {
	ledger.Client
	records []models.CheckIn
}

func (s staticLedger) FetchRecords(context.Context, ledger.DateRange) ([]models.CheckIn, error) {
	return s.records, nil
}

func TestCheck_UndatedRecordBlocksOnlyThatPerson(t *testing.T) {
	l := staticLedger{records: []models.CheckIn{{PersonID: "Ani", RawStatus: "Hadir"}}}
	g := New(newMarkers(t), l)

	v, err := g.Check(context.Background(), " ANI", today)
	require.NoError(t, err)
	assert.False(t, v.Admissible)
	assert.Equal(t, ReasonUnreadableRecord, v.Reason)

	v, err = g.Check(context.Background(), "Budi", today)
	require.NoError(t, err)
	assert.True(t, v.Admissible)
}
