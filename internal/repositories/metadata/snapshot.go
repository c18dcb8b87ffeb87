package metadata

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/common"
	"github.com/dmitrijs2005/attendkeeper/internal/dbx"
	"github.com/dmitrijs2005/attendkeeper/internal/models"
)

const (
	keyRecords   = "snapshot.records"
	keyFetchedAt = "snapshot.fetched_at"
	keyRoster    = "snapshot.roster"
)

// Snapshot is the last confirmed remote view persisted for offline display.
type Snapshot struct {
	Day       models.Date
	Records   []models.CheckIn
	FetchedAt time.Time
	Roster    []models.Person
}

type cachedRecords struct {
	Day     models.Date      `json:"day"`
	Records []models.CheckIn `json:"records"`
}

// SnapshotCache persists Snapshot values in the metadata table.
type SnapshotCache struct {
	db *sql.DB
}

func NewSnapshotCache(db *sql.DB) *SnapshotCache {
	return &SnapshotCache{db: db}
}

// SaveRecords writes the day's records and their fetch time together.
func (c *SnapshotCache) SaveRecords(ctx context.Context, day models.Date, records []models.CheckIn, fetchedAt time.Time) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := NewSQLiteRepository(tx)
		if err := StoreJSON(ctx, r, keyRecords, cachedRecords{Day: day, Records: records}); err != nil {
			return err
		}
		return StoreJSON(ctx, r, keyFetchedAt, fetchedAt)
	})
}

func (c *SnapshotCache) SaveRoster(ctx context.Context, roster []models.Person) error {
	return StoreJSON(ctx, NewSQLiteRepository(c.db), keyRoster, roster)
}

// Load returns whatever has been cached; missing parts are left empty.
func (c *SnapshotCache) Load(ctx context.Context) (Snapshot, error) {
	r := NewSQLiteRepository(c.db)
	var s Snapshot

	var recs cachedRecords
	if err := LoadJSON(ctx, r, keyRecords, &recs); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return Snapshot{}, err
	}
	s.Day, s.Records = recs.Day, recs.Records

	if err := LoadJSON(ctx, r, keyFetchedAt, &s.FetchedAt); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return Snapshot{}, err
	}
	if err := LoadJSON(ctx, r, keyRoster, &s.Roster); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return Snapshot{}, err
	}
	return s, nil
}
