package ledger

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/attendkeeper/internal/models"
)

// Memory is an in-process ledger. AppendRecord behaves like the remote
// sheet: a plain append with no duplicate check. AppendIfAbsent is atomic.
type Memory struct {
	mu      sync.Mutex
	records []models.CheckIn
	roster  []models.Person
}

var (
	_ Client              = (*Memory)(nil)
	_ ConditionalAppender = (*Memory)(nil)
	_ RosterSource        = (*Memory)(nil)
)

func NewMemory(roster ...models.Person) *Memory {
	return &Memory{roster: roster}
}

func (m *Memory) FetchRecords(ctx context.Context, r DateRange) ([]models.CheckIn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []models.CheckIn{}
	for _, rec := range m.records {
		if r.Contains(rec.Date) {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (m *Memory) AppendRecord(ctx context.Context, rec models.CheckIn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *Memory) AppendIfAbsent(ctx context.Context, rec models.CheckIn) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := models.IdentityKey(rec.PersonID)
	for _, existing := range m.records {
		if existing.Date == rec.Date && models.IdentityKey(existing.PersonID) == key {
			return false, nil
		}
	}
	m.records = append(m.records, rec)
	return true, nil
}

func (m *Memory) FetchRoster(ctx context.Context) ([]models.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Person(nil), m.roster...), nil
}

// Records returns a copy of everything appended so far.
func (m *Memory) Records() []models.CheckIn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CheckIn(nil), m.records...)
}

// Duplicates groups records sharing a person and day.
func (m *Memory) Duplicates() []models.Conflict {
	return FindConflicts(m.Records())
}

// FindConflicts returns every (person, day) with more than one record, in
// order of first appearance.
func FindConflicts(records []models.CheckIn) []models.Conflict {
	groups := map[models.Key][]models.CheckIn{}
	var order []models.Key
	for _, rec := range records {
		if rec.Undated() {
			continue
		}
		k := models.Key{PersonID: models.IdentityKey(rec.PersonID), Date: rec.Date}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], rec)
	}

	var conflicts []models.Conflict
	for _, k := range order {
		if len(groups[k]) > 1 {
			conflicts = append(conflicts, models.Conflict{Key: k, Records: groups[k]})
		}
	}
	return conflicts
}
