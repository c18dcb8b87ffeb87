package models

import "time"

// RosterState is the submission state of one roster member for today.
type RosterState struct {
	Person    Person
	Submitted bool
	Status    Status
}

// Conflict reports more than one committed record for the same person and day.
type Conflict struct {
	Key     Key
	Records []CheckIn
}

// TodaySnapshot is the read-only view handed to the presentation layer.
//
// Confirmed records come from the last remote fetch; Provisional records were
// acknowledged by the ledger but have not yet been observed in a fetch.
// Unreadable counts ledger rows whose date could not be read; they are left
// out of Counts and Confirmed.
type TodaySnapshot struct {
	Date         Date
	Counts       map[Status]int
	Unrecognized int
	Unreadable   int
	PresentCount int
	OtherCount   int
	Confirmed    []CheckIn
	Provisional  []CheckIn
	Roster       []RosterState
	Conflicts    []Conflict
	FetchedAt    time.Time
	Stale        bool
}

// MonthSummary counts statuses over one calendar month. Undated rows are
// counted in Unreadable only.
type MonthSummary struct {
	Year         int
	Month        time.Month
	Counts       map[Status]int
	Unrecognized int
	Unreadable   int
	Records      []CheckIn
}
