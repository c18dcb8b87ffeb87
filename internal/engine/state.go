package engine

import (
	"context"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/logging"
	"github.com/dmitrijs2005/attendkeeper/internal/models"
)

// State is a step of a submission attempt.
type State int

const (
	StateIdle State = iota
	StateAcquiringContext
	StateCheckingDuplicate
	StateSubmitting
	StateReconciling
	StateCommitted
	StateRejected
	StateFailed
)

var stateNames = [...]string{
	StateIdle:              "Idle",
	StateAcquiringContext:  "AcquiringContext",
	StateCheckingDuplicate: "CheckingDuplicate",
	StateSubmitting:        "Submitting",
	StateReconciling:       "Reconciling",
	StateCommitted:         "Committed",
	StateRejected:          "Rejected",
	StateFailed:            "Failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Terminal reports whether no further transition can follow.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRejected || s == StateFailed
}

// Warning codes attached to a Result. None of them prevents a commit.
const (
	WarningOutOfRange     = "out_of_range"
	WarningReconciliation = "reconciliation_pending"
	WarningConsistencyGap = "consistency_gap"
)

type Warning struct {
	Code    string
	Message string
}

// Candidate holds the caller-supplied fields of a check-in.
type Candidate struct {
	// Status accepts the ledger value ("Hadir") or the short name ("present").
	Status              string
	LocationDescription string
	// Coordinates, when set, is used instead of asking the geolocation provider.
	Coordinates *models.Coordinates
}

// Result is the terminal outcome of one attempt.
//
// CheckIn is the record as submitted (or as far as it was built). Err is a
// *common.SubmissionError for Rejected and Failed outcomes.
type Result struct {
	AttemptID   string
	PersonID    string
	State       State
	CheckIn     models.CheckIn
	Warnings    []Warning
	Err         error
	Transitions []State
}

func (r *Result) Committed() bool {
	return r.State == StateCommitted
}

// HasWarning reports whether a warning with code was attached.
func (r *Result) HasWarning(code string) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// attempt is the in-memory state of one submission; it is dropped once a
// terminal state is reached.
type attempt struct {
	id        string
	personID  string
	key       string
	state     State
	startedAt time.Time
	record    models.CheckIn
	warnings  []Warning
	history   []State
	log       logging.Logger
}

func (a *attempt) transition(ctx context.Context, to State) {
	a.log.Debug(ctx, "attempt transition", "from", a.state.String(), "to", to.String())
	a.state = to
	a.history = append(a.history, to)
}

func (a *attempt) warn(code, msg string) {
	a.warnings = append(a.warnings, Warning{Code: code, Message: msg})
}

func (a *attempt) result(err error) *Result {
	return &Result{
		AttemptID:   a.id,
		PersonID:    a.personID,
		State:       a.state,
		CheckIn:     a.record,
		Warnings:    a.warnings,
		Err:         err,
		Transitions: a.history,
	}
}
