package models

import (
	"fmt"
	"strings"
)

// Status is the closed set of check-in kinds accepted by the engine.
type Status int

const (
	StatusUnknown Status = iota
	StatusPresent
	StatusLeave
	StatusSick
	StatusOffSiteDuty
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusPresent, StatusLeave, StatusSick, StatusOffSiteDuty}

var statusWire = map[Status]string{
	StatusPresent:     "Hadir",
	StatusLeave:       "Izin",
	StatusSick:        "Sakit",
	StatusOffSiteDuty: "Dinas Luar",
}

var statusNames = map[Status]string{
	StatusPresent:     "present",
	StatusLeave:       "leave",
	StatusSick:        "sick",
	StatusOffSiteDuty: "offsite",
}

// String returns the short english name used in logs and flags.
func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// Wire returns the value stored in the remote ledger.
func (s Status) Wire() string {
	return statusWire[s]
}

// Valid reports whether s is one of the four accepted statuses.
func (s Status) Valid() bool {
	_, ok := statusWire[s]
	return ok
}

// ParseStatus accepts either the ledger value ("Hadir") or the short name ("present"),
// case-insensitively.
func ParseStatus(v string) (Status, error) {
	v = strings.ToLower(strings.Join(strings.Fields(v), " "))
	for s, w := range statusWire {
		if v == strings.ToLower(w) || v == statusNames[s] {
			return s, nil
		}
	}
	return StatusUnknown, fmt.Errorf("unrecognized status %q", v)
}
