package models

import (
	"time"
)

// Date is a civil calendar day in the site time zone, formatted as YYYY-MM-DD.
type Date string

const dateLayout = "2006-01-02"

// DateOf returns the calendar day of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	return Date(t.In(loc).Format(dateLayout))
}

// ParseDate validates an ISO calendar date.
func ParseDate(v string) (Date, error) {
	if _, err := time.Parse(dateLayout, v); err != nil {
		return "", err
	}
	return Date(v), nil
}

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, string(d), loc)
}

func (d Date) String() string { return string(d) }

// Person is a roster member. ID is the ledger identity (the name in the source sheet).
type Person struct {
	ID               string
	DisplayName      string
	EmployeeNumber   string
	Position         string
	EmploymentStatus string
}

// Coordinates is a WGS84 point in decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Fix is a geolocation reading; Accuracy is in meters.
type Fix struct {
	Coordinates
	Accuracy float64
}

// CheckIn is one attendance record for one person on one day.
//
// DistanceFromSiteMeters is nil when no location fix was available.
type CheckIn struct {
	ID                     string
	PersonID               string
	Date                   Date
	SubmittedAt            time.Time
	Status                 Status
	RawStatus              string
	LocationDescription    string
	DistanceFromSiteMeters *int
	LatenessMinutes        int
}

// Undated reports whether the ledger row behind c had an unreadable date.
func (c CheckIn) Undated() bool { return c.Date == "" }

// Key identifies the dedup unit of a check-in.
type Key struct {
	PersonID string
	Date     Date
}
