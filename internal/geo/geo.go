// Package geo computes great-circle distances and geofence verdicts.
package geo

import (
	"math"

	"github.com/dmitrijs2005/attendkeeper/internal/models"
)

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6371000.0

// Verdict is the outcome of a geofence check. Both fields are nil when the
// observed location is unknown; callers must treat that as inconclusive.
type Verdict struct {
	DistanceMeters *int
	WithinRange    *bool
}

// Known reports whether a distance could be computed.
func (v Verdict) Known() bool {
	return v.DistanceMeters != nil
}

// OutOfRange is true only for a known distance beyond the radius.
func (v Verdict) OutOfRange() bool {
	return v.WithinRange != nil && !*v.WithinRange
}

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b models.Coordinates) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h slightly above 1 for antipodal points
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Validate checks observed against the site geofence. A nil observed yields
// an unknown verdict, not an error.
func Validate(observed *models.Coordinates, site models.Coordinates, radiusMeters float64) Verdict {
	if observed == nil {
		return Verdict{}
	}
	d := int(math.Round(Distance(*observed, site)))
	within := float64(d) <= radiusMeters
	return Verdict{DistanceMeters: &d, WithinRange: &within}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
