package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdentityKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Budi Santoso", "budi santoso"},
		{"  budi   SANTOSO ", "budi santoso"},
		{"budi\tsantoso\n", "budi santoso"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, IdentityKey(tc.in), "input %q", tc.in)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"Hadir", StatusPresent},
		{"present", StatusPresent},
		{"izin", StatusLeave},
		{"SAKIT", StatusSick},
		{"Dinas  Luar", StatusOffSiteDuty},
		{"offsite", StatusOffSiteDuty},
	}
	for _, tc := range tests {
		got, err := ParseStatus(tc.in)
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseStatus("Cuti")
	assert.Error(t, err)
	assert.False(t, StatusUnknown.Valid())
	assert.Equal(t, "Dinas Luar", StatusOffSiteDuty.Wire())
}

func TestDateOf_UsesLocation(t *testing.T) {
	wib := time.FixedZone("WIB", 7*60*60)
	// 20:00 UTC on the 14th is already the 15th in WIB
	ts := time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, Date("2026-10-15"), DateOf(ts, wib))
	assert.Equal(t, Date("2026-10-14"), DateOf(ts, time.UTC))

	d, err := ParseDate("2026-10-15")
	assert.NoError(t, err)
	midnight, err := d.Time(wib)
	assert.NoError(t, err)
	assert.Equal(t, 0, midnight.Hour())

	_, err = ParseDate("15/10/2026")
	assert.Error(t, err)
}
