package ledger

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wib = time.FixedZone("WIB", 7*60*60)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want models.Date
	}{
		{"plain date", "2026-10-15", "2026-10-15"},
		{"date with time suffix", "2026-10-15 07:29:00", "2026-10-15"},
		// local midnight of the 15th serialized as UTC
		{"sheet timestamp", "2026-10-14T17:00:00.000Z", "2026-10-15"},
		{"offset timestamp", "2026-10-15T06:00:00+07:00", "2026-10-15"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalizeDate(tc.in, wib)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := normalizeDate("", wib)
	require.Error(t, err)
	_, err = normalizeDate("15/10/2026", wib)
	require.Error(t, err)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		h, m, s int
	}{
		{"07:29", 7, 29, 0},
		{"07:29:05", 7, 29, 5},
		{"07.29.05", 7, 29, 5},
		{"1899-12-30T00:22:00.000Z", 7, 22, 0},
	}
	for _, tc := range tests {
		h, m, s, ok := parseClock(tc.in, wib)
		require.True(t, ok, tc.in)
		assert.Equal(t, []int{tc.h, tc.m, tc.s}, []int{h, m, s}, tc.in)
	}

	_, _, _, ok := parseClock("pagi", wib)
	assert.False(t, ok)
}

func TestDecodeRecord(t *testing.T) {
	rows, err := decodeRows([]byte(`[
		["nama","status","jam","tanggal","lokasi","jarak","terlambat"],
		["Budi Santoso","Hadir","07:45:10","2026-10-15","Gedung A",42,15],
		["Ani","Cuti","08:00","2026-10-15","Rumah"],
		["","Hadir","07:00","2026-10-15","x"],
		["Short","Hadir"]
	]`))
	require.NoError(t, err)
	rows = dropHeader(rows, "nama")
	require.Len(t, rows, 4)

	rec, err := decodeRecord(rows[0], wib)
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", rec.PersonID)
	assert.Equal(t, models.StatusPresent, rec.Status)
	assert.Equal(t, models.Date("2026-10-15"), rec.Date)
	assert.Equal(t, time.Date(2026, 10, 15, 7, 45, 10, 0, wib).Unix(), rec.SubmittedAt.Unix())
	assert.Equal(t, "Gedung A", rec.LocationDescription)
	require.NotNil(t, rec.DistanceFromSiteMeters)
	assert.Equal(t, 42, *rec.DistanceFromSiteMeters)
	assert.Equal(t, 15, rec.LatenessMinutes)

	rec, err = decodeRecord(rows[1], wib)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnknown, rec.Status)
	assert.Equal(t, "Cuti", rec.RawStatus)
	assert.Nil(t, rec.DistanceFromSiteMeters)

	_, err = decodeRecord(rows[2], wib)
	require.Error(t, err)
	_, err = decodeRecord(rows[3], wib)
	require.Error(t, err)
}

func TestDropHeader_KeepsHeaderlessRows(t *testing.T) {
	rows := [][]any{{"Ani", "Hadir", "07:00", "2026-10-15"}}
	assert.Len(t, dropHeader(rows, "nama"), 1)
	assert.Empty(t, dropHeader(nil, "nama"))
}

func TestDecodePerson_KeepsLongEmployeeNumber(t *testing.T) {
	rows, err := decodeRows([]byte(`[["nama","nip","jabatan","status"],["Ani",198901162023211009,"Guru","PNS"]]`))
	require.NoError(t, err)

	p, ok := decodePerson(dropHeader(rows, "nama")[0])
	require.True(t, ok)
	assert.Equal(t, models.Person{
		ID:               "Ani",
		DisplayName:      "Ani",
		EmployeeNumber:   "198901162023211009",
		Position:         "Guru",
		EmploymentStatus: "PNS",
	}, p)
}

func TestEncodeAppend(t *testing.T) {
	d := 120
	rec := models.CheckIn{
		PersonID:               "Budi",
		Date:                   "2026-10-15",
		SubmittedAt:            time.Date(2026, 10, 15, 0, 29, 0, 0, time.UTC),
		Status:                 models.StatusOffSiteDuty,
		LocationDescription:    "Dinas kota",
		DistanceFromSiteMeters: &d,
	}
	req := encodeAppend(rec, wib)
	assert.Equal(t, "kehadiran", req.Sheet)
	assert.Equal(t, "append", req.Action)
	assert.Equal(t, "Dinas Luar", req.Status)
	assert.Equal(t, "07:29:00", req.Clock)
	assert.Equal(t, "2026-10-15", req.Date)
	assert.Equal(t, &d, req.Distance)
}
