package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/models"
)

const (
	sheetRecords = "kehadiran"
	sheetRoster  = "guru"

	// plainAck is the text reply of older script deployments.
	plainAck = "Success"
)

// record sheet columns
const (
	colName = iota
	colStatus
	colClock
	colDate
	colLocation
	colDistance
	colLateness
)

// appendRequest is the POST body understood by the ledger script.
type appendRequest struct {
	Sheet    string `json:"sheet"`
	Action   string `json:"action"`
	Name     string `json:"nama"`
	Status   string `json:"status"`
	Clock    string `json:"jam"`
	Date     string `json:"tanggal"`
	Location string `json:"lokasi"`
	Distance *int   `json:"jarak"`
	Lateness int    `json:"terlambat"`
}

type appendResponse struct {
	OK    *bool  `json:"ok"`
	Error string `json:"error"`
}

func encodeAppend(rec models.CheckIn, loc *time.Location) appendRequest {
	return appendRequest{
		Sheet:    sheetRecords,
		Action:   "append",
		Name:     rec.PersonID,
		Status:   rec.Status.Wire(),
		Clock:    rec.SubmittedAt.In(loc).Format("15:04:05"),
		Date:     string(rec.Date),
		Location: rec.LocationDescription,
		Distance: rec.DistanceFromSiteMeters,
		Lateness: rec.LatenessMinutes,
	}
}

func decodeRows(body []byte) ([][]any, error) {
	var rows [][]any
	dec := json.NewDecoder(bytes.NewReader(body))
	// keeps long employee numbers exact
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decoding ledger rows: %w", err)
	}
	return rows, nil
}

// dropHeader removes the header row. Detection is by content, not position, so
// a server-side filtered response without a header loses nothing.
func dropHeader(rows [][]any, first string) [][]any {
	if len(rows) > 0 && len(rows[0]) > 0 && strings.EqualFold(strings.TrimSpace(cellString(rows[0][0])), first) {
		return rows[1:]
	}
	return rows
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func cellInt(row []any, i int) (int, bool) {
	if i >= len(row) {
		return 0, false
	}
	switch x := row[i].(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return int(math.Round(f)), true
	case float64:
		return int(math.Round(x)), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// normalizeDate turns a sheet date cell into a civil day in loc. Sheets
// serializes date cells as UTC timestamps of local midnight, so converting to
// the site zone recovers the intended day.
func normalizeDate(v string, loc *time.Location) (models.Date, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("empty date")
	}
	if strings.Contains(v, "T") {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return "", fmt.Errorf("invalid timestamp %q: %w", v, err)
		}
		return models.DateOf(t, loc), nil
	}
	if len(v) > 10 {
		v = v[:10]
	}
	return models.ParseDate(v)
}

// parseClock accepts "07:29", "07:29:05", the id-ID "07.29.05" and Sheets'
// timestamp form for time-only cells.
func parseClock(v string, loc *time.Location) (h, m, s int, ok bool) {
	v = strings.TrimSpace(v)
	if strings.Contains(v, "T") {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return 0, 0, 0, false
		}
		t = t.In(loc)
		return t.Hour(), t.Minute(), t.Second(), true
	}
	v = strings.ReplaceAll(v, ".", ":")
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Hour(), t.Minute(), t.Second(), true
		}
	}
	return 0, 0, 0, false
}

func decodeRecord(row []any, loc *time.Location) (models.CheckIn, error) {
	if len(row) <= colDate {
		return models.CheckIn{}, fmt.Errorf("short row: %d cells", len(row))
	}
	name := strings.TrimSpace(cellString(row[colName]))
	if name == "" {
		return models.CheckIn{}, fmt.Errorf("row without name")
	}

	raw := strings.TrimSpace(cellString(row[colStatus]))
	status, err := models.ParseStatus(raw)
	if err != nil {
		status = models.StatusUnknown
	}
	rec := models.CheckIn{PersonID: name, Status: status, RawStatus: raw}

	// On a bad date cell the partial record is still returned: the row
	// belongs to someone even though its day is unknown.
	day, err := normalizeDate(cellString(row[colDate]), loc)
	if err != nil {
		return rec, err
	}
	midnight, err := day.Time(loc)
	if err != nil {
		return rec, err
	}
	rec.Date = day
	rec.SubmittedAt = midnight
	if h, m, s, ok := parseClock(cellString(row[colClock]), loc); ok {
		rec.SubmittedAt = midnight.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
	}
	if len(row) > colLocation {
		rec.LocationDescription = cellString(row[colLocation])
	}
	if d, ok := cellInt(row, colDistance); ok {
		rec.DistanceFromSiteMeters = &d
	}
	if l, ok := cellInt(row, colLateness); ok {
		rec.LatenessMinutes = l
	}
	return rec, nil
}

func decodePerson(row []any) (models.Person, bool) {
	if len(row) == 0 {
		return models.Person{}, false
	}
	name := strings.TrimSpace(cellString(row[0]))
	if name == "" {
		return models.Person{}, false
	}
	p := models.Person{ID: name, DisplayName: name}
	if len(row) > 1 {
		p.EmployeeNumber = strings.TrimSpace(cellString(row[1]))
	}
	if len(row) > 2 {
		p.Position = strings.TrimSpace(cellString(row[2]))
	}
	if len(row) > 3 {
		p.EmploymentStatus = strings.TrimSpace(cellString(row[3]))
	}
	return p, true
}
