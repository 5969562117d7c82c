package leave

import (
	"encoding/json"
	"time"
)

// =============================================================================
// DATE - Calendar day (the only time granularity the core cares about)
// =============================================================================

// DateFormat is the textual form used everywhere: storage, API, event log.
const DateFormat = "2006-01-02"

// Date is a single calendar day. The zero value is "no date".
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

// DateOf truncates a time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Comparison
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }
func (d Date) IsZero() bool           { return d.t.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysSince returns the whole-day gap between d and other (positive when d is later).
func (d Date) DaysSince(other Date) int {
	return int(d.t.Sub(other.t).Hours() / 24)
}

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }

func (d Date) String() string { return d.t.Format(DateFormat) }

// JSON form is the YYYY-MM-DD string; the zero Date round-trips as "".
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// RANGE EXPANSION - Pure, I/O-free, unit-testable in isolation
// =============================================================================

// ExpandDateRange returns every day in [start, end] inclusive, in order.
// An inverted range (end before start) clamps to the single start day.
func ExpandDateRange(start, end Date) []Date {
	if end.Before(start) {
		end = start
	}
	var out []Date
	for cur := start; !cur.After(end); cur = cur.AddDays(1) {
		out = append(out, cur)
	}
	return out
}

// ExpandDateStrings is ExpandDateRange over textual dates. An empty or
// unparseable end falls back to the single start day, matching form input
// that omits the range.
func ExpandDateStrings(start, end string) ([]Date, error) {
	s, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	if end == "" {
		return []Date{s}, nil
	}
	e, err := ParseDate(end)
	if err != nil {
		return []Date{s}, nil
	}
	return ExpandDateRange(s, e), nil
}

// YearsOfServiceAt returns whole years of service as of a given day.
// A nil seniority date means no credited service.
func YearsOfServiceAt(seniority *Date, at Date) int {
	if seniority == nil || seniority.IsZero() {
		return 0
	}
	years := at.Year() - seniority.Year()
	if at.Month() < seniority.Month() ||
		(at.Month() == seniority.Month() && at.Day() < seniority.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
