package domain

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day in a hotel's local calendar, with no time
// component. Inventory cells are keyed by it.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Today returns the calendar date of now as observed in loc.
func Today(now time.Time, loc *time.Location) Date {
	return DateOf(now.In(loc))
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string { return d.Time().Format(dateLayout) }

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) AddDays(n int) Date { return DateOf(d.Time().AddDate(0, 0, n)) }

func (d Date) Before(other Date) bool { return d.Time().Before(other.Time()) }

func (d Date) After(other Date) bool { return other.Before(d) }

// MarshalJSON emits the ISO-8601 day form used on the wire.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Nights returns the number of nights between from (inclusive) and to
// (exclusive). Negative when to precedes from.
func Nights(from, to Date) int {
	return int(to.Time().Sub(from.Time()) / (24 * time.Hour))
}

// DatesIn enumerates every date in [from, to). Empty when the range is
// empty or inverted.
func DatesIn(from, to Date) []Date {
	n := Nights(from, to)
	if n <= 0 {
		return nil
	}
	out := make([]Date, 0, n)
	for d := from; d.Before(to); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}
