package model

import (
    "strings"
    "time"
)

// DateLayout is the wire and storage format of arrival/departure dates.
const DateLayout = "2006-01-02"

// Stay is a half-open range of nights [Arrival, Departure).  Both ends
// are calendar dates normalised to UTC midnight.
type Stay struct {
    Arrival   time.Time
    Departure time.Time
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
    t, err := time.Parse(DateLayout, strings.TrimSpace(s))
    if err != nil {
        return time.Time{}, err
    }
    return t.UTC(), nil
}

// NewStay truncates both ends to UTC calendar dates.
func NewStay(arrival, departure time.Time) Stay {
    return Stay{Arrival: dateOf(arrival), Departure: dateOf(departure)}
}

func dateOf(t time.Time) time.Time {
    u := t.UTC()
    return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Nights returns the number of nights in the stay.  Inverted ranges
// yield a negative count.
func (s Stay) Nights() int {
    return int(s.Departure.Sub(s.Arrival).Hours() / 24)
}

// Valid reports whether the stay covers at least one night.
func (s Stay) Valid() bool {
    return !s.Arrival.IsZero() && !s.Departure.IsZero() && s.Arrival.Before(s.Departure)
}

// Overlaps uses strict inequalities, so a stay that starts on the day
// another ends does not overlap it.
func (s Stay) Overlaps(o Stay) bool {
    return s.Arrival.Before(o.Departure) && s.Departure.After(o.Arrival)
}

// String renders the stay as "YYYY-MM-DD..YYYY-MM-DD".
func (s Stay) String() string {
    return s.Arrival.Format(DateLayout) + ".." + s.Departure.Format(DateLayout)
}
