package timetable

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// ClockMinutes is a wall-clock moment expressed as minutes since midnight.
// All time comparison and arithmetic in this package happens in this
// representation; "HH:MM" strings only exist at the wire/display boundary.
type ClockMinutes int

const minutesPerDay = 24 * 60

// ParseClock converts an "HH:MM" string into minutes since midnight.
func ParseClock(s string) (ClockMinutes, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, errors.Wrapf(err, "parsing clock %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, errors.Errorf("clock %q out of range", s)
	}
	return ClockMinutes(h*60 + m), nil
}

// MustParseClock is ParseClock for trusted literals; it panics on error.
func MustParseClock(s string) ClockMinutes {
	m, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m ClockMinutes) Hour() int   { return int(m) / 60 }
func (m ClockMinutes) Minute() int { return int(m) % 60 }

// String formats back to "HH:MM" for display.
func (m ClockMinutes) String() string {
	return fmt.Sprintf("%02d:%02d", m.Hour(), m.Minute())
}

// ClockOf extracts the minute-of-day of t in t's location.
func ClockOf(t time.Time) ClockMinutes {
	return ClockMinutes(t.Hour()*60 + t.Minute())
}

// Weekday is an ISO school weekday: 1=Monday .. 5=Friday.
// Saturday and Sunday carry no schedule and are never represented.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
)

var weekdayNames = map[Weekday]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
}

func (d Weekday) Valid() bool { return Monday <= d && d <= Friday }

func (d Weekday) String() string {
	if s, ok := weekdayNames[d]; ok {
		return s
	}
	return fmt.Sprintf("Weekday(%d)", int(d))
}

// ParseWeekday reads a school day from its 1-based index.
func ParseWeekday(s string) (Weekday, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	d := Weekday(n)
	return d, d.Valid()
}

// NextSchoolDay rolls to the following school day; Friday rolls over to Monday.
func (d Weekday) NextSchoolDay() Weekday {
	if d >= Friday {
		return Monday
	}
	return d + 1
}

// SchoolDayOf maps t's weekday onto the internal 1-5 representation.
// ok is false on Saturday/Sunday.
func SchoolDayOf(t time.Time) (day Weekday, ok bool) {
	switch wd := t.Weekday(); wd {
	case time.Saturday, time.Sunday:
		return 0, false
	default:
		return Weekday(wd), true // time.Monday == 1 .. time.Friday == 5
	}
}

// daysUntil counts calendar days from `from` to the next occurrence of `to`,
// never 0 (same day targets mean a full week ahead).
func daysUntil(from, to Weekday) int {
	diff := (int(to) - int(from) + 7) % 7
	if diff == 0 {
		diff = 7
	}
	return diff
}
