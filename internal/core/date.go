package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidClock = errors.New("invalid time")
)

// Date is a timezone-naive calendar date. Notes carry plain dates; monthly
// filtering compares year and month only, never full timestamps.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate creates a Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses a "YYYY-MM-DD" string into a Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// IsZero returns true if the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be empty")
	}
	if d.Month < time.January || d.Month > time.December {
		return ErrInvalidDate
	}
	if d.Day < 1 || d.Day > daysIn(d.Year, d.Month) {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as "YYYY-MM-DD".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Clock is a wall-clock time with minute resolution, stored as minutes
// since midnight.
type Clock struct {
	Minutes int
}

// ParseClock parses a "HH:MM" string into a Clock.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock{Minutes: h*60 + m}, nil
}

// String formats the clock as "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Minutes/60, c.Minutes%60)
}

// Duration returns the hours between start and end. An end earlier than the
// start denotes a shift crossing midnight and wraps by 24 hours, so the
// result is always in [0, 24).
func Duration(start, end Clock) float64 {
	minutes := end.Minutes - start.Minutes
	if minutes < 0 {
		minutes += 24 * 60
	}
	return float64(minutes) / 60.0
}
