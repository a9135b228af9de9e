// Package worker runs the scheduled lifecycle and attendance jobs as
// long-lived goroutines with drift-free wall-clock alignment.
package worker

import (
	"fmt"
	"time"
)

// Clock abstracts the time source so schedules can be tested without
// sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// TimeOfDay is a wall-clock trigger time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" in 24-hour form.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	var tod TimeOfDay
	if _, err := fmt.Sscanf(raw, "%d:%d", &tod.Hour, &tod.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("parse trigger time %q: %w", raw, err)
	}
	if tod.Hour < 0 || tod.Hour > 23 || tod.Minute < 0 || tod.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("trigger time %q out of range", raw)
	}
	return tod, nil
}

// Schedule yields the next run instant strictly after now. Recomputing from
// the current time after every run keeps the series aligned to the wall
// clock instead of accumulating drift from run durations.
type Schedule interface {
	Next(now time.Time) time.Time
}

// DailySchedule fires once a day at a fixed local time.
type DailySchedule struct {
	At TimeOfDay
}

// Next returns today's occurrence if still ahead, otherwise tomorrow's.
func (s DailySchedule) Next(now time.Time) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), s.At.Hour, s.At.Minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// IntervalSchedule fires at a fixed period.
type IntervalSchedule struct {
	Every time.Duration
}

// Next returns now plus the period.
func (s IntervalSchedule) Next(now time.Time) time.Time {
	return now.Add(s.Every)
}
