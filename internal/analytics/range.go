package analytics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const day = 24 * time.Hour

// Range presets
const (
	Preset7d     = "7d"
	Preset30d    = "30d"
	Preset90d    = "90d"
	PresetCustom = "custom"
)

// MaxCustomDays bounds a custom range
const MaxCustomDays = 366

var (
	ErrInvalidPreset = errors.New("unknown range preset")
	ErrInvalidRange  = errors.New("invalid date range")
)

// Range is a half-open interval [From, To) of whole UTC days
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ResolveRange turns a preset into a range ending after today. Custom ranges parse
// from and to leniently and include the whole "to" day.
func ResolveRange(preset, from, to string, now time.Time) (Range, error) {
	end := truncateDay(now).Add(day)

	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", Preset30d:
		return Range{From: end.Add(-30 * day), To: end}, nil
	case Preset7d:
		return Range{From: end.Add(-7 * day), To: end}, nil
	case Preset90d:
		return Range{From: end.Add(-90 * day), To: end}, nil
	case PresetCustom:
		start, err := dateparse.ParseIn(strings.TrimSpace(from), time.UTC)
		if err != nil {
			return Range{}, fmt.Errorf("%w: from: %v", ErrInvalidRange, err)
		}
		last, err := dateparse.ParseIn(strings.TrimSpace(to), time.UTC)
		if err != nil {
			return Range{}, fmt.Errorf("%w: to: %v", ErrInvalidRange, err)
		}

		r := Range{From: truncateDay(start), To: truncateDay(last).Add(day)}
		if days := r.Days(); days < 1 || days > MaxCustomDays {
			return Range{}, fmt.Errorf("%w: must cover 1 to %d days", ErrInvalidRange, MaxCustomDays)
		}
		return r, nil
	default:
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidPreset, preset)
	}
}

// Days is the number of days in the range
func (r Range) Days() int {
	return int(r.To.Sub(r.From) / day)
}

// Previous is the window of the same length right before r
func (r Range) Previous() Range {
	length := r.To.Sub(r.From)
	return Range{From: r.From.Add(-length), To: r.From}
}

// Contains reports whether t falls in [From, To)
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

// DayKeys returns the YYYY-MM-DD label of every day in the range
func (r Range) DayKeys() []string {
	keys := make([]string, 0, r.Days())
	for d := r.From; d.Before(r.To); d = d.Add(day) {
		keys = append(keys, d.Format(time.DateOnly))
	}
	return keys
}

// MonthOf returns the calendar month containing t and the month before it
func MonthOf(t time.Time) (current, previous Range) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	current = Range{From: start, To: start.AddDate(0, 1, 0)}
	previous = Range{From: start.AddDate(0, -1, 0), To: start}
	return current, previous
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
