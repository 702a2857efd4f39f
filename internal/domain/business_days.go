package domain

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the ISO-8601 calendar date layout used at every boundary
const DateLayout = "2006-01-02"

// NormalizeDate truncates t to midnight UTC so that dates compare by calendar day only
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD)
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want format %s: %w", s, DateLayout, err)
	}
	return NormalizeDate(t), nil
}

// BusinessDays is a deduplicated set of calendar dates
type BusinessDays struct {
	days map[time.Time]struct{}
}

// NewBusinessDays builds a set from the given dates, normalizing each to a calendar day
func NewBusinessDays(dates ...time.Time) BusinessDays {
	days := make(map[time.Time]struct{}, len(dates))
	for _, d := range dates {
		days[NormalizeDate(d)] = struct{}{}
	}
	return BusinessDays{days: days}
}

// Difference returns the dates present in b but absent from other
func (b BusinessDays) Difference(other BusinessDays) BusinessDays {
	result := make(map[time.Time]struct{}, len(b.days))
	for d := range b.days {
		if !other.Contains(d) {
			result[d] = struct{}{}
		}
	}
	return BusinessDays{days: result}
}

// Contains reports whether the calendar day of d is in the set
func (b BusinessDays) Contains(d time.Time) bool {
	_, ok := b.days[NormalizeDate(d)]
	return ok
}

// Len returns the number of distinct dates
func (b BusinessDays) Len() int {
	return len(b.days)
}

// IsEmpty reports whether the set holds no dates
func (b BusinessDays) IsEmpty() bool {
	return len(b.days) == 0
}

// Sorted returns the dates in ascending order
func (b BusinessDays) Sorted() []time.Time {
	out := make([]time.Time, 0, len(b.days))
	for d := range b.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Before(out[j])
	})
	return out
}
