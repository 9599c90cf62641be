// ABOUTME: Derived statistics over entries: word counts, day grouping, and writing streaks.
// ABOUTME: Pure functions over entry timestamps, evaluated in the caller's time zone.
package models

import (
	"sort"
	"strings"
	"time"
)

// WordCount counts whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// GroupByDay buckets entries by the calendar day in loc they were created on.
func GroupByDay(entries []Entry, loc *time.Location) map[time.Time][]Entry {
	groups := make(map[time.Time][]Entry)
	for _, e := range entries {
		day := StartOfDay(e.CreatedAt.In(loc))
		groups[day] = append(groups[day], e)
	}
	return groups
}

// EntryDays returns the distinct creation days in loc, most recent first.
func EntryDays(entries []Entry, loc *time.Location) []time.Time {
	groups := GroupByDay(entries, loc)
	days := make([]time.Time, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].After(days[j])
	})
	return days
}

// Streak counts consecutive days with at least one entry ending today, or
// ending yesterday if nothing has been written yet today.
func Streak(entries []Entry, now time.Time) int {
	days := EntryDays(entries, now.Location())
	if len(days) == 0 {
		return 0
	}

	today := StartOfDay(now)
	cursor := today
	if !days[0].Equal(today) {
		cursor = today.AddDate(0, 0, -1)
		if !days[0].Equal(cursor) {
			return 0
		}
	}

	streak := 1
	for _, day := range days[1:] {
		prev := cursor.AddDate(0, 0, -1)
		if !day.Equal(prev) {
			break
		}
		streak++
		cursor = prev
	}
	return streak
}
