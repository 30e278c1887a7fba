// Package analytics computes read-only summaries over a set of events.
//
// Argmax ties are broken alphabetically by name so results never depend
// on collection order.
package analytics

import (
	"time"

	"socialcal/internal/model"
)

// Summary mirrors the analytics card shown next to the calendar.
type Summary struct {
	Total              int                    `json:"total"`
	Next               *model.Event           `json:"next,omitempty"`
	ByCategory         map[model.Category]int `json:"by_category"`
	BusiestDay         string                 `json:"busiest_day"`
	MostActiveCategory string                 `json:"most_active_category"`
	Liked              int                    `json:"liked"`
	Followed           int                    `json:"followed"`
}

// NotAvailable is reported when a summary field has no data.
const NotAvailable = "N/A"

// NextEvent returns the earliest event starting strictly after now.
func NextEvent(events []model.Event, now time.Time) (model.Event, bool) {
	var (
		best  model.Event
		found bool
	)
	for _, ev := range events {
		if !ev.Start.After(now) {
			continue
		}
		if !found || ev.Start.Before(best.Start) {
			best, found = ev, true
		}
	}
	return best, found
}

func CategoryHistogram(events []model.Event) map[model.Category]int {
	out := make(map[model.Category]int)
	for _, ev := range events {
		out[ev.Category]++
	}
	return out
}

func WeekdayHistogram(events []model.Event) map[time.Weekday]int {
	out := make(map[time.Weekday]int)
	for _, ev := range events {
		out[ev.Start.Weekday()]++
	}
	return out
}

// BusiestWeekday returns the weekday with the most event starts.
func BusiestWeekday(events []model.Event) (time.Weekday, bool) {
	hist := WeekdayHistogram(events)
	var (
		best  time.Weekday
		count int
	)
	for day, n := range hist {
		if n > count || (n == count && day.String() < best.String()) {
			best, count = day, n
		}
	}
	return best, count > 0
}

// MostActiveCategory returns the category with the most events.
func MostActiveCategory(events []model.Event) (model.Category, bool) {
	var (
		best  model.Category
		count int
	)
	for cat, n := range CategoryHistogram(events) {
		if n > count || (n == count && cat < best) {
			best, count = cat, n
		}
	}
	return best, count > 0
}

// Summarize bundles every aggregate for the given (already filtered)
// events.
func Summarize(events []model.Event, now time.Time, liked, followed int) Summary {
	s := Summary{
		Total:              len(events),
		ByCategory:         CategoryHistogram(events),
		BusiestDay:         NotAvailable,
		MostActiveCategory: NotAvailable,
		Liked:              liked,
		Followed:           followed,
	}
	if ev, ok := NextEvent(events, now); ok {
		s.Next = &ev
	}
	if day, ok := BusiestWeekday(events); ok {
		s.BusiestDay = day.String()
	}
	if cat, ok := MostActiveCategory(events); ok {
		s.MostActiveCategory = string(cat)
	}
	return s
}
