// Package filter narrows an event collection to the visible working set.
package filter

import (
	"strings"

	"socialcal/internal/model"
)

const (
	// All disables a type, category or source predicate.
	All = "all"
	// Personal as a source matches events with no source label.
	Personal = "personal"
)

// Criteria is the set of independent filters. Empty strings and All are
// neutral.
type Criteria struct {
	Search   string `json:"search"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Source   string `json:"source"`
	Tag      string `json:"tag"`
}

// Predicate is a single inclusion test.
type Predicate func(model.Event) bool

func neutral(v string) bool {
	return v == "" || v == All
}

// Neutral reports whether no predicate is active.
func (c Criteria) Neutral() bool {
	return strings.TrimSpace(c.Search) == "" &&
		neutral(c.Type) && neutral(c.Category) && neutral(c.Source) && c.Tag == ""
}

// Predicates returns only the active predicates, in a fixed order.
func (c Criteria) Predicates() []Predicate {
	var ps []Predicate
	if term := strings.ToLower(strings.TrimSpace(c.Search)); term != "" {
		ps = append(ps, TitleContains(term))
	}
	if !neutral(c.Type) {
		ps = append(ps, TypeIs(model.EventType(c.Type)))
	}
	if !neutral(c.Category) {
		ps = append(ps, CategoryIs(model.Category(c.Category)))
	}
	if !neutral(c.Source) {
		ps = append(ps, SourceIs(c.Source))
	}
	if c.Tag != "" {
		ps = append(ps, HasTag(c.Tag))
	}
	return ps
}

// Apply returns the events matching every active predicate, in input order.
func (c Criteria) Apply(events []model.Event) []model.Event {
	return Match(events, c.Predicates()...)
}

// Match keeps the events satisfying all predicates. With no predicates it
// returns a copy of events.
func Match(events []model.Event, ps ...Predicate) []model.Event {
	out := make([]model.Event, 0, len(events))
next:
	for _, ev := range events {
		for _, p := range ps {
			if !p(ev) {
				continue next
			}
		}
		out = append(out, ev)
	}
	return out
}

// TitleContains matches a case-insensitive substring of the title.
func TitleContains(term string) Predicate {
	term = strings.ToLower(term)
	return func(ev model.Event) bool {
		return strings.Contains(strings.ToLower(ev.Title), term)
	}
}

func TypeIs(t model.EventType) Predicate {
	return func(ev model.Event) bool { return ev.Type == t }
}

func CategoryIs(c model.Category) Predicate {
	return func(ev model.Event) bool { return ev.Category == c }
}

// SourceIs matches the source label exactly; Personal matches events
// without one.
func SourceIs(source string) Predicate {
	return func(ev model.Event) bool {
		if ev.Source == "" {
			return source == Personal
		}
		return ev.Source == source
	}
}

func HasTag(tag string) Predicate {
	return func(ev model.Event) bool { return ev.HasTag(tag) }
}
