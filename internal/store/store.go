// Package store holds the in-memory application state.
//
// State owns every collection. Readers get copies; each mutation builds a
// new slice and swaps it in under the write lock, so a snapshot handed out
// earlier never changes underneath its holder. Different collections are
// not updated atomically with respect to each other.
package store

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"socialcal/internal/filter"
	"socialcal/internal/model"
)

const (
	defaultMaxCalendars = 5
	defaultEventColor   = "#3174ad"
	defaultSourceColor  = "#FBBC05"
)

// Option configures a State at construction.
type Option func(*State)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

// WithIDGenerator replaces the uuid-based event/calendar ID source.
func WithIDGenerator(newID func() string) Option {
	return func(s *State) { s.newID = newID }
}

// WithMaxCalendars caps the number of personal calendars.
func WithMaxCalendars(n int) Option {
	return func(s *State) {
		if n > 0 {
			s.maxCalendars = n
		}
	}
}

// Seed is the initial content of a State.
type Seed struct {
	Calendars     []model.PersonalCalendar
	Subscriptions []model.Subscription
	PublicEvents  []model.PublicEvent
}

// State is the single owner of events, calendars, subscriptions, the
// public catalog, the liked set and the active filter.
type State struct {
	mu sync.RWMutex

	now          func() time.Time
	newID        func() string
	maxCalendars int

	events    []model.Event
	calendars []model.PersonalCalendar
	subs      []model.Subscription

	public       []model.PublicEvent
	nextPublicID int
	liked        map[int]struct{}

	criteria filter.Criteria
}

// New builds a State from seed. Calendars without an ID get one;
// subscriptions without an ID are numbered from 1; public events are
// renumbered in order.
func New(seed Seed, opts ...Option) *State {
	s := &State{
		now:          time.Now,
		newID:        uuid.NewString,
		maxCalendars: defaultMaxCalendars,
		liked:        make(map[int]struct{}),
		nextPublicID: 1,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, c := range seed.Calendars {
		c = c.Clone()
		if c.ID == "" {
			c.ID = s.newID()
		}
		if c.Color == "" {
			c.Color = randomColor()
		}
		s.calendars = append(s.calendars, c)
	}

	for i, sub := range seed.Subscriptions {
		if sub.ID == 0 {
			sub.ID = i + 1
		}
		s.subs = append(s.subs, sub)
	}

	s.public = s.numberPublic(seed.PublicEvents)
	return s
}

// Now returns the state's clock reading.
func (s *State) Now() time.Time {
	return s.now()
}

// SetFilter replaces the active filter criteria.
func (s *State) SetFilter(c filter.Criteria) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = c
}

func (s *State) Filter() filter.Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria
}

// Visible returns the events passing the active filter, in store order.
func (s *State) Visible() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEvents(s.criteria.Apply(s.events))
}

// Color is the display colour of ev: its source colour for linked events,
// otherwise its calendar colour.
func (s *State) Color(ev model.Event) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ev.Source != "" {
		for _, sub := range s.subs {
			if sub.ID == ev.SubscriptionID || sub.Name == ev.Source {
				if sub.Color != "" {
					return sub.Color
				}
				break
			}
		}
		return defaultSourceColor
	}
	if i := s.calendarIndex(ev.CalendarID); i >= 0 && s.calendars[i].Color != "" {
		return s.calendars[i].Color
	}
	return defaultEventColor
}

func cloneEvents(evs []model.Event) []model.Event {
	out := make([]model.Event, len(evs))
	for i, ev := range evs {
		out[i] = ev.Clone()
	}
	return out
}

func randomColor() string {
	return fmt.Sprintf("#%06x", rand.IntN(0x1000000))
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func without[T any](in []T, drop func(T) bool) []T {
	return slices.DeleteFunc(slices.Clone(in), drop)
}
