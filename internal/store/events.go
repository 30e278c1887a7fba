package store

import (
	"slices"
	"time"

	"github.com/pkg/errors"

	appLog "socialcal/internal/log"
	"socialcal/internal/model"
)

// linkedDuration is the length given to an event linked from the public
// catalog, which only carries a start time.
const linkedDuration = time.Hour

// Events returns a snapshot of every stored event in insertion order.
func (s *State) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEvents(s.events)
}

func (s *State) Get(id string) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.eventIndex(id); i >= 0 {
		return s.events[i].Clone(), true
	}
	return model.Event{}, false
}

// Create stores draft under a fresh ID. Empty type and category default
// to post and personal. Without an explicit CalendarID the event is
// attached to the calendar whose name matches its category.
func (s *State) Create(draft model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.prepare(draft)
	if err != nil {
		return model.Event{}, err
	}
	ev.ID = s.newID()
	s.events = append(slices.Clip(s.events), ev)

	appLog.Debug("event created", "id", ev.ID, "title", ev.Title)
	return ev.Clone(), nil
}

// Update replaces the event with ev.ID. A missing ID is reported as
// model.ErrNotFound; nothing is appended.
func (s *State) Update(ev model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.eventIndex(ev.ID)
	if i < 0 {
		return model.Event{}, errors.Wrapf(model.ErrNotFound, "event %q", ev.ID)
	}
	next, err := s.prepare(ev)
	if err != nil {
		return model.Event{}, err
	}
	next.ID = ev.ID

	events := slices.Clone(s.events)
	events[i] = next
	s.events = events
	return next.Clone(), nil
}

// Delete removes the event with id. It is idempotent and reports whether
// anything was removed.
func (s *State) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.eventIndex(id) < 0 {
		return false
	}
	s.events = without(s.events, func(ev model.Event) bool { return ev.ID == id })
	return true
}

// Import appends drafts in order, each with a fresh ID. Every draft is
// checked first; one invalid draft rejects the whole batch.
func (s *State) Import(drafts []model.Event) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := make([]model.Event, 0, len(drafts))
	for i, d := range drafts {
		ev, err := s.prepare(d)
		if err != nil {
			return nil, errors.Wrapf(err, "import row %d", i+1)
		}
		added = append(added, ev)
	}
	for i := range added {
		added[i].ID = s.newID()
	}
	s.events = slices.Concat(s.events, added)

	appLog.Info("events imported", "count", len(added))
	return cloneEvents(added), nil
}

// LinkPublicEvent copies a catalog entry into the personal store as a
// one-hour event in category other. Entries of unfollowed sources are
// not visible and cannot be linked. If an event with the same title,
// start and source already exists the link is skipped and false returned.
func (s *State) LinkPublicEvent(publicID int) (model.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pi := s.publicIndex(publicID)
	if pi < 0 {
		return model.Event{}, false, errors.Wrapf(model.ErrNotFound, "public event %d", publicID)
	}
	pe := s.public[pi]
	if _, ok := s.followedSources()[pe.Source]; !ok {
		return model.Event{}, false, errors.Wrapf(model.ErrNotFound, "public event %d: source %q is not followed", publicID, pe.Source)
	}

	for _, ev := range s.events {
		if ev.Title == pe.Title && ev.Start.Equal(pe.Date) && ev.Source == pe.Source {
			return ev.Clone(), false, nil
		}
	}

	ev := model.Event{
		ID:       s.newID(),
		Title:    pe.Title,
		Start:    pe.Date,
		End:      pe.Date.Add(linkedDuration),
		Type:     pe.Type,
		Category: model.CategoryOther,
		Source:   pe.Source,
		Location: pe.Location,
		WebLink:  pe.WebLink,
	}
	if !ev.Type.Valid() {
		ev.Type = model.TypePost
	}
	if si := s.subscriptionByName(pe.Source); si >= 0 {
		ev.SubscriptionID = s.subs[si].ID
	}
	s.events = append(slices.Clip(s.events), ev)

	appLog.Debug("public event linked", "public_id", publicID, "id", ev.ID)
	return ev.Clone(), true, nil
}

// EventsInCalendar returns the events referencing calendar id.
func (s *State) EventsInCalendar(id string) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.calendarIndex(id) < 0 {
		return nil, errors.Wrapf(model.ErrNotFound, "calendar %q", id)
	}
	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if ev.CalendarID == id {
			out = append(out, ev.Clone())
		}
	}
	return out, nil
}

// prepare applies defaults, resolves references and validates. Callers
// hold the write lock.
func (s *State) prepare(draft model.Event) (model.Event, error) {
	ev := draft.Clone()
	if ev.Type == "" {
		ev.Type = model.TypePost
	}
	if ev.Category == "" {
		ev.Category = model.CategoryPersonal
	}
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}

	if ev.CalendarID != "" {
		if s.calendarIndex(ev.CalendarID) < 0 {
			return model.Event{}, errors.Wrapf(model.ErrValidation, "unknown calendar %q", ev.CalendarID)
		}
	} else if ci := s.calendarByName(string(ev.Category)); ci >= 0 {
		ev.CalendarID = s.calendars[ci].ID
	}

	if ev.SubscriptionID != 0 {
		si := s.subscriptionIndex(ev.SubscriptionID)
		if si < 0 {
			return model.Event{}, errors.Wrapf(model.ErrValidation, "unknown subscription %d", ev.SubscriptionID)
		}
		ev.Source = s.subs[si].Name
	} else if ev.Source != "" {
		if si := s.subscriptionByName(ev.Source); si >= 0 {
			ev.SubscriptionID = s.subs[si].ID
		}
	}
	return ev, nil
}

func (s *State) eventIndex(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.events, func(ev model.Event) bool { return ev.ID == id })
}
