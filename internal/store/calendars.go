package store

import (
	"slices"
	"strings"

	"github.com/pkg/errors"

	"socialcal/internal/model"
	"socialcal/internal/share"
)

func (s *State) Calendars() []model.PersonalCalendar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.PersonalCalendar, len(s.calendars))
	for i, c := range s.calendars {
		out[i] = c.Clone()
	}
	return out
}

func (s *State) Calendar(id string) (model.PersonalCalendar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.calendarIndex(id); i >= 0 {
		return s.calendars[i].Clone(), true
	}
	return model.PersonalCalendar{}, false
}

// AddCalendar creates a calendar. Names must be non-empty and unique
// ignoring case; an empty color picks a random one.
func (s *State) AddCalendar(name, color string) (model.PersonalCalendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if err := s.checkCalendarName(name, ""); err != nil {
		return model.PersonalCalendar{}, err
	}
	if len(s.calendars) >= s.maxCalendars {
		return model.PersonalCalendar{}, errors.Wrapf(model.ErrLimitReached, "at most %d calendars", s.maxCalendars)
	}
	if color == "" {
		color = randomColor()
	}

	cal := model.PersonalCalendar{
		ID:          s.newID(),
		Name:        name,
		Color:       color,
		Permissions: model.Permissions{View: []string{}, Edit: []string{}},
	}
	s.calendars = append(slices.Clip(s.calendars), cal)
	return cal.Clone(), nil
}

// UpdateCalendar renames and/or recolours a calendar. Events keep their
// CalendarID so a rename orphans nothing. Empty arguments keep the
// current value.
func (s *State) UpdateCalendar(id, name, color string) (model.PersonalCalendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calendarIndex(id)
	if i < 0 {
		return model.PersonalCalendar{}, errors.Wrapf(model.ErrNotFound, "calendar %q", id)
	}
	cal := s.calendars[i].Clone()
	if name = strings.TrimSpace(name); name != "" {
		if err := s.checkCalendarName(name, id); err != nil {
			return model.PersonalCalendar{}, err
		}
		cal.Name = name
	}
	if color != "" {
		cal.Color = color
	}

	cals := slices.Clone(s.calendars)
	cals[i] = cal
	s.calendars = cals
	return cal.Clone(), nil
}

// DeleteCalendar removes a calendar no event references.
func (s *State) DeleteCalendar(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.calendarIndex(id) < 0 {
		return errors.Wrapf(model.ErrNotFound, "calendar %q", id)
	}
	n := 0
	for _, ev := range s.events {
		if ev.CalendarID == id {
			n++
		}
	}
	if n > 0 {
		return errors.Wrapf(model.ErrCalendarInUse, "%d events reference calendar %q", n, id)
	}
	s.calendars = without(s.calendars, func(c model.PersonalCalendar) bool { return c.ID == id })
	return nil
}

// AddCollaborator grants email view (or edit) permission on a calendar.
// Adding an address twice is a no-op.
func (s *State) AddCollaborator(id, email string, edit bool) (model.PersonalCalendar, error) {
	addr, err := share.ParseEmail(email)
	if err != nil {
		return model.PersonalCalendar{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calendarIndex(id)
	if i < 0 {
		return model.PersonalCalendar{}, errors.Wrapf(model.ErrNotFound, "calendar %q", id)
	}
	cal := s.calendars[i].Clone()
	list := &cal.Permissions.View
	if edit {
		list = &cal.Permissions.Edit
	}
	if !slices.Contains(*list, addr) {
		*list = append(*list, addr)
	}

	cals := slices.Clone(s.calendars)
	cals[i] = cal
	s.calendars = cals
	return cal.Clone(), nil
}

func (s *State) checkCalendarName(name, selfID string) error {
	if name == "" {
		return errors.Wrap(model.ErrValidation, "calendar name cannot be empty")
	}
	for _, c := range s.calendars {
		if c.ID != selfID && sameName(c.Name, name) {
			return errors.Wrapf(model.ErrValidation, "calendar %q already exists", name)
		}
	}
	return nil
}

func (s *State) calendarIndex(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.calendars, func(c model.PersonalCalendar) bool { return c.ID == id })
}

func (s *State) calendarByName(name string) int {
	return slices.IndexFunc(s.calendars, func(c model.PersonalCalendar) bool { return sameName(c.Name, name) })
}
