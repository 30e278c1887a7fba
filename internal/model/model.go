package model

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrCalendarInUse = errors.New("calendar still referenced by events")
	ErrNotShareable  = errors.New("not shareable")
	ErrLimitReached  = errors.New("limit reached")
)

// EventType is the kind of an event. It drives the display colour.
type EventType string

const (
	TypePost        EventType = "post"
	TypeBirthday    EventType = "birthday"
	TypeAnniversary EventType = "anniversary"
	TypeEatout      EventType = "eatout"
	TypeMeeting     EventType = "meeting"
	TypeWorldDates  EventType = "worlddates"
	TypeHoliday     EventType = "holiday"
	TypeStudy       EventType = "study"
	TypeHobby       EventType = "hobby"
	TypePayment     EventType = "payment"
)

var typeColors = map[EventType]string{
	TypePost:        "#4CAF50",
	TypeBirthday:    "#FF9800",
	TypeAnniversary: "#E91E63",
	TypeEatout:      "#9C27B0",
	TypeMeeting:     "#2196F3",
	TypeWorldDates:  "#00BCD4",
	TypeHoliday:     "#F44336",
	TypeStudy:       "#795548",
	TypeHobby:       "#8BC34A",
	TypePayment:     "#607D8B",
}

// EventTypes lists every valid type in display order.
func EventTypes() []EventType {
	return []EventType{
		TypePost, TypeBirthday, TypeAnniversary, TypeEatout, TypeMeeting,
		TypeWorldDates, TypeHoliday, TypeStudy, TypeHobby, TypePayment,
	}
}

func (t EventType) Valid() bool {
	_, ok := typeColors[t]
	return ok
}

// Color returns the type colour, or "" for an unknown type.
func (t EventType) Color() string {
	return typeColors[t]
}

// Category is the personal grouping of an event.
type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryFamily   Category = "family"
	CategoryWork     Category = "work"
	CategoryOther    Category = "other"
)

func Categories() []Category {
	return []Category{CategoryPersonal, CategoryFamily, CategoryWork, CategoryOther}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryPersonal, CategoryFamily, CategoryWork, CategoryOther:
		return true
	}
	return false
}

// Private reports whether events of this category must not be shared.
func (c Category) Private() bool {
	switch Category(strings.ToLower(string(c))) {
	case CategoryPersonal, CategoryFamily, CategoryWork:
		return true
	}
	return false
}

// Event is a personal calendar entry covering [Start, End).
type Event struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Type     EventType `json:"type"`
	Category Category  `json:"category"`

	// CalendarID references a PersonalCalendar by ID. Empty means the
	// event is not attached to any calendar.
	CalendarID string `json:"calendar_id,omitempty"`

	Location    string `json:"location,omitempty"`
	WebLink     string `json:"web_link,omitempty"`
	Description string `json:"description,omitempty"`

	// Source is the public provider label for linked events; empty for
	// personal events. SubscriptionID is the matching Subscription.ID.
	Source         string `json:"source,omitempty"`
	SubscriptionID int    `json:"subscription_id,omitempty"`

	// Recurrence is an RRULE value such as "FREQ=WEEKLY;BYDAY=MO".
	Recurrence string `json:"recurrence,omitempty"`

	// Reminder is the lead time in minutes; 0 disables it.
	Reminder int `json:"reminder,omitempty"`

	Tags []string `json:"tags,omitempty"`
}

// Validate checks the fields every stored event must carry.
func (e Event) Validate() error {
	switch {
	case strings.TrimSpace(e.Title) == "":
		return errors.Wrap(ErrValidation, "title is required")
	case e.Start.IsZero():
		return errors.Wrap(ErrValidation, "start is required")
	case e.End.IsZero():
		return errors.Wrap(ErrValidation, "end is required")
	case !e.End.After(e.Start):
		return errors.Wrap(ErrValidation, "end must be after start")
	case !e.Type.Valid():
		return errors.Wrapf(ErrValidation, "unknown type %q", e.Type)
	case !e.Category.Valid():
		return errors.Wrapf(ErrValidation, "unknown category %q", e.Category)
	case e.Reminder < 0:
		return errors.Wrap(ErrValidation, "reminder must not be negative")
	}
	return nil
}

func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

func (e Event) HasTag(tag string) bool {
	return slices.Contains(e.Tags, tag)
}

func (e Event) Recurring() bool {
	return strings.TrimSpace(e.Recurrence) != ""
}

// Clone returns a copy that shares no slices with e.
func (e Event) Clone() Event {
	e.Tags = slices.Clone(e.Tags)
	return e
}

// PublicEvent is a read-only catalog entry from an external provider.
type PublicEvent struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Date      time.Time `json:"date"`
	Source    string    `json:"source"`
	Type      EventType `json:"type"`
	Location  string    `json:"location,omitempty"`
	WebLink   string    `json:"web_link,omitempty"`
	DateAdded time.Time `json:"date_added"`
}

type Permissions struct {
	View []string `json:"view"`
	Edit []string `json:"edit"`
}

// PersonalCalendar is a named, coloured container events can reference.
type PersonalCalendar struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Color       string      `json:"color"`
	Permissions Permissions `json:"permissions"`
}

func (c PersonalCalendar) Clone() PersonalCalendar {
	c.Permissions.View = slices.Clone(c.Permissions.View)
	c.Permissions.Edit = slices.Clone(c.Permissions.Edit)
	return c
}

// Subscription gates which public sources appear in the personal feed.
type Subscription struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
	Followed bool   `json:"followed"`
	Color    string `json:"color,omitempty"`
}

// OccurrenceKey identifies one expanded instance of a template event.
type OccurrenceKey struct {
	TemplateID string `json:"template_id"`
	Index      int    `json:"index"`
}

func (k OccurrenceKey) String() string {
	return fmt.Sprintf("%s#%d", k.TemplateID, k.Index)
}

// Occurrence is one concrete instance of an event after recurrence
// expansion. Event carries the template fields; Start/End are the
// instance interval.
type Occurrence struct {
	Key   OccurrenceKey `json:"key"`
	Event Event         `json:"event"`
	Start time.Time     `json:"start"`
	End   time.Time     `json:"end"`
}
