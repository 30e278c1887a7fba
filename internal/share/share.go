// Package share builds the inert share links for calendars and events.
// Nothing serves these URLs; they are handed to the clipboard or a mail
// client as-is.
package share

import (
	"net/mail"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"socialcal/internal/model"
)

const DefaultBaseURL = "https://yourapp.com"

// Links is the payload a share dialog needs.
type Links struct {
	URL    string `json:"url"`
	Mailto string `json:"mailto"`
}

type Builder struct {
	base string
}

func NewBuilder(baseURL string) Builder {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Builder{base: baseURL}
}

func (b Builder) CalendarURL(id string) string {
	return b.base + "/calendars/" + url.PathEscape(id)
}

func (b Builder) EventURL(id string) string {
	return b.base + "/events/" + url.PathEscape(id)
}

// Calendar returns the link and mail-compose link for a calendar.
func (b Builder) Calendar(cal model.PersonalCalendar) Links {
	u := b.CalendarURL(cal.ID)
	return Links{
		URL:    u,
		Mailto: Mailto("Sharing Calendar: "+cal.Name, "Check out this calendar: "+u),
	}
}

// Event returns share links for ev. Events in a private category are
// refused with model.ErrNotShareable.
func (b Builder) Event(ev model.Event) (Links, error) {
	if ev.Category.Private() {
		return Links{}, errors.Wrapf(model.ErrNotShareable, "event category %q is private", ev.Category)
	}
	u := b.EventURL(ev.ID)
	return Links{
		URL:    u,
		Mailto: Mailto(ev.Title, "Check out this event: "+u),
	}, nil
}

// Mailto builds a mail-compose link with no recipient.
func Mailto(subject, body string) string {
	return "mailto:?subject=" + encode(subject) + "&body=" + encode(body)
}

// encode escapes like encodeURIComponent so spaces become %20, not +.
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ParseEmail validates a collaborator address and returns it normalised.
func ParseEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.Wrap(model.ErrValidation, "email is required")
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", errors.Wrapf(model.ErrValidation, "invalid email %q", raw)
	}
	return strings.ToLower(addr.Address), nil
}
