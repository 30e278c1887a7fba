package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"

	appLog "socialcal/internal/log"
	"socialcal/internal/model"
)

const (
	productID = "-//socialcal//socialcal 1.0//EN"

	// ContentType is the MIME type of an exported file.
	ContentType = "text/calendar; charset=utf-8"

	busyStatusProperty = ical.ComponentProperty("X-MICROSOFT-CDO-BUSYSTATUS")
)

// Organizer is the identity written into every exported VEVENT.
type Organizer struct {
	Name  string
	Email string
}

// DefaultOrganizer is the placeholder identity used when none is
// configured.
var DefaultOrganizer = Organizer{Name: "Your Name", Email: "your@email.com"}

// ExportOptions controls calendar generation.
type ExportOptions struct {
	Organizer Organizer
	// Now stamps DTSTAMP. Zero means time.Now().
	Now time.Time
}

// Export renders events as a VCALENDAR payload. Every event is CONFIRMED
// and BUSY; its category becomes CATEGORIES.
func Export(events []model.Event, opts ExportOptions) ([]byte, error) {
	if opts.Organizer.Email == "" {
		opts.Organizer = DefaultOrganizer
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			return nil, errors.Wrapf(err, "ics: event %q", ev.ID)
		}
		addEvent(cal, ev, opts)
	}

	out := cal.Serialize()
	if out == "" {
		return nil, errors.New("ics: empty calendar output")
	}
	appLog.Debug("ics export completed", "event_count", len(events), "bytes", len(out))
	return []byte(out), nil
}

func addEvent(cal *ical.Calendar, ev model.Event, opts ExportOptions) {
	uid := ev.ID
	if uid == "" {
		uid = fmt.Sprintf("%d@socialcal", ev.Start.UnixNano())
	}

	ve := cal.AddEvent(uid)
	ve.SetDtStampTime(opts.Now)
	ve.SetStartAt(ev.Start)
	ve.SetEndAt(ev.End)
	ve.SetSummary(ev.Title)
	if ev.Description != "" {
		ve.SetDescription(ev.Description)
	}
	if ev.Location != "" {
		ve.SetLocation(ev.Location)
	}
	if ev.WebLink != "" {
		ve.SetURL(ev.WebLink)
	}
	// One CATEGORIES line each for category and type; Parse reads both back.
	ve.AddProperty(ical.ComponentPropertyCategories, string(ev.Category))
	ve.AddProperty(ical.ComponentPropertyCategories, string(ev.Type))
	ve.SetProperty(ical.ComponentPropertyStatus, "CONFIRMED")
	ve.SetProperty(ical.ComponentPropertyTransp, "OPAQUE")
	ve.SetProperty(busyStatusProperty, "BUSY")
	ve.SetProperty(ical.ComponentPropertyOrganizer, "mailto:"+opts.Organizer.Email, ical.WithCN(opts.Organizer.Name))

	if rule := strings.TrimPrefix(strings.TrimSpace(ev.Recurrence), "RRULE:"); rule != "" {
		ve.AddRrule(rule)
	}

	if ev.Reminder > 0 {
		alarm := ve.AddAlarm()
		alarm.SetAction(ical.ActionDisplay)
		alarm.SetTrigger(fmt.Sprintf("-PT%dM", ev.Reminder))
		alarm.SetProperty(ical.ComponentPropertyDescription, ev.Title)
	}
}

// Filename turns a title into a safe download name ending in ".ics".
func Filename(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\r', '\t':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "events"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".ics") {
		name += ".ics"
	}
	return name
}
