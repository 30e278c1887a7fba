package ics

import (
	"bytes"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"

	appLog "socialcal/internal/log"
	"socialcal/internal/model"
)

// Parse reads an ICS payload into event drafts (no IDs assigned).
//
//   - DTSTART/DTEND go through the library's TZID handling; floating and
//     date-only values are placed in loc.
//   - An event without DTEND lasts one hour, or one day if all-day.
//   - CATEGORIES maps onto Category or EventType when it names one.
//   - VEVENTs that cannot be interpreted are logged and skipped.
func Parse(body []byte, loc *time.Location) ([]model.Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("ics: empty body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "ics: parse calendar")
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve, loc)
		if perr != nil {
			appLog.Warn("ics: skipping vevent", "reason", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (model.Event, error) {
	ev := model.Event{
		Type:     model.TypePost,
		Category: model.CategoryOther,
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = strings.TrimSpace(p.Value)
	}
	if ev.Title == "" {
		return ev, errors.New("missing SUMMARY")
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyUrl); p != nil {
		ev.WebLink = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.Recurrence = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, errors.New("missing DTSTART")
	}
	allDay := isDateValue(dtStart)

	start, err := propertyTime(dtStart, loc)
	if err != nil {
		return ev, errors.Wrap(err, "DTSTART")
	}
	ev.Start = start

	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
		end, err := propertyTime(dtEnd, loc)
		if err != nil {
			return ev, errors.Wrap(err, "DTEND")
		}
		ev.End = end
	}
	if ev.End.IsZero() || !ev.End.After(ev.Start) {
		if allDay {
			ev.End = ev.Start.AddDate(0, 0, 1)
		} else {
			ev.End = ev.Start.Add(time.Hour)
		}
	}

	for _, p := range ve.Properties {
		if p.IANAToken != string(ical.ComponentPropertyCategories) {
			continue
		}
		for _, c := range strings.Split(p.Value, ",") {
			c = strings.ToLower(strings.TrimSpace(c))
			if cat := model.Category(c); cat.Valid() {
				ev.Category = cat
			}
			if typ := model.EventType(c); typ.Valid() {
				ev.Type = typ
			}
		}
	}

	return ev, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// propertyTime parses a DATE or DATE-TIME value honouring TZID. Values
// without a zone are read in loc.
func propertyTime(p *ical.IANAProperty, loc *time.Location) (time.Time, error) {
	v := strings.TrimSpace(p.Value)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		if tz, err := time.LoadLocation(tzs[0]); err == nil {
			loc = tz
		} else {
			appLog.Debug("ics: unknown TZID, using default zone", "tzid", tzs[0])
		}
	}

	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

// ToPublicEvents turns parsed feed entries into catalog records for
// source. IDs are assigned by the store.
func ToPublicEvents(source string, events []model.Event, now time.Time) []model.PublicEvent {
	out := make([]model.PublicEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, model.PublicEvent{
			Title:     ev.Title,
			Date:      ev.Start,
			Source:    source,
			Type:      ev.Type,
			Location:  ev.Location,
			WebLink:   ev.WebLink,
			DateAdded: now,
		})
	}
	return out
}
