package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialcal/internal/model"
)

var start = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

func standup() model.Event {
	return model.Event{
		ID:          "ev-1",
		Title:       "Standup",
		Start:       start,
		End:         start.Add(30 * time.Minute),
		Type:        model.TypeMeeting,
		Category:    model.CategoryWork,
		Location:    "Room 4",
		Description: "daily sync",
		WebLink:     "https://example.com/standup",
		Recurrence:  "FREQ=WEEKLY;BYDAY=MO",
		Reminder:    15,
	}
}

func TestExport(t *testing.T) {
	out, err := Export([]model.Event{standup()}, ExportOptions{Now: start})
	require.NoError(t, err)
	s := string(out)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"METHOD:PUBLISH",
		"UID:ev-1",
		"SUMMARY:Standup",
		"DTSTART:20250106T090000Z",
		"DTEND:20250106T093000Z",
		"LOCATION:Room 4",
		"CATEGORIES:work",
		"CATEGORIES:meeting",
		"DESCRIPTION:daily sync",
		"STATUS:CONFIRMED",
		"X-MICROSOFT-CDO-BUSYSTATUS:BUSY",
		"mailto:your@email.com",
		"RRULE:FREQ=WEEKLY;BYDAY=MO",
		"BEGIN:VALARM",
		"TRIGGER:-PT15M",
	} {
		assert.Contains(t, s, want)
	}
}

func TestExportOmitsEmptyFields(t *testing.T) {
	ev := standup()
	ev.Description = ""
	ev.Location = ""
	ev.WebLink = ""
	ev.Reminder = 0

	out, err := Export([]model.Event{ev}, ExportOptions{Now: start})
	require.NoError(t, err)
	s := string(out)
	assert.NotContains(t, s, "DESCRIPTION")
	assert.NotContains(t, s, "LOCATION")
	assert.NotContains(t, s, "URL")
	assert.Contains(t, s, "SUMMARY:Standup")
}

func TestExportRejectsInvalid(t *testing.T) {
	bad := standup()
	bad.End = bad.Start
	_, err := Export([]model.Event{bad}, ExportOptions{})
	assert.Error(t, err)
}

func TestExportThenParse(t *testing.T) {
	out, err := Export([]model.Event{standup()}, ExportOptions{Organizer: Organizer{Name: "Me", Email: "me@example.com"}})
	require.NoError(t, err)
	assert.Contains(t, string(out), "mailto:me@example.com")

	events, err := Parse(out, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "Standup", ev.Title)
	assert.True(t, ev.Start.Equal(start))
	assert.Equal(t, 30*time.Minute, ev.Duration())
	assert.Equal(t, model.CategoryWork, ev.Category)
	assert.Equal(t, model.TypeMeeting, ev.Type)
	assert.Equal(t, "Room 4", ev.Location)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", ev.Recurrence)
	assert.Equal(t, "https://example.com/standup", ev.WebLink)
}

const feedBody = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:m1\r\n" +
	"SUMMARY:Liverpool vs Everton\r\n" +
	"DTSTART;TZID=Europe/London:20241105T150000\r\n" +
	"LOCATION:Anfield\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:m2\r\n" +
	"SUMMARY:Bank Holiday\r\n" +
	"DTSTART;VALUE=DATE:20241225\r\n" +
	"CATEGORIES:holiday\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:m3\r\n" +
	"DTSTART:20241225T100000Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseFeed(t *testing.T) {
	events, err := Parse([]byte(feedBody), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 2, "event without SUMMARY is skipped")

	match := events[0]
	assert.Equal(t, "Liverpool vs Everton", match.Title)
	assert.Equal(t, time.Hour, match.Duration())
	assert.Equal(t, model.TypePost, match.Type)
	assert.Equal(t, model.CategoryOther, match.Category)

	holiday := events[1]
	assert.Equal(t, model.TypeHoliday, holiday.Type)
	assert.Equal(t, 24*time.Hour, holiday.Duration())

	pub := ToPublicEvents("Liverpool FC", events, start)
	require.Len(t, pub, 2)
	assert.Equal(t, "Liverpool FC", pub[0].Source)
	assert.Equal(t, "Anfield", pub[0].Location)
	assert.Equal(t, start, pub[1].DateAdded)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(nil, time.UTC)
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "Standup.ics", Filename("Standup"))
	assert.Equal(t, "a_b.ics", Filename("a/b"))
	assert.Equal(t, "events.ics", Filename("  "))
	assert.Equal(t, "all.ics", Filename("all.ics"))
}

func TestFetcherCaching(t *testing.T) {
	var (
		hits   atomic.Int32
		broken atomic.Bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if broken.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	feed := Feed{Name: "Liverpool FC", URL: srv.URL + "/fixtures.ics?token=secret"}
	ctx := context.Background()

	res, err := f.Fetch(ctx, feed)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, feedBody, string(res.Body))

	res, err = f.Fetch(ctx, feed)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, feedBody, string(res.Body))

	broken.Store(true)
	res, err = f.Fetch(ctx, feed)
	require.NoError(t, err)
	assert.True(t, res.FromCache)

	_, err = NewFetcher(t.TempDir(), srv.Client()).Fetch(ctx, feed)
	assert.Error(t, err, "no cache to fall back on")
	assert.Equal(t, int32(4), hits.Load())
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private.ics?token=abc"))
	assert.True(t, strings.HasPrefix(redactURL("not a url"), "ics://"))
}
