package refresh

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialcal/internal/ics"
	"socialcal/internal/model"
	"socialcal/internal/store"
)

const fixtures = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\nUID:a\r\nSUMMARY:Liverpool vs Everton\r\nDTSTART:20241105T150000Z\r\nEND:VEVENT\r\n" +
	"BEGIN:VEVENT\r\nUID:b\r\nSUMMARY:Arsenal vs Liverpool\r\nDTSTART:20241112T173000Z\r\nEND:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

// fakeFetcher serves canned bodies keyed by URL.
type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(_ context.Context, feed ics.Feed) (ics.FetchResult, error) {
	body, ok := f[feed.URL]
	if !ok {
		return ics.FetchResult{}, errors.New("unreachable")
	}
	return ics.FetchResult{Feed: feed, Body: []byte(body)}, nil
}

func TestRun(t *testing.T) {
	now := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	s := store.New(store.Seed{
		Subscriptions: []model.Subscription{
			{Name: "Liverpool FC", URL: "https://lfc.example/fixtures.ics", Followed: true},
			{Name: "TechEvents", URL: "https://tech.example/down.ics", Followed: true},
			{Name: "GlobalDays", Followed: true},
		},
		PublicEvents: []model.PublicEvent{
			{Title: "Old fixture", Source: "Liverpool FC", Date: now},
			{Title: "Tech Conference", Source: "TechEvents", Date: now},
		},
	}, store.WithClock(func() time.Time { return now }))

	r := New(fakeFetcher{"https://lfc.example/fixtures.ics": fixtures}, s, time.UTC)
	rep := r.Run(context.Background())

	assert.Equal(t, 2, rep.Feeds)
	assert.Equal(t, map[string]int{"Liverpool FC": 2}, rep.Events)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "TechEvents")

	group := s.PublicEventsBySource()
	require.Len(t, group["Liverpool FC"], 2)
	assert.Equal(t, "Liverpool vs Everton", group["Liverpool FC"][0].Title)
	assert.Equal(t, now, group["Liverpool FC"][0].DateAdded)
	assert.Len(t, group["TechEvents"], 1, "failed feed keeps its catalog")
}

func TestSchedule(t *testing.T) {
	r := New(fakeFetcher{}, store.New(store.Seed{}), nil)

	c, err := r.Schedule(context.Background(), "*/5 * * * *")
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()

	_, err = r.Schedule(context.Background(), "every tuesday")
	assert.Error(t, err)
}
