package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialcal/internal/model"
)

var now = time.Date(2025, 1, 8, 12, 0, 0, 0, time.UTC) // Wednesday

func at(id string, start time.Time, cat model.Category) model.Event {
	return model.Event{ID: id, Title: id, Start: start, End: start.Add(time.Hour), Type: model.TypePost, Category: cat}
}

func TestNextEvent(t *testing.T) {
	events := []model.Event{
		at("past", now.Add(-time.Hour), model.CategoryWork),
		at("exactly-now", now, model.CategoryWork),
		at("later", now.Add(48*time.Hour), model.CategoryWork),
		at("soon", now.Add(time.Hour), model.CategoryFamily),
	}
	ev, ok := NextEvent(events, now)
	require.True(t, ok)
	assert.Equal(t, "soon", ev.ID)

	_, ok = NextEvent(events[:2], now)
	assert.False(t, ok)
}

func TestHistogramAndArgmax(t *testing.T) {
	mon := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	tue := mon.AddDate(0, 0, 1)
	events := []model.Event{
		at("a", tue, model.CategoryWork),
		at("b", mon, model.CategoryFamily),
		at("c", tue, model.CategoryWork),
		at("d", mon.AddDate(0, 0, 7), model.CategoryFamily),
	}

	assert.Equal(t, map[model.Category]int{model.CategoryWork: 2, model.CategoryFamily: 2}, CategoryHistogram(events))

	// Monday and Tuesday tie on 2; alphabetical order picks Monday.
	day, ok := BusiestWeekday(events)
	require.True(t, ok)
	assert.Equal(t, time.Monday, day)

	// family and work tie; alphabetical order picks family.
	cat, ok := MostActiveCategory(events)
	require.True(t, ok)
	assert.Equal(t, model.CategoryFamily, cat)

	day, ok = BusiestWeekday(events[:3])
	require.True(t, ok)
	assert.Equal(t, time.Tuesday, day)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, now, 2, 3)
	assert.Equal(t, 0, s.Total)
	assert.Nil(t, s.Next)
	assert.Equal(t, NotAvailable, s.BusiestDay)
	assert.Equal(t, NotAvailable, s.MostActiveCategory)
	assert.Equal(t, 2, s.Liked)
	assert.Equal(t, 3, s.Followed)
}

func TestSummarize(t *testing.T) {
	events := []model.Event{
		at("x", now.Add(2*time.Hour), model.CategoryOther),
		at("y", now.Add(-2*time.Hour), model.CategoryOther),
	}
	s := Summarize(events, now, 0, 1)
	require.NotNil(t, s.Next)
	assert.Equal(t, "x", s.Next.ID)
	assert.Equal(t, "Wednesday", s.BusiestDay)
	assert.Equal(t, "other", s.MostActiveCategory)
}
