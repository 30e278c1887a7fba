package recur

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialcal/internal/model"
)

var monday = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

func weekly(rule string) model.Event {
	return model.Event{
		ID:         "standup",
		Title:      "Standup",
		Start:      monday,
		End:        monday.Add(30 * time.Minute),
		Type:       model.TypeMeeting,
		Category:   model.CategoryWork,
		Recurrence: rule,
	}
}

func starts(occs []model.Occurrence) []string {
	out := make([]string, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.Start.UTC().Format(time.RFC3339))
	}
	return out
}

func TestWindow(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	w := Window(now)
	assert.Equal(t, now, w.Start)
	assert.Equal(t, time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC), w.End)
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name string
		rule string
		from time.Time
		want []string
		keys []int
	}{
		{
			name: "whole rule inside window",
			rule: "FREQ=WEEKLY;COUNT=4",
			from: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			want: []string{"2025-01-06T09:00:00Z", "2025-01-13T09:00:00Z", "2025-01-20T09:00:00Z", "2025-01-27T09:00:00Z"},
			keys: []int{0, 1, 2, 3},
		},
		{
			name: "window cuts the head",
			rule: "RRULE:FREQ=WEEKLY;COUNT=4",
			from: time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC),
			want: []string{"2025-01-20T09:00:00Z", "2025-01-27T09:00:00Z"},
			keys: []int{0, 1},
		},
		{
			name: "window start is inclusive",
			rule: "FREQ=WEEKLY;COUNT=2",
			from: monday.AddDate(0, 0, 7),
			want: []string{"2025-01-13T09:00:00Z"},
			keys: []int{0},
		},
		{
			name: "no occurrences in window",
			rule: "FREQ=DAILY;COUNT=2",
			from: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			want: []string{},
			keys: []int{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			seq, err := Expand(weekly(test.rule), Window(test.from))
			require.NoError(t, err)
			occs := slices.Collect(seq)
			assert.Equal(t, test.want, starts(occs))

			gotKeys := make([]int, 0, len(occs))
			for _, o := range occs {
				assert.Equal(t, "standup", o.Key.TemplateID)
				assert.Equal(t, 30*time.Minute, o.End.Sub(o.Start))
				gotKeys = append(gotKeys, o.Key.Index)
			}
			assert.Equal(t, test.keys, gotKeys)
		})
	}
}

func TestExpandCap(t *testing.T) {
	rng := Window(monday)
	rng.MaxOccurrences = 10
	seq, err := Expand(weekly("FREQ=DAILY"), rng)
	require.NoError(t, err)
	assert.Len(t, slices.Collect(seq), 10)
}

func TestExpandMatchesRuleAfterSkippingAhead(t *testing.T) {
	dtstart := time.Date(2024, 1, 3, 8, 20, 30, 0, time.UTC)
	from := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		rule   string
		length time.Duration
	}{
		{"FREQ=MINUTELY;INTERVAL=7", 24 * time.Hour},
		{"FREQ=HOURLY;INTERVAL=5;BYMINUTE=15,45", 7 * 24 * time.Hour},
		{"FREQ=DAILY;INTERVAL=3", 30 * 24 * time.Hour},
		{"FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,TH", 60 * 24 * time.Hour},
		{"FREQ=DAILY;COUNT=400", 30 * 24 * time.Hour},
		{"FREQ=MONTHLY;BYMONTHDAY=3", 120 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			ev := weekly(tt.rule)
			ev.Start = dtstart
			ev.End = dtstart.Add(10 * time.Minute)
			until := from.Add(tt.length)

			r, err := ParseRule(tt.rule, dtstart)
			require.NoError(t, err)
			want := slices.DeleteFunc(r.Between(from, until, true), func(at time.Time) bool { return !at.Before(until) })
			require.NotEmpty(t, want)

			seq, err := Expand(ev, Range{Start: from, End: until})
			require.NoError(t, err)
			occs := slices.Collect(seq)
			got := make([]time.Time, len(occs))
			for i, o := range occs {
				got[i] = o.Start
			}
			assert.Equal(t, want, got)
			assert.Equal(t, 0, occs[0].Key.Index)
		})
	}
}

func TestExpandFineRuleFromLongAgo(t *testing.T) {
	ev := weekly("FREQ=MINUTELY")
	ev.Start = time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC)
	ev.End = ev.Start.Add(time.Minute)
	from := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

	seq, err := Expand(ev, Range{Start: from, End: from.Add(time.Hour)})
	require.NoError(t, err)
	occs := slices.Collect(seq)
	require.Len(t, occs, 60)
	assert.Equal(t, from, occs[0].Start)
	assert.Equal(t, from.Add(59*time.Minute), occs[59].Start)
}

func TestExpandStopsEarly(t *testing.T) {
	seq, err := Expand(weekly("FREQ=DAILY"), Window(monday))
	require.NoError(t, err)
	n := 0
	for range seq {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestExpandErrors(t *testing.T) {
	_, err := Expand(weekly("FREQ=SOMETIMES"), Window(monday))
	assert.Error(t, err)

	_, err = Expand(weekly(""), Window(monday))
	assert.Error(t, err)

	_, err = Expand(weekly("FREQ=DAILY"), Range{Start: monday, End: monday.Add(-time.Hour)})
	assert.Error(t, err)
}

func TestExpandAll(t *testing.T) {
	single := model.Event{ID: "dinner", Title: "Dinner", Start: monday, End: monday.Add(time.Hour)}
	broken := weekly("FREQ=NEVER")
	broken.ID = "broken"
	events := []model.Event{single, weekly("FREQ=WEEKLY;COUNT=2"), broken}

	occs := slices.Collect(ExpandAll(events, Window(monday.Add(-time.Hour))))
	require.Len(t, occs, 4)

	assert.Equal(t, model.OccurrenceKey{TemplateID: "dinner"}, occs[0].Key)
	assert.Equal(t, model.OccurrenceKey{TemplateID: "standup", Index: 0}, occs[1].Key)
	assert.Equal(t, model.OccurrenceKey{TemplateID: "standup", Index: 1}, occs[2].Key)
	assert.Equal(t, "broken", occs[3].Key.TemplateID)
	assert.True(t, occs[3].Start.Equal(monday))
}
