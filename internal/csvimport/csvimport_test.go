package csvimport

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialcal/internal/model"
)

var now = time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

func TestParseSkipsBadRows(t *testing.T) {
	in := "title,start,end,type,category\n" +
		"Standup,2025-01-06 09:00:00,2025-01-06 09:30:00,meeting,work\n" +
		"BadRow,,,,\n"

	res, err := Parse(strings.NewReader(in), time.UTC, now)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, 1, res.Skipped)

	ev := res.Events[0]
	assert.Equal(t, "Standup", ev.Title)
	assert.Equal(t, model.TypeMeeting, ev.Type)
	assert.Equal(t, model.CategoryWork, ev.Category)
	assert.Equal(t, time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, 30*time.Minute, ev.Duration())
	assert.Empty(t, ev.ID)
}

func TestParseMalformedHeader(t *testing.T) {
	in := "title,\"start\" date,end\"\",type,category\n" +
		"Standup,2025-01-06 09:00:00,2025-01-06 09:30:00,meeting,work\n"

	res, err := Parse(strings.NewReader(in), time.UTC, now)
	require.NoError(t, err)
	require.Len(t, res.Events, 1, "header consumed, first data row kept")
	assert.Equal(t, "Standup", res.Events[0].Title)
	assert.Zero(t, res.Skipped)
}

func TestParseRejections(t *testing.T) {
	rows := []string{
		"Short,2025-01-06 09:00:00,2025-01-06 10:00:00,meeting",
		"BadTime,06/01/2025,2025-01-06 10:00:00,meeting,work",
		"Zero,2025-01-06 09:00:00,2025-01-06 09:00:00,meeting,work",
		"BadType,2025-01-06 09:00:00,2025-01-06 10:00:00,party,work",
		"BadCategory,2025-01-06 09:00:00,2025-01-06 10:00:00,meeting,school",
	}
	in := "title,start,end,type,category\n" + strings.Join(rows, "\n")

	res, err := Parse(strings.NewReader(in), time.UTC, now)
	require.NoError(t, err)
	assert.Empty(t, res.Events)
	assert.Equal(t, len(rows), res.Skipped)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(strings.NewReader("  \n"), time.UTC, now)
	assert.True(t, errors.Is(err, ErrEmpty))

	res, err := Parse(strings.NewReader("title,start,end,type,category\n"), time.UTC, now)
	require.NoError(t, err)
	assert.Empty(t, res.Events)
}

func TestParseLocationAndCase(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	in := "h\n Lunch , 2025-02-01 12:00:00 , 2025-02-01 13:00:00 , EatOut , Family \n"
	res, err := Parse(strings.NewReader(in), loc, now)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "Lunch", res.Events[0].Title)
	assert.Equal(t, model.TypeEatout, res.Events[0].Type)
	assert.Equal(t, time.Date(2025, 2, 1, 3, 0, 0, 0, time.UTC), res.Events[0].Start.UTC())
}

func TestSortOrder(t *testing.T) {
	in := "title,start,end,type,category\n" +
		"Old,2024-03-01 10:00:00,2024-03-01 11:00:00,post,other\n" +
		"New Year's Eve Party,2024-12-31 20:00:00,2025-01-01 02:00:00,holiday,family\n" +
		"Latest,2025-06-01 10:00:00,2025-06-01 11:00:00,post,other\n" +
		"Middle,2024-08-01 10:00:00,2024-08-01 11:00:00,post,other\n"

	res, err := Parse(strings.NewReader(in), time.UTC, now)
	require.NoError(t, err)

	var titles []string
	for _, ev := range res.Events {
		titles = append(titles, ev.Title)
	}
	assert.Equal(t, []string{"New Year's Eve Party", "Latest", "Middle", "Old"}, titles)

	// Once the party is in the past it sorts by date like any other row.
	res, err = Parse(strings.NewReader(in), time.UTC, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	titles = titles[:0]
	for _, ev := range res.Events {
		titles = append(titles, ev.Title)
	}
	assert.Equal(t, []string{"Latest", "New Year's Eve Party", "Middle", "Old"}, titles)
}
