// Package csvimport reads event rows of the form
// title,start,end,type,category from an uploaded CSV file.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"

	appLog "socialcal/internal/log"
	"socialcal/internal/model"
)

// TimeLayout is the fixed start/end column format.
const TimeLayout = "2006-01-02 15:04:05"

// PriorityTitle is sorted ahead of everything else while it is upcoming.
const PriorityTitle = "New Year's Eve Party"

var ErrEmpty = errors.New("csv: file is empty or unreadable")

// Result holds the parsed drafts and the number of skipped rows.
type Result struct {
	Events  []model.Event
	Skipped int
}

// Parse reads the header row and every data row. Rows with a missing or
// malformed field are skipped and logged; they never fail the batch.
// Times are interpreted in loc. The returned events have no ID.
func Parse(r io.Reader, loc *time.Location, now time.Time) (Result, error) {
	var res Result
	if loc == nil {
		loc = time.Local
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return res, errors.Wrap(err, "csv: read")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return res, ErrEmpty
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		first := header
		header = false
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				appLog.Warn("csv: skipping unparsable row", "line", perr.Line, "reason", perr.Err, "header", first)
				if !first {
					res.Skipped++
				}
				continue
			}
			return Result{}, errors.Wrap(err, "csv: read row")
		}
		if first {
			continue
		}
		line, _ := cr.FieldPos(0)

		ev, err := parseRow(rec, loc)
		if err != nil {
			appLog.Warn("csv: skipping row", "line", line, "reason", err, "row", strings.Join(rec, ","))
			res.Skipped++
			continue
		}
		res.Events = append(res.Events, ev)
	}

	Sort(res.Events, now)
	return res, nil
}

func parseRow(rec []string, loc *time.Location) (model.Event, error) {
	if len(rec) < 5 {
		return model.Event{}, errors.Errorf("expected 5 fields, got %d", len(rec))
	}
	fields := make([]string, 5)
	for i := range fields {
		fields[i] = strings.TrimSpace(rec[i])
		if fields[i] == "" {
			return model.Event{}, errors.Errorf("field %d is empty", i+1)
		}
	}

	start, err := time.ParseInLocation(TimeLayout, fields[1], loc)
	if err != nil {
		return model.Event{}, errors.Wrap(err, "start")
	}
	end, err := time.ParseInLocation(TimeLayout, fields[2], loc)
	if err != nil {
		return model.Event{}, errors.Wrap(err, "end")
	}

	ev := model.Event{
		Title:    fields[0],
		Start:    start,
		End:      end,
		Type:     model.EventType(strings.ToLower(fields[3])),
		Category: model.Category(strings.ToLower(fields[4])),
	}
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// Sort orders events latest first, keeping an upcoming PriorityTitle
// event at the front.
func Sort(events []model.Event, now time.Time) {
	priority := func(ev model.Event) bool {
		return ev.Title == PriorityTitle && !ev.Start.Before(now)
	}
	slices.SortStableFunc(events, func(a, b model.Event) int {
		pa, pb := priority(a), priority(b)
		switch {
		case pa && !pb:
			return -1
		case pb && !pa:
			return 1
		}
		return b.Start.Compare(a.Start)
	})
}
