// Package recur expands recurring events into concrete occurrences.
package recur

import (
	"iter"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	appLog "socialcal/internal/log"
	"socialcal/internal/model"
)

// DefaultMaxOccurrences caps a single expansion so an unbounded rule with a
// fine frequency cannot run away.
const DefaultMaxOccurrences = 5000

// Range is the half-open window [Start, End) occurrences must start in.
type Range struct {
	Start time.Time
	End   time.Time

	// MaxOccurrences limits the sequence length. Zero means
	// DefaultMaxOccurrences.
	MaxOccurrences int
}

// Window returns the expansion horizon for now: from now until January 1
// of the year after next.
func Window(now time.Time) Range {
	return Range{
		Start: now,
		End:   time.Date(now.Year()+2, time.January, 1, 0, 0, 0, 0, now.Location()),
	}
}

func (r Range) limit() int {
	if r.MaxOccurrences <= 0 {
		return DefaultMaxOccurrences
	}
	return r.MaxOccurrences
}

// ParseRule parses an RRULE value anchored at dtstart. A leading "RRULE:"
// is accepted.
func ParseRule(raw string, dtstart time.Time) (*rrule.RRule, error) {
	opt, err := parseOption(raw)
	if err != nil {
		return nil, err
	}
	return build(opt, dtstart, raw)
}

func parseOption(raw string) (rrule.ROption, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "RRULE:")
	if raw == "" {
		return rrule.ROption{}, errors.New("recur: empty rule")
	}
	opt, err := rrule.StrToROption(raw)
	if err != nil {
		return rrule.ROption{}, errors.Wrapf(err, "recur: parse %q", raw)
	}
	return *opt, nil
}

// build sets DTSTART on opt and constructs the rule, so BYDAY/BYHOUR
// defaults derive from dtstart.
func build(opt rrule.ROption, dtstart time.Time, raw string) (*rrule.RRule, error) {
	opt.Dtstart = dtstart
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, errors.Wrapf(err, "recur: build %q", raw)
	}
	return r, nil
}

// seek returns a start no later than from that lies a whole number of
// intervals after dtstart, so iterating from it yields the same instants
// as iterating from dtstart. Rules with COUNT, and monthly or yearly
// rules, keep dtstart: their instance numbering or day defaults depend on
// it.
func seek(opt rrule.ROption, dtstart, from time.Time) time.Time {
	if opt.Count > 0 || !from.After(dtstart) {
		return dtstart
	}
	interval := opt.Interval
	if interval <= 0 {
		interval = 1
	}

	var step time.Duration
	switch opt.Freq {
	case rrule.SECONDLY:
		step = time.Second
	case rrule.MINUTELY:
		step = time.Minute
	case rrule.HOURLY:
		step = time.Hour
	case rrule.DAILY, rrule.WEEKLY:
		days := interval
		if opt.Freq == rrule.WEEKLY {
			days *= 7
		}
		// One period of slack absorbs DST shifts in the day count.
		k := int(from.Sub(dtstart).Hours()/24)/days - 1
		if k <= 0 {
			return dtstart
		}
		return dtstart.AddDate(0, 0, k*days)
	default:
		return dtstart
	}

	step *= time.Duration(interval)
	k := from.Sub(dtstart) / step
	return dtstart.Add(k * step)
}

// Expand returns the occurrences of a recurring event inside rng. The
// sequence is computed lazily; each instance keeps the template duration
// and is keyed by (template id, index within the window). A rule with no
// occurrences in rng yields an empty sequence.
func Expand(ev model.Event, rng Range) (iter.Seq[model.Occurrence], error) {
	if rng.End.Before(rng.Start) {
		return nil, errors.New("recur: range end is before start")
	}
	opt, err := parseOption(ev.Recurrence)
	if err != nil {
		return nil, err
	}

	dur := ev.Duration()
	loc := ev.Start.Location()
	from := rng.Start.In(loc)
	until := rng.End.In(loc)
	limit := rng.limit()

	r, err := build(opt, seek(opt, ev.Start, from), ev.Recurrence)
	if err != nil {
		return nil, err
	}

	return func(yield func(model.Occurrence) bool) {
		next := r.Iterator()
		index := 0
		for {
			start, ok := next()
			if !ok || !start.Before(until) {
				return
			}
			if start.Before(from) {
				continue
			}
			if index >= limit {
				appLog.Warn("recur: occurrence cap reached", "id", ev.ID, "cap", limit)
				return
			}
			occ := model.Occurrence{
				Key:   model.OccurrenceKey{TemplateID: ev.ID, Index: index},
				Event: ev,
				Start: start,
				End:   start.Add(dur),
			}
			index++
			if !yield(occ) {
				return
			}
		}
	}, nil
}

// ExpandAll flattens events into occurrences. Non-recurring events appear
// once with index 0. An event whose rule cannot be parsed is logged and
// passed through unexpanded.
func ExpandAll(events []model.Event, rng Range) iter.Seq[model.Occurrence] {
	return func(yield func(model.Occurrence) bool) {
		for _, ev := range events {
			if ev.Recurring() {
				seq, err := Expand(ev, rng)
				if err == nil {
					for occ := range seq {
						if !yield(occ) {
							return
						}
					}
					continue
				}
				appLog.Error("recur: failed to expand, keeping template", err, "id", ev.ID, "rrule", ev.Recurrence)
			}
			if !yield(single(ev)) {
				return
			}
		}
	}
}

func single(ev model.Event) model.Occurrence {
	return model.Occurrence{
		Key:   model.OccurrenceKey{TemplateID: ev.ID},
		Event: ev,
		Start: ev.Start,
		End:   ev.End,
	}
}
