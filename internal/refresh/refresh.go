// Package refresh keeps the public catalog in sync with subscription
// feeds.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"socialcal/internal/ics"
	appLog "socialcal/internal/log"
	"socialcal/internal/model"
)

// Fetcher retrieves a feed body; *ics.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, feed ics.Feed) (ics.FetchResult, error)
}

// Catalog is the part of the state a refresh writes to.
type Catalog interface {
	Subscriptions() []model.Subscription
	ReplacePublicEvents(source string, evs []model.PublicEvent)
	Now() time.Time
}

// Report summarises one refresh run.
type Report struct {
	Feeds  int            `json:"feeds"`
	Events map[string]int `json:"events"`
	Errors []string       `json:"errors,omitempty"`
}

type Refresher struct {
	fetcher Fetcher
	catalog Catalog
	loc     *time.Location

	// mu serialises runs so cron and on-demand refreshes never interleave.
	mu sync.Mutex
}

func New(f Fetcher, c Catalog, loc *time.Location) *Refresher {
	if loc == nil {
		loc = time.UTC
	}
	return &Refresher{fetcher: f, catalog: c, loc: loc}
}

// Run refreshes every subscription that has a feed URL. A failing feed is
// logged and reported; its existing catalog entries are left alone.
func (r *Refresher) Run(ctx context.Context) Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := Report{Events: make(map[string]int)}
	for _, sub := range r.catalog.Subscriptions() {
		if sub.URL == "" {
			continue
		}
		rep.Feeds++

		n, err := r.refreshOne(ctx, sub)
		if err != nil {
			appLog.Error("refresh: feed failed", err, "source", sub.Name)
			rep.Errors = append(rep.Errors, sub.Name+": "+err.Error())
			continue
		}
		rep.Events[sub.Name] = n
	}
	appLog.Info("refresh completed", "feeds", rep.Feeds, "failed", len(rep.Errors))
	return rep
}

func (r *Refresher) refreshOne(ctx context.Context, sub model.Subscription) (int, error) {
	res, err := r.fetcher.Fetch(ctx, ics.Feed{Name: sub.Name, URL: sub.URL})
	if err != nil {
		return 0, errors.Wrap(err, "fetch")
	}
	parsed, err := ics.Parse(res.Body, r.loc)
	if err != nil {
		return 0, errors.Wrap(err, "parse")
	}
	pub := ics.ToPublicEvents(sub.Name, parsed, r.catalog.Now())
	r.catalog.ReplacePublicEvents(sub.Name, pub)
	return len(pub), nil
}

// Schedule registers Run on a cron spec and returns the started scheduler.
// The caller stops it.
func (r *Refresher) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { r.Run(ctx) }); err != nil {
		return nil, errors.Wrapf(err, "refresh: invalid schedule %q", spec)
	}
	c.Start()
	appLog.Info("refresh scheduled", "spec", spec)
	return c, nil
}
