package config

import (
	"time"

	appLog "socialcal/internal/log"
	"socialcal/internal/model"
	"socialcal/internal/store"
)

// Seed converts the configured calendars, subscriptions and public
// catalog into the initial store content. Catalog entries with an
// unparseable date are logged and skipped.
func (c *Config) Seed() store.Seed {
	var seed store.Seed

	for _, cc := range c.Calendars {
		seed.Calendars = append(seed.Calendars, model.PersonalCalendar{
			Name:        cc.Name,
			Color:       cc.Color,
			Permissions: model.Permissions{View: []string{}, Edit: []string{}},
		})
	}

	for _, sc := range c.Subscriptions {
		seed.Subscriptions = append(seed.Subscriptions, model.Subscription{
			Name:     sc.Name,
			URL:      sc.URL,
			Followed: sc.Followed,
			Color:    sc.Color,
		})
	}

	for _, pc := range c.PublicEvents {
		date, err := time.Parse(time.RFC3339, pc.Date)
		if err != nil {
			appLog.Warn("skipping public event with invalid date", "title", pc.Title, "date", pc.Date)
			continue
		}
		pe := model.PublicEvent{
			Title:    pc.Title,
			Date:     date,
			Source:   pc.Source,
			Type:     model.EventType(pc.Type),
			Location: pc.Location,
			WebLink:  pc.WebLink,
		}
		if !pe.Type.Valid() {
			pe.Type = model.TypePost
		}
		if pc.DateAdded != "" {
			if added, err := time.Parse(time.RFC3339, pc.DateAdded); err == nil {
				pe.DateAdded = added
			}
		}
		seed.PublicEvents = append(seed.PublicEvents, pe)
	}
	return seed
}
