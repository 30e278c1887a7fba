package store

import (
	"slices"
	"strings"

	"github.com/pkg/errors"

	"socialcal/internal/filter"
	appLog "socialcal/internal/log"
	"socialcal/internal/model"
)

func (s *State) Subscriptions() []model.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.subs)
}

// FollowedCount is the number of followed subscriptions.
func (s *State) FollowedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sub := range s.subs {
		if sub.Followed {
			n++
		}
	}
	return n
}

// ToggleFollow flips the followed flag of a subscription. After the flip,
// linked events whose source is not followed are dropped, and a source
// filter naming an unfollowed source is reset to all.
func (s *State) ToggleFollow(id int) (model.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.subscriptionIndex(id)
	if i < 0 {
		return model.Subscription{}, errors.Wrapf(model.ErrNotFound, "subscription %d", id)
	}
	subs := slices.Clone(s.subs)
	subs[i].Followed = !subs[i].Followed
	s.subs = subs

	followed := s.followedSources()
	before := len(s.events)
	s.events = without(s.events, func(ev model.Event) bool {
		_, ok := followed[ev.Source]
		return ev.Source != "" && !ok
	})

	if src := s.criteria.Source; src != "" && src != filter.All && src != filter.Personal {
		if _, ok := followed[src]; !ok {
			s.criteria.Source = filter.All
		}
	}

	appLog.Info("subscription toggled", "name", subs[i].Name, "followed", subs[i].Followed, "pruned", before-len(s.events))
	return subs[i], nil
}

// RenameSubscription changes a source name and rewrites the label on
// every linked event and catalog entry that references it.
func (s *State) RenameSubscription(id int, name string) (model.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return model.Subscription{}, errors.Wrap(model.ErrValidation, "subscription name cannot be empty")
	}
	i := s.subscriptionIndex(id)
	if i < 0 {
		return model.Subscription{}, errors.Wrapf(model.ErrNotFound, "subscription %d", id)
	}
	if j := s.subscriptionByName(name); j >= 0 && j != i {
		return model.Subscription{}, errors.Wrapf(model.ErrValidation, "subscription %q already exists", name)
	}

	old := s.subs[i].Name
	subs := slices.Clone(s.subs)
	subs[i].Name = name
	s.subs = subs

	events := cloneEvents(s.events)
	for k := range events {
		if events[k].SubscriptionID == id || (events[k].SubscriptionID == 0 && events[k].Source == old) {
			events[k].Source = name
			events[k].SubscriptionID = id
		}
	}
	s.events = events

	public := slices.Clone(s.public)
	for k := range public {
		if public[k].Source == old {
			public[k].Source = name
		}
	}
	s.public = public

	if s.criteria.Source == old {
		s.criteria.Source = name
	}
	return subs[i], nil
}

// PublicEvents returns the catalog entries of followed sources.
func (s *State) PublicEvents() []model.PublicEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	followed := s.followedSources()
	out := make([]model.PublicEvent, 0, len(s.public))
	for _, pe := range s.public {
		if _, ok := followed[pe.Source]; ok {
			out = append(out, pe)
		}
	}
	return out
}

// PublicEventsBySource groups the followed catalog by source label.
func (s *State) PublicEventsBySource() map[string][]model.PublicEvent {
	out := make(map[string][]model.PublicEvent)
	for _, pe := range s.PublicEvents() {
		out[pe.Source] = append(out[pe.Source], pe)
	}
	return out
}

// AddPublicEvents appends catalog entries, numbering them.
func (s *State) AddPublicEvents(evs []model.PublicEvent) []model.PublicEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := s.numberPublic(evs)
	s.public = slices.Concat(s.public, added)
	return slices.Clone(added)
}

// ReplacePublicEvents swaps every catalog entry of source for evs. Likes
// on removed entries are dropped.
func (s *State) ReplacePublicEvents(source string, evs []model.PublicEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := without(s.public, func(pe model.PublicEvent) bool {
		if pe.Source != source {
			return false
		}
		delete(s.liked, pe.ID)
		return true
	})
	fresh := slices.Clone(evs)
	for i := range fresh {
		fresh[i].Source = source
	}
	s.public = slices.Concat(kept, s.numberPublic(fresh))
}

// DeletePublicEvent removes a catalog entry and its like.
func (s *State) DeletePublicEvent(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.publicIndex(id) < 0 {
		return false
	}
	s.public = without(s.public, func(pe model.PublicEvent) bool { return pe.ID == id })
	delete(s.liked, id)
	return true
}

// ToggleLike flips the liked state of a catalog entry and returns the new
// state.
func (s *State) ToggleLike(id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.publicIndex(id) < 0 {
		return false, errors.Wrapf(model.ErrNotFound, "public event %d", id)
	}
	_, was := s.liked[id]
	if was {
		delete(s.liked, id)
	} else {
		s.liked[id] = struct{}{}
	}
	return !was, nil
}

func (s *State) IsLiked(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.liked[id]
	return ok
}

func (s *State) LikedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.liked)
}

// numberPublic assigns sequential IDs. Callers hold the write lock (or
// are the constructor).
func (s *State) numberPublic(evs []model.PublicEvent) []model.PublicEvent {
	out := make([]model.PublicEvent, len(evs))
	for i, pe := range evs {
		pe.ID = s.nextPublicID
		s.nextPublicID++
		if pe.DateAdded.IsZero() {
			pe.DateAdded = s.now()
		}
		out[i] = pe
	}
	return out
}

func (s *State) followedSources() map[string]struct{} {
	out := make(map[string]struct{})
	for _, sub := range s.subs {
		if sub.Followed {
			out[sub.Name] = struct{}{}
		}
	}
	return out
}

func (s *State) publicIndex(id int) int {
	return slices.IndexFunc(s.public, func(pe model.PublicEvent) bool { return pe.ID == id })
}

func (s *State) subscriptionIndex(id int) int {
	return slices.IndexFunc(s.subs, func(sub model.Subscription) bool { return sub.ID == id })
}

func (s *State) subscriptionByName(name string) int {
	return slices.IndexFunc(s.subs, func(sub model.Subscription) bool { return sub.Name == name })
}
