package subscription

import (
	"github.com/AdguardTeam/filtercore/filter"
	"github.com/AdguardTeam/filtercore/notify"
)

// Storage holds the ordered, deduplicated list of subscriptions a host
// has loaded. Storage is a constructible value so tests and multi-profile
// hosts can hold isolated instances; Instance offers the classic
// process-wide singleton for hosts that want one.
type Storage struct {
	subscriptions []*Subscription
	sink          notify.Sink
}

// NewStorage returns an empty Storage reporting changes to sink.
func NewStorage(sink notify.Sink) *Storage {
	return &Storage{sink: sink}
}

var defaultInstance *Storage

// Instance returns the process-wide default Storage, creating it (with a
// no-op sink) on first use. Hosts that want an isolated instance should
// call NewStorage directly instead.
func Instance() *Storage {
	if defaultInstance == nil {
		defaultInstance = NewStorage(notify.NoOp{})
	}

	return defaultInstance
}

// Subscriptions returns the ordered subscription list. The returned slice
// must not be modified by the caller.
func (st *Storage) Subscriptions() []*Subscription { return st.subscriptions }

// IndexOfSubscription returns the position of s, or -1 if it isn't listed.
func (st *Storage) IndexOfSubscription(s *Subscription) int {
	for i, existing := range st.subscriptions {
		if existing == s {
			return i
		}
	}

	return -1
}

// AddSubscription appends s to the list and marks it listed, emitting
// SubscriptionAdded. It reports false without effect if s is already
// listed.
func (st *Storage) AddSubscription(s *Subscription) bool {
	if s.listed {
		return false
	}

	st.subscriptions = append(st.subscriptions, s)
	s.listed = true
	st.sink.Notify(notify.SubscriptionAdded, s)

	return true
}

// RemoveSubscription removes s from the list and marks it unlisted,
// emitting SubscriptionRemoved. It reports false without effect if s
// isn't currently listed.
func (st *Storage) RemoveSubscription(s *Subscription) bool {
	idx := st.IndexOfSubscription(s)
	if idx < 0 {
		return false
	}

	st.subscriptions = append(st.subscriptions[:idx], st.subscriptions[idx+1:]...)
	s.listed = false
	st.sink.Notify(notify.SubscriptionRemoved, s)

	return true
}

// MoveSubscription moves s to just before insertBefore, or to the end if
// insertBefore is nil or not present. It reports false without effect if
// s isn't listed or the position doesn't actually change.
func (st *Storage) MoveSubscription(s *Subscription, insertBefore *Subscription) bool {
	from := st.IndexOfSubscription(s)
	if from < 0 {
		return false
	}

	to := len(st.subscriptions)
	if insertBefore != nil {
		if idx := st.IndexOfSubscription(insertBefore); idx >= 0 {
			to = idx
		}
	}

	// Removing s from `from` shifts every later index left by one; adjust
	// the target accordingly so "to" still names the same logical slot.
	adjustedTo := to
	if to > from {
		adjustedTo--
	}
	if adjustedTo == from {
		return false
	}

	st.subscriptions = append(st.subscriptions[:from], st.subscriptions[from+1:]...)

	if adjustedTo > len(st.subscriptions) {
		adjustedTo = len(st.subscriptions)
	}
	st.subscriptions = append(st.subscriptions, nil)
	copy(st.subscriptions[adjustedTo+1:], st.subscriptions[adjustedTo:])
	st.subscriptions[adjustedTo] = s

	st.sink.Notify(notify.SubscriptionMoved, s)

	return true
}

// GetSubscriptionForFilter returns the first UserDefined subscription for
// which IsDefaultFor(f) is true, else the first UserDefined subscription
// that is generic (defaults == 0), else nil.
func (st *Storage) GetSubscriptionForFilter(f *filter.Filter) *Subscription {
	var fallback *Subscription

	for _, s := range st.subscriptions {
		if s.downloadable {
			continue
		}

		if s.IsDefaultFor(f) {
			return s
		}

		if fallback == nil && s.defaults == 0 {
			fallback = s
		}
	}

	return fallback
}
