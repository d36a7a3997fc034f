// Package subscription implements subscriptions, ordered named
// containers of filters, and the storage that owns the list of
// subscriptions a host has loaded.
package subscription

import (
	"fmt"
	"strings"

	"github.com/AdguardTeam/filtercore/filter"
	"github.com/AdguardTeam/filtercore/internal/hashset"
	"github.com/AdguardTeam/filtercore/notify"
)

// DefaultCategory is a bitmask over the filter-type buckets a
// UserDefinedSubscription can claim as the preferred home for new filters.
type DefaultCategory int

const (
	DefaultBlocking DefaultCategory = 1 << iota
	DefaultWhitelist
	DefaultElemHide
)

// categoryOf maps a filter's Type to the DefaultCategory it belongs to,
// or 0 (no category) for Comment and Invalid filters.
func categoryOf(f *filter.Filter) DefaultCategory {
	switch {
	case f.Type().Is(filter.Blocking):
		return DefaultBlocking
	case f.Type().Is(filter.Whitelist):
		return DefaultWhitelist
	case f.Type().Is(filter.ElemHideBase):
		return DefaultElemHide
	default:
		return 0
	}
}

// Subscription is an ordered, named container of filters. It comes in two
// variants, distinguished by Downloadable(): UserDefined subscriptions are
// written to directly by a host UI; Downloadable subscriptions are
// populated by an external downloader this package never talks to.
type Subscription struct {
	id         string
	title      string
	fixedTitle bool
	disabled   bool
	listed     bool
	filters    []*filter.Filter

	downloadable bool
	defaults     DefaultCategory // UserDefined only

	// Downloadable-only metadata. None of it affects matching.
	homepage        string
	expires         int64
	lastCheck       int64
	lastDownload    int64
	lastSuccess     int64
	errorCount      int
	dataRevision    int64
	requiredVersion string
	downloadCount   int
	downloadStatus  string

	sink notify.Sink
}

// newSubscription builds the common Subscription fields. sink may be
// notify.NoOp{} if the host doesn't care about change notifications.
func newSubscription(id string, sink notify.Sink) *Subscription {
	return &Subscription{id: id, title: id, sink: sink}
}

var anonCounter int

// NewUserDefinedSubscription returns a UserDefined subscription. If id is
// "", an anonymous id of the form "~user~N" is generated.
func NewUserDefinedSubscription(id string, sink notify.Sink) *Subscription {
	if id == "" {
		anonCounter++
		id = fmt.Sprintf("~user~%d", anonCounter)
	}

	return newSubscription(id, sink)
}

// NewDownloadableSubscription returns a Downloadable subscription with the
// given URL-like id and homepage.
func NewDownloadableSubscription(id, homepage string, sink notify.Sink) *Subscription {
	s := newSubscription(id, sink)
	s.downloadable = true
	s.homepage = homepage

	return s
}

// ID returns the subscription's identity, a URL-like string.
func (s *Subscription) ID() string { return s.id }

// Downloadable reports whether this is a Downloadable subscription, as
// opposed to UserDefined.
func (s *Subscription) Downloadable() bool { return s.downloadable }

// Listed reports whether the subscription currently appears in a
// FilterStorage's ordered list.
func (s *Subscription) Listed() bool { return s.listed }

// Title returns the subscription's display title.
func (s *Subscription) Title() string { return s.title }

// SetTitle updates the title, emitting SubscriptionTitle if it changed.
func (s *Subscription) SetTitle(title string) {
	if s.title == title {
		return
	}

	s.title = title
	s.sink.Notify(notify.SubscriptionTitle, s)
}

// FixedTitle reports whether the title is pinned, i.e. a downloader must
// not overwrite it with the title the list publishes.
func (s *Subscription) FixedTitle() bool { return s.fixedTitle }

// SetFixedTitle pins or unpins the title, emitting SubscriptionFixedTitle
// if the value changed.
func (s *Subscription) SetFixedTitle(fixed bool) {
	if s.fixedTitle == fixed {
		return
	}

	s.fixedTitle = fixed
	s.sink.Notify(notify.SubscriptionFixedTitle, s)
}

// SetHomepage updates the homepage, emitting SubscriptionHomepage if it
// changed.
func (s *Subscription) SetHomepage(homepage string) {
	if s.homepage == homepage {
		return
	}

	s.homepage = homepage
	s.sink.Notify(notify.SubscriptionHomepage, s)
}

// Disabled reports whether the subscription is disabled.
func (s *Subscription) Disabled() bool { return s.disabled }

// SetDisabled updates the disabled flag, emitting SubscriptionDisabled if
// it changed.
func (s *Subscription) SetDisabled(disabled bool) {
	if s.disabled == disabled {
		return
	}

	s.disabled = disabled
	s.sink.Notify(notify.SubscriptionDisabled, s)
}

// SetDefaults sets the UserDefined default-category bitmask. It's a no-op
// on a Downloadable subscription.
func (s *Subscription) SetDefaults(defaults DefaultCategory) {
	if s.downloadable {
		return
	}

	s.defaults = defaults
}

// IsDefaultFor reports whether f's category bit is set in this
// (UserDefined) subscription's defaults bitmask. Always false on a
// Downloadable subscription.
func (s *Subscription) IsDefaultFor(f *filter.Filter) bool {
	if s.downloadable {
		return false
	}

	cat := categoryOf(f)

	return cat != 0 && s.defaults&cat != 0
}

// Homepage, LastCheck, LastDownload, LastSuccess, ErrorCount, DataRevision,
// RequiredVersion, DownloadCount and DownloadStatus expose Downloadable
// metadata, for a host UI to render subscription state.
func (s *Subscription) Homepage() string { return s.homepage }
func (s *Subscription) Expires() int64 { return s.expires }
func (s *Subscription) LastCheck() int64 { return s.lastCheck }
func (s *Subscription) LastDownload() int64 { return s.lastDownload }
func (s *Subscription) LastSuccess() int64 { return s.lastSuccess }
func (s *Subscription) ErrorCount() int { return s.errorCount }
func (s *Subscription) DataRevision() int64 { return s.dataRevision }
func (s *Subscription) RequiredVersion() string { return s.requiredVersion }
func (s *Subscription) DownloadCount() int { return s.downloadCount }
func (s *Subscription) DownloadStatus() string { return s.downloadStatus }

// SetLastCheck, SetLastDownload and SetDownloadStatus mutate Downloadable
// metadata, emitting the matching notification topic. A host's downloader
// calls these as it progresses.
func (s *Subscription) SetLastCheck(t int64) {
	s.lastCheck = t
	s.sink.Notify(notify.SubscriptionLastCheck, s)
}

// SetExpires records when the downloaded data goes stale. There is no
// notification topic bound to this field, so nothing is emitted.
func (s *Subscription) SetExpires(t int64) {
	s.expires = t
}

func (s *Subscription) SetLastDownload(t int64) {
	s.lastDownload = t
	s.sink.Notify(notify.SubscriptionLastDownload, s)
}

func (s *Subscription) SetDownloadStatus(status string) {
	s.downloadStatus = status
	s.sink.Notify(notify.SubscriptionDownloadStatus, s)
}

// SetErrorCount sets the error counter, emitting SubscriptionErrors.
func (s *Subscription) SetErrorCount(n int) {
	s.errorCount = n
	s.sink.Notify(notify.SubscriptionErrors, s)
}

// Filters returns the subscription's filters in order. The returned slice
// must not be modified by the caller.
func (s *Subscription) Filters() []*filter.Filter { return s.filters }

// FilterCount returns the number of filters the subscription holds.
func (s *Subscription) FilterCount() int { return len(s.filters) }

// IndexOfFilter returns the position of f within the subscription, or -1
// if absent. The signed-int form is the natural argument to
// InsertFilterAt/RemoveFilterAt; FindFilter is the (int, bool)
// alternative.
func (s *Subscription) IndexOfFilter(f *filter.Filter) int {
	for i, existing := range s.filters {
		if existing == f {
			return i
		}
	}

	return -1
}

// FindFilter is IndexOfFilter's (int, bool) counterpart.
func (s *Subscription) FindFilter(f *filter.Filter) (pos int, ok bool) {
	i := s.IndexOfFilter(f)

	return i, i >= 0
}

// InsertFilterAt inserts f at pos, clamping pos to the current length.
// While the subscription is listed, it emits FilterAdded with (f, s, pos).
func (s *Subscription) InsertFilterAt(f *filter.Filter, pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(s.filters) {
		pos = len(s.filters)
	}

	s.filters = append(s.filters, nil)
	copy(s.filters[pos+1:], s.filters[pos:])
	s.filters[pos] = f

	if s.listed {
		s.sink.Notify(notify.FilterAdded, FilterEvent{f, s, pos})
	}
}

// RemoveFilterAt removes the filter at pos, a no-op if pos is out of
// range. While the subscription is listed, it emits FilterRemoved with
// (f, s, pos).
func (s *Subscription) RemoveFilterAt(pos int) {
	if pos < 0 || pos >= len(s.filters) {
		return
	}

	f := s.filters[pos]
	s.filters = append(s.filters[:pos], s.filters[pos+1:]...)

	if s.listed {
		s.sink.Notify(notify.FilterRemoved, FilterEvent{f, s, pos})
	}
}

// FilterEvent is the subject payload for FilterAdded/FilterRemoved
// notifications: the filter, its subscription, and its position.
type FilterEvent struct {
	Filter       *filter.Filter
	Subscription *Subscription
	Position     int
}

// Registry is an intern table for Subscriptions, keyed by id, symmetric
// to filter.Registry.
type Registry struct {
	interned *hashset.Map[*Subscription]
	sink     notify.Sink
}

// NewRegistry returns an empty subscription Registry.
func NewRegistry(sink notify.Sink) *Registry {
	return &Registry{interned: hashset.New[*Subscription](64), sink: sink}
}

// FromID returns the interned Subscription for id, creating a new
// Downloadable one if absent. Unlike filter.Registry.FromText, this
// intern table isn't refcounted: FilterStorage, not individual callers,
// owns Subscription lifetime.
func (r *Registry) FromID(id string) *Subscription {
	if s, ok := r.interned.Find(id); ok {
		return s
	}

	s := NewDownloadableSubscription(id, "", r.sink)
	r.interned.Insert(id, s)

	return s
}

// NewAnonymousUserDefined returns a new UserDefined subscription with a
// generated id, interning it under that id.
func (r *Registry) NewAnonymousUserDefined() *Subscription {
	s := NewUserDefinedSubscription("", r.sink)
	r.interned.Insert(s.id, s)

	return s
}

// String renders a Subscription for logging.
func (s *Subscription) String() string {
	var b strings.Builder
	b.WriteString(s.id)
	if s.title != "" && s.title != s.id {
		b.WriteString(" (")
		b.WriteString(s.title)
		b.WriteByte(')')
	}

	return b.String()
}
