// Package filtercore wires the content-blocking rule engine together: a
// textual rule goes through the parser into a canonical, interned Filter;
// user code adds Filters to a Subscription owned by a Storage;
// element-hiding filters are mirrored into the ElemHide and
// ElemHideEmulation indices; at match time callers query either the
// network-filter matcher or the element-hiding indices.
package filtercore

import (
	"io"

	"github.com/AdguardTeam/filtercore/elemhide"
	"github.com/AdguardTeam/filtercore/elemhideemulation"
	"github.com/AdguardTeam/filtercore/filter"
	"github.com/AdguardTeam/filtercore/internal/text"
	"github.com/AdguardTeam/filtercore/matchcontext"
	"github.com/AdguardTeam/filtercore/notify"
	"github.com/AdguardTeam/filtercore/regexpsvc"
	"github.com/AdguardTeam/filtercore/subscription"
)

// Engine is the single entry point a host embeds: it owns the filter
// intern table, the subscription storage, the two element-hiding
// indices, and the network-filter match context, and keeps them all in
// sync as filters are added to or removed from subscriptions.
type Engine struct {
	Filters       *filter.Registry
	Subscriptions *subscription.Storage

	elemHide          *elemhide.Index
	elemHideEmulation *elemhideemulation.Index
	network           *matchcontext.Engine

	sink notify.Sink
}

// Config bundles Engine's host-provided collaborators. A zero Config is
// valid: New substitutes regexpsvc.Default() for a nil Regexps and
// notify.NoOp{} for a nil Sink before calling filter.NewRegistry, which
// itself requires both to be non-nil. A nil Fold means no folding.
type Config struct {
	// Regexps compiles and tests network-filter regular expressions. Nil
	// selects regexpsvc.Default().
	Regexps regexpsvc.Service

	// Sink receives notifications for filter and storage mutations, and for
	// mutations of the subscriptions Load creates. A subscription the host
	// builds itself reports to the sink it was built with. Nil selects
	// notify.NoOp{}.
	Sink notify.Sink

	// Fold lowercases non-ASCII code points in element-hiding filters'
	// domain lists while they are parsed. Nil leaves them unchanged.
	Fold text.Folder
}

// New returns an empty Engine built from cfg.
func New(cfg Config) *Engine {
	regexps := cfg.Regexps
	if regexps == nil {
		regexps = regexpsvc.Default()
	}

	sink := cfg.Sink
	if sink == nil {
		sink = notify.NoOp{}
	}

	return &Engine{
		Filters:           filter.NewRegistry(regexps, sink, cfg.Fold),
		Subscriptions:     subscription.NewStorage(sink),
		elemHide:          elemhide.New(),
		elemHideEmulation: elemhideemulation.New(),
		network:           matchcontext.New(),
		sink:              sink,
	}
}

// AddSubscription lists s and mirrors every filter it already carries into
// the engine's match indices, for a subscription built up before it's
// handed to the engine.
func (e *Engine) AddSubscription(s *subscription.Subscription) bool {
	if !e.Subscriptions.AddSubscription(s) {
		return false
	}

	for _, f := range s.Filters() {
		e.index(f)
	}

	return true
}

// RemoveSubscription delists s and drops every filter it carried from the
// match indices, the mirror image of AddSubscription.
func (e *Engine) RemoveSubscription(s *subscription.Subscription) bool {
	if !e.Subscriptions.RemoveSubscription(s) {
		return false
	}

	for _, f := range s.Filters() {
		e.unindex(f)
	}

	return true
}

// AddFilter interns text, appends the resulting Filter to s at position
// (len(s.Filters())), mirrors it into the relevant match index, and
// returns it. ok is false if text doesn't parse to a filter at all (a
// line that is empty after whitespace and control characters are
// stripped, or one over the length limit); s must already be listed in
// e.Subscriptions.
func (e *Engine) AddFilter(s *subscription.Subscription, text string) (f *filter.Filter, ok bool) {
	f, ok = e.Filters.FromText(text)
	if !ok {
		return nil, false
	}

	s.InsertFilterAt(f, len(s.Filters()))
	e.index(f)

	return f, true
}

// RemoveFilter removes f from s and the match indices, releasing e's
// reference to it.
func (e *Engine) RemoveFilter(s *subscription.Subscription, f *filter.Filter) bool {
	i := indexOfFilter(s.Filters(), f)
	if i < 0 {
		return false
	}

	s.RemoveFilterAt(i)
	e.unindex(f)
	f.Release()

	return true
}

func indexOfFilter(filters []*filter.Filter, f *filter.Filter) int {
	for i, existing := range filters {
		if existing == f {
			return i
		}
	}

	return -1
}

// index mirrors f into whichever match index its Type belongs to: RegExp
// filters feed the network matcher, ElemHide and ElemHideException filters
// feed the ElemHide index, and ElemHideEmulation filters feed the
// emulation index. A filter type none of those own (Comment, Invalid) is
// ignored.
func (e *Engine) index(f *filter.Filter) {
	switch {
	case f.Type().Is(filter.RegExp):
		e.network.Add(f)
	case f.Type().Is(filter.ElemHideBase):
		e.elemHide.Add(f)
		e.elemHideEmulation.Add(f)
	}
}

func (e *Engine) unindex(f *filter.Filter) {
	switch {
	case f.Type().Is(filter.RegExp):
		e.network.Remove(f)
	case f.Type().Is(filter.ElemHideBase):
		e.elemHide.Remove(f)
		e.elemHideEmulation.Remove(f)
	}
}

// MatchAll returns every network filter active on the given request
// context.
func (e *Engine) MatchAll(
	location string,
	typeMask filter.ContentType,
	docDomain string,
	thirdParty bool,
	sitekey string,
) []*filter.Filter {
	return e.network.MatchAll(location, typeMask, docDomain, thirdParty, sitekey)
}

// MatchBest is MatchAll followed by matchcontext.RankFilters: the single
// highest-priority network filter active on the request context, or nil.
func (e *Engine) MatchBest(
	location string,
	typeMask filter.ContentType,
	docDomain string,
	thirdParty bool,
	sitekey string,
) *filter.Filter {
	return e.network.MatchBest(location, typeMask, docDomain, thirdParty, sitekey)
}

// ElemHideSelectors returns the element-hiding selectors active on
// docDomain per criteria.
func (e *Engine) ElemHideSelectors(docDomain string, criteria elemhide.Criteria) []string {
	return e.elemHide.GetSelectorsForDomain(docDomain, criteria)
}

// ElemHideEmulationFilters returns the ElemHideEmulation filters active on
// docDomain, suppressed by any matching exception in the main ElemHide
// index.
func (e *Engine) ElemHideEmulationFilters(docDomain string) []*filter.Filter {
	return e.elemHideEmulation.GetRulesForDomain(e.elemHide, docDomain)
}

// Save serializes every subscription e knows about in the plain-text,
// line-oriented wire format.
func (e *Engine) Save(w io.Writer) error {
	return subscription.Write(w, e.Subscriptions)
}

// Load reads subscriptions previously written by Save, interning their
// filters through e.Filters and mirroring each into the match indices. It
// appends to whatever e.Subscriptions already holds. Subscriptions read
// before a malformed section are kept and indexed; the error is still
// reported.
func (e *Engine) Load(r io.Reader) error {
	before := len(e.Subscriptions.Subscriptions())
	err := subscription.Read(r, e.Subscriptions, e.Filters, e.sink)

	for _, s := range e.Subscriptions.Subscriptions()[before:] {
		for _, f := range s.Filters() {
			e.index(f)
		}
	}

	return err
}
