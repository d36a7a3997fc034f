// Package matchcontext ties the filter package's per-filter Matches
// predicate to the caller-facing query: given a navigation context
// (location, content-type mask, document domain, third-party flag,
// sitekey), which network filters apply.
//
// Engine is deliberately a linear scan over the filters active on a
// document, with no token index over patterns: rule sets a single
// document activates are small, and per-filter activation (domains,
// sitekeys, content types) prunes the scan before any pattern runs.
package matchcontext

import "github.com/AdguardTeam/filtercore/filter"

// Engine holds the set of RegExp (network) filters active on a document
// and answers Matches-style queries against all of them.
type Engine struct {
	filters []*filter.Filter
}

// New returns an empty Engine.
func New() *Engine {
	return &Engine{}
}

// Add indexes f if it's a network (Blocking or Whitelist) filter; other
// types are ignored, since Engine only ever answers network-filter
// queries.
func (e *Engine) Add(f *filter.Filter) {
	if !f.Type().Is(filter.RegExp) {
		return
	}

	e.filters = append(e.filters, f)
}

// Remove drops f from the engine, a no-op if it isn't present.
func (e *Engine) Remove(f *filter.Filter) {
	for i, existing := range e.filters {
		if existing == f {
			e.filters = append(e.filters[:i], e.filters[i+1:]...)

			return
		}
	}
}

// MatchAll returns every filter active on the given request context, in
// the order they were added.
func (e *Engine) MatchAll(
	location string,
	typeMask filter.ContentType,
	docDomain string,
	thirdParty bool,
	sitekey string,
) []*filter.Filter {
	var result []*filter.Filter
	for _, f := range e.filters {
		if f.Matches(location, typeMask, docDomain, thirdParty, sitekey) {
			result = append(result, f)
		}
	}

	return result
}

// MatchBest returns the single highest-priority match for the request
// context, or nil if none apply. It's MatchAll followed by RankFilters.
func (e *Engine) MatchBest(
	location string,
	typeMask filter.ContentType,
	docDomain string,
	thirdParty bool,
	sitekey string,
) *filter.Filter {
	return RankFilters(e.MatchAll(location, typeMask, docDomain, thirdParty, sitekey))
}

// RankFilters picks the highest-priority filter among candidates, or nil
// if candidates is empty. A Whitelist match always beats a Blocking
// match; among same-polarity matches, a non-generic filter (one with an
// include-domain or a sitekey restriction, see filter.Filter.IsGeneric)
// beats a generic one; ties keep whichever candidate was seen first.
func RankFilters(candidates []*filter.Filter) *filter.Filter {
	var best *filter.Filter

	for _, f := range candidates {
		if best == nil || isHigherPriority(f, best) {
			best = f
		}
	}

	return best
}

func isHigherPriority(a, b *filter.Filter) bool {
	aWhitelist := a.Type() == filter.Whitelist
	bWhitelist := b.Type() == filter.Whitelist
	if aWhitelist != bWhitelist {
		return aWhitelist
	}

	aGeneric := a.IsGeneric()
	bGeneric := b.IsGeneric()
	if aGeneric != bGeneric {
		return !aGeneric
	}

	return false
}
