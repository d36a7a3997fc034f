package filter

import (
	"strings"

	"github.com/AdguardTeam/filtercore/notify"
)

// buildDomainsMap turns a list of (possibly "~"-prefixed) lower-cased
// domain tokens into the domains map: "" holds the default verdict, which
// is exclude as soon as any include is present (an include list matches
// only what it names) and include otherwise (an exclude-only list matches
// everywhere but what it names).
func buildDomainsMap(tokens []string) map[string]bool {
	if len(tokens) == 0 {
		return nil
	}

	m := make(map[string]bool, len(tokens)+1)
	hasInclude := false

	for _, tok := range tokens {
		if tok == "" {
			continue
		}

		include := true
		if tok[0] == '~' {
			include = false
			tok = tok[1:]
		}
		if tok == "" {
			continue
		}

		m[tok] = include
		if include {
			hasInclude = true
		}
	}

	m[""] = !hasInclude

	return m
}

// splitNonEmpty splits s on sep, dropping empty tokens (the grammar allows
// "a,,b" and stray separators from parser-level space stripping).
func splitNonEmpty(s string, sep byte) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, string(sep))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

// buildSitekeys turns a pipe-separated sitekey list into a set. Nil means
// "no sitekey restriction", matching activeData.sitekeys' zero value.
func buildSitekeys(tokens []string) map[string]struct{} {
	if len(tokens) == 0 {
		return nil
	}

	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t != "" {
			m[t] = struct{}{}
		}
	}
	if len(m) == 0 {
		return nil
	}

	return m
}

// Disabled reports whether the filter is currently disabled. Only
// Active-family filters can be disabled; others always report false.
func (f *Filter) Disabled() bool {
	return f.active != nil && f.active.disabled
}

// SetDisabled sets the filter's disabled flag, emitting FilterDisabled to
// the owning registry's sink if the value actually changed.
func (f *Filter) SetDisabled(disabled bool) {
	if f.active == nil || f.active.disabled == disabled {
		return
	}

	f.active.disabled = disabled
	f.notify(notify.FilterDisabled)
}

// HitCount returns the number of hits recorded through IncrementHitCount.
// Matches itself does not record hits.
func (f *Filter) HitCount() int {
	if f.active == nil {
		return 0
	}

	return f.active.hitCount
}

// LastHit returns the Unix timestamp of the most recent recorded hit, or 0
// if none has been recorded.
func (f *Filter) LastHit() int64 {
	if f.active == nil {
		return 0
	}

	return f.active.lastHit
}

// IncrementHitCount bumps the hit counter and records now as the last-hit
// timestamp, emitting FilterHitCount and FilterLastHit. The engine never
// reads a clock itself; hosts call this from their own match-reporting
// path with their own notion of now.
func (f *Filter) IncrementHitCount(now int64) {
	if f.active == nil {
		return
	}

	f.active.hitCount++
	f.notify(notify.FilterHitCount)

	f.active.lastHit = now
	f.notify(notify.FilterLastHit)
}

// ResetHitCount zeroes the hit counter and last-hit timestamp.
func (f *Filter) ResetHitCount() {
	if f.active == nil || (f.active.hitCount == 0 && f.active.lastHit == 0) {
		return
	}

	f.active.hitCount = 0
	f.notify(notify.FilterHitCount)

	f.active.lastHit = 0
	f.notify(notify.FilterLastHit)
}

// RestoreState reinstates persisted disabled/hit state without emitting
// notifications. Deserialization replays recorded history rather than
// observing new mutations, so sinks don't hear about it.
func (f *Filter) RestoreState(disabled bool, hitCount int, lastHit int64) {
	if f.active == nil {
		return
	}

	f.active.disabled = disabled
	f.active.hitCount = hitCount
	f.active.lastHit = lastHit
}

func (f *Filter) notify(topic notify.Topic) {
	if f.registry != nil {
		f.registry.sink.Notify(topic, f)
	}
}

// IsActiveOnDomain reports whether the filter applies on docDomain under
// sitekey: sitekey restriction first, then the domains-map suffix walk,
// falling back to the default ("") entry.
func (f *Filter) IsActiveOnDomain(docDomain, sitekey string) bool {
	if f.active == nil {
		return false
	}

	if f.active.sitekeys != nil {
		if _, ok := f.active.sitekeys[sitekey]; !ok {
			return false
		}
	}

	if f.active.domains == nil {
		return true
	}

	if docDomain == "" {
		return f.active.domains[""]
	}

	docDomain = strings.ToLower(docDomain)
	if f.typ.Is(ElemHideBase) {
		docDomain = strings.TrimSuffix(docDomain, ".")
	}

	for {
		if v, ok := f.active.domains[docDomain]; ok {
			return v
		}

		idx := strings.IndexByte(docDomain, '.')
		if idx < 0 {
			break
		}
		docDomain = docDomain[idx+1:]
	}

	return f.active.domains[""]
}

// IsActiveOnlyOnDomain reports whether the filter is restricted to
// docDomain: docDomain is non-empty, the default verdict is exclude, and
// every include-domain is docDomain itself or one of its subdomains.
func (f *Filter) IsActiveOnlyOnDomain(docDomain string) bool {
	if f.active == nil || docDomain == "" || f.active.domains == nil {
		return false
	}

	if f.active.domains[""] {
		return false
	}

	docDomain = strings.ToLower(docDomain)
	suffix := "." + docDomain

	for d, include := range f.active.domains {
		if d == "" || !include {
			continue
		}
		if d != docDomain && !strings.HasSuffix(d, suffix) {
			return false
		}
	}

	return true
}

// Domains returns the filter's raw domain-verdict map (including the ""
// default entry), or nil if the filter has no domain restriction at all.
// Callers must treat the returned map as read-only.
func (f *Filter) Domains() map[string]bool {
	if f.active == nil {
		return nil
	}

	return f.active.domains
}

// Sitekeys returns the filter's sitekey restriction set, or nil if the
// filter has none. Callers must treat the returned map as read-only.
func (f *Filter) Sitekeys() map[string]struct{} {
	if f.active == nil {
		return nil
	}

	return f.active.sitekeys
}

// IsGeneric reports whether the filter has neither a sitekey restriction
// nor any include-domain.
func (f *Filter) IsGeneric() bool {
	if f.active == nil {
		return true
	}

	if f.active.sitekeys != nil {
		return false
	}

	if f.active.domains == nil {
		return true
	}

	return f.active.domains[""]
}
