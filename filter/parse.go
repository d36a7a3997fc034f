package filter

import "github.com/AdguardTeam/filtercore/internal/text"

// FromText normalizes whitespace, classifies the rule, and interns the
// canonical result. Two calls with equal canonical text return the
// identical *Filter, each holding its own reference; callers must Release
// what they no longer need.
//
// FromText reports ok=false only when the normalized text is empty (a
// blank or whitespace/control-only line carries no rule) or exceeds the
// length ceiling; such text produces no Filter at all.
func (r *Registry) FromText(raw string) (*Filter, bool) {
	normalized, lenOK := text.NormalizeWhitespace(raw)
	if !lenOK || normalized == "" {
		return nil, false
	}

	if existing, hit := r.interned.Find(normalized); hit {
		existing.refCount++

		return existing, true
	}

	if normalized[0] == '!' {
		return r.intern(normalized, func() *Filter {
			return &Filter{text: normalized, typ: Comment}
		}), true
	}

	if typ, canonical, reason, data, matched := parseElemHideBase(normalized, r.fold); matched {
		return r.intern(canonical, func() *Filter {
			ehf := &Filter{text: canonical, typ: typ, reason: reason}
			if typ != Invalid {
				ehf.elemHide = &data
				ehf.active = &activeData{
					domains: buildDomainsMap(splitNonEmpty(canonical[:data.domainsEnd], ',')),
				}
			}

			return ehf
		}), true
	}

	typ, canonical, reason, data, active := parseRegExpFilter(normalized, r.regexps)

	return r.intern(canonical, func() *Filter {
		f := &Filter{
			text:   canonical,
			typ:    typ,
			reason: reason,
		}
		if typ != Invalid {
			f.regexp = &data
			f.active = active
		}

		return f
	}), true
}
