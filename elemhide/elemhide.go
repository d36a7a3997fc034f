// Package elemhide implements the element-hiding index: a domain-keyed
// selector lookup over ElemHide/ElemHideException filters, with an
// "unconditional" fast path for selectors that carry no domain restriction
// and have no exception registered for them when added.
package elemhide

import (
	"strings"

	"github.com/AdguardTeam/filtercore/filter"
	"golang.org/x/exp/slices"
)

// Criteria selects which subset of GetSelectorsForDomain's result to
// build.
type Criteria int

const (
	// AllMatching returns the unconditional selectors followed by every
	// domain-specific selector active on the queried domain.
	AllMatching Criteria = iota
	// NoUnconditional skips the unconditional fast path, returning only
	// domain-specific selectors.
	NoUnconditional
	// SpecificOnly is like NoUnconditional but additionally excludes the
	// empty-suffix ("default") bucket from the walk.
	SpecificOnly
)

// Index is the ElemHide lookup structure. The zero value is not usable;
// construct with New.
type Index struct {
	filters map[string]*filter.Filter

	filtersByDomain map[string]map[string]*filter.Filter

	exceptions      map[string][]*filter.Filter
	knownExceptions map[string]struct{}

	unconditionalSelectors map[string]*filter.Filter
	unconditionalCache     []string
	unconditionalCacheSet  bool
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		filters:                make(map[string]*filter.Filter),
		filtersByDomain:        make(map[string]map[string]*filter.Filter),
		exceptions:             make(map[string][]*filter.Filter),
		knownExceptions:        make(map[string]struct{}),
		unconditionalSelectors: make(map[string]*filter.Filter),
	}
}

// invalidateUnconditionalCache drops the memoized unconditional-selectors
// slice. It must be called on every mutation that adds to or removes from
// unconditionalSelectors.
func (idx *Index) invalidateUnconditionalCache() {
	idx.unconditionalCache = nil
	idx.unconditionalCacheSet = false
}

// Add indexes f, which must be an ElemHide or ElemHideException filter.
// ElemHideEmulation filters are out of scope for this index (they have
// their own flat index in package elemhideemulation) and are ignored
// here; exceptions still apply to them through GetException, which any
// selector-keyed lookup (including one driven by the emulation index) can
// call.
func (idx *Index) Add(f *filter.Filter) {
	switch f.Type() {
	case filter.ElemHideException:
		idx.addException(f)
	case filter.ElemHide:
		idx.addFilter(f)
	}
}

func (idx *Index) addException(f *filter.Filter) {
	text := f.Text()
	if _, known := idx.knownExceptions[text]; known {
		return
	}
	idx.knownExceptions[text] = struct{}{}

	selector := f.Selector()
	idx.exceptions[selector] = append(idx.exceptions[selector], f)

	if demoted, ok := idx.unconditionalSelectors[selector]; ok {
		delete(idx.unconditionalSelectors, selector)
		idx.invalidateUnconditionalCache()
		idx.fanOutToDomains(demoted)
	}
}

func (idx *Index) addFilter(f *filter.Filter) {
	text := f.Text()
	if _, exists := idx.filters[text]; exists {
		return
	}
	idx.filters[text] = f

	selector := f.Selector()
	if f.Domains() == nil && len(idx.exceptions[selector]) == 0 {
		idx.unconditionalSelectors[selector] = f
		idx.invalidateUnconditionalCache()

		return
	}

	idx.fanOutToDomains(f)
}

// fanOutToDomains indexes f under every domain it mentions. An
// include-domain maps to f itself; an exclude-domain maps to nil, meaning
// "excluded here". A filter with no domain restriction at all (nil
// Domains()) only reaches here once an exception has demoted it out of
// unconditionalSelectors; it's indexed under the "" default bucket alone,
// so every domain's suffix walk still reaches it and can apply
// GetException per query domain.
func (idx *Index) fanOutToDomains(f *filter.Filter) {
	domains := f.Domains()
	if domains == nil {
		idx.indexUnderDomain("", f, true)

		return
	}

	for domain, include := range domains {
		idx.indexUnderDomain(domain, f, include)
	}
}

func (idx *Index) indexUnderDomain(domain string, f *filter.Filter, include bool) {
	bucket, ok := idx.filtersByDomain[domain]
	if !ok {
		bucket = make(map[string]*filter.Filter)
		idx.filtersByDomain[domain] = bucket
	}

	if include {
		bucket[f.Text()] = f
	} else {
		bucket[f.Text()] = nil
	}
}

// Remove reverses Add.
func (idx *Index) Remove(f *filter.Filter) {
	switch f.Type() {
	case filter.ElemHideException:
		idx.removeException(f)
	case filter.ElemHide:
		idx.removeFilter(f)
	}
}

func (idx *Index) removeException(f *filter.Filter) {
	text := f.Text()
	if _, known := idx.knownExceptions[text]; !known {
		return
	}
	delete(idx.knownExceptions, text)

	selector := f.Selector()
	list := idx.exceptions[selector]
	for i, e := range list {
		if e.Text() == text {
			list = append(list[:i], list[i+1:]...)

			break
		}
	}
	if len(list) == 0 {
		delete(idx.exceptions, selector)
	} else {
		idx.exceptions[selector] = list
	}
}

func (idx *Index) removeFilter(f *filter.Filter) {
	text := f.Text()
	if _, exists := idx.filters[text]; !exists {
		return
	}
	delete(idx.filters, text)

	selector := f.Selector()
	if u, unconditional := idx.unconditionalSelectors[selector]; unconditional && u.Text() == text {
		delete(idx.unconditionalSelectors, selector)
		idx.invalidateUnconditionalCache()

		return
	}

	domains := f.Domains()
	if domains == nil {
		idx.removeFromDomain("", text)

		return
	}

	for domain := range domains {
		idx.removeFromDomain(domain, text)
	}
}

func (idx *Index) removeFromDomain(domain, text string) {
	bucket, ok := idx.filtersByDomain[domain]
	if !ok {
		return
	}

	delete(bucket, text)
	if len(bucket) == 0 {
		delete(idx.filtersByDomain, domain)
	}
}

// GetException returns the first match of a newest-to-oldest scan of the
// exception filters for selector active on docDomain, or nil if none
// applies.
func (idx *Index) GetException(selector, docDomain string) *filter.Filter {
	list := idx.exceptions[selector]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].IsActiveOnDomain(docDomain, "") {
			return list[i]
		}
	}

	return nil
}

// unconditionalSelectorsSorted returns (and memoizes) the unconditional
// selector list in stylesheet-safe form, sorted for deterministic output.
func (idx *Index) unconditionalSelectorsSorted() []string {
	if idx.unconditionalCacheSet {
		return idx.unconditionalCache
	}

	out := make([]string, 0, len(idx.unconditionalSelectors))
	for _, f := range idx.unconditionalSelectors {
		out = append(out, f.GetSelector())
	}
	slices.Sort(out)

	idx.unconditionalCache = out
	idx.unconditionalCacheSet = true

	return out
}

// GetSelectorsForDomain returns the selectors to hide on domain:
// unconditional selectors first (only when criteria is AllMatching), then a
// most-specific-to-least-specific walk of domain's suffixes, each
// contributing the selectors of filters active there that aren't excepted,
// de-duplicated by filter text within this call.
func (idx *Index) GetSelectorsForDomain(domain string, criteria Criteria) []string {
	seen := make(map[string]struct{})
	var result []string

	if criteria == AllMatching {
		for _, sel := range idx.unconditionalSelectorsSorted() {
			result = append(result, sel)
		}
	}

	suffixes := domainSuffixes(domain)
	if criteria == SpecificOnly {
		suffixes = suffixes[:len(suffixes)-1] // drop the trailing "" suffix
	}

	for _, suffix := range suffixes {
		bucket := idx.filtersByDomain[suffix]
		if len(bucket) == 0 {
			continue
		}

		keys := make([]string, 0, len(bucket))
		for text := range bucket {
			keys = append(keys, text)
		}
		slices.Sort(keys)

		for _, text := range keys {
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}

			f := bucket[text]
			if f == nil {
				continue
			}

			if idx.GetException(f.Selector(), domain) != nil {
				continue
			}

			result = append(result, f.GetSelector())
		}
	}

	return result
}

// domainSuffixes returns domain, then its suffix after the first '.', and
// so on, finishing with "". For an empty domain it returns only [""].
func domainSuffixes(domain string) []string {
	if domain == "" {
		return []string{""}
	}

	var out []string
	for {
		out = append(out, domain)

		idx := strings.IndexByte(domain, '.')
		if idx < 0 {
			break
		}
		domain = domain[idx+1:]
	}
	out = append(out, "")

	return out
}
