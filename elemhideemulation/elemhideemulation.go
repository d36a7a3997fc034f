// Package elemhideemulation implements the element-hiding emulation
// index: a flat collection of emulation filters, queried per document
// domain against the main ElemHide index's exception list rather than one
// of its own. Emulation rules are evaluated by a host content script, not
// injected CSS, so they never join the main index's selector fan-out.
package elemhideemulation

import (
	"github.com/AdguardTeam/filtercore/elemhide"
	"github.com/AdguardTeam/filtercore/filter"
	"golang.org/x/exp/slices"
)

// Index is a flat map from filter text to ELEMHIDEEMULATION filter.
type Index struct {
	filters map[string]*filter.Filter
}

// New returns an empty Index.
func New() *Index {
	return &Index{filters: make(map[string]*filter.Filter)}
}

// Add indexes f, which must be an ElemHideEmulation filter. Re-adding an
// already-indexed filter text is a no-op.
func (idx *Index) Add(f *filter.Filter) {
	if f.Type() != filter.ElemHideEmulation {
		return
	}

	if _, exists := idx.filters[f.Text()]; exists {
		return
	}

	idx.filters[f.Text()] = f
}

// Remove reverses Add.
func (idx *Index) Remove(f *filter.Filter) {
	delete(idx.filters, f.Text())
}

// GetRulesForDomain returns every emulation filter active on docDomain
// for which mainIndex.GetException(selector, docDomain) returns nil.
// Results are sorted by filter text for deterministic output.
func (idx *Index) GetRulesForDomain(mainIndex *elemhide.Index, docDomain string) []*filter.Filter {
	texts := make([]string, 0, len(idx.filters))
	for text := range idx.filters {
		texts = append(texts, text)
	}
	slices.Sort(texts)

	result := make([]*filter.Filter, 0, len(texts))
	for _, text := range texts {
		f := idx.filters[text]
		if !f.IsActiveOnDomain(docDomain, "") {
			continue
		}
		if mainIndex.GetException(f.Selector(), docDomain) != nil {
			continue
		}

		result = append(result, f)
	}

	return result
}
