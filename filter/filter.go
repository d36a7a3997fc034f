package filter

import (
	"github.com/AdguardTeam/filtercore/internal/hashset"
	"github.com/AdguardTeam/filtercore/internal/text"
	"github.com/AdguardTeam/filtercore/notify"
	"github.com/AdguardTeam/filtercore/regexpsvc"
)

// activeData holds the lazily-populated ActiveFilter extensions shared by
// every Active-family variant (RegExp and ElemHideBase filters alike):
// domain and sitekey restrictions, and the mutable hit-tracking counters.
// It is nil on Comment and Invalid filters.
type activeData struct {
	// domains maps a lower-cased host suffix to its include (true) or
	// exclude (false) verdict. The "" key is the default verdict used
	// when no suffix matches. Nil means "no domain restriction" (every
	// domain matches, per IsActiveOnDomain's short-circuit).
	domains map[string]bool

	// sitekeys is the set of sitekeys the filter is restricted to. Nil
	// means "no sitekey restriction".
	sitekeys map[string]struct{}

	disabled bool
	hitCount int
	lastHit  int64
}

// Filter is a single parsed, canonicalized, interned filter rule. Two
// FromText calls on equal canonical text return the identical *Filter:
// Filter values are reference-counted and shared through a Registry's
// intern table.
type Filter struct {
	text   string
	typ    Type
	reason error

	active   *activeData
	regexp   *regexpData
	elemHide *elemHideBaseData

	refCount int
	registry *Registry
}

// Text returns the filter's canonical text, its identity key.
func (f *Filter) Text() string { return f.text }

// Type returns the filter's classification tag.
func (f *Filter) Type() Type { return f.typ }

// Reason returns the invalidity reason when Type() is Invalid, or nil
// otherwise. The returned error is one of the Err* constants in this
// package.
func (f *Filter) Reason() error { return f.reason }

// String implements fmt.Stringer for debugging and log lines.
func (f *Filter) String() string { return f.text }

// Registry is the intern table mapping canonical filter text to the live
// *Filter sharing it, plus the collaborators FromText needs: the RegExp
// service used to compile network-filter patterns, the notification sink
// mutations are reported to, and the host-provided non-ASCII casefold
// function. Hosts that want isolated filter universes create one Registry
// per universe; nothing in this package is process-global.
type Registry struct {
	interned *hashset.Map[*Filter]
	regexps  regexpsvc.Service
	sink     notify.Sink
	fold     text.Folder
}

// NewRegistry creates an empty Registry. regexps and sink must not be nil;
// use regexpsvc.Default() and notify.NoOp{} respectively if the host has no
// preference. fold may be nil, in which case non-ASCII characters in
// element-hiding domain lists are left as they are.
func NewRegistry(regexps regexpsvc.Service, sink notify.Sink, fold text.Folder) *Registry {
	return &Registry{
		interned: hashset.New[*Filter](1024),
		regexps:  regexps,
		sink:     sink,
		fold:     fold,
	}
}

// Lookup returns the interned Filter for canonical text t without creating
// one, incrementing its refcount if found. It is the read-only counterpart
// to FromText, useful for callers (e.g. deserialization) that already hold
// the canonical form and just want to know whether it's live.
func (r *Registry) Lookup(t string) (*Filter, bool) {
	f, ok := r.interned.Find(t)
	if ok {
		f.refCount++
	}

	return f, ok
}

// release decrements f's refcount and, if it reaches zero, removes f from
// the intern table and releases any compiled regexp handle it owns.
func (r *Registry) release(f *Filter) {
	f.refCount--
	if f.refCount > 0 {
		return
	}

	r.interned.Erase(f.text)
	if f.regexp != nil && f.regexp.compiled {
		r.regexps.Release(f.regexp.handle)
	}
}

// Release drops the caller's reference to f. f must not be used afterward
// unless another FromText/Lookup call on the same Registry returned it
// again (incrementing its refcount anew).
func (f *Filter) Release() {
	if f.registry == nil {
		return
	}

	f.registry.release(f)
}

// intern looks up canonical in the registry; on a hit it increments the
// existing Filter's refcount and returns it. On a miss it inserts the
// Filter that build returns (whose text field must already equal
// canonical) with refcount 1 and returns it.
func (r *Registry) intern(canonical string, build func() *Filter) *Filter {
	if existing, ok := r.interned.Find(canonical); ok {
		existing.refCount++

		return existing
	}

	f := build()
	f.refCount = 1
	f.registry = r
	r.interned.Insert(canonical, f)

	return f
}
