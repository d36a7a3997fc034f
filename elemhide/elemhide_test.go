package elemhide_test

import (
	"testing"

	"github.com/AdguardTeam/filtercore/elemhide"
	"github.com/AdguardTeam/filtercore/filter"
	"github.com/AdguardTeam/filtercore/notify"
	"github.com/AdguardTeam/filtercore/regexpsvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *filter.Registry {
	return filter.NewRegistry(regexpsvc.Default(), notify.NoOp{}, nil)
}

func TestUnconditionalSelector(t *testing.T) {
	r := newTestRegistry()
	idx := elemhide.New()

	f, ok := r.FromText("##.ad")
	require.True(t, ok)
	idx.Add(f)

	assert.Equal(t, []string{".ad"}, idx.GetSelectorsForDomain("example.com", elemhide.AllMatching))
	assert.Equal(t, []string{".ad"}, idx.GetSelectorsForDomain("other.com", elemhide.AllMatching))
}

func TestExceptionSuppressesUnconditionalSelector(t *testing.T) {
	r := newTestRegistry()
	idx := elemhide.New()

	generic, ok := r.FromText("##.ad")
	require.True(t, ok)
	idx.Add(generic)

	except, ok := r.FromText("example.com#@#.ad")
	require.True(t, ok)
	idx.Add(except)

	// The unconditional fast path is demoted: the exception now suppresses
	// .ad on example.com but it must still apply elsewhere.
	assert.Empty(t, idx.GetSelectorsForDomain("example.com", elemhide.AllMatching))
	assert.Equal(t, []string{".ad"}, idx.GetSelectorsForDomain("other.com", elemhide.AllMatching))

	assert.NotNil(t, idx.GetException(".ad", "example.com"))
	assert.Nil(t, idx.GetException(".ad", "other.com"))
}

func TestExcludeOnlyFilterIsNotUnconditional(t *testing.T) {
	r := newTestRegistry()
	idx := elemhide.New()

	f, ok := r.FromText("~foo.com##.ad")
	require.True(t, ok)
	idx.Add(f)

	// An exclude-only filter has a non-nil domains map (the "" default is
	// include), so it must fan out per-domain, not become unconditional:
	// it must NOT apply on foo.com or its subdomains, but must apply
	// elsewhere.
	assert.Empty(t, idx.GetSelectorsForDomain("foo.com", elemhide.AllMatching))
	assert.Empty(t, idx.GetSelectorsForDomain("sub.foo.com", elemhide.AllMatching))
	assert.Equal(t, []string{".ad"}, idx.GetSelectorsForDomain("bar.com", elemhide.AllMatching))
}

func TestDomainSpecificSelector(t *testing.T) {
	r := newTestRegistry()
	idx := elemhide.New()

	f, ok := r.FromText("example.com##.banner")
	require.True(t, ok)
	idx.Add(f)

	assert.Equal(t, []string{".banner"}, idx.GetSelectorsForDomain("example.com", elemhide.AllMatching))
	assert.Equal(t, []string{".banner"}, idx.GetSelectorsForDomain("sub.example.com", elemhide.AllMatching))
	assert.Empty(t, idx.GetSelectorsForDomain("other.com", elemhide.AllMatching))
	assert.Equal(t, []string{".banner"}, idx.GetSelectorsForDomain("example.com", elemhide.SpecificOnly))
}

func TestSpecificOnlyExcludesUnconditional(t *testing.T) {
	r := newTestRegistry()
	idx := elemhide.New()

	generic, ok := r.FromText("##.ad")
	require.True(t, ok)
	idx.Add(generic)

	specific, ok := r.FromText("example.com##.banner")
	require.True(t, ok)
	idx.Add(specific)

	all := idx.GetSelectorsForDomain("example.com", elemhide.AllMatching)
	assert.ElementsMatch(t, []string{".ad", ".banner"}, all)

	only := idx.GetSelectorsForDomain("example.com", elemhide.SpecificOnly)
	assert.Equal(t, []string{".banner"}, only)
}

func TestRemoveFilter(t *testing.T) {
	r := newTestRegistry()
	idx := elemhide.New()

	f, ok := r.FromText("##.ad")
	require.True(t, ok)
	idx.Add(f)
	require.NotEmpty(t, idx.GetSelectorsForDomain("example.com", elemhide.AllMatching))

	idx.Remove(f)
	assert.Empty(t, idx.GetSelectorsForDomain("example.com", elemhide.AllMatching))
}

func TestGetSelectorsForDomain_Dedup(t *testing.T) {
	r := newTestRegistry()
	idx := elemhide.New()

	// A single filter naming both "example.com" and its ancestor "com" is
	// reachable from two different suffixes while walking "example.com";
	// it must only contribute its selector once.
	f, ok := r.FromText("example.com,com##.x")
	require.True(t, ok)
	idx.Add(f)

	got := idx.GetSelectorsForDomain("example.com", elemhide.AllMatching)
	count := 0
	for _, s := range got {
		if s == ".x" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
