package matchcontext_test

import (
	"testing"

	"github.com/AdguardTeam/filtercore/filter"
	"github.com/AdguardTeam/filtercore/matchcontext"
	"github.com/AdguardTeam/filtercore/notify"
	"github.com/AdguardTeam/filtercore/regexpsvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *filter.Registry {
	return filter.NewRegistry(regexpsvc.Default(), notify.NoOp{}, nil)
}

func TestEngine_MatchAll(t *testing.T) {
	r := newTestRegistry()
	e := matchcontext.New()

	block, ok := r.FromText("||ads.example.com^")
	require.True(t, ok)
	e.Add(block)

	comment, ok := r.FromText("!just a comment")
	require.True(t, ok)
	e.Add(comment)

	matches := e.MatchAll("http://ads.example.com/banner.js", filter.DefaultContentType, "", false, "")
	assert.Equal(t, []*filter.Filter{block}, matches)

	assert.Empty(t, e.MatchAll("http://safe.example.com/x.js", filter.DefaultContentType, "", false, ""))
}

func TestRankFilters_WhitelistBeatsBlocking(t *testing.T) {
	r := newTestRegistry()

	block, ok := r.FromText("||example.com^")
	require.True(t, ok)
	allow, ok := r.FromText("@@||example.com^")
	require.True(t, ok)

	best := matchcontext.RankFilters([]*filter.Filter{block, allow})
	assert.Same(t, allow, best)

	best = matchcontext.RankFilters([]*filter.Filter{allow, block})
	assert.Same(t, allow, best)
}

func TestRankFilters_SpecificBeatsGeneric(t *testing.T) {
	r := newTestRegistry()

	generic, ok := r.FromText("||example.com^")
	require.True(t, ok)
	specific, ok := r.FromText("||example.com^$domain=foo.com")
	require.True(t, ok)

	best := matchcontext.RankFilters([]*filter.Filter{generic, specific})
	assert.Same(t, specific, best)
}

func TestRankFilters_Empty(t *testing.T) {
	assert.Nil(t, matchcontext.RankFilters(nil))
}

func TestEngine_MatchBest(t *testing.T) {
	r := newTestRegistry()
	e := matchcontext.New()

	block, ok := r.FromText("||example.com^")
	require.True(t, ok)
	e.Add(block)

	allow, ok := r.FromText("@@||example.com^")
	require.True(t, ok)
	e.Add(allow)

	best := e.MatchBest("http://example.com/x.js", filter.DefaultContentType, "", false, "")
	assert.Same(t, allow, best)
}

func TestEngine_RemoveAndIgnoreNonNetworkFilters(t *testing.T) {
	r := newTestRegistry()
	e := matchcontext.New()

	elemHide, ok := r.FromText("##.ad")
	require.True(t, ok)
	e.Add(elemHide)
	assert.Empty(t, e.MatchAll("http://example.com/x.js", filter.DefaultContentType, "", false, ""))

	block, ok := r.FromText("||example.com^")
	require.True(t, ok)
	e.Add(block)
	require.Len(t, e.MatchAll("http://example.com/x.js", filter.DefaultContentType, "", false, ""), 1)

	e.Remove(block)
	assert.Empty(t, e.MatchAll("http://example.com/x.js", filter.DefaultContentType, "", false, ""))
}
