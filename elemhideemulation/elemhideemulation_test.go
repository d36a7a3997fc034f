package elemhideemulation_test

import (
	"testing"

	"github.com/AdguardTeam/filtercore/elemhide"
	"github.com/AdguardTeam/filtercore/elemhideemulation"
	"github.com/AdguardTeam/filtercore/filter"
	"github.com/AdguardTeam/filtercore/notify"
	"github.com/AdguardTeam/filtercore/regexpsvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *filter.Registry {
	return filter.NewRegistry(regexpsvc.Default(), notify.NoOp{}, nil)
}

func TestGetRulesForDomain(t *testing.T) {
	r := newTestRegistry()
	main := elemhide.New()
	emu := elemhideemulation.New()

	f, ok := r.FromText(`example.com#?#:-abp-properties(foo)`)
	require.True(t, ok)
	require.Equal(t, filter.ElemHideEmulation, f.Type())
	emu.Add(f)

	assert.Len(t, emu.GetRulesForDomain(main, "example.com"), 1)
	assert.Empty(t, emu.GetRulesForDomain(main, "other.com"))
}

func TestGetRulesForDomain_SuppressedByException(t *testing.T) {
	r := newTestRegistry()
	main := elemhide.New()
	emu := elemhideemulation.New()

	f, ok := r.FromText(`example.com#?#:-abp-properties(foo)`)
	require.True(t, ok)
	emu.Add(f)

	except, ok := r.FromText(`example.com#@#:-abp-properties(foo)`)
	require.True(t, ok)
	require.Equal(t, filter.ElemHideException, except.Type())
	main.Add(except)

	assert.Empty(t, emu.GetRulesForDomain(main, "example.com"))
}

func TestAdd_RejectsOtherTypes(t *testing.T) {
	r := newTestRegistry()
	emu := elemhideemulation.New()

	f, ok := r.FromText("##.ad")
	require.True(t, ok)
	emu.Add(f)

	main := elemhide.New()
	assert.Empty(t, emu.GetRulesForDomain(main, "example.com"))
}

func TestRemove(t *testing.T) {
	r := newTestRegistry()
	main := elemhide.New()
	emu := elemhideemulation.New()

	f, ok := r.FromText(`example.com#?#:-abp-properties(foo)`)
	require.True(t, ok)
	emu.Add(f)
	require.Len(t, emu.GetRulesForDomain(main, "example.com"), 1)

	emu.Remove(f)
	assert.Empty(t, emu.GetRulesForDomain(main, "example.com"))
}
