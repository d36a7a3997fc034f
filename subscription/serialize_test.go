package subscription

import (
	"bytes"
	"testing"

	"github.com/AdguardTeam/filtercore/filter"
	"github.com/AdguardTeam/filtercore/notify"
	"github.com/AdguardTeam/filtercore/regexpsvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	fr := filter.NewRegistry(regexpsvc.Default(), notify.NoOp{}, nil)

	st := NewStorage(notify.NoOp{})

	s := NewUserDefinedSubscription("mine", notify.NoOp{})
	s.SetDefaults(DefaultBlocking | DefaultElemHide)
	st.AddSubscription(s)

	f1, ok := fr.FromText("||ads.example.com^")
	require.True(t, ok)
	f1.SetDisabled(true)
	f1.IncrementHitCount(1000)
	f1.IncrementHitCount(2000)

	f2, ok := fr.FromText("example.com##.banner")
	require.True(t, ok)

	s.InsertFilterAt(f1, 0)
	s.InsertFilterAt(f2, 1)

	dl := NewDownloadableSubscription("https://example.com/list.txt", "https://example.com", notify.NoOp{})
	dl.SetLastCheck(12345)
	st.AddSubscription(dl)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, st))

	fr2 := filter.NewRegistry(regexpsvc.Default(), notify.NoOp{}, nil)
	got := NewStorage(notify.NoOp{})
	require.NoError(t, Read(&buf, got, fr2, notify.NoOp{}))

	require.Len(t, got.Subscriptions(), 2)

	gotUser := got.Subscriptions()[0]
	assert.Equal(t, "mine", gotUser.ID())
	assert.Equal(t, DefaultBlocking|DefaultElemHide, gotUser.defaults)
	require.Len(t, gotUser.Filters(), 2)

	gotF1 := gotUser.Filters()[0]
	assert.Equal(t, "||ads.example.com^", gotF1.Text())
	assert.True(t, gotF1.Disabled())
	assert.Equal(t, 2, gotF1.HitCount())
	assert.Equal(t, int64(2000), gotF1.LastHit())

	gotF2 := gotUser.Filters()[1]
	assert.Equal(t, "example.com##.banner", gotF2.Text())

	gotDL := got.Subscriptions()[1]
	assert.True(t, gotDL.Downloadable())
	assert.Equal(t, "https://example.com", gotDL.Homepage())
	assert.Equal(t, int64(12345), gotDL.LastCheck())
}

func TestWriteRead_HeaderLikeFilterText(t *testing.T) {
	fr := filter.NewRegistry(regexpsvc.Default(), notify.NoOp{}, nil)
	st := NewStorage(notify.NoOp{})

	s := NewUserDefinedSubscription("mine", notify.NoOp{})
	st.AddSubscription(s)

	// A pattern that starts with "[" and ends with "]" must not be read
	// back as a section header.
	f, ok := fr.FromText("[banner]")
	require.True(t, ok)
	s.InsertFilterAt(f, 0)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, st))

	fr2 := filter.NewRegistry(regexpsvc.Default(), notify.NoOp{}, nil)
	got := NewStorage(notify.NoOp{})
	require.NoError(t, Read(&buf, got, fr2, notify.NoOp{}))

	require.Len(t, got.Subscriptions(), 1)
	require.Len(t, got.Subscriptions()[0].Filters(), 1)
	assert.Equal(t, "[banner]", got.Subscriptions()[0].Filters()[0].Text())
}

func TestRead_MalformedSection(t *testing.T) {
	fr := filter.NewRegistry(regexpsvc.Default(), notify.NoOp{}, nil)
	st := NewStorage(notify.NoOp{})

	input := "[Subscription filters]\n[Filter]\ntext=||a.com^\n"
	err := Read(bytes.NewBufferString(input), st, fr, notify.NoOp{})
	assert.ErrorIs(t, err, ErrMalformedSection)
}
