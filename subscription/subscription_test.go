package subscription

import (
	"testing"

	"github.com/AdguardTeam/filtercore/filter"
	"github.com/AdguardTeam/filtercore/notify"
	"github.com/AdguardTeam/filtercore/regexpsvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFilterRegistry() *filter.Registry {
	return filter.NewRegistry(regexpsvc.Default(), notify.NoOp{}, nil)
}

func TestNewUserDefinedSubscription_AnonymousID(t *testing.T) {
	a := NewUserDefinedSubscription("", notify.NoOp{})
	b := NewUserDefinedSubscription("", notify.NoOp{})

	assert.NotEmpty(t, a.ID())
	assert.NotEmpty(t, b.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.False(t, a.Downloadable())
}

func TestNewDownloadableSubscription(t *testing.T) {
	s := NewDownloadableSubscription("https://example.com/list.txt", "https://example.com", notify.NoOp{})

	assert.True(t, s.Downloadable())
	assert.Equal(t, "https://example.com", s.Homepage())
	assert.False(t, s.IsDefaultFor(nil))
}

func TestSetTitle_NotifiesOnChange(t *testing.T) {
	var got []notify.Topic
	sink := notify.Func(func(topic notify.Topic, subject interface{}) {
		got = append(got, topic)
	})

	s := NewUserDefinedSubscription("my-list", sink)
	s.SetTitle("my-list")
	assert.Empty(t, got, "setting the same title must not notify")

	s.SetTitle("New Title")
	assert.Equal(t, []notify.Topic{notify.SubscriptionTitle}, got)
	assert.Equal(t, "New Title", s.Title())
}

func TestIsDefaultFor(t *testing.T) {
	fr := newTestFilterRegistry()

	blocking, ok := fr.FromText("||example.com^")
	require.True(t, ok)

	whitelist, ok := fr.FromText("@@||example.com^")
	require.True(t, ok)

	s := NewUserDefinedSubscription("mine", notify.NoOp{})
	s.SetDefaults(DefaultBlocking)

	assert.True(t, s.IsDefaultFor(blocking))
	assert.False(t, s.IsDefaultFor(whitelist))
}

func TestInsertAndRemoveFilterAt(t *testing.T) {
	fr := newTestFilterRegistry()

	f1, _ := fr.FromText("||a.com^")
	f2, _ := fr.FromText("||b.com^")
	f3, _ := fr.FromText("||c.com^")

	var events []FilterEvent
	sink := notify.Func(func(topic notify.Topic, subject interface{}) {
		if topic == notify.FilterAdded || topic == notify.FilterRemoved {
			events = append(events, subject.(FilterEvent))
		}
	})

	s := NewUserDefinedSubscription("mine", sink)

	// Not listed yet: no notifications expected.
	s.InsertFilterAt(f1, 0)
	assert.Empty(t, events)

	s.listed = true

	s.InsertFilterAt(f2, 1)
	s.InsertFilterAt(f3, 1)

	require.Equal(t, []*filter.Filter{f1, f3, f2}, s.Filters())
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[1].Position)

	s.RemoveFilterAt(0)
	assert.Equal(t, []*filter.Filter{f3, f2}, s.Filters())
	require.Len(t, events, 3)
	assert.Equal(t, f1, events[2].Filter)
}

func TestRegistry_FromID(t *testing.T) {
	r := NewRegistry(notify.NoOp{})

	a := r.FromID("https://example.com/list.txt")
	b := r.FromID("https://example.com/list.txt")
	assert.Same(t, a, b)
	assert.True(t, a.Downloadable())
}
