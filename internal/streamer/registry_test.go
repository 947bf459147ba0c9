package streamer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	alice := domain.NewStreamer("alice", "1")
	alice.ChannelPoints = 100
	require.NoError(t, r.Add(alice))
	require.NoError(t, r.Add(domain.NewStreamer("Bob", "2")))
	return r
}

func TestRegistry_AddDuplicate(t *testing.T) {
	r := newTestRegistry(t)
	err := r.Add(domain.NewStreamer("alice", "1"))
	assert.Error(t, err)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_ByUsernameNormalizes(t *testing.T) {
	r := newTestRegistry(t)
	id, ok := r.ByUsername(" BOB ")
	require.True(t, ok)
	assert.Equal(t, "2", id)
}

func TestRegistry_SetBalanceReturnsDelta(t *testing.T) {
	r := newTestRegistry(t)
	delta, ok := r.SetBalance("1", 140)
	require.True(t, ok)
	assert.Equal(t, 40, delta)

	s, _ := r.Get("1")
	assert.Equal(t, 140, s.ChannelPoints)

	_, ok = r.SetBalance("missing", 10)
	assert.False(t, ok)
}

func TestRegistry_SetOnline(t *testing.T) {
	r := newTestRegistry(t)
	now := time.Now()

	assert.True(t, r.SetOnline("1", true, now))
	assert.False(t, r.SetOnline("1", true, now), "no change when already online")

	online := r.Online()
	require.Len(t, online, 1)
	assert.Equal(t, "alice", online[0].Username)
	assert.Equal(t, now, online[0].OnlineAt)

	assert.True(t, r.SetOnline("1", false, now))
	assert.Empty(t, r.Online())
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	r := newTestRegistry(t)
	r.AppendHistory("1", domain.HistoryEntry{Delta: 10, Reason: "WATCH"})

	s, _ := r.Get("1")
	s.ChannelPoints = 0
	s.History[0].Delta = 999

	again, _ := r.Get("1")
	assert.Equal(t, 100, again.ChannelPoints)
	assert.Equal(t, 10, again.History[0].Delta)
}

func TestRegistry_SnapshotsAreImmutableBaseline(t *testing.T) {
	r := newTestRegistry(t)
	snaps := r.Snapshots()
	r.SetBalance("1", 500)
	assert.Equal(t, 100, snaps["1"].ChannelPoints)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := newTestRegistry(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.SetBalance("1", i)
			r.SetOnline("2", i%2 == 0, time.Now())
		}(i)
		go func() {
			defer wg.Done()
			_ = r.All()
			_ = r.Online()
			r.View("1", func(s *domain.Streamer) { _ = s.ChannelPoints })
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, r.Len())
}
