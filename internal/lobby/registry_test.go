// internal/lobby/registry_test.go
package lobby

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ft-transcendence/pong-service/internal/models"
)

// drain empties a connection's control queue for inspection.
func drain(c *Connection) []interface{} {
	var out []interface{}
	for {
		select {
		case f := <-c.Control():
			out = append(out, f)
		default:
			return out
		}
	}
}

func TestWriteStateDropsOldestOnOverflow(t *testing.T) {
	c := NewConnection(uuid.New())
	for i := 0; i < stateChanSize+3; i++ {
		c.WriteState(i)
	}

	var got []int
	for {
		select {
		case f := <-c.States():
			got = append(got, f.(int))
		default:
			require.Len(t, got, stateChanSize)
			assert.Equal(t, 3, got[0], "oldest snapshots are discarded")
			assert.Equal(t, stateChanSize+2, got[len(got)-1], "latest snapshot survives")
			return
		}
	}
}

func TestControlOverflowFlagsSlowClient(t *testing.T) {
	c := NewConnection(uuid.New())
	for i := 0; i < controlChanSize; i++ {
		require.True(t, c.Write(i))
	}
	assert.False(t, c.Write("one too many"))
	assert.True(t, c.Slow())
}

func TestConnectionStateAccessors(t *testing.T) {
	c := NewConnection(uuid.New())
	assert.Equal(t, StateIdle, c.State())

	c.SetNickname("alice")
	c.SetState(StateQueued)
	c.SetRoom("game_x")
	c.SetTournament("t1")

	assert.Equal(t, "alice", c.Nickname())
	assert.Equal(t, StateQueued, c.State())
	assert.Equal(t, "game_x", c.Room())
	assert.Equal(t, "t1", c.Tournament())
}

func TestSnapshotCarriesBothLists(t *testing.T) {
	r := NewRegistry()
	r.WaitingListFn = func() []models.WaitingEntry {
		return []models.WaitingEntry{{Nickname: "alice", Rounds: 3}}
	}
	r.TournamentListFn = func() []models.TournamentSummary {
		return []models.TournamentSummary{{ID: "t1", Name: "cup", Players: 1, Size: 4}}
	}

	c := NewConnection(uuid.New())
	r.Add(c)
	r.SendSnapshot(c)

	frames := drain(c)
	require.Len(t, frames, 2)

	wl, ok := frames[0].(models.WaitingListFrame)
	require.True(t, ok)
	assert.Equal(t, models.FrameWaitingList, wl.Type)
	require.Len(t, wl.WaitingList, 1)
	assert.Equal(t, "alice", wl.WaitingList[0].Nickname)

	tl, ok := frames[1].(models.TournamentListFrame)
	require.True(t, ok)
	assert.Equal(t, models.FrameTournamentList, tl.Type)
	require.Len(t, tl.Tournaments, 1)
	assert.Equal(t, "cup", tl.Tournaments[0].Name)
}

func TestBroadcastReachesEverySubscriber(t *testing.T) {
	r := NewRegistry()
	c1 := NewConnection(uuid.New())
	c2 := NewConnection(uuid.New())
	r.Add(c1)
	r.Add(c2)

	r.BroadcastWaitingList()

	for _, c := range []*Connection{c1, c2} {
		frames := drain(c)
		require.Len(t, frames, 1)
		_, ok := frames[0].(models.WaitingListFrame)
		assert.True(t, ok)
	}
}

func TestRemoveStopsDelivery(t *testing.T) {
	r := NewRegistry()
	c := NewConnection(uuid.New())
	r.Add(c)
	r.Remove(c.ID)

	r.BroadcastWaitingList()
	assert.Empty(t, drain(c))
	assert.Equal(t, 0, r.Len())
}

func TestEmptyProvidersYieldEmptyLists(t *testing.T) {
	r := NewRegistry()
	wl := r.WaitingListFrame()
	assert.NotNil(t, wl.WaitingList, "waiting_list serializes as [], not null")
	tl := r.TournamentListFrame()
	assert.NotNil(t, tl.Tournaments)
}
