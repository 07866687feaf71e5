// internal/tournament/bracket_test.go
package tournament

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePlayers(n int) []*Slot {
	out := make([]*Slot, n)
	for i := range out {
		out[i] = &Slot{ConnID: uuid.New(), Nickname: fmt.Sprintf("p%d", i)}
	}
	return out
}

func TestBracketNodeCounts(t *testing.T) {
	for _, size := range []int{4, 6, 8} {
		nodes, _, err := buildBracket(makePlayers(size), size)
		require.NoError(t, err)
		assert.Len(t, nodes, size-1, "size=%d", size)
	}
}

func TestBracketRejectsBadSizes(t *testing.T) {
	_, _, err := buildBracket(makePlayers(5), 5)
	assert.Error(t, err)
	_, _, err = buildBracket(makePlayers(3), 4)
	assert.Error(t, err, "player count must match declared size")
}

func TestBracketNextRefsResolve(t *testing.T) {
	for _, size := range []int{4, 6, 8} {
		nodes, finalRound, err := buildBracket(makePlayers(size), size)
		require.NoError(t, err)

		roots := 0
		for _, n := range nodes {
			if n.Next == nil {
				roots++
				assert.Equal(t, finalRound, n.Round, "size=%d: root sits in the final round", size)
				continue
			}
			target, ok := nodes[NodeKey{Round: n.Next.Round, Position: n.Next.Position}]
			require.True(t, ok, "size=%d: node (%d,%d) points at a missing node", size, n.Round, n.Position)
			assert.Contains(t, []int{0, 1}, n.Next.Slot)
			assert.Greater(t, target.Round, n.Round, "winners only move to later rounds")
		}
		assert.Equal(t, 1, roots, "size=%d", size)
	}
}

func TestSixPlayerBracketSeedsByes(t *testing.T) {
	players := makePlayers(6)
	nodes, finalRound, err := buildBracket(players, 6)
	require.NoError(t, err)
	assert.Equal(t, 3, finalRound)

	// Round 1 plays two full matches.
	r10 := nodes[NodeKey{Round: 1, Position: 0}]
	r11 := nodes[NodeKey{Round: 1, Position: 1}]
	require.NotNil(t, r10)
	require.NotNil(t, r11)
	assert.Equal(t, players[0], r10.Slots[0])
	assert.Equal(t, players[1], r10.Slots[1])
	assert.Equal(t, players[2], r11.Slots[0])
	assert.Equal(t, players[3], r11.Slots[1])

	// The two byes wait in the semifinals.
	r20 := nodes[NodeKey{Round: 2, Position: 0}]
	r21 := nodes[NodeKey{Round: 2, Position: 1}]
	assert.Nil(t, r20.Slots[0])
	assert.Equal(t, players[4], r20.Slots[1])
	assert.Nil(t, r21.Slots[0])
	assert.Equal(t, players[5], r21.Slots[1])
}

// playOut drives a bracket to completion by always advancing slot 0's
// player, mimicking the director's propagation.
func playOut(t *testing.T, nodes map[NodeKey]*Node, finalRound int) int {
	played := 0
	for {
		n := nextPlayable(nodes, finalRound)
		if n == nil {
			return played
		}
		played++
		n.Winner = n.Slots[0]
		n.Status = StatusCompleted
		if n.Next == nil {
			continue
		}
		next, ok := nodes[NodeKey{Round: n.Next.Round, Position: n.Next.Position}]
		require.True(t, ok)
		idx := n.Next.Slot
		if next.Slots[idx] != nil {
			idx = 1 - idx
		}
		require.Nil(t, next.Slots[idx], "advancement must find an empty slot")
		next.Slots[idx] = n.Winner
	}
}

func TestEverySizeCompletesInExactlyNMinusOneMatches(t *testing.T) {
	for _, size := range []int{4, 6, 8} {
		nodes, finalRound, err := buildBracket(makePlayers(size), size)
		require.NoError(t, err)

		played := playOut(t, nodes, finalRound)
		assert.Equal(t, size-1, played, "size=%d", size)

		root := nodes[NodeKey{Round: finalRound, Position: 0}]
		require.NotNil(t, root.Winner, "size=%d: bracket must crown a champion", size)
	}
}

func TestNextPlayableOrdersByRoundThenPosition(t *testing.T) {
	nodes, finalRound, err := buildBracket(makePlayers(8), 8)
	require.NoError(t, err)

	n := nextPlayable(nodes, finalRound)
	require.NotNil(t, n)
	assert.Equal(t, 1, n.Round)
	assert.Equal(t, 0, n.Position)

	n.Winner = n.Slots[0]
	n2 := nextPlayable(nodes, finalRound)
	assert.Equal(t, 1, n2.Round)
	assert.Equal(t, 1, n2.Position)
}
