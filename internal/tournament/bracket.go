// internal/tournament/bracket.go
package tournament

import "fmt"

// buildBracket lays out the single-elimination tree for the seeded player
// list. Sizes 4 and 8 are full binary trees; size 6 plays two first-round
// matches and seeds the last two players straight into the semifinals.
// Every layout produces exactly len(players)-1 nodes.
func buildBracket(players []*Slot, size int) (map[NodeKey]*Node, int, error) {
	if len(players) != size {
		return nil, 0, fmt.Errorf("bracket wants %d players, got %d", size, len(players))
	}

	nodes := make(map[NodeKey]*Node)
	add := func(n *Node) {
		nodes[NodeKey{Round: n.Round, Position: n.Position}] = n
	}

	switch size {
	case 4:
		add(&Node{Round: 1, Position: 0, Slots: [2]*Slot{players[0], players[1]},
			Next: &NextRef{Round: 2, Position: 0, Slot: 0}, Status: StatusPending})
		add(&Node{Round: 1, Position: 1, Slots: [2]*Slot{players[2], players[3]},
			Next: &NextRef{Round: 2, Position: 0, Slot: 1}, Status: StatusPending})
		add(&Node{Round: 2, Position: 0, Status: StatusPending})
		return nodes, 2, nil

	case 6:
		add(&Node{Round: 1, Position: 0, Slots: [2]*Slot{players[0], players[1]},
			Next: &NextRef{Round: 2, Position: 0, Slot: 0}, Status: StatusPending})
		add(&Node{Round: 1, Position: 1, Slots: [2]*Slot{players[2], players[3]},
			Next: &NextRef{Round: 2, Position: 1, Slot: 0}, Status: StatusPending})
		// The two byes wait in the semifinals for a first-round winner.
		add(&Node{Round: 2, Position: 0, Slots: [2]*Slot{nil, players[4]},
			Next: &NextRef{Round: 3, Position: 0, Slot: 0}, Status: StatusPending})
		add(&Node{Round: 2, Position: 1, Slots: [2]*Slot{nil, players[5]},
			Next: &NextRef{Round: 3, Position: 0, Slot: 1}, Status: StatusPending})
		add(&Node{Round: 3, Position: 0, Status: StatusPending})
		return nodes, 3, nil

	case 8:
		for i := 0; i < 4; i++ {
			add(&Node{Round: 1, Position: i, Slots: [2]*Slot{players[2*i], players[2*i+1]},
				Next: &NextRef{Round: 2, Position: i / 2, Slot: i % 2}, Status: StatusPending})
		}
		add(&Node{Round: 2, Position: 0, Next: &NextRef{Round: 3, Position: 0, Slot: 0}, Status: StatusPending})
		add(&Node{Round: 2, Position: 1, Next: &NextRef{Round: 3, Position: 0, Slot: 1}, Status: StatusPending})
		add(&Node{Round: 3, Position: 0, Status: StatusPending})
		return nodes, 3, nil
	}

	return nil, 0, fmt.Errorf("unsupported bracket size %d", size)
}

// nextPlayable returns the earliest node (round asc, position asc) with both
// slots seated and no winner yet. Nil when nothing is left to play.
func nextPlayable(nodes map[NodeKey]*Node, finalRound int) *Node {
	for round := 1; round <= finalRound; round++ {
		for pos := 0; ; pos++ {
			n, ok := nodes[NodeKey{Round: round, Position: pos}]
			if !ok {
				break
			}
			if n.ready() {
				return n
			}
		}
	}
	return nil
}
