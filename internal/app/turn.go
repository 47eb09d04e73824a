package app

import (
	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

// The engine validates moves against whatever turn the adapter hands it,
// so the rotation policy lives here: the creator leads, a player keeps the
// turn while their asks keep catching, and drawing passes it on. Forced
// responses and forced draws run under the asker's turn.

func startingPlayer(m *state.Match) string {
	return m.Players[0].ID
}

// nextTurn advances the marker after a successful move.
func nextTurn(m *state.Match, cur string, mv codec.Move) string {
	if _, drew := mv.(*codec.Draw); !drew {
		return cur
	}
	order := m.PlayerOrder()
	for i, id := range order {
		if id == cur {
			return order[(i+1)%len(order)]
		}
	}
	return cur
}
