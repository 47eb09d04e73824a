package engine

import (
	"strconv"

	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

// takeFromZone removes the given slots and returns the cards in the
// caller's index order, paired with any cached identities. Surviving slots
// are renumbered in the reveal bookkeeping; an in-progress reveal of a
// removed card is abandoned, since its key no longer addresses that card.
func takeFromZone(m *state.Match, zoneID string, indices []int) ([]state.EncryptedCard, []*state.Card, error) {
	zone, err := m.Zone(zoneID)
	if err != nil {
		return nil, nil, invalidf("%v", err)
	}
	taking := map[int]bool{}
	for _, i := range indices {
		if i < 0 || i >= len(zone.Cards) {
			return nil, nil, invalidf("zone %s has no slot %d", zoneID, i)
		}
		if taking[i] {
			return nil, nil, invalidf("slot %d listed twice", i)
		}
		taking[i] = true
	}

	taken := make([]state.EncryptedCard, len(indices))
	known := make([]*state.Card, len(indices))
	for k, i := range indices {
		taken[k] = zone.Cards[i]
		if c, ok := m.Revealed[state.RevealKey(zoneID, i)]; ok {
			card := c
			known[k] = &card
		}
	}

	kept := make([]state.EncryptedCard, 0, len(zone.Cards)-len(indices))
	newIdx := map[int]int{}
	for i, c := range zone.Cards {
		if taking[i] {
			continue
		}
		newIdx[i] = len(kept)
		kept = append(kept, c)
	}
	zone.Cards = kept
	renumberZone(m, zoneID, newIdx)
	return taken, known, nil
}

// renumberZone rewrites reveal bookkeeping after slots moved. Entries for
// removed slots are dropped here; the caller re-records identities at the
// destination keys.
func renumberZone(m *state.Match, zoneID string, newIdx map[int]int) {
	if len(m.Revealed) > 0 {
		rebuilt := make(map[string]state.Card, len(m.Revealed))
		for key, card := range m.Revealed {
			z, i, err := state.ParseRevealKey(key)
			if err != nil || z != zoneID {
				rebuilt[key] = card
				continue
			}
			if ni, ok := newIdx[i]; ok {
				rebuilt[state.RevealKey(zoneID, ni)] = card
			}
		}
		m.Revealed = rebuilt
	}
	if len(m.Reveals) > 0 {
		rebuilt := make(map[string]*state.PendingReveal, len(m.Reveals))
		for key, pr := range m.Reveals {
			z, i, err := state.ParseRevealKey(key)
			if err != nil || z != zoneID {
				rebuilt[key] = pr
				continue
			}
			ni, ok := newIdx[i]
			if !ok {
				continue
			}
			pr.Index = ni
			rebuilt[state.RevealKey(zoneID, ni)] = pr
		}
		m.Reveals = rebuilt
	}
}

func appendToZone(m *state.Match, zoneID string, cards []state.EncryptedCard, known []*state.Card) error {
	zone, err := m.Zone(zoneID)
	if err != nil {
		return invalidf("%v", err)
	}
	for k, c := range cards {
		idx := len(zone.Cards)
		zone.Cards = append(zone.Cards, c)
		if known[k] != nil {
			if m.Revealed == nil {
				m.Revealed = map[string]state.Card{}
			}
			m.Revealed[state.RevealKey(zoneID, idx)] = *known[k]
		}
	}
	return nil
}

func playGate(m *state.Match, player string) error {
	if m.Phase != state.PhasePlay {
		return invalidf("no table moves in phase %s", m.Phase)
	}
	if _, _, err := m.Player(player); err != nil {
		return invalidf("%v", err)
	}
	return nil
}

// maybeGameOver ends the match once the deck is exhausted and any hand has
// emptied. Winner determination is the table's business, not the engine's,
// unless an attested win claim settles it.
func maybeGameOver(m *state.Match) []Event {
	deck, err := m.Zone(state.ZoneDeck)
	if err != nil || len(deck.Cards) > 0 {
		return nil
	}
	for _, p := range m.Players {
		hand, err := m.Zone(state.HandZone(p.ID))
		if err == nil && len(hand.Cards) == 0 {
			m.Phase = state.PhaseGameOver
			return []Event{event("match/game_over",
				"match", m.ID,
				"reason", "deck exhausted and "+p.ID+" emptied their hand",
			)}
		}
	}
	return nil
}

func validRank(r uint8) bool { return r >= 2 && r <= 14 }

func applyAskRank(m *state.Match, mv *codec.AskRank, turn Turn) ([]Event, error) {
	if err := playGate(m, mv.Player); err != nil {
		return nil, err
	}
	if m.Forced != nil {
		return nil, invalidf("waiting on %s to %s", m.Forced.Player, m.Forced.Kind)
	}
	if mv.Player != turn.CurrentPlayer {
		return nil, invalidf("it is %s's turn, not %s's", turn.CurrentPlayer, mv.Player)
	}
	if !validRank(mv.Rank) {
		return nil, invalidf("rank %d out of range", mv.Rank)
	}
	if mv.Target == mv.Player {
		return nil, invalidf("cannot ask yourself")
	}
	if _, _, err := m.Player(mv.Target); err != nil {
		return nil, invalidf("%v", err)
	}
	hand, err := m.Zone(state.HandZone(mv.Player))
	if err != nil {
		return nil, invalidf("%v", err)
	}
	if len(hand.Cards) == 0 {
		return nil, invalidf("cannot ask with an empty hand")
	}

	m.Forced = &state.ForcedAction{
		Player: mv.Target,
		Kind:   state.ForcedRespond,
		Asker:  mv.Player,
		Rank:   mv.Rank,
	}
	return []Event{event("play/ask",
		"match", m.ID,
		"player", mv.Player,
		"target", mv.Target,
		"rank", strconv.Itoa(int(mv.Rank)),
	)}, nil
}

func applyRespondToAsk(m *state.Match, mv *codec.RespondToAsk) ([]Event, error) {
	if err := playGate(m, mv.Player); err != nil {
		return nil, err
	}
	if m.Forced == nil || m.Forced.Kind != state.ForcedRespond {
		return nil, invalidf("no ask to respond to")
	}
	if m.Forced.Player != mv.Player {
		return nil, invalidf("the ask targets %s, not %s", m.Forced.Player, mv.Player)
	}
	asker := m.Forced.Asker
	rank := m.Forced.Rank
	handID := state.HandZone(mv.Player)

	if len(mv.HandIndices) == 0 {
		// Go fish. A publicly revealed card of the asked rank makes the
		// denial a provable lie, which the engine can reject outright.
		hand, err := m.Zone(handID)
		if err != nil {
			return nil, invalidf("%v", err)
		}
		for i := range hand.Cards {
			if c, ok := m.Revealed[state.RevealKey(handID, i)]; ok && c.Rank() == rank {
				return nil, invalidf("%s visibly holds %s and cannot deny the ask", mv.Player, c)
			}
		}
		m.Forced = &state.ForcedAction{Player: asker, Kind: state.ForcedDraw}
		return []Event{event("play/go_fish",
			"match", m.ID,
			"player", mv.Player,
			"asker", asker,
		)}, nil
	}

	for _, i := range mv.HandIndices {
		if c, ok := m.Revealed[state.RevealKey(handID, i)]; ok && c.Rank() != rank {
			return nil, invalidf("slot %d is visibly %s, not the asked rank", i, c)
		}
	}
	cards, known, err := takeFromZone(m, handID, mv.HandIndices)
	if err != nil {
		return nil, err
	}
	if err := appendToZone(m, state.HandZone(asker), cards, known); err != nil {
		return nil, err
	}
	m.Forced = nil

	evs := []Event{event("play/cards_passed",
		"match", m.ID,
		"from", mv.Player,
		"to", asker,
		"count", strconv.Itoa(len(cards)),
	)}
	return append(evs, maybeGameOver(m)...), nil
}

func applyDraw(m *state.Match, mv *codec.Draw, turn Turn) ([]Event, error) {
	if err := playGate(m, mv.Player); err != nil {
		return nil, err
	}
	forced := m.Forced != nil
	if forced {
		if m.Forced.Kind != state.ForcedDraw {
			return nil, invalidf("waiting on %s to %s", m.Forced.Player, m.Forced.Kind)
		}
		if m.Forced.Player != mv.Player {
			return nil, invalidf("the draw obligation is %s's, not %s's", m.Forced.Player, mv.Player)
		}
	} else if mv.Player != turn.CurrentPlayer {
		return nil, invalidf("it is %s's turn, not %s's", turn.CurrentPlayer, mv.Player)
	}

	deck, err := m.Zone(state.ZoneDeck)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	if len(deck.Cards) == 0 {
		if !forced {
			return nil, invalidf("the deck is empty")
		}
		// The obligation resolves even though there is nothing to draw.
		m.Forced = nil
		evs := []Event{event("play/draw_skipped", "match", m.ID, "player", mv.Player)}
		return append(evs, maybeGameOver(m)...), nil
	}

	cards, known, err := takeFromZone(m, state.ZoneDeck, []int{len(deck.Cards) - 1})
	if err != nil {
		return nil, err
	}
	if err := appendToZone(m, state.HandZone(mv.Player), cards, known); err != nil {
		return nil, err
	}
	m.Forced = nil

	hand, _ := m.Zone(state.HandZone(mv.Player))
	evs := []Event{event("play/draw",
		"match", m.ID,
		"player", mv.Player,
		"handSize", strconv.Itoa(len(hand.Cards)),
		"deckLeft", strconv.Itoa(len(deck.Cards)),
	)}
	return append(evs, maybeGameOver(m)...), nil
}

func applyClaimSet(m *state.Match, mv *codec.ClaimSet, turn Turn) ([]Event, error) {
	if err := playGate(m, mv.Player); err != nil {
		return nil, err
	}
	if m.Forced != nil {
		return nil, invalidf("waiting on %s to %s", m.Forced.Player, m.Forced.Kind)
	}
	if mv.Player != turn.CurrentPlayer {
		return nil, invalidf("it is %s's turn, not %s's", turn.CurrentPlayer, mv.Player)
	}
	if !validRank(mv.Rank) {
		return nil, invalidf("rank %d out of range", mv.Rank)
	}
	if len(mv.HandIndices) != 4 {
		return nil, invalidf("a set claim names all four cards of a rank, got %d", len(mv.HandIndices))
	}
	handID := state.HandZone(mv.Player)
	for _, i := range mv.HandIndices {
		c, ok := m.Revealed[state.RevealKey(handID, i)]
		if !ok {
			return nil, invalidf("slot %d is not publicly revealed", i)
		}
		if c.Rank() != mv.Rank {
			return nil, invalidf("slot %d is %s, not the claimed rank", i, c)
		}
	}

	cards, known, err := takeFromZone(m, handID, mv.HandIndices)
	if err != nil {
		return nil, err
	}
	if err := appendToZone(m, state.ClaimedZone(mv.Player), cards, known); err != nil {
		return nil, err
	}

	evs := []Event{event("play/set_claimed",
		"match", m.ID,
		"player", mv.Player,
		"rank", strconv.Itoa(int(mv.Rank)),
	)}
	return append(evs, maybeGameOver(m)...), nil
}
