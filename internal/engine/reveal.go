package engine

import (
	"strconv"

	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

// shareAttempts caps semantically rejected share submissions per player and
// card: the first failure is recorded and one resubmission is allowed.
const shareAttempts = 2

// applySubmitDecryptionShare advances one card's collaborative reveal.
//
// The zone card itself is never touched. Progress lives in the pending
// entry's working copy, so a reveal abandoned halfway (or a card that moves
// zones mid-reveal) cannot corrupt the deck's layer bookkeeping.
//
// A share whose Chaum-Pedersen proof fails is a special case: the move
// succeeds, the failure is counted against the submitter's retry budget,
// and the reveal state is otherwise untouched. Malformed submissions are
// ordinary invalid moves and count nothing.
func applySubmitDecryptionShare(m *state.Match, mv *codec.SubmitDecryptionShare) ([]Event, error) {
	if m.Phase != state.PhasePlay {
		return nil, invalidf("no reveals in phase %s", m.Phase)
	}
	p, _, err := m.Player(mv.Player)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	if mv.Purpose != state.RevealPublic && mv.Purpose != state.RevealPrivate {
		return nil, invalidf("unknown reveal purpose %q", mv.Purpose)
	}
	zone, err := m.Zone(mv.Zone)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	if mv.Index < 0 || mv.Index >= len(zone.Cards) {
		return nil, invalidf("zone %s has no slot %d", mv.Zone, mv.Index)
	}
	key := state.RevealKey(mv.Zone, mv.Index)
	if _, done := m.Revealed[key]; done {
		return nil, invalidf("card %s is already revealed", key)
	}

	pending := m.Reveals[key]
	if pending == nil {
		card := zone.Cards[mv.Index]
		if card.Layers == 0 {
			return nil, invalidf("card %s is already plaintext", key)
		}
		initiator := mv.Player
		if mv.Purpose == state.RevealPrivate {
			if zone.Owner == "" {
				return nil, invalidf("private reveals need an owned zone, %s is shared", mv.Zone)
			}
			initiator = zone.Owner
		}
		pending = &state.PendingReveal{
			Purpose:   mv.Purpose,
			Zone:      mv.Zone,
			Index:     mv.Index,
			Initiator: initiator,
			WorkingCT: card.CT,
			Layers:    card.Layers,
			Shares:    map[string]string{},
			Failures:  map[string]uint8{},
		}
		if m.Reveals == nil {
			m.Reveals = map[string]*state.PendingReveal{}
		}
		m.Reveals[key] = pending
	} else if pending.Purpose != mv.Purpose {
		return nil, invalidf("reveal of %s is %s, not %s", key, pending.Purpose, mv.Purpose)
	}

	if pending.Purpose == state.RevealPrivate {
		if mv.Player == pending.Initiator {
			return nil, invalidf("%s holds the final layer of %s and must not share it", mv.Player, key)
		}
		if pending.Layers == 1 {
			return nil, invalidf("reveal of %s is complete, %s finishes locally", key, pending.Initiator)
		}
	}
	if _, dup := pending.Shares[mv.Player]; dup {
		return nil, invalidf("player %s already contributed to %s", mv.Player, key)
	}
	if pending.Failures[mv.Player] >= shareAttempts {
		return nil, invalidf("player %s exhausted share attempts for %s", mv.Player, key)
	}

	sharePt, err := mmcrypto.PointFromHex(mv.Share)
	if err != nil {
		return nil, invalidf("share: %v", err)
	}
	raw, err := mmcrypto.DecodeHexFixed(mv.Proof, mmcrypto.ChaumPedersenProofBytes)
	if err != nil {
		return nil, invalidf("share proof: %v", err)
	}
	proof, err := mmcrypto.DecodeChaumPedersenProof(raw)
	if err != nil {
		return nil, invalidf("share proof: %v", err)
	}
	if p.CipherKey == "" {
		return nil, invalidf("player %s has no cipher key", mv.Player)
	}
	pk, err := mmcrypto.PointFromHex(p.CipherKey)
	if err != nil {
		return nil, invalidf("player %s cipher key: %v", mv.Player, err)
	}
	working, err := mmcrypto.PointFromHex(pending.WorkingCT)
	if err != nil {
		return nil, invalidf("working ciphertext for %s: %v", key, err)
	}

	// The share claims working = x*share under the submitter's key, which
	// is exactly the statement the proof covers.
	ok, err := mmcrypto.ChaumPedersenVerify(pk, sharePt, working, proof)
	if err != nil {
		return nil, invalidf("share proof: %v", err)
	}
	if !ok {
		pending.Failures[mv.Player]++
		return []Event{event("reveal/share_rejected",
			"match", m.ID,
			"key", key,
			"player", mv.Player,
			"attempts", strconv.Itoa(int(pending.Failures[mv.Player])),
		)}, nil
	}

	pending.WorkingCT = sharePt.Hex()
	pending.Layers--
	pending.Shares[mv.Player] = sharePt.Hex()

	switch {
	case pending.Purpose == state.RevealPublic && pending.Layers == 0:
		card, found := CardFromPoint(sharePt, m.Config.DeckSize)
		if !found {
			return nil, invalidf("plaintext of %s does not match any card in the deck", key)
		}
		if m.Revealed == nil {
			m.Revealed = map[string]state.Card{}
		}
		m.Revealed[key] = card
		delete(m.Reveals, key)
		return []Event{event("reveal/complete",
			"match", m.ID,
			"key", key,
			"card", card.String(),
		)}, nil
	case pending.Purpose == state.RevealPrivate && pending.Layers == 1:
		return []Event{event("reveal/private_ready",
			"match", m.ID,
			"key", key,
			"owner", pending.Initiator,
		)}, nil
	default:
		return []Event{event("reveal/share",
			"match", m.ID,
			"key", key,
			"player", mv.Player,
			"layersLeft", strconv.Itoa(int(pending.Layers)),
		)}, nil
	}
}
