// Package engine is the pure match state machine. Apply takes a match, a
// decoded move, and the adapter's turn context, and returns the successor
// state plus events. The input match is never touched: validation and
// mutation happen on a clone, so a rejected move cannot leave partial
// writes behind.
//
// Turn order is the adapter's business. The engine only checks what the
// protocol itself pins down: sequential phases cycle through the fixed
// player order, forced actions bind a specific player, and everything else
// defers to Turn.CurrentPlayer.
package engine

import (
	"crypto/ed25519"
	"strconv"

	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

// Turn is the per-move context supplied by the surrounding turn engine.
type Turn struct {
	// CurrentPlayer is whose domain-move turn it is during play.
	CurrentPlayer string
	// MoveCount is the monotone move counter; the shuffle liveness window
	// is measured against it.
	MoveCount uint64
	// NowUnix is stamped onto deck commitments.
	NowUnix int64
}

// Apply runs one move against the match and returns the updated copy.
// Every rejection wraps ErrInvalidMove, except moves against an already
// voided match, which wrap ErrVoided.
func Apply(m *state.Match, mv codec.Move, turn Turn) (*state.Match, []Event, error) {
	if m == nil {
		return nil, nil, invalidf("no such match")
	}
	if m.Phase == state.PhaseVoided {
		return nil, nil, voidedf("%s", m.VoidReason)
	}
	if m.Phase == state.PhaseGameOver {
		return nil, nil, invalidf("match is over")
	}

	next, err := m.Clone()
	if err != nil {
		return nil, nil, err
	}

	var evs []Event
	switch v := mv.(type) {
	case *codec.CreateMatch:
		return nil, nil, invalidf("match %s already exists", m.ID)
	case *codec.SubmitPublicKey:
		evs, err = applySubmitPublicKey(next, v, turn)
	case *codec.DistributeKeyShares:
		evs, err = applyDistributeKeyShares(next, v, turn)
	case *codec.EncryptDeck:
		evs, err = applyEncryptDeck(next, v, turn)
	case *codec.ShuffleDeck:
		evs, err = applyShuffleDeck(next, v, turn)
	case *codec.CommitShuffleSeed:
		evs, err = applyCommitShuffleSeed(next, v, turn)
	case *codec.RevealShuffleSeed:
		evs, err = applyRevealShuffleSeed(next, v, turn)
	case *codec.VoteAbortShuffle:
		evs, err = applyVoteAbortShuffle(next, v, turn)
	case *codec.AskRank:
		evs, err = applyAskRank(next, v, turn)
	case *codec.RespondToAsk:
		evs, err = applyRespondToAsk(next, v)
	case *codec.Draw:
		evs, err = applyDraw(next, v, turn)
	case *codec.ClaimSet:
		evs, err = applyClaimSet(next, v, turn)
	case *codec.SubmitDecryptionShare:
		evs, err = applySubmitDecryptionShare(next, v)
	case *codec.SubmitProof:
		evs, err = applySubmitProof(next, v)
	case *codec.SubmitVerdict:
		evs, err = applySubmitVerdict(next, v)
	default:
		return nil, nil, invalidf("unsupported move %q", mv.MoveType())
	}
	if err != nil {
		return nil, nil, err
	}
	next.MoveCount = turn.MoveCount
	return next, evs, nil
}

// void terminates the match. The transition itself is a successful move;
// everything after it fails with ErrVoided carrying the reason.
func void(m *state.Match, reason string) Event {
	m.Phase = state.PhaseVoided
	m.VoidReason = reason
	return event("match/voided", "match", m.ID, "reason", reason)
}

// NewMatchFromMove builds a fresh match from a create move. The id comes
// from the envelope; the move carries roster, keys, and table config.
func NewMatchFromMove(id string, mv *codec.CreateMatch) (*state.Match, []Event, error) {
	mode := state.SecurityMode(mv.Security)
	if mv.Security == "" {
		mode = state.ModeSecure
	}
	if mode == state.ModeInsecureDemo && !insecureDemoEnabled {
		return nil, nil, invalidf("insecure-demo matches are disabled in this build")
	}
	onRoster := false
	for _, p := range mv.Players {
		if p == mv.Creator {
			onRoster = true
			break
		}
	}
	if !onRoster {
		return nil, nil, invalidf("creator %q is not on the roster", mv.Creator)
	}
	for pid, key := range mv.SigKeys {
		if _, err := mmcrypto.DecodeHexFixed(key, ed25519.PublicKeySize); err != nil {
			return nil, nil, invalidf("player %q sig key: %v", pid, err)
		}
	}
	cfg := state.MatchConfig{
		DeckSize:    mv.DeckSize,
		HandSize:    mv.HandSize,
		AbortWindow: mv.AbortWindow,
	}
	m, err := state.NewMatch(id, mode, cfg, mv.Players, mv.SigKeys)
	if err != nil {
		return nil, nil, invalidf("%v", err)
	}
	evs := []Event{event("match/created",
		"match", id,
		"creator", mv.Creator,
		"players", strconv.Itoa(len(m.Players)),
		"security", string(m.Security),
	)}
	return m, evs, nil
}
