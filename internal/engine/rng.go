package engine

import (
	"strconv"

	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
	"github.com/cyotee/manamesh-sub000/internal/mmshuffle"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

// rngProgress restarts the liveness window and wipes stale abort votes.
// Any accepted commit or reveal counts as progress.
func rngProgress(m *state.Match, turn Turn) {
	m.Rng.LastProgress = turn.MoveCount
	m.Rng.AbortVotes = nil
}

func rngMover(m *state.Match, player string) error {
	if m.Phase != state.PhaseShuffle || m.Rng == nil {
		return invalidf("no shuffle seed exchange in phase %s", m.Phase)
	}
	if _, _, err := m.Player(player); err != nil {
		return invalidf("%v", err)
	}
	return nil
}

func applyCommitShuffleSeed(m *state.Match, mv *codec.CommitShuffleSeed, turn Turn) ([]Event, error) {
	if err := rngMover(m, mv.Player); err != nil {
		return nil, err
	}
	if m.Rng.Phase != state.RngCommit {
		return nil, invalidf("seed commits are closed")
	}
	if _, dup := m.Rng.Commits[mv.Player]; dup {
		return nil, invalidf("player %s already committed a seed", mv.Player)
	}
	commit, err := mmcrypto.DecodeHexFixed(mv.Commit, mmcrypto.CommitBytes)
	if err != nil {
		return nil, invalidf("seed commitment: %v", err)
	}
	m.Rng.Commits[mv.Player] = mmcrypto.EncodeHex(commit)
	rngProgress(m, turn)

	evs := []Event{event("rng/committed", "match", m.ID, "player", mv.Player)}
	if len(m.Rng.Commits) == len(m.Players) {
		m.Rng.Phase = state.RngReveal
		evs = append(evs, event("rng/commits_complete", "match", m.ID))
	}
	return evs, nil
}

func applyRevealShuffleSeed(m *state.Match, mv *codec.RevealShuffleSeed, turn Turn) ([]Event, error) {
	if err := rngMover(m, mv.Player); err != nil {
		return nil, err
	}
	if m.Rng.Phase != state.RngReveal {
		return nil, invalidf("seed reveals are not open")
	}
	commitHex, ok := m.Rng.Commits[mv.Player]
	if !ok {
		return nil, invalidf("player %s never committed a seed", mv.Player)
	}
	if _, dup := m.Rng.Reveals[mv.Player]; dup {
		return nil, invalidf("player %s already revealed a seed", mv.Player)
	}
	seed, err := mmcrypto.DecodeHexFixed(mv.Seed, mmshuffle.SeedBytes)
	if err != nil {
		return nil, invalidf("seed: %v", err)
	}
	commit, err := mmcrypto.DecodeHex(commitHex)
	if err != nil {
		return nil, invalidf("stored commitment: %v", err)
	}
	if !mmshuffle.VerifySeedReveal(commit, seed) {
		return nil, invalidf("seed does not match the commitment")
	}
	m.Rng.Reveals[mv.Player] = mmcrypto.EncodeHex(seed)
	rngProgress(m, turn)

	evs := []Event{event("rng/revealed", "match", m.ID, "player", mv.Player)}
	if len(m.Rng.Reveals) == len(m.Players) {
		seeds := make([][]byte, len(m.Players))
		for i, p := range m.Players {
			s, err := mmcrypto.DecodeHex(m.Rng.Reveals[p.ID])
			if err != nil {
				return nil, invalidf("stored seed for %s: %v", p.ID, err)
			}
			seeds[i] = s
		}
		finalSeed, err := mmshuffle.CombineSeeds(seeds)
		if err != nil {
			return nil, invalidf("final seed: %v", err)
		}
		m.Rng.FinalSeed = mmcrypto.EncodeHex(finalSeed)
		m.Rng.Phase = state.RngReady
		evs = append(evs, event("rng/ready", "match", m.ID))
	}
	return evs, nil
}

func applyVoteAbortShuffle(m *state.Match, mv *codec.VoteAbortShuffle, turn Turn) ([]Event, error) {
	if err := rngMover(m, mv.Player); err != nil {
		return nil, err
	}
	if m.Rng.Phase == state.RngReady {
		return nil, invalidf("seed exchange already completed")
	}
	for _, v := range m.Rng.AbortVotes {
		if v == mv.Player {
			return nil, invalidf("player %s already voted to abort", mv.Player)
		}
	}
	if turn.MoveCount < m.Rng.LastProgress ||
		turn.MoveCount-m.Rng.LastProgress < m.Config.AbortWindow {
		return nil, invalidf("seed exchange is not stalled yet")
	}
	m.Rng.AbortVotes = state.SortedAbortVotes(append(m.Rng.AbortVotes, mv.Player))

	evs := []Event{event("rng/abort_vote",
		"match", m.ID,
		"player", mv.Player,
		"votes", strconv.Itoa(len(m.Rng.AbortVotes)),
		"quorum", strconv.Itoa(m.AbortQuorum()),
	)}
	if len(m.Rng.AbortVotes) >= m.AbortQuorum() {
		evs = append(evs, void(m, "shuffle aborted by player quorum"))
	}
	return evs, nil
}
