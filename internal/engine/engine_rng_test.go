package engine_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/engine"
	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
	"github.com/cyotee/manamesh-sub000/internal/mmshuffle"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

func rngTable(t *testing.T, ids []string, window uint64) *table {
	t.Helper()
	tb := newTable(t, ids, state.ModeSecure, state.MatchConfig{
		DeckSize: 8, HandSize: 2, AbortWindow: window,
	})
	tb.runKeyExchange()
	tb.runKeyEscrow()
	tb.runEncrypt()
	if tb.m.Phase != state.PhaseShuffle {
		t.Fatalf("phase %s, want %s", tb.m.Phase, state.PhaseShuffle)
	}
	return tb
}

func TestRng_CommitThenRevealRecomputesFinalSeed(t *testing.T) {
	tb := rngTable(t, []string{"alice", "bob"}, 4)

	aliceCommit, err := tb.keys["alice"].CommitSeed()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	tb.mustApply(aliceCommit)

	// Reveals stay closed until every commit is in, and a player only gets
	// one commit.
	aliceReveal, err := tb.keys["alice"].RevealSeed()
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	tb.wantInvalid(aliceReveal)
	tb.wantInvalid(aliceCommit)

	bobCommit, err := tb.keys["bob"].CommitSeed()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	tb.mustApply(bobCommit)
	if tb.m.Rng.Phase != state.RngReveal {
		t.Fatalf("rng phase %s, want %s", tb.m.Rng.Phase, state.RngReveal)
	}
	tb.wantInvalid(aliceCommit)

	// A seed that does not open the commitment is rejected.
	tb.wantInvalid(&codec.RevealShuffleSeed{
		Player: "bob",
		Seed:   "0x" + strings.Repeat("ab", mmshuffle.SeedBytes),
	})

	tb.mustApply(aliceReveal)
	if tb.m.Rng.Phase != state.RngReveal {
		t.Fatalf("rng finalized with a reveal missing")
	}
	bobReveal, err := tb.keys["bob"].RevealSeed()
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	tb.mustApply(bobReveal)
	if tb.m.Rng.Phase != state.RngReady {
		t.Fatalf("rng phase %s, want %s", tb.m.Rng.Phase, state.RngReady)
	}

	// The final seed is exactly the combined reveals in roster order, so
	// any observer recomputes it.
	seeds := make([][]byte, 2)
	for i, mv := range []*codec.RevealShuffleSeed{aliceReveal, bobReveal} {
		seeds[i], err = mmcrypto.DecodeHex(mv.Seed)
		if err != nil {
			t.Fatalf("seed hex: %v", err)
		}
	}
	want, err := mmshuffle.CombineSeeds(seeds)
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	if tb.m.Rng.FinalSeed != mmcrypto.EncodeHex(want) {
		t.Fatalf("final seed %s, want %s", tb.m.Rng.FinalSeed, mmcrypto.EncodeHex(want))
	}
}

func TestRng_AbortNeedsStallAndQuorum(t *testing.T) {
	tb := rngTable(t, []string{"alice", "bob", "carol"}, 4)

	// Carol commits; the others stall. No vote counts before the window.
	mv, err := tb.keys["carol"].CommitSeed()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	tb.mustApply(mv)
	tb.wantInvalid(&codec.VoteAbortShuffle{Player: "alice"})

	tb.turn.MoveCount += tb.m.Config.AbortWindow
	tb.mustApply(&codec.VoteAbortShuffle{Player: "alice"})
	tb.wantInvalid(&codec.VoteAbortShuffle{Player: "alice"})
	if len(tb.m.Rng.AbortVotes) != 1 {
		t.Fatalf("%d votes recorded, want 1", len(tb.m.Rng.AbortVotes))
	}

	// Two of three is the quorum; the match voids and stays voided.
	tb.mustApply(&codec.VoteAbortShuffle{Player: "bob"})
	if tb.m.Phase != state.PhaseVoided {
		t.Fatalf("phase %s after quorum, want %s", tb.m.Phase, state.PhaseVoided)
	}
	if tb.m.VoidReason == "" {
		t.Fatalf("voided without a reason")
	}

	_, _, err = engine.Apply(tb.m, &codec.VoteAbortShuffle{Player: "carol"}, tb.turn)
	if !errors.Is(err, engine.ErrVoided) {
		t.Fatalf("move against voided match: want ErrVoided, got %v", err)
	}
}

func TestRng_ProgressClearsVotes(t *testing.T) {
	tb := rngTable(t, []string{"alice", "bob", "carol"}, 4)

	mv, err := tb.keys["carol"].CommitSeed()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	tb.mustApply(mv)

	tb.turn.MoveCount += tb.m.Config.AbortWindow
	tb.mustApply(&codec.VoteAbortShuffle{Player: "alice"})

	// Bob's commit is progress: the stall clock restarts and the standing
	// vote is wiped.
	mv, err = tb.keys["bob"].CommitSeed()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	tb.mustApply(mv)
	if len(tb.m.Rng.AbortVotes) != 0 {
		t.Fatalf("votes survived progress")
	}
	tb.wantInvalid(&codec.VoteAbortShuffle{Player: "alice"})
}
