package engine_test

import (
	"testing"

	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/engine"
	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
	"github.com/cyotee/manamesh-sub000/internal/player"
	"github.com/cyotee/manamesh-sub000/internal/shamir"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

func TestKeyExchange_OrderEnforced(t *testing.T) {
	tb := newTable(t, []string{"alice", "bob", "carol"}, state.ModeSecure, state.MatchConfig{
		DeckSize: 12, HandSize: 2,
	})

	// Bob cannot jump the roster order.
	tb.wantInvalid(tb.keys["bob"].SubmitPublicKey(state.ModeSecure))
	tb.mustApply(tb.keys["alice"].SubmitPublicKey(state.ModeSecure))
	// Alice only gets one slot in the cycle.
	tb.wantInvalid(tb.keys["alice"].SubmitPublicKey(state.ModeSecure))
	// Unknown players are rejected outright.
	tb.wantInvalid(&codec.SubmitPublicKey{Player: "mallory", PubKey: tb.keys["bob"].CipherPub().Hex()})

	tb.mustApply(tb.keys["bob"].SubmitPublicKey(state.ModeSecure))
	tb.mustApply(tb.keys["carol"].SubmitPublicKey(state.ModeSecure))
	if tb.m.Phase != state.PhaseKeyEscrow {
		t.Fatalf("phase %s after key exchange, want %s", tb.m.Phase, state.PhaseKeyEscrow)
	}
}

func TestKeyExchange_RejectsPrivateKeyInSecureMode(t *testing.T) {
	tb := newTable(t, []string{"alice", "bob"}, state.ModeSecure, state.MatchConfig{})
	mv := tb.keys["alice"].SubmitPublicKey(state.ModeInsecureDemo)
	if mv.PrivateKey == "" {
		t.Fatalf("demo move should carry the private key")
	}
	tb.wantInvalid(mv)
}

func TestCreateMatch_InsecureDemoDisabledInThisBuild(t *testing.T) {
	k, err := player.NewKeys("alice")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	k2, err := player.NewKeys("bob")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	mv := player.CreateMatchMove("alice", state.ModeInsecureDemo, []*player.Keys{k, k2}, state.MatchConfig{})
	if _, _, err := engine.NewMatchFromMove("m-demo", mv); err == nil {
		t.Fatalf("insecure-demo match created in a non-demo build")
	}
}

func TestKeyEscrow_Validation(t *testing.T) {
	tb := newTable(t, []string{"alice", "bob", "carol"}, state.ModeSecure, state.MatchConfig{
		DeckSize: 12, HandSize: 2,
	})
	tb.runKeyExchange()

	good, err := tb.keys["alice"].DistributeKeyShares(tb.m)
	if err != nil {
		t.Fatalf("shares: %v", err)
	}

	// Threshold is pinned to n-1.
	bad := *good
	bad.Threshold = 3
	tb.wantInvalid(&bad)

	// The first Feldman commitment must bind the dealer's cipher key.
	bad = *good
	bad.Commits = append([]string(nil), good.Commits...)
	bad.Commits[0] = tb.keys["bob"].CipherPub().Hex()
	tb.wantInvalid(&bad)

	// Shares must target the roster in order with x = seat+1.
	bad = *good
	bad.Shares = append([]codec.SealedShare(nil), good.Shares...)
	bad.Shares[0], bad.Shares[1] = bad.Shares[1], bad.Shares[0]
	tb.wantInvalid(&bad)

	tb.mustApply(good)
}

func TestKeyEscrow_SharesRecoverDroppedKey(t *testing.T) {
	tb := newTable(t, []string{"alice", "bob", "carol"}, state.ModeSecure, state.MatchConfig{
		DeckSize: 12, HandSize: 2,
	})
	tb.runKeyExchange()
	tb.runKeyEscrow()

	// Alice drops. Bob and carol unseal their shares of her cipher key and
	// meet the n-1 threshold.
	var shares []shamir.Share
	for _, sh := range tb.m.Escrow.Shares {
		if sh.From != "alice" || sh.To == "alice" {
			continue
		}
		rec, err := tb.keys[sh.To].UnsealShare(sh)
		if err != nil {
			t.Fatalf("unseal by %s: %v", sh.To, err)
		}
		ok, err := shamir.VerifyShare(feldmanCommits(t, tb.m, "alice"), rec)
		if err != nil || !ok {
			t.Fatalf("share from %s fails its commitment: %v", sh.To, err)
		}
		shares = append(shares, rec)
	}
	if len(shares) != 2 {
		t.Fatalf("recovered %d shares, want 2", len(shares))
	}

	secret, err := shamir.Combine(shares, tb.m.Escrow.Threshold)
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	alice, _, _ := tb.m.Player("alice")
	if mmcrypto.MulBase(secret).Hex() != alice.CipherKey {
		t.Fatalf("recovered scalar does not regenerate alice's cipher key")
	}
}

func feldmanCommits(t *testing.T, m *state.Match, dealer string) []mmcrypto.Point {
	t.Helper()
	hexes := m.Escrow.Commits[dealer]
	out := make([]mmcrypto.Point, len(hexes))
	for i, h := range hexes {
		p, err := mmcrypto.PointFromHex(h)
		if err != nil {
			t.Fatalf("commitment %d: %v", i, err)
		}
		out[i] = p
	}
	return out
}

func TestEncryptDeck_TamperedSlotRejected(t *testing.T) {
	tb := newTable(t, []string{"alice", "bob"}, state.ModeSecure, state.MatchConfig{
		DeckSize: 8, HandSize: 2,
	})
	tb.runKeyExchange()
	tb.runKeyEscrow()

	good, err := tb.keys["alice"].EncryptDeck(tb.m)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	// Swapping two output slots preserves every point's validity but
	// breaks the batched discrete-log relation.
	bad := *good
	bad.Deck = append([]string(nil), good.Deck...)
	bad.Deck[0], bad.Deck[1] = bad.Deck[1], bad.Deck[0]
	tb.wantInvalid(&bad)

	// Replacing a slot with a fresh random point is caught the same way.
	r, err := mmcrypto.NewRandomScalar()
	if err != nil {
		t.Fatalf("scalar: %v", err)
	}
	bad = *good
	bad.Deck = append([]string(nil), good.Deck...)
	bad.Deck[3] = mmcrypto.MulBase(r).Hex()
	tb.wantInvalid(&bad)

	tb.mustApply(good)
	deck := tb.zone(state.ZoneDeck)
	for i, c := range deck.Cards {
		if c.Layers != 1 {
			t.Fatalf("slot %d has %d layers after one pass, want 1", i, c.Layers)
		}
	}
}

func TestShuffleDeck_MustFollowAgreedPermutation(t *testing.T) {
	tb := newTable(t, []string{"alice", "bob"}, state.ModeSecure, state.MatchConfig{
		DeckSize: 8, HandSize: 2,
	})
	tb.runKeyExchange()
	tb.runKeyEscrow()
	tb.runEncrypt()

	// Shuffling before the seed exchange completes is rejected.
	tb.wantInvalid(&codec.ShuffleDeck{Player: "alice", Deck: make([]string, 8)})
	tb.runRng()

	good, err := tb.keys["alice"].ShuffleDeck(tb.m)
	if err != nil {
		t.Fatalf("shuffle: %v", err)
	}

	// An output that disagrees with the committed permutation fails the
	// proof even though every card is still present.
	bad := *good
	bad.Deck = append([]string(nil), good.Deck...)
	bad.Deck[0], bad.Deck[1] = bad.Deck[1], bad.Deck[0]
	tb.wantInvalid(&bad)

	tb.mustApply(good)

	mv, err := tb.keys["bob"].ShuffleDeck(tb.m)
	if err != nil {
		t.Fatalf("shuffle: %v", err)
	}
	tb.mustApply(mv)

	if tb.m.Phase != state.PhasePlay {
		t.Fatalf("phase %s after shuffles, want %s", tb.m.Phase, state.PhasePlay)
	}
	if got := len(tb.zone(state.ZoneDeck).Cards); got != 4 {
		t.Fatalf("deck has %d cards after dealing, want 4", got)
	}
	if got := len(tb.m.DeckCommits); got != 4 {
		t.Fatalf("recorded %d deck commitments, want 4", got)
	}
}
