package engine_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/engine"
	"github.com/cyotee/manamesh-sub000/internal/player"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

func TestVerdict_ClaimLifecycle(t *testing.T) {
	tb := liveTable(t, []string{"alice", "bob"})
	claim, err := tb.keys["bob"].WinClaim("claim-1", []byte("hand history"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	bad := *claim
	bad.Kind = "rank-proof"
	tb.wantInvalid(&bad)
	bad = *claim
	bad.ClaimID = ""
	tb.wantInvalid(&bad)
	bad = *claim
	bad.ClaimID = strings.Repeat("x", 41)
	tb.wantInvalid(&bad)
	bad = *claim
	bad.ClaimID = "has space"
	tb.wantInvalid(&bad)
	bad = *claim
	bad.PayloadHash = "0x1234"
	tb.wantInvalid(&bad)

	tb.mustApply(claim)
	tb.lastEvent("attest/claim")
	rec := tb.m.Claim("claim-1")
	if rec == nil || rec.Claimant != "bob" || rec.Verifier != "alice" || rec.Verdict != "" {
		t.Fatalf("stored claim: %+v", rec)
	}
	tb.wantInvalid(claim)

	// Only the designated verifier rules.
	rule, err := tb.keys["bob"].Verdict(tb.m, "claim-1", state.VerdictValid)
	if err != nil {
		t.Fatalf("verdict: %v", err)
	}
	tb.wantInvalid(rule)

	tb.wantInvalid(&codec.SubmitVerdict{
		Player: "alice", ClaimID: "ghost", Verdict: state.VerdictValid, Sig: "0x00",
	})

	rule, err = tb.keys["alice"].Verdict(tb.m, "claim-1", state.VerdictValid)
	if err != nil {
		t.Fatalf("verdict: %v", err)
	}
	tampered := *rule
	tampered.Verdict = "maybe"
	tb.wantInvalid(&tampered)
	// Flipping the ruling without re-signing breaks the signature.
	tampered = *rule
	tampered.Verdict = state.VerdictInvalid
	tb.wantInvalid(&tampered)

	tb.mustApply(rule)
	tb.lastEvent("attest/verdict")
	if ev := tb.lastEvent("match/game_over"); ev.Attrs["winner"] != "bob" {
		t.Fatalf("game_over attrs %v", ev.Attrs)
	}
	if tb.m.Phase != state.PhaseGameOver || tb.m.Winner != "bob" {
		t.Fatalf("after valid ruling: phase=%s winner=%q", tb.m.Phase, tb.m.Winner)
	}
	if rec := tb.m.Claim("claim-1"); rec.Verdict != state.VerdictValid || rec.Sig != rule.Sig {
		t.Fatalf("settled claim: %+v", rec)
	}

	another, err := tb.keys["bob"].WinClaim("claim-2", []byte("more"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, _, err := engine.Apply(tb.m, another, tb.turn); !errors.Is(err, engine.ErrInvalidMove) {
		t.Fatalf("claim on a finished match: %v", err)
	}
}

func TestVerdict_InvalidRulingVoidsTheMatch(t *testing.T) {
	tb := liveTable(t, []string{"alice", "bob"})
	claim, err := tb.keys["bob"].WinClaim("claim-1", []byte("hand history"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	tb.mustApply(claim)

	rule, err := tb.keys["alice"].Verdict(tb.m, "claim-1", state.VerdictInvalid)
	if err != nil {
		t.Fatalf("verdict: %v", err)
	}
	tb.mustApply(rule)

	if tb.m.Phase != state.PhaseVoided || !strings.Contains(tb.m.VoidReason, "claim-1") {
		t.Fatalf("after invalid ruling: phase=%s reason=%q", tb.m.Phase, tb.m.VoidReason)
	}
	if tb.m.Winner != "" {
		t.Fatalf("voided match crowned %q", tb.m.Winner)
	}
	if _, _, err := engine.Apply(tb.m, &codec.Draw{Player: "alice"}, tb.turn); !errors.Is(err, engine.ErrVoided) {
		t.Fatalf("move on a voided match: %v", err)
	}
}

func TestVerdict_SeedSaltsTheSignature(t *testing.T) {
	tbA := liveTable(t, []string{"alice", "bob"})
	payload := []byte("final standings")
	claimA, err := tbA.keys["bob"].WinClaim("claim-1", payload)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	tbA.mustApply(claimA)
	ruleA, err := tbA.keys["alice"].Verdict(tbA.m, "claim-1", state.VerdictValid)
	if err != nil {
		t.Fatalf("verdict: %v", err)
	}
	tbA.mustApply(ruleA)

	// Same seats, same keys, a fresh match. The identical claim goes up,
	// but the old ruling is salted by the old shuffle seed and dies here.
	mv := player.CreateMatchMove("alice", state.ModeSecure, tbA.roster,
		state.MatchConfig{DeckSize: 8, HandSize: 2})
	mB, _, err := engine.NewMatchFromMove(tbA.m.ID+"-next", mv)
	if err != nil {
		t.Fatalf("second match: %v", err)
	}
	tbB := &table{t: t, m: mB, keys: tbA.keys, roster: tbA.roster}
	tbB.runSetup()

	claimB, err := tbB.keys["bob"].WinClaim("claim-1", payload)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	tbB.mustApply(claimB)
	replay := *ruleA
	tbB.wantInvalid(&replay)

	fresh, err := tbB.keys["alice"].Verdict(tbB.m, "claim-1", state.VerdictValid)
	if err != nil {
		t.Fatalf("verdict: %v", err)
	}
	tbB.mustApply(fresh)
	if tbB.m.Winner != "bob" {
		t.Fatalf("winner %q after fresh ruling", tbB.m.Winner)
	}
}
