package state

import (
	"bytes"
	"strings"
	"testing"
)

func testMatch(t *testing.T, id string) *Match {
	t.Helper()
	m, err := NewMatch(id, ModeSecure, MatchConfig{}, []string{"alice", "bob"}, map[string]string{
		"alice": "0x" + strings.Repeat("11", 32),
		"bob":   "0x" + strings.Repeat("22", 32),
	})
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	return m
}

func TestAppHash_StableAcrossMapOrder(t *testing.T) {
	s1 := NewStore()
	s1.Height = 7
	s1.Matches["m2"] = testMatch(t, "m2")
	s1.Matches["m1"] = testMatch(t, "m1")
	s1.NonceMax["bob"] = 2
	s1.NonceMax["alice"] = 1
	s1.Turns["m2"] = "bob"
	s1.Turns["m1"] = "alice"

	s2 := NewStore()
	s2.Height = 7
	s2.Matches["m1"] = testMatch(t, "m1")
	s2.Matches["m2"] = testMatch(t, "m2")
	s2.NonceMax["alice"] = 1
	s2.NonceMax["bob"] = 2
	s2.Turns["m1"] = "alice"
	s2.Turns["m2"] = "bob"

	h1 := s1.AppHash()
	h2 := s2.AppHash()
	if !bytes.Equal(h1, h2) {
		t.Fatalf("expected stable app hash; h1=%x h2=%x", h1, h2)
	}

	// Any semantic change should change the hash.
	s2.Matches["m1"].SetupTurn = 1
	if bytes.Equal(h1, s2.AppHash()) {
		t.Fatalf("expected hash to change after state mutation")
	}
	s2.Matches["m1"].SetupTurn = 0
	s2.Turns["m1"] = "bob"
	if bytes.Equal(h1, s2.AppHash()) {
		t.Fatalf("expected hash to change after turn handoff")
	}
}

func TestStore_SaveLoadRoundtrip(t *testing.T) {
	home := t.TempDir()

	s := NewStore()
	s.Height = 3
	s.Matches["m1"] = testMatch(t, "m1")
	s.Matches["m1"].Phase = PhaseKeyEscrow
	s.Matches["m1"].SetupTurn = 1
	s.NonceMax["alice"] = 9
	s.Turns["m1"] = "bob"

	if err := s.Save(home); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(home)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(s.AppHash(), got.AppHash()) {
		t.Fatalf("roundtrip changed app hash")
	}
	if got.Matches["m1"].Phase != PhaseKeyEscrow {
		t.Fatalf("phase lost: %q", got.Matches["m1"].Phase)
	}
	if got.Turns["m1"] != "bob" {
		t.Fatalf("turn marker lost: %q", got.Turns["m1"])
	}
}

func TestLoad_MissingFileYieldsEmptyStore(t *testing.T) {
	got, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Height != 0 || len(got.Matches) != 0 {
		t.Fatalf("expected empty store, got height=%d matches=%d", got.Height, len(got.Matches))
	}
}

func TestClone_Independent(t *testing.T) {
	s := NewStore()
	s.Matches["m1"] = testMatch(t, "m1")

	c, err := s.Clone()
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	c.Matches["m1"].Phase = PhaseVoided
	c.Matches["m1"].Players[0].CipherKey = "0x" + strings.Repeat("33", 32)
	c.NonceMax["alice"] = 5
	c.Turns["m1"] = "bob"

	if s.Matches["m1"].Phase != PhaseKeyExchange {
		t.Fatalf("clone mutation leaked into original phase")
	}
	if s.Matches["m1"].Players[0].CipherKey != "" {
		t.Fatalf("clone mutation leaked into original player")
	}
	if _, ok := s.NonceMax["alice"]; ok {
		t.Fatalf("clone mutation leaked into original nonces")
	}
	if _, ok := s.Turns["m1"]; ok {
		t.Fatalf("clone mutation leaked into original turns")
	}
}

func TestNewMatch_Validation(t *testing.T) {
	keys := map[string]string{
		"alice": "0x" + strings.Repeat("11", 32),
		"bob":   "0x" + strings.Repeat("22", 32),
	}

	if _, err := NewMatch("m", ModeSecure, MatchConfig{}, []string{"alice"}, keys); err == nil {
		t.Fatalf("expected error for 1-player roster")
	}
	if _, err := NewMatch("m", ModeSecure, MatchConfig{}, []string{"alice", "alice"}, keys); err == nil {
		t.Fatalf("expected error for duplicate player")
	}
	if _, err := NewMatch("m", ModeSecure, MatchConfig{}, []string{"alice", "car#l"}, keys); err == nil {
		t.Fatalf("expected error for reserved characters")
	}
	if _, err := NewMatch("m", ModeSecure, MatchConfig{}, []string{"alice", "carl"}, keys); err == nil {
		t.Fatalf("expected error for missing sig key")
	}
	if _, err := NewMatch("m", "paranoid", MatchConfig{}, []string{"alice", "bob"}, keys); err == nil {
		t.Fatalf("expected error for unknown security mode")
	}
	if _, err := NewMatch("m", ModeSecure, MatchConfig{DeckSize: 10, HandSize: 6}, []string{"alice", "bob"}, keys); err == nil {
		t.Fatalf("expected error for oversized hands")
	}

	m, err := NewMatch("m", ModeSecure, MatchConfig{}, []string{"alice", "bob"}, keys)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	if m.Config.DeckSize != StandardDeckSize || m.Config.HandSize != DefaultHandSize || m.Config.AbortWindow != DefaultAbortWindow {
		t.Fatalf("defaults not applied: %+v", m.Config)
	}
	if m.AbortQuorum() != 2 {
		t.Fatalf("abort quorum for 2 players = %d, want 2", m.AbortQuorum())
	}
}

func TestRevealKey_Roundtrip(t *testing.T) {
	key := RevealKey(HandZone("bob"), 3)
	if key != "hand:bob#3" {
		t.Fatalf("key=%q", key)
	}
	zone, idx, err := ParseRevealKey(key)
	if err != nil || zone != "hand:bob" || idx != 3 {
		t.Fatalf("parse: zone=%q idx=%d err=%v", zone, idx, err)
	}

	for _, bad := range []string{"", "deck", "#1", "deck#", "deck#x", "deck#-1"} {
		if _, _, err := ParseRevealKey(bad); err == nil {
			t.Fatalf("expected parse failure for %q", bad)
		}
	}
}

func TestCard_String(t *testing.T) {
	cases := []struct {
		card Card
		want string
	}{
		{Card(0), "2c"},
		{Card(12), "Ac"},
		{Card(13), "2d"},
		{Card(25), "Ad"},
		{Card(38), "Ah"},
		{Card(51), "As"},
	}
	for _, tc := range cases {
		if got := tc.card.String(); got != tc.want {
			t.Fatalf("Card(%d).String()=%q want=%q", tc.card, got, tc.want)
		}
	}

	deck := CanonicalDeck(StandardDeckSize)
	if len(deck) != 52 || deck[0] != Card(0) || deck[51] != Card(51) {
		t.Fatalf("canonical deck malformed")
	}
}
