package engine

import (
	"fmt"
	"strconv"

	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
	"github.com/cyotee/manamesh-sub000/internal/mmshuffle"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

const (
	deckCommitDomain = "manamesh/v1/deck-commit"
	maskBatchDomain  = "manamesh/v1/deck-mask-batch"
)

// A sealed escrow share is a fixed-size box: 32-byte ephemeral key, 12-byte
// nonce, and the 32-byte share scalar plus the 16-byte AEAD tag.
const sealedShareBytes = 32 + 12 + 32 + 16

func setupMover(m *state.Match, phase state.Phase, player string) error {
	if m.Phase != phase {
		return invalidf("move not allowed in phase %s", m.Phase)
	}
	if _, _, err := m.Player(player); err != nil {
		return invalidf("%v", err)
	}
	if want := m.SetupPlayer().ID; want != player {
		return invalidf("waiting on %s, not %s", want, player)
	}
	return nil
}

// advanceSetup moves the sequential-phase cursor and, when the cycle
// completes, transitions to the next phase.
func advanceSetup(m *state.Match, turn Turn) ([]Event, error) {
	m.SetupTurn++
	if m.SetupTurn < len(m.Players) {
		return nil, nil
	}
	m.SetupTurn = 0

	var evs []Event
	switch m.Phase {
	case state.PhaseKeyExchange:
		m.Phase = state.PhaseKeyEscrow
	case state.PhaseKeyEscrow:
		m.Phase = state.PhaseEncrypt
		enterEncrypt(m)
	case state.PhaseEncrypt:
		m.Phase = state.PhaseShuffle
		m.Rng = &state.ShuffleRng{
			Phase:        state.RngCommit,
			Commits:      map[string]string{},
			Reveals:      map[string]string{},
			LastProgress: turn.MoveCount,
		}
	case state.PhaseShuffle:
		dealt, err := enterPlay(m)
		if err != nil {
			return nil, err
		}
		evs = append(evs, dealt...)
	default:
		return nil, invalidf("no setup cycle in phase %s", m.Phase)
	}
	evs = append(evs, event("match/phase", "match", m.ID, "phase", string(m.Phase)))
	return evs, nil
}

// enterEncrypt seeds the shared deck zone with the plaintext card points
// for the configured deck size.
func enterEncrypt(m *state.Match) {
	cards := make([]state.EncryptedCard, m.Config.DeckSize)
	for i, c := range state.CanonicalDeck(m.Config.DeckSize) {
		cards[i] = state.EncryptedCard{CT: CardPoint(c).Hex(), Layers: 0}
	}
	if m.Zones == nil {
		m.Zones = map[string]*state.Zone{}
	}
	m.Zones[state.ZoneDeck] = &state.Zone{Cards: cards}
}

// enterPlay creates the per-player zones and deals the opening hands, top
// of the deck first (the top is the highest index).
func enterPlay(m *state.Match) ([]Event, error) {
	deck, err := m.Zone(state.ZoneDeck)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	for _, p := range m.Players {
		m.Zones[state.HandZone(p.ID)] = &state.Zone{Owner: p.ID, Cards: []state.EncryptedCard{}}
		m.Zones[state.ClaimedZone(p.ID)] = &state.Zone{Owner: p.ID, Cards: []state.EncryptedCard{}}
	}
	for h := 0; h < int(m.Config.HandSize); h++ {
		for _, p := range m.Players {
			top := len(deck.Cards) - 1
			card := deck.Cards[top]
			deck.Cards = deck.Cards[:top]
			hand := m.Zones[state.HandZone(p.ID)]
			hand.Cards = append(hand.Cards, card)
		}
	}
	m.Phase = state.PhasePlay
	return []Event{event("match/dealt",
		"match", m.ID,
		"handSize", strconv.Itoa(int(m.Config.HandSize)),
		"deckLeft", strconv.Itoa(len(deck.Cards)),
	)}, nil
}

func applySubmitPublicKey(m *state.Match, mv *codec.SubmitPublicKey, turn Turn) ([]Event, error) {
	if err := setupMover(m, state.PhaseKeyExchange, mv.Player); err != nil {
		return nil, err
	}
	p, _, _ := m.Player(mv.Player)
	if p.CipherKey != "" {
		return nil, invalidf("player %s already submitted a key", mv.Player)
	}
	pk, err := mmcrypto.PointFromHex(mv.PubKey)
	if err != nil {
		return nil, invalidf("public key: %v", err)
	}
	if mmcrypto.PointEq(pk, mmcrypto.PointZero()) {
		return nil, invalidf("public key is the identity point")
	}

	switch m.Security {
	case state.ModeInsecureDemo:
		if !insecureDemoEnabled {
			return nil, invalidf("insecure-demo matches are disabled in this build")
		}
		if mv.PrivateKey == "" {
			return nil, invalidf("insecure-demo requires the private key alongside the public key")
		}
		sk, err := mmcrypto.ScalarFromHex(mv.PrivateKey)
		if err != nil {
			return nil, invalidf("private key: %v", err)
		}
		if !mmcrypto.PointEq(mmcrypto.MulBase(sk), pk) {
			return nil, invalidf("private key does not match public key")
		}
		p.PrivateKey = sk.Hex()
	default:
		if mv.PrivateKey != "" {
			return nil, invalidf("private key submission is only valid in insecure-demo matches")
		}
	}

	p.CipherKey = pk.Hex()
	evs := []Event{event("setup/public_key", "match", m.ID, "player", mv.Player)}
	more, err := advanceSetup(m, turn)
	if err != nil {
		return nil, err
	}
	return append(evs, more...), nil
}

func applyDistributeKeyShares(m *state.Match, mv *codec.DistributeKeyShares, turn Turn) ([]Event, error) {
	if err := setupMover(m, state.PhaseKeyEscrow, mv.Player); err != nil {
		return nil, err
	}
	n := len(m.Players)
	wantT := n - 1
	if wantT < 2 {
		wantT = 2
	}
	if mv.Threshold != wantT {
		return nil, invalidf("threshold must be %d for %d players, got %d", wantT, n, mv.Threshold)
	}
	if len(mv.Commits) != wantT {
		return nil, invalidf("want %d polynomial commitments, got %d", wantT, len(mv.Commits))
	}
	commits := make([]string, len(mv.Commits))
	for i, c := range mv.Commits {
		pt, err := mmcrypto.PointFromHex(c)
		if err != nil {
			return nil, invalidf("commitment %d: %v", i, err)
		}
		commits[i] = pt.Hex()
	}
	dealer, _, _ := m.Player(mv.Player)
	if commits[0] != dealer.CipherKey {
		return nil, invalidf("first commitment must equal the dealer's cipher key")
	}
	if len(mv.Shares) != n {
		return nil, invalidf("want one sealed share per player, got %d", len(mv.Shares))
	}
	for i, sh := range mv.Shares {
		if sh.To != m.Players[i].ID {
			return nil, invalidf("share %d must target %s in roster order", i, m.Players[i].ID)
		}
		if sh.X != uint32(i+1) {
			return nil, invalidf("share for %s must use index %d", sh.To, i+1)
		}
		if _, err := mmcrypto.DecodeHexFixed(sh.Sealed, sealedShareBytes); err != nil {
			return nil, invalidf("sealed share for %s: %v", sh.To, err)
		}
	}

	if m.Escrow == nil {
		m.Escrow = &state.Escrow{Threshold: wantT, Commits: map[string][]string{}}
	}
	if _, dup := m.Escrow.Commits[mv.Player]; dup {
		return nil, invalidf("player %s already distributed shares", mv.Player)
	}
	m.Escrow.Commits[mv.Player] = commits
	for _, sh := range mv.Shares {
		m.Escrow.Shares = append(m.Escrow.Shares, state.EscrowShare{
			From:   mv.Player,
			To:     sh.To,
			X:      sh.X,
			Sealed: sh.Sealed,
		})
	}

	evs := []Event{event("escrow/shares",
		"match", m.ID,
		"player", mv.Player,
		"threshold", strconv.Itoa(wantT),
	)}
	more, err := advanceSetup(m, turn)
	if err != nil {
		return nil, err
	}
	return append(evs, more...), nil
}

func applyEncryptDeck(m *state.Match, mv *codec.EncryptDeck, turn Turn) ([]Event, error) {
	if err := setupMover(m, state.PhaseEncrypt, mv.Player); err != nil {
		return nil, err
	}
	deck, err := m.Zone(state.ZoneDeck)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	if len(mv.Deck) != len(deck.Cards) {
		return nil, invalidf("deck must keep %d cards, got %d", len(deck.Cards), len(mv.Deck))
	}
	before := uint8(m.SetupTurn)
	for i, c := range deck.Cards {
		if c.Layers != before {
			return nil, invalidf("deck slot %d carries %d layers, want %d", i, c.Layers, before)
		}
	}
	out, err := parseDeckHex(mv.Deck, before+1)
	if err != nil {
		return nil, invalidf("deck: %v", err)
	}

	if err := verifyMaskBatch(m, mv.Player, deck.Cards, out, mv.Proof); err != nil {
		return nil, err
	}
	if err := recordDeckCommit(m, mv.Player, "encrypt", out, mv.CommitNonce, turn); err != nil {
		return nil, err
	}
	deck.Cards = out

	evs := []Event{event("deck/encrypted",
		"match", m.ID,
		"player", mv.Player,
		"layers", strconv.Itoa(int(before)+1),
	)}
	more, err := advanceSetup(m, turn)
	if err != nil {
		return nil, err
	}
	return append(evs, more...), nil
}

// MaskBatchStatement folds the input and output decks into one
// Chaum-Pedersen statement (y, c, d): if every output slot is the input
// slot masked under the player's cipher key then d = x*c, and any
// deviating slot breaks the relation except with negligible probability
// over the hash-derived weights. Provers and the engine both compute the
// statement from here.
func MaskBatchStatement(m *state.Match, player string, in, out []state.EncryptedCard) (y, c, d mmcrypto.Point, err error) {
	p, _, err := m.Player(player)
	if err != nil {
		return y, c, d, err
	}
	if p.CipherKey == "" {
		return y, c, d, fmt.Errorf("player %s has no cipher key", player)
	}
	y, err = mmcrypto.PointFromHex(p.CipherKey)
	if err != nil {
		return y, c, d, fmt.Errorf("player %s cipher key: %w", player, err)
	}
	inBytes, err := DeckBytes(in)
	if err != nil {
		return y, c, d, err
	}
	outBytes, err := DeckBytes(out)
	if err != nil {
		return y, c, d, err
	}
	inDigest, err := mmshuffle.DeckDigest(inBytes)
	if err != nil {
		return y, c, d, err
	}
	outDigest, err := mmshuffle.DeckDigest(outBytes)
	if err != nil {
		return y, c, d, err
	}
	rho, err := mmcrypto.HashToScalar(maskBatchDomain,
		[]byte(m.ID), []byte(player), inDigest, outDigest)
	if err != nil {
		return y, c, d, err
	}

	weight := mmcrypto.ScalarOne()
	c = mmcrypto.PointZero()
	d = mmcrypto.PointZero()
	for i := range in {
		inPt, err := maskedFromCard(in[i])
		if err != nil {
			return y, c, d, fmt.Errorf("deck slot %d: %w", i, err)
		}
		outPt, err := maskedFromCard(out[i])
		if err != nil {
			return y, c, d, fmt.Errorf("deck slot %d: %w", i, err)
		}
		c = mmcrypto.PointAdd(c, mmcrypto.MulPoint(inPt.P, weight))
		d = mmcrypto.PointAdd(d, mmcrypto.MulPoint(outPt.P, weight))
		weight = mmcrypto.ScalarMul(weight, rho)
	}
	return y, c, d, nil
}

func verifyMaskBatch(m *state.Match, player string, in, out []state.EncryptedCard, proofHex string) error {
	y, c, d, err := MaskBatchStatement(m, player, in, out)
	if err != nil {
		return invalidf("%v", err)
	}
	raw, err := mmcrypto.DecodeHexFixed(proofHex, mmcrypto.ChaumPedersenProofBytes)
	if err != nil {
		return invalidf("mask proof: %v", err)
	}
	proof, err := mmcrypto.DecodeChaumPedersenProof(raw)
	if err != nil {
		return invalidf("mask proof: %v", err)
	}
	ok, err := mmcrypto.ChaumPedersenVerify(y, c, d, proof)
	if err != nil {
		return invalidf("mask proof: %v", err)
	}
	if !ok {
		return invalidf("mask proof does not verify")
	}
	return nil
}

// recordDeckCommit appends the player's binding commitment to the deck
// arrangement they produced.
func recordDeckCommit(m *state.Match, player, stage string, cards []state.EncryptedCard, nonceHex string, turn Turn) error {
	nonce, err := mmcrypto.DecodeHexFixed(nonceHex, mmcrypto.CommitNonceBytes)
	if err != nil {
		return invalidf("commit nonce: %v", err)
	}
	fields, err := DeckBytes(cards)
	if err != nil {
		return invalidf("deck: %v", err)
	}
	commitment, err := mmcrypto.Commit(deckCommitDomain, nonce, fields...)
	if err != nil {
		return invalidf("deck commitment: %v", err)
	}
	m.DeckCommits = append(m.DeckCommits, state.DeckCommitment{
		Player: player,
		Stage:  stage,
		Hash:   mmcrypto.EncodeHex(commitment),
		Nonce:  mmcrypto.EncodeHex(nonce),
		Time:   turn.NowUnix,
	})
	return nil
}

func applyShuffleDeck(m *state.Match, mv *codec.ShuffleDeck, turn Turn) ([]Event, error) {
	if err := setupMover(m, state.PhaseShuffle, mv.Player); err != nil {
		return nil, err
	}
	if m.Rng == nil || m.Rng.Phase != state.RngReady {
		return nil, invalidf("shuffle seed exchange is not complete")
	}
	deck, err := m.Zone(state.ZoneDeck)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	if len(mv.Deck) != len(deck.Cards) {
		return nil, invalidf("deck must keep %d cards, got %d", len(deck.Cards), len(mv.Deck))
	}

	finalSeed, err := mmcrypto.DecodeHexFixed(m.Rng.FinalSeed, mmshuffle.SeedBytes)
	if err != nil {
		return nil, invalidf("final seed: %v", err)
	}
	stageSeed, err := mmshuffle.StageSeed(finalSeed, uint32(m.SetupTurn))
	if err != nil {
		return nil, invalidf("stage seed: %v", err)
	}
	wantPerm, err := mmshuffle.FromSeed(stageSeed, len(deck.Cards))
	if err != nil {
		return nil, invalidf("stage permutation: %v", err)
	}

	proof, err := decodeShuffleProof(mv.Proof)
	if err != nil {
		return nil, err
	}
	if len(proof.Perm) != len(wantPerm) {
		return nil, invalidf("permutation has %d entries, want %d", len(proof.Perm), len(wantPerm))
	}
	for i := range wantPerm {
		if proof.Perm[i] != wantPerm[i] {
			return nil, invalidf("permutation does not match the agreed seed at slot %d", i)
		}
	}

	out, err := parseDeckHex(mv.Deck, deck.Cards[0].Layers)
	if err != nil {
		return nil, invalidf("deck: %v", err)
	}
	inBytes, err := DeckBytes(deck.Cards)
	if err != nil {
		return nil, invalidf("deck: %v", err)
	}
	outBytes, err := DeckBytes(out)
	if err != nil {
		return nil, invalidf("deck: %v", err)
	}
	if err := proof.Verify(inBytes, outBytes); err != nil {
		return nil, invalidf("shuffle proof: %v", err)
	}
	if err := recordDeckCommit(m, mv.Player, "shuffle", out, mv.CommitNonce, turn); err != nil {
		return nil, err
	}
	deck.Cards = out

	evs := []Event{event("deck/shuffled",
		"match", m.ID,
		"player", mv.Player,
		"stage", strconv.Itoa(m.SetupTurn),
	)}
	more, err := advanceSetup(m, turn)
	if err != nil {
		return nil, err
	}
	return append(evs, more...), nil
}

func decodeShuffleProof(msg codec.ShuffleProofMsg) (mmshuffle.Proof, error) {
	permCommit, err := mmcrypto.DecodeHexFixed(msg.PermCommit, mmcrypto.CommitBytes)
	if err != nil {
		return mmshuffle.Proof{}, invalidf("shuffle proof commit: %v", err)
	}
	nonce, err := mmcrypto.DecodeHexFixed(msg.Nonce, mmcrypto.CommitNonceBytes)
	if err != nil {
		return mmshuffle.Proof{}, invalidf("shuffle proof nonce: %v", err)
	}
	inputHash, err := mmcrypto.DecodeHexFixed(msg.InputHash, mmcrypto.DigestBytes)
	if err != nil {
		return mmshuffle.Proof{}, invalidf("shuffle proof input hash: %v", err)
	}
	outputHash, err := mmcrypto.DecodeHexFixed(msg.OutputHash, mmcrypto.DigestBytes)
	if err != nil {
		return mmshuffle.Proof{}, invalidf("shuffle proof output hash: %v", err)
	}
	return mmshuffle.Proof{
		PermCommit: permCommit,
		Perm:       mmshuffle.Permutation(msg.Perm),
		Nonce:      nonce,
		InputHash:  inputHash,
		OutputHash: outputHash,
	}, nil
}
