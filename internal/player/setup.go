package player

import (
	"crypto/rand"
	"fmt"

	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/engine"
	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
	"github.com/cyotee/manamesh-sub000/internal/mmshuffle"
	"github.com/cyotee/manamesh-sub000/internal/shamir"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

// SubmitPublicKey announces the masking key. In insecure-demo matches the
// scalar itself rides along so any observer can drive every role.
func (k *Keys) SubmitPublicKey(mode state.SecurityMode) *codec.SubmitPublicKey {
	mv := &codec.SubmitPublicKey{Player: k.ID, PubKey: k.CipherPub().Hex()}
	if mode == state.ModeInsecureDemo {
		mv.PrivateKey = k.cipher.Hex()
	}
	return mv
}

// DistributeKeyShares splits the cipher scalar for the roster and seals
// each share to its recipient's masking key. Threshold follows the table
// rule: all but one player, floored at two.
func (k *Keys) DistributeKeyShares(m *state.Match) (*codec.DistributeKeyShares, error) {
	n := len(m.Players)
	t := n - 1
	if t < 2 {
		t = 2
	}
	shares, commits, err := shamir.Split(k.cipher, n, t)
	if err != nil {
		return nil, fmt.Errorf("split cipher key: %w", err)
	}

	commitHex := make([]string, len(commits))
	for i, c := range commits {
		commitHex[i] = c.Hex()
	}
	sealed := make([]codec.SealedShare, n)
	for i, sh := range shares {
		recipient := m.Players[i]
		if recipient.CipherKey == "" {
			return nil, fmt.Errorf("recipient %s has no cipher key yet", recipient.ID)
		}
		to, err := mmcrypto.PointFromHex(recipient.CipherKey)
		if err != nil {
			return nil, fmt.Errorf("recipient %s cipher key: %w", recipient.ID, err)
		}
		box, err := mmcrypto.Seal(to, sh.S.Bytes())
		if err != nil {
			return nil, fmt.Errorf("seal share for %s: %w", recipient.ID, err)
		}
		sealed[i] = codec.SealedShare{
			To:     recipient.ID,
			X:      sh.X,
			Sealed: mmcrypto.EncodeHex(box),
		}
	}
	return &codec.DistributeKeyShares{
		Player:    k.ID,
		Threshold: t,
		Commits:   commitHex,
		Shares:    sealed,
	}, nil
}

// UnsealShare opens an escrow share addressed to this player and returns
// it ready for threshold recovery.
func (k *Keys) UnsealShare(sh state.EscrowShare) (shamir.Share, error) {
	if sh.To != k.ID {
		return shamir.Share{}, fmt.Errorf("share is addressed to %s", sh.To)
	}
	box, err := mmcrypto.DecodeHex(sh.Sealed)
	if err != nil {
		return shamir.Share{}, fmt.Errorf("sealed share: %w", err)
	}
	plain, err := mmcrypto.OpenSealed(k.cipher, box)
	if err != nil {
		return shamir.Share{}, fmt.Errorf("open share from %s: %w", sh.From, err)
	}
	s, err := mmcrypto.ScalarFromBytes(plain)
	if err != nil {
		return shamir.Share{}, fmt.Errorf("share scalar: %w", err)
	}
	return shamir.Share{X: sh.X, S: s}, nil
}

// EncryptDeck masks every deck slot under the cipher scalar and attaches
// the batched proof plus a fresh arrangement commitment nonce.
func (k *Keys) EncryptDeck(m *state.Match) (*codec.EncryptDeck, error) {
	deck, err := m.Zone(state.ZoneDeck)
	if err != nil {
		return nil, err
	}
	out := make([]state.EncryptedCard, len(deck.Cards))
	hexes := make([]string, len(deck.Cards))
	for i, c := range deck.Cards {
		p, err := mmcrypto.PointFromHex(c.CT)
		if err != nil {
			return nil, fmt.Errorf("deck slot %d: %w", i, err)
		}
		masked := mmcrypto.MulPoint(p, k.cipher)
		out[i] = state.EncryptedCard{CT: masked.Hex(), Layers: c.Layers + 1}
		hexes[i] = masked.Hex()
	}

	y, c, d, err := engine.MaskBatchStatement(m, k.ID, deck.Cards, out)
	if err != nil {
		return nil, fmt.Errorf("mask statement: %w", err)
	}
	proof, err := mmcrypto.NewChaumPedersenProof(y, c, d, k.cipher)
	if err != nil {
		return nil, fmt.Errorf("mask proof: %w", err)
	}
	nonce, err := mmcrypto.NewCommitNonce()
	if err != nil {
		return nil, err
	}
	return &codec.EncryptDeck{
		Player:      k.ID,
		Deck:        hexes,
		Proof:       mmcrypto.EncodeHex(mmcrypto.EncodeChaumPedersenProof(proof)),
		CommitNonce: mmcrypto.EncodeHex(nonce),
	}, nil
}

// CommitSeed draws a fresh shuffle seed, remembers it for the reveal
// round, and returns the commitment move.
func (k *Keys) CommitSeed() (*codec.CommitShuffleSeed, error) {
	seed := make([]byte, mmshuffle.SeedBytes)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("draw seed: %w", err)
	}
	commit, err := mmshuffle.SeedCommit(seed)
	if err != nil {
		return nil, err
	}
	k.seed = seed
	return &codec.CommitShuffleSeed{
		Player: k.ID,
		Commit: mmcrypto.EncodeHex(commit),
	}, nil
}

// RevealSeed discloses the seed committed earlier.
func (k *Keys) RevealSeed() (*codec.RevealShuffleSeed, error) {
	if k.seed == nil {
		return nil, fmt.Errorf("no seed committed")
	}
	return &codec.RevealShuffleSeed{
		Player: k.ID,
		Seed:   mmcrypto.EncodeHex(k.seed),
	}, nil
}

// ShuffleDeck applies this stage's agreed permutation and builds the
// disclosure proof over the exact deck serialization the engine checks.
func (k *Keys) ShuffleDeck(m *state.Match) (*codec.ShuffleDeck, error) {
	deck, err := m.Zone(state.ZoneDeck)
	if err != nil {
		return nil, err
	}
	if m.Rng == nil || m.Rng.FinalSeed == "" {
		return nil, fmt.Errorf("no final shuffle seed yet")
	}
	finalSeed, err := mmcrypto.DecodeHexFixed(m.Rng.FinalSeed, mmshuffle.SeedBytes)
	if err != nil {
		return nil, fmt.Errorf("final seed: %w", err)
	}
	stageSeed, err := mmshuffle.StageSeed(finalSeed, uint32(m.SetupTurn))
	if err != nil {
		return nil, err
	}
	perm, err := mmshuffle.FromSeed(stageSeed, len(deck.Cards))
	if err != nil {
		return nil, err
	}

	inBytes, err := engine.DeckBytes(deck.Cards)
	if err != nil {
		return nil, fmt.Errorf("deck: %w", err)
	}
	proofNonce, err := mmcrypto.NewCommitNonce()
	if err != nil {
		return nil, err
	}
	proof, _, err := mmshuffle.Build(inBytes, perm, proofNonce)
	if err != nil {
		return nil, fmt.Errorf("shuffle proof: %w", err)
	}

	hexes := make([]string, len(deck.Cards))
	for i, src := range perm {
		hexes[i] = deck.Cards[src].CT
	}
	commitNonce, err := mmcrypto.NewCommitNonce()
	if err != nil {
		return nil, err
	}
	return &codec.ShuffleDeck{
		Player: k.ID,
		Deck:   hexes,
		Proof: codec.ShuffleProofMsg{
			PermCommit: mmcrypto.EncodeHex(proof.PermCommit),
			Perm:       proof.Perm,
			Nonce:      mmcrypto.EncodeHex(proof.Nonce),
			InputHash:  mmcrypto.EncodeHex(proof.InputHash),
			OutputHash: mmcrypto.EncodeHex(proof.OutputHash),
		},
		CommitNonce: mmcrypto.EncodeHex(commitNonce),
	}, nil
}
