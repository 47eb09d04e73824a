package player

import (
	"crypto/ed25519"
	"fmt"

	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/engine"
	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

const claimPayloadDomain = "manamesh/v1/claim-payload"

// workingPoint is the ciphertext a new share must strip: the pending
// reveal's working copy if one is open, else the zone card itself.
func workingPoint(m *state.Match, zoneID string, index int) (mmcrypto.Point, error) {
	if pr := m.Reveals[state.RevealKey(zoneID, index)]; pr != nil {
		return mmcrypto.PointFromHex(pr.WorkingCT)
	}
	zone, err := m.Zone(zoneID)
	if err != nil {
		return mmcrypto.Point{}, err
	}
	if index < 0 || index >= len(zone.Cards) {
		return mmcrypto.Point{}, fmt.Errorf("zone %s has no slot %d", zoneID, index)
	}
	return mmcrypto.PointFromHex(zone.Cards[index].CT)
}

// DecryptionShare strips this player's layer off the card's current
// working ciphertext and proves the share correct.
func (k *Keys) DecryptionShare(m *state.Match, zoneID string, index int, purpose string) (*codec.SubmitDecryptionShare, error) {
	working, err := workingPoint(m, zoneID, index)
	if err != nil {
		return nil, err
	}
	inv, err := mmcrypto.ScalarInv(k.cipher)
	if err != nil {
		return nil, fmt.Errorf("invert cipher key: %w", err)
	}
	share := mmcrypto.MulPoint(working, inv)
	proof, err := mmcrypto.NewChaumPedersenProof(k.CipherPub(), share, working, k.cipher)
	if err != nil {
		return nil, fmt.Errorf("share proof: %w", err)
	}
	return &codec.SubmitDecryptionShare{
		Player:  k.ID,
		Zone:    zoneID,
		Index:   index,
		Purpose: purpose,
		Share:   share.Hex(),
		Proof:   mmcrypto.EncodeHex(mmcrypto.EncodeChaumPedersenProof(proof)),
	}, nil
}

// OpenPrivateCard finishes a private reveal locally: the owner strips the
// final layer, which never leaves this process.
func (k *Keys) OpenPrivateCard(m *state.Match, zoneID string, index int) (state.Card, error) {
	key := state.RevealKey(zoneID, index)
	pr := m.Reveals[key]
	if pr == nil {
		return 0, fmt.Errorf("no pending reveal for %s", key)
	}
	if pr.Purpose != state.RevealPrivate {
		return 0, fmt.Errorf("reveal of %s is %s, not private", key, pr.Purpose)
	}
	if pr.Initiator != k.ID {
		return 0, fmt.Errorf("reveal of %s belongs to %s", key, pr.Initiator)
	}
	if pr.Layers != 1 {
		return 0, fmt.Errorf("reveal of %s still has %d foreign layers", key, pr.Layers-1)
	}
	working, err := mmcrypto.PointFromHex(pr.WorkingCT)
	if err != nil {
		return 0, fmt.Errorf("working ciphertext: %w", err)
	}
	inv, err := mmcrypto.ScalarInv(k.cipher)
	if err != nil {
		return 0, fmt.Errorf("invert cipher key: %w", err)
	}
	plain := mmcrypto.MulPoint(working, inv)
	card, ok := engine.CardFromPoint(plain, m.Config.DeckSize)
	if !ok {
		return 0, fmt.Errorf("unmasked point of %s is not a card", key)
	}
	return card, nil
}

// WinClaim files an off-protocol win claim; the payload itself travels out
// of band and only its digest enters state.
func (k *Keys) WinClaim(claimID string, payload []byte) (*codec.SubmitProof, error) {
	sum, err := mmcrypto.Digest(claimPayloadDomain, payload)
	if err != nil {
		return nil, fmt.Errorf("payload digest: %w", err)
	}
	return &codec.SubmitProof{
		Player:      k.ID,
		ClaimID:     claimID,
		Kind:        state.ClaimWin,
		PayloadHash: mmcrypto.EncodeHex(sum),
	}, nil
}

// Verdict signs a ruling over the claim, salted by the match's final
// shuffle seed. Only the roster's verifier key will satisfy the engine.
func (k *Keys) Verdict(m *state.Match, claimID, verdict string) (*codec.SubmitVerdict, error) {
	claim := m.Claim(claimID)
	if claim == nil {
		return nil, fmt.Errorf("unknown claim %q", claimID)
	}
	if m.Rng == nil || m.Rng.FinalSeed == "" {
		return nil, fmt.Errorf("no final shuffle seed yet")
	}
	seed, err := mmcrypto.DecodeHex(m.Rng.FinalSeed)
	if err != nil {
		return nil, fmt.Errorf("final seed: %w", err)
	}
	payloadHash, err := mmcrypto.DecodeHex(claim.PayloadHash)
	if err != nil {
		return nil, fmt.Errorf("payload hash: %w", err)
	}
	msg, err := engine.VerdictSignBytes(claimID, seed, payloadHash, verdict)
	if err != nil {
		return nil, err
	}
	return &codec.SubmitVerdict{
		Player:  k.ID,
		ClaimID: claimID,
		Verdict: verdict,
		Sig:     mmcrypto.EncodeHex(ed25519.Sign(k.sign, msg)),
	}, nil
}
