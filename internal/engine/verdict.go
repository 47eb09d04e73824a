package engine

import (
	"crypto/ed25519"
	"strings"

	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
	"github.com/cyotee/manamesh-sub000/internal/mmshuffle"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

const verdictDomain = "manamesh/v1/verdict"

const maxClaimIDLen = 40

// VerdictSignBytes is the message a verifier signs to rule on a claim. The
// match's final shuffle seed salts it, so a verdict from one match can
// never settle a claim in another.
func VerdictSignBytes(claimID string, finalSeed, payloadHash []byte, verdict string) ([]byte, error) {
	return mmcrypto.Digest(verdictDomain,
		[]byte(claimID), finalSeed, payloadHash, []byte(verdict))
}

func matchSalt(m *state.Match) ([]byte, error) {
	if m.Rng == nil || m.Rng.FinalSeed == "" {
		return nil, invalidf("match has no final shuffle seed yet")
	}
	seed, err := mmcrypto.DecodeHexFixed(m.Rng.FinalSeed, mmshuffle.SeedBytes)
	if err != nil {
		return nil, invalidf("final seed: %v", err)
	}
	return seed, nil
}

// applySubmitProof files an off-protocol claim for the verifier to rule
// on. The engine stores only the payload hash; fetching and checking the
// proof body happens outside the state machine.
func applySubmitProof(m *state.Match, mv *codec.SubmitProof) ([]Event, error) {
	if m.Phase != state.PhasePlay {
		return nil, invalidf("no claims in phase %s", m.Phase)
	}
	if _, _, err := m.Player(mv.Player); err != nil {
		return nil, invalidf("%v", err)
	}
	if mv.Kind != state.ClaimWin {
		return nil, invalidf("unsupported claim kind %q", mv.Kind)
	}
	if mv.ClaimID == "" || len(mv.ClaimID) > maxClaimIDLen {
		return nil, invalidf("claim id must be 1-%d characters", maxClaimIDLen)
	}
	if strings.ContainsAny(mv.ClaimID, " \t\n#") {
		return nil, invalidf("claim id %q contains reserved characters", mv.ClaimID)
	}
	if m.Claim(mv.ClaimID) != nil {
		return nil, invalidf("claim id %s already used", mv.ClaimID)
	}
	payloadHash, err := mmcrypto.DecodeHexFixed(mv.PayloadHash, mmcrypto.DigestBytes)
	if err != nil {
		return nil, invalidf("payload hash: %v", err)
	}
	if _, err := matchSalt(m); err != nil {
		return nil, err
	}

	m.Claims = append(m.Claims, &state.AttestClaim{
		ID:          mv.ClaimID,
		Claimant:    mv.Player,
		Kind:        mv.Kind,
		PayloadHash: mmcrypto.EncodeHex(payloadHash),
		Verifier:    m.Verifier().ID,
	})
	return []Event{event("attest/claim",
		"match", m.ID,
		"claim", mv.ClaimID,
		"claimant", mv.Player,
		"kind", mv.Kind,
	)}, nil
}

func applySubmitVerdict(m *state.Match, mv *codec.SubmitVerdict) ([]Event, error) {
	if m.Phase != state.PhasePlay {
		return nil, invalidf("no verdicts in phase %s", m.Phase)
	}
	verifier := m.Verifier()
	if mv.Player != verifier.ID {
		return nil, invalidf("only %s may rule on claims", verifier.ID)
	}
	claim := m.Claim(mv.ClaimID)
	if claim == nil {
		return nil, invalidf("unknown claim %q", mv.ClaimID)
	}
	if claim.Verdict != "" {
		return nil, invalidf("claim %s is already settled", mv.ClaimID)
	}
	if mv.Verdict != state.VerdictValid && mv.Verdict != state.VerdictInvalid {
		return nil, invalidf("unknown verdict %q", mv.Verdict)
	}
	sig, err := mmcrypto.DecodeHexFixed(mv.Sig, ed25519.SignatureSize)
	if err != nil {
		return nil, invalidf("verdict signature: %v", err)
	}
	sigKey, err := mmcrypto.DecodeHexFixed(verifier.SigKey, ed25519.PublicKeySize)
	if err != nil {
		return nil, invalidf("verifier sig key: %v", err)
	}
	seed, err := matchSalt(m)
	if err != nil {
		return nil, err
	}
	payloadHash, err := mmcrypto.DecodeHex(claim.PayloadHash)
	if err != nil {
		return nil, invalidf("stored payload hash: %v", err)
	}
	msg, err := VerdictSignBytes(mv.ClaimID, seed, payloadHash, mv.Verdict)
	if err != nil {
		return nil, invalidf("verdict message: %v", err)
	}
	if !ed25519.Verify(ed25519.PublicKey(sigKey), msg, sig) {
		return nil, invalidf("verdict signature does not verify")
	}

	claim.Verdict = mv.Verdict
	claim.Sig = mmcrypto.EncodeHex(sig)

	evs := []Event{event("attest/verdict",
		"match", m.ID,
		"claim", mv.ClaimID,
		"verdict", mv.Verdict,
	)}
	if mv.Verdict == state.VerdictInvalid {
		return append(evs, void(m, "claim "+mv.ClaimID+" attested invalid")), nil
	}
	m.Winner = claim.Claimant
	m.Phase = state.PhaseGameOver
	return append(evs, event("match/game_over",
		"match", m.ID,
		"winner", claim.Claimant,
	)), nil
}
