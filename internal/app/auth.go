package app

import (
	"crypto/ed25519"
	"fmt"
	"strconv"

	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

func requireSignedEnvelope(env codec.Envelope) error {
	if env.Nonce == "" {
		return fmt.Errorf("missing tx.nonce")
	}
	if env.Signer == "" {
		return fmt.Errorf("missing tx.signer")
	}
	if env.Sig == "" {
		return fmt.Errorf("missing tx.sig")
	}
	return nil
}

// signerKey resolves the public key the envelope must be signed under.
// match/create carries its own roster, so the creator's key comes from the
// move; every other move looks the signer up on the addressed match.
func signerKey(st *state.Store, env codec.Envelope, mv codec.Move) ([]byte, error) {
	if cm, ok := mv.(*codec.CreateMatch); ok {
		hexKey, ok := cm.SigKeys[env.Signer]
		if !ok {
			return nil, fmt.Errorf("creator %q has no key in sigKeys", env.Signer)
		}
		return mmcrypto.DecodeHexFixed(hexKey, ed25519.PublicKeySize)
	}
	m := st.Matches[env.MatchID]
	if m == nil {
		return nil, fmt.Errorf("unknown match %q", env.MatchID)
	}
	p, _, err := m.Player(env.Signer)
	if err != nil {
		return nil, err
	}
	return mmcrypto.DecodeHexFixed(p.SigKey, ed25519.PublicKeySize)
}

// authenticate enforces envelope auth: the signer is the move's claimed
// actor, the nonce strictly exceeds the signer's floor, and the signature
// verifies under the signer's roster key.
func authenticate(st *state.Store, env codec.Envelope, mv codec.Move) (uint64, error) {
	if err := requireSignedEnvelope(env); err != nil {
		return 0, err
	}
	if env.Signer != mv.Actor() {
		return 0, fmt.Errorf("tx signer mismatch: signer=%q actor=%q", env.Signer, mv.Actor())
	}
	nonce, err := strconv.ParseUint(env.Nonce, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid tx.nonce: %w", err)
	}
	// The floor starts at zero, so the first accepted nonce is 1.
	if floor := st.NonceMax[env.Signer]; nonce <= floor {
		return 0, fmt.Errorf("replayed nonce %d (floor %d)", nonce, floor)
	}
	sig, err := mmcrypto.DecodeHexFixed(env.Sig, ed25519.SignatureSize)
	if err != nil {
		return 0, fmt.Errorf("invalid tx.sig: %v", err)
	}
	pub, err := signerKey(st, env, mv)
	if err != nil {
		return 0, err
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), codec.SignBytes(env), sig) {
		return 0, fmt.Errorf("invalid signature")
	}
	return nonce, nil
}
