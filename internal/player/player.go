// Package player builds protocol moves from a participant's point of
// view: masking the deck, proving shares, sealing escrow material. The
// engine only ever sees the resulting moves, so everything here is
// client-side and holds secrets that must never enter match state.
package player

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

// Keys is one participant's secret material for a single match: the
// commutative cipher scalar and the ed25519 envelope key.
type Keys struct {
	ID string

	cipher mmcrypto.Scalar
	sign   ed25519.PrivateKey
	seed   []byte // shuffle seed between commit and reveal
}

func NewKeys(id string) (*Keys, error) {
	cipher, err := mmcrypto.NewRandomScalar()
	if err != nil {
		return nil, fmt.Errorf("cipher key for %s: %w", id, err)
	}
	_, sign, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("sig key for %s: %w", id, err)
	}
	return &Keys{ID: id, cipher: cipher, sign: sign}, nil
}

// CipherPub is the masking public key submitted during key exchange.
func (k *Keys) CipherPub() mmcrypto.Point {
	return mmcrypto.MulBase(k.cipher)
}

// SigKeyHex is the registered ed25519 public key, as stored in match
// state.
func (k *Keys) SigKeyHex() string {
	return mmcrypto.EncodeHex(k.sign.Public().(ed25519.PublicKey))
}

// Envelope wraps, signs, and marshals a move for submission.
func (k *Keys) Envelope(matchID string, nonce uint64, mv codec.Move) ([]byte, error) {
	env, err := codec.NewEnvelope(matchID, mv)
	if err != nil {
		return nil, err
	}
	codec.Sign(&env, k.ID, nonce, k.sign)
	return json.Marshal(env)
}

// CreateMatchMove assembles the opening move for a roster of key holders.
// The first roster entry doubles as the attestation verifier.
func CreateMatchMove(creator string, mode state.SecurityMode, roster []*Keys, cfg state.MatchConfig) *codec.CreateMatch {
	ids := make([]string, len(roster))
	sigKeys := make(map[string]string, len(roster))
	for i, p := range roster {
		ids[i] = p.ID
		sigKeys[p.ID] = p.SigKeyHex()
	}
	return &codec.CreateMatch{
		Creator:     creator,
		Security:    string(mode),
		Players:     ids,
		SigKeys:     sigKeys,
		DeckSize:    cfg.DeckSize,
		HandSize:    cfg.HandSize,
		AbortWindow: cfg.AbortWindow,
	}
}
