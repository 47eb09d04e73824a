// Package codec defines the wire envelope and the tagged move set. The
// signaling channel is unauthenticated and unreliable, so everything here
// is validated structurally before the engine ever sees it.
package codec

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// Envelope is the tagged JSON container for all protocol moves.
//
// Nonce/Signer/Sig authenticate the envelope: Sig is an Ed25519 signature
// over (type, matchId, nonce, signer, sha256(value)), with Nonce strictly
// increasing per signer for replay protection.
type Envelope struct {
	Type    string          `json:"type"`
	MatchID string          `json:"matchId"`
	Value   json.RawMessage `json:"value"`

	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    string `json:"sig,omitempty"`
}

// DecodeEnvelope parses and structurally validates an envelope. The move
// payload is validated separately by DecodeMove.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("invalid envelope json: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("missing envelope type")
	}
	if !knownMoveType(env.Type) {
		return Envelope{}, fmt.Errorf("unknown move type %q", env.Type)
	}
	if env.MatchID == "" {
		return Envelope{}, fmt.Errorf("missing match id")
	}
	if len(env.MatchID) > 64 {
		return Envelope{}, fmt.Errorf("match id too long")
	}
	for i := 0; i < len(env.MatchID); i++ {
		// Printable ASCII only: ids end up in sign bytes and query paths.
		if env.MatchID[i] <= 0x20 || env.MatchID[i] >= 0x7f {
			return Envelope{}, fmt.Errorf("match id contains reserved characters")
		}
	}
	if len(env.Value) == 0 {
		return Envelope{}, fmt.Errorf("missing envelope value")
	}
	return env, nil
}

// txSignDomain versions the envelope signature format.
const txSignDomain = "manamesh/v1/tx"

// SignBytes is the byte string an envelope signature covers: the domain
// and header fields zero-byte joined, with the payload collapsed to a hex
// digest so its length never matters.
func SignBytes(env Envelope) []byte {
	sum := sha256.Sum256(env.Value)
	parts := [][]byte{
		[]byte(txSignDomain),
		[]byte(env.Type),
		[]byte(env.MatchID),
		[]byte(env.Nonce),
		[]byte(env.Signer),
		[]byte(hex.EncodeToString(sum[:])),
	}
	return bytes.Join(parts, []byte{0})
}

// Sign stamps the replay header onto the envelope and signs it.
func Sign(env *Envelope, signer string, nonce uint64, priv ed25519.PrivateKey) {
	env.Signer = signer
	env.Nonce = strconv.FormatUint(nonce, 10)
	env.Sig = "0x" + hex.EncodeToString(ed25519.Sign(priv, SignBytes(*env)))
}

// decodeStrict rejects unknown fields so a malformed or stale client fails
// loudly instead of being half-understood.
func decodeStrict(raw json.RawMessage, into any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("invalid move value: %w", err)
	}
	// Trailing JSON after the value is as malformed as bad JSON inside it.
	if dec.More() {
		return fmt.Errorf("invalid move value: trailing data")
	}
	return nil
}
