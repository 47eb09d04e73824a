package mmcrypto

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
)

const (
	CommitBytes      = DigestBytes
	CommitNonceBytes = 32
)

// NewCommitNonce draws a fresh 32-byte commitment nonce. Nonce entropy is
// what makes commitments hiding; never reuse one.
func NewCommitNonce() ([]byte, error) {
	n := make([]byte, CommitNonceBytes)
	if _, err := rand.Read(n); err != nil {
		return nil, fmt.Errorf("commit: rand: %w", err)
	}
	return n, nil
}

// Commit binds the caller to the given fields under a nonce:
// H(domain || len-prefixed fields... || nonce). Binding rides on collision
// resistance, hiding on the nonce.
func Commit(domainSep string, nonce []byte, fields ...[]byte) ([]byte, error) {
	if len(nonce) != CommitNonceBytes {
		return nil, fmt.Errorf("commit: nonce must be %d bytes, got %d", CommitNonceBytes, len(nonce))
	}
	msgs := make([][]byte, 0, len(fields)+1)
	msgs = append(msgs, fields...)
	msgs = append(msgs, nonce)
	return Digest(domainSep, msgs...)
}

// OpenCommit recomputes the commitment and compares in constant time.
func OpenCommit(commitment []byte, domainSep string, nonce []byte, fields ...[]byte) bool {
	if len(commitment) != CommitBytes {
		return false
	}
	want, err := Commit(domainSep, nonce, fields...)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(commitment, want) == 1
}
