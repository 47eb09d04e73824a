// Package mmshuffle holds the audited shuffle machinery: the commit-reveal
// seed protocol, the deterministic permutation stream derived from the
// agreed seed, and the commit-and-reveal shuffle proof.
package mmshuffle

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
)

// SeedBytes is the exact size of a player's shuffle seed.
const SeedBytes = 32

const (
	seedCommitDomain = "manamesh/v1/seed-commit"
	finalSeedDomain  = "manamesh/v1/final-seed"
	stageSeedDomain  = "manamesh/v1/shuffle-stage"
	streamDomain     = "manamesh/v1/fisher-yates"
)

// Stream is a counter-mode sha256 byte stream. Every consumer that starts
// from the same domain and seed reads the identical sequence, which is what
// lets all players recompute the shuffle permutations.
type Stream struct {
	key     []byte
	counter uint64
}

func NewStream(domain string, seed []byte) (*Stream, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("stream: empty seed")
	}
	key, err := mmcrypto.Digest(domain, seed)
	if err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}
	return &Stream{key: key}, nil
}

func (s *Stream) next() [sha256.Size]byte {
	buf := make([]byte, len(s.key)+8)
	copy(buf, s.key)
	binary.LittleEndian.PutUint64(buf[len(s.key):], s.counter)
	s.counter++
	return sha256.Sum256(buf)
}

func (s *Stream) Uint64() uint64 {
	h := s.next()
	return binary.LittleEndian.Uint64(h[:8])
}

// Intn returns a value in [0,n). Plain modulo; the bias for n ≤ 2^16 against
// a 64-bit draw is far below anything observable.
func (s *Stream) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("stream: Intn(%d)", n)
	}
	return int(s.Uint64() % uint64(n)), nil
}

// SeedCommit is the hash a player publishes before revealing a seed.
func SeedCommit(seed []byte) ([]byte, error) {
	if len(seed) != SeedBytes {
		return nil, fmt.Errorf("seed: expected %d bytes, got %d", SeedBytes, len(seed))
	}
	return mmcrypto.Digest(seedCommitDomain, seed)
}

// VerifySeedReveal checks a revealed seed against its earlier commitment.
func VerifySeedReveal(commitment, seed []byte) bool {
	want, err := SeedCommit(seed)
	if err != nil {
		return false
	}
	if len(commitment) != len(want) {
		return false
	}
	return subtle.ConstantTimeCompare(commitment, want) == 1
}

// CombineSeeds folds all revealed seeds, in player order, into the final
// seed. Length-prefixed, so seed boundaries cannot be shifted.
func CombineSeeds(seeds [][]byte) ([]byte, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("seed: no seeds to combine")
	}
	for i, s := range seeds {
		if len(s) != SeedBytes {
			return nil, fmt.Errorf("seed %d: expected %d bytes, got %d", i, SeedBytes, len(s))
		}
	}
	return mmcrypto.Digest(finalSeedDomain, seeds...)
}

// StageSeed derives the per-shuffler seed for a sequential shuffle stage, so
// each player in the cycle applies a distinct but equally auditable
// permutation.
func StageSeed(finalSeed []byte, stage uint32) ([]byte, error) {
	if len(finalSeed) != mmcrypto.DigestBytes {
		return nil, fmt.Errorf("seed: final seed must be %d bytes, got %d", mmcrypto.DigestBytes, len(finalSeed))
	}
	st := make([]byte, 4)
	binary.LittleEndian.PutUint32(st, stage)
	return mmcrypto.Digest(stageSeedDomain, finalSeed, st)
}
