package mmshuffle

import (
	"encoding/binary"
	"fmt"
)

// Permutation maps output position to source index: out[i] = in[p[i]].
type Permutation []uint32

func Identity(n int) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = uint32(i)
	}
	return p
}

// FromSeed derives a permutation of [0,n) by Fisher-Yates over the seed's
// byte stream. Deterministic: every player derives the same permutation
// from the same seed.
func FromSeed(seed []byte, n int) (Permutation, error) {
	if n <= 0 {
		return nil, fmt.Errorf("perm: size %d", n)
	}
	s, err := NewStream(streamDomain, seed)
	if err != nil {
		return nil, fmt.Errorf("perm: %w", err)
	}
	p := Identity(n)
	for i := n - 1; i > 0; i-- {
		j, err := s.Intn(i + 1)
		if err != nil {
			return nil, fmt.Errorf("perm: %w", err)
		}
		p[i], p[j] = p[j], p[i]
	}
	return p, nil
}

// Validate checks p is a bijection on [0,n).
func (p Permutation) Validate(n int) error {
	if len(p) != n {
		return fmt.Errorf("perm: length %d, want %d", len(p), n)
	}
	seen := make([]bool, n)
	for i, v := range p {
		if int(v) >= n {
			return fmt.Errorf("perm: index %d out of range at position %d", v, i)
		}
		if seen[v] {
			return fmt.Errorf("perm: duplicate index %d at position %d", v, i)
		}
		seen[v] = true
	}
	return nil
}

// Apply reorders opaque card encodings: out[i] = cards[p[i]].
func (p Permutation) Apply(cards [][]byte) ([][]byte, error) {
	if err := p.Validate(len(cards)); err != nil {
		return nil, err
	}
	out := make([][]byte, len(cards))
	for i, src := range p {
		out[i] = cards[src]
	}
	return out, nil
}

// Encode serializes the permutation as u32le count followed by u32le
// entries; fixed-width, so the encoding is injective.
func (p Permutation) Encode() []byte {
	out := make([]byte, 4+4*len(p))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(p)))
	for i, v := range p {
		binary.LittleEndian.PutUint32(out[4+4*i:], v)
	}
	return out
}

// DecodePermutation parses an Encode result, rejecting trailing bytes.
func DecodePermutation(b []byte) (Permutation, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("perm: truncated encoding")
	}
	n := binary.LittleEndian.Uint32(b[0:4])
	if uint64(len(b)) != 4+4*uint64(n) {
		return nil, fmt.Errorf("perm: encoding length mismatch")
	}
	p := make(Permutation, n)
	for i := range p {
		p[i] = binary.LittleEndian.Uint32(b[4+4*i:])
	}
	return p, nil
}
