package mmshuffle

import (
	"bytes"
	"fmt"

	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
)

const (
	deckDigestDomain = "manamesh/v1/deck-digest"
	permCommitDomain = "manamesh/v1/perm-commit"
)

// Proof is a commit-and-reveal shuffle proof. It is NOT zero-knowledge: the
// permutation is part of the proof and becomes public at verification time.
// Card identities stay encrypted, which is the only hiding this scheme
// claims.
type Proof struct {
	PermCommit []byte
	Perm       Permutation
	Nonce      []byte
	InputHash  []byte
	OutputHash []byte
}

// DeckDigest hashes a serialized deck with per-card length prefixes.
func DeckDigest(cards [][]byte) ([]byte, error) {
	if len(cards) == 0 {
		return nil, fmt.Errorf("deck digest: empty deck")
	}
	return mmcrypto.Digest(deckDigestDomain, cards...)
}

// Build commits to perm under nonce and returns the proof together with the
// permuted deck.
func Build(input [][]byte, perm Permutation, nonce []byte) (Proof, [][]byte, error) {
	output, err := perm.Apply(input)
	if err != nil {
		return Proof{}, nil, fmt.Errorf("shuffle proof: %w", err)
	}
	inHash, err := DeckDigest(input)
	if err != nil {
		return Proof{}, nil, fmt.Errorf("shuffle proof: %w", err)
	}
	outHash, err := DeckDigest(output)
	if err != nil {
		return Proof{}, nil, fmt.Errorf("shuffle proof: %w", err)
	}
	commit, err := mmcrypto.Commit(permCommitDomain, nonce, perm.Encode())
	if err != nil {
		return Proof{}, nil, fmt.Errorf("shuffle proof: %w", err)
	}
	return Proof{
		PermCommit: commit,
		Perm:       append(Permutation(nil), perm...),
		Nonce:      append([]byte(nil), nonce...),
		InputHash:  inHash,
		OutputHash: outHash,
	}, output, nil
}

// Verify checks the proof against the observed input and output decks:
// the disclosed permutation is a bijection, the commitment opens over it,
// and applying it to input reproduces output.
func (pr Proof) Verify(input, output [][]byte) error {
	n := len(input)
	if len(output) != n {
		return fmt.Errorf("shuffle proof: deck sizes differ: %d vs %d", n, len(output))
	}
	if err := pr.Perm.Validate(n); err != nil {
		return fmt.Errorf("shuffle proof: %w", err)
	}
	if !mmcrypto.OpenCommit(pr.PermCommit, permCommitDomain, pr.Nonce, pr.Perm.Encode()) {
		return fmt.Errorf("shuffle proof: permutation commitment does not open")
	}

	inHash, err := DeckDigest(input)
	if err != nil {
		return fmt.Errorf("shuffle proof: %w", err)
	}
	if !bytes.Equal(inHash, pr.InputHash) {
		return fmt.Errorf("shuffle proof: input hash mismatch")
	}

	applied, err := pr.Perm.Apply(input)
	if err != nil {
		return fmt.Errorf("shuffle proof: %w", err)
	}
	appliedHash, err := DeckDigest(applied)
	if err != nil {
		return fmt.Errorf("shuffle proof: %w", err)
	}
	if !bytes.Equal(appliedHash, pr.OutputHash) {
		return fmt.Errorf("shuffle proof: output hash does not match applied permutation")
	}

	outHash, err := DeckDigest(output)
	if err != nil {
		return fmt.Errorf("shuffle proof: %w", err)
	}
	if !bytes.Equal(outHash, pr.OutputHash) {
		return fmt.Errorf("shuffle proof: observed output hash mismatch")
	}
	return nil
}
