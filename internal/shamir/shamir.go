// Package shamir implements threshold secret sharing over the ristretto255
// scalar field, with Feldman commitments so recipients can verify their
// shares without learning the polynomial.
package shamir

import (
	"fmt"
	"sort"

	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
)

// MinThreshold is the floor on t: a lone holder must never be able to
// reconstruct, so one-share recovery is not expressible.
const MinThreshold = 2

// MaxShares bounds n; share indices are small non-zero field elements.
const MaxShares = 255

// Share is one evaluation f(X) of the dealing polynomial. X is never zero
// (f(0) is the secret).
type Share struct {
	X uint32
	S mmcrypto.Scalar
}

func evalPoly(coeffs []mmcrypto.Scalar, x mmcrypto.Scalar) mmcrypto.Scalar {
	// Horner, highest coefficient first.
	acc := mmcrypto.ScalarZero()
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc = mmcrypto.ScalarAdd(mmcrypto.ScalarMul(acc, x), coeffs[i])
	}
	return acc
}

// Split deals secret into n shares with threshold t, returning the shares at
// X=1..n and the Feldman commitments {a_j*G} to the polynomial coefficients.
func Split(secret mmcrypto.Scalar, n, t int) ([]Share, []mmcrypto.Point, error) {
	if t < MinThreshold {
		return nil, nil, fmt.Errorf("shamir: threshold %d below minimum %d", t, MinThreshold)
	}
	if n < t {
		return nil, nil, fmt.Errorf("shamir: n=%d below threshold t=%d", n, t)
	}
	if n > MaxShares {
		return nil, nil, fmt.Errorf("shamir: n=%d above maximum %d", n, MaxShares)
	}

	coeffs := make([]mmcrypto.Scalar, t)
	coeffs[0] = secret
	for j := 1; j < t; j++ {
		c, err := mmcrypto.NewRandomScalar()
		if err != nil {
			return nil, nil, fmt.Errorf("shamir: coefficient %d: %w", j, err)
		}
		coeffs[j] = c
	}

	shares := make([]Share, n)
	for i := 0; i < n; i++ {
		x := uint32(i + 1)
		shares[i] = Share{X: x, S: evalPoly(coeffs, mmcrypto.ScalarFromUint64(uint64(x)))}
	}

	commits := make([]mmcrypto.Point, t)
	for j, c := range coeffs {
		commits[j] = mmcrypto.MulBase(c)
	}
	return shares, commits, nil
}

// VerifyShare checks a share against the dealer's Feldman commitments:
// S*G == Σ_j X^j * C_j.
func VerifyShare(commits []mmcrypto.Point, sh Share) (bool, error) {
	if len(commits) < MinThreshold {
		return false, fmt.Errorf("shamir: %d commitments below minimum %d", len(commits), MinThreshold)
	}
	if sh.X == 0 {
		return false, fmt.Errorf("shamir: share index 0 not allowed")
	}
	eval, err := EvalCommitments(commits, sh.X)
	if err != nil {
		return false, err
	}
	return mmcrypto.PointEq(mmcrypto.MulBase(sh.S), eval), nil
}

// EvalCommitments evaluates the committed polynomial in the exponent at x.
func EvalCommitments(commits []mmcrypto.Point, x uint32) (mmcrypto.Point, error) {
	if len(commits) == 0 {
		return mmcrypto.Point{}, fmt.Errorf("shamir: empty commitments")
	}
	xs := mmcrypto.ScalarFromUint64(uint64(x))
	pow := mmcrypto.ScalarOne()
	acc := mmcrypto.PointZero()
	for _, c := range commits {
		acc = mmcrypto.PointAdd(acc, mmcrypto.MulPoint(c, pow))
		pow = mmcrypto.ScalarMul(pow, xs)
	}
	return acc, nil
}

// Combine reconstructs the secret from at least t distinct shares. Shares
// are sorted by index and the first t are interpolated, so the result does
// not depend on submission order.
func Combine(shares []Share, t int) (mmcrypto.Scalar, error) {
	if t < MinThreshold {
		return mmcrypto.Scalar{}, fmt.Errorf("shamir: threshold %d below minimum %d", t, MinThreshold)
	}
	if len(shares) < t {
		return mmcrypto.Scalar{}, fmt.Errorf("shamir: %d shares below threshold %d", len(shares), t)
	}

	sorted := make([]Share, len(shares))
	copy(sorted, shares)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })
	seen := map[uint32]bool{}
	for _, sh := range sorted {
		if sh.X == 0 {
			return mmcrypto.Scalar{}, fmt.Errorf("shamir: share index 0 not allowed")
		}
		if seen[sh.X] {
			return mmcrypto.Scalar{}, fmt.Errorf("shamir: duplicate share index %d", sh.X)
		}
		seen[sh.X] = true
	}
	use := sorted[:t]

	idxs := make([]uint32, t)
	for i, sh := range use {
		idxs[i] = sh.X
	}
	lambdas, err := LagrangeAtZero(idxs)
	if err != nil {
		return mmcrypto.Scalar{}, err
	}

	secret := mmcrypto.ScalarZero()
	for i, sh := range use {
		secret = mmcrypto.ScalarAdd(secret, mmcrypto.ScalarMul(lambdas[i], sh.S))
	}
	return secret, nil
}
