package mmcrypto

import "fmt"

// ChaumPedersenProof shows that two points share a discrete log: given
// y = x*G and d = x*c1 it proves knowledge of x without revealing it.
// Decryption shares ride on this so a bad share is rejected at submission.
type ChaumPedersenProof struct {
	// a = w*G
	A Point
	// b = w*c1
	B Point
	// s = w + e*x
	S Scalar
}

const chaumPedersenDomain = "manamesh/v1/eqdl"

const ChaumPedersenProofBytes = 96

func chaumPedersenChallenge(y, c1, d, a, b Point) (Scalar, error) {
	return HashToScalar(chaumPedersenDomain,
		y.Bytes(), c1.Bytes(), d.Bytes(), a.Bytes(), b.Bytes())
}

// ChaumPedersenProve proves d = x*c1 for the public key y = x*G, using the
// caller-supplied blinding w. Use NewChaumPedersenProof unless a
// deterministic w is needed.
func ChaumPedersenProve(y, c1, d Point, x, w Scalar) (ChaumPedersenProof, error) {
	if w.IsZero() {
		return ChaumPedersenProof{}, fmt.Errorf("chaum-pedersen: w must be non-zero")
	}

	a := MulBase(w)
	b := MulPoint(c1, w)
	e, err := chaumPedersenChallenge(y, c1, d, a, b)
	if err != nil {
		return ChaumPedersenProof{}, err
	}
	s := ScalarAdd(w, ScalarMul(e, x))
	return ChaumPedersenProof{A: a, B: b, S: s}, nil
}

// NewChaumPedersenProof draws the blinding from crypto/rand.
func NewChaumPedersenProof(y, c1, d Point, x Scalar) (ChaumPedersenProof, error) {
	w, err := NewRandomScalar()
	if err != nil {
		return ChaumPedersenProof{}, fmt.Errorf("chaum-pedersen: %w", err)
	}
	return ChaumPedersenProve(y, c1, d, x, w)
}

func ChaumPedersenVerify(y, c1, d Point, proof ChaumPedersenProof) (bool, error) {
	e, err := chaumPedersenChallenge(y, c1, d, proof.A, proof.B)
	if err != nil {
		return false, err
	}

	// s*G == a + e*y
	if !PointEq(MulBase(proof.S), PointAdd(proof.A, MulPoint(y, e))) {
		return false, nil
	}
	// s*c1 == b + e*d
	if !PointEq(MulPoint(c1, proof.S), PointAdd(proof.B, MulPoint(d, e))) {
		return false, nil
	}
	return true, nil
}

// Encoding: A(32) || B(32) || s(32 le)
func EncodeChaumPedersenProof(p ChaumPedersenProof) []byte {
	return concatBytes(p.A.Bytes(), p.B.Bytes(), p.S.Bytes())
}

func DecodeChaumPedersenProof(b []byte) (ChaumPedersenProof, error) {
	if len(b) != ChaumPedersenProofBytes {
		return ChaumPedersenProof{}, fmt.Errorf("chaum-pedersen: expected %d bytes, got %d", ChaumPedersenProofBytes, len(b))
	}
	a, err := PointFromBytes(b[0:32])
	if err != nil {
		return ChaumPedersenProof{}, err
	}
	bl, err := PointFromBytes(b[32:64])
	if err != nil {
		return ChaumPedersenProof{}, err
	}
	s, err := ScalarFromBytes(b[64:96])
	if err != nil {
		return ChaumPedersenProof{}, err
	}
	return ChaumPedersenProof{A: a, B: bl, S: s}, nil
}
