package mmcrypto

import (
	"crypto/rand"
	"fmt"

	"github.com/gtank/ristretto255"
)

const ScalarBytes = 32

// Scalar is a ristretto255 scalar (canonical 32-byte little-endian encoding).
// The zero value is the scalar 0.
type Scalar struct {
	v ristretto255.Scalar
}

func ScalarZero() Scalar {
	return Scalar{}
}

func ScalarOne() Scalar {
	return ScalarFromUint64(1)
}

func ScalarFromUint64(x uint64) Scalar {
	// ristretto255.Scalar expects canonical little-endian encoding; any
	// uint64 is below the group order so SetCanonicalBytes cannot fail.
	var b [ScalarBytes]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(x >> (8 * i))
	}
	var s Scalar
	if _, err := s.v.SetCanonicalBytes(b[:]); err != nil {
		panic(fmt.Sprintf("scalar: uint64 not canonical: %v", err))
	}
	return s
}

func ScalarFromBytes(b []byte) (Scalar, error) {
	if len(b) != ScalarBytes {
		return Scalar{}, fmt.Errorf("scalar: expected %d bytes, got %d", ScalarBytes, len(b))
	}
	var s Scalar
	if _, err := s.v.SetCanonicalBytes(b); err != nil {
		return Scalar{}, fmt.Errorf("scalar: non-canonical: %w", err)
	}
	return s, nil
}

// ScalarFromUniform reduces 64 uniformly random bytes into a scalar.
func ScalarFromUniform(b []byte) (Scalar, error) {
	if len(b) != 64 {
		return Scalar{}, fmt.Errorf("scalar: expected 64 uniform bytes, got %d", len(b))
	}
	var s Scalar
	s.v.FromUniformBytes(b)
	return s, nil
}

func ScalarFromHex(s string) (Scalar, error) {
	b, err := DecodeHexFixed(s, ScalarBytes)
	if err != nil {
		return Scalar{}, fmt.Errorf("scalar: %w", err)
	}
	return ScalarFromBytes(b)
}

// NewRandomScalar draws a non-zero scalar from crypto/rand.
func NewRandomScalar() (Scalar, error) {
	var uni [64]byte
	for {
		if _, err := rand.Read(uni[:]); err != nil {
			return Scalar{}, fmt.Errorf("scalar: rand: %w", err)
		}
		s, err := ScalarFromUniform(uni[:])
		if err != nil {
			return Scalar{}, err
		}
		if !s.IsZero() {
			return s, nil
		}
	}
}

func (s Scalar) Bytes() []byte {
	return s.v.Bytes()
}

func (s Scalar) Hex() string {
	return EncodeHex(s.Bytes())
}

func (s Scalar) IsZero() bool {
	var z ristretto255.Scalar
	return s.v.Equal(&z) == 1
}

func ScalarEq(a, b Scalar) bool {
	return a.v.Equal(&b.v) == 1
}

func ScalarAdd(a, b Scalar) Scalar {
	var out Scalar
	out.v.Add(&a.v, &b.v)
	return out
}

func ScalarSub(a, b Scalar) Scalar {
	var out Scalar
	out.v.Subtract(&a.v, &b.v)
	return out
}

func ScalarMul(a, b Scalar) Scalar {
	var out Scalar
	out.v.Multiply(&a.v, &b.v)
	return out
}

func ScalarNeg(a Scalar) Scalar {
	var out Scalar
	out.v.Negate(&a.v)
	return out
}

func ScalarInv(a Scalar) (Scalar, error) {
	if a.IsZero() {
		return Scalar{}, fmt.Errorf("scalar: inverse of zero")
	}
	var out Scalar
	out.v.Invert(&a.v)
	return out, nil
}
