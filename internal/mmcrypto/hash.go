package mmcrypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
)

var (
	hashToScalarPrefix = []byte("MMv1|hash_to_scalar|")
	hashToPointPrefix  = []byte("MMv1|hash_to_point|")
	digestPrefix       = []byte("MMv1|digest|")
)

const DigestBytes = sha256.Size

func updateLenBytes(h hash.Hash, b []byte) {
	h.Write(u32le(uint32(len(b))))
	h.Write(b)
}

// HashToScalar maps domain-separated, length-prefixed messages to a scalar.
// Nil messages are rejected so absent and empty inputs cannot collide.
func HashToScalar(domainSep string, msgs ...[]byte) (Scalar, error) {
	h := sha512.New()
	h.Write(hashToScalarPrefix)
	updateLenBytes(h, []byte(domainSep))
	for _, m := range msgs {
		if m == nil {
			return Scalar{}, fmt.Errorf("hashToScalar: nil msg")
		}
		updateLenBytes(h, m)
	}
	return ScalarFromUniform(h.Sum(nil))
}

// HashToPoint maps domain-separated, length-prefixed messages onto the group
// with no known discrete log relationship to any other point.
func HashToPoint(domainSep string, msgs ...[]byte) (Point, error) {
	h := sha512.New()
	h.Write(hashToPointPrefix)
	updateLenBytes(h, []byte(domainSep))
	for _, m := range msgs {
		if m == nil {
			return Point{}, fmt.Errorf("hashToPoint: nil msg")
		}
		updateLenBytes(h, m)
	}
	return PointFromUniform(h.Sum(nil))
}

// Digest is the protocol's general 32-byte hash over domain-separated,
// length-prefixed messages. The length prefixes make the serialization
// injective: no split of the concatenated fields produces the same digest.
func Digest(domainSep string, msgs ...[]byte) ([]byte, error) {
	h := sha256.New()
	h.Write(digestPrefix)
	updateLenBytes(h, []byte(domainSep))
	for _, m := range msgs {
		if m == nil {
			return nil, fmt.Errorf("digest: nil msg")
		}
		updateLenBytes(h, m)
	}
	return h.Sum(nil), nil
}
