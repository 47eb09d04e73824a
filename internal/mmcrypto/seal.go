package mmcrypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Sealing encrypts small payloads (escrow shares) to a recipient's curve
// point so they can sit in shared state without being readable by anyone
// else: ephemeral DH -> HKDF-SHA256 -> ChaCha20-Poly1305, with the
// ephemeral point bound as associated data.

const sealDomain = "manamesh/v1/seal"

// Box layout: ephemeral point (32) || nonce (12) || ciphertext+tag.
const sealMinBytes = PointBytes + chacha20poly1305.NonceSize + chacha20poly1305.Overhead

func sealKey(shared, ephemeral, recipient Point) ([]byte, error) {
	salt := concatBytes(ephemeral.Bytes(), recipient.Bytes())
	r := hkdf.New(sha256.New, shared.Bytes(), salt, []byte(sealDomain))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("seal: hkdf: %w", err)
	}
	return key, nil
}

// Seal encrypts plaintext to the holder of the private scalar behind
// recipient.
func Seal(recipient Point, plaintext []byte) ([]byte, error) {
	eph, err := NewRandomScalar()
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	ephPub := MulBase(eph)
	key, err := sealKey(MulPoint(recipient, eph), ephPub, recipient)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("seal: aead: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("seal: rand: %w", err)
	}

	out := make([]byte, 0, sealMinBytes+len(plaintext))
	out = append(out, ephPub.Bytes()...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, ephPub.Bytes()), nil
}

// OpenSealed decrypts a box produced by Seal with the recipient's private
// scalar.
func OpenSealed(priv Scalar, box []byte) ([]byte, error) {
	if len(box) < sealMinBytes {
		return nil, fmt.Errorf("seal: box too short: %d bytes", len(box))
	}
	ephPub, err := PointFromBytes(box[:PointBytes])
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	nonce := box[PointBytes : PointBytes+chacha20poly1305.NonceSize]
	ct := box[PointBytes+chacha20poly1305.NonceSize:]

	key, err := sealKey(MulPoint(ephPub, priv), ephPub, MulBase(priv))
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("seal: aead: %w", err)
	}
	pt, err := aead.Open(nil, nonce, ct, ephPub.Bytes())
	if err != nil {
		return nil, fmt.Errorf("seal: open: %w", err)
	}
	return pt, nil
}
