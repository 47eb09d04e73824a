package mmcrypto

import (
	"errors"
	"fmt"
)

// ErrAlreadyPlaintext is returned when unmasking a point that carries no
// encryption layers.
var ErrAlreadyPlaintext = errors.New("cipher: already plaintext")

// MaxLayers bounds the number of outstanding encryption layers on a card.
const MaxLayers = 255

// MaskedPoint is a curve point under zero or more commutative encryption
// layers. Layers==0 means the point is the plaintext card point.
type MaskedPoint struct {
	P      Point
	Layers uint8
}

// Mask multiplies the point by k and adds one layer. Because scalar
// multiplication commutes, layers added by different players can later be
// removed in any order.
func Mask(c MaskedPoint, k Scalar) (MaskedPoint, error) {
	if k.IsZero() {
		return MaskedPoint{}, fmt.Errorf("cipher: mask with zero scalar")
	}
	if c.Layers == MaxLayers {
		return MaskedPoint{}, fmt.Errorf("cipher: layer overflow")
	}
	return MaskedPoint{P: MulPoint(c.P, k), Layers: c.Layers + 1}, nil
}

// Unmask multiplies the point by k⁻¹ and removes one layer.
func Unmask(c MaskedPoint, k Scalar) (MaskedPoint, error) {
	if c.Layers == 0 {
		return MaskedPoint{}, ErrAlreadyPlaintext
	}
	inv, err := ScalarInv(k)
	if err != nil {
		return MaskedPoint{}, fmt.Errorf("cipher: %w", err)
	}
	return MaskedPoint{P: MulPoint(c.P, inv), Layers: c.Layers - 1}, nil
}

// MaskAll applies one layer of k to every card. O(n) curve multiplications.
func MaskAll(cs []MaskedPoint, k Scalar) ([]MaskedPoint, error) {
	out := make([]MaskedPoint, len(cs))
	for i, c := range cs {
		m, err := Mask(c, k)
		if err != nil {
			return nil, fmt.Errorf("cipher: card %d: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}

// UnmaskAll removes one layer of k from every card.
func UnmaskAll(cs []MaskedPoint, k Scalar) ([]MaskedPoint, error) {
	out := make([]MaskedPoint, len(cs))
	for i, c := range cs {
		m, err := Unmask(c, k)
		if err != nil {
			return nil, fmt.Errorf("cipher: card %d: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}
