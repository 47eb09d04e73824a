package engine

import (
	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

const cardPointDomain = "manamesh/v1/card-point"

// Card ids map to curve points by hashing, so there is no algebraic way
// back from a fully unmasked point to a card. Reveals finish with a lookup
// against this table instead.
var (
	cardPoints     []mmcrypto.Point
	cardByPointHex map[string]state.Card
)

func init() {
	cardPoints = make([]mmcrypto.Point, state.StandardDeckSize)
	cardByPointHex = make(map[string]state.Card, state.StandardDeckSize)
	for i := range cardPoints {
		p, err := mmcrypto.HashToPoint(cardPointDomain, []byte{byte(i)})
		if err != nil {
			panic(err)
		}
		cardPoints[i] = p
		cardByPointHex[p.Hex()] = state.Card(i)
	}
}

// CardPoint is the plaintext curve point for a card id. Players need it to
// audit the pre-encrypt deck; the engine uses it to seed the deck zone.
func CardPoint(c state.Card) mmcrypto.Point {
	return cardPoints[c]
}

// CardFromPoint resolves a plaintext point back to a card id, restricted
// to the match's deck size. Owners finishing a private reveal use this on
// their locally unmasked point.
func CardFromPoint(p mmcrypto.Point, deckSize uint8) (state.Card, bool) {
	c, ok := cardByPointHex[p.Hex()]
	if !ok || uint8(c) >= deckSize {
		return 0, false
	}
	return c, true
}

// cardBytes serializes one deck slot for digests and commitments: the
// 32-byte ciphertext followed by the layer count.
func cardBytes(c state.EncryptedCard) ([]byte, error) {
	ct, err := mmcrypto.DecodeHexFixed(c.CT, 32)
	if err != nil {
		return nil, err
	}
	return append(ct, c.Layers), nil
}

// DeckBytes serializes a deck for digests, commitments, and shuffle
// proofs. Provers and the engine must agree on these bytes exactly, which
// is why the serialization lives here and nowhere else.
func DeckBytes(cards []state.EncryptedCard) ([][]byte, error) {
	out := make([][]byte, len(cards))
	for i, c := range cards {
		b, err := cardBytes(c)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// parseDeckHex decodes a submitted deck. Every entry must be a canonical
// ristretto255 encoding; the stored form is re-encoded so state never holds
// a non-canonical hex variant.
func parseDeckHex(hexes []string, layers uint8) ([]state.EncryptedCard, error) {
	out := make([]state.EncryptedCard, len(hexes))
	for i, h := range hexes {
		p, err := mmcrypto.PointFromHex(h)
		if err != nil {
			return nil, err
		}
		out[i] = state.EncryptedCard{CT: p.Hex(), Layers: layers}
	}
	return out, nil
}

func maskedFromCard(c state.EncryptedCard) (mmcrypto.MaskedPoint, error) {
	p, err := mmcrypto.PointFromHex(c.CT)
	if err != nil {
		return mmcrypto.MaskedPoint{}, err
	}
	return mmcrypto.MaskedPoint{P: p, Layers: c.Layers}, nil
}
