package state

// Card is a canonical card id in [0,deckSize). For the standard 52-card
// deck the encoding is suit-major: clubs 0-12, diamonds 13-25, hearts
// 26-38, spades 39-51.
type Card uint8

const StandardDeckSize = 52

func (c Card) Rank() uint8 { // 2..14
	return uint8(c%13) + 2
}

func (c Card) Suit() uint8 { // 0..3
	return uint8(c / 13)
}

func (c Card) String() string {
	r := c.Rank()
	var rch byte
	switch {
	case r >= 2 && r <= 9:
		rch = byte('0' + r)
	case r == 10:
		rch = 'T'
	case r == 11:
		rch = 'J'
	case r == 12:
		rch = 'Q'
	case r == 13:
		rch = 'K'
	case r == 14:
		rch = 'A'
	default:
		rch = '?'
	}
	var sch byte
	switch c.Suit() {
	case 0:
		sch = 'c'
	case 1:
		sch = 'd'
	case 2:
		sch = 'h'
	case 3:
		sch = 's'
	default:
		sch = '?'
	}
	return string([]byte{rch, sch})
}

// CanonicalDeck lists card ids 0..n-1 in canonical order; the pre-encrypt
// deck every player can reproduce.
func CanonicalDeck(n uint8) []Card {
	deck := make([]Card, n)
	for i := range deck {
		deck[i] = Card(i)
	}
	return deck
}
