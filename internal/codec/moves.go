package codec

import (
	"encoding/json"
	"fmt"
)

// Move type tags, grouped by protocol area.
const (
	TypeCreateMatch = "match/create"

	TypeSubmitPublicKey     = "setup/submit_public_key"
	TypeDistributeKeyShares = "escrow/distribute_shares"
	TypeEncryptDeck         = "deck/encrypt"
	TypeShuffleDeck         = "deck/shuffle"

	TypeCommitShuffleSeed = "rng/commit_seed"
	TypeRevealShuffleSeed = "rng/reveal_seed"
	TypeVoteAbortShuffle  = "rng/vote_abort"

	TypeAskRank      = "play/ask_rank"
	TypeRespondToAsk = "play/respond"
	TypeDraw         = "play/draw"
	TypeClaimSet     = "play/claim_set"

	TypeSubmitDecryptionShare = "reveal/submit_share"

	TypeSubmitProof   = "attest/submit_proof"
	TypeSubmitVerdict = "attest/submit_verdict"
)

// Move is the tagged union of every protocol move. DecodeMove returns
// exactly one of the concrete structs below; the engine switches on the
// concrete type exhaustively.
type Move interface {
	MoveType() string
	// Actor is the player the move claims to come from; the envelope
	// signer must match.
	Actor() string
}

type CreateMatch struct {
	Creator     string            `json:"creator"`
	Security    string            `json:"security,omitempty"`
	Players     []string          `json:"players"`
	SigKeys     map[string]string `json:"sigKeys"`
	DeckSize    uint8             `json:"deckSize,omitempty"`
	HandSize    uint8             `json:"handSize,omitempty"`
	AbortWindow uint64            `json:"abortWindow,omitempty"`
}

func (CreateMatch) MoveType() string { return TypeCreateMatch }
func (m CreateMatch) Actor() string  { return m.Creator }

type SubmitPublicKey struct {
	Player string `json:"player"`
	PubKey string `json:"pubKey"`
	// PrivateKey is accepted only for insecure-demo matches, and only in
	// builds that compile the demo path in.
	PrivateKey string `json:"privateKey,omitempty"`
}

func (SubmitPublicKey) MoveType() string { return TypeSubmitPublicKey }
func (m SubmitPublicKey) Actor() string  { return m.Player }

type SealedShare struct {
	To     string `json:"to"`
	X      uint32 `json:"x"`
	Sealed string `json:"sealed"`
}

type DistributeKeyShares struct {
	Player    string        `json:"player"`
	Threshold int           `json:"threshold"`
	Commits   []string      `json:"commits"`
	Shares    []SealedShare `json:"shares"`
}

func (DistributeKeyShares) MoveType() string { return TypeDistributeKeyShares }
func (m DistributeKeyShares) Actor() string  { return m.Player }

type EncryptDeck struct {
	Player string   `json:"player"`
	Deck   []string `json:"deck"`
	// Proof is a batched equal-discrete-log proof that every output card
	// is the input card masked by the key behind the player's public key.
	Proof       string `json:"proof"`
	CommitNonce string `json:"commitNonce"`
}

func (EncryptDeck) MoveType() string { return TypeEncryptDeck }
func (m EncryptDeck) Actor() string  { return m.Player }

type ShuffleProofMsg struct {
	PermCommit string   `json:"permCommit"`
	Perm       []uint32 `json:"perm"`
	Nonce      string   `json:"nonce"`
	InputHash  string   `json:"inputHash"`
	OutputHash string   `json:"outputHash"`
}

type ShuffleDeck struct {
	Player      string          `json:"player"`
	Deck        []string        `json:"deck"`
	Proof       ShuffleProofMsg `json:"proof"`
	CommitNonce string          `json:"commitNonce"`
}

func (ShuffleDeck) MoveType() string { return TypeShuffleDeck }
func (m ShuffleDeck) Actor() string  { return m.Player }

type CommitShuffleSeed struct {
	Player string `json:"player"`
	Commit string `json:"commit"`
}

func (CommitShuffleSeed) MoveType() string { return TypeCommitShuffleSeed }
func (m CommitShuffleSeed) Actor() string  { return m.Player }

type RevealShuffleSeed struct {
	Player string `json:"player"`
	Seed   string `json:"seed"`
}

func (RevealShuffleSeed) MoveType() string { return TypeRevealShuffleSeed }
func (m RevealShuffleSeed) Actor() string  { return m.Player }

type VoteAbortShuffle struct {
	Player string `json:"player"`
}

func (VoteAbortShuffle) MoveType() string { return TypeVoteAbortShuffle }
func (m VoteAbortShuffle) Actor() string  { return m.Player }

type AskRank struct {
	Player string `json:"player"`
	Target string `json:"target"`
	Rank   uint8  `json:"rank"`
}

func (AskRank) MoveType() string { return TypeAskRank }
func (m AskRank) Actor() string  { return m.Player }

type RespondToAsk struct {
	Player string `json:"player"`
	// HandIndices are the responder's hand slots handed over; empty means
	// "go fish".
	HandIndices []int `json:"handIndices,omitempty"`
}

func (RespondToAsk) MoveType() string { return TypeRespondToAsk }
func (m RespondToAsk) Actor() string  { return m.Player }

type Draw struct {
	Player string `json:"player"`
}

func (Draw) MoveType() string { return TypeDraw }
func (m Draw) Actor() string  { return m.Player }

type ClaimSet struct {
	Player      string `json:"player"`
	Rank        uint8  `json:"rank"`
	HandIndices []int  `json:"handIndices"`
}

func (ClaimSet) MoveType() string { return TypeClaimSet }
func (m ClaimSet) Actor() string  { return m.Player }

type SubmitDecryptionShare struct {
	Player  string `json:"player"`
	Zone    string `json:"zone"`
	Index   int    `json:"index"`
	Purpose string `json:"purpose"`
	// Share is the working ciphertext after stripping this player's
	// layer; Proof shows the stripping used the key behind the player's
	// public key.
	Share string `json:"share"`
	Proof string `json:"proof"`
}

func (SubmitDecryptionShare) MoveType() string { return TypeSubmitDecryptionShare }
func (m SubmitDecryptionShare) Actor() string  { return m.Player }

type SubmitProof struct {
	Player      string `json:"player"`
	ClaimID     string `json:"claimId"`
	Kind        string `json:"kind"`
	PayloadHash string `json:"payloadHash"`
}

func (SubmitProof) MoveType() string { return TypeSubmitProof }
func (m SubmitProof) Actor() string  { return m.Player }

type SubmitVerdict struct {
	Player  string `json:"player"`
	ClaimID string `json:"claimId"`
	Verdict string `json:"verdict"`
	Sig     string `json:"sig"`
}

func (SubmitVerdict) MoveType() string { return TypeSubmitVerdict }
func (m SubmitVerdict) Actor() string  { return m.Player }

func knownMoveType(t string) bool {
	switch t {
	case TypeCreateMatch,
		TypeSubmitPublicKey, TypeDistributeKeyShares, TypeEncryptDeck, TypeShuffleDeck,
		TypeCommitShuffleSeed, TypeRevealShuffleSeed, TypeVoteAbortShuffle,
		TypeAskRank, TypeRespondToAsk, TypeDraw, TypeClaimSet,
		TypeSubmitDecryptionShare, TypeSubmitProof, TypeSubmitVerdict:
		return true
	}
	return false
}

// DecodeMove parses the envelope's value into the concrete move for its
// type tag.
func DecodeMove(env Envelope) (Move, error) {
	decode := func(into Move) (Move, error) {
		if err := decodeStrict(env.Value, into); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Type, err)
		}
		return into, nil
	}

	switch env.Type {
	case TypeCreateMatch:
		return decode(&CreateMatch{})
	case TypeSubmitPublicKey:
		return decode(&SubmitPublicKey{})
	case TypeDistributeKeyShares:
		return decode(&DistributeKeyShares{})
	case TypeEncryptDeck:
		return decode(&EncryptDeck{})
	case TypeShuffleDeck:
		return decode(&ShuffleDeck{})
	case TypeCommitShuffleSeed:
		return decode(&CommitShuffleSeed{})
	case TypeRevealShuffleSeed:
		return decode(&RevealShuffleSeed{})
	case TypeVoteAbortShuffle:
		return decode(&VoteAbortShuffle{})
	case TypeAskRank:
		return decode(&AskRank{})
	case TypeRespondToAsk:
		return decode(&RespondToAsk{})
	case TypeDraw:
		return decode(&Draw{})
	case TypeClaimSet:
		return decode(&ClaimSet{})
	case TypeSubmitDecryptionShare:
		return decode(&SubmitDecryptionShare{})
	case TypeSubmitProof:
		return decode(&SubmitProof{})
	case TypeSubmitVerdict:
		return decode(&SubmitVerdict{})
	}
	return nil, fmt.Errorf("unknown move type %q", env.Type)
}

// NewEnvelope wraps a move for the wire. Sign fills the auth header
// before the envelope is marshaled.
func NewEnvelope(matchID string, mv Move) (Envelope, error) {
	val, err := json.Marshal(mv)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode move: %w", err)
	}
	return Envelope{Type: mv.MoveType(), MatchID: matchID, Value: val}, nil
}
