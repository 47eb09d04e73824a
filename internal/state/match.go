package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type Phase string

const (
	PhaseKeyExchange Phase = "keyExchange"
	PhaseKeyEscrow   Phase = "keyEscrow"
	PhaseEncrypt     Phase = "encrypt"
	PhaseShuffle     Phase = "shuffle"
	PhasePlay        Phase = "play"
	PhaseGameOver    Phase = "gameOver"
	PhaseVoided      Phase = "voided"
)

type SecurityMode string

const (
	ModeSecure       SecurityMode = "secure"
	ModeInsecureDemo SecurityMode = "insecure-demo"
)

// Rng phases within the shuffle phase.
const (
	RngCommit = "commit"
	RngReveal = "reveal"
	RngReady  = "ready"
)

// Reveal purposes.
const (
	RevealPublic  = "public"  // every layer holder contributes; identity cached
	RevealPrivate = "private" // initiator excluded; owner finishes locally
)

// Forced action kinds.
const (
	ForcedRespond = "respond"
	ForcedDraw    = "draw"
)

// Attest verdicts.
const (
	VerdictValid   = "valid"
	VerdictInvalid = "invalid"
)

// Attest claim kinds the engine knows how to settle.
const ClaimWin = "win"

type Player struct {
	ID string `json:"id"`
	// SigKey is the player's ed25519 key (hex), registered at match
	// creation; authenticates moves and, for the verifier, verdicts.
	SigKey string `json:"sigKey"`
	// CipherKey is the player's ristretto255 masking public key (hex),
	// set by submitPublicKey.
	CipherKey string `json:"cipherKey,omitempty"`
	// PrivateKey is only ever populated in insecure-demo matches.
	PrivateKey string `json:"privateKey,omitempty"`
}

type EncryptedCard struct {
	CT     string `json:"ct"`
	Layers uint8  `json:"layers"`
}

type Zone struct {
	Owner string          `json:"owner,omitempty"`
	Cards []EncryptedCard `json:"cards"`
}

type DeckCommitment struct {
	Player string `json:"player"`
	Stage  string `json:"stage"` // "encrypt" or "shuffle"
	Hash   string `json:"hash"`
	Nonce  string `json:"nonce"`
	Time   int64  `json:"time"`
}

type EscrowShare struct {
	From   string `json:"from"`
	To     string `json:"to"`
	X      uint32 `json:"x"`
	Sealed string `json:"sealed"`
}

type Escrow struct {
	Threshold int `json:"threshold"`
	// Commits maps dealer id to Feldman commitment points (hex); the
	// first commitment equals the dealer's cipher key.
	Commits map[string][]string `json:"commits,omitempty"`
	Shares  []EscrowShare       `json:"shares,omitempty"`
}

type ShuffleRng struct {
	Phase        string            `json:"phase"`
	Commits      map[string]string `json:"commits,omitempty"`
	Reveals      map[string]string `json:"reveals,omitempty"`
	FinalSeed    string            `json:"finalSeed,omitempty"`
	LastProgress uint64            `json:"lastProgress"`
	AbortVotes   []string          `json:"abortVotes,omitempty"`
}

type PendingReveal struct {
	Purpose   string `json:"purpose"`
	Zone      string `json:"zone"`
	Index     int    `json:"index"`
	Initiator string `json:"initiator"`
	// Working tracks the progressively unmasked copy; the zone card
	// itself is left untouched until the reveal completes.
	WorkingCT string            `json:"workingCt"`
	Layers    uint8             `json:"layers"`
	Shares    map[string]string `json:"shares,omitempty"`
	Failures  map[string]uint8  `json:"failures,omitempty"`
}

type ForcedAction struct {
	Player string `json:"player"`
	Kind   string `json:"kind"`
	Asker  string `json:"asker,omitempty"`
	Rank   uint8  `json:"rank,omitempty"`
}

type AttestClaim struct {
	ID          string `json:"id"`
	Claimant    string `json:"claimant"`
	Kind        string `json:"kind"`
	PayloadHash string `json:"payloadHash"`
	Verifier    string `json:"verifier"`
	Verdict     string `json:"verdict,omitempty"`
	Sig         string `json:"sig,omitempty"`
}

type MatchConfig struct {
	DeckSize    uint8  `json:"deckSize"`
	HandSize    uint8  `json:"handSize"`
	AbortWindow uint64 `json:"abortWindow"`
}

const (
	DefaultHandSize    = 7
	DefaultAbortWindow = 12
)

type Match struct {
	ID         string       `json:"id"`
	Security   SecurityMode `json:"security"`
	Phase      Phase        `json:"phase"`
	VoidReason string       `json:"voidReason,omitempty"`
	Winner     string       `json:"winner,omitempty"`
	Config     MatchConfig  `json:"config"`

	// Players is the fixed player order; index order is turn order and
	// escrow share index order (x = index+1).
	Players   []*Player `json:"players"`
	SetupTurn int       `json:"setupTurn"`

	DeckCommits []DeckCommitment `json:"deckCommits,omitempty"`
	Escrow      *Escrow          `json:"escrow,omitempty"`
	Rng         *ShuffleRng      `json:"rng,omitempty"`

	Zones    map[string]*Zone          `json:"zones,omitempty"`
	Reveals  map[string]*PendingReveal `json:"reveals,omitempty"`
	Revealed map[string]Card           `json:"revealed,omitempty"`

	Forced *ForcedAction  `json:"forced,omitempty"`
	Claims []*AttestClaim `json:"claims,omitempty"`

	// MoveCount mirrors the turn engine's counter as of the last accepted
	// move; the RNG liveness window is measured against it.
	MoveCount uint64 `json:"moveCount"`
}

// Zone ids. The deck is shared; hands and claimed sets are per player.
const ZoneDeck = "deck"

func HandZone(player string) string    { return "hand:" + player }
func ClaimedZone(player string) string { return "claimed:" + player }

// RevealKey addresses one card slot for the reveal protocol.
func RevealKey(zone string, index int) string {
	return zone + "#" + strconv.Itoa(index)
}

func ParseRevealKey(key string) (zone string, index int, err error) {
	i := strings.LastIndexByte(key, '#')
	if i <= 0 || i == len(key)-1 {
		return "", 0, fmt.Errorf("reveal key %q: want zone#index", key)
	}
	idx, err := strconv.Atoi(key[i+1:])
	if err != nil || idx < 0 {
		return "", 0, fmt.Errorf("reveal key %q: bad index", key)
	}
	return key[:i], idx, nil
}

func validPlayerID(id string) error {
	if id == "" {
		return fmt.Errorf("player id empty")
	}
	if len(id) > 64 {
		return fmt.Errorf("player id too long")
	}
	if strings.ContainsAny(id, "#/") {
		return fmt.Errorf("player id %q contains reserved characters", id)
	}
	for i := 0; i < len(id); i++ {
		// Printable ASCII only: ids appear in reveal keys, zone names,
		// and envelope sign bytes.
		if id[i] <= 0x20 || id[i] >= 0x7f {
			return fmt.Errorf("player id %q contains reserved characters", id)
		}
	}
	return nil
}

// NewMatch creates a match in keyExchange with the given roster. sigKeys
// maps player id to the registered ed25519 key (hex); order fixes
// playerOrder.
func NewMatch(id string, mode SecurityMode, cfg MatchConfig, order []string, sigKeys map[string]string) (*Match, error) {
	if id == "" {
		return nil, fmt.Errorf("match id empty")
	}
	if mode != ModeSecure && mode != ModeInsecureDemo {
		return nil, fmt.Errorf("unknown security mode %q", mode)
	}
	if len(order) < 2 {
		return nil, fmt.Errorf("need at least 2 players, got %d", len(order))
	}
	if len(order) > 8 {
		return nil, fmt.Errorf("too many players: %d", len(order))
	}
	if cfg.DeckSize == 0 {
		cfg.DeckSize = StandardDeckSize
	}
	if cfg.DeckSize < 2 || cfg.DeckSize > StandardDeckSize {
		return nil, fmt.Errorf("deck size %d out of range", cfg.DeckSize)
	}
	if cfg.HandSize == 0 {
		cfg.HandSize = DefaultHandSize
	}
	if cfg.AbortWindow == 0 {
		cfg.AbortWindow = DefaultAbortWindow
	}
	if int(cfg.HandSize)*len(order) > int(cfg.DeckSize) {
		return nil, fmt.Errorf("hand size %d too large for deck %d and %d players",
			cfg.HandSize, cfg.DeckSize, len(order))
	}

	players := make([]*Player, 0, len(order))
	seen := map[string]bool{}
	for _, pid := range order {
		if err := validPlayerID(pid); err != nil {
			return nil, err
		}
		if seen[pid] {
			return nil, fmt.Errorf("duplicate player %q", pid)
		}
		seen[pid] = true
		key, ok := sigKeys[pid]
		if !ok {
			return nil, fmt.Errorf("player %q: missing sig key", pid)
		}
		players = append(players, &Player{ID: pid, SigKey: key})
	}
	if len(sigKeys) != len(order) {
		return nil, fmt.Errorf("sig keys do not match roster")
	}

	return &Match{
		ID:       id,
		Security: mode,
		Phase:    PhaseKeyExchange,
		Config:   cfg,
		Players:  players,
	}, nil
}

// Player returns the roster entry and index for id.
func (m *Match) Player(id string) (*Player, int, error) {
	for i, p := range m.Players {
		if p.ID == id {
			return p, i, nil
		}
	}
	return nil, 0, fmt.Errorf("unknown player %q", id)
}

// PlayerOrder returns the roster ids in turn order.
func (m *Match) PlayerOrder() []string {
	out := make([]string, len(m.Players))
	for i, p := range m.Players {
		out[i] = p.ID
	}
	return out
}

// SetupPlayer is the player whose sequential-phase move is next.
func (m *Match) SetupPlayer() *Player {
	return m.Players[m.SetupTurn%len(m.Players)]
}

// Verifier is the fixed attestation verifier, playerOrder[0].
func (m *Match) Verifier() *Player {
	return m.Players[0]
}

// AbortQuorum is the vote count that voids the match: floor(N/2)+1.
func (m *Match) AbortQuorum() int {
	return len(m.Players)/2 + 1
}

func (m *Match) Zone(id string) (*Zone, error) {
	z, ok := m.Zones[id]
	if !ok {
		return nil, fmt.Errorf("unknown zone %q", id)
	}
	return z, nil
}

// Claim returns the attest claim with the given id, if filed.
func (m *Match) Claim(id string) *AttestClaim {
	for _, c := range m.Claims {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// SortedAbortVotes keeps the vote list canonical for hashing.
func SortedAbortVotes(votes []string) []string {
	out := append([]string(nil), votes...)
	sort.Strings(out)
	return out
}

// Terminal reports whether no further moves can be accepted.
func (m *Match) Terminal() bool {
	return m.Phase == PhaseGameOver || m.Phase == PhaseVoided
}

// Clone deep-copies the match through a JSON round trip. The engine
// validates and mutates a clone so a rejected move cannot leave partial
// writes behind.
func (m *Match) Clone() (*Match, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("clone match %s: %w", m.ID, err)
	}
	out := &Match{}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("clone match %s: %w", m.ID, err)
	}
	return out, nil
}
