package state

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Store is the full persisted application state: every live match plus the
// per-signer replay floor. Plain data throughout so snapshots and replay
// are exact.
type Store struct {
	Height int64 `json:"height"`

	Matches map[string]*Match `json:"matches"`
	// NonceMax maps signer -> last accepted envelope nonce.
	NonceMax map[string]uint64 `json:"nonceMax,omitempty"`
	// Turns maps match id -> the player holding the table turn. The engine
	// treats turn order as the adapter's input, so the marker lives here.
	Turns map[string]string `json:"turns,omitempty"`
}

func NewStore() *Store {
	return &Store{
		Matches:  map[string]*Match{},
		NonceMax: map[string]uint64{},
		Turns:    map[string]string{},
	}
}

func Load(home string) (*Store, error) {
	path := filepath.Join(home, "state.json")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewStore(), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var st Store
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	st.normalize()
	return &st, nil
}

func (s *Store) Save(home string) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("mkdir home: %w", err)
	}
	path := filepath.Join(home, "state.json")
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

func (s *Store) normalize() {
	if s.Matches == nil {
		s.Matches = map[string]*Match{}
	}
	if s.NonceMax == nil {
		s.NonceMax = map[string]uint64{}
	}
	if s.Turns == nil {
		s.Turns = map[string]string{}
	}
	for _, m := range s.Matches {
		if m.Zones == nil {
			m.Zones = map[string]*Zone{}
		}
		if m.Reveals == nil {
			m.Reveals = map[string]*PendingReveal{}
		}
		if m.Revealed == nil {
			m.Revealed = map[string]Card{}
		}
	}
}

// Clone returns a deep copy suitable for staged move execution: mutate the
// clone, swap it in only if the whole move succeeds.
func (s *Store) Clone() (*Store, error) {
	if s == nil {
		return nil, fmt.Errorf("state is nil")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state clone: %w", err)
	}
	var out Store
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode state clone: %w", err)
	}
	out.normalize()
	return &out, nil
}

// AppHash hashes a normalized view of the store. Top-level maps are
// flattened to sorted slices; nested maps ride on encoding/json's sorted
// map keys, which is stable across replays.
func (s *Store) AppHash() []byte {
	type matchKV struct {
		ID    string `json:"id"`
		Match *Match `json:"match"`
	}
	type nonceKV struct {
		Signer string `json:"signer"`
		Nonce  uint64 `json:"nonce"`
	}
	type turnKV struct {
		Match  string `json:"match"`
		Player string `json:"player"`
	}

	matches := make([]matchKV, 0, len(s.Matches))
	for id, m := range s.Matches {
		matches = append(matches, matchKV{ID: id, Match: m})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	nonces := make([]nonceKV, 0, len(s.NonceMax))
	for k, v := range s.NonceMax {
		nonces = append(nonces, nonceKV{Signer: k, Nonce: v})
	}
	sort.Slice(nonces, func(i, j int) bool { return nonces[i].Signer < nonces[j].Signer })

	turns := make([]turnKV, 0, len(s.Turns))
	for k, v := range s.Turns {
		turns = append(turns, turnKV{Match: k, Player: v})
	}
	sort.Slice(turns, func(i, j int) bool { return turns[i].Match < turns[j].Match })

	normalized := struct {
		Height   int64     `json:"height"`
		Matches  []matchKV `json:"matches"`
		NonceMax []nonceKV `json:"nonceMax,omitempty"`
		Turns    []turnKV  `json:"turns,omitempty"`
	}{
		Height:   s.Height,
		Matches:  matches,
		NonceMax: nonces,
		Turns:    turns,
	}

	b, _ := json.Marshal(normalized)
	sum := sha256.Sum256(b)
	return sum[:]
}
