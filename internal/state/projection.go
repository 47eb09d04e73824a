package state

import "sort"

// Projection is the read-only view a UI consumes: progress and pending
// work, never ciphertext internals or escrow material.
type Projection struct {
	ID         string       `json:"id"`
	Phase      Phase        `json:"phase"`
	Security   SecurityMode `json:"security"`
	VoidReason string       `json:"voidReason,omitempty"`
	Winner     string       `json:"winner,omitempty"`

	PlayerOrder []string `json:"playerOrder"`
	SetupPlayer string   `json:"setupPlayer,omitempty"`

	RngPhase      string   `json:"rngPhase,omitempty"`
	RngCommits    []string `json:"rngCommits,omitempty"` // players that committed
	RngReveals    []string `json:"rngReveals,omitempty"`
	AbortVotes    []string `json:"abortVotes,omitempty"`
	FinalSeedSet  bool     `json:"finalSeedSet"`
	EscrowDealers []string `json:"escrowDealers,omitempty"`

	ZoneSizes   map[string]int    `json:"zoneSizes,omitempty"`
	PendingKeys []string          `json:"pendingKeys,omitempty"`
	Revealed    map[string]string `json:"revealed,omitempty"` // key -> card name

	Forced        *ForcedAction `json:"forced,omitempty"`
	OpenClaims    []string      `json:"openClaims,omitempty"`
	SettledClaims []string      `json:"settledClaims,omitempty"`
	MoveCount     uint64        `json:"moveCount"`
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Project builds the UI view of a match.
func Project(m *Match) Projection {
	p := Projection{
		ID:          m.ID,
		Phase:       m.Phase,
		Security:    m.Security,
		VoidReason:  m.VoidReason,
		Winner:      m.Winner,
		PlayerOrder: m.PlayerOrder(),
		MoveCount:   m.MoveCount,
		Forced:      m.Forced,
	}
	switch m.Phase {
	case PhaseKeyExchange, PhaseKeyEscrow, PhaseEncrypt, PhaseShuffle:
		p.SetupPlayer = m.SetupPlayer().ID
	}
	if m.Rng != nil {
		p.RngPhase = m.Rng.Phase
		p.RngCommits = sortedKeys(m.Rng.Commits)
		p.RngReveals = sortedKeys(m.Rng.Reveals)
		p.AbortVotes = SortedAbortVotes(m.Rng.AbortVotes)
		p.FinalSeedSet = m.Rng.FinalSeed != ""
	}
	if m.Escrow != nil {
		p.EscrowDealers = sortedKeys(m.Escrow.Commits)
	}
	if len(m.Zones) > 0 {
		p.ZoneSizes = make(map[string]int, len(m.Zones))
		for id, z := range m.Zones {
			p.ZoneSizes[id] = len(z.Cards)
		}
	}
	p.PendingKeys = sortedKeys(m.Reveals)
	if len(m.Revealed) > 0 {
		p.Revealed = make(map[string]string, len(m.Revealed))
		for k, c := range m.Revealed {
			p.Revealed[k] = c.String()
		}
	}
	for _, c := range m.Claims {
		if c.Verdict == "" {
			p.OpenClaims = append(p.OpenClaims, c.ID)
		} else {
			p.SettledClaims = append(p.SettledClaims, c.ID)
		}
	}
	return p
}
