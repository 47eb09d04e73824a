package main

import (
	"fmt"
	"os"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/engine"
	"github.com/cyotee/manamesh-sub000/internal/player"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

// matchsim plays every seat of one match in process: setup, a scripted
// round of table moves, and an attested win. It exists to exercise the
// whole protocol without a chain, so failures surface as plain errors.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := &cli.App{
		Name:  "matchsim",
		Usage: "run a complete card match in process, every seat scripted",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "players", Value: 3, Usage: "number of seats"},
			&cli.UintFlag{Name: "deck", Value: 0, Usage: "deck size (0 = standard)"},
			&cli.UintFlag{Name: "hand", Value: 0, Usage: "opening hand size (0 = default)"},
			&cli.BoolFlag{Name: "verbose", Usage: "log every engine event"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}
}

func run(c *cli.Context) error {
	if c.Bool("verbose") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	n := c.Int("players")
	if n < 2 {
		return fmt.Errorf("need at least 2 players, got %d", n)
	}
	s, err := newSim(n, state.MatchConfig{
		DeckSize: uint8(c.Uint("deck")),
		HandSize: uint8(c.Uint("hand")),
	})
	if err != nil {
		return err
	}

	if err := s.runSetup(); err != nil {
		return err
	}
	if err := s.playRound(); err != nil {
		return err
	}
	if err := s.attestWin(); err != nil {
		return err
	}

	log.Info().
		Str("match", s.m.ID).
		Str("winner", s.m.Winner).
		Uint64("moves", s.m.MoveCount).
		Msg("match complete")
	return nil
}

// sim owns every seat's secrets, so it can play all sides of the
// protocol. The turn policy mirrors the chain adapter: the creator leads
// and only draws pass the table.
type sim struct {
	m      *state.Match
	turn   engine.Turn
	keys   map[string]*player.Keys
	roster []*player.Keys
}

func newSim(n int, cfg state.MatchConfig) (*sim, error) {
	s := &sim{keys: map[string]*player.Keys{}}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("p%d", i+1)
		k, err := player.NewKeys(id)
		if err != nil {
			return nil, fmt.Errorf("keys for %s: %w", id, err)
		}
		s.keys[id] = k
		s.roster = append(s.roster, k)
	}

	matchID := "m-" + xid.New().String()
	mv := player.CreateMatchMove(s.roster[0].ID, state.ModeSecure, s.roster, cfg)
	m, evs, err := engine.NewMatchFromMove(matchID, mv)
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	s.m = m
	s.turn.CurrentPlayer = s.roster[0].ID
	s.logEvents(evs)
	log.Info().Str("match", matchID).Int("players", n).
		Uint8("deck", m.Config.DeckSize).Uint8("hand", m.Config.HandSize).
		Msg("match created")
	return s, nil
}

func (s *sim) apply(mv codec.Move) error {
	s.turn.MoveCount++
	s.turn.NowUnix = int64(s.turn.MoveCount)
	next, evs, err := engine.Apply(s.m, mv, s.turn)
	if err != nil {
		s.turn.MoveCount--
		return fmt.Errorf("%s: %w", mv.MoveType(), err)
	}
	s.m = next
	s.logEvents(evs)
	if _, ok := mv.(*codec.Draw); ok {
		s.advanceTurn()
	}
	return nil
}

func (s *sim) advanceTurn() {
	order := s.m.PlayerOrder()
	for i, id := range order {
		if id == s.turn.CurrentPlayer {
			s.turn.CurrentPlayer = order[(i+1)%len(order)]
			return
		}
	}
}

func (s *sim) logEvents(evs []engine.Event) {
	for _, ev := range evs {
		log.Debug().Str("type", ev.Type).Interface("attrs", ev.Attrs).Msg("event")
	}
}

func (s *sim) runSetup() error {
	for _, k := range s.roster {
		if err := s.apply(k.SubmitPublicKey(state.ModeSecure)); err != nil {
			return err
		}
	}
	log.Info().Msg("cipher keys exchanged")

	for _, k := range s.roster {
		mv, err := k.DistributeKeyShares(s.m)
		if err != nil {
			return fmt.Errorf("shares for %s: %w", k.ID, err)
		}
		if err := s.apply(mv); err != nil {
			return err
		}
	}
	log.Info().Msg("key escrow distributed")

	for _, k := range s.roster {
		mv, err := k.EncryptDeck(s.m)
		if err != nil {
			return fmt.Errorf("encrypt for %s: %w", k.ID, err)
		}
		if err := s.apply(mv); err != nil {
			return err
		}
	}
	log.Info().Msg("deck encrypted")

	for _, k := range s.roster {
		mv, err := k.CommitSeed()
		if err != nil {
			return fmt.Errorf("commit seed for %s: %w", k.ID, err)
		}
		if err := s.apply(mv); err != nil {
			return err
		}
	}
	for _, k := range s.roster {
		mv, err := k.RevealSeed()
		if err != nil {
			return fmt.Errorf("reveal seed for %s: %w", k.ID, err)
		}
		if err := s.apply(mv); err != nil {
			return err
		}
	}
	log.Info().Str("seed", s.m.Rng.FinalSeed).Msg("shuffle seed agreed")

	for _, k := range s.roster {
		mv, err := k.ShuffleDeck(s.m)
		if err != nil {
			return fmt.Errorf("shuffle for %s: %w", k.ID, err)
		}
		if err := s.apply(mv); err != nil {
			return err
		}
	}
	if s.m.Phase != state.PhasePlay {
		return fmt.Errorf("setup ended in phase %s", s.m.Phase)
	}
	log.Info().Msg("deck shuffled and hands dealt")
	return nil
}

// publicReveal collects every seat's decryption share for one slot.
func (s *sim) publicReveal(zone string, index int) (state.Card, error) {
	for _, k := range s.roster {
		mv, err := k.DecryptionShare(s.m, zone, index, state.RevealPublic)
		if err != nil {
			return 0, fmt.Errorf("share for %s: %w", k.ID, err)
		}
		if err := s.apply(mv); err != nil {
			return 0, err
		}
	}
	card, ok := s.m.Revealed[state.RevealKey(zone, index)]
	if !ok {
		return 0, fmt.Errorf("reveal of %s#%d did not complete", zone, index)
	}
	return card, nil
}

// playRound scripts one lap of table moves: a public reveal, a caught
// ask, and a draw by every seat.
func (s *sim) playRound() error {
	asker := s.roster[0].ID
	target := s.roster[1].ID

	card, err := s.publicReveal(state.HandZone(target), 0)
	if err != nil {
		return err
	}
	log.Info().Str("player", target).Str("card", card.String()).Msg("card revealed")

	if err := s.apply(&codec.AskRank{Player: asker, Target: target, Rank: card.Rank()}); err != nil {
		return err
	}
	if err := s.apply(&codec.RespondToAsk{Player: target, HandIndices: []int{0}}); err != nil {
		return err
	}
	log.Info().Str("asker", asker).Str("target", target).Uint8("rank", card.Rank()).Msg("rank caught")

	for range s.roster {
		deck, err := s.m.Zone(state.ZoneDeck)
		if err != nil {
			return err
		}
		if len(deck.Cards) == 0 {
			break
		}
		who := s.turn.CurrentPlayer
		if err := s.apply(&codec.Draw{Player: who}); err != nil {
			return err
		}
		log.Debug().Str("player", who).Msg("drew a card")
	}
	return nil
}

// attestWin ends the match the cooperative way: the lead seat files a win
// claim and the verifier signs it valid.
func (s *sim) attestWin() error {
	claimant := s.roster[0]
	claimID := xid.New().String()

	claimMv, err := claimant.WinClaim(claimID, []byte("simulated-final-state"))
	if err != nil {
		return fmt.Errorf("win claim: %w", err)
	}
	if err := s.apply(claimMv); err != nil {
		return err
	}

	verifier := s.keys[s.m.Verifier().ID]
	verdictMv, err := verifier.Verdict(s.m, claimID, state.VerdictValid)
	if err != nil {
		return fmt.Errorf("verdict: %w", err)
	}
	if err := s.apply(verdictMv); err != nil {
		return err
	}
	if s.m.Phase != state.PhaseGameOver {
		return fmt.Errorf("match ended in phase %s", s.m.Phase)
	}
	return nil
}
