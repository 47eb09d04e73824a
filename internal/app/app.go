// Package app replicates the match state machine over ABCI. Every move
// travels as a signed envelope in a tx; the engine decides, the app stores
// the result and emits the engine's events for indexing.
package app

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"

	"github.com/cyotee/manamesh-sub000/internal/codec"
	"github.com/cyotee/manamesh-sub000/internal/engine"
	"github.com/cyotee/manamesh-sub000/internal/state"
)

const AppVersion uint64 = 1

type MeshApp struct {
	*abci.BaseApplication

	home string

	mu       sync.Mutex
	st       *state.Store
	lastHash []byte
}

func New(home string) (*MeshApp, error) {
	appHome := filepath.Join(home, "app")
	st, err := state.Load(appHome)
	if err != nil {
		return nil, err
	}
	a := &MeshApp{
		BaseApplication: abci.NewBaseApplication(),
		home:            home,
		st:              st,
		lastHash:        st.AppHash(),
	}
	return a, nil
}

func (a *MeshApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "manamesh (v1)",
		Version:          "v1",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

// CheckTx gates the mempool on the full envelope auth. The engine is not
// consulted here: move validity can change between now and inclusion, but
// a bad signature or replayed nonce never becomes good.
func (a *MeshApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	env, err := codec.DecodeEnvelope(req.Tx)
	if err != nil {
		return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
	}
	mv, err := codec.DecodeMove(env)
	if err != nil {
		return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := authenticate(a.st, env, mv); err != nil {
		return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
	}
	return &abci.CheckTxResponse{Code: 0}, nil
}

func (a *MeshApp) InitChain(_ context.Context, _ *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	// Matches are created by txs; there is no genesis app state.
	return &abci.InitChainResponse{}, nil
}

func (a *MeshApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		txResults = append(txResults, a.deliverTx(txBytes, req.Time))
	}

	a.lastHash = a.st.AppHash()

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *MeshApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	appHome := filepath.Join(a.home, "app")
	if err := a.st.Save(appHome); err != nil {
		// Returning the error halts the node rather than running on
		// unpersisted state.
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

func (a *MeshApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Paths:
	// - /matches
	// - /match/<id>
	// - /match/<id>/projection
	// - /nonce/<signer>
	path := strings.TrimSpace(req.Path)
	switch {
	case path == "/matches":
		ids := make([]string, 0, len(a.st.Matches))
		for id := range a.st.Matches {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		b, _ := json.Marshal(ids)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/match/"):
		id := strings.TrimPrefix(path, "/match/")
		wantProjection := false
		if rest, ok := strings.CutSuffix(id, "/projection"); ok {
			id, wantProjection = rest, true
		}
		m, ok := a.st.Matches[id]
		if !ok {
			return &abci.QueryResponse{Code: 1, Log: "match not found", Height: a.st.Height}, nil
		}
		if wantProjection {
			view := struct {
				state.Projection
				Turn string `json:"turn,omitempty"`
			}{state.Project(m), a.st.Turns[id]}
			b, _ := json.Marshal(view)
			return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(m)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/nonce/"):
		signer := strings.TrimPrefix(path, "/nonce/")
		b, _ := json.Marshal(map[string]any{"signer": signer, "nonce": a.st.NonceMax[signer]})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	default:
		return &abci.QueryResponse{Code: 1, Log: "unknown query path", Height: a.st.Height}, nil
	}
}

func (a *MeshApp) deliverTx(txBytes []byte, blockTime time.Time) *abci.ExecTxResult {
	env, err := codec.DecodeEnvelope(txBytes)
	if err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	mv, err := codec.DecodeMove(env)
	if err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	nonce, err := authenticate(a.st, env, mv)
	if err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	// An authentic envelope consumes its nonce even if the move fails, so
	// the identical bytes can never be included twice.
	a.st.NonceMax[env.Signer] = nonce

	if cm, ok := mv.(*codec.CreateMatch); ok {
		if _, exists := a.st.Matches[env.MatchID]; exists {
			return &abci.ExecTxResult{Code: 1, Log: "match id already exists"}
		}
		m, evs, err := engine.NewMatchFromMove(env.MatchID, cm)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		a.st.Matches[env.MatchID] = m
		a.st.Turns[env.MatchID] = startingPlayer(m)
		return execEvents(evs)
	}

	m, ok := a.st.Matches[env.MatchID]
	if !ok {
		return &abci.ExecTxResult{Code: 1, Log: "match not found"}
	}
	turn := engine.Turn{
		CurrentPlayer: a.st.Turns[env.MatchID],
		MoveCount:     m.MoveCount + 1,
		NowUnix:       blockTime.Unix(),
	}
	next, evs, err := engine.Apply(m, mv, turn)
	if err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	a.st.Matches[env.MatchID] = next
	a.st.Turns[env.MatchID] = nextTurn(next, turn.CurrentPlayer, mv)
	return execEvents(evs)
}

// execEvents renders engine events for ABCI with attribute keys sorted,
// keeping event bytes identical across nodes.
func execEvents(evs []engine.Event) *abci.ExecTxResult {
	res := &abci.ExecTxResult{Code: 0}
	for _, ev := range evs {
		out := abci.Event{Type: ev.Type}
		keys := make([]string, 0, len(ev.Attrs))
		for k := range ev.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out.Attributes = append(out.Attributes, abci.EventAttribute{Key: k, Value: ev.Attrs[k], Index: true})
		}
		res.Events = append(res.Events, out)
	}
	return res
}
