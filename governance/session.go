package governance

import (
	"context"

	"github.com/calehh/hac-dao/ledger"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/prometheus/client_golang/prometheus"
)

// Session wires the read model, vote cache and orchestrator for one
// member over one ledger.
type Session struct {
	Ledger       ledger.Ledger
	Cache        *VoteCache
	Board        *Board
	Orchestrator *Orchestrator
}

func NewSession(l ledger.Ledger, decimals int32, reg prometheus.Registerer, logger cmtlog.Logger) *Session {
	cache := NewVoteCache(l)
	board := NewBoard(l, cache, decimals, logger)
	return &Session{
		Ledger:       l,
		Cache:        cache,
		Board:        board,
		Orchestrator: NewOrchestrator(l, board, cache, decimals, NewMetrics(reg), logger),
	}
}

// Run loads the board and keeps it in step with the orchestrator until
// ctx ends.
func (s *Session) Run(ctx context.Context) error {
	events, cancel := s.Orchestrator.Subscribe(4)
	defer cancel()
	if err := s.Board.Reload(ctx); err != nil {
		return err
	}
	return s.Board.Follow(ctx, events)
}
