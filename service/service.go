package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/calehh/hac-dao/governance"
	"github.com/calehh/hac-dao/ledger"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Service exposes one member's governance session over HTTP.
type Service struct {
	engine     *gin.Engine
	session    *governance.Session
	logger     cmtlog.Logger
	listenAddr string
}

func NewService(listenAddr string, session *governance.Session, gatherer prometheus.Gatherer, logger cmtlog.Logger) *Service {
	r := gin.Default()
	s := &Service{
		engine:     r,
		session:    session,
		logger:     logger.With("module", "service"),
		listenAddr: listenAddr,
	}
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/createProposal", s.handleCreateProposal)
	s.engine.POST("/vote", s.handleVote)
	s.engine.POST("/downvote", s.handleDownvote)
	s.engine.POST("/finalizeProposal", s.handleFinalize)
	s.engine.GET("/status", s.handleStatus)
	if gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

func (s *Service) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx ends, then shuts the listener down.
func (s *Service) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.listenAddr, Handler: s.engine}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("service listening", "addr", s.listenAddr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown service fail", "err", err)
		return err
	}
	return nil
}

type GetProposalsReq struct {
	ProposalId uint64 `json:"proposalId"`
	Reload     bool   `json:"reload"`
}

type GetProposalResponse struct {
	Proposals []governance.ProposalView `json:"proposals"`
	Quorum    uint64                    `json:"quorum"`
	Loaded    bool                      `json:"loaded"`
}

type ProposalReq struct {
	ProposalId uint64 `json:"proposalId" binding:"required"`
}

type StatusResponse struct {
	Member string `json:"member"`
	Busy   bool   `json:"busy"`
	Loaded bool   `json:"loaded"`
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var requestData GetProposalsReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&requestData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	board := s.session.Board
	if requestData.Reload || !board.Snapshot().Loaded {
		if err := board.Reload(c.Request.Context()); err != nil {
			s.writeError(c, ledger.Classify("getProposals", err))
			return
		}
	}
	quorum, loaded := board.Quorum()
	response := GetProposalResponse{
		Proposals: make([]governance.ProposalView, 0),
		Quorum:    quorum,
		Loaded:    loaded,
	}
	for _, v := range board.Views() {
		if requestData.ProposalId != 0 && v.ID != requestData.ProposalId {
			continue
		}
		response.Proposals = append(response.Proposals, v)
	}
	c.JSON(http.StatusOK, response)
}

func (s *Service) handleCreateProposal(c *gin.Context) {
	var requestData governance.CreateRequest
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	receipt, err := s.session.Orchestrator.Create(c.Request.Context(), requestData)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Service) handleVote(c *gin.Context) {
	s.handleProposalOp(c, s.session.Orchestrator.Vote)
}

func (s *Service) handleDownvote(c *gin.Context) {
	s.handleProposalOp(c, s.session.Orchestrator.Downvote)
}

func (s *Service) handleFinalize(c *gin.Context) {
	s.handleProposalOp(c, s.session.Orchestrator.Finalize)
}

func (s *Service) handleProposalOp(c *gin.Context, op func(context.Context, uint64) (*ledger.Receipt, error)) {
	var requestData ProposalReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	receipt, err := op(c.Request.Context(), requestData.ProposalId)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Service) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Member: s.session.Ledger.Member().Hex(),
		Busy:   s.session.Orchestrator.Busy(),
		Loaded: s.session.Board.Snapshot().Loaded,
	})
}

func (s *Service) writeError(c *gin.Context, err error) {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request fail", "path", c.FullPath(), "err", err)
	}
	c.JSON(code, gin.H{"error": governance.Message(err)})
}

// StatusCode maps an error kind to the HTTP status returned for it.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, governance.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrUserDeclined):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrLedgerRevert):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrMayStillLand):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
