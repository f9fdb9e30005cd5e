package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/calehh/hac-dao/app/apptest"
	"github.com/calehh/hac-dao/crypto"
	"github.com/calehh/hac-dao/governance"
	"github.com/calehh/hac-dao/ledger"
	"github.com/calehh/hac-dao/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var recipient = common.HexToAddress("0x00000000000000000000000000000000000000c1")

func newTestService(t *testing.T) *Service {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.NewKeySigner(key)
	g := &types.AppGenesis{
		Quorum:   0,
		Treasury: "10000000000000000000",
		Members:  []types.GenesisMember{{Address: signer.Address(), Weight: 1}},
	}
	l, err := apptest.New(t.TempDir(), "dao-service-test", g)
	require.NoError(t, err)
	t.Cleanup(l.Close)

	reg := prometheus.NewRegistry()
	client := ledger.NewCometClientWithRPC(l, signer, cmtlog.NewNopLogger())
	session := governance.NewSession(client, ledger.DefaultDecimals, reg, cmtlog.NewNopLogger())
	return NewService("127.0.0.1:0", session, reg, cmtlog.NewNopLogger())
}

func do(t *testing.T, s *Service, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func getProposals(t *testing.T, s *Service) GetProposalResponse {
	w := do(t, s, http.MethodPost, "/getProposals", GetProposalsReq{Reload: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp GetProposalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestServiceProposalFlow(t *testing.T) {
	s := newTestService(t)

	resp := getProposals(t, s)
	assert.True(t, resp.Loaded)
	assert.Empty(t, resp.Proposals)

	w := do(t, s, http.MethodPost, "/createProposal", governance.CreateRequest{
		Name: "Roof", Amount: "2.25", Recipient: recipient.Hex(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var receipt ledger.Receipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipt))
	assert.Equal(t, uint64(1), receipt.ProposalID)

	resp = getProposals(t, s)
	require.Len(t, resp.Proposals, 1)
	assert.Equal(t, "2.25", resp.Proposals[0].Amount)
	assert.True(t, resp.Proposals[0].CanVote)

	w = do(t, s, http.MethodPost, "/vote", ProposalReq{ProposalId: 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, s, http.MethodPost, "/downvote", ProposalReq{ProposalId: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already voted")

	resp = getProposals(t, s)
	require.Len(t, resp.Proposals, 1)
	assert.True(t, resp.Proposals[0].CanFinalize)

	w = do(t, s, http.MethodPost, "/finalizeProposal", ProposalReq{ProposalId: 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp = getProposals(t, s)
	assert.Equal(t, "Approved", resp.Proposals[0].Status)
	assert.Equal(t, "2.25", resp.Proposals[0].RecipientBalance)

	w = do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `hacdao_governance_operations_total{op="vote",result="ok"} 1`)
	assert.Contains(t, w.Body.String(), `hacdao_governance_operations_total{op="downvote",result="validation"} 1`)
}

func TestServiceRejectsBadInput(t *testing.T) {
	s := newTestService(t)

	w := do(t, s, http.MethodPost, "/vote", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/createProposal", governance.CreateRequest{
		Name: "Roof", Amount: "-1", Recipient: recipient.Hex(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// proposal 7 was never read
	w = do(t, s, http.MethodPost, "/finalizeProposal", ProposalReq{ProposalId: 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "proposal not loaded")

	// treasury holds 10
	w = do(t, s, http.MethodPost, "/createProposal", governance.CreateRequest{
		Name: "Moon", Amount: "11", Recipient: recipient.Hex(),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(w.Body.String()), `Insufficient funds"}`), w.Body.String())
}

func TestServiceStatus(t *testing.T) {
	s := newTestService(t)
	w := do(t, s, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.False(t, st.Busy)
	assert.Equal(t, s.session.Ledger.Member().Hex(), st.Member)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ledger.NewError("vote", ledger.ErrValidation, governance.ErrBusy), http.StatusConflict},
		{ledger.Validationf("vote", "proposal not loaded"), http.StatusBadRequest},
		{ledger.NewError("vote", ledger.ErrUserDeclined, crypto.ErrDeclined), http.StatusForbidden},
		{ledger.NewError("vote", ledger.ErrLedgerRevert, errors.New("x")), http.StatusUnprocessableEntity},
		{ledger.Classify("vote", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{ledger.Classify("vote", errors.New("connection refused")), http.StatusBadGateway},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, StatusCode(tc.err), tc.err.Error())
	}
}
