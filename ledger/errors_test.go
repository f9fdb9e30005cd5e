package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/calehh/hac-dao/crypto"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	err := Classify("vote", fmt.Errorf("sign: %w", crypto.ErrDeclined))
	assert.ErrorIs(t, err, ErrUserDeclined)
	assert.ErrorIs(t, err, crypto.ErrDeclined)

	err = Classify("vote", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, ErrMayStillLand)
	assert.Contains(t, err.Error(), "may still be committed")

	err = Classify("vote", errors.New("connection refused"))
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, ErrNetwork, Kind(err))

	reverted := revertError("vote", "reverted with reason string 'already voted'")
	assert.Same(t, reverted, Classify("other", reverted))
	assert.Nil(t, Classify("vote", nil))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "already voted", Reason(revertError("vote", "reverted with reason string 'already voted'")))
	assert.Equal(t, "proposal name is empty", Reason(Validationf("createProposal", "proposal name is empty")))
	assert.Equal(t, "plain", Reason(errors.New("plain")))
	assert.Equal(t, "", Reason(nil))
	assert.Equal(t, ErrNoSigner.Error(), Reason(NewError("vote", ErrValidation, ErrNoSigner)))
}
