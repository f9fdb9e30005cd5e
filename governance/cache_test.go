package governance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteCacheRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFakeLedger()
	c := NewVoteCache(f)
	assert.False(t, c.Get(1))

	require.NoError(t, c.Refresh(ctx, 1))
	require.NoError(t, c.Refresh(ctx, 1))
	assert.False(t, c.Get(1))

	f.voted[1] = true
	require.NoError(t, c.Refresh(ctx, 1))
	assert.True(t, c.Get(1))
}

func TestVoteCacheKeepsOptimisticMark(t *testing.T) {
	f := newFakeLedger()
	c := NewVoteCache(f)
	c.MarkVoted(2)
	// ledger has not caught up yet
	require.NoError(t, c.Refresh(context.Background(), 2))
	assert.True(t, c.Get(2))
	assert.False(t, c.Get(3))
}
