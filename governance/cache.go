package governance

import (
	"context"
	"sync"

	"github.com/calehh/hac-dao/ledger"
)

// VoteCache remembers which proposals the member has voted on. A stored
// true is never cleared: the ledger may lag a vote this process already
// saw confirmed.
type VoteCache struct {
	client ledger.Client

	mtx   sync.Mutex
	voted map[uint64]bool
}

func NewVoteCache(client ledger.Client) *VoteCache {
	return &VoteCache{
		client: client,
		voted:  make(map[uint64]bool),
	}
}

func (c *VoteCache) Refresh(ctx context.Context, id uint64) error {
	fresh, err := c.client.QueryHasVoted(ctx, c.client.Member(), id)
	if err != nil {
		return err
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.voted[id] = c.voted[id] || fresh
	return nil
}

func (c *VoteCache) MarkVoted(id uint64) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.voted[id] = true
}

func (c *VoteCache) Get(id uint64) bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.voted[id]
}
