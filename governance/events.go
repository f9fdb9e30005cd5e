package governance

import (
	"sync"

	"github.com/calehh/hac-dao/ledger"
)

// Event announces a confirmed mutation. Receivers should re-read the
// ledger; the event itself carries no new state.
type Event struct {
	Op         string          `json:"op"`
	ProposalID uint64          `json:"proposalId"`
	Receipt    *ledger.Receipt `json:"receipt"`
}

type notifier struct {
	mtx  sync.Mutex
	subs map[chan Event]struct{}
}

func (n *notifier) subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	n.mtx.Lock()
	if n.subs == nil {
		n.subs = make(map[chan Event]struct{})
	}
	n.subs[ch] = struct{}{}
	n.mtx.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mtx.Lock()
			delete(n.subs, ch)
			n.mtx.Unlock()
			close(ch)
		})
	}
}

// publish never blocks. A subscriber with a full buffer already has a
// pending reread, so dropping is harmless.
func (n *notifier) publish(ev Event) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	for ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
