package notifier

import (
	"log"
	"sync"

	"github.com/thanhnp/record-ledger/internal/models"
)

// DefaultBuffer is the per-subscriber channel capacity
const DefaultBuffer = 64

// BlockNotifier defines the interface for appended-block notifications
type BlockNotifier interface {
	// Publish delivers a newly appended block to the ledger's subscribers
	Publish(ledger string, block models.Block)

	// Subscribe registers for blocks appended to ledger. The returned
	// function cancels the subscription and closes the channel.
	Subscribe(ledger string) (<-chan models.Block, func())
}

// Notifier fans appended blocks out to subscribers. A subscriber that is not
// keeping up misses blocks rather than stalling the appender.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[string]map[chan models.Block]struct{}
	buffer int
	closed bool
}

// New creates a Notifier with the given per-subscriber buffer
func New(buffer int) *Notifier {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Notifier{
		subs:   make(map[string]map[chan models.Block]struct{}),
		buffer: buffer,
	}
}

// Publish delivers block to every subscriber of ledger without blocking
func (n *Notifier) Publish(ledger string, block models.Block) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.subs[ledger] {
		select {
		case ch <- block:
		default:
			log.Printf("[%s] Subscriber lagging, dropped block %d", ledger, block.Index)
		}
	}
}

// Subscribe registers a new subscriber for ledger
func (n *Notifier) Subscribe(ledger string) (<-chan models.Block, func()) {
	ch := make(chan models.Block, n.buffer)

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		close(ch)
		return ch, func() {}
	}
	if n.subs[ledger] == nil {
		n.subs[ledger] = make(map[chan models.Block]struct{})
	}
	n.subs[ledger][ch] = struct{}{}

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		// Close may already have ended the subscription
		if _, ok := n.subs[ledger][ch]; !ok {
			return
		}
		delete(n.subs[ledger], ch)
		if len(n.subs[ledger]) == 0 {
			delete(n.subs, ledger)
		}
		close(ch)
	}
	return ch, cancel
}

// Subscribers returns the number of active subscribers for ledger
func (n *Notifier) Subscribers(ledger string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs[ledger])
}

// Close ends every subscription and makes later subscriptions end immediately
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true
	for _, subs := range n.subs {
		for ch := range subs {
			close(ch)
		}
	}
	n.subs = make(map[string]map[chan models.Block]struct{})
}
