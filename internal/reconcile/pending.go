package reconcile

import (
	"github.com/five82/prospector/internal/cache"
	"github.com/five82/prospector/internal/regolith"
)

const (
	defaultPendingLimit    = 64
	defaultPendingAttempts = 5
)

// pendingShare is a crew share whose work order was not in the cache yet.
type pendingShare struct {
	event    regolith.EventName
	data     cache.Fragment
	attempts int
}

func (p pendingShare) key() string {
	return p.data.String("orderId") + "\x00" + p.data.String("payeeScName")
}

// pendingQueue holds parked crew shares in arrival order.
type pendingQueue struct {
	limit int
	items []pendingShare
}

// park adds p, replacing an older entry for the same share. When the queue
// is full the oldest entry is returned as evicted.
func (q *pendingQueue) park(p pendingShare) (evicted *pendingShare) {
	for i, existing := range q.items {
		if existing.key() != p.key() {
			continue
		}
		if cache.Newer(existing.data, p.data) {
			return nil
		}
		q.items[i] = p
		return nil
	}
	if q.limit > 0 && len(q.items) >= q.limit {
		oldest := q.items[0]
		q.items = q.items[1:]
		evicted = &oldest
	}
	q.items = append(q.items, p)
	return evicted
}

// drain empties the queue and returns its entries.
func (q *pendingQueue) drain() []pendingShare {
	items := q.items
	q.items = nil
	return items
}

func (q *pendingQueue) len() int {
	return len(q.items)
}
