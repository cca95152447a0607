package reconcile

import (
	"log"
	"sync"

	"github.com/five82/prospector/internal/cache"
	"github.com/five82/prospector/internal/metrics"
	"github.com/five82/prospector/internal/regolith"
)

// Outcome is what applying one delta did to the cache.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeStale
	OutcomeUpdated
	OutcomeAdded
	OutcomeRemoved
	OutcomeDeferred
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStale:
		return "stale"
	case OutcomeUpdated:
		return "updated"
	case OutcomeAdded:
		return "added"
	case OutcomeRemoved:
		return "removed"
	case OutcomeDeferred:
		return "deferred"
	default:
		return "ignored"
	}
}

// BatchResult summarizes one ApplyBatch call.
type BatchResult struct {
	Added    int
	Updated  int
	Removed  int
	Stale    int
	Ignored  int
	Deferred int
	// Dropped counts parked crew shares given up on during this batch.
	Dropped int
	// Pending is the number of crew shares still parked afterwards.
	Pending   int
	Watermark int64
}

// Applied returns how many deltas changed the cache.
func (b BatchResult) Applied() int {
	return b.Added + b.Updated + b.Removed
}

func (b *BatchResult) count(o Outcome) {
	switch o {
	case OutcomeAdded:
		b.Added++
	case OutcomeUpdated:
		b.Updated++
	case OutcomeRemoved:
		b.Removed++
	case OutcomeStale:
		b.Stale++
	case OutcomeDeferred:
		b.Deferred++
	default:
		b.Ignored++
	}
}

// Reconciler merges delta records into the normalized cache.
type Reconciler struct {
	cache     cache.Port
	sessionID string
	logger    *log.Logger
	metrics   *metrics.Recorder

	mu      sync.Mutex
	pending pendingQueue
	mark    Watermark
	maxTry  int
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger. A nil logger selects log.Default().
func WithLogger(l *log.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithPendingLimits bounds the crew share queue: at most limit entries, each
// retried attempts times before it is dropped.
func WithPendingLimits(limit, attempts int) Option {
	return func(r *Reconciler) {
		if limit > 0 {
			r.pending.limit = limit
		}
		if attempts > 0 {
			r.maxTry = attempts
		}
	}
}

// New returns a reconciler writing into c. sessionID fills deltas that omit
// their sessionId.
func New(c cache.Port, sessionID string, opts ...Option) *Reconciler {
	r := &Reconciler{
		cache:     c,
		sessionID: sessionID,
		pending:   pendingQueue{limit: defaultPendingLimit},
		maxTry:    defaultPendingAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	return r
}

// Watermark returns the delta cursor.
func (r *Reconciler) Watermark() *Watermark {
	return &r.mark
}

// RecordFullFetch notes a completed full fetch at ms and retries parked
// crew shares against the fresh tree.
func (r *Reconciler) RecordFullFetch(ms int64) {
	r.mark.RecordFullFetch(ms)
	r.mu.Lock()
	defer r.mu.Unlock()
	var res BatchResult
	r.retryLocked(&res)
}

// Pending returns the number of parked crew shares.
func (r *Reconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending.len()
}

// Apply merges a single delta.
func (r *Reconciler) Apply(d regolith.Delta) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apply(d)
}

// ApplyBatch applies batch in order, retries parked crew shares, and then
// advances the watermark.
func (r *Reconciler) ApplyBatch(batch []regolith.Delta) BatchResult {
	r.mu.Lock()
	var res BatchResult
	for _, d := range batch {
		res.count(r.apply(d))
	}
	r.retryLocked(&res)
	res.Pending = r.pending.len()
	r.mu.Unlock()

	res.Watermark = r.mark.Observe(batch)
	r.metrics.SetWatermark(res.Watermark)
	r.metrics.SetPending(res.Pending)
	return res
}

func (r *Reconciler) apply(d regolith.Delta) Outcome {
	data := d.Data.Clone()
	if data == nil {
		r.logger.Printf("reconcile: %s delta without data", d.EventName)
		r.metrics.Delta("", OutcomeIgnored.String())
		return OutcomeIgnored
	}
	if data.String("sessionId") == "" {
		sid := d.SessionID
		if sid == "" {
			sid = r.sessionID
		}
		data["sessionId"] = sid
	}

	typename := r.cache.Typename(data)
	k, ok := kinds[typename]
	if !ok {
		r.logger.Printf("reconcile: ignoring %s delta for unknown type %q", d.EventName, typename)
		r.metrics.Delta(typename, OutcomeIgnored.String())
		return OutcomeIgnored
	}
	data[cache.TypenameField] = typename

	var outcome Outcome
	if k.parent == parentWorkOrder {
		outcome = r.applyCrewShare(pendingShare{event: d.EventName, data: data}, k, true)
	} else {
		outcome = r.applyEntity(d.EventName, data, k)
	}
	r.metrics.Delta(typename, outcome.String())
	return outcome
}

func (r *Reconciler) applyEntity(event regolith.EventName, data cache.Fragment, k kind) Outcome {
	id, err := r.cache.Identify(data)
	if err != nil {
		r.logger.Printf("reconcile: %s %s: %v", event, data.Typename(), err)
		return OutcomeIgnored
	}

	outcome := OutcomeIgnored
	r.cache.Batch(func(tx cache.Tx) {
		existing, found := tx.Read(id)
		if event.IsRemove() {
			tx.Evict(id)
			if k.parent == parentMembers {
				detachMember(tx, data)
			}
			outcome = OutcomeRemoved
			return
		}
		if found && cache.Newer(existing, data) {
			outcome = OutcomeStale
			return
		}
		tx.Write(id, merge(existing, data, k.stateField))
		if k.parent == parentNone {
			tx.Retain(id)
		}
		if found {
			outcome = OutcomeUpdated
			return
		}
		outcome = OutcomeAdded
		if !r.attach(tx, k.parent, id, data) {
			r.logger.Printf("reconcile: session %s not cached; %s unreachable until next full fetch", data.String("sessionId"), id)
		}
	})
	if outcome == OutcomeRemoved {
		r.cache.GC()
	}
	return outcome
}

// applyCrewShare patches a share into its work order. When the order is not
// cached the share is parked and the cache is left untouched.
func (r *Reconciler) applyCrewShare(p pendingShare, k kind, park bool) Outcome {
	outcome := OutcomeDeferred
	r.cache.Batch(func(tx cache.Tx) {
		orderID, ok := findWorkOrder(tx, p.data.String("sessionId"), p.data.String("orderId"))
		if !ok {
			return
		}
		tx.Modify(orderID, func(order cache.Fragment) bool {
			var changed bool
			outcome, changed = patchCrewShare(order, p.event, p.data, k.stateField)
			return changed
		})
	})
	if outcome != OutcomeDeferred || !park {
		return outcome
	}
	if evicted := r.pending.park(p); evicted != nil {
		r.drop(*evicted, "queue full")
	}
	return OutcomeDeferred
}

// retryLocked replays parked crew shares. Shares whose work order is still
// missing are re-parked until they run out of attempts.
func (r *Reconciler) retryLocked(res *BatchResult) {
	items := r.pending.drain()
	k := kinds[regolith.TypeCrewShare]
	for _, p := range items {
		outcome := r.applyCrewShare(p, k, false)
		if outcome != OutcomeDeferred {
			r.metrics.Delta(regolith.TypeCrewShare, outcome.String())
			continue
		}
		p.attempts++
		if p.attempts >= r.maxTry {
			r.drop(p, "work order never arrived")
			res.Dropped++
			continue
		}
		if evicted := r.pending.park(p); evicted != nil {
			r.drop(*evicted, "queue full")
			res.Dropped++
		}
	}
	r.metrics.SetPending(r.pending.len())
}

func (r *Reconciler) drop(p pendingShare, reason string) {
	r.logger.Printf("reconcile: dropping crew share %s/%s (%s) after %d attempts: %s",
		p.data.String("orderId"), p.data.String("payeeScName"), p.event, p.attempts, reason)
	r.metrics.DroppedCrewShare()
}
