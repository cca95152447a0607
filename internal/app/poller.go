package app

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/five82/prospector/internal/cache"
	"github.com/five82/prospector/internal/metrics"
	"github.com/five82/prospector/internal/reconcile"
	"github.com/five82/prospector/internal/regolith"
	"github.com/five82/prospector/internal/state"
)

const (
	defaultDeltaInterval = 5 * time.Second
	defaultFullInterval  = 2 * time.Minute
	persistTimeout       = 2 * time.Second

	// jitterFraction is the largest share of a backoff delay shaved off at random.
	jitterFraction = 0.2
)

// Cache is the normalized cache plus the snapshot hooks used for persistence.
type Cache interface {
	cache.Port
	Export() cache.Image
	Import(img cache.Image)
}

// Persister stores cache images between runs. *cache.RedisPersister
// implements it.
type Persister interface {
	Save(ctx context.Context, sessionID string, img cache.Image) error
	Load(ctx context.Context, sessionID string) (cache.Image, bool, error)
}

// PollerOptions configure a Poller.
type PollerOptions struct {
	SessionID     string
	UserID        string
	DeltaInterval time.Duration
	FullInterval  time.Duration
	// Visible is the initial visibility fed to the gate.
	Visible   bool
	Persister Persister
	Logger    *log.Logger
	Metrics   *metrics.Recorder
}

// Poller keeps the cache in sync with the session: a full fetch on start and
// on demand, then delta fetches while the gate is active.
type Poller struct {
	fetcher   regolith.SessionFetcher
	cache     Cache
	rec       *reconcile.Reconciler
	store     *state.Store
	gate      *Gate
	persister Persister
	logger    *log.Logger
	metrics   *metrics.Recorder

	sessionID  string
	userID     string
	deltaEvery time.Duration
	fullEvery  time.Duration

	refresh       chan struct{}
	bootstrapped  bool
	deltaFailures int
	fullFailures  int
	jitter        func() float64
	now           func() time.Time
}

// NewPoller wires a poller. It does not start any goroutine.
func NewPoller(fetcher regolith.SessionFetcher, c Cache, rec *reconcile.Reconciler, store *state.Store, opts PollerOptions) *Poller {
	deltaEvery := opts.DeltaInterval
	if deltaEvery <= 0 {
		deltaEvery = defaultDeltaInterval
	}
	fullEvery := opts.FullInterval
	if fullEvery <= 0 {
		fullEvery = defaultFullInterval
	}
	if fullEvery < deltaEvery {
		fullEvery = deltaEvery
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if store == nil {
		store = &state.Store{}
	}
	store.SetSession(opts.SessionID)

	p := &Poller{
		fetcher:    fetcher,
		cache:      c,
		rec:        rec,
		store:      store,
		gate:       NewGate(opts.Visible),
		persister:  opts.Persister,
		logger:     logger,
		metrics:    opts.Metrics,
		sessionID:  opts.SessionID,
		userID:     opts.UserID,
		deltaEvery: deltaEvery,
		fullEvery:  fullEvery,
		refresh:    make(chan struct{}, 1),
		jitter:     rand.Float64,
		now:        time.Now,
	}
	p.syncGate()
	return p
}

// Gate returns the visibility gate.
func (p *Poller) Gate() *Gate {
	return p.gate
}

// SetVisible feeds the visibility signal into the gate.
func (p *Poller) SetVisible(v bool) {
	p.gate.SetVisible(v)
	p.syncGate()
}

// Refresh requests a full fetch. Requests made while one is pending coalesce.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Bootstrap restores a persisted image when available and performs the
// initial full fetch. Fetch errors are recorded, not returned; the loop
// retries them.
func (p *Poller) Bootstrap(ctx context.Context) {
	p.bootstrapped = true
	p.restore(ctx)
	_ = p.fullFetch(ctx)
}

// StartPoller runs p in a background goroutine. It returns immediately; the
// returned channel closes once Run has returned and the final save is done.
func StartPoller(ctx context.Context, p *Poller) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()
	return done
}

// Run polls until ctx is cancelled. It bootstraps first unless Bootstrap was
// already called.
func (p *Poller) Run(ctx context.Context) error {
	if !p.bootstrapped {
		p.Bootstrap(ctx)
	}

	var delta, full loopTimer
	defer delta.stop()
	defer full.stop()
	p.schedule(&delta, &full)

	for {
		select {
		case <-ctx.Done():
			p.persistDetached()
			return ctx.Err()

		case <-p.gate.Changed():
			p.syncGate()

		case <-p.refresh:
			_ = p.fullFetch(ctx)
			full.stop()

		case <-delta.C():
			delta.fired()
			_ = p.deltaFetch(ctx)

		case <-full.C():
			full.fired()
			_ = p.fullFetch(ctx)
		}
		p.schedule(&delta, &full)
	}
}

// schedule arms the timers the gate allows and stops the rest. The full
// timer also runs while the session has never loaded so the initial fetch is
// retried.
func (p *Poller) schedule(delta, full *loopTimer) {
	active := p.gate.Active()
	_, loaded, _ := p.gate.State()

	if active {
		if !delta.running() {
			delta.start(p.deltaDelay())
		}
	} else {
		delta.stop()
	}

	if active || !loaded {
		if !full.running() {
			full.start(p.fullDelay())
		}
	} else {
		full.stop()
	}
}

func (p *Poller) deltaDelay() time.Duration {
	if p.deltaFailures == 0 {
		return p.deltaEvery
	}
	return withJitter(calculateBackoff(p.deltaFailures, p.deltaEvery, p.fullEvery), p.jitter())
}

// fullDelay retries a failed full fetch starting at the delta interval.
func (p *Poller) fullDelay() time.Duration {
	if p.fullFailures == 0 {
		return p.fullEvery
	}
	return withJitter(calculateBackoff(p.fullFailures-1, p.deltaEvery, p.fullEvery), p.jitter())
}

func (p *Poller) deltaFetch(ctx context.Context) error {
	batch, err := p.fetcher.FetchUpdates(ctx, p.sessionID, p.rec.Watermark().Value())
	p.metrics.Poll("delta", err)
	if err != nil {
		p.deltaFailures++
		p.store.RecordDelta(state.DeltaResult{}, err)
		p.logFailure("delta fetch", err, p.deltaFailures, p.deltaDelay())
		return err
	}
	p.deltaFailures = 0

	res := p.rec.ApplyBatch(batch)
	p.store.RecordDelta(state.DeltaResult{
		Applied:   res.Applied(),
		Dropped:   res.Dropped,
		Pending:   res.Pending,
		Watermark: res.Watermark,
	}, nil)
	if len(batch) > 0 {
		p.logger.Printf("delta fetch ok: %d records, %d applied, %d stale, %d ignored, %d deferred",
			len(batch), res.Applied(), res.Stale, res.Ignored, res.Deferred)
	}
	p.checkMembership()
	p.persist(ctx)
	return nil
}

func (p *Poller) fullFetch(ctx context.Context) error {
	tree, err := p.fetcher.FetchSession(ctx, p.sessionID)
	if err == nil {
		err = p.writeTree(tree)
	}
	p.metrics.Poll("full", err)
	if err != nil {
		p.fullFailures++
		p.store.RecordFull(err)
		p.logFailure("full fetch", err, p.fullFailures, p.fullDelay())
		return err
	}
	p.fullFailures = 0
	p.store.RecordFull(nil)
	p.persist(ctx)
	return nil
}

func (p *Poller) writeTree(tree cache.Fragment) error {
	id, err := p.cache.WriteTree(tree)
	if err != nil {
		return err
	}
	p.cache.Retain(id)
	evicted := p.cache.GC()
	p.rec.RecordFullFetch(p.now().UnixMilli())
	p.gate.SetLoaded(true)
	p.checkMembership()
	p.logger.Printf("full fetch ok: session %s, %d records evicted", p.sessionID, evicted)
	return nil
}

func (p *Poller) logFailure(what string, err error, failures int, next time.Duration) {
	if errors.Is(err, context.Canceled) {
		return
	}
	p.logger.Printf("%s failed: %v", what, err)
	if failures > 1 {
		p.logger.Printf("poller: backing off %s after %d failures", next.Round(time.Millisecond), failures)
	}
}

// checkMembership sets the joined flag from the cached activeMemberIds.
func (p *Poller) checkMembership() {
	joined := false
	p.cache.View(func(r cache.Reader) {
		session, ok := r.Read(regolith.SessionKey(p.sessionID))
		if !ok {
			return
		}
		for _, v := range session.List("activeMemberIds") {
			if id, _ := v.(string); id == p.userID {
				joined = true
				return
			}
		}
	})
	p.gate.SetJoined(joined)
	p.syncGate()
}

func (p *Poller) syncGate() {
	p.store.SetGate(p.gate.State())
}

func (p *Poller) restore(ctx context.Context) {
	if p.persister == nil {
		return
	}
	img, ok, err := p.persister.Load(ctx, p.sessionID)
	if err != nil {
		p.logger.Printf("restore cache failed: %v", err)
		return
	}
	if !ok {
		return
	}
	p.cache.Import(img)
	p.rec.Watermark().Restore(img.Watermark)
	p.gate.SetLoaded(true)
	p.checkMembership()
	p.logger.Printf("restored cache for session %s: %d records, watermark %d", p.sessionID, len(img.Records), img.Watermark)
}

func (p *Poller) persist(ctx context.Context) {
	if p.persister == nil {
		return
	}
	img := p.cache.Export()
	img.Watermark = p.rec.Watermark().Value()
	img.SavedAt = p.now().UnixMilli()

	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := p.persister.Save(ctx, p.sessionID, img); err != nil {
		p.logger.Printf("persist cache failed: %v", err)
	}
}

// persistDetached saves once more after the run context is gone.
func (p *Poller) persistDetached() {
	p.persist(context.Background())
}

// calculateBackoff returns base doubled per consecutive failure, capped at
// ceiling.
func calculateBackoff(failures int, base, ceiling time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= ceiling {
			return ceiling
		}
	}
	return backoff
}

// withJitter shortens d by up to jitterFraction, so the result never exceeds d.
func withJitter(d time.Duration, r float64) time.Duration {
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	return d - time.Duration(float64(d)*jitterFraction*r)
}

// loopTimer is a stoppable one-shot timer whose channel is nil while idle.
type loopTimer struct {
	t  *time.Timer
	on bool
}

func (l *loopTimer) start(d time.Duration) {
	l.stop()
	l.t = time.NewTimer(d)
	l.on = true
}

func (l *loopTimer) stop() {
	if l.t != nil {
		l.t.Stop()
	}
	l.on = false
}

func (l *loopTimer) fired() {
	l.on = false
}

func (l *loopTimer) running() bool {
	return l.on
}

func (l *loopTimer) C() <-chan time.Time {
	if !l.on {
		return nil
	}
	return l.t.C
}
