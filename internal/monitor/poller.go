// Package monitor pulls or receives structured snapshots of server-side
// agent state and hands them to a single downstream callback.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"agentconsole/internal/clock"
	"agentconsole/internal/logging"
	"agentconsole/internal/types"
)

// FetchFunc retrieves one snapshot.
type FetchFunc func(ctx context.Context) (types.Snapshot, error)

// Sink receives snapshots and failures. Both run on monitor goroutines and
// are never called after the monitor's Run has returned.
type Sink struct {
	OnSnapshot func(types.Snapshot)
	OnError    func(error)
}

func (s Sink) snapshot(snap types.Snapshot) {
	if s.OnSnapshot != nil {
		s.OnSnapshot(snap)
	}
}

func (s Sink) error(err error) {
	if s.OnError != nil {
		s.OnError(err)
	}
}

// Poller issues a fetch on every tick, whether or not earlier fetches have
// returned. Each tick carries a sequence number; a result arriving after a
// newer tick already delivered is dropped as stale, never queued.
type Poller struct {
	name     string
	interval time.Duration
	fetch    FetchFunc
	sink     Sink
	clock    clock.Clock
	source   types.SnapshotSource

	ticks atomic.Uint64
	stale atomic.Uint64

	// deliverMu guards delivered and stopped. stopped keeps late fetch
	// results out once Run exits.
	deliverMu sync.Mutex
	delivered uint64
	stopped   bool
}

// PollerOption customises a Poller.
type PollerOption func(*Poller)

// WithClock injects a clock.
func WithClock(c clock.Clock) PollerOption {
	return func(p *Poller) { p.clock = c }
}

// NewPoller creates a poller; call Run to start it.
func NewPoller(name string, interval time.Duration, fetch FetchFunc, sink Sink, opts ...PollerOption) *Poller {
	p := &Poller{
		name:     name,
		interval: interval,
		fetch:    fetch,
		sink:     sink,
		clock:    clock.Real(),
		source:   types.SourcePoll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run fetches once immediately and then on every tick until ctx is done.
// It waits for any in-flight fetch before returning.
func (p *Poller) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer func() {
		p.deliverMu.Lock()
		p.stopped = true
		p.deliverMu.Unlock()
		wg.Wait()
		logging.Poll("%s: stopped after %d ticks (%d stale)", p.name, p.ticks.Load(), p.stale.Load())
	}()

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	logging.Poll("%s: polling every %s", p.name, p.interval)
	p.tick(ctx, &wg)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.tick(ctx, &wg)
		}
	}
}

func (p *Poller) tick(ctx context.Context, wg *sync.WaitGroup) {
	seq := p.ticks.Add(1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		snap, err := p.fetch(ctx)

		p.deliverMu.Lock()
		defer p.deliverMu.Unlock()
		if p.stopped || ctx.Err() != nil {
			return
		}
		if seq <= p.delivered {
			p.stale.Add(1)
			logging.PollDebug("%s: dropping tick %d, tick %d already delivered", p.name, seq, p.delivered)
			return
		}
		if err != nil {
			logging.PollWarn("%s: fetch failed: %v", p.name, err)
			p.sink.error(err)
			return
		}
		p.delivered = seq
		snap.Source = p.source
		p.sink.snapshot(snap)
	}()
}

// Ticks returns how many ticks fired.
func (p *Poller) Ticks() uint64 { return p.ticks.Load() }

// Stale returns how many results were dropped because a newer tick had
// already delivered.
func (p *Poller) Stale() uint64 { return p.stale.Load() }

// Refresh performs one on-demand fetch and delivers the result with
// SourceRefresh. It is independent of any running Poller.
func Refresh(ctx context.Context, fetch FetchFunc, sink Sink) {
	snap, err := fetch(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logging.PollWarn("refresh failed: %v", err)
		sink.error(err)
		return
	}
	snap.Source = types.SourceRefresh
	sink.snapshot(snap)
}
