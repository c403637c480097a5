package render

import (
	"errors"
	"sync"

	"agentconsole/internal/clock"
	"agentconsole/internal/logging"
)

// ErrClosed is returned by Reveal after Close.
var ErrClosed = errors.New("render: renderer closed")

// Sink receives reveal output. Frame carries the whole prefix revealed so
// far for one message; Complete carries the rich form and is the last call
// for that id.
type Sink interface {
	Frame(id, text string)
	Complete(id, rich string)
}

// reveal is one in-flight message. Its own timer and buffer are never
// shared with another reveal.
type reveal struct {
	id   string
	stop chan struct{}

	mu        sync.Mutex
	cancelled bool
}

// emit runs fn unless the reveal was cancelled.
func (rv *reveal) emit(fn func()) bool {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	if rv.cancelled {
		return false
	}
	fn()
	return true
}

func (rv *reveal) cancel() {
	rv.mu.Lock()
	if !rv.cancelled {
		rv.cancelled = true
		close(rv.stop)
	}
	rv.mu.Unlock()
}

// Renderer runs independent, cancellable reveals keyed by message id.
type Renderer struct {
	pacer  Pacer
	clock  clock.Clock
	format Formatter
	sink   Sink

	mu     sync.Mutex
	active map[string]*reveal
	closed bool
	wg     sync.WaitGroup
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithPacer sets the pacing constants.
func WithPacer(p Pacer) Option { return func(r *Renderer) { r.pacer = p } }

// WithClock injects a clock.
func WithClock(c clock.Clock) Option { return func(r *Renderer) { r.clock = c } }

// WithFormatter sets the rich-form formatter.
func WithFormatter(f Formatter) Option { return func(r *Renderer) { r.format = f } }

// NewRenderer creates a renderer writing to sink.
func NewRenderer(sink Sink, opts ...Option) *Renderer {
	r := &Renderer{
		pacer:  DefaultPacer(),
		clock:  clock.Real(),
		format: Plain,
		sink:   sink,
		active: make(map[string]*reveal),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reveal starts revealing markdown under id. A reveal already running
// under the same id is cancelled first.
func (r *Renderer) Reveal(id, markdown string) error {
	flat, err := Flatten(markdown)
	if err != nil {
		logging.RenderDebug("flatten %s failed, revealing raw text: %v", id, err)
		flat = markdown
	}
	rich, err := r.format.Format(markdown)
	if err != nil {
		logging.RenderDebug("format %s failed, keeping markdown: %v", id, err)
		rich = markdown
	}

	rv := &reveal{id: id, stop: make(chan struct{})}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if prev, ok := r.active[id]; ok {
		prev.cancel()
	}
	r.active[id] = rv
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(rv, r.pacer.Schedule(flat), rich)
	return nil
}

func (r *Renderer) run(rv *reveal, steps []Step, rich string) {
	defer r.wg.Done()
	defer r.forget(rv)

	for _, step := range steps {
		if !rv.emit(func() { r.sink.Frame(rv.id, step.Text) }) {
			return
		}
		select {
		case <-rv.stop:
			return
		case <-r.clock.After(step.Pause):
		}
	}

	rv.emit(func() { r.sink.Complete(rv.id, rich) })
}

func (r *Renderer) forget(rv *reveal) {
	r.mu.Lock()
	if r.active[rv.id] == rv {
		delete(r.active, rv.id)
	}
	r.mu.Unlock()
}

// Cancel stops the reveal for id. No sink call for it happens after
// Cancel returns. Reports whether a reveal was running.
func (r *Renderer) Cancel(id string) bool {
	r.mu.Lock()
	rv, ok := r.active[id]
	delete(r.active, id)
	r.mu.Unlock()

	if ok {
		rv.cancel()
	}
	return ok
}

// CancelAll stops every running reveal.
func (r *Renderer) CancelAll() {
	r.mu.Lock()
	running := r.active
	r.active = make(map[string]*reveal)
	r.mu.Unlock()

	for _, rv := range running {
		rv.cancel()
	}
	if len(running) > 0 {
		logging.RenderDebug("cancelled %d reveals", len(running))
	}
}

// Active returns the number of running reveals.
func (r *Renderer) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Wait blocks until every started reveal has finished or been cancelled.
func (r *Renderer) Wait() {
	r.wg.Wait()
}

// Close cancels all reveals, waits for them, and rejects new ones.
func (r *Renderer) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.CancelAll()
	r.Wait()
}
