// Package session owns connection identity and the console status machine,
// and coordinates the sync layer around it.
//
// Architecture:
//
//	sockets / poller / stream / replies → Post → queue → Handle → dispatch
//	dispatch → reconcile.Store → View (+ render.Renderer for messages)
//
// Every state change happens inside dispatch, one event at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"agentconsole/internal/api"
	"agentconsole/internal/clock"
	"agentconsole/internal/logging"
	"agentconsole/internal/monitor"
	"agentconsole/internal/reconcile"
	"agentconsole/internal/render"
	"agentconsole/internal/transport"
	"agentconsole/internal/types"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNoClientID is returned for socket input before any connect.
var ErrNoClientID = errors.New("session: no client id")

// ChatTransport selects how outgoing chat messages travel.
type ChatTransport string

const (
	ChatOverHTTP   ChatTransport = "http"
	ChatOverSocket ChatTransport = "socket"
)

// Options configures a Controller.
type Options struct {
	// WSBase is the websocket root, e.g. "ws://localhost:4000".
	WSBase        string
	ChatTransport ChatTransport

	MemoryInterval time.Duration
	StreamBackoff  time.Duration
	StreamEnabled  bool

	Pacer     render.Pacer
	Formatter render.Formatter
	Clock     clock.Clock

	// Sockets builds transport channels. Defaults to DefaultSockets.
	Sockets SocketFactory
	// Runner executes outbound requests. Defaults to a tracked goroutine.
	Runner func(func())
	// Settings persists the settings object. Optional.
	Settings SettingsStore
}

// DefaultOptions mirrors the stock config.
func DefaultOptions() Options {
	return Options{
		WSBase:         "ws://localhost:4000",
		ChatTransport:  ChatOverHTTP,
		MemoryInterval: 2 * time.Second,
		StreamBackoff:  5 * time.Second,
		StreamEnabled:  true,
		Pacer:          render.DefaultPacer(),
		Formatter:      render.Plain,
		Clock:          clock.Real(),
	}
}

// Controller is the status/session controller.
type Controller struct {
	backend Backend
	view    View
	opts    Options

	store    *reconcile.Store
	renderer *render.Renderer

	// queue feeds dispatch; draining marks an active drainer.
	qmu      sync.Mutex
	queue    []Event
	draining bool
	running  bool
	wake     chan struct{}

	// gen identifies the current connection.
	gen atomic.Uint64

	// stateMu guards the fields read by accessors. Only dispatch writes.
	stateMu sync.RWMutex
	status  types.Status
	session types.Session
	history []types.ChatMessage
	model   string

	// sockets is written by dispatch; sockMu lets SendShell read it.
	sockMu  sync.Mutex
	sockets map[transport.Kind]Socket

	// dispatch-only state
	pending     int
	awaitSocket bool
	reqCtx      context.Context
	reqCancel   context.CancelFunc
	runCancel   context.CancelFunc
	requests    sync.WaitGroup
}

// New creates a disconnected controller.
func New(backend Backend, view View, opts Options) *Controller {
	def := DefaultOptions()
	if opts.ChatTransport == "" {
		opts.ChatTransport = def.ChatTransport
	}
	if opts.MemoryInterval <= 0 {
		opts.MemoryInterval = def.MemoryInterval
	}
	if opts.StreamBackoff <= 0 {
		opts.StreamBackoff = def.StreamBackoff
	}
	if opts.Pacer.Base == 0 && opts.Pacer.Punctuation == "" {
		opts.Pacer = def.Pacer
	}
	if opts.Formatter == nil {
		opts.Formatter = def.Formatter
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	if opts.Sockets == nil {
		opts.Sockets = DefaultSockets
	}

	c := &Controller{
		backend: backend,
		view:    view,
		opts:    opts,
		store:   reconcile.NewStore(),
		wake:    make(chan struct{}, 1),
		status:  types.Status{State: types.StateDisconnected, Detail: types.DetailNone},
		sockets: make(map[transport.Kind]Socket),
	}
	if c.opts.Runner == nil {
		c.opts.Runner = func(fn func()) {
			c.requests.Add(1)
			go func() {
				defer c.requests.Done()
				fn()
			}()
		}
	}
	c.reqCtx, c.reqCancel = context.WithCancel(context.Background())
	c.renderer = render.NewRenderer(revealSink{view},
		render.WithPacer(opts.Pacer),
		render.WithFormatter(opts.Formatter),
		render.WithClock(opts.Clock))
	return c
}

// revealSink forwards renderer output to the view.
type revealSink struct{ v View }

func (s revealSink) Frame(id, text string)    { s.v.RevealFrame(id, text) }
func (s revealSink) Complete(id, rich string) { s.v.RevealComplete(id, rich) }

// =============================================================================
// EVENT ENTRY POINTS
// =============================================================================

// Handle applies ev. Calls are serialised: if another goroutine is already
// dispatching, ev is queued and handled by that goroutine before it returns.
func (c *Controller) Handle(ev Event) {
	c.qmu.Lock()
	c.queue = append(c.queue, ev)
	c.qmu.Unlock()
	c.drain()
}

// Post is safe from any goroutine and never blocks. While Run is active the
// event is handled on Run's goroutine; otherwise Post behaves like Handle.
func (c *Controller) Post(ev Event) {
	c.qmu.Lock()
	c.queue = append(c.queue, ev)
	running := c.running
	c.qmu.Unlock()

	if running {
		select {
		case c.wake <- struct{}{}:
		default:
		}
		return
	}
	c.drain()
}

func (c *Controller) drain() {
	c.qmu.Lock()
	if c.draining {
		c.qmu.Unlock()
		return
	}
	c.draining = true
	for len(c.queue) > 0 {
		ev := c.queue[0]
		c.queue = c.queue[1:]
		c.qmu.Unlock()
		c.dispatch(ev)
		c.qmu.Lock()
	}
	c.draining = false
	c.qmu.Unlock()
}

// Run connects, starts the monitors and handles posted events until ctx is
// done or Disconnect is called. It disconnects before returning.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.qmu.Lock()
	c.running = true
	c.runCancel = cancel
	c.qmu.Unlock()
	defer func() {
		c.qmu.Lock()
		c.running = false
		c.runCancel = nil
		c.qmu.Unlock()
	}()

	c.Connect(ctx)
	gen := c.gen.Load()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-c.wake:
				c.drain()
			}
		}
	})

	poller := monitor.NewPoller("memory", c.opts.MemoryInterval, c.backend.Memory, c.snapshotSink(gen),
		monitor.WithClock(c.opts.Clock))
	g.Go(func() error { return poller.Run(gctx) })

	if c.opts.StreamEnabled {
		stream := monitor.NewTaskStream(c.backend.OpenTaskStream, c.opts.StreamBackoff, c.snapshotSink(gen),
			monitor.WithStreamClock(c.opts.Clock),
			monitor.WithOnOpen(func() { c.RefreshTasks() }))
		g.Go(func() error { return stream.Run(gctx) })
	} else {
		c.RefreshTasks()
	}

	err := g.Wait()
	c.Disconnect()
	c.drain()
	return err
}

// snapshotSink tags monitor output with the connection generation. Poll
// failures are logged only; they repeat every tick.
func (c *Controller) snapshotSink(gen uint64) monitor.Sink {
	return monitor.Sink{
		OnSnapshot: func(s types.Snapshot) { c.Post(SnapshotEvent{Gen: gen, Snapshot: s}) },
		OnError: func(err error) {
			logging.SessionDebug("monitor error: %v", err)
		},
	}
}

// Wait blocks until in-flight outbound requests and reveals have finished.
func (c *Controller) Wait() {
	c.requests.Wait()
	c.renderer.Wait()
}

// Close disconnects and releases the renderer.
func (c *Controller) Close() {
	c.Disconnect()
	c.requests.Wait()
	c.renderer.Close()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Status returns the current status.
func (c *Controller) Status() types.Status {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.status
}

// Session returns the current session identity.
func (c *Controller) Session() types.Session {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.session
}

// History returns a copy of the chat history in arrival order.
func (c *Controller) History() []types.ChatMessage {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return append([]types.ChatMessage(nil), c.history...)
}

// Model returns the model name last reported or configured.
func (c *Controller) Model() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.model
}

// Store exposes the reconciliation store for read-only inspection.
func (c *Controller) Store() *reconcile.Store {
	return c.store
}

// =============================================================================
// STATE HELPERS (dispatch only)
// =============================================================================

func (c *Controller) setStatus(state types.State, detail string) {
	if detail == "" {
		detail = types.DetailNone
	}
	st := types.Status{State: state, Detail: detail}

	c.stateMu.Lock()
	prev := c.status
	c.status = st
	c.stateMu.Unlock()

	if prev != st {
		logging.SessionDebug("status %s (%s) -> %s (%s)", prev.State, prev.Detail, st.State, st.Detail)
	}
	c.view.SetStatus(st)
}

func (c *Controller) state() types.State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.status.State
}

// say appends a chat message and starts its reveal.
func (c *Controller) say(sender types.Sender, text string) types.ChatMessage {
	msg := types.NewChatMessage(sender, text)

	c.stateMu.Lock()
	c.history = append(c.history, msg)
	c.stateMu.Unlock()

	c.view.AppendMessage(msg)
	if err := c.renderer.Reveal(msg.ID, text); err != nil {
		c.view.RevealComplete(msg.ID, text)
	}
	return msg
}

func (c *Controller) system(format string, args ...any) {
	c.say(types.SenderSystem, fmt.Sprintf(format, args...))
}

func (c *Controller) clearHistory() {
	c.renderer.CancelAll()
	c.stateMu.Lock()
	c.history = nil
	c.stateMu.Unlock()
	c.view.ClearHistory()
}

func (c *Controller) setModel(name string) {
	c.stateMu.Lock()
	c.model = name
	c.stateMu.Unlock()
	c.view.SetModel(name)
}

// begin marks an outbound request in flight.
func (c *Controller) begin(detail string) {
	c.pending++
	c.setStatus(types.StateProcessing, detail)
}

// succeed completes a request. Status returns to Ready only once nothing is
// in flight, and never overrides a state other than Processing.
func (c *Controller) succeed() {
	if c.pending > 0 {
		c.pending--
	}
	if c.pending == 0 && c.state() == types.StateProcessing {
		c.setStatus(types.StateReady, types.DetailNone)
	}
}

// failRequest completes a request with an error.
func (c *Controller) failRequest(detail string) {
	if c.pending > 0 {
		c.pending--
	}
	c.setStatus(types.StateError, detail)
}

// run launches fn as an outbound request bound to the current connection.
func (c *Controller) run(fn func(ctx context.Context, gen uint64) Event) {
	ctx, gen := c.reqCtx, c.gen.Load()
	c.opts.Runner(func() {
		ev := fn(ctx, gen)
		if ev != nil {
			c.Post(ev)
		}
	})
}

// serverError extracts the backend message or falls back to err's text.
func serverError(err error) string {
	return api.ServerMessage(err, err.Error())
}

// newSessionID mints a local session id until the backend assigns one.
func newSessionID() string {
	return uuid.NewString()
}
