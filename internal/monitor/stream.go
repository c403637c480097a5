package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"agentconsole/internal/clock"
	"agentconsole/internal/logging"
	"agentconsole/internal/types"
)

// OpenFunc opens a server-sent event stream body.
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

// StreamError is a failure reported inside a still-open stream (an event
// whose payload is {"error": ...}). It does not trigger a reconnect.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string { return "task stream: " + e.Message }

// streamPayload is one event's data: either a tasks update or an error.
type streamPayload struct {
	Tasks types.Feed[types.TaskItem] `json:"tasks"`
	Error string                     `json:"error"`
}

// TaskStream subscribes to the task event stream. When the stream closes
// it schedules exactly one reconnect attempt after the backoff; errors
// reported inside an open stream never reconnect.
type TaskStream struct {
	open    OpenFunc
	backoff time.Duration
	sink    Sink
	clock   clock.Clock

	// onOpen fires after each successful (re)connect.
	onOpen func()

	connects atomic.Uint64
}

// StreamOption customises a TaskStream.
type StreamOption func(*TaskStream)

// WithStreamClock injects a clock.
func WithStreamClock(c clock.Clock) StreamOption {
	return func(s *TaskStream) { s.clock = c }
}

// WithOnOpen registers a callback fired after each successful connect.
func WithOnOpen(fn func()) StreamOption {
	return func(s *TaskStream) { s.onOpen = fn }
}

// NewTaskStream creates a stream subscriber; call Run to start it.
func NewTaskStream(open OpenFunc, backoff time.Duration, sink Sink, opts ...StreamOption) *TaskStream {
	s := &TaskStream{
		open:    open,
		backoff: backoff,
		sink:    sink,
		clock:   clock.Real(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connects returns how many times the stream was successfully opened.
func (s *TaskStream) Connects() uint64 { return s.connects.Load() }

// Run keeps the subscription alive until ctx is done.
func (s *TaskStream) Run(ctx context.Context) error {
	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}

		// The stream is closed at this point, so one reconnect is armed.
		logging.StreamWarn("stream closed (%v), reconnecting in %s", err, s.backoff)
		if err != nil {
			s.sink.error(err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(s.backoff):
		}
	}
}

// session runs one connection until it closes.
func (s *TaskStream) session(ctx context.Context) error {
	body, err := s.open(ctx)
	if err != nil {
		return err
	}

	// Unblock the reader when ctx ends.
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer func() {
		stop()
		body.Close()
	}()

	s.connects.Add(1)
	logging.Stream("task stream connected")
	if s.onOpen != nil && ctx.Err() == nil {
		s.onOpen()
	}

	dec := NewDecoder(body)
	for {
		ev, err := dec.Next()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("task stream read failed: %w", err)
		}

		var payload streamPayload
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			logging.StreamWarn("malformed stream event: %v", err)
			s.sink.error(fmt.Errorf("malformed task stream event: %w", err))
			continue
		}
		if payload.Error != "" {
			s.sink.error(&StreamError{Message: payload.Error})
			continue
		}
		if !payload.Tasks.Present {
			continue
		}
		logging.StreamDebug("stream delivered %d tasks", len(payload.Tasks.Items))
		s.sink.snapshot(types.Snapshot{Tasks: payload.Tasks, Source: types.SourceStream})
	}
}
