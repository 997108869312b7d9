// Package worker runs heavy pixel work off the editor goroutine.
//
// Tasks are dispatched as messages with a command name and a payload,
// and resolve into a reply message through a Future. At most one task
// is in flight per session: dispatching a new task for a session
// cancels the previous one.
package worker

import (
	"context"
	"runtime"
	"sync"

	"github.com/esimov/retouch/utils"
	"github.com/pkg/errors"
)

// ErrUnknownCommand is returned for messages no handler is registered for.
var ErrUnknownCommand = errors.New("unknown worker command")

// Message is the envelope exchanged with the pool.
type Message struct {
	Command string
	Payload any
}

// Handler processes the payload of a message and returns the reply payload.
type Handler func(ctx context.Context, payload any) (any, error)

// Option configures a Pool.
type Option func(*Pool)

// WithConcurrency limits the number of handlers running at the same time.
func WithConcurrency(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.sem = make(chan struct{}, n)
		}
	}
}

// WithHandler registers a handler for a command.
func WithHandler(command string, h Handler) Option {
	return func(p *Pool) {
		p.handlers[command] = h
	}
}

// Pool dispatches messages to their handlers. It is safe for concurrent use.
type Pool struct {
	mu       sync.Mutex
	handlers map[string]Handler
	inflight map[string]*Future[Message]
	sem      chan struct{}
}

// NewPool creates a Pool with the blur handler registered.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		handlers: map[string]Handler{
			CommandBlur: Blur,
		},
		inflight: make(map[string]*Future[Message]),
		sem:      make(chan struct{}, runtime.NumCPU()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dispatch starts the task described by msg for the given session and
// cancels any task still running for that session.
func (p *Pool) Dispatch(ctx context.Context, session string, msg Message) *Future[Message] {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.inflight[session]; ok {
		prev.Cancel()
		delete(p.inflight, session)
	}

	h, ok := p.handlers[msg.Command]
	if !ok {
		return resolved(Message{}, errors.Wrapf(ErrUnknownCommand, "%q", msg.Command))
	}

	utils.Logger().Debug("worker dispatch", "command", msg.Command, "session", session)

	f := Go(ctx, func(ctx context.Context) (Message, error) {
		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}

		reply, err := h(ctx, msg.Payload)
		if err != nil {
			return Message{}, errors.Wrapf(err, "worker command %q", msg.Command)
		}
		return Message{Command: msg.Command, Payload: reply}, nil
	})
	p.inflight[session] = f

	go func() {
		<-f.Done()
		p.mu.Lock()
		if p.inflight[session] == f {
			delete(p.inflight, session)
		}
		p.mu.Unlock()
	}()

	return f
}

// Cancel stops the task running for the session, if any.
func (p *Pool) Cancel(session string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if f, ok := p.inflight[session]; ok {
		f.Cancel()
		delete(p.inflight, session)
	}
}

// Close cancels every running task.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for session, f := range p.inflight {
		f.Cancel()
		delete(p.inflight, session)
	}
}
