// Package view holds what the four controllers share: the blocking UI
// primitives they report through and per-action request sequencing.
package view

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by an action whose result was dropped because a
// newer request of the same action started.
var ErrSuperseded = errors.New("view: request superseded by a newer one")

// ErrCancelled is returned when the user declines a confirmation or prompt.
var ErrCancelled = errors.New("view: cancelled by user")

// Notifier shows a blocking message.
type Notifier interface {
	Notify(msg string)
}

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(msg string) bool
}

// Prompter asks for a line of input; ok is false when the user cancels.
type Prompter interface {
	Prompt(msg string) (answer string, ok bool)
}

// UI is everything a controller may ask of its front end.
type UI interface {
	Notifier
	Confirmer
	Prompter
}

// Phase is the lifecycle of one request.
type Phase int

const (
	Idle Phase = iota
	Loading
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Succeeded:
		return "success"
	case Failed:
		return "error"
	}
	return "idle"
}

// Action sequences the requests of one user action. Starting a request
// cancels the previous one still in flight, and only the latest request may
// publish its result.
type Action struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	phase  Phase
	err    error
}

// Ticket identifies one started request.
type Ticket struct {
	gen    uint64
	cancel context.CancelFunc
}

// Start begins a request and returns the context it must run under.
func (a *Action) Start(parent context.Context) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(parent)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
	a.gen++
	a.cancel = cancel
	a.phase = Loading
	a.err = nil
	return ctx, Ticket{gen: a.gen, cancel: cancel}
}

// Finish records the outcome of t. It reports false, leaving the phase
// untouched, when a newer request has started since.
func (a *Action) Finish(t Ticket, err error) bool {
	t.cancel()

	a.mu.Lock()
	defer a.mu.Unlock()
	if t.gen != a.gen {
		return false
	}
	a.cancel = nil
	a.err = err
	if err != nil {
		a.phase = Failed
	} else {
		a.phase = Succeeded
	}
	return true
}

// Phase returns the phase of the latest request.
func (a *Action) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Err returns the error of the latest finished request.
func (a *Action) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Busy reports whether a request is in flight.
func (a *Action) Busy() bool { return a.Phase() == Loading }

// Pending counts in-flight requests that are never superseded; each one
// reports its own outcome.
type Pending struct {
	mu sync.Mutex
	n  int
}

// Begin marks a request as started. The returned func marks it done.
func (p *Pending) Begin() (done func()) {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			p.n--
			p.mu.Unlock()
		})
	}
}

// Busy reports whether a request is in flight.
func (p *Pending) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n > 0
}
