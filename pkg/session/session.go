// Package session owns the interrupt state machine for interactive
// preview/play sessions and aggregates session-scoped errors into an
// end-of-session report.
//
// The assertion guard requests interruption through a one-way API; the host
// decides when termination is actually safe and performs the
// InterruptRequested -> Interrupted transition itself.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoSession indicates no preview session is currently active.
	ErrNoSession = errors.New("session: no active session")
	// ErrSessionActive indicates Begin was called while a session is live.
	ErrSessionActive = errors.New("session: session already active")
	// ErrNoInterruptPending indicates SafeTerminate was called without a
	// preceding interrupt request.
	ErrNoInterruptPending = errors.New("session: no interrupt pending")
)

// State describes where the current session sits in the interruption
// protocol.
type State int32

const (
	// StateRunning is the initial state of every session.
	StateRunning State = iota
	// StateInterruptRequested means somebody asked for the session to stop.
	// A session never returns to StateRunning once here.
	StateInterruptRequested
	// StateInterrupted means the host terminated the session at a safe point.
	StateInterrupted
)

// String returns the canonical state label.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateInterruptRequested:
		return "interrupt-requested"
	case StateInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Controller tracks at most one live session and its interrupt state.
// All methods are safe for concurrent use.
type Controller struct {
	mu    sync.Mutex
	now   func() time.Time
	store ReportAppender

	active  bool
	id      string
	label   string
	started time.Time
	state   State
	entries []Entry

	interrupts chan struct{}
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithReportStore persists every report entry as it is recorded.
func WithReportStore(store ReportAppender) Option {
	return func(c *Controller) { c.store = store }
}

// NewController returns a Controller with no active session.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		now:        time.Now,
		interrupts: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin starts a new preview session and resets state to StateRunning.
// It returns the generated session id.
func (c *Controller) Begin(label string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return "", ErrSessionActive
	}
	c.active = true
	c.id = uuid.NewString()
	c.label = label
	c.started = c.now().UTC()
	c.state = StateRunning
	c.entries = nil
	// Drain a signal left over from a previous session.
	select {
	case <-c.interrupts:
	default:
	}
	return c.id, nil
}

// Active reports whether a preview session is currently live.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// ID returns the current session id, or empty when no session is active.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return ""
	}
	return c.id
}

// State returns the current interruption state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RequestInterrupt asks the host to stop the session at its next safe point.
// It is idempotent and one-way: the state never reverts to StateRunning
// within the same session. Without an active session it does nothing.
func (c *Controller) RequestInterrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || c.state != StateRunning {
		return
	}
	c.state = StateInterruptRequested
	select {
	case c.interrupts <- struct{}{}:
	default:
	}
}

// Interrupts exposes a signal channel that receives one value per session
// when an interrupt is first requested. Hosts select on it between units of
// work to find their safe termination point.
func (c *Controller) Interrupts() <-chan struct{} {
	return c.interrupts
}

// SafeTerminate performs the InterruptRequested -> Interrupted transition.
// Only the host calls this, at a point where halting corrupts nothing.
func (c *Controller) SafeTerminate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return ErrNoSession
	}
	if c.state != StateInterruptRequested {
		return ErrNoInterruptPending
	}
	c.state = StateInterrupted
	return nil
}

// ReportError records a session-scoped error entry for the end-of-session
// report. Entries recorded outside an active session are dropped.
func (c *Controller) ReportError(site, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return ErrNoSession
	}
	entry := Entry{
		Time:      c.now().UTC(),
		SessionID: c.id,
		Site:      site,
		Message:   message,
	}
	c.entries = append(c.entries, entry)
	if c.store != nil {
		return c.store.Append(entry)
	}
	return nil
}

// End closes the session and returns the aggregated report. The next Begin
// starts fresh at StateRunning.
func (c *Controller) End() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	report := Report{
		SessionID: c.id,
		Label:     c.label,
		Started:   c.started,
		Ended:     c.now().UTC(),
		State:     c.state,
		Entries:   append([]Entry(nil), c.entries...),
	}
	c.active = false
	c.id = ""
	c.label = ""
	c.entries = nil
	return report
}
