package confirm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrQueueClosed indicates the queue no longer accepts or serves prompts.
var ErrQueueClosed = errors.New("confirm: queue closed")

// Queue serializes concurrent confirmation prompts for an interactive host.
// Each failing goroutine blocks inside Confirm on its own prompt; the host's
// dialog pump consumes prompts one at a time via Next and resolves them via
// Resolve.
type Queue struct {
	mu    sync.Mutex
	now   func() time.Time
	store RecordAppender
	mute  *MuteList

	pending  map[string]*pendingPrompt
	order    []string
	arrivals chan struct{}
	closed   bool
}

type pendingPrompt struct {
	prompt Prompt
	done   chan Choice
}

// QueueOption customizes a Queue.
type QueueOption func(*Queue)

// WithQueueClock overrides the wall clock, for deterministic tests.
func WithQueueClock(now func() time.Time) QueueOption {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// WithRecordStore persists a Record per resolved prompt.
func WithRecordStore(store RecordAppender) QueueOption {
	return func(q *Queue) { q.store = store }
}

// WithMuteList auto-continues prompts whose site the developer muted.
func WithMuteList(mute *MuteList) QueueOption {
	return func(q *Queue) { q.mute = mute }
}

// NewQueue constructs an empty prompt queue.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		now:      time.Now,
		pending:  map[string]*pendingPrompt{},
		arrivals: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Confirm blocks until the host resolves the prompt. Muted sites resolve to
// ChoiceContinue immediately; prompts raised after Close resolve to
// ChoiceContinue so a shutting-down host never wedges its callers.
func (q *Queue) Confirm(prompt Prompt) Choice {
	normalizePrompt(&prompt, q.now)

	q.mu.Lock()
	if q.mute != nil && q.mute.Muted(prompt.Site) {
		q.mu.Unlock()
		appendRecord(q.store, prompt, ChoiceContinue, true, q.now)
		return ChoiceContinue
	}
	if q.closed {
		q.mu.Unlock()
		appendRecord(q.store, prompt, ChoiceContinue, true, q.now)
		return ChoiceContinue
	}
	p := &pendingPrompt{prompt: prompt, done: make(chan Choice, 1)}
	q.pending[prompt.ID] = p
	q.order = append(q.order, prompt.ID)
	q.signalLocked()
	q.mu.Unlock()

	return <-p.done
}

// Next blocks until a prompt is available (oldest first) or ctx is done.
// The prompt stays pending until Resolve is called with its id.
func (q *Queue) Next(ctx context.Context) (Prompt, error) {
	for {
		q.mu.Lock()
		if prompt, ok := q.headLocked(); ok {
			q.mu.Unlock()
			return prompt, nil
		}
		if q.closed {
			q.mu.Unlock()
			return Prompt{}, ErrQueueClosed
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Prompt{}, ctx.Err()
		case <-q.arrivals:
		}
	}
}

// Resolve completes a pending prompt with the given choice and unblocks the
// goroutine waiting inside Confirm.
func (q *Queue) Resolve(id string, choice Choice) error {
	if choice != ChoiceInterrupt {
		choice = ChoiceContinue
	}
	q.mu.Lock()
	p, ok := q.pending[id]
	if !ok {
		q.mu.Unlock()
		return fmt.Errorf("confirm: %s not pending", id)
	}
	delete(q.pending, id)
	q.dropOrderLocked(id)
	q.mu.Unlock()

	appendRecord(q.store, p.prompt, choice, false, q.now)
	p.done <- choice
	return nil
}

// MuteAndContinue resolves a pending prompt with ChoiceContinue and mutes its
// site so future failures there stop prompting for the rest of the process.
func (q *Queue) MuteAndContinue(id string) error {
	q.mu.Lock()
	p, ok := q.pending[id]
	if ok && q.mute != nil {
		q.mute.Add(p.prompt.Site, q.now().UTC())
	}
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("confirm: %s not pending", id)
	}
	return q.Resolve(id, ChoiceContinue)
}

// Pending returns a snapshot of unresolved prompts, oldest first.
func (q *Queue) Pending() []Prompt {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Prompt, 0, len(q.order))
	for _, id := range q.order {
		if p, ok := q.pending[id]; ok {
			out = append(out, p.prompt)
		}
	}
	return out
}

// Close resolves every pending prompt with ChoiceContinue and rejects new
// ones. Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	drained := make([]*pendingPrompt, 0, len(q.pending))
	for _, p := range q.pending {
		drained = append(drained, p)
	}
	q.pending = map[string]*pendingPrompt{}
	q.order = nil
	q.signalLocked()
	q.mu.Unlock()

	for _, p := range drained {
		appendRecord(q.store, p.prompt, ChoiceContinue, true, q.now)
		p.done <- ChoiceContinue
	}
}

func (q *Queue) headLocked() (Prompt, bool) {
	for len(q.order) > 0 {
		id := q.order[0]
		if p, ok := q.pending[id]; ok {
			return p.prompt, true
		}
		q.order = q.order[1:]
	}
	return Prompt{}, false
}

func (q *Queue) dropOrderLocked(id string) {
	for i, existing := range q.order {
		if existing == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			return
		}
	}
}

func (q *Queue) signalLocked() {
	select {
	case q.arrivals <- struct{}{}:
	default:
	}
}
