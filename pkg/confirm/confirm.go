// Package confirm is the modal confirmation surface the assertion guard
// blocks on when an invariant fails. A prompt offers exactly two choices:
// interrupt the session or continue past the failure.
//
// Interactive hosts pump prompts out of a Queue and resolve them from their
// dialog UI. Headless hosts install a Policy so automated runs never block.
package confirm

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Choice is the resolution of a confirmation prompt.
type Choice string

const (
	// ChoiceInterrupt requests the session be stopped at the next safe point.
	ChoiceInterrupt Choice = "interrupt"
	// ChoiceContinue resumes execution past the failure.
	ChoiceContinue Choice = "continue"
)

// Prompt describes one pending confirmation.
type Prompt struct {
	ID      string    `json:"id"`
	Site    string    `json:"site,omitempty"`
	Message string    `json:"message"`
	Raised  time.Time `json:"raised_at"`
}

// Confirmer blocks the calling goroutine until the prompt is resolved.
// There is deliberately no timeout; resolution comes from a human or from a
// pre-programmed policy.
type Confirmer interface {
	Confirm(Prompt) Choice
}

// Record is the audit trail of one resolved prompt.
type Record struct {
	ID       string     `json:"id"`
	Site     string     `json:"site,omitempty"`
	Message  string     `json:"message"`
	Choice   Choice     `json:"choice"`
	Raised   time.Time  `json:"raised_at"`
	Resolved *time.Time `json:"resolved_at,omitempty"`
	// Auto marks resolutions made by policy or mute list rather than a human.
	Auto bool `json:"auto,omitempty"`
}

// RecordAppender persists resolution records for auditing.
type RecordAppender interface {
	Append(Record) error
}

// Policy resolves prompts without human input.
type Policy func(Prompt) Choice

// AlwaysContinue resolves every prompt by continuing. The usual choice for
// CI and other headless runs.
func AlwaysContinue(Prompt) Choice { return ChoiceContinue }

// AlwaysInterrupt resolves every prompt by interrupting. Useful when an
// automated run should stop on the first broken invariant.
func AlwaysInterrupt(Prompt) Choice { return ChoiceInterrupt }

// PolicyConfirmer applies a Policy synchronously, recording each resolution.
type PolicyConfirmer struct {
	policy Policy
	store  RecordAppender
	now    func() time.Time
}

// NewPolicyConfirmer builds a non-blocking Confirmer around policy. A nil
// policy defaults to AlwaysContinue; store may be nil.
func NewPolicyConfirmer(policy Policy, store RecordAppender) *PolicyConfirmer {
	if policy == nil {
		policy = AlwaysContinue
	}
	return &PolicyConfirmer{policy: policy, store: store, now: time.Now}
}

// Confirm applies the policy and appends an audit record.
func (p *PolicyConfirmer) Confirm(prompt Prompt) Choice {
	normalizePrompt(&prompt, p.now)
	choice := p.policy(prompt)
	if choice != ChoiceInterrupt {
		choice = ChoiceContinue
	}
	appendRecord(p.store, prompt, choice, true, p.now)
	return choice
}

func normalizePrompt(p *Prompt, now func() time.Time) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Raised.IsZero() {
		p.Raised = now().UTC()
	}
}

func appendRecord(store RecordAppender, p Prompt, choice Choice, auto bool, now func() time.Time) {
	if store == nil {
		return
	}
	resolved := now().UTC()
	_ = store.Append(Record{
		ID:       p.ID,
		Site:     p.Site,
		Message:  p.Message,
		Choice:   choice,
		Raised:   p.Raised,
		Resolved: &resolved,
		Auto:     auto,
	})
}

var errRecordStoreClosed = errors.New("confirm: record store closed")

// RecordStore appends resolution records to a JSONL audit file.
type RecordStore struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewRecordStore opens (or creates) the audit log at path.
func NewRecordStore(path string) (*RecordStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("confirm: create audit dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("confirm: open audit log: %w", err)
	}
	return &RecordStore{path: path, file: file}, nil
}

// Append writes one record and syncs it to disk.
func (s *RecordStore) Append(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("confirm: marshal record: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errRecordStoreClosed
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("confirm: append record: %w", err)
	}
	return s.file.Sync()
}

// ReadAll returns every persisted record, oldest first. Corrupt lines are
// skipped.
func (s *RecordStore) ReadAll() ([]Record, error) {
	s.mu.Lock()
	path := s.path
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("confirm: read audit log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var records []Record
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("confirm: scan audit log: %w", err)
	}
	return records, nil
}

// Close releases the underlying file.
func (s *RecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
