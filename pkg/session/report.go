package session

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
)

// Entry is one session-scoped error surfaced in the end-of-session report.
type Entry struct {
	Time      time.Time `json:"time"`
	SessionID string    `json:"session_id"`
	Site      string    `json:"site,omitempty"`
	Message   string    `json:"message"`
}

// Report aggregates everything the host displays when a session ends.
type Report struct {
	SessionID string    `json:"session_id"`
	Label     string    `json:"label,omitempty"`
	Started   time.Time `json:"started_at"`
	Ended     time.Time `json:"ended_at"`
	State     State     `json:"state"`
	Entries   []Entry   `json:"entries,omitempty"`
}

// ReportAppender persists report entries as they are recorded.
type ReportAppender interface {
	Append(Entry) error
}

var errReportStoreClosed = errors.New("session: report store closed")

// ReportStore appends report entries to a JSONL file so reports survive a
// crashed host process.
type ReportStore struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewReportStore opens (or creates) the JSONL report log at path.
func NewReportStore(path string) (*ReportStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("session: create report dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("session: open report store: %w", err)
	}
	return &ReportStore{path: path, file: file}, nil
}

// Append writes one entry and syncs it to disk.
func (s *ReportStore) Append(entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("session: marshal report entry: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errReportStoreClosed
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("session: append report entry: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("session: sync report store: %w", err)
	}
	return nil
}

// ReadAll returns every entry persisted so far, oldest first. Corrupt lines
// are skipped rather than failing the whole read.
func (s *ReportStore) ReadAll() ([]Entry, error) {
	s.mu.Lock()
	path := s.path
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: read report store: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1<<20)
	var entries []Entry
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("session: scan report store: %w", err)
	}
	return entries, nil
}

// Close releases the underlying file.
func (s *ReportStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
