// Package diaglog is the minimal structured logging surface consumed by the
// assertion guard. Hosts bridge Sink to whatever logging stack they run; the
// package ships a line-oriented writer sink and a capturing sink for tests.
package diaglog

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Category names a diagnostic stream. The guard writes to CategoryAssert only.
type Category string

const (
	// CategoryAssert is the dedicated category for assertion failures.
	CategoryAssert Category = "devguard.assert"
	// CategorySession carries session lifecycle diagnostics.
	CategorySession Category = "devguard.session"
)

// Severity orders diagnostic levels from least to most severe.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

// String returns the canonical upper-case severity label.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return fmt.Sprintf("SEVERITY(%d)", int(s))
	}
}

// Entry is a single diagnostic record.
type Entry struct {
	Time     time.Time `json:"time"`
	Category Category  `json:"category"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	// Site is the source location that produced the entry, when known.
	Site string `json:"site,omitempty"`
}

// Sink receives diagnostic entries. Implementations must be safe for
// concurrent use.
type Sink interface {
	Log(e Entry)
}

// WriterSink formats entries one per line onto an io.Writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink wraps w in a mutex-guarded line sink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Log writes the formatted entry. Write errors are dropped; diagnostics must
// never fail the code path that emitted them.
func (s *WriterSink) Log(e Entry) {
	if s == nil || s.w == nil {
		return
	}
	line := formatEntry(e)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, line+"\n")
}

func formatEntry(e Entry) string {
	var sb strings.Builder
	if !e.Time.IsZero() {
		sb.WriteString(e.Time.UTC().Format(time.RFC3339Nano))
		sb.WriteString(" ")
	}
	sb.WriteString(e.Severity.String())
	sb.WriteString(" [")
	sb.WriteString(string(e.Category))
	sb.WriteString("]")
	if e.Site != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Site)
	}
	sb.WriteString(" ")
	sb.WriteString(e.Message)
	return sb.String()
}

// MultiSink fans entries out to every non-nil child sink.
type MultiSink []Sink

// Log forwards e to each child.
func (m MultiSink) Log(e Entry) {
	for _, s := range m {
		if s != nil {
			s.Log(e)
		}
	}
}

// NopSink discards everything.
type NopSink struct{}

// Log discards the entry.
func (NopSink) Log(Entry) {}

// MemorySink captures entries for assertions in tests.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemorySink returns an empty capturing sink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

// Log appends a copy of e.
func (s *MemorySink) Log(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// Entries returns a snapshot of everything logged so far.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Reset drops captured entries.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
