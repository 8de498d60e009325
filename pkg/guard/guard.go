// Package guard implements the assertion primitive for development hosts.
//
// Assert validates an invariant and, on failure, runs the full failure
// protocol: debugger break, one diagnostic log entry, a session-scoped error
// when a preview session is live, and a blocking Interrupt/Continue dialog.
// Repeated failures at the same call site inside the suppression window are
// silenced. The return value mirrors the condition so callers gate their own
// control flow:
//
//	if !guard.Assert(node != nil, "mesh node missing for %s", id) {
//		return nil
//	}
//
// In shipping builds (-tags=shipping) every entry point is an empty function
// returning true: no evaluation, no side effects. Gate expensive predicate
// expressions on buildmode.Enabled, or pass them lazily via AssertFunc.
//
// Deliberately absent is a softer log-only check primitive (one that never
// prompts and never requests interruption). Invalid state is either a logic
// defect or unvalidated input, and both route through the full protocol here;
// a weaker form would just give broken invariants a place to hide.
package guard

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cexll/devguard/pkg/buildmode"
	"github.com/cexll/devguard/pkg/confirm"
	"github.com/cexll/devguard/pkg/debugger"
	"github.com/cexll/devguard/pkg/diaglog"
	"github.com/cexll/devguard/pkg/telemetry"
)

// Enabled mirrors buildmode.Enabled for call sites that want to elide the
// predicate expression itself in shipping builds.
const Enabled = buildmode.Enabled

// DefaultWindow is the per-site failure-spam cooldown.
const DefaultWindow = time.Second

// SessionHost is the slice of the session controller the guard consumes.
type SessionHost interface {
	Active() bool
	ID() string
	RequestInterrupt()
	ReportError(site, message string) error
}

// DebugProbe abstracts the debugger-attach signal.
type DebugProbe interface {
	Attached() bool
	Break()
}

type processDebugger struct{}

func (processDebugger) Attached() bool { return debugger.Attached() }
func (processDebugger) Break()         { debugger.Break() }

// Guard owns the process-wide assertion site registry and the collaborators
// the failure protocol reports through.
type Guard struct {
	mu    sync.Mutex
	sites map[string]time.Time

	now       func() time.Time
	window    time.Duration
	sink      diaglog.Sink
	confirmer confirm.Confirmer
	host      SessionHost
	debug     DebugProbe
	tel       *telemetry.Manager
}

// Option customizes a Guard.
type Option func(*Guard)

// WithSink routes diagnostic log entries to sink.
func WithSink(sink diaglog.Sink) Option {
	return func(g *Guard) {
		if sink != nil {
			g.sink = sink
		}
	}
}

// WithConfirmer installs the modal confirmation surface. Without one the
// guard auto-continues so nothing ever blocks.
func WithConfirmer(c confirm.Confirmer) Option {
	return func(g *Guard) {
		if c != nil {
			g.confirmer = c
		}
	}
}

// WithSessionHost connects the interactive session controller.
func WithSessionHost(host SessionHost) Option {
	return func(g *Guard) { g.host = host }
}

// WithDebugProbe overrides the debugger-attach probe.
func WithDebugProbe(probe DebugProbe) Option {
	return func(g *Guard) {
		if probe != nil {
			g.debug = probe
		}
	}
}

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// WithWindow overrides the suppression window. Zero disables suppression.
func WithWindow(window time.Duration) Option {
	return func(g *Guard) {
		if window >= 0 {
			g.window = window
		}
	}
}

// WithTelemetry publishes failure metrics and span events through mgr
// instead of the process-wide default manager.
func WithTelemetry(mgr *telemetry.Manager) Option {
	return func(g *Guard) { g.tel = mgr }
}

// New constructs a Guard. Without options it logs to stderr, auto-continues
// dialogs, and uses the real process debugger probe.
func New(opts ...Option) *Guard {
	g := &Guard{
		sites:     map[string]time.Time{},
		now:       time.Now,
		window:    DefaultWindow,
		sink:      diaglog.NewWriterSink(defaultLogWriter()),
		confirmer: confirm.NewPolicyConfirmer(confirm.AlwaysContinue, nil),
		debug:     processDebugger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetWindow adjusts the suppression window at runtime (config hot reload).
func (g *Guard) SetWindow(window time.Duration) {
	if window < 0 {
		return
	}
	g.mu.Lock()
	g.window = window
	g.mu.Unlock()
}

// ResetSites clears every site's last-failure timestamp. Hosts call this
// between sessions so suppression state does not leak across them.
func (g *Guard) ResetSites() {
	g.mu.Lock()
	g.sites = map[string]time.Time{}
	g.mu.Unlock()
}

// failAt runs the failure protocol for the given call site and always
// returns false.
func (g *Guard) failAt(site, message string) bool {
	now := g.now()

	g.mu.Lock()
	last, seen := g.sites[site]
	window := g.window
	if seen && window > 0 && now.Sub(last) < window {
		g.mu.Unlock()
		// Spam protection: silent, but the caller still sees the failure.
		g.recordSuppressed(site)
		return false
	}
	// Re-arm before the dialog blocks so the site cannot stack prompts.
	g.sites[site] = now
	g.mu.Unlock()

	if g.debug != nil && g.debug.Attached() {
		g.debug.Break()
	}

	if g.sink != nil {
		g.sink.Log(diaglog.Entry{
			Time:     now,
			Category: diaglog.CategoryAssert,
			Severity: diaglog.SeverityError,
			Message:  message,
			Site:     site,
		})
	}

	var sessionID string
	if g.host != nil && g.host.Active() {
		sessionID = g.host.ID()
		_ = g.host.ReportError(site, message)
	}

	choice := confirm.ChoiceContinue
	var wait time.Duration
	if g.confirmer != nil {
		start := g.now()
		choice = g.confirmer.Confirm(confirm.Prompt{
			Site:    site,
			Message: message,
			Raised:  now,
		})
		wait = g.now().Sub(start)
	}

	g.recordFailure(telemetry.FailureData{
		Site:       site,
		Message:    message,
		SessionID:  sessionID,
		Choice:     string(choice),
		DialogWait: wait,
	})

	if choice == confirm.ChoiceInterrupt {
		if g.host != nil {
			g.host.RequestInterrupt()
		}
		g.recordInterrupt(site)
	}
	return false
}

func (g *Guard) recordFailure(data telemetry.FailureData) {
	if g.tel != nil {
		g.tel.RecordFailure(context.Background(), data)
		return
	}
	telemetry.RecordFailure(context.Background(), data)
}

func (g *Guard) recordSuppressed(site string) {
	if g.tel != nil {
		g.tel.RecordSuppressed(context.Background(), site)
		return
	}
	telemetry.RecordSuppressed(context.Background(), site)
}

func (g *Guard) recordInterrupt(site string) {
	if g.tel != nil {
		g.tel.RecordInterrupt(context.Background(), site)
		return
	}
	telemetry.RecordInterrupt(context.Background(), site)
}

func defaultLogWriter() io.Writer { return os.Stderr }

var defaultGuard atomic.Pointer[Guard]

// Default returns the process-wide guard, constructing a plain one on first
// use.
func Default() *Guard {
	if g := defaultGuard.Load(); g != nil {
		return g
	}
	g := New()
	if defaultGuard.CompareAndSwap(nil, g) {
		return g
	}
	return defaultGuard.Load()
}

// SetDefault swaps the process-wide guard used by the package-level
// assertion functions.
func SetDefault(g *Guard) {
	defaultGuard.Store(g)
}

// callSite returns a stable file:line identity for the frame skip levels
// above the caller of callSite.
func callSite(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// formatMessage renders optional testify-style message arguments.
func formatMessage(msgAndArgs []any) string {
	switch len(msgAndArgs) {
	case 0:
		return "assertion failed"
	case 1:
		if msg, ok := msgAndArgs[0].(string); ok {
			return msg
		}
		return fmt.Sprintf("%+v", msgAndArgs[0])
	default:
		if format, ok := msgAndArgs[0].(string); ok {
			return fmt.Sprintf(format, msgAndArgs[1:]...)
		}
		return fmt.Sprint(msgAndArgs...)
	}
}
