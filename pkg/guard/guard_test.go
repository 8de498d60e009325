//go:build !shipping

package guard

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cexll/devguard/pkg/confirm"
	"github.com/cexll/devguard/pkg/diaglog"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// scriptedConfirmer replays choices in order, defaulting to Continue.
type scriptedConfirmer struct {
	mu      sync.Mutex
	choices []confirm.Choice
	prompts []confirm.Prompt
}

func (s *scriptedConfirmer) Confirm(p confirm.Prompt) confirm.Choice {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, p)
	if len(s.choices) == 0 {
		return confirm.ChoiceContinue
	}
	choice := s.choices[0]
	s.choices = s.choices[1:]
	return choice
}

func (s *scriptedConfirmer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type fakeHost struct {
	mu         sync.Mutex
	active     bool
	id         string
	interrupts int
	errors     []string
}

func (h *fakeHost) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

func (h *fakeHost) ID() string { return h.id }

func (h *fakeHost) RequestInterrupt() {
	h.mu.Lock()
	h.interrupts++
	h.mu.Unlock()
}

func (h *fakeHost) ReportError(site, message string) error {
	h.mu.Lock()
	h.errors = append(h.errors, message)
	h.mu.Unlock()
	return nil
}

// orderProbe records protocol ordering relative to the log sink.
type orderProbe struct {
	attached bool
	events   *[]string
}

func (p orderProbe) Attached() bool { return p.attached }

func (p orderProbe) Break() {
	*p.events = append(*p.events, "break")
}

type orderSink struct {
	events *[]string
	inner  *diaglog.MemorySink
}

func (s orderSink) Log(e diaglog.Entry) {
	*s.events = append(*s.events, "log")
	s.inner.Log(e)
}

func newTestGuard(t *testing.T, opts ...Option) (*Guard, *fakeClock, *diaglog.MemorySink, *scriptedConfirmer) {
	t.Helper()
	clk := newFakeClock()
	sink := diaglog.NewMemorySink()
	conf := &scriptedConfirmer{}
	base := []Option{
		WithClock(clk.Now),
		WithSink(sink),
		WithConfirmer(conf),
		WithDebugProbe(orderProbe{attached: false}),
	}
	return New(append(base, opts...)...), clk, sink, conf
}

func TestAssertTruePassesThrough(t *testing.T) {
	g, _, sink, conf := newTestGuard(t)
	assert.True(t, g.Assert(true, "never fails"))
	assert.Empty(t, sink.Entries())
	assert.Zero(t, conf.count())
}

func TestFirstFailureLogsAndPromptsOnce(t *testing.T) {
	g, _, sink, conf := newTestGuard(t)

	ok := g.Assert(false, "mesh node missing for %s", "player-1")
	require.False(t, ok)

	entries := sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, diaglog.CategoryAssert, entries[0].Category)
	assert.Equal(t, diaglog.SeverityError, entries[0].Severity)
	assert.Equal(t, "mesh node missing for player-1", entries[0].Message)
	assert.NotEmpty(t, entries[0].Site)
	assert.Equal(t, 1, conf.count())
}

func TestRapidRefailureIsSuppressedButStillFalse(t *testing.T) {
	g, clk, sink, conf := newTestGuard(t)
	failHere := func() bool { return g.Assert(false, "boom") }

	require.False(t, failHere())
	clk.Advance(500 * time.Millisecond)
	require.False(t, failHere())

	assert.Len(t, sink.Entries(), 1, "second failure inside the window must not log")
	assert.Equal(t, 1, conf.count(), "second failure inside the window must not prompt")
}

func TestSuppressionWindowMeasuresFromLastReportedFailure(t *testing.T) {
	// t=0 reported, t=0.5s suppressed, t=1.2s reported again: the suppressed
	// occurrence does not re-arm the window.
	g, clk, sink, conf := newTestGuard(t)
	failHere := func() bool { return g.Assert(false, "boom") }

	require.False(t, failHere())
	clk.Advance(500 * time.Millisecond)
	require.False(t, failHere())
	clk.Advance(700 * time.Millisecond)
	require.False(t, failHere())

	assert.Len(t, sink.Entries(), 2)
	assert.Equal(t, 2, conf.count())
}

func TestSuccessBetweenFailuresDoesNotResetWindow(t *testing.T) {
	g, clk, sink, _ := newTestGuard(t)
	checkHere := func(cond bool) bool { return g.Assert(cond, "boom") }

	require.False(t, checkHere(false))
	clk.Advance(300 * time.Millisecond)
	require.True(t, checkHere(true))
	clk.Advance(300 * time.Millisecond)
	// Still inside the window of the reported failure at t=0.
	require.False(t, checkHere(false))
	assert.Len(t, sink.Entries(), 1)

	clk.Advance(time.Second)
	require.False(t, checkHere(false))
	assert.Len(t, sink.Entries(), 2)
}

func TestDistinctSitesDoNotShareSuppression(t *testing.T) {
	g, _, sink, _ := newTestGuard(t)

	require.False(t, g.Assert(false, "site one"))
	require.False(t, g.Assert(false, "site two"))

	assert.Len(t, sink.Entries(), 2)
}

func TestDebuggerBreakPrecedesLogEntry(t *testing.T) {
	var events []string
	clk := newFakeClock()
	mem := diaglog.NewMemorySink()
	g := New(
		WithClock(clk.Now),
		WithSink(orderSink{events: &events, inner: mem}),
		WithConfirmer(&scriptedConfirmer{}),
		WithDebugProbe(orderProbe{attached: true, events: &events}),
	)

	require.False(t, g.Assert(false, "boom"))
	require.Equal(t, []string{"break", "log"}, events)
}

func TestDetachedDebuggerNeverBreaks(t *testing.T) {
	var events []string
	clk := newFakeClock()
	g := New(
		WithClock(clk.Now),
		WithSink(diaglog.NopSink{}),
		WithConfirmer(&scriptedConfirmer{}),
		WithDebugProbe(orderProbe{attached: false, events: &events}),
	)

	require.False(t, g.Assert(false, "boom"))
	assert.Empty(t, events)
}

func TestInterruptChoiceRequestsInterruption(t *testing.T) {
	host := &fakeHost{active: true, id: "sess-1"}
	conf := &scriptedConfirmer{choices: []confirm.Choice{confirm.ChoiceInterrupt}}
	g := New(
		WithClock(newFakeClock().Now),
		WithSink(diaglog.NopSink{}),
		WithConfirmer(conf),
		WithSessionHost(host),
		WithDebugProbe(orderProbe{}),
	)

	require.False(t, g.Assert(false, "boom"))
	assert.Equal(t, 1, host.interrupts)
}

func TestContinueChoiceLeavesSessionAlone(t *testing.T) {
	host := &fakeHost{active: true, id: "sess-1"}
	g := New(
		WithClock(newFakeClock().Now),
		WithSink(diaglog.NopSink{}),
		WithConfirmer(&scriptedConfirmer{}),
		WithSessionHost(host),
		WithDebugProbe(orderProbe{}),
	)

	require.False(t, g.Assert(false, "boom"))
	assert.Zero(t, host.interrupts)
}

func TestSessionErrorReportedOnlyWhenSessionActive(t *testing.T) {
	host := &fakeHost{active: false}
	clk := newFakeClock()
	g := New(
		WithClock(clk.Now),
		WithSink(diaglog.NopSink{}),
		WithConfirmer(&scriptedConfirmer{}),
		WithSessionHost(host),
		WithDebugProbe(orderProbe{}),
	)

	require.False(t, g.Assert(false, "outside session"))
	assert.Empty(t, host.errors)

	host.active = true
	clk.Advance(2 * time.Second)
	require.False(t, g.Assert(false, "inside session"))
	assert.Equal(t, []string{"inside session"}, host.errors)
}

func TestAssertFuncEvaluatesLazily(t *testing.T) {
	g, _, sink, _ := newTestGuard(t)

	calls := 0
	require.True(t, g.AssertFunc(func() bool { calls++; return true }, "fine"))
	require.False(t, g.AssertFunc(func() bool { calls++; return false }, "broken"))

	assert.Equal(t, 2, calls)
	assert.Len(t, sink.Entries(), 1)
}

func TestResetSitesClearsSuppression(t *testing.T) {
	g, _, sink, _ := newTestGuard(t)
	failHere := func() bool { return g.Assert(false, "boom") }

	require.False(t, failHere())
	g.ResetSites()
	require.False(t, failHere())

	assert.Len(t, sink.Entries(), 2)
}

func TestSetWindowAppliesImmediately(t *testing.T) {
	g, clk, sink, _ := newTestGuard(t)
	failHere := func() bool { return g.Assert(false, "boom") }

	require.False(t, failHere())
	g.SetWindow(100 * time.Millisecond)
	clk.Advance(200 * time.Millisecond)
	require.False(t, failHere())

	assert.Len(t, sink.Entries(), 2)
}

func TestZeroWindowDisablesSuppression(t *testing.T) {
	g, _, sink, _ := newTestGuard(t)
	g.SetWindow(0)
	failHere := func() bool { return g.Assert(false, "boom") }

	require.False(t, failHere())
	require.False(t, failHere())
	assert.Len(t, sink.Entries(), 2)
}

func TestConcurrentFailuresAtOneSiteReportOnce(t *testing.T) {
	g, _, sink, conf := newTestGuard(t)
	failHere := func() bool { return g.Assert(false, "race") }

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = failHere()
		}()
	}
	wg.Wait()

	// The clock is frozen, so every concurrent failure after the first falls
	// inside the suppression window.
	assert.Len(t, sink.Entries(), 1)
	assert.Equal(t, 1, conf.count())
}

func TestPackageLevelAssertUsesDefaultGuard(t *testing.T) {
	g, _, sink, _ := newTestGuard(t)
	prev := Default()
	SetDefault(g)
	t.Cleanup(func() { SetDefault(prev) })

	require.True(t, Assert(true))
	require.False(t, Assert(false, "package-level failure"))
	require.Len(t, sink.Entries(), 1)
	assert.Equal(t, "package-level failure", sink.Entries()[0].Message)
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t, "assertion failed", formatMessage(nil))
	assert.Equal(t, "plain", formatMessage([]any{"plain"}))
	assert.Equal(t, "count=3", formatMessage([]any{"count=%d", 3}))
	assert.Equal(t, "42", formatMessage([]any{42}))
}

func TestCallSiteIsStablePerLocation(t *testing.T) {
	siteOf := func() string { return callSite(0) }
	first := siteOf()
	second := siteOf()
	assert.Equal(t, first, second)
	assert.Contains(t, first, "guard_test.go")
}
