package debugger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetProbeOverridesAttachState(t *testing.T) {
	t.Cleanup(func() { SetProbe(nil) })

	SetProbe(func() bool { return true })
	assert.True(t, Attached())

	SetProbe(func() bool { return false })
	assert.False(t, Attached())
}

func TestAttachProbeResultIsCached(t *testing.T) {
	t.Cleanup(func() { SetProbe(nil) })

	calls := 0
	SetProbe(func() bool { calls++; return false })

	_ = Attached()
	_ = Attached()
	_ = Attached()
	assert.Equal(t, 1, calls, "probe result should be cached inside the TTL")
}

func TestBreakWithoutDebuggerIsNoOp(t *testing.T) {
	t.Cleanup(func() { SetProbe(nil) })
	SetProbe(func() bool { return false })
	// Must not raise SIGTRAP.
	Break()
}

func TestPlatformProbeDoesNotPanic(t *testing.T) {
	// Under `go test` no tracer is attached, so the platform probe reports
	// false on every supported OS.
	assert.False(t, platformAttached())
}
