//go:build shipping

package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cexll/devguard/pkg/diaglog"
)

// Run with -tags=shipping to verify the no-op contract.

func TestShippingAssertIsNoOp(t *testing.T) {
	sink := diaglog.NewMemorySink()
	g := New(WithSink(sink))

	assert.True(t, g.Assert(false, "ignored"))
	assert.True(t, g.Assertf(false, "ignored %d", 1))
	assert.True(t, Assert(false))
	assert.Empty(t, sink.Entries())
}

func TestShippingAssertFuncNeverInvokesPredicate(t *testing.T) {
	g := New(WithSink(diaglog.NopSink{}))

	calls := 0
	assert.True(t, g.AssertFunc(func() bool { calls++; return false }))
	assert.True(t, AssertFunc(func() bool { calls++; return false }))
	assert.Zero(t, calls)
}

func TestShippingEnabledConstant(t *testing.T) {
	assert.False(t, Enabled)
}
