//go:build !shipping

package guard

// Assert evaluates cond and returns it unchanged. A false condition runs the
// failure protocol, subject to per-site spam suppression.
func (g *Guard) Assert(cond bool, msgAndArgs ...any) bool {
	if cond {
		return true
	}
	return g.failAt(callSite(1), formatMessage(msgAndArgs))
}

// Assertf is Assert with an explicit format string.
func (g *Guard) Assertf(cond bool, format string, args ...any) bool {
	if cond {
		return true
	}
	return g.failAt(callSite(1), sprintf(format, args...))
}

// AssertFunc evaluates pred lazily. Use it for predicates too expensive to
// compute unconditionally; in shipping builds pred is never invoked.
func (g *Guard) AssertFunc(pred func() bool, msgAndArgs ...any) bool {
	if pred == nil || pred() {
		return true
	}
	return g.failAt(callSite(1), formatMessage(msgAndArgs))
}

// Assert validates cond against the default guard.
func Assert(cond bool, msgAndArgs ...any) bool {
	if cond {
		return true
	}
	return Default().failAt(callSite(1), formatMessage(msgAndArgs))
}

// Assertf validates cond against the default guard with a format string.
func Assertf(cond bool, format string, args ...any) bool {
	if cond {
		return true
	}
	return Default().failAt(callSite(1), sprintf(format, args...))
}

// AssertFunc lazily validates pred against the default guard.
func AssertFunc(pred func() bool, msgAndArgs ...any) bool {
	if pred == nil || pred() {
		return true
	}
	return Default().failAt(callSite(1), formatMessage(msgAndArgs))
}
