//go:build shipping

package guard

// In shipping builds every assertion entry point collapses to an empty
// function returning true. The condition argument is still evaluated at the
// call site by the language; gate expensive expressions on Enabled or use
// AssertFunc, whose predicate is never invoked here.

// Assert is a no-op in shipping builds and always reports success.
func (g *Guard) Assert(bool, ...any) bool { return true }

// Assertf is a no-op in shipping builds and always reports success.
func (g *Guard) Assertf(bool, string, ...any) bool { return true }

// AssertFunc is a no-op in shipping builds; pred is not invoked.
func (g *Guard) AssertFunc(func() bool, ...any) bool { return true }

// Assert is a no-op in shipping builds and always reports success.
func Assert(bool, ...any) bool { return true }

// Assertf is a no-op in shipping builds and always reports success.
func Assertf(bool, string, ...any) bool { return true }

// AssertFunc is a no-op in shipping builds; pred is not invoked.
func AssertFunc(func() bool, ...any) bool { return true }
