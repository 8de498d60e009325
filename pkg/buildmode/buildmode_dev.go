//go:build !shipping

// Package buildmode distinguishes shipping builds from every other build
// configuration. Development diagnostics compile to real code only when the
// shipping build tag is absent; with -tags=shipping the guard surface becomes
// a set of empty functions the compiler eliminates entirely.
//
// Callers that need the predicate expression itself removed in shipping
// builds gate on the Enabled constant:
//
//	if buildmode.Enabled && !guard.Assert(expensiveCheck(), "state is valid") {
//		return
//	}
package buildmode

// Enabled reports at compile time whether assertions are live.
const Enabled = true

// Shipping reports whether this binary was built with the shipping tag.
func Shipping() bool { return false }

// Name returns the build configuration name for logs and reports.
func Name() string { return "development" }
