//go:build shipping

package buildmode

// Enabled reports at compile time whether assertions are live.
const Enabled = false

// Shipping reports whether this binary was built with the shipping tag.
func Shipping() bool { return true }

// Name returns the build configuration name for logs and reports.
func Name() string { return "shipping" }
