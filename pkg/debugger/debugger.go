// Package debugger probes whether a debugger is attached to the process and
// raises a breakpoint signal on demand. The probe result is cached briefly;
// attach state changes rarely and the guard may consult it on hot paths.
package debugger

import (
	"runtime"
	"sync"
	"time"
)

const probeTTL = time.Second

var (
	mu       sync.Mutex
	probed   time.Time
	attached bool

	// probe is swapped by tests and by hosts with their own attach signal.
	probe = platformAttached
)

// Attached reports whether a debugger is tracing this process.
func Attached() bool {
	mu.Lock()
	defer mu.Unlock()
	if time.Since(probed) < probeTTL {
		return attached
	}
	attached = probe()
	probed = time.Now()
	return attached
}

// Break raises a breakpoint signal when a debugger is attached. Without one
// it is a no-op, so call sites never need to guard it.
func Break() {
	if Attached() {
		runtime.Breakpoint()
	}
}

// SetProbe overrides the attach probe. Pass nil to restore the platform
// probe. Intended for tests and for hosts that track attach state themselves.
func SetProbe(fn func() bool) {
	mu.Lock()
	defer mu.Unlock()
	if fn == nil {
		fn = platformAttached
	}
	probe = fn
	probed = time.Time{}
}
