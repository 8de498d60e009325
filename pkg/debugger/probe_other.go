//go:build !linux

package debugger

// platformAttached has no portable implementation outside Linux; hosts on
// other platforms install their own probe via SetProbe.
func platformAttached() bool { return false }
