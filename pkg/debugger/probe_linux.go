//go:build linux

package debugger

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// platformAttached reads TracerPid from /proc/self/status. A non-zero value
// means a tracer (debugger or strace) holds the process.
func platformAttached() bool {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "TracerPid:") {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "TracerPid:")))
		return err == nil && pid != 0
	}
	return false
}
