//go:build !linux && !darwin && !freebsd && !windows

package capture

import "math"

// FreeBytes cannot be measured on this platform and never blocks a session
func FreeBytes(dir string) (uint64, error) {
	return math.MaxUint64, nil
}
