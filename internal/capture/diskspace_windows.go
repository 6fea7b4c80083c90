//go:build windows

package capture

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// FreeBytes reports the bytes available to the caller on the volume holding dir
func FreeBytes(dir string) (uint64, error) {
	p, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return 0, err
	}
	var avail, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(p, &avail, &total, &totalFree); err != nil {
		return 0, fmt.Errorf("free space %s: %w", dir, err)
	}
	return avail, nil
}
