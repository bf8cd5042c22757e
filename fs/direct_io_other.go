//go:build !linux

package fs

import "os"

// sectorSize falls back to the POSIX default on every non-Linux platform,
// Windows included; the per-volume sector size is not queried from the OS.
const sectorSize = 512

// EnableDirect is a no-op on platforms without an O_DIRECT-style flag (§4.1).
func (positionedIO) EnableDirect(file *os.File) bool {
	return false
}
