package lss

import (
	"errors"
	"syscall"
)

// osErrorCode extracts the OS-level errno from err, if any is present in its
// chain, per §6's "low 16 bits of the OS error" callback convention.
func osErrorCode(err error) (uint32, bool) {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return uint32(errno), true
	}
	return 0, false
}
