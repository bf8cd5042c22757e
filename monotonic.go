package lss

import "sync/atomic"

// MonotonicUpdate compare-exchanges *addr to newValue only if newValue is
// strictly greater than the current value, looping until it either succeeds
// or observes a value already >= newValue. Returns true iff it mutated the
// value. Used wherever the store advances watermarks (commit points,
// in-flight high-water marks) under concurrent writers.
func MonotonicUpdate(addr *int64, newValue int64) bool {
	for {
		current := atomic.LoadInt64(addr)
		if newValue <= current {
			return false
		}
		if atomic.CompareAndSwapInt64(addr, current, newValue) {
			return true
		}
	}
}

// MonotonicUpdateUint64 is the unsigned counterpart of MonotonicUpdate.
func MonotonicUpdateUint64(addr *uint64, newValue uint64) bool {
	for {
		current := atomic.LoadUint64(addr)
		if newValue <= current {
			return false
		}
		if atomic.CompareAndSwapUint64(addr, current, newValue) {
			return true
		}
	}
}
