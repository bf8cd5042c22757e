// Package locking implements the LockTable adapter contract of §4.4: lock
// buckets addressed by a 64-bit lock_code, exclusive/shared acquire and
// release, and predicates for debug assertions. The adapter's
// implementation is out of scope for the source spec (§1); BucketLockTable
// is a concrete in-process implementation needed to exercise
// LockableSession end to end, grounded on the teacher's
// cache/l2inmemorycache.go sharded map (FNV-hashed shard selection, one
// sync.RWMutex per shard).
package locking

import (
	"context"

	"github.com/sharedcode/lss"
)

// LockType distinguishes exclusive from shared intent on a LockableKey.
type LockType int

const (
	// Exclusive allows exactly one holder. Sorts first among equal
	// lock_code per §4.4's ordering rule.
	Exclusive LockType = iota
	// Shared allows concurrent holders.
	Shared
)

// LockCode is the 64-bit hash-derived integer that selects a lock-table
// bucket via bucket_index = hash(lock_code) mod bucket_count (§3). Multiple
// distinct keys may share a LockCode; the table locks buckets, not keys.
type LockCode uint64

// LockableKey carries the lock_code derived from an application key along
// with the intended lock type (§3).
type LockableKey struct {
	LockCode LockCode
	LockType LockType
}

// Status is the result of an internal_lock attempt (§4.4).
type Status int

const (
	// Success means the lock (or dedup no-op) was acquired.
	Success Status = iota
	// RetryNow is the store-level retry signal: it is never surfaced to
	// callers, they loop on it until Success (§4.4, §7 Internal).
	RetryNow
)

// op distinguishes acquire from release in an internal_lock call.
type op int

const (
	acquire op = iota
	release
)

// LockTable is the adapter contract of §4.4.
type LockTable interface {
	// BucketIndex maps a lock_code to its bucket index.
	BucketIndex(code LockCode) uint64

	// internalLock attempts to acquire or release the bucket for code in
	// the given lock type, returning RetryNow (never Success-equivalent
	// failure) when the caller should loop. Unexported: callers use
	// Acquire/Release, which loop on RetryNow per §4.4.
	internalLock(ctx context.Context, code LockCode, lockType LockType, direction op) (Status, error)

	// IsLockedExclusive, IsLockedShared and IsLocked are debug-assertion
	// predicates (§4.4); they take a bucket index ("hei" in the source:
	// hash-table entry index) rather than a raw code.
	IsLockedExclusive(bucketIndex uint64) bool
	IsLockedShared(bucketIndex uint64) bool
	IsLocked(bucketIndex uint64) bool
}

// Acquire loops internalLock(acquire) until it reports Success, per the
// RETRY_NOW contract of §4.4/§7.
func Acquire(ctx context.Context, lt LockTable, code LockCode, lockType LockType) error {
	return loopUntilSuccess(ctx, lt, code, lockType, acquire)
}

// Release loops internalLock(release) until it reports Success.
func Release(ctx context.Context, lt LockTable, code LockCode, lockType LockType) error {
	return loopUntilSuccess(ctx, lt, code, lockType, release)
}

func loopUntilSuccess(ctx context.Context, lt LockTable, code LockCode, lockType LockType, direction op) error {
	return lss.RetryNow(ctx, func(ctx context.Context) (bool, error) {
		status, err := lt.internalLock(ctx, code, lockType, direction)
		if err != nil {
			return false, err
		}
		return status == RetryNow, nil
	})
}
