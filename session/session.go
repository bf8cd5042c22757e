package session

import (
	"context"
	log "log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/sharedcode/lss"
	"github.com/sharedcode/lss/epoch"
	"github.com/sharedcode/lss/locking"
)

// SessionLockState is the per-session bookkeeping of §4.6: whether
// BeginLockable has been called, and the outstanding exclusive/shared lock
// counts. Invariant: when isAcquiredLockable is false both counts are zero.
type SessionLockState struct {
	isAcquiredLockable bool
	exclusiveLockCount uint64
	sharedLockCount    uint64
}

// Acquired reports whether BeginLockable has been called without a
// matching EndLockable.
func (s SessionLockState) Acquired() bool { return s.isAcquiredLockable }

// ExclusiveLockCount returns the current outstanding exclusive hold count.
func (s SessionLockState) ExclusiveLockCount() uint64 { return s.exclusiveLockCount }

// SharedLockCount returns the current outstanding shared hold count.
func (s SessionLockState) SharedLockCount() uint64 { return s.sharedLockCount }

// LockableSession is the per-session façade of §4.6: two-phase manual
// locking over a sorted key slice, and point operations routed through the
// functions pipeline under epoch protection. Not safe for concurrent use
// from multiple goroutines — a session is owned by one logical task at a
// time (§5).
type LockableSession[TK any, TV any] struct {
	id       uuid.UUID
	domain   *epoch.Domain
	guard    *epoch.Guard
	lockTbl  locking.LockTable
	routines StoreRoutines[TK, TV]
	adapter  *adapter[TK, TV]

	state       SessionLockState
	commitPoint int64
}

// New constructs a LockableSession wired to domain's epoch protection,
// lockTbl's bucket locking, routines' store-internal operations, and fns'
// user-supplied functions pipeline. Each session gets a fresh identity for
// correlating its operations in logs and completion callbacks.
func New[TK any, TV any](domain *epoch.Domain, lockTbl locking.LockTable, routines StoreRoutines[TK, TV], fns Functions[TK, TV]) *LockableSession[TK, TV] {
	s := &LockableSession[TK, TV]{
		id:       uuid.New(),
		domain:   domain,
		guard:    epoch.NewGuard(domain),
		lockTbl:  lockTbl,
		routines: routines,
	}
	a := newAdapter(fns)
	a.commitPoint = &s.commitPoint
	s.adapter = a
	return s
}

// ID returns this session's identity, suitable for log correlation across
// point operations and completion callbacks.
func (s *LockableSession[TK, TV]) ID() uuid.UUID { return s.id }

// CommitPoint returns the latest checkpoint commit point recorded via
// CheckpointCompletionCallback (§4.7).
func (s *LockableSession[TK, TV]) CommitPoint() int64 { return s.commitPoint }

// LockState returns a snapshot of the session's lock bookkeeping.
func (s *LockableSession[TK, TV]) LockState() SessionLockState { return s.state }

var errNotAcquired = lss.Error{Code: lss.LockProtocolViolation, Err: errStr("session is not in the Acquired state")}
var errAlreadyAcquired = lss.Error{Code: lss.LockProtocolViolation, Err: errStr("session is already in the Acquired state")}
var errOutstandingLocks = lss.Error{Code: lss.LockProtocolViolation, Err: errStr("EndLockable called with outstanding lock counts")}

type errStr string

func (e errStr) Error() string { return string(e) }

// BeginLockable transitions Idle -> Acquired (§4.6). Calling it while
// already Acquired is a lock-protocol violation.
func (s *LockableSession[TK, TV]) BeginLockable() error {
	if s.state.isAcquiredLockable {
		return errAlreadyAcquired
	}
	s.state.isAcquiredLockable = true
	return nil
}

// EndLockable transitions Acquired -> Idle. It fails with
// LockProtocolViolation if called outside Acquired or with non-zero lock
// counts outstanding (§4.6).
func (s *LockableSession[TK, TV]) EndLockable() error {
	if !s.state.isAcquiredLockable {
		return errNotAcquired
	}
	if s.state.exclusiveLockCount != 0 || s.state.sharedLockCount != 0 {
		return errOutstandingLocks
	}
	s.state.isAcquiredLockable = false
	return nil
}

// sortKeys orders keys by (lock_code, lock_type) with Exclusive preceding
// Shared for equal lock_code, per §4.4's ordering rule. The slice is sorted
// in place and returned for chaining.
func sortKeys(keys []locking.LockableKey) []locking.LockableKey {
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].LockCode != keys[j].LockCode {
			return keys[i].LockCode < keys[j].LockCode
		}
		return keys[i].LockType < keys[j].LockType // Exclusive == 0 sorts first
	})
	return keys
}

// representativeSet reports, for each index, whether it is the leftmost key
// (in sortKeys order) carrying its bucket index — the one key per bucket
// whose LockCode/LockType the table actually sees acquired (§4.6 dedup
// algorithm). Distinct LockCodes that collide into the same bucket are not
// guaranteed to land adjacent to each other after sorting by LockCode, so
// the dedup set is built from every bucket seen so far in the scan, not
// just the immediately preceding key — otherwise a later, non-adjacent
// collision would be re-acquired against a bucket this same call already
// holds, retrying forever against itself.
func representativeSet(buckets []uint64) []bool {
	isRep := make([]bool, len(buckets))
	seen := make(map[uint64]bool, len(buckets))
	for i, b := range buckets {
		if !seen[b] {
			seen[b] = true
			isRep[i] = true
		}
	}
	return isRep
}

// Lock acquires keys (which must already be sorted by sortKeys, or will be
// sorted here) left to right, taking exactly one real lock per distinct
// bucket index among them (§4.6). Wrapped in an EpochGuard acquired inside
// the session; the caller must not already hold one.
func (s *LockableSession[TK, TV]) Lock(ctx context.Context, keys []locking.LockableKey) error {
	sortKeys(keys)
	buckets := s.bucketIndices(keys)
	isRep := representativeSet(buckets)
	return epoch.Enter(s.guard, func() error {
		for i, k := range keys {
			if !isRep[i] {
				continue
			}
			if err := locking.Acquire(ctx, s.lockTbl, k.LockCode, k.LockType); err != nil {
				return err
			}
			s.bumpCount(k.LockType, 1)
			log.Debug("lock acquired", "session", s.id, "lock_code", k.LockCode, "lock_type", k.LockType)
		}
		return nil
	})
}

// Unlock releases keys right to left, but — like Lock — only ever acts at
// the leftmost key of each bucket (the same representative Lock acquired,
// computed identically regardless of iteration direction), so the released
// LockCode/LockType always matches what was actually taken even when a
// bucket's keys mix Exclusive and Shared or aren't adjacent (§4.6).
func (s *LockableSession[TK, TV]) Unlock(ctx context.Context, keys []locking.LockableKey) error {
	sortKeys(keys)
	buckets := s.bucketIndices(keys)
	isRep := representativeSet(buckets)
	return epoch.Enter(s.guard, func() error {
		for i := len(keys) - 1; i >= 0; i-- {
			if !isRep[i] {
				continue
			}
			k := keys[i]
			if err := locking.Release(ctx, s.lockTbl, k.LockCode, k.LockType); err != nil {
				return err
			}
			s.bumpCount(k.LockType, -1)
			log.Debug("lock released", "session", s.id, "lock_code", k.LockCode, "lock_type", k.LockType)
		}
		return nil
	})
}

// bucketIndices precomputes each key's bucket index once, up front, so Lock
// and Unlock can both test "leftmost key of its bucket" without re-querying
// the lock table per comparison.
func (s *LockableSession[TK, TV]) bucketIndices(keys []locking.LockableKey) []uint64 {
	buckets := make([]uint64, len(keys))
	for i, k := range keys {
		buckets[i] = s.lockTbl.BucketIndex(k.LockCode)
	}
	return buckets
}

func (s *LockableSession[TK, TV]) bumpCount(lockType locking.LockType, delta int64) {
	if lockType == locking.Exclusive {
		s.state.exclusiveLockCount = uint64(int64(s.state.exclusiveLockCount) + delta)
	} else {
		s.state.sharedLockCount = uint64(int64(s.state.sharedLockCount) + delta)
	}
}

// Read performs a point read of key, routed through the functions adapter
// under epoch protection (§4.6).
func (s *LockableSession[TK, TV]) Read(ctx context.Context, key TK) error {
	return epoch.Enter(s.guard, func() error {
		return s.routines.Read(ctx, key, s.adapter)
	})
}

// ReadAtAddress performs a point read at a known log address, bypassing
// the index (§4.6).
func (s *LockableSession[TK, TV]) ReadAtAddress(ctx context.Context, address int64) error {
	return epoch.Enter(s.guard, func() error {
		return s.routines.ReadAtAddress(ctx, address, s.adapter)
	})
}

// Upsert installs value for key, routed through the functions adapter
// under epoch protection.
func (s *LockableSession[TK, TV]) Upsert(ctx context.Context, key TK, value TV) error {
	return epoch.Enter(s.guard, func() error {
		return s.routines.Upsert(ctx, key, value, s.adapter)
	})
}

// RMW performs a read-modify-write of key via InitialUpdater/CopyUpdater/
// InPlaceUpdater, routed through the functions adapter under epoch
// protection.
func (s *LockableSession[TK, TV]) RMW(ctx context.Context, key TK) error {
	return epoch.Enter(s.guard, func() error {
		return s.routines.RMW(ctx, key, s.adapter)
	})
}

// Delete marks key as deleted via the functions adapter under epoch
// protection.
func (s *LockableSession[TK, TV]) Delete(ctx context.Context, key TK) error {
	return epoch.Enter(s.guard, func() error {
		return s.routines.Delete(ctx, key, s.adapter)
	})
}

// Refresh lets the session observe store-wide progress (e.g. epoch
// advancement) without a key-bound operation.
func (s *LockableSession[TK, TV]) Refresh(ctx context.Context) error {
	return epoch.Enter(s.guard, func() error {
		return s.routines.Refresh(ctx)
	})
}

// CompletePending drains outstanding asynchronous work the session has
// issued, optionally blocking until all of it completes.
func (s *LockableSession[TK, TV]) CompletePending(ctx context.Context, wait bool) error {
	return epoch.Enter(s.guard, func() error {
		return s.routines.CompletePending(ctx, wait)
	})
}
