package session

import "github.com/sharedcode/lss/locking"

// adapter wraps a user Functions implementation and injects the
// store-mandated metadata side effects of §4.7. It implements Functions
// itself so store routines never see the difference.
type adapter[TK any, TV any] struct {
	inner        Functions[TK, TV]
	lockableMode bool
	heldCheck    func(key TK, lockType locking.LockType) bool
	commitPoint  *int64
}

func newAdapter[TK any, TV any](inner Functions[TK, TV]) *adapter[TK, TV] {
	return &adapter[TK, TV]{inner: inner, lockableMode: true}
}

func (a *adapter[TK, TV]) SingleReader(key TK, value *TV) bool {
	return a.inner.SingleReader(key, value)
}

// ConcurrentReader refuses stale reads: a sealed or invalid record must not
// be observed by a concurrent reader (§4.7).
func (a *adapter[TK, TV]) ConcurrentReader(key TK, value *TV, info *RecordInfo) bool {
	if !info.ReadableByConcurrentReader() {
		return false
	}
	return a.inner.ConcurrentReader(key, value, info)
}

func (a *adapter[TK, TV]) SingleWriter(key TK, value *TV) bool {
	return a.inner.SingleWriter(key, value)
}

func (a *adapter[TK, TV]) PostSingleWriter(key TK, value *TV) {
	a.inner.PostSingleWriter(key, value)
}

func (a *adapter[TK, TV]) ConcurrentWriter(key TK, value *TV) bool {
	ok := a.inner.ConcurrentWriter(key, value)
	return ok
}

// ConcurrentWriterWithInfo is invoked by store routines that hold the
// record's metadata alongside the value, so the mandated dirty/modified
// side effect (§4.7) can be applied on success.
func (a *adapter[TK, TV]) ConcurrentWriterWithInfo(key TK, value *TV, info *RecordInfo) bool {
	ok := a.inner.ConcurrentWriter(key, value)
	if ok {
		info.MarkWritten()
	}
	return ok
}

func (a *adapter[TK, TV]) InitialUpdater(key TK, value *TV) bool {
	return a.inner.InitialUpdater(key, value)
}

func (a *adapter[TK, TV]) PostInitialUpdater(key TK, value *TV) {
	a.inner.PostInitialUpdater(key, value)
}

func (a *adapter[TK, TV]) CopyUpdater(key TK, oldValue TV, newValue *TV) bool {
	return a.inner.CopyUpdater(key, oldValue, newValue)
}

func (a *adapter[TK, TV]) PostCopyUpdater(key TK, value *TV) {
	a.inner.PostCopyUpdater(key, value)
}

func (a *adapter[TK, TV]) InPlaceUpdater(key TK, value *TV) bool {
	return a.inner.InPlaceUpdater(key, value)
}

// InPlaceUpdaterWithInfo applies the mandated dirty/modified side effect on
// a successful in-place update (§4.7).
func (a *adapter[TK, TV]) InPlaceUpdaterWithInfo(key TK, value *TV, info *RecordInfo) bool {
	ok := a.inner.InPlaceUpdater(key, value)
	if ok {
		info.MarkWritten()
	}
	return ok
}

func (a *adapter[TK, TV]) SingleDeleter(key TK) bool {
	return a.inner.SingleDeleter(key)
}

func (a *adapter[TK, TV]) ConcurrentDeleter(key TK, info *RecordInfo) bool {
	ok := a.inner.ConcurrentDeleter(key, info)
	if ok {
		info.MarkDeleted()
	}
	return ok
}

func (a *adapter[TK, TV]) DisposeSingle(value TV)     { a.inner.DisposeSingle(value) }
func (a *adapter[TK, TV]) DisposeConcurrent(value TV) { a.inner.DisposeConcurrent(value) }

// AcquireLock and ReleaseLock disable ephemeral locking in lockable mode:
// AcquireLock asserts the key is already held in the required mode (via
// heldCheck, when wired) and reports success only when that assertion
// holds (§4.7); ReleaseLock simply returns without checking anything.
// A failing assertion here means a store routine reached a record without
// the session having taken the corresponding two-phase lock — a
// LockProtocol violation, fatal per §7.
func (a *adapter[TK, TV]) AcquireLock(key TK, lockType locking.LockType) bool {
	if a.lockableMode {
		if a.heldCheck != nil && !a.heldCheck(key, lockType) {
			panic("lss/session: key not held under the required lock type in lockable mode")
		}
		return true
	}
	return a.inner.AcquireLock(key, lockType)
}

func (a *adapter[TK, TV]) ReleaseLock(key TK, lockType locking.LockType) {
	if a.lockableMode {
		return
	}
	a.inner.ReleaseLock(key, lockType)
}

func (a *adapter[TK, TV]) CompletionCallback(key TK, value TV, userCtx any) {
	a.inner.CompletionCallback(key, value, userCtx)
}

// CheckpointCompletionCallback additionally records the latest commit point
// on the owning session (§4.7).
func (a *adapter[TK, TV]) CheckpointCompletionCallback(commitPoint int64) {
	if a.commitPoint != nil {
		*a.commitPoint = commitPoint
	}
	a.inner.CheckpointCompletionCallback(commitPoint)
}
