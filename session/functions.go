package session

import "github.com/sharedcode/lss/locking"

// Functions is the strategy object invoked at well-defined record
// lifecycle points (§4.7), monomorphized on the concrete key/value types
// per §9's static-polymorphism note so dispatch stays inlineable — no
// interface-method indirection beyond the single generic instantiation.
type Functions[TK any, TV any] interface {
	// SingleReader is used when there is no contention; ConcurrentReader
	// is used under a shared lock and must itself refuse stale reads.
	SingleReader(key TK, value *TV) bool
	ConcurrentReader(key TK, value *TV, info *RecordInfo) bool

	// SingleWriter/ConcurrentWriter install a fresh value; Post* hooks run
	// after a successful write. The Post* hooks carry no RecordInfo, so the
	// adapter forwards them unchanged and applies no metadata side effect
	// there; dirty/modified is set only through the adapter's *WithInfo
	// variants and ConcurrentDeleter.
	SingleWriter(key TK, value *TV) bool
	PostSingleWriter(key TK, value *TV)
	ConcurrentWriter(key TK, value *TV) bool

	// InitialUpdater creates a value where none existed; CopyUpdater
	// produces a new record from an existing one (copy-on-write);
	// InPlaceUpdater mutates in place. Each Post* hook runs after success.
	InitialUpdater(key TK, value *TV) bool
	PostInitialUpdater(key TK, value *TV)
	CopyUpdater(key TK, oldValue TV, newValue *TV) bool
	PostCopyUpdater(key TK, value *TV)
	InPlaceUpdater(key TK, value *TV) bool

	SingleDeleter(key TK) bool
	ConcurrentDeleter(key TK, info *RecordInfo) bool

	DisposeSingle(value TV)
	DisposeConcurrent(value TV)

	// AcquireLock/ReleaseLock implement ephemeral (transient) record
	// locking used outside lockable sessions; the adapter disables them in
	// lockable mode (§4.7).
	AcquireLock(key TK, lockType locking.LockType) bool
	ReleaseLock(key TK, lockType locking.LockType)

	CompletionCallback(key TK, value TV, userCtx any)
	CheckpointCompletionCallback(commitPoint int64)
}
