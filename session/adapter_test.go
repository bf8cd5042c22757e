package session

import (
	"testing"

	"github.com/sharedcode/lss/locking"
	"github.com/stretchr/testify/assert"
)

type recordingFunctions struct {
	noopFunctions
	concurrentWriterOK bool
	inPlaceUpdaterOK   bool
	deleterOK          bool
	concurrentReaderOK bool
}

func (f recordingFunctions) ConcurrentWriter(string, *string) bool { return f.concurrentWriterOK }
func (f recordingFunctions) InPlaceUpdater(string, *string) bool   { return f.inPlaceUpdaterOK }
func (f recordingFunctions) ConcurrentDeleter(string, *RecordInfo) bool {
	return f.deleterOK
}
func (f recordingFunctions) ConcurrentReader(string, *string, *RecordInfo) bool {
	return f.concurrentReaderOK
}

// TestConcurrentWriterMarksDirtyModified pins §4.7: a successful
// ConcurrentWriter sets dirty and modified on the record.
func TestConcurrentWriterMarksDirtyModified(t *testing.T) {
	a := newAdapter[string, string](recordingFunctions{concurrentWriterOK: true})
	info := &RecordInfo{Valid: true}
	v := "x"
	ok := a.ConcurrentWriterWithInfo("k", &v, info)
	assert.True(t, ok)
	assert.True(t, info.Dirty)
	assert.True(t, info.Modified)
}

func TestInPlaceUpdaterMarksDirtyModifiedOnlyOnSuccess(t *testing.T) {
	a := newAdapter[string, string](recordingFunctions{inPlaceUpdaterOK: false})
	info := &RecordInfo{Valid: true}
	v := "x"
	ok := a.InPlaceUpdaterWithInfo("k", &v, info)
	assert.False(t, ok)
	assert.False(t, info.Dirty)
	assert.False(t, info.Modified)
}

// TestConcurrentDeleterMarksTombstone pins §4.7: a successful
// ConcurrentDeleter additionally sets tombstone.
func TestConcurrentDeleterMarksTombstone(t *testing.T) {
	a := newAdapter[string, string](recordingFunctions{deleterOK: true})
	info := &RecordInfo{Valid: true}
	ok := a.ConcurrentDeleter("k", info)
	assert.True(t, ok)
	assert.True(t, info.Tombstone)
	assert.True(t, info.Dirty)
	assert.True(t, info.Modified)
}

// TestConcurrentReaderRefusesSealedOrInvalid pins §4.7.
func TestConcurrentReaderRefusesSealedOrInvalid(t *testing.T) {
	a := newAdapter[string, string](recordingFunctions{concurrentReaderOK: true})
	v := "x"

	sealed := &RecordInfo{Valid: true, Sealed: true}
	assert.False(t, a.ConcurrentReader("k", &v, sealed))

	invalid := &RecordInfo{Valid: false}
	assert.False(t, a.ConcurrentReader("k", &v, invalid))

	live := &RecordInfo{Valid: true}
	assert.True(t, a.ConcurrentReader("k", &v, live))
}

// TestEphemeralLockingDisabledInLockableMode pins §4.7: while lockableMode
// is set and no heldCheck is wired, AcquireLock reports success and
// ReleaseLock returns without panicking.
func TestEphemeralLockingDisabledInLockableMode(t *testing.T) {
	a := newAdapter[string, string](noopFunctions{})
	assert.True(t, a.AcquireLock("k", locking.Exclusive))
	a.ReleaseLock("k", locking.Exclusive) // must not panic or delegate
}

// TestAcquireLockPanicsWhenHeldCheckFails pins §4.7/§7: a wired heldCheck
// that reports the key is not actually held is a LockProtocol violation,
// fatal in this lockable-mode assertion.
func TestAcquireLockPanicsWhenHeldCheckFails(t *testing.T) {
	a := newAdapter[string, string](noopFunctions{})
	a.heldCheck = func(key string, lockType locking.LockType) bool { return false }
	assert.Panics(t, func() { a.AcquireLock("k", locking.Exclusive) })
}

func TestAcquireLockSucceedsWhenHeldCheckPasses(t *testing.T) {
	a := newAdapter[string, string](noopFunctions{})
	a.heldCheck = func(key string, lockType locking.LockType) bool { return true }
	assert.True(t, a.AcquireLock("k", locking.Exclusive))
}

func TestCheckpointCompletionCallbackRecordsCommitPoint(t *testing.T) {
	a := newAdapter[string, string](noopFunctions{})
	var cp int64
	a.commitPoint = &cp
	a.CheckpointCompletionCallback(42)
	assert.Equal(t, int64(42), cp)
}
