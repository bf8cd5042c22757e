// Package session implements the LockableSession façade (§4.6) and the
// FunctionsPipeline adapter (§4.7): per-session two-phase manual locking
// over sorted key slices, routed through epoch protection, driving record
// lifecycle hooks that the adapter layer wires to store-mandated metadata
// side effects.
package session

// RecordInfo is the mutable per-record metadata of §3: a sealed or invalid
// record is skipped by concurrent readers; a deleted record has tombstone
// set and is also dirty+modified.
type RecordInfo struct {
	Valid     bool
	Sealed    bool
	Tombstone bool
	Dirty     bool
	Modified  bool
}

// MarkWritten sets dirty+modified, the side effect required after every
// successful writer/updater/in-place-updater hook (§4.7).
func (r *RecordInfo) MarkWritten() {
	r.Dirty = true
	r.Modified = true
}

// MarkDeleted sets tombstone in addition to dirty+modified, the side
// effect required after a successful ConcurrentDeleter (§4.7).
func (r *RecordInfo) MarkDeleted() {
	r.MarkWritten()
	r.Tombstone = true
}

// ReadableByConcurrentReader reports whether a concurrent reader may
// observe this record: sealed or invalid records are skipped (§3, §4.7).
func (r *RecordInfo) ReadableByConcurrentReader() bool {
	return r.Valid && !r.Sealed
}
