package fs

import (
	"sync"
)

// segmentPools is the (ReadPool, WritePool) pair addressed by a segment id
// (§3 SegmentTable).
type segmentPools struct {
	read  *HandlePool
	write *HandlePool
}

func (sp *segmentPools) disposeBoth() {
	sp.read.Dispose()
	sp.write.Dispose()
}

// SegmentTable maps segment_id to its (ReadPool, WritePool) pair. Keys are
// unique; concurrent getOrAdd calls for the same id yield exactly one pair
// (the loser of the race discards its builder) (§3).
type SegmentTable struct {
	mu       sync.Mutex
	segments map[int64]*segmentPools
	disposed bool
}

// NewSegmentTable constructs an empty SegmentTable.
func NewSegmentTable() *SegmentTable {
	return &SegmentTable{segments: make(map[int64]*segmentPools)}
}

// getOrAdd returns the existing pools for segmentID, or builds a new pair
// via build and installs it if none exists yet. If the table has been
// disposed, it is rejected outright rather than mixing teardown with
// construction (§9 Open Question (b) resolution: atomically reject
// insertion after dispose rather than disposing everything and returning
// the just-built pair).
func (st *SegmentTable) getOrAdd(segmentID int64, build func() *segmentPools) (*segmentPools, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.disposed {
		return nil, false
	}
	if sp, ok := st.segments[segmentID]; ok {
		return sp, true
	}
	sp := build()
	st.segments[segmentID] = sp
	return sp, true
}

// remove disposes and removes a single segment's pools, if present.
func (st *SegmentTable) remove(segmentID int64) {
	st.mu.Lock()
	sp, ok := st.segments[segmentID]
	if ok {
		delete(st.segments, segmentID)
	}
	st.mu.Unlock()
	if ok {
		sp.disposeBoth()
	}
}

// reset disposes every segment's pools and clears the table, but leaves it
// usable for subsequent getOrAdd calls (§4.3 device reset()).
func (st *SegmentTable) reset() {
	st.mu.Lock()
	segments := st.segments
	st.segments = make(map[int64]*segmentPools)
	st.mu.Unlock()
	for _, sp := range segments {
		sp.disposeBoth()
	}
}

// dispose permanently disposes every segment's pools and rejects further
// insertion.
func (st *SegmentTable) dispose() {
	st.mu.Lock()
	st.disposed = true
	segments := st.segments
	st.segments = nil
	st.mu.Unlock()
	for _, sp := range segments {
		sp.disposeBoth()
	}
}

// ids returns the currently known segment ids, so Reset and Dispose can
// delete their files.
func (st *SegmentTable) ids() []int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	ids := make([]int64, 0, len(st.segments))
	for id := range st.segments {
		ids = append(ids, id)
	}
	return ids
}
