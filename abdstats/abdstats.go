// Package abdstats implements the named-counter statistics registry that
// spec.md §6 requires: a fixed set of 64-bit counters, updated with relaxed
// atomic adds, individually monotonic where the spec says so, advisory
// rather than transactionally consistent with each other.
package abdstats

import (
	"sync/atomic"

	"github.com/abdsys/abd/internal/genset"
)

// Names of the counters exposed by spec.md §6. Kept as the registered name
// so a snapshot's keys match the spec text verbatim.
const (
	StructSize             = "struct_size"
	ScatterCnt             = "scatter_cnt"
	ScatterDataSize        = "scatter_data_size"
	ScatterChunkWaste      = "scatter_chunk_waste"
	LinearCnt              = "linear_cnt"
	LinearDataSize         = "linear_data_size"
	LinearFiledataCnt      = "linear_filedata_cnt"
	LinearMetadataCnt      = "linear_metadata_cnt"
	ScatteredFiledataCnt   = "scattered_filedata_cnt"
	ScatteredMetadataCnt   = "scattered_metadata_cnt"
	SmallScatterCnt        = "small_scatter_cnt"
	BorrowedBufs           = "borrowed_bufs"
	MoveRefcountNonzero    = "move_refcount_nonzero"
	MovedLinear            = "moved_linear"
	MovedScatteredFiledata = "moved_scattered_filedata"
	MovedScatteredMetadata = "moved_scattered_metadata"
	MoveToBufFlagFail      = "move_to_buf_flag_fail"
)

// allNames is the fixed, ordered set of counters a Registry tracks. Using an
// OrderedSet (rather than letting Bump register unknown names on the fly)
// keeps Snapshot's output stable and keeps a typo in a counter name from
// silently creating a new, never-reported counter.
var allNames = genset.NewOrderedSet(
	StructSize, ScatterCnt, ScatterDataSize, ScatterChunkWaste,
	LinearCnt, LinearDataSize, LinearFiledataCnt, LinearMetadataCnt,
	ScatteredFiledataCnt, ScatteredMetadataCnt, SmallScatterCnt,
	BorrowedBufs, MoveRefcountNonzero, MovedLinear,
	MovedScatteredFiledata, MovedScatteredMetadata, MoveToBufFlagFail,
)

// Registry holds one atomic counter per name in allNames.
type Registry struct {
	counters map[string]*int64
}

// New creates a Registry with every counter initialized to zero.
func New() *Registry {
	r := &Registry{counters: make(map[string]*int64, len(allNames))}
	for _, name := range allNames.AsSlice() {
		var v int64
		r.counters[name] = &v
	}
	return r
}

// Add adds delta (which may be negative, e.g. scatter_chunk_waste's
// per-free adjustment) to the named counter. Panics if name was not
// registered at construction time — a coding error, not a runtime
// condition.
func (r *Registry) Add(name string, delta int64) {
	counter, ok := r.counters[name]
	if !ok {
		panic("abdstats: unknown counter " + name)
	}
	atomic.AddInt64(counter, delta)
}

// Inc is shorthand for Add(name, 1).
func (r *Registry) Inc(name string) { r.Add(name, 1) }

// Dec is shorthand for Add(name, -1).
func (r *Registry) Dec(name string) { r.Add(name, -1) }

// Get returns the current value of the named counter.
func (r *Registry) Get(name string) int64 {
	counter, ok := r.counters[name]
	if !ok {
		panic("abdstats: unknown counter " + name)
	}
	return atomic.LoadInt64(counter)
}

// Snapshot returns every counter's current value, keyed by name.
func (r *Registry) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(r.counters))
	for _, name := range allNames.AsSlice() {
		out[name] = r.Get(name)
	}
	return out
}

// Names returns the registered counter names in sorted order.
func (r *Registry) Names() []string {
	return allNames.AsSlice()
}
