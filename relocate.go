package abd

import (
	"time"

	"github.com/abdsys/abd/abdstats"
	"github.com/abdsys/abd/internal/genset"
)

// AssertYoungHandleNotMoved gates a tripwire: TryMove panics if called on
// an owning Handle younger than five minutes. It exists to catch a
// relocator that races a fresh allocation before any caller had a chance
// to pin it, not to express a correctness requirement, so it defaults on
// but can be disabled by a consumer that doesn't want it (for example in a
// build with a much shorter allocation-to-relocation window by design).
var AssertYoungHandleNotMoved = true

const youngHandleWindow = 5 * time.Minute

// TryMove relocates h's backing storage in place: a fresh buffer (or, for
// a scattered Handle, a fresh set of chunks) replaces the old one, and the
// old storage is returned to its pool. The Handle's identity, size and
// logical contents are unchanged; only the physical storage moves.
//
// TryMove only takes h's own lock, never a parent's or a child's, so a
// relocator can run concurrently with unrelated Handles' iterator/borrow
// traffic. It returns false, without panicking, whenever relocation is
// merely inapplicable right now (h is pinned, or has live children or
// borrows); it panics for things that are always programmer error
// (attempting to move a view, or moving a too-young Handle when the
// tripwire is enabled).
func (h *Handle) TryMove() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertValidLocked()

	if !h.flags.has(FlagOwner) || h.parent != nil {
		panic("abd: TryMove: Handle is not an owning root")
	}

	if h.flags.has(FlagNoMove) {
		h.sys.stats.Inc(abdstats.MoveToBufFlagFail)
		return false
	}
	if h.childRefcount > 0 {
		h.sys.stats.Inc(abdstats.MoveRefcountNonzero)
		return false
	}

	if AssertYoungHandleNotMoved && time.Since(h.createTime) < youngHandleWindow {
		panic("abd: TryMove: Handle is too young to relocate")
	}

	if h.flags.has(FlagLinear) {
		h.relocateLinear()
	} else {
		h.relocateScattered()
	}
	h.createTime = time.Now()
	return true
}

func (h *Handle) relocateLinear() {
	var newBuf []byte
	if h.flags.has(FlagMeta) {
		newBuf = h.sys.raw.MetaAlloc(h.size)
	} else {
		newBuf = h.sys.raw.DataAlloc(h.size)
	}
	copy(newBuf, h.linearBuf)

	old := h.linearBuf
	h.linearBuf = newBuf
	if h.flags.has(FlagMeta) {
		h.sys.raw.MetaFree(old)
	} else {
		h.sys.raw.DataFree(old)
	}
	h.sys.stats.Inc(abdstats.MovedLinear)
}

func (h *Handle) relocateScattered() {
	h.chunks = genset.SliceMap(h.chunks, func(old []byte) []byte {
		newChunk := h.sys.chunks.AllocChunk()
		if newChunk == nil {
			panic("abd: TryMove: ChunkPool exhausted during relocation")
		}
		copy(newChunk, old)
		h.sys.chunks.FreeChunkToSlab(old)
		return newChunk
	})

	if h.flags.has(FlagMeta) {
		h.sys.stats.Inc(abdstats.MovedScatteredMetadata)
	} else {
		h.sys.stats.Inc(abdstats.MovedScatteredFiledata)
	}
}
