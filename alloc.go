package abd

import (
	"fmt"

	"github.com/abdsys/abd/abdstats"
)

// Alloc allocates a Handle of size bytes, scattered across chunks drawn
// from the System's ChunkPool if s.ScatterEnabled(), linear otherwise.
// isMetadata routes accounting (and, for linear storage, the backing pool
// call) to the metadata side rather than the file-data side.
func (s *System) Alloc(size int, isMetadata bool) *Handle {
	if !s.ScatterEnabled() {
		return s.AllocLinear(size, isMetadata)
	}
	return s.allocScattered(size, isMetadata)
}

// allocScattered is Alloc's scattered path, factored out so AllocSameType
// can reach it directly without touching the scatter_enabled switch (which
// is shared, process-wide state that a same-type allocation on one goroutine
// must not perturb for another).
func (s *System) allocScattered(size int, isMetadata bool) *Handle {
	if size <= 0 || size > s.maxBlockSize {
		panic(fmt.Sprintf("abd: Alloc: size %d out of range (0, %d]", size, s.maxBlockSize))
	}

	n := ceilDiv(size, s.chunkSize)
	chunks := make([][]byte, n)
	for i := 0; i < n; i++ {
		c := s.chunks.AllocChunk()
		if c == nil {
			panic("abd: Alloc: ChunkPool exhausted")
		}
		chunks[i] = c
	}

	flags := FlagOwner
	if isMetadata {
		flags |= FlagMeta
	}
	if size < s.chunkSize {
		flags |= FlagSmall
	}

	h := s.newHandle(size, flags)
	h.chunkSize = s.chunkSize
	h.chunks = chunks

	s.stats.Inc(abdstats.ScatterCnt)
	s.stats.Add(abdstats.ScatterDataSize, int64(size))
	s.stats.Add(abdstats.ScatterChunkWaste, int64(n*s.chunkSize-size))
	if isMetadata {
		s.stats.Inc(abdstats.ScatteredMetadataCnt)
	} else {
		s.stats.Inc(abdstats.ScatteredFiledataCnt)
	}
	if flags.has(FlagSmall) {
		s.stats.Inc(abdstats.SmallScatterCnt)
	}
	return h
}

// AllocLinear allocates a Handle of size bytes backed by one contiguous
// buffer drawn from the System's RawPool, bypassing scatter_enabled
// entirely.
func (s *System) AllocLinear(size int, isMetadata bool) *Handle {
	if size <= 0 || size > s.maxBlockSize {
		panic(fmt.Sprintf("abd: AllocLinear: size %d out of range (0, %d]", size, s.maxBlockSize))
	}

	var buf []byte
	if isMetadata {
		buf = s.raw.MetaAlloc(size)
	} else {
		buf = s.raw.DataAlloc(size)
	}

	flags := FlagLinear | FlagOwner
	if isMetadata {
		flags |= FlagMeta
	}

	h := s.newHandle(size, flags)
	h.linearBuf = buf

	s.stats.Inc(abdstats.LinearCnt)
	s.stats.Add(abdstats.LinearDataSize, int64(size))
	if isMetadata {
		s.stats.Inc(abdstats.LinearMetadataCnt)
	} else {
		s.stats.Inc(abdstats.LinearFiledataCnt)
	}
	return h
}

// AllocSameType allocates a new root Handle of size bytes using the same
// storage variant (linear or scattered) and the same metadata/file-data
// classification as source, regardless of the System's current
// scatter_enabled setting.
func (s *System) AllocSameType(source *Handle, size int) *Handle {
	source.mu.Lock()
	source.assertValidLocked()
	isLinear := source.flags.has(FlagLinear)
	isMeta := source.flags.has(FlagMeta)
	source.mu.Unlock()

	if isLinear {
		return s.AllocLinear(size, isMeta)
	}
	return s.allocScattered(size, isMeta)
}

// AllocForIO allocates a Handle sized and typed for a single I/O
// operation. It is identical to Alloc; the distinction spec.md draws is
// call-site intent (a transient buffer for one read/write), not a
// different allocation policy.
func (s *System) AllocForIO(size int, isMetadata bool) *Handle {
	return s.Alloc(size, isMetadata)
}

// GetFromBuf wraps an existing, externally-owned buffer as a linear,
// non-owning root Handle. The Handle starts out pinned against TryMove
// (FlagNoMove), since buf's lifetime is not under this System's control.
// The pin is the same flag views and borrows set: Put of the Handle's last
// view, or return of its last borrow, clears it.
func (s *System) GetFromBuf(buf []byte) *Handle {
	h := s.newHandle(len(buf), FlagLinear|FlagNoMove)
	h.linearBuf = buf
	return h
}

// GetOffset returns a zero-copy view of source[off:source.Len()).
func (h *Handle) GetOffset(off int) *Handle {
	h.mu.Lock()
	h.assertValidLocked()
	size := h.size - off
	h.mu.Unlock()
	return h.GetOffsetSize(off, size)
}

// GetOffsetSize returns a zero-copy view of source[off:off+size). The
// parent is pinned against TryMove (FlagNoMove) for as long as any view
// survives; the view shares the parent's backing storage directly.
func (h *Handle) GetOffsetSize(off, size int) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertValidLocked()

	if off < 0 || size <= 0 || off+size > h.size {
		panic(fmt.Sprintf("abd: GetOffsetSize: range [%d, %d) out of bounds for size %d", off, off+size, h.size))
	}

	view := h.sys.newHandle(size, FlagNoMove)
	view.parent = h

	if h.flags.has(FlagLinear) {
		view.flags |= FlagLinear
		view.linearBuf = h.linearBuf[off : off+size]
	} else {
		view.chunkSize = h.chunkSize
		absolute := h.scatterOffset + off
		startChunk := absolute / h.chunkSize
		endChunk := ceilDiv(absolute+size, h.chunkSize)
		view.scatterOffset = absolute % h.chunkSize
		view.chunks = h.chunks[startChunk:endChunk]
	}

	h.flags |= FlagNoMove
	h.childRefcount += size
	return view
}

// Free releases h's backing storage. h must be an owning root Handle
// (FlagOwner set, no parent) with no live children or outstanding borrows
// (child_refcount == 0); freeing a Handle that still has either is an
// invariant violation, not a recoverable error, since it would leave a
// view or a borrower holding a dangling reference.
func (h *Handle) Free() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertValidLocked()

	if !h.flags.has(FlagOwner) || h.parent != nil {
		panic("abd: Free: Handle is not an owning root")
	}
	if h.childRefcount > 0 {
		panic(fmt.Sprintf("abd: Free: Handle has live children or borrows (child_refcount=%d)", h.childRefcount))
	}

	stats := h.sys.stats
	if h.flags.has(FlagLinear) {
		if h.flags.has(FlagMeta) {
			h.sys.raw.MetaFree(h.linearBuf)
			stats.Dec(abdstats.LinearMetadataCnt)
		} else {
			h.sys.raw.DataFree(h.linearBuf)
			stats.Dec(abdstats.LinearFiledataCnt)
		}
		stats.Dec(abdstats.LinearCnt)
		stats.Add(abdstats.LinearDataSize, -int64(h.size))
	} else {
		for _, c := range h.chunks {
			h.sys.chunks.FreeChunk(c)
		}
		n := len(h.chunks)
		stats.Add(abdstats.ScatterChunkWaste, -int64(n*h.chunkSize-h.size))
		if h.flags.has(FlagMeta) {
			stats.Dec(abdstats.ScatteredMetadataCnt)
		} else {
			stats.Dec(abdstats.ScatteredFiledataCnt)
		}
		if h.flags.has(FlagSmall) {
			stats.Dec(abdstats.SmallScatterCnt)
		}
		stats.Dec(abdstats.ScatterCnt)
		stats.Add(abdstats.ScatterDataSize, -int64(h.size))
	}

	h.flags |= FlagNoMove
	h.linearBuf = nil
	h.chunks = nil
}

// Put releases a view obtained from GetOffset/GetOffsetSize. It does not
// release any backing storage; that happens when the root owner is freed.
// Put takes the view's lock first and releases it before touching the
// parent, matching the canonical child-then-parent lock order.
func (h *Handle) Put() {
	h.mu.Lock()
	h.assertValidLocked()
	if h.flags.has(FlagOwner) {
		h.mu.Unlock()
		panic("abd: Put: Handle is an owner, not a view")
	}
	parent := h.parent
	if parent == nil {
		h.mu.Unlock()
		panic("abd: Put: Handle has no parent")
	}
	size := h.size
	h.magic = 0 // views are single-use; a second Put on the same view is a bug
	h.mu.Unlock()

	parent.mu.Lock()
	parent.childRefcount -= size
	if parent.childRefcount < 0 {
		parent.mu.Unlock()
		panic("abd: Put: parent child_refcount went negative")
	}
	if parent.childRefcount == 0 && !parent.toBufPinned {
		parent.flags &^= FlagNoMove
	}
	parent.mu.Unlock()
}
