package abd

import "github.com/abdsys/abd/internal/memgather"

// aiter is a cursor over a Handle's logical byte range, used internally by
// the iterate/copy/compare family to walk across chunk boundaries (or, for
// a linear Handle, to walk a single contiguous region) without the caller
// needing to know which storage variant it is dealing with.
type aiter struct {
	h   *Handle
	pos int
}

// mapRegion returns a slice of up to remaining bytes starting at the
// cursor's current position, never crossing a chunk boundary on the
// scattered path. The caller advances the cursor by len(result) once it
// has consumed the region.
func (c *aiter) mapRegion(remaining int) []byte {
	h := c.h
	if h.flags.has(FlagLinear) {
		end := minInt(c.pos+remaining, h.size)
		return h.linearBuf[c.pos:end]
	}

	absolute := h.scatterOffset + c.pos
	chunkIdx := absolute / h.chunkSize
	inChunk := absolute % h.chunkSize
	avail := h.chunkSize - inChunk
	n := minInt(avail, remaining)
	n = minInt(n, h.size-c.pos)
	return h.chunks[chunkIdx][inChunk : inChunk+n]
}

func (c *aiter) advance(n int) { c.pos += n }

// IterateFunc walks h[off:off+size) chunk by chunk (a single call for a
// linear Handle), calling fn with each contiguous region in turn. fn
// returns 0 to continue or any other value to stop; that value is
// propagated back to the caller verbatim. IterateFunc returns 0 if fn
// never returns non-zero.
func (h *Handle) IterateFunc(off, size int, fn func(chunk []byte) int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertValidLocked()
	if off < 0 || size < 0 || off+size > h.size {
		panic("abd: IterateFunc: range out of bounds")
	}

	c := aiter{h: h, pos: off}
	remaining := size
	for remaining > 0 {
		region := c.mapRegion(remaining)
		if len(region) == 0 {
			break
		}
		if rc := fn(region); rc != 0 {
			return rc
		}
		c.advance(len(region))
		remaining -= len(region)
	}
	return 0
}

// IterateFunc2 is IterateFunc over two Handles at once: dst[doff:doff+size)
// and src[soff:soff+size), calling fn with same-length regions from each.
// dst and src are locked in pointer order (not declaration order), so two
// concurrent IterateFunc2 calls over the same pair of Handles never
// deadlock regardless of which is named dst and which src.
func IterateFunc2(dst, src *Handle, doff, soff, size int, fn func(dstChunk, srcChunk []byte) int) int {
	unlock := lockPair(dst, src)
	defer unlock()
	dst.assertValidLocked()
	src.assertValidLocked()
	if doff < 0 || size < 0 || doff+size > dst.size {
		panic("abd: IterateFunc2: dst range out of bounds")
	}
	if soff < 0 || soff+size > src.size {
		panic("abd: IterateFunc2: src range out of bounds")
	}

	dc := aiter{h: dst, pos: doff}
	sc := aiter{h: src, pos: soff}
	remaining := size
	for remaining > 0 {
		dRegion := dc.mapRegion(remaining)
		sRegion := sc.mapRegion(remaining)
		n := minInt(len(dRegion), len(sRegion))
		if n == 0 {
			break
		}
		if rc := fn(dRegion[:n], sRegion[:n]); rc != 0 {
			return rc
		}
		dc.advance(n)
		sc.advance(n)
		remaining -= n
	}
	return 0
}

// copyToBufOffLocked copies h[off:off+size) into dst[0:size). Caller must
// hold h.mu.
func (h *Handle) copyToBufOffLocked(dst []byte, off, size int) {
	written := 0
	c := aiter{h: h, pos: off}
	remaining := size
	for remaining > 0 {
		region := c.mapRegion(remaining)
		copy(dst[written:], region)
		written += len(region)
		c.advance(len(region))
		remaining -= len(region)
	}
}

// copyFromBufOffLocked copies src[0:size) into h[off:off+size). Caller
// must hold h.mu.
func (h *Handle) copyFromBufOffLocked(src []byte, off, size int) {
	read := 0
	c := aiter{h: h, pos: off}
	remaining := size
	for remaining > 0 {
		region := c.mapRegion(remaining)
		copy(region, src[read:])
		read += len(region)
		c.advance(len(region))
		remaining -= len(region)
	}
}

// cmpBufOffLocked returns the sign-preserving byte-compare result (as
// bytes.Compare would) of h[off:off+size) against other[0:size). Caller
// must hold h.mu. Built on the same memgather.View machinery DebugGather
// uses, so a scattered Handle is compared without copying its chunks.
func (h *Handle) cmpBufOffLocked(other []byte, off, size int) int {
	if len(other) > size {
		other = other[:size]
	}
	return h.gatherLocked(off, size).Compare(memgather.New(other))
}

func (h *Handle) zeroOffLocked(off, size int) {
	c := aiter{h: h, pos: off}
	remaining := size
	for remaining > 0 {
		region := c.mapRegion(remaining)
		for i := range region {
			region[i] = 0
		}
		c.advance(len(region))
		remaining -= len(region)
	}
}

// CopyToBuf copies all of h into dst[0:h.Len()).
func (h *Handle) CopyToBuf(dst []byte) { h.CopyToBufOff(dst, 0, h.Len()) }

// CopyToBufOff copies h[off:off+size) into dst[0:size).
func (h *Handle) CopyToBufOff(dst []byte, off, size int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertValidLocked()
	if off < 0 || size < 0 || off+size > h.size {
		panic("abd: CopyToBufOff: range out of bounds")
	}
	h.copyToBufOffLocked(dst, off, size)
}

// CopyFromBuf copies src[0:h.Len()) into all of h.
func (h *Handle) CopyFromBuf(src []byte) { h.CopyFromBufOff(src, 0, h.Len()) }

// CopyFromBufOff copies src[0:size) into h[off:off+size).
func (h *Handle) CopyFromBufOff(src []byte, off, size int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertValidLocked()
	if off < 0 || size < 0 || off+size > h.size {
		panic("abd: CopyFromBufOff: range out of bounds")
	}
	h.copyFromBufOffLocked(src, off, size)
}

// CmpBuf compares all of h against other, which must have length h.Len().
func (h *Handle) CmpBuf(other []byte) int { return h.CmpBufOff(other, 0, h.Len()) }

// CmpBufOff compares h[off:off+size) against other[0:size), returning -1,
// 0 or 1 as bytes.Compare would.
func (h *Handle) CmpBufOff(other []byte, off, size int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertValidLocked()
	if off < 0 || size < 0 || off+size > h.size {
		panic("abd: CmpBufOff: range out of bounds")
	}
	return h.cmpBufOffLocked(other, off, size)
}

// Cmp compares a and b byte by byte up to their shorter length, returning
// -1, 0 or 1; if one is a prefix of the other, the shorter is considered
// smaller, matching bytes.Compare's contract. Gathers each Handle into a
// memgather.View rather than walking chunk cursors directly, so a
// scattered Handle never has its bytes copied just to be compared. a and b
// must be distinct Handles: like IterateFunc2, Cmp locks both through
// lockPair, which panics when they are the same Handle.
func Cmp(a, b *Handle) int {
	unlock := lockPair(a, b)
	defer unlock()
	a.assertValidLocked()
	b.assertValidLocked()

	return a.gatherLocked(0, a.size).Compare(b.gatherLocked(0, b.size))
}

// Zero zeroes all of h.
func (h *Handle) Zero() { h.ZeroOff(0, h.Len()) }

// ZeroOff zeroes h[off:off+size).
func (h *Handle) ZeroOff(off, size int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertValidLocked()
	if off < 0 || size < 0 || off+size > h.size {
		panic("abd: ZeroOff: range out of bounds")
	}
	h.zeroOffLocked(off, size)
}

// CopyOff copies size bytes from src[soff:soff+size) into
// dst[doff:doff+size), dispatching per chunk on both sides via
// IterateFunc2.
func CopyOff(dst, src *Handle, doff, soff, size int) {
	IterateFunc2(dst, src, doff, soff, size, func(dstChunk, srcChunk []byte) int {
		copy(dstChunk, srcChunk)
		return 0
	})
}

// Len returns h's size in bytes.
func (h *Handle) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}
