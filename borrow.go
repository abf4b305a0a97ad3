package abd

import (
	"fmt"

	"github.com/abdsys/abd/abdstats"
)

// BorrowBuf lends out a flat []byte view of h's first n bytes. For a linear
// Handle this is h's actual backing buffer (no allocation, no copy); the
// borrower must not retain it past ReturnBuf. For a scattered Handle this
// is a scratch buffer drawn from the RawPool with unspecified contents; use
// BorrowBufCopy if the borrower needs to see h's current bytes.
//
// Borrowing pins h against TryMove and Free until every outstanding borrow
// is returned.
func (h *Handle) BorrowBuf(n int) []byte {
	return h.borrow(n, false)
}

// BorrowBufCopy is BorrowBuf, but the returned buffer always reflects h's
// current first n bytes: materialized via a copy on the scattered path,
// aliased directly (as BorrowBuf does) on the linear path, since there the
// "copy" and the real buffer are already the same memory.
func (h *Handle) BorrowBufCopy(n int) []byte {
	return h.borrow(n, true)
}

func (h *Handle) borrow(n int, materialize bool) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertValidLocked()

	if n <= 0 || n > h.size {
		panic(fmt.Sprintf("abd: BorrowBuf: n %d out of range (0, %d]", n, h.size))
	}

	var buf []byte
	if h.flags.has(FlagLinear) {
		buf = h.linearBuf[:n]
	} else {
		if h.flags.has(FlagMeta) {
			buf = h.sys.raw.MetaAlloc(n)
		} else {
			buf = h.sys.raw.DataAlloc(n)
		}
		if materialize {
			h.copyToBufOffLocked(buf, 0, n)
		}
	}

	h.borrowed[bufPtr(buf)] = n
	h.flags |= FlagNoMove
	h.childRefcount += n
	h.sys.stats.Inc(abdstats.BorrowedBufs)
	return buf
}

// ReturnBuf ends a loan started by BorrowBuf/BorrowBufCopy. On the linear
// path it asserts buf is still h's own buffer (no mutation was permitted);
// on the scattered path it asserts buf's first n bytes still equal h's
// first n bytes, then frees the scratch buffer back to the RawPool.
func (h *Handle) ReturnBuf(buf []byte, n int) {
	h.returnBuf(buf, 0, n, n, false)
}

// ReturnBufCopy is ReturnBuf, but first writes buf's first n bytes back
// into h, so the caller's (possibly scattered-path) mutations are not
// lost. On the linear path this is a harmless self-copy, since buf already
// is h's buffer.
func (h *Handle) ReturnBufCopy(buf []byte, n int) {
	h.returnBuf(buf, 0, n, n, true)
}

// ReturnBufOff is ReturnBuf, but only buf[off:off+length) is checked
// against h; the rest of the n-byte loan is assumed untouched. Used when a
// borrower only needed to look at (or overwrite) part of what it borrowed.
func (h *Handle) ReturnBufOff(buf []byte, off, length, n int) {
	h.returnBuf(buf, off, length, n, false)
}

// ReturnBufCopyOff is ReturnBufOff, but first writes buf[off:off+length)
// back into h[off:off+length).
func (h *Handle) ReturnBufCopyOff(buf []byte, off, length, n int) {
	h.returnBuf(buf, off, length, n, true)
}

func (h *Handle) returnBuf(buf []byte, off, length, n int, writeBack bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertValidLocked()

	recorded, ok := h.borrowed[bufPtr(buf)]
	if !ok {
		panic("abd: ReturnBuf: buf was not borrowed from this Handle")
	}
	if recorded != n {
		panic(fmt.Sprintf("abd: ReturnBuf: n %d does not match the %d-byte loan", n, recorded))
	}
	if off < 0 || length < 0 || off+length > n {
		panic(fmt.Sprintf("abd: ReturnBuf: range [%d, %d) out of bounds for %d-byte loan", off, off+length, n))
	}

	if h.flags.has(FlagLinear) {
		if writeBack {
			copy(h.linearBuf[off:off+length], buf[off:off+length])
		} else if &h.linearBuf[0] != &buf[0] {
			panic("abd: ReturnBuf: linear buf must not be mutated without ReturnBufCopy")
		}
	} else {
		if writeBack {
			h.copyFromBufOffLocked(buf[off:off+length], off, length)
		}
		if h.cmpBufOffLocked(buf[off:off+length], off, length) != 0 {
			panic("abd: ReturnBuf: scattered buf no longer matches the Handle's bytes")
		}
		if h.flags.has(FlagMeta) {
			h.sys.raw.MetaFree(buf)
		} else {
			h.sys.raw.DataFree(buf)
		}
	}

	delete(h.borrowed, bufPtr(buf))
	h.childRefcount -= n
	if h.childRefcount == 0 && len(h.borrowed) == 0 && !h.toBufPinned && h.parent == nil {
		h.flags &^= FlagNoMove
	}
	h.sys.stats.Dec(abdstats.BorrowedBufs)
}

// ToBuf returns a flat []byte view of a linear Handle's entire backing
// buffer and permanently pins h against TryMove: unlike a borrow, there is
// no matching "return" call to release the pin.
func (h *Handle) ToBuf() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertValidLocked()
	if !h.flags.has(FlagLinear) {
		panic("abd: ToBuf: Handle is not linear")
	}
	h.flags |= FlagNoMove
	h.toBufPinned = true
	return h.linearBuf
}

// ToBufEphemeral is ToBuf without the permanent pin: intended for
// short-lived diagnostic use (e.g. formatting a Handle's contents) where
// the caller does not hold onto the returned slice past the current call
// frame.
func (h *Handle) ToBufEphemeral() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertValidLocked()
	if !h.flags.has(FlagLinear) {
		panic("abd: ToBufEphemeral: Handle is not linear")
	}
	return h.linearBuf
}

// TakeOwnershipOfBuf marks a non-owning linear Handle (one minted by
// GetFromBuf) as owning its buffer, so Free will release it back to the
// RawPool instead of leaving it to its original caller.
func (h *Handle) TakeOwnershipOfBuf(isMetadata bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertValidLocked()
	if !h.flags.has(FlagLinear) {
		panic("abd: TakeOwnershipOfBuf: Handle is not linear")
	}
	if h.flags.has(FlagOwner) {
		panic("abd: TakeOwnershipOfBuf: Handle already owns its buffer")
	}

	h.flags |= FlagOwner
	if isMetadata {
		h.flags |= FlagMeta
	}
	h.sys.stats.Inc(abdstats.LinearCnt)
	if isMetadata {
		h.sys.stats.Inc(abdstats.LinearMetadataCnt)
	} else {
		h.sys.stats.Inc(abdstats.LinearFiledataCnt)
	}
}

// ReleaseOwnershipOfBuf is the inverse of TakeOwnershipOfBuf: the Handle
// stops owning its buffer, so Free will no longer release it.
func (h *Handle) ReleaseOwnershipOfBuf() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertValidLocked()
	if !h.flags.has(FlagLinear) {
		panic("abd: ReleaseOwnershipOfBuf: Handle is not linear")
	}
	if !h.flags.has(FlagOwner) {
		panic("abd: ReleaseOwnershipOfBuf: Handle does not own its buffer")
	}

	wasMeta := h.flags.has(FlagMeta)
	h.flags &^= FlagOwner
	h.flags &^= FlagMeta
	h.sys.stats.Dec(abdstats.LinearCnt)
	if wasMeta {
		h.sys.stats.Dec(abdstats.LinearMetadataCnt)
	} else {
		h.sys.stats.Dec(abdstats.LinearFiledataCnt)
	}
}
