package abd

import "github.com/abdsys/abd/internal/memgather"

// gatherLocked builds a zero-copy memgather.View over h[off:off+size): a
// single segment for a linear Handle, one segment per chunk crossed for a
// scattered one. Caller must hold h.mu.
func (h *Handle) gatherLocked(off, size int) memgather.View {
	if h.flags.has(FlagLinear) {
		return memgather.New(h.linearBuf[off : off+size])
	}

	var v memgather.View
	c := aiter{h: h, pos: off}
	remaining := size
	for remaining > 0 {
		region := c.mapRegion(remaining)
		v.Append(memgather.New(region))
		c.advance(len(region))
		remaining -= len(region)
	}
	return v
}

// DebugGather returns a read-only, zero-copy gather view of h's entire
// contents, for assertions and diagnostics that do not retain the result
// past the current stack frame: the same contract to_buf_ephemeral gives a
// linear Handle's caller, generalized to the scattered case memgather
// exists for (to_buf_ephemeral itself stays linear-only, matching the
// narrower to_buf it mirrors).
func (h *Handle) DebugGather() memgather.View {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertValidLocked()
	return h.gatherLocked(0, h.size)
}
