// Package abd implements ARC Buffer Data, an abstract byte-buffer type that
// hides whether its bytes live in one contiguous allocation (linear) or are
// split across fixed-size chunks drawn from a pool (scattered).
//
// A Handle is never read or written directly. Callers either borrow a flat
// []byte view of a Handle's bytes (BorrowBuf family), copy bytes across a
// chunk boundary without caring where the boundary falls (the iterate/copy
// family), or take zero-copy child views of a parent Handle (GetOffset,
// GetOffsetSize). A System owns the chunk pool, the raw byte pool, and the
// statistics registry a set of Handles shares, and is the entry point for
// allocation.
package abd
