// Package memgather provides a read-only view over a sequence of byte
// slices that behaves, for reading purposes, like one contiguous []byte.
//
// ABD uses it internally to gather a scattered Handle's chunks into a
// single logical sequence for diagnostics (Handle.DebugGather) and for the
// fast paths of cmp/cmp_buf, without ever copying the underlying chunks.
// The package is internal, so code outside the module cannot import it; a
// View reaches such code only as the read-only value DebugGather returns.
package memgather

import "io"

// View is an ordered sequence of byte slices presented as one logical
// region. The zero value is an empty View.
type View struct {
	bufs   [][]byte
	length int64
}

// New wraps data as a single-segment View. It does not copy data; the
// caller must ensure data stays valid and unmodified for the View's
// lifetime.
func New(data []byte) View {
	if len(data) == 0 {
		return View{}
	}
	return View{bufs: [][]byte{data}, length: int64(len(data))}
}

// Append appends src's segments to dst in place.
func (dst *View) Append(src View) {
	dst.bufs = append(dst.bufs, src.bufs...)
	dst.length += src.length
}

// Len returns the total number of bytes in the view.
func (v View) Len() int64 { return v.length }

// GetByte returns the byte at the given logical index, or 0 if index is out
// of bounds.
func (v View) GetByte(index int64) byte {
	if index < 0 {
		return 0
	}
	n := index
	for _, b := range v.bufs {
		lb := int64(len(b))
		if n < lb {
			return b[n]
		}
		n -= lb
	}
	return 0
}

// SubView returns v[start:end) as a new View sharing the underlying
// storage. Returns an empty View if the range is invalid.
func (v View) SubView(start, end int64) View {
	if start < 0 || start >= end || end > v.length {
		return View{}
	}

	startBuf, startOffset := -1, 0
	endBuf, endOffset := -1, 0

	var n int64
	for i, b := range v.bufs {
		lb := int64(len(b))
		if startBuf == -1 && n+lb > start {
			startBuf = i
			startOffset = int(start - n)
		}
		if endBuf == -1 && n+lb >= end {
			endBuf = i
			endOffset = int(end - n)
			break
		}
		n += lb
	}
	if startBuf == -1 || endBuf == -1 {
		return View{}
	}

	newBufs := make([][]byte, endBuf+1-startBuf)
	copy(newBufs, v.bufs[startBuf:endBuf+1])
	result := View{bufs: newBufs, length: end - start}
	if len(result.bufs) == 1 {
		result.bufs[0] = result.bufs[0][startOffset:endOffset]
	} else {
		result.bufs[0] = result.bufs[0][startOffset:]
		result.bufs[len(result.bufs)-1] = result.bufs[len(result.bufs)-1][:endOffset]
	}
	return result
}

// Equal reports whether left and right hold identical bytes.
func (left View) Equal(right View) bool {
	if left.length != right.length {
		return false
	}

	li, lo, ri, ro := 0, 0, 0, 0
	for i := int64(0); i < left.length; i++ {
		for lo >= len(left.bufs[li]) {
			li++
			lo = 0
		}
		for ro >= len(right.bufs[ri]) {
			ri++
			ro = 0
		}
		if left.bufs[li][lo] != right.bufs[ri][ro] {
			return false
		}
		lo++
		ro++
	}
	return true
}

// Compare returns -1, 0 or 1 as left is less than, equal to, or greater
// than right, byte by byte, matching bytes.Compare's contract. If one view
// is a prefix of the other, the shorter view is considered smaller.
func (left View) Compare(right View) int {
	li, lo, ri, ro := 0, 0, 0, 0
	n := left.length
	if right.length < n {
		n = right.length
	}

	for i := int64(0); i < n; i++ {
		for lo >= len(left.bufs[li]) {
			li++
			lo = 0
		}
		for ro >= len(right.bufs[ri]) {
			ri++
			ro = 0
		}
		a, b := left.bufs[li][lo], right.bufs[ri][ro]
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
		lo++
		ro++
	}

	switch {
	case left.length < right.length:
		return -1
	case left.length > right.length:
		return 1
	default:
		return 0
	}
}

// NewReader returns an io.Reader over v's logical contents.
func (v View) NewReader() io.Reader {
	return &reader{v: v}
}

type reader struct {
	v    View
	idx  int
	off  int
}

func (r *reader) Read(out []byte) (int, error) {
	if len(out) == 0 {
		return 0, nil
	}
	if r.idx >= len(r.v.bufs) {
		return 0, io.EOF
	}

	total := 0
	for total < len(out) && r.idx < len(r.v.bufs) {
		cur := r.v.bufs[r.idx][r.off:]
		n := copy(out[total:], cur)
		total += n
		if n == len(cur) {
			r.idx++
			r.off = 0
		} else {
			r.off += n
		}
	}
	return total, nil
}
