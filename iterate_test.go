package abd

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestIterateFuncAcrossChunkBoundaries(t *testing.T) {
	sys := newTestSystem(t)
	sys.SetScatterEnabled(true)
	h := sys.Alloc(testChunkSize*2+5, false)
	defer h.Free()

	src := make([]byte, testChunkSize*2+5)
	for i := range src {
		src[i] = byte(i)
	}
	h.CopyFromBuf(src)

	var regions int
	var total int
	rc := h.IterateFunc(3, testChunkSize+10, func(chunk []byte) int {
		regions++
		total += len(chunk)
		return 0
	})
	assert.Equal(t, 0, rc)
	assert.Equal(t, testChunkSize+10, total)
	assert.GreaterOrEqual(t, regions, 2, "should cross at least one chunk boundary")
}

func TestIterateFuncPropagatesNonZeroReturn(t *testing.T) {
	sys := newTestSystem(t)
	h := sys.AllocLinear(16, false)
	defer h.Free()

	rc := h.IterateFunc(0, 16, func(chunk []byte) int {
		return 42
	})
	assert.Equal(t, 42, rc)
}

func TestIterateFunc2LockOrderIndependence(t *testing.T) {
	sys := newTestSystem(t)
	a := sys.AllocLinear(16, false)
	b := sys.AllocLinear(16, false)
	defer a.Free()
	defer b.Free()

	src := []byte("0123456789abcdef")
	a.CopyFromBuf(src)

	rc1 := IterateFunc2(b, a, 0, 0, 16, func(dst, srcChunk []byte) int {
		copy(dst, srcChunk)
		return 0
	})
	assert.Equal(t, 0, rc1)

	got := make([]byte, 16)
	b.CopyToBuf(got)
	assert.Equal(t, src, got)

	// Same pair, reversed role assignment: must not deadlock or corrupt.
	rc2 := IterateFunc2(a, b, 0, 0, 16, func(dst, srcChunk []byte) int {
		copy(dst, srcChunk)
		return 0
	})
	assert.Equal(t, 0, rc2)
}

func TestCopyToFromBufRoundTrip(t *testing.T) {
	sys := newTestSystem(t)
	sys.SetScatterEnabled(true)
	h := sys.Alloc(testChunkSize+7, true)
	defer h.Free()

	src := make([]byte, testChunkSize+7)
	for i := range src {
		src[i] = byte(200 - i)
	}
	h.CopyFromBuf(src)

	got := make([]byte, testChunkSize+7)
	h.CopyToBuf(got)
	if diff := cmp.Diff(src, got); diff != "" {
		t.Errorf("round-tripped bytes differ (-want +got):\n%s", diff)
	}
}

func TestCmpBufAndCmp(t *testing.T) {
	sys := newTestSystem(t)
	a := sys.AllocLinear(8, false)
	b := sys.AllocLinear(8, false)
	c := sys.AllocLinear(8, false)
	defer a.Free()
	defer b.Free()
	defer c.Free()

	a.CopyFromBuf([]byte("aaaaaaaa"))
	b.CopyFromBuf([]byte("aaaaaaab"))
	c.CopyFromBuf([]byte("aaaaaaaa"))

	assert.Equal(t, 0, a.CmpBuf([]byte("aaaaaaaa")))
	assert.Equal(t, -1, a.CmpBuf([]byte("aaaaaaab")))
	assert.Equal(t, -1, Cmp(a, b))
	assert.Equal(t, 1, Cmp(b, a))
	assert.Equal(t, 0, Cmp(a, c))
}

func TestCmpHandlesOfDifferentLength(t *testing.T) {
	sys := newTestSystem(t)
	short := sys.AllocLinear(4, false)
	long := sys.AllocLinear(8, false)
	defer short.Free()
	defer long.Free()

	short.CopyFromBuf([]byte("aaaa"))
	long.CopyFromBuf([]byte("aaaaaaaa"))

	assert.Equal(t, -1, Cmp(short, long))
	assert.Equal(t, 1, Cmp(long, short))
}

func TestZeroOffOnlyZeroesRange(t *testing.T) {
	sys := newTestSystem(t)
	h := sys.AllocLinear(8, false)
	defer h.Free()

	h.CopyFromBuf([]byte("aaaaaaaa"))
	h.ZeroOff(2, 4)

	got := make([]byte, 8)
	h.CopyToBuf(got)
	assert.Equal(t, []byte("aa\x00\x00\x00\x00aa"), got)
}

func TestCopyOffBetweenHandles(t *testing.T) {
	sys := newTestSystem(t)
	sys.SetScatterEnabled(true)
	dst := sys.Alloc(testChunkSize*2, false)
	src := sys.Alloc(testChunkSize*2, false)
	defer dst.Free()
	defer src.Free()

	data := make([]byte, testChunkSize*2)
	for i := range data {
		data[i] = byte(i)
	}
	src.CopyFromBuf(data)

	CopyOff(dst, src, 3, 1, testChunkSize)

	got := make([]byte, testChunkSize)
	dst.CopyToBufOff(got, 3, testChunkSize)
	want := data[1 : 1+testChunkSize]
	assert.Equal(t, want, got)
}
