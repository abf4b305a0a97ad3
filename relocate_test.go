package abd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTryMoveLinearPreservesContents(t *testing.T) {
	sys := newTestSystem(t)
	h := sys.AllocLinear(16, false)
	defer h.Free()

	h.CopyFromBuf([]byte("0123456789abcdef"))
	oldPtr := &h.linearBuf[0]

	assert.True(t, h.TryMove())

	assert.NotSame(t, oldPtr, &h.linearBuf[0])
	got := make([]byte, 16)
	h.CopyToBuf(got)
	assert.Equal(t, []byte("0123456789abcdef"), got)
}

func TestTryMoveScatteredPreservesContents(t *testing.T) {
	sys := newTestSystem(t)
	sys.SetScatterEnabled(true)
	h := sys.Alloc(testChunkSize*2+3, false)
	defer h.Free()

	data := make([]byte, testChunkSize*2+3)
	for i := range data {
		data[i] = byte(i)
	}
	h.CopyFromBuf(data)

	oldChunks := append([][]byte(nil), h.chunks...)
	assert.True(t, h.TryMove())

	for i, c := range h.chunks {
		assert.NotSame(t, &oldChunks[i][0], &c[0])
	}
	got := make([]byte, testChunkSize*2+3)
	h.CopyToBuf(got)
	assert.Equal(t, data, got)
}

func TestTryMoveFailsWhenNoMove(t *testing.T) {
	sys := newTestSystem(t)
	h := sys.AllocLinear(16, false)
	defer h.Free()

	_ = h.ToBuf()
	assert.False(t, h.TryMove())
}

func TestTryMoveFailsWithLiveChildren(t *testing.T) {
	sys := newTestSystem(t)
	h := sys.AllocLinear(16, false)
	defer h.Free()

	view := h.GetOffsetSize(0, 8)
	assert.False(t, h.TryMove())
	view.Put()
}

func TestTryMovePanicsOnView(t *testing.T) {
	sys := newTestSystem(t)
	h := sys.AllocLinear(16, false)
	defer h.Free()

	view := h.GetOffsetSize(0, 8)
	assert.Panics(t, func() {
		view.TryMove()
	})
	view.Put()
}

func TestTryMoveYoungHandleTripwire(t *testing.T) {
	AssertYoungHandleNotMoved = true
	defer func() { AssertYoungHandleNotMoved = false }()

	sys := newTestSystem(t)
	h := sys.AllocLinear(16, false)
	defer h.Free()

	assert.Panics(t, func() {
		h.TryMove()
	})

	h.mu.Lock()
	h.createTime = time.Now().Add(-youngHandleWindow - time.Second)
	h.mu.Unlock()

	assert.True(t, h.TryMove())
}
