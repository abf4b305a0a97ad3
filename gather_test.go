package abd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugGatherLinearMatchesContents(t *testing.T) {
	sys := newTestSystem(t)
	h := sys.AllocLinear(8, false)
	defer h.Free()

	h.CopyFromBuf([]byte("abcdefgh"))
	v := h.DebugGather()
	assert.Equal(t, int64(8), v.Len())
	assert.Equal(t, byte('a'), v.GetByte(0))
	assert.Equal(t, byte('h'), v.GetByte(7))
}

func TestDebugGatherScatteredCrossesChunks(t *testing.T) {
	sys := newTestSystem(t)
	sys.SetScatterEnabled(true)
	h := sys.Alloc(testChunkSize+5, false)
	defer h.Free()

	data := make([]byte, testChunkSize+5)
	for i := range data {
		data[i] = byte(i)
	}
	h.CopyFromBuf(data)

	v := h.DebugGather()
	assert.Equal(t, int64(len(data)), v.Len())
	for i, want := range data {
		assert.Equalf(t, want, v.GetByte(int64(i)), "byte %d", i)
	}
}
