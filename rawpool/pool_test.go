package rawpool

import (
	"fmt"
	"testing"

	"github.com/abdsys/abd/internal/opt"
	"github.com/stretchr/testify/assert"
)

func TestBucketSize(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 1023: 1024, 1024: 1024, 1025: 2048}
	for size, want := range cases {
		assert.Equalf(t, want, bucketSize(size), "bucketSize(%d)", size)
	}
}

func TestDataAllocExactLength(t *testing.T) {
	p := New(Config{})
	buf := p.DataAlloc(700)
	assert.Len(t, buf, 700)
	assert.Equal(t, int64(700), p.BytesInUse(Data))

	p.DataFree(buf)
	assert.Equal(t, int64(0), p.BytesInUse(Data))
}

func TestAllocIsZeroedAfterReuse(t *testing.T) {
	p := New(Config{})
	buf := p.MetaAlloc(64)
	for i := range buf {
		buf[i] = 0xAB
	}
	p.MetaFree(buf)

	reused := p.MetaAlloc(64)
	for i, b := range reused {
		assert.Equalf(t, byte(0), b, "byte %d not zeroed", i)
	}
}

func TestDataAndMetaTrackedSeparately(t *testing.T) {
	p := New(Config{})
	d := p.DataAlloc(128)
	m := p.MetaAlloc(256)

	assert.Equal(t, int64(128), p.BytesInUse(Data))
	assert.Equal(t, int64(256), p.BytesInUse(Meta))

	p.DataFree(d)
	p.MetaFree(m)
	assert.Equal(t, int64(0), p.BytesInUse(Data))
	assert.Equal(t, int64(0), p.BytesInUse(Meta))
}

func TestOversizeBypassesBucketing(t *testing.T) {
	p := New(Config{MaxBucketed: opt.Some(1024)})
	buf := p.DataAlloc(4096)
	assert.Len(t, buf, 4096)
	p.DataFree(buf)
	assert.Equal(t, int64(0), p.BytesInUse(Data))
}

func TestPoolStringIdentity(t *testing.T) {
	p := New(Config{})
	s, ok := p.(fmt.Stringer)
	assert.True(t, ok)
	assert.Contains(t, s.String(), "rawpool_")
}

func TestAllocPanicsOnNonPositiveSize(t *testing.T) {
	p := New(Config{})
	assert.Panics(t, func() { p.DataAlloc(0) })
	assert.Panics(t, func() { p.MetaAlloc(-1) })
}
