package abd

import (
	"os"
	"testing"

	"github.com/abdsys/abd/abdstats"
	"github.com/abdsys/abd/chunkpool"
	"github.com/abdsys/abd/internal/opt"
	"github.com/abdsys/abd/rawpool"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	// TryMove's five-minute tripwire would fire on every freshly-allocated
	// test Handle; disable it here and re-enable it only in the one test
	// that exercises it.
	AssertYoungHandleNotMoved = false
	os.Exit(m.Run())
}

const testChunkSize = 64

func newTestSystem(t *testing.T) *System {
	t.Helper()
	chunks, err := chunkpool.New(testChunkSize, chunkpool.Config{MaxPoolBytes: opt.Some(int64(64 * testChunkSize))})
	assert.NoError(t, err)
	raw := rawpool.New(rawpool.Config{})
	sys, err := NewSystem(Config{
		ChunkSize:    testChunkSize,
		MaxBlockSize: 1 << 20,
		Chunks:       chunks,
		Raw:          raw,
	})
	assert.NoError(t, err)
	return sys
}

func TestNewSystemValidation(t *testing.T) {
	chunks, err := chunkpool.New(testChunkSize, chunkpool.Config{})
	assert.NoError(t, err)
	raw := rawpool.New(rawpool.Config{})

	tests := []struct {
		name   string
		cfg    Config
		errStr string
	}{
		{
			name:   "zero chunk size",
			cfg:    Config{ChunkSize: 0, MaxBlockSize: 100, Chunks: chunks, Raw: raw},
			errStr: "chunk size",
		},
		{
			name:   "zero max block size",
			cfg:    Config{ChunkSize: testChunkSize, MaxBlockSize: 0, Chunks: chunks, Raw: raw},
			errStr: "max block size",
		},
		{
			name:   "max block smaller than chunk",
			cfg:    Config{ChunkSize: testChunkSize, MaxBlockSize: testChunkSize - 1, Chunks: chunks, Raw: raw},
			errStr: "smaller than chunk size",
		},
		{
			name:   "missing chunk pool",
			cfg:    Config{ChunkSize: testChunkSize, MaxBlockSize: 1024, Raw: raw},
			errStr: "Config.Chunks",
		},
		{
			name:   "missing raw pool",
			cfg:    Config{ChunkSize: testChunkSize, MaxBlockSize: 1024, Chunks: chunks},
			errStr: "Config.Raw",
		},
		{
			name:   "chunk size mismatch",
			cfg:    Config{ChunkSize: testChunkSize + 1, MaxBlockSize: 1024, Chunks: chunks, Raw: raw},
			errStr: "does not match",
		},
	}

	for _, tc := range tests {
		_, err := NewSystem(tc.cfg)
		if assert.Errorf(t, err, tc.name) {
			assert.Contains(t, err.Error(), tc.errStr, tc.name)
		}
	}

	sys, err := NewSystem(Config{ChunkSize: testChunkSize, MaxBlockSize: 1024, Chunks: chunks, Raw: raw})
	assert.NoError(t, err)
	assert.NotNil(t, sys)
}

func TestScatterEnabledToggle(t *testing.T) {
	sys := newTestSystem(t)
	assert.False(t, sys.ScatterEnabled())

	sys.SetScatterEnabled(true)
	assert.True(t, sys.ScatterEnabled())

	sys.SetScatterEnabled(false)
	assert.False(t, sys.ScatterEnabled())
}

func TestStructSizeCounterSetAtConstruction(t *testing.T) {
	sys := newTestSystem(t)
	assert.Greater(t, sys.Stats().Get(abdstats.StructSize), int64(0))
}
