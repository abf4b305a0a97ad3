package abd

import (
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/abdsys/abd/abdstats"
	"github.com/pkg/errors"
)

// ChunkPool is the fixed-chunk-size allocator a scattered Handle draws its
// backing chunks from. Declared here, rather than referring to
// chunkpool.Pool directly, so this package has no import-time dependency on
// a specific pool implementation; chunkpool.Pool satisfies this interface
// without any adapter, and a caller is free to substitute another one.
type ChunkPool interface {
	// ChunkSize returns the fixed size, in bytes, of every chunk this pool
	// vends.
	ChunkSize() int
	// AllocChunk returns a zeroed chunk, or nil if the pool is exhausted.
	AllocChunk() []byte
	// FreeChunk returns chunk to the pool for reuse.
	FreeChunk(chunk []byte)
	// FreeChunkToSlab returns chunk to the pool's backing allocator,
	// bypassing whatever fast-path free list FreeChunk uses. TryMove calls
	// this for the chunks it evacuates so relocation actually shrinks the
	// pool's resident set.
	FreeChunkToSlab(chunk []byte)
	// DepotWorkingSetZero drops every chunk the pool is holding idle.
	DepotWorkingSetZero()
}

// RawPool is the arbitrary-size allocator a linear Handle draws its backing
// buffer from, with separate accounting for file data and metadata.
type RawPool interface {
	DataAlloc(size int) []byte
	DataFree(buf []byte)
	MetaAlloc(size int) []byte
	MetaFree(buf []byte)
}

// Config holds the boot-time parameters a System is constructed from.
type Config struct {
	// ChunkSize is the fixed size, in bytes, of a scattered Handle's
	// backing chunks. Must match Chunks.ChunkSize(); NewSystem rejects a
	// mismatch.
	ChunkSize int

	// MaxBlockSize is the largest size, in bytes, any single Alloc/
	// AllocLinear call may request. Must be at least ChunkSize.
	MaxBlockSize int

	// Chunks is the chunk allocator scattered Handles draw from. Required.
	Chunks ChunkPool

	// Raw is the byte allocator linear Handles draw from. Required.
	Raw RawPool

	// Stats is the counters registry Handles report into. If nil, a fresh
	// abdstats.Registry is created.
	Stats *abdstats.Registry

	// ScatterEnabled is System's initial scatter_enabled value.
	ScatterEnabled bool
}

// System owns the allocator dependencies and the runtime tunables a set of
// Handles shares: the chunk pool, the raw pool, the statistics registry,
// and the scatter_enabled switch. It is the Go-idiomatic home for what a
// C implementation would keep as process-global state, constructed once
// and passed to (or embedded by) whatever holds the Handles it mints.
type System struct {
	chunkSize    int
	maxBlockSize int

	chunks ChunkPool
	raw    RawPool
	stats  *abdstats.Registry

	scatterEnabled int32 // atomic bool
}

// NewSystem validates cfg and constructs a System. Boot-time configuration
// errors are returned, not panicked, since there is no Handle yet to name
// in a diagnostic.
func NewSystem(cfg Config) (*System, error) {
	if cfg.ChunkSize <= 0 {
		return nil, errors.Errorf("abd: chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.MaxBlockSize <= 0 {
		return nil, errors.Errorf("abd: max block size must be positive, got %d", cfg.MaxBlockSize)
	}
	if cfg.MaxBlockSize < cfg.ChunkSize {
		return nil, errors.Errorf("abd: max block size %d smaller than chunk size %d", cfg.MaxBlockSize, cfg.ChunkSize)
	}
	if cfg.Chunks == nil {
		return nil, errors.New("abd: Config.Chunks is required")
	}
	if cfg.Raw == nil {
		return nil, errors.New("abd: Config.Raw is required")
	}
	if cfg.Chunks.ChunkSize() != cfg.ChunkSize {
		return nil, errors.Errorf("abd: Config.ChunkSize %d does not match Config.Chunks.ChunkSize() %d", cfg.ChunkSize, cfg.Chunks.ChunkSize())
	}

	stats := cfg.Stats
	if stats == nil {
		stats = abdstats.New()
	}
	stats.Add(abdstats.StructSize, int64(unsafe.Sizeof(Handle{})))

	sys := &System{
		chunkSize:    cfg.ChunkSize,
		maxBlockSize: cfg.MaxBlockSize,
		chunks:       cfg.Chunks,
		raw:          cfg.Raw,
		stats:        stats,
	}
	sys.SetScatterEnabled(cfg.ScatterEnabled)
	return sys, nil
}

// ChunkSize returns the fixed chunk size this System was constructed with.
func (s *System) ChunkSize() int { return s.chunkSize }

// MaxBlockSize returns the largest size a single allocation may request.
func (s *System) MaxBlockSize() int { return s.maxBlockSize }

// Stats returns the counters registry this System's Handles report into.
func (s *System) Stats() *abdstats.Registry { return s.stats }

// ScatterEnabled reports whether Alloc currently prefers scattered storage.
func (s *System) ScatterEnabled() bool {
	return atomic.LoadInt32(&s.scatterEnabled) != 0
}

// SetScatterEnabled toggles the scatter_enabled switch. Safe to call
// concurrently with allocation; a given Alloc call observes one consistent
// value without taking any lock on the System itself.
func (s *System) SetScatterEnabled(v bool) {
	var n int32
	if v {
		n = 1
	}
	atomic.StoreInt32(&s.scatterEnabled, n)
}

func (s *System) newHandle(size int, flags Flag) *Handle {
	return &Handle{
		sys:        s,
		magic:      handleMagic,
		size:       size,
		flags:      flags,
		createTime: time.Now(),
		borrowed:   make(map[uintptr]int),
	}
}
