// Package chunkpool implements the fixed-size chunk allocator that ABD's
// scattered storage variant draws its backing pages from.
//
// It is the same shape as a slab depot: a bounded free list of equal-sized
// byte chunks, plus an escape hatch that returns a chunk straight to the
// garbage collector instead of the free list, for use by a compacting
// relocator that wants the old chunk gone rather than recycled.
package chunkpool

import (
	"fmt"

	"github.com/abdsys/abd/abdid"
	"github.com/abdsys/abd/internal/opt"
	"github.com/pkg/errors"
)

// Config holds pool tunables. MaxPoolBytes left at None means "use the
// default of 1024 chunks' worth of bytes".
type Config struct {
	MaxPoolBytes opt.Optional[int64]
}

const defaultChunkMultiple = 1024

// Pool vends and recycles chunks of a single fixed size. It corresponds to
// the "chunk_pool" collaborator that spec.md §6 treats as external to ABD.
type Pool interface {
	// ChunkSize returns the fixed size, in bytes, of every chunk vended by
	// this pool. Frozen at construction time.
	ChunkSize() int

	// AllocChunk returns a zeroed chunk of ChunkSize() bytes, or nil if the
	// pool's free list is exhausted.
	AllocChunk() []byte

	// FreeChunk returns chunk to the free list for reuse. If the free list
	// is already full, the chunk is dropped (left for the garbage
	// collector), matching the non-blocking release discipline of a
	// bounded depot.
	FreeChunk(chunk []byte)

	// FreeChunkToSlab returns chunk directly to the garbage collector,
	// bypassing the free list entirely. The relocator uses this for chunks
	// it is evacuating, so defragmentation actually shrinks the pool's
	// resident set instead of refilling the free list with pages the
	// allocator is trying to get rid of.
	FreeChunkToSlab(chunk []byte)

	// DepotWorkingSetZero drains the free list, dropping every pooled
	// chunk. Intended to be invoked periodically by an operator, not by
	// ABD itself.
	DepotWorkingSetZero()
}

// New creates a Pool of chunkSize-byte chunks, pre-populated and ready to
// hand out, holding up to cfg.MaxPoolBytes worth of them (default 1024
// chunks' worth). chunkSize must be positive and the resulting pool must
// hold at least one chunk.
func New(chunkSize int64, cfg Config) (Pool, error) {
	if chunkSize < 1 {
		return nil, errors.Errorf("chunkpool: invalid chunk size %d", chunkSize)
	}
	maxPoolBytes := cfg.MaxPoolBytes.GetOrDefault(defaultChunkMultiple * chunkSize)
	if maxPoolBytes < chunkSize {
		return nil, errors.Errorf("chunkpool: max pool size %d smaller than chunk size %d", maxPoolBytes, chunkSize)
	}

	numChunks := maxPoolBytes / chunkSize
	free := make(chan []byte, numChunks)
	for i := int64(0); i < numChunks; i++ {
		free <- make([]byte, chunkSize)
	}

	return &pool{
		id:        abdid.New("chunkpool"),
		free:      free,
		chunkSize: int(chunkSize),
	}, nil
}

type pool struct {
	id        abdid.ID
	free      chan []byte
	chunkSize int
}

var _ Pool = (*pool)(nil)
var _ fmt.Stringer = (*pool)(nil)

// String returns the pool's debug identity, for log fields and panic
// messages; it carries no information ABD's own invariant checks rely on.
func (p *pool) String() string { return p.id.String() }

func (p *pool) ChunkSize() int { return p.chunkSize }

func (p *pool) AllocChunk() []byte {
	select {
	case chunk := <-p.free:
		for i := range chunk {
			chunk[i] = 0
		}
		return chunk
	default:
		return nil
	}
}

func (p *pool) FreeChunk(chunk []byte) {
	if len(chunk) != p.chunkSize {
		panic(fmt.Sprintf("%s: FreeChunk: chunk has length %d, want %d", p, len(chunk), p.chunkSize))
	}
	select {
	case p.free <- chunk:
	default:
		// Free list is full; let the chunk be collected.
	}
}

func (p *pool) FreeChunkToSlab(chunk []byte) {
	if len(chunk) != p.chunkSize {
		panic(fmt.Sprintf("%s: FreeChunkToSlab: chunk has length %d, want %d", p, len(chunk), p.chunkSize))
	}
	// Deliberately not returned to p.free: the relocator calls this for
	// chunks it is evacuating so they do not come back through a per-CPU
	// magazine equivalent (the buffered channel here plays that role).
}

func (p *pool) DepotWorkingSetZero() {
	for {
		select {
		case <-p.free:
		default:
			return
		}
	}
}
