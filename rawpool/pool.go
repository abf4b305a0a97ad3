// Package rawpool implements the typed allocator ABD draws linear buffers
// and metadata buffers from. Unlike chunkpool, request sizes are arbitrary,
// so Pool buckets requests by power-of-two size class and keeps one
// sync.Pool per class and per kind (data vs metadata), so the
// split-by-kind counters in spec.md §6 can be computed from what each kind
// actually allocated.
package rawpool

import (
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/abdsys/abd/abdid"
	"github.com/abdsys/abd/internal/opt"
	"github.com/pkg/errors"
)

// Kind distinguishes metadata buffers from file-data buffers. The two are
// tracked separately so a caller can report the split counters spec.md §6
// requires (four split counters of file-data/metadata × linear/scattered
// live in the abd package; rawpool only needs the data/meta axis).
type Kind int

const (
	Data Kind = iota
	Meta
)

// Pool vends and recycles arbitrarily-sized byte buffers, bucketed by
// power-of-two size class. It corresponds to the "raw_pool" collaborator of
// spec.md §6 (data_buf_alloc/free, meta_buf_alloc/free).
type Pool interface {
	// DataAlloc returns a buffer of exactly size bytes for file data.
	DataAlloc(size int) []byte
	// DataFree returns a file-data buffer obtained from DataAlloc.
	DataFree(buf []byte)
	// MetaAlloc returns a buffer of exactly size bytes for metadata.
	MetaAlloc(size int) []byte
	// MetaFree returns a metadata buffer obtained from MetaAlloc.
	MetaFree(buf []byte)

	// BytesInUse reports the approximate number of bytes currently
	// checked out for the given kind. Advisory only, like the rest of the
	// module's counters.
	BytesInUse(kind Kind) int64
}

// Config controls the maximum bucket tracked individually; requests larger
// than MaxBucketed bypass pooling entirely and allocate directly, since a
// sync.Pool of rarely-reused giant buffers only adds GC pressure.
type Config struct {
	// MaxBucketed is the largest request size, in bytes, that is served
	// from a bucketed sync.Pool. None means use the default (1 << 20).
	MaxBucketed opt.Optional[int]
}

const defaultMaxBucketed = 1 << 20

// New creates a Pool per cfg.
func New(cfg Config) Pool {
	max := cfg.MaxBucketed.GetOrDefault(defaultMaxBucketed)
	return &pool{
		id:          abdid.New("rawpool"),
		maxBucketed: max,
		dataBuckets: make(map[int]*sync.Pool),
		metaBuckets: make(map[int]*sync.Pool),
	}
}

type pool struct {
	id abdid.ID

	maxBucketed int

	mu          sync.Mutex
	dataBuckets map[int]*sync.Pool
	metaBuckets map[int]*sync.Pool

	dataInUse int64
	metaInUse int64
}

var _ Pool = (*pool)(nil)

// String returns the pool's debug identity, for log fields and panic
// messages; it carries no information ABD's own invariant checks rely on.
func (p *pool) String() string { return p.id.String() }

// bucketSize rounds size up to the next power of two, matching the
// bucket-by-size-class scheme ChunkerPool-style poolers use to keep the
// number of distinct sync.Pools bounded.
func bucketSize(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

func (p *pool) bucketFor(kind Kind, size int) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()

	buckets := p.dataBuckets
	if kind == Meta {
		buckets = p.metaBuckets
	}

	b, ok := buckets[size]
	if !ok {
		b = &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		}
		buckets[size] = b
	}
	return b
}

func (p *pool) alloc(kind Kind, size int) []byte {
	if size <= 0 {
		panic(errors.Errorf("%s: invalid alloc size %d", p, size))
	}

	counter := &p.dataInUse
	if kind == Meta {
		counter = &p.metaInUse
	}
	atomic.AddInt64(counter, int64(size))

	if size > p.maxBucketed {
		return make([]byte, size)
	}

	bs := bucketSize(size)
	bucket := p.bucketFor(kind, bs)
	bufPtr := bucket.Get().(*[]byte)
	buf := (*bufPtr)[:size]
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

func (p *pool) free(kind Kind, buf []byte) {
	counter := &p.dataInUse
	if kind == Meta {
		counter = &p.metaInUse
	}
	atomic.AddInt64(counter, -int64(len(buf)))

	bs := bucketSize(cap(buf))
	if bs > p.maxBucketed || cap(buf) != bs {
		// Either bypassed pooling on alloc, or this isn't a buffer we
		// vended with a full-capacity bucket slot; let the GC have it.
		return
	}

	bucket := p.bucketFor(kind, bs)
	full := buf[:cap(buf)]
	bucket.Put(&full)
}

func (p *pool) DataAlloc(size int) []byte { return p.alloc(Data, size) }
func (p *pool) DataFree(buf []byte)       { p.free(Data, buf) }
func (p *pool) MetaAlloc(size int) []byte { return p.alloc(Meta, size) }
func (p *pool) MetaFree(buf []byte)       { p.free(Meta, buf) }

func (p *pool) BytesInUse(kind Kind) int64 {
	if kind == Meta {
		return atomic.LoadInt64(&p.metaInUse)
	}
	return atomic.LoadInt64(&p.dataInUse)
}
