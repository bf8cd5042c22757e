package fs

import (
	"sync"

	"github.com/ncw/directio"
)

// BufferPool hands out sector-aligned staging buffers for segments of the
// device whose platform cannot hand the caller's own pointer straight to
// the kernel (§4.3 step 4). Modeled on the teacher's
// fs/filedirectio.go createAlignedBlock/createAlignedBlockOfSize helpers,
// backed by sync.Pool to avoid an allocation+alignment pass per I/O.
type BufferPool struct {
	pools sync.Map // size (int) -> *sync.Pool
}

// NewBufferPool constructs an empty, ready-to-use BufferPool.
func NewBufferPool() *BufferPool {
	return &BufferPool{}
}

// Get returns a sector-aligned buffer of at least size bytes.
func (b *BufferPool) Get(size int) []byte {
	aligned := alignUp(size, directio.BlockSize)
	v, _ := b.pools.LoadOrStore(aligned, &sync.Pool{
		New: func() any { return directio.AlignedBlock(aligned) },
	})
	pool := v.(*sync.Pool)
	buf := pool.Get().([]byte)
	return buf[:size]
}

// Put returns a buffer obtained from Get back to its size-class pool.
func (b *BufferPool) Put(buf []byte) {
	aligned := alignUp(len(buf), directio.BlockSize)
	v, ok := b.pools.Load(aligned)
	if !ok {
		return
	}
	v.(*sync.Pool).Put(buf[:cap(buf)][:aligned])
}

func alignUp(n, align int) int {
	if n <= 0 {
		return align
	}
	return (n + align - 1) / align * align
}
