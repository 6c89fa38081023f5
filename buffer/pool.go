package buffer

import (
	"sync"

	"github.com/neomutt/neomutt-sub017/consts"
)

var pool = sync.Pool{
	New: func() any {
		return New()
	},
}

// Get borrows an empty Buffer from the pool.
func Get() *Buffer {
	b := pool.Get().(*Buffer)
	b.Reset()
	return b
}

// Release returns a Buffer to the pool. Buffers that grew beyond the pool
// cap are dropped so one oversized parse doesn't pin memory. Callers must
// not use b afterwards.
func Release(b *Buffer) {
	if b == nil {
		return
	}
	if cap(b.data) > consts.PoolBufferCap {
		return
	}
	b.Reset()
	pool.Put(b)
}
