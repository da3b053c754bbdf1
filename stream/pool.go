package stream

import "sync"

const (
	// chunk buffers above this capacity are not returned to the pool
	poolMaxCap  = 1 << 20
	poolInitCap = 64 << 10
)

var chunkPool = sync.Pool{
	New: func() any {
		buf := make([]byte, poolInitCap)
		return &buf
	},
}

func getChunk() *[]byte {
	return chunkPool.Get().(*[]byte)
}

func putChunk(buf *[]byte) {
	if buf == nil || cap(*buf) > poolMaxCap {
		return
	}
	chunkPool.Put(buf)
}
