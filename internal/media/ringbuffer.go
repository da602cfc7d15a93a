package media

import (
	"encoding/binary"
	"sync/atomic"
)

// RingBuffer carries decoded PCM from the network read loop to the playback
// device callback. Safe for one producer and one consumer.
// reference: https://en.wikipedia.org/wiki/Circular_buffer
type RingBuffer struct {
	buffer []int16

	size int64
	writeIdx,
	readIdx atomic.Int64
}

func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		buffer: make([]int16, size),
		size:   int64(size),
	}
}

// Write writes to the RingBuffer data from src, stopping early if the buffer
// fills. Returns the number of samples written.
func (rb *RingBuffer) Write(src []int16) int {
	written := 0
	for _, b := range src {
		writeIdx := rb.writeIdx.Load()
		readIdx := rb.readIdx.Load()

		nextWriteIdx := (writeIdx + 1) % rb.size
		if nextWriteIdx == readIdx {
			break // buffer full
		}

		rb.buffer[writeIdx] = b
		rb.writeIdx.Store(nextWriteIdx) // publish write
		written++
	}
	return written
}

// Read writes to dst data read from the RingBuffer, exhausting the contents
// buffered since the last read. Since the dst buffer is a byte slice,
// conversion from int16 is handled. Returns the number of samples read.
func (rb *RingBuffer) Read(dst []byte) int {
	read := 0
	max := int64(len(dst) / 2)

	for i := int64(0); i < max; i++ {
		writeIdx := rb.writeIdx.Load()
		readIdx := rb.readIdx.Load()

		if readIdx == writeIdx {
			break // buffer empty
		}

		nextReadIdx := (readIdx + 1) % rb.size
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(rb.buffer[readIdx]))
		rb.readIdx.Store(nextReadIdx)
		read++
	}
	return read
}
