package media

import (
	"encoding/binary"
	"testing"
)

func TestRingBuffer(t *testing.T) {
	t.Run("write then read round-trips samples", func(t *testing.T) {
		rb := NewRingBuffer(16)

		src := []int16{1, -2, 3, -32768, 32767}
		if n := rb.Write(src); n != len(src) {
			t.Fatalf("Write = %d, want %d", n, len(src))
		}

		dst := make([]byte, len(src)*2)
		if n := rb.Read(dst); n != len(src) {
			t.Fatalf("Read = %d, want %d", n, len(src))
		}
		for i, want := range src {
			got := int16(binary.LittleEndian.Uint16(dst[i*2:]))
			if got != want {
				t.Errorf("sample %d = %d, want %d", i, got, want)
			}
		}
	})

	t.Run("read from empty buffer returns zero", func(t *testing.T) {
		rb := NewRingBuffer(8)
		dst := make([]byte, 16)
		if n := rb.Read(dst); n != 0 {
			t.Fatalf("Read = %d, want 0", n)
		}
	})

	t.Run("write stops when full", func(t *testing.T) {
		rb := NewRingBuffer(4) // holds size-1 samples

		src := []int16{1, 2, 3, 4, 5}
		if n := rb.Write(src); n != 3 {
			t.Fatalf("Write = %d, want 3", n)
		}

		dst := make([]byte, len(src)*2)
		if n := rb.Read(dst); n != 3 {
			t.Fatalf("Read = %d, want 3", n)
		}
	})

	t.Run("read is bounded by dst", func(t *testing.T) {
		rb := NewRingBuffer(16)
		rb.Write([]int16{1, 2, 3, 4})

		dst := make([]byte, 4) // room for two samples
		if n := rb.Read(dst); n != 2 {
			t.Fatalf("Read = %d, want 2", n)
		}
		if n := rb.Read(dst); n != 2 {
			t.Fatalf("second Read = %d, want 2", n)
		}
	})

	t.Run("wraps around", func(t *testing.T) {
		rb := NewRingBuffer(4)
		dst := make([]byte, 8)

		for round := int16(0); round < 5; round++ {
			src := []int16{round, round + 1}
			if n := rb.Write(src); n != 2 {
				t.Fatalf("round %d: Write = %d, want 2", round, n)
			}
			if n := rb.Read(dst); n != 2 {
				t.Fatalf("round %d: Read = %d, want 2", round, n)
			}
			for i, want := range src {
				got := int16(binary.LittleEndian.Uint16(dst[i*2:]))
				if got != want {
					t.Errorf("round %d sample %d = %d, want %d", round, i, got, want)
				}
			}
		}
	})
}
