package lsh

import (
	"fmt"
	"math/bits"
)

// BitVector is a fixed-length bit vector packed eight bits per byte.
// Bit 0 is the most significant bit of the first byte. Padding bits in
// the final byte are always zero, so two vectors with the same bit
// content have identical packed bytes.
type BitVector struct {
	data []byte
	n    int
}

// NewBitVector creates a zeroed bit vector of n bits.
func NewBitVector(n int) *BitVector {
	return &BitVector{
		data: make([]byte, (n+7)/8),
		n:    n,
	}
}

// Len returns the number of bits in the vector.
func (v *BitVector) Len() int {
	return v.n
}

// Set sets bit i to 1 if val is true, 0 otherwise.
func (v *BitVector) Set(i int, val bool) {
	if val {
		v.data[i/8] |= 1 << (7 - i%8)
	} else {
		v.data[i/8] &^= 1 << (7 - i%8)
	}
}

// Bit returns bit i as 0 or 1.
func (v *BitVector) Bit(i int) int {
	return int(v.data[i/8]>>(7-i%8)) & 1
}

// Bytes returns the packed representation. The returned slice is the
// vector's backing array and must not be modified.
func (v *BitVector) Bytes() []byte {
	return v.data
}

// Clone returns an independent copy of the vector.
func (v *BitVector) Clone() *BitVector {
	c := NewBitVector(v.n)
	copy(c.data, v.data)
	return c
}

// Slice returns a copy of the bits in [lo, hi) as a new vector.
func (v *BitVector) Slice(lo, hi int) *BitVector {
	s := NewBitVector(hi - lo)
	for i := lo; i < hi; i++ {
		if v.Bit(i) == 1 {
			s.Set(i-lo, true)
		}
	}
	return s
}

// Hamming returns the number of bit positions at which v and o differ.
// The vectors must have the same length.
func (v *BitVector) Hamming(o *BitVector) (int, error) {
	if v.n != o.n {
		return 0, fmt.Errorf("bit vector length mismatch: %d vs %d", v.n, o.n)
	}
	d := 0
	for i := range v.data {
		d += bits.OnesCount8(v.data[i] ^ o.data[i])
	}
	return d, nil
}

// Equal reports whether v and o have the same length and bit content.
func (v *BitVector) Equal(o *BitVector) bool {
	d, err := v.Hamming(o)
	return err == nil && d == 0
}
