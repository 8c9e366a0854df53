// Package bitfield implements a packed boolean vector indexed by inode
// number, used by the scanner to mark which inodes are directories and
// which are selected for output.
package bitfield

import "github.com/pkg/errors"

// ErrAlloc is returned by New when the backing buffer cannot be
// allocated.
var ErrAlloc = errors.New("bitfield: allocation failed")

// Bitfield is a fixed-size packed boolean vector. Set/Clear/Get do not
// bounds-check their argument; callers must ensure i < the nbits passed
// to New.
type Bitfield struct {
	bits []byte
	n    int
}

// New allocates a Bitfield able to address nbits distinct bits.
func New(nbits int) (*Bitfield, error) {
	bf, err := alloc(nbits)
	if err != nil {
		return nil, errors.Wrapf(ErrAlloc, "%d bits: %v", nbits, err)
	}
	return bf, nil
}

func alloc(nbits int) (bf *Bitfield, err error) {
	defer func() {
		if r := recover(); r != nil {
			bf = nil
			err = errors.Errorf("%v", r)
		}
	}()
	return &Bitfield{bits: make([]byte, (nbits+7)/8), n: nbits}, nil
}

// Len reports the number of addressable bits.
func (b *Bitfield) Len() int { return b.n }

// Bytes reports the size in bytes of the underlying storage.
func (b *Bitfield) Bytes() int { return len(b.bits) }

// Fill sets every bit to v.
func (b *Bitfield) Fill(v bool) {
	var f byte
	if v {
		f = 0xFF
	}
	for i := range b.bits {
		b.bits[i] = f
	}
}

// Set sets bit i.
func (b *Bitfield) Set(i uint32) { b.bits[i>>3] |= 1 << (i & 7) }

// Clear clears bit i.
func (b *Bitfield) Clear(i uint32) { b.bits[i>>3] &^= 1 << (i & 7) }

// Get reports whether bit i is set.
func (b *Bitfield) Get(i uint32) bool { return b.bits[i>>3]&(1<<(i&7)) != 0 }
