// Package pvector implements an append-only byte buffer with amortized
// O(1) append and a hybrid geometric-then-linear growth policy, used as
// the backing storage for InodeTable and DirentStore.
package pvector

import "github.com/pkg/errors"

const (
	initialCapacity  = 64 * 1024
	maxGeometricStep = 1 << 20 // 1 MiB
)

// ErrOutOfMemory is returned when the backing allocator refuses to grow
// the buffer.
var ErrOutOfMemory = errors.New("pvector: out of memory")

// Vector is an append-only byte buffer. Appended records keep their
// byte offset for the lifetime of the Vector; offsets are never
// invalidated by later growth (growth always copies into a new backing
// array, but returned offsets remain valid indices into it).
type Vector struct {
	buf  []byte
	used int
}

// New returns an empty Vector with the initial 64 KiB capacity.
func New() *Vector {
	return &Vector{buf: make([]byte, 0, initialCapacity)}
}

// Len reports the number of bytes appended so far.
func (v *Vector) Len() int { return v.used }

// Append copies p onto the end of the buffer and returns the byte
// offset at which it was written.
func (v *Vector) Append(p []byte) (int, error) {
	if err := v.grow(len(p)); err != nil {
		return 0, err
	}
	off := v.used
	v.buf = v.buf[:v.used+len(p)]
	copy(v.buf[off:], p)
	v.used += len(p)
	return off, nil
}

// At returns a slice of n bytes starting at off, backed directly by the
// Vector's storage: mutations through the returned slice are visible to
// later reads (used by the scanner's parent-reference fix-up pass).
func (v *Vector) At(off, n int) []byte { return v.buf[off : off+n] }

// Bytes returns the written portion of the buffer.
func (v *Vector) Bytes() []byte { return v.buf[:v.used] }

func (v *Vector) grow(need int) (err error) {
	if v.used+need <= cap(v.buf) {
		return nil
	}

	capNow := cap(v.buf)
	if capNow == 0 {
		capNow = initialCapacity
	}
	delta := capNow
	if delta > maxGeometricStep {
		delta = maxGeometricStep
	}
	newCap := capNow + delta
	for newCap < v.used+need {
		newCap += maxGeometricStep
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrOutOfMemory, "growing to %d bytes: %v", newCap, r)
		}
	}()
	nb := make([]byte, v.used, newCap)
	copy(nb, v.buf[:v.used])
	v.buf = nb
	return nil
}
