// Package dirent implements the packed, variable-length record array
// built during pass 2 of the scanner: one record per directory entry
// naming a used inode, later stitched into a parent-pointer graph by
// the fix-up pass.
package dirent

import (
	"encoding/binary"

	"github.com/bearstech/e2find/internal/pvector"
)

// Store is a PackedVector of variable-length {ino_idx, parent_idx,
// name} records, NUL-terminated and padded to 4-byte alignment.
//
// parent_idx carries two meanings across the store's lifetime: during
// pass 2 it is an InodeTable index; after the fix-up pass it is a byte
// offset into this Store. Store itself is agnostic to which meaning is
// current — ParentIndex/SetParentIndex just move raw uint32s — and it
// is the Scanner's job to call the fix-up pass exactly once, between
// pass 2 and emission.
type Store struct {
	vec *pvector.Vector
}

// New returns an empty Store.
func New() *Store {
	return &Store{vec: pvector.New()}
}

// Used reports the number of bytes appended so far; also the offset a
// subsequent Append would receive.
func (s *Store) Used() int { return s.vec.Len() }

func align4(n int) int { return (n + 3) &^ 3 }

// Append writes a record naming inoIdx (an InodeTable index) with the
// given parentIdx (an InodeTable index; rewritten to a byte offset by
// the fix-up pass) and name, and returns the byte offset it was
// written at. An empty name marks the root sentinel.
func (s *Store) Append(inoIdx, parentIdx uint32, name string) (int, error) {
	n := len(name)
	total := align4(8 + n + 1)
	buf := make([]byte, total)
	binary.LittleEndian.PutUint32(buf[0:4], inoIdx)
	binary.LittleEndian.PutUint32(buf[4:8], parentIdx)
	copy(buf[8:8+n], name)
	return s.vec.Append(buf)
}

// InodeIndex returns the InodeTable index of the inode this dirent
// names.
func (s *Store) InodeIndex(offset int) uint32 {
	return binary.LittleEndian.Uint32(s.vec.At(offset, 4))
}

// ParentIndex returns the raw parent field at offset — an InodeTable
// index before fix-up, a Store byte offset after.
func (s *Store) ParentIndex(offset int) uint32 {
	return binary.LittleEndian.Uint32(s.vec.At(offset+4, 4))
}

// SetParentIndex overwrites the parent field at offset in place. Used
// by the fix-up pass.
func (s *Store) SetParentIndex(offset int, v uint32) {
	binary.LittleEndian.PutUint32(s.vec.At(offset+4, 4), v)
}

// Name returns the name stored at offset. Empty for the root sentinel.
func (s *Store) Name(offset int) string {
	data := s.vec.Bytes()
	i := offset + 8
	for data[i] != 0 {
		i++
	}
	return string(data[offset+8 : i])
}

// recordLen returns the total padded length in bytes of the record at
// offset.
func (s *Store) recordLen(offset int) int {
	data := s.vec.Bytes()
	i := offset + 8
	for data[i] != 0 {
		i++
	}
	return align4(i + 1 - offset)
}

// Next returns the offset of the record following the one at offset,
// or -1 if offset was the last record.
func (s *Store) Next(offset int) int {
	n := offset + s.recordLen(offset)
	if n >= s.vec.Len() {
		return -1
	}
	return n
}

// First returns the offset of the first record, or -1 if the store is
// empty.
func (s *Store) First() int {
	if s.vec.Len() == 0 {
		return -1
	}
	return 0
}
