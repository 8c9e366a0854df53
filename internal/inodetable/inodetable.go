// Package inodetable implements the packed, sorted-by-inode-number
// record array that pass 1 of the scanner fills and pass 2 looks up
// against.
package inodetable

import (
	"encoding/binary"

	"github.com/bearstech/e2find/internal/pvector"
)

// Mode selects which optional timestamp columns a Table stores,
// fixing its record stride for the lifetime of the Table.
type Mode int

const (
	ModeNone Mode = iota
	ModeMtime
	ModeCtime
	ModeBoth
)

// Stride returns the fixed record size in bytes for m.
func (m Mode) Stride() int {
	switch m {
	case ModeNone:
		return 8
	case ModeMtime, ModeCtime:
		return 12
	case ModeBoth:
		return 16
	default:
		panic("inodetable: invalid mode")
	}
}

// Table is a PackedVector of fixed-stride {ino, dirent_offset, time1?,
// time2?} records, kept in strictly ascending ino order by construction
// (callers must Append in ascending ino order; this is guaranteed by
// the volume reader's inode-table iterator).
type Table struct {
	mode   Mode
	stride int
	vec    *pvector.Vector
}

// New returns an empty Table storing records of the given Mode.
func New(mode Mode) *Table {
	return &Table{mode: mode, stride: mode.Stride(), vec: pvector.New()}
}

// Mode reports the Table's timestamp mode.
func (t *Table) Mode() Mode { return t.mode }

// Len reports the number of records stored.
func (t *Table) Len() int { return t.vec.Len() / t.stride }

// Append adds a record for ino, with dirent_offset left at 0 (filled in
// during pass 2), and returns its index.
func (t *Table) Append(ino, time1, time2 uint32) (int, error) {
	buf := make([]byte, t.stride)
	binary.LittleEndian.PutUint32(buf[0:4], ino)
	switch t.mode {
	case ModeMtime, ModeCtime:
		binary.LittleEndian.PutUint32(buf[8:12], time1)
	case ModeBoth:
		binary.LittleEndian.PutUint32(buf[8:12], time1)
		binary.LittleEndian.PutUint32(buf[12:16], time2)
	}
	off, err := t.vec.Append(buf)
	if err != nil {
		return 0, err
	}
	return off / t.stride, nil
}

func (t *Table) record(idx int) []byte {
	return t.vec.At(idx*t.stride, t.stride)
}

// Ino returns the inode number stored at idx.
func (t *Table) Ino(idx int) uint32 {
	return binary.LittleEndian.Uint32(t.record(idx)[0:4])
}

// DirentOffset returns the recorded DirentStore offset for idx, or 0 if
// none has been set yet.
func (t *Table) DirentOffset(idx int) uint32 {
	return binary.LittleEndian.Uint32(t.record(idx)[4:8])
}

// SetDirentOffset records off as the DirentStore offset of any dirent
// naming the inode at idx. Later calls are ignored by the scanner
// (first-seen wins); this method itself always overwrites.
func (t *Table) SetDirentOffset(idx int, off uint32) {
	binary.LittleEndian.PutUint32(t.record(idx)[4:8], off)
}

// Mtime returns the stored mtime column for idx. Only meaningful when
// Mode is ModeMtime or ModeBoth.
func (t *Table) Mtime(idx int) uint32 {
	if t.mode != ModeMtime && t.mode != ModeBoth {
		return 0
	}
	return binary.LittleEndian.Uint32(t.record(idx)[8:12])
}

// Ctime returns the stored ctime column for idx. Only meaningful when
// Mode is ModeCtime or ModeBoth.
func (t *Table) Ctime(idx int) uint32 {
	switch t.mode {
	case ModeCtime:
		return binary.LittleEndian.Uint32(t.record(idx)[8:12])
	case ModeBoth:
		return binary.LittleEndian.Uint32(t.record(idx)[12:16])
	default:
		return 0
	}
}

// Lookup finds the index of the record with the given inode number
// using bisection over the sorted array,
// finishing with a short linear walk. Callers must only look up inode
// numbers known to be present; ok is false only to signal a
// programming error to the caller, not a normal outcome.
func (t *Table) Lookup(ino uint32) (index int, ok bool) {
	count := t.Len()
	index = count
	half := count
	haveCurrent := false
	var currentIno uint32

	for half > 1 {
		half /= 2
		if haveCurrent && currentIno < ino {
			index += half
		} else {
			index -= half
		}
		currentIno = t.Ino(index)
		haveCurrent = true
		if currentIno == ino {
			return index, true
		}
	}

	if count < 2 {
		for i := 0; i < count; i++ {
			v := t.Ino(i)
			if v == ino {
				return i, true
			}
			if v > ino {
				break
			}
		}
		return 0, false
	}

	if currentIno < ino {
		for i := index + 1; i < count; i++ {
			v := t.Ino(i)
			if v == ino {
				return i, true
			}
			if v > ino {
				break
			}
		}
	} else {
		for i := index - 1; i >= 0; i-- {
			v := t.Ino(i)
			if v == ino {
				return i, true
			}
			if v < ino {
				break
			}
		}
	}
	return 0, false
}
