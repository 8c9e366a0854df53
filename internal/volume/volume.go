// Package volume defines the narrow contract the scanner needs from an
// ext2/3/4 volume: opening it, iterating its inode table, and iterating
// one directory's entries. Concrete implementations live in
// subpackages (see ./ext).
package volume

import "github.com/pkg/errors"

// InodeRecord is what pass 1 receives for each inode in the volume's
// inode table.
type InodeRecord struct {
	Ino        uint32
	IsDir      bool
	LinksCount uint16
	Mtime      uint32
	Ctime      uint32
}

// DirEntry is what pass 2 receives for each entry of a directory's data
// blocks.
type DirEntry struct {
	Ino  uint32
	Name string
}

// ErrFatalScan wraps an error that aborts the inode-table scan
// entirely, as opposed to a per-inode decode error that the scan
// tolerates and continues past.
var ErrFatalScan = errors.New("volume: fatal inode scan error")

// InodeIterator yields inode records in ascending inode-number order.
// The record with Ino == 0 signals the end of the scan. A non-nil error
// paired with a non-zero Ino means that single inode could not be
// decoded and the scan continues; an error wrapping ErrFatalScan means
// the iterator itself failed and the caller must stop.
type InodeIterator interface {
	Next() (InodeRecord, error)
	Close() error
}

// Reader is the contract the scanner requires from a volume
// implementation.
type Reader interface {
	// InodeCount reports the filesystem's configured inode count.
	InodeCount() uint32
	// FirstUsableInode reports the smallest non-reserved inode number
	// (typically 11), below which only inode 2 (root) is meaningful.
	FirstUsableInode() uint32
	// IterateInodes starts a scan of the whole inode table.
	IterateInodes() (InodeIterator, error)
	// IterateDirEntries returns every directory entry of the directory
	// inode ino, including "." and "..".
	IterateDirEntries(ino uint32) ([]DirEntry, error)
	// Close releases the underlying handle.
	Close() error
}
