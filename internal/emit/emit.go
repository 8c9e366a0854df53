// Package emit writes the final path listing to an io.Writer, per
// spec.md §4.8's output grammar.
package emit

import (
	"bufio"
	"fmt"
	"io"

	"github.com/bearstech/e2find/internal/bitfield"
	"github.com/bearstech/e2find/internal/dirent"
	"github.com/bearstech/e2find/internal/inodetable"
	"github.com/bearstech/e2find/internal/pathresolve"
)

// Options configures a single Emit call.
type Options struct {
	TimeMode   inodetable.Mode
	Unique     bool
	Terminator byte // '\n' unless --print0 was given, then 0
}

// Warn is called with a formatted warning for any per-entry resolution
// failure. May be nil.
type Warn func(format string, args ...interface{})

// Emit writes one record per selected dirent in table/dirents to w.
func Emit(w io.Writer, table *inodetable.Table, dirents *dirent.Store, selected *bitfield.Bitfield, opts Options, warn Warn) error {
	bw := bufio.NewWriter(w)

	for off := dirents.First(); off >= 0; off = dirents.Next(off) {
		childIdx := int(dirents.InodeIndex(off))
		ino := table.Ino(childIdx)

		if !selected.Get(ino) {
			continue
		}
		if opts.Unique {
			selected.Clear(ino)
		}

		path, err := pathresolve.Resolve(dirents, off)
		if err != nil {
			if warn != nil {
				warn("inode #%d: %v", ino, err)
			}
			continue
		}

		if _, err := bw.WriteString(prefix(table, childIdx, opts.TimeMode)); err != nil {
			return err
		}
		if _, err := bw.WriteString(path); err != nil {
			return err
		}
		if err := bw.WriteByte(opts.Terminator); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func prefix(table *inodetable.Table, idx int, mode inodetable.Mode) string {
	switch mode {
	case inodetable.ModeMtime:
		return fmt.Sprintf("%10d ", table.Mtime(idx))
	case inodetable.ModeCtime:
		return fmt.Sprintf("%10d ", table.Ctime(idx))
	case inodetable.ModeBoth:
		return fmt.Sprintf("%10d %10d ", table.Mtime(idx), table.Ctime(idx))
	default:
		return ""
	}
}
