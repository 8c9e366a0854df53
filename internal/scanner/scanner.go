// Package scanner orchestrates the two-pass inode-table and
// directory-entry scan described in spec.md §4.4-§4.6, turning a
// volume.Reader into a fixed-up dirent.Store ready for path
// resolution and emission.
package scanner

import (
	"github.com/pkg/errors"

	"github.com/bearstech/e2find/internal/bitfield"
	"github.com/bearstech/e2find/internal/dirent"
	"github.com/bearstech/e2find/internal/inodetable"
	"github.com/bearstech/e2find/internal/volume"
)

// Sentinel errors classifying fatal mid-run failures, mapped to exit
// codes by internal/app.
var (
	ErrScanOpen     = errors.New("scanner: inode scan open failed")
	ErrDirIteration = errors.New("scanner: directory iteration failed")
	ErrLookupMiss   = errors.New("scanner: inode lookup miss")
)

// Logger receives warning and debug lines. Both may be nil, in which
// case the corresponding messages are discarded.
type Logger struct {
	Warn  func(format string, args ...interface{})
	Debug func(format string, args ...interface{})
}

func (l Logger) warn(format string, args ...interface{}) {
	if l.Warn != nil {
		l.Warn(format, args...)
	}
}

func (l Logger) debug(format string, args ...interface{}) {
	if l.Debug != nil {
		l.Debug(format, args...)
	}
}

// Options configures a Scanner run.
type Options struct {
	TimeMode inodetable.Mode
	// After, if non-nil, restricts selection to inodes with mtime or
	// ctime >= *After.
	After *uint32
}

// Scanner owns the buffers built by one run: the inode table, the two
// bitfields, and the dirent store. Its lifecycle is construct -> Run ->
// read results -> drop; it is not safe for concurrent use nor for
// reuse across volumes.
type Scanner struct {
	opts   Options
	volume volume.Reader
	log    Logger

	Table    *inodetable.Table
	IsDir    *bitfield.Bitfield
	Selected *bitfield.Bitfield
	Dirents  *dirent.Store
}

// New constructs a Scanner over vol with the given options.
func New(vol volume.Reader, opts Options, log Logger) *Scanner {
	return &Scanner{
		opts:    opts,
		volume:  vol,
		log:     log,
		Table:   inodetable.New(opts.TimeMode),
		Dirents: dirent.New(),
	}
}

// Run executes pass 1, pass 2, and the parent-reference fix-up, in
// order. On success the Scanner's Table/IsDir/Selected/Dirents fields
// are ready for pathresolve and emit.
func (s *Scanner) Run() error {
	if err := s.pass1(); err != nil {
		return err
	}
	if err := s.pass2(); err != nil {
		return err
	}
	s.fixup()
	return nil
}

func (s *Scanner) pass1() error {
	count := s.volume.InodeCount()

	isDir, err := bitfield.New(int(count) + 1)
	if err != nil {
		return err
	}
	selected, err := bitfield.New(int(count) + 1)
	if err != nil {
		return err
	}
	s.IsDir, s.Selected = isDir, selected

	if s.opts.After == nil {
		s.Selected.Fill(true)
	}

	first := s.volume.FirstUsableInode()

	it, err := s.volume.IterateInodes()
	if err != nil {
		return errors.Wrap(ErrScanOpen, err.Error())
	}
	defer it.Close()

	selectedCount := 0
	for {
		rec, err := it.Next()
		if err != nil {
			if errors.Is(err, volume.ErrFatalScan) {
				return errors.Wrap(ErrScanOpen, err.Error())
			}
			s.log.warn("inode #%d: scan error: %v", rec.Ino, err)
			continue
		}
		if rec.Ino == 0 {
			break
		}
		if (rec.Ino < first && rec.Ino != 2) || rec.LinksCount == 0 {
			continue
		}

		if rec.IsDir {
			s.IsDir.Set(rec.Ino)
		}

		if s.opts.After != nil {
			if rec.Mtime >= *s.opts.After || rec.Ctime >= *s.opts.After {
				s.Selected.Set(rec.Ino)
				selectedCount++
			}
		}

		var t1, t2 uint32
		switch s.opts.TimeMode {
		case inodetable.ModeMtime:
			t1 = rec.Mtime
		case inodetable.ModeCtime:
			t1 = rec.Ctime
		case inodetable.ModeBoth:
			t1, t2 = rec.Mtime, rec.Ctime
		}
		if _, err := s.Table.Append(rec.Ino, t1, t2); err != nil {
			return err
		}
	}

	s.log.debug("selection: inode scan done, %d inodes recorded, %d selected", s.Table.Len(), selectedCount)
	return nil
}

func (s *Scanner) pass2() error {
	n := s.Table.Len()
	for idx := 0; idx < n; idx++ {
		dirIno := s.Table.Ino(idx)
		if !s.IsDir.Get(dirIno) {
			continue
		}

		entries, err := s.volume.IterateDirEntries(dirIno)
		if err != nil {
			return errors.Wrapf(ErrDirIteration, "inode #%d: %v", dirIno, err)
		}

		for _, e := range entries {
			if e.Ino == dirIno && dirIno != 2 {
				continue // "." self-entry, except root's
			}
			if e.Name == ".." {
				continue
			}

			childIdx, ok := s.Table.Lookup(e.Ino)
			if !ok {
				return errors.Wrapf(ErrLookupMiss, "child #%d named %q in directory #%d", e.Ino, e.Name, dirIno)
			}

			name := e.Name
			if dirIno == 2 && e.Ino == dirIno {
				name = "" // root sentinel
			}

			off, err := s.Dirents.Append(uint32(childIdx), uint32(idx), name)
			if err != nil {
				return err
			}
			// First-seen wins: a hardlinked inode keeps the offset of
			// the first dirent naming it.
			if s.Table.DirentOffset(childIdx) == 0 {
				s.Table.SetDirentOffset(childIdx, uint32(off))
			}
		}
	}
	return nil
}

// fixup rewrites every dirent's parent field from an InodeTable index
// into the DirentStore byte offset of that parent inode's own dirent,
// per spec.md §4.6.
func (s *Scanner) fixup() {
	for off := s.Dirents.First(); off >= 0; off = s.Dirents.Next(off) {
		parentIdx := s.Dirents.ParentIndex(off)
		parentOffset := s.Table.DirentOffset(int(parentIdx))
		s.Dirents.SetParentIndex(off, parentOffset)
	}
}

// ResolveOne resolves the path of a single already-scanned inode by
// number, without a full emission pass. Mirrors the ncheck-style
// single-inode lookup the earliest historical driver exposed to its
// companion tool (see SPEC_FULL.md §10); unused by the CLI itself.
func (s *Scanner) ResolveOne(ino uint32, resolve func(off int) (string, error)) (string, bool, error) {
	idx, ok := s.Table.Lookup(ino)
	if !ok {
		return "", false, nil
	}
	off := s.Table.DirentOffset(idx)
	if off == 0 && ino != 2 {
		return "", false, nil
	}
	path, err := resolve(int(off))
	if err != nil {
		return "", true, err
	}
	return path, true, nil
}
