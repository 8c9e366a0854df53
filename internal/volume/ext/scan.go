package ext

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/bearstech/e2find/internal/volume"
)

// IterateDirEntries implements volume.Reader. It returns every entry of
// the directory, including "." and "..": the scanner decides what to
// skip, matching the source's original readDirectory behavior which
// never filtered dot entries either.
func (f *FS) IterateDirEntries(ino uint32) ([]volume.DirEntry, error) {
	di, err := f.readInode(ino)
	if err != nil {
		return nil, errors.Wrapf(err, "reading directory inode #%d", ino)
	}
	data, err := f.readInodeData(di, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "reading directory data for inode #%d", ino)
	}

	var entries []volume.DirEntry
	offset := 0
	for offset < len(data) {
		if offset+8 > len(data) {
			break
		}
		inodeNum := binary.LittleEndian.Uint32(data[offset : offset+4])
		recLen := binary.LittleEndian.Uint16(data[offset+4 : offset+6])
		nameLen := data[offset+6]

		if recLen < 8 {
			break
		}
		if inodeNum != 0 && nameLen > 0 {
			nameEnd := offset + 8 + int(nameLen)
			if nameEnd > len(data) {
				nameEnd = len(data)
			}
			entries = append(entries, volume.DirEntry{
				Ino:  inodeNum,
				Name: string(data[offset+8 : nameEnd]),
			})
		}
		offset += int(recLen)
	}
	return entries, nil
}

// inodeIter batches reads a whole block group's worth of raw inode
// records per ReadAt call, so a full-volume scan does inode_count /
// inodes_per_group large sequential reads instead of one small read
// per inode — the same "amortize seek-heavy small reads" idea
// spec.md's purpose section calls out, applied at inode-table
// granularity.
type inodeIter struct {
	fs      *FS
	nextIno uint32
	total   uint32

	haveGroup  bool
	groupNo    uint32
	groupBytes []byte
}

// IterateInodes implements volume.Reader.
func (f *FS) IterateInodes() (volume.InodeIterator, error) {
	return &inodeIter{fs: f, total: f.sb.inodesCount}, nil
}

func (it *inodeIter) loadGroup(group uint32) error {
	bgd, err := it.fs.readBlockGroupDescriptor(group)
	if err != nil {
		return err
	}
	sz := int(it.fs.sb.inodesPerGroup) * int(it.fs.sb.inodeSize)
	buf := make([]byte, sz)
	if _, err := it.fs.r.ReadAt(buf, it.fs.blockOffset(bgd.inodeTable)); err != nil {
		return err
	}
	it.groupBytes = buf
	it.groupNo = group
	it.haveGroup = true
	return nil
}

// Next implements volume.InodeIterator.
func (it *inodeIter) Next() (volume.InodeRecord, error) {
	if it.nextIno >= it.total {
		return volume.InodeRecord{Ino: 0}, nil
	}
	it.nextIno++
	inodeNum := it.nextIno

	group := (inodeNum - 1) / it.fs.sb.inodesPerGroup
	index := (inodeNum - 1) % it.fs.sb.inodesPerGroup

	if !it.haveGroup || it.groupNo != group {
		if err := it.loadGroup(group); err != nil {
			return volume.InodeRecord{Ino: inodeNum}, errors.Wrapf(volume.ErrFatalScan, "loading block group %d: %v", group, err)
		}
	}

	off := int(index) * int(it.fs.sb.inodeSize)
	if off+int(it.fs.sb.inodeSize) > len(it.groupBytes) {
		return volume.InodeRecord{Ino: inodeNum}, errors.Errorf("inode #%d out of range for group %d", inodeNum, group)
	}
	ino := decodeInode(it.groupBytes[off : off+int(it.fs.sb.inodeSize)])

	return volume.InodeRecord{
		Ino:        inodeNum,
		IsDir:      ino.mode&modeTypeMask == modeDir,
		LinksCount: ino.linksCount,
		Mtime:      ino.mtime,
		Ctime:      ino.ctime,
	}, nil
}

// Close implements volume.InodeIterator.
func (it *inodeIter) Close() error {
	it.groupBytes = nil
	return nil
}
