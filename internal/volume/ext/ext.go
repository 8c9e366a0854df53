// Package ext implements volume.Reader for ext2/ext3/ext4 filesystems,
// adapted from a general-purpose read-only ext2/3/4 reader down to the
// two operations the scanner actually needs: a batched inode-table scan
// and per-directory dirent iteration. File-content reading (extent and
// block-pointer resolution) is kept because directory data itself is
// read the same way an ordinary file's data would be.
package ext

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	superblockOffset = 1024
	superblockSize   = 1024
	extMagic         = 0xEF53

	inodeFlagExtents = 0x00080000

	featureIncompatExtents = 0x0040
	featureIncompat64Bit   = 0x0080
	featureCompatHasJournal = 0x0004

	modeTypeMask = 0xF000
	modeDir      = 0x4000

	goodOldFirstIno = 11
)

// ErrNotExt is returned by Open when the superblock magic does not
// match ext2/3/4.
var ErrNotExt = errors.New("ext: not an ext2/3/4 filesystem")

type superblock struct {
	inodesCount      uint32
	blocksCount      uint64
	firstDataBlock   uint32
	logBlockSize     uint32
	blocksPerGroup   uint32
	inodesPerGroup   uint32
	revLevel         uint32
	firstIno         uint32
	inodeSize        uint16
	featureCompat    uint32
	featureIncompat  uint32
	descSize         uint16
	groupCount       uint32
}

type blockGroupDescriptor struct {
	inodeTable uint64
}

type inode struct {
	mode       uint16
	size       uint64
	atime      uint32
	ctime      uint32
	mtime      uint32
	linksCount uint16
	flags      uint32
	block      [60]byte
}

// FS is a read-only handle on an ext2/3/4 volume.
type FS struct {
	r         io.ReaderAt
	file      *os.File
	blockSize uint32
	sb        superblock
	typ       string
}

// Open opens the ext2/3/4 volume at path (a block device or an image
// file) and parses its superblock.
func Open(path string) (*FS, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	fsys, err := OpenReaderAt(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	fsys.file = f
	return fsys, nil
}

// OpenReaderAt parses an ext2/3/4 superblock from r, an already-open
// reader of size bytes.
func OpenReaderAt(r io.ReaderAt, size int64) (*FS, error) {
	sbData := make([]byte, superblockSize)
	if _, err := r.ReadAt(sbData, superblockOffset); err != nil {
		return nil, errors.Wrap(err, "reading superblock")
	}

	magic := binary.LittleEndian.Uint16(sbData[0x38:0x3A])
	if magic != extMagic {
		return nil, ErrNotExt
	}

	f := &FS{r: r}
	if err := f.parseSuperblock(sbData); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FS) parseSuperblock(data []byte) error {
	f.sb.inodesCount = binary.LittleEndian.Uint32(data[0x00:0x04])
	f.sb.blocksCount = uint64(binary.LittleEndian.Uint32(data[0x04:0x08]))
	f.sb.firstDataBlock = binary.LittleEndian.Uint32(data[0x14:0x18])
	f.sb.logBlockSize = binary.LittleEndian.Uint32(data[0x18:0x1C])
	f.sb.blocksPerGroup = binary.LittleEndian.Uint32(data[0x20:0x24])
	f.sb.inodesPerGroup = binary.LittleEndian.Uint32(data[0x28:0x2C])
	f.sb.revLevel = binary.LittleEndian.Uint32(data[0x4C:0x50])
	f.sb.firstIno = binary.LittleEndian.Uint32(data[0x54:0x58])
	f.sb.inodeSize = binary.LittleEndian.Uint16(data[0x58:0x5A])
	f.sb.featureCompat = binary.LittleEndian.Uint32(data[0x5C:0x60])
	f.sb.featureIncompat = binary.LittleEndian.Uint32(data[0x60:0x64])

	f.blockSize = 1024 << f.sb.logBlockSize

	if f.sb.revLevel == 0 {
		f.sb.inodeSize = 128
		f.sb.firstIno = goodOldFirstIno
	}

	if f.sb.featureIncompat&featureIncompat64Bit != 0 {
		f.sb.descSize = binary.LittleEndian.Uint16(data[0xFE:0x100])
		if f.sb.descSize == 0 {
			f.sb.descSize = 64
		}
		high := binary.LittleEndian.Uint32(data[0x150:0x154])
		f.sb.blocksCount |= uint64(high) << 32
	} else {
		f.sb.descSize = 32
	}

	f.sb.groupCount = uint32((f.sb.blocksCount - uint64(f.sb.firstDataBlock) + uint64(f.sb.blocksPerGroup) - 1) / uint64(f.sb.blocksPerGroup))

	switch {
	case f.sb.featureIncompat&(featureIncompatExtents|featureIncompat64Bit) != 0:
		f.typ = "ext4"
	case f.sb.featureCompat&featureCompatHasJournal != 0:
		f.typ = "ext3"
	default:
		f.typ = "ext2"
	}

	return nil
}

// Type reports "ext2", "ext3", or "ext4".
func (f *FS) Type() string { return f.typ }

// Close releases the underlying file, if Open (rather than
// OpenReaderAt) was used.
func (f *FS) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}

// InodeCount implements volume.Reader.
func (f *FS) InodeCount() uint32 { return f.sb.inodesCount }

// FirstUsableInode implements volume.Reader.
func (f *FS) FirstUsableInode() uint32 {
	if f.sb.firstIno == 0 {
		return goodOldFirstIno
	}
	return f.sb.firstIno
}

func (f *FS) blockOffset(block uint64) int64 {
	return int64(block) * int64(f.blockSize)
}

func (f *FS) readBlock(block uint64) ([]byte, error) {
	data := make([]byte, f.blockSize)
	if _, err := f.r.ReadAt(data, f.blockOffset(block)); err != nil {
		return nil, err
	}
	return data, nil
}

func (f *FS) readBlockGroupDescriptor(group uint32) (blockGroupDescriptor, error) {
	descBlock := uint64(f.sb.firstDataBlock + 1)
	descOffset := f.blockOffset(descBlock) + int64(group)*int64(f.sb.descSize)

	data := make([]byte, f.sb.descSize)
	if _, err := f.r.ReadAt(data, descOffset); err != nil {
		return blockGroupDescriptor{}, err
	}

	bgd := blockGroupDescriptor{
		inodeTable: uint64(binary.LittleEndian.Uint32(data[0x08:0x0C])),
	}
	if f.sb.featureIncompat&featureIncompat64Bit != 0 && f.sb.descSize >= 64 {
		bgd.inodeTable |= uint64(binary.LittleEndian.Uint32(data[0x28:0x2C])) << 32
	}
	return bgd, nil
}

func decodeInode(data []byte) inode {
	ino := inode{
		mode:       binary.LittleEndian.Uint16(data[0x00:0x02]),
		size:       uint64(binary.LittleEndian.Uint32(data[0x04:0x08])),
		atime:      binary.LittleEndian.Uint32(data[0x08:0x0C]),
		ctime:      binary.LittleEndian.Uint32(data[0x0C:0x10]),
		mtime:      binary.LittleEndian.Uint32(data[0x10:0x14]),
		linksCount: binary.LittleEndian.Uint16(data[0x1A:0x1C]),
		flags:      binary.LittleEndian.Uint32(data[0x20:0x24]),
	}
	copy(ino.block[:], data[0x28:0x64])
	if ino.mode&modeTypeMask == 0x8000 || ino.mode&modeTypeMask == modeDir {
		ino.size |= uint64(binary.LittleEndian.Uint32(data[0x6C:0x70])) << 32
	}
	return ino
}

func (f *FS) readInode(inodeNum uint32) (inode, error) {
	if inodeNum == 0 {
		return inode{}, errors.New("invalid inode number 0")
	}
	group := (inodeNum - 1) / f.sb.inodesPerGroup
	index := (inodeNum - 1) % f.sb.inodesPerGroup

	bgd, err := f.readBlockGroupDescriptor(group)
	if err != nil {
		return inode{}, err
	}
	off := f.blockOffset(bgd.inodeTable) + int64(index)*int64(f.sb.inodeSize)
	data := make([]byte, f.sb.inodeSize)
	if _, err := f.r.ReadAt(data, off); err != nil {
		return inode{}, err
	}
	return decodeInode(data), nil
}
