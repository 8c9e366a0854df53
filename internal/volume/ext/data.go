package ext

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// readInodeData reads all data blocks of ino, up to maxSize bytes (0
// means the inode's full recorded size). Directory contents are read
// through this same path as regular file data — ext2/3/4 makes no
// on-disk distinction between the two.
func (f *FS) readInodeData(ino inode, maxSize int64) ([]byte, error) {
	if maxSize == 0 || maxSize > int64(ino.size) {
		maxSize = int64(ino.size)
	}
	if ino.flags&inodeFlagExtents != 0 {
		return f.readExtents(ino, maxSize)
	}
	return f.readBlockPointers(ino, maxSize)
}

func (f *FS) readBlockPointers(ino inode, maxSize int64) ([]byte, error) {
	var data []byte
	blocksNeeded := (maxSize + int64(f.blockSize) - 1) / int64(f.blockSize)
	blocksRead := int64(0)

	for i := 0; i < 12 && blocksRead < blocksNeeded; i++ {
		blockNum := binary.LittleEndian.Uint32(ino.block[i*4 : (i+1)*4])
		if blockNum == 0 {
			continue
		}
		block, err := f.readBlock(uint64(blockNum))
		if err != nil {
			return nil, err
		}
		data = append(data, block...)
		blocksRead++
	}

	indirects := []struct {
		off   int
		level int
	}{{48, 1}, {52, 2}, {56, 3}}
	for _, ind := range indirects {
		if blocksRead >= blocksNeeded {
			break
		}
		block := binary.LittleEndian.Uint32(ino.block[ind.off : ind.off+4])
		if block == 0 {
			continue
		}
		more, err := f.readIndirectBlocks(uint64(block), ind.level, blocksNeeded-blocksRead)
		if err != nil {
			return nil, err
		}
		data = append(data, more...)
		blocksRead += int64(len(more)) / int64(f.blockSize)
	}

	if int64(len(data)) > maxSize {
		data = data[:maxSize]
	}
	return data, nil
}

func (f *FS) readIndirectBlocks(block uint64, level int, maxBlocks int64) ([]byte, error) {
	blockData, err := f.readBlock(block)
	if err != nil {
		return nil, err
	}

	var data []byte
	pointersPerBlock := int(f.blockSize / 4)
	blocksRead := int64(0)

	for i := 0; i < pointersPerBlock && blocksRead < maxBlocks; i++ {
		ptr := binary.LittleEndian.Uint32(blockData[i*4 : (i+1)*4])
		if ptr == 0 {
			continue
		}
		if level == 1 {
			blk, err := f.readBlock(uint64(ptr))
			if err != nil {
				return nil, err
			}
			data = append(data, blk...)
			blocksRead++
		} else {
			more, err := f.readIndirectBlocks(uint64(ptr), level-1, maxBlocks-blocksRead)
			if err != nil {
				return nil, err
			}
			data = append(data, more...)
			blocksRead += int64(len(more)) / int64(f.blockSize)
		}
	}
	return data, nil
}

type extentHeader struct {
	magic   uint16
	entries uint16
	depth   uint16
}

type extentIdx struct {
	leafLo uint32
	leafHi uint16
}

type extent struct {
	block   uint32
	len     uint16
	startHi uint16
	startLo uint32
}

func (f *FS) readExtents(ino inode, maxSize int64) ([]byte, error) {
	var data []byte

	err := f.walkExtentTree(ino.block[:], func(e extent) error {
		if int64(len(data)) >= maxSize {
			return errStop
		}
		startBlock := uint64(e.startLo) | (uint64(e.startHi) << 32)
		length := e.len
		if length > 0x8000 {
			length -= 0x8000 // uninitialized extent
		}
		for i := uint16(0); i < length; i++ {
			if int64(len(data)) >= maxSize {
				break
			}
			block, err := f.readBlock(startBlock + uint64(i))
			if err != nil {
				return err
			}
			data = append(data, block...)
		}
		return nil
	})
	if err != nil && err != errStop {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		data = data[:maxSize]
	}
	return data, nil
}

// errStop is an internal sentinel used to short-circuit walkExtentTree
// once enough data has been read; it never escapes readExtents.
var errStop = errors.New("ext: enough data read")

func (f *FS) walkExtentTree(data []byte, fn func(extent) error) error {
	hdr := extentHeader{
		magic:   binary.LittleEndian.Uint16(data[0:2]),
		entries: binary.LittleEndian.Uint16(data[2:4]),
		depth:   binary.LittleEndian.Uint16(data[6:8]),
	}
	if hdr.magic != 0xF30A {
		return errors.Errorf("invalid extent magic: %04x", hdr.magic)
	}

	if hdr.depth == 0 {
		for i := uint16(0); i < hdr.entries; i++ {
			off := 12 + int(i)*12
			e := extent{
				block:   binary.LittleEndian.Uint32(data[off : off+4]),
				len:     binary.LittleEndian.Uint16(data[off+4 : off+6]),
				startHi: binary.LittleEndian.Uint16(data[off+6 : off+8]),
				startLo: binary.LittleEndian.Uint32(data[off+8 : off+12]),
			}
			if err := fn(e); err != nil {
				return err
			}
		}
		return nil
	}

	for i := uint16(0); i < hdr.entries; i++ {
		off := 12 + int(i)*12
		idx := extentIdx{
			leafLo: binary.LittleEndian.Uint32(data[off+4 : off+8]),
			leafHi: binary.LittleEndian.Uint16(data[off+8 : off+10]),
		}
		leafBlock := uint64(idx.leafLo) | (uint64(idx.leafHi) << 32)
		blockData, err := f.readBlock(leafBlock)
		if err != nil {
			return err
		}
		if err := f.walkExtentTree(blockData, fn); err != nil {
			return err
		}
	}
	return nil
}
