// Package fstype sniffs the on-disk type of a filesystem image from its
// header bytes, used to turn "not an ext filesystem" into a diagnostic
// that names what was actually found instead of a bare open failure.
package fstype

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Type identifies a filesystem or partitioning format.
type Type int

const (
	Unknown Type = iota
	Ext2
	Ext3
	Ext4
	GPT
	APFS
	HFSPlus
	NTFS
	// FATOrMBR covers anything carrying a 0x55AA boot-sector signature
	// that isn't ext2/3/4 — distinguishing FAT12/16/32 from a raw MBR
	// partition table needs more than a magic-number check, and e2find
	// has no use for the distinction: both mean "not ext".
	FATOrMBR
)

func (t Type) String() string {
	switch t {
	case Ext2:
		return "ext2"
	case Ext3:
		return "ext3"
	case Ext4:
		return "ext4"
	case GPT:
		return "a GPT-partitioned disk"
	case APFS:
		return "APFS"
	case HFSPlus:
		return "HFS+"
	case NTFS:
		return "NTFS"
	case FATOrMBR:
		return "FAT or an MBR-partitioned disk"
	default:
		return "unknown"
	}
}

// IsExt reports whether t is any ext2/3/4 variant.
func (t Type) IsExt() bool {
	return t == Ext2 || t == Ext3 || t == Ext4
}

var errShortRead = errors.New("fstype: image shorter than 512 bytes")

// signature is a fixed-offset byte pattern that identifies a format
// unambiguously on its own, needing no further parsing.
type signature struct {
	offset int
	magic  []byte
	typ    Type
}

var signatures = []signature{
	{512, []byte("EFI PART"), GPT},
	{32, []byte("NXSB"), APFS},
	{1024, []byte("H+"), HFSPlus},
	{1024, []byte("HX"), HFSPlus},
	{3, []byte("NTFS    "), NTFS},
}

// Detect sniffs the filesystem or partition-table type from the first
// 4KiB of r. It never returns an error for a recognized-as-Unknown
// image; errShortRead only fires when there isn't even a boot sector.
func Detect(r io.ReaderAt) (Type, error) {
	header := make([]byte, 4096)
	n, err := r.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		return Unknown, errors.Wrap(err, "fstype: reading header")
	}
	if n < 512 {
		return Unknown, errShortRead
	}

	if typ, ok := matchExt(header, n); ok {
		return typ, nil
	}

	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if n >= end && bytes.Equal(header[sig.offset:end], sig.magic) {
			return sig.typ, nil
		}
	}

	if n >= 512 && header[510] == 0x55 && header[511] == 0xAA {
		return FATOrMBR, nil
	}

	return Unknown, nil
}

// matchExt checks the ext2/3/4 superblock magic at byte offset 0x438
// and, if present, distinguishes the version from the feature flags.
func matchExt(header []byte, n int) (Type, bool) {
	const (
		magicOffset = 1024 + 0x38
		magic       = 0xEF53
	)
	if n < magicOffset+2 {
		return Unknown, false
	}
	if binary.LittleEndian.Uint16(header[magicOffset:magicOffset+2]) != magic {
		return Unknown, false
	}
	return extVersion(header[1024:]), true
}

// extVersion distinguishes ext2/ext3/ext4 from the feature flags in the
// superblock (the 1024 bytes starting at byte offset 1024).
func extVersion(superblock []byte) Type {
	if len(superblock) < 104 {
		return Ext2
	}

	featureCompat := binary.LittleEndian.Uint32(superblock[0x5C:0x60])
	featureIncompat := binary.LittleEndian.Uint32(superblock[0x60:0x64])

	const (
		incompat64bit    = 0x0080
		incompatExtents  = 0x0040
		incompatFlexBG   = 0x0200
		compatHasJournal = 0x0004
	)

	if featureIncompat&(incompat64bit|incompatExtents|incompatFlexBG) != 0 {
		return Ext4
	}
	if featureCompat&compatHasJournal != 0 {
		return Ext3
	}
	return Ext2
}
