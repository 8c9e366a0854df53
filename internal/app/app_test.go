package app

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunHelpExitsZero(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"-h"}, &stdout, &stderr)
	require.Equal(t, ExitOK, code)
	require.Contains(t, stderr.String(), "usage: e2find")
}

func TestRunVersionExitsZero(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"-v"}, &stdout, &stderr)
	require.Equal(t, ExitOK, code)
	require.Contains(t, stdout.String(), Version)
}

func TestRunMissingArgument(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"--debug"}, &stdout, &stderr)
	require.Equal(t, ExitMissingArgument, code)
}

func TestRunBadAfterValue(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"--after", "not-a-number", "--image", "/tmp/whatever"}, &stdout, &stderr)
	require.Equal(t, ExitBadAfterValue, code)
}

func TestRunUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"--not-a-flag"}, &stdout, &stderr)
	require.Equal(t, ExitUnknownOrLookup, code)
}

func TestRunImageOpenFailureOnNonExtFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notanfs.img")
	require.NoError(t, os.WriteFile(path, make([]byte, 4096), 0o644))

	var stdout, stderr bytes.Buffer
	code := Run([]string{"--image", path}, &stdout, &stderr)
	require.Equal(t, ExitFilesystemOpen, code)
}

// buildMinimalImage writes a tiny valid ext2 image with just the root
// directory containing lost+found, enough to exercise Run end to end.
func buildMinimalImage(t *testing.T) string {
	t.Helper()

	const (
		blockSize       = 1024
		blocksCount     = 12
		inodesPerGroup  = 16
		inodeSize       = 128
		blockSuper      = 1
		blockBGDT       = 2
		blockInodeTable = 3 // 16*128 = 2048 bytes -> blocks 3,4
		blockRootData   = 5
		blockLFData     = 6
	)

	img := make([]byte, blocksCount*blockSize)
	sb := img[blockSuper*blockSize : blockSuper*blockSize+1024]
	binary.LittleEndian.PutUint32(sb[0x00:0x04], inodesPerGroup)
	binary.LittleEndian.PutUint32(sb[0x04:0x08], blocksCount)
	binary.LittleEndian.PutUint32(sb[0x14:0x18], 1)
	binary.LittleEndian.PutUint32(sb[0x18:0x1C], 0)
	binary.LittleEndian.PutUint32(sb[0x20:0x24], blocksCount)
	binary.LittleEndian.PutUint32(sb[0x28:0x2C], inodesPerGroup)
	binary.LittleEndian.PutUint16(sb[0x38:0x3A], 0xEF53)
	binary.LittleEndian.PutUint32(sb[0x4C:0x50], 0)
	binary.LittleEndian.PutUint16(sb[0x58:0x5A], inodeSize)

	bgd := img[blockBGDT*blockSize : blockBGDT*blockSize+32]
	binary.LittleEndian.PutUint32(bgd[0x08:0x0C], blockInodeTable)

	putInode := func(ino uint32, mode uint16, size uint64, links uint16, block0 uint32) {
		off := blockInodeTable*blockSize + int(ino-1)*inodeSize
		data := img[off : off+inodeSize]
		binary.LittleEndian.PutUint16(data[0x00:0x02], mode)
		binary.LittleEndian.PutUint32(data[0x04:0x08], uint32(size))
		binary.LittleEndian.PutUint16(data[0x1A:0x1C], links)
		if block0 != 0 {
			binary.LittleEndian.PutUint32(data[0x28:0x2C], block0)
		}
	}
	putInode(2, 0x41ED, blockSize, 3, blockRootData)
	putInode(11, 0x41ED, blockSize, 2, blockLFData)

	putDirBlock := func(block int, entries []struct {
		ino  uint32
		name string
	}) {
		data := img[block*blockSize : (block+1)*blockSize]
		off := 0
		for _, e := range entries {
			recLen := (8 + len(e.name) + 3) &^ 3
			binary.LittleEndian.PutUint32(data[off:off+4], e.ino)
			binary.LittleEndian.PutUint16(data[off+4:off+6], uint16(recLen))
			data[off+6] = byte(len(e.name))
			copy(data[off+8:off+8+len(e.name)], e.name)
			off += recLen
		}
	}
	type ent = struct {
		ino  uint32
		name string
	}
	putDirBlock(blockRootData, []ent{{2, "."}, {2, ".."}, {11, "lost+found"}})
	putDirBlock(blockLFData, []ent{{11, "."}, {2, ".."}})

	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")
	require.NoError(t, os.WriteFile(path, img, 0o644))
	return path
}

func TestRunEndToEndAgainstSyntheticImage(t *testing.T) {
	path := buildMinimalImage(t)

	var stdout, stderr bytes.Buffer
	code := Run([]string{"--image", path}, &stdout, &stderr)
	require.Equal(t, ExitOK, code, "stderr: %s", stderr.String())

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	require.ElementsMatch(t, []string{"/", "/lost+found"}, lines)
}
