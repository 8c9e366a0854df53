package dirent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendAndReadBack(t *testing.T) {
	s := New()
	rootOff, err := s.Append(0, 0, "")
	require.NoError(t, err)
	childOff, err := s.Append(1, 0, "etc")
	require.NoError(t, err)

	require.Equal(t, "", s.Name(rootOff))
	require.Equal(t, uint32(0), s.InodeIndex(rootOff))

	require.Equal(t, "etc", s.Name(childOff))
	require.Equal(t, uint32(1), s.InodeIndex(childOff))
}

func TestSetParentIndexInPlace(t *testing.T) {
	s := New()
	off, err := s.Append(3, 99, "a")
	require.NoError(t, err)
	require.Equal(t, uint32(99), s.ParentIndex(off))

	s.SetParentIndex(off, 12345)
	require.Equal(t, uint32(12345), s.ParentIndex(off))
}

func TestIterationOrder(t *testing.T) {
	s := New()
	names := []string{"", "a", "bb", "ccc", "dddd"}
	var offsets []int
	for i, n := range names {
		off, err := s.Append(uint32(i), 0, n)
		require.NoError(t, err)
		offsets = append(offsets, off)
	}

	got := []string{}
	for off := s.First(); off >= 0; off = s.Next(off) {
		got = append(got, s.Name(off))
	}
	require.Equal(t, names, got)
}

func TestRecordAlignment(t *testing.T) {
	s := New()
	off1, err := s.Append(0, 0, "x") // 8 + 1 + 1 = 10, padded to 12
	require.NoError(t, err)
	off2, err := s.Append(0, 0, "y")
	require.NoError(t, err)
	require.Equal(t, 12, off2-off1)
}

func TestEmptyStoreIteration(t *testing.T) {
	s := New()
	require.Equal(t, -1, s.First())
}
