package bitfield

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetClearGet(t *testing.T) {
	bf, err := New(100)
	require.NoError(t, err)

	require.False(t, bf.Get(42))
	bf.Set(42)
	require.True(t, bf.Get(42))
	bf.Clear(42)
	require.False(t, bf.Get(42))
}

func TestFill(t *testing.T) {
	bf, err := New(17)
	require.NoError(t, err)

	bf.Fill(true)
	for i := uint32(0); i < 17; i++ {
		require.True(t, bf.Get(i), "bit %d", i)
	}

	bf.Fill(false)
	for i := uint32(0); i < 17; i++ {
		require.False(t, bf.Get(i), "bit %d", i)
	}
}

func TestByteSizing(t *testing.T) {
	cases := []struct {
		nbits int
		bytes int
	}{
		{0, 0},
		{1, 1},
		{8, 1},
		{9, 2},
		{64, 8},
		{65, 9},
	}
	for _, c := range cases {
		bf, err := New(c.nbits)
		require.NoError(t, err)
		require.Equal(t, c.bytes, bf.Bytes())
	}
}

func TestIndependentBits(t *testing.T) {
	bf, err := New(64)
	require.NoError(t, err)

	bf.Set(0)
	bf.Set(63)
	for i := uint32(1); i < 63; i++ {
		require.False(t, bf.Get(i))
	}
	require.True(t, bf.Get(0))
	require.True(t, bf.Get(63))
}
