package diskpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveImageModeReturnsPathUnchanged(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "disk.img")
	require.NoError(t, os.WriteFile(img, []byte("x"), 0o644))

	got, err := Resolve(img, true)
	require.NoError(t, err)
	require.Equal(t, img, got)
}

func TestResolveImageModeMissingFile(t *testing.T) {
	_, err := Resolve("/no/such/file", true)
	require.ErrorIs(t, err, ErrStat)
}

func TestResolveNonImageMissingPath(t *testing.T) {
	_, err := Resolve("/no/such/file", false)
	require.ErrorIs(t, err, ErrStat)
}

func TestIsMountpointRootMissingPath(t *testing.T) {
	_, err := IsMountpointRoot("/no/such/file")
	require.ErrorIs(t, err, ErrStat)
}
