package emit

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bearstech/e2find/internal/bitfield"
	"github.com/bearstech/e2find/internal/dirent"
	"github.com/bearstech/e2find/internal/inodetable"
)

// buildFixture constructs a tiny already-fixed-up tree: / (ino 2),
// /a (ino 3), sharing inode 3 also as /b.
func buildFixture(t *testing.T, mode inodetable.Mode) (*inodetable.Table, *dirent.Store, *bitfield.Bitfield) {
	t.Helper()

	table := inodetable.New(mode)
	var t1, t2 uint32 = 1700000000, 1700000123
	if mode == inodetable.ModeNone {
		t1, t2 = 0, 0
	}
	rootIdx, err := table.Append(2, t1, t2)
	require.NoError(t, err)
	aIdx, err := table.Append(3, t1, t2)
	require.NoError(t, err)

	store := dirent.New()
	rootOff, err := store.Append(uint32(rootIdx), 0, "")
	require.NoError(t, err)
	table.SetDirentOffset(rootIdx, uint32(rootOff))

	aOff, err := store.Append(uint32(aIdx), uint32(rootIdx), "a")
	require.NoError(t, err)
	table.SetDirentOffset(aIdx, uint32(aOff))

	bOff, err := store.Append(uint32(aIdx), uint32(rootIdx), "b")
	require.NoError(t, err)

	// fix-up: rewrite parent InodeTable indices to dirent offsets.
	for _, off := range []int{rootOff, aOff, bOff} {
		p := store.ParentIndex(off)
		store.SetParentIndex(off, table.DirentOffset(int(p)))
	}

	sel, err := bitfield.New(10)
	require.NoError(t, err)
	sel.Set(2)
	sel.Set(3)

	return table, store, sel
}

func TestEmitDefault(t *testing.T) {
	table, store, sel := buildFixture(t, inodetable.ModeNone)
	var buf bytes.Buffer
	err := Emit(&buf, table, store, sel, Options{Terminator: '\n'}, nil)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Equal(t, []string{"/", "/a", "/b"}, lines)
}

func TestEmitUniqueKeepsOnlyFirstHardlink(t *testing.T) {
	table, store, sel := buildFixture(t, inodetable.ModeNone)
	var buf bytes.Buffer
	err := Emit(&buf, table, store, sel, Options{Terminator: '\n', Unique: true}, nil)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Equal(t, []string{"/", "/a"}, lines)
}

func TestEmitPrint0Terminator(t *testing.T) {
	table, store, sel := buildFixture(t, inodetable.ModeNone)
	var buf bytes.Buffer
	err := Emit(&buf, table, store, sel, Options{Terminator: 0}, nil)
	require.NoError(t, err)

	require.Equal(t, "/\x00/a\x00/b\x00", buf.String())
}

func TestEmitBothTimestampsMtimeFirst(t *testing.T) {
	table, store, sel := buildFixture(t, inodetable.ModeBoth)
	var buf bytes.Buffer
	err := Emit(&buf, table, store, sel, Options{Terminator: '\n', TimeMode: inodetable.ModeBoth}, nil)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(buf.String(), "1700000000 1700000123 /\n"))
}

func TestEmitSkipsUnselected(t *testing.T) {
	table, store, sel := buildFixture(t, inodetable.ModeNone)
	sel.Clear(3)
	var buf bytes.Buffer
	err := Emit(&buf, table, store, sel, Options{Terminator: '\n'}, nil)
	require.NoError(t, err)

	require.Equal(t, "/\n", buf.String())
}
