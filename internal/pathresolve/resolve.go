// Package pathresolve reconstructs a full pathname for a dirent by
// walking parent links back to the root sentinel, after the scanner's
// fix-up pass has rewritten parent references into DirentStore byte
// offsets.
package pathresolve

import "github.com/pkg/errors"

// PathMax bounds the length of a resolved path, matching the
// conventional PATH_MAX.
const PathMax = 4096

// MaxComponents bounds the number of path components a resolution will
// walk before giving up, guarding against any residual cycle.
const MaxComponents = 255

// ErrPathTooLong is returned when the resolved path would not fit in
// PathMax bytes.
var ErrPathTooLong = errors.New("pathresolve: path too long")

// ErrTooDeep is returned when resolution walks more than MaxComponents
// parent links without reaching the root sentinel.
var ErrTooDeep = errors.New("pathresolve: too many path components")

// Store is the subset of *dirent.Store that Resolve needs, kept as an
// interface so tests can exercise the algorithm without a full
// scanner-built store.
type Store interface {
	Name(offset int) string
	ParentIndex(offset int) uint32
}

// Resolve builds the full path for the dirent at offset, walking
// parent links backward into a fixed buffer, per spec.md §4.7. store
// must already have had the parent-reference fix-up pass applied.
func Resolve(store Store, offset int) (string, error) {
	var buf [PathMax]byte
	pos := PathMax
	pos--
	buf[pos] = 0

	i := 0
	cur := offset
	for {
		name := store.Name(cur)
		isRoot := len(name) == 0

		if i > 0 || isRoot {
			if pos < 1 {
				return "", ErrPathTooLong
			}
			pos--
			buf[pos] = '/'
		}

		if i > MaxComponents {
			return "", ErrTooDeep
		}
		if isRoot {
			break
		}

		n := len(name)
		if pos < n {
			return "", ErrPathTooLong
		}
		pos -= n
		copy(buf[pos:], name)

		cur = int(store.ParentIndex(cur))
		i++
	}

	return string(buf[pos : PathMax-1]), nil
}
