// Package diskpath resolves a filesystem path to the block device or
// image file e2find should open, and verifies mountpoint-root claims.
// This is the "block-device discovery from a mountpoint path" collaborator
// spec.md §1 deliberately keeps outside the core scanner.
package diskpath

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrStat wraps a failure to stat the given path.
var ErrStat = errors.New("diskpath: stat failed")

// ErrDeviceLookup wraps a failure to resolve a path's backing block
// device.
var ErrDeviceLookup = errors.New("diskpath: device lookup failed")

// Resolve maps path to the device or file e2find should open directly.
// In image mode, path is returned unchanged. Otherwise, if path already
// names a block device it is returned unchanged; if path names any
// other file or directory, its backing device is found via the
// containing filesystem's device number.
func Resolve(path string, imageMode bool) (string, error) {
	if imageMode {
		if _, err := os.Stat(path); err != nil {
			return "", errors.Wrapf(ErrStat, "%s: %v", path, err)
		}
		return path, nil
	}

	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return "", errors.Wrapf(ErrStat, "%s: %v", path, err)
	}

	if st.Mode&unix.S_IFMT == unix.S_IFBLK {
		return path, nil
	}

	dev, err := devnoToDevname(st.Dev)
	if err != nil {
		return "", errors.Wrapf(ErrDeviceLookup, "%s: %v", path, err)
	}
	return dev, nil
}

func devnoToDevname(dev uint64) (string, error) {
	major := unix.Major(dev)
	minor := unix.Minor(dev)
	link := fmt.Sprintf("/sys/dev/block/%d:%d", major, minor)
	name, err := os.Readlink(link)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", link)
	}
	return "/dev/" + filepath.Base(name), nil
}

// IsMountpointRoot reports whether path is the root inode (inode 2) of
// its filesystem, as required by -p/--mountpoint.
func IsMountpointRoot(path string) (bool, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false, errors.Wrapf(ErrStat, "%s: %v", path, err)
	}
	return st.Ino == 2, nil
}
