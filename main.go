// e2find - list every pathname reachable from the used inodes of an
// ext2/ext3/ext4 filesystem, without walking the directory tree.
//
// Usage:
//
//	e2find [flags] <block-device|image|path-on-mounted-fs>
package main

import (
	"os"

	"github.com/bearstech/e2find/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:], os.Stdout, os.Stderr))
}
