package app

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "usage: e2find [flags] <block-device|image|path-on-mounted-fs>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, fs.FlagUsages())
}
