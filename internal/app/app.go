// Package app wires together flag parsing, device resolution, volume
// opening, scanning, and emission into the e2find command-line tool.
package app

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/bearstech/e2find/internal/bitfield"
	"github.com/bearstech/e2find/internal/diskpath"
	"github.com/bearstech/e2find/internal/emit"
	"github.com/bearstech/e2find/internal/fstype"
	"github.com/bearstech/e2find/internal/inodetable"
	"github.com/bearstech/e2find/internal/scanner"
	"github.com/bearstech/e2find/internal/volume/ext"
)

// Version is the program version reported by -v/--version.
const Version = "1.0.0"

// Exit codes, per spec.md §6.
const (
	ExitOK               = 0
	ExitMissingArgument  = 1
	ExitStatFailure      = 3
	ExitDeviceLookup     = 4
	ExitFilesystemOpen   = 5
	ExitAllocFailure     = 6
	ExitScanOpenFailure  = 7
	ExitDirIterFailure   = 8
	ExitNotAMountpoint   = 9
	ExitUnknownOrLookup  = 10
	ExitBadAfterValue    = 11
)

// Run parses argv, executes the scan, and returns the process exit
// code. stdout receives data records and the -v version line; stderr
// receives usage, errors, and (with -d) diagnostics.
func Run(argv []string, stdout, stderr io.Writer) int {
	opts, code, done := parseFlags(argv, stdout, stderr)
	if done {
		return code
	}

	log := newDiagLogger(stderr, opts.Debug)

	devicePath, err := diskpath.Resolve(opts.Path, opts.Image)
	if err != nil {
		log.errorf("%v", err)
		if errors.Is(err, diskpath.ErrDeviceLookup) {
			return ExitDeviceLookup
		}
		return ExitStatFailure
	}

	if opts.Mountpoint {
		ok, err := diskpath.IsMountpointRoot(opts.Path)
		if err != nil {
			log.errorf("%v", err)
			return ExitStatFailure
		}
		if !ok {
			log.errorf("%s is not the root of its filesystem", opts.Path)
			return ExitNotAMountpoint
		}
	}

	vol, err := ext.Open(devicePath)
	if err != nil {
		if errors.Is(err, ext.ErrNotExt) {
			if typ, derr := detectType(devicePath); derr == nil && typ != fstype.Unknown {
				log.errorf("%s looks like %s, not ext2/ext3/ext4", devicePath, typ)
				return ExitFilesystemOpen
			}
		}
		log.errorf("opening filesystem: %v", err)
		return ExitFilesystemOpen
	}
	defer vol.Close()

	log.debug("opened %s (%d inodes)", devicePath, vol.InodeCount())

	timeMode := timeModeFrom(opts.ShowMtime, opts.ShowCtime)

	s := scanner.New(vol, scanner.Options{TimeMode: timeMode, After: opts.After}, scanner.Logger{
		Warn:  log.warn,
		Debug: log.debug,
	})

	if err := s.Run(); err != nil {
		log.errorf("%v", err)
		return exitCodeForScanError(err)
	}

	log.debug("inode table: %s, dirent store: %s", humanize.Bytes(uint64(tableBytes(s))), humanize.Bytes(uint64(direntBytes(s))))

	emitOpts := emit.Options{
		TimeMode:   timeMode,
		Unique:     opts.Unique,
		Terminator: '\n',
	}
	if opts.Print0 {
		emitOpts.Terminator = 0
	}

	if err := emit.Emit(stdout, s.Table, s.Dirents, s.Selected, emitOpts, log.warn); err != nil {
		log.errorf("writing output: %v", err)
		return ExitDirIterFailure
	}

	return ExitOK
}

func detectType(path string) (fstype.Type, error) {
	f, err := os.Open(path)
	if err != nil {
		return fstype.Unknown, err
	}
	defer f.Close()
	return fstype.Detect(f)
}

func tableBytes(s *scanner.Scanner) int {
	return s.Table.Len() * s.Table.Mode().Stride()
}

func direntBytes(s *scanner.Scanner) int {
	return s.Dirents.Used()
}

func timeModeFrom(showMtime, showCtime bool) inodetable.Mode {
	switch {
	case showMtime && showCtime:
		return inodetable.ModeBoth
	case showMtime:
		return inodetable.ModeMtime
	case showCtime:
		return inodetable.ModeCtime
	default:
		return inodetable.ModeNone
	}
}

func exitCodeForScanError(err error) int {
	switch {
	case errors.Is(err, bitfield.ErrAlloc):
		return ExitAllocFailure
	case errors.Is(err, scanner.ErrScanOpen):
		return ExitScanOpenFailure
	case errors.Is(err, scanner.ErrDirIteration):
		return ExitDirIterFailure
	case errors.Is(err, scanner.ErrLookupMiss):
		return ExitUnknownOrLookup
	default:
		return ExitUnknownOrLookup
	}
}

// options holds parsed CLI state.
type options struct {
	Path       string
	Print0     bool
	After      *uint32
	ShowCtime  bool
	ShowMtime  bool
	Debug      bool
	Image      bool
	Mountpoint bool
	Unique     bool
}

func parseFlags(argv []string, stdout, stderr io.Writer) (opts options, code int, done bool) {
	fs := pflag.NewFlagSet("e2find", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	print0 := fs.BoolP("print0", "0", false, "terminate each record with NUL instead of newline")
	after := fs.StringP("after", "a", "", "only emit inodes with mtime or ctime >= T (Unix epoch seconds)")
	showCtime := fs.BoolP("show-ctime", "c", false, "prefix each line with ctime")
	showMtime := fs.BoolP("show-mtime", "m", false, "prefix each line with mtime")
	debug := fs.BoolP("debug", "d", false, "enable progress diagnostics on stderr")
	image := fs.BoolP("image", "i", false, "interpret the path as a filesystem image file")
	mountpoint := fs.BoolP("mountpoint", "p", false, "require path to be the root of its filesystem")
	unique := fs.BoolP("unique", "u", false, "emit at most one pathname per inode")
	// --single-link is the name the earliest historical driver used for
	// what later became --unique; kept as a hidden alias.
	singleLink := fs.Bool("single-link", false, "alias for --unique")
	fs.MarkHidden("single-link")
	help := fs.BoolP("help", "h", false, "show this help")
	version := fs.BoolP("version", "v", false, "show version")

	if err := fs.Parse(argv); err != nil {
		fmt.Fprintf(stderr, "e2find: %v\n", err)
		return opts, ExitUnknownOrLookup, true
	}

	if *help {
		printUsage(stderr, fs)
		return opts, ExitOK, true
	}
	if *version {
		fmt.Fprintln(stdout, "e2find version "+Version)
		return opts, ExitOK, true
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "e2find: missing filesystem path or block device")
		return opts, ExitMissingArgument, true
	}

	opts = options{
		Path:       fs.Arg(0),
		Print0:     *print0,
		ShowCtime:  *showCtime,
		ShowMtime:  *showMtime,
		Debug:      *debug,
		Image:      *image,
		Mountpoint: *mountpoint,
		Unique:     *unique || *singleLink,
	}

	if *after != "" {
		v, err := strconv.ParseUint(*after, 10, 32)
		if err != nil {
			fmt.Fprintf(stderr, "e2find: --after: expected a non-negative integer, got %q\n", *after)
			return opts, ExitBadAfterValue, true
		}
		u := uint32(v)
		opts.After = &u
	}

	return opts, ExitOK, false
}
