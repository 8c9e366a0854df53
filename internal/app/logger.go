package app

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// diagLogger writes colorized warning/debug diagnostics to stderr,
// matching the corpus's convention of keeping stdout free of anything
// but data records.
type diagLogger struct {
	w           io.Writer
	debugOn     bool
	warnColor   *color.Color
	debugColor  *color.Color
}

func newDiagLogger(w io.Writer, debugOn bool) *diagLogger {
	warnColor := color.New(color.FgYellow)
	debugColor := color.New(color.Faint)
	return &diagLogger{w: w, debugOn: debugOn, warnColor: warnColor, debugColor: debugColor}
}

func (l *diagLogger) warn(format string, args ...interface{}) {
	l.warnColor.Fprintf(l.w, "e2find: warning: "+format+"\n", args...)
}

func (l *diagLogger) debug(format string, args ...interface{}) {
	if !l.debugOn {
		return
	}
	l.debugColor.Fprintf(l.w, "e2find: debug: "+format+"\n", args...)
}

func (l *diagLogger) errorf(format string, args ...interface{}) {
	fmt.Fprintf(l.w, "e2find: "+format+"\n", args...)
}
