package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Logger prints leveled lines. Info needs Verbose, debug needs Debug;
// warnings and errors always print.
type Logger struct {
	Verbose bool
	Debug   bool

	mu    sync.Mutex
	out   io.Writer
	err   io.Writer
	plain bool
}

func New(verbose, debug bool) *Logger {
	return &Logger{Verbose: verbose, Debug: debug, out: os.Stdout, err: os.Stderr}
}

// NewWriter sends every level to w, without colors.
func NewWriter(w io.Writer, verbose, debug bool) *Logger {
	return &Logger{Verbose: verbose, Debug: debug, out: w, err: w, plain: true}
}

// Discard drops everything.
func Discard() *Logger {
	return NewWriter(io.Discard, false, false)
}

func (l *Logger) Infof(msg string, args ...any) {
	if l != nil && l.Verbose {
		l.write(l.out, color.GreenString, "[info] ", msg, args)
	}
}

func (l *Logger) Debugf(msg string, args ...any) {
	if l != nil && l.Debug {
		l.write(l.out, color.CyanString, "[debug] ", msg, args)
	}
}

func (l *Logger) Warnf(msg string, args ...any) {
	if l == nil {
		return
	}
	l.write(l.err, color.YellowString, "[warn] ", msg, args)
}

func (l *Logger) Errorf(msg string, args ...any) {
	if l == nil {
		return
	}
	l.write(l.err, color.RedString, "[error] ", msg, args)
}

func (l *Logger) write(w io.Writer, paint func(string, ...any) string, tag, msg string, args []any) {
	if w == nil {
		return
	}
	if !l.plain {
		tag = paint(tag)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(w, "%s %s"+msg+"\n", append([]any{time.Now().Format(time.RFC3339), tag}, args...)...)
}
