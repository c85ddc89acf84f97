// Package klog is the kernel's logging surface. Every log line is tagged with
// the name of the subsystem that produced it, terminated with "\r\n" so it
// renders correctly on serial terminals, and sent to the kfmt output sink
// (normally the locked serial device).
package klog

import (
	"io"

	"tinykern/kernel/kfmt"
)

var (
	// debugEnabled gates the output of Debugf calls.
	debugEnabled bool

	crlf = []byte{'\r', '\n'}
)

// SetDebug enables or disables debug output for all loggers.
func SetDebug(enabled bool) {
	debugEnabled = enabled
}

// DebugEnabled returns true if debug output is enabled.
func DebugEnabled() bool {
	return debugEnabled
}

// Logger emits log lines prefixed with a module name. A Logger owns the
// writers it chains in front of the sink so that emitting a line does not
// allocate. Loggers are meant to be declared as package-level variables and
// must not be shared by concurrently running tasks.
type Logger struct {
	pw kfmt.PrefixWriter
	cw crlfWriter
}

// New returns a logger whose lines are prefixed with "[module] ".
func New(module string) *Logger {
	prefix := make([]byte, 0, len(module)+3)
	prefix = append(prefix, '[')
	prefix = append(prefix, module...)
	prefix = append(prefix, ']', ' ')

	l := &Logger{}
	l.pw.Prefix = prefix
	l.pw.Sink = &l.cw
	return l
}

// Printf formats a log line and writes it to the active output sink. A
// trailing line terminator is always appended.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.Fprintf(kfmt.Output(), format, args...)
}

// Debugf behaves like Printf but only produces output if debug logging has
// been enabled via SetDebug.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if !debugEnabled {
		return
	}
	l.Printf(format, args...)
}

// Fprintf behaves like Printf but writes to w.
func (l *Logger) Fprintf(w io.Writer, format string, args ...interface{}) {
	l.cw.w, l.cw.last = w, 0
	l.pw.Reset()

	kfmt.Fprintf(&l.pw, format, args...)
	if l.cw.last != '\n' {
		l.pw.Write(crlf[1:])
	}
	l.cw.w = nil
}

// crlfWriter rewrites each bare '\n' into "\r\n". It remembers the last
// byte it forwarded since kfmt emits literal text one byte per write.
type crlfWriter struct {
	w    io.Writer
	last byte
}

// Write implements io.Writer. The returned count refers to bytes of p.
func (cw *crlfWriter) Write(p []byte) (int, error) {
	var start int
	for i, b := range p {
		prev := cw.last
		if i > 0 {
			prev = p[i-1]
		}
		if b != '\n' || prev == '\r' {
			continue
		}

		if start < i {
			if n, err := cw.w.Write(p[start:i]); err != nil {
				return start + n, err
			}
		}
		if _, err := cw.w.Write(crlf); err != nil {
			return i, err
		}
		start = i + 1
	}

	if len(p) != 0 {
		cw.last = p[len(p)-1]
	}

	if start < len(p) {
		n, err := cw.w.Write(p[start:])
		return start + n, err
	}

	return len(p), nil
}
