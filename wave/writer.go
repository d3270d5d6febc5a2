package wave

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	flock "github.com/theckman/go-flock"

	simerrors "github.com/wippyai/sim-bridge/errors"
	"github.com/wippyai/sim-bridge/signal"
)

// Sampler copies the current value of a signal into dst, which is exactly
// the signal's byte width long.
type Sampler func(id signal.ID, dst []byte) error

type variable struct {
	code string
	buf  []byte
	info signal.Info
}

// Writer appends VCD records to one locked file. It is not safe for
// concurrent use.
type Writer struct {
	lock    *flock.Flock
	file    *os.File
	out     *bufio.Writer
	path    string
	vars    []variable
	line    []byte
	records int
	enabled bool
}

// LockPath returns the lock file guarding path.
func LockPath(path string) string {
	return fmt.Sprint(path, ".lock")
}

// Open locks and truncates path and writes the VCD header for layout.
// The returned writer starts enabled.
func Open(path, scope string, precision int, layout signal.Layout) (*Writer, error) {
	ts, err := Timescale(precision)
	if err != nil {
		return nil, simerrors.Wrap(simerrors.PhaseWave, simerrors.KindUnsupported, err, path)
	}

	fl := flock.NewFlock(LockPath(path))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, simerrors.Wrap(simerrors.PhaseWave, simerrors.KindIO, err, "lock "+path)
	}
	if !locked {
		return nil, simerrors.New(simerrors.PhaseWave, simerrors.KindIO).
			Detail("wave file %s is in use by another simulation", path).
			Build()
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		unlock(fl)
		return nil, simerrors.Wrap(simerrors.PhaseWave, simerrors.KindIO, err, "create "+path)
	}

	w := &Writer{
		lock:    fl,
		file:    f,
		out:     bufio.NewWriter(f),
		path:    path,
		enabled: true,
	}
	for _, info := range layout {
		if info.IsMemory() {
			continue
		}
		w.vars = append(w.vars, variable{
			code: idCode(len(w.vars)),
			buf:  make([]byte, info.Bytes()),
			info: info,
		})
	}

	if err := w.header(scope, ts); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) header(scope, timescale string) error {
	fmt.Fprintf(w.out, "$version simbridge $end\n")
	fmt.Fprintf(w.out, "$timescale %s $end\n", timescale)
	fmt.Fprintf(w.out, "$scope module %s $end\n", scope)
	for _, v := range w.vars {
		fmt.Fprintf(w.out, "$var wire %d %s %s $end\n", v.info.Width, v.code, v.info.Label())
	}
	fmt.Fprintf(w.out, "$upscope $end\n$enddefinitions $end\n")
	return w.flush()
}

// Path returns the trace file path.
func (w *Writer) Path() string { return w.path }

// Enabled reports whether Record currently writes.
func (w *Writer) Enabled() bool { return w.enabled }

// Records returns the number of records written so far.
func (w *Writer) Records() int { return w.records }

// Enable resumes tracing.
func (w *Writer) Enable() { w.enabled = true }

// Disable pauses tracing and flushes buffered records.
func (w *Writer) Disable() error {
	w.enabled = false
	return w.flush()
}

// Record writes one "#time" record holding the value of every traced
// signal. It does nothing while tracing is disabled.
func (w *Writer) Record(time uint64, sample Sampler) error {
	if !w.enabled {
		return nil
	}

	line := append(w.line[:0], '#')
	line = strconv.AppendUint(line, time, 10)
	line = append(line, '\n')

	for i := range w.vars {
		v := &w.vars[i]
		if err := sample(v.info.ID, v.buf); err != nil {
			return err
		}
		line = appendValue(line, v.buf, v.info.Width)
		if v.info.Width > 1 {
			line = append(line, ' ')
		}
		line = append(line, v.code...)
		line = append(line, '\n')
	}

	w.line = line
	if _, err := w.out.Write(line); err != nil {
		return simerrors.Wrap(simerrors.PhaseWave, simerrors.KindIO, err, "write "+w.path)
	}
	w.records++
	return nil
}

// Flush writes buffered records to the file.
func (w *Writer) Flush() error { return w.flush() }

func (w *Writer) flush() error {
	if err := w.out.Flush(); err != nil {
		return simerrors.Wrap(simerrors.PhaseWave, simerrors.KindIO, err, "flush "+w.path)
	}
	return nil
}

// Close flushes, closes the file, releases the lock and removes the lock
// file.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.flush()
	if cerr := w.file.Close(); err == nil && cerr != nil {
		err = simerrors.Wrap(simerrors.PhaseWave, simerrors.KindIO, cerr, "close "+w.path)
	}
	w.file = nil
	if uerr := unlock(w.lock); err == nil && uerr != nil {
		err = simerrors.Wrap(simerrors.PhaseWave, simerrors.KindIO, uerr, "unlock "+w.path)
	}
	return err
}

// unlock releases fl and removes its file. The file stays when the unlock
// fails.
func unlock(fl *flock.Flock) error {
	if err := fl.Unlock(); err != nil {
		return err
	}
	if err := os.Remove(fl.Path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// appendValue renders a little-endian wire value: a bare digit for one-bit
// signals, "b" plus all width bits MSB first otherwise.
func appendValue(dst, le []byte, width uint32) []byte {
	bit := func(i uint32) byte {
		return '0' + (le[i/8]>>(i%8))&1
	}
	if width == 1 {
		return append(dst, bit(0))
	}
	dst = append(dst, 'b')
	for i := width; i > 0; i-- {
		dst = append(dst, bit(i-1))
	}
	return dst
}

// idCode returns the short VCD identifier of the n-th variable, built from
// the printable characters '!' to '~'.
func idCode(n int) string {
	const first, base = '!', '~' - '!' + 1
	var code []byte
	for {
		code = append(code, byte(first+n%base))
		n /= base
		if n == 0 {
			return string(code)
		}
		n--
	}
}
