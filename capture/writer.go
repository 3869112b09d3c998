package capture

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Opener creates the sink for a name.
type Opener func(name string) (io.WriteCloser, error)

// CreateFile is the default Opener, sinks are plain unbuffered files.
func CreateFile(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

// SinkBase derives the segment base name from the file prefix. A zero
// frequency yields the prefix itself, otherwise the frequency in MHz is
// appended, e.g. "usrp100.000000".
func SinkBase(prefix string, freq float64) string {
	if freq == 0 {
		return prefix
	}
	return prefix + strconv.FormatFloat(freq/1e6, 'f', 6, 64)
}

// SinkName is the file of one channel: <base>_<channel>.dat
func SinkName(base string, channel int) string {
	return fmt.Sprintf("%s_%d.dat", base, channel)
}

// Writer holds one open sink per channel for the lifetime of a segment.
type Writer struct {
	names   []string
	sinks   []io.WriteCloser
	written []int64
	closed  bool
}

// NewWriter opens one sink per channel. If any sink fails to open the ones
// already opened are closed again.
func NewWriter(base string, channels int, open Opener) (*Writer, error) {
	if open == nil {
		open = CreateFile
	}
	w := &Writer{
		names:   make([]string, channels),
		sinks:   make([]io.WriteCloser, 0, channels),
		written: make([]int64, channels),
	}
	for ch := 0; ch < channels; ch++ {
		name := SinkName(base, ch)
		sink, err := open(name)
		if err != nil {
			w.CloseAll()
			return nil, errors.Wrapf(err, "unable to open sink %q", name)
		}
		w.names[ch] = name
		w.sinks = append(w.sinks, sink)
		glog.Infof("Channel %d: Writing to file %s...", ch, name)
	}
	return w, nil
}

// Append writes b to the channel's sink as is.
func (w *Writer) Append(ch int, b []byte) error {
	if w.closed {
		return errors.Errorf("append to closed sink %q", w.names[ch])
	}
	n, err := w.sinks[ch].Write(b)
	w.written[ch] += int64(n)
	if err != nil {
		return errors.Wrapf(err, "unable to write %s", w.names[ch])
	}
	return nil
}

// CloseAll closes every sink. Subsequent calls do nothing.
func (w *Writer) CloseAll() error {
	if w.closed {
		return nil
	}
	w.closed = true
	var first error
	for i, sink := range w.sinks {
		if err := sink.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "unable to close %s", w.names[i])
		}
	}
	return first
}

// Names returns the sink names by channel.
func (w *Writer) Names() []string {
	return append([]string(nil), w.names...)
}

// Written is the number of bytes appended to a channel so far.
func (w *Writer) Written(ch int) int64 {
	return w.written[ch]
}
