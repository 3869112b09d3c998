package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

type memSink struct {
	bytes.Buffer
	closes int
}

func (m *memSink) Close() error {
	m.closes++
	return nil
}

// memFS is an Opener backed by memory.
type memFS struct {
	mu    sync.Mutex
	sinks map[string]*memSink
	order []string
	fail  string
}

func newMemFS() *memFS {
	return &memFS{sinks: map[string]*memSink{}}
}

func (fs *memFS) open(name string) (io.WriteCloser, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if name == fs.fail {
		return nil, fmt.Errorf("disk full")
	}
	s := &memSink{}
	fs.sinks[name] = s
	fs.order = append(fs.order, name)
	return s, nil
}

type warnings struct {
	msgs []string
}

func (w *warnings) warnf(format string, args ...interface{}) {
	w.msgs = append(w.msgs, fmt.Sprintf(format, args...))
}

// recorder is a peer.Notifier keeping track of the signals it got.
type recorder struct {
	signals []string
	// onAdvance runs after every advance with the number of advances so far.
	onAdvance func(n int)
	err       error
}

func (r *recorder) NotifyAdvance(context.Context) error {
	r.signals = append(r.signals, "advance")
	if r.onAdvance != nil {
		r.onAdvance(r.count("advance"))
	}
	return r.err
}

func (r *recorder) NotifyAbort(context.Context) error {
	r.signals = append(r.signals, "abort")
	return r.err
}

func (r *recorder) count(sig string) int {
	n := 0
	for _, s := range r.signals {
		if s == sig {
			n++
		}
	}
	return n
}
