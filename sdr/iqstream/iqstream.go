// Package iqstream turns a single-channel interleaved 8-bit IQ byte source
// (hackrf_transfer, rtl_sdr or an rtl_tcp connection) into an sdr.Stream.
//
// A reader goroutine moves fixed-size chunks from the source into a bounded
// queue which plays the role of the device-side sample buffer. When the
// consumer falls behind and the queue is full, the chunk is dropped and the
// next Recv reports an overflow.
package iqstream

import (
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/hb9tf/sweeprx/sdr"
)

const (
	DefaultChunkSamples = 16384
	DefaultQueueDepth   = 64
)

// Decoder converts one raw I/Q byte pair to components in [-1, 1].
type Decoder func(i, q byte) (float64, float64)

// Signed decodes int8 samples as produced by HackRF.
func Signed(i, q byte) (float64, float64) {
	return float64(int8(i)) / 128, float64(int8(q)) / 128
}

// Unsigned decodes offset-binary uint8 samples as produced by RTL2832 dongles.
func Unsigned(i, q byte) (float64, float64) {
	return (float64(i) - 127.5) / 127.5, (float64(q) - 127.5) / 127.5
}

// Opener starts a byte source for a stream command. It is called when a
// start command is issued, the returned source is closed on stop.
type Opener func(cmd sdr.StreamCommand) (io.ReadCloser, error)

type Config struct {
	Open   Opener
	Decode Decoder
	Format sdr.Format
	// Now reads the clock the command times are expressed in.
	Now func() time.Time

	ChunkSamples int
	QueueDepth   int
}

type chunk struct {
	data []byte
	at   time.Time
}

type Stream struct {
	cfg Config

	mu      sync.Mutex
	src     io.ReadCloser
	queue   chan chunk
	done    chan struct{}
	wg      sync.WaitGroup
	overrun bool
	readErr error

	start     time.Time
	bounded   bool
	remaining uint64
	pending   []byte
}

func New(cfg Config) *Stream {
	if cfg.ChunkSamples <= 0 {
		cfg.ChunkSamples = DefaultChunkSamples
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Decode == nil {
		cfg.Decode = Unsigned
	}
	return &Stream{cfg: cfg}
}

func (s *Stream) IssueCommand(cmd sdr.StreamCommand) error {
	switch cmd.Mode {
	case sdr.StopContinuous:
		return s.stop()
	case sdr.StartContinuous, sdr.NumSampsAndDone:
	default:
		return errors.Errorf("unsupported stream mode %s", cmd.Mode)
	}

	if err := s.stop(); err != nil {
		return err
	}
	src, err := s.cfg.Open(cmd)
	if err != nil {
		return errors.Wrap(err, "unable to open sample source")
	}

	s.mu.Lock()
	s.src = src
	s.queue = make(chan chunk, s.cfg.QueueDepth)
	s.done = make(chan struct{})
	s.overrun = false
	s.readErr = nil
	s.pending = nil
	s.start = time.Time{}
	if !cmd.StreamNow {
		s.start = cmd.Time
	}
	s.bounded = cmd.Mode == sdr.NumSampsAndDone
	s.remaining = cmd.NumSamples
	queue, done := s.queue, s.done
	s.mu.Unlock()

	s.wg.Add(1)
	go s.read(src, queue, done)
	return nil
}

// read pumps chunks from the source until it fails or the stream is stopped.
func (s *Stream) read(src io.Reader, queue chan<- chunk, done <-chan struct{}) {
	defer s.wg.Done()
	defer close(queue)

	for {
		buf := make([]byte, 2*s.cfg.ChunkSamples)
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			// Keep whole IQ pairs only.
			c := chunk{data: buf[:n&^1], at: s.cfg.Now()}
			select {
			case <-done:
				return
			case queue <- c:
			default:
				s.mu.Lock()
				s.overrun = true
				s.mu.Unlock()
			}
		}
		if err != nil {
			select {
			case <-done:
			default:
				s.mu.Lock()
				s.readErr = err
				s.mu.Unlock()
			}
			return
		}
	}
}

func (s *Stream) Recv(buffs [][]byte, samples int, timeout time.Duration) (int, sdr.ErrorCode, error) {
	if len(buffs) != 1 {
		return 0, sdr.ErrorCodeNone, errors.Errorf("single channel stream got %d buffers", len(buffs))
	}

	s.mu.Lock()
	queue := s.queue
	if queue == nil {
		s.mu.Unlock()
		return 0, sdr.ErrorCodeTimeout, nil
	}
	if s.overrun {
		s.overrun = false
		s.mu.Unlock()
		return 0, sdr.ErrorCodeOverflow, nil
	}
	if s.bounded && s.remaining == 0 {
		s.mu.Unlock()
		return 0, sdr.ErrorCodeTimeout, nil
	}
	s.mu.Unlock()

	if len(s.pending) == 0 {
		data, code, err := s.next(queue, timeout)
		if code != sdr.ErrorCodeNone || err != nil {
			return 0, code, err
		}
		s.pending = data
	}

	n := len(s.pending) / 2
	if n > samples {
		n = samples
	}
	if s.bounded && uint64(n) > s.remaining {
		n = int(s.remaining)
	}

	width := s.cfg.Format.ByteWidth()
	dst := buffs[0]
	for k := 0; k < n; k++ {
		i, q := s.cfg.Decode(s.pending[2*k], s.pending[2*k+1])
		s.cfg.Format.Put(dst[k*width:], i, q)
	}
	s.pending = s.pending[2*n:]
	if s.bounded {
		s.remaining -= uint64(n)
	}
	return n, sdr.ErrorCodeNone, nil
}

// next waits for the first chunk captured at or after the scheduled start.
func (s *Stream) next(queue <-chan chunk, timeout time.Duration) ([]byte, sdr.ErrorCode, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case c, ok := <-queue:
			if !ok {
				s.mu.Lock()
				err := s.readErr
				s.mu.Unlock()
				if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
					return nil, sdr.ErrorCodeBrokenChain, nil
				}
				return nil, sdr.ErrorCodeBrokenChain, errors.Wrap(err, "sample source failed")
			}
			if !s.start.IsZero() && c.at.Before(s.start) {
				glog.V(3).Infof("discarding %d bytes captured before scheduled start", len(c.data))
				continue
			}
			return c.data, sdr.ErrorCodeNone, nil
		case <-timer.C:
			return nil, sdr.ErrorCodeTimeout, nil
		}
	}
}

func (s *Stream) stop() error {
	s.mu.Lock()
	src, done := s.src, s.done
	s.src, s.done = nil, nil
	s.mu.Unlock()
	if src == nil {
		return nil
	}

	close(done)
	err := src.Close()
	s.wg.Wait()

	s.mu.Lock()
	s.queue = nil
	s.pending = nil
	s.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "unable to close sample source")
	}
	return nil
}

func (s *Stream) Close() error {
	return s.stop()
}
