// Package hackrf receives from a HackRF One through the hackrf_transfer tool,
// which streams signed 8-bit IQ to stdout.
package hackrf

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/hb9tf/sweeprx/sdr"
	"github.com/hb9tf/sweeprx/sdr/iqstream"
)

const (
	SourceName    = "hackrf"
	transferAlias = "hackrf_transfer"
)

type SDR struct {
	Options sdr.Options

	mu   sync.Mutex
	freq float64
}

func (s *SDR) Name() string {
	return SourceName
}

func (s *SDR) ChannelCount() int {
	return 1
}

func (s *SDR) SampleRate() float64 {
	return s.Options.SampleRate
}

// ClockNow is the host clock, hackrf_transfer has no timed commands.
func (s *SDR) ClockNow() (time.Time, error) {
	return time.Now(), nil
}

// SetCenterFrequency takes effect when the stream is started next.
func (s *SDR) SetCenterFrequency(freq float64, channel int, at time.Time) error {
	if channel != 0 {
		return errors.Errorf("%s has a single channel, got %d", SourceName, channel)
	}
	s.mu.Lock()
	s.freq = freq
	s.mu.Unlock()
	glog.Infof("%s: center frequency %f MHz from %s", SourceName, freq/1e6, at.Format(time.RFC3339Nano))
	return nil
}

func (s *SDR) RxStream(channels []int, format sdr.Format) (sdr.Stream, error) {
	if len(channels) != 1 || channels[0] != 0 {
		return nil, errors.Errorf("%s supports channel 0 only, got %v", SourceName, channels)
	}
	return iqstream.New(iqstream.Config{
		Open:   s.open,
		Decode: iqstream.Signed,
		Format: format,
	}), nil
}

func (s *SDR) args(cmd sdr.StreamCommand) []string {
	s.mu.Lock()
	freq := s.freq
	s.mu.Unlock()

	args := []string{
		"-r", "-", // dumps samples to stdout
		"-f", fmt.Sprintf("%d", int64(freq)),
		"-s", fmt.Sprintf("%d", int64(s.Options.SampleRate)),
	}
	if s.Options.Args != "" {
		args = append(args, "-d", s.Options.Args)
	}
	if s.Options.Gain >= 0 {
		// RX VGA (baseband) gain, 0-62dB, 2dB steps
		args = append(args, "-g", fmt.Sprintf("%d", int(s.Options.Gain)&^1))
	}
	if s.Options.Bandwidth > 0 {
		args = append(args, "-b", fmt.Sprintf("%d", int64(s.Options.Bandwidth)))
	}
	// No -n: samples before the scheduled start are discarded and overflows
	// drop chunks, so the stream counts the target itself.
	return args
}

func (s *SDR) open(cmd sdr.StreamCommand) (io.ReadCloser, error) {
	if s.Options.Antenna != "" {
		glog.Warningf("%s: antenna selection %q is not supported, ignoring", SourceName, s.Options.Antenna)
	}
	if ref := strings.ToLower(s.Options.Ref); ref != "" && ref != "internal" {
		glog.Warningf("%s: clock reference %q is not supported, using internal", SourceName, ref)
	}
	return iqstream.Exec(transferAlias, s.args(cmd)...)
}
