// Package rtltcp receives from a remote RTL2832 dongle served by rtl_tcp.
// Every started stream opens a fresh connection which is tuned before the
// first sample is read, stopping the stream closes it.
package rtltcp

import (
	"io"
	"net"
	"strings"
	"sync"
	"time"

	tcp "github.com/bemasher/rtltcp"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/hb9tf/sweeprx/sdr"
	"github.com/hb9tf/sweeprx/sdr/iqstream"
)

const (
	SourceName  = "rtl_tcp"
	defaultAddr = "127.0.0.1:1234"
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

func (s *SDR) ClockNow() (time.Time, error) {
	return time.Now(), nil
}

func (s *SDR) SetCenterFrequency(freq float64, channel int, at time.Time) error {
	if channel != 0 {
		return errors.Errorf("%s has a single channel, got %d", SourceName, channel)
	}
	if freq <= 0 || freq > float64(^uint32(0)) {
		return errors.Errorf("%s cannot tune to %f Hz", SourceName, freq)
	}
	s.mu.Lock()
	s.freq = freq
	s.mu.Unlock()
	return nil
}

func (s *SDR) RxStream(channels []int, format sdr.Format) (sdr.Stream, error) {
	if len(channels) != 1 || channels[0] != 0 {
		return nil, errors.Errorf("%s supports channel 0 only, got %v", SourceName, channels)
	}
	return iqstream.New(iqstream.Config{
		Open:   s.open,
		Decode: iqstream.Unsigned,
		Format: format,
	}), nil
}

func (s *SDR) addr() string {
	if s.Options.Args != "" {
		return s.Options.Args
	}
	return defaultAddr
}

func (s *SDR) open(cmd sdr.StreamCommand) (io.ReadCloser, error) {
	addr, err := net.ResolveTCPAddr("tcp", s.addr())
	if err != nil {
		return nil, errors.Wrapf(err, "unable to resolve %s server %q", SourceName, s.addr())
	}

	var dongle tcp.SDR
	if err := dongle.Connect(addr); err != nil {
		return nil, err
	}
	glog.Infof("Connected to %s at %s: %s", SourceName, addr, dongle.Info)

	if err := s.configure(dongle); err != nil {
		dongle.Close()
		return nil, err
	}
	return dongle.TCPConn, nil
}

func (s *SDR) configure(dongle tcp.SDR) error {
	s.mu.Lock()
	freq := s.freq
	s.mu.Unlock()

	if err := dongle.SetSampleRate(uint32(s.Options.SampleRate)); err != nil {
		return errors.Wrap(err, "unable to set sample rate")
	}
	if err := dongle.SetCenterFreq(uint32(freq)); err != nil {
		return errors.Wrap(err, "unable to set center frequency")
	}
	if s.Options.Gain >= 0 {
		// Manual gain mode, gain in tenths of dB.
		if err := dongle.SetGainMode(false); err != nil {
			return errors.Wrap(err, "unable to set gain mode")
		}
		if err := dongle.SetGain(uint32(s.Options.Gain * 10.0)); err != nil {
			return errors.Wrap(err, "unable to set gain")
		}
	} else if err := dongle.SetGainMode(true); err != nil {
		return errors.Wrap(err, "unable to set gain mode")
	}
	if s.Options.Bandwidth > 0 || s.Options.Antenna != "" {
		glog.Warningf("%s: bandwidth and antenna selection are not supported, ignoring", SourceName)
	}
	if ref := strings.ToLower(s.Options.Ref); ref != "" && ref != "internal" {
		glog.Warningf("%s: clock reference %q is not supported, using internal", SourceName, ref)
	}
	return nil
}
