// Package sim provides a scripted in-memory receiver. Every Recv call either
// consumes the next Step of the script or, once the script is exhausted,
// behaves like a healthy device.
package sim

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hb9tf/sweeprx/sdr"
)

const SourceName = "sim"

// Epoch is the device clock value at construction time.
var Epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Step scripts the outcome of one Recv call.
type Step struct {
	Samples int
	Code    sdr.ErrorCode
	// Before runs ahead of the call, e.g. to raise a stop.
	Before func()
}

type Tune struct {
	Freq    float64
	Channel int
	At      time.Time
}

type Device struct {
	Channels int
	Rate     float64
	Script   []Step
	// SensorValues backs sdr.Sensors, a missing sensor is not reported.
	SensorValues map[string]bool

	mu       sync.Mutex
	now      time.Time
	calls    int
	tunes    []Tune
	commands []sdr.StreamCommand
	freq     float64
}

func New(channels int, rate float64, script ...Step) *Device {
	return &Device{
		Channels: channels,
		Rate:     rate,
		Script:   script,
		now:      Epoch,
	}
}

func (d *Device) Name() string {
	return SourceName
}

func (d *Device) ChannelCount() int {
	return d.Channels
}

func (d *Device) SampleRate() float64 {
	return d.Rate
}

func (d *Device) ClockNow() (time.Time, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.now.IsZero() {
		d.now = Epoch
	}
	return d.now, nil
}

func (d *Device) SetCenterFrequency(freq float64, channel int, at time.Time) error {
	if channel < 0 || channel >= d.Channels {
		return errors.Errorf("channel %d out of range [0, %d)", channel, d.Channels)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tunes = append(d.tunes, Tune{Freq: freq, Channel: channel, At: at})
	d.freq = freq
	return nil
}

// Tunes returns the journal of tuning commands.
func (d *Device) Tunes() []Tune {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Tune(nil), d.tunes...)
}

// Commands returns the journal of stream commands.
func (d *Device) Commands() []sdr.StreamCommand {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]sdr.StreamCommand(nil), d.commands...)
}

// Calls returns the number of Recv calls served.
func (d *Device) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *Device) SensorNames() []string {
	var names []string
	for name := range d.SensorValues {
		names = append(names, name)
	}
	return names
}

func (d *Device) Sensor(name string) (bool, error) {
	v, ok := d.SensorValues[name]
	if !ok {
		return false, errors.Errorf("no sensor %q", name)
	}
	return v, nil
}

func (d *Device) RxStream(channels []int, format sdr.Format) (sdr.Stream, error) {
	for _, ch := range channels {
		if ch < 0 || ch >= d.Channels {
			return nil, errors.Errorf("channel %d out of range [0, %d)", ch, d.Channels)
		}
	}
	return &stream{dev: d, channels: channels, format: format}, nil
}

type stream struct {
	dev      *Device
	channels []int
	format   sdr.Format

	running   bool
	bounded   bool
	remaining uint64
}

func (s *stream) IssueCommand(cmd sdr.StreamCommand) error {
	d := s.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, cmd)

	switch cmd.Mode {
	case sdr.StartContinuous:
		s.running, s.bounded = true, false
	case sdr.NumSampsAndDone:
		s.running, s.bounded, s.remaining = true, true, cmd.NumSamples
	case sdr.StopContinuous:
		s.running = false
	default:
		return errors.Errorf("unsupported stream mode %s", cmd.Mode)
	}
	if !cmd.StreamNow && cmd.Time.After(d.now) {
		// Recv blocks until the scheduled start, the clock jumps there.
		d.now = cmd.Time
	}
	return nil
}

func (s *stream) Recv(buffs [][]byte, samples int, timeout time.Duration) (int, sdr.ErrorCode, error) {
	if len(buffs) != len(s.channels) {
		return 0, sdr.ErrorCodeNone, errors.Errorf("got %d buffers for %d channels", len(buffs), len(s.channels))
	}

	d := s.dev
	d.mu.Lock()
	idx := d.calls
	d.calls++
	d.mu.Unlock()

	var step Step
	scripted := idx < len(d.Script)
	if scripted {
		step = d.Script[idx]
		if step.Before != nil {
			step.Before()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !s.running {
		d.now = d.now.Add(timeout)
		return 0, sdr.ErrorCodeTimeout, nil
	}

	n := samples
	code := sdr.ErrorCodeNone
	if scripted {
		n, code = step.Samples, step.Code
	}
	if s.bounded && !scripted {
		if s.remaining == 0 {
			d.now = d.now.Add(timeout)
			return 0, sdr.ErrorCodeTimeout, nil
		}
		if uint64(n) > s.remaining {
			n = int(s.remaining)
		}
	}
	if n > samples {
		n = samples
	}
	if code != sdr.ErrorCodeNone && code != sdr.ErrorCodeOverflow {
		n = 0
	}

	width := s.format.ByteWidth()
	for i, ch := range s.channels {
		fill(buffs[i][:n*width], byte(ch))
	}
	if s.bounded && code == sdr.ErrorCodeNone {
		if uint64(n) >= s.remaining {
			s.remaining = 0
		} else {
			s.remaining -= uint64(n)
		}
	}
	if d.Rate > 0 {
		d.now = d.now.Add(time.Duration(float64(n) / d.Rate * float64(time.Second)))
	}
	return n, code, nil
}

func (s *stream) Close() error {
	return nil
}

// fill marks every byte with the channel index so tests can verify that
// sinks receive their own channel's data.
func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
