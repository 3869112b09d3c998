package sdr

import (
	"fmt"
	"time"
)

// FileSeparator joins the sink names of a segment when they are stored in a
// single field.
const FileSeparator = ","

// Segment is the catalog record of one acquisition at a fixed center frequency.
type Segment struct {
	// Metadata
	Identifier string
	Source     string

	// Radio Data
	FreqCenter  int64
	SampleRate  float64
	Format      string
	Channels    int
	Target      uint64
	SampleCount uint64
	Overflows   int
	Outcome     string
	Fault       string
	Files       []string
	Start       time.Time
	End         time.Time
}

// Device is an already configured multi-channel receiver.
type Device interface {
	Name() string
	ChannelCount() int
	// SampleRate is the actual receive rate in samples per second.
	SampleRate() float64
	// ClockNow reads the device clock. Timed commands are expressed in this clock.
	ClockNow() (time.Time, error)
	// SetCenterFrequency tunes a channel, effective at the given device time.
	SetCenterFrequency(freq float64, channel int, at time.Time) error
	RxStream(channels []int, format Format) (Stream, error)
}

// Sensors is implemented by devices exposing boolean lock sensors such as
// "lo_locked", "ref_locked" or "mimo_locked".
type Sensors interface {
	SensorNames() []string
	Sensor(name string) (bool, error)
}

// Stream is the receive stream handle of a Device.
type Stream interface {
	IssueCommand(cmd StreamCommand) error
	// Recv fills buffs[ch][:n*format.ByteWidth()] for every channel and returns n.
	// The error code classifies the call, the error reports transport failures.
	Recv(buffs [][]byte, samples int, timeout time.Duration) (int, ErrorCode, error)
	Close() error
}

type StreamMode int

const (
	StartContinuous StreamMode = iota
	NumSampsAndDone
	StopContinuous
)

func (m StreamMode) String() string {
	switch m {
	case StartContinuous:
		return "start_continuous"
	case NumSampsAndDone:
		return "num_samps_and_done"
	case StopContinuous:
		return "stop_continuous"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

type StreamCommand struct {
	Mode       StreamMode
	NumSamples uint64
	StreamNow  bool
	// Time is the device time the command takes effect at, ignored if StreamNow is set.
	Time time.Time
}

// ErrorCode is the per-call receive metadata error code.
type ErrorCode uint32

const (
	ErrorCodeNone        ErrorCode = 0x0
	ErrorCodeTimeout     ErrorCode = 0x1
	ErrorCodeLateCommand ErrorCode = 0x2
	ErrorCodeBrokenChain ErrorCode = 0x4
	ErrorCodeOverflow    ErrorCode = 0x8
	ErrorCodeAlignment   ErrorCode = 0xc
	ErrorCodeBadPacket   ErrorCode = 0xf
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeNone:
		return "none"
	case ErrorCodeTimeout:
		return "timeout"
	case ErrorCodeLateCommand:
		return "late_command"
	case ErrorCodeBrokenChain:
		return "broken_chain"
	case ErrorCodeOverflow:
		return "overflow"
	case ErrorCodeAlignment:
		return "alignment"
	case ErrorCodeBadPacket:
		return "bad_packet"
	}
	return fmt.Sprintf("0x%x", uint32(c))
}

// Options holds the front-end settings handed to device backends.
type Options struct {
	// Args selects the device, its meaning depends on the backend.
	Args string
	// SampleRate in samples per second.
	SampleRate float64
	// Gain in dB, negative leaves the backend default.
	Gain float64
	// Bandwidth of the analog filter in Hz, 0 leaves the backend default.
	Bandwidth float64
	Antenna   string
	// Ref is the clock reference: internal, external or mimo.
	Ref string
}
