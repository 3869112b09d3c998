package capture

import (
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/hb9tf/sweeprx/sdr"
)

// DefaultTimeoutMargin is added to the settling time to form the transfer timeout.
const DefaultTimeoutMargin = 4 * time.Second

// TransferResult is the outcome of one bounded receive call.
type TransferResult struct {
	Samples int
	Fault   Fault
	Code    sdr.ErrorCode
	// Err is a transport failure reported next to the code, it implies FaultOther.
	Err error
}

// Session owns the receive stream of a fixed channel set. It is re-armed for
// every segment.
type Session struct {
	stream   sdr.Stream
	channels []int
	format   sdr.Format
	armed    bool
}

// NewSession opens the receive stream for the given channels.
func NewSession(dev sdr.Device, channels []int, format sdr.Format) (*Session, error) {
	if len(channels) == 0 {
		return nil, errors.Errorf("%s device reports no receive channels", dev.Name())
	}
	stream, err := dev.RxStream(channels, format)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to get %s rx stream (%s) for channels %v", dev.Name(), format.Wire(), channels)
	}
	return &Session{stream: stream, channels: channels, format: format}, nil
}

// AllChannels lists channel indexes 0..n-1.
func AllChannels(n int) []int {
	channels := make([]int, n)
	for i := range channels {
		channels[i] = i
	}
	return channels
}

// Arm schedules the stream start at the device time start. A target of zero
// streams continuously, otherwise the device stops after target samples.
func (s *Session) Arm(start time.Time, target uint64) error {
	cmd := sdr.StreamCommand{
		Mode:       sdr.StartContinuous,
		NumSamples: target,
		StreamNow:  false,
		Time:       start,
	}
	if target > 0 {
		cmd.Mode = sdr.NumSampsAndDone
	}
	if err := s.stream.IssueCommand(cmd); err != nil {
		return errors.Wrapf(err, "unable to issue %s", cmd.Mode)
	}
	s.armed = true
	return nil
}

// Transfer blocks until the buffers are filled, the device reports a fault
// or the timeout elapses.
func (s *Session) Transfer(bufs [][]byte, timeout time.Duration) TransferResult {
	spb := len(bufs[0]) / s.format.ByteWidth()
	n, code, err := s.stream.Recv(bufs, spb, timeout)
	res := TransferResult{Samples: n, Code: code, Fault: Classify(code)}
	if err != nil {
		res.Fault, res.Err = FaultOther, err
		if code == sdr.ErrorCodeNone {
			res.Code = sdr.ErrorCodeBrokenChain
		}
	}
	if glog.V(2) {
		glog.Infof("transfer: %d samples, fault %s (code %s)", res.Samples, res.Fault, res.Code)
	}
	return res
}

// Disarm stops the stream. It is a no-op unless the session is armed.
func (s *Session) Disarm() error {
	if !s.armed {
		return nil
	}
	s.armed = false
	if err := s.stream.IssueCommand(sdr.StreamCommand{Mode: sdr.StopContinuous, StreamNow: true}); err != nil {
		return errors.Wrap(err, "unable to stop stream")
	}
	return nil
}

func (s *Session) Armed() bool {
	return s.armed
}

// Close disarms and releases the stream.
func (s *Session) Close() error {
	if err := s.Disarm(); err != nil {
		s.stream.Close()
		return err
	}
	return s.stream.Close()
}
