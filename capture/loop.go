package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/hb9tf/sweeprx/sdr"
)

// Outcome is how a segment ended.
type Outcome int

const (
	Completed Outcome = iota
	StoppedExternally
	Faulted
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case StoppedExternally:
		return "stopped"
	case Faulted:
		return "faulted"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result reports a finished segment.
type Result struct {
	Outcome Outcome
	// Samples is the per-channel count written to the sinks.
	Samples uint64
	// Fault and Code are set for Faulted segments.
	Fault     Fault
	Code      sdr.ErrorCode
	Overflows int
	Files     []string
	Start     time.Time
	End       time.Time
}

// Clock reads the device time.
type Clock interface {
	ClockNow() (time.Time, error)
}

// Loop acquires exactly one segment. It exclusively uses its Pool and Writer
// while running and closes the Writer when done.
type Loop struct {
	Session *Session
	Pool    *Pool
	Writer  *Writer
	Clock   Clock

	// Settling is the delay between arming and the scheduled stream start.
	Settling time.Duration
	// Timeout bounds each transfer, zero means Settling + DefaultTimeoutMargin.
	Timeout time.Duration
	// Target is the per-channel sample count, zero streams until stopped or faulted.
	Target uint64
	// SampleRate sizes the overflow hint.
	SampleRate float64

	// Warnf defaults to glog.Warningf.
	Warnf func(format string, args ...interface{})
}

func (l *Loop) timeout() time.Duration {
	if l.Timeout > 0 {
		return l.Timeout
	}
	return l.Settling + DefaultTimeoutMargin
}

func (l *Loop) warnf(format string, args ...interface{}) {
	if l.Warnf != nil {
		l.Warnf(format, args...)
		return
	}
	glog.Warningf(format, args...)
}

// Run arms the stream, receives until the target is reached, ctx is done or
// the stream faults, then disarms the stream and closes the sinks, in that
// order. The error is non-nil for failures fatal to the process: a
// *StreamFault, arming, writing or closing problems.
func (l *Loop) Run(ctx context.Context) (res Result, err error) {
	res.Files = l.Writer.Names()

	// Draining -> Closed, whichever way Receiving was left.
	defer func() {
		if derr := l.Session.Disarm(); derr != nil && err == nil {
			err = derr
		}
		if cerr := l.Writer.CloseAll(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	// Idle -> Armed
	now, err := l.Clock.ClockNow()
	if err != nil {
		return res, errors.Wrap(err, "unable to read device clock")
	}
	res.Start = now.Add(l.Settling)
	res.End = res.Start
	if err := l.Session.Arm(res.Start, l.Target); err != nil {
		return res, err
	}

	// Armed -> Receiving
	timeout := l.timeout()
	warned := false
	for l.Target == 0 || res.Samples < l.Target {
		if ctx.Err() != nil {
			res.Outcome = StoppedExternally
			return res, nil
		}

		bufs := l.Pool.Acquire()
		tr := l.Session.Transfer(bufs, timeout)
		switch tr.Fault {
		case FaultTimeout:
			glog.Warningf("Timeout while streaming after %d samples", res.Samples)
			res.Outcome, res.Fault, res.Code = Faulted, FaultTimeout, tr.Code
			return res, nil
		case FaultOverflow:
			res.Overflows++
			if !warned {
				warned = true
				l.warnf("Got an overflow indication. Please consider the following:\n"+
					"  Your write medium must sustain a rate of %fMB/s.\n"+
					"  Dropped samples will not be written to the file.\n"+
					"  This message will not appear again.",
					l.SampleRate*float64(l.Pool.Format().ByteWidth())/1e6)
			}
			continue
		case FaultOther:
			res.Outcome, res.Fault, res.Code = Faulted, FaultOther, tr.Code
			return res, &StreamFault{Code: tr.Code, Err: tr.Err}
		}

		size := l.Pool.Bytes(tr.Samples)
		for ch, buf := range bufs {
			if err := l.Writer.Append(ch, buf[:size]); err != nil {
				res.Outcome = Faulted
				return res, err
			}
		}
		res.Samples += uint64(tr.Samples)
		if l.SampleRate > 0 {
			res.End = res.Start.Add(time.Duration(float64(res.Samples) / l.SampleRate * float64(time.Second)))
		}
	}

	res.Outcome = Completed
	return res, nil
}
