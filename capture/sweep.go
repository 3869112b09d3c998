package capture

import (
	"context"
	"math"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/hb9tf/sweeprx/peer"
	"github.com/hb9tf/sweeprx/sdr"
)

const (
	// DefaultTuneLead schedules retuning slightly ahead so all channels
	// switch at the same device time.
	DefaultTuneLead = 100 * time.Millisecond
	// DefaultSetupDelay lets the front-end settle after retuning.
	DefaultSetupDelay = 100 * time.Millisecond

	maxSimulatedSteps = 1 << 20
)

// Sweep steps the center frequency from Start to End. The sweep ends when
// the current frequency equals End exactly, so a Step of zero with Start !=
// End, or a Step that does not land on End, never terminates on its own.
type Sweep struct {
	Start float64
	End   float64
	Step  float64
}

// Next returns the frequency following f and whether the sweep continues.
func (s Sweep) Next(f float64) (float64, bool) {
	if f == s.End {
		return f, false
	}
	return f + s.Step, true
}

// Terminates reports whether stepping from Start ever hits End exactly.
func (s Sweep) Terminates() bool {
	if s.Start == s.End {
		return true
	}
	if s.Step == 0 || (s.End-s.Start)/s.Step < 0 {
		return false
	}
	steps := (s.End - s.Start) / s.Step
	if steps != math.Trunc(steps) {
		return false
	}
	if steps > maxSimulatedSteps {
		return true
	}
	// Replay the accumulation, rounding may still miss End.
	f := s.Start
	for i := 0; i < int(steps); i++ {
		f += s.Step
	}
	return f == s.End
}

// Controller runs the sweep: for every frequency it retunes, acquires a
// segment and signals the peer.
type Controller struct {
	Device sdr.Device
	Peer   peer.Notifier
	Sweep  Sweep

	// Identifier tags the catalog records.
	Identifier         string
	Prefix             string
	Format             sdr.Format
	SamplesPerTransfer int
	Settling           time.Duration
	Timeout            time.Duration
	Target             uint64
	Open               Opener

	TuneLead   time.Duration
	SetupDelay time.Duration
	// Sleep defaults to time.Sleep.
	Sleep func(time.Duration)
	// Warnf is handed to every Loop.
	Warnf func(format string, args ...interface{})
}

func (c *Controller) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if c.Sleep != nil {
		c.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Tune sets the center frequency of every channel at a common device time.
func (c *Controller) Tune(freq float64) error {
	now, err := c.Device.ClockNow()
	if err != nil {
		return errors.Wrap(err, "unable to read device clock")
	}
	lead := c.TuneLead
	if lead == 0 {
		lead = DefaultTuneLead
	}
	at := now.Add(lead)
	for ch := 0; ch < c.Device.ChannelCount(); ch++ {
		glog.Infof("RX channel %d: Setting RX Freq: %f MHz...", ch, freq/1e6)
		if err := c.Device.SetCenterFrequency(freq, ch, at); err != nil {
			return errors.Wrapf(err, "unable to tune channel %d to %f Hz", ch, freq)
		}
	}
	delay := c.SetupDelay
	if delay == 0 {
		delay = DefaultSetupDelay
	}
	c.sleep(delay)
	return nil
}

// Run executes the sweep until it reaches its end frequency, ctx is done or
// a fatal stream fault occurs. One catalog record per segment is sent to
// segments if it is not nil; segments is closed when Run returns.
func (c *Controller) Run(ctx context.Context, segments chan<- sdr.Segment) error {
	if segments != nil {
		defer close(segments)
	}
	if !c.Sweep.Terminates() {
		glog.Warningf("sweep %f -> %f Hz in %f Hz steps never hits the end frequency exactly, it only stops on interrupt",
			c.Sweep.Start, c.Sweep.End, c.Sweep.Step)
	}

	channels := c.Device.ChannelCount()
	session, err := NewSession(c.Device, AllChannels(channels), c.Format)
	if err != nil {
		return err
	}
	defer session.Close()
	pool := NewPool(channels, c.SamplesPerTransfer, c.Format)

	freq := c.Sweep.Start
	if err := c.Tune(freq); err != nil {
		return err
	}
	for {
		// AtFrequency(freq)
		res, runErr := c.segment(ctx, session, pool, freq)
		c.notify(ctx, res, runErr)
		if segments != nil {
			segments <- c.record(freq, res, runErr)
		}
		if runErr != nil {
			return runErr
		}
		if res.Outcome == StoppedExternally || ctx.Err() != nil {
			glog.Infof("Stop requested, sweep ends at %f MHz", freq/1e6)
			return nil
		}

		next, more := c.Sweep.Next(freq)
		if !more {
			glog.Infof("Sweep done at %f MHz", freq/1e6)
			return nil
		}
		freq = next
		if err := c.Tune(freq); err != nil {
			return err
		}
	}
}

func (c *Controller) segment(ctx context.Context, session *Session, pool *Pool, freq float64) (Result, error) {
	w, err := NewWriter(SinkBase(c.Prefix, freq), pool.Channels(), c.Open)
	if err != nil {
		return Result{Outcome: Faulted}, err
	}
	loop := &Loop{
		Session:    session,
		Pool:       pool,
		Writer:     w,
		Clock:      c.Device,
		Settling:   c.Settling,
		Timeout:    c.Timeout,
		Target:     c.Target,
		SampleRate: c.Device.SampleRate(),
		Warnf:      c.Warnf,
	}
	res, err := loop.Run(ctx)
	glog.Infof("Segment at %f MHz %s with %d samples per channel (%d overflows)", freq/1e6, res.Outcome, res.Samples, res.Overflows)
	return res, err
}

// notify tells the peer the segment ended. Completed and timed out segments
// advance the peer, interrupted and failed ones abort it.
func (c *Controller) notify(ctx context.Context, res Result, runErr error) {
	if c.Peer == nil {
		return
	}
	// The peer is told even when ctx is already done.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), peer.DefaultTimeout)
	defer cancel()

	var err error
	if runErr != nil || res.Outcome == StoppedExternally {
		err = c.Peer.NotifyAbort(nctx)
	} else {
		err = c.Peer.NotifyAdvance(nctx)
	}
	if err != nil {
		glog.Warningf("unable to notify peer: %s", err)
	}
}

func (c *Controller) record(freq float64, res Result, runErr error) sdr.Segment {
	seg := sdr.Segment{
		Identifier:  c.Identifier,
		Source:      c.Device.Name(),
		FreqCenter:  int64(math.Round(freq)),
		SampleRate:  c.Device.SampleRate(),
		Format:      c.Format.String(),
		Channels:    c.Device.ChannelCount(),
		Target:      c.Target,
		SampleCount: res.Samples,
		Overflows:   res.Overflows,
		Outcome:     res.Outcome.String(),
		Files:       res.Files,
		Start:       res.Start,
		End:         res.End,
	}
	if res.Outcome == Faulted {
		seg.Fault = res.Fault.String()
		if runErr != nil {
			seg.Fault = runErr.Error()
		}
	}
	return seg
}

// CheckLock verifies the LO lock and, depending on the clock reference, the
// MIMO or external reference lock. Sensors the device does not expose are
// skipped.
func CheckLock(dev sdr.Device, ref string) error {
	sensors, ok := dev.(sdr.Sensors)
	if !ok {
		return nil
	}
	check := []string{"lo_locked"}
	switch ref {
	case "mimo":
		check = append(check, "mimo_locked")
	case "external":
		check = append(check, "ref_locked")
	}

	available := map[string]bool{}
	for _, name := range sensors.SensorNames() {
		available[name] = true
	}
	for _, name := range check {
		if !available[name] {
			continue
		}
		locked, err := sensors.Sensor(name)
		if err != nil {
			return errors.Wrapf(err, "unable to read sensor %s", name)
		}
		glog.Infof("Checking RX: %s: %t", name, locked)
		if !locked {
			return &ClockLockError{Sensor: name}
		}
	}
	return nil
}
