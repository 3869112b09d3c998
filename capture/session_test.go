package capture

import (
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/hb9tf/sweeprx/sdr"
	"github.com/hb9tf/sweeprx/sdr/sim"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		code sdr.ErrorCode
		want Fault
	}{
		{sdr.ErrorCodeNone, FaultNone},
		{sdr.ErrorCodeTimeout, FaultTimeout},
		{sdr.ErrorCodeOverflow, FaultOverflow},
		{sdr.ErrorCodeLateCommand, FaultOther},
		{sdr.ErrorCodeBrokenChain, FaultOther},
		{sdr.ErrorCodeAlignment, FaultOther},
		{sdr.ErrorCodeBadPacket, FaultOther},
		{0x42, FaultOther},
	}
	for _, c := range cases {
		if got := Classify(c.code); got != c.want {
			t.Errorf("Classify(%s) = %s, want %s", c.code, got, c.want)
		}
	}
}

func TestSessionArm(t *testing.T) {
	dev := sim.New(2, 1e6)
	s, err := NewSession(dev, AllChannels(2), sdr.FormatFloat)
	if err != nil {
		t.Fatalf("NewSession: %s", err)
	}
	start := sim.Epoch.Add(time.Second)

	if err := s.Arm(start, 0); err != nil {
		t.Fatalf("Arm: %s", err)
	}
	if err := s.Arm(start, 5000); err != nil {
		t.Fatalf("Arm: %s", err)
	}
	cmds := dev.Commands()
	if cmds[0].Mode != sdr.StartContinuous || cmds[0].StreamNow || !cmds[0].Time.Equal(start) {
		t.Errorf("continuous arm = %+v", cmds[0])
	}
	if cmds[1].Mode != sdr.NumSampsAndDone || cmds[1].NumSamples != 5000 {
		t.Errorf("bounded arm = %+v", cmds[1])
	}
}

func TestNewSessionChannels(t *testing.T) {
	cases := []struct {
		channels []int
		wantErr  bool
	}{
		{nil, true},
		{[]int{}, true},
		{[]int{0}, false},
		{AllChannels(2), false},
	}
	for _, c := range cases {
		_, err := NewSession(sim.New(2, 1e6), c.channels, sdr.FormatShort)
		if (err != nil) != c.wantErr {
			t.Errorf("NewSession(%v) error = %v, want error %t", c.channels, err, c.wantErr)
		}
	}
}

func TestSessionDisarmIdempotent(t *testing.T) {
	dev := sim.New(1, 1e6)
	s, err := NewSession(dev, AllChannels(1), sdr.FormatShort)
	if err != nil {
		t.Fatalf("NewSession: %s", err)
	}

	// Never armed.
	if err := s.Disarm(); err != nil {
		t.Fatalf("Disarm before Arm: %s", err)
	}
	if err := s.Arm(sim.Epoch, 0); err != nil {
		t.Fatalf("Arm: %s", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Disarm(); err != nil {
			t.Fatalf("Disarm #%d: %s", i, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %s", err)
	}

	stops := 0
	for _, cmd := range dev.Commands() {
		if cmd.Mode == sdr.StopContinuous {
			stops++
		}
	}
	if stops != 1 {
		t.Errorf("issued %d stop commands, want 1", stops)
	}
}

func TestSessionTransfer(t *testing.T) {
	dev := sim.New(1, 1e6,
		sim.Step{Samples: 10},
		sim.Step{Code: sdr.ErrorCodeOverflow},
		sim.Step{Code: sdr.ErrorCodeLateCommand},
	)
	s, err := NewSession(dev, AllChannels(1), sdr.FormatShort)
	if err != nil {
		t.Fatalf("NewSession: %s", err)
	}
	if err := s.Arm(sim.Epoch, 0); err != nil {
		t.Fatalf("Arm: %s", err)
	}
	bufs := NewPool(1, 10, sdr.FormatShort).Acquire()

	want := []TransferResult{
		{Samples: 10, Fault: FaultNone, Code: sdr.ErrorCodeNone},
		{Fault: FaultOverflow, Code: sdr.ErrorCodeOverflow},
		{Fault: FaultOther, Code: sdr.ErrorCodeLateCommand},
	}
	for i, w := range want {
		if got := s.Transfer(bufs, time.Second); got != w {
			t.Errorf("transfer %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestSessionTransportError(t *testing.T) {
	s := &Session{stream: failingStream{}, format: sdr.FormatShort}
	res := s.Transfer(NewPool(1, 4, sdr.FormatShort).Acquire(), time.Second)
	if res.Fault != FaultOther || res.Code != sdr.ErrorCodeBrokenChain || res.Err == nil {
		t.Fatalf("Transfer = %+v, want other/broken chain", res)
	}
}

func TestPool(t *testing.T) {
	p := NewPool(4, 64000, sdr.FormatDouble)
	bufs := p.Acquire()
	if len(bufs) != 4 {
		t.Fatalf("got %d buffers, want 4", len(bufs))
	}
	for ch, b := range bufs {
		if len(b) != 64000*16 {
			t.Errorf("channel %d buffer is %d bytes, want %d", ch, len(b), 64000*16)
		}
	}
	again := p.Acquire()
	if &again[0][0] != &bufs[0][0] {
		t.Errorf("Acquire reallocated the buffers")
	}
	if p.Bytes(3) != 48 {
		t.Errorf("Bytes(3) = %d, want 48", p.Bytes(3))
	}
}

func TestStreamFaultError(t *testing.T) {
	err := &StreamFault{Code: sdr.ErrorCodeBadPacket}
	if got := err.Error(); got != "unexpected error code 0xf" {
		t.Errorf("Error() = %q", got)
	}
	cause := errors.New("reset by peer")
	wrapped := &StreamFault{Code: sdr.ErrorCodeBrokenChain, Err: cause}
	if !errors.Is(wrapped, cause) {
		t.Errorf("StreamFault does not unwrap to its cause")
	}
}
