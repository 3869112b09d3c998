package rtltcp

import (
	"encoding/binary"
	"io"
	"math"
	"net"
	"testing"
	"time"

	"github.com/hb9tf/sweeprx/sdr"
)

type command struct {
	Command   uint8
	Parameter uint32
}

// fakeServer speaks the rtl_tcp protocol: it greets with the dongle info,
// reads the expected number of commands and then streams full-scale IQ.
func fakeServer(t *testing.T, commands int, iqBytes int) (string, <-chan []command) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %s", err)
	}
	t.Cleanup(func() { l.Close() })

	received := make(chan []command, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		info := struct {
			Magic     [4]byte
			Tuner     uint32
			GainCount uint32
		}{[4]byte{'R', 'T', 'L', '0'}, 5, 29}
		binary.Write(conn, binary.BigEndian, info)

		var cmds []command
		for i := 0; i < commands; i++ {
			var c command
			if err := binary.Read(conn, binary.BigEndian, &c); err != nil {
				break
			}
			cmds = append(cmds, c)
		}
		received <- cmds

		iq := make([]byte, iqBytes)
		for i := range iq {
			if i%2 == 0 {
				iq[i] = 255
			}
		}
		conn.Write(iq)
		io.Copy(io.Discard, conn)
	}()
	return l.Addr().String(), received
}

func TestStream(t *testing.T) {
	addr, received := fakeServer(t, 3, 2*16384)
	s := &SDR{Options: sdr.Options{Args: addr, SampleRate: 2.4e6, Gain: -1}}
	if err := s.SetCenterFrequency(915e6, 0, time.Now()); err != nil {
		t.Fatalf("SetCenterFrequency: %s", err)
	}
	stream, err := s.RxStream([]int{0}, sdr.FormatFloat)
	if err != nil {
		t.Fatalf("RxStream: %s", err)
	}
	defer stream.Close()
	if err := stream.IssueCommand(sdr.StreamCommand{Mode: sdr.StartContinuous, StreamNow: true}); err != nil {
		t.Fatalf("IssueCommand: %s", err)
	}

	buf := [][]byte{make([]byte, 4*sdr.FormatFloat.ByteWidth())}
	n, code, err := stream.Recv(buf, 4, 5*time.Second)
	if n != 4 || code != sdr.ErrorCodeNone || err != nil {
		t.Fatalf("Recv = (%d, %s, %v)", n, code, err)
	}
	i := math.Float32frombits(binary.LittleEndian.Uint32(buf[0][0:]))
	q := math.Float32frombits(binary.LittleEndian.Uint32(buf[0][4:]))
	if i != 1 || q != -1 {
		t.Errorf("first sample = (%f, %f), want (1, -1)", i, q)
	}

	want := []command{{2, 2400000}, {1, 915000000}, {3, 0}}
	got := <-received
	if len(got) != len(want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	for k := range want {
		if got[k] != want[k] {
			t.Errorf("command %d = %v, want %v", k, got[k], want[k])
		}
	}
}

func TestTuneRange(t *testing.T) {
	s := &SDR{}
	if err := s.SetCenterFrequency(5e9, 0, time.Now()); err == nil {
		t.Error("tuning beyond 32 bit Hz succeeded")
	}
	if err := s.SetCenterFrequency(100e6, 1, time.Now()); err == nil {
		t.Error("tuning channel 1 succeeded")
	}
	if s.addr() != defaultAddr {
		t.Errorf("addr() = %q, want %q", s.addr(), defaultAddr)
	}
}
