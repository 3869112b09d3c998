package hackrf

import (
	"reflect"
	"testing"
	"time"

	"github.com/hb9tf/sweeprx/sdr"
)

func TestArgs(t *testing.T) {
	s := &SDR{Options: sdr.Options{SampleRate: 10e6, Gain: 21, Bandwidth: 5e6, Args: "0000000000000000"}}
	if err := s.SetCenterFrequency(433.92e6, 0, time.Now()); err != nil {
		t.Fatalf("SetCenterFrequency: %s", err)
	}

	got := s.args(sdr.StreamCommand{Mode: sdr.NumSampsAndDone, NumSamples: 140000})
	want := []string{
		"-r", "-",
		"-f", "433920000",
		"-s", "10000000",
		"-d", "0000000000000000",
		"-g", "20",
		"-b", "5000000",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %q, want %q", got, want)
	}
}

func TestSingleChannel(t *testing.T) {
	s := &SDR{}
	if err := s.SetCenterFrequency(100e6, 1, time.Now()); err == nil {
		t.Errorf("tuning channel 1 succeeded, want error")
	}
	if _, err := s.RxStream([]int{0, 1}, sdr.FormatShort); err == nil {
		t.Errorf("two channel stream succeeded, want error")
	}
}
