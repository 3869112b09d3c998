package rtlsdr

import (
	"reflect"
	"testing"
	"time"

	"github.com/hb9tf/sweeprx/sdr"
)

func TestArgs(t *testing.T) {
	cases := []struct {
		name string
		opts sdr.Options
		cmd  sdr.StreamCommand
		want []string
	}{
		{
			name: "continuous auto gain",
			opts: sdr.Options{SampleRate: 2.4e6, Gain: -1},
			cmd:  sdr.StreamCommand{Mode: sdr.StartContinuous},
			want: []string{"-f", "100000000", "-s", "2400000", "-"},
		},
		{
			name: "bounded manual gain",
			opts: sdr.Options{SampleRate: 2.4e6, Gain: 49.6, Args: "1"},
			cmd:  sdr.StreamCommand{Mode: sdr.NumSampsAndDone, NumSamples: 1000},
			want: []string{"-f", "100000000", "-s", "2400000", "-d", "1", "-g", "49.6", "-"},
		},
	}
	for _, c := range cases {
		s := &SDR{Options: c.opts}
		if err := s.SetCenterFrequency(100e6, 0, time.Now()); err != nil {
			t.Fatalf("%s: SetCenterFrequency: %s", c.name, err)
		}
		if got := s.args(c.cmd); !reflect.DeepEqual(got, c.want) {
			t.Errorf("%s: args = %q, want %q", c.name, got, c.want)
		}
	}
}
