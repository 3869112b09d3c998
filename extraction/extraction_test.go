package extraction

import (
	"context"
	"testing"
	"time"

	"github.com/hb9tf/sweeprx/export"
	"github.com/hb9tf/sweeprx/sdr"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixture(t *testing.T) *export.SQL {
	t.Helper()
	db, err := export.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %s", err)
	}
	t.Cleanup(func() { db.Close() })

	ch := make(chan sdr.Segment, 10)
	for i, freq := range []int64{100e6, 105e6, 110e6, 100e6} {
		outcome := "completed"
		if i == 2 {
			outcome = "faulted"
		}
		ch <- sdr.Segment{
			Identifier:  "rx1",
			Source:      "sim",
			FreqCenter:  freq,
			SampleRate:  1e6,
			Format:      "float",
			Channels:    2,
			SampleCount: 500,
			Outcome:     outcome,
			Files:       []string{"rx_0.dat", "rx_1.dat"},
			Start:       base.Add(time.Duration(i) * time.Minute),
			End:         base.Add(time.Duration(i)*time.Minute + time.Second),
		}
	}
	ch <- sdr.Segment{Identifier: "rx2", Source: "hackrf", FreqCenter: 433e6, Start: base, End: base}
	close(ch)

	sink := &export.SQL{DB: db}
	if err := sink.Write(context.Background(), ch); err != nil {
		t.Fatalf("Write: %s", err)
	}
	return sink
}

func TestQuery(t *testing.T) {
	db := fixture(t).DB

	cases := []struct {
		name string
		req  QueryRequest
		want []int64
	}{
		{"all", QueryRequest{}, []int64{100e6, 433e6, 105e6, 110e6, 100e6}},
		{"identifier", QueryRequest{Identifier: "rx1"}, []int64{100e6, 105e6, 110e6, 100e6}},
		{"frequency", QueryRequest{StartFreq: 101e6, EndFreq: 200e6}, []int64{105e6, 110e6}},
		{"outcome", QueryRequest{Outcome: "faulted"}, []int64{110e6}},
		{"time", QueryRequest{Identifier: "rx1", StartTime: base.Add(time.Minute), EndTime: base.Add(2*time.Minute + time.Second)}, []int64{105e6, 110e6}},
		{"limit", QueryRequest{Source: "sim", Limit: 2}, []int64{100e6, 105e6}},
	}
	for _, c := range cases {
		segs, err := Query(db, &c.req)
		if err != nil {
			t.Fatalf("%s: Query: %s", c.name, err)
		}
		var got []int64
		for _, s := range segs {
			got = append(got, s.FreqCenter)
		}
		if len(got) != len(c.want) {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("%s: got %v, want %v", c.name, got, c.want)
				break
			}
		}
	}
}

func TestQueryRoundTrip(t *testing.T) {
	db := fixture(t).DB
	segs, err := Query(db, &QueryRequest{Identifier: "rx1", Limit: 1})
	if err != nil {
		t.Fatalf("Query: %s", err)
	}
	if len(segs) != 1 {
		t.Fatalf("got %d segments", len(segs))
	}
	s := segs[0]
	if !s.Start.Equal(base) || !s.End.Equal(base.Add(time.Second)) {
		t.Errorf("times = %s .. %s", s.Start, s.End)
	}
	if s.Channels != 2 || s.Format != "float" || s.SampleCount != 500 {
		t.Errorf("segment = %+v", s)
	}
	want := []string{"rx_0.dat", "rx_1.dat"}
	if len(s.Files) != len(want) {
		t.Fatalf("Files = %q, want %q", s.Files, want)
	}
	for i := range want {
		if s.Files[i] != want[i] {
			t.Errorf("Files[%d] = %q, want %q", i, s.Files[i], want[i])
		}
	}
}

func TestFreqRange(t *testing.T) {
	low, high := FreqRange([]sdr.Segment{{FreqCenter: 105e6}, {FreqCenter: 100e6}, {FreqCenter: 110e6}})
	if low != 100e6 || high != 110e6 {
		t.Errorf("FreqRange = (%d, %d)", low, high)
	}
	if low, high := FreqRange(nil); low != 0 || high != 0 {
		t.Errorf("FreqRange(nil) = (%d, %d)", low, high)
	}
}
