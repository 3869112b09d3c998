package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/golang/glog"

	"github.com/hb9tf/sweeprx/sdr"
)

type CSV struct {
	// Out defaults to stdout.
	Out io.Writer
}

func (c *CSV) Write(ctx context.Context, segments <-chan sdr.Segment) error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	w := csv.NewWriter(out)
	w.Write([]string{
		"Source",
		"Identifier",
		"FreqCenter",
		"SampleRate",
		"Format",
		"Channels",
		"Target",
		"SampleCount",
		"Overflows",
		"Outcome",
		"Fault",
		"Files",
		"StartUnixMilli",
		"EndUnixMilli",
	})

	for s := range segments {
		if err := w.Write([]string{
			s.Source,
			s.Identifier,
			fmt.Sprintf("%d", s.FreqCenter),
			fmt.Sprintf("%f", s.SampleRate),
			s.Format,
			fmt.Sprintf("%d", s.Channels),
			fmt.Sprintf("%d", s.Target),
			fmt.Sprintf("%d", s.SampleCount),
			fmt.Sprintf("%d", s.Overflows),
			s.Outcome,
			s.Fault,
			strings.Join(s.Files, sdr.FileSeparator),
			fmt.Sprintf("%d", s.Start.UnixMilli()),
			fmt.Sprintf("%d", s.End.UnixMilli()),
		}); err != nil {
			glog.Warningf("error while writing CSV line: %s\n", err)
		}

		w.Flush()
		if err := w.Error(); err != nil {
			glog.Warningf("error flushing CSV: %s\n", err)
		}
	}
	w.Flush()
	return w.Error()
}
