package export

import (
	"context"

	"github.com/hb9tf/sweeprx/sdr"
)

// Exporter consumes segment catalog records until the channel is closed.
type Exporter interface {
	Write(context.Context, <-chan sdr.Segment) error
}

// Discard drops every record.
type Discard struct{}

func (Discard) Write(ctx context.Context, segments <-chan sdr.Segment) error {
	for range segments {
	}
	return nil
}
