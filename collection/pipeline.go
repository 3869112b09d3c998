package main

import (
	"context"

	"github.com/golang/glog"

	"github.com/hb9tf/sweeprx/export"
	"github.com/hb9tf/sweeprx/filter"
	"github.com/hb9tf/sweeprx/sdr"
)

// startExport runs the filter and exporter stages. The returned channel is
// consumed until it is closed even when the exporter gives up early, so the
// sweep never blocks on catalog records. done is closed once both stages
// have finished.
func startExport(ctx context.Context, exporter export.Exporter, filters []filter.Filterer) (chan<- sdr.Segment, <-chan struct{}) {
	segments := make(chan sdr.Segment)
	filtered := make(chan sdr.Segment, 100)
	done := make(chan struct{})
	go func() {
		filter.Filter(segments, filtered, filters)
	}()
	go func() {
		defer close(done)
		if err := exporter.Write(ctx, filtered); err != nil {
			glog.Errorf("unable to export segments, dropping further records: %s", err)
		}
		for range filtered {
		}
	}()
	return segments, done
}

// releaseOnDone restores default signal handling once ctx is done so a
// second interrupt terminates the process.
func releaseOnDone(ctx context.Context, release func()) {
	go func() {
		<-ctx.Done()
		release()
	}()
}
