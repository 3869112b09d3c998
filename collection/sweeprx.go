package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hb9tf/sweeprx/capture"
	"github.com/hb9tf/sweeprx/config"
	"github.com/hb9tf/sweeprx/export"
	"github.com/hb9tf/sweeprx/filter"
	"github.com/hb9tf/sweeprx/hackrf"
	"github.com/hb9tf/sweeprx/peer"
	"github.com/hb9tf/sweeprx/rtlsdr"
	"github.com/hb9tf/sweeprx/rtltcp"
	"github.com/hb9tf/sweeprx/sdr"
	"github.com/hb9tf/sweeprx/sdr/sim"
)

func newDevice(cfg *config.Config) (sdr.Device, error) {
	opts := cfg.DeviceOptions()
	switch strings.ToLower(cfg.SDR) {
	case hackrf.SourceName:
		return &hackrf.SDR{Options: opts}, nil
	case rtlsdr.SourceName, "rtlsdr":
		return &rtlsdr.SDR{Options: opts}, nil
	case rtltcp.SourceName, "rtltcp":
		return &rtltcp.SDR{Options: opts}, nil
	case sim.SourceName:
		// -args is the channel count of the simulated device.
		channels := 1
		if cfg.Args != "" {
			n, err := strconv.Atoi(cfg.Args)
			if err != nil || n < 1 {
				return nil, &config.ConfigurationError{Option: "args", Reason: "sim expects a positive channel count"}
			}
			channels = n
		}
		dev := sim.New(channels, opts.SampleRate)
		dev.SensorValues = map[string]bool{"lo_locked": true, "ref_locked": true, "mimo_locked": true}
		return dev, nil
	}
	return nil, &config.ConfigurationError{Option: "sdr", Reason: "pick one of: hackrf, rtlsdr, rtltcp, sim"}
}

func newNotifier(cfg *config.Config) peer.Notifier {
	switch cfg.Peer {
	case "ssh":
		return &peer.SSH{
			Host:     cfg.TxHost,
			Password: cfg.TxPass,
			Process:  cfg.TxProcess,
		}
	case "http":
		return &peer.HTTP{
			Server:     cfg.PeerURL,
			Identifier: cfg.Identifier,
		}
	}
	return peer.Nop{}
}

func newExporter(ctx context.Context, cfg *config.Config) (export.Exporter, error) {
	switch strings.ToLower(cfg.Output) {
	case "csv":
		return &export.CSV{}, nil
	case "sqlite":
		db, err := export.OpenSQLite(cfg.SQLiteFile)
		if err != nil {
			return nil, err
		}
		return &export.SQL{DB: db}, nil
	case "mysql":
		db, err := export.OpenMySQL(export.MySQLOptions{
			Server:       cfg.MySQLServer,
			User:         cfg.MySQLUser,
			PasswordFile: cfg.MySQLPasswordFile,
			DBName:       cfg.MySQLDBName,
		})
		if err != nil {
			return nil, err
		}
		return &export.MySQL{DB: db}, nil
	case "postgres":
		pool, err := export.OpenPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		return &export.Postgres{Pool: pool}, nil
	case "server":
		return &export.CatalogServer{
			Server:       cfg.CatalogServer,
			SendSegments: cfg.CatalogBatch,
		}, nil
	}
	return export.Discard{}, nil
}

func main() {
	// Set defaults for glog flags. Can be overridden via cmdline.
	flag.Set("logtostderr", "false")
	flag.Set("stderrthreshold", "WARNING")
	flag.Set("v", "1")
	// Parse flags globally.
	cfg := &config.Config{}
	if err := cfg.Parse(flag.CommandLine, os.Args[1:]); err != nil {
		glog.Exit(err)
	}
	defer glog.Flush()

	if err := cfg.Validate(); err != nil {
		glog.Exit(err)
	}
	if cfg.Identifier == "" {
		cfg.Identifier = uuid.NewString()
	}

	// SDR setup
	dev, err := newDevice(cfg)
	if err != nil {
		glog.Exit(err)
	}
	glog.Infof("Using %s device with %d channel(s), actual RX rate %f Msps", dev.Name(), dev.ChannelCount(), dev.SampleRate()/1e6)
	if err := capture.CheckLock(dev, cfg.Ref); err != nil {
		glog.Exit(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	releaseOnDone(ctx, stop)

	// Exporter setup
	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		glog.Exit(err)
	}

	// Export segment records.
	segments, exported := startExport(ctx, exporter, []filter.Filterer{
		&filter.FilterOutcome{Ignore: cfg.Outcomes()},
	})

	// Run
	controller := &capture.Controller{
		Device:             dev,
		Peer:               newNotifier(cfg),
		Sweep:              cfg.Sweep(),
		Identifier:         cfg.Identifier,
		Prefix:             cfg.FilePrefix,
		Format:             cfg.Format(),
		SamplesPerTransfer: cfg.SPB,
		Settling:           cfg.SettlingTime(),
		Target:             cfg.NumSamples,
	}
	runErr := controller.Run(ctx, segments)
	<-exported

	if runErr != nil {
		var fault *capture.StreamFault
		if errors.As(runErr, &fault) {
			glog.Exitf("Receiver error: %s", fault)
		}
		glog.Exit(runErr)
	}
	glog.Infoln("Done!")
}
