// Package config holds the receiver's command line surface.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bemasher/rtltcp/si"
	"github.com/golang/glog"

	"github.com/hb9tf/sweeprx/capture"
	"github.com/hb9tf/sweeprx/sdr"
)

// EnvPrefix prefixes the environment variables overriding flags, e.g. SWEEPRX_RATE.
const EnvPrefix = "SWEEPRX_"

// ConfigurationError is reported before any device interaction.
type ConfigurationError struct {
	Option string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid option -%s: %s", e.Option, e.Reason)
}

type Config struct {
	SDR        string
	Args       string
	FilePrefix string
	Type       string
	Settling   float64
	SPB        int
	Rate       si.ScientificNotation
	Freq       si.ScientificNotation
	EndFreq    si.ScientificNotation
	FreqStep   si.ScientificNotation
	Gain       float64
	Antenna    string
	Bandwidth  si.ScientificNotation
	Ref        string
	NumSamples uint64

	Peer      string
	PeerURL   string
	TxHost    string
	TxPass    string
	TxProcess string

	Identifier string

	// Catalog export
	Output            string
	SQLiteFile        string
	MySQLServer       string
	MySQLUser         string
	MySQLPasswordFile string
	MySQLDBName       string
	PostgresURL       string
	CatalogServer     string
	CatalogBatch      int
	IgnoreOutcomes    string

	// set records which flags were given explicitly.
	set map[string]bool
}

// RegisterFlags defines the flags on fs with their defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	c.FreqStep = 5e6

	fs.StringVar(&c.SDR, "sdr", "", "SDR to use (one of: hackrf, rtlsdr, rtltcp, sim)")
	fs.StringVar(&c.Args, "args", "", "device selector: serial or index for hackrf/rtlsdr, host:port for rtltcp")
	fs.StringVar(&c.FilePrefix, "file_prefix", "usrp_samples", "prefix of the per-channel sample files")
	fs.StringVar(&c.Type, "type", "short", "sample type in file: double, float, or short")
	fs.Float64Var(&c.Settling, "settling", 0.2, "settling time (seconds) before receiving")
	fs.IntVar(&c.SPB, "spb", 64000, "samples per buffer")
	fs.Var(&c.Rate, "rate", "rate of receive incoming samples")
	fs.Var(&c.Freq, "freq", "receive RF center frequency in Hz")
	fs.Var(&c.EndFreq, "end_freq", "RF end center frequency in Hz (defaults to -freq)")
	fs.Var(&c.FreqStep, "freq_step", "RF frequency step in Hz")
	fs.Float64Var(&c.Gain, "gain", -1, "gain for the receive RF chain in dB, negative for the device default")
	fs.StringVar(&c.Antenna, "ant", "", "receive antenna selection")
	fs.Var(&c.Bandwidth, "bw", "analog receive filter bandwidth in Hz")
	fs.StringVar(&c.Ref, "ref", "internal", "clock reference (internal, external, mimo)")
	fs.Uint64Var(&c.NumSamples, "nsamps", 0, "total number of samples to receive per frequency, 0 for continuous")

	fs.StringVar(&c.Peer, "peer", "none", "peer notification (one of: none, ssh, http)")
	fs.StringVar(&c.PeerURL, "peer_url", "", "URL of the HTTP peer")
	fs.StringVar(&c.TxHost, "tx_host", "", "[username]@[hostname] of the transmitter host")
	fs.StringVar(&c.TxPass, "tx_pass", "", "password of transmitter host")
	fs.StringVar(&c.TxProcess, "tx_process", "tx_samples_from_file_switch", "transmitter process name to signal")

	fs.StringVar(&c.Identifier, "id", "", "unique identifier of receiver instance (defaults to a random UUID)")

	fs.StringVar(&c.Output, "output", "none", "segment catalog export (one of: none, csv, sqlite, mysql, postgres, server)")
	fs.StringVar(&c.SQLiteFile, "sqliteFile", "/tmp/sweeprx", "File path of the sqlite DB file to use.")
	fs.StringVar(&c.MySQLServer, "mysqlServer", "127.0.0.1:3306", "MySQL TCP server endpoint to connect to (IP/DNS and port).")
	fs.StringVar(&c.MySQLUser, "mysqlUser", "", "MySQL DB user.")
	fs.StringVar(&c.MySQLPasswordFile, "mysqlPasswordFile", "", "Path to the file containing the password for the MySQL user.")
	fs.StringVar(&c.MySQLDBName, "mysqlDBName", "sweeprx", "Name of the DB to use.")
	fs.StringVar(&c.PostgresURL, "postgresURL", "postgres://localhost:5432/sweeprx", "Postgres connection URL.")
	fs.StringVar(&c.CatalogServer, "catalogServer", "http://localhost:8443", "URL scheme, address and port of the catalog server.")
	fs.IntVar(&c.CatalogBatch, "catalogBatch", 0, "Defines how many segments should be sent to the catalog server at once.")
	fs.StringVar(&c.IgnoreOutcomes, "ignoreOutcomes", "", "Comma separated segment outcomes (completed, stopped, faulted) to keep out of the catalog.")

	fs.Lookup("rate").DefValue = ""
	fs.Lookup("freq").DefValue = ""
	fs.Lookup("end_freq").DefValue = ""
	fs.Lookup("freq_step").DefValue = "5M"
	fs.Lookup("bw").DefValue = ""
}

// EnvOverride sets every flag from its environment variable, if present.
// It must run before flags are parsed so the command line wins.
func EnvOverride(fs *flag.FlagSet) {
	fs.VisitAll(func(f *flag.Flag) {
		envName := EnvPrefix + strings.ToUpper(f.Name)
		flagValue := os.Getenv(envName)
		if flagValue == "" {
			return
		}
		if err := fs.Set(f.Name, flagValue); err != nil {
			glog.Warningf("Environment variable %q failed to override flag %q with value %q: %s", envName, f.Name, flagValue, err)
			return
		}
		glog.Infof("Environment variable %q overrides flag %q", envName, f.Name)
	})
}

// Parse registers the flags on fs, applies the environment and parses args.
func (c *Config) Parse(fs *flag.FlagSet, args []string) error {
	c.RegisterFlags(fs)
	EnvOverride(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	c.set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		c.set[f.Name] = true
	})
	return nil
}

// IsSet reports whether a flag was given on the command line or environment.
func (c *Config) IsSet(name string) bool {
	return c.set[name]
}

// Validate checks the configuration before any device is touched.
func (c *Config) Validate() error {
	if !c.IsSet("rate") || c.Rate <= 0 {
		return &ConfigurationError{"rate", "please specify the sample rate"}
	}
	if !c.IsSet("freq") {
		return &ConfigurationError{"freq", "please specify the receive center frequency"}
	}
	if _, err := sdr.ParseFormat(c.Type); err != nil {
		return &ConfigurationError{"type", err.Error()}
	}
	switch c.Ref {
	case "internal", "external", "mimo":
	default:
		return &ConfigurationError{"ref", fmt.Sprintf("unknown clock reference %q", c.Ref)}
	}
	if c.SPB <= 0 {
		return &ConfigurationError{"spb", "samples per buffer must be positive"}
	}
	if c.Settling < 0 {
		return &ConfigurationError{"settling", "settling time must not be negative"}
	}
	switch c.Peer {
	case "none":
	case "ssh":
		if c.TxHost == "" {
			return &ConfigurationError{"tx_host", "ssh peer needs a transmitter host"}
		}
	case "http":
		if c.PeerURL == "" {
			return &ConfigurationError{"peer_url", "http peer needs a URL"}
		}
	default:
		return &ConfigurationError{"peer", fmt.Sprintf("%q is not a supported peer, pick one of: none, ssh, http", c.Peer)}
	}
	switch c.Output {
	case "none", "csv", "sqlite", "mysql", "postgres", "server":
	default:
		return &ConfigurationError{"output", fmt.Sprintf("%q is not a supported export method, pick one of: none, csv, sqlite, mysql, postgres, server", c.Output)}
	}
	return nil
}

// Outcomes lists the segment outcomes to keep out of the catalog.
func (c *Config) Outcomes() []string {
	var outcomes []string
	for _, o := range strings.Split(c.IgnoreOutcomes, ",") {
		if o = strings.TrimSpace(o); o != "" {
			outcomes = append(outcomes, o)
		}
	}
	return outcomes
}

// Format is the parsed sample type. Validate first.
func (c *Config) Format() sdr.Format {
	f, _ := sdr.ParseFormat(c.Type)
	return f
}

func (c *Config) Sweep() capture.Sweep {
	end := float64(c.EndFreq)
	if !c.IsSet("end_freq") {
		end = float64(c.Freq)
	}
	return capture.Sweep{
		Start: float64(c.Freq),
		End:   end,
		Step:  float64(c.FreqStep),
	}
}

func (c *Config) SettlingTime() time.Duration {
	return time.Duration(c.Settling * float64(time.Second))
}

// DeviceOptions are the front-end settings for the device backends.
func (c *Config) DeviceOptions() sdr.Options {
	return sdr.Options{
		Args:       c.Args,
		SampleRate: float64(c.Rate),
		Gain:       c.Gain,
		Bandwidth:  float64(c.Bandwidth),
		Antenna:    c.Antenna,
		Ref:        c.Ref,
	}
}
