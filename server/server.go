package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/hb9tf/sweeprx/export"
	"github.com/hb9tf/sweeprx/extraction"
	"github.com/hb9tf/sweeprx/sdr"
)

var (
	listen   = flag.String("listen", ":8443", "")
	certFile = flag.String("certFile", "", "Path of the file containing the certificate (including the chained intermediates and root) for the TLS connection.")
	keyFile  = flag.String("keyFile", "", "Path of the file containing the key for the TLS connection.")
	output   = flag.String("output", "", "Export mechanism to use (one of: csv, sqlite, mysql)")

	// SQLite
	sqliteFile = flag.String("sqliteFile", "/tmp/sweeprx", "File path of the sqlite DB file to use.")

	// MySQL
	mysqlServer       = flag.String("mysqlServer", "127.0.0.1:3306", "MySQL TCP server endpoint to connect to (IP/DNS and port).")
	mysqlUser         = flag.String("mysqlUser", "", "MySQL DB user.")
	mysqlPasswordFile = flag.String("mysqlPasswordFile", "", "Path to the file containing the password for the MySQL user.")
	mysqlDBName       = flag.String("mysqlDBName", "sweeprx", "Name of the DB to use.")
)

const (
	collectEndpoint  = "/" + export.CollectEndpoint
	segmentsEndpoint = "/sweeprx/v1/segments"
)

// CatalogServer accepts segment records from receivers and serves them back.
type CatalogServer struct {
	segments chan<- sdr.Segment
	// db is nil when the records are not stored in a DB.
	db *sql.DB
}

func (s *CatalogServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST(collectEndpoint, s.collectHandler)
	r.GET(segmentsEndpoint, s.segmentsHandler)
	return r
}

func (s *CatalogServer) collectHandler(c *gin.Context) {
	segments := []sdr.Segment{}
	if err := c.ShouldBindJSON(&segments); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	for _, seg := range segments {
		s.segments <- seg
	}
	c.JSON(http.StatusOK, export.CollectResponse{Status: "ok", SegmentCount: len(segments)})
}

func (s *CatalogServer) segmentsHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"status": "error", "error": "segments are not stored in a DB"})
		return
	}
	req, err := parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	segments, err := extraction.Query(s.db, req)
	if err != nil {
		glog.Warningf("unable to query segments: %s\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	if segments == nil {
		segments = []sdr.Segment{}
	}
	c.JSON(http.StatusOK, segments)
}

func parseQuery(c *gin.Context) (*extraction.QueryRequest, error) {
	req := &extraction.QueryRequest{
		Identifier: c.Query("id"),
		Source:     c.Query("source"),
		Outcome:    c.Query("outcome"),
	}
	for param, dst := range map[string]*int64{"startFreq": &req.StartFreq, "endFreq": &req.EndFreq} {
		if v := c.Query(param); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid %s", param)
			}
			*dst = n
		}
	}
	for param, dst := range map[string]*time.Time{"startTime": &req.StartTime, "endTime": &req.EndTime} {
		if v := c.Query(param); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid %s", param)
			}
			*dst = t
		}
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrap(err, "invalid limit")
		}
		req.Limit = n
	}
	return req, nil
}

func main() {
	ctx := context.Background()
	// Set defaults for glog flags. Can be overridden via cmdline.
	flag.Set("logtostderr", "false")
	flag.Set("stderrthreshold", "WARNING")
	flag.Set("v", "1")
	// Parse flags globally.
	flag.Parse()
	defer glog.Flush()

	// Exporter setup
	var exporter export.Exporter
	var db *sql.DB
	var err error
	switch strings.ToLower(*output) {
	case "csv":
		exporter = &export.CSV{}
	case "sqlite":
		if db, err = export.OpenSQLite(*sqliteFile); err != nil {
			glog.Exit(err)
		}
		exporter = &export.SQL{DB: db}
	case "mysql":
		db, err = export.OpenMySQL(export.MySQLOptions{
			Server:       *mysqlServer,
			User:         *mysqlUser,
			PasswordFile: *mysqlPasswordFile,
			DBName:       *mysqlDBName,
		})
		if err != nil {
			glog.Exit(err)
		}
		exporter = &export.MySQL{DB: db}
	default:
		glog.Exitf("%q is not a supported export method, pick one of: csv, sqlite, mysql", *output)
	}

	// Export segments.
	segments := make(chan sdr.Segment, 1000)
	go func() {
		if err := exporter.Write(ctx, segments); err != nil {
			glog.Fatal(err)
		}
	}()

	// Configure and run webserver.
	gin.SetMode(gin.ReleaseMode)
	s := &CatalogServer{
		segments: segments,
		db:       db,
	}
	server := &http.Server{
		Addr:    *listen,
		Handler: s.Router(),
	}
	if *certFile != "" || *keyFile != "" {
		glog.Fatal(server.ListenAndServeTLS(*certFile, *keyFile))
	} else {
		glog.Infoln("Resorting to serving HTTP because there was no certificate and key defined.")
		glog.Fatal(server.ListenAndServe())
	}
}
