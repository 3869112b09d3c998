package export

import (
	"context"
	"database/sql"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/hb9tf/sweeprx/sdr"
)

const (
	sqlSegmentCountInfo = 100

	sqlCreateTableTmpl = `CREATE TABLE IF NOT EXISTS segments (
		"ID"           INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"Identifier"   TEXT NOT NULL,
		"Source"       TEXT NOT NULL,
		"FreqCenter"   INTEGER,
		"SampleRate"   REAL,
		"Format"       TEXT,
		"Channels"     INTEGER,
		"Target"       INTEGER,
		"SampleCount"  INTEGER,
		"Overflows"    INTEGER,
		"Outcome"      TEXT,
		"Fault"        TEXT,
		"Files"        TEXT,
		"StartMilli"   INTEGER,
		"EndMilli"     INTEGER
	);`
	// The insert is shared by the sqlite and MySQL exporters.
	insertSegmentTmpl = `INSERT INTO segments (
		Identifier,
		Source,
		FreqCenter,
		SampleRate,
		Format,
		Channels,
		Target,
		SampleCount,
		Overflows,
		Outcome,
		Fault,
		Files,
		StartMilli,
		EndMilli
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
)

// SQL stores segments in a sqlite DB.
type SQL struct {
	DB *sql.DB
}

func (s *SQL) Write(ctx context.Context, segments <-chan sdr.Segment) error {
	if err := createTableIfNotExists(ctx, s.DB, sqlCreateTableTmpl); err != nil {
		return errors.Wrap(err, "unable to create table")
	}
	return store(ctx, s.DB, "sqlite", segments)
}

func createTableIfNotExists(ctx context.Context, db *sql.DB, tmpl string) error {
	_, err := db.ExecContext(ctx, tmpl)
	return err
}

// store inserts every segment, logging and skipping the ones that fail.
func store(ctx context.Context, db *sql.DB, name string, segments <-chan sdr.Segment) error {
	statement, err := db.PrepareContext(ctx, insertSegmentTmpl)
	if err != nil {
		return errors.Wrap(err, "unable to prepare insert")
	}
	defer statement.Close()

	counts := map[string]int{
		"error":   0,
		"success": 0,
		"total":   0,
	}
	for seg := range segments {
		counts["total"] += 1
		if err := insertSegment(ctx, statement, seg); err != nil {
			counts["error"] += 1
			glog.Warningf("error storing in %s DB: %s\n", name, err)
			continue
		}
		counts["success"] += 1
		if counts["total"]%sqlSegmentCountInfo == 0 {
			glog.Infof("Segment export counts: %+v\n", counts)
		}
	}
	glog.V(1).Infof("Segment export done: %+v\n", counts)
	return nil
}

func insertSegment(ctx context.Context, statement *sql.Stmt, s sdr.Segment) error {
	_, err := statement.ExecContext(context.WithoutCancel(ctx),
		s.Identifier,
		s.Source,
		s.FreqCenter,
		s.SampleRate,
		s.Format,
		s.Channels,
		s.Target,
		s.SampleCount,
		s.Overflows,
		s.Outcome,
		s.Fault,
		strings.Join(s.Files, sdr.FileSeparator),
		s.Start.UnixMilli(),
		s.End.UnixMilli(),
	)
	return err
}
