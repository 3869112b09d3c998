package export

import (
	"context"
	"strings"

	"github.com/golang/glog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/hb9tf/sweeprx/sdr"
)

const (
	postgresCreateTableTmpl = `CREATE TABLE IF NOT EXISTS segments (
		ID           BIGSERIAL PRIMARY KEY,
		Identifier   TEXT NOT NULL,
		Source       TEXT NOT NULL,
		FreqCenter   BIGINT,
		SampleRate   DOUBLE PRECISION,
		Format       TEXT,
		Channels     INTEGER,
		Target       BIGINT,
		SampleCount  BIGINT,
		Overflows    INTEGER,
		Outcome      TEXT,
		Fault        TEXT,
		Files        TEXT,
		StartMilli   BIGINT,
		EndMilli     BIGINT
	);`
	postgresInsertSegmentTmpl = `INSERT INTO segments (
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
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);`
)

// OpenPostgres creates a connection pool from a postgres:// URL.
func OpenPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, errors.Wrap(err, "invalid Postgres URL")
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to Postgres %s", pcfg.ConnConfig.Host)
	}
	return pool, nil
}

type Postgres struct {
	Pool *pgxpool.Pool
}

func (p *Postgres) Write(ctx context.Context, segments <-chan sdr.Segment) error {
	if _, err := p.Pool.Exec(ctx, postgresCreateTableTmpl); err != nil {
		return errors.Wrap(err, "unable to create table")
	}

	counts := map[string]int{
		"error":   0,
		"success": 0,
		"total":   0,
	}
	for s := range segments {
		counts["total"] += 1
		if _, err := p.Pool.Exec(context.WithoutCancel(ctx), postgresInsertSegmentTmpl,
			s.Identifier,
			s.Source,
			s.FreqCenter,
			s.SampleRate,
			s.Format,
			s.Channels,
			int64(s.Target),
			int64(s.SampleCount),
			s.Overflows,
			s.Outcome,
			s.Fault,
			strings.Join(s.Files, sdr.FileSeparator),
			s.Start.UnixMilli(),
			s.End.UnixMilli(),
		); err != nil {
			counts["error"] += 1
			glog.Warningf("error storing in Postgres DB: %s\n", err)
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
