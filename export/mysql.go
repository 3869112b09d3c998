package export

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/hb9tf/sweeprx/sdr"
)

const (
	mysqlCreateTableTmpl = `CREATE TABLE IF NOT EXISTS segments (
		ID           BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		Identifier   VARCHAR(64) NOT NULL,
		Source       VARCHAR(32) NOT NULL,
		FreqCenter   BIGINT,
		SampleRate   DOUBLE,
		Format       VARCHAR(16),
		Channels     INTEGER,
		Target       BIGINT UNSIGNED,
		SampleCount  BIGINT UNSIGNED,
		Overflows    INTEGER,
		Outcome      VARCHAR(16),
		Fault        TEXT,
		Files        TEXT,
		StartMilli   BIGINT,
		EndMilli     BIGINT,
		INDEX (Identifier, FreqCenter, StartMilli)
	);`
)

type MySQL struct {
	DB *sql.DB
}

func (m *MySQL) Write(ctx context.Context, segments <-chan sdr.Segment) error {
	if err := createTableIfNotExists(ctx, m.DB, mysqlCreateTableTmpl); err != nil {
		return errors.Wrap(err, "unable to create table")
	}
	return store(ctx, m.DB, "MySQL", segments)
}
