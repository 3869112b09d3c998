// Package extraction reads segment catalog records back from a sqlite or
// MySQL DB written by export.SQL or export.MySQL.
package extraction

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/hb9tf/sweeprx/sdr"
)

const (
	DefaultLimit = 1000

	getSegmentsTmpl = `SELECT
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
	FROM
		segments
	WHERE
		%s
	ORDER BY
		StartMilli ASC,
		FreqCenter ASC
	LIMIT ?;`
)

// QueryRequest selects segments. Zero values do not restrict the result.
type QueryRequest struct {
	Identifier string
	Source     string
	Outcome    string
	StartFreq  int64
	EndFreq    int64
	StartTime  time.Time
	EndTime    time.Time
	Limit      int
}

func (r *QueryRequest) where() (string, []interface{}) {
	conds := []string{"1 = 1"}
	var args []interface{}
	add := func(cond string, arg interface{}) {
		conds = append(conds, cond)
		args = append(args, arg)
	}
	if r.Identifier != "" {
		add("Identifier = ?", r.Identifier)
	}
	if r.Source != "" {
		add("Source = ?", r.Source)
	}
	if r.Outcome != "" {
		add("Outcome = ?", r.Outcome)
	}
	if r.StartFreq > 0 {
		add("FreqCenter >= ?", r.StartFreq)
	}
	if r.EndFreq > 0 && r.EndFreq < math.MaxInt64 {
		add("FreqCenter <= ?", r.EndFreq)
	}
	if !r.StartTime.IsZero() {
		add("StartMilli >= ?", r.StartTime.UnixMilli())
	}
	if !r.EndTime.IsZero() {
		add("EndMilli <= ?", r.EndTime.UnixMilli())
	}
	return strings.Join(conds, "\n\t\tAND "), args
}

// Query returns the matching segments ordered by start time and frequency.
func Query(db *sql.DB, req *QueryRequest) ([]sdr.Segment, error) {
	where, args := req.where()
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	args = append(args, limit)

	rows, err := db.Query(fmt.Sprintf(getSegmentsTmpl, where), args...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to query segments")
	}
	defer rows.Close()

	var segments []sdr.Segment
	for rows.Next() {
		var s sdr.Segment
		var files string
		var fault sql.NullString
		var startMilli, endMilli int64
		if err := rows.Scan(&s.Identifier, &s.Source, &s.FreqCenter, &s.SampleRate, &s.Format, &s.Channels, &s.Target, &s.SampleCount, &s.Overflows, &s.Outcome, &fault, &files, &startMilli, &endMilli); err != nil {
			glog.Warningf("unable to get segment from DB: %s\n", err)
			continue
		}
		s.Fault = fault.String
		if files != "" {
			s.Files = strings.Split(files, sdr.FileSeparator)
		}
		s.Start = time.UnixMilli(startMilli).UTC()
		s.End = time.UnixMilli(endMilli).UTC()
		segments = append(segments, s)
	}
	return segments, rows.Err()
}

// FreqRange returns the lowest and highest center frequency of segments.
func FreqRange(segments []sdr.Segment) (int64, int64) {
	if len(segments) == 0 {
		return 0, 0
	}
	low, high := int64(math.MaxInt64), int64(math.MinInt64)
	for _, s := range segments {
		if s.FreqCenter < low {
			low = s.FreqCenter
		}
		if s.FreqCenter > high {
			high = s.FreqCenter
		}
	}
	return low, high
}
