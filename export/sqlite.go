package export

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang/glog"
)

const (
	sqlSampleCountInfo = 10000

	sqliteCreateTableTmpl = `CREATE TABLE IF NOT EXISTS plotuv (
		"ID"          INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"Identifier"  TEXT NOT NULL,
		"Baseline"    TEXT NOT NULL,
		"Mode"        TEXT NOT NULL,
		"Series"      TEXT,
		"RowIdx"      INTEGER,
		"ColIdx"      INTEGER,
		"X"           REAL,
		"Y"           REAL,
		"Value"       REAL,
		"Masked"      INTEGER
	);`
	sqlInsertSampleTmpl = `INSERT INTO plotuv (
		Identifier,
		Baseline,
		Mode,
		Series,
		RowIdx,
		ColIdx,
		X,
		Y,
		Value,
		Masked
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
)

// SQLite stores samples in the plotuv table of DB.
type SQLite struct {
	DB *sql.DB
}

func (s *SQLite) Write(ctx context.Context, samples <-chan Sample) error {
	if _, err := s.DB.ExecContext(ctx, sqliteCreateTableTmpl); err != nil {
		return fmt.Errorf("unable to create table: %w", err)
	}
	return insertSamples(ctx, s.DB, samples)
}

// insertSamples drains samples into the plotuv table. Failed inserts are
// counted and logged but do not stop the export.
func insertSamples(ctx context.Context, db *sql.DB, samples <-chan Sample) error {
	statement, err := db.PrepareContext(ctx, sqlInsertSampleTmpl)
	if err != nil {
		return fmt.Errorf("unable to prepare insert: %w", err)
	}
	defer statement.Close()

	counts := map[string]int{
		"error":   0,
		"success": 0,
		"total":   0,
	}
	for sample := range samples {
		counts["total"] += 1
		if _, err := statement.ExecContext(ctx, sample.Identifier, sample.Baseline, sample.Mode, sample.Series, sample.Row, sample.Col, sample.X, sample.Y, sample.Value, sample.Masked); err != nil {
			counts["error"] += 1
			glog.Warningf("error storing sample in DB: %s\n", err)
			continue
		}
		counts["success"] += 1
		if counts["total"]%sqlSampleCountInfo == 0 {
			glog.V(1).Infof("Sample export counts: %+v\n", counts)
		}
	}
	glog.V(1).Infof("Sample export counts: %+v\n", counts)
	return nil
}
