package export

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/hb9tf/plotuv/config"

	// Blind import support for sqlite3 used by sqlite.go.
	_ "github.com/mattn/go-sqlite3"
)

// FromConfig returns the exporter selected by cfg, or nil when exporting is
// disabled. The returned close function releases its resources.
func FromConfig(cfg *config.ExportConfig) (Exporter, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(cfg.Method) {
	case config.ExportNone:
		return nil, noop, nil
	case config.ExportCSV:
		return &CSV{}, noop, nil
	case config.ExportSQLite:
		db, err := sql.Open("sqlite3", cfg.SQLiteFile)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open sqlite DB %q: %w", cfg.SQLiteFile, err)
		}
		return &SQLite{DB: db}, db.Close, nil
	case config.ExportMySQL:
		pass, err := os.ReadFile(cfg.MySQLPasswordFile)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to read MySQL password file %q: %w", cfg.MySQLPasswordFile, err)
		}
		mcfg := mysql.Config{
			User:                 cfg.MySQLUser,
			Passwd:               strings.TrimSpace(string(pass)),
			Net:                  "tcp",
			Addr:                 cfg.MySQLServer,
			DBName:               cfg.MySQLDBName,
			AllowNativePasswords: true,
		}
		db, err := sql.Open("mysql", mcfg.FormatDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open MySQL DB %q: %w", cfg.MySQLServer, err)
		}
		db.SetConnMaxLifetime(3 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		return &MySQL{DB: db}, db.Close, nil
	case config.ExportServer:
		return &Server{Server: cfg.Server}, noop, nil
	}
	return nil, nil, fmt.Errorf("%q is not a supported export method, pick one of: csv, sqlite, mysql, server", cfg.Method)
}
