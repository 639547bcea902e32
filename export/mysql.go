package export

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	mysqlCreateTableTmpl = "CREATE TABLE IF NOT EXISTS plotuv (" +
		"`ID`         BIGINT NOT NULL PRIMARY KEY AUTO_INCREMENT," +
		"`Identifier` VARCHAR(64) NOT NULL," +
		"`Baseline`   VARCHAR(32) NOT NULL," +
		"`Mode`       VARCHAR(8) NOT NULL," +
		"`Series`     VARCHAR(64)," +
		"`RowIdx`     INTEGER," +
		"`ColIdx`     INTEGER," +
		"`X`          DOUBLE," +
		"`Y`          DOUBLE," +
		"`Value`      DOUBLE," +
		"`Masked`     BOOLEAN," +
		"INDEX (`Identifier`)" +
		");"
)

// MySQL stores samples in the plotuv table of DB.
type MySQL struct {
	DB *sql.DB
}

func (m *MySQL) Write(ctx context.Context, samples <-chan Sample) error {
	if _, err := m.DB.ExecContext(ctx, mysqlCreateTableTmpl); err != nil {
		return fmt.Errorf("unable to create table: %w", err)
	}
	return insertSamples(ctx, m.DB, samples)
}
