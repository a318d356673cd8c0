package sqlstore

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Dialect holds the SQL differences between the supported databases.
type Dialect interface {
	// DriverName is the database/sql driver to open.
	DriverName() string
	// PrepareDSN adjusts a user supplied DSN for use by the store.
	PrepareDSN(dsn string) (string, error)
	// QuoteIdent quotes a table name.
	QuoteIdent(name string) string
	// CreateTableSQL creates the log table if it does not exist.
	CreateTableSQL(quotedTable string) string
}

// SQLite is the dialect for modernc.org/sqlite.
type SQLite struct{}

func (SQLite) DriverName() string { return "sqlite" }

func (SQLite) PrepareDSN(dsn string) (string, error) { return dsn, nil }

func (SQLite) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (SQLite) CreateTableSQL(quotedTable string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL,
    executed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, quotedTable)
}

// MySQL is the dialect for github.com/go-sql-driver/mysql.
type MySQL struct{}

func (MySQL) DriverName() string { return "mysql" }

// PrepareDSN enables multi statement execution so that migration scripts can
// hold more than one statement.
func (MySQL) PrepareDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	cfg.MultiStatements = true
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (MySQL) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQL) CreateTableSQL(quotedTable string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s ("+
		"id          int not null auto_increment, "+
		"name        varchar(255) not null, "+
		"executed_at datetime default CURRENT_TIMESTAMP not null, "+
		"primary key (id)"+
		") default charset utf8mb4", quotedTable)
}

// DialectFor returns the dialect registered under driver.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "mysql", "mariadb":
		return MySQL{}, nil
	}
	return nil, fmt.Errorf("unsupported sql driver: %s", driver)
}
