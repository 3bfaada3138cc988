package sqlstore

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/weather-forecast-service/internal/config"
	mysqldriver "github.com/go-sql-driver/mysql"
)

// dialect captures the differences between the supported SQL databases.
type dialect struct {
	name       string // database/sql driver name
	migrations string // directory under migrations/
	numbered   bool   // $1 placeholders instead of ?
}

var (
	postgresDialect = dialect{name: "postgres", migrations: "migrations/postgres", numbered: true}
	mysqlDialect    = dialect{name: "mysql", migrations: "migrations/mysql"}
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case config.StorePostgres:
		return postgresDialect, nil
	case config.StoreMySQL:
		return mysqlDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// placeholder returns the bind marker for the n-th (1-based) argument.
func (d dialect) placeholder(n int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// rebind rewrites a query written with ? markers into the dialect's form.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalizeDSN adjusts a connection string so timestamps round-trip as
// time.Time in UTC. Postgres URLs are returned unchanged.
func (d dialect) normalizeDSN(dsn string) (string, error) {
	if d.numbered {
		return dsn, nil
	}
	cfg, err := mysqldriver.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.MultiStatements = true
	return cfg.FormatDSN(), nil
}
