package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/BartekS5/archimport/pkg/database"
)

// dialect captures the SQL differences between the supported databases.
type dialect string

const (
	dialectSQLServer dialect = "sqlserver"
	dialectMySQL     dialect = "mysql"
	dialectPostgres  dialect = "postgres"
	dialectSQLite    dialect = "sqlite"
)

func dialectFor(kind string) (dialect, error) {
	driver, err := database.DriverName(strings.ToLower(strings.TrimSpace(kind)))
	if err != nil {
		return "", err
	}
	switch driver {
	case "sqlserver":
		return dialectSQLServer, nil
	case "mysql":
		return dialectMySQL, nil
	case "pgx":
		return dialectPostgres, nil
	default:
		return dialectSQLite, nil
	}
}

// ph returns the n-th (1-based) bind placeholder.
func (d dialect) ph(n int) string {
	switch d {
	case dialectSQLServer:
		return fmt.Sprintf("@p%d", n)
	case dialectPostgres:
		return fmt.Sprintf("$%d", n)
	default:
		return "?"
	}
}

func (d dialect) placeholders(from, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.ph(from + i)
	}
	return strings.Join(parts, ", ")
}

func (d dialect) idColumn() string {
	switch d {
	case dialectSQLServer:
		return "id BIGINT IDENTITY(1,1) PRIMARY KEY"
	case dialectMySQL:
		return "id BIGINT AUTO_INCREMENT PRIMARY KEY"
	case dialectPostgres:
		return "id BIGSERIAL PRIMARY KEY"
	default:
		return "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

func (d dialect) text() string {
	if d == dialectSQLServer {
		return "NVARCHAR(MAX)"
	}
	return "TEXT"
}

func (d dialect) varchar(n int) string {
	if d == dialectSQLServer {
		return fmt.Sprintf("NVARCHAR(%d)", n)
	}
	return fmt.Sprintf("VARCHAR(%d)", n)
}

func (d dialect) createTable(name string, columns ...string) string {
	body := strings.Join(columns, ",\n  ")
	if d == dialectSQLServer {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (\n  %s\n)", name, name, body)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", name, body)
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insert writes one row and returns its generated id.
func (d dialect) insert(ctx context.Context, q querier, table string, cols []string, args []any) (int64, error) {
	list := strings.Join(cols, ", ")
	values := d.placeholders(1, len(cols))

	var id int64
	switch d {
	case dialectSQLServer:
		query := fmt.Sprintf("INSERT INTO %s (%s) OUTPUT INSERTED.id VALUES (%s)", table, list, values)
		if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
	case dialectPostgres, dialectSQLite:
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id", table, list, values)
		if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
	default:
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, list, values)
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, err
		}
	}
	return id, nil
}
