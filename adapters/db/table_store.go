package db

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"trgemu/domain/core"
	"trgemu/domain/dataset"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// TableStore keeps event tables in SQLite files or a PostgreSQL database
type TableStore struct {
	batchSize int
}

func NewTableStore() *TableStore {
	return &TableStore{batchSize: 1000}
}

// Driver returns the database/sql driver for a location, or "" when the
// location is not a database.
func Driver(location string) string {
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".sqlite3"):
		return "sqlite3"
	}
	return ""
}

// Supports reports whether the location is a database this store handles
func (s *TableStore) Supports(location string) bool {
	return Driver(location) != ""
}

// TableName maps a tree path such as "TupleB0/DecayTree" to a SQL table name.
func TableName(table string) string {
	if table == "" {
		return "events"
	}
	return strings.ReplaceAll(table, "/", "_")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func connect(ctx context.Context, location string) (*sqlx.DB, error) {
	driver := Driver(location)
	if driver == "" {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedLocation, location)
	}
	db, err := sqlx.ConnectContext(ctx, driver, location)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	return db, nil
}

// Open loads every column of the table
func (s *TableStore) Open(ctx context.Context, location, table string) (*dataset.Dataset, error) {
	start := time.Now()
	db, err := connect(ctx, location)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	name := TableName(table)
	rows, err := db.QueryxContext(ctx, "SELECT * FROM "+quoteIdent(name))
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", name, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	values := make([][]dataset.Value, len(names))
	for rows.Next() {
		record, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan table %s: %w", name, err)
		}
		for j, raw := range record {
			values[j] = append(values[j], toValue(raw))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	columns := make([]*dataset.Column, len(names))
	for j, col := range names {
		fillNulls(values[j], declaredKind(types[j].DatabaseTypeName()))
		b := dataset.NewColumnBuilder(col, len(values[j]))
		for i, v := range values[j] {
			b.Set(i, v)
		}
		if columns[j], err = b.Build(); err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
	}

	ds, err := dataset.New(columns...)
	if err != nil {
		return nil, err
	}
	log.Printf("[TableStore] Loaded %s from %s (%d columns, %d rows) in %.2fms",
		name, Driver(location), ds.NumColumns(), ds.NumRows(), float64(time.Since(start).Nanoseconds())/1e6)
	return ds, nil
}

// toValue converts one scanned cell. NULL yields an invalid value that
// fillNulls resolves once the column kind is known.
func toValue(raw interface{}) dataset.Value {
	switch v := raw.(type) {
	case nil:
		return dataset.Value{}
	case []byte:
		return dataset.String(string(v))
	case time.Time:
		return dataset.String(v.Format(time.RFC3339Nano))
	}
	if v, ok := dataset.FromAny(raw); ok {
		return v
	}
	return dataset.String(fmt.Sprint(raw))
}

// declaredKind maps a driver type name such as "TEXT", "VARCHAR(32)",
// "BIGINT" or "DOUBLE PRECISION" to a column kind.
func declaredKind(typeName string) dataset.Kind {
	t := strings.ToUpper(typeName)
	switch {
	case strings.Contains(t, "BOOL"):
		return dataset.KindBool
	case strings.Contains(t, "INT"):
		return dataset.KindInt
	case strings.Contains(t, "CHAR"), strings.Contains(t, "TEXT"), strings.Contains(t, "CLOB"),
		strings.Contains(t, "UUID"), strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return dataset.KindString
	}
	return dataset.KindFloat
}

// fillNulls replaces NULL cells in place. The kind of the first non-NULL
// cell wins over the declared kind. NULL text becomes "" and NULL bool
// false; an integer column holding NULLs is widened to float with NaN.
func fillNulls(values []dataset.Value, declared dataset.Kind) {
	kind, nulls := declared, 0
	found := false
	for _, v := range values {
		if !v.IsValid() {
			nulls++
		} else if !found {
			kind, found = v.Kind(), true
		}
	}
	if nulls == 0 {
		return
	}
	for i, v := range values {
		switch {
		case v.IsValid() && kind == dataset.KindInt:
			values[i] = dataset.Float(v.AsFloat())
		case v.IsValid():
		case kind == dataset.KindString:
			values[i] = dataset.String("")
		case kind == dataset.KindBool:
			values[i] = dataset.Bool(false)
		default:
			values[i] = dataset.Float(math.NaN())
		}
	}
}

func sqlType(k dataset.Kind) string {
	switch k {
	case dataset.KindInt:
		return "BIGINT"
	case dataset.KindBool:
		return "BOOLEAN"
	case dataset.KindString:
		return "TEXT"
	}
	return "DOUBLE PRECISION"
}

// Write replaces the table with the named columns of ds, in one transaction
func (s *TableStore) Write(ctx context.Context, ds *dataset.Dataset, location, table string, columns []string) error {
	start := time.Now()
	projected, err := ds.Project(columns)
	if err != nil {
		return err
	}

	db, err := connect(ctx, location)
	if err != nil {
		return err
	}
	defer db.Close()

	name := quoteIdent(TableName(table))
	cols := make([]*dataset.Column, projected.NumColumns())
	defs := make([]string, len(cols))
	idents := make([]string, len(cols))
	marks := make([]string, len(cols))
	for j, col := range projected.Names() {
		cols[j], _ = projected.Column(col)
		idents[j] = quoteIdent(col)
		defs[j] = idents[j] + " " + sqlType(cols[j].Kind())
		marks[j] = "?"
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE "+name+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	insert := tx.Rebind("INSERT INTO " + name + " (" + strings.Join(idents, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")")
	stmt, err := tx.PreparexContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]interface{}, len(cols))
	for i := 0; i < projected.NumRows(); i++ {
		if i%s.batchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j, c := range cols {
			args[j] = sqlValue(c, i)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[TableStore] Wrote %s (%d rows) in %.2fms", name, projected.NumRows(), float64(time.Since(start).Nanoseconds())/1e6)
	return nil
}

func sqlValue(c *dataset.Column, i int) interface{} {
	switch c.Kind() {
	case dataset.KindInt:
		return c.Int(i)
	case dataset.KindBool:
		return c.Bool(i)
	case dataset.KindString:
		return c.String(i)
	}
	v := c.Float(i)
	if math.IsNaN(v) {
		return nil
	}
	return v
}
