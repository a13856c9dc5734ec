package ports

import (
	"context"

	"trgemu/domain/dataset"
)

// TabularPort reads and writes event tables. A location is a file path or
// a database URL; table names a tree, sheet or SQL table inside it.
type TabularPort interface {
	// Open loads every column of the table
	Open(ctx context.Context, location, table string) (*dataset.Dataset, error)

	// Write stores the named columns of ds, in order, replacing any
	// existing table of the same name
	Write(ctx context.Context, ds *dataset.Dataset, location, table string, columns []string) error
}
