package excel

import (
	"context"

	"trgemu/domain/dataset"
)

// FileTabularAdapter serves event tables stored in CSV and Excel files
type FileTabularAdapter struct {
	config TableConfig
}

func NewFileTabularAdapter(config TableConfig) *FileTabularAdapter {
	return &FileTabularAdapter{config: config}
}

// Supports reports whether the location is a table file this adapter handles
func (a *FileTabularAdapter) Supports(location string) bool {
	return FileType(location) != ""
}

func (a *FileTabularAdapter) Open(ctx context.Context, location, table string) (*dataset.Dataset, error) {
	return NewDataReader(location).ReadTable(ctx, table)
}

func (a *FileTabularAdapter) Write(ctx context.Context, ds *dataset.Dataset, location, table string, columns []string) error {
	return NewTableWriter(location, a.config).WriteTable(ctx, ds, table, columns)
}
