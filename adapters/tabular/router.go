package tabular

import (
	"context"
	"fmt"
	"log"
	"time"

	"trgemu/adapters/db"
	"trgemu/adapters/excel"
	"trgemu/domain/core"
	"trgemu/domain/dataset"
	"trgemu/ports"
)

// Backend is a TabularPort that recognises its own locations
type Backend interface {
	ports.TabularPort
	Supports(location string) bool
}

// Router dispatches table I/O to the first backend supporting the location
type Router struct {
	backends []Backend
}

func NewRouter(backends ...Backend) *Router {
	return &Router{backends: backends}
}

// NewDefaultRouter serves CSV, zstd CSV, xlsx and SQL locations
func NewDefaultRouter() *Router {
	return NewRouter(
		excel.NewFileTabularAdapter(excel.DefaultTableConfig()),
		db.NewTableStore(),
	)
}

var _ ports.TabularPort = (*Router)(nil)

func (r *Router) backend(location string) (Backend, error) {
	for _, b := range r.backends {
		if b.Supports(location) {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedLocation, location)
}

func (r *Router) Open(ctx context.Context, location, table string) (*dataset.Dataset, error) {
	b, err := r.backend(location)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	ds, err := b.Open(ctx, location, table)
	if err != nil {
		return nil, err
	}
	log.Printf("[Tabular] Opened %s:%s in %v", location, table, time.Since(start))
	return ds, nil
}

func (r *Router) Write(ctx context.Context, ds *dataset.Dataset, location, table string, columns []string) error {
	b, err := r.backend(location)
	if err != nil {
		return err
	}
	if err := ds.RequireColumns(columns...); err != nil {
		return err
	}
	start := time.Now()
	if err := b.Write(ctx, ds, location, table, columns); err != nil {
		return err
	}
	log.Printf("[Tabular] Wrote %d columns to %s:%s in %v", len(columns), location, table, time.Since(start))
	return nil
}
