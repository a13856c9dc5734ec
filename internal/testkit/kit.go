package testkit

import (
	"context"
	"fmt"
	"sync"

	"trgemu/domain/calib"
	"trgemu/domain/core"
	"trgemu/domain/dataset"
	"trgemu/ports"

	"github.com/stretchr/testify/mock"
)

// TestKit bundles the fixtures most emulation tests need
type TestKit struct {
	Calibration *calib.Set
	Events      *dataset.Dataset
	Tabular     *MemoryTabular
}

// NewTestKit generates events with config, loads the fixture calibration and
// registers the events at InputLocation under table.
func NewTestKit(config EventGeneratorConfig, table string) (*TestKit, error) {
	set, err := FixtureCalibration()
	if err != nil {
		return nil, fmt.Errorf("fixture calibration: %w", err)
	}
	events, err := NewEventGenerator(config).Generate()
	if err != nil {
		return nil, fmt.Errorf("generate events: %w", err)
	}
	tab := NewMemoryTabular()
	tab.Put(InputLocation, table, events)
	return &TestKit{Calibration: set, Events: events, Tabular: tab}, nil
}

// InputLocation is where NewTestKit stores the generated events
const InputLocation = "mem://input"

// MemoryTabular is an in-memory TabularPort
type MemoryTabular struct {
	mu     sync.RWMutex
	tables map[string]*dataset.Dataset
	writes int
}

var _ ports.TabularPort = (*MemoryTabular)(nil)

func NewMemoryTabular() *MemoryTabular {
	return &MemoryTabular{tables: make(map[string]*dataset.Dataset)}
}

func key(location, table string) string { return location + "#" + table }

// Put stores ds without projection
func (m *MemoryTabular) Put(location, table string, ds *dataset.Dataset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[key(location, table)] = ds
}

// Get returns a stored table
func (m *MemoryTabular) Get(location, table string) (*dataset.Dataset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, ok := m.tables[key(location, table)]
	return ds, ok
}

// Writes counts successful Write calls
func (m *MemoryTabular) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *MemoryTabular) Open(ctx context.Context, location, table string) (*dataset.Dataset, error) {
	if ds, ok := m.Get(location, table); ok {
		return ds, nil
	}
	return nil, fmt.Errorf("%w: no table %s at %s", core.ErrConfiguration, table, location)
}

func (m *MemoryTabular) Write(ctx context.Context, ds *dataset.Dataset, location, table string, columns []string) error {
	projected, err := ds.Project(columns)
	if err != nil {
		return err
	}
	m.Put(location, table, projected)
	m.mu.Lock()
	m.writes++
	m.mu.Unlock()
	return nil
}

// MockRegressor is a testify mock of ports.Regressor
type MockRegressor struct {
	mock.Mock
}

func (m *MockRegressor) Features() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockRegressor) Predict(X [][]float64) ([]float64, error) {
	args := m.Called(X)
	if fn, ok := args.Get(0).(func([][]float64) []float64); ok {
		return fn(X), args.Error(1)
	}
	out, _ := args.Get(0).([]float64)
	return out, args.Error(1)
}

// MockClassifier is a testify mock of ports.Classifier
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Features() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockClassifier) PredictProba(X [][]float64) ([][]float64, error) {
	args := m.Called(X)
	if fn, ok := args.Get(0).(func([][]float64) [][]float64); ok {
		return fn(X), args.Error(1)
	}
	out, _ := args.Get(0).([][]float64)
	return out, args.Error(1)
}
