package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"trgemu/internal/errors"
)

// Config represents the complete run configuration
type Config struct {
	Run         RunConfig
	Calibration CalibrationConfig
	Oracle      OracleConfig
	Execution   ExecutionConfig
	AdHoc       AdHocConfig
	Profiling   ProfilingConfig
}

// RunConfig selects the run period and the candidate layout of the input
type RunConfig struct {
	Year   int
	BMeson string
	Tree   string
	Debug  bool
}

// CalibrationConfig locates the calibration tables
type CalibrationConfig struct {
	Path string
}

// OracleConfig locates the trained energy-correction model
type OracleConfig struct {
	Path string
}

// ExecutionConfig controls row-batch parallelism and random streams
type ExecutionConfig struct {
	Seed      uint64
	Workers   int
	BatchSize int
}

// AdHocConfig holds the optional high-PT TIS efficiency correction
type AdHocConfig struct {
	Enabled     bool
	PTThreshold float64
	Scale       float64
}

// ProfilingConfig holds run summary settings
type ProfilingConfig struct {
	Enabled bool
	Columns []string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	execution, err := loadExecutionConfig()
	if err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	config := &Config{
		Run:         loadRunConfig(),
		Calibration: CalibrationConfig{Path: getEnvOrDefault("TRGEMU_CALIBRATION", "")},
		Oracle:      OracleConfig{Path: getEnvOrDefault("TRGEMU_ORACLE", "")},
		Execution:   execution,
		AdHoc:       loadAdHocConfig(),
		Profiling:   loadProfilingConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadRunConfig() RunConfig {
	return RunConfig{
		Year:   getEnvIntOrDefault("TRGEMU_YEAR", 2016),
		BMeson: getEnvOrDefault("TRGEMU_BMESON", "b0"),
		Tree:   getEnvOrDefault("TRGEMU_TREE", "TupleB0/DecayTree"),
		Debug:  getEnvBoolOrDefault("TRGEMU_DEBUG", false),
	}
}

func loadExecutionConfig() (ExecutionConfig, error) {
	seed, err := getEnvUint64OrDefault("TRGEMU_SEED", 7)
	if err != nil {
		return ExecutionConfig{}, errors.ConfigInvalid("TRGEMU_SEED must be a non-negative integer, got " + strconv.Quote(os.Getenv("TRGEMU_SEED")))
	}
	return ExecutionConfig{
		Seed:      seed,
		Workers:   getEnvIntOrDefault("TRGEMU_WORKERS", runtime.NumCPU()),
		BatchSize: getEnvIntOrDefault("TRGEMU_BATCH_SIZE", 4096),
	}, nil
}

func loadAdHocConfig() AdHocConfig {
	return AdHocConfig{
		Enabled:     getEnvBoolOrDefault("TRGEMU_ADHOC", false),
		PTThreshold: getEnvFloatOrDefault("TRGEMU_ADHOC_PT_THRESHOLD", 20000),
		Scale:       getEnvFloatOrDefault("TRGEMU_ADHOC_SCALE", 0.9),
	}
}

func loadProfilingConfig() ProfilingConfig {
	var columns []string
	if raw := getEnvOrDefault("TRGEMU_PROFILE_COLUMNS", ""); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				columns = append(columns, c)
			}
		}
	}
	return ProfilingConfig{
		Enabled: getEnvBoolOrDefault("TRGEMU_PROFILE", true),
		Columns: columns,
	}
}

// Validate checks the values that do not depend on a subcommand
func (c *Config) Validate() error {
	switch c.Run.Year {
	case 2015, 2016, 2017, 2018:
	default:
		return errors.ConfigInvalid("run period must be one of 2015-2018, got " + strconv.Itoa(c.Run.Year))
	}
	if c.Run.BMeson == "" {
		return errors.ConfigInvalid("B meson prefix is required")
	}
	if c.Execution.Workers < 1 {
		return errors.ConfigInvalid("workers must be at least 1")
	}
	if c.Execution.BatchSize < 1 {
		return errors.ConfigInvalid("batch size must be at least 1")
	}
	if c.AdHoc.Enabled && (c.AdHoc.Scale < 0 || c.AdHoc.PTThreshold < 0) {
		return errors.ConfigInvalid("ad-hoc correction needs a non-negative threshold and scale")
	}
	return nil
}

// RequireCalibration fails when no calibration path is configured
func (c *Config) RequireCalibration() error {
	if c.Calibration.Path == "" {
		return errors.ConfigInvalid("TRGEMU_CALIBRATION or --calibration is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvUint64OrDefault rejects malformed values instead of falling back,
// so a negative seed never wraps around.
func getEnvUint64OrDefault(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.ParseUint(strings.TrimSpace(value), 10, 64)
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
