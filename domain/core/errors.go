package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors
	ErrConfiguration       = errors.New("configuration error")
	ErrMissingCalibration  = fmt.Errorf("%w: missing calibration table", ErrConfiguration)
	ErrMissingRegionPair   = fmt.Errorf("%w: no histogram for region pair", ErrConfiguration)
	ErrMissingColumn       = fmt.Errorf("%w: missing required input column", ErrConfiguration)
	ErrFeatureMismatch     = fmt.Errorf("%w: oracle feature order mismatch", ErrConfiguration)
	ErrUnsupportedPeriod   = fmt.Errorf("%w: run period not recognized", ErrConfiguration)
	ErrUnsupportedLocation = fmt.Errorf("%w: unsupported table location", ErrConfiguration)

	// Evaluation errors
	ErrExpressionEvaluation = errors.New("expression evaluation error")
	ErrUnknownColumn        = fmt.Errorf("%w: unknown column", ErrExpressionEvaluation)
	ErrTypeMismatch         = fmt.Errorf("%w: type mismatch", ErrExpressionEvaluation)

	// Data errors
	ErrShapeMismatch = errors.New("column length mismatch")
)

// Error constructors with context
func NewUnknownColumnError(column string) error {
	return fmt.Errorf("%w %q", ErrUnknownColumn, column)
}

// NewExpressionError attributes err to a directive. Causes already classified
// as evaluation or configuration errors keep their class.
func NewExpressionError(directive string, err error) error {
	if errors.Is(err, ErrExpressionEvaluation) || errors.Is(err, ErrConfiguration) {
		return fmt.Errorf("directive %s: %w", directive, err)
	}
	return fmt.Errorf("%w in directive %s: %w", ErrExpressionEvaluation, directive, err)
}

func NewMissingColumnError(column string) error {
	return fmt.Errorf("%w %q", ErrMissingColumn, column)
}

func NewConfigurationError(reason string) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, reason)
}

func NewPeriodError(year int) error {
	return fmt.Errorf("%w: %d", ErrUnsupportedPeriod, year)
}

func NewRegionPairError(regionA, regionB int) error {
	return fmt.Errorf("%w (%d, %d)", ErrMissingRegionPair, regionA, regionB)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// Error checking helpers
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsEvaluationError(err error) bool {
	return errors.Is(err, ErrExpressionEvaluation)
}
