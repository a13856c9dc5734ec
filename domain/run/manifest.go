package run

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"trgemu/domain/core"
)

// CodeVersion is recorded in every fingerprint. Bump it when a response
// model or threshold changes the output of an unchanged plan.
const CodeVersion = "1.0.0"

// Fingerprint identifies everything that determines an emulation output.
// Two runs with the same fingerprint produce identical tables.
type Fingerprint struct {
	PlanHash    core.PlanHash `json:"plan_hash"`
	Seed        uint64        `json:"seed"`
	Input       string        `json:"input"`
	Table       string        `json:"table"`
	CodeVersion string        `json:"code_version"`
	Fingerprint core.Hash     `json:"fingerprint"` // Hash of all above
}

// NewFingerprint creates a fingerprint from determinism parameters
func NewFingerprint(planHash core.PlanHash, seed uint64, input, table, codeVersion string) Fingerprint {
	return Fingerprint{
		PlanHash:    planHash,
		Seed:        seed,
		Input:       input,
		Table:       table,
		CodeVersion: codeVersion,
		Fingerprint: computeFingerprint(planHash, seed, input, table, codeVersion),
	}
}

func computeFingerprint(planHash core.PlanHash, seed uint64, input, table, codeVersion string) core.Hash {
	data := fmt.Sprintf("plan:%s|seed:%d|input:%s|table:%s|code:%s", planHash, seed, input, table, codeVersion)
	return core.NewHash([]byte(data))
}

// Manifest records one emulation run: what was asked, what determined the
// result and what was written.
type Manifest struct {
	RunID       core.RunID     `json:"run_id"`
	Line        string         `json:"line"`
	Year        int            `json:"year"`
	BMeson      string         `json:"bmeson"`
	Debug       bool           `json:"debug"`
	Output      string         `json:"output"`
	Columns     []string       `json:"columns"`
	Directives  []string       `json:"directives"`
	InputRows   int            `json:"input_rows"`
	OutputRows  int            `json:"output_rows"`
	Duration    time.Duration  `json:"duration_ns"`
	Fingerprint Fingerprint    `json:"fingerprint"`
	CreatedAt   core.Timestamp `json:"created_at"`
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewValidationError("run_manifest", "run_id cannot be empty")
	}
	if m.Line == "" {
		return core.NewValidationError("run_manifest", "line cannot be empty")
	}
	if m.Fingerprint.PlanHash == "" {
		return core.NewValidationError("run_manifest", "plan_hash cannot be empty")
	}
	if m.Fingerprint.Fingerprint.IsEmpty() {
		return core.NewValidationError("run_manifest", "fingerprint cannot be empty")
	}
	if len(m.Columns) == 0 {
		return core.NewValidationError("run_manifest", "no output columns")
	}
	return nil
}

// Write stores the manifest as indented JSON
func (m *Manifest) Write(path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Read loads and validates a manifest written by Write
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("malformed manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
