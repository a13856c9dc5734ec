package run

import (
	"os"
	"path/filepath"
	"testing"

	"trgemu/domain/core"
)

func TestFingerprint_Deterministic(t *testing.T) {
	planHash := core.ComputePlanHash([]string{"define x = a [retain]"})

	fp1 := NewFingerprint(planHash, 42, "mc.csv", "DecayTree", CodeVersion)
	fp2 := NewFingerprint(planHash, 42, "mc.csv", "DecayTree", CodeVersion)

	if fp1.Fingerprint != fp2.Fingerprint {
		t.Errorf("Fingerprints not identical: %s vs %s", fp1.Fingerprint, fp2.Fingerprint)
	}
	if fp1.PlanHash != planHash {
		t.Errorf("PlanHash mismatch: %s vs %s", fp1.PlanHash, planHash)
	}
	if fp1.Seed != 42 {
		t.Errorf("Seed mismatch: %d", fp1.Seed)
	}
}

func TestFingerprint_Unique(t *testing.T) {
	planHash := core.ComputePlanHash([]string{"define x = a [retain]"})
	base := NewFingerprint(planHash, 42, "mc.csv", "DecayTree", CodeVersion)

	testCases := []struct {
		name string
		fp   Fingerprint
	}{
		{"different plan", NewFingerprint(core.ComputePlanHash([]string{"filter a > 0"}), 42, "mc.csv", "DecayTree", CodeVersion)},
		{"different seed", NewFingerprint(planHash, 43, "mc.csv", "DecayTree", CodeVersion)},
		{"different input", NewFingerprint(planHash, 42, "data.csv", "DecayTree", CodeVersion)},
		{"different table", NewFingerprint(planHash, 42, "mc.csv", "Other", CodeVersion)},
		{"different code", NewFingerprint(planHash, 42, "mc.csv", "DecayTree", "0.9.0")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.fp.Fingerprint == base.Fingerprint {
				t.Errorf("Fingerprint should be different for %s", tc.name)
			}
		})
	}
}

func TestManifest_WriteRead(t *testing.T) {
	m := &Manifest{
		RunID:       core.NewRunID(),
		Line:        "hlt1",
		Year:        2016,
		BMeson:      "b0",
		Output:      "emu.csv",
		Columns:     []string{"pass_gec", "runNumber", "eventNumber"},
		InputRows:   10,
		OutputRows:  10,
		Fingerprint: NewFingerprint(core.ComputePlanHash([]string{"p"}), 7, "mc.csv", "T", CodeVersion),
		CreatedAt:   core.Now(),
	}

	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := m.Write(path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.RunID != m.RunID {
		t.Errorf("RunID mismatch: %s vs %s", got.RunID, m.RunID)
	}
	if got.Fingerprint != m.Fingerprint {
		t.Errorf("Fingerprint mismatch: %+v vs %+v", got.Fingerprint, m.Fingerprint)
	}
	if !got.CreatedAt.Time().Equal(m.CreatedAt.Time()) {
		t.Errorf("CreatedAt mismatch: %v vs %v", got.CreatedAt.Time(), m.CreatedAt.Time())
	}
}

func TestManifest_Validate(t *testing.T) {
	m := &Manifest{Line: "hlt1"}
	if err := m.Validate(); err == nil {
		t.Error("Expected error for manifest without run ID")
	}
	if err := m.Write(filepath.Join(t.TempDir(), "m.json")); err == nil {
		t.Error("Expected Write to reject an invalid manifest")
	}
}

func TestRead_RejectsIncompleteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	if err := os.WriteFile(path, []byte(`{"line":"hlt1"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Error("Expected Read to reject a manifest without run ID")
	}
}
