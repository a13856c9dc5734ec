package calibration

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"trgemu/domain/calib"
	"trgemu/domain/core"

	"github.com/klauspost/compress/zstd"
)

// Load reads a calibration document from a .json or .json.zst file and
// validates every table it contains.
func Load(path string) (*calib.Set, error) {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMissingCalibration, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	set, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("calibration %s: %w", path, err)
	}
	log.Printf("[Calibration] Loaded %s (%s) in %.2fms", path, describe(set), float64(time.Since(start).Nanoseconds())/1e6)
	return set, nil
}

// Decode parses and initialises a calibration document
func Decode(r io.Reader) (*calib.Set, error) {
	var set calib.Set
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&set); err != nil {
		return nil, fmt.Errorf("%w: malformed calibration document: %v", core.ErrConfiguration, err)
	}
	if err := set.Init(); err != nil {
		return nil, err
	}
	return &set, nil
}

// Save writes set to path, compressing when the name ends in .zst
func Save(path string, set *calib.Set) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	if strings.HasSuffix(strings.ToLower(path), ".zst") {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := enc.Close(); err == nil {
				err = cerr
			}
		}()
		w = enc
	}

	out := json.NewEncoder(w)
	out.SetIndent("", "  ")
	return out.Encode(set)
}

func describe(set *calib.Set) string {
	var parts []string
	if set.Response != nil {
		parts = append(parts, fmt.Sprintf("response %dx%d", set.Response.P.Bins, set.Response.PT.Bins))
	}
	if set.Shared != nil {
		parts = append(parts, fmt.Sprintf("shared %d pairs", len(set.Shared.Pairs)))
	}
	if set.Missing != nil {
		parts = append(parts, fmt.Sprintf("missing %d pairs", len(set.Missing.Pairs)))
	}
	if set.GlobalTis != nil {
		parts = append(parts, fmt.Sprintf("tis %d maps", len(set.GlobalTis.Hists)))
	}
	if len(parts) == 0 {
		return "empty"
	}
	return strings.Join(parts, ", ")
}
