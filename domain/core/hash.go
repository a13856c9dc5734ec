package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough for log lines.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// PlanHash fingerprints an ordered directive plan.
type PlanHash Hash

func (h PlanHash) String() string { return Hash(h).String() }
func (h PlanHash) Short() string  { return Hash(h).Short() }

// ComputePlanHash hashes the ordered directive descriptions. Order matters:
// reordering stochastic directives changes physics results.
func ComputePlanHash(descriptions []string) PlanHash {
	var data strings.Builder
	for _, d := range descriptions {
		data.WriteString(d)
		data.WriteByte(0)
	}
	return PlanHash(NewHash([]byte(data.String())))
}
