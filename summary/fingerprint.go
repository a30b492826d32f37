package summary

import (
	"bytes"

	"github.com/zeebo/xxh3"
	"golang.org/x/tools/go/ssa"
)

// Fingerprint hashes the SSA listing of fn. Summaries carry the fingerprint
// of the function they were computed from so a caller can detect that the
// program changed underneath a cached summary.
func Fingerprint(fn *ssa.Function) uint64 {
	if fn == nil {
		return 0
	}
	var buf bytes.Buffer
	ssa.WriteFunction(&buf, fn)
	return xxh3.Hash(buf.Bytes())
}

// Stale returns true if fn no longer matches the fingerprint of s.
func (s *Summary) Stale(fn *ssa.Function) bool {
	return Fingerprint(fn) != s.fingerprint
}
