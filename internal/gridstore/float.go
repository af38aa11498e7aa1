package gridstore

import "math"

// mustFinite enforces the "all floats are finite" invariant (spec.md §3
// invariant 5). Sort keys built from relev/scoredist must be totally
// ordered; a NaN sneaking in from a misbehaving store would silently
// break every tie-breaker below it, so this fails loudly at the boundary
// instead.
func mustFinite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		panic("gridstore: non-finite float in coalesce data")
	}
	return f
}
