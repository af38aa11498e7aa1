// Package gridstore implements the coalesce engine of a tiled geocoder's
// grid-store search layer. It fuses a stack of per-token phrase matches,
// each resolved independently against an inverted index over map tiles at
// some zoom level, into a ranked set of contexts: compatible combinations
// of tile cells from different indexes that together cover a query.
package gridstore

import "context"

// Tunable knobs. The coalesce core never reads these from the environment
// or a config file itself. internal/config loads values with the same
// names, but nothing in this module copies a loaded Config into these
// package vars, so the CLI runs with the defaults below; tests override
// them by assignment. Library callers that embed gridstore directly may leave them at their
// defaults or set them once up front; mutating them concurrently with an
// in-flight Coalesce call is not supported.
var (
	// MaxContexts bounds the number of contexts a single Coalesce call
	// returns.
	MaxContexts = 40

	// RelevanceWindow is the tail-pruning threshold: any context whose
	// relev is this far or further below the best relev seen is dropped.
	RelevanceWindow = 0.25

	// MultiGridLimit caps the number of grids pulled per subquery during
	// multi-phrase coalescing.
	MultiGridLimit = 100_000
)

// MatchKey identifies the phrase a subquery resolves against within its
// store. It is opaque to the coalesce core.
type MatchKey string

// GridEntry identifies one matched feature at one tile coordinate.
// Relev is a precomputed relevance score in [0,1]. Score carries whatever
// opaque scoring metadata the backing store wants to pass through; the
// coalesce core never reads it.
type GridEntry struct {
	ID    uint32
	X     uint16
	Y     uint16
	Relev float64
	Score float64
}

// MatchEntry is a GridEntry enriched with proximity/relevance metadata
// computed by the store. MatchEntry values are produced lazily by a Store
// and must already be sorted by descending Relev, then descending
// Scoredist.
type MatchEntry struct {
	GridEntry
	MatchesLanguage bool
	Distance        float64
	Scoredist       float64
}

// Proximity is a tile-coordinate point search results are ranked against.
type Proximity struct {
	X, Y uint16
	Zoom uint16
}

// BBox is an inclusive tile-coordinate bounding box [xmin, ymin, xmax, ymax].
type BBox [4]uint16

// MatchOpts configures a single store lookup.
type MatchOpts struct {
	Zoom      uint16
	Proximity *Proximity
	BBox      *BBox
}

// AdjustToZoom returns a copy of opts with Proximity and BBox rescaled by
// 2^(z - opts.Zoom): shifted left when zooming in (z > opts.Zoom), right
// when zooming out (z < opts.Zoom). It is the identity when z == opts.Zoom.
func (o MatchOpts) AdjustToZoom(z uint16) MatchOpts {
	if z == o.Zoom {
		return o
	}
	out := o
	out.Zoom = z

	shift := func(v uint16) uint16 {
		if z >= o.Zoom {
			return v << (z - o.Zoom)
		}
		return v >> (o.Zoom - z)
	}

	if o.Proximity != nil {
		p := *o.Proximity
		p.X = shift(p.X)
		p.Y = shift(p.Y)
		p.Zoom = z
		out.Proximity = &p
	}
	if o.BBox != nil {
		b := *o.BBox
		b[0], b[1] = shift(b[0]), shift(b[1])
		b[2], b[3] = shift(b[2]), shift(b[3])
		out.BBox = &b
	}
	return out
}

// PhrasematchSubquery is one phrase's lookup against one index at a fixed
// zoom, with a weight and a token mask. It is immutable during a Coalesce
// call.
type PhrasematchSubquery struct {
	Store    Store
	Weight   float64
	Idx      uint16
	Zoom     uint16
	Mask     uint32
	MatchKey MatchKey
}

// CoalesceEntry is one matched tile cell from one index, lifted with its
// subquery's metadata. TmpID packs Idx into the top 7 bits and the feature
// ID into the low 25, so Idx must be < 128 and GridEntry.ID must be <
// 2^25 (enforced by Lift, which panics otherwise: these are programmer
// errors, not recoverable conditions).
type CoalesceEntry struct {
	GridEntry
	MatchesLanguage bool
	Idx             uint16
	Mask            uint32
	Distance        float64
	Scoredist       float64
	TmpID           uint32
}

// CoalesceContext is one candidate answer: an ordered, non-empty sequence
// of entries whose masks are pairwise disjoint, plus the aggregate mask and
// relev. The lead entry is Entries[0]; in a multi-phrase result it is the
// deepest-zoom (most specific) entry of the context.
type CoalesceContext struct {
	Entries []CoalesceEntry
	Mask    uint32
	Relev   float64
}

// MatchIterator is a pull-based cursor over a Store's matching grid
// entries, already sorted by descending Relev then descending Scoredist.
// Calling Next after it has returned false is undefined.
type MatchIterator interface {
	// Next advances the cursor and reports whether a value is available.
	Next() (MatchEntry, bool)
}

// Store is the persistent grid store a PhrasematchSubquery reads from. It
// is borrowed immutably for the duration of one Coalesce call and must be
// safe for concurrent readers, since independent Coalesce calls over
// disjoint stacks may run concurrently.
type Store interface {
	// GetMatching returns a lazy, finite sequence of MatchEntry for key,
	// respecting opts.BBox and opts.Proximity internally. Failure is
	// reported once, at call time; the returned iterator itself does not
	// fail.
	GetMatching(ctx context.Context, key MatchKey, opts MatchOpts) (MatchIterator, error)
}

// sliceIterator adapts a pre-materialized, already-sorted slice of
// MatchEntry to MatchIterator. Store backends that can't stream lazily
// (e.g. a single SQL query already returning a full result set) use this.
type sliceIterator struct {
	entries []MatchEntry
	pos     int
}

// NewSliceIterator returns a MatchIterator over a pre-sorted slice.
func NewSliceIterator(entries []MatchEntry) MatchIterator {
	return &sliceIterator{entries: entries}
}

func (it *sliceIterator) Next() (MatchEntry, bool) {
	if it.pos >= len(it.entries) {
		return MatchEntry{}, false
	}
	e := it.entries[it.pos]
	it.pos++
	return e, true
}
