package gridstore

import (
	"context"
	"sort"
)

// StoreEntryBuildingBlock maps one MatchKey to the grid entries a
// MemoryStore should serve for it. This is the Go analogue of
// carmen-core's test_utils StoreEntryBuildingBlock/create_store: the
// reference way tests and benchmarks build a Store without touching disk.
type StoreEntryBuildingBlock struct {
	MatchKey MatchKey
	Entries  []MatchEntry
}

// MemoryStore is an in-memory Store implementation. It applies bbox
// filtering and proximity scoring itself and keeps entries sorted by
// (relev desc, scoredist desc). Entries are keyed by MatchKey alone, so it
// does not filter by zoom: every opts.Zoom sees the same entries.
type MemoryStore struct {
	byKey map[MatchKey][]MatchEntry
}

// NewMemoryStore builds a MemoryStore from building blocks, matching
// create_store in carmen-core's test_utils.
func NewMemoryStore(blocks []StoreEntryBuildingBlock) *MemoryStore {
	s := &MemoryStore{byKey: make(map[MatchKey][]MatchEntry, len(blocks))}
	for _, b := range blocks {
		entries := append([]MatchEntry(nil), b.Entries...)
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Relev != entries[j].Relev {
				return entries[i].Relev > entries[j].Relev
			}
			return entries[i].Scoredist > entries[j].Scoredist
		})
		s.byKey[b.MatchKey] = entries
	}
	return s
}

// GetMatching implements Store.
func (s *MemoryStore) GetMatching(_ context.Context, key MatchKey, opts MatchOpts) (MatchIterator, error) {
	entries := s.byKey[key]
	if opts.BBox == nil {
		return NewSliceIterator(applyProximity(entries, opts.Proximity)), nil
	}

	coords := make([]Coord, len(entries))
	for i, e := range entries {
		coords[i] = Coord{Coord: interleaveMorton(e.X, e.Y)}
	}
	// BBoxFilter requires ascending Coord order; entries here are sorted
	// by relevance, not by coordinate, so filter by value instead of
	// reusing BBoxFilter's binary search (which assumes a Morton-sorted
	// vector, the layout a real on-disk grid index keeps per spec.md
	// §4.1 — a MemoryStore has no such layout to exploit).
	min := interleaveMorton(opts.BBox[0], opts.BBox[1])
	max := interleaveMorton(opts.BBox[2], opts.BBox[3])
	filtered := entries[:0:0]
	for i, e := range entries {
		if coords[i].Coord >= min && coords[i].Coord <= max {
			filtered = append(filtered, e)
		}
	}
	return NewSliceIterator(applyProximity(filtered, opts.Proximity)), nil
}
