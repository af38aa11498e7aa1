package gridstore

import (
	"sort"

	"github.com/coder/hnsw"
)

// proximityIndex orders tile coordinates by distance to a proximity point
// using an HNSW graph, so a persistent Store backend can break ties among
// same-relev candidates by actual tile distance. applyProximity builds one
// per query and still computes the distance of every candidate. This is purely a performance aid internal to store backends
// (spec.md §4.7/SPEC_FULL.md §4.7); it must never change the
// (relev desc, scoredist desc) contract Store.GetMatching exposes.
type proximityIndex struct {
	graph *hnsw.Graph[uint64]
}

// newProximityIndex builds an index over tile coordinates, keyed by
// (x<<16)|y so coder/hnsw's uint64 key type can address any (x,y) pair a
// uint16 tile grid can hold.
func newProximityIndex() *proximityIndex {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.EuclideanDistance
	return &proximityIndex{graph: g}
}

func tileKey(x, y uint16) uint64 {
	return uint64(x)<<16 | uint64(y)
}

// Add inserts a tile coordinate into the index.
func (p *proximityIndex) Add(x, y uint16) {
	p.graph.Add(hnsw.MakeNode(tileKey(x, y), []float32{float32(x), float32(y)}))
}

// Nearest returns the k tile coordinates closest to (x, y), nearest first.
func (p *proximityIndex) Nearest(x, y uint16, k int) []uint64 {
	neighbors := p.graph.Search([]float32{float32(x), float32(y)}, k)
	out := make([]uint64, len(neighbors))
	for i, n := range neighbors {
		out[i] = n.Key
	}
	return out
}

// Distance returns the tile distance between two coordinates, the same
// metric the graph was built with.
func (p *proximityIndex) Distance(ax, ay, bx, by uint16) float32 {
	return p.graph.Distance([]float32{float32(ax), float32(ay)}, []float32{float32(bx), float32(by)})
}

// computeScoredist blends a relev with a tile distance to a proximity
// point into the scoredist a Store must produce when match_opts.proximity
// is set. Closer candidates score higher at the same relev; this never
// reorders distinct relev values, only breaks ties within one.
func computeScoredist(relev, distance float64) float64 {
	return relev / (1 + distance)
}

// applyProximity recomputes Distance and Scoredist for every entry against
// prox, using a proximityIndex built over their tile coordinates, then
// returns entries re-sorted by (relev desc, scoredist desc). Store
// backends call this once per query when match_opts.proximity is set;
// without a proximity point, a store's precomputed distance/scoredist
// values (set at Insert time) stand as-is.
func applyProximity(entries []MatchEntry, prox *Proximity) []MatchEntry {
	if prox == nil || len(entries) == 0 {
		return entries
	}

	idx := newProximityIndex()
	for _, e := range entries {
		idx.Add(e.X, e.Y)
	}

	out := make([]MatchEntry, len(entries))
	for i, e := range entries {
		d := float64(idx.Distance(prox.X, prox.Y, e.X, e.Y))
		e.Distance = d
		e.Scoredist = computeScoredist(e.Relev, d)
		out[i] = e
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Relev != out[j].Relev {
			return out[i].Relev > out[j].Relev
		}
		return out[i].Scoredist > out[j].Scoredist
	})
	return out
}
