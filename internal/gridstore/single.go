package gridstore

import (
	"context"
	"math"
	"sort"
)

// coalesceSingle materializes contexts for a one-phrase query: stream
// grids, deduplicate by feature id, prune by relevance/score distance,
// sort. Every context has exactly one entry (spec.md §3 invariant 1).
func coalesceSingle(ctx context.Context, sq PhrasematchSubquery, opts MatchOpts) ([]CoalesceContext, error) {
	grids, err := sq.Store.GetMatching(ctx, sq.MatchKey, opts)
	if err != nil {
		return nil, err
	}

	var contexts []CoalesceContext
	var maxRelev float64
	var lastID uint32
	var lastRelev, lastScoredist float64
	minScoredist := math.MaxFloat64
	featureCount := 0
	biggerMax := 2 * MaxContexts

	for {
		grid, ok := grids.Next()
		if !ok {
			break
		}

		entry := Lift(grid, sq, opts)
		mustFinite(entry.Relev)
		mustFinite(entry.Scoredist)

		// Same feature as the last one with no higher scoredist: drop it.
		if lastID == entry.ID && entry.Scoredist <= lastScoredist {
			continue
		}

		if featureCount > biggerMax {
			if entry.Scoredist < minScoredist {
				continue
			}
			if entry.Relev < lastRelev {
				// Grids are sorted by relevance, so anything lower from
				// here on is lower too.
				break
			}
		}

		if maxRelev-entry.Relev >= RelevanceWindow {
			break
		}
		if entry.Relev > maxRelev {
			maxRelev = entry.Relev
		}

		contexts = append(contexts, CoalesceContext{
			Mask:    entry.Mask,
			Relev:   entry.Relev,
			Entries: []CoalesceEntry{entry},
		})

		if lastID != entry.ID {
			featureCount++
		}
		if opts.Proximity == nil && featureCount > biggerMax {
			break
		}
		if entry.Scoredist < minScoredist {
			minScoredist = entry.Scoredist
		}
		lastID = entry.ID
		lastRelev = entry.Relev
		lastScoredist = entry.Scoredist
	}

	sort.SliceStable(contexts, func(i, j int) bool {
		return singleContextLess(contexts[i], contexts[j])
	})

	contexts = dedupByLeadID(contexts)
	if len(contexts) > MaxContexts {
		contexts = contexts[:MaxContexts]
	}
	return contexts, nil
}

// singleContextLess orders by (-relev, -scoredist, id, x, y), matching the
// sort key in spec.md §4.3 step 4.
func singleContextLess(a, b CoalesceContext) bool {
	ae, be := a.Entries[0], b.Entries[0]
	if a.Relev != b.Relev {
		return a.Relev > b.Relev
	}
	if ae.Scoredist != be.Scoredist {
		return ae.Scoredist > be.Scoredist
	}
	if ae.ID != be.ID {
		return ae.ID < be.ID
	}
	if ae.X != be.X {
		return ae.X < be.X
	}
	return ae.Y < be.Y
}

// dedupByLeadID keeps, for each distinct lead feature id, only the first
// context under the incoming sort order (i.e. the best one).
func dedupByLeadID(contexts []CoalesceContext) []CoalesceContext {
	seen := make(map[uint32]bool, len(contexts))
	out := contexts[:0]
	for _, c := range contexts {
		id := c.Entries[0].ID
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, c)
	}
	return out
}
