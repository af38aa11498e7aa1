package gridstore

import (
	"context"
	"sort"
)

// zxy keys the per-(zoom,x,y) map of accumulated contexts used to join
// children to parents across zoom levels.
type zxy struct {
	zoom, x, y uint16
}

// coalesceMulti stacks grids from phrases at multiple zoom levels: it
// joins parents to children by tile containment, aggregates masks and
// relevance, and produces the final contexts. See spec.md §4.4 for the
// full algorithm; this is a direct, semantics-preserving port of
// coalesce_multi in carmen-core's coalesce.rs, including the
// open-question behaviors documented in DESIGN.md.
func coalesceMulti(ctx context.Context, stack []PhrasematchSubquery, opts MatchOpts) ([]CoalesceContext, error) {
	stack = append([]PhrasematchSubquery(nil), stack...)
	sort.SliceStable(stack, func(i, j int) bool {
		if stack[i].Zoom != stack[j].Zoom {
			return stack[i].Zoom < stack[j].Zoom
		}
		return stack[i].Idx < stack[j].Idx
	})

	coalesced := make(map[zxy][]CoalesceContext)
	var contexts []CoalesceContext
	var maxRelev float64

	for i, sq := range stack {
		compatibleZooms := compatibleZoomsFor(stack, sq)

		adjusted := opts.AdjustToZoom(sq.Zoom)
		grids, err := sq.Store.GetMatching(ctx, sq.MatchKey, adjusted)
		if err != nil {
			return nil, err
		}

		pulled := 0
		for pulled < MultiGridLimit {
			grid, ok := grids.Next()
			if !ok {
				break
			}
			pulled++

			entry := Lift(grid, sq, adjusted)
			mustFinite(entry.Relev)
			mustFinite(entry.Scoredist)

			tile := zxy{sq.Zoom, entry.X, entry.Y}
			contextMask := entry.Mask
			contextRelev := entry.Relev
			entries := []CoalesceEntry{entry}

			for _, zp := range compatibleZooms {
				scale := uint16(1) << (sq.Zoom - zp)
				parentTile := zxy{zp, entries[0].X / scale, entries[0].Y / scale}

				parents, ok := coalesced[parentTile]
				if !ok {
					continue
				}

				var prevMask uint32
				var prevRelev float64
				for _, parentCtx := range parents {
					for _, pe := range parentCtx.Entries {
						switch {
						case pe.Mask == prevMask && pe.Relev > prevRelev:
							// Same-mask parent beats the previous one:
							// replace it. This keeps upgrading as long
							// as successive parents with the same mask
							// have increasing relev (preserved verbatim
							// from the source; see DESIGN.md).
							entries[len(entries)-1] = pe
							contextRelev -= prevRelev
							contextRelev += pe.Relev
							prevMask, prevRelev = pe.Mask, pe.Relev
						case contextMask&pe.Mask == 0:
							// New non-overlapping parent contributes.
							entries = append(entries, pe)
							contextRelev += pe.Relev
							contextMask |= pe.Mask
							prevMask, prevRelev = pe.Mask, pe.Relev
						}
					}
				}
			}

			if contextRelev > maxRelev {
				maxRelev = contextRelev
			}

			switch {
			case i == len(stack)-1:
				if len(entries) == 1 {
					// No stacking: slightly penalize.
					contextRelev -= 0.01
				} else if entries[0].Mask > entries[1].Mask {
					// Lead mask above the next one's: slightly penalize.
					contextRelev -= 0.01
				}
				if maxRelev-contextRelev < RelevanceWindow {
					contexts = append(contexts, CoalesceContext{
						Entries: entries,
						Mask:    contextMask,
						Relev:   contextRelev,
					})
				}
			case i == 0 || len(entries) > 1:
				coalesced[tile] = append(coalesced[tile], CoalesceContext{
					Entries: entries,
					Mask:    contextMask,
					Relev:   contextRelev,
				})
			}
		}
	}

	for _, matched := range coalesced {
		for _, c := range matched {
			if maxRelev-c.Relev < RelevanceWindow {
				contexts = append(contexts, c)
			}
		}
	}

	sort.SliceStable(contexts, func(i, j int) bool {
		return multiContextLess(contexts[i], contexts[j])
	})

	return contexts, nil
}

// compatibleZoomsFor computes the deduplicated, order-preserving list of
// zooms whose accumulated contexts may be stacked under sq: every other
// subquery with a different idx and a zoom <= sq.Zoom (spec.md §4.4;
// equal-zoom-different-idx is intentionally included — see DESIGN.md).
func compatibleZoomsFor(stack []PhrasematchSubquery, sq PhrasematchSubquery) []uint16 {
	var zooms []uint16
	seen := make(map[uint16]bool)
	for _, b := range stack {
		if sq.Idx == b.Idx || sq.Zoom < b.Zoom {
			continue
		}
		if !seen[b.Zoom] {
			seen[b.Zoom] = true
			zooms = append(zooms, b.Zoom)
		}
	}
	return zooms
}

// multiContextLess orders by (-relev, -scoredist, idx, id, x, y), matching
// the sort key in spec.md §4.4 step 5.
func multiContextLess(a, b CoalesceContext) bool {
	ae, be := a.Entries[0], b.Entries[0]
	if a.Relev != b.Relev {
		return a.Relev > b.Relev
	}
	if ae.Scoredist != be.Scoredist {
		return ae.Scoredist > be.Scoredist
	}
	if ae.Idx != be.Idx {
		return ae.Idx < be.Idx
	}
	if ae.ID != be.ID {
		return ae.ID < be.ID
	}
	if ae.X != be.X {
		return ae.X < be.X
	}
	return ae.Y < be.Y
}
