package gridstore

// Lift transforms a store-level MatchEntry into a CoalesceEntry by
// applying the subquery's weight and synthesizing a composite tmp_id. It
// is a pure function: no I/O, no recoverable failure.
//
// Panics if opts.Zoom != sq.Zoom (grid_to_coalesce_entry asserts the two
// always agree — callers must pass the zoom-adjusted MatchOpts used for
// the lookup), if sq.Idx >= 128, or if the grid's feature id doesn't fit
// in 25 bits. All three are programmer errors per spec.md §7.
func Lift(m MatchEntry, sq PhrasematchSubquery, opts MatchOpts) CoalesceEntry {
	if opts.Zoom != sq.Zoom {
		panic("gridstore: match options zoom does not match subquery zoom")
	}
	if sq.Idx >= 128 {
		panic("gridstore: subquery idx must be < 128")
	}
	if m.GridEntry.ID >= 1<<25 {
		panic("gridstore: feature id must fit in 25 bits")
	}

	entry := m.GridEntry
	entry.Relev = m.GridEntry.Relev * sq.Weight

	return CoalesceEntry{
		GridEntry:       entry,
		MatchesLanguage: m.MatchesLanguage,
		Idx:             sq.Idx,
		Mask:            sq.Mask,
		Distance:        m.Distance,
		Scoredist:       m.Scoredist,
		TmpID:           uint32(sq.Idx)<<25 | entry.ID,
	}
}
