package gridstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	gserrors "github.com/carmen-go/gridcoalesce/internal/errors"
)

// bleveGridDoc is the document shape stored in the Bleve index: one per
// grid entry. MatchKey is the only analyzed text field; Zoom and Coord are
// indexed as numerics for range filtering, and everything else is stored
// but unindexed, mirroring how the teacher's BM25 index keeps Content as
// the sole analyzed field and leans on IDs/metadata for everything not
// meant to participate in scoring.
type bleveGridDoc struct {
	MatchKey        string  `json:"match_key"`
	Zoom            float64 `json:"zoom"`
	Coord           float64 `json:"coord"`
	ID              float64 `json:"id"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Relev           float64 `json:"relev"`
	MatchesLanguage bool    `json:"matches_language"`
	Distance        float64 `json:"distance"`
	Scoredist       float64 `json:"scoredist"`
}

// BleveStore is a Store backed by a blevesearch/bleve/v2 full-text index.
// match_key resolves through bleve.NewMatchQuery; grid coordinates and
// precomputed relev/scoredist travel as stored (non-scored) fields. Bleve's
// own relevance score is discarded — hits are always re-sorted by
// (relev desc, scoredist desc), the same ordering contract every Store
// implementation must honor.
type BleveStore struct {
	index bleve.Index
	path  string
}

// OpenBleveStore opens (creating if necessary) a Bleve-backed grid store at
// path. If path is empty, an in-memory index is created, useful for tests.
func OpenBleveStore(path string) (*BleveStore, error) {
	im, err := createGridIndexMapping()
	if err != nil {
		return nil, gserrors.Wrap(gserrors.ErrCodeStoreUnavailable, fmt.Errorf("building grid index mapping: %w", err))
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, im)
		}
	}
	if err != nil {
		return nil, gserrors.Wrap(gserrors.ErrCodeStoreUnavailable, fmt.Errorf("opening grid store: %w", err))
	}

	return &BleveStore{index: idx, path: path}, nil
}

// createGridIndexMapping builds an index mapping where match_key is the
// only analyzed text field; every other field is stored but not indexed
// for full-text purposes (coord and zoom stay indexed as numerics so range
// queries can still be pushed down).
func createGridIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()

	matchKeyField := bleve.NewTextFieldMapping()
	matchKeyField.Analyzer = "keyword"
	docMapping.AddFieldMappingsAt("match_key", matchKeyField)

	numericIndexed := bleve.NewNumericFieldMapping()
	docMapping.AddFieldMappingsAt("zoom", numericIndexed)
	docMapping.AddFieldMappingsAt("coord", numericIndexed)

	storedOnly := bleve.NewNumericFieldMapping()
	storedOnly.Index = false
	for _, field := range []string{"id", "x", "y", "relev", "distance", "scoredist"} {
		docMapping.AddFieldMappingsAt(field, storedOnly)
	}

	boolStored := bleve.NewBooleanFieldMapping()
	boolStored.Index = false
	docMapping.AddFieldMappingsAt("matches_language", boolStored)

	im.AddDocumentMapping("_default", docMapping)
	return im, nil
}

// Insert adds entries for key at zoom to the index.
func (s *BleveStore) Insert(key MatchKey, zoom uint16, entries []MatchEntry) error {
	batch := s.index.NewBatch()
	for _, e := range entries {
		doc := bleveGridDoc{
			MatchKey:        string(key),
			Zoom:            float64(zoom),
			Coord:           float64(interleaveMorton(e.X, e.Y)),
			ID:              float64(e.ID),
			X:               float64(e.X),
			Y:               float64(e.Y),
			Relev:           e.Relev,
			MatchesLanguage: e.MatchesLanguage,
			Distance:        e.Distance,
			Scoredist:       e.Scoredist,
		}
		docID := string(key) + "|" + strconv.FormatUint(uint64(zoom), 10) + "|" + strconv.FormatUint(uint64(e.ID), 10)
		if err := batch.Index(docID, doc); err != nil {
			return gserrors.Wrap(gserrors.ErrCodeStoreWriteFailed, fmt.Errorf("indexing grid entry: %w", err))
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return gserrors.Wrap(gserrors.ErrCodeStoreWriteFailed, fmt.Errorf("committing grid batch: %w", err))
	}
	return nil
}

// GetMatching implements Store. It resolves match_key via a Bleve match
// query conjoined with an exact zoom filter and, when a bbox is given, a
// Morton-coord range filter pushed down the same way SQLiteStore pushes
// its coord range — the enclosing-range, caller-filters-again contract
// spec.md §4.1 describes. Bleve's own BM25-flavored hit score is
// discarded: results are always re-sorted by (relev desc, scoredist desc)
// before being handed back.
func (s *BleveStore) GetMatching(ctx context.Context, key MatchKey, opts MatchOpts) (MatchIterator, error) {
	inclusive := true
	zoomQuery := bleve.NewNumericRangeInclusiveQuery(floatPtr(float64(opts.Zoom)), floatPtr(float64(opts.Zoom)), &inclusive, &inclusive)
	zoomQuery.SetField("zoom")

	matchQuery := bleve.NewMatchQuery(string(key))
	matchQuery.SetField("match_key")

	conjuncts := []bleve.Query{matchQuery, zoomQuery}

	if opts.BBox != nil {
		min := interleaveMorton(opts.BBox[0], opts.BBox[1])
		max := interleaveMorton(opts.BBox[2], opts.BBox[3])
		if min > max {
			panic("gridstore: invalid bounding box")
		}
		coordQuery := bleve.NewNumericRangeInclusiveQuery(floatPtr(float64(min)), floatPtr(float64(max)), &inclusive, &inclusive)
		coordQuery.SetField("coord")
		conjuncts = append(conjuncts, coordQuery)
	}

	query := bleve.NewConjunctionQuery(conjuncts...)

	docCount, err := s.index.DocCount()
	if err != nil {
		return nil, gserrors.Wrap(gserrors.ErrCodeStoreQueryFailed, err)
	}

	req := bleve.NewSearchRequest(query)
	req.Size = int(docCount)
	if req.Size == 0 {
		req.Size = 1
	}
	req.Fields = []string{"id", "x", "y", "relev", "matches_language", "distance", "scoredist", "coord"}

	result, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, gserrors.Wrap(gserrors.ErrCodeStoreQueryFailed, err)
	}

	entries := make([]MatchEntry, 0, len(result.Hits))
	coords := make([]Coord, 0, len(result.Hits))
	for _, hit := range result.Hits {
		e := MatchEntry{
			GridEntry: GridEntry{
				ID: uint32(asFloat(hit.Fields["id"])),
				X:  uint16(asFloat(hit.Fields["x"])),
				Y:  uint16(asFloat(hit.Fields["y"])),
			},
		}
		e.Relev = asFloat(hit.Fields["relev"])
		e.MatchesLanguage, _ = hit.Fields["matches_language"].(bool)
		e.Distance = asFloat(hit.Fields["distance"])
		e.Scoredist = asFloat(hit.Fields["scoredist"])
		entries = append(entries, e)
		coords = append(coords, Coord{Coord: uint32(asFloat(hit.Fields["coord"]))})
	}

	// Sort entries and coords together: coords[i] must keep identifying
	// entries[i]'s tile after reordering, or the bbox re-filter below would
	// check each entry against the wrong coordinate.
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := entries[order[i]], entries[order[j]]
		if a.Relev != b.Relev {
			return a.Relev > b.Relev
		}
		return a.Scoredist > b.Scoredist
	})
	sortedEntries := make([]MatchEntry, len(entries))
	sortedCoords := make([]Coord, len(coords))
	for i, idx := range order {
		sortedEntries[i] = entries[idx]
		sortedCoords[i] = coords[idx]
	}
	entries, coords = sortedEntries, sortedCoords

	if opts.BBox != nil {
		keep := make(map[uint32]bool, len(entries))
		for _, c := range filteredCoordsSortedByCoord(coords, *opts.BBox) {
			keep[c.Coord] = true
		}
		filtered := entries[:0:0]
		for i, e := range entries {
			if keep[coords[i].Coord] {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	entries = applyProximity(entries, opts.Proximity)
	return NewSliceIterator(entries), nil
}

// Close releases the underlying index handle.
func (s *BleveStore) Close() error {
	return s.index.Close()
}

func floatPtr(f float64) *float64 { return &f }

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	default:
		return 0
	}
}
