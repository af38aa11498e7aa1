package gridstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)

	gserrors "github.com/carmen-go/gridcoalesce/internal/errors"
)

// SQLiteStore is a persistent Store backed by a modernc.org/sqlite
// database: one row per (zoom, match_key, grid entry) in a single
// grid_entries table (idx is kept on the handle, not stored), with a Morton
// "coord" column so bbox queries can be pushed down to SQL, mirroring the
// on-disk Coord vector spec.md §4.1 describes.
type SQLiteStore struct {
	db  *sql.DB
	idx uint16
}

// OpenSQLiteStore opens (creating if necessary) a SQLite-backed grid store
// at path for index idx.
func OpenSQLiteStore(path string, idx uint16) (*SQLiteStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, gserrors.Wrap(gserrors.ErrCodeStoreUnavailable, fmt.Errorf("opening grid store: %w", err))
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, idx: idx}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, gserrors.Wrap(gserrors.ErrCodeStoreUnavailable, fmt.Errorf("initializing grid store schema: %w", err))
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS grid_entries (
			match_key        TEXT NOT NULL,
			zoom             INTEGER NOT NULL,
			coord            INTEGER NOT NULL,
			id               INTEGER NOT NULL,
			x                INTEGER NOT NULL,
			y                INTEGER NOT NULL,
			relev            REAL NOT NULL,
			matches_language INTEGER NOT NULL,
			distance         REAL NOT NULL,
			scoredist        REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS grid_entries_lookup
			ON grid_entries (match_key, zoom, coord);
	`)
	return err
}

// Insert adds entries for key at zoom to the store.
func (s *SQLiteStore) Insert(key MatchKey, zoom uint16, entries []MatchEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO grid_entries
			(match_key, zoom, coord, id, x, y, relev, matches_language, distance, scoredist)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		coord := interleaveMorton(e.X, e.Y)
		if _, err := stmt.Exec(string(key), zoom, coord, e.ID, e.X, e.Y, e.Relev, e.MatchesLanguage, e.Distance, e.Scoredist); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetMatching implements Store. It pushes the bbox's Morton range down to
// SQL, then re-applies the C1 BBoxFilter in Go — the store-side
// "enclosing range, caller filters again" contract spec.md §4.1 describes
// — and returns the rows sorted by (relev desc, scoredist desc). The
// result set is read fully into memory and served by a slice iterator.
func (s *SQLiteStore) GetMatching(ctx context.Context, key MatchKey, opts MatchOpts) (MatchIterator, error) {
	query := `
		SELECT coord, id, x, y, relev, matches_language, distance, scoredist
		FROM grid_entries
		WHERE match_key = ? AND zoom = ?
	`
	args := []any{string(key), opts.Zoom}

	if opts.BBox != nil {
		min := interleaveMorton(opts.BBox[0], opts.BBox[1])
		max := interleaveMorton(opts.BBox[2], opts.BBox[3])
		if min > max {
			panic("gridstore: invalid bounding box")
		}
		query += " AND coord >= ? AND coord <= ?"
		args = append(args, min, max)
	}
	query += " ORDER BY relev DESC, scoredist DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, gserrors.Wrap(gserrors.ErrCodeStoreQueryFailed, err)
	}
	defer rows.Close()

	var entries []MatchEntry
	var coords []Coord
	for rows.Next() {
		var e MatchEntry
		var coord uint32
		if err := rows.Scan(&coord, &e.ID, &e.X, &e.Y, &e.Relev, &e.MatchesLanguage, &e.Distance, &e.Scoredist); err != nil {
			return nil, gserrors.Wrap(gserrors.ErrCodeStoreQueryFailed, err)
		}
		entries = append(entries, e)
		coords = append(coords, Coord{Coord: coord})
	}
	if err := rows.Err(); err != nil {
		return nil, gserrors.Wrap(gserrors.ErrCodeStoreQueryFailed, err)
	}

	if opts.BBox != nil {
		// SQL already narrowed to the Morton range; the C1 pass over the
		// same range only drops rows whose coord equals morton(max). Rows
		// inside the range but outside the rectangle are kept. Survivors
		// keep their relev/scoredist order.
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

// filteredCoordsSortedByCoord re-sorts coords (they arrive relev-ordered,
// not coord-ordered) and runs them through the real BBoxFilter, so the
// SQLite backend exercises the exact same C1 logic the spec mandates
// rather than a second bespoke range check.
func filteredCoordsSortedByCoord(coords []Coord, bbox BBox) []Coord {
	sorted := append([]Coord(nil), coords...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Coord < sorted[j].Coord })
	return BBoxFilter(sorted, bbox, 0)
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
