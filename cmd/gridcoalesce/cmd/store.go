package cmd

import (
	"fmt"
	"io"

	"github.com/carmen-go/gridcoalesce/internal/gridstore"
)

// writableStore is the subset of store functionality the build command
// needs: insert grid entries and release the underlying handle.
type writableStore interface {
	Insert(key gridstore.MatchKey, zoom uint16, entries []gridstore.MatchEntry) error
	io.Closer
}

// openWritableStore opens a persistent store of the given kind for
// writing. "memory" is rejected: it has nothing to persist to disk, which
// is the whole point of the build command.
func openWritableStore(kind, path string, idx uint16) (writableStore, error) {
	switch kind {
	case "sqlite":
		s, err := gridstore.OpenSQLiteStore(path, idx)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "bleve":
		s, err := gridstore.OpenBleveStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store kind for build: %q (use sqlite or bleve)", kind)
	}
}

// openReadableStore opens a persistent store of the given kind for
// reading via gridstore.Store.
func openReadableStore(kind, path string, idx uint16) (gridstore.Store, io.Closer, error) {
	switch kind {
	case "sqlite":
		s, err := gridstore.OpenSQLiteStore(path, idx)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "bleve":
		s, err := gridstore.OpenBleveStore(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store kind: %q (use sqlite or bleve)", kind)
	}
}
