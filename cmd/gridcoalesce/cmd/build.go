package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carmen-go/gridcoalesce/internal/gridstore"
	"github.com/carmen-go/gridcoalesce/internal/output"
)

// buildOptions holds CLI flags for the build command.
type buildOptions struct {
	storeKind string
	storePath string
	idx       uint16
}

// gridEntryFixture is one JSON grid entry in a build fixture.
type gridEntryFixture struct {
	ID              uint32  `json:"id"`
	X               uint16  `json:"x"`
	Y               uint16  `json:"y"`
	Relev           float64 `json:"relev"`
	Score           float64 `json:"score"`
	MatchesLanguage bool    `json:"matchesLanguage"`
	Distance        float64 `json:"distance"`
	Scoredist       float64 `json:"scoredist"`
}

// gridBlockFixture groups grid entries under the (matchKey, zoom) pair a
// real grid store indexes them by.
type gridBlockFixture struct {
	MatchKey string             `json:"matchKey"`
	Zoom     uint16             `json:"zoom"`
	Entries  []gridEntryFixture `json:"entries"`
}

func newBuildCmd() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build <fixture.json>",
		Short: "Materialize a grid store from a JSON fixture",
		Long: `build reads a JSON fixture of grid entries grouped by (matchKey, zoom)
and inserts them into a persistent grid store on disk.

Fixture shape:
  [
    {
      "matchKey": "main st",
      "zoom": 14,
      "entries": [
        {"id": 7, "x": 100, "y": 200, "relev": 1.0, "scoredist": 5.0}
      ]
    }
  ]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.storeKind, "store", "sqlite", "Store backend: sqlite or bleve")
	cmd.Flags().StringVar(&opts.storePath, "path", "", "Store file path (required)")
	cmd.Flags().Uint16Var(&opts.idx, "idx", 0, "Subquery index this store serves")

	return cmd
}

func runBuild(cmd *cobra.Command, fixturePath string, opts buildOptions) error {
	out := output.New(cmd.OutOrStdout())

	if opts.storePath == "" {
		return fmt.Errorf("--path is required")
	}

	data, err := os.ReadFile(fixturePath)
	if err != nil {
		return fmt.Errorf("reading fixture: %w", err)
	}

	var blocks []gridBlockFixture
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("parsing fixture: %w", err)
	}

	store, err := openWritableStore(opts.storeKind, opts.storePath, opts.idx)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = store.Close() }()

	total := 0
	for _, b := range blocks {
		total += len(b.Entries)
	}

	written := 0
	for _, b := range blocks {
		entries := make([]gridstore.MatchEntry, len(b.Entries))
		for i, e := range b.Entries {
			entries[i] = gridstore.MatchEntry{
				GridEntry: gridstore.GridEntry{
					ID:    e.ID,
					X:     e.X,
					Y:     e.Y,
					Relev: e.Relev,
					Score: e.Score,
				},
				MatchesLanguage: e.MatchesLanguage,
				Distance:        e.Distance,
				Scoredist:       e.Scoredist,
			}
		}

		if err := store.Insert(gridstore.MatchKey(b.MatchKey), b.Zoom, entries); err != nil {
			return fmt.Errorf("inserting entries for %q at zoom %d: %w", b.MatchKey, b.Zoom, err)
		}
		written += len(entries)
		out.Progress(written, total, fmt.Sprintf("%s @ z%d", b.MatchKey, b.Zoom))
	}

	out.Success(fmt.Sprintf("wrote %d entries across %d match keys to %s", written, len(blocks), opts.storePath))
	return nil
}
