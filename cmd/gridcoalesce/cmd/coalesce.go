package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/carmen-go/gridcoalesce/internal/gridstore"
	"github.com/carmen-go/gridcoalesce/internal/output"
)

// coalesceOptions holds CLI flags for the coalesce command.
type coalesceOptions struct {
	format     string // "text" or "json"
	batch      bool
	concurrent int
}

// storeRefFixture names a persistent store a subquery reads from.
type storeRefFixture struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
	Idx  uint16 `json:"idx"`
}

// subqueryFixture is one PhrasematchSubquery in a coalesce request.
type subqueryFixture struct {
	Store    storeRefFixture `json:"store"`
	Weight   float64         `json:"weight"`
	Idx      uint16          `json:"idx"`
	Zoom     uint16          `json:"zoom"`
	Mask     uint32          `json:"mask"`
	MatchKey string          `json:"matchKey"`
}

// proximityFixture is the JSON shape of a MatchOpts.Proximity.
type proximityFixture struct {
	X    uint16 `json:"x"`
	Y    uint16 `json:"y"`
	Zoom uint16 `json:"zoom"`
}

// coalesceRequestFixture is one full call to gridstore.Coalesce.
type coalesceRequestFixture struct {
	Label     string            `json:"label,omitempty"`
	Zoom      uint16            `json:"zoom"`
	BBox      *gridstore.BBox   `json:"bbox,omitempty"`
	Proximity *proximityFixture `json:"proximity,omitempty"`
	Stack     []subqueryFixture `json:"stack"`
}

func newCoalesceCmd() *cobra.Command {
	var opts coalesceOptions

	cmd := &cobra.Command{
		Use:   "coalesce <request.json>",
		Short: "Run the coalesce engine against a JSON stack",
		Long: `coalesce reads a JSON request describing a stack of phrasematch
subqueries and match options, runs gridstore.Coalesce against the stores
the stack references, and prints the resulting contexts.

With --batch, the input file holds a JSON array of requests; each is
resolved independently and may run concurrently.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoalesce(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.batch, "batch", false, "Treat the input file as an array of requests")
	cmd.Flags().IntVar(&opts.concurrent, "concurrency", 4, "Max concurrent requests in --batch mode")

	return cmd
}

func runCoalesce(cmd *cobra.Command, path string, opts coalesceOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading request: %w", err)
	}

	var requests []coalesceRequestFixture
	if opts.batch {
		if err := json.Unmarshal(data, &requests); err != nil {
			return fmt.Errorf("parsing batch requests: %w", err)
		}
	} else {
		var req coalesceRequestFixture
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("parsing request: %w", err)
		}
		requests = []coalesceRequestFixture{req}
	}

	ctx := cmd.Context()
	results := make([][]gridstore.CoalesceContext, len(requests))

	if opts.concurrent < 1 {
		opts.concurrent = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrent)
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			contexts, err := resolveAndCoalesce(gctx, req)
			if err != nil {
				return fmt.Errorf("request %d (%s): %w", i, req.Label, err)
			}
			results[i] = contexts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if opts.format == "json" {
		return formatCoalesceJSON(cmd, requests, results)
	}
	return formatCoalesceText(out, requests, results)
}

// resolveAndCoalesce opens every store a request's stack references,
// builds the PhrasematchSubquery stack, and runs gridstore.Coalesce.
func resolveAndCoalesce(ctx context.Context, req coalesceRequestFixture) ([]gridstore.CoalesceContext, error) {
	if len(req.Stack) == 0 {
		return nil, fmt.Errorf("stack must not be empty")
	}

	stack := make([]gridstore.PhrasematchSubquery, len(req.Stack))
	var closers []func() error
	defer func() {
		for _, c := range closers {
			_ = c()
		}
	}()

	for i, sq := range req.Stack {
		store, closer, err := openReadableStore(sq.Store.Kind, sq.Store.Path, sq.Store.Idx)
		if err != nil {
			return nil, fmt.Errorf("opening store for stack entry %d: %w", i, err)
		}
		closers = append(closers, closer.Close)

		stack[i] = gridstore.PhrasematchSubquery{
			Store:    store,
			Weight:   sq.Weight,
			Idx:      sq.Idx,
			Zoom:     sq.Zoom,
			Mask:     sq.Mask,
			MatchKey: gridstore.MatchKey(sq.MatchKey),
		}
	}

	opts := gridstore.MatchOpts{Zoom: req.Zoom, BBox: req.BBox}
	if req.Proximity != nil {
		opts.Proximity = &gridstore.Proximity{
			X: req.Proximity.X, Y: req.Proximity.Y, Zoom: req.Proximity.Zoom,
		}
	}

	return gridstore.Coalesce(ctx, stack, opts, slog.Default())
}

func formatCoalesceText(out *output.Writer, requests []coalesceRequestFixture, results [][]gridstore.CoalesceContext) error {
	for i, contexts := range results {
		label := requests[i].Label
		if label == "" {
			label = fmt.Sprintf("request %d", i)
		}
		out.Statusf("»", "%s: %d context(s)", label, len(contexts))
		for j, c := range contexts {
			out.Status("", fmt.Sprintf("%d. relev=%.3f mask=%#x entries=%d", j+1, c.Relev, c.Mask, len(c.Entries)))
			for _, e := range c.Entries {
				out.Status("", fmt.Sprintf("     id=%d (%d,%d) idx=%d relev=%.3f scoredist=%.3f tmp_id=%d",
					e.ID, e.X, e.Y, e.Idx, e.Relev, e.Scoredist, e.TmpID))
			}
		}
		out.Newline()
	}
	return nil
}

func formatCoalesceJSON(cmd *cobra.Command, requests []coalesceRequestFixture, results [][]gridstore.CoalesceContext) error {
	type jsonResponse struct {
		Label    string                       `json:"label"`
		Contexts []gridstore.CoalesceContext `json:"contexts"`
	}

	responses := make([]jsonResponse, len(results))
	for i, contexts := range results {
		responses[i] = jsonResponse{Label: requests[i].Label, Contexts: contexts}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(responses)
}
