package gridstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
)

// Coalesce takes a stack of phrasematch subqueries and match options, gets
// matching grids, sorts them, and returns a ranked, deduplicated,
// pruned slice of contexts. |result| <= MaxContexts.
//
// Panics if stack is empty: an empty stack is a programmer error (spec.md
// §6), not a recoverable condition. A nil logger is fine; it defaults to
// slog.Default().
func Coalesce(ctx context.Context, stack []PhrasematchSubquery, opts MatchOpts, logger *slog.Logger) ([]CoalesceContext, error) {
	if len(stack) == 0 {
		panic("gridstore: coalesce requires a non-empty stack")
	}
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	var (
		contexts []CoalesceContext
		err      error
		dispatch string
	)
	if len(stack) == 1 {
		dispatch = "single"
		contexts, err = coalesceSingle(ctx, stack[0], opts)
	} else {
		dispatch = "multi"
		contexts, err = coalesceMulti(ctx, stack, opts)
	}
	if err != nil {
		logger.DebugContext(ctx, "coalesce failed",
			"stack_size", len(stack), "dispatch", dispatch, "error", err)
		return nil, err
	}

	out := make([]CoalesceContext, 0, MaxContexts)
	if len(contexts) > 0 {
		relevMax := contexts[0].Relev
		seen := roaring.New()
		for _, c := range contexts {
			if len(out) >= MaxContexts {
				break
			}
			if relevMax-c.Relev >= RelevanceWindow {
				break
			}
			if seen.CheckedAdd(c.Entries[0].TmpID) {
				out = append(out, c)
			}
		}
	}

	logger.DebugContext(ctx, "coalesce complete",
		"stack_size", len(stack),
		"dispatch", dispatch,
		"result_count", len(out),
		"elapsed", time.Since(start))

	return out, nil
}
