package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/carmen-go/gridcoalesce/internal/logging"
)

// logsOptions holds CLI flags for the logs command.
type logsOptions struct {
	lines   int
	level   string
	pattern string
	follow  bool
	noColor bool
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View debug log output",
		Long: `logs tails the debug log file written when gridcoalesce runs with
--debug. Use --follow to watch new entries as they are written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Filter by minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.pattern, "grep", "", "Filter by regexp pattern")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow the log file for new entries")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored level output")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	var pattern *regexp.Regexp
	if opts.pattern != "" {
		p, err := regexp.Compile(opts.pattern)
		if err != nil {
			return fmt.Errorf("invalid --grep pattern: %w", err)
		}
		pattern = p
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: opts.noColor,
	}, cmd.OutOrStdout())

	path := logging.DefaultLogPath()
	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return fmt.Errorf("reading log file: %w", err)
	}
	viewer.Print(entries)

	if !opts.follow {
		return nil
	}

	ch := make(chan logging.LogEntry)
	ctx := cmd.Context()
	done := make(chan error, 1)
	go func() { done <- viewer.Follow(ctx, path, ch) }()

	for {
		select {
		case entry := <-ch:
			viewer.Print([]logging.LogEntry{entry})
		case err := <-done:
			return err
		case <-ctx.Done():
			return nil
		}
	}
}
