package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/carmen-go/gridcoalesce/internal/explore"
	"github.com/carmen-go/gridcoalesce/internal/gridstore"
)

// exploreResponse mirrors the per-request envelope formatCoalesceJSON
// writes, so explore can read a coalesce --format json file directly.
type exploreResponse struct {
	Label    string                        `json:"label"`
	Contexts []gridstore.CoalesceContext `json:"contexts"`
}

// exploreOptions holds CLI flags for the explore command.
type exploreOptions struct {
	label string
}

func newExploreCmd() *cobra.Command {
	var opts exploreOptions

	cmd := &cobra.Command{
		Use:   "explore <contexts.json>",
		Short: "Interactively browse coalesce results",
		Long: `explore opens a terminal UI over coalesce results: either the JSON
written by "gridcoalesce coalesce --format json" (an array of labelled
responses) or a bare JSON array of CoalesceContext. Use it to inspect
entries and tile coordinates without scrolling raw JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.label, "label", "", "Label shown in the header")

	return cmd
}

func runExplore(cmd *cobra.Command, path string, opts exploreOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading contexts: %w", err)
	}

	contexts, label, err := parseExploreInput(data)
	if err != nil {
		return err
	}
	if opts.label != "" {
		label = opts.label
	}

	model := explore.New(label, contexts)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// parseExploreInput accepts either a bare []gridstore.CoalesceContext or the
// []exploreResponse envelope "coalesce --format json" writes, flattening
// the latter's contexts (and joining its labels) into a single view.
func parseExploreInput(data []byte) ([]gridstore.CoalesceContext, string, error) {
	var responses []exploreResponse
	if err := json.Unmarshal(data, &responses); err == nil && len(responses) > 0 && responses[0].Contexts != nil {
		var all []gridstore.CoalesceContext
		var labels []string
		for _, r := range responses {
			all = append(all, r.Contexts...)
			if r.Label != "" {
				labels = append(labels, r.Label)
			}
		}
		label := "coalesce results"
		if len(labels) > 0 {
			label = labels[0]
			if len(labels) > 1 {
				label = fmt.Sprintf("%s (+%d more)", label, len(labels)-1)
			}
		}
		return all, label, nil
	}

	var contexts []gridstore.CoalesceContext
	if err := json.Unmarshal(data, &contexts); err != nil {
		return nil, "", fmt.Errorf("parsing contexts: %w", err)
	}
	return contexts, "coalesce results", nil
}
