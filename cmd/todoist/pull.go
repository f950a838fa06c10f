package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/todomove/todoist/internal/intercessor"
	"github.com/todomove/todoist/internal/todoist"
	"github.com/todomove/todoist/internal/ui"
)

var pullCmd = &cobra.Command{
	Use:   "pull <graph-file>",
	Short: "Pull the Todoist account into a local graph file",
	Long: `Read a full snapshot (labels, projects, items, notes) from Todoist
and write it to a graph file (YAML, or JSON with a .json extension).

Indent-1 projects become folders for the indent-2 projects that follow
them. Deleted records and completed items are left out. Recurring date
strings are translated into structured repeat rules; an unparseable
recurrence aborts the pull rather than silently dropping the schedule.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPull(cmd, args[0])
	},
}

func runPull(cmd *cobra.Command, path string) error {
	logger := newLogger()

	client, err := newClient()
	if err != nil {
		return err
	}

	reader := todoist.NewReader(client, logger)

	start := time.Now()
	graph, stats, err := reader.ReadGraph(cmd.Context())
	if err != nil {
		return err
	}

	if err := intercessor.WriteGraphFile(path, graph); err != nil {
		return err
	}

	fmt.Printf("%s Pull complete in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Tags: %d\n", stats.Tags)
	fmt.Printf("   Folders: %d\n", stats.Folders)
	fmt.Printf("   Projects: %d\n", stats.Projects)
	fmt.Printf("   Tasks: %d (notes: %d)\n", stats.Tasks, stats.Notes)
	if stats.SkippedItems > 0 {
		fmt.Printf("   %s\n", ui.RenderDim(fmt.Sprintf("Skipped items (deleted/completed/orphaned): %d", stats.SkippedItems)))
	}
	if stats.UnknownTaskNotes > 0 {
		fmt.Printf("   %s Notes referencing unknown tasks: %d\n", ui.RenderWarn("⚠"), stats.UnknownTaskNotes)
	}
	if stats.UnknownLabelRefs > 0 {
		fmt.Printf("   %s Label references without a label: %d\n", ui.RenderWarn("⚠"), stats.UnknownLabelRefs)
	}
	fmt.Printf("   Graph: %s\n", path)
	return nil
}
