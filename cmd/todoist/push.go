package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/todomove/todoist/internal/cache"
	"github.com/todomove/todoist/internal/intercessor"
	"github.com/todomove/todoist/internal/todoist"
	"github.com/todomove/todoist/internal/ui"
)

var pushCmd = &cobra.Command{
	Use:   "push <graph-file>",
	Short: "Push a local graph file to Todoist",
	Long: `Push the tags, folders, projects and tasks of a graph file
(YAML or JSON) to Todoist.

Stages run in dependency order and each stage waits for the previous one's
reconciled ids. Entities whose remote id is already in the cache are
skipped, so pushing the same file twice creates nothing twice.

With --watch, the file is re-pushed whenever it changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("watch") {
			return watchAndPush(cmd.Context(), args[0])
		}
		return runPush(cmd.Context(), args[0])
	},
}

func init() {
	flags := pushCmd.Flags()
	flags.Int("chunk-size", todoist.DefaultChunkSize, "commands per batch request")
	flags.Int("max-attempts", todoist.DefaultMaxAttempts, "attempts per batch before giving up")
	flags.Duration("retry-delay", todoist.DefaultRetryDelay, "delay between retry attempts")
	flags.Bool("resubmit-all", false, "on failure, restart the whole command list instead of the failed batch (legacy behavior, may duplicate)")
	flags.Bool("embed-tags", false, "append @tag markers to task titles on non-premium accounts")
	flags.Bool("no-cache", false, "do not load or store reconciled remote ids")
	flags.Bool("watch", false, "keep running and re-push when the graph file changes")
}

func runPush(ctx context.Context, path string) error {
	logger := newLogger()

	graph, err := intercessor.ReadGraphFile(path)
	if err != nil {
		return err
	}

	var idCache *cache.Cache
	if !viper.GetBool("no-cache") {
		idCache, err = openCache()
		if err != nil {
			return err
		}
		defer idCache.Close()

		known, err := idCache.Load()
		if err != nil {
			return err
		}
		graph.ApplyRemoteIDs(known)
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	premium, err := client.FetchPremium(ctx)
	if err != nil {
		logger.Printf("WARNING: could not determine premium tier, assuming basic: %v", err)
		premium = false
	}

	scope := todoist.RetryChunk
	if viper.GetBool("resubmit-all") {
		scope = todoist.RetryAll
	}

	writer := todoist.NewWriter(client, logger, todoist.WriterOptions{
		Premium:          premium,
		EmbedTagsOnBasic: viper.GetBool("embed-tags"),
		Dispatch: todoist.DispatcherOptions{
			ChunkSize:   viper.GetInt("chunk-size"),
			MaxAttempts: viper.GetInt("max-attempts"),
			RetryDelay:  viper.GetDuration("retry-delay"),
			Scope:       scope,
		},
	})

	if viper.GetBool("verbose") {
		logger.Printf("Pushing %s (premium=%v chunk=%d attempts=%d)",
			path, premium, viper.GetInt("chunk-size"), viper.GetInt("max-attempts"))
	}

	start := time.Now()
	result, syncErr := writer.SyncFrom(ctx, graph)

	// Entities from completed stages are reconciled even when a later
	// stage failed; persist them so a re-run resumes instead of
	// duplicating.
	if idCache != nil {
		if err := storeGraph(idCache, graph); err != nil {
			logger.Printf("WARNING: failed to store reconciled ids: %v", err)
		}
	}
	if syncErr != nil {
		return syncErr
	}

	fmt.Printf("%s Push complete in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Tags: %d\n", result.Tags)
	fmt.Printf("   Folders: %d\n", result.Folders)
	fmt.Printf("   Projects: %d\n", result.Projects)
	fmt.Printf("   Tasks: %d (notes: %d)\n", result.Tasks, result.Notes)
	if result.Skipped > 0 {
		fmt.Printf("   %s\n", ui.RenderDim(fmt.Sprintf("Skipped (already synced): %d", result.Skipped)))
	}
	return nil
}

func storeGraph(idCache *cache.Cache, g *intercessor.Graph) error {
	kinds := []struct {
		kind string
		ids  map[string]string
	}{
		{"tag", remoteIDsOf(g.Tags)},
		{"folder", remoteIDsOf(g.Folders)},
		{"project", remoteIDsOf(g.Projects)},
		{"task", remoteIDsOf(g.Tasks)},
	}
	for _, batch := range kinds {
		if err := idCache.PutAll(batch.kind, batch.ids); err != nil {
			return err
		}
	}
	return nil
}

func remoteIDsOf[E todoist.Reconcilable](entities []E) map[string]string {
	ids := make(map[string]string)
	for _, entity := range entities {
		if entity.RemoteIdentifier() != "" {
			ids[entity.ClientID()] = entity.RemoteIdentifier()
		}
	}
	return ids
}

// watchAndPush pushes once, then re-pushes whenever the graph file changes.
// Editors replace files rather than writing in place, so the watch covers
// the parent directory and filters events by name.
func watchAndPush(ctx context.Context, path string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()

	if err := runPush(ctx, path); err != nil {
		logger.Printf("WARNING: initial push failed: %v", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	fmt.Printf("%s Watching %s\n", ui.RenderAccent("👁"), path)

	const debounce = 500 * time.Millisecond
	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Coalesce bursts of events from a single save.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Printf("WARNING: watch error: %v", err)
		case <-pending:
			logger.Printf("Graph file changed, pushing %s", path)
			if err := runPush(ctx, path); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue // replaced mid-save, the next event will catch it
				}
				logger.Printf("WARNING: push failed: %v", err)
			}
		}
	}
}
