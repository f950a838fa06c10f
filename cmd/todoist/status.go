package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/todomove/todoist/internal/cache"
	"github.com/todomove/todoist/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the remote-id cache status",
	Long: `Display the state of the local reconciliation cache.

Shows the cache location and size, how many entities have been reconciled
against Todoist, and when the last sync ran.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cachePath()

		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			fmt.Printf("\n%s Cache not initialized\n", ui.RenderWarn("⚠"))
			fmt.Printf("   Run 'todoist push' to create it at %s\n\n", path)
			return nil
		}
		if err != nil {
			return err
		}

		idCache, err := cache.Open(path)
		if err != nil {
			return err
		}
		defer idCache.Close()

		count, err := idCache.Count()
		if err != nil {
			return err
		}
		lastSync, err := idCache.LastSync()
		if err != nil {
			return err
		}

		fmt.Printf("\n%s Remote-id cache\n", ui.RenderAccent("●"))
		fmt.Printf("   Location: %s (%d bytes)\n", path, info.Size())
		fmt.Printf("   Reconciled entities: %d\n", count)
		if lastSync.IsZero() {
			fmt.Printf("   Last sync: never\n\n")
		} else {
			fmt.Printf("   Last sync: %s\n\n", lastSync.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}
