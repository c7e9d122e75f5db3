package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marcus/spn/internal/config"
	"github.com/marcus/spn/internal/db"
	"github.com/marcus/spn/internal/output"
	"github.com/marcus/spn/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Run the auto-sync daemon",
	Long: `Watch the shared sync file and run a sync cycle when it changes,
plus a periodic cycle as a fallback. Runs until interrupted.`,
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !config.AutoSyncEnabled() {
			output.Warning("auto-sync is disabled (sync.auto.enabled / SPN_SYNC_AUTO)")
			return nil
		}

		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("open database: %v", err)
			return err
		}
		defer database.Close()

		engine, err := buildEngine(database)
		if err != nil {
			return err
		}

		path := config.SyncFilePath()
		w := watch.New(engine, path, watch.Options{
			Debounce: config.AutoSyncDebounce(),
			Interval: config.AutoSyncInterval(),
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Watching %s (Ctrl-C to stop)\n", path)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			output.Error("watch: %v", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
