package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/spn/internal/config"
	"github.com/marcus/spn/internal/db"
	"github.com/marcus/spn/internal/output"
	"github.com/marcus/spn/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Run one sync cycle against the shared file",
	Long: `Run one sync cycle: read new events from the shared file, apply
them locally, and append local events other devices have not seen.`,
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("open database: %v", err)
			return err
		}
		defer database.Close()

		if statusOnly, _ := cmd.Flags().GetBool("status"); statusOnly {
			return printSyncStatus(database)
		}

		engine, err := buildEngine(database)
		if err != nil {
			return err
		}

		res, err := engine.FullSync(cmd.Context())
		if err != nil {
			output.Error("sync failed: %v", err)
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(map[string]any{
				"downloaded": res.Downloaded,
				"applied":    res.Applied,
				"pushed":     res.Pushed,
			})
		}

		if res.Applied == 0 && res.Pushed == 0 {
			fmt.Println("Already in sync")
			return nil
		}
		output.Success("Synced: applied %d, pushed %d", res.Applied, res.Pushed)
		return nil
	},
}

func printSyncStatus(database *db.DB) error {
	pending, err := database.CountUncommitted()
	if err != nil {
		output.Error("count pending events: %v", err)
		return err
	}
	total, err := database.CountEvents()
	if err != nil {
		output.Error("count events: %v", err)
		return err
	}
	processed, err := database.CountProcessed()
	if err != nil {
		output.Error("count processed events: %v", err)
		return err
	}

	path := config.SyncFilePath()
	if path == "" {
		fmt.Println("Sync file: (not configured)")
	} else {
		file := sync.NewFile(path, config.SyncCompress())
		fmt.Printf("Sync file: %s\n", file.Path())
		sum, err := file.Checksum()
		if err != nil {
			output.Warning("checksum: %v", err)
		} else if sum == "" {
			fmt.Println("Checksum: (file absent)")
		} else {
			fmt.Printf("Checksum: %.12s\n", sum)
		}
	}

	fmt.Printf("Events: %d total, %d pending push\n", total, pending)
	fmt.Printf("Processed: %d\n", processed)
	return nil
}

func init() {
	syncCmd.Flags().Bool("status", false, "Show sync state without syncing")
	syncCmd.Flags().Bool("json", false, "Output as JSON")
	rootCmd.AddCommand(syncCmd)
}
