package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marcus/spn/internal/config"
	"github.com/marcus/spn/internal/db"
	"github.com/marcus/spn/internal/output"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Initialize the local expense database",
	Long:    `Creates the .spn directory and SQLite database in the data directory.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		if _, err := os.Stat(filepath.Join(baseDir, ".spn")); err == nil {
			output.Warning(".spn/ already exists")
			return nil
		}

		database, err := db.Initialize(baseDir)
		if err != nil {
			output.Error("failed to initialize database: %v", err)
			return err
		}
		defer database.Close()

		fmt.Printf("INITIALIZED %s\n", filepath.Join(baseDir, ".spn"))

		id, err := config.DeviceID()
		if err != nil {
			output.Warning("could not persist device id: %v", err)
			return nil
		}
		fmt.Printf("Device: %s\n", id)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
