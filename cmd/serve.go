package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/spn/internal/api"
	"github.com/marcus/spn/internal/clock"
	"github.com/marcus/spn/internal/config"
	"github.com/marcus/spn/internal/db"
	"github.com/marcus/spn/internal/expense"
	"github.com/marcus/spn/internal/output"
	"github.com/marcus/spn/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Serve the expense API over HTTP",
	Long: `Start a local HTTP server exposing the expense commands and a sync
trigger. Intended for localhost integrations; there is no auth.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("open database: %v", err)
			return err
		}
		defer database.Close()

		svc := expense.NewService(database, clock.System())

		// Sync stays optional: the server runs without a configured file,
		// POST /sync just reports it.
		var engine *sync.Engine
		if path := config.SyncFilePath(); path != "" {
			file := sync.NewFile(path, config.SyncCompress())
			engine, err = sync.NewEngine(database, file)
			if err != nil {
				output.Error("build sync engine: %v", err)
				return err
			}
		}

		server := api.NewServer(api.Config{ListenAddr: addr}, svc, engine)
		if err := server.Start(); err != nil {
			output.Error("start server: %v", err)
			return err
		}
		fmt.Printf("Listening on %s (Ctrl-C to stop)\n", addr)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8787", "Listen address")
	rootCmd.AddCommand(serveCmd)
}
