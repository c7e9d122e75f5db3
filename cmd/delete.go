package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/spn/internal/clock"
	"github.com/marcus/spn/internal/db"
	"github.com/marcus/spn/internal/expense"
	"github.com/marcus/spn/internal/output"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an expense",
	Long:    `Delete an expense. The record becomes a tombstone so the deletion propagates to other devices on sync.`,
	GroupID: "core",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		svc := expense.NewService(database, clock.System())
		target, err := resolveExpense(svc, args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if target == nil {
			output.Error("expense not found: %s", args[0])
			return fmt.Errorf("expense not found: %s", args[0])
		}

		ok, err := svc.Delete(target.ID)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if !ok {
			output.Error("expense not found: %s", args[0])
			return fmt.Errorf("expense not found: %s", args[0])
		}

		output.Success("Deleted %s", output.ShortID(target.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
