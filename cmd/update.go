package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/spn/internal/clock"
	"github.com/marcus/spn/internal/db"
	"github.com/marcus/spn/internal/expense"
	"github.com/marcus/spn/internal/models"
	"github.com/marcus/spn/internal/output"
)

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	Aliases: []string{"edit"},
	Short:   "Update an expense",
	Long:    `Update an expense. Only the fields given as flags change.`,
	Example: `  spn update 3f2a --amount 14.00
  spn update 3f2a --description "team lunch" --category food`,
	GroupID: "core",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var params expense.UpdateParams

		if cmd.Flags().Changed("amount") {
			s, _ := cmd.Flags().GetString("amount")
			amount, err := parseAmount(s)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			params.Amount = models.Int64Ptr(amount)
		}
		if cmd.Flags().Changed("description") {
			s, _ := cmd.Flags().GetString("description")
			params.Description = models.StringPtr(s)
		}
		if cmd.Flags().Changed("category") {
			s, _ := cmd.Flags().GetString("category")
			params.Category = models.StringPtr(s)
		}
		if cmd.Flags().Changed("date") {
			s, _ := cmd.Flags().GetString("date")
			if s != "" {
				if _, err := time.Parse("2006-01-02", s); err != nil {
					output.Error("invalid date: %s (expected YYYY-MM-DD)", s)
					return fmt.Errorf("invalid date: %s", s)
				}
			}
			params.Date = models.StringPtr(s)
		}

		if params.Amount == nil && params.Description == nil && params.Category == nil && params.Date == nil {
			output.Error("nothing to update: pass at least one of --amount, --description, --category, --date")
			return fmt.Errorf("nothing to update")
		}

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

		e, err := svc.Update(target.ID, params)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if e == nil {
			output.Error("expense not found: %s", args[0])
			return fmt.Errorf("expense not found: %s", args[0])
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(e)
		}

		output.Success("Updated %s  %s", output.ShortID(e.ID), output.FormatAmount(e.Amount))
		return nil
	},
}

func init() {
	updateCmd.Flags().StringP("amount", "a", "", "New amount, e.g. 14.00")
	updateCmd.Flags().StringP("description", "m", "", "New description")
	updateCmd.Flags().StringP("category", "c", "", "New category")
	updateCmd.Flags().StringP("date", "d", "", "New date (YYYY-MM-DD)")
	updateCmd.Flags().Bool("json", false, "Output as JSON")
	rootCmd.AddCommand(updateCmd)
}
