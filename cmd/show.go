package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcus/spn/internal/clock"
	"github.com/marcus/spn/internal/db"
	"github.com/marcus/spn/internal/expense"
	"github.com/marcus/spn/internal/models"
	"github.com/marcus/spn/internal/output"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show one expense in full",
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
		e, err := resolveExpense(svc, args[0])
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

		fmt.Print(output.FormatExpenseLong(e))
		return nil
	},
}

// resolveExpense looks up an active expense by exact id, then by unique
// id prefix. Returns nil when nothing matches.
func resolveExpense(svc *expense.Service, id string) (*models.Expense, error) {
	e, err := svc.FindActive(id)
	if err != nil {
		return nil, err
	}
	if e != nil {
		return e, nil
	}

	expenses, err := svc.ListActive()
	if err != nil {
		return nil, err
	}
	var match *models.Expense
	for i := range expenses {
		if strings.HasPrefix(expenses[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous id prefix: %s", id)
			}
			match = &expenses[i]
		}
	}
	return match, nil
}

func init() {
	showCmd.Flags().Bool("json", false, "Output as JSON")
	rootCmd.AddCommand(showCmd)
}
