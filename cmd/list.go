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

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List expenses, most recently updated first",
	GroupID: "core",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		svc := expense.NewService(database, clock.System())
		expenses, err := svc.ListActive()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if category, _ := cmd.Flags().GetString("category"); category != "" {
			expenses = filterByCategory(expenses, category)
		}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(expenses) > limit {
			expenses = expenses[:limit]
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			if expenses == nil {
				expenses = []models.Expense{}
			}
			return output.JSON(expenses)
		}

		if len(expenses) == 0 {
			fmt.Println("No expenses. Record one with: spn add <amount> [description]")
			return nil
		}

		var total int64
		for i := range expenses {
			fmt.Println(output.FormatExpenseShort(&expenses[i]))
			total += expenses[i].Amount
		}
		fmt.Println(output.FormatTotal(len(expenses), total))
		return nil
	},
}

func filterByCategory(expenses []models.Expense, category string) []models.Expense {
	var out []models.Expense
	for _, e := range expenses {
		if e.Category != nil && strings.EqualFold(*e.Category, category) {
			out = append(out, e)
		}
	}
	return out
}

func init() {
	listCmd.Flags().StringP("category", "c", "", "Only show this category")
	listCmd.Flags().IntP("limit", "n", 0, "Limit the number of rows")
	listCmd.Flags().Bool("json", false, "Output as JSON")
	rootCmd.AddCommand(listCmd)
}
