package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/spn/internal/clock"
	"github.com/marcus/spn/internal/db"
	"github.com/marcus/spn/internal/expense"
	"github.com/marcus/spn/internal/models"
	"github.com/marcus/spn/internal/output"
)

var addCmd = &cobra.Command{
	Use:     "add <amount> [description]",
	Aliases: []string{"create", "new"},
	Short:   "Record a new expense",
	Long: `Record a new expense. Amount is a decimal in your currency,
e.g. "12.50". Description, category, and date are optional.`,
	Example: `  spn add 12.50 "lunch"
  spn add 899.99 "new monitor" --category hardware --date 2026-08-20`,
	GroupID: "core",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		params := expense.CreateParams{Amount: amount}
		if len(args) > 1 && args[1] != "" {
			params.Description = models.StringPtr(args[1])
		}
		if c, _ := cmd.Flags().GetString("category"); c != "" {
			params.Category = models.StringPtr(c)
		}
		if d, _ := cmd.Flags().GetString("date"); d != "" {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				output.Error("invalid date: %s (expected YYYY-MM-DD)", d)
				return fmt.Errorf("invalid date: %s", d)
			}
			params.Date = models.StringPtr(d)
		}

		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		svc := expense.NewService(database, clock.System())
		e, err := svc.Create(params)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(e)
		}

		output.Success("Added %s  %s", output.ShortID(e.ID), output.FormatAmount(e.Amount))
		return nil
	},
}

// parseAmount converts a decimal string like "12.50" to minor units.
// At most two fraction digits are accepted.
func parseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("invalid amount: %q", s)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("invalid amount %q: at most two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount: %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount: %q", s)
	}

	cents := w*100 + f
	if neg {
		cents = -cents
	}
	return cents, nil
}

func init() {
	addCmd.Flags().StringP("category", "c", "", "Expense category")
	addCmd.Flags().StringP("date", "d", "", "Expense date (YYYY-MM-DD)")
	addCmd.Flags().Bool("json", false, "Output as JSON")
	rootCmd.AddCommand(addCmd)
}
