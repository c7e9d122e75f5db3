// Package output provides styled terminal output helpers (success, error,
// warning, expense formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/marcus/spn/internal/models"
)

var (
	// Styles
	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	amountStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	deletedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Strikethrough(true)
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeInvalidInput  = "invalid_input"
	ErrCodeDatabaseError = "database_error"
	ErrCodeSyncError     = "sync_error"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	fmt.Printf(`{"error":{"code":"%s","message":"%s"}}`, code, message)
	fmt.Println()
}

// FormatAmount renders minor currency units as a decimal string,
// e.g. 1250 -> "12.50", -75 -> "-0.75".
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// FormatTimestamp renders a millisecond Unix timestamp in local time.
func FormatTimestamp(millis int64) string {
	return time.UnixMilli(millis).Local().Format("2006-01-02 15:04")
}

// FormatTimeAgo formats a millisecond Unix timestamp as a human-readable
// "ago" string.
func FormatTimeAgo(millis int64) string {
	t := time.UnixMilli(millis)
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// ShortID shortens an expense id to 8 characters for list display.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// FormatExpenseShort formats an expense on one line for list output.
func FormatExpenseShort(e *models.Expense) string {
	var parts []string
	parts = append(parts, titleStyle.Render(ShortID(e.ID)))
	parts = append(parts, amountStyle.Render(FormatAmount(e.Amount)))

	desc := "(no description)"
	if e.Description != nil && *e.Description != "" {
		desc = *e.Description
	}
	parts = append(parts, truncate(desc, descriptionWidth()))

	if e.Category != nil && *e.Category != "" {
		parts = append(parts, categoryStyle.Render("["+*e.Category+"]"))
	}
	if e.Date != nil && *e.Date != "" {
		parts = append(parts, subtleStyle.Render(*e.Date))
	}

	line := strings.Join(parts, "  ")
	if e.Deleted {
		return deletedStyle.Render(line)
	}
	return line
}

// FormatExpenseLong formats an expense in full detail for show output.
func FormatExpenseLong(e *models.Expense) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(e.ID))
	sb.WriteString("\n")

	desc := "(no description)"
	if e.Description != nil && *e.Description != "" {
		desc = *e.Description
	}
	sb.WriteString(fmt.Sprintf("Description: %s\n", desc))
	sb.WriteString(fmt.Sprintf("Amount: %s\n", amountStyle.Render(FormatAmount(e.Amount))))

	if e.Category != nil && *e.Category != "" {
		sb.WriteString(fmt.Sprintf("Category: %s\n", categoryStyle.Render(*e.Category)))
	}
	if e.Date != nil && *e.Date != "" {
		sb.WriteString(fmt.Sprintf("Date: %s\n", *e.Date))
	}

	sb.WriteString(fmt.Sprintf("Updated: %s (%s)\n",
		FormatTimestamp(e.UpdatedAt), FormatTimeAgo(e.UpdatedAt)))

	if e.Deleted {
		sb.WriteString(errorStyle.Render("[deleted]"))
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatTotal renders a list footer with count and summed amount.
func FormatTotal(count int, cents int64) string {
	noun := "expenses"
	if count == 1 {
		noun = "expense"
	}
	return subtleStyle.Render(fmt.Sprintf("%d %s, total %s", count, noun, FormatAmount(cents)))
}

// descriptionWidth sizes the description column from the terminal width.
func descriptionWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		w = 80
	}
	// id + amount + category + date take roughly 40 columns.
	dw := w - 40
	if dw < 20 {
		dw = 20
	}
	return dw
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
