package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/taskdeck/taskdeck/internal/model"
)

// Styles contains the visual styling for CLI output.
type Styles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Header  lipgloss.Style
}

func defaultStyles() Styles {
	return Styles{
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Header:  lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
	}
}

func (c *CLI) printSuccess(format string, args ...any) {
	fmt.Fprintln(c.out, c.styles.Success.Render("✓ "+fmt.Sprintf(format, args...)))
}

func (c *CLI) printError(format string, args ...any) {
	fmt.Fprintln(c.out, c.styles.Error.Render("✗ "+fmt.Sprintf(format, args...)))
}

func (c *CLI) printWarning(format string, args ...any) {
	fmt.Fprintln(c.out, c.styles.Warning.Render("⚠ "+fmt.Sprintf(format, args...)))
}

func (c *CLI) printInfo(format string, args ...any) {
	fmt.Fprintln(c.out, c.styles.Info.Render("ℹ "+fmt.Sprintf(format, args...)))
}

func (c *CLI) printHeader(title string) {
	separator := strings.Repeat("=", len([]rune(title)))
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.styles.Header.Render(separator))
	fmt.Fprintln(c.out, c.styles.Header.Render(title))
	fmt.Fprintln(c.out, c.styles.Header.Render(separator))
}

func (c *CLI) renderTasks(tasks []model.Task, title string) {
	c.printHeader(title)
	if len(tasks) == 0 {
		c.printInfo("No tasks found")
		return
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tASSIGNED TO\tPRIORITY\tSTATUS\tDUE DATE")
	fmt.Fprintln(w, "──\t─────\t────────\t───────────\t────────\t──────\t────────")
	now := time.Now()
	for _, t := range tasks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			truncate(t.Title, 32),
			orDash(t.CategoryName),
			orDash(t.AssignedToUsername),
			priorityMarker(t.Priority),
			string(t.Status),
			dueLabel(t, now),
		)
	}
	w.Flush()
	fmt.Fprintf(c.out, "\nShowing %d task(s)\n", len(tasks))
}

func (c *CLI) renderUsers(users []model.User) {
	c.printHeader("Registered Users")
	if len(users) == 0 {
		c.printInfo("No users registered")
		return
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tLAST LOGIN")
	for _, u := range users {
		lastLogin := "Never"
		if u.LastLogin != nil {
			lastLogin = u.LastLogin.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, orDash(u.Email), lastLogin)
	}
	w.Flush()
}

func (c *CLI) renderCategories(cats []model.Category) {
	c.printHeader("Task Categories")
	if len(cats) == 0 {
		c.printInfo("No categories available")
		return
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION\tCREATED BY")
	for _, cat := range cats {
		createdBy := cat.CreatedByUsername
		if createdBy == "" {
			createdBy = "System"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", cat.ID, cat.Name, orDash(cat.Description), createdBy)
	}
	w.Flush()
}

func priorityMarker(p model.Priority) string {
	switch p {
	case model.PriorityLow:
		return "🔵 low"
	case model.PriorityMedium:
		return "🟡 medium"
	case model.PriorityHigh:
		return "🟠 high"
	case model.PriorityUrgent:
		return "🔴 urgent"
	default:
		return string(p)
	}
}

func dueLabel(t model.Task, now time.Time) string {
	if t.DueDate == nil {
		return "-"
	}
	label := t.DueDate.Local().Format("2006-01-02 15:04")
	if t.Overdue(now) {
		return "⚠ " + label
	}
	return label
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
