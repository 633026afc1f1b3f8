// Package cli implements the line-oriented frontend: a prompt loop that
// dispatches typed commands to the manager and renders results as text
// tables.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/taskdeck/taskdeck/internal/manager"
	"github.com/taskdeck/taskdeck/internal/model"
)

// errQuit signals a clean exit from the prompt loop.
var errQuit = errors.New("quit")

type CLI struct {
	mgr    *manager.Manager
	in     *bufio.Reader
	out    io.Writer
	styles Styles

	token    string
	username string

	// readPassword is swappable so tests can feed passwords through in.
	readPassword func(prompt string) (string, error)
}

func New(mgr *manager.Manager) *CLI {
	c := &CLI{
		mgr:    mgr,
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		styles: defaultStyles(),
	}
	c.readPassword = c.readPasswordTerm
	return c
}

// Run drives the prompt loop until quit or EOF.
func (c *CLI) Run() error {
	defer func() {
		if c.token != "" {
			c.mgr.Logout(c.token)
		}
	}()

	c.showBanner()

	for {
		prompt := "> "
		if c.username != "" {
			prompt = fmt.Sprintf("[%s] > ", c.username)
		}
		fmt.Fprint(c.out, prompt)

		line, err := c.in.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(c.out, "\nGoodbye!")
				return nil
			}
			return err
		}

		if err := c.dispatch(strings.TrimSpace(line)); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
	}
}

func (c *CLI) dispatch(line string) error {
	if line == "" {
		return nil
	}

	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	handlers := map[string]func(args []string) error{
		"help":       c.cmdHelp,
		"h":          c.cmdHelp,
		"register":   c.cmdRegister,
		"login":      c.cmdLogin,
		"logout":     c.cmdLogout,
		"users":      c.cmdUsers,
		"categories": c.cmdCategories,
		"addcat":     c.cmdAddCategory,
		"add":        c.cmdAddTask,
		"list":       c.cmdList,
		"my":         c.cmdMyTasks,
		"all":        c.cmdAllTasks,
		"pending":    c.cmdPending,
		"completed":  c.cmdCompleted,
		"update":     c.cmdUpdate,
		"complete":   c.cmdComplete,
		"delete":     c.cmdDelete,
		"search":     c.cmdSearch,
		"assign":     c.cmdAssign,
		"unassign":   c.cmdUnassign,
		"stats":      c.cmdStats,
		"summary":    c.cmdSummary,
		"clear":      c.cmdClear,
		"quit":       c.cmdQuit,
		"exit":       c.cmdQuit,
		"q":          c.cmdQuit,
	}

	handler, ok := handlers[command]
	if !ok {
		c.printError("Unknown command: %s", command)
		c.printInfo("Type 'help' for available commands")
		return nil
	}
	return handler(args)
}

func (c *CLI) showBanner() {
	fmt.Fprintln(c.out, c.styles.Header.Render("taskdeck — multi-user to-do list"))
	if c.username != "" {
		c.printSuccess("Logged in as: %s", c.username)
	} else {
		c.printWarning("Not logged in. Type 'login' or 'register' to get started.")
	}
	fmt.Fprintln(c.out, "Type 'help' for available commands.")
	fmt.Fprintln(c.out)
}

// --- input helpers ---

func (c *CLI) input(prompt string, required bool) (string, error) {
	for {
		fmt.Fprintf(c.out, "%s: ", prompt)
		line, err := c.in.ReadString('\n')
		if err != nil {
			return "", err
		}
		value := strings.TrimSpace(line)
		if required && value == "" {
			c.printError("This field is required")
			continue
		}
		return value, nil
	}
}

func (c *CLI) readPasswordTerm(prompt string) (string, error) {
	fmt.Fprintf(c.out, "%s: ", prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		defer fmt.Fprintln(c.out)
		raw, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	// Piped input: fall back to a plain line read.
	line, err := c.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *CLI) requireLogin() bool {
	if c.token == "" {
		c.printError("Please login first")
		return false
	}
	return true
}

// renderErr shows a manager error to the user. Taxonomy errors are
// recoverable messages; anything else still only aborts the command.
func (c *CLI) renderErr(err error) {
	c.printError("%s", err.Error())
}

// --- commands ---

func (c *CLI) cmdHelp(args []string) error {
	c.printHeader("Available Commands")
	groups := []struct {
		title   string
		entries [][2]string
	}{
		{"Authentication", [][2]string{
			{"register", "Register a new user account"},
			{"login", "Login to your account"},
			{"logout", "Logout from current session"},
		}},
		{"User & Category Management", [][2]string{
			{"users", "List all registered users"},
			{"categories", "List all task categories"},
			{"addcat <name>", "Add a new category"},
		}},
		{"Task Management", [][2]string{
			{"add", "Add a new task (interactive)"},
			{"list [status] [category]", "List tasks with optional filters"},
			{"my", "List your tasks"},
			{"all", "List all tasks"},
			{"pending", "List pending tasks"},
			{"completed", "List completed tasks"},
			{"update <id> <status>", "Update task status"},
			{"complete <id>", "Mark task as completed"},
			{"delete <id>", "Delete a task"},
			{"search <query>", "Search tasks by title/description"},
			{"assign <id> <user>", "Add an assignee to a task"},
			{"unassign <id> <user>", "Remove an assignee from a task"},
		}},
		{"Information", [][2]string{
			{"stats", "Show task statistics"},
			{"summary", "Show your task summary"},
		}},
		{"Utility", [][2]string{
			{"clear", "Clear screen"},
			{"help", "Show this help"},
			{"quit/exit/q", "Exit application"},
		}},
	}

	for _, group := range groups {
		fmt.Fprintln(c.out, c.styles.Warning.Render(group.title+":"))
		for _, entry := range group.entries {
			fmt.Fprintf(c.out, "  %-26s - %s\n", entry[0], entry[1])
		}
		fmt.Fprintln(c.out)
	}
	return nil
}

func (c *CLI) cmdRegister(args []string) error {
	c.printHeader("User Registration")

	username, err := c.input("Username (min 3 characters)", true)
	if err != nil {
		return err
	}
	email, err := c.input("Email (optional)", false)
	if err != nil {
		return err
	}
	password, err := c.readPassword("Password (min 6 characters)")
	if err != nil {
		return err
	}
	confirm, err := c.readPassword("Confirm password")
	if err != nil {
		return err
	}
	if password != confirm {
		c.printError("Passwords do not match")
		return nil
	}

	user, err := c.mgr.Register(context.Background(), username, password, email)
	if err != nil {
		c.renderErr(err)
		return nil
	}
	c.printSuccess("User '%s' created successfully", user.Username)
	return nil
}

func (c *CLI) cmdLogin(args []string) error {
	if c.token != "" {
		c.printWarning("Already logged in. Logout first to switch users.")
		return nil
	}

	c.printHeader("User Login")

	username, err := c.input("Username", true)
	if err != nil {
		return err
	}
	password, err := c.readPassword("Password")
	if err != nil {
		return err
	}

	sess, err := c.mgr.Login(context.Background(), username, password)
	if err != nil {
		c.renderErr(err)
		return nil
	}
	c.token = sess.Token
	c.username = sess.Username
	c.printSuccess("Welcome back, %s!", sess.Username)
	return nil
}

func (c *CLI) cmdLogout(args []string) error {
	if c.token == "" {
		c.printWarning("Not logged in")
		return nil
	}
	c.mgr.Logout(c.token)
	c.printSuccess("Goodbye, %s!", c.username)
	c.token = ""
	c.username = ""
	return nil
}

func (c *CLI) cmdUsers(args []string) error {
	users, err := c.mgr.ListUsers(context.Background())
	if err != nil {
		c.renderErr(err)
		return nil
	}
	c.renderUsers(users)
	return nil
}

func (c *CLI) cmdCategories(args []string) error {
	cats, err := c.mgr.ListCategories(context.Background())
	if err != nil {
		c.renderErr(err)
		return nil
	}
	c.renderCategories(cats)
	return nil
}

func (c *CLI) cmdAddCategory(args []string) error {
	if !c.requireLogin() {
		return nil
	}

	c.printHeader("Add New Category")

	var name string
	var err error
	if len(args) > 0 {
		name = strings.Join(args, " ")
	} else {
		name, err = c.input("Category name", true)
		if err != nil {
			return err
		}
	}
	description, err := c.input("Description (optional)", false)
	if err != nil {
		return err
	}
	color, err := c.input("Color (hex, e.g. #FF5722, optional)", false)
	if err != nil {
		return err
	}

	cat, err := c.mgr.AddCategory(context.Background(), c.token, name, description, color)
	if err != nil {
		c.renderErr(err)
		return nil
	}
	c.printSuccess("Category '%s' created successfully", cat.Name)
	return nil
}

func (c *CLI) cmdAddTask(args []string) error {
	if !c.requireLogin() {
		return nil
	}

	c.printHeader("Add New Task")

	title, err := c.input("Task title", true)
	if err != nil {
		return err
	}
	description, err := c.input("Description (optional)", false)
	if err != nil {
		return err
	}

	if cats, err := c.mgr.ListCategories(context.Background()); err == nil && len(cats) > 0 {
		names := make([]string, 0, len(cats))
		for _, cat := range cats {
			names = append(names, cat.Name)
		}
		c.printInfo("Available categories: %s", strings.Join(names, ", "))
	}
	category, err := c.input("Category (optional)", false)
	if err != nil {
		return err
	}

	assignee, err := c.input("Assign to user (optional)", false)
	if err != nil {
		return err
	}
	priority, err := c.input("Priority (low/medium/high/urgent, default medium)", false)
	if err != nil {
		return err
	}
	dueRaw, err := c.input("Due date (YYYY-MM-DD [HH:MM], optional)", false)
	if err != nil {
		return err
	}
	due, perr := parseDue(dueRaw)
	if perr != nil {
		c.printError("%s", perr.Error())
		return nil
	}

	task, err := c.mgr.CreateTask(context.Background(), c.token, manager.TaskInput{
		Title:       title,
		Description: description,
		Category:    category,
		AssignedTo:  assignee,
		Priority:    model.Priority(strings.ToLower(strings.TrimSpace(priority))),
		DueDate:     due,
	})
	if err != nil {
		c.renderErr(err)
		return nil
	}
	c.printSuccess("Task '%s' created successfully (ID: %d)", task.Title, task.ID)
	return nil
}

func (c *CLI) cmdList(args []string) error {
	opts := manager.ListOptions{}
	if len(args) > 0 {
		opts.Status = args[0]
	}
	if len(args) > 1 {
		opts.Category = args[1]
	}

	tasks, err := c.mgr.ListTasks(context.Background(), c.token, opts)
	if err != nil {
		c.renderErr(err)
		return nil
	}
	c.renderTasks(tasks, "Tasks")
	return nil
}

func (c *CLI) cmdMyTasks(args []string) error {
	if !c.requireLogin() {
		return nil
	}
	tasks, err := c.mgr.ListTasks(context.Background(), c.token, manager.ListOptions{})
	if err != nil {
		c.renderErr(err)
		return nil
	}
	c.renderTasks(tasks, "My Tasks")
	return nil
}

func (c *CLI) cmdAllTasks(args []string) error {
	tasks, err := c.mgr.ListTasks(context.Background(), c.token, manager.ListOptions{All: true})
	if err != nil {
		c.renderErr(err)
		return nil
	}
	c.renderTasks(tasks, "All Tasks")
	return nil
}

func (c *CLI) cmdPending(args []string) error {
	tasks, err := c.mgr.ListTasks(context.Background(), c.token, manager.ListOptions{Status: string(model.StatusPending)})
	if err != nil {
		c.renderErr(err)
		return nil
	}
	c.renderTasks(tasks, "Pending Tasks")
	return nil
}

func (c *CLI) cmdCompleted(args []string) error {
	tasks, err := c.mgr.ListTasks(context.Background(), c.token, manager.ListOptions{Status: string(model.StatusCompleted)})
	if err != nil {
		c.renderErr(err)
		return nil
	}
	c.renderTasks(tasks, "Completed Tasks")
	return nil
}

func (c *CLI) cmdUpdate(args []string) error {
	if !c.requireLogin() {
		return nil
	}
	if len(args) < 2 {
		c.printError("Usage: update <task_id> <status>")
		c.printInfo("Valid statuses: pending, in_progress, completed, cancelled")
		return nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		c.printError("Task ID must be a number")
		return nil
	}

	task, err := c.mgr.UpdateTaskStatus(context.Background(), c.token, id, model.Status(args[1]))
	if err != nil {
		c.renderErr(err)
		return nil
	}
	c.printSuccess("Task status updated to '%s'", task.Status)
	return nil
}

func (c *CLI) cmdComplete(args []string) error {
	if !c.requireLogin() {
		return nil
	}
	if len(args) < 1 {
		c.printError("Usage: complete <task_id>")
		return nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		c.printError("Task ID must be a number")
		return nil
	}

	if _, err := c.mgr.UpdateTaskStatus(context.Background(), c.token, id, model.StatusCompleted); err != nil {
		c.renderErr(err)
		return nil
	}
	c.printSuccess("Task %d marked as completed", id)
	return nil
}

func (c *CLI) cmdDelete(args []string) error {
	if !c.requireLogin() {
		return nil
	}
	if len(args) < 1 {
		c.printError("Usage: delete <task_id>")
		return nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		c.printError("Task ID must be a number")
		return nil
	}

	confirm, err := c.input(fmt.Sprintf("Are you sure you want to delete task %d? (y/N)", id), false)
	if err != nil {
		return err
	}
	if strings.ToLower(confirm) != "y" {
		c.printInfo("Deletion cancelled")
		return nil
	}

	if err := c.mgr.DeleteTask(context.Background(), c.token, id); err != nil {
		c.renderErr(err)
		return nil
	}
	c.printSuccess("Task deleted successfully")
	return nil
}

func (c *CLI) cmdSearch(args []string) error {
	if !c.requireLogin() {
		return nil
	}

	var query string
	var err error
	if len(args) > 0 {
		query = strings.Join(args, " ")
	} else {
		query, err = c.input("Search query", true)
		if err != nil {
			return err
		}
	}

	tasks, err := c.mgr.SearchTasks(context.Background(), c.token, query)
	if err != nil {
		c.renderErr(err)
		return nil
	}
	c.renderTasks(tasks, fmt.Sprintf("Search Results for '%s'", query))
	return nil
}

func (c *CLI) cmdAssign(args []string) error {
	if !c.requireLogin() {
		return nil
	}
	if len(args) < 2 {
		c.printError("Usage: assign <task_id> <username>")
		return nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		c.printError("Task ID must be a number")
		return nil
	}

	if err := c.mgr.AssignTask(context.Background(), c.token, id, args[1]); err != nil {
		c.renderErr(err)
		return nil
	}
	c.printSuccess("Assigned %s to task %d", args[1], id)
	return nil
}

func (c *CLI) cmdUnassign(args []string) error {
	if !c.requireLogin() {
		return nil
	}
	if len(args) < 2 {
		c.printError("Usage: unassign <task_id> <username>")
		return nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		c.printError("Task ID must be a number")
		return nil
	}

	if err := c.mgr.UnassignTask(context.Background(), c.token, id, args[1]); err != nil {
		c.renderErr(err)
		return nil
	}
	c.printSuccess("Removed %s from task %d", args[1], id)
	return nil
}

func (c *CLI) cmdStats(args []string) error {
	stats, err := c.mgr.Stats(context.Background(), c.token, false)
	if err != nil {
		c.renderErr(err)
		return nil
	}

	c.printHeader("Task Statistics")
	fmt.Fprintln(c.out, "Status Distribution:")
	for _, status := range model.ValidStatuses() {
		if count, ok := stats.StatusCounts[status]; ok {
			fmt.Fprintf(c.out, "  %s: %d\n", statusTitle(status), count)
		}
	}
	fmt.Fprintf(c.out, "\nTotal Tasks: %d\n", stats.TotalTasks)
	fmt.Fprintln(c.out, "\nCategory Distribution:")
	for name, count := range stats.CategoryCounts {
		fmt.Fprintf(c.out, "  %s: %d\n", name, count)
	}
	return nil
}

func (c *CLI) cmdSummary(args []string) error {
	if !c.requireLogin() {
		return nil
	}

	summary, err := c.mgr.Summary(context.Background(), c.token)
	if err != nil {
		c.renderErr(err)
		return nil
	}

	c.printHeader(fmt.Sprintf("Task Summary for %s", c.username))
	fmt.Fprintf(c.out, "Total Tasks: %d\n", summary.TotalTasks)
	fmt.Fprintf(c.out, "Pending: %d\n", summary.Pending)
	fmt.Fprintf(c.out, "In Progress: %d\n", summary.InProgress)
	fmt.Fprintf(c.out, "Completed: %d\n", summary.Completed)
	fmt.Fprintf(c.out, "Overdue: %d\n", summary.Overdue)
	fmt.Fprintf(c.out, "Assigned to Me: %d\n", summary.AssignedToMe)
	fmt.Fprintf(c.out, "Created by Me: %d\n", summary.CreatedByMe)
	return nil
}

func (c *CLI) cmdClear(args []string) error {
	fmt.Fprint(c.out, "\033[2J\033[H")
	c.showBanner()
	return nil
}

func (c *CLI) cmdQuit(args []string) error {
	if c.token != "" {
		c.mgr.Logout(c.token)
		c.token = ""
		c.username = ""
	}
	c.printSuccess("Thank you for using taskdeck!")
	return errQuit
}

// --- parsing ---

func statusTitle(s model.Status) string {
	words := strings.Split(strings.ReplaceAll(string(s), "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func parseDue(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid due date %q (use YYYY-MM-DD or YYYY-MM-DD HH:MM)", value)
}
