// Package tui is the event-driven terminal GUI: keystrokes invoke
// manager operations synchronously, a re-render follows, and a timer
// re-issues the task listing to keep the view fresh.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"github.com/taskdeck/taskdeck/internal/manager"
	"github.com/taskdeck/taskdeck/internal/model"
)

const (
	viewHeader = "header"
	viewFooter = "footer"
	viewTasks  = "tasks"
	viewForm   = "form"
	viewLogin  = "login"
	viewSearch = "search"
	viewHelp   = "help"
)

type UI struct {
	mgr *manager.Manager
	gui *gocui.Gui

	token    string
	username string

	tasks    []model.Task
	selected int

	statusFilter string
	searchQuery  string

	form         *formState
	login        *loginState
	searchActive bool
	searchValue  string
	helpActive   bool

	status string

	refreshEvery time.Duration
	editor       *formEditor
}

type formState struct {
	taskID int64
	fields []formField
	index  int
}

type loginState struct {
	register bool
	fields   []formField
	index    int
}

type formEditor struct {
	ui *UI
}

// Run starts the GUI and blocks until quit.
func Run(mgr *manager.Manager, refreshEvery time.Duration) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	if refreshEvery <= 0 {
		refreshEvery = 5 * time.Second
	}

	ui := &UI{
		mgr:          mgr,
		gui:          gui,
		refreshEvery: refreshEvery,
	}
	ui.editor = &formEditor{ui: ui}
	ui.login = &loginState{fields: buildLoginFormFields(false)}

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	if err := ui.loadTasks(); err != nil {
		return err
	}

	stop := make(chan struct{})
	go ui.autoRefresh(stop)
	defer close(stop)

	if err := gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}

	if ui.token != "" {
		ui.mgr.Logout(ui.token)
	}
	return nil
}

// autoRefresh re-issues the task listing on a timer. Refreshes are
// skipped while a form or search box is open.
func (u *UI) autoRefresh(stop <-chan struct{}) {
	ticker := time.NewTicker(u.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			u.gui.Update(func(*gocui.Gui) error {
				if u.inputActive() {
					return nil
				}
				if err := u.loadTasks(); err != nil {
					u.status = err.Error()
				}
				return nil
			})
		}
	}
}

func (u *UI) loadTasks() error {
	tasks, err := u.mgr.ListTasks(context.Background(), u.token, manager.ListOptions{
		Status: u.statusFilter,
		Query:  u.searchQuery,
	})
	if err != nil {
		return err
	}
	u.tasks = tasks
	if u.selected >= len(u.tasks) {
		u.selected = max(len(u.tasks)-1, 0)
	}
	return nil
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	if err := gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, u.quit); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, 'q', gocui.ModNone, u.quit); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, 'r', gocui.ModNone, u.reload); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, 'g', gocui.ModNone, u.clearFilters); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, 'a', gocui.ModNone, u.addTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, 'e', gocui.ModNone, u.editTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, 'd', gocui.ModNone, u.deleteTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, 'x', gocui.ModNone, u.toggleCompleted); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, 'c', gocui.ModNone, u.toggleInProgress); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, 'f', gocui.ModNone, u.cycleStatusFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, '/', gocui.ModNone, u.startSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, '?', gocui.ModNone, u.toggleHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, 'u', gocui.ModNone, u.openLogin); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, 'o', gocui.ModNone, u.logout); err != nil {
		return err
	}
	for _, key := range []any{gocui.KeyArrowDown, 'j'} {
		if err := setKey(gui, viewTasks, key, u.moveDown); err != nil {
			return err
		}
	}
	for _, key := range []any{gocui.KeyArrowUp, 'k'} {
		if err := setKey(gui, viewTasks, key, u.moveUp); err != nil {
			return err
		}
	}

	if err := gui.SetKeybinding(viewLogin, gocui.KeyEnter, gocui.ModNone, u.submitLogin); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLogin, gocui.KeyEsc, gocui.ModNone, u.cancelLogin); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLogin, gocui.KeyCtrlR, gocui.ModNone, u.toggleRegister); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLogin, gocui.KeyTab, gocui.ModNone, u.nextLoginField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLogin, gocui.KeyArrowDown, gocui.ModNone, u.nextLoginField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLogin, gocui.KeyArrowUp, gocui.ModNone, u.prevLoginField); err != nil {
		return err
	}

	if err := gui.SetKeybinding(viewForm, gocui.KeyEnter, gocui.ModNone, u.submitForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEsc, gocui.ModNone, u.cancelForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyTab, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyBacktab, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowDown, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowUp, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}

	if err := gui.SetKeybinding(viewSearch, gocui.KeyEnter, gocui.ModNone, u.submitSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewSearch, gocui.KeyEsc, gocui.ModNone, u.cancelSearch); err != nil {
		return err
	}

	for _, key := range []any{gocui.KeyEsc, 'q', '?'} {
		if err := setKey(gui, viewHelp, key, u.closeHelp); err != nil {
			return err
		}
	}

	return nil
}

func setKey(gui *gocui.Gui, view string, key any, handler func(*gocui.Gui, *gocui.View) error) error {
	return gui.SetKeybinding(view, key, gocui.ModNone, handler)
}

// --- layout ---

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = false
	u.renderHeader(headerView)

	footerY1 := maxY - 1
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	tasksView, err := gui.SetView(viewTasks, 0, bodyTop, maxX-1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	tasksView.Title = "Tasks"
	tasksView.Frame = true
	tasksView.Highlight = true
	tasksView.SelBgColor = gocui.ColorBlue
	tasksView.SelFgColor = gocui.ColorBlack
	u.renderTasks(tasksView)

	if u.login != nil {
		if err := u.showLogin(gui); err != nil {
			return err
		}
	} else if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else if u.searchActive {
		if err := u.showSearch(gui); err != nil {
			return err
		}
	} else if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_, _ = gui.SetCurrentView(viewTasks)
	}

	return nil
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()

	who := "not logged in (press u)"
	if u.username != "" {
		who = u.username
	}
	statusLabel := u.statusFilter
	if statusLabel == "" {
		statusLabel = "any"
	}
	query := u.searchQuery
	if query == "" {
		query = "type / to search"
	}
	fmt.Fprintf(view, "taskdeck | User: %s | Status: %s | Search: %s", who, statusLabel, query)
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	fmt.Fprintln(view, "a add | e edit | d delete | x complete | c in progress | f filter | / search | g clear")
	fmt.Fprintln(view, "u login | o logout | r reload | ? help | q quit")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderTasks(view *gocui.View) {
	view.Clear()
	now := time.Now()
	for i, task := range u.tasks {
		prefix := " "
		if i == u.selected {
			prefix = ">"
		}
		fmt.Fprintf(view, "%s %s\n", prefix, formatTaskRow(task, now))
	}
	view.SetCursor(0, min(u.selected, max(len(u.tasks)-1, 0)))
}

func formatTaskRow(task model.Task, now time.Time) string {
	due := "no due date"
	if task.DueDate != nil {
		due = task.DueDate.Local().Format("2006-01-02")
		if task.Overdue(now) {
			due += " !"
		}
	}
	category := task.CategoryName
	if category == "" {
		category = "none"
	}
	assignee := task.AssignedToUsername
	if assignee == "" {
		assignee = "unassigned"
	}
	return fmt.Sprintf("%3d %s [%s/%s] %s → %s | %s",
		task.ID, task.Title, task.Status, task.Priority, category, assignee, due)
}

// --- modal windows ---

func modalBounds(gui *gocui.Gui, height int) (int, int, int, int) {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	if width > maxX-2 {
		width = maxX - 2
	}
	x0 := (maxX - width) / 2
	y0 := max((maxY-height)/2, 1)
	return x0, y0, x0 + width, y0 + height
}

func (u *UI) showLogin(gui *gocui.Gui) error {
	x0, y0, x1, y1 := modalBounds(gui, len(u.login.fields)+3)
	view, err := gui.SetView(viewLogin, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	view.Title = "Login (ctrl-r to register)"
	if u.login.register {
		view.Title = "Register (ctrl-r to login)"
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.editor
	u.renderLogin(view)
	_, _ = gui.SetCurrentView(viewLogin)
	return nil
}

func (u *UI) renderLogin(view *gocui.View) {
	view.Clear()
	for index, field := range u.login.fields {
		prefix := "  "
		if index == u.login.index {
			prefix = "> "
		}
		value := field.Value
		if field.Masked {
			value = strings.Repeat("*", len([]rune(value)))
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, value)
	}
	fmt.Fprintln(view)
	fmt.Fprint(view, "enter submit | esc browse without login")
	field := u.login.fields[u.login.index]
	cursorX := len([]rune(field.Label)) + len([]rune(field.Value)) + 4
	view.SetCursor(cursorX, u.login.index)
}

func (u *UI) showForm(gui *gocui.Gui) error {
	x0, y0, x1, y1 := modalBounds(gui, len(u.form.fields)+2)
	view, err := gui.SetView(viewForm, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	view.Title = "New Task"
	if u.form.taskID != 0 {
		view.Title = fmt.Sprintf("Edit Task %d", u.form.taskID)
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.editor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, field.Value)
	}
	field := u.form.fields[u.form.index]
	cursorX := len([]rune(field.Label)) + len([]rune(field.Value)) + 4
	view.SetCursor(cursorX, u.form.index)
}

func (u *UI) showSearch(gui *gocui.Gui) error {
	x0, y0, x1, y1 := modalBounds(gui, 2)
	view, err := gui.SetView(viewSearch, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	view.Title = "Search"
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.editor
	view.Clear()
	fmt.Fprint(view, u.searchValue)
	view.SetCursor(len([]rune(u.searchValue)), 0)
	_, _ = gui.SetCurrentView(viewSearch)
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	x0, y0, x1, y1 := modalBounds(gui, 16)
	view, err := gui.SetView(viewHelp, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	view.Title = "Help"
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  j/k or arrows move selection",
		"",
		"Actions (require login):",
		"  a add task | e edit task | d delete task",
		"  x toggle completed | c toggle in progress",
		"",
		"Filter:",
		"  f cycle status filter | / search | g clear filters",
		"",
		"Account:",
		"  u login/register | o logout",
		"",
		"Other:",
		"  r reload | ? help | esc/q close help | q quit",
	}, "\n")
}

// --- task actions ---

func (u *UI) selectedTask() *model.Task {
	if u.selected < 0 || u.selected >= len(u.tasks) {
		return nil
	}
	task := u.tasks[u.selected]
	return &task
}

func (u *UI) requireLogin() bool {
	if u.token == "" {
		u.status = "login first (press u)"
		return false
	}
	return true
}

func (u *UI) quit(*gocui.Gui, *gocui.View) error {
	return gocui.ErrQuit
}

func (u *UI) reload(*gocui.Gui, *gocui.View) error {
	u.status = ""
	return u.loadTasks()
}

func (u *UI) clearFilters(*gocui.Gui, *gocui.View) error {
	u.statusFilter = ""
	u.searchQuery = ""
	u.status = ""
	return u.loadTasks()
}

func (u *UI) moveDown(*gocui.Gui, *gocui.View) error {
	if u.selected < len(u.tasks)-1 {
		u.selected++
	}
	return nil
}

func (u *UI) moveUp(*gocui.Gui, *gocui.View) error {
	if u.selected > 0 {
		u.selected--
	}
	return nil
}

func (u *UI) cycleStatusFilter(*gocui.Gui, *gocui.View) error {
	order := []string{"", "pending", "in_progress", "completed", "cancelled"}
	for i, status := range order {
		if status == u.statusFilter {
			u.statusFilter = order[(i+1)%len(order)]
			break
		}
	}
	u.selected = 0
	return u.loadTasks()
}

func (u *UI) addTask(*gocui.Gui, *gocui.View) error {
	if u.inputActive() || !u.requireLogin() {
		return nil
	}
	u.form = &formState{fields: buildTaskFormFields(nil)}
	return nil
}

func (u *UI) editTask(*gocui.Gui, *gocui.View) error {
	if u.inputActive() || !u.requireLogin() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	u.form = &formState{taskID: selected.ID, fields: buildTaskFormFields(selected)}
	return nil
}

func (u *UI) deleteTask(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || !u.requireLogin() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	if err := u.mgr.DeleteTask(context.Background(), u.token, selected.ID); err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = fmt.Sprintf("deleted task %d", selected.ID)
	return u.loadTasks()
}

func (u *UI) toggleCompleted(gui *gocui.Gui, view *gocui.View) error {
	return u.toggleStatus(model.StatusCompleted)
}

func (u *UI) toggleInProgress(gui *gocui.Gui, view *gocui.View) error {
	return u.toggleStatus(model.StatusInProgress)
}

func (u *UI) toggleStatus(target model.Status) error {
	if u.inputActive() || !u.requireLogin() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}

	next := target
	if selected.Status == target {
		next = model.StatusPending
	}
	if _, err := u.mgr.UpdateTaskStatus(context.Background(), u.token, selected.ID, next); err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = ""
	return u.loadTasks()
}

// --- form handling ---

func (u *UI) submitForm(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}

	if u.form.taskID == 0 {
		input, err := parseTaskInput(u.form.fields)
		if err != nil {
			u.status = err.Error()
			return nil
		}
		created, err := u.mgr.CreateTask(context.Background(), u.token, input)
		if err != nil {
			u.status = err.Error()
			return nil
		}
		// New tasks start pending; honor a status picked on the form.
		status := model.Status(strings.TrimSpace(strings.ToLower(u.form.fields[fieldStatus].Value)))
		if status != "" && status != model.StatusPending {
			if _, err := u.mgr.UpdateTaskStatus(context.Background(), u.token, created.ID, status); err != nil {
				u.status = err.Error()
			}
		}
	} else {
		upd, err := parseTaskUpdate(u.form.fields)
		if err != nil {
			u.status = err.Error()
			return nil
		}
		if _, err := u.mgr.UpdateTask(context.Background(), u.token, u.form.taskID, upd); err != nil {
			u.status = err.Error()
			return nil
		}
	}

	u.form = nil
	u.status = ""
	_ = gui.DeleteView(viewForm)
	return u.loadTasks()
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	_ = gui.DeleteView(viewForm)
	return nil
}

func (u *UI) nextFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

// --- login handling ---

func (u *UI) openLogin(*gocui.Gui, *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.token != "" {
		u.status = "already logged in; press o to logout"
		return nil
	}
	u.login = &loginState{fields: buildLoginFormFields(false)}
	return nil
}

func (u *UI) toggleRegister(gui *gocui.Gui, view *gocui.View) error {
	if u.login == nil {
		return nil
	}
	register := !u.login.register
	fields := buildLoginFormFields(register)
	for i := range fields {
		if i < len(u.login.fields) {
			fields[i].Value = u.login.fields[i].Value
		}
	}
	u.login = &loginState{register: register, fields: fields}
	return nil
}

func (u *UI) submitLogin(gui *gocui.Gui, _ *gocui.View) error {
	if u.login == nil {
		return nil
	}

	username := strings.TrimSpace(u.login.fields[loginFieldUsername].Value)
	password := u.login.fields[loginFieldPassword].Value

	ctx := context.Background()
	if u.login.register {
		email := strings.TrimSpace(u.login.fields[loginFieldEmail].Value)
		if _, err := u.mgr.Register(ctx, username, password, email); err != nil {
			u.status = err.Error()
			return nil
		}
	}

	sess, err := u.mgr.Login(ctx, username, password)
	if err != nil {
		u.status = err.Error()
		return nil
	}
	u.token = sess.Token
	u.username = sess.Username
	u.status = fmt.Sprintf("welcome back, %s!", sess.Username)

	u.login = nil
	_ = gui.DeleteView(viewLogin)
	return u.loadTasks()
}

func (u *UI) cancelLogin(gui *gocui.Gui, _ *gocui.View) error {
	u.login = nil
	_ = gui.DeleteView(viewLogin)
	return nil
}

func (u *UI) nextLoginField(gui *gocui.Gui, view *gocui.View) error {
	if u.login == nil {
		return nil
	}
	if u.login.index < len(u.login.fields)-1 {
		u.login.index++
	}
	u.renderLogin(view)
	return nil
}

func (u *UI) prevLoginField(gui *gocui.Gui, view *gocui.View) error {
	if u.login == nil {
		return nil
	}
	if u.login.index > 0 {
		u.login.index--
	}
	u.renderLogin(view)
	return nil
}

func (u *UI) logout(*gocui.Gui, *gocui.View) error {
	if u.inputActive() || u.token == "" {
		return nil
	}
	u.mgr.Logout(u.token)
	u.status = fmt.Sprintf("goodbye, %s!", u.username)
	u.token = ""
	u.username = ""
	return u.loadTasks()
}

// --- search handling ---

func (u *UI) startSearch(*gocui.Gui, *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.searchActive = true
	u.searchValue = u.searchQuery
	return nil
}

func (u *UI) submitSearch(gui *gocui.Gui, _ *gocui.View) error {
	u.searchQuery = strings.TrimSpace(u.searchValue)
	u.searchActive = false
	u.selected = 0
	_ = gui.DeleteView(viewSearch)
	return u.loadTasks()
}

func (u *UI) cancelSearch(gui *gocui.Gui, _ *gocui.View) error {
	u.searchActive = false
	_ = gui.DeleteView(viewSearch)
	return nil
}

// --- help ---

func (u *UI) toggleHelp(*gocui.Gui, *gocui.View) error {
	if u.form != nil || u.login != nil || u.searchActive {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	_ = gui.DeleteView(viewHelp)
	return nil
}

func (u *UI) inputActive() bool {
	return u.form != nil || u.login != nil || u.searchActive || u.helpActive
}

// --- editor ---

// Edit routes keystrokes to whichever input box is open.
func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || view == nil {
		return false
	}

	switch view.Name() {
	case viewSearch:
		ui.searchValue = editValue(ui.searchValue, key, ch, mod)
		view.Clear()
		fmt.Fprint(view, ui.searchValue)
		view.SetCursor(len([]rune(ui.searchValue)), 0)
		return true
	case viewLogin:
		if ui.login == nil {
			return false
		}
		field := &ui.login.fields[ui.login.index]
		field.Value = editValue(field.Value, key, ch, mod)
		ui.renderLogin(view)
		return true
	case viewForm:
		if ui.form == nil {
			return false
		}
		field := &ui.form.fields[ui.form.index]
		if isCycleField(field.Label) {
			switch key {
			case gocui.KeyArrowRight, gocui.KeySpace:
				field.Value = nextEnumValue(field.Label, field.Value, 1)
			case gocui.KeyArrowLeft:
				field.Value = nextEnumValue(field.Label, field.Value, -1)
			}
			ui.renderForm(view)
			return true
		}
		field.Value = editValue(field.Value, key, ch, mod)
		ui.renderForm(view)
		return true
	}
	return false
}

func editValue(value string, key gocui.Key, ch rune, mod gocui.Modifier) string {
	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(value)
		if len(runes) > 0 {
			return string(runes[:len(runes)-1])
		}
		return value
	case gocui.KeySpace:
		return value + " "
	case gocui.KeyCtrlU:
		return ""
	}
	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		return value + string(ch)
	}
	return value
}
