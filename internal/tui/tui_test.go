package tui

import (
	"context"
	"testing"
	"time"

	"github.com/jesseduffield/gocui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/db"
	"github.com/taskdeck/taskdeck/internal/manager"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/session"
)

func newTestUI(t *testing.T) *UI {
	t.Helper()

	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	mgr := manager.New(db.NewStore(conn), session.NewStore(session.DefaultTTL))
	ui := &UI{mgr: mgr, refreshEvery: time.Second}
	ui.editor = &formEditor{ui: ui}
	return ui
}

func loginTestUI(t *testing.T, ui *UI, username string) {
	t.Helper()
	ctx := context.Background()
	_, err := ui.mgr.Register(ctx, username, "secret1", "")
	require.NoError(t, err)
	sess, err := ui.mgr.Login(ctx, username, "secret1")
	require.NoError(t, err)
	ui.token = sess.Token
	ui.username = sess.Username
}

func TestParseTaskInput(t *testing.T) {
	fields := buildTaskFormFields(nil)
	fields[fieldTitle].Value = "  Buy milk  "
	fields[fieldCategory].Value = "Shopping"
	fields[fieldPriority].Value = "High"
	fields[fieldDue].Value = "2025-07-20"

	in, err := parseTaskInput(fields)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", in.Title)
	assert.Equal(t, "Shopping", in.Category)
	assert.Equal(t, model.PriorityHigh, in.Priority)
	require.NotNil(t, in.DueDate)
	assert.Equal(t, 20, in.DueDate.Day())
}

func TestParseTaskInputRejectsBadDue(t *testing.T) {
	fields := buildTaskFormFields(nil)
	fields[fieldTitle].Value = "x"
	fields[fieldDue].Value = "next tuesday"

	_, err := parseTaskInput(fields)
	assert.Error(t, err)
}

func TestParseTaskUpdateClearsDue(t *testing.T) {
	due := time.Date(2025, 7, 20, 0, 0, 0, 0, time.Local)
	task := &model.Task{
		Title:    "Buy milk",
		Status:   model.StatusPending,
		Priority: model.PriorityHigh,
		DueDate:  &due,
	}
	fields := buildTaskFormFields(task)
	assert.Equal(t, "2025-07-20", fields[fieldDue].Value)

	fields[fieldDue].Value = ""
	upd, err := parseTaskUpdate(fields)
	require.NoError(t, err)
	assert.Nil(t, upd.DueDate)
	assert.True(t, upd.ClearDue)
	require.NotNil(t, upd.Status)
	assert.Equal(t, model.StatusPending, *upd.Status)
}

func TestNextEnumValueCycles(t *testing.T) {
	assert.Equal(t, "high", nextEnumValue("Priority", "medium", 1))
	assert.Equal(t, "low", nextEnumValue("Priority", "urgent", 1))
	assert.Equal(t, "urgent", nextEnumValue("Priority", "low", -1))
	assert.Equal(t, "in_progress", nextEnumValue("Status", "pending", 1))
	assert.Equal(t, "cancelled", nextEnumValue("Status", "pending", -1))
}

func TestEditValue(t *testing.T) {
	assert.Equal(t, "ab", editValue("a", 0, 'b', 0))
	assert.Equal(t, "a", editValue("ab", gocui.KeyBackspace, 0, 0))
	assert.Equal(t, "", editValue("", gocui.KeyBackspace2, 0, 0))
	assert.Equal(t, "a ", editValue("a", gocui.KeySpace, 0, 0))
	assert.Equal(t, "", editValue("abc", gocui.KeyCtrlU, 0, 0))
}

func TestFormatTaskRowMarksOverdue(t *testing.T) {
	now := time.Date(2025, 7, 25, 0, 0, 0, 0, time.UTC)
	due := time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC)

	task := model.Task{ID: 1, Title: "late", Status: model.StatusPending, Priority: model.PriorityHigh, DueDate: &due}
	assert.Contains(t, formatTaskRow(task, now), "!")

	task.Status = model.StatusCompleted
	assert.NotContains(t, formatTaskRow(task, now), "!")
}

func TestCycleStatusFilter(t *testing.T) {
	ui := newTestUI(t)

	var seen []string
	for range 5 {
		require.NoError(t, ui.cycleStatusFilter(nil, nil))
		seen = append(seen, ui.statusFilter)
	}
	assert.Equal(t, []string{"pending", "in_progress", "completed", "cancelled", ""}, seen)
}

func TestMoveSelectionStaysInBounds(t *testing.T) {
	ui := newTestUI(t)
	ui.tasks = make([]model.Task, 2)

	require.NoError(t, ui.moveUp(nil, nil))
	assert.Equal(t, 0, ui.selected)

	require.NoError(t, ui.moveDown(nil, nil))
	require.NoError(t, ui.moveDown(nil, nil))
	assert.Equal(t, 1, ui.selected)
}

func TestActionsRequireLogin(t *testing.T) {
	ui := newTestUI(t)

	require.NoError(t, ui.addTask(nil, nil))
	assert.Nil(t, ui.form)
	assert.Contains(t, ui.status, "login first")
}

func TestLoadTasksScopedToUser(t *testing.T) {
	ui := newTestUI(t)
	loginTestUI(t, ui, "alice")

	ctx := context.Background()
	_, err := ui.mgr.CreateTask(ctx, ui.token, manager.TaskInput{Title: "mine"})
	require.NoError(t, err)

	require.NoError(t, ui.loadTasks())
	require.Len(t, ui.tasks, 1)
	assert.Equal(t, "mine", ui.tasks[0].Title)
}

func TestToggleStatusRoundTrip(t *testing.T) {
	ui := newTestUI(t)
	loginTestUI(t, ui, "alice")

	ctx := context.Background()
	_, err := ui.mgr.CreateTask(ctx, ui.token, manager.TaskInput{Title: "work"})
	require.NoError(t, err)
	require.NoError(t, ui.loadTasks())

	require.NoError(t, ui.toggleStatus(model.StatusCompleted))
	require.Len(t, ui.tasks, 1)
	assert.Equal(t, model.StatusCompleted, ui.tasks[0].Status)

	// Toggling again returns the task to pending.
	require.NoError(t, ui.toggleStatus(model.StatusCompleted))
	assert.Equal(t, model.StatusPending, ui.tasks[0].Status)
}
