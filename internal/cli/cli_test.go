package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/db"
	"github.com/taskdeck/taskdeck/internal/manager"
	"github.com/taskdeck/taskdeck/internal/session"
)

// newTestCLI wires a CLI to an in-memory store and a scripted stdin.
// Passwords are read as plain lines from the same script.
func newTestCLI(t *testing.T, script string) (*CLI, *bytes.Buffer) {
	t.Helper()

	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	mgr := manager.New(db.NewStore(conn), session.NewStore(session.DefaultTTL))

	out := &bytes.Buffer{}
	c := &CLI{
		mgr:    mgr,
		in:     bufio.NewReader(strings.NewReader(script)),
		out:    out,
		styles: defaultStyles(),
	}
	c.readPassword = func(string) (string, error) {
		line, err := c.in.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	return c, out
}

func TestRegisterLoginLogout(t *testing.T) {
	script := strings.Join([]string{
		"register",
		"alice",   // username
		"",        // email
		"secret1", // password
		"secret1", // confirm
		"login",
		"alice",
		"secret1",
		"logout",
		"quit",
	}, "\n") + "\n"

	c, out := newTestCLI(t, script)
	require.NoError(t, c.Run())

	text := out.String()
	assert.Contains(t, text, "User 'alice' created successfully")
	assert.Contains(t, text, "Welcome back, alice!")
	assert.Contains(t, text, "Goodbye, alice!")
}

func TestRegisterPasswordMismatch(t *testing.T) {
	script := strings.Join([]string{
		"register",
		"alice",
		"",
		"secret1",
		"different",
		"quit",
	}, "\n") + "\n"

	c, out := newTestCLI(t, script)
	require.NoError(t, c.Run())
	assert.Contains(t, out.String(), "Passwords do not match")
}

func TestTaskFlow(t *testing.T) {
	script := strings.Join([]string{
		"register",
		"alice",
		"",
		"secret1",
		"secret1",
		"login",
		"alice",
		"secret1",
		"add",
		"Buy milk",   // title
		"",           // description
		"Shopping",   // category
		"",           // assignee
		"high",       // priority
		"2025-07-20", // due date
		"list",
		"complete 1",
		"completed",
		"delete 1",
		"y",
		"quit",
	}, "\n") + "\n"

	c, out := newTestCLI(t, script)
	require.NoError(t, c.Run())

	text := out.String()
	assert.Contains(t, text, "created successfully (ID: 1)")
	assert.Contains(t, text, "Buy milk")
	assert.Contains(t, text, "Shopping")
	assert.Contains(t, text, "Task 1 marked as completed")
	assert.Contains(t, text, "Task deleted successfully")
}

func TestCommandsRequireLogin(t *testing.T) {
	script := strings.Join([]string{
		"add",
		"complete 1",
		"delete 1",
		"quit",
	}, "\n") + "\n"

	c, out := newTestCLI(t, script)
	require.NoError(t, c.Run())
	assert.Contains(t, out.String(), "Please login first")
}

func TestUnknownCommand(t *testing.T) {
	c, out := newTestCLI(t, "frobnicate\nquit\n")
	require.NoError(t, c.Run())
	assert.Contains(t, out.String(), "Unknown command: frobnicate")
}

func TestDeleteCancelled(t *testing.T) {
	script := strings.Join([]string{
		"register",
		"alice",
		"",
		"secret1",
		"secret1",
		"login",
		"alice",
		"secret1",
		"add",
		"Keep me",
		"",
		"",
		"",
		"",
		"",
		"delete 1",
		"", // default is N
		"list",
		"quit",
	}, "\n") + "\n"

	c, out := newTestCLI(t, script)
	require.NoError(t, c.Run())

	text := out.String()
	assert.Contains(t, text, "Deletion cancelled")
	assert.Contains(t, text, "Keep me")
}

func TestEOFExitsCleanly(t *testing.T) {
	c, out := newTestCLI(t, "")
	require.NoError(t, c.Run())
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestStatusTitle(t *testing.T) {
	assert.Equal(t, "In Progress", statusTitle("in_progress"))
	assert.Equal(t, "Pending", statusTitle("pending"))
}
