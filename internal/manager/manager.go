// Package manager is the business layer between the storage layer and
// the frontends: it authenticates users, owns session issuance, and
// performs task operations scoped by the caller's permissions.
package manager

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskdeck/taskdeck/internal/apperr"
	"github.com/taskdeck/taskdeck/internal/db"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/session"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

type Manager struct {
	store    *db.Store
	sessions *session.Store
}

func New(store *db.Store, sessions *session.Store) *Manager {
	return &Manager{store: store, sessions: sessions}
}

// TaskInput describes a new task. Category and AssignedTo are resolved
// by name case-insensitively; empty means unset.
type TaskInput struct {
	Title       string
	Description string
	Category    string
	AssignedTo  string
	Priority    model.Priority
	DueDate     *time.Time
}

// TaskUpdate describes a partial update. Nil fields are left unchanged;
// a pointer to the empty string clears Category or AssignedTo.
type TaskUpdate struct {
	Title       *string
	Description *string
	Category    *string
	AssignedTo  *string
	Status      *model.Status
	Priority    *model.Priority
	DueDate     *time.Time
	ClearDue    bool
}

// ListOptions narrows ListTasks. Without All, results are scoped to the
// session user when a valid token is supplied.
type ListOptions struct {
	Status   string
	Category string
	Assignee string
	Query    string
	All      bool
}

// --- auth ---

func (m *Manager) Register(ctx context.Context, username, password, email string) (model.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen {
		return model.User{}, apperr.Validation("username must be at least %d characters long", minUsernameLen)
	}
	if len(password) < minPasswordLen {
		return model.User{}, apperr.Validation("password must be at least %d characters long", minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, apperr.Storage(err, "hash password")
	}

	user, err := m.store.CreateUser(ctx, username, string(hash), strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return model.User{}, apperr.Validation("username %q already exists", username)
		}
		return model.User{}, storeErr(err, "create user")
	}
	return user, nil
}

// Login verifies credentials and issues a session token. The failure
// message does not reveal whether the username exists.
func (m *Manager) Login(ctx context.Context, username, password string) (session.Session, error) {
	username = strings.TrimSpace(username)

	userID, hash, err := m.store.Credentials(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return session.Session{}, apperr.Auth("invalid username or password")
		}
		return session.Session{}, storeErr(err, "look up user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return session.Session{}, apperr.Auth("invalid username or password")
	}

	if err := m.store.TouchLastLogin(ctx, userID, time.Now()); err != nil {
		return session.Session{}, storeErr(err, "record login")
	}

	return m.sessions.Create(userID, username), nil
}

// Logout removes the session. Idempotent.
func (m *Manager) Logout(token string) {
	m.sessions.Delete(token)
}

// CurrentUser resolves the session token to its user.
func (m *Manager) CurrentUser(ctx context.Context, token string) (model.User, error) {
	sess, ok := m.sessions.Get(token)
	if !ok {
		return model.User{}, apperr.Auth("not logged in or session expired")
	}
	user, err := m.store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return model.User{}, storeErr(err, "load session user")
	}
	return user, nil
}

func (m *Manager) ActiveSessions() []session.Session {
	return m.sessions.Active()
}

func (m *Manager) PruneSessions() int {
	return m.sessions.Prune()
}

// --- tasks ---

func (m *Manager) CreateTask(ctx context.Context, token string, in TaskInput) (model.Task, error) {
	sess, ok := m.sessions.Get(token)
	if !ok {
		return model.Task{}, apperr.Auth("not logged in or session expired")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Task{}, apperr.Validation("task title cannot be empty")
	}

	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.IsValidPriority(priority) {
		return model.Task{}, apperr.Validation("invalid priority %q (valid: low, medium, high, urgent)", priority)
	}

	categoryID, err := m.resolveCategory(ctx, in.Category)
	if err != nil {
		return model.Task{}, err
	}
	assignedTo, err := m.resolveUser(ctx, in.AssignedTo)
	if err != nil {
		return model.Task{}, err
	}

	creator := sess.UserID
	task, err := m.store.CreateTask(ctx, db.TaskInput{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		CategoryID:  categoryID,
		AssignedTo:  assignedTo,
		CreatedBy:   &creator,
		Status:      model.StatusPending,
		Priority:    priority,
		DueDate:     in.DueDate,
	})
	if err != nil {
		return model.Task{}, storeErr(err, "create task")
	}
	return task, nil
}

func (m *Manager) GetTask(ctx context.Context, id int64) (model.Task, error) {
	task, err := m.store.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.Task{}, apperr.NotFound("task %d not found", id)
		}
		return model.Task{}, storeErr(err, "load task")
	}
	return task, nil
}

func (m *Manager) UpdateTask(ctx context.Context, token string, id int64, upd TaskUpdate) (model.Task, error) {
	sess, ok := m.sessions.Get(token)
	if !ok {
		return model.Task{}, apperr.Auth("not logged in or session expired")
	}

	task, err := m.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	allowed, err := m.canModify(ctx, task, sess.UserID)
	if err != nil {
		return model.Task{}, err
	}
	if !allowed {
		return model.Task{}, apperr.Permission("task %d belongs to someone else", id)
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return model.Task{}, apperr.Validation("task title cannot be empty")
		}
		task.Title = title
	}
	if upd.Description != nil {
		task.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Priority != nil {
		if !model.IsValidPriority(*upd.Priority) {
			return model.Task{}, apperr.Validation("invalid priority %q (valid: low, medium, high, urgent)", *upd.Priority)
		}
		task.Priority = *upd.Priority
	}
	if upd.Status != nil {
		if !model.IsValidStatus(*upd.Status) {
			return model.Task{}, apperr.Validation("invalid status %q (valid: pending, in_progress, completed, cancelled)", *upd.Status)
		}
		task.Status = *upd.Status
		if task.Status == model.StatusCompleted {
			now := time.Now().UTC()
			task.CompletedAt = &now
		} else {
			task.CompletedAt = nil
		}
	}
	if upd.Category != nil {
		categoryID, err := m.resolveCategory(ctx, *upd.Category)
		if err != nil {
			return model.Task{}, err
		}
		task.CategoryID = categoryID
	}
	if upd.AssignedTo != nil {
		assignedTo, err := m.resolveUser(ctx, *upd.AssignedTo)
		if err != nil {
			return model.Task{}, err
		}
		task.AssignedTo = assignedTo
	}
	if upd.DueDate != nil {
		task.DueDate = upd.DueDate
	} else if upd.ClearDue {
		task.DueDate = nil
	}

	updated, err := m.store.UpdateTask(ctx, task)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.Task{}, apperr.NotFound("task %d not found", id)
		}
		return model.Task{}, storeErr(err, "update task")
	}
	return updated, nil
}

// UpdateTaskStatus is the common status-only update.
func (m *Manager) UpdateTaskStatus(ctx context.Context, token string, id int64, status model.Status) (model.Task, error) {
	return m.UpdateTask(ctx, token, id, TaskUpdate{Status: &status})
}

func (m *Manager) DeleteTask(ctx context.Context, token string, id int64) error {
	sess, ok := m.sessions.Get(token)
	if !ok {
		return apperr.Auth("not logged in or session expired")
	}

	task, err := m.GetTask(ctx, id)
	if err != nil {
		return err
	}

	allowed, err := m.canModify(ctx, task, sess.UserID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperr.Permission("task %d belongs to someone else", id)
	}

	if err := m.store.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound("task %d not found", id)
		}
		return storeErr(err, "delete task")
	}
	return nil
}

// ListTasks returns tasks for the caller. Without a valid token, or with
// All set, results are unscoped.
func (m *Manager) ListTasks(ctx context.Context, token string, opts ListOptions) ([]model.Task, error) {
	var filter model.Filter

	if !opts.All {
		if sess, ok := m.sessions.Get(token); ok {
			uid := sess.UserID
			filter.UserID = &uid
		}
	}

	if opts.Status != "" {
		status := model.Status(opts.Status)
		if !model.IsValidStatus(status) {
			return nil, apperr.Validation("invalid status %q (valid: pending, in_progress, completed, cancelled)", opts.Status)
		}
		filter.Status = status
	}
	if opts.Category != "" {
		categoryID, err := m.resolveCategory(ctx, opts.Category)
		if err != nil {
			return nil, err
		}
		filter.CategoryID = categoryID
	}
	if opts.Assignee != "" {
		assignee, err := m.resolveUser(ctx, opts.Assignee)
		if err != nil {
			return nil, err
		}
		filter.AssignedTo = assignee
	}
	filter.Query = strings.TrimSpace(opts.Query)

	tasks, err := m.store.ListTasks(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "list tasks")
	}
	return tasks, nil
}

// SearchTasks matches the query against title and description,
// case-insensitive, scoped to the caller's tasks.
func (m *Manager) SearchTasks(ctx context.Context, token, query string) ([]model.Task, error) {
	return m.ListTasks(ctx, token, ListOptions{Query: query})
}

// --- assignments ---

func (m *Manager) AssignTask(ctx context.Context, token string, taskID int64, username string) error {
	sess, ok := m.sessions.Get(token)
	if !ok {
		return apperr.Auth("not logged in or session expired")
	}

	if _, err := m.GetTask(ctx, taskID); err != nil {
		return err
	}
	user, err := m.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound("user %q not found", username)
		}
		return storeErr(err, "look up user")
	}

	assigner := sess.UserID
	if err := m.store.AddAssignment(ctx, taskID, user.ID, &assigner); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return apperr.Validation("user %q is already assigned to task %d", username, taskID)
		}
		return storeErr(err, "assign task")
	}
	return nil
}

func (m *Manager) UnassignTask(ctx context.Context, token string, taskID int64, username string) error {
	if _, ok := m.sessions.Get(token); !ok {
		return apperr.Auth("not logged in or session expired")
	}

	user, err := m.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound("user %q not found", username)
		}
		return storeErr(err, "look up user")
	}

	if err := m.store.RemoveAssignment(ctx, taskID, user.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound("user %q is not assigned to task %d", username, taskID)
		}
		return storeErr(err, "unassign task")
	}
	return nil
}

func (m *Manager) ListAssignees(ctx context.Context, taskID int64) ([]model.Assignment, error) {
	assignments, err := m.store.ListAssignees(ctx, taskID)
	if err != nil {
		return nil, storeErr(err, "list assignees")
	}
	return assignments, nil
}

// --- categories, users, reporting ---

func (m *Manager) AddCategory(ctx context.Context, token, name, description, color string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, apperr.Validation("category name cannot be empty")
	}
	if color == "" {
		color = "#0078D4"
	}

	var createdBy *int64
	if sess, ok := m.sessions.Get(token); ok {
		uid := sess.UserID
		createdBy = &uid
	}

	cat, err := m.store.CreateCategory(ctx, name, strings.TrimSpace(description), color, createdBy)
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return model.Category{}, apperr.Validation("category %q already exists", name)
		}
		return model.Category{}, storeErr(err, "create category")
	}
	return cat, nil
}

func (m *Manager) ListCategories(ctx context.Context) ([]model.Category, error) {
	cats, err := m.store.ListCategories(ctx)
	if err != nil {
		return nil, storeErr(err, "list categories")
	}
	return cats, nil
}

func (m *Manager) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := m.store.ListUsers(ctx)
	if err != nil {
		return nil, storeErr(err, "list users")
	}
	return users, nil
}

// Stats aggregates counts scoped to the session user, or globally with
// all set or without a valid session.
func (m *Manager) Stats(ctx context.Context, token string, all bool) (model.Stats, error) {
	var userID *int64
	if !all {
		if sess, ok := m.sessions.Get(token); ok {
			uid := sess.UserID
			userID = &uid
		}
	}

	stats, err := m.store.Statistics(ctx, userID)
	if err != nil {
		return model.Stats{}, storeErr(err, "load statistics")
	}
	return stats, nil
}

// Summary describes the session user's tasks.
func (m *Manager) Summary(ctx context.Context, token string) (model.Summary, error) {
	sess, ok := m.sessions.Get(token)
	if !ok {
		return model.Summary{}, apperr.Auth("not logged in or session expired")
	}

	tasks, err := m.ListTasks(ctx, token, ListOptions{})
	if err != nil {
		return model.Summary{}, err
	}

	now := time.Now()
	summary := model.Summary{TotalTasks: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case model.StatusPending:
			summary.Pending++
		case model.StatusInProgress:
			summary.InProgress++
		case model.StatusCompleted:
			summary.Completed++
		}
		if t.Overdue(now) {
			summary.Overdue++
		}
		if t.AssignedTo != nil && *t.AssignedTo == sess.UserID {
			summary.AssignedToMe++
		}
		if t.CreatedBy != nil && *t.CreatedBy == sess.UserID {
			summary.CreatedByMe++
		}
	}
	return summary, nil
}

// --- helpers ---

// canModify reports whether userID created the task, is its assignee, or
// holds an assignment row.
func (m *Manager) canModify(ctx context.Context, task model.Task, userID int64) (bool, error) {
	if task.CreatedBy != nil && *task.CreatedBy == userID {
		return true, nil
	}
	if task.AssignedTo != nil && *task.AssignedTo == userID {
		return true, nil
	}
	assigned, err := m.store.AssignmentExists(ctx, task.ID, userID)
	if err != nil {
		return false, storeErr(err, "check assignment")
	}
	return assigned, nil
}

func (m *Manager) resolveCategory(ctx context.Context, name string) (*int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	cat, err := m.store.GetCategoryByName(ctx, name)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.NotFound("category %q not found", name)
		}
		return nil, storeErr(err, "look up category")
	}
	return &cat.ID, nil
}

func (m *Manager) resolveUser(ctx context.Context, username string) (*int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	user, err := m.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.NotFound("user %q not found", username)
		}
		return nil, storeErr(err, "look up user")
	}
	return &user.ID, nil
}

// storeErr wraps unexpected storage failures, passing through errors that
// already carry a kind.
func storeErr(err error, what string) error {
	if apperr.KindOf(err) != apperr.KindUnknown {
		return err
	}
	return apperr.Storage(err, "%s", what)
}
