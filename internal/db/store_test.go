package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/model"
)

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return NewStore(db), func() {
		_ = db.Close()
	}
}

func newTestUser(t *testing.T, store *Store, username string) model.User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), username, "x", "")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	user := newTestUser(t, store, "alice")
	if user.ID == 0 {
		t.Fatalf("expected user ID to be set")
	}

	_, err := store.CreateUser(context.Background(), "alice", "y", "")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestGetUserByUsernameIsCaseInsensitive(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	created := newTestUser(t, store, "Alice")

	got, err := store.GetUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected user %d, got %d", created.ID, got.ID)
	}

	_, err = store.GetUserByUsername(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSeededCategoriesPresent(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	cats, err := store.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	names := map[string]string{}
	for _, cat := range cats {
		names[cat.Name] = cat.Color
	}
	for _, want := range []string{"Work", "Personal", "Shopping", "Health", "Education"} {
		if _, ok := names[want]; !ok {
			t.Fatalf("expected seeded category %q", want)
		}
	}
	if names["Work"] != "#0078D4" {
		t.Fatalf("expected Work color #0078D4, got %q", names["Work"])
	}
}

func TestCreateTaskRoundTrip(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	user := newTestUser(t, store, "alice")
	cat, err := store.GetCategoryByName(context.Background(), "work")
	if err != nil {
		t.Fatalf("get category: %v", err)
	}

	due := time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC)
	created, err := store.CreateTask(context.Background(), TaskInput{
		Title:      "Buy milk",
		CategoryID: &cat.ID,
		CreatedBy:  &user.ID,
		AssignedTo: &user.ID,
		Status:     model.StatusPending,
		Priority:   model.PriorityMedium,
		DueDate:    &due,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected task ID to be set")
	}

	got, err := store.GetTask(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != "Buy milk" {
		t.Fatalf("expected title 'Buy milk', got %q", got.Title)
	}
	if got.CategoryName != "Work" {
		t.Fatalf("expected category name 'Work', got %q", got.CategoryName)
	}
	if got.AssignedToUsername != "alice" {
		t.Fatalf("expected assignee 'alice', got %q", got.AssignedToUsername)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("expected due date %v, got %v", due, got.DueDate)
	}
}

func TestListTasksOrdersByDueDateNullsLast(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	user := newTestUser(t, store, "alice")
	mk := func(title string, due *time.Time) model.Task {
		t.Helper()
		task, err := store.CreateTask(context.Background(), TaskInput{
			Title:     title,
			CreatedBy: &user.ID,
			Status:    model.StatusPending,
			Priority:  model.PriorityMedium,
			DueDate:   due,
		})
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		return task
	}

	jul25 := time.Date(2025, 7, 25, 0, 0, 0, 0, time.UTC)
	jul20 := time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC)
	mk("later", &jul25)
	mk("no due", nil)
	mk("soonest first", &jul20)
	mk("soonest second", &jul20)

	tasks, err := store.ListTasks(context.Background(), model.Filter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	want := []string{"soonest first", "soonest second", "later", "no due"}
	if len(titles) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(titles))
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("position %d: expected %q, got %q (order %v)", i, want[i], titles[i], titles)
		}
	}
}

func TestListTasksUserScopeIncludesAssignments(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	alice := newTestUser(t, store, "alice")
	bob := newTestUser(t, store, "bob")

	mine, err := store.CreateTask(ctx, TaskInput{
		Title: "mine", CreatedBy: &alice.ID,
		Status: model.StatusPending, Priority: model.PriorityLow,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	assigned, err := store.CreateTask(ctx, TaskInput{
		Title: "assigned to me", CreatedBy: &bob.ID, AssignedTo: &alice.ID,
		Status: model.StatusPending, Priority: model.PriorityLow,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	shared, err := store.CreateTask(ctx, TaskInput{
		Title: "shared", CreatedBy: &bob.ID,
		Status: model.StatusPending, Priority: model.PriorityLow,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := store.AddAssignment(ctx, shared.ID, alice.ID, &bob.ID); err != nil {
		t.Fatalf("add assignment: %v", err)
	}
	if _, err := store.CreateTask(ctx, TaskInput{
		Title: "not mine", CreatedBy: &bob.ID,
		Status: model.StatusPending, Priority: model.PriorityLow,
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	tasks, err := store.ListTasks(ctx, model.Filter{UserID: &alice.ID})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	ids := map[int64]bool{}
	for _, task := range tasks {
		ids[task.ID] = true
	}
	if len(tasks) != 3 || !ids[mine.ID] || !ids[assigned.ID] || !ids[shared.ID] {
		t.Fatalf("expected tasks %d, %d, %d, got %v", mine.ID, assigned.ID, shared.ID, ids)
	}
}

func TestListTasksQueryMatchesTitleAndDescription(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	user := newTestUser(t, store, "alice")
	for _, in := range []TaskInput{
		{Title: "Buy groceries", Description: "milk and eggs"},
		{Title: "Call dentist", Description: "reschedule"},
	} {
		in.CreatedBy = &user.ID
		in.Status = model.StatusPending
		in.Priority = model.PriorityMedium
		if _, err := store.CreateTask(ctx, in); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	tasks, err := store.ListTasks(ctx, model.Filter{Query: "MILK"})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Buy groceries" {
		t.Fatalf("expected only 'Buy groceries', got %v", tasks)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	_, err := store.UpdateTask(context.Background(), model.Task{
		ID: 999, Title: "ghost",
		Status: model.StatusPending, Priority: model.PriorityLow,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTaskRemovesAssignments(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	alice := newTestUser(t, store, "alice")
	bob := newTestUser(t, store, "bob")

	task, err := store.CreateTask(ctx, TaskInput{
		Title: "shared", CreatedBy: &alice.ID,
		Status: model.StatusPending, Priority: model.PriorityLow,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := store.AddAssignment(ctx, task.ID, bob.ID, &alice.ID); err != nil {
		t.Fatalf("add assignment: %v", err)
	}

	if err := store.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if _, err := store.GetTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	exists, err := store.AssignmentExists(ctx, task.ID, bob.ID)
	if err != nil {
		t.Fatalf("assignment exists: %v", err)
	}
	if exists {
		t.Fatalf("expected assignments to be removed with the task")
	}

	if err := store.DeleteTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAddAssignmentRejectsDuplicates(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	alice := newTestUser(t, store, "alice")
	bob := newTestUser(t, store, "bob")

	task, err := store.CreateTask(ctx, TaskInput{
		Title: "shared", CreatedBy: &alice.ID,
		Status: model.StatusPending, Priority: model.PriorityLow,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := store.AddAssignment(ctx, task.ID, bob.ID, &alice.ID); err != nil {
		t.Fatalf("add assignment: %v", err)
	}
	if err := store.AddAssignment(ctx, task.ID, bob.ID, &alice.ID); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on re-assignment, got %v", err)
	}

	assignees, err := store.ListAssignees(ctx, task.ID)
	if err != nil {
		t.Fatalf("list assignees: %v", err)
	}
	if len(assignees) != 1 || assignees[0].Username != "bob" {
		t.Fatalf("expected single assignee bob, got %v", assignees)
	}
}

func TestStatisticsCountsByStatusAndCategory(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	user := newTestUser(t, store, "alice")
	work, err := store.GetCategoryByName(ctx, "Work")
	if err != nil {
		t.Fatalf("get category: %v", err)
	}

	for _, status := range []model.Status{
		model.StatusPending, model.StatusPending, model.StatusCompleted,
	} {
		if _, err := store.CreateTask(ctx, TaskInput{
			Title: "t", CreatedBy: &user.ID, CategoryID: &work.ID,
			Status: status, Priority: model.PriorityMedium,
		}); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	stats, err := store.Statistics(ctx, nil)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalTasks != 3 {
		t.Fatalf("expected 3 tasks, got %d", stats.TotalTasks)
	}
	if stats.StatusCounts[model.StatusPending] != 2 {
		t.Fatalf("expected 2 pending, got %d", stats.StatusCounts[model.StatusPending])
	}
	if stats.StatusCounts[model.StatusCompleted] != 1 {
		t.Fatalf("expected 1 completed, got %d", stats.StatusCounts[model.StatusCompleted])
	}
	if stats.CategoryCounts["Work"] != 3 {
		t.Fatalf("expected 3 in Work, got %d", stats.CategoryCounts["Work"])
	}
}
