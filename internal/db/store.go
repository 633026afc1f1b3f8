package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/taskdeck/taskdeck/internal/apperr"
	"github.com/taskdeck/taskdeck/internal/model"
)

// Sentinel errors the manager layer matches with errors.Is.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Store wraps the sqlite database. All access is serialized behind one
// mutex; every write runs inside a transaction. SQLITE_BUSY from another
// process sharing the file is retried with increasing delay before a
// storage error surfaces.
type Store struct {
	db *sql.DB
	mu sync.Mutex

	retries    int
	retryDelay time.Duration
}

type TaskInput struct {
	Title       string
	Description string
	CategoryID  *int64
	AssignedTo  *int64
	CreatedBy   *int64
	Status      model.Status
	Priority    model.Priority
	DueDate     *time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, retries: 5, retryDelay: 50 * time.Millisecond}
}

// SetRetryPolicy overrides the busy-retry attempts and base delay.
func (s *Store) SetRetryPolicy(retries int, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries = retries
	s.retryDelay = delay
}

func (s *Store) Close() error {
	return s.db.Close()
}

// run executes fn under the store lock, retrying busy failures with a
// linearly increasing delay.
func (s *Store) run(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * s.retryDelay)
		}
		err = fn()
		if err == nil || !isBusy(err) {
			return err
		}
	}
	return apperr.Storage(err, "database busy after %d retries", s.retries)
}

// inTx runs fn inside a transaction, rolling back in full on any failure.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.run(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, username, passwordHash, email string) (model.User, error) {
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO users (username, password_hash, email, created_at)
			VALUES (?, ?, ?, ?)
		`, username, passwordHash, nullString(email), time.Now().UTC())
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("user %q: %w", username, ErrDuplicate)
			}
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return model.User{}, err
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	var user model.User
	err := s.run(func() error {
		row := s.db.QueryRowContext(ctx, `
			SELECT id, username, COALESCE(email, ''), created_at, last_login
			FROM users WHERE id = ?
		`, id)
		return scanUser(row, &user)
	})
	return user, err
}

// GetUserByUsername resolves a username case-insensitively.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	var user model.User
	err := s.run(func() error {
		row := s.db.QueryRowContext(ctx, `
			SELECT id, username, COALESCE(email, ''), created_at, last_login
			FROM users WHERE LOWER(username) = LOWER(?)
		`, username)
		return scanUser(row, &user)
	})
	return user, err
}

// Credentials returns the user id and password hash for an exact username.
func (s *Store) Credentials(ctx context.Context, username string) (int64, string, error) {
	var (
		id   int64
		hash string
	)
	err := s.run(func() error {
		row := s.db.QueryRowContext(ctx, `
			SELECT id, password_hash FROM users WHERE username = ?
		`, username)
		if err := row.Scan(&id, &hash); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("user %q: %w", username, ErrNotFound)
			}
			return err
		}
		return nil
	})
	return id, hash, err
}

func (s *Store) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at.UTC(), userID)
		return err
	})
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.run(func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, username, COALESCE(email, ''), created_at, last_login
			FROM users ORDER BY username
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		users = users[:0]
		for rows.Next() {
			var user model.User
			if err := scanUser(rows, &user); err != nil {
				return err
			}
			users = append(users, user)
		}
		return rows.Err()
	})
	return users, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, user *model.User) error {
	var lastLogin sql.NullTime
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt, &lastLogin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user: %w", ErrNotFound)
		}
		return err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return nil
}

// --- categories ---

func (s *Store) CreateCategory(ctx context.Context, name, description, color string, createdBy *int64) (model.Category, error) {
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name, description, color, created_by, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, name, nullString(description), color, nullInt(createdBy), time.Now().UTC())
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("category %q: %w", name, ErrDuplicate)
			}
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return model.Category{}, err
	}
	return s.GetCategoryByID(ctx, id)
}

func (s *Store) GetCategoryByID(ctx context.Context, id int64) (model.Category, error) {
	var cat model.Category
	err := s.run(func() error {
		row := s.db.QueryRowContext(ctx, categorySelect+` WHERE c.id = ?`, id)
		return scanCategory(row, &cat)
	})
	return cat, err
}

// GetCategoryByName resolves a category name case-insensitively.
func (s *Store) GetCategoryByName(ctx context.Context, name string) (model.Category, error) {
	var cat model.Category
	err := s.run(func() error {
		row := s.db.QueryRowContext(ctx, categorySelect+` WHERE LOWER(c.name) = LOWER(?)`, name)
		return scanCategory(row, &cat)
	})
	return cat, err
}

func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	err := s.run(func() error {
		rows, err := s.db.QueryContext(ctx, categorySelect+` ORDER BY c.name`)
		if err != nil {
			return err
		}
		defer rows.Close()

		cats = cats[:0]
		for rows.Next() {
			var cat model.Category
			if err := scanCategory(rows, &cat); err != nil {
				return err
			}
			cats = append(cats, cat)
		}
		return rows.Err()
	})
	return cats, err
}

const categorySelect = `
	SELECT c.id, c.name, COALESCE(c.description, ''), c.color, c.created_by, c.created_at,
	       COALESCE(u.username, '')
	FROM categories c
	LEFT JOIN users u ON c.created_by = u.id`

func scanCategory(row rowScanner, cat *model.Category) error {
	var createdBy sql.NullInt64
	if err := row.Scan(&cat.ID, &cat.Name, &cat.Description, &cat.Color, &createdBy, &cat.CreatedAt, &cat.CreatedByUsername); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("category: %w", ErrNotFound)
		}
		return err
	}
	if createdBy.Valid {
		v := createdBy.Int64
		cat.CreatedBy = &v
	}
	return nil
}

// --- tasks ---

func (s *Store) CreateTask(ctx context.Context, in TaskInput) (model.Task, error) {
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (title, description, category_id, assigned_to, created_by,
			                   status, priority, due_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, in.Title, nullString(in.Description), nullInt(in.CategoryID), nullInt(in.AssignedTo),
			nullInt(in.CreatedBy), string(in.Status), string(in.Priority), nullTime(in.DueDate), now, now)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return model.Task{}, err
	}
	return s.GetTask(ctx, id)
}

func (s *Store) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var task model.Task
	err := s.run(func() error {
		row := s.db.QueryRowContext(ctx, taskSelect+` WHERE t.id = ?`, id)
		return scanTask(row, &task)
	})
	return task, err
}

// UpdateTask persists all mutable columns of task. The caller loads the
// row, applies changes, and saves it back; updated_at is stamped here.
func (s *Store) UpdateTask(ctx context.Context, task model.Task) (model.Task, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE tasks
			SET title = ?, description = ?, category_id = ?, assigned_to = ?,
			    status = ?, priority = ?, due_date = ?, completed_at = ?, updated_at = ?
			WHERE id = ?
		`, task.Title, nullString(task.Description), nullInt(task.CategoryID), nullInt(task.AssignedTo),
			string(task.Status), string(task.Priority), nullTime(task.DueDate), nullTime(task.CompletedAt),
			time.Now().UTC(), task.ID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("task %d: %w", task.ID, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return s.GetTask(ctx, task.ID)
}

// DeleteTask removes the task and its assignment rows atomically.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_assignments WHERE task_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("task %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// ListTasks returns tasks matching filter, ordered by due date ascending
// with NULL due dates last, ties broken by ascending id.
func (s *Store) ListTasks(ctx context.Context, filter model.Filter) ([]model.Task, error) {
	query := taskSelect
	var (
		conditions []string
		params     []any
	)

	if filter.UserID != nil {
		conditions = append(conditions, `(t.created_by = ? OR t.assigned_to = ? OR EXISTS (
			SELECT 1 FROM task_assignments ta WHERE ta.task_id = t.id AND ta.user_id = ?))`)
		params = append(params, *filter.UserID, *filter.UserID, *filter.UserID)
	}
	if filter.Status != "" {
		conditions = append(conditions, `t.status = ?`)
		params = append(params, string(filter.Status))
	}
	if filter.CategoryID != nil {
		conditions = append(conditions, `t.category_id = ?`)
		params = append(params, *filter.CategoryID)
	}
	if filter.AssignedTo != nil {
		conditions = append(conditions, `t.assigned_to = ?`)
		params = append(params, *filter.AssignedTo)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		conditions = append(conditions, `(INSTR(LOWER(t.title), LOWER(?)) > 0
			OR INSTR(LOWER(COALESCE(t.description, '')), LOWER(?)) > 0)`)
		params = append(params, q, q)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.due_date IS NULL, t.due_date, t.id"

	var tasks []model.Task
	err := s.run(func() error {
		rows, err := s.db.QueryContext(ctx, query, params...)
		if err != nil {
			return err
		}
		defer rows.Close()

		tasks = tasks[:0]
		for rows.Next() {
			var task model.Task
			if err := scanTask(rows, &task); err != nil {
				return err
			}
			tasks = append(tasks, task)
		}
		return rows.Err()
	})
	return tasks, err
}

const taskSelect = `
	SELECT t.id, t.title, COALESCE(t.description, ''), t.category_id, t.assigned_to, t.created_by,
	       t.status, t.priority, t.due_date, t.created_at, t.updated_at, t.completed_at,
	       COALESCE(c.name, ''), COALESCE(c.color, ''),
	       COALESCE(u1.username, ''), COALESCE(u2.username, '')
	FROM tasks t
	LEFT JOIN categories c ON t.category_id = c.id
	LEFT JOIN users u1 ON t.assigned_to = u1.id
	LEFT JOIN users u2 ON t.created_by = u2.id`

func scanTask(row rowScanner, task *model.Task) error {
	var (
		categoryID  sql.NullInt64
		assignedTo  sql.NullInt64
		createdBy   sql.NullInt64
		status      string
		priority    string
		dueDate     sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(&task.ID, &task.Title, &task.Description, &categoryID, &assignedTo, &createdBy,
		&status, &priority, &dueDate, &task.CreatedAt, &task.UpdatedAt, &completedAt,
		&task.CategoryName, &task.CategoryColor, &task.AssignedToUsername, &task.CreatedByUsername)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task: %w", ErrNotFound)
		}
		return err
	}

	task.Status = model.Status(status)
	task.Priority = model.Priority(priority)
	if categoryID.Valid {
		v := categoryID.Int64
		task.CategoryID = &v
	}
	if assignedTo.Valid {
		v := assignedTo.Int64
		task.AssignedTo = &v
	}
	if createdBy.Valid {
		v := createdBy.Int64
		task.CreatedBy = &v
	}
	if dueDate.Valid {
		t := dueDate.Time
		task.DueDate = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	return nil
}

// --- assignments ---

func (s *Store) AddAssignment(ctx context.Context, taskID, userID int64, assignedBy *int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO task_assignments (task_id, user_id, assigned_at, assigned_by)
			VALUES (?, ?, ?, ?)
		`, taskID, userID, time.Now().UTC(), nullInt(assignedBy))
		if err != nil && isUniqueViolation(err) {
			return fmt.Errorf("assignment: %w", ErrDuplicate)
		}
		return err
	})
}

func (s *Store) RemoveAssignment(ctx context.Context, taskID, userID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM task_assignments WHERE task_id = ? AND user_id = ?
		`, taskID, userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("assignment: %w", ErrNotFound)
		}
		return nil
	})
}

func (s *Store) ListAssignees(ctx context.Context, taskID int64) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := s.run(func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT a.id, a.task_id, a.user_id, u.username, a.assigned_at, a.assigned_by
			FROM task_assignments a
			JOIN users u ON a.user_id = u.id
			WHERE a.task_id = ?
			ORDER BY a.assigned_at, a.id
		`, taskID)
		if err != nil {
			return err
		}
		defer rows.Close()

		assignments = assignments[:0]
		for rows.Next() {
			var (
				a          model.Assignment
				assignedBy sql.NullInt64
			)
			if err := rows.Scan(&a.ID, &a.TaskID, &a.UserID, &a.Username, &a.AssignedAt, &assignedBy); err != nil {
				return err
			}
			if assignedBy.Valid {
				v := assignedBy.Int64
				a.AssignedBy = &v
			}
			assignments = append(assignments, a)
		}
		return rows.Err()
	})
	return assignments, err
}

// AssignmentExists reports whether userID has an assignment row on taskID.
func (s *Store) AssignmentExists(ctx context.Context, taskID, userID int64) (bool, error) {
	var exists bool
	err := s.run(func() error {
		row := s.db.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM task_assignments WHERE task_id = ? AND user_id = ?)
		`, taskID, userID)
		return row.Scan(&exists)
	})
	return exists, err
}

// --- statistics ---

// Statistics aggregates task counts, optionally scoped to tasks created
// by or assigned to userID.
func (s *Store) Statistics(ctx context.Context, userID *int64) (model.Stats, error) {
	stats := model.Stats{
		StatusCounts:   make(map[model.Status]int),
		CategoryCounts: make(map[string]int),
	}

	err := s.run(func() error {
		statusQuery := `SELECT status, COUNT(*) FROM tasks`
		var params []any
		if userID != nil {
			statusQuery += ` WHERE assigned_to = ? OR created_by = ?`
			params = append(params, *userID, *userID)
		}
		statusQuery += ` GROUP BY status`

		rows, err := s.db.QueryContext(ctx, statusQuery, params...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				status string
				count  int
			)
			if err := rows.Scan(&status, &count); err != nil {
				return err
			}
			stats.StatusCounts[model.Status(status)] = count
			stats.TotalTasks += count
		}
		if err := rows.Err(); err != nil {
			return err
		}

		categoryQuery := `
			SELECT c.name, COUNT(t.id)
			FROM categories c
			LEFT JOIN tasks t ON c.id = t.category_id`
		var catParams []any
		if userID != nil {
			categoryQuery += ` AND (t.assigned_to = ? OR t.created_by = ?)`
			catParams = append(catParams, *userID, *userID)
		}
		categoryQuery += ` GROUP BY c.id, c.name`

		catRows, err := s.db.QueryContext(ctx, categoryQuery, catParams...)
		if err != nil {
			return err
		}
		defer catRows.Close()

		for catRows.Next() {
			var (
				name  string
				count int
			)
			if err := catRows.Scan(&name, &count); err != nil {
				return err
			}
			stats.CategoryCounts[name] = count
		}
		return catRows.Err()
	})
	return stats, err
}

// --- null helpers ---

func nullString(v string) sql.NullString {
	if strings.TrimSpace(v) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}
