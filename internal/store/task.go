package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// TaskStatus is the A2A task lifecycle state (§3: Task).
type TaskStatus string

const (
	TaskPending   TaskStatus = "Pending"
	TaskRunning   TaskStatus = "Running"
	TaskCompleted TaskStatus = "Completed"
	TaskFailed    TaskStatus = "Failed"
	TaskCancelled TaskStatus = "Cancelled"
)

func (st TaskStatus) Terminal() bool {
	switch st {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	default:
		return false
	}
}

// Task mirrors §3's A2A long-running-work entity.
type Task struct {
	ID           uuid.UUID
	ClientID     string
	TaskType     string
	InputData    json.RawMessage
	OutputData   json.RawMessage
	Status       TaskStatus
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func (s *Store) CreateTask(ctx context.Context, clientID, taskType string, input json.RawMessage) (*Task, error) {
	t := &Task{
		ID:        uuid.New(),
		ClientID:  clientID,
		TaskType:  taskType,
		InputData: input,
		Status:    TaskPending,
	}
	const q = `
		INSERT INTO tasks (id, client_id, task_type, input_data, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at`
	err := s.pool.QueryRow(ctx, q, t.ID, t.ClientID, t.TaskType, t.InputData, t.Status).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, translateErr(err, "")
	}
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	const q = `SELECT id, client_id, task_type, input_data, output_data, status, error_message, created_at, updated_at, completed_at FROM tasks WHERE id = $1`
	var t Task
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&t.ID, &t.ClientID, &t.TaskType, &t.InputData, &t.OutputData, &t.Status, &t.ErrorMessage, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt)
	if err != nil {
		return nil, translateErr(err, "task not found")
	}
	return &t, nil
}

func (s *Store) ListTasksByClient(ctx context.Context, clientID string, limit int) ([]Task, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `SELECT id, client_id, task_type, input_data, output_data, status, error_message, created_at, updated_at, completed_at
		FROM tasks WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, q, clientID, limit)
	if err != nil {
		return nil, translateErr(err, "")
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.ClientID, &t.TaskType, &t.InputData, &t.OutputData, &t.Status, &t.ErrorMessage, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt); err != nil {
			return nil, translateErr(err, "")
		}
		tasks = append(tasks, t)
	}
	return tasks, translateErr(rows.Err(), "")
}

// ListPendingTasks returns the oldest pending tasks across all clients, for
// the worker that drives Pending -> Running (spec §9).
func (s *Store) ListPendingTasks(ctx context.Context, limit int) ([]Task, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	const q = `SELECT id, client_id, task_type, input_data, output_data, status, error_message, created_at, updated_at, completed_at
		FROM tasks WHERE status = $1 ORDER BY created_at ASC LIMIT $2`
	rows, err := s.pool.Query(ctx, q, TaskPending, limit)
	if err != nil {
		return nil, translateErr(err, "")
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.ClientID, &t.TaskType, &t.InputData, &t.OutputData, &t.Status, &t.ErrorMessage, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt); err != nil {
			return nil, translateErr(err, "")
		}
		tasks = append(tasks, t)
	}
	return tasks, translateErr(rows.Err(), "")
}

// TransitionTask moves a task to a new status, rejecting transitions out
// of a terminal state (spec §3: "Terminal states are Completed|Failed|Cancelled").
func (s *Store) TransitionTask(ctx context.Context, id uuid.UUID, to TaskStatus, output json.RawMessage, errMsg *string) error {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return pierreerr.New(pierreerr.KindConflict, "task is already in a terminal state")
	}

	var completedAt *time.Time
	if to.Terminal() {
		now := time.Now()
		completedAt = &now
	}

	const q = `UPDATE tasks SET status = $1, output_data = $2, error_message = $3, updated_at = now(), completed_at = $4 WHERE id = $5`
	_, err = s.pool.Exec(ctx, q, to, output, errMsg, completedAt, id)
	return translateErr(err, "")
}
