package a2a

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/mcp/tools"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
	"github.com/pierre-fitness/pierre-core/internal/store"
)

// Worker drives the Task state machine from Pending to Running to a
// terminal state (spec §9: "submit creates a row with Pending, a worker
// moves it to Running, completion writes Completed|Failed"). Each task's
// task_type is dispatched as a tool name against the same tools.Registry
// tools/call uses, so a task is an asynchronous wrapper around a tool
// call rather than a second execution mechanism. Grounded on
// internal/cache.Cache's ticker+done sweeper idiom.
type Worker struct {
	deps     Deps
	interval time.Duration
	batch    int
	done     chan struct{}
}

func NewWorker(deps Deps, interval time.Duration, batch int) *Worker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batch <= 0 {
		batch = 20
	}
	return &Worker{deps: deps, interval: interval, batch: batch, done: make(chan struct{})}
}

func (w *Worker) Run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.poll()
		case <-w.done:
			return
		}
	}
}

func (w *Worker) Close() { close(w.done) }

func (w *Worker) poll() {
	ctx := context.Background()
	tasks, err := w.deps.Store.ListPendingTasks(ctx, w.batch)
	if err != nil {
		log.Error().Err(err).Msg("a2a worker: failed to list pending tasks")
		return
	}
	for i := range tasks {
		w.execute(ctx, &tasks[i])
	}
}

func (w *Worker) execute(ctx context.Context, task *store.Task) {
	if err := w.deps.Store.TransitionTask(ctx, task.ID, store.TaskRunning, nil, nil); err != nil {
		// Another worker instance may have already claimed this task; not fatal.
		return
	}

	principal, err := w.principalForClient(ctx, task.ClientID)
	if err != nil {
		msg := err.Error()
		_ = w.deps.Store.TransitionTask(ctx, task.ID, store.TaskFailed, nil, &msg)
		return
	}

	logger := log.With().
		Str("task_id", task.ID.String()).
		Str("tenant_id", principal.TenantID).
		Str("task_type", task.TaskType).
		Logger()
	toolCtx := tools.NewToolContext(&logger, *principal, w.deps.Upstream, w.deps.Providers, w.deps.Intelligence, w.deps.Cache)

	enabled, err := w.deps.Selector.IsToolEnabled(ctx, principal.TenantID, task.TaskType)
	if err != nil || !enabled {
		msg := "task_type is not an enabled tool for this tenant"
		_ = w.deps.Store.TransitionTask(ctx, task.ID, store.TaskFailed, nil, &msg)
		return
	}

	result, err := w.deps.Registry.Call(ctx, toolCtx, tools.CallRequest{Name: task.TaskType, Arguments: task.InputData})
	if err != nil {
		msg := err.Error()
		_ = w.deps.Store.TransitionTask(ctx, task.ID, store.TaskFailed, nil, &msg)
		return
	}

	callResult, ok := result.(tools.CallResult)
	if ok && callResult.IsError {
		msg := "tool execution reported an error"
		if len(callResult.Content) > 0 {
			msg = callResult.Content[0].Text
		}
		_ = w.deps.Store.TransitionTask(ctx, task.ID, store.TaskFailed, nil, &msg)
		return
	}

	output, _ := json.Marshal(result)
	if err := w.deps.Store.TransitionTask(ctx, task.ID, store.TaskCompleted, output, nil); err != nil {
		log.Error().Err(err).Str("task_id", task.ID.String()).Msg("a2a worker: failed to mark task completed")
	}
}

func (w *Worker) principalForClient(ctx context.Context, clientID string) (*auth.Principal, error) {
	client, err := w.deps.Store.GetOAuth2Client(ctx, clientID)
	if err != nil {
		return nil, err
	}
	owner, err := w.deps.Store.GetUserByID(ctx, client.OwnerUserID)
	if err != nil {
		return nil, err
	}
	var tenantID string
	if owner.TenantID != nil {
		tenantID = owner.TenantID.String()
	}
	if tenantID == "" {
		return nil, pierreerr.New(pierreerr.KindConflict, "task owner has no tenant")
	}
	return &auth.Principal{
		ID:       clientID,
		Kind:     auth.PrincipalA2AClient,
		UserID:   owner.ID.String(),
		TenantID: tenantID,
		Tier:     owner.Tier,
	}, nil
}
