// Package dag declares and runs small dependency graphs of named tasks, used
// to drive the month-end close pipeline. Validation happens once at
// construction; execution cascades a skip to every task downstream of a
// failed or skipped dependency.
package dag

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	ledgererrors "github.com/flightledger/core/infrastructure/errors"
	"github.com/flightledger/core/internal/audit"
	"github.com/flightledger/core/internal/domain/dagrun"
	"github.com/flightledger/core/pkg/logger"
	"github.com/flightledger/core/pkg/storage"
)

// TaskFunc performs one unit of work and returns a result payload (or nil).
type TaskFunc func(ctx context.Context) (map[string]any, error)

// Task is one named unit of work with its upstream dependencies.
type Task struct {
	Name      string
	DependsOn []string
	Fn        TaskFunc
}

// DAG is a named, declared set of tasks.
type DAG struct {
	Name  string
	Tasks []Task
}

// TaskResult is one task's outcome within a run.
type TaskResult struct {
	TaskName     string
	Status       dagrun.Status
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage *string
	Result       map[string]any
}

// RunResult is the outcome of one full DAG execution.
type RunResult struct {
	RunID       string
	DAGName     string
	Status      dagrun.Status
	TaskResults []TaskResult
}

// Runner validates a DAG once at construction and executes it any number of
// times against the same dependency order.
type Runner struct {
	dag            DAG
	audit          *audit.Store
	dagRuns        storage.DagRunStore
	taskRuns       storage.TaskRunStore
	log            *logger.Logger
	tasksByName    map[string]Task
	executionOrder []string
}

// New validates dag's dependencies and topologically sorts its tasks. It
// returns a ConfigError if a task names an unknown dependency, or a
// CycleError if the dependency graph is circular.
func New(d DAG, auditStore *audit.Store, dagRuns storage.DagRunStore, taskRuns storage.TaskRunStore, log *logger.Logger) (*Runner, error) {
	tasksByName := make(map[string]Task, len(d.Tasks))
	for _, task := range d.Tasks {
		tasksByName[task.Name] = task
	}
	for _, task := range d.Tasks {
		for _, dep := range task.DependsOn {
			if _, ok := tasksByName[dep]; !ok {
				return nil, ledgererrors.Config(fmt.Sprintf("task %q depends on unknown task %q", task.Name, dep))
			}
		}
	}

	visiting := map[string]bool{}
	visited := map[string]bool{}
	var order []string
	var dfs func(name string) error
	dfs = func(name string) error {
		if visiting[name] {
			return ledgererrors.Cycle(name)
		}
		if visited[name] {
			return nil
		}
		visiting[name] = true
		for _, dep := range tasksByName[name].DependsOn {
			if err := dfs(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}
	for _, task := range d.Tasks {
		if err := dfs(task.Name); err != nil {
			return nil, err
		}
	}

	return &Runner{
		dag: d, audit: auditStore, dagRuns: dagRuns, taskRuns: taskRuns, log: log.Named("dag"),
		tasksByName: tasksByName, executionOrder: order,
	}, nil
}

// ExecutionOrder returns the topological task order computed at construction.
func (r *Runner) ExecutionOrder() []string {
	out := make([]string, len(r.executionOrder))
	copy(out, r.executionOrder)
	return out
}

// Run executes every task in dependency order, cascading a skip to any task
// whose dependency failed or was skipped, and persists a dag_run row plus
// one task_run row per task. A task panic is never allowed to propagate: it
// is reported as a failed task_run instead.
func (r *Runner) Run(ctx context.Context) (RunResult, error) {
	now := time.Now().UTC()
	run, err := r.dagRuns.Insert(ctx, dagrun.Run{
		ID: uuid.NewString(), DAGName: r.dag.Name, Status: dagrun.StatusRunning, StartedAt: now,
	})
	if err != nil {
		return RunResult{}, err
	}

	results := make(map[string]TaskResult, len(r.executionOrder))
	taskRunIDs := make(map[string]string, len(r.executionOrder))
	for _, name := range r.executionOrder {
		row, err := r.taskRuns.Insert(ctx, dagrun.TaskRun{
			ID: uuid.NewString(), RunID: run.ID, TaskName: name, Status: dagrun.StatusPending,
		})
		if err != nil {
			return RunResult{}, err
		}
		taskRunIDs[name] = row.ID
		results[name] = TaskResult{TaskName: name, Status: dagrun.StatusPending}
	}

	for _, name := range r.executionOrder {
		task := r.tasksByName[name]
		if r.anyDependencyBlocked(task, results) {
			completedAt := time.Now().UTC()
			results[name] = TaskResult{TaskName: name, Status: dagrun.StatusSkipped, CompletedAt: &completedAt}
			if err := r.taskRuns.Update(ctx, taskRunIDs[name], dagrun.StatusSkipped, nil, nil, nil, &completedAt); err != nil {
				return RunResult{}, err
			}
			continue
		}

		startedAt := time.Now().UTC()
		if err := r.taskRuns.Update(ctx, taskRunIDs[name], dagrun.StatusRunning, nil, nil, &startedAt, nil); err != nil {
			return RunResult{}, err
		}

		result, taskErr := r.runTaskSafely(ctx, task)
		completedAt := time.Now().UTC()
		if taskErr == nil {
			results[name] = TaskResult{TaskName: name, Status: dagrun.StatusSucceeded, StartedAt: &startedAt, CompletedAt: &completedAt, Result: result}
			if err := r.taskRuns.Update(ctx, taskRunIDs[name], dagrun.StatusSucceeded, result, nil, &startedAt, &completedAt); err != nil {
				return RunResult{}, err
			}
			if r.audit != nil {
				ref := run.ID + ":" + name
				if _, err := r.audit.Log(ctx, "task_succeeded", "dag_runner", nil, nil, &ref,
					map[string]any{"dag_name": r.dag.Name, "task_name": name, "result": result}, nil); err != nil {
					return RunResult{}, err
				}
			}
		} else {
			msg := taskErr.Error()
			results[name] = TaskResult{TaskName: name, Status: dagrun.StatusFailed, StartedAt: &startedAt, CompletedAt: &completedAt, ErrorMessage: &msg}
			if err := r.taskRuns.Update(ctx, taskRunIDs[name], dagrun.StatusFailed, nil, &msg, &startedAt, &completedAt); err != nil {
				return RunResult{}, err
			}
			if r.audit != nil {
				ref := run.ID + ":" + name
				if _, err := r.audit.Log(ctx, "task_failed", "dag_runner", nil, nil, &ref,
					map[string]any{"dag_name": r.dag.Name, "task_name": name, "error": msg}, nil); err != nil {
					return RunResult{}, err
				}
			}
		}
	}

	finalStatus := dagrun.StatusSucceeded
	for _, result := range results {
		if result.Status == dagrun.StatusFailed {
			finalStatus = dagrun.StatusFailed
			break
		}
	}
	endedAt := time.Now().UTC()
	if err := r.dagRuns.UpdateStatus(ctx, run.ID, finalStatus, &endedAt); err != nil {
		return RunResult{}, err
	}

	taskResults := make([]TaskResult, 0, len(r.executionOrder))
	for _, name := range r.executionOrder {
		taskResults = append(taskResults, results[name])
	}
	r.log.WithFields(map[string]interface{}{
		"dag_name": r.dag.Name, "run_id": run.ID, "status": finalStatus,
	}).Infow("dag run complete")
	return RunResult{RunID: run.ID, DAGName: r.dag.Name, Status: finalStatus, TaskResults: taskResults}, nil
}

func (r *Runner) anyDependencyBlocked(task Task, results map[string]TaskResult) bool {
	for _, dep := range task.DependsOn {
		if status := results[dep].Status; status == dagrun.StatusFailed || status == dagrun.StatusSkipped {
			return true
		}
	}
	return false
}

func (r *Runner) runTaskSafely(ctx context.Context, task Task) (result map[string]any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()
	return task.Fn(ctx)
}

// GetRun returns one dag_run together with its task_run rows, sorted by task
// name.
func (r *Runner) GetRun(ctx context.Context, runID string) (*dagrun.Run, []dagrun.TaskRun, error) {
	run, err := r.dagRuns.Get(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if run == nil {
		return nil, nil, nil
	}
	tasks, err := r.taskRuns.GetByRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TaskName < tasks[j].TaskName })
	return run, tasks, nil
}
