package dag_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flightledger/core/internal/audit"
	"github.com/flightledger/core/internal/dag"
	"github.com/flightledger/core/internal/domain/dagrun"
	"github.com/flightledger/core/pkg/logger"
	"github.com/flightledger/core/pkg/storage/memory"
)

func newTestRunner(t *testing.T, tasks []dag.Task) *dag.Runner {
	repos := memory.NewRepositories()
	log := logger.NewDefault("dag_test")
	auditStore := audit.New(repos.Audit, log)
	runner, err := dag.New(dag.DAG{Name: "month_end_close", Tasks: tasks}, auditStore, repos.DagRuns, repos.TaskRuns, log)
	require.NoError(t, err)
	return runner
}

func ok(result map[string]any) dag.TaskFunc {
	return func(ctx context.Context) (map[string]any, error) { return result, nil }
}

func fails(msg string) dag.TaskFunc {
	return func(ctx context.Context) (map[string]any, error) { return nil, errors.New(msg) }
}

func TestNew_RejectsUnknownDependency(t *testing.T) {
	repos := memory.NewRepositories()
	log := logger.NewDefault("dag_test")
	auditStore := audit.New(repos.Audit, log)
	_, err := dag.New(dag.DAG{Name: "bad", Tasks: []dag.Task{
		{Name: "a", DependsOn: []string{"missing"}, Fn: ok(nil)},
	}}, auditStore, repos.DagRuns, repos.TaskRuns, log)
	require.Error(t, err)
}

func TestNew_DetectsCycle(t *testing.T) {
	repos := memory.NewRepositories()
	log := logger.NewDefault("dag_test")
	auditStore := audit.New(repos.Audit, log)
	_, err := dag.New(dag.DAG{Name: "cyclic", Tasks: []dag.Task{
		{Name: "a", DependsOn: []string{"b"}, Fn: ok(nil)},
		{Name: "b", DependsOn: []string{"a"}, Fn: ok(nil)},
	}}, auditStore, repos.DagRuns, repos.TaskRuns, log)
	require.Error(t, err)
}

func TestExecutionOrder_RespectsDependencies(t *testing.T) {
	runner := newTestRunner(t, []dag.Task{
		{Name: "c", DependsOn: []string{"a", "b"}, Fn: ok(nil)},
		{Name: "a", DependsOn: nil, Fn: ok(nil)},
		{Name: "b", DependsOn: []string{"a"}, Fn: ok(nil)},
	})
	order := runner.ExecutionOrder()
	indexOf := func(name string) int {
		for i, n := range order {
			if n == name {
				return i
			}
		}
		return -1
	}
	require.Less(t, indexOf("a"), indexOf("b"))
	require.Less(t, indexOf("b"), indexOf("c"))
}

func TestRun_AllTasksSucceed(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner(t, []dag.Task{
		{Name: "match", DependsOn: nil, Fn: ok(map[string]any{"matched": 3})},
		{Name: "recon", DependsOn: []string{"match"}, Fn: ok(map[string]any{"breaks": 0})},
	})

	result, err := runner.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, dagrun.StatusSucceeded, result.Status)
	require.Len(t, result.TaskResults, 2)
	for _, tr := range result.TaskResults {
		require.Equal(t, dagrun.StatusSucceeded, tr.Status)
	}
}

func TestRun_FailureCascadesSkipToDependents(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner(t, []dag.Task{
		{Name: "match", DependsOn: nil, Fn: fails("matching backend unavailable")},
		{Name: "recon", DependsOn: []string{"match"}, Fn: ok(nil)},
		{Name: "settle", DependsOn: []string{"recon"}, Fn: ok(nil)},
	})

	result, err := runner.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, dagrun.StatusFailed, result.Status)

	byName := map[string]dag.TaskResult{}
	for _, tr := range result.TaskResults {
		byName[tr.TaskName] = tr
	}
	require.Equal(t, dagrun.StatusFailed, byName["match"].Status)
	require.Equal(t, dagrun.StatusSkipped, byName["recon"].Status)
	require.Equal(t, dagrun.StatusSkipped, byName["settle"].Status)
}

func TestRun_TaskPanicIsReportedAsFailedNotPropagated(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner(t, []dag.Task{
		{Name: "flaky", DependsOn: nil, Fn: func(ctx context.Context) (map[string]any, error) {
			panic("unexpected nil pointer")
		}},
	})

	result, err := runner.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, dagrun.StatusFailed, result.Status)
	require.NotNil(t, result.TaskResults[0].ErrorMessage)
}

func TestGetRun_ReturnsTasksSortedByName(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner(t, []dag.Task{
		{Name: "zeta", DependsOn: nil, Fn: ok(nil)},
		{Name: "alpha", DependsOn: nil, Fn: ok(nil)},
	})

	result, err := runner.Run(ctx)
	require.NoError(t, err)

	run, tasks, err := runner.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Len(t, tasks, 2)
	require.Equal(t, "alpha", tasks[0].TaskName)
	require.Equal(t, "zeta", tasks[1].TaskName)
}

func TestGetRun_UnknownRunReturnsNil(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner(t, []dag.Task{{Name: "a", Fn: ok(nil)}})

	run, tasks, err := runner.GetRun(ctx, "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, run)
	require.Nil(t, tasks)
}
