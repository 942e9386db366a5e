package dag_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flightledger/core/internal/dag"
	"github.com/flightledger/core/pkg/logger"
)

func TestNewScheduler_AcceptsStandardFiveFieldExpression(t *testing.T) {
	runner := newTestRunner(t, []dag.Task{{Name: "a", Fn: ok(map[string]any{"done": true})}})
	scheduler, err := dag.NewScheduler("0 2 1 * *", runner, logger.NewDefault("dag_scheduler_test"))
	require.NoError(t, err)
	require.NotNil(t, scheduler)
}

func TestNewScheduler_RejectsMalformedSchedule(t *testing.T) {
	runner := newTestRunner(t, []dag.Task{{Name: "a", Fn: ok(nil)}})
	_, err := dag.NewScheduler("not a cron expression", runner, logger.NewDefault("dag_scheduler_test"))
	require.Error(t, err)
}
