package cronjobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingPruner struct {
	calls atomic.Int32
	err   error
}

func (p *countingPruner) Prune(context.Context) (int, error) {
	p.calls.Add(1)
	return 3, p.err
}

func TestInitCronJobsPrunesAtStartup(t *testing.T) {
	p := &countingPruner{}
	core, logs := observer.New(zap.InfoLevel)

	c, err := InitCronJobs(p, "0 * * * *", zap.New(core))
	require.NoError(t, err)
	<-c.Stop().Done()

	assert.EqualValues(t, 1, p.calls.Load())
	entries := logs.FilterMessage("cache pruned").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 3, entries[0].ContextMap()["removed"])
}

func TestInitCronJobsRejectsBadSchedule(t *testing.T) {
	_, err := InitCronJobs(&countingPruner{}, "whenever", nil)
	assert.Error(t, err)
}

func TestPruneOnceLogsFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	PruneOnce(context.Background(), &countingPruner{err: errors.New("disk full")}, zap.New(core))

	assert.Equal(t, 1, logs.FilterMessage("cache prune failed").Len())
	assert.Zero(t, logs.FilterMessage("cache pruned").Len())
}
