package cronjobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Pruner drops expired entries and reports how many went.
type Pruner interface {
	Prune(ctx context.Context) (int, error)
}

const pruneTimeout = 30 * time.Second

// PruneOnce runs one sweep and logs the outcome.
func PruneOnce(ctx context.Context, p Pruner, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, pruneTimeout)
	defer cancel()

	n, err := p.Prune(ctx)
	if err != nil {
		logger.Error("cache prune failed", zap.Error(err))
		return
	}
	logger.Info("cache pruned", zap.Int("removed", n))
}

// InitCronJobs runs a prune immediately and then on schedule. The caller stops the
// returned scheduler on shutdown.
func InitCronJobs(p Pruner, schedule string, logger *zap.Logger) (*cron.Cron, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("starting cron jobs", zap.String("prune_schedule", schedule))

	PruneOnce(context.Background(), p, logger)

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		logger.Debug("cronjob: cache prune running")
		PruneOnce(context.Background(), p, logger)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}
