package jobs

import (
	"context"
	"time"

	"github.com/rwaltman/basisengine/internal/store"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// MaintenanceJob prunes persisted cycle output past the retention window.
// Runs off-hours; the engine never reads pruned history.
type MaintenanceJob struct {
	curves    *store.CurveRepository
	opps      *store.OpportunityRepository
	orders    *store.OrderRepository
	retention time.Duration
	schedule  string
	logger    *logger.Logger
}

// NewMaintenanceJob creates the prune job.
func NewMaintenanceJob(
	curves *store.CurveRepository,
	opps *store.OpportunityRepository,
	orders *store.OrderRepository,
	retention time.Duration,
	schedule string,
	log *logger.Logger,
) *MaintenanceJob {
	return &MaintenanceJob{
		curves:    curves,
		opps:      opps,
		orders:    orders,
		retention: retention,
		schedule:  schedule,
		logger:    log,
	}
}

func (j *MaintenanceJob) Name() string     { return "store_maintenance" }
func (j *MaintenanceJob) Schedule() string { return j.schedule }

func (j *MaintenanceJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.retention)

	// Opportunities reference curve snapshots, so they go first.
	oppsPruned, err := j.opps.PruneBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	ordersPruned, err := j.orders.PruneBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	curvesPruned, err := j.curves.PruneBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"cutoff":        cutoff,
		"opportunities": oppsPruned,
		"orders":        ordersPruned,
		"curves":        curvesPruned,
	}).Info("Store maintenance completed")

	return nil
}
