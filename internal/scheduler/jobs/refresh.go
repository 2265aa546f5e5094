package jobs

import (
	"context"
	"time"

	"github.com/rwaltman/basisengine/internal/engine"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// RefreshJob runs one full engine cycle: quotes, curve, CTDs, pairs,
// ranking, publication.
type RefreshJob struct {
	engine   *engine.Engine
	schedule string
	timeout  time.Duration
	logger   *logger.Logger
}

// NewRefreshJob creates the cycle job. schedule is a seconds-resolution
// cron expression.
func NewRefreshJob(eng *engine.Engine, schedule string, timeout time.Duration, log *logger.Logger) *RefreshJob {
	return &RefreshJob{engine: eng, schedule: schedule, timeout: timeout, logger: log}
}

func (j *RefreshJob) Name() string     { return "engine_refresh" }
func (j *RefreshJob) Schedule() string { return j.schedule }

func (j *RefreshJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	_, err := j.engine.RunCycle(ctx)
	return err
}
