package orchestrator

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nishad/bdp/internal/apperrors"
	"github.com/nishad/bdp/internal/ingest/coordinator"
	"github.com/nishad/bdp/internal/metrics"
	"github.com/nishad/bdp/internal/models"
)

// WorkerCount picks M = min(maxWorkers, total/batchSize + 1), spec.md
// §4.7's default worker-pool sizing formula.
func WorkerCount(maxWorkers, totalRecords, batchSize int) int {
	if batchSize <= 0 {
		batchSize = 1
	}
	m := totalRecords/batchSize + 1
	if m > maxWorkers {
		m = maxWorkers
	}
	if m < 1 {
		m = 1
	}
	return m
}

// RunWorkers spawns workerCount goroutines that each loop
// claim → process → complete against jobID until the queue is drained,
// via coordinator c. process is called once per claimed unit; a non-nil
// return fails the unit (coordinator.FailWorkUnit) rather than aborting
// the whole pool, so one bad chunk doesn't stop its siblings.
func RunWorkers(ctx context.Context, c *coordinator.Coordinator, jobID uuid.UUID, workerCount int, workerIDPrefix string, process func(ctx context.Context, unit *models.WorkUnit) error) error {
	const op = apperrors.Op("orchestrator.run_workers")

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workerCount; i++ {
		workerID := workerIDFor(workerIDPrefix, i)
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				unit, err := c.ClaimWorkUnit(gctx, jobID, workerID)
				if err != nil {
					return apperrors.Wrap(op, err)
				}
				if unit == nil {
					return nil // queue drained
				}
				metrics.QueueDepth.WithLabelValues(workerIDPrefix).Dec()

				timer := metrics.NewTimer()
				if err := process(gctx, unit); err != nil {
					timer.ObserveDurationVec(metrics.WorkUnitDuration, workerIDPrefix)
					metrics.WorkUnitsTotal.WithLabelValues(workerIDPrefix, "failed").Inc()
					if failErr := c.FailWorkUnit(gctx, unit.ID, err); failErr != nil {
						return apperrors.Wrap(op, failErr)
					}
					continue
				}
				timer.ObserveDurationVec(metrics.WorkUnitDuration, workerIDPrefix)
				metrics.WorkUnitsTotal.WithLabelValues(workerIDPrefix, "completed").Inc()
				if err := c.CompleteWorkUnit(gctx, unit.ID); err != nil {
					return apperrors.Wrap(op, err)
				}
			}
		})
	}
	return g.Wait()
}

func workerIDFor(prefix string, i int) string {
	if prefix == "" {
		prefix = "worker"
	}
	return prefix + "-" + uuid.NewString()[:8] + "-" + strconv.Itoa(i)
}
