// Package coordinator implements the ingestion job/work-unit state machine
// and the FOR UPDATE SKIP LOCKED work-claim protocol (C5). Grounded on the
// teacher's checkpoint/resume bookkeeping in internal/progress, generalized
// from a single file's progress row to a queue of claimable work-unit rows.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nishad/bdp/internal/apperrors"
	"github.com/nishad/bdp/internal/models"
)

const (
	defaultWorkUnitSize = 500
	heartbeatInterval   = 30 * time.Second
	staleMultiplier     = 5
	staleThreshold      = heartbeatInterval * staleMultiplier
)

// Coordinator owns the ingestion_jobs/work_units tables.
type Coordinator struct {
	pool *pgxpool.Pool
}

// New returns a Coordinator backed by pool.
func New(pool *pgxpool.Pool) *Coordinator {
	return &Coordinator{pool: pool}
}

// CreateJobParams are the inputs to CreateJob.
type CreateJobParams struct {
	OrganizationID  uuid.UUID
	JobType         string
	ExternalVersion string
	InternalVersion string
	SourceURL       string
	SourceMetadata  []byte
}

// CreateJob inserts a pending job row. If a completed job already exists
// for (organization_id, job_type, external_version), that job's id is
// returned with alreadyCompleted set and no new row is created — the
// idempotency key spec.md §4.5 requires. Callers must check
// alreadyCompleted before driving the returned id through StartDownload
// and the rest of the phase-transition sequence: those transitions only
// accept a job in 'pending', so replaying them against an already-completed
// id fails with an illegal-transition error instead of the no-op the
// idempotency key is supposed to provide.
func (c *Coordinator) CreateJob(ctx context.Context, p CreateJobParams) (id uuid.UUID, alreadyCompleted bool, err error) {
	const op = apperrors.Op("coordinator.create_job")

	var existing uuid.UUID
	err = c.pool.QueryRow(ctx, `
		SELECT id FROM ingestion_jobs
		WHERE organization_id = $1 AND job_type = $2 AND external_version = $3 AND status = 'completed'
	`, p.OrganizationID, p.JobType, p.ExternalVersion).Scan(&existing)
	if err == nil {
		return existing, true, nil
	}
	if err != pgx.ErrNoRows {
		return uuid.Nil, false, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	err = c.pool.QueryRow(ctx, `
		INSERT INTO ingestion_jobs (organization_id, job_type, external_version, internal_version, status, source_url, source_metadata)
		VALUES ($1, $2, $3, $4, 'pending', NULLIF($5, ''), $6)
		RETURNING id
	`, p.OrganizationID, p.JobType, p.ExternalVersion, p.InternalVersion, p.SourceURL, p.SourceMetadata).Scan(&id)
	if err != nil {
		return uuid.Nil, false, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	return id, false, nil
}

// JobRecordCounts returns the records_processed/records_stored columns for
// an existing job, used to rebuild a RunStats when CreateJob reports
// alreadyCompleted and the rest of the ingest pipeline is skipped.
func (c *Coordinator) JobRecordCounts(ctx context.Context, jobID uuid.UUID) (processed, stored int64, err error) {
	const op = apperrors.Op("coordinator.job_record_counts")
	err = c.pool.QueryRow(ctx, `
		SELECT records_processed, records_stored FROM ingestion_jobs WHERE id = $1
	`, jobID).Scan(&processed, &stored)
	if err != nil {
		return 0, 0, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	return processed, stored, nil
}

// jobTransitions lists each job state's legal predecessor, enforcing
// forward-only edges; the any-state→failed edge spec.md §4.5 defines is
// applied by FailJob, not through this map.
var jobTransitions = map[models.JobStatus][]models.JobStatus{
	models.JobDownloading: {models.JobPending},
	models.JobParsing:     {models.JobDownloading},
	models.JobStoring:     {models.JobParsing},
	models.JobCompleted:   {models.JobStoring},
}

func (c *Coordinator) transitionJob(ctx context.Context, op apperrors.Op, jobID uuid.UUID, to models.JobStatus) error {
	allowed, ok := jobTransitions[to]
	if !ok {
		return apperrors.E(op, apperrors.KindValidation, fmt.Errorf("unknown target state %q", to))
	}

	tag, err := c.pool.Exec(ctx, `
		UPDATE ingestion_jobs SET status = $1 WHERE id = $2 AND status = ANY($3)
	`, to, jobID, statusStrings(allowed))
	if err != nil {
		return apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.E(op, apperrors.KindConflict, fmt.Errorf("illegal transition to %q for job %s", to, jobID))
	}
	return nil
}

func statusStrings(statuses []models.JobStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// StartDownload transitions pending → downloading.
func (c *Coordinator) StartDownload(ctx context.Context, jobID uuid.UUID) error {
	return c.transitionJob(ctx, "coordinator.start_download", jobID, models.JobDownloading)
}

// StartParse transitions downloading → parsing.
func (c *Coordinator) StartParse(ctx context.Context, jobID uuid.UUID) error {
	return c.transitionJob(ctx, "coordinator.start_parse", jobID, models.JobParsing)
}

// StartStore transitions parsing → storing.
func (c *Coordinator) StartStore(ctx context.Context, jobID uuid.UUID) error {
	return c.transitionJob(ctx, "coordinator.start_store", jobID, models.JobStoring)
}

// CreateWorkUnits partitions [0, totalRecords) into fixed-size windows and
// inserts one pending row per window, returning the unit count.
func (c *Coordinator) CreateWorkUnits(ctx context.Context, jobID uuid.UUID, phase models.WorkUnitPhase, totalRecords int64) (int, error) {
	const op = apperrors.Op("coordinator.create_work_units")

	if totalRecords <= 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	n := 0
	for start := int64(0); start < totalRecords; start += defaultWorkUnitSize {
		end := start + defaultWorkUnitSize
		if end > totalRecords {
			end = totalRecords
		}
		batch.Queue(`
			INSERT INTO work_units (job_id, phase, batch_number, start_offset, end_offset, status)
			VALUES ($1, $2, $3, $4, $5, 'pending')
		`, jobID, phase, n, start, end)
		n++
	}

	br := c.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return 0, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}
	}
	return n, nil
}

// CompleteJob transitions storing → completed, but only when every work
// unit for the job is completed. processed/stored are persisted onto the
// job row so a later CreateJob idempotency hit can rebuild a RunStats
// without replaying the run.
func (c *Coordinator) CompleteJob(ctx context.Context, jobID uuid.UUID, processed, stored int64) error {
	const op = apperrors.Op("coordinator.complete_job")

	var incomplete int
	err := c.pool.QueryRow(ctx, `
		SELECT count(*) FROM work_units WHERE job_id = $1 AND status != 'completed'
	`, jobID).Scan(&incomplete)
	if err != nil {
		return apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	if incomplete > 0 {
		return apperrors.E(op, apperrors.KindConflict, fmt.Errorf("job %s has %d incomplete work units", jobID, incomplete))
	}

	tag, err := c.pool.Exec(ctx, `
		UPDATE ingestion_jobs
		SET status = 'completed', completed_at = now(), records_processed = $2, records_stored = $3
		WHERE id = $1 AND status = 'storing'
	`, jobID, processed, stored)
	if err != nil {
		return apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.E(op, apperrors.KindConflict, fmt.Errorf("job %s not in storing state", jobID))
	}
	return nil
}

// FailJob marks a job terminally failed from any non-terminal state.
func (c *Coordinator) FailJob(ctx context.Context, jobID uuid.UUID, cause error) error {
	const op = apperrors.Op("coordinator.fail_job")
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	tag, err := c.pool.Exec(ctx, `
		UPDATE ingestion_jobs SET status = 'failed', last_error = $2, completed_at = now()
		WHERE id = $1 AND status NOT IN ('completed', 'failed')
	`, jobID, msg)
	if err != nil {
		return apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.E(op, apperrors.KindConflict, fmt.Errorf("job %s already terminal", jobID))
	}
	return nil
}

// ClaimWorkUnit atomically selects one pending unit for jobID using
// FOR UPDATE SKIP LOCKED, marks it claimed, and returns it. Returns
// (nil, nil) when no pending units remain.
func (c *Coordinator) ClaimWorkUnit(ctx context.Context, jobID uuid.UUID, workerID string) (*models.WorkUnit, error) {
	const op = apperrors.Op("coordinator.claim_work_unit")

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	defer tx.Rollback(ctx)

	var u models.WorkUnit
	err = tx.QueryRow(ctx, `
		SELECT id, job_id, phase, batch_number, start_offset, end_offset, status, retries
		FROM work_units
		WHERE job_id = $1 AND status = 'pending'
		ORDER BY batch_number
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, jobID).Scan(&u.ID, &u.JobID, &u.Phase, &u.BatchNumber, &u.StartOffset, &u.EndOffset, &u.Status, &u.Retries)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	now := time.Now()
	if _, err := tx.Exec(ctx, `
		UPDATE work_units SET status = 'claimed', worker_id = $2, claimed_at = $3, heartbeat_at = $3
		WHERE id = $1
	`, u.ID, workerID, now); err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	u.Status = models.WorkUnitClaimed
	u.WorkerID = &workerID
	u.ClaimedAt = &now
	u.HeartbeatAt = &now
	return &u, nil
}

// Heartbeat touches heartbeat_at for a claimed unit.
func (c *Coordinator) Heartbeat(ctx context.Context, unitID uuid.UUID) error {
	_, err := c.pool.Exec(ctx, `UPDATE work_units SET heartbeat_at = now() WHERE id = $1 AND status = 'claimed'`, unitID)
	if err != nil {
		return apperrors.E(apperrors.Op("coordinator.heartbeat"), apperrors.KindTransientDatabase, err)
	}
	return nil
}

// ReclaimStale forces claimed units whose heartbeat is older than
// staleThreshold back to pending, returning how many were reclaimed.
func (c *Coordinator) ReclaimStale(ctx context.Context) (int, error) {
	tag, err := c.pool.Exec(ctx, `
		UPDATE work_units SET status = 'pending', worker_id = NULL, claimed_at = NULL, heartbeat_at = NULL
		WHERE status = 'claimed' AND heartbeat_at < $1
	`, time.Now().Add(-staleThreshold))
	if err != nil {
		return 0, apperrors.E(apperrors.Op("coordinator.reclaim_stale"), apperrors.KindTransientDatabase, err)
	}
	return int(tag.RowsAffected()), nil
}

// CompleteWorkUnit transitions claimed → completed.
func (c *Coordinator) CompleteWorkUnit(ctx context.Context, unitID uuid.UUID) error {
	tag, err := c.pool.Exec(ctx, `UPDATE work_units SET status = 'completed' WHERE id = $1 AND status = 'claimed'`, unitID)
	if err != nil {
		return apperrors.E(apperrors.Op("coordinator.complete_work_unit"), apperrors.KindTransientDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.E(apperrors.Op("coordinator.complete_work_unit"), apperrors.KindConflict, fmt.Errorf("unit %s not claimed", unitID))
	}
	return nil
}

// FailWorkUnit transitions claimed → failed and records the error and
// retry count.
func (c *Coordinator) FailWorkUnit(ctx context.Context, unitID uuid.UUID, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	tag, err := c.pool.Exec(ctx, `
		UPDATE work_units SET status = 'failed', last_error = $2, retries = retries + 1
		WHERE id = $1 AND status = 'claimed'
	`, unitID, msg)
	if err != nil {
		return apperrors.E(apperrors.Op("coordinator.fail_work_unit"), apperrors.KindTransientDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.E(apperrors.Op("coordinator.fail_work_unit"), apperrors.KindConflict, fmt.Errorf("unit %s not claimed", unitID))
	}
	return nil
}
