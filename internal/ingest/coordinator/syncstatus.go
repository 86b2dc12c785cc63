package coordinator

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nishad/bdp/internal/apperrors"
	"github.com/nishad/bdp/internal/models"
)

// LastExternalVersion returns the last external version an organization's
// family sync reached, or "" if the organization has never synced. C7's
// Latest mode uses this as the floor for check_for_newer_version.
func (c *Coordinator) LastExternalVersion(ctx context.Context, orgID uuid.UUID) (string, error) {
	const op = apperrors.Op("coordinator.last_external_version")

	var v *string
	err := c.pool.QueryRow(ctx, `
		SELECT last_external_version FROM organization_sync_status WHERE organization_id = $1
	`, orgID).Scan(&v)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

// IngestedVersions returns the set of external versions already recorded as
// completed for (orgID, jobType), used by Historical mode's --skip-existing
// flag to avoid replaying releases already in the registry.
func (c *Coordinator) IngestedVersions(ctx context.Context, orgID uuid.UUID, jobType string) (map[string]bool, error) {
	const op = apperrors.Op("coordinator.ingested_versions")

	rows, err := c.pool.Query(ctx, `
		SELECT external_version FROM ingestion_jobs
		WHERE organization_id = $1 AND job_type = $2 AND status = 'completed'
	`, orgID, jobType)
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}
		out[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	return out, nil
}

// RecordSync upserts the organization's last-known-good sync state after a
// run completes, the way the teacher's tracker checkpoints progress after
// every file so a restart resumes from the right place instead of from
// scratch.
func (c *Coordinator) RecordSync(ctx context.Context, orgID uuid.UUID, internalVersion, externalVersion string, totalEntries int64) error {
	const op = apperrors.Op("coordinator.record_sync")

	_, err := c.pool.Exec(ctx, `
		INSERT INTO organization_sync_status
			(organization_id, last_sync_at, last_version, last_external_version, status, total_entries, last_error)
		VALUES ($1, now(), $2, $3, 'completed', $4, NULL)
		ON CONFLICT (organization_id) DO UPDATE SET
			last_sync_at = now(),
			last_version = EXCLUDED.last_version,
			last_external_version = EXCLUDED.last_external_version,
			status = 'completed',
			total_entries = EXCLUDED.total_entries,
			last_error = NULL
	`, orgID, internalVersion, externalVersion, totalEntries)
	if err != nil {
		return apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	return nil
}

// RecordSyncFailure upserts a failed sync attempt, preserving whatever
// last-good version was already on file.
func (c *Coordinator) RecordSyncFailure(ctx context.Context, orgID uuid.UUID, cause error) error {
	const op = apperrors.Op("coordinator.record_sync_failure")

	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := c.pool.Exec(ctx, `
		INSERT INTO organization_sync_status (organization_id, last_sync_at, status, total_entries, last_error)
		VALUES ($1, now(), 'failed', 0, $2)
		ON CONFLICT (organization_id) DO UPDATE SET
			last_sync_at = now(),
			status = 'failed',
			last_error = EXCLUDED.last_error
	`, orgID, msg)
	if err != nil {
		return apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	return nil
}

// SyncStatus fetches an organization's current sync status row, if any.
func (c *Coordinator) SyncStatus(ctx context.Context, orgID uuid.UUID) (*models.OrganizationSyncStatus, error) {
	const op = apperrors.Op("coordinator.sync_status")

	var s models.OrganizationSyncStatus
	err := c.pool.QueryRow(ctx, `
		SELECT organization_id, last_sync_at, last_version, last_external_version, last_job_id, status, total_entries, last_error
		FROM organization_sync_status WHERE organization_id = $1
	`, orgID).Scan(&s.OrganizationID, &s.LastSyncAt, &s.LastVersion, &s.LastExternalVer, &s.LastJobID, &s.Status, &s.TotalEntries, &s.LastError)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	return &s, nil
}
