package writer

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nishad/bdp/internal/apperrors"
)

// BundleWriter creates the post-ingest aggregate entries spec.md §4.6
// describes: a single "uniprot-all" bundle depending on every protein
// entry in a release, plus one per-organism bundle per unique taxonomy id.
type BundleWriter struct {
	pool *pgxpool.Pool
}

// NewBundleWriter returns a writer backed by pool.
func NewBundleWriter(pool *pgxpool.Pool) *BundleWriter {
	return &BundleWriter{pool: pool}
}

// BuildUniProtBundles creates or updates the uniprot-all bundle and one
// per-organism bundle for every protein entry stored under externalVersion
// in this organization.
func (b *BundleWriter) BuildUniProtBundles(ctx context.Context, orgID uuid.UUID, internalVersion, externalVersion string) error {
	const op = apperrors.Op("writer.bundle.build_uniprot_bundles")

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT re.id, pm.organism_id
		FROM registry_entries re
		JOIN data_sources ds ON ds.id = re.id
		JOIN protein_metadata pm ON pm.data_source_id = ds.id
		JOIN versions v ON v.entry_id = re.id
		WHERE re.organization_id = $1 AND v.external_version = $2 AND ds.source_type = 'protein'
	`, orgID, externalVersion)
	if err != nil {
		return apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	var allEntries []uuid.UUID
	byOrganism := make(map[string][]uuid.UUID)
	for rows.Next() {
		var entryID uuid.UUID
		var organismID *uuid.UUID
		if err := rows.Scan(&entryID, &organismID); err != nil {
			rows.Close()
			return apperrors.E(op, apperrors.KindTransientDatabase, err)
		}
		allEntries = append(allEntries, entryID)
		if organismID != nil {
			byOrganism[organismID.String()] = append(byOrganism[organismID.String()], entryID)
		}
	}
	rows.Close()

	if err := b.upsertBundle(ctx, tx, orgID, "uniprot-all", "All UniProt entries for "+externalVersion, internalVersion, externalVersion, allEntries); err != nil {
		return err
	}
	for organismID, entries := range byOrganism {
		slug := "uniprot-organism-" + organismID
		if err := b.upsertBundle(ctx, tx, orgID, slug, "UniProt entries for organism "+organismID, internalVersion, externalVersion, entries); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	return nil
}

func (b *BundleWriter) upsertBundle(ctx context.Context, tx pgx.Tx, orgID uuid.UUID, slug, name, internalVersion, externalVersion string, members []uuid.UUID) error {
	const op = apperrors.Op("writer.bundle.upsert_bundle")

	var entryID uuid.UUID
	if err := tx.QueryRow(ctx, `
		INSERT INTO registry_entries (organization_id, slug, name, entry_type)
		VALUES ($1, $2, $3, 'data_source')
		ON CONFLICT (organization_id, slug) DO UPDATE SET name = excluded.name
		RETURNING id
	`, orgID, slug, name).Scan(&entryID); err != nil {
		return apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO data_sources (id, source_type)
		VALUES ($1, 'bundle')
		ON CONFLICT (id) DO NOTHING
	`, entryID); err != nil {
		return apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	var versionID uuid.UUID
	if err := tx.QueryRow(ctx, `
		INSERT INTO versions (entry_id, version, external_version, version_major, version_minor, version_patch, status, dependency_count, published_at)
		VALUES ($1, $2, $3, 0, 1, 0, 'published', $4, now())
		ON CONFLICT (entry_id, version) DO UPDATE SET external_version = excluded.external_version, dependency_count = excluded.dependency_count
		RETURNING id
	`, entryID, internalVersion, externalVersion, len(members)).Scan(&versionID); err != nil {
		return apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM dependencies WHERE version_id = $1`, versionID); err != nil {
		return apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	for _, memberID := range members {
		if _, err := tx.Exec(ctx, `
			INSERT INTO dependencies (version_id, depends_on_entry_id, depends_on_version, dependency_type)
			VALUES ($1, $2, $3, 'required')
		`, versionID, memberID, internalVersion); err != nil {
			return apperrors.E(op, apperrors.KindTransientDatabase, err)
		}
	}
	return nil
}
