package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nishad/bdp/internal/apperrors"
	"github.com/nishad/bdp/internal/parser/taxdump"
)

// TaxonomyWriter upserts the registry_entries/data_sources/taxonomy_metadata
// ladder for one NCBI Taxonomy release, plus a per-taxon JSON artifact
// (spec.md §6's "<org>/<taxonomy_id>/<internal_version>/taxonomy.json" convention)
// so every published version still satisfies the "≥1 version_file" invariant
// that the other families get from their own per-entry artifacts.
type TaxonomyWriter struct {
	pool     *pgxpool.Pool
	uploader *Uploader
}

// NewTaxonomyWriter returns a writer backed by pool, uploading artifacts
// through uploader.
func NewTaxonomyWriter(pool *pgxpool.Pool, uploader *Uploader) *TaxonomyWriter {
	return &TaxonomyWriter{pool: pool, uploader: uploader}
}

// taxonJSON is the shape rendered as the per-taxon JSON artifact.
type taxonJSON struct {
	TaxonomyID     int    `json:"taxonomy_id"`
	ScientificName string `json:"scientific_name"`
	Rank           string `json:"rank"`
	Lineage        string `json:"lineage"`
}

func renderTaxonJSON(t taxdump.Taxon) []byte {
	body, err := json.Marshal(taxonJSON{
		TaxonomyID:     t.TaxID,
		ScientificName: t.ScientificName,
		Rank:           t.Rank,
		Lineage:        t.Lineage,
	})
	if err != nil {
		return []byte("{}")
	}
	return body
}

// WriteChunk upserts up to chunkSize taxa, keyed on taxonomy_id.
func (w *TaxonomyWriter) WriteChunk(ctx context.Context, p ChunkParams, taxa []taxdump.Taxon) (ChunkStats, error) {
	const op = apperrors.Op("writer.taxonomy.write_chunk")
	stats := ChunkStats{}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	defer tx.Rollback(ctx)

	var artifacts []Artifact
	for _, t := range taxa {
		if t.TaxID == 0 || t.ScientificName == "" {
			stats.Skipped++
			continue
		}
		slug := "taxon-" + strconv.Itoa(t.TaxID)

		var entryID uuid.UUID
		if err := tx.QueryRow(ctx, `
			INSERT INTO registry_entries (organization_id, slug, name, entry_type)
			VALUES ($1, $2, $3, 'data_source')
			ON CONFLICT (organization_id, slug) DO UPDATE SET name = excluded.name
			RETURNING id
		`, p.OrganizationID, slug, t.ScientificName).Scan(&entryID); err != nil {
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO data_sources (id, source_type, external_id)
			VALUES ($1, 'taxonomy', $2)
			ON CONFLICT (id) DO UPDATE SET external_id = excluded.external_id
		`, entryID, strconv.Itoa(t.TaxID)); err != nil {
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO taxonomy_metadata (data_source_id, taxonomy_id, scientific_name, rank, lineage, ncbi_tax_version)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (data_source_id) DO UPDATE SET
				scientific_name = excluded.scientific_name,
				rank = excluded.rank,
				lineage = excluded.lineage,
				ncbi_tax_version = excluded.ncbi_tax_version
		`, entryID, t.TaxID, t.ScientificName, t.Rank, t.Lineage, p.ExternalVersion); err != nil {
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}

		var vID uuid.UUID
		if err := tx.QueryRow(ctx, `
			INSERT INTO versions (entry_id, version, external_version, version_major, version_minor, version_patch, status, published_at)
			VALUES ($1, $2, $3, $4, $5, $6, 'published', now())
			ON CONFLICT (entry_id, version) DO UPDATE SET external_version = excluded.external_version
			RETURNING id
		`, entryID, p.InternalVersion, p.ExternalVersion, p.VersionMajor, p.VersionMinor, p.VersionPatch).Scan(&vID); err != nil {
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}

		artifacts = append(artifacts, Artifact{
			VersionID:   vID.String(),
			Format:      "json",
			Key:         fmt.Sprintf("%s/%d/%s/taxonomy.json", p.Bucket, t.TaxID, p.InternalVersion),
			Body:        renderTaxonJSON(t),
			ContentType: "application/json",
		})

		stats.EntriesWritten++
	}

	uploaded, err := w.uploader.UploadAll(ctx, artifacts)
	if err != nil {
		return stats, apperrors.WrapMsg(op, "upload artifacts", err)
	}
	for _, u := range uploaded {
		if _, err := tx.Exec(ctx, `
			INSERT INTO version_files (version_id, format, s3_key, checksum, size_bytes)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (version_id, format) DO UPDATE SET
				s3_key = excluded.s3_key, checksum = excluded.checksum, size_bytes = excluded.size_bytes
		`, u.VersionID, u.Format, u.S3Key, u.Checksum, u.SizeBytes); err != nil {
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	return stats, nil
}

// ApplyMerges marks every version of a merged-away taxon deprecated.
// Dependencies that point at the old taxon are not rewritten to its
// replacement.
func (w *TaxonomyWriter) ApplyMerges(ctx context.Context, merges []taxdump.Merge) error {
	const op = apperrors.Op("writer.taxonomy.apply_merges")
	for _, m := range merges {
		oldSlug := "taxon-" + strconv.Itoa(m.OldTaxID)
		newSlug := "taxon-" + strconv.Itoa(m.NewTaxID)
		if _, err := w.pool.Exec(ctx, `
			UPDATE versions SET status = 'deprecated'
			WHERE entry_id = (SELECT id FROM registry_entries WHERE slug = $1)
		`, oldSlug); err != nil {
			return apperrors.WrapMsg(op, fmt.Sprintf("deprecate %s in favor of %s", oldSlug, newSlug), err)
		}
	}
	return nil
}

// ApplyDeletions marks every version of a removed taxon deprecated, per
// delnodes.dmp: unlike a merge there is no replacement entry to point at.
func (w *TaxonomyWriter) ApplyDeletions(ctx context.Context, deletions []taxdump.Deletion) error {
	const op = apperrors.Op("writer.taxonomy.apply_deletions")
	for _, d := range deletions {
		slug := "taxon-" + strconv.Itoa(d.TaxID)
		if _, err := w.pool.Exec(ctx, `
			UPDATE versions SET status = 'deprecated'
			WHERE entry_id = (SELECT id FROM registry_entries WHERE slug = $1)
		`, slug); err != nil {
			return apperrors.WrapMsg(op, fmt.Sprintf("deprecate %s", slug), err)
		}
	}
	return nil
}
