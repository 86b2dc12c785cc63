package writer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nishad/bdp/internal/apperrors"
	"github.com/nishad/bdp/internal/models"
	"github.com/nishad/bdp/internal/parser/interpro"
)

// InterProWriter upserts registry_entries/data_sources/versions/version_files
// for InterPro entries. Like GenBank, there is no dedicated metadata child
// table (spec.md §6); short_name/name live on registry_entries and the
// rendered entry XML is the artifact of record, keyed on the InterPro ID.
type InterProWriter struct {
	pool     *pgxpool.Pool
	uploader *Uploader
}

// NewInterProWriter returns a writer backed by pool, uploading artifacts
// through uploader.
func NewInterProWriter(pool *pgxpool.Pool, uploader *Uploader) *InterProWriter {
	return &InterProWriter{pool: pool, uploader: uploader}
}

// WriteChunk upserts up to chunkSize InterPro entries, keyed on entry ID.
func (w *InterProWriter) WriteChunk(ctx context.Context, p ChunkParams, entries []interpro.Entry) (ChunkStats, error) {
	const op = apperrors.Op("writer.interpro.write_chunk")
	stats := ChunkStats{}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	defer tx.Rollback(ctx)

	versionIDByID := make(map[string]uuid.UUID, len(entries))

	for _, e := range entries {
		if e.ID == "" {
			stats.Skipped++
			continue
		}
		slug := slugify(e.ID)

		var entryID uuid.UUID
		if err := tx.QueryRow(ctx, `
			INSERT INTO registry_entries (organization_id, slug, name, description, entry_type)
			VALUES ($1, $2, $3, NULLIF($4, ''), 'data_source')
			ON CONFLICT (organization_id, slug) DO UPDATE SET name = excluded.name, description = excluded.description
			RETURNING id
		`, p.OrganizationID, slug, e.ShortName, e.Name).Scan(&entryID); err != nil {
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO data_sources (id, source_type, external_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET external_id = excluded.external_id
		`, entryID, string(models.SourceTypeAnnotation), e.ID); err != nil {
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}

		var versionID uuid.UUID
		if err := tx.QueryRow(ctx, `
			INSERT INTO versions (entry_id, version, external_version, version_major, version_minor, version_patch, status, published_at)
			VALUES ($1, $2, $3, $4, $5, $6, 'published', now())
			ON CONFLICT (entry_id, version) DO UPDATE SET external_version = excluded.external_version
			RETURNING id
		`, entryID, p.InternalVersion, p.ExternalVersion, p.VersionMajor, p.VersionMinor, p.VersionPatch).Scan(&versionID); err != nil {
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}
		versionIDByID[e.ID] = versionID
		stats.EntriesWritten++
	}

	var artifacts []Artifact
	for _, e := range entries {
		versionID, ok := versionIDByID[e.ID]
		if !ok {
			continue
		}
		body := renderInterProEntry(e)
		key := fmt.Sprintf("%s/%s/%s.xml", p.Bucket, p.ExternalVersion, slugify(e.ID))
		artifacts = append(artifacts, Artifact{
			VersionID:   versionID.String(),
			Format:      "xml",
			Key:         key,
			Body:        body,
			ContentType: "application/xml",
		})
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

func renderInterProEntry(e interpro.Entry) []byte {
	return []byte(fmt.Sprintf(
		"<interpro id=%q type=%q short_name=%q>\n  <name>%s</name>\n  <abstract>%s</abstract>\n</interpro>\n",
		e.ID, e.Type, e.ShortName, e.Name, e.AbstractXML,
	))
}
