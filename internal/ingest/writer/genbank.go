package writer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nishad/bdp/internal/apperrors"
	"github.com/nishad/bdp/internal/models"
	"github.com/nishad/bdp/internal/parser/genbank"
)

// GenBankWriter upserts registry_entries/data_sources/versions/version_files
// for GenBank and RefSeq records. Unlike UniProt, the schema has no
// dedicated metadata child table for nucleotide records (spec.md §6); the
// definition line lives on registry_entries.description, the organism
// appears only in the rendered FASTA header, and that FASTA is the artifact
// of record.
type GenBankWriter struct {
	pool     *pgxpool.Pool
	uploader *Uploader
}

// NewGenBankWriter returns a writer backed by pool, uploading artifacts
// through uploader.
func NewGenBankWriter(pool *pgxpool.Pool, uploader *Uploader) *GenBankWriter {
	return &GenBankWriter{pool: pool, uploader: uploader}
}

// WriteChunk upserts up to chunkSize GenBank/RefSeq records, keyed on
// accession; the accession.version is stored as data_sources.external_id.
func (w *GenBankWriter) WriteChunk(ctx context.Context, p ChunkParams, records []genbank.Record) (ChunkStats, error) {
	const op = apperrors.Op("writer.genbank.write_chunk")
	stats := ChunkStats{}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	defer tx.Rollback(ctx)

	entryIDByAccession := make(map[string]uuid.UUID, len(records))
	versionIDByAccession := make(map[string]uuid.UUID, len(records))

	for _, r := range records {
		if r.Accession == "" {
			stats.Skipped++
			continue
		}
		slug := slugify(r.Accession)

		var entryID uuid.UUID
		if err := tx.QueryRow(ctx, `
			INSERT INTO registry_entries (organization_id, slug, name, description, entry_type)
			VALUES ($1, $2, $3, NULLIF($4, ''), 'data_source')
			ON CONFLICT (organization_id, slug) DO UPDATE SET name = excluded.name, description = excluded.description
			RETURNING id
		`, p.OrganizationID, slug, r.Locus, r.Definition).Scan(&entryID); err != nil {
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}
		entryIDByAccession[r.Accession] = entryID

		if _, err := tx.Exec(ctx, `
			INSERT INTO data_sources (id, source_type, external_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET external_id = excluded.external_id
		`, entryID, string(models.SourceTypeGenome), r.Version); err != nil {
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
		versionIDByAccession[r.Accession] = versionID
		stats.EntriesWritten++
	}

	var artifacts []Artifact
	for _, r := range records {
		versionID, ok := versionIDByAccession[r.Accession]
		if !ok {
			continue
		}
		body := renderGenBankFASTA(r)
		key := fmt.Sprintf("%s/%s/%s.fasta", p.Bucket, p.ExternalVersion, slugify(r.Accession))
		artifacts = append(artifacts, Artifact{
			VersionID:   versionID.String(),
			Format:      "fasta",
			Key:         key,
			Body:        body,
			ContentType: "text/x-fasta",
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

func renderGenBankFASTA(r genbank.Record) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, ">%s %s [organism=%s]\n", r.Accession, r.Definition, r.Organism)
	for i := 0; i < len(r.Sequence); i += 70 {
		end := i + 70
		if end > len(r.Sequence) {
			end = len(r.Sequence)
		}
		b.WriteString(r.Sequence[i:end])
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
