package writer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nishad/bdp/internal/apperrors"
	"github.com/nishad/bdp/internal/parser/uniprot"
	"github.com/nishad/bdp/internal/versioning"
)

// UniProtWriter upserts the registry_entries/data_sources/protein_sequences/
// protein_metadata/versions/version_files ladder for one UniProt release,
// one chunk of parsed entries at a time (spec.md §4.6).
type UniProtWriter struct {
	pool     *pgxpool.Pool
	uploader *Uploader
}

// NewUniProtWriter returns a writer backed by pool, uploading artifacts
// through uploader.
func NewUniProtWriter(pool *pgxpool.Pool, uploader *Uploader) *UniProtWriter {
	return &UniProtWriter{pool: pool, uploader: uploader}
}

// ChunkParams identifies the release a chunk belongs to.
type ChunkParams struct {
	OrganizationID  uuid.UUID
	ExternalVersion string // e.g. "2024_03"
	InternalVersion string // e.g. "1.4.0"; used verbatim by writers that version the whole release as one unit (taxonomy, genbank); ignored by UniProtWriter, which bumps per entry via internal/versioning
	VersionMajor    int
	VersionMinor    int
	VersionPatch    int
	Bucket          string // s3 key prefix, e.g. "uniprot"
	Strategy        versioning.Strategy
}

// ChunkStats summarizes one WriteChunk call.
type ChunkStats struct {
	EntriesWritten int
	EntriesUpdated int
	Skipped        int
}

// WriteChunk upserts up to chunkSize entries. It is idempotent: re-running
// it for the same entries and release after a crash converges on the same
// rows, per spec.md §4.5's "idempotent resumption" guarantee.
func (w *UniProtWriter) WriteChunk(ctx context.Context, p ChunkParams, entries []uniprot.Entry) (ChunkStats, error) {
	const op = apperrors.Op("writer.uniprot.write_chunk")
	stats := ChunkStats{}
	skip := apperrors.NewSkipCounter(string(op))

	accessions := make([]string, 0, len(entries))
	slugs := make([]string, 0, len(entries))
	for _, e := range entries {
		acc := e.PrimaryAccession()
		if acc == "" {
			skip.Skip(fmt.Errorf("missing primary accession"), e.EntryName)
			continue
		}
		accessions = append(accessions, acc)
		slugs = append(slugs, slugify(acc))
	}
	if len(accessions) == 0 {
		stats.Skipped = skip.Count
		return stats, nil
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	defer tx.Rollback(ctx)

	// Step 1: natural keys already present (spec.md §4.6 step 1), plus the
	// previously stored sequence checksum so the version step below can
	// detect a sequence change per spec.md §4.8's UniProt breaking-change rule.
	existing := make(map[string]uuid.UUID)
	previousChecksum := make(map[string]string)
	rows, err := tx.Query(ctx, `SELECT accession, data_source_id, sequence_checksum FROM protein_metadata WHERE accession = ANY($1)`, accessions)
	if err != nil {
		return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	for rows.Next() {
		var acc, checksum string
		var id uuid.UUID
		if err := rows.Scan(&acc, &id, &checksum); err != nil {
			rows.Close()
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}
		existing[acc] = id
		previousChecksum[acc] = checksum
	}
	rows.Close()

	// Step 2: upsert registry_entries keyed on (organization_id, slug).
	entryIDBySlug := make(map[string]uuid.UUID, len(entries))
	for idx, acc := range accessions {
		slug := slugs[idx]
		name := entryNameFor(entries, acc)
		var id uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO registry_entries (organization_id, slug, name, entry_type)
			VALUES ($1, $2, $3, 'data_source')
			ON CONFLICT (organization_id, slug) DO UPDATE SET name = excluded.name
			RETURNING id
		`, p.OrganizationID, slug, name).Scan(&id)
		if err != nil {
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}
		entryIDBySlug[slug] = id
	}

	// Step 2b: resolve one organism data source per unique taxonomy id
	// referenced by this chunk (spec.md §6's organism_metadata table and
	// data_sources.organism_id back-reference).
	organismIDByTaxID := make(map[int]uuid.UUID)
	for _, e := range entries {
		if e.TaxonomyID == 0 {
			continue
		}
		if _, ok := organismIDByTaxID[e.TaxonomyID]; ok {
			continue
		}
		id, err := upsertOrganism(ctx, tx, p.OrganizationID, e.TaxonomyID, e.OrganismName)
		if err != nil {
			return stats, err
		}
		organismIDByTaxID[e.TaxonomyID] = id
	}

	// Step 3: data_sources row per entry (id shared with registry_entries).
	for _, e := range entries {
		acc := e.PrimaryAccession()
		if acc == "" {
			continue
		}
		id, ok := entryIDBySlug[slugify(acc)]
		if !ok {
			continue
		}
		var organismID *uuid.UUID
		if oid, ok := organismIDByTaxID[e.TaxonomyID]; ok {
			organismID = &oid
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO data_sources (id, source_type, external_id, organism_id)
			VALUES ($1, 'protein', $2, $3)
			ON CONFLICT (id) DO UPDATE SET external_id = excluded.external_id, organism_id = excluded.organism_id
		`, id, acc, organismID); err != nil {
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}
	}

	// Step 4: dedup sequences by content hash, then resolve ids.
	hashToSeq := make(map[string]uniprot.Entry)
	for _, e := range entries {
		if e.Sequence == "" {
			continue
		}
		hashToSeq[e.SequenceHash()] = e
	}
	seqIDByHash := make(map[string]uuid.UUID, len(hashToSeq))
	for hash, e := range hashToSeq {
		sum := md5.Sum([]byte(e.Sequence))
		var id uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO protein_sequences (sequence, sequence_hash, sequence_length, sequence_md5)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (sequence_hash) DO NOTHING
			RETURNING id
		`, e.Sequence, hash, e.SequenceLength, hex.EncodeToString(sum[:])).Scan(&id)
		if err == pgx.ErrNoRows {
			if err := tx.QueryRow(ctx, `SELECT id FROM protein_sequences WHERE sequence_hash = $1`, hash).Scan(&id); err != nil {
				return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
			}
		} else if err != nil {
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}
		seqIDByHash[hash] = id
	}

	// Step 5: upsert protein_metadata, keyed on data_source_id.
	for _, e := range entries {
		acc := e.PrimaryAccession()
		if acc == "" {
			continue
		}
		dsID, ok := entryIDBySlug[slugify(acc)]
		if !ok {
			continue
		}
		var seqID *uuid.UUID
		var checksum string
		if e.Sequence != "" {
			hash := e.SequenceHash()
			if id, ok := seqIDByHash[hash]; ok {
				seqID = &id
				checksum = hash
			}
		}
		if seqID == nil {
			skip.Skip(fmt.Errorf("no sequence"), acc)
			continue
		}
		if _, ok := existing[acc]; ok {
			stats.EntriesUpdated++
		}
		entryName := e.EntryName
		proteinName := e.ProteinName
		geneName := e.GeneName
		var organismID *uuid.UUID
		if oid, ok := organismIDByTaxID[e.TaxonomyID]; ok {
			organismID = &oid
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO protein_metadata (data_source_id, accession, entry_name, protein_name, gene_name, sequence_length, mass_da, sequence_checksum, sequence_id, organism_id, uniprot_version)
			VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10, $11)
			ON CONFLICT (data_source_id) DO UPDATE SET
				entry_name = excluded.entry_name,
				protein_name = excluded.protein_name,
				gene_name = excluded.gene_name,
				sequence_length = excluded.sequence_length,
				mass_da = excluded.mass_da,
				sequence_checksum = excluded.sequence_checksum,
				sequence_id = excluded.sequence_id,
				organism_id = excluded.organism_id,
				uniprot_version = excluded.uniprot_version
		`, dsID, acc, entryName, proteinName, geneName, e.SequenceLength, int64(e.MolecularWeight), checksum, *seqID, organismID, p.ExternalVersion)
		if err != nil {
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}
		stats.EntriesWritten++
	}

	// Step 6: insert versions, one per entry, bumped per spec.md §4.8's
	// UniProt rule (sequence changed → MAJOR, annotation-only → MINOR,
	// first-ever version → MINOR with a single added entry).
	entryIDs := make([]uuid.UUID, 0, len(entryIDBySlug))
	for _, id := range entryIDBySlug {
		entryIDs = append(entryIDs, id)
	}
	prevVersion := make(map[uuid.UUID][3]int)
	if len(entryIDs) > 0 {
		vrows, err := tx.Query(ctx, `
			SELECT DISTINCT ON (entry_id) entry_id, version_major, version_minor, version_patch
			FROM versions WHERE entry_id = ANY($1)
			ORDER BY entry_id, version_major DESC, version_minor DESC, version_patch DESC
		`, entryIDs)
		if err != nil {
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}
		for vrows.Next() {
			var id uuid.UUID
			var maj, min, pat int
			if err := vrows.Scan(&id, &maj, &min, &pat); err != nil {
				vrows.Close()
				return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
			}
			prevVersion[id] = [3]int{maj, min, pat}
		}
		vrows.Close()
	}

	versionIDByEntry := make(map[uuid.UUID]uuid.UUID, len(entryIDBySlug))
	for _, e := range entries {
		acc := e.PrimaryAccession()
		entryID, ok := entryIDBySlug[slugify(acc)]
		if !ok {
			continue
		}

		newChecksum := ""
		if e.Sequence != "" {
			newChecksum = e.SequenceHash()
		}

		var major, minor, patch int
		var internalVersion string
		if prev, hadPrevious := prevVersion[entryID]; hadPrevious {
			sequenceChanged := previousChecksum[acc] != "" && previousChecksum[acc] != newChecksum
			changelog := versioning.Detect("uniprot", p.Strategy, []versioning.ChangelogEntry{versioning.UniProtEntry(acc, false, sequenceChanged)})
			major, minor, patch = versioning.NextVersion(prev[0], prev[1], prev[2], changelog.Bump)
		} else {
			major, minor, patch = 0, 1, 0
		}
		internalVersion = fmt.Sprintf("%d.%d.%d", major, minor, patch)

		var vID uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO versions (entry_id, version, external_version, version_major, version_minor, version_patch, status, published_at)
			VALUES ($1, $2, $3, $4, $5, $6, 'published', now())
			ON CONFLICT (entry_id, version) DO UPDATE SET external_version = excluded.external_version
			RETURNING id
		`, entryID, internalVersion, p.ExternalVersion, major, minor, patch).Scan(&vID)
		if err != nil {
			return stats, apperrors.E(op, apperrors.KindTransientDatabase, err)
		}
		versionIDByEntry[entryID] = vID
	}

	// Step 7/8: render + upload artifacts, upsert version_files.
	var artifacts []Artifact
	for _, e := range entries {
		acc := e.PrimaryAccession()
		entryID, ok := entryIDBySlug[slugify(acc)]
		if !ok {
			continue
		}
		vID, ok := versionIDByEntry[entryID]
		if !ok {
			continue
		}
		slug := slugify(acc)
		artifacts = append(artifacts,
			Artifact{
				VersionID:   vID.String(),
				Format:      "fasta",
				Key:         fmt.Sprintf("%s/%s/%s.fasta", p.Bucket, p.ExternalVersion, slug),
				Body:        renderFASTA(e),
				ContentType: "text/x-fasta",
			},
			Artifact{
				VersionID:   vID.String(),
				Format:      "dat",
				Key:         fmt.Sprintf("%s/%s/%s.dat", p.Bucket, p.ExternalVersion, slug),
				Body:        renderDAT(e),
				ContentType: "text/plain",
			},
			Artifact{
				VersionID:   vID.String(),
				Format:      "json",
				Key:         fmt.Sprintf("%s/%s/%s.json", p.Bucket, p.ExternalVersion, slug),
				Body:        renderJSON(e),
				ContentType: "application/json",
			},
		)
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

	stats.Skipped = skip.Count
	return stats, nil
}

func entryNameFor(entries []uniprot.Entry, accession string) string {
	for _, e := range entries {
		if e.PrimaryAccession() == accession {
			if e.ProteinName != "" {
				return e.ProteinName
			}
			return e.EntryName
		}
	}
	return accession
}

func renderFASTA(e uniprot.Entry) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, ">sp|%s|%s %s OS=%s OX=%d\n", e.PrimaryAccession(), e.EntryName, e.ProteinName, e.OrganismName, e.TaxonomyID)
	for i := 0; i < len(e.Sequence); i += 60 {
		end := i + 60
		if end > len(e.Sequence) {
			end = len(e.Sequence)
		}
		b.WriteString(e.Sequence[i:end])
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// renderDAT renders a minimal UniProt flat-file record carrying the fields
// WriteChunk persisted, for consumers that want the DAT format without
// re-fetching the full release dump.
func renderDAT(e uniprot.Entry) []byte {
	var b strings.Builder
	status := "Unreviewed"
	if e.Reviewed {
		status = "Reviewed"
	}
	fmt.Fprintf(&b, "ID   %s   %s;   %d AA.\n", e.EntryName, status, e.SequenceLength)
	fmt.Fprintf(&b, "AC   %s;\n", strings.Join(e.Accessions, " "))
	fmt.Fprintf(&b, "DE   RecName: Full=%s;\n", e.ProteinName)
	if e.GeneName != "" {
		fmt.Fprintf(&b, "GN   Name=%s;\n", e.GeneName)
	}
	fmt.Fprintf(&b, "OS   %s.\n", e.OrganismName)
	fmt.Fprintf(&b, "OX   NCBI_TaxID=%d;\n", e.TaxonomyID)
	fmt.Fprintf(&b, "SQ   SEQUENCE   %d AA;  %d MW;\n", e.SequenceLength, int64(e.MolecularWeight))
	for i := 0; i < len(e.Sequence); i += 60 {
		end := i + 60
		if end > len(e.Sequence) {
			end = len(e.Sequence)
		}
		fmt.Fprintf(&b, "     %s\n", e.Sequence[i:end])
	}
	b.WriteString("//\n")
	return []byte(b.String())
}

// uniProtJSON is the shape rendered as the JSON artifact for an entry: the
// fields WriteChunk itself persists, so it never drifts from the database.
type uniProtJSON struct {
	Accession      string   `json:"accession"`
	EntryName      string   `json:"entry_name"`
	ProteinName    string   `json:"protein_name"`
	GeneName       string   `json:"gene_name,omitempty"`
	OrganismName   string   `json:"organism_name"`
	TaxonomyID     int      `json:"taxonomy_id"`
	SequenceLength int      `json:"sequence_length"`
	MassDa         int64    `json:"mass_da"`
	Sequence       string   `json:"sequence"`
	Accessions     []string `json:"accessions,omitempty"`
}

func renderJSON(e uniprot.Entry) []byte {
	body, err := json.Marshal(uniProtJSON{
		Accession:      e.PrimaryAccession(),
		EntryName:      e.EntryName,
		ProteinName:    e.ProteinName,
		GeneName:       e.GeneName,
		OrganismName:   e.OrganismName,
		TaxonomyID:     e.TaxonomyID,
		SequenceLength: e.SequenceLength,
		MassDa:         int64(e.MolecularWeight),
		Sequence:       e.Sequence,
		Accessions:     e.Accessions,
	})
	if err != nil {
		return []byte("{}")
	}
	return body
}

// upsertOrganism resolves the organism data source for taxID, creating its
// registry_entries/data_sources/organism_metadata rows on first sight.
// Organism entries live in their own slug space ("organism-<taxid>") so they
// never collide with the "taxon-<taxid>" entries NCBI Taxonomy ingestion
// creates under writer.TaxonomyWriter.
func upsertOrganism(ctx context.Context, tx pgx.Tx, orgID uuid.UUID, taxID int, organismName string) (uuid.UUID, error) {
	const op = apperrors.Op("writer.uniprot.upsert_organism")
	slug := "organism-" + strconv.Itoa(taxID)
	name := organismName
	if name == "" {
		name = slug
	}

	var id uuid.UUID
	if err := tx.QueryRow(ctx, `
		INSERT INTO registry_entries (organization_id, slug, name, entry_type)
		VALUES ($1, $2, $3, 'data_source')
		ON CONFLICT (organization_id, slug) DO UPDATE SET name = excluded.name
		RETURNING id
	`, orgID, slug, name).Scan(&id); err != nil {
		return uuid.Nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO data_sources (id, source_type, external_id)
		VALUES ($1, 'organism', $2)
		ON CONFLICT (id) DO UPDATE SET external_id = excluded.external_id
	`, id, strconv.Itoa(taxID)); err != nil {
		return uuid.Nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO organism_metadata (data_source_id, taxonomy_id, scientific_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (data_source_id) DO UPDATE SET taxonomy_id = excluded.taxonomy_id, scientific_name = excluded.scientific_name
	`, id, taxID, name); err != nil {
		return uuid.Nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	return id, nil
}

// slugify lowercases a natural-key identifier for use as a registry slug.
// UniProt accessions are already slug-safe (alphanumerics); this only
// normalizes case so "P01308" and "p01308" collide on the same entry.
func slugify(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
