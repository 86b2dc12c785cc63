// Package models holds the registry's persisted entities, mirroring the
// schema in spec.md §6 one table per struct the way the teacher's
// internal/models mirrors its SQLite tables with json+db-tagged structs.
package models

import (
	"time"

	"github.com/google/uuid"
)

// EntryType enumerates registry_entries.entry_type.
type EntryType string

const (
	EntryTypeDataSource EntryType = "data_source"
	EntryTypeTool       EntryType = "tool"
)

// SourceType enumerates data_sources.source_type.
type SourceType string

const (
	SourceTypeProtein      SourceType = "protein"
	SourceTypeGenome       SourceType = "genome"
	SourceTypeOrganism     SourceType = "organism"
	SourceTypeTaxonomy     SourceType = "taxonomy"
	SourceTypeBundle       SourceType = "bundle"
	SourceTypeTranscript   SourceType = "transcript"
	SourceTypeAnnotation   SourceType = "annotation"
	SourceTypeStructure    SourceType = "structure"
	SourceTypePathway      SourceType = "pathway"
	SourceTypeOntology     SourceType = "ontology"
	SourceTypeOther        SourceType = "other"
)

// VersionStatus enumerates versions.status.
type VersionStatus string

const (
	VersionStatusDraft      VersionStatus = "draft"
	VersionStatusPublished  VersionStatus = "published"
	VersionStatusDeprecated VersionStatus = "deprecated"
)

// DependencyType enumerates dependencies.dependency_type.
type DependencyType string

const (
	DependencyRequired DependencyType = "required"
	DependencyOptional DependencyType = "optional"
)

// JobStatus enumerates ingestion_jobs.status.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobDownloading JobStatus = "downloading"
	JobParsing    JobStatus = "parsing"
	JobStoring    JobStatus = "storing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// WorkUnitStatus enumerates work_units.status.
type WorkUnitStatus string

const (
	WorkUnitPending  WorkUnitStatus = "pending"
	WorkUnitClaimed  WorkUnitStatus = "claimed"
	WorkUnitCompleted WorkUnitStatus = "completed"
	WorkUnitFailed   WorkUnitStatus = "failed"
)

// WorkUnitPhase identifies which C3 parsing phase a unit belongs to
// (count, parse_range) as distinct from terminal completion bookkeeping.
type WorkUnitPhase string

const (
	PhaseCount      WorkUnitPhase = "count"
	PhaseParseRange WorkUnitPhase = "parse_range"
)

// Organization is the tenant root. The migrations seed no organizations;
// each ingest command creates its organization on first use.
type Organization struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	Slug               string    `db:"slug" json:"slug"`
	Name               string    `db:"name" json:"name"`
	Description        *string   `db:"description" json:"description,omitempty"`
	IsSystem           bool      `db:"is_system" json:"is_system"`
	VersioningStrategy []byte    `db:"versioning_strategy" json:"versioning_strategy,omitempty"` // jsonb
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// RegistryEntry is the shared identity for data sources and tools.
type RegistryEntry struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	Slug           string    `db:"slug" json:"slug"`
	Name           string    `db:"name" json:"name"`
	Description    *string   `db:"description" json:"description,omitempty"`
	EntryType      EntryType `db:"entry_type" json:"entry_type"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// DataSource extends a registry entry (1:1 on id) when entry_type=data_source.
type DataSource struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	SourceType SourceType `db:"source_type" json:"source_type"`
	ExternalID *string    `db:"external_id" json:"external_id,omitempty"`
	OrganismID *uuid.UUID `db:"organism_id" json:"organism_id,omitempty"`
}

// ProteinMetadata is the protein_metadata child row for a protein data source.
type ProteinMetadata struct {
	DataSourceID      uuid.UUID  `db:"data_source_id" json:"data_source_id"`
	Accession         string     `db:"accession" json:"accession"`
	EntryName         *string    `db:"entry_name" json:"entry_name,omitempty"`
	ProteinName       *string    `db:"protein_name" json:"protein_name,omitempty"`
	GeneName          *string    `db:"gene_name" json:"gene_name,omitempty"`
	SequenceLength    int        `db:"sequence_length" json:"sequence_length"`
	MassDa            int64      `db:"mass_da" json:"mass_da"`
	SequenceChecksum  string     `db:"sequence_checksum" json:"sequence_checksum"`
	SequenceID        uuid.UUID  `db:"sequence_id" json:"sequence_id"`
	OrganismID        *uuid.UUID `db:"organism_id" json:"organism_id,omitempty"`
	UniProtVersion    string     `db:"uniprot_version" json:"uniprot_version"`
}

// ProteinSequence deduplicates residue strings by content hash so that
// identical sequences across organisms share a single stored row.
type ProteinSequence struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Sequence       string    `db:"sequence" json:"sequence"`
	SequenceHash   string    `db:"sequence_hash" json:"sequence_hash"` // sha256 hex
	SequenceLength int       `db:"sequence_length" json:"sequence_length"`
	SequenceMD5    string    `db:"sequence_md5" json:"sequence_md5"` // legacy compatibility field
}

// TaxonomyMetadata is the taxonomy_metadata child row for a taxonomy data source.
type TaxonomyMetadata struct {
	DataSourceID   uuid.UUID `db:"data_source_id" json:"data_source_id"`
	TaxonomyID     int       `db:"taxonomy_id" json:"taxonomy_id"`
	ScientificName string    `db:"scientific_name" json:"scientific_name"`
	CommonName     *string   `db:"common_name" json:"common_name,omitempty"`
	Rank           string    `db:"rank" json:"rank"`
	Lineage        string    `db:"lineage" json:"lineage"`
	NCBITaxVersion string    `db:"ncbi_tax_version" json:"ncbi_tax_version"`
}

// OrganismMetadata is the organism_metadata child row for an organism data
// source: a lightweight tax-id/name pair referenced by protein_metadata.organism_id,
// distinct from the fuller taxonomy_metadata row NCBI Taxonomy ingestion produces.
type OrganismMetadata struct {
	DataSourceID   uuid.UUID `db:"data_source_id" json:"data_source_id"`
	TaxonomyID     int       `db:"taxonomy_id" json:"taxonomy_id"`
	ScientificName string    `db:"scientific_name" json:"scientific_name"`
}

// Version is a single published or in-progress release of a registry entry.
type Version struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	EntryID         uuid.UUID     `db:"entry_id" json:"entry_id"`
	VersionString   string        `db:"version" json:"version"` // internal semver MAJOR.MINOR.PATCH
	ExternalVersion *string       `db:"external_version" json:"external_version,omitempty"`
	VersionMajor    int           `db:"version_major" json:"version_major"`
	VersionMinor    int           `db:"version_minor" json:"version_minor"`
	VersionPatch    int           `db:"version_patch" json:"version_patch"`
	Status          VersionStatus `db:"status" json:"status"`
	DependencyCount int           `db:"dependency_count" json:"dependency_count"`
	DownloadCount   int64         `db:"download_count" json:"download_count"`
	PublishedAt     time.Time     `db:"published_at" json:"published_at"`
}

// VersionFile is one stored artifact format for a version.
type VersionFile struct {
	ID          uuid.UUID `db:"id" json:"id"`
	VersionID   uuid.UUID `db:"version_id" json:"version_id"`
	Format      string    `db:"format" json:"format"` // fasta|json|xml|dat|tsv|tar.gz|...
	S3Key       string    `db:"s3_key" json:"s3_key"`
	Checksum    string    `db:"checksum" json:"checksum"` // sha256 hex
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	Compression *string   `db:"compression" json:"compression,omitempty"`
}

// Dependency is an outgoing edge from a version to another entry's version.
type Dependency struct {
	ID                 uuid.UUID      `db:"id" json:"id"`
	VersionID          uuid.UUID      `db:"version_id" json:"version_id"`
	DependsOnEntryID   uuid.UUID      `db:"depends_on_entry_id" json:"depends_on_entry_id"`
	DependsOnVersion   string         `db:"depends_on_version" json:"depends_on_version"`
	DependencyType     DependencyType `db:"dependency_type" json:"dependency_type"`
}

// IngestionJob tracks one end-to-end fetch→parse→store run for a family.
type IngestionJob struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	OrganizationID   uuid.UUID  `db:"organization_id" json:"organization_id"`
	JobType          string     `db:"job_type" json:"job_type"` // e.g. "uniprot_sprot"
	ExternalVersion  string     `db:"external_version" json:"external_version"`
	InternalVersion  string     `db:"internal_version" json:"internal_version"`
	Status           JobStatus  `db:"status" json:"status"`
	RecordsProcessed int64      `db:"records_processed" json:"records_processed"`
	RecordsStored    int64      `db:"records_stored" json:"records_stored"`
	RecordsFailed    int64      `db:"records_failed" json:"records_failed"`
	SourceURL        *string    `db:"source_url" json:"source_url,omitempty"`
	SourceMetadata   []byte     `db:"source_metadata" json:"source_metadata,omitempty"` // jsonb
	LastError        *string    `db:"last_error" json:"last_error,omitempty"`
	StartedAt        time.Time  `db:"started_at" json:"started_at"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// WorkUnit is one claimable slice of a job's logical record range.
type WorkUnit struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	JobID        uuid.UUID      `db:"job_id" json:"job_id"`
	Phase        WorkUnitPhase  `db:"phase" json:"phase"`
	BatchNumber  int            `db:"batch_number" json:"batch_number"`
	StartOffset  int64          `db:"start_offset" json:"start_offset"`
	EndOffset    int64          `db:"end_offset" json:"end_offset"`
	Status       WorkUnitStatus `db:"status" json:"status"`
	WorkerID     *string        `db:"worker_id" json:"worker_id,omitempty"`
	ClaimedAt    *time.Time     `db:"claimed_at" json:"claimed_at,omitempty"`
	HeartbeatAt  *time.Time     `db:"heartbeat_at" json:"heartbeat_at,omitempty"`
	Retries      int            `db:"retries" json:"retries"`
	LastError    *string        `db:"last_error" json:"last_error,omitempty"`
}

// OrganizationSyncStatus is the 1:1 last-known-state row per organization.
type OrganizationSyncStatus struct {
	OrganizationID  uuid.UUID  `db:"organization_id" json:"organization_id"`
	LastSyncAt      *time.Time `db:"last_sync_at" json:"last_sync_at,omitempty"`
	LastVersion     *string    `db:"last_version" json:"last_version,omitempty"`
	LastExternalVer *string    `db:"last_external_version" json:"last_external_version,omitempty"`
	LastJobID       *uuid.UUID `db:"last_job_id" json:"last_job_id,omitempty"`
	Status          string     `db:"status" json:"status"`
	TotalEntries    int64      `db:"total_entries" json:"total_entries"`
	LastError       *string    `db:"last_error" json:"last_error,omitempty"`
}

// RegistryStats mirrors the teacher's DatabaseStats aggregate, reshaped to
// registry-wide counters for C10's stats command.
type RegistryStats struct {
	TotalOrganizations int64 `db:"total_organizations" json:"total_organizations"`
	TotalEntries       int64 `db:"total_entries" json:"total_entries"`
	TotalVersions      int64 `db:"total_versions" json:"total_versions"`
	TotalVersionFiles  int64 `db:"total_version_files" json:"total_version_files"`
	TotalSequences     int64 `db:"total_sequences" json:"total_sequences"`
	PublishedVersions  int64 `db:"published_versions" json:"published_versions"`
}
