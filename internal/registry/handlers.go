package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/nishad/bdp/internal/apperrors"
	"github.com/nishad/bdp/internal/metrics"
	"github.com/nishad/bdp/internal/models"
)

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handlers implements the registry's typed command surface (C10) over a
// shared connection pool.
type Handlers struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Handlers {
	return &Handlers{db: db}
}

// --- CreateEntry ---

type CreateEntryRequest struct {
	OrganizationID uuid.UUID
	Slug           string
	Name           string
	Description    *string
	EntryType      models.EntryType
}

func (r CreateEntryRequest) validate(op apperrors.Op) error {
	if err := validateUUID(op, "organization_id", r.OrganizationID); err != nil {
		return err
	}
	if err := validateSlug(op, "slug", r.Slug); err != nil {
		return err
	}
	if err := validateNonEmpty(op, "name", r.Name); err != nil {
		return err
	}
	if r.EntryType != models.EntryTypeDataSource && r.EntryType != models.EntryTypeTool {
		return apperrors.E(op, apperrors.KindValidation, "entry_type must be data_source or tool").WithField("entry_type")
	}
	return nil
}

type CreateEntryResponse struct {
	Entry models.RegistryEntry
}

func (h *Handlers) CreateEntry(ctx context.Context, req CreateEntryRequest) (result *CreateEntryResponse, err error) {
	const op = apperrors.Op("registry.create_entry")
	defer func() { metrics.RegistryRequestsTotal.WithLabelValues("create_entry", outcomeLabel(err)).Inc() }()
	if err := req.validate(op); err != nil {
		return nil, err
	}

	var entry models.RegistryEntry
	err = h.db.GetContext(ctx, &entry, `
		INSERT INTO registry_entries (organization_id, slug, name, description, entry_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, organization_id, slug, name, description, entry_type, created_at
	`, req.OrganizationID, req.Slug, req.Name, req.Description, req.EntryType)
	if err != nil {
		return nil, classifyWriteErr(op, err, "slug already exists for this organization")
	}
	return &CreateEntryResponse{Entry: entry}, nil
}

// --- GetEntry ---

type GetEntryRequest struct {
	OrganizationID uuid.UUID
	Slug           string
}

func (r GetEntryRequest) validate(op apperrors.Op) error {
	if err := validateUUID(op, "organization_id", r.OrganizationID); err != nil {
		return err
	}
	return validateSlug(op, "slug", r.Slug)
}

type GetEntryResponse struct {
	Entry models.RegistryEntry
}

func (h *Handlers) GetEntry(ctx context.Context, req GetEntryRequest) (result *GetEntryResponse, err error) {
	const op = apperrors.Op("registry.get_entry")
	defer func() { metrics.RegistryRequestsTotal.WithLabelValues("get_entry", outcomeLabel(err)).Inc() }()
	if err := req.validate(op); err != nil {
		return nil, err
	}

	var entry models.RegistryEntry
	err = h.db.GetContext(ctx, &entry, `
		SELECT id, organization_id, slug, name, description, entry_type, created_at
		FROM registry_entries WHERE organization_id = $1 AND slug = $2
	`, req.OrganizationID, req.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.E(op, apperrors.KindNotFound, fmt.Errorf("entry %q not found", req.Slug))
	}
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	return &GetEntryResponse{Entry: entry}, nil
}

// --- ListEntries ---

type ListEntriesRequest struct {
	OrganizationID uuid.UUID
	EntryType      models.EntryType // empty means any
	Pagination     Pagination
}

func (r *ListEntriesRequest) validate(op apperrors.Op) error {
	if err := validateUUID(op, "organization_id", r.OrganizationID); err != nil {
		return err
	}
	return r.Pagination.validate(op)
}

type ListEntriesResponse struct {
	Entries []models.RegistryEntry
	Page    PageMeta
}

func (h *Handlers) ListEntries(ctx context.Context, req ListEntriesRequest) (result *ListEntriesResponse, err error) {
	const op = apperrors.Op("registry.list_entries")
	defer func() { metrics.RegistryRequestsTotal.WithLabelValues("list_entries", outcomeLabel(err)).Inc() }()
	if err := req.validate(op); err != nil {
		return nil, err
	}

	var total int64
	if err := h.db.GetContext(ctx, &total, `
		SELECT count(*) FROM registry_entries
		WHERE organization_id = $1 AND ($2 = '' OR entry_type = $2)
	`, req.OrganizationID, req.EntryType); err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	var entries []models.RegistryEntry
	if err := h.db.SelectContext(ctx, &entries, `
		SELECT id, organization_id, slug, name, description, entry_type, created_at
		FROM registry_entries
		WHERE organization_id = $1 AND ($2 = '' OR entry_type = $2)
		ORDER BY slug
		LIMIT $3 OFFSET $4
	`, req.OrganizationID, req.EntryType, req.Pagination.PerPage, req.Pagination.offset()); err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	return &ListEntriesResponse{Entries: entries, Page: newPageMeta(req.Pagination, total)}, nil
}

// --- ListVersions ---

type ListVersionsRequest struct {
	EntryID    uuid.UUID
	Status     models.VersionStatus // empty means any
	Pagination Pagination
}

func (r *ListVersionsRequest) validate(op apperrors.Op) error {
	if err := validateUUID(op, "entry_id", r.EntryID); err != nil {
		return err
	}
	return r.Pagination.validate(op)
}

type ListVersionsResponse struct {
	Versions []models.Version
	Page     PageMeta
}

func (h *Handlers) ListVersions(ctx context.Context, req ListVersionsRequest) (result *ListVersionsResponse, err error) {
	const op = apperrors.Op("registry.list_versions")
	defer func() { metrics.RegistryRequestsTotal.WithLabelValues("list_versions", outcomeLabel(err)).Inc() }()
	if err := req.validate(op); err != nil {
		return nil, err
	}

	var total int64
	if err := h.db.GetContext(ctx, &total, `
		SELECT count(*) FROM versions WHERE entry_id = $1 AND ($2 = '' OR status = $2)
	`, req.EntryID, req.Status); err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	var versions []models.Version
	if err := h.db.SelectContext(ctx, &versions, `
		SELECT id, entry_id, version, external_version, version_major, version_minor, version_patch,
		       status, dependency_count, download_count, published_at
		FROM versions
		WHERE entry_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY version_major DESC, version_minor DESC, version_patch DESC
		LIMIT $3 OFFSET $4
	`, req.EntryID, req.Status, req.Pagination.PerPage, req.Pagination.offset()); err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	return &ListVersionsResponse{Versions: versions, Page: newPageMeta(req.Pagination, total)}, nil
}

// --- GetVersion ---

type GetVersionRequest struct {
	EntryID uuid.UUID
	Version string
}

func (r GetVersionRequest) validate(op apperrors.Op) error {
	if err := validateUUID(op, "entry_id", r.EntryID); err != nil {
		return err
	}
	return validateVersionString(op, "version", r.Version)
}

type GetVersionResponse struct {
	Version models.Version
	Files   []models.VersionFile
}

func (h *Handlers) GetVersion(ctx context.Context, req GetVersionRequest) (result *GetVersionResponse, err error) {
	const op = apperrors.Op("registry.get_version")
	defer func() { metrics.RegistryRequestsTotal.WithLabelValues("get_version", outcomeLabel(err)).Inc() }()
	if err := req.validate(op); err != nil {
		return nil, err
	}

	var version models.Version
	err = h.db.GetContext(ctx, &version, `
		SELECT id, entry_id, version, external_version, version_major, version_minor, version_patch,
		       status, dependency_count, download_count, published_at
		FROM versions WHERE entry_id = $1 AND version = $2
	`, req.EntryID, req.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.E(op, apperrors.KindNotFound, fmt.Errorf("version %q not found", req.Version))
	}
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	var files []models.VersionFile
	if err := h.db.SelectContext(ctx, &files, `
		SELECT id, version_id, format, s3_key, checksum, size_bytes, compression
		FROM version_files WHERE version_id = $1 ORDER BY format
	`, version.ID); err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	return &GetVersionResponse{Version: version, Files: files}, nil
}

// --- AddVersionFile ---

type AddVersionFileRequest struct {
	VersionID   uuid.UUID
	Format      string
	S3Key       string
	Checksum    string
	SizeBytes   int64
	Compression *string
}

func (r AddVersionFileRequest) validate(op apperrors.Op) error {
	if err := validateUUID(op, "version_id", r.VersionID); err != nil {
		return err
	}
	if err := validateNonEmpty(op, "format", r.Format); err != nil {
		return err
	}
	if err := validateNonEmpty(op, "s3_key", r.S3Key); err != nil {
		return err
	}
	if err := validateNonEmpty(op, "checksum", r.Checksum); err != nil {
		return err
	}
	if r.SizeBytes <= 0 {
		return apperrors.E(op, apperrors.KindValidation, "size_bytes must be positive").WithField("size_bytes")
	}
	return nil
}

type AddVersionFileResponse struct {
	File models.VersionFile
}

func (h *Handlers) AddVersionFile(ctx context.Context, req AddVersionFileRequest) (result *AddVersionFileResponse, err error) {
	const op = apperrors.Op("registry.add_version_file")
	defer func() { metrics.RegistryRequestsTotal.WithLabelValues("add_version_file", outcomeLabel(err)).Inc() }()
	if err := req.validate(op); err != nil {
		return nil, err
	}

	var file models.VersionFile
	err = h.db.GetContext(ctx, &file, `
		INSERT INTO version_files (version_id, format, s3_key, checksum, size_bytes, compression)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (version_id, format) DO UPDATE SET s3_key = excluded.s3_key, checksum = excluded.checksum,
		    size_bytes = excluded.size_bytes, compression = excluded.compression
		RETURNING id, version_id, format, s3_key, checksum, size_bytes, compression
	`, req.VersionID, req.Format, req.S3Key, req.Checksum, req.SizeBytes, req.Compression)
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	return &AddVersionFileResponse{File: file}, nil
}

// --- AddDependency ---

type AddDependencyRequest struct {
	VersionID        uuid.UUID
	DependsOnEntryID uuid.UUID
	DependsOnVersion string
	DependencyType   models.DependencyType
}

func (r AddDependencyRequest) validate(op apperrors.Op) error {
	if err := validateUUID(op, "version_id", r.VersionID); err != nil {
		return err
	}
	if err := validateUUID(op, "depends_on_entry_id", r.DependsOnEntryID); err != nil {
		return err
	}
	if err := validateVersionString(op, "depends_on_version", r.DependsOnVersion); err != nil {
		return err
	}
	if r.DependencyType != models.DependencyRequired && r.DependencyType != models.DependencyOptional {
		return apperrors.E(op, apperrors.KindValidation, "dependency_type must be required or optional").WithField("dependency_type")
	}
	return nil
}

type AddDependencyResponse struct {
	Dependency models.Dependency
}

func (h *Handlers) AddDependency(ctx context.Context, req AddDependencyRequest) (result *AddDependencyResponse, err error) {
	const op = apperrors.Op("registry.add_dependency")
	defer func() { metrics.RegistryRequestsTotal.WithLabelValues("add_dependency", outcomeLabel(err)).Inc() }()
	if err := req.validate(op); err != nil {
		return nil, err
	}

	tx, err := h.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	defer tx.Rollback()

	var dep models.Dependency
	if err := tx.GetContext(ctx, &dep, `
		INSERT INTO dependencies (version_id, depends_on_entry_id, depends_on_version, dependency_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, version_id, depends_on_entry_id, depends_on_version, dependency_type
	`, req.VersionID, req.DependsOnEntryID, req.DependsOnVersion, req.DependencyType); err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE versions SET dependency_count = dependency_count + 1 WHERE id = $1
	`, req.VersionID); err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	return &AddDependencyResponse{Dependency: dep}, nil
}

// --- ListDependencies ---

type ListDependenciesRequest struct {
	VersionID  uuid.UUID
	Pagination Pagination
}

func (r *ListDependenciesRequest) validate(op apperrors.Op) error {
	if err := validateUUID(op, "version_id", r.VersionID); err != nil {
		return err
	}
	return r.Pagination.validate(op)
}

type ListDependenciesResponse struct {
	Dependencies []models.Dependency
	Page         PageMeta
}

// ListDependencies was dropped by the distillation (not present in
// spec.md's §4.10 summary) but exists in original_source's resolve feature
// set as a plain paginated listing; kept here since it requires no new
// invariant beyond the other list commands.
func (h *Handlers) ListDependencies(ctx context.Context, req ListDependenciesRequest) (result *ListDependenciesResponse, err error) {
	const op = apperrors.Op("registry.list_dependencies")
	defer func() { metrics.RegistryRequestsTotal.WithLabelValues("list_dependencies", outcomeLabel(err)).Inc() }()
	if err := req.validate(op); err != nil {
		return nil, err
	}

	var total int64
	if err := h.db.GetContext(ctx, &total, `
		SELECT count(*) FROM dependencies WHERE version_id = $1
	`, req.VersionID); err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	var deps []models.Dependency
	if err := h.db.SelectContext(ctx, &deps, `
		SELECT id, version_id, depends_on_entry_id, depends_on_version, dependency_type
		FROM dependencies WHERE version_id = $1
		ORDER BY depends_on_version
		LIMIT $2 OFFSET $3
	`, req.VersionID, req.Pagination.PerPage, req.Pagination.offset()); err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	return &ListDependenciesResponse{Dependencies: deps, Page: newPageMeta(req.Pagination, total)}, nil
}

// --- Organizations ---

// GetOrganizationBySlug looks up an organization by its unique slug.
func (h *Handlers) GetOrganizationBySlug(ctx context.Context, slug string) (result *models.Organization, err error) {
	const op = apperrors.Op("registry.get_organization_by_slug")
	defer func() { metrics.RegistryRequestsTotal.WithLabelValues("get_organization_by_slug", outcomeLabel(err)).Inc() }()
	if err := validateSlug(op, "slug", slug); err != nil {
		return nil, err
	}

	var org models.Organization
	err = h.db.GetContext(ctx, &org, `
		SELECT id, slug, name, description, is_system, versioning_strategy, created_at
		FROM organizations WHERE slug = $1
	`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.E(op, apperrors.KindNotFound, fmt.Errorf("organization %q not found", slug))
	}
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	return &org, nil
}

// EnsureOrganization returns the organization for slug, creating it with
// name if it does not already exist. Used by ingestion entrypoints that
// bootstrap their own organization row rather than requiring a separate
// provisioning step.
func (h *Handlers) EnsureOrganization(ctx context.Context, slug, name string) (result *models.Organization, err error) {
	const op = apperrors.Op("registry.ensure_organization")
	defer func() { metrics.RegistryRequestsTotal.WithLabelValues("ensure_organization", outcomeLabel(err)).Inc() }()
	if err := validateSlug(op, "slug", slug); err != nil {
		return nil, err
	}
	if err := validateNonEmpty(op, "name", name); err != nil {
		return nil, err
	}

	var org models.Organization
	err = h.db.GetContext(ctx, &org, `
		INSERT INTO organizations (slug, name) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id, slug, name, description, is_system, versioning_strategy, created_at
	`, slug, name)
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	return &org, nil
}

// --- Stats ---

func (h *Handlers) Stats(ctx context.Context) (result *models.RegistryStats, err error) {
	const op = apperrors.Op("registry.stats")
	defer func() { metrics.RegistryRequestsTotal.WithLabelValues("stats", outcomeLabel(err)).Inc() }()
	var stats models.RegistryStats
	err = h.db.GetContext(ctx, &stats, `
		SELECT
			(SELECT count(*) FROM organizations) AS total_organizations,
			(SELECT count(*) FROM registry_entries) AS total_entries,
			(SELECT count(*) FROM versions) AS total_versions,
			(SELECT count(*) FROM version_files) AS total_version_files,
			(SELECT count(*) FROM protein_sequences) AS total_sequences,
			(SELECT count(*) FROM versions WHERE status = 'published') AS published_versions
	`)
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}
	return &stats, nil
}

func classifyWriteErr(op apperrors.Op, err error, conflictMsg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperrors.E(op, apperrors.KindConflict, errors.New(conflictMsg))
	}
	return apperrors.E(op, apperrors.KindTransientDatabase, err)
}
