// Package resolver implements the manifest resolver (C9): parses the
// `org:name-format@version` / `org:name@version` spec grammar, joins it
// through organizations → registry_entries → versions → version_files,
// and runs one-level dependency conflict detection. Grounded on the
// teacher's internal/service layer (typed request → typed response,
// validated before hitting the database).
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nishad/bdp/internal/apperrors"
	"github.com/nishad/bdp/internal/metrics"
)

const maxDependencies = 100

// SpecKey is a parsed `org:name[-format]@version` identifier.
type SpecKey struct {
	Org     string
	Name    string
	Format  string // empty for a tool spec
	Version string
}

// ParseSourceSpec parses `<org>:<name>-<format>@<version>`. It splits the
// string and lower-cases org, name and format; the version is kept as given.
func ParseSourceSpec(spec string) (SpecKey, error) {
	const op = apperrors.Op("resolver.parse_source_spec")

	org, rest, err := splitOrg(spec)
	if err != nil {
		return SpecKey{}, apperrors.E(op, apperrors.KindValidation, err)
	}
	identifier, version, err := splitVersion(rest)
	if err != nil {
		return SpecKey{}, apperrors.E(op, apperrors.KindValidation, err)
	}

	idx := strings.LastIndex(identifier, "-")
	if idx < 0 || idx == len(identifier)-1 {
		return SpecKey{}, apperrors.E(op, apperrors.KindValidation, fmt.Errorf("source spec %q is missing a -format suffix", spec))
	}
	return SpecKey{
		Org:     strings.ToLower(org),
		Name:    strings.ToLower(identifier[:idx]),
		Format:  strings.ToLower(identifier[idx+1:]),
		Version: version,
	}, nil
}

// ParseToolSpec parses `<org>:<name>@<version>`.
func ParseToolSpec(spec string) (SpecKey, error) {
	const op = apperrors.Op("resolver.parse_tool_spec")

	org, rest, err := splitOrg(spec)
	if err != nil {
		return SpecKey{}, apperrors.E(op, apperrors.KindValidation, err)
	}
	name, version, err := splitVersion(rest)
	if err != nil {
		return SpecKey{}, apperrors.E(op, apperrors.KindValidation, err)
	}
	return SpecKey{Org: strings.ToLower(org), Name: strings.ToLower(name), Version: version}, nil
}

func splitOrg(spec string) (org, rest string, err error) {
	if strings.ContainsAny(spec, " \t\n") {
		return "", "", fmt.Errorf("spec %q contains whitespace", spec)
	}
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("spec %q is missing an org: prefix", spec)
	}
	return parts[0], parts[1], nil
}

func splitVersion(rest string) (identifier, version string, err error) {
	parts := strings.SplitN(rest, "@", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("spec fragment %q is missing an @version suffix", rest)
	}
	return parts[0], parts[1], nil
}

// BaseKey is "<org>:<name>", the identity conflict detection groups on.
func (k SpecKey) BaseKey() string { return k.Org + ":" + k.Name }

// ResolvedFile is one stored artifact for a resolved version.
type ResolvedFile struct {
	Format    string `db:"format"`
	S3Key     string `db:"s3_key"`
	Checksum  string `db:"checksum"`
	SizeBytes int64  `db:"size_bytes"`
}

// ResolvedDependency is one direct dependency of a resolved source.
type ResolvedDependency struct {
	BaseKey string
	Version string
	File    ResolvedFile
}

// ResolvedSource is the full result of resolve_source.
type ResolvedSource struct {
	Org          string
	Name         string
	Version      string
	File         ResolvedFile
	Dependencies []ResolvedDependency
}

// ResolvedTool is the full result of resolve_tool.
type ResolvedTool struct {
	Org     string
	Name    string
	Version string
	File    ResolvedFile
}

type versionRow struct {
	VersionID       string `db:"id"`
	EntryID         string `db:"entry_id"`
	DependencyCount int    `db:"dependency_count"`
}

// ResolveSource resolves a source spec string to its stored artifact and,
// when the version has dependencies, up to maxDependencies direct deps
// with their own format resolution (spec.md §4.9).
func ResolveSource(ctx context.Context, db *sqlx.DB, spec string) (result *ResolvedSource, err error) {
	const op = apperrors.Op("resolver.resolve_source")
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDurationVec(metrics.ResolveDuration, "source")
		metrics.ResolveRequestsTotal.WithLabelValues("source", outcomeLabel(err)).Inc()
	}()

	key, err := ParseSourceSpec(spec)
	if err != nil {
		return nil, err
	}

	v, err := resolveVersionRow(ctx, db, op, key, "data_source")
	if err != nil {
		return nil, err
	}

	var file ResolvedFile
	if err := db.GetContext(ctx, &file, `
		SELECT format, s3_key, checksum, size_bytes FROM version_files WHERE version_id = $1 AND format = $2
	`, v.VersionID, key.Format); err != nil {
		return nil, apperrors.E(op, apperrors.KindFormatUnavailable, fmt.Errorf("format %q not available for %s", key.Format, spec))
	}

	result = &ResolvedSource{Org: key.Org, Name: key.Name, Version: key.Version, File: file}

	if v.DependencyCount > 0 {
		deps, depErr := loadDependencies(ctx, db, v.VersionID, key.Format)
		if depErr != nil {
			return nil, apperrors.Wrap(op, depErr)
		}
		result.Dependencies = deps
	}

	return result, nil
}

// ResolveTool resolves a tool spec, taking the first file by created_at
// when a tool has more than one artifact format (spec.md §4.9).
func ResolveTool(ctx context.Context, db *sqlx.DB, spec string) (result *ResolvedTool, err error) {
	const op = apperrors.Op("resolver.resolve_tool")
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDurationVec(metrics.ResolveDuration, "tool")
		metrics.ResolveRequestsTotal.WithLabelValues("tool", outcomeLabel(err)).Inc()
	}()

	key, err := ParseToolSpec(spec)
	if err != nil {
		return nil, err
	}

	v, err := resolveVersionRow(ctx, db, op, key, "tool")
	if err != nil {
		return nil, err
	}

	var file ResolvedFile
	if err := db.GetContext(ctx, &file, `
		SELECT format, s3_key, checksum, size_bytes FROM version_files
		WHERE version_id = $1 ORDER BY created_at ASC LIMIT 1
	`, v.VersionID); err != nil {
		return nil, apperrors.E(op, apperrors.KindFormatUnavailable, fmt.Errorf("no stored file for %s", spec))
	}

	return &ResolvedTool{Org: key.Org, Name: key.Name, Version: key.Version, File: file}, nil
}

func loadDependencies(ctx context.Context, db *sqlx.DB, versionID, preferredFormat string) ([]ResolvedDependency, error) {
	const op = apperrors.Op("resolver.load_dependencies")

	type depRow struct {
		BaseKey string `db:"base_key"`
		Version string `db:"depends_on_version"`
		EntryID string `db:"depends_on_entry_id"`
	}
	var rows []depRow
	err := db.SelectContext(ctx, &rows, `
		SELECT (o.slug || ':' || re.slug) AS base_key, d.depends_on_version, d.depends_on_entry_id
		FROM dependencies d
		JOIN registry_entries re ON re.id = d.depends_on_entry_id
		JOIN organizations o ON o.id = re.organization_id
		WHERE d.version_id = $1
		LIMIT $2
	`, versionID, maxDependencies)
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindTransientDatabase, err)
	}

	out := make([]ResolvedDependency, 0, len(rows))
	for _, r := range rows {
		var file ResolvedFile
		err := db.GetContext(ctx, &file, `
			SELECT vf.format, vf.s3_key, vf.checksum, vf.size_bytes
			FROM versions v
			JOIN version_files vf ON vf.version_id = v.id
			WHERE v.entry_id = $1 AND v.version = $2 AND (vf.format = $3 OR $3 = '')
			ORDER BY (vf.format = $3) DESC
			LIMIT 1
		`, r.EntryID, r.Version, preferredFormat)
		if err != nil {
			continue // dependency exists but has no resolvable artifact; skip rather than fail the whole resolve
		}
		out = append(out, ResolvedDependency{BaseKey: r.BaseKey, Version: r.Version, File: file})
	}
	return out, nil
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// resolveVersionRow walks organizations -> registry_entries -> versions one
// layer at a time so a miss names the specific layer that was missing
// (spec.md §4.9's SourceNotFound/VersionNotFound distinction), instead of
// collapsing every miss in the three-way join into one generic message.
func resolveVersionRow(ctx context.Context, db *sqlx.DB, op apperrors.Op, key SpecKey, entryType string) (versionRow, error) {
	var orgID string
	if err := db.GetContext(ctx, &orgID, `SELECT id FROM organizations WHERE lower(slug) = $1`, key.Org); err != nil {
		return versionRow{}, apperrors.E(op, apperrors.KindNotFound, fmt.Errorf("organization %q not found: %w", key.Org, err))
	}

	var entryID string
	if err := db.GetContext(ctx, &entryID, `
		SELECT id FROM registry_entries WHERE organization_id = $1 AND lower(slug) = $2 AND entry_type = $3
	`, orgID, key.Name, entryType); err != nil {
		return versionRow{}, apperrors.E(op, apperrors.KindNotFound, fmt.Errorf("%s:%s not found: %w", key.Org, key.Name, err))
	}

	var v versionRow
	if err := db.GetContext(ctx, &v, `
		SELECT id, entry_id, dependency_count FROM versions WHERE entry_id = $1 AND version = $2
	`, entryID, key.Version); err != nil {
		return versionRow{}, apperrors.E(op, apperrors.KindNotFound, fmt.Errorf("%s:%s@%s not found: %w", key.Org, key.Name, key.Version, err))
	}
	return v, nil
}

// ManifestRequest is the input to ResolveManifest: every source and tool
// spec string a manifest references.
type ManifestRequest struct {
	Sources []string
	Tools   []string
}

// ResolvedManifest is the output of ResolveManifest.
type ResolvedManifest struct {
	Sources map[string]*ResolvedSource
	Tools   map[string]*ResolvedTool
}

// ConflictError reports a base key resolved to more than one version
// across the manifest's sources and their dependencies.
type ConflictError struct {
	BaseKey  string
	Versions []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("dependency conflict on %s: versions %s", e.BaseKey, strings.Join(e.Versions, ", "))
}

// ResolveManifest resolves every spec in req, then runs conflict detection
// across the resolved sources and their direct dependencies (spec.md §4.9).
func ResolveManifest(ctx context.Context, db *sqlx.DB, req ManifestRequest) (result *ResolvedManifest, err error) {
	const op = apperrors.Op("resolver.resolve_manifest")
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDurationVec(metrics.ResolveDuration, "manifest")
		metrics.ResolveRequestsTotal.WithLabelValues("manifest", outcomeLabel(err)).Inc()
	}()

	out := &ResolvedManifest{Sources: make(map[string]*ResolvedSource), Tools: make(map[string]*ResolvedTool)}
	versionsByBase := make(map[string]map[string]bool)

	addVersion := func(baseKey, version string) {
		set, ok := versionsByBase[baseKey]
		if !ok {
			set = make(map[string]bool)
			versionsByBase[baseKey] = set
		}
		set[version] = true
	}

	for _, spec := range req.Sources {
		src, err := ResolveSource(ctx, db, spec)
		if err != nil {
			return nil, apperrors.WrapMsg(op, fmt.Sprintf("resolve source %q", spec), err)
		}
		out.Sources[spec] = src
		addVersion(src.Org+":"+src.Name, src.Version)
		for _, dep := range src.Dependencies {
			addVersion(dep.BaseKey, dep.Version)
		}
	}
	for _, spec := range req.Tools {
		tool, err := ResolveTool(ctx, db, spec)
		if err != nil {
			return nil, apperrors.WrapMsg(op, fmt.Sprintf("resolve tool %q", spec), err)
		}
		out.Tools[spec] = tool
		addVersion(tool.Org+":"+tool.Name, tool.Version)
	}

	for baseKey, set := range versionsByBase {
		if len(set) > 1 {
			versions := make([]string, 0, len(set))
			for v := range set {
				versions = append(versions, v)
			}
			sort.Strings(versions)
			return nil, apperrors.E(op, apperrors.KindDependencyConflict, &ConflictError{BaseKey: baseKey, Versions: versions})
		}
	}

	return out, nil
}
