// Package registry implements the typed command handlers (C10): request
// structs validated before they touch the database, response structs
// carrying pagination metadata. Grounded on the teacher's internal/service
// layer (typed request → typed response) and internal/validator (a
// validate-then-report style, generalized from XML field checks to
// registry field checks).
package registry

import (
	"regexp"

	"github.com/google/uuid"

	"github.com/nishad/bdp/internal/apperrors"
)

const (
	maxSlugLen    = 128
	maxVersionLen = 64
	defaultPage   = 1
	defaultPerPg  = 50
	maxPerPage    = 1000
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Pagination is the request-side page/per_page pair every list command
// takes. validate clamps a per_page above maxPerPage to maxPerPage instead
// of rejecting it; page < 1 and per_page < 1 are validation errors (a
// caller cannot mean a page before the first, or an empty page).
type Pagination struct {
	Page    int
	PerPage int
}

func (p *Pagination) validate(op apperrors.Op) error {
	if p.Page < 1 {
		return apperrors.E(op, apperrors.KindValidation, "page must be >= 1").WithField("page")
	}
	if p.PerPage < 1 {
		return apperrors.E(op, apperrors.KindValidation, "per_page must be >= 1").WithField("per_page")
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return nil
}

func (p Pagination) offset() int { return (p.Page - 1) * p.PerPage }

// PageMeta is the pagination metadata every list Response embeds.
type PageMeta struct {
	Page     int   `json:"page"`
	PerPage  int   `json:"per_page"`
	Total    int64 `json:"total"`
	Pages    int64 `json:"pages"`
	HasNext  bool  `json:"has_next"`
	HasPrev  bool  `json:"has_prev"`
}

func newPageMeta(p Pagination, total int64) PageMeta {
	pages := total / int64(p.PerPage)
	if total%int64(p.PerPage) != 0 {
		pages++
	}
	return PageMeta{
		Page:    p.Page,
		PerPage: p.PerPage,
		Total:   total,
		Pages:   pages,
		HasNext: int64(p.Page) < pages,
		HasPrev: p.Page > 1,
	}
}

func validateSlug(op apperrors.Op, field, slug string) error {
	if slug == "" {
		return apperrors.E(op, apperrors.KindValidation, field+" is required").WithField(field)
	}
	if len(slug) > maxSlugLen {
		return apperrors.E(op, apperrors.KindValidation, field+" exceeds max length").WithField(field)
	}
	if !slugPattern.MatchString(slug) {
		return apperrors.E(op, apperrors.KindValidation, field+" must be lower-case alphanumerics and dashes").WithField(field)
	}
	return nil
}

func validateVersionString(op apperrors.Op, field, version string) error {
	if version == "" {
		return apperrors.E(op, apperrors.KindValidation, field+" is required").WithField(field)
	}
	if len(version) > maxVersionLen {
		return apperrors.E(op, apperrors.KindValidation, field+" exceeds max length").WithField(field)
	}
	return nil
}

func validateNonEmpty(op apperrors.Op, field, value string) error {
	if value == "" {
		return apperrors.E(op, apperrors.KindValidation, field+" is required").WithField(field)
	}
	return nil
}

func validateUUID(op apperrors.Op, field string, id uuid.UUID) error {
	if id == uuid.Nil {
		return apperrors.E(op, apperrors.KindValidation, field+" is required").WithField(field)
	}
	return nil
}
