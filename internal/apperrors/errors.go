// Package apperrors provides the error taxonomy and wrapping helpers shared
// by every bdp component. It generalizes the teacher's ad hoc Kind enum
// (database/search/io/validation/...) into the source-agnostic kinds
// spec.md §7 names, so that every layer — FTP fetcher, parser, coordinator,
// resolver, registry handlers — reports failures the same way.
package apperrors

import (
	"fmt"
	"log"
	"runtime"
	"strings"
)

// Op identifies the operation that failed, for error context.
type Op string

// Kind categorizes a failure per spec.md §7's taxonomy.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindFormatUnavailable
	KindTransientNetwork
	KindTransientDatabase
	KindFatalNetwork
	KindParseWarning
	KindParseFatal
	KindDependencyConflict
	KindCircularDependency
	KindCacheCorrupt
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindFormatUnavailable:
		return "format_unavailable"
	case KindTransientNetwork:
		return "transient_network"
	case KindTransientDatabase:
		return "transient_database"
	case KindFatalNetwork:
		return "fatal_network"
	case KindParseWarning:
		return "parse_warning"
	case KindParseFatal:
		return "parse_fatal"
	case KindDependencyConflict:
		return "dependency_conflict"
	case KindCircularDependency:
		return "circular_dependency"
	case KindCacheCorrupt:
		return "cache_corrupt"
	default:
		return "unknown"
	}
}

// Code is the stable, API-visible error code spec.md §7 requires
// ("every API-style error carries a stable code").
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict, KindDependencyConflict, KindCircularDependency:
		return "CONFLICT"
	case KindFormatUnavailable:
		return "FORMAT_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

// Retryable reports whether the framework should retry an error of this kind
// without surfacing it to the caller (spec.md §7 propagation rules).
func (k Kind) Retryable() bool {
	return k == KindTransientNetwork || k == KindTransientDatabase
}

// Error is an application error carrying an operation, a kind, an optional
// field pointer (for validation errors), and an underlying cause.
type Error struct {
	Op    Op
	Kind  Kind
	Err   error
	Msg   string
	Field string // set for KindValidation errors per spec.md §7
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(string(e.Op))
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
		if e.Err != nil {
			b.WriteString(": ")
		}
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// E creates a new Error from a mix of Op, Kind, error, and string (message)
// arguments, in the order the caller supplies them.
func E(args ...interface{}) *Error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case error:
			e.Err = a
		case string:
			e.Msg = a
		}
	}
	return e
}

// WithField attaches a validation field pointer and returns the error for
// chaining: apperrors.E(op, KindValidation, "slug required").WithField("slug").
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// Wrap wraps an error with an operation name for context.
func Wrap(op Op, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapMsg wraps an error with an operation name and message.
func WrapMsg(op Op, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Msg: msg, Err: err}
}

// IsKind checks if an error is of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == kind
}

// GetKind returns the kind of an error, or KindUnknown.
func GetKind(err error) Kind {
	e, ok := err.(*Error)
	if !ok {
		return KindUnknown
	}
	return e.Kind
}

// IsRetryable reports whether err is a transient kind the framework should
// retry at the transaction/request boundary rather than surface.
func IsRetryable(err error) bool {
	return GetKind(err).Retryable()
}

// SkipCounter tracks how many times operations have been skipped, so a
// batch writer or parser can report a summary instead of logging every
// individual skip (spec.md §4.3: "malformed records as recoverable warnings
// and continue").
type SkipCounter struct {
	Op         string
	Count      int
	LastErr    error
	LastDetail string
}

func NewSkipCounter(op string) *SkipCounter {
	return &SkipCounter{Op: op}
}

func (s *SkipCounter) Skip(err error, detail string) {
	s.Count++
	s.LastErr = err
	s.LastDetail = detail
}

func (s *SkipCounter) Report() {
	if s.Count > 0 {
		log.Printf("warning: %s skipped %d items (last error: %v, detail: %s)",
			s.Op, s.Count, s.LastErr, s.LastDetail)
	}
}

func (s *SkipCounter) ReportIfAny(threshold int) {
	if s.Count >= threshold {
		s.Report()
	}
}

// LogAndContinue logs an error with call-site context and returns, for use
// in continue-on-error loops instead of silently swallowing the error.
func LogAndContinue(operation string, err error) {
	_, file, line, ok := runtime.Caller(1)
	if ok {
		if idx := strings.LastIndex(file, "/"); idx >= 0 {
			file = file[idx+1:]
		}
		log.Printf("warning [%s:%d]: %s failed: %v", file, line, operation, err)
	} else {
		log.Printf("warning: %s failed: %v", operation, err)
	}
}

// Must panics if err is non-nil; reserved for startup code where an error
// is a programming mistake, not a runtime condition.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("unexpected error: %v", err))
	}
	return v
}

// RowScanner tracks batch-scan success/failure counts for C6 writers, which
// must continue past a single malformed row rather than abort the chunk.
type RowScanner struct {
	skipped *SkipCounter
	scanned int
}

func NewRowScanner(operation string) *RowScanner {
	return &RowScanner{skipped: NewSkipCounter(operation)}
}

func (r *RowScanner) RecordScan() { r.scanned++ }

func (r *RowScanner) RecordSkip(err error, identifier string) {
	r.skipped.Skip(err, identifier)
}

func (r *RowScanner) Report() {
	if r.skipped.Count > 0 {
		log.Printf("batch scan complete: %d scanned, %d skipped (%.1f%% success rate)",
			r.scanned, r.skipped.Count,
			float64(r.scanned)/float64(r.scanned+r.skipped.Count)*100)
		r.skipped.Report()
	}
}

func (r *RowScanner) SkippedCount() int { return r.skipped.Count }
func (r *RowScanner) ScannedCount() int { return r.scanned }
