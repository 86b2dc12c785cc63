// Package parser defines the shared capability contract every family
// parser (uniprot, genbank, taxdump, interpro) implements, per spec.md
// §4.3 and §9's "tagged variants plus a shared capability set" guidance:
// family selection happens once at the orchestrator boundary, and each
// concrete parser stays monomorphic in its own record type.
package parser

// Capability is the three-function surface spec.md §4.3 requires of every
// family parser: Count sizes work units without building records; ParseRange
// parses only the logical records in [start, end); ParseAll is a convenience
// for small inputs. Record is `any` because each family produces a distinct
// record type (uniprot.Entry, genbank.Record, ...) — the shared contract is
// the shape of the operations, not a common record schema.
type Capability[Record any] interface {
	Count(data []byte) (int, error)
	ParseRange(data []byte, start, end int) ([]Record, []Warning, error)
	ParseAll(data []byte) ([]Record, []Warning, error)
}

// Warning is a recoverable per-record parse failure: spec.md §4.3 requires
// malformed records to be counted and skipped, not aborted.
type Warning struct {
	RecordIndex int
	Message     string
}
