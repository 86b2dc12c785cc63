package apperrors

import (
	"errors"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"op and err", &Error{Op: "resolver.resolve", Err: errors.New("boom")}, "resolver.resolve: boom"},
		{"msg only", &Error{Msg: "slug required"}, "slug required"},
		{"op msg err", &Error{Op: "registry.create", Msg: "invalid slug", Err: errors.New("bad")}, "registry.create: invalid slug: bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap("op", nil) != nil {
		t.Error("Wrap(op, nil) should return nil")
	}
	if WrapMsg("op", "msg", nil) != nil {
		t.Error("WrapMsg(op, msg, nil) should return nil")
	}
}

func TestEConstructor(t *testing.T) {
	err := E(Op("coordinator.claim"), KindTransientDatabase, errors.New("deadlock"), "retrying")
	if err.Op != "coordinator.claim" {
		t.Errorf("unexpected op %q", err.Op)
	}
	if err.Kind != KindTransientDatabase {
		t.Errorf("unexpected kind %v", err.Kind)
	}
	if err.Msg != "retrying" {
		t.Errorf("unexpected msg %q", err.Msg)
	}
}

func TestKindCode(t *testing.T) {
	tests := []struct {
		kind Kind
		code string
	}{
		{KindValidation, "VALIDATION_ERROR"},
		{KindNotFound, "NOT_FOUND"},
		{KindConflict, "CONFLICT"},
		{KindDependencyConflict, "CONFLICT"},
		{KindFormatUnavailable, "FORMAT_UNAVAILABLE"},
		{KindTransientNetwork, "INTERNAL_ERROR"},
		{KindUnknown, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		if got := tt.kind.Code(); got != tt.code {
			t.Errorf("%v.Code() = %q, want %q", tt.kind, got, tt.code)
		}
	}
}

func TestKindRetryable(t *testing.T) {
	if !KindTransientNetwork.Retryable() {
		t.Error("TransientNetwork should be retryable")
	}
	if !KindTransientDatabase.Retryable() {
		t.Error("TransientDatabase should be retryable")
	}
	if KindFatalNetwork.Retryable() {
		t.Error("FatalNetwork should not be retryable")
	}
	if KindValidation.Retryable() {
		t.Error("Validation should not be retryable")
	}
}

func TestIsKindAndGetKind(t *testing.T) {
	err := E(KindNotFound, "missing")
	if !IsKind(err, KindNotFound) {
		t.Error("expected IsKind to match KindNotFound")
	}
	if IsKind(err, KindConflict) {
		t.Error("did not expect IsKind to match KindConflict")
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Error("expected plain error to resolve to KindUnknown")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(E(KindTransientNetwork, "timeout")) {
		t.Error("expected transient network error to be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors should not be retryable")
	}
}

func TestWithField(t *testing.T) {
	err := E(KindValidation, "required").WithField("slug")
	if err.Field != "slug" {
		t.Errorf("expected field 'slug', got %q", err.Field)
	}
}

func TestSkipCounter(t *testing.T) {
	sc := NewSkipCounter("parse uniprot")
	if sc.Count != 0 {
		t.Fatalf("expected 0 initial count, got %d", sc.Count)
	}
	sc.Skip(errors.New("bad record"), "P00000")
	if sc.Count != 1 {
		t.Errorf("expected count 1, got %d", sc.Count)
	}
	if sc.LastDetail != "P00000" {
		t.Errorf("expected last detail 'P00000', got %q", sc.LastDetail)
	}
}

func TestRowScanner(t *testing.T) {
	rs := NewRowScanner("upsert proteins")
	rs.RecordScan()
	rs.RecordScan()
	rs.RecordSkip(errors.New("dup key"), "P00001")

	if rs.ScannedCount() != 2 {
		t.Errorf("expected 2 scanned, got %d", rs.ScannedCount())
	}
	if rs.SkippedCount() != 1 {
		t.Errorf("expected 1 skipped, got %d", rs.SkippedCount())
	}
}

func TestMust(t *testing.T) {
	v := Must(42, nil)
	if v != 42 {
		t.Errorf("expected 42, got %d", v)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected Must to panic on non-nil error")
		}
	}()
	Must(0, errors.New("boom"))
}
