package models

import "testing"

func TestEntryTypeValues(t *testing.T) {
	if EntryTypeDataSource != "data_source" {
		t.Errorf("unexpected EntryTypeDataSource value %q", EntryTypeDataSource)
	}
	if EntryTypeTool != "tool" {
		t.Errorf("unexpected EntryTypeTool value %q", EntryTypeTool)
	}
}

func TestJobStatusTransitionOrder(t *testing.T) {
	order := []JobStatus{JobPending, JobDownloading, JobParsing, JobStoring, JobCompleted}
	seen := map[JobStatus]bool{}
	for _, s := range order {
		if seen[s] {
			t.Fatalf("duplicate status %q in lifecycle order", s)
		}
		seen[s] = true
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 distinct non-terminal-failure statuses, got %d", len(seen))
	}
}

func TestWorkUnitStatusValues(t *testing.T) {
	for _, s := range []WorkUnitStatus{WorkUnitPending, WorkUnitClaimed, WorkUnitCompleted, WorkUnitFailed} {
		if s == "" {
			t.Error("work unit status constant should not be empty")
		}
	}
}
