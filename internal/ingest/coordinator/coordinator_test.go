package coordinator

import (
	"testing"

	"github.com/nishad/bdp/internal/models"
)

func TestJobTransitionsForwardOnly(t *testing.T) {
	order := []models.JobStatus{models.JobPending, models.JobDownloading, models.JobParsing, models.JobStoring, models.JobCompleted}
	for i := 1; i < len(order); i++ {
		allowed, ok := jobTransitions[order[i]]
		if !ok {
			t.Fatalf("no transition entry for %q", order[i])
		}
		found := false
		for _, a := range allowed {
			if a == order[i-1] {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %q to be a legal predecessor of %q", order[i-1], order[i])
		}
	}
}

func TestStatusStrings(t *testing.T) {
	got := statusStrings([]models.JobStatus{models.JobPending, models.JobDownloading})
	want := []string{"pending", "downloading"}
	if len(got) != len(want) {
		t.Fatalf("unexpected length: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStaleThresholdIsFiveHeartbeats(t *testing.T) {
	if staleThreshold != heartbeatInterval*staleMultiplier {
		t.Errorf("staleThreshold should be heartbeatInterval * staleMultiplier")
	}
	if staleMultiplier != 5 {
		t.Errorf("expected default stale multiplier of 5, got %d", staleMultiplier)
	}
}

func TestDefaultWorkUnitSize(t *testing.T) {
	if defaultWorkUnitSize != 500 {
		t.Errorf("expected default work unit size 500, got %d", defaultWorkUnitSize)
	}
}
