package tracker

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTracker_Providers(t *testing.T) {
	tr := New()
	if got := tr.Snapshot(); len(got) != 0 {
		t.Fatalf("expected no providers, got %v", got)
	}

	tr.TrackAPISuccess("gemini")
	tr.TrackAPISuccess("gemini")
	tr.TrackAPIFailure("gemini")
	tr.TrackAPIZero("local")

	want := map[string]ProviderStats{
		"gemini": {APISuccess: 2, APIFailures: 1},
		"local":  {APIZeroResult: 1},
	}
	if diff := cmp.Diff(want, tr.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestTracker_Outcomes(t *testing.T) {
	tr := New()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.TrackOutcome("fallback")
			tr.TrackAPISuccess("groq")
		}()
	}
	wg.Wait()
	tr.TrackOutcome("assembled")

	want := map[string]int64{"fallback": 50, "assembled": 1}
	if diff := cmp.Diff(want, tr.Outcomes()); diff != "" {
		t.Errorf("Outcomes() mismatch (-want +got):\n%s", diff)
	}
	if got := tr.Snapshot()["groq"].APISuccess; got != 50 {
		t.Errorf("expected 50 concurrent successes, got %d", got)
	}
}

func TestTracker_Nil(t *testing.T) {
	var tr *Tracker
	tr.TrackAPISuccess("gemini")
	tr.TrackOutcome("greeting")
	if len(tr.Snapshot()) != 0 || len(tr.Outcomes()) != 0 {
		t.Error("nil tracker should report nothing")
	}
}
