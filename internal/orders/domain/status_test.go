package domain

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusReviewedByAI, true},
		{StatusReviewedByAI, StatusCompleted, true},

		// No backward paths
		{StatusReviewedByAI, StatusPending, false},
		{StatusCompleted, StatusReviewedByAI, false},
		{StatusCompleted, StatusPending, false},

		// No skipping stages
		{StatusPending, StatusCompleted, false},

		// Externally-reachable states never transition through the pipeline
		{StatusCancelled, StatusReviewedByAI, false},
		{StatusOngoing, StatusReviewedByAI, false},
		{StatusPending, StatusCancelled, false},
		{StatusCompleted, StatusCompleted, false},
	}

	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"Pending", "ReviewedByAI", "Completed", "Cancelled", "Ongoing"} {
		if _, err := ParseStatus(valid); err != nil {
			t.Errorf("ParseStatus(%q) returned error: %v", valid, err)
		}
	}

	for _, invalid := range []string{"", "pending", "Done", "REVIEWED"} {
		if _, err := ParseStatus(invalid); err == nil {
			t.Errorf("ParseStatus(%q) expected error, got nil", invalid)
		}
	}
}

func TestFlagIsValid(t *testing.T) {
	for _, valid := range []Flag{FlagLow, FlagNormal, FlagHigh} {
		if !valid.IsValid() {
			t.Errorf("expected %q to be valid", valid)
		}
	}
	if Flag("Critical").IsValid() {
		t.Error("expected unknown flag to be invalid")
	}
	if Flag("").IsValid() {
		t.Error("expected empty flag to be invalid")
	}
}
