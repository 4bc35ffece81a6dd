package flagging

import (
	"testing"

	"labportal_backend/internal/orders/domain"
)

func testSnapshot() *Snapshot {
	return NewSnapshot([]Config{
		{TestCode: "WBC", Gender: "", Min: 4, Max: 10, IsActive: true},
		{TestCode: "HGB", Gender: "Male", Min: 13.5, Max: 17.5, IsActive: true},
		{TestCode: "HGB", Gender: "Female", Min: 12.0, Max: 15.5, IsActive: true},
		{TestCode: "HGB", Gender: "", Min: 12.0, Max: 17.5, IsActive: true},
		{TestCode: "PLT", Gender: "", Min: 150, Max: 400, IsActive: false},
	})
}

func TestClassify(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		name     string
		testCode string
		value    float64
		gender   string
		want     domain.Flag
	}{
		{"inside range", "WBC", 9.0, "Male", domain.FlagNormal},
		{"above range", "WBC", 11, "Male", domain.FlagHigh},
		{"below range", "WBC", 3, "Male", domain.FlagLow},
		{"boundary min is normal", "WBC", 4, "", domain.FlagNormal},
		{"boundary max is normal", "WBC", 10, "", domain.FlagNormal},

		// Gender-specific rows take precedence over the wildcard row:
		// 13.0 is inside the wildcard range but below the male-specific one.
		{"gender specific wins", "HGB", 13.0, "Male", domain.FlagLow},
		{"female range applies", "HGB", 13.0, "Female", domain.FlagNormal},
		{"wildcard fallback for unknown gender", "HGB", 13.0, "Other", domain.FlagNormal},
		{"wildcard fallback for empty gender", "HGB", 13.0, "", domain.FlagNormal},

		// No config at all defaults to Normal.
		{"unconfigured test code", "NA", 99999, "Male", domain.FlagNormal},

		// Inactive configs are invisible.
		{"inactive config ignored", "PLT", 20, "", domain.FlagNormal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := snap.Classify(tc.testCode, tc.value, tc.gender)
			if got != tc.want {
				t.Errorf("Classify(%q, %v, %q) = %q, want %q", tc.testCode, tc.value, tc.gender, got, tc.want)
			}
		})
	}
}

func TestClassifyNormalizesKeys(t *testing.T) {
	snap := NewSnapshot([]Config{
		{TestCode: " wbc ", Gender: "MALE", Min: 4, Max: 10, IsActive: true},
	})

	if got := snap.Classify("WBC", 12, "male"); got != domain.FlagHigh {
		t.Errorf("expected case-insensitive lookup to flag High, got %q", got)
	}
}

func TestHas(t *testing.T) {
	snap := testSnapshot()

	if !snap.Has("WBC", "Male") {
		t.Error("expected wildcard WBC config to match any gender")
	}
	if !snap.Has("HGB", "Female") {
		t.Error("expected gender-specific HGB config")
	}
	if snap.Has("PLT", "") {
		t.Error("inactive config must not be visible")
	}
	if snap.Has("XYZ", "") {
		t.Error("unknown test code must not match")
	}
}
