package domain

import "testing"

func TestMaxSeverity(t *testing.T) {
	tests := []struct {
		name string
		a, b Severity
		want Severity
	}{
		{"none vs critical", SeverityNone, SeverityCritical, SeverityCritical},
		{"high vs medium", SeverityHigh, SeverityMedium, SeverityHigh},
		{"equal", SeverityLow, SeverityLow, SeverityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxSeverity(tt.a, tt.b); got != tt.want {
				t.Errorf("MaxSeverity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

// Ordering must be numeric, never lexical (spec open question).
func TestSeverityOrderingIsNumeric(t *testing.T) {
	order := []Severity{SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		if !(order[i-1] < order[i]) {
			t.Fatalf("severity %v should be < %v", order[i-1], order[i])
		}
	}
}

func TestUnionViolations(t *testing.T) {
	a := []ViolationKind{ViolationSpam, ViolationProfanity}
	b := []ViolationKind{ViolationProfanity, ViolationThreat}

	got := UnionViolations(a, b)
	want := []ViolationKind{ViolationSpam, ViolationProfanity, ViolationThreat}

	if len(got) != len(want) {
		t.Fatalf("UnionViolations() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("UnionViolations()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIsCritical(t *testing.T) {
	if !ViolationThreat.IsCritical() {
		t.Error("threat must be critical")
	}
	if !ViolationCSAM.IsCritical() {
		t.Error("csam must be critical")
	}
	if ViolationSpam.IsCritical() {
		t.Error("spam must not be critical")
	}
}
