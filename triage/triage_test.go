package triage

import (
	"testing"

	"github.com/crlsmrls/modsentry/domain"
)

func newTestTier() *Tier {
	return New(DefaultRulesConfig(), 10000)
}

// §8 scenario 3: critical escalation short-circuits at triage.
func TestCheck_CriticalPatternShortCircuits(t *testing.T) {
	tier := newTestTier()
	result := tier.Check(domain.Content{Text: "there is a bomb threat at the venue"})

	if !result.ShouldBlock {
		t.Error("critical pattern must block")
	}
	if result.Severity != domain.SeverityCritical {
		t.Errorf("severity = %v, want critical", result.Severity)
	}
	if result.Confidence != 0.99 {
		t.Errorf("confidence = %f, want 0.99", result.Confidence)
	}
	found := false
	for _, v := range result.Violations {
		if v == domain.ViolationThreat {
			found = true
		}
	}
	if !found {
		t.Error("violations must include threat")
	}
}

// §8 scenario 2: fast-path spam block via regex + blocked-domain match.
func TestCheck_SpamPatternAndBlockedDomain(t *testing.T) {
	tier := newTestTier()
	result := tier.Check(domain.Content{Text: "BUY NOW!!! http://bit.ly/xyz http://bit.ly/abc"})

	if !result.ShouldBlock {
		t.Error("spam + blocked domain should block")
	}
	if result.Severity < domain.SeverityMedium {
		t.Errorf("severity = %v, want >= medium", result.Severity)
	}
	if result.Confidence < 0.8 {
		t.Errorf("confidence = %f, want >= 0.8", result.Confidence)
	}
}

func TestCheck_Profanity(t *testing.T) {
	tier := newTestTier()
	result := tier.Check(domain.Content{Text: "this is such bullshit"})

	hasProfanity := false
	for _, v := range result.Violations {
		if v == domain.ViolationProfanity {
			hasProfanity = true
		}
	}
	if !hasProfanity {
		t.Error("expected profanity violation")
	}
}

func TestCheck_DuplicateContentOrderIndependent(t *testing.T) {
	tier := newTestTier()
	text := "hey everyone, check this out"

	first := tier.Check(domain.Content{Text: text})
	for _, v := range first.Violations {
		if v == domain.ViolationSpam {
			t.Fatal("first occurrence should not be flagged as duplicate")
		}
	}

	second := tier.Check(domain.Content{Text: text})
	found := false
	for _, v := range second.Violations {
		if v == domain.ViolationSpam {
			found = true
		}
	}
	if !found {
		t.Error("second occurrence of identical text should be flagged duplicate")
	}
}

func TestCheck_TrustedCleanTextApproves(t *testing.T) {
	tier := newTestTier()
	result := tier.Check(domain.Content{Text: "Great game everyone!"})

	if result.ShouldBlock {
		t.Error("clean text should not block at triage")
	}
	if result.Severity != domain.SeverityNone {
		t.Errorf("severity = %v, want none", result.Severity)
	}
}

func TestDupCache_EvictsOldest(t *testing.T) {
	c := newDupCache(2)
	c.SeenOrAdd("a")
	c.SeenOrAdd("b")
	c.SeenOrAdd("c") // evicts "a"

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if c.SeenOrAdd("a") {
		t.Error("'a' should have been evicted and therefore not seen")
	}
}

func TestShouldBlock_MediumRequiresHighConfidence(t *testing.T) {
	tests := []struct {
		name       string
		severity   domain.Severity
		confidence float64
		want       bool
	}{
		{"high severity always blocks", domain.SeverityHigh, 0.1, true},
		{"medium with high confidence blocks", domain.SeverityMedium, 0.95, true},
		{"medium with low confidence does not block", domain.SeverityMedium, 0.5, false},
		{"low severity does not block", domain.SeverityLow, 0.99, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.severity >= domain.SeverityHigh || (tt.severity >= domain.SeverityMedium && tt.confidence >= 0.9)
			if got != tt.want {
				t.Errorf("shouldBlock = %v, want %v", got, tt.want)
			}
		})
	}
}
