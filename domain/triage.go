package domain

import "time"

// TriageResult is the outcome of the C3 deterministic pattern cascade.
type TriageResult struct {
	ShouldBlock     bool
	Violations      []ViolationKind
	Severity        Severity
	Confidence      float64
	MatchedPatterns []string
	ProcessingTime  time.Duration
}
