package domain

import "time"

// Decision is the terminal outcome of a Flow A or Flow B pass.
type Decision string

const (
	DecisionPending    Decision = "pending"
	DecisionApproved   Decision = "approved"
	DecisionRejected   Decision = "rejected"
	DecisionEscalated  Decision = "escalated"
	DecisionQuarantined Decision = "quarantined"
)

// DecisionSource names which tier produced the terminal decision.
type DecisionSource string

const (
	SourceTriage   DecisionSource = "triage"
	SourceML       DecisionSource = "ml"
	SourceHuman    DecisionSource = "human"
	SourceRealtime DecisionSource = "realtime"
)

// ModerationResult is the terminal Flow A record (§3.1).
type ModerationResult struct {
	ContentID        string
	Decision         Decision
	Source           DecisionSource
	Severity         Severity
	Violations       []ViolationKind
	Triage           TriageResult
	ML               MLScores
	CombinedRisk     float64
	ProcessingTime   time.Duration
	TierReached      string
	NeedsHumanReview bool
	Notes            string
}
