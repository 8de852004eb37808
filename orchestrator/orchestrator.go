// Package orchestrator implements C5: the Flow A state machine that
// routes a Content through risk assessment, triage, ML scoring, and a
// final-decision ladder, constructing review tasks on escalation and
// feeding outcomes back into the reputation engine (spec §4.4).
package orchestrator

import (
	"context"
	"time"

	"github.com/crlsmrls/modsentry/config"
	"github.com/crlsmrls/modsentry/domain"
	"github.com/crlsmrls/modsentry/internal/modsentryerr"
	"github.com/crlsmrls/modsentry/metrics"
	"github.com/crlsmrls/modsentry/mlscoring"
	"github.com/crlsmrls/modsentry/reputation"
	"github.com/crlsmrls/modsentry/reviewqueue"
	"github.com/crlsmrls/modsentry/triage"
	"golang.org/x/sync/errgroup"
)

// allPriorities lists every domain.Priority the review queue ladders
// tasks into, the label set ReviewQueueDepth is set across (§6).
var allPriorities = []domain.Priority{
	domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh,
	domain.PriorityUrgent, domain.PriorityCritical,
}

// reportQueueDepth publishes the current depth of every priority
// bucket to the review-queue gauge, the way the original service's
// MetricsExporter.update_queue_depth is called after every queue
// mutation.
func reportQueueDepth(q *reviewqueue.Queue) {
	depth := q.Depth()
	for _, p := range allPriorities {
		metrics.ReviewQueueDepth.WithLabelValues(string(p)).Set(float64(depth[p]))
	}
}

// Reputation is the subset of reputation.Engine the orchestrator
// depends on, narrowed to an interface so tests can substitute a
// fake without standing up the full engine.
type Reputation interface {
	GetRiskProfile(userID string) domain.RiskProfile
	RecordViolation(userID string, kind domain.ViolationKind, severity domain.Severity, contentID, action string) (domain.RiskProfile, reputation.SanctionResult)
	RecordApproval(userID string) domain.RiskProfile
}

// Orchestrator wires C2-C4 and C6 together into the Flow A cascade.
type Orchestrator struct {
	reputation   Reputation
	triage       *triage.Tier
	scorer       mlscoring.Scorer
	queue        *reviewqueue.Queue
	combinedRisk float64
	mlDeadline   time.Duration
	now          func() time.Time
}

// New constructs an Orchestrator. now defaults to time.Now when nil,
// overridable in tests for deterministic SLA-deadline assertions.
func New(rep Reputation, tier *triage.Tier, scorer mlscoring.Scorer, queue *reviewqueue.Queue, cfg *config.Config, now func() time.Time) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		reputation:   rep,
		triage:       tier,
		scorer:       scorer,
		queue:        queue,
		combinedRisk: cfg.CombinedRiskThreshold,
		mlDeadline:   cfg.MLDeadline,
		now:          now,
	}
}

// Process runs one Content through the full state machine of §4.4,
// returning the terminal ModerationResult. A caller-supplied bursting
// flag feeds the fast-approve gate; Flow A has no stream state of its
// own to derive it from, so it is threaded in from whatever upstream
// signal (e.g. a recent Flow B burst on the same user) tracks it.
func (o *Orchestrator) Process(ctx context.Context, content domain.Content, bursting bool) (result domain.ModerationResult, err error) {
	start := o.now()

	defer func() {
		if err != nil {
			return
		}
		metrics.ContentProcessedTotal.WithLabelValues("content", string(result.Decision)).Inc()
		metrics.TierProcessingSeconds.WithLabelValues(result.TierReached).Observe(result.ProcessingTime.Seconds())
	}()

	if verr := content.Validate(); verr != nil {
		err = modsentryerr.New(modsentryerr.InputInvalid, "orchestrator.Process", verr)
		return domain.ModerationResult{}, err
	}

	risk := o.reputation.GetRiskProfile(content.UserID)

	if fastApprove(risk, content, bursting) {
		result := domain.ModerationResult{
			ContentID:      content.ID,
			Decision:       domain.DecisionApproved,
			Source:         domain.SourceTriage,
			TierReached:    "risk-assessment",
			ProcessingTime: o.now().Sub(start),
			Notes:          "fast-approved: trusted, text-only, not bursting",
		}
		o.reputation.RecordApproval(content.UserID)
		return result, nil
	}

	triageResult := o.triage.Check(content)
	if triageResult.ShouldBlock {
		result := domain.ModerationResult{
			ContentID:      content.ID,
			Decision:       domain.DecisionRejected,
			Source:         domain.SourceTriage,
			Severity:       triageResult.Severity,
			Violations:     triageResult.Violations,
			Triage:         triageResult,
			TierReached:    "triage",
			ProcessingTime: o.now().Sub(start),
		}
		o.recordOutcome(ctx, content.UserID, result)
		return result, nil
	}

	mlScores, err := o.scoreText(ctx, content)
	if err != nil {
		if modsentryerr.Is(err, modsentryerr.ScorerUnavailable) {
			// §7: fall back to a triage-only result, capped at medium,
			// flagged for human review rather than failing the content.
			severity := triageResult.Severity
			if severity > domain.SeverityMedium {
				severity = domain.SeverityMedium
			}
			result := domain.ModerationResult{
				ContentID:        content.ID,
				Decision:         domain.DecisionEscalated,
				Source:           domain.SourceTriage,
				Severity:         severity,
				Violations:       triageResult.Violations,
				Triage:           triageResult,
				TierReached:      "ml-score",
				NeedsHumanReview: true,
				ProcessingTime:   o.now().Sub(start),
				Notes:            "ML scorer unavailable; triage-only fallback",
			}
			task := domain.NewReviewTask(content.ID, result.Severity, content.Text, content.MediaURLs, domain.ReasonLowConfidence, 0, o.now())
			o.queue.Push(task)
			reportQueueDepth(o.queue)
			return result, nil
		}
		return domain.ModerationResult{}, err
	}

	mapping := mlscoring.MapViolations(mlScores)
	combined := combinedRiskScore(triageResult.Confidence, mlScores.Confidence, risk.RiskScore)
	severity := domain.MaxSeverity(triageResult.Severity, mapping.Severity)
	violations := domain.UnionViolations(triageResult.Violations, mapping.Violations)

	if mapping.NeedsHumanReview || combined > o.combinedRisk {
		reason := domain.ReasonCombinedRisk
		if mlScores.Confidence < 0.5 {
			reason = domain.ReasonLowConfidence
		} else if mapping.NeedsHumanReview {
			reason = domain.ReasonBorderlineBand
		}
		result := domain.ModerationResult{
			ContentID:        content.ID,
			Decision:         domain.DecisionEscalated,
			Source:           domain.SourceML,
			Severity:         severity,
			Violations:       violations,
			Triage:           triageResult,
			ML:               mlScores,
			CombinedRisk:     combined,
			TierReached:      "ml-score",
			NeedsHumanReview: true,
			ProcessingTime:   o.now().Sub(start),
		}
		task := domain.NewReviewTask(content.ID, severity, content.Text, content.MediaURLs, reason, mlScores.Confidence, o.now())
		o.queue.Push(task)
		reportQueueDepth(o.queue)
		return result, nil
	}

	decision := finalDecision(severity, combined)
	result = domain.ModerationResult{
		ContentID:      content.ID,
		Decision:       decision,
		Source:         domain.SourceML,
		Severity:       severity,
		Violations:     violations,
		Triage:         triageResult,
		ML:             mlScores,
		CombinedRisk:   combined,
		TierReached:    "final-decision",
		ProcessingTime: o.now().Sub(start),
	}
	o.recordOutcome(ctx, content.UserID, result)
	return result, nil
}

// scoreText runs the text and (when present) image scorers concurrently
// under a single ML-tier deadline (§5): one slow call can't silently
// consume the other's budget.
func (o *Orchestrator) scoreText(ctx context.Context, content domain.Content) (domain.MLScores, error) {
	ctx, cancel := context.WithTimeout(ctx, o.mlDeadline)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	var scores domain.MLScores
	g.Go(func() error {
		return runWithDeadline(gctx, func() error {
			s, err := o.scorer.ScoreText(content.Text)
			if err != nil {
				return err
			}
			scores = s
			return nil
		})
	})

	var image domain.ImageAnalysis
	hasImage := content.ImageURL != ""
	if hasImage {
		g.Go(func() error {
			return runWithDeadline(gctx, func() error {
				a, err := o.scorer.AnalyseImage(content.ImageURL)
				if err != nil {
					return err
				}
				image = a
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil {
		return domain.MLScores{}, err
	}
	if hasImage {
		scores.Image = &image
	}
	return scores, nil
}

// runWithDeadline races a synchronous scorer call against ctx so a
// scorer that never returns can't stall the orchestrator past budget.
func runWithDeadline(ctx context.Context, call func() error) error {
	done := make(chan error, 1)
	go func() { done <- call() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return modsentryerr.New(modsentryerr.ScorerUnavailable, "orchestrator.scoreText", ctx.Err())
	}
}

// recordOutcome applies §4.4's violation-recording rule: rejection
// appends a violation record per violation kind; approval nudges the
// score up; quarantined/escalated decisions record nothing because
// the outcome isn't settled yet.
func (o *Orchestrator) recordOutcome(_ context.Context, userID string, result domain.ModerationResult) {
	switch result.Decision {
	case domain.DecisionRejected:
		for _, kind := range result.Violations {
			o.reputation.RecordViolation(userID, kind, result.Severity, result.ContentID, "rejected")
		}
		if len(result.Violations) == 0 {
			o.reputation.RecordViolation(userID, domain.ViolationSpam, result.Severity, result.ContentID, "rejected")
		}
	case domain.DecisionApproved:
		o.reputation.RecordApproval(userID)
	}
}

// fastApprove implements §4.4: risk = trusted, no image/media, not bursting.
func fastApprove(risk domain.RiskProfile, content domain.Content, bursting bool) bool {
	return risk.Level == domain.RiskTrusted && !content.HasMedia() && !bursting
}

// combinedRiskScore implements §4.4's formula exactly: low ML
// confidence increases combined risk, the signal for borderline
// content.
func combinedRiskScore(triageConfidence, mlConfidence, riskScore float64) float64 {
	return 0.3*triageConfidence + 0.5*(1-mlConfidence) + 0.2*riskScore
}

// finalDecision implements the top-down ladder of §4.4.
func finalDecision(severity domain.Severity, combined float64) domain.Decision {
	switch {
	case severity == domain.SeverityCritical:
		return domain.DecisionRejected
	case severity == domain.SeverityHigh && combined > 0.7:
		return domain.DecisionRejected
	case severity == domain.SeverityMedium:
		return domain.DecisionQuarantined
	default:
		return domain.DecisionApproved
	}
}
